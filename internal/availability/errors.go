package availability

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError carries per-field failure messages for a rejected request.
// Every field is checked before the error is returned; it never reports only
// the first violation.
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("validation failed:")
	for _, k := range keys {
		fmt.Fprintf(&b, " %s: %s;", k, strings.Join(e.Fields[k], ", "))
	}
	return strings.TrimSuffix(b.String(), ";")
}

func (e *ValidationError) add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *ValidationError) empty() bool { return len(e.Fields) == 0 }

// ConflictError reports that a candidate window overlaps existing ones for
// the same provider and date.
type ConflictError struct {
	Conflicts []AvailabilityWindow
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflicting availability found: %d conflicts", len(e.Conflicts))
}
