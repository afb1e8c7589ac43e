package validation

import (
	"fmt"
	"net/mail"
	"regexp"
	"sort"
	"strings"
)

// Error accumulates per-field failure messages. Services collect every
// violation before returning so callers see the full picture at once.
type Error struct {
	Fields map[string][]string
}

func (e *Error) Error() string {
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

func (e *Error) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = map[string][]string{}
	}
	e.Fields[field] = append(e.Fields[field], msg)
}

func (e *Error) Empty() bool { return len(e.Fields) == 0 }

// ErrOrNil returns the error when any field failed, nil otherwise.
func (e *Error) ErrOrNil() error {
	if e.Empty() {
		return nil
	}
	return e
}

var phoneRe = regexp.MustCompile(`^\+?[0-9(][0-9\-\s()]{6,19}$`)

// ValidEmail reports whether s parses as an RFC 5322 address.
func ValidEmail(s string) bool {
	_, err := mail.ParseAddress(s)
	return err == nil
}

// ValidPhone accepts international phone numbers with optional separators.
func ValidPhone(s string) bool {
	return phoneRe.MatchString(s)
}
