package availability

import (
	"fmt"
	"time"

	"github.com/teambition/rrule-go"
)

// ExpandDates returns the calendar dates on which a recurring window must be
// created, from start to end inclusive. The first element is always start.
//
// DAILY yields every date, WEEKLY every date sharing start's weekday, and
// MONTHLY every date sharing start's day-of-month. Months that do not contain
// that day (e.g. the 31st in February) are skipped, per RFC 5545 recurrence
// semantics.
func ExpandDates(start, end time.Time, pattern RecurrencePattern) ([]time.Time, error) {
	var freq rrule.Frequency
	switch pattern {
	case RecurDaily:
		freq = rrule.DAILY
	case RecurWeekly:
		freq = rrule.WEEKLY
	case RecurMonthly:
		freq = rrule.MONTHLY
	default:
		return nil, fmt.Errorf("unknown recurrence pattern %q", pattern)
	}

	start = DateOnly(start)
	end = DateOnly(end)
	if end.Before(start) {
		return nil, fmt.Errorf("recurrence end date %s is before start date %s",
			end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:    freq,
		Dtstart: start,
		Until:   end,
	})
	if err != nil {
		return nil, fmt.Errorf("build recurrence rule: %w", err)
	}

	dates := rule.All()
	for i := range dates {
		dates[i] = DateOnly(dates[i])
	}
	return dates, nil
}
