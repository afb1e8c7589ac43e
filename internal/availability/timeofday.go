package availability

import (
	"errors"
	"fmt"
	"time"
)

// TimeOfDay is a wall-clock time expressed as minutes since midnight,
// always in [0, 1440).
type TimeOfDay int

const minutesPerDay = 1440

var (
	ErrInvalidRange  = errors.New("end time must be after start time")
	ErrRangeTooShort = errors.New("time range is shorter than the minimum duration")
	ErrRangeTooLong  = errors.New("time range exceeds the maximum duration")
)

// ParseTimeOfDay parses a "HH:MM" string.
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: must be HH:MM", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

func (t TimeOfDay) Hour() int   { return int(t) / 60 }
func (t TimeOfDay) Minute() int { return int(t) % 60 }

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// AddMinutes advances t within a 24-hour clock. The result wraps past
// midnight instead of rolling over to a new date.
func (t TimeOfDay) AddMinutes(minutes int) TimeOfDay {
	v := (int(t) + minutes) % minutesPerDay
	if v < 0 {
		v += minutesPerDay
	}
	return TimeOfDay(v)
}

// SubtractMinutes moves t backward, wrapping below midnight.
func (t TimeOfDay) SubtractMinutes(minutes int) TimeOfDay {
	return t.AddMinutes(-minutes)
}

// MinutesBetween returns the non-negative duration from start to end.
// end < start is treated as crossing midnight.
func MinutesBetween(start, end TimeOfDay) int {
	d := int(end) - int(start)
	if d < 0 {
		d += minutesPerDay
	}
	return d
}

// ValidateRange checks that [start, end) is a well-formed same-day range of
// at least minDurationMinutes and at most maxDurationHours hours.
func ValidateRange(start, end TimeOfDay, minDurationMinutes, maxDurationHours int) error {
	if end <= start {
		return ErrInvalidRange
	}
	d := int(end) - int(start)
	if d < minDurationMinutes {
		return ErrRangeTooShort
	}
	if d > maxDurationHours*60 {
		return ErrRangeTooLong
	}
	return nil
}

// CombineLocal combines a calendar date and a wall-clock time into an
// absolute instant in loc. The zone offset (including DST) is resolved for
// the given date, not for the current one.
func CombineLocal(date time.Time, t TimeOfDay, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc)
}

// ParseDate parses a "YYYY-MM-DD" string into a date normalized to midnight UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: must be YYYY-MM-DD", s)
	}
	return d, nil
}

// DateOnly normalizes an instant to its calendar date at midnight UTC.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
