package availability

// Interval is a half-open [Start, End) time-of-day range on a single date.
type Interval struct {
	Start TimeOfDay
	End   TimeOfDay
}

// Overlaps reports whether two same-date intervals overlap. Touching
// endpoints (09:00-10:00 vs 10:00-11:00) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && a.End > b.Start
}

// FindOverlaps returns the windows from existing whose time range overlaps
// the candidate interval. Callers are expected to pass windows already scoped
// to one provider and date.
func FindOverlaps(existing []AvailabilityWindow, candidate Interval) []AvailabilityWindow {
	var out []AvailabilityWindow
	for _, w := range existing {
		if Overlaps(Interval{Start: w.StartTime, End: w.EndTime}, candidate) {
			out = append(out, w)
		}
	}
	return out
}
