package availability

import (
	"time"

	"github.com/google/uuid"
)

// GenerateSlotTimes lays out the discrete slot intervals inside a window.
// Starting at start, each slot runs slotDuration minutes; a trailing slot
// that would extend past end is discarded, not truncated. Consecutive slots
// are separated by breakDuration minutes. A slotDuration longer than the
// whole window yields zero slots.
func GenerateSlotTimes(start, end TimeOfDay, slotDuration, breakDuration int) []Interval {
	if slotDuration <= 0 || end <= start {
		return nil
	}
	var out []Interval
	cur := int(start)
	for cur < int(end) {
		slotEnd := cur + slotDuration
		if slotEnd > int(end) {
			break
		}
		out = append(out, Interval{Start: TimeOfDay(cur), End: TimeOfDay(slotEnd)})
		cur = slotEnd + breakDuration
	}
	return out
}

// BuildSlots materializes a window's slot intervals into AppointmentSlot
// records with absolute instants in the window's timezone.
func BuildSlots(w *AvailabilityWindow, loc *time.Location) []AppointmentSlot {
	intervals := GenerateSlotTimes(w.StartTime, w.EndTime, w.SlotDuration, w.BreakDuration)
	slots := make([]AppointmentSlot, 0, len(intervals))
	for _, iv := range intervals {
		slots = append(slots, AppointmentSlot{
			ID:              uuid.New(),
			AvailabilityID:  w.ID,
			ProviderID:      w.ProviderID,
			SlotStart:       CombineLocal(w.Date, iv.Start, loc),
			SlotEnd:         CombineLocal(w.Date, iv.End, loc),
			Status:          SlotAvailable,
			AppointmentType: w.AppointmentType,
		})
	}
	return slots
}
