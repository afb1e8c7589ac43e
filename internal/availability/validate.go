package availability

import (
	"fmt"
	"time"
)

// Window ranges must be at least one slot long and fit in a working day.
const (
	minWindowMinutes = 15
	maxWindowHours   = 12

	minSlotDuration = 15
	maxSlotDuration = 240
	maxBreak        = 60
	maxPerSlot      = 10
	maxNotesLen     = 500
)

// CreateAvailabilityRequest is the engine-level creation input. Dates and
// times arrive as strings ("YYYY-MM-DD", "HH:MM") the way the transport
// layer receives them; validation parses and reports per-field errors.
type CreateAvailabilityRequest struct {
	Date                   string            `json:"date"`
	StartTime              string            `json:"start_time"`
	EndTime                string            `json:"end_time"`
	Timezone               string            `json:"timezone"`
	SlotDuration           int               `json:"slot_duration"`
	BreakDuration          int               `json:"break_duration"`
	IsRecurring            bool              `json:"is_recurring"`
	RecurrencePattern      RecurrencePattern `json:"recurrence_pattern,omitempty"`
	RecurrenceEndDate      string            `json:"recurrence_end_date,omitempty"`
	AppointmentType        AppointmentType   `json:"appointment_type"`
	Location               *Location         `json:"location,omitempty"`
	Pricing                *Pricing          `json:"pricing,omitempty"`
	SpecialRequirements    []string          `json:"special_requirements,omitempty"`
	Notes                  string            `json:"notes,omitempty"`
	MaxAppointmentsPerSlot int               `json:"max_appointments_per_slot"`
}

// createParams is the validated, parsed form of a creation request.
type createParams struct {
	date          time.Time
	start         TimeOfDay
	end           TimeOfDay
	loc           *time.Location
	recurrenceEnd time.Time
	req           CreateAvailabilityRequest
}

// applyCreateDefaults fills the documented defaults for zero-valued fields.
func applyCreateDefaults(req *CreateAvailabilityRequest) {
	if req.SlotDuration == 0 {
		req.SlotDuration = 30
	}
	if req.MaxAppointmentsPerSlot == 0 {
		req.MaxAppointmentsPerSlot = 1
	}
	if req.AppointmentType == "" {
		req.AppointmentType = TypeConsultation
	}
	if req.Pricing != nil && req.Pricing.Currency == "" {
		req.Pricing.Currency = "USD"
	}
}

// validateCreate checks every field and returns all violations at once.
func validateCreate(req CreateAvailabilityRequest) (*createParams, error) {
	applyCreateDefaults(&req)

	verr := &ValidationError{}
	p := &createParams{req: req}

	var err error
	if p.date, err = ParseDate(req.Date); err != nil {
		verr.add("date", "must be a valid date in YYYY-MM-DD format")
	}

	startOK, endOK := true, true
	if p.start, err = ParseTimeOfDay(req.StartTime); err != nil {
		verr.add("start_time", "must be a valid time in HH:MM format")
		startOK = false
	}
	if p.end, err = ParseTimeOfDay(req.EndTime); err != nil {
		verr.add("end_time", "must be a valid time in HH:MM format")
		endOK = false
	}
	if startOK && endOK {
		switch ValidateRange(p.start, p.end, minWindowMinutes, maxWindowHours) {
		case ErrInvalidRange:
			verr.add("end_time", "must be after start time")
		case ErrRangeTooShort:
			verr.add("end_time", fmt.Sprintf("window must be at least %d minutes", minWindowMinutes))
		case ErrRangeTooLong:
			verr.add("end_time", fmt.Sprintf("window must not exceed %d hours", maxWindowHours))
		}
	}

	if p.loc, err = time.LoadLocation(req.Timezone); err != nil || req.Timezone == "" {
		verr.add("timezone", "must be a valid IANA timezone name")
	}

	if req.SlotDuration < minSlotDuration || req.SlotDuration > maxSlotDuration {
		verr.add("slot_duration", fmt.Sprintf("must be between %d and %d minutes", minSlotDuration, maxSlotDuration))
	}
	if req.BreakDuration < 0 || req.BreakDuration > maxBreak {
		verr.add("break_duration", fmt.Sprintf("must be between 0 and %d minutes", maxBreak))
	}
	if req.MaxAppointmentsPerSlot < 1 || req.MaxAppointmentsPerSlot > maxPerSlot {
		verr.add("max_appointments_per_slot", fmt.Sprintf("must be between 1 and %d", maxPerSlot))
	}

	switch req.AppointmentType {
	case TypeConsultation, TypeFollowUp, TypeEmergency, TypeTelemedicine:
	default:
		verr.add("appointment_type", "must be one of consultation, follow_up, emergency, telemedicine")
	}

	if req.IsRecurring {
		switch req.RecurrencePattern {
		case RecurDaily, RecurWeekly, RecurMonthly:
		case "":
			verr.add("recurrence_pattern", "is required for recurring availability")
		default:
			verr.add("recurrence_pattern", "must be one of daily, weekly, monthly")
		}
		if req.RecurrenceEndDate == "" {
			verr.add("recurrence_end_date", "is required for recurring availability")
		} else if p.recurrenceEnd, err = ParseDate(req.RecurrenceEndDate); err != nil {
			verr.add("recurrence_end_date", "must be a valid date in YYYY-MM-DD format")
		} else if !p.date.IsZero() && !p.recurrenceEnd.After(p.date) {
			verr.add("recurrence_end_date", "must be after the start date")
		}
	} else {
		if req.RecurrencePattern != "" {
			verr.add("recurrence_pattern", "must not be set for non-recurring availability")
		}
		if req.RecurrenceEndDate != "" {
			verr.add("recurrence_end_date", "must not be set for non-recurring availability")
		}
	}

	if req.Location != nil {
		switch req.Location.Type {
		case LocationClinic, LocationHospital, LocationHomeVisit:
			if req.Location.Address == "" {
				verr.add("location.address", "is required for physical locations")
			}
		case LocationTelemedicine:
		default:
			verr.add("location.type", "must be one of clinic, hospital, telemedicine, home_visit")
		}
	}
	if req.Pricing != nil && req.Pricing.BaseFee < 0 {
		verr.add("pricing.base_fee", "must not be negative")
	}
	if len(req.Notes) > maxNotesLen {
		verr.add("notes", fmt.Sprintf("must not exceed %d characters", maxNotesLen))
	}

	if !verr.empty() {
		return nil, verr
	}
	return p, nil
}
