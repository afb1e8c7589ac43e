package availability

import (
	"time"

	"github.com/google/uuid"
)

type RecurrencePattern string

const (
	RecurDaily   RecurrencePattern = "daily"
	RecurWeekly  RecurrencePattern = "weekly"
	RecurMonthly RecurrencePattern = "monthly"
)

type SlotStatus string

const (
	SlotAvailable   SlotStatus = "available"
	SlotBooked      SlotStatus = "booked"
	SlotCancelled   SlotStatus = "cancelled"
	SlotBlocked     SlotStatus = "blocked"
	SlotMaintenance SlotStatus = "maintenance"
)

type AppointmentType string

const (
	TypeConsultation AppointmentType = "consultation"
	TypeFollowUp     AppointmentType = "follow_up"
	TypeEmergency    AppointmentType = "emergency"
	TypeTelemedicine AppointmentType = "telemedicine"
)

type LocationType string

const (
	LocationClinic       LocationType = "clinic"
	LocationHospital     LocationType = "hospital"
	LocationTelemedicine LocationType = "telemedicine"
	LocationHomeVisit    LocationType = "home_visit"
)

type Location struct {
	Type       LocationType `json:"type"`
	Address    string       `json:"address,omitempty"`
	RoomNumber string       `json:"room_number,omitempty"`
}

type Pricing struct {
	BaseFee           float64 `json:"base_fee"`
	InsuranceAccepted bool    `json:"insurance_accepted"`
	Currency          string  `json:"currency"`
}

// AvailabilityWindow is one provider-declared block of time on one calendar
// date. Start and end times are local to Timezone. A recurring creation call
// produces one window per matching date, all sharing a SeriesID.
type AvailabilityWindow struct {
	ID                     uuid.UUID
	ProviderID             uuid.UUID
	SeriesID               uuid.UUID
	Date                   time.Time // calendar date, normalized to midnight UTC
	StartTime              TimeOfDay
	EndTime                TimeOfDay
	Timezone               string // IANA zone name
	SlotDuration           int    // minutes
	BreakDuration          int    // minutes
	IsRecurring            bool
	RecurrencePattern      RecurrencePattern // empty unless IsRecurring
	RecurrenceEndDate      *time.Time
	AppointmentType        AppointmentType
	Location               *Location
	Pricing                *Pricing
	MaxAppointmentsPerSlot int
	SpecialRequirements    []string
	Notes                  string
	Status                 SlotStatus
	CreatedAt              time.Time
	UpdatedAt              time.Time
}

// AppointmentSlot is one bookable unit derived from an AvailabilityWindow.
// SlotStart/SlotEnd are absolute instants computed from the window's date,
// local times and timezone.
type AppointmentSlot struct {
	ID               uuid.UUID
	AvailabilityID   uuid.UUID
	ProviderID       uuid.UUID
	SlotStart        time.Time
	SlotEnd          time.Time
	Status           SlotStatus
	AppointmentType  AppointmentType
	PatientID        *uuid.UUID
	BookingReference *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type EventLog struct {
	ID        int64
	EventType string
	WindowID  *uuid.UUID
	Payload   []byte
	CreatedAt time.Time
}
