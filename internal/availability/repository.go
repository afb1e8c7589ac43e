package availability

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrWindowNotFound   = errors.New("availability window not found")
	ErrSlotNotFound     = errors.New("appointment slot not found")
	ErrSlotNotAvailable = errors.New("slot is not available for booking")
)

// WindowFilter narrows FindWindows results. Zero values mean "no filter".
type WindowFilter struct {
	Status          SlotStatus
	AppointmentType AppointmentType
}

// SlotQuery selects bookable slots for search. Instant bounds are inclusive
// on From and exclusive on To.
type SlotQuery struct {
	From            *time.Time
	To              *time.Time
	AppointmentType AppointmentType
	AvailableOnly   bool
}

// SlotWithWindow pairs a slot with its owning window so callers can apply
// window-level attributes (pricing, location) without a second lookup.
type SlotWithWindow struct {
	Slot   AppointmentSlot
	Window AvailabilityWindow
}

// SlotUpdate is a partial update of a slot's own columns. Nil fields are
// left untouched.
type SlotUpdate struct {
	SlotStart *time.Time
	SlotEnd   *time.Time
	Status    *SlotStatus
}

// WindowDetailsUpdate is a partial update of window-level metadata. Nil
// fields are left untouched.
type WindowDetailsUpdate struct {
	Notes               *string
	Pricing             *Pricing
	SpecialRequirements []string
}

// Storage contains all persistence interactions needed by the engine. It is
// implemented by PgStorage; the engine never depends on the backend directly.
type Storage interface {
	InsertWindow(ctx context.Context, w *AvailabilityWindow) (uuid.UUID, error)
	InsertSlot(ctx context.Context, s *AppointmentSlot) (uuid.UUID, error)

	GetWindowByID(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error)
	GetSlotByID(ctx context.Context, id uuid.UUID) (*AppointmentSlot, error)

	FindWindows(ctx context.Context, providerID uuid.UUID, startDate, endDate time.Time, f WindowFilter) ([]AvailabilityWindow, error)
	FindSlotsByWindows(ctx context.Context, windowIDs []uuid.UUID) ([]AppointmentSlot, error)
	FindAvailableSlots(ctx context.Context, q SlotQuery) ([]SlotWithWindow, error)

	// For conflict checks: windows of one provider on one date whose
	// [start, end) range overlaps the candidate's.
	FindOverlappingWindows(ctx context.Context, providerID uuid.UUID, date time.Time, start, end TimeOfDay, excludeWindowID *uuid.UUID) ([]AvailabilityWindow, error)

	UpdateSlot(ctx context.Context, id uuid.UUID, u SlotUpdate) error
	UpdateWindowDetails(ctx context.Context, id uuid.UUID, u WindowDetailsUpdate) error

	DeleteSlot(ctx context.Context, id uuid.UUID) error
	DeleteSlotsByWindow(ctx context.Context, windowID uuid.UUID) (int64, error)
	DeleteSeries(ctx context.Context, seriesID uuid.UUID) (windows int64, slots int64, err error)

	// BookSlot atomically moves an available slot to booked. Returns false
	// when the slot exists but is no longer available.
	BookSlot(ctx context.Context, slotID, patientID uuid.UUID, bookingRef string) (bool, error)

	InsertEvent(ctx context.Context, ev EventLog) error
}
