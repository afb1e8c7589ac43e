package availability

import "github.com/google/uuid"

// CreateResult is returned from a creation call, single or recurring.
type CreateResult struct {
	AvailabilityID              uuid.UUID `json:"availability_id"`
	SlotsCreated                int       `json:"slots_created"`
	DateRange                   DateRange `json:"date_range"`
	TotalAppointmentsAvailable  int       `json:"total_appointments_available"`
	DatesSkipped                int       `json:"dates_skipped,omitempty"`
}

type DateRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// SlotView is the transport-independent rendering of one slot, with the
// owning window's location and pricing attached.
type SlotView struct {
	SlotID              uuid.UUID  `json:"slot_id"`
	Date                string     `json:"date,omitempty"`
	StartTime           string     `json:"start_time"`
	EndTime             string     `json:"end_time"`
	Status              SlotStatus `json:"status"`
	AppointmentType     AppointmentType `json:"appointment_type"`
	Location            *Location  `json:"location,omitempty"`
	Pricing             *Pricing   `json:"pricing,omitempty"`
	SpecialRequirements []string   `json:"special_requirements,omitempty"`
}

type DailyAvailability struct {
	Date  string     `json:"date"`
	Slots []SlotView `json:"slots"`
}

type Summary struct {
	TotalSlots     int `json:"total_slots"`
	AvailableSlots int `json:"available_slots"`
	BookedSlots    int `json:"booked_slots"`
	CancelledSlots int `json:"cancelled_slots"`
}

// ProviderAvailability is the range-query result: aggregate counts plus a
// per-day slot listing sorted ascending by date.
type ProviderAvailability struct {
	ProviderID uuid.UUID           `json:"provider_id"`
	Summary    Summary             `json:"availability_summary"`
	Daily      []DailyAvailability `json:"availability"`
}

// SummaryStats augments the aggregate counts with derived metrics for the
// summary endpoint.
type SummaryStats struct {
	ProviderID uuid.UUID      `json:"provider_id"`
	DateRange  SummaryRange   `json:"date_range"`
	Summary    Summary        `json:"summary"`
	Metrics    SummaryMetrics `json:"metrics"`
}

type SummaryRange struct {
	Start     string `json:"start"`
	End       string `json:"end"`
	TotalDays int    `json:"total_days"`
}

type SummaryMetrics struct {
	AvgSlotsPerDay        float64 `json:"avg_slots_per_day"`
	BookingRatePercentage float64 `json:"booking_rate_percentage"`
	UtilizationRate       float64 `json:"utilization_rate"`
}

// ProviderProfile is the directory entry attached to search results.
type ProviderProfile struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Specialization    string    `json:"specialization,omitempty"`
	YearsOfExperience int       `json:"years_of_experience,omitempty"`
	ClinicAddress     string    `json:"clinic_address,omitempty"`
}

type ProviderResult struct {
	Provider       ProviderProfile `json:"provider"`
	AvailableSlots []SlotView      `json:"available_slots"`
}

// SearchResult echoes the effective criteria alongside per-provider groups.
type SearchResult struct {
	SearchCriteria map[string]any   `json:"search_criteria"`
	TotalResults   int              `json:"total_results"`
	Results        []ProviderResult `json:"results"`
}

// BulkUpdateResult reports a best-effort multi-slot patch.
type BulkUpdateResult struct {
	TotalSlots   int         `json:"total_slots"`
	UpdatedSlots int         `json:"updated_slots"`
	FailedSlots  []uuid.UUID `json:"failed_slots"`
}

// DeleteResult reports how many slots one deletion removed.
type DeleteResult struct {
	SlotsDeleted int64 `json:"slots_deleted"`
}

// SeriesDeleteResult reports a whole-series deletion.
type SeriesDeleteResult struct {
	WindowsDeleted int64 `json:"windows_deleted"`
	SlotsDeleted   int64 `json:"slots_deleted"`
}

// ConflictPair is one overlapping slot pair found by the conflict report.
type ConflictPair struct {
	Date  string    `json:"date"`
	SlotA SlotRef   `json:"slot_a"`
	SlotB SlotRef   `json:"slot_b"`
	Type  string    `json:"type"`
}

type SlotRef struct {
	SlotID    uuid.UUID `json:"slot_id"`
	StartTime string    `json:"start_time"`
	EndTime   string    `json:"end_time"`
}

// ConflictReport is the result of scanning a provider's generated slots for
// overlaps within a date range.
type ConflictReport struct {
	ProviderID         uuid.UUID      `json:"provider_id"`
	DateRange          DateRange      `json:"date_range"`
	TotalSlotsAnalyzed int            `json:"total_slots_analyzed"`
	ConflictsFound     int            `json:"conflicts_found"`
	Conflicts          []ConflictPair `json:"conflicts"`
}

// BookingResult is returned when a slot is booked for a patient.
type BookingResult struct {
	SlotID           uuid.UUID `json:"slot_id"`
	PatientID        uuid.UUID `json:"patient_id"`
	BookingReference string    `json:"booking_reference"`
}
