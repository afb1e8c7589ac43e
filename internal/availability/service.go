package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/healthfirst/scheduling/internal/metrics"
	redisclient "github.com/healthfirst/scheduling/internal/redis"
)

const (
	EventAvailabilityCreated = "AVAILABILITY_CREATED"
	EventSlotUpdated         = "SLOT_UPDATED"
	EventSlotDeleted         = "SLOT_DELETED"
	EventSlotBooked          = "SLOT_BOOKED"
	EventSeriesDeleted       = "SERIES_DELETED"
)

var (
	ErrScheduleBusy = errors.New("provider schedule is being modified, please retry")
)

// ProviderDirectory resolves provider ids to profile data for search results.
// Implemented outside this package; the engine tolerates a nil directory.
type ProviderDirectory interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*ProviderProfile, error)
}

// Engine orchestrates availability creation, slot generation, conflict
// detection and the range/search queries. All state lives behind Storage;
// one engine call is one logical unit of work.
type Engine struct {
	store     Storage
	locker    redisclient.Locker
	directory ProviderDirectory
	metrics   *metrics.SchedulingMetrics
}

func NewEngine(store Storage, locker redisclient.Locker, directory ProviderDirectory, m *metrics.SchedulingMetrics) *Engine {
	return &Engine{
		store:     store,
		locker:    locker,
		directory: directory,
		metrics:   m,
	}
}

// CreateAvailability validates the request, checks for overlapping windows,
// and creates one availability window plus its generated slots per target
// date. Single creation is all-or-nothing; recurring creation is best-effort
// per date, skipping dates that conflict.
//
// The conflict check and the inserts for one date run under a per
// (provider, day) schedule lock so concurrent creations cannot both pass the
// check before either commits.
func (e *Engine) CreateAvailability(ctx context.Context, providerID uuid.UUID, req CreateAvailabilityRequest) (*CreateResult, error) {
	p, err := validateCreate(req)
	if err != nil {
		return nil, err
	}

	dates := []time.Time{p.date}
	rangeEnd := p.date
	if p.req.IsRecurring {
		dates, err = ExpandDates(p.date, p.recurrenceEnd, p.req.RecurrencePattern)
		if err != nil {
			return nil, fmt.Errorf("expand recurrence: %w", err)
		}
		rangeEnd = p.recurrenceEnd
	}

	seriesID := uuid.New()
	var (
		firstWindowID uuid.UUID
		totalSlots    int
		skipped       int
	)

	for i, date := range dates {
		windowID, slots, err := e.createWindowForDate(ctx, providerID, seriesID, p, date)
		if err != nil {
			if errors.Is(err, redisclient.ErrLockNotAcquired) {
				err = ErrScheduleBusy
			}
			// The base date is all-or-nothing; later dates are skipped.
			if i == 0 {
				var cerr *ConflictError
				if errors.As(err, &cerr) {
					e.metrics.ObserveConflictRejected()
				}
				return nil, err
			}
			log.Printf("skipping recurring availability provider=%s date=%s: %v",
				providerID, date.Format("2006-01-02"), err)
			e.metrics.ObserveRecurringSkip()
			skipped++
			continue
		}
		if firstWindowID == uuid.Nil {
			firstWindowID = windowID
		}
		totalSlots += slots
		e.metrics.ObserveWindowCreated(slots)
	}

	result := &CreateResult{
		AvailabilityID: firstWindowID,
		SlotsCreated:   totalSlots,
		DateRange: DateRange{
			Start: p.date.Format("2006-01-02"),
			End:   rangeEnd.Format("2006-01-02"),
		},
		TotalAppointmentsAvailable: totalSlots * p.req.MaxAppointmentsPerSlot,
		DatesSkipped:               skipped,
	}

	e.logEvent(ctx, EventAvailabilityCreated, &firstWindowID, map[string]any{
		"provider_id":   providerID.String(),
		"series_id":     seriesID.String(),
		"slots_created": totalSlots,
		"is_recurring":  p.req.IsRecurring,
	})

	return result, nil
}

func (e *Engine) createWindowForDate(ctx context.Context, providerID, seriesID uuid.UUID, p *createParams, date time.Time) (uuid.UUID, int, error) {
	var (
		windowID  uuid.UUID
		slotCount int
	)

	err := e.locker.WithScheduleLock(ctx, providerID, date, func(lockCtx context.Context) error {
		conflicts, err := e.store.FindOverlappingWindows(lockCtx, providerID, date, p.start, p.end, nil)
		if err != nil {
			return fmt.Errorf("check conflicts: %w", err)
		}
		if len(conflicts) > 0 {
			return &ConflictError{Conflicts: conflicts}
		}

		w := &AvailabilityWindow{
			ProviderID:             providerID,
			SeriesID:               seriesID,
			Date:                   date,
			StartTime:              p.start,
			EndTime:                p.end,
			Timezone:               p.req.Timezone,
			SlotDuration:           p.req.SlotDuration,
			BreakDuration:          p.req.BreakDuration,
			IsRecurring:            p.req.IsRecurring,
			RecurrencePattern:      p.req.RecurrencePattern,
			AppointmentType:        p.req.AppointmentType,
			Location:               p.req.Location,
			Pricing:                p.req.Pricing,
			MaxAppointmentsPerSlot: p.req.MaxAppointmentsPerSlot,
			SpecialRequirements:    p.req.SpecialRequirements,
			Notes:                  p.req.Notes,
			Status:                 SlotAvailable,
		}
		if p.req.IsRecurring {
			end := p.recurrenceEnd
			w.RecurrenceEndDate = &end
		}

		id, err := e.store.InsertWindow(lockCtx, w)
		if err != nil {
			return fmt.Errorf("insert window: %w", err)
		}
		w.ID = id

		for _, slot := range BuildSlots(w, p.loc) {
			if _, err := e.store.InsertSlot(lockCtx, &slot); err != nil {
				return fmt.Errorf("insert slot: %w", err)
			}
			slotCount++
		}
		windowID = id
		return nil
	})

	return windowID, slotCount, err
}

// GetProviderAvailability aggregates a provider's slots in [startDate,
// endDate] into summary counts and a per-day listing sorted ascending.
func (e *Engine) GetProviderAvailability(ctx context.Context, providerID uuid.UUID, startDate, endDate time.Time, f WindowFilter) (*ProviderAvailability, error) {
	windows, err := e.store.FindWindows(ctx, providerID, DateOnly(startDate), DateOnly(endDate), f)
	if err != nil {
		return nil, fmt.Errorf("find windows: %w", err)
	}

	result := &ProviderAvailability{ProviderID: providerID, Daily: []DailyAvailability{}}
	if len(windows) == 0 {
		return result, nil
	}

	byID := make(map[uuid.UUID]*AvailabilityWindow, len(windows))
	ids := make([]uuid.UUID, 0, len(windows))
	for i := range windows {
		byID[windows[i].ID] = &windows[i]
		ids = append(ids, windows[i].ID)
	}

	slots, err := e.store.FindSlotsByWindows(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find slots: %w", err)
	}

	daily := map[string][]SlotView{}
	for _, slot := range slots {
		w := byID[slot.AvailabilityID]
		if w == nil {
			continue
		}
		loc := loadLocationOrUTC(w.Timezone)
		day := slot.SlotStart.In(loc).Format("2006-01-02")
		daily[day] = append(daily[day], slotView(&slot, w, loc, false))

		result.Summary.TotalSlots++
		switch slot.Status {
		case SlotAvailable:
			result.Summary.AvailableSlots++
		case SlotBooked:
			result.Summary.BookedSlots++
		case SlotCancelled:
			result.Summary.CancelledSlots++
		}
	}

	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)
	for _, d := range days {
		result.Daily = append(result.Daily, DailyAvailability{Date: d, Slots: daily[d]})
	}

	return result, nil
}

// GetAvailabilitySummary derives per-range statistics (average slots per
// day, booking rate) from the provider's availability.
func (e *Engine) GetAvailabilitySummary(ctx context.Context, providerID uuid.UUID, startDate, endDate time.Time) (*SummaryStats, error) {
	pa, err := e.GetProviderAvailability(ctx, providerID, startDate, endDate, WindowFilter{})
	if err != nil {
		return nil, err
	}

	totalDays := int(DateOnly(endDate).Sub(DateOnly(startDate)).Hours()/24) + 1
	stats := &SummaryStats{
		ProviderID: providerID,
		DateRange: SummaryRange{
			Start:     DateOnly(startDate).Format("2006-01-02"),
			End:       DateOnly(endDate).Format("2006-01-02"),
			TotalDays: totalDays,
		},
		Summary: pa.Summary,
	}
	if totalDays > 0 {
		stats.Metrics.AvgSlotsPerDay = round2(float64(pa.Summary.TotalSlots) / float64(totalDays))
	}
	if pa.Summary.TotalSlots > 0 {
		rate := round2(float64(pa.Summary.BookedSlots) / float64(pa.Summary.TotalSlots) * 100)
		stats.Metrics.BookingRatePercentage = rate
		stats.Metrics.UtilizationRate = rate
	}
	return stats, nil
}

// SearchCriteria filters the cross-provider slot search. Either Date or the
// StartDate/EndDate pair bounds the range; nil fields are not applied.
type SearchCriteria struct {
	Date              *time.Time
	StartDate         *time.Time
	EndDate           *time.Time
	AppointmentType   AppointmentType
	InsuranceAccepted *bool
	MaxPrice          *float64
	AvailableOnly     bool
}

// SearchAvailableSlots finds bookable slots matching the criteria, grouped
// by provider.
func (e *Engine) SearchAvailableSlots(ctx context.Context, c SearchCriteria) (*SearchResult, error) {
	q := SlotQuery{
		AppointmentType: c.AppointmentType,
		AvailableOnly:   c.AvailableOnly,
	}
	if c.Date != nil {
		from := DateOnly(*c.Date)
		to := from.AddDate(0, 0, 1)
		q.From, q.To = &from, &to
	} else {
		if c.StartDate != nil {
			from := DateOnly(*c.StartDate)
			q.From = &from
		}
		if c.EndDate != nil {
			to := DateOnly(*c.EndDate).AddDate(0, 0, 1)
			q.To = &to
		}
	}

	rows, err := e.store.FindAvailableSlots(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search slots: %w", err)
	}

	grouped := map[uuid.UUID][]SlotView{}
	order := []uuid.UUID{}
	for i := range rows {
		w := &rows[i].Window
		if c.InsuranceAccepted != nil {
			if w.Pricing == nil || w.Pricing.InsuranceAccepted != *c.InsuranceAccepted {
				continue
			}
		}
		if c.MaxPrice != nil {
			if w.Pricing == nil || w.Pricing.BaseFee > *c.MaxPrice {
				continue
			}
		}
		loc := loadLocationOrUTC(w.Timezone)
		if _, seen := grouped[w.ProviderID]; !seen {
			order = append(order, w.ProviderID)
		}
		grouped[w.ProviderID] = append(grouped[w.ProviderID], slotView(&rows[i].Slot, w, loc, true))
	}

	result := &SearchResult{
		SearchCriteria: searchCriteriaEcho(c),
		TotalResults:   len(order),
		Results:        []ProviderResult{},
	}
	for _, pid := range order {
		result.Results = append(result.Results, ProviderResult{
			Provider:       e.providerProfile(ctx, pid),
			AvailableSlots: grouped[pid],
		})
	}
	return result, nil
}

// SlotPatch is a partial update of a slot. Time and status changes apply to
// the slot itself; notes, pricing and special requirements apply to the
// owning window.
type SlotPatch struct {
	StartTime           *string    `json:"start_time,omitempty"`
	EndTime             *string    `json:"end_time,omitempty"`
	Status              *SlotStatus `json:"status,omitempty"`
	Notes               *string    `json:"notes,omitempty"`
	Pricing             *Pricing   `json:"pricing,omitempty"`
	SpecialRequirements []string   `json:"special_requirements,omitempty"`
}

// UpdateSlot applies a partial update to one slot.
func (e *Engine) UpdateSlot(ctx context.Context, slotID uuid.UUID, patch SlotPatch) error {
	slot, err := e.store.GetSlotByID(ctx, slotID)
	if err != nil {
		return err
	}
	w, err := e.store.GetWindowByID(ctx, slot.AvailabilityID)
	if err != nil {
		return fmt.Errorf("load owning window: %w", err)
	}
	loc := loadLocationOrUTC(w.Timezone)

	verr := &ValidationError{}
	upd := SlotUpdate{}

	// Missing endpoints fall back to the slot's current local times so a
	// one-sided time patch still validates as a range.
	newStart := TimeOfDay(slot.SlotStart.In(loc).Hour()*60 + slot.SlotStart.In(loc).Minute())
	newEnd := TimeOfDay(slot.SlotEnd.In(loc).Hour()*60 + slot.SlotEnd.In(loc).Minute())
	timesPatched := false

	if patch.StartTime != nil {
		if t, perr := ParseTimeOfDay(*patch.StartTime); perr != nil {
			verr.add("start_time", "must be a valid time in HH:MM format")
		} else {
			newStart = t
			timesPatched = true
		}
	}
	if patch.EndTime != nil {
		if t, perr := ParseTimeOfDay(*patch.EndTime); perr != nil {
			verr.add("end_time", "must be a valid time in HH:MM format")
		} else {
			newEnd = t
			timesPatched = true
		}
	}
	if timesPatched && verr.empty() {
		if newEnd <= newStart {
			verr.add("end_time", "must be after start time")
		} else {
			start := CombineLocal(w.Date, newStart, loc)
			end := CombineLocal(w.Date, newEnd, loc)
			upd.SlotStart, upd.SlotEnd = &start, &end
		}
	}

	if patch.Status != nil {
		switch *patch.Status {
		case SlotAvailable, SlotBooked, SlotCancelled, SlotBlocked, SlotMaintenance:
			upd.Status = patch.Status
		default:
			verr.add("status", "is not a valid slot status")
		}
	}
	if !verr.empty() {
		return verr
	}

	if upd.SlotStart != nil || upd.Status != nil {
		if err := e.store.UpdateSlot(ctx, slotID, upd); err != nil {
			return err
		}
	}
	if patch.Notes != nil || patch.Pricing != nil || patch.SpecialRequirements != nil {
		wu := WindowDetailsUpdate{
			Notes:               patch.Notes,
			Pricing:             patch.Pricing,
			SpecialRequirements: patch.SpecialRequirements,
		}
		if err := e.store.UpdateWindowDetails(ctx, slot.AvailabilityID, wu); err != nil {
			return fmt.Errorf("update window details: %w", err)
		}
	}

	e.logEvent(ctx, EventSlotUpdated, &slot.AvailabilityID, map[string]any{
		"slot_id": slotID.String(),
	})
	return nil
}

// BulkUpdateSlots applies one patch to many slots, best-effort. Failures are
// reported per slot id, never aborting the batch.
func (e *Engine) BulkUpdateSlots(ctx context.Context, slotIDs []uuid.UUID, patch SlotPatch) (*BulkUpdateResult, error) {
	result := &BulkUpdateResult{TotalSlots: len(slotIDs), FailedSlots: []uuid.UUID{}}
	for _, id := range slotIDs {
		if err := e.UpdateSlot(ctx, id, patch); err != nil {
			log.Printf("bulk update failed slot=%s: %v", id, err)
			result.FailedSlots = append(result.FailedSlots, id)
			continue
		}
		result.UpdatedSlots++
	}
	return result, nil
}

// DeleteSlot removes one slot or, with deleteRecurring, every slot belonging
// to the slot's availability window.
func (e *Engine) DeleteSlot(ctx context.Context, slotID uuid.UUID, deleteRecurring bool, reason string) (*DeleteResult, error) {
	slot, err := e.store.GetSlotByID(ctx, slotID)
	if err != nil {
		return nil, err
	}

	var deleted int64
	if deleteRecurring {
		deleted, err = e.store.DeleteSlotsByWindow(ctx, slot.AvailabilityID)
		if err != nil {
			return nil, fmt.Errorf("delete slots by window: %w", err)
		}
	} else {
		if err := e.store.DeleteSlot(ctx, slotID); err != nil {
			return nil, err
		}
		deleted = 1
	}

	e.logEvent(ctx, EventSlotDeleted, &slot.AvailabilityID, map[string]any{
		"slot_id":          slotID.String(),
		"delete_recurring": deleteRecurring,
		"reason":           reason,
	})
	return &DeleteResult{SlotsDeleted: deleted}, nil
}

// DeleteSeries removes every window and slot created by one recurring
// creation call.
func (e *Engine) DeleteSeries(ctx context.Context, seriesID uuid.UUID, reason string) (*SeriesDeleteResult, error) {
	windows, slots, err := e.store.DeleteSeries(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("delete series: %w", err)
	}
	if windows == 0 {
		return nil, ErrWindowNotFound
	}

	e.logEvent(ctx, EventSeriesDeleted, nil, map[string]any{
		"series_id":       seriesID.String(),
		"windows_deleted": windows,
		"slots_deleted":   slots,
		"reason":          reason,
	})
	return &SeriesDeleteResult{WindowsDeleted: windows, SlotsDeleted: slots}, nil
}

// BookSlot reserves an available slot for a patient under a freshly issued
// booking reference. The available-to-booked transition is a compare-and-set
// in storage, so concurrent bookings of the same slot cannot both succeed.
func (e *Engine) BookSlot(ctx context.Context, slotID, patientID uuid.UUID) (*BookingResult, error) {
	ref := newBookingReference()

	ok, err := e.store.BookSlot(ctx, slotID, patientID, ref)
	if err != nil {
		e.metrics.ObserveBooking("error")
		return nil, fmt.Errorf("book slot: %w", err)
	}
	if !ok {
		if _, gerr := e.store.GetSlotByID(ctx, slotID); gerr != nil {
			e.metrics.ObserveBooking("not_found")
			return nil, gerr
		}
		e.metrics.ObserveBooking("unavailable")
		return nil, ErrSlotNotAvailable
	}

	e.metrics.ObserveBooking("booked")
	e.logEvent(ctx, EventSlotBooked, nil, map[string]any{
		"slot_id":           slotID.String(),
		"patient_id":        patientID.String(),
		"booking_reference": ref,
	})
	return &BookingResult{SlotID: slotID, PatientID: patientID, BookingReference: ref}, nil
}

// CheckConflicts scans a provider's generated slots in a range for pairwise
// overlaps, reporting each overlapping pair once.
func (e *Engine) CheckConflicts(ctx context.Context, providerID uuid.UUID, startDate, endDate time.Time) (*ConflictReport, error) {
	pa, err := e.GetProviderAvailability(ctx, providerID, startDate, endDate, WindowFilter{})
	if err != nil {
		return nil, err
	}

	report := &ConflictReport{
		ProviderID: providerID,
		DateRange: DateRange{
			Start: DateOnly(startDate).Format("2006-01-02"),
			End:   DateOnly(endDate).Format("2006-01-02"),
		},
		Conflicts: []ConflictPair{},
	}

	for _, day := range pa.Daily {
		report.TotalSlotsAnalyzed += len(day.Slots)
		for i := 0; i < len(day.Slots); i++ {
			for j := i + 1; j < len(day.Slots); j++ {
				a, b := day.Slots[i], day.Slots[j]
				if a.StartTime < b.EndTime && a.EndTime > b.StartTime {
					report.Conflicts = append(report.Conflicts, ConflictPair{
						Date:  day.Date,
						SlotA: SlotRef{SlotID: a.SlotID, StartTime: a.StartTime, EndTime: a.EndTime},
						SlotB: SlotRef{SlotID: b.SlotID, StartTime: b.StartTime, EndTime: b.EndTime},
						Type:  "overlap",
					})
				}
			}
		}
	}
	report.ConflictsFound = len(report.Conflicts)
	return report, nil
}

// Helpers

func (e *Engine) providerProfile(ctx context.Context, id uuid.UUID) ProviderProfile {
	if e.directory != nil {
		if p, err := e.directory.GetProfile(ctx, id); err == nil && p != nil {
			return *p
		}
	}
	return ProviderProfile{ID: id}
}

func (e *Engine) logEvent(ctx context.Context, eventType string, windowID *uuid.UUID, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	ev := EventLog{
		EventType: eventType,
		WindowID:  windowID,
		Payload:   data,
		CreatedAt: time.Now(),
	}
	if err := e.store.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s: %v", eventType, err)
	}
}

func slotView(s *AppointmentSlot, w *AvailabilityWindow, loc *time.Location, withDate bool) SlotView {
	v := SlotView{
		SlotID:              s.ID,
		StartTime:           s.SlotStart.In(loc).Format("15:04"),
		EndTime:             s.SlotEnd.In(loc).Format("15:04"),
		Status:              s.Status,
		AppointmentType:     s.AppointmentType,
		Location:            w.Location,
		Pricing:             w.Pricing,
		SpecialRequirements: w.SpecialRequirements,
	}
	if withDate {
		v.Date = s.SlotStart.In(loc).Format("2006-01-02")
	}
	return v
}

func searchCriteriaEcho(c SearchCriteria) map[string]any {
	echo := map[string]any{}
	if c.Date != nil {
		echo["date"] = c.Date.Format("2006-01-02")
	} else if c.StartDate != nil && c.EndDate != nil {
		echo["date_range"] = map[string]string{
			"start": c.StartDate.Format("2006-01-02"),
			"end":   c.EndDate.Format("2006-01-02"),
		}
	}
	if c.AppointmentType != "" {
		echo["appointment_type"] = string(c.AppointmentType)
	}
	if c.InsuranceAccepted != nil {
		echo["insurance_accepted"] = *c.InsuranceAccepted
	}
	if c.MaxPrice != nil {
		echo["max_price"] = *c.MaxPrice
	}
	return echo
}

func newBookingReference() string {
	return "BK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

func loadLocationOrUTC(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
