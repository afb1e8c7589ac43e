package availability

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisclient "github.com/healthfirst/scheduling/internal/redis"
)

// fakeStorage is an in-memory Storage for engine tests.
type fakeStorage struct {
	windows map[uuid.UUID]*AvailabilityWindow
	slots   map[uuid.UUID]*AppointmentSlot
	events  []EventLog

	insertWindowErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{
		windows: map[uuid.UUID]*AvailabilityWindow{},
		slots:   map[uuid.UUID]*AppointmentSlot{},
	}
}

func (f *fakeStorage) InsertWindow(_ context.Context, w *AvailabilityWindow) (uuid.UUID, error) {
	if f.insertWindowErr != nil {
		return uuid.Nil, f.insertWindowErr
	}
	id := uuid.New()
	cp := *w
	cp.ID = id
	f.windows[id] = &cp
	return id, nil
}

func (f *fakeStorage) InsertSlot(_ context.Context, s *AppointmentSlot) (uuid.UUID, error) {
	id := s.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	cp := *s
	cp.ID = id
	f.slots[id] = &cp
	return id, nil
}

func (f *fakeStorage) GetWindowByID(_ context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	w, ok := f.windows[id]
	if !ok {
		return nil, ErrWindowNotFound
	}
	cp := *w
	return &cp, nil
}

func (f *fakeStorage) GetSlotByID(_ context.Context, id uuid.UUID) (*AppointmentSlot, error) {
	s, ok := f.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeStorage) FindWindows(_ context.Context, providerID uuid.UUID, startDate, endDate time.Time, filter WindowFilter) ([]AvailabilityWindow, error) {
	var out []AvailabilityWindow
	for _, w := range f.windows {
		if w.ProviderID != providerID || w.Date.Before(startDate) || w.Date.After(endDate) {
			continue
		}
		if filter.Status != "" && w.Status != filter.Status {
			continue
		}
		if filter.AppointmentType != "" && w.AppointmentType != filter.AppointmentType {
			continue
		}
		out = append(out, *w)
	}
	return out, nil
}

func (f *fakeStorage) FindSlotsByWindows(_ context.Context, windowIDs []uuid.UUID) ([]AppointmentSlot, error) {
	want := map[uuid.UUID]bool{}
	for _, id := range windowIDs {
		want[id] = true
	}
	var out []AppointmentSlot
	for _, s := range f.slots {
		if want[s.AvailabilityID] {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (f *fakeStorage) FindAvailableSlots(_ context.Context, q SlotQuery) ([]SlotWithWindow, error) {
	var out []SlotWithWindow
	for _, s := range f.slots {
		if q.AvailableOnly && s.Status != SlotAvailable {
			continue
		}
		if q.From != nil && s.SlotStart.Before(*q.From) {
			continue
		}
		if q.To != nil && !s.SlotStart.Before(*q.To) {
			continue
		}
		if q.AppointmentType != "" && s.AppointmentType != q.AppointmentType {
			continue
		}
		w := f.windows[s.AvailabilityID]
		if w == nil {
			continue
		}
		out = append(out, SlotWithWindow{Slot: *s, Window: *w})
	}
	return out, nil
}

func (f *fakeStorage) FindOverlappingWindows(_ context.Context, providerID uuid.UUID, date time.Time, start, end TimeOfDay, excludeWindowID *uuid.UUID) ([]AvailabilityWindow, error) {
	var out []AvailabilityWindow
	for _, w := range f.windows {
		if w.ProviderID != providerID || !w.Date.Equal(date) {
			continue
		}
		if excludeWindowID != nil && w.ID == *excludeWindowID {
			continue
		}
		if w.StartTime < end && w.EndTime > start {
			out = append(out, *w)
		}
	}
	return out, nil
}

func (f *fakeStorage) UpdateSlot(_ context.Context, id uuid.UUID, u SlotUpdate) error {
	s, ok := f.slots[id]
	if !ok {
		return ErrSlotNotFound
	}
	if u.SlotStart != nil {
		s.SlotStart = *u.SlotStart
	}
	if u.SlotEnd != nil {
		s.SlotEnd = *u.SlotEnd
	}
	if u.Status != nil {
		s.Status = *u.Status
	}
	return nil
}

func (f *fakeStorage) UpdateWindowDetails(_ context.Context, id uuid.UUID, u WindowDetailsUpdate) error {
	w, ok := f.windows[id]
	if !ok {
		return ErrWindowNotFound
	}
	if u.Notes != nil {
		w.Notes = *u.Notes
	}
	if u.Pricing != nil {
		w.Pricing = u.Pricing
	}
	if u.SpecialRequirements != nil {
		w.SpecialRequirements = u.SpecialRequirements
	}
	return nil
}

func (f *fakeStorage) DeleteSlot(_ context.Context, id uuid.UUID) error {
	if _, ok := f.slots[id]; !ok {
		return ErrSlotNotFound
	}
	delete(f.slots, id)
	return nil
}

func (f *fakeStorage) DeleteSlotsByWindow(_ context.Context, windowID uuid.UUID) (int64, error) {
	var n int64
	for id, s := range f.slots {
		if s.AvailabilityID == windowID {
			delete(f.slots, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStorage) DeleteSeries(_ context.Context, seriesID uuid.UUID) (int64, int64, error) {
	var windows, slots int64
	for id, w := range f.windows {
		if w.SeriesID != seriesID {
			continue
		}
		for sid, s := range f.slots {
			if s.AvailabilityID == id {
				delete(f.slots, sid)
				slots++
			}
		}
		delete(f.windows, id)
		windows++
	}
	return windows, slots, nil
}

func (f *fakeStorage) BookSlot(_ context.Context, slotID, patientID uuid.UUID, bookingRef string) (bool, error) {
	s, ok := f.slots[slotID]
	if !ok || s.Status != SlotAvailable {
		return false, nil
	}
	s.Status = SlotBooked
	s.PatientID = &patientID
	s.BookingReference = &bookingRef
	return true, nil
}

func (f *fakeStorage) InsertEvent(_ context.Context, ev EventLog) error {
	f.events = append(f.events, ev)
	return nil
}

// passLocker runs the callback without any locking.
type passLocker struct{}

func (passLocker) WithScheduleLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// busyLocker always reports the schedule as held elsewhere.
type busyLocker struct{ err error }

func (l busyLocker) WithScheduleLock(context.Context, uuid.UUID, time.Time, func(ctx context.Context) error) error {
	return l.err
}

func newTestEngine(store Storage) *Engine {
	return NewEngine(store, passLocker{}, nil, nil)
}

func TestCreateAvailabilitySingleDay(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)
	providerID := uuid.New()

	req := validCreateRequest() // 2024-02-15, 09:00-17:00, 30min slots
	result, err := engine.CreateAvailability(context.Background(), providerID, req)
	require.NoError(t, err)

	assert.Equal(t, 16, result.SlotsCreated)
	assert.Equal(t, 16, result.TotalAppointmentsAvailable)
	assert.Equal(t, 0, result.DatesSkipped)
	assert.Equal(t, DateRange{Start: "2024-02-15", End: "2024-02-15"}, result.DateRange)
	assert.NotEqual(t, uuid.Nil, result.AvailabilityID)

	require.Len(t, store.windows, 1)
	assert.Len(t, store.slots, 16)

	w := store.windows[result.AvailabilityID]
	require.NotNil(t, w)
	assert.Equal(t, providerID, w.ProviderID)
	assert.False(t, w.IsRecurring)
	assert.Equal(t, TimeOfDay(540), w.StartTime)
	assert.Equal(t, TimeOfDay(1020), w.EndTime)

	require.Len(t, store.events, 1)
	assert.Equal(t, EventAvailabilityCreated, store.events[0].EventType)
}

func TestCreateAvailabilityValidationFailure(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)

	req := validCreateRequest()
	req.EndTime = "08:00"

	_, err := engine.CreateAvailability(context.Background(), uuid.New(), req)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Empty(t, store.windows, "nothing persisted on validation failure")
}

func TestCreateAvailabilityConflict(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)
	providerID := uuid.New()

	first := validCreateRequest()
	first.StartTime, first.EndTime = "09:00", "10:00"
	_, err := engine.CreateAvailability(context.Background(), providerID, first)
	require.NoError(t, err)

	second := validCreateRequest()
	second.StartTime, second.EndTime = "09:30", "10:30"
	_, err = engine.CreateAvailability(context.Background(), providerID, second)

	var cerr *ConflictError
	require.ErrorAs(t, err, &cerr)
	assert.Len(t, cerr.Conflicts, 1)
	assert.Len(t, store.windows, 1, "conflicting window must not be persisted")

	// Touching windows are fine.
	third := validCreateRequest()
	third.StartTime, third.EndTime = "10:00", "11:00"
	_, err = engine.CreateAvailability(context.Background(), providerID, third)
	assert.NoError(t, err)
}

func TestCreateAvailabilityLockBusy(t *testing.T) {
	store := newFakeStorage()
	engine := NewEngine(store, busyLocker{err: redisclient.ErrLockNotAcquired}, nil, nil)

	_, err := engine.CreateAvailability(context.Background(), uuid.New(), validCreateRequest())
	assert.ErrorIs(t, err, ErrScheduleBusy)
	assert.Empty(t, store.windows)
}

func TestCreateAvailabilityRecurring(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)
	providerID := uuid.New()

	req := validCreateRequest()
	req.StartTime, req.EndTime = "09:00", "11:00"
	req.IsRecurring = true
	req.RecurrencePattern = RecurWeekly
	req.RecurrenceEndDate = "2024-03-07" // 4 Thursdays from 2024-02-15

	result, err := engine.CreateAvailability(context.Background(), providerID, req)
	require.NoError(t, err)

	assert.Equal(t, 16, result.SlotsCreated) // 4 slots x 4 dates
	assert.Equal(t, 0, result.DatesSkipped)
	assert.Len(t, store.windows, 4)

	var seriesID uuid.UUID
	for _, w := range store.windows {
		assert.True(t, w.IsRecurring)
		assert.Equal(t, RecurWeekly, w.RecurrencePattern)
		require.NotNil(t, w.RecurrenceEndDate)
		if seriesID == uuid.Nil {
			seriesID = w.SeriesID
		}
		assert.Equal(t, seriesID, w.SeriesID, "all windows share one series")
	}
}

func TestCreateAvailabilityRecurringSkipsConflictingDates(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)
	providerID := uuid.New()

	// Pre-existing window on the second occurrence date.
	blocking := validCreateRequest()
	blocking.Date = "2024-02-22"
	blocking.StartTime, blocking.EndTime = "09:00", "11:00"
	_, err := engine.CreateAvailability(context.Background(), providerID, blocking)
	require.NoError(t, err)

	req := validCreateRequest()
	req.StartTime, req.EndTime = "09:00", "11:00"
	req.IsRecurring = true
	req.RecurrencePattern = RecurWeekly
	req.RecurrenceEndDate = "2024-02-29"

	result, err := engine.CreateAvailability(context.Background(), providerID, req)
	require.NoError(t, err)
	assert.Equal(t, 1, result.DatesSkipped)
	assert.Equal(t, 8, result.SlotsCreated) // 2 of 3 dates created
}

func TestGetProviderAvailability(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)
	providerID := uuid.New()

	req := validCreateRequest()
	req.StartTime, req.EndTime = "09:00", "11:00"
	req.IsRecurring = true
	req.RecurrencePattern = RecurDaily
	req.RecurrenceEndDate = "2024-02-16"
	_, err := engine.CreateAvailability(context.Background(), providerID, req)
	require.NoError(t, err)

	start := mustDate(t, "2024-02-15")
	end := mustDate(t, "2024-02-16")
	pa, err := engine.GetProviderAvailability(context.Background(), providerID, start, end, WindowFilter{})
	require.NoError(t, err)

	assert.Equal(t, 8, pa.Summary.TotalSlots)
	assert.Equal(t, 8, pa.Summary.AvailableSlots)
	require.Len(t, pa.Daily, 2)
	assert.Equal(t, "2024-02-15", pa.Daily[0].Date)
	assert.Equal(t, "2024-02-16", pa.Daily[1].Date)
	require.Len(t, pa.Daily[0].Slots, 4)
	assert.Equal(t, "09:00", pa.Daily[0].Slots[0].StartTime)
}

func TestGetAvailabilitySummary(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)
	providerID := uuid.New()

	req := validCreateRequest()
	req.StartTime, req.EndTime = "09:00", "11:00"
	result, err := engine.CreateAvailability(context.Background(), providerID, req)
	require.NoError(t, err)
	require.Equal(t, 4, result.SlotsCreated)

	// Book one of the four slots.
	var slotID uuid.UUID
	for id := range store.slots {
		slotID = id
		break
	}
	_, err = engine.BookSlot(context.Background(), slotID, uuid.New())
	require.NoError(t, err)

	start := mustDate(t, "2024-02-15")
	end := mustDate(t, "2024-02-16")
	stats, err := engine.GetAvailabilitySummary(context.Background(), providerID, start, end)
	require.NoError(t, err)

	assert.Equal(t, 2, stats.DateRange.TotalDays)
	assert.Equal(t, 4, stats.Summary.TotalSlots)
	assert.Equal(t, 1, stats.Summary.BookedSlots)
	assert.Equal(t, 2.0, stats.Metrics.AvgSlotsPerDay)
	assert.Equal(t, 25.0, stats.Metrics.BookingRatePercentage)
}

func TestSearchAvailableSlots(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)
	cheap := uuid.New()
	pricey := uuid.New()

	req := validCreateRequest()
	req.StartTime, req.EndTime = "09:00", "10:00"
	req.Pricing = &Pricing{BaseFee: 80, InsuranceAccepted: true}
	_, err := engine.CreateAvailability(context.Background(), cheap, req)
	require.NoError(t, err)

	req = validCreateRequest()
	req.StartTime, req.EndTime = "09:00", "10:00"
	req.Pricing = &Pricing{BaseFee: 250, InsuranceAccepted: false}
	_, err = engine.CreateAvailability(context.Background(), pricey, req)
	require.NoError(t, err)

	date := mustDate(t, "2024-02-15")
	maxPrice := 100.0
	result, err := engine.SearchAvailableSlots(context.Background(), SearchCriteria{
		Date:          &date,
		MaxPrice:      &maxPrice,
		AvailableOnly: true,
	})
	require.NoError(t, err)

	require.Equal(t, 1, result.TotalResults)
	assert.Equal(t, cheap, result.Results[0].Provider.ID)
	assert.Len(t, result.Results[0].AvailableSlots, 2)
	assert.Equal(t, "2024-02-15", result.Results[0].AvailableSlots[0].Date)
	assert.Equal(t, "2024-02-15", result.SearchCriteria["date"])

	insured := true
	result, err = engine.SearchAvailableSlots(context.Background(), SearchCriteria{
		Date:              &date,
		InsuranceAccepted: &insured,
		AvailableOnly:     true,
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.TotalResults)
	assert.Equal(t, cheap, result.Results[0].Provider.ID)
}

func TestUpdateSlot(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)
	providerID := uuid.New()

	req := validCreateRequest()
	req.StartTime, req.EndTime = "09:00", "09:30"
	result, err := engine.CreateAvailability(context.Background(), providerID, req)
	require.NoError(t, err)

	var slotID uuid.UUID
	for id := range store.slots {
		slotID = id
	}

	t.Run("status and window metadata", func(t *testing.T) {
		blocked := SlotBlocked
		notes := "equipment maintenance"
		err := engine.UpdateSlot(context.Background(), slotID, SlotPatch{
			Status: &blocked,
			Notes:  &notes,
		})
		require.NoError(t, err)
		assert.Equal(t, SlotBlocked, store.slots[slotID].Status)
		assert.Equal(t, notes, store.windows[result.AvailabilityID].Notes)
	})

	t.Run("time patch", func(t *testing.T) {
		start, end := "10:00", "10:30"
		err := engine.UpdateSlot(context.Background(), slotID, SlotPatch{
			StartTime: &start,
			EndTime:   &end,
		})
		require.NoError(t, err)
		loc, _ := time.LoadLocation("America/New_York")
		assert.Equal(t, "10:00", store.slots[slotID].SlotStart.In(loc).Format("15:04"))
	})

	t.Run("invalid patch", func(t *testing.T) {
		bad := SlotStatus("vanished")
		err := engine.UpdateSlot(context.Background(), slotID, SlotPatch{Status: &bad})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Fields, "status")
	})

	t.Run("unknown slot", func(t *testing.T) {
		err := engine.UpdateSlot(context.Background(), uuid.New(), SlotPatch{})
		assert.ErrorIs(t, err, ErrSlotNotFound)
	})
}

func TestBulkUpdateSlots(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)

	req := validCreateRequest()
	req.StartTime, req.EndTime = "09:00", "10:00"
	_, err := engine.CreateAvailability(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	ids := make([]uuid.UUID, 0, 3)
	for id := range store.slots {
		ids = append(ids, id)
	}
	ids = append(ids, uuid.New()) // one unknown slot

	cancelled := SlotCancelled
	result, err := engine.BulkUpdateSlots(context.Background(), ids, SlotPatch{Status: &cancelled})
	require.NoError(t, err)

	assert.Equal(t, len(ids), result.TotalSlots)
	assert.Equal(t, 2, result.UpdatedSlots)
	assert.Len(t, result.FailedSlots, 1)
	for _, s := range store.slots {
		assert.Equal(t, SlotCancelled, s.Status)
	}
}

func TestDeleteSlot(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)

	req := validCreateRequest()
	req.StartTime, req.EndTime = "09:00", "11:00"
	_, err := engine.CreateAvailability(context.Background(), uuid.New(), req)
	require.NoError(t, err)
	require.Len(t, store.slots, 4)

	var slotID uuid.UUID
	for id := range store.slots {
		slotID = id
		break
	}

	result, err := engine.DeleteSlot(context.Background(), slotID, false, "provider unavailable")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.SlotsDeleted)
	assert.Len(t, store.slots, 3)

	for id := range store.slots {
		slotID = id
		break
	}
	result, err = engine.DeleteSlot(context.Background(), slotID, true, "window cancelled")
	require.NoError(t, err)
	assert.Equal(t, int64(3), result.SlotsDeleted)
	assert.Empty(t, store.slots)

	_, err = engine.DeleteSlot(context.Background(), uuid.New(), false, "")
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestDeleteSeries(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)

	req := validCreateRequest()
	req.StartTime, req.EndTime = "09:00", "10:00"
	req.IsRecurring = true
	req.RecurrencePattern = RecurDaily
	req.RecurrenceEndDate = "2024-02-17"
	result, err := engine.CreateAvailability(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	seriesID := store.windows[result.AvailabilityID].SeriesID
	deleted, err := engine.DeleteSeries(context.Background(), seriesID, "schedule change")
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted.WindowsDeleted)
	assert.Equal(t, int64(6), deleted.SlotsDeleted)
	assert.Empty(t, store.windows)

	_, err = engine.DeleteSeries(context.Background(), uuid.New(), "")
	assert.ErrorIs(t, err, ErrWindowNotFound)
}

func TestBookSlot(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)

	req := validCreateRequest()
	req.StartTime, req.EndTime = "09:00", "09:30"
	_, err := engine.CreateAvailability(context.Background(), uuid.New(), req)
	require.NoError(t, err)

	var slotID uuid.UUID
	for id := range store.slots {
		slotID = id
	}
	patientID := uuid.New()

	result, err := engine.BookSlot(context.Background(), slotID, patientID)
	require.NoError(t, err)
	assert.Equal(t, slotID, result.SlotID)
	assert.Equal(t, patientID, result.PatientID)
	assert.True(t, strings.HasPrefix(result.BookingReference, "BK-"))
	assert.Len(t, result.BookingReference, 15)
	assert.Equal(t, SlotBooked, store.slots[slotID].Status)

	// Second booking of the same slot must fail.
	_, err = engine.BookSlot(context.Background(), slotID, uuid.New())
	assert.ErrorIs(t, err, ErrSlotNotAvailable)

	_, err = engine.BookSlot(context.Background(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestCheckConflicts(t *testing.T) {
	store := newFakeStorage()
	engine := newTestEngine(store)
	providerID := uuid.New()

	req := validCreateRequest()
	req.StartTime, req.EndTime = "09:00", "10:00"
	_, err := engine.CreateAvailability(context.Background(), providerID, req)
	require.NoError(t, err)

	start := mustDate(t, "2024-02-15")
	report, err := engine.CheckConflicts(context.Background(), providerID, start, start)
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalSlotsAnalyzed)
	assert.Equal(t, 0, report.ConflictsFound)

	// Force an overlap by shifting one slot onto its neighbour.
	var ids []uuid.UUID
	for id := range store.slots {
		ids = append(ids, id)
	}
	s, e2 := "09:00", "10:00"
	require.NoError(t, engine.UpdateSlot(context.Background(), ids[0], SlotPatch{StartTime: &s, EndTime: &e2}))

	report, err = engine.CheckConflicts(context.Background(), providerID, start, start)
	require.NoError(t, err)
	assert.Equal(t, 1, report.ConflictsFound)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, "overlap", report.Conflicts[0].Type)
	assert.Equal(t, "2024-02-15", report.Conflicts[0].Date)
}

var errLockHeld = errors.New("schedule lock held")

func TestCreateAvailabilityLockErrorPassesThrough(t *testing.T) {
	store := newFakeStorage()
	engine := NewEngine(store, busyLocker{err: errLockHeld}, nil, nil)

	_, err := engine.CreateAvailability(context.Background(), uuid.New(), validCreateRequest())
	assert.Error(t, err)
}
