package availability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const windowColumns = `id, provider_id, series_id, date, start_time, end_time, timezone,
	slot_duration, break_duration, is_recurring, recurrence_pattern, recurrence_end_date,
	appointment_type, location, pricing, max_appointments_per_slot, special_requirements,
	notes, status, created_at, updated_at`

const slotColumns = `id, availability_id, provider_id, slot_start, slot_end, status,
	appointment_type, patient_id, booking_reference, created_at, updated_at`

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PgStorage implements Storage on a pgx connection pool.
type PgStorage struct {
	pool dbPool
}

func NewPgStorage(pool *pgxpool.Pool) *PgStorage {
	return &PgStorage{pool: pool}
}

func newPgStorageWithPool(pool dbPool) *PgStorage {
	return &PgStorage{pool: pool}
}

// Helpers

func todToPg(t TimeOfDay) pgtype.Time {
	return pgtype.Time{Microseconds: int64(t) * 60 * 1_000_000, Valid: true}
}

func todFromPg(t pgtype.Time) TimeOfDay {
	return TimeOfDay(t.Microseconds / 60 / 1_000_000)
}

func marshalJSONField(v any) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func scanWindow(row pgx.Row) (*AvailabilityWindow, error) {
	var (
		w             AvailabilityWindow
		start, end    pgtype.Time
		pattern       *string
		locationJSON  []byte
		pricingJSON   []byte
		reqsJSON      []byte
		notes         *string
	)

	err := row.Scan(
		&w.ID, &w.ProviderID, &w.SeriesID, &w.Date, &start, &end, &w.Timezone,
		&w.SlotDuration, &w.BreakDuration, &w.IsRecurring, &pattern, &w.RecurrenceEndDate,
		&w.AppointmentType, &locationJSON, &pricingJSON, &w.MaxAppointmentsPerSlot, &reqsJSON,
		&notes, &w.Status, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrWindowNotFound
		}
		return nil, err
	}

	w.StartTime = todFromPg(start)
	w.EndTime = todFromPg(end)
	w.Date = DateOnly(w.Date)
	if pattern != nil {
		w.RecurrencePattern = RecurrencePattern(*pattern)
	}
	if notes != nil {
		w.Notes = *notes
	}
	if len(locationJSON) > 0 {
		w.Location = &Location{}
		if err := json.Unmarshal(locationJSON, w.Location); err != nil {
			return nil, fmt.Errorf("decode location: %w", err)
		}
	}
	if len(pricingJSON) > 0 {
		w.Pricing = &Pricing{}
		if err := json.Unmarshal(pricingJSON, w.Pricing); err != nil {
			return nil, fmt.Errorf("decode pricing: %w", err)
		}
	}
	if len(reqsJSON) > 0 {
		if err := json.Unmarshal(reqsJSON, &w.SpecialRequirements); err != nil {
			return nil, fmt.Errorf("decode special requirements: %w", err)
		}
	}
	return &w, nil
}

func scanSlot(row pgx.Row) (*AppointmentSlot, error) {
	var s AppointmentSlot

	err := row.Scan(
		&s.ID, &s.AvailabilityID, &s.ProviderID, &s.SlotStart, &s.SlotEnd, &s.Status,
		&s.AppointmentType, &s.PatientID, &s.BookingReference, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSlotNotFound
		}
		return nil, err
	}
	return &s, nil
}

// Interface methods

func (r *PgStorage) InsertWindow(ctx context.Context, w *AvailabilityWindow) (uuid.UUID, error) {
	id := uuid.New()

	locationJSON, err := marshalJSONField(w.Location)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode location: %w", err)
	}
	pricingJSON, err := marshalJSONField(w.Pricing)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode pricing: %w", err)
	}
	reqs := w.SpecialRequirements
	if reqs == nil {
		reqs = []string{}
	}
	reqsJSON, err := json.Marshal(reqs)
	if err != nil {
		return uuid.Nil, fmt.Errorf("encode special requirements: %w", err)
	}

	var pattern *string
	if w.RecurrencePattern != "" {
		p := string(w.RecurrencePattern)
		pattern = &p
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO provider_availability (
			id, provider_id, series_id, date, start_time, end_time, timezone,
			slot_duration, break_duration, is_recurring, recurrence_pattern, recurrence_end_date,
			appointment_type, location, pricing, max_appointments_per_slot, special_requirements,
			notes, status, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, now(), now())
	`, id, w.ProviderID, w.SeriesID, w.Date, todToPg(w.StartTime), todToPg(w.EndTime), w.Timezone,
		w.SlotDuration, w.BreakDuration, w.IsRecurring, pattern, w.RecurrenceEndDate,
		string(w.AppointmentType), locationJSON, pricingJSON, w.MaxAppointmentsPerSlot, reqsJSON,
		w.Notes, string(w.Status))
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert availability window: %w", err)
	}

	return id, nil
}

func (r *PgStorage) InsertSlot(ctx context.Context, s *AppointmentSlot) (uuid.UUID, error) {
	id := s.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO appointment_slots (
			id, availability_id, provider_id, slot_start, slot_end, status,
			appointment_type, patient_id, booking_reference, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now(), now())
	`, id, s.AvailabilityID, s.ProviderID, s.SlotStart, s.SlotEnd, string(s.Status),
		string(s.AppointmentType), s.PatientID, s.BookingReference)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert appointment slot: %w", err)
	}

	return id, nil
}

func (r *PgStorage) GetWindowByID(ctx context.Context, id uuid.UUID) (*AvailabilityWindow, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+windowColumns+`
		FROM provider_availability
		WHERE id = $1
	`, id)
	return scanWindow(row)
}

func (r *PgStorage) GetSlotByID(ctx context.Context, id uuid.UUID) (*AppointmentSlot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM appointment_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgStorage) FindWindows(ctx context.Context, providerID uuid.UUID, startDate, endDate time.Time, f WindowFilter) ([]AvailabilityWindow, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM provider_availability
		WHERE provider_id = $1 AND date >= $2 AND date <= $3`
	args := []any{providerID, startDate, endDate}

	if f.Status != "" {
		args = append(args, string(f.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if f.AppointmentType != "" {
		args = append(args, string(f.AppointmentType))
		query += fmt.Sprintf(" AND appointment_type = $%d", len(args))
	}
	query += " ORDER BY date, start_time"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilityWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}

func (r *PgStorage) FindSlotsByWindows(ctx context.Context, windowIDs []uuid.UUID) ([]AppointmentSlot, error) {
	if len(windowIDs) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM appointment_slots
		WHERE availability_id = ANY($1)
		ORDER BY slot_start
	`, windowIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AppointmentSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *s)
	}
	return result, rows.Err()
}

func (r *PgStorage) FindAvailableSlots(ctx context.Context, q SlotQuery) ([]SlotWithWindow, error) {
	query := `
		SELECT s.id, s.availability_id, s.provider_id, s.slot_start, s.slot_end, s.status,
			s.appointment_type, s.patient_id, s.booking_reference, s.created_at, s.updated_at,
			w.id, w.provider_id, w.series_id, w.date, w.start_time, w.end_time, w.timezone,
			w.slot_duration, w.break_duration, w.is_recurring, w.recurrence_pattern, w.recurrence_end_date,
			w.appointment_type, w.location, w.pricing, w.max_appointments_per_slot, w.special_requirements,
			w.notes, w.status, w.created_at, w.updated_at
		FROM appointment_slots s
		JOIN provider_availability w ON w.id = s.availability_id
		WHERE 1 = 1`
	var args []any

	if q.AvailableOnly {
		args = append(args, string(SlotAvailable))
		query += fmt.Sprintf(" AND s.status = $%d", len(args))
	}
	if q.From != nil {
		args = append(args, *q.From)
		query += fmt.Sprintf(" AND s.slot_start >= $%d", len(args))
	}
	if q.To != nil {
		args = append(args, *q.To)
		query += fmt.Sprintf(" AND s.slot_start < $%d", len(args))
	}
	if q.AppointmentType != "" {
		args = append(args, string(q.AppointmentType))
		query += fmt.Sprintf(" AND s.appointment_type = $%d", len(args))
	}
	query += " ORDER BY s.slot_start"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []SlotWithWindow
	for rows.Next() {
		var (
			s            AppointmentSlot
			w            AvailabilityWindow
			start, end   pgtype.Time
			pattern      *string
			locationJSON []byte
			pricingJSON  []byte
			reqsJSON     []byte
			notes        *string
		)
		err := rows.Scan(
			&s.ID, &s.AvailabilityID, &s.ProviderID, &s.SlotStart, &s.SlotEnd, &s.Status,
			&s.AppointmentType, &s.PatientID, &s.BookingReference, &s.CreatedAt, &s.UpdatedAt,
			&w.ID, &w.ProviderID, &w.SeriesID, &w.Date, &start, &end, &w.Timezone,
			&w.SlotDuration, &w.BreakDuration, &w.IsRecurring, &pattern, &w.RecurrenceEndDate,
			&w.AppointmentType, &locationJSON, &pricingJSON, &w.MaxAppointmentsPerSlot, &reqsJSON,
			&notes, &w.Status, &w.CreatedAt, &w.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		w.StartTime = todFromPg(start)
		w.EndTime = todFromPg(end)
		w.Date = DateOnly(w.Date)
		if pattern != nil {
			w.RecurrencePattern = RecurrencePattern(*pattern)
		}
		if notes != nil {
			w.Notes = *notes
		}
		if len(locationJSON) > 0 {
			w.Location = &Location{}
			if err := json.Unmarshal(locationJSON, w.Location); err != nil {
				return nil, fmt.Errorf("decode location: %w", err)
			}
		}
		if len(pricingJSON) > 0 {
			w.Pricing = &Pricing{}
			if err := json.Unmarshal(pricingJSON, w.Pricing); err != nil {
				return nil, fmt.Errorf("decode pricing: %w", err)
			}
		}
		if len(reqsJSON) > 0 {
			if err := json.Unmarshal(reqsJSON, &w.SpecialRequirements); err != nil {
				return nil, fmt.Errorf("decode special requirements: %w", err)
			}
		}
		result = append(result, SlotWithWindow{Slot: s, Window: w})
	}
	return result, rows.Err()
}

func (r *PgStorage) FindOverlappingWindows(ctx context.Context, providerID uuid.UUID, date time.Time, start, end TimeOfDay, excludeWindowID *uuid.UUID) ([]AvailabilityWindow, error) {
	query := `
		SELECT ` + windowColumns + `
		FROM provider_availability
		WHERE provider_id = $1 AND date = $2 AND start_time < $3 AND end_time > $4`
	args := []any{providerID, date, todToPg(end), todToPg(start)}

	if excludeWindowID != nil {
		args = append(args, *excludeWindowID)
		query += fmt.Sprintf(" AND id <> $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilityWindow
	for rows.Next() {
		w, err := scanWindow(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *w)
	}
	return result, rows.Err()
}

func (r *PgStorage) UpdateSlot(ctx context.Context, id uuid.UUID, u SlotUpdate) error {
	var status *string
	if u.Status != nil {
		s := string(*u.Status)
		status = &s
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE appointment_slots
		SET slot_start = COALESCE($2, slot_start),
		    slot_end   = COALESCE($3, slot_end),
		    status     = COALESCE($4, status),
		    updated_at = now()
		WHERE id = $1
	`, id, u.SlotStart, u.SlotEnd, status)
	if err != nil {
		return fmt.Errorf("update slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgStorage) UpdateWindowDetails(ctx context.Context, id uuid.UUID, u WindowDetailsUpdate) error {
	pricingJSON, err := marshalJSONField(u.Pricing)
	if err != nil {
		return fmt.Errorf("encode pricing: %w", err)
	}
	var reqsJSON []byte
	if u.SpecialRequirements != nil {
		if reqsJSON, err = json.Marshal(u.SpecialRequirements); err != nil {
			return fmt.Errorf("encode special requirements: %w", err)
		}
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE provider_availability
		SET notes                = COALESCE($2, notes),
		    pricing              = COALESCE($3, pricing),
		    special_requirements = COALESCE($4, special_requirements),
		    updated_at           = now()
		WHERE id = $1
	`, id, u.Notes, pricingJSON, reqsJSON)
	if err != nil {
		return fmt.Errorf("update window details: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrWindowNotFound
	}
	return nil
}

func (r *PgStorage) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointment_slots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}

func (r *PgStorage) DeleteSlotsByWindow(ctx context.Context, windowID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM appointment_slots WHERE availability_id = $1`, windowID)
	if err != nil {
		return 0, fmt.Errorf("delete slots by window: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *PgStorage) DeleteSeries(ctx context.Context, seriesID uuid.UUID) (int64, int64, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer tx.Rollback(ctx)

	slotTag, err := tx.Exec(ctx, `
		DELETE FROM appointment_slots
		WHERE availability_id IN (SELECT id FROM provider_availability WHERE series_id = $1)
	`, seriesID)
	if err != nil {
		return 0, 0, fmt.Errorf("delete series slots: %w", err)
	}

	winTag, err := tx.Exec(ctx, `DELETE FROM provider_availability WHERE series_id = $1`, seriesID)
	if err != nil {
		return 0, 0, fmt.Errorf("delete series windows: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, 0, err
	}
	return winTag.RowsAffected(), slotTag.RowsAffected(), nil
}

func (r *PgStorage) BookSlot(ctx context.Context, slotID, patientID uuid.UUID, bookingRef string) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE appointment_slots
		SET status = $4,
		    patient_id = $2,
		    booking_reference = $3,
		    updated_at = now()
		WHERE id = $1 AND status = $5
	`, slotID, patientID, bookingRef, string(SlotBooked), string(SlotAvailable))
	if err != nil {
		return false, fmt.Errorf("book slot: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgStorage) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO availability_events (event_type, window_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.WindowID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
