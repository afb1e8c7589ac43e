package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/healthfirst/scheduling/internal/availability"
)

const defaultAvailabilityRangeDays = 7

func createAvailabilityHandler(engine *availability.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}

		var req availability.CreateAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		result, err := engine.CreateAvailability(r.Context(), providerID, req)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, result)
	}
}

func getAvailabilityHandler(engine *availability.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}
		start, end, ok := parseDateRange(w, r)
		if !ok {
			return
		}

		filter := availability.WindowFilter{
			Status:          availability.SlotStatus(r.URL.Query().Get("status")),
			AppointmentType: availability.AppointmentType(r.URL.Query().Get("appointment_type")),
		}

		result, err := engine.GetProviderAvailability(r.Context(), providerID, start, end, filter)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func availabilitySummaryHandler(engine *availability.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}
		start, end, ok := parseDateRange(w, r)
		if !ok {
			return
		}

		stats, err := engine.GetAvailabilitySummary(r.Context(), providerID, start, end)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, stats)
	}
}

func availabilityConflictsHandler(engine *availability.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}
		start, end, ok := parseDateRange(w, r)
		if !ok {
			return
		}

		report, err := engine.CheckConflicts(r.Context(), providerID, start, end)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, report)
	}
}

func searchAvailabilityHandler(engine *availability.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		criteria := availability.SearchCriteria{
			AppointmentType: availability.AppointmentType(q.Get("appointment_type")),
			AvailableOnly:   true,
		}

		for name, dst := range map[string]**time.Time{
			"date":       &criteria.Date,
			"start_date": &criteria.StartDate,
			"end_date":   &criteria.EndDate,
		} {
			if raw := q.Get(name); raw != "" {
				parsed, err := time.Parse("2006-01-02", raw)
				if err != nil {
					writeError(w, http.StatusBadRequest, "invalid_date", name+" must use YYYY-MM-DD format")
					return
				}
				*dst = &parsed
			}
		}

		if raw := q.Get("insurance_accepted"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_parameter", "insurance_accepted must be a boolean")
				return
			}
			criteria.InsuranceAccepted = &v
		}
		if raw := q.Get("max_price"); raw != "" {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil || v < 0 {
				writeError(w, http.StatusBadRequest, "invalid_parameter", "max_price must be a non-negative number")
				return
			}
			criteria.MaxPrice = &v
		}

		result, err := engine.SearchAvailableSlots(r.Context(), criteria)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func updateSlotHandler(engine *availability.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, ok := parseUUIDParam(w, r, "slotID")
		if !ok {
			return
		}

		var patch availability.SlotPatch
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		if err := engine.UpdateSlot(r.Context(), slotID, patch); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "slot updated"})
	}
}

func bulkUpdateSlotsHandler(engine *availability.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BulkUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		if len(req.SlotIDs) == 0 {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "slot_ids must not be empty")
			return
		}

		ids := make([]uuid.UUID, 0, len(req.SlotIDs))
		for _, raw := range req.SlotIDs {
			id, err := uuid.Parse(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_slot_id", "slot_ids must be valid UUIDs")
				return
			}
			ids = append(ids, id)
		}

		result, err := engine.BulkUpdateSlots(r.Context(), ids, req.Update)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func deleteSlotHandler(engine *availability.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, ok := parseUUIDParam(w, r, "slotID")
		if !ok {
			return
		}

		q := r.URL.Query()
		deleteRecurring := false
		if raw := q.Get("delete_recurring"); raw != "" {
			v, err := strconv.ParseBool(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_parameter", "delete_recurring must be a boolean")
				return
			}
			deleteRecurring = v
		}

		result, err := engine.DeleteSlot(r.Context(), slotID, deleteRecurring, q.Get("reason"))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func deleteSeriesHandler(engine *availability.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		seriesID, ok := parseUUIDParam(w, r, "seriesID")
		if !ok {
			return
		}

		result, err := engine.DeleteSeries(r.Context(), seriesID, r.URL.Query().Get("reason"))
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func bookSlotHandler(engine *availability.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slotID, ok := parseUUIDParam(w, r, "slotID")
		if !ok {
			return
		}

		var req BookSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}
		patientID, err := uuid.Parse(req.PatientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
			return
		}

		result, err := engine.BookSlot(r.Context(), slotID, patientID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_"+name, name+" must be a valid UUID")
		return uuid.Nil, false
	}
	return id, true
}

// parseDateRange reads start_date and end_date query parameters, defaulting
// to the next week when absent.
func parseDateRange(w http.ResponseWriter, r *http.Request) (time.Time, time.Time, bool) {
	q := r.URL.Query()
	now := time.Now().UTC()
	start := availability.DateOnly(now)
	end := start.AddDate(0, 0, defaultAvailabilityRangeDays)

	if raw := q.Get("start_date"); raw != "" {
		parsed, err := availability.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "start_date must use YYYY-MM-DD format")
			return time.Time{}, time.Time{}, false
		}
		start = parsed
		end = start.AddDate(0, 0, defaultAvailabilityRangeDays)
	}
	if raw := q.Get("end_date"); raw != "" {
		parsed, err := availability.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", "end_date must use YYYY-MM-DD format")
			return time.Time{}, time.Time{}, false
		}
		end = parsed
	}
	if end.Before(start) {
		writeError(w, http.StatusBadRequest, "invalid_date", "end_date must not be before start_date")
		return time.Time{}, time.Time{}, false
	}
	return start, end, true
}
