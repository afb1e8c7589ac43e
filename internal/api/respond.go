package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/healthfirst/scheduling/internal/auth"
	"github.com/healthfirst/scheduling/internal/availability"
	"github.com/healthfirst/scheduling/internal/patient"
	"github.com/healthfirst/scheduling/internal/provider"
	redisclient "github.com/healthfirst/scheduling/internal/redis"
	"github.com/healthfirst/scheduling/internal/validation"
)

type ErrorResponse struct {
	Error   string              `json:"error"`
	Details string              `json:"details,omitempty"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// handleServiceError maps service-layer errors onto HTTP responses.
func handleServiceError(w http.ResponseWriter, err error) {
	var verr *availability.ValidationError
	var ferr *validation.Error
	var cerr *availability.ConflictError

	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Details: "one or more fields are invalid",
			Fields:  verr.Fields,
		})
	case errors.As(err, &ferr):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Details: "one or more fields are invalid",
			Fields:  ferr.Fields,
		})
	case errors.As(err, &cerr):
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:   "schedule_conflict",
			Details: cerr.Error(),
		})
	case errors.Is(err, availability.ErrWindowNotFound):
		writeError(w, http.StatusNotFound, "availability_not_found", err.Error())
	case errors.Is(err, availability.ErrSlotNotFound):
		writeError(w, http.StatusNotFound, "slot_not_found", err.Error())
	case errors.Is(err, availability.ErrSlotNotAvailable):
		writeError(w, http.StatusConflict, "slot_not_available", err.Error())
	case errors.Is(err, availability.ErrScheduleBusy),
		errors.Is(err, redisclient.ErrLockNotAcquired):
		writeError(w, http.StatusConflict, "schedule_busy", "the schedule is being modified, please retry shortly")
	case errors.Is(err, provider.ErrProviderNotFound):
		writeError(w, http.StatusNotFound, "provider_not_found", err.Error())
	case errors.Is(err, provider.ErrEmailTaken),
		errors.Is(err, provider.ErrPhoneTaken),
		errors.Is(err, provider.ErrLicenseTaken),
		errors.Is(err, patient.ErrEmailTaken),
		errors.Is(err, patient.ErrPhoneTaken):
		writeError(w, http.StatusConflict, "already_registered", err.Error())
	case errors.Is(err, patient.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, patient.ErrAccountLocked):
		writeError(w, http.StatusForbidden, "account_locked", err.Error())
	case errors.Is(err, auth.ErrInvalidPassword):
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "email or password is incorrect")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
