package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/healthfirst/scheduling/internal/auth"
	"github.com/healthfirst/scheduling/internal/availability"
	"github.com/healthfirst/scheduling/internal/patient"
	"github.com/healthfirst/scheduling/internal/provider"
	redisclient "github.com/healthfirst/scheduling/internal/redis"
	"github.com/healthfirst/scheduling/internal/validation"
)

func TestAuthMiddleware(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	userID := uuid.New()

	var gotID, gotRole string
	handler := AuthMiddleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID = GetUserID(r.Context())
		gotRole = GetUserRole(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	t.Run("valid token", func(t *testing.T) {
		pair, err := tm.IssuePair(userID, auth.RoleProvider, "doc@example.com")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/providers/x", nil)
		req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, userID.String(), gotID)
		assert.Equal(t, auth.RoleProvider, gotRole)
	})

	t.Run("missing header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/providers/x", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/providers/x", nil)
		req.Header.Set("Authorization", "Token abc")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("refresh token rejected on access routes", func(t *testing.T) {
		pair, err := tm.IssuePair(userID, auth.RoleProvider, "doc@example.com")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/providers/x", nil)
		req.Header.Set("Authorization", "Bearer "+pair.RefreshToken)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRole(t *testing.T) {
	tm := auth.NewTokenManager("test-secret", time.Hour, 24*time.Hour)
	handler := AuthMiddleware(tm)(RequireRole(auth.RoleProvider)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	providerPair, err := tm.IssuePair(uuid.New(), auth.RoleProvider, "doc@example.com")
	require.NoError(t, err)
	patientPair, err := tm.IssuePair(uuid.New(), auth.RolePatient, "pat@example.com")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/availability/slots/bulk-update", nil)
	req.Header.Set("Authorization", "Bearer "+providerPair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/availability/slots/bulk-update", nil)
	req.Header.Set("Authorization", "Bearer "+patientPair.AccessToken)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRequestIDMiddleware(t *testing.T) {
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, GetRequestID(r.Context()))
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("generated", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("propagated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Request-ID", "req-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))
	})
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation error", &availability.ValidationError{Fields: map[string][]string{"start_time": {"is required"}}}, http.StatusBadRequest, "validation_failed"},
		{"field error", func() error { v := &validation.Error{}; v.Add("email", "must be a valid email address"); return v }(), http.StatusBadRequest, "validation_failed"},
		{"schedule conflict", &availability.ConflictError{}, http.StatusConflict, "schedule_conflict"},
		{"window not found", availability.ErrWindowNotFound, http.StatusNotFound, "availability_not_found"},
		{"slot not found", availability.ErrSlotNotFound, http.StatusNotFound, "slot_not_found"},
		{"provider not found", provider.ErrProviderNotFound, http.StatusNotFound, "provider_not_found"},
		{"patient not found", patient.ErrPatientNotFound, http.StatusNotFound, "patient_not_found"},
		{"slot taken", availability.ErrSlotNotAvailable, http.StatusConflict, "slot_not_available"},
		{"schedule busy", availability.ErrScheduleBusy, http.StatusConflict, "schedule_busy"},
		{"lock not acquired", redisclient.ErrLockNotAcquired, http.StatusConflict, "schedule_busy"},
		{"email taken", provider.ErrEmailTaken, http.StatusConflict, "already_registered"},
		{"account locked", patient.ErrAccountLocked, http.StatusForbidden, "account_locked"},
		{"bad credentials", auth.ErrInvalidPassword, http.StatusUnauthorized, "invalid_credentials"},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, tc.err)
			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantCode)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}
