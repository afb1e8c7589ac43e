package api

import (
	"encoding/json"
	"net/http"

	"github.com/healthfirst/scheduling/internal/provider"
)

func getProviderHandler(svc *provider.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}

		p, err := svc.GetByID(r.Context(), providerID)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, p)
	}
}

func updateVerificationHandler(svc *provider.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, ok := parseUUIDParam(w, r, "providerID")
		if !ok {
			return
		}

		var req VerificationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		status := provider.VerificationStatus(req.Status)
		switch status {
		case provider.VerificationPending, provider.VerificationVerified, provider.VerificationRejected:
		default:
			writeError(w, http.StatusBadRequest, "invalid_status", "status must be one of: pending, verified, rejected")
			return
		}

		if err := svc.UpdateVerificationStatus(r.Context(), providerID, status); err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"message": "verification status updated"})
	}
}
