package api

import (
	"encoding/json"
	"net/http"

	"github.com/healthfirst/scheduling/internal/auth"
	"github.com/healthfirst/scheduling/internal/patient"
	"github.com/healthfirst/scheduling/internal/provider"
)

func registerProviderHandler(svc *provider.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req provider.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		p, err := svc.Register(r.Context(), req)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, RegisterResponse{
			ID:      p.ID,
			Message: "provider registered, verification pending",
		})
	}
}

func registerPatientHandler(svc *patient.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req patient.RegisterRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		p, err := svc.Register(r.Context(), req)
		if err != nil {
			handleServiceError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, RegisterResponse{
			ID:      p.ID,
			Message: "patient registered",
		})
	}
}

func loginHandler(providers *provider.Service, patients *patient.Service, tm *auth.TokenManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		var resp LoginResponse
		switch req.Role {
		case auth.RoleProvider:
			p, err := providers.Authenticate(r.Context(), req.Email, req.Password)
			if err != nil {
				handleServiceError(w, err)
				return
			}
			resp.UserID = p.ID
			resp.Role = auth.RoleProvider
			pair, err := tm.IssuePair(p.ID, auth.RoleProvider, p.Email)
			if err != nil {
				handleServiceError(w, err)
				return
			}
			resp.Tokens = *pair
		case auth.RolePatient:
			p, err := patients.Authenticate(r.Context(), req.Email, req.Password)
			if err != nil {
				handleServiceError(w, err)
				return
			}
			resp.UserID = p.ID
			resp.Role = auth.RolePatient
			pair, err := tm.IssuePair(p.ID, auth.RolePatient, p.Email)
			if err != nil {
				handleServiceError(w, err)
				return
			}
			resp.Tokens = *pair
		default:
			writeError(w, http.StatusBadRequest, "invalid_role", "role must be provider or patient")
			return
		}

		writeJSON(w, http.StatusOK, resp)
	}
}
