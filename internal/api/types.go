package api

import (
	"github.com/google/uuid"

	"github.com/healthfirst/scheduling/internal/auth"
	"github.com/healthfirst/scheduling/internal/availability"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type LoginResponse struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   string         `json:"role"`
	Tokens auth.TokenPair `json:"tokens"`
}

type RegisterResponse struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
}

type BookSlotRequest struct {
	PatientID string `json:"patient_id"`
}

type BulkUpdateRequest struct {
	SlotIDs []string               `json:"slot_ids"`
	Update  availability.SlotPatch `json:"update"`
}

type VerificationRequest struct {
	Status string `json:"status"`
}
