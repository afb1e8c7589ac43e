package patient

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrPhoneTaken      = errors.New("phone number already registered")
)

// LoginState captures the mutable lockout bookkeeping updated on every
// authentication attempt.
type LoginState struct {
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLogin           *time.Time
	LoginCount          int
}

type Repository interface {
	Insert(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByEmail(ctx context.Context, email string) (*Patient, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	UpdateLoginState(ctx context.Context, id uuid.UUID, state LoginState) error
}
