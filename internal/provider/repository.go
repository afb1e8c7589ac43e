package provider

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrEmailTaken       = errors.New("email is already registered")
	ErrPhoneTaken       = errors.New("phone number is already registered")
	ErrLicenseTaken     = errors.New("license number is already registered")
)

// Repository contains all DB interactions needed by the provider service.
type Repository interface {
	Insert(ctx context.Context, p *Provider) error
	GetByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	GetByEmail(ctx context.Context, email string) (*Provider, error)

	EmailExists(ctx context.Context, email string) (bool, error)
	PhoneExists(ctx context.Context, phone string) (bool, error)
	LicenseExists(ctx context.Context, license string) (bool, error)

	UpdateVerificationStatus(ctx context.Context, id uuid.UUID, status VerificationStatus) error
}
