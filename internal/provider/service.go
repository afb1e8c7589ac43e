package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/healthfirst/scheduling/internal/auth"
	"github.com/healthfirst/scheduling/internal/availability"
	"github.com/healthfirst/scheduling/internal/validation"
)

const minPasswordLen = 8

// RegisterRequest carries a provider registration.
type RegisterRequest struct {
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Email             string `json:"email"`
	PhoneNumber       string `json:"phone_number"`
	Password          string `json:"password"`
	Specialization    string `json:"specialization"`
	LicenseNumber     string `json:"license_number"`
	YearsOfExperience int    `json:"years_of_experience"`
	ClinicStreet      string `json:"clinic_street"`
	ClinicCity        string `json:"clinic_city"`
	ClinicState       string `json:"clinic_state"`
	ClinicZip         string `json:"clinic_zip"`
}

type Service struct {
	repo       Repository
	bcryptCost int
}

func NewService(repo Repository, bcryptCost int) *Service {
	return &Service{repo: repo, bcryptCost: bcryptCost}
}

// Register validates the request, enforces email/phone/license uniqueness,
// and stores the provider with a pending verification status.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Provider, error) {
	if err := validateRegister(req); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	license := strings.ToUpper(strings.TrimSpace(req.LicenseNumber))

	if taken, err := s.repo.EmailExists(ctx, email); err != nil {
		return nil, fmt.Errorf("check email uniqueness: %w", err)
	} else if taken {
		return nil, ErrEmailTaken
	}
	if taken, err := s.repo.PhoneExists(ctx, req.PhoneNumber); err != nil {
		return nil, fmt.Errorf("check phone uniqueness: %w", err)
	} else if taken {
		return nil, ErrPhoneTaken
	}
	if taken, err := s.repo.LicenseExists(ctx, license); err != nil {
		return nil, fmt.Errorf("check license uniqueness: %w", err)
	} else if taken {
		return nil, ErrLicenseTaken
	}

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	p := &Provider{
		ID:                 uuid.New(),
		FirstName:          strings.TrimSpace(req.FirstName),
		LastName:           strings.TrimSpace(req.LastName),
		Email:              email,
		PhoneNumber:        strings.TrimSpace(req.PhoneNumber),
		PasswordHash:       hash,
		Specialization:     strings.TrimSpace(req.Specialization),
		LicenseNumber:      license,
		YearsOfExperience:  req.YearsOfExperience,
		ClinicStreet:       strings.TrimSpace(req.ClinicStreet),
		ClinicCity:         strings.TrimSpace(req.ClinicCity),
		ClinicState:        strings.TrimSpace(req.ClinicState),
		ClinicZip:          strings.TrimSpace(req.ClinicZip),
		VerificationStatus: VerificationPending,
		IsActive:           true,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Authenticate checks a provider's credentials for login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Provider, error) {
	p, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, auth.ErrInvalidPassword
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}
	if !p.IsActive {
		return nil, auth.ErrInvalidPassword
	}
	if err := auth.CheckPassword(password, p.PasswordHash); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) UpdateVerificationStatus(ctx context.Context, id uuid.UUID, status VerificationStatus) error {
	switch status {
	case VerificationPending, VerificationVerified, VerificationRejected:
	default:
		return fmt.Errorf("invalid verification status %q", status)
	}
	return s.repo.UpdateVerificationStatus(ctx, id, status)
}

// GetProfile adapts a provider record into the directory entry attached to
// availability search results.
func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (*availability.ProviderProfile, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	addr := strings.Join(compact([]string{p.ClinicStreet, p.ClinicCity, p.ClinicState, p.ClinicZip}), ", ")
	return &availability.ProviderProfile{
		ID:                p.ID,
		Name:              p.FullName(),
		Specialization:    p.Specialization,
		YearsOfExperience: p.YearsOfExperience,
		ClinicAddress:     addr,
	}, nil
}

func validateRegister(req RegisterRequest) error {
	verr := &validation.Error{}

	if strings.TrimSpace(req.FirstName) == "" {
		verr.Add("first_name", "is required")
	}
	if strings.TrimSpace(req.LastName) == "" {
		verr.Add("last_name", "is required")
	}
	if !validation.ValidEmail(req.Email) {
		verr.Add("email", "must be a valid email address")
	}
	if !validation.ValidPhone(req.PhoneNumber) {
		verr.Add("phone_number", "must be a valid phone number")
	}
	if len(req.Password) < minPasswordLen {
		verr.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLen))
	}
	if strings.TrimSpace(req.Specialization) == "" {
		verr.Add("specialization", "is required")
	}
	if strings.TrimSpace(req.LicenseNumber) == "" {
		verr.Add("license_number", "is required")
	}
	if req.YearsOfExperience < 0 || req.YearsOfExperience > 70 {
		verr.Add("years_of_experience", "must be between 0 and 70")
	}
	if strings.TrimSpace(req.ClinicStreet) == "" {
		verr.Add("clinic_street", "is required")
	}
	if strings.TrimSpace(req.ClinicCity) == "" {
		verr.Add("clinic_city", "is required")
	}

	return verr.ErrOrNil()
}

func compact(parts []string) []string {
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
