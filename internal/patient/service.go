package patient

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/healthfirst/scheduling/internal/auth"
	"github.com/healthfirst/scheduling/internal/validation"
)

const (
	minPasswordLen   = 8
	maxFailedLogins  = 5
	lockoutDuration  = 30 * time.Minute
	maxPatientAgeYrs = 150
)

// ErrAccountLocked is returned when a login is attempted against an
// account under lockout.
var ErrAccountLocked = errors.New("account temporarily locked")

// RegisterRequest carries a patient registration.
type RegisterRequest struct {
	FirstName             string `json:"first_name"`
	LastName              string `json:"last_name"`
	Email                 string `json:"email"`
	PhoneNumber           string `json:"phone_number"`
	Password              string `json:"password"`
	DateOfBirth           string `json:"date_of_birth"`
	Gender                string `json:"gender"`
	Street                string `json:"street"`
	City                  string `json:"city"`
	State                 string `json:"state"`
	Zip                   string `json:"zip"`
	EmergencyContactName  string `json:"emergency_contact_name,omitempty"`
	EmergencyContactPhone string `json:"emergency_contact_phone,omitempty"`
	InsuranceProvider     string `json:"insurance_provider,omitempty"`
	InsurancePolicyID     string `json:"insurance_policy_id,omitempty"`
}

type Service struct {
	repo       Repository
	bcryptCost int
	now        func() time.Time
}

func NewService(repo Repository, bcryptCost int) *Service {
	return &Service{repo: repo, bcryptCost: bcryptCost, now: time.Now}
}

// Register validates the request, enforces email/phone uniqueness and
// stores the patient.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Patient, error) {
	dob, err := validateRegister(req, s.now())
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

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

	hash, err := auth.HashPassword(req.Password, s.bcryptCost)
	if err != nil {
		return nil, err
	}

	p := &Patient{
		ID:                    uuid.New(),
		FirstName:             strings.TrimSpace(req.FirstName),
		LastName:              strings.TrimSpace(req.LastName),
		Email:                 email,
		PhoneNumber:           strings.TrimSpace(req.PhoneNumber),
		PasswordHash:          hash,
		DateOfBirth:           dob,
		Gender:                Gender(req.Gender),
		Street:                strings.TrimSpace(req.Street),
		City:                  strings.TrimSpace(req.City),
		State:                 strings.TrimSpace(req.State),
		Zip:                   strings.TrimSpace(req.Zip),
		EmergencyContactName:  strings.TrimSpace(req.EmergencyContactName),
		EmergencyContactPhone: strings.TrimSpace(req.EmergencyContactPhone),
		InsuranceProvider:     strings.TrimSpace(req.InsuranceProvider),
		InsurancePolicyID:     strings.TrimSpace(req.InsurancePolicyID),
		IsActive:              true,
	}
	if err := s.repo.Insert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Authenticate checks a patient's credentials. Five consecutive
// failures lock the account for thirty minutes; a successful login
// resets the counter and records the login.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*Patient, error) {
	p, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			return nil, auth.ErrInvalidPassword
		}
		return nil, fmt.Errorf("load patient: %w", err)
	}

	now := s.now()
	if p.Locked(now) {
		return nil, ErrAccountLocked
	}
	if !p.IsActive {
		return nil, auth.ErrInvalidPassword
	}

	if err := auth.CheckPassword(password, p.PasswordHash); err != nil {
		state := LoginState{
			FailedLoginAttempts: p.FailedLoginAttempts + 1,
			LoginCount:          p.LoginCount,
		}
		if state.FailedLoginAttempts >= maxFailedLogins {
			until := now.Add(lockoutDuration)
			state.LockedUntil = &until
		}
		if uerr := s.repo.UpdateLoginState(ctx, p.ID, state); uerr != nil {
			log.Printf("level=WARN msg=\"record failed login\" patient_id=%s error=%v", p.ID, uerr)
		}
		return nil, err
	}

	state := LoginState{
		FailedLoginAttempts: 0,
		LastLogin:           &now,
		LoginCount:          p.LoginCount + 1,
	}
	if err := s.repo.UpdateLoginState(ctx, p.ID, state); err != nil {
		log.Printf("level=WARN msg=\"record login\" patient_id=%s error=%v", p.ID, err)
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

func validateRegister(req RegisterRequest, now time.Time) (time.Time, error) {
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

	var dob time.Time
	if req.DateOfBirth == "" {
		verr.Add("date_of_birth", "is required")
	} else {
		parsed, err := time.Parse("2006-01-02", req.DateOfBirth)
		switch {
		case err != nil:
			verr.Add("date_of_birth", "must use YYYY-MM-DD format")
		case parsed.After(now):
			verr.Add("date_of_birth", "must be in the past")
		case now.Sub(parsed) > maxPatientAgeYrs*365*24*time.Hour:
			verr.Add("date_of_birth", "is not a plausible date of birth")
		default:
			dob = parsed
		}
	}

	switch Gender(req.Gender) {
	case GenderMale, GenderFemale, GenderOther:
	default:
		verr.Add("gender", "must be one of: male, female, other")
	}

	if req.EmergencyContactPhone != "" && !validation.ValidPhone(req.EmergencyContactPhone) {
		verr.Add("emergency_contact_phone", "must be a valid phone number")
	}

	if err := verr.ErrOrNil(); err != nil {
		return time.Time{}, err
	}
	return dob, nil
}
