package provider

import (
	"time"

	"github.com/google/uuid"
)

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

type Provider struct {
	ID                 uuid.UUID
	FirstName          string
	LastName           string
	Email              string
	PhoneNumber        string
	PasswordHash       string
	Specialization     string
	LicenseNumber      string
	YearsOfExperience  int
	ClinicStreet       string
	ClinicCity         string
	ClinicState        string
	ClinicZip          string
	VerificationStatus VerificationStatus
	IsActive           bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// FullName is the display name used in search results and notifications.
func (p *Provider) FullName() string {
	return "Dr. " + p.FirstName + " " + p.LastName
}
