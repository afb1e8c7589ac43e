package patient

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const patientColumns = `id, first_name, last_name, email, phone_number, password_hash,
	date_of_birth, gender, street, city, state, zip,
	emergency_contact_name, emergency_contact_phone,
	insurance_provider, insurance_policy_id,
	email_verified, phone_verified, is_active,
	last_login, failed_login_attempts, locked_until, login_count,
	created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.PhoneNumber, &p.PasswordHash,
		&p.DateOfBirth, &p.Gender, &p.Street, &p.City, &p.State, &p.Zip,
		&p.EmergencyContactName, &p.EmergencyContactPhone,
		&p.InsuranceProvider, &p.InsurancePolicyID,
		&p.EmailVerified, &p.PhoneVerified, &p.IsActive,
		&p.LastLogin, &p.FailedLoginAttempts, &p.LockedUntil, &p.LoginCount,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, fmt.Errorf("scan patient: %w", err)
	}
	return &p, nil
}

func (r *PgRepository) Insert(ctx context.Context, p *Patient) error {
	query := `
		INSERT INTO patients (
			id, first_name, last_name, email, phone_number, password_hash,
			date_of_birth, gender, street, city, state, zip,
			emergency_contact_name, emergency_contact_phone,
			insurance_provider, insurance_policy_id, is_active
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		p.ID, p.FirstName, p.LastName, p.Email, p.PhoneNumber, p.PasswordHash,
		p.DateOfBirth, p.Gender, p.Street, p.City, p.State, p.Zip,
		p.EmergencyContactName, p.EmergencyContactPhone,
		p.InsuranceProvider, p.InsurancePolicyID, p.IsActive,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE id = $1`, patientColumns)
	return scanPatient(r.pool.QueryRow(ctx, query, id))
}

func (r *PgRepository) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	query := fmt.Sprintf(`SELECT %s FROM patients WHERE email = $1`, patientColumns)
	return scanPatient(r.pool.QueryRow(ctx, query, email))
}

func (r *PgRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM patients WHERE email = $1)`, email)
}

func (r *PgRepository) PhoneExists(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM patients WHERE phone_number = $1)`, phone)
}

func (r *PgRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var found bool
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&found); err != nil {
		return false, fmt.Errorf("check patient existence: %w", err)
	}
	return found, nil
}

func (r *PgRepository) UpdateLoginState(ctx context.Context, id uuid.UUID, state LoginState) error {
	query := `
		UPDATE patients
		SET failed_login_attempts = $2,
		    locked_until = $3,
		    last_login = COALESCE($4, last_login),
		    login_count = $5,
		    updated_at = NOW()
		WHERE id = $1`

	tag, err := r.pool.Exec(ctx, query,
		id, state.FailedLoginAttempts, state.LockedUntil, state.LastLogin, state.LoginCount)
	if err != nil {
		return fmt.Errorf("update login state: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}
