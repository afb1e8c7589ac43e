package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const providerColumns = `id, first_name, last_name, email, phone_number, password_hash,
	specialization, license_number, years_of_experience,
	clinic_street, clinic_city, clinic_state, clinic_zip,
	verification_status, is_active, created_at, updated_at`

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func scanProvider(row pgx.Row) (*Provider, error) {
	var p Provider

	err := row.Scan(
		&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.PhoneNumber, &p.PasswordHash,
		&p.Specialization, &p.LicenseNumber, &p.YearsOfExperience,
		&p.ClinicStreet, &p.ClinicCity, &p.ClinicState, &p.ClinicZip,
		&p.VerificationStatus, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProviderNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PgRepository) Insert(ctx context.Context, p *Provider) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO providers (
			id, first_name, last_name, email, phone_number, password_hash,
			specialization, license_number, years_of_experience,
			clinic_street, clinic_city, clinic_state, clinic_zip,
			verification_status, is_active, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, now(), now())
	`, p.ID, p.FirstName, p.LastName, p.Email, p.PhoneNumber, p.PasswordHash,
		p.Specialization, p.LicenseNumber, p.YearsOfExperience,
		p.ClinicStreet, p.ClinicCity, p.ClinicState, p.ClinicZip,
		string(p.VerificationStatus), p.IsActive)
	if err != nil {
		return fmt.Errorf("insert provider: %w", err)
	}
	return nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (*Provider, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+providerColumns+`
		FROM providers
		WHERE id = $1
	`, id)
	return scanProvider(row)
}

func (r *PgRepository) GetByEmail(ctx context.Context, email string) (*Provider, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+providerColumns+`
		FROM providers
		WHERE email = $1
	`, email)
	return scanProvider(row)
}

func (r *PgRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM providers WHERE email = $1)`, email)
}

func (r *PgRepository) PhoneExists(ctx context.Context, phone string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM providers WHERE phone_number = $1)`, phone)
}

func (r *PgRepository) LicenseExists(ctx context.Context, license string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM providers WHERE license_number = $1)`, license)
}

func (r *PgRepository) exists(ctx context.Context, query string, arg any) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, query, arg).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

func (r *PgRepository) UpdateVerificationStatus(ctx context.Context, id uuid.UUID, status VerificationStatus) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE providers
		SET verification_status = $2,
		    updated_at = now()
		WHERE id = $1
	`, id, string(status))
	if err != nil {
		return fmt.Errorf("update verification status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrProviderNotFound
	}
	return nil
}
