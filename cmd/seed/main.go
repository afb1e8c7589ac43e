package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/healthfirst/scheduling/internal/auth"
	"github.com/healthfirst/scheduling/internal/availability"
	"github.com/healthfirst/scheduling/internal/db"
	"github.com/healthfirst/scheduling/internal/patient"
	"github.com/healthfirst/scheduling/internal/provider"
)

// Every seeded account gets the same password so local testing is easy.
const seedPassword = "Password123!"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	providerIDs, err := seedProviders(context.Background(), pool, 25)
	if err != nil {
		log.Fatalf("seed providers: %v", err)
	}
	if err := seedPatients(context.Background(), pool, 500); err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, providerIDs); err != nil {
		log.Fatalf("seed availability: %v", err)
	}

	log.Println("seed complete")
}

func seedProviders(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d providers", count)

	specializations := []string{
		"Dermatology",
		"Cardiology",
		"General Practice",
		"Orthopedics",
		"Endocrinology",
		"Neurology",
		"Pediatrics",
		"Psychiatry",
	}

	hash, err := auth.HashPassword(seedPassword, 4)
	if err != nil {
		return nil, err
	}

	repo := provider.NewPgRepository(pool)
	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		p := &provider.Provider{
			ID:                 uuid.New(),
			FirstName:          gofakeit.FirstName(),
			LastName:           gofakeit.LastName(),
			Email:              fmt.Sprintf("provider%d@%s", i, gofakeit.DomainName()),
			PhoneNumber:        gofakeit.Phone(),
			PasswordHash:       hash,
			Specialization:     specializations[gofakeit.Number(0, len(specializations)-1)],
			LicenseNumber:      fmt.Sprintf("LIC-%06d", i),
			YearsOfExperience:  gofakeit.Number(1, 35),
			ClinicStreet:       gofakeit.Street(),
			ClinicCity:         gofakeit.City(),
			ClinicState:        gofakeit.StateAbr(),
			ClinicZip:          gofakeit.Zip(),
			VerificationStatus: provider.VerificationVerified,
			IsActive:           true,
		}
		if err := repo.Insert(ctx, p); err != nil {
			return nil, err
		}
		ids = append(ids, p.ID)
	}

	log.Println("providers seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding %d patients", count)

	hash, err := auth.HashPassword(seedPassword, 4)
	if err != nil {
		return err
	}

	genders := []patient.Gender{patient.GenderMale, patient.GenderFemale, patient.GenderOther}

	repo := patient.NewPgRepository(pool)
	for i := 0; i < count; i++ {
		p := &patient.Patient{
			ID:                uuid.New(),
			FirstName:         gofakeit.FirstName(),
			LastName:          gofakeit.LastName(),
			Email:             fmt.Sprintf("patient%d@%s", i, gofakeit.DomainName()),
			PhoneNumber:       gofakeit.Phone(),
			PasswordHash:      hash,
			DateOfBirth:       gofakeit.DateRange(time.Date(1940, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2007, 12, 31, 0, 0, 0, 0, time.UTC)),
			Gender:            genders[gofakeit.Number(0, len(genders)-1)],
			Street:            gofakeit.Street(),
			City:              gofakeit.City(),
			State:             gofakeit.StateAbr(),
			Zip:               gofakeit.Zip(),
			InsuranceProvider: gofakeit.Company(),
			InsurancePolicyID: fmt.Sprintf("POL-%08d", gofakeit.Number(0, 99999999)),
			IsActive:          true,
		}
		if err := repo.Insert(ctx, p); err != nil {
			return err
		}
		if (i+1)%100 == 0 {
			log.Printf("patients seeded: %d/%d", i+1, count)
		}
	}

	log.Println("patients seeded")
	return nil
}

// seedAvailability creates a two-week weekday schedule for each provider
// directly through the engine so slots and conflicts behave as in production.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, providerIDs []uuid.UUID) error {
	log.Printf("seeding availability for %d providers", len(providerIDs))

	engine := availability.NewEngine(availability.NewPgStorage(pool), noopLocker{}, nil, nil)

	start := time.Now().UTC().AddDate(0, 0, 1)
	end := start.AddDate(0, 0, 14)
	types := []availability.AppointmentType{
		availability.TypeConsultation,
		availability.TypeFollowUp,
		availability.TypeTelemedicine,
	}

	for _, pid := range providerIDs {
		req := availability.CreateAvailabilityRequest{
			Date:                   start.Format("2006-01-02"),
			StartTime:              "09:00",
			EndTime:                "17:00",
			Timezone:               "America/New_York",
			SlotDuration:           30,
			BreakDuration:          0,
			IsRecurring:            true,
			RecurrencePattern:      availability.RecurDaily,
			RecurrenceEndDate:      end.Format("2006-01-02"),
			AppointmentType:        types[gofakeit.Number(0, len(types)-1)],
			MaxAppointmentsPerSlot: 1,
			Location: &availability.Location{
				Type:       availability.LocationClinic,
				Address:    gofakeit.Street(),
				RoomNumber: fmt.Sprintf("%d", gofakeit.Number(100, 499)),
			},
			Pricing: &availability.Pricing{
				BaseFee:           float64(gofakeit.Number(75, 300)),
				InsuranceAccepted: gofakeit.Bool(),
				Currency:          "USD",
			},
		}
		if _, err := engine.CreateAvailability(ctx, pid, req); err != nil {
			return fmt.Errorf("create availability for %s: %w", pid, err)
		}
	}

	log.Println("availability seeded")
	return nil
}

type noopLocker struct{}

func (noopLocker) WithScheduleLock(ctx context.Context, _ uuid.UUID, _ time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
