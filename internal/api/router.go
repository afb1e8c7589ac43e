package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/healthfirst/scheduling/internal/auth"
	"github.com/healthfirst/scheduling/internal/availability"
	"github.com/healthfirst/scheduling/internal/patient"
	"github.com/healthfirst/scheduling/internal/provider"
)

type RouterConfig struct {
	Engine    *availability.Engine
	Providers *provider.Service
	Patients  *patient.Service
	Tokens    *auth.TokenManager
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/providers/register", registerProviderHandler(cfg.Providers))
		r.Post("/patients/register", registerPatientHandler(cfg.Patients))
		r.Post("/auth/login", loginHandler(cfg.Providers, cfg.Patients, cfg.Tokens))
		r.Get("/availability/search", searchAvailabilityHandler(cfg.Engine))

		// Authenticated endpoints
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.Tokens))

			r.Get("/providers/{providerID}", getProviderHandler(cfg.Providers))
			r.Get("/providers/{providerID}/availability", getAvailabilityHandler(cfg.Engine))
			r.Get("/providers/{providerID}/availability/summary", availabilitySummaryHandler(cfg.Engine))
			r.Get("/providers/{providerID}/availability/conflicts", availabilityConflictsHandler(cfg.Engine))

			r.Post("/availability/slots/{slotID}/book", bookSlotHandler(cfg.Engine))

			// Provider-only schedule management
			r.Group(func(r chi.Router) {
				r.Use(RequireRole(auth.RoleProvider))

				r.Post("/providers/{providerID}/availability", createAvailabilityHandler(cfg.Engine))
				r.Put("/providers/{providerID}/verification", updateVerificationHandler(cfg.Providers))
				r.Put("/availability/slots/{slotID}", updateSlotHandler(cfg.Engine))
				r.Delete("/availability/slots/{slotID}", deleteSlotHandler(cfg.Engine))
				r.Post("/availability/slots/bulk-update", bulkUpdateSlotsHandler(cfg.Engine))
				r.Delete("/availability/series/{seriesID}", deleteSeriesHandler(cfg.Engine))
			})
		})
	})

	return r
}
