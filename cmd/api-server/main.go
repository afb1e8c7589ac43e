package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/healthfirst/scheduling/internal/api"
	"github.com/healthfirst/scheduling/internal/auth"
	"github.com/healthfirst/scheduling/internal/availability"
	"github.com/healthfirst/scheduling/internal/config"
	"github.com/healthfirst/scheduling/internal/db"
	"github.com/healthfirst/scheduling/internal/metrics"
	"github.com/healthfirst/scheduling/internal/patient"
	"github.com/healthfirst/scheduling/internal/provider"
	redisclient "github.com/healthfirst/scheduling/internal/redis"
)

const version = "1.0.0"

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("api-server starting up")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	log.Printf("running in env=%s http_port=%s", cfg.Env, cfg.HTTPPort)

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatalf("postgres connection error: %v", err)
	}
	defer pgPool.Close()
	log.Println("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("redis connection error: %v", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Printf("error closing redis: %v", err)
		}
	}()
	log.Println("connected to Redis")

	providerSvc := provider.NewService(provider.NewPgRepository(pgPool), cfg.BcryptCost)
	patientSvc := patient.NewService(patient.NewPgRepository(pgPool), cfg.BcryptCost)

	locker := redisclient.NewRedisScheduleLocker(rdb, cfg.LockTTL)
	schedMetrics := metrics.NewSchedulingMetrics(nil)
	engine := availability.NewEngine(availability.NewPgStorage(pgPool), locker, providerSvc, schedMetrics)

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	router := api.NewRouter(api.RouterConfig{
		Engine:    engine,
		Providers: providerSvc,
		Patients:  patientSvc,
		Tokens:    tokens,
		PgPool:    pgPool,
		Redis:     rdb,
		Env:       cfg.Env,
		Version:   version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Printf("listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()

	<-rootCtx.Done()

	log.Println("shutting down api-server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
}
