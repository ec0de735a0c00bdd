package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"estate_crm_backend/internal/adapters/storage"
	"estate_crm_backend/internal/analytics"
	"estate_crm_backend/internal/events"
	apphttp "estate_crm_backend/internal/http"
	"estate_crm_backend/internal/http/router"
	"estate_crm_backend/internal/interactions"
	interactionservice "estate_crm_backend/internal/interactions/service"
	"estate_crm_backend/internal/leads"
	"estate_crm_backend/internal/outreach"
	outreachrepo "estate_crm_backend/internal/outreach/repository"
	outreachservice "estate_crm_backend/internal/outreach/service"
	"estate_crm_backend/internal/preferences"
	"estate_crm_backend/internal/projects"
	"estate_crm_backend/internal/scheduler"
	"estate_crm_backend/internal/scoring"
	"estate_crm_backend/platform/config"
	"estate_crm_backend/platform/db"
	"estate_crm_backend/platform/logger"
	"estate_crm_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// Call recording storage (MinIO); optional, recording endpoints are
	// disabled when unconfigured.
	recordings := initRecordingStore(ctx, cfg, log)

	// Outreach task queue client; optional, scheduled sends then rely on
	// the scheduler's due sweep alone.
	enqueuer, closeEnqueuer := initOutreachEnqueuer(cfg, log)
	if closeEnqueuer != nil {
		defer closeEnqueuer()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	leadsModule := leads.NewModule(pool, eventBus, val)

	interactionsModule := interactions.NewModule(pool, eventBus, val, recordings, leadsModule.Repository())

	// The preference daily-cap check counts dispatched outreach attempts.
	attemptCounter := outreachrepo.New(pool)
	preferencesModule := preferences.NewModule(pool, attemptCounter, val)

	scoringModule := scoring.NewModule(pool, eventBus,
		leadsModule.Repository(), interactionsModule.Repository(), preferencesModule.Service(), cfg, log)

	outreachModule := outreach.NewModule(pool, eventBus, val,
		leadsModule.Repository(), preferencesModule.Service(), interactionsModule.Service(), enqueuer, cfg, log)

	projectsModule := projects.NewModule(pool, eventBus, val, log)

	analyticsModule := analytics.NewModule(pool)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			interactionsModule,
			preferencesModule,
			scoringModule,
			outreachModule,
			projectsModule,
			analyticsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initRecordingStore(ctx context.Context, cfg *config.Config, log *logger.Logger) interactionservice.RecordingStore {
	if !cfg.IsMinIOEnabled() {
		log.Warn("MINIO_ENDPOINT not configured; call recording storage disabled")
		return nil
	}

	store, err := storage.NewRecordingStore(cfg)
	if err != nil {
		log.Error("failed to initialize recording storage", "error", err)
		panic("failed to initialize recording storage: " + err.Error())
	}

	if err := withRetry(ctx, log, "ensure recordings bucket", 5, 2*time.Second, func() error {
		return store.EnsureBucket(ctx)
	}); err != nil {
		log.Error("failed to ensure recordings bucket exists", "error", err)
		panic("failed to ensure recordings bucket exists: " + err.Error())
	}

	log.Info("recording storage initialized", "bucket", cfg.GetMinioBucketCallRecordings())
	return store
}

func initOutreachEnqueuer(cfg config.SchedulerConfig, log *logger.Logger) (outreachservice.Enqueuer, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; background outreach dispatch disabled")
		return nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
