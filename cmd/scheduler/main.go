package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"estate_crm_backend/internal/events"
	"estate_crm_backend/internal/interactions"
	"estate_crm_backend/internal/leads"
	"estate_crm_backend/internal/outreach"
	outreachrepo "estate_crm_backend/internal/outreach/repository"
	"estate_crm_backend/internal/preferences"
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

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	eventBus := events.NewInMemoryBus(log)
	val := validator.New()

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() { _ = client.Close() }()

	// Worker-side dispatch wiring (no HTTP handlers required). Recording
	// storage is not needed; background sends never touch recordings.
	leadsModule := leads.NewModule(pool, eventBus, val)
	interactionsModule := interactions.NewModule(pool, eventBus, val, nil, leadsModule.Repository())
	preferencesModule := preferences.NewModule(pool, outreachrepo.New(pool), val)

	// Subscribes score recalculation to the interaction events the worker
	// publishes when sends complete.
	_ = scoring.NewModule(pool, eventBus,
		leadsModule.Repository(), interactionsModule.Repository(), preferencesModule.Service(), cfg, log)

	outreachModule := outreach.NewModule(pool, eventBus, val,
		leadsModule.Repository(), preferencesModule.Service(), interactionsModule.Service(), client, cfg, log)

	sweepInterval := getDurationEnv("OUTREACH_SWEEP_INTERVAL", 30*time.Second)
	sweepBatch := getPositiveIntEnv("OUTREACH_SWEEP_BATCH_SIZE", 100)
	sweep := scheduler.NewDueSweep(pool, client, log, sweepInterval, sweepBatch)
	go sweep.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, outreachModule.Dispatcher(), log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
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

func getPositiveIntEnv(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
