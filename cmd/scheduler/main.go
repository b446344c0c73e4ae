package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_pipeline_backend/internal/crm"
	"lead_pipeline_backend/internal/email"
	"lead_pipeline_backend/internal/followup"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/scheduler"
	"lead_pipeline_backend/internal/sms"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/db"
	"lead_pipeline_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env, "integrations", cfg.IntegrationStatus())

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

	smsSender, err := sms.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize sms sender", "error", err)
		panic("failed to initialize sms sender: " + err.Error())
	}
	emailSender, err := email.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}
	crmAdapter, err := crm.New(cfg)
	if err != nil {
		log.Error("failed to initialize CRM adapter", "error", err)
		panic("failed to initialize CRM adapter: " + err.Error())
	}

	store := repository.New(pool)
	syncer := crm.NewSyncer(store, crmAdapter, crm.Pipeline{ID: cfg.GetGHLPipelineID(), StageID: cfg.GetGHLStageID()}, log)
	followups := followup.New(store, smsSender, emailSender, syncer, followup.Limits{
		MaxSMS:   cfg.GetMaxSMSCount(),
		MaxEmail: cfg.GetMaxEmailCount(),
	}, log)

	worker, err := scheduler.NewWorker(cfg, followups, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	if err := worker.Run(ctx); err != nil {
		panic("scheduler worker error: " + err.Error())
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
