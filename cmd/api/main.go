package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lead_pipeline_backend/internal/crm"
	"lead_pipeline_backend/internal/email"
	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/internal/health"
	apphttp "lead_pipeline_backend/internal/http"
	"lead_pipeline_backend/internal/http/router"
	"lead_pipeline_backend/internal/leads"
	"lead_pipeline_backend/internal/leads/normalizer"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/leads/scoring"
	"lead_pipeline_backend/internal/leads/service"
	"lead_pipeline_backend/internal/notification"
	"lead_pipeline_backend/internal/scheduler"
	"lead_pipeline_backend/internal/webhook"
	"lead_pipeline_backend/migrations"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/db"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
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
		return db.RunMigrations(ctx, cfg, migrations.FS)
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

	taskClient, rdb, inspector := initQueue(cfg, log)
	defer func() {
		_ = taskClient.Close()
		if rdb != nil {
			_ = rdb.Close()
		}
		if inspector != nil {
			_ = inspector.Close()
		}
	}()

	sender, err := email.New(cfg, log)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}

	crmAdapter, err := crm.New(cfg)
	if err != nil {
		log.Error("failed to initialize CRM adapter", "error", err)
		panic("failed to initialize CRM adapter: " + err.Error())
	}

	engine, err := scoring.NewEngineFromConfig(cfg)
	if err != nil {
		log.Error("failed to load scoring rules", "error", err)
		panic("failed to load scoring rules: " + err.Error())
	}

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	store := repository.New(pool)

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.New(sender, cfg, log)
	notificationModule.RegisterHandlers(eventBus)

	syncer := crm.NewSyncer(store, crmAdapter, crm.Pipeline{ID: cfg.GetGHLPipelineID(), StageID: cfg.GetGHLStageID()}, log)
	leadsModule := leads.NewModule(service.Deps{
		Store:      store,
		Normalizer: normalizer.New(normalizer.NewGraphFetcher(cfg.GetMetaGraphBaseURL(), cfg.GetMetaAccessToken())),
		Engine:     engine,
		Scheduler:  taskClient,
		Syncer:     syncer,
		Bus:        eventBus,
		Settings:   service.SettingsFromConfig(cfg),
		Log:        log,
	}, val)
	webhookModule := webhook.NewModule(leadsModule.Service(), cfg, log)

	var queues health.QueueInspector
	if inspector != nil {
		queues = inspector
	}
	var redisProbe redis.UniversalClient
	if rdb != nil {
		redisProbe = rdb
	}
	healthModule := health.NewModule(health.NewChecker(db.NewPoolAdapter(pool), redisProbe, queues, cfg.IntegrationStatus, log))

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		EventBus: eventBus,
		Modules: []apphttp.Module{
			healthModule,
			leadsModule,
			webhookModule,
		},
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router.New(app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
		eventBus.Wait()
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initQueue connects the task client, the health probe client and the queue
// inspector. Without Redis the client is a no-op and health reports the
// queues disconnected.
func initQueue(cfg config.SchedulerConfig, log *logger.Logger) (*scheduler.Client, *redis.Client, *scheduler.Inspector) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; follow-up scheduling disabled")
		return nil, nil, nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		return nil, nil, nil
	}
	rdb, err := scheduler.NewRedisClient(cfg.GetRedisURL())
	if err != nil {
		log.Error("failed to initialize redis client", "error", err)
		return client, nil, nil
	}
	inspector, err := scheduler.NewInspector(cfg)
	if err != nil {
		log.Error("failed to initialize queue inspector", "error", err)
		return client, rdb, nil
	}
	return client, rdb, inspector
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
