package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/metrics"

	"github.com/hibiken/asynq"
)

// ErrPermanent marks a handler failure that retrying cannot fix.
var ErrPermanent = errors.New("permanent task failure")

// Handlers processes decoded task payloads.
type Handlers interface {
	HandleSMS(ctx context.Context, payload SMSPayload) error
	HandleEmail(ctx context.Context, payload EmailPayload) error
	HandleCRMSync(ctx context.Context, payload CRMSyncPayload) error
	HandleEngagementCheck(ctx context.Context, payload EngagementPayload) error
}

type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, handlers Handlers, log *logger.Logger) (*Worker, error) {
	opt, err := RedisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	concurrency := cfg.GetWorkerConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency:    concurrency,
		Queues:         QueuePriorities,
		RetryDelayFunc: RetryDelay,
		ErrorHandler:   errorHandler(log),
		Logger:         asynqLogger{log: log},
	})

	w := &Worker{server: server, mux: NewServeMux(handlers, log), log: log}
	return w, nil
}

// NewServeMux routes each task type to its handler.
func NewServeMux(handlers Handlers, log *logger.Logger) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskSendSMS, handle(log, func(p SMSPayload) string { return p.LeadID }, handlers.HandleSMS))
	mux.HandleFunc(TaskSendEmail, handle(log, func(p EmailPayload) string { return p.LeadID }, handlers.HandleEmail))
	mux.HandleFunc(TaskCRMSync, handle(log, func(p CRMSyncPayload) string { return p.LeadID }, handlers.HandleCRMSync))
	mux.HandleFunc(TaskEngagementCheck, handle(log, func(p EngagementPayload) string { return p.LeadID }, handlers.HandleEngagementCheck))
	return mux
}

// handle decodes the payload, tags the context and records the outcome.
// Undecodable payloads are never retried.
func handle[T any](log *logger.Logger, leadOf func(T) string, fn func(context.Context, T) error) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		start := time.Now()
		payload, err := parsePayload[T](task)
		if err != nil {
			metrics.RecordJob(task.Type(), err, time.Since(start))
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}

		leadID := leadOf(payload)
		ctx = logger.ContextWithLead(ctx, leadID)
		if id, ok := asynq.GetTaskID(ctx); ok {
			ctx = context.WithValue(ctx, logger.TaskIDKey, id)
		}

		err = fn(ctx, payload)
		metrics.RecordJob(task.Type(), err, time.Since(start))
		log.WithContext(ctx).JobResult(task.Type(), leadID, err)
		if errors.Is(err, ErrPermanent) {
			return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
		}
		return err
	}
}

// RetryDelay applies the per-task-type exponential backoff.
func RetryDelay(retried int, _ error, task *asynq.Task) time.Duration {
	if policy, ok := PolicyFor(task.Type()); ok {
		return policy.Backoff(retried)
	}
	return asynq.DefaultRetryDelayFunc(retried, nil, task)
}

func errorHandler(log *logger.Logger) asynq.ErrorHandler {
	return asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
		retried, _ := asynq.GetRetryCount(ctx)
		maxRetry, _ := asynq.GetMaxRetry(ctx)
		if retried >= maxRetry || errors.Is(err, asynq.SkipRetry) {
			log.Error("task archived", "type", task.Type(), "retried", retried, "error", err)
		}
	})
}

// Run starts processing and blocks until ctx is cancelled, then waits for
// in-flight tasks to finish.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		w.log.Error("scheduler worker failed to start", "error", err)
		return err
	}
	w.log.Info("scheduler worker started")

	<-ctx.Done()
	w.server.Shutdown()
	w.log.Info("scheduler worker stopped")
	return nil
}

// asynqLogger routes asynq's internal logs through the application logger.
type asynqLogger struct {
	log *logger.Logger
}

func (l asynqLogger) Debug(args ...any) { l.log.Debug(fmt.Sprint(args...)) }
func (l asynqLogger) Info(args ...any)  { l.log.Info(fmt.Sprint(args...)) }
func (l asynqLogger) Warn(args ...any)  { l.log.Warn(fmt.Sprint(args...)) }
func (l asynqLogger) Error(args ...any) { l.log.Error(fmt.Sprint(args...)) }
func (l asynqLogger) Fatal(args ...any) { l.log.Error(fmt.Sprint(args...)) }
