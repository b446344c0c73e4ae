// Package logger provides structured logging for the API and worker processes.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

type contextKey string

const (
	// RequestIDKey carries the HTTP request id.
	RequestIDKey contextKey = "request_id"
	// LeadIDKey carries the lead being processed.
	LeadIDKey contextKey = "lead_id"
	// TaskIDKey carries the background task id.
	TaskIDKey contextKey = "task_id"
)

// Logger wraps slog.Logger.
type Logger struct {
	*slog.Logger
}

// New returns a text logger at debug level in development and a JSON
// logger at info level everywhere else.
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(env string, w io.Writer) *Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}

	var handler slog.Handler
	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithContext copies request, lead and task identifiers from ctx.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}
	out := l
	for _, key := range []contextKey{RequestIDKey, LeadIDKey, TaskIDKey} {
		if v, ok := ctx.Value(key).(string); ok && v != "" {
			out = &Logger{Logger: out.With(slog.String(string(key), v))}
		}
	}
	return out
}

// WithLead returns a logger tagged with a lead id.
func (l *Logger) WithLead(leadID string) *Logger {
	return &Logger{Logger: l.With(slog.String("lead_id", leadID))}
}

// ContextWithLead stores the lead id for WithContext.
func ContextWithLead(ctx context.Context, leadID string) context.Context {
	return context.WithValue(ctx, LeadIDKey, leadID)
}

// HTTPRequest logs an access line.
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// JobResult logs the outcome of a background task.
func (l *Logger) JobResult(kind, leadID string, err error) {
	if err != nil {
		l.Warn("job_failed",
			slog.String("kind", kind),
			slog.String("lead_id", leadID),
			slog.String("error", err.Error()),
		)
		return
	}
	l.Debug("job_done", slog.String("kind", kind), slog.String("lead_id", leadID))
}

// RateLimitExceeded logs a throttled request.
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
