// Package health reports database, queue and integration status.
package health

import (
	"context"
	"net/http"
	"time"

	apphttp "lead_pipeline_backend/internal/http"
	"lead_pipeline_backend/internal/scheduler"
	"lead_pipeline_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const (
	statusConnected    = "connected"
	statusDisconnected = "disconnected"
	probeTimeout       = 3 * time.Second
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueueInspector reports per-queue task counts.
type QueueInspector interface {
	Stats() (map[string]scheduler.QueueStats, error)
}

type Check struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type QueueCheck struct {
	Check
	Stats map[string]scheduler.QueueStats `json:"stats,omitempty"`
}

type Checks struct {
	Database Check             `json:"database"`
	Queues   QueueCheck        `json:"queues"`
	Services map[string]string `json:"services"`
}

type Report struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Checks    Checks    `json:"checks"`
}

// Healthy reports whether the database and the queue backend are reachable.
func (r Report) Healthy() bool {
	return r.Checks.Database.Status == statusConnected && r.Checks.Queues.Status == statusConnected
}

// Checker runs the probes. Any dependency may be nil, which reports it
// disconnected.
type Checker struct {
	db           Pinger
	redis        redis.UniversalClient
	queues       QueueInspector
	integrations func() map[string]string
	log          *logger.Logger
}

func NewChecker(db Pinger, rdb redis.UniversalClient, queues QueueInspector, integrations func() map[string]string, log *logger.Logger) *Checker {
	return &Checker{db: db, redis: rdb, queues: queues, integrations: integrations, log: log}
}

// Check probes every dependency concurrently.
func (c *Checker) Check(ctx context.Context) Report {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	var checks Checks
	var g errgroup.Group
	g.Go(func() error {
		checks.Database = c.checkDatabase(ctx)
		return nil
	})
	g.Go(func() error {
		checks.Queues = c.checkQueues(ctx)
		return nil
	})
	_ = g.Wait()

	checks.Services = map[string]string{}
	if c.integrations != nil {
		checks.Services = c.integrations()
	}

	report := Report{Status: "healthy", Timestamp: time.Now().UTC(), Checks: checks}
	if !report.Healthy() {
		report.Status = "degraded"
		c.log.WithContext(ctx).Warn("health check degraded",
			"database", checks.Database.Status, "queues", checks.Queues.Status)
	}
	return report
}

func (c *Checker) checkDatabase(ctx context.Context) Check {
	if c.db == nil {
		return Check{Status: statusDisconnected, Error: "not configured"}
	}
	if err := c.db.Ping(ctx); err != nil {
		return Check{Status: statusDisconnected, Error: err.Error()}
	}
	return Check{Status: statusConnected}
}

func (c *Checker) checkQueues(ctx context.Context) QueueCheck {
	if c.redis == nil || c.queues == nil {
		return QueueCheck{Check: Check{Status: statusDisconnected, Error: "not configured"}}
	}
	if err := c.redis.Ping(ctx).Err(); err != nil {
		return QueueCheck{Check: Check{Status: statusDisconnected, Error: err.Error()}}
	}
	stats, err := c.queues.Stats()
	if err != nil {
		return QueueCheck{Check: Check{Status: statusDisconnected, Error: err.Error()}}
	}
	return QueueCheck{Check: Check{Status: statusConnected}, Stats: stats}
}

// Module serves GET /api/health.
type Module struct {
	checker *Checker
}

func NewModule(checker *Checker) *Module {
	return &Module{checker: checker}
}

func (m *Module) Name() string { return "health" }

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.API.GET("/health", m.handle)
}

func (m *Module) handle(c *gin.Context) {
	report := m.checker.Check(c.Request.Context())
	status := http.StatusOK
	if !report.Healthy() {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}

var _ apphttp.Module = (*Module)(nil)
