// Package metrics provides Prometheus metrics for the lead pipeline.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "leadpipeline"

var (
	// LeadsIngested counts intake attempts by channel and outcome
	// (created, duplicate, rejected, failed).
	LeadsIngested = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "intake",
			Name:      "leads_total",
			Help:      "Total number of lead intake attempts by source and result",
		},
		[]string{"source", "result"},
	)

	// JobsProcessed counts background task executions.
	JobsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "jobs_processed_total",
			Help:      "Total number of background jobs processed by kind and status",
		},
		[]string{"kind", "status"},
	)

	// JobDuration tracks task handler latency.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "queue",
			Name:      "job_duration_seconds",
			Help:      "Duration of background job handlers in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	// MessagesSent counts outbound SMS and email by type and outcome.
	MessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "followup",
			Name:      "messages_total",
			Help:      "Total number of follow-up messages by channel, type and status",
		},
		[]string{"channel", "type", "status"},
	)

	// CRMSyncs counts CRM sync outcomes.
	CRMSyncs = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "crm",
			Name:      "syncs_total",
			Help:      "Total number of CRM sync attempts by action and status",
		},
		[]string{"action", "status"},
	)

	// HTTPRequests counts inbound requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by route and status code",
		},
		[]string{"method", "route", "status_code"},
	)
)

// RecordLeadIntake records one intake attempt.
func RecordLeadIntake(source, result string) {
	LeadsIngested.WithLabelValues(source, result).Inc()
}

// RecordJob records one task execution.
func RecordJob(kind string, err error, elapsed time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	JobsProcessed.WithLabelValues(kind, status).Inc()
	JobDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// RecordMessage records one outbound message attempt.
func RecordMessage(channel, messageType string, ok bool) {
	status := "sent"
	if !ok {
		status = "failed"
	}
	MessagesSent.WithLabelValues(channel, messageType, status).Inc()
}

// RecordCRMSync records one CRM sync attempt.
func RecordCRMSync(action string, ok bool) {
	status := "synced"
	if !ok {
		status = "failed"
	}
	CRMSyncs.WithLabelValues(action, status).Inc()
}

// GinMiddleware counts requests by matched route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		HTTPRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
	}
}

// Handler serves the Prometheus scrape endpoint.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
