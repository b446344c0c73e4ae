// Package httpkit provides HTTP middleware infrastructure.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// HeaderAPIKey carries the management API shared secret.
	HeaderAPIKey = "X-API-Key"
	// QueryAPIKey is the query-string fallback for HeaderAPIKey.
	QueryAPIKey = "api_key"
	// HeaderRequestID is echoed back on every response.
	HeaderRequestID = "X-Request-ID"

	msgUnauthorized = "Unauthorized"
)

// RequestID assigns a request id and stores it on the request context.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		ctx := context.WithValue(c.Request.Context(), logger.RequestIDKey, id)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs HTTP requests with timing and any attached errors.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()
		clientIP := c.ClientIP()

		reqLog := log.WithContext(c.Request.Context())
		reqLog.HTTPRequest(c.Request.Method, path, status, float64(latency.Milliseconds()), clientIP)
		for _, ginErr := range c.Errors {
			reqLog.Error("request_error",
				slog.String("path", path),
				slog.Int("status", status),
				slog.String("error", ginErr.Error()),
			)
		}
	}
}

// SecurityHeaders adds security headers to responses.
func SecurityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Header("Content-Security-Policy", "default-src 'none'")

		if c.Request.TLS != nil {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		c.Next()
	}
}

// IPRateLimiter manages per-IP token buckets.
type IPRateLimiter struct {
	limiters sync.Map
	rate     rate.Limit
	burst    int
	log      *logger.Logger
}

// NewIPRateLimiter creates a new IP-based rate limiter.
func NewIPRateLimiter(r rate.Limit, burst int, log *logger.Logger) *IPRateLimiter {
	return &IPRateLimiter{
		rate:  r,
		burst: burst,
		log:   log,
	}
}

func (i *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	limiter, _ := i.limiters.LoadOrStore(ip, rate.NewLimiter(i.rate, i.burst))
	return limiter.(*rate.Limiter)
}

// RateLimit returns a middleware that rate limits by IP.
func (i *IPRateLimiter) RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		if !i.getLimiter(ip).Allow() {
			if i.log != nil {
				i.log.RateLimitExceeded(ip, c.Request.URL.Path)
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests, please try again shortly"})
			return
		}

		c.Next()
	}
}

// ValidAPIKey reports whether the request carries the configured key in the
// X-API-Key header or the api_key query parameter.
func ValidAPIKey(c *gin.Context, expected string) bool {
	if expected == "" {
		return false
	}
	provided := c.GetHeader(HeaderAPIKey)
	if provided == "" {
		provided = c.Query(QueryAPIKey)
	}
	return subtle.ConstantTimeCompare([]byte(provided), []byte(expected)) == 1
}

// APIKeyRequired rejects requests without a valid shared secret.
func APIKeyRequired(cfg config.APIKeyConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ValidAPIKey(c, cfg.GetAPIKey()) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: msgUnauthorized})
			return
		}
		c.Next()
	}
}
