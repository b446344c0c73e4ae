package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/service"
	"lead_pipeline_backend/internal/leads/transport"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/httpkit"
	"lead_pipeline_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderLeadSource overrides the channel on the generic intake endpoint.
	HeaderLeadSource = "X-Lead-Source"

	maxBodyBytes        = 1 << 20
	errInvalidBody      = "Invalid request body"
	errForbidden        = "Forbidden"
	errMissingChallenge = "Missing challenge"
)

// Ingester runs a raw channel payload through intake.
type Ingester interface {
	Ingest(ctx context.Context, source string, raw []byte) (service.IntakeResult, error)
}

// Handler handles inbound channel webhooks.
type Handler struct {
	ingester Ingester
	cfg      config.WebhookConfig
	log      *logger.Logger
}

// NewHandler creates a new webhook handler.
func NewHandler(ingester Ingester, cfg config.WebhookConfig, log *logger.Logger) *Handler {
	return &Handler{ingester: ingester, cfg: cfg, log: log}
}

// readBody returns the raw request body, capped at maxBodyBytes.
func readBody(c *gin.Context) ([]byte, bool) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil || !json.Valid(raw) {
		httpkit.Error(c, http.StatusBadRequest, errInvalidBody, nil)
		return nil, false
	}
	return raw, true
}

func (h *Handler) ingest(c *gin.Context, source string, raw []byte) {
	result, err := h.ingester.Ingest(c.Request.Context(), source, raw)
	if httpkit.HandleError(c, err) {
		h.log.WithContext(c.Request.Context()).Warn("webhook lead rejected", "source", source, "error", err)
		return
	}
	httpkit.OK(c, transport.IntakeResponse{Success: true, LeadID: result.LeadID, Existing: result.Existing})
}

// ---- Meta ----

// HandleMetaVerify answers the subscription handshake.
// GET /api/webhooks/meta
func (h *Handler) HandleMetaVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	expected := h.cfg.GetMetaVerifyToken()

	if mode == "subscribe" && expected != "" && token == expected {
		h.log.Info("meta webhook verified")
		c.String(http.StatusOK, c.Query("hub.challenge"))
		return
	}
	h.log.Warn("meta webhook verification failed", "mode", mode)
	httpkit.Error(c, http.StatusForbidden, errForbidden, nil)
}

// HandleMeta accepts a lead notification. Meta disables webhooks that keep
// failing, so every outcome answers 200 and errors are only logged.
// POST /api/webhooks/meta
func (h *Handler) HandleMeta(c *gin.Context) {
	ctx := c.Request.Context()
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		h.log.WithContext(ctx).Error("meta webhook read failed", "error", err)
		httpkit.OK(c, gin.H{"success": true})
		return
	}

	result, err := h.ingester.Ingest(ctx, string(domain.SourceMeta), raw)
	if err != nil {
		h.log.WithContext(ctx).Error("meta webhook lead failed", "error", err)
	} else {
		h.log.WithContext(ctx).Info("meta webhook lead processed", "lead_id", result.LeadID, "existing", result.Existing)
	}
	httpkit.OK(c, gin.H{"success": true})
}

// ---- TikTok ----

// HandleTikTokVerify echoes the challenge parameter.
// GET /api/webhooks/tiktok
func (h *Handler) HandleTikTokVerify(c *gin.Context) {
	challenge := c.Query("challenge")
	if challenge == "" {
		httpkit.Error(c, http.StatusBadRequest, errMissingChallenge, nil)
		return
	}
	c.String(http.StatusOK, challenge)
}

// HandleTikTok processes a TikTok lead event.
// POST /api/webhooks/tiktok
func (h *Handler) HandleTikTok(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	h.ingest(c, string(domain.SourceTikTok), raw)
}

// ---- Google ----

// HandleGoogle processes a Google Ads lead form delivery. Authentication is
// either the shared API key or the google_key configured on the lead form.
// POST /api/webhooks/google
func (h *Handler) HandleGoogle(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	if !httpkit.ValidAPIKey(c, h.cfg.GetAPIKey()) && !validGoogleKey(raw, h.cfg.GetGoogleWebhookKey()) {
		httpkit.Error(c, http.StatusUnauthorized, "Unauthorized", nil)
		return
	}
	h.ingest(c, string(domain.SourceGoogle), raw)
}

// ---- Generic intake ----

// HandleLeadIntake accepts a flat lead from partner integrations. The
// channel comes from the X-Lead-Source header, then the body's source
// field, then defaults to DIRECT.
// POST /api/webhooks/lead-intake
func (h *Handler) HandleLeadIntake(c *gin.Context) {
	raw, ok := readBody(c)
	if !ok {
		return
	}
	h.ingest(c, intakeSource(c.GetHeader(HeaderLeadSource), raw), raw)
}

func intakeSource(header string, raw []byte) string {
	if s := strings.TrimSpace(header); s != "" {
		return s
	}
	var body struct {
		Source string `json:"source"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && strings.TrimSpace(body.Source) != "" {
		return strings.TrimSpace(body.Source)
	}
	return string(domain.SourceDirect)
}
