// Package webhook provides the inbound lead channel webhooks.
// This file defines the module that encapsulates all webhook setup and route registration.
package webhook

import (
	apphttp "lead_pipeline_backend/internal/http"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/httpkit"
	"lead_pipeline_backend/platform/logger"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	cfg     config.WebhookConfig
}

// NewModule creates the webhook module on top of the lead intake service.
func NewModule(ingester Ingester, cfg config.WebhookConfig, log *logger.Logger) *Module {
	return &Module{
		handler: NewHandler(ingester, cfg, log),
		cfg:     cfg,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the channel webhooks under /api/webhooks.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	wh := ctx.Webhooks

	// Meta and TikTok authenticate with their own handshakes
	wh.GET("/meta", m.handler.HandleMetaVerify)
	wh.POST("/meta", m.handler.HandleMeta)
	wh.GET("/tiktok", m.handler.HandleTikTokVerify)
	wh.POST("/tiktok", m.handler.HandleTikTok)

	// Google accepts either the API key or its payload google_key
	wh.POST("/google", m.handler.HandleGoogle)

	wh.POST("/lead-intake", httpkit.APIKeyRequired(m.cfg), m.handler.HandleLeadIntake)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
