// Package leads provides the lead pipeline bounded context module.
// This file defines the module that encapsulates leads setup and route registration.
package leads

import (
	apphttp "lead_pipeline_backend/internal/http"
	"lead_pipeline_backend/internal/leads/handler"
	"lead_pipeline_backend/internal/leads/service"
	"lead_pipeline_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	service *service.Service
	handler *handler.Handler
	public  *handler.PublicHandler
}

// NewModule creates the lead service and its handlers.
func NewModule(deps service.Deps, val *validator.Validator) *Module {
	svc := service.New(deps)
	return &Module{
		service: svc,
		handler: handler.New(svc, val),
		public:  handler.NewPublicHandler(svc, val),
	}
}

// Service exposes the lead service for other modules (webhook intake).
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes mounts the management API, the qualification callbacks and
// the public capture form.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"))
	m.public.RegisterCallbacks(ctx.Webhooks)
	ctx.API.POST("/lead-capture", ctx.CaptureLimiter.RateLimit(), m.public.Capture)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
