// Package notification provides event handlers for internal notifications
// sent in response to lead pipeline events.
// This module subscribes to events and inverts the dependency: the lead
// service never needs to know about email providers or templates.
package notification

import (
	"context"
	"strings"

	"lead_pipeline_backend/internal/email"
	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/metrics"
)

const messageSalesAlert = "sales_alert"

// Module handles notification-related event subscriptions.
type Module struct {
	sender email.Sender
	cfg    config.NotificationConfig
	log    *logger.Logger
}

// New creates a new notification module.
func New(sender email.Sender, cfg config.NotificationConfig, log *logger.Logger) *Module {
	return &Module{sender: sender, cfg: cfg, log: log}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to the events that trigger notifications.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.LeadTransferred{}.EventName(), m)
	bus.Subscribe(events.LeadQualified{}.EventName(), m)
}

// Handle routes events to the appropriate handler method.
// Delivery is best effort: failures are logged and never returned to the
// publisher.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.LeadTransferred:
		m.handleLeadTransferred(ctx, e)
	case events.LeadQualified:
		m.log.WithContext(ctx).Info("lead qualified", "lead_id", e.LeadID, "score", e.Score, "tier", e.Status)
	}
	return nil
}

func (m *Module) handleLeadTransferred(ctx context.Context, e events.LeadTransferred) {
	log := m.log.WithContext(ctx).WithLead(e.LeadID.String())
	to := strings.TrimSpace(m.cfg.GetSalesNotificationEmail())
	if to == "" {
		log.Debug("sales alert skipped, no notification address configured")
		return
	}

	msg, err := email.SalesAlertEmail(to, email.SalesAlert{
		LeadID:     e.LeadID.String(),
		LeadName:   e.Name,
		Phone:      e.Phone,
		Email:      e.Email,
		Source:     e.Source,
		Score:      e.Score,
		RentalType: e.RentalType,
		Budget:     e.Budget,
		Timeline:   e.Timeline,
	})
	if err != nil {
		log.Error("sales alert render failed", "error", err)
		return
	}

	messageID, err := m.sender.Send(ctx, msg)
	metrics.RecordMessage("email", messageSalesAlert, err == nil)
	if err != nil {
		log.Error("sales alert failed", "error", err, "provider", m.sender.Name())
		return
	}
	log.Info("sales alert sent", "message_id", messageID, "manual", e.Manual)
}
