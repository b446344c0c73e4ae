// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"lead_pipeline_backend/platform/events"

	"github.com/google/uuid"
)

type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Pipeline Events
// =============================================================================

// LeadCreated is published after a new lead is persisted and scored.
type LeadCreated struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Source string    `json:"source"`
	Score  int       `json:"score"`
	Status string    `json:"status"`
}

func (e LeadCreated) EventName() string { return "lead.created" }

// LeadDuplicate is published when intake matched an existing lead.
type LeadDuplicate struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Source string    `json:"source"`
}

func (e LeadDuplicate) EventName() string { return "lead.duplicate" }

// LeadQualified is published when a lead submits the qualification form.
type LeadQualified struct {
	BaseEvent
	LeadID uuid.UUID `json:"leadId"`
	Score  int       `json:"score"`
	Status string    `json:"status"`
}

func (e LeadQualified) EventName() string { return "lead.qualified" }

// LeadStatusChanged is published whenever a lead moves between status tiers.
type LeadStatusChanged struct {
	BaseEvent
	LeadID    uuid.UUID `json:"leadId"`
	OldStatus string    `json:"oldStatus"`
	NewStatus string    `json:"newStatus"`
}

func (e LeadStatusChanged) EventName() string { return "lead.status_changed" }

// LeadTransferred is published when a lead is handed to the sales team.
type LeadTransferred struct {
	BaseEvent
	LeadID     uuid.UUID `json:"leadId"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	Email      string    `json:"email,omitempty"`
	Source     string    `json:"source"`
	Score      int       `json:"score"`
	RentalType string    `json:"rentalType,omitempty"`
	Budget     string    `json:"budget,omitempty"`
	Timeline   string    `json:"timeline,omitempty"`
	Manual     bool      `json:"manual"`
}

func (e LeadTransferred) EventName() string { return "lead.transferred" }
