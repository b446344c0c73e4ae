// Package crm pushes qualified leads into the sales team's CRM.
//
// Vendor calls report business failures (rejected payloads, unknown
// contacts) through Result and reserve the error return for transport
// faults, so callers can tell "the CRM said no" from "the CRM was unreachable".
package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lead_pipeline_backend/platform/config"
)

// ErrUnknownType is returned by New for an unsupported CRM_TYPE.
var ErrUnknownType = errors.New("unknown crm type")

// Contact is the vendor-neutral projection of a lead.
type Contact struct {
	ID           string
	Name         string
	Phone        string
	Email        string
	Source       string
	Score        int
	Status       string
	RentalType   string
	Timeline     string
	Budget       string
	Location     string
	GuestCount   string
	Tags         []string
	CustomFields map[string]string
}

// SplitName returns the first word and the remainder of the contact name.
func (c Contact) SplitName() (first, last string) {
	first, last, _ = strings.Cut(strings.TrimSpace(c.Name), " ")
	return first, strings.TrimSpace(last)
}

// Result is the outcome of a vendor operation.
type Result struct {
	Success   bool
	ContactID string
	Error     string
}

func ok(contactID string) Result {
	return Result{Success: true, ContactID: contactID}
}

func failed(format string, args ...any) Result {
	return Result{Error: fmt.Sprintf(format, args...)}
}

// Adapter is the capability set every CRM vendor implements. Lookups return
// a nil contact when nothing matches.
type Adapter interface {
	Name() string
	CreateContact(ctx context.Context, contact Contact) (Result, error)
	UpdateContact(ctx context.Context, contactID string, contact Contact) (Result, error)
	GetContact(ctx context.Context, contactID string) (*Contact, error)
	FindContactByPhone(ctx context.Context, phone string) (*Contact, error)
	AddNote(ctx context.Context, contactID, note string) (Result, error)
	AddTags(ctx context.Context, contactID string, tags []string) (Result, error)
	MoveToPipeline(ctx context.Context, contactID, pipelineID, stageID string) (Result, error)
}

// New selects the adapter named by cfg.GetCRMType().
func New(cfg config.CRMConfig) (Adapter, error) {
	switch strings.ToLower(cfg.GetCRMType()) {
	case "", config.CRMMock:
		return NewMock(), nil
	case config.CRMGoHighLevel:
		if cfg.GetGHLAPIKey() == "" || cfg.GetGHLLocationID() == "" {
			return nil, fmt.Errorf("gohighlevel requires an api key and location id")
		}
		return NewGoHighLevel(GoHighLevelBaseURL, cfg.GetGHLAPIKey(), cfg.GetGHLLocationID()), nil
	case config.CRMHubSpot:
		if cfg.GetHubSpotAPIKey() == "" {
			return nil, fmt.Errorf("hubspot requires an api key")
		}
		return NewHubSpot(HubSpotBaseURL, cfg.GetHubSpotAPIKey()), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, cfg.GetCRMType())
	}
}
