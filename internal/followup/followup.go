// Package followup runs the delayed outreach tasks: qualification-link and
// nurture messages, CRM pushes and the link-engagement check.
package followup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"lead_pipeline_backend/internal/crm"
	"lead_pipeline_backend/internal/email"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/scheduler"
	"lead_pipeline_backend/internal/sms"
	"lead_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

// Store is the slice of the lead store the processors need.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	Mutate(ctx context.Context, id uuid.UUID, fn func(m *repository.Mutation) error) (repository.Lead, error)
	AddActivity(ctx context.Context, activity repository.NewActivity) error
	ReserveSMS(ctx context.Context, id uuid.UUID, max int) (bool, error)
	ReleaseSMS(ctx context.Context, id uuid.UUID) error
	ReserveEmail(ctx context.Context, id uuid.UUID, max int) (bool, error)
	ReleaseEmail(ctx context.Context, id uuid.UUID) error
}

// CRMSyncer pushes a lead to the CRM.
type CRMSyncer interface {
	Sync(ctx context.Context, leadID uuid.UUID, action crm.Action) (crm.SyncResult, error)
}

// Limits caps outbound follow-ups per lead.
type Limits struct {
	MaxSMS   int
	MaxEmail int
}

// Service implements scheduler.Handlers.
type Service struct {
	store  Store
	sms    sms.Sender
	email  email.Sender
	syncer CRMSyncer
	limits Limits
	log    *logger.Logger
	now    func() time.Time
}

var _ scheduler.Handlers = (*Service)(nil)

func New(store Store, smsSender sms.Sender, emailSender email.Sender, syncer CRMSyncer, limits Limits, log *logger.Logger) *Service {
	return &Service{
		store:  store,
		sms:    smsSender,
		email:  emailSender,
		syncer: syncer,
		limits: limits,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func parseLeadID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("lead id %q: %w", raw, scheduler.ErrPermanent)
	}
	return id, nil
}

// contactable reports why a lead must not receive nurture messages, or ""
// when it may.
func contactable(lead repository.Lead) string {
	switch {
	case lead.Status == domain.StatusDoNotContact:
		return "do_not_contact"
	case lead.IsCompleted():
		return "already_qualified"
	case lead.QualificationLink == nil || *lead.QualificationLink == "":
		return "no_qualification_link"
	}
	return ""
}

// HandleCRMSync pushes the lead. Vendor rejections are retried like
// transport faults; a lead that no longer exists is not.
func (s *Service) HandleCRMSync(ctx context.Context, payload scheduler.CRMSyncPayload) error {
	id, err := parseLeadID(payload.LeadID)
	if err != nil {
		return err
	}

	result, err := s.syncer.Sync(ctx, id, crm.ParseAction(payload.Action))
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("crm sync: %w: %v", scheduler.ErrPermanent, err)
	}
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("crm rejected lead: %s", result.Error)
	}
	return nil
}
