package crm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/metrics"

	"github.com/google/uuid"
)

// Action selects how a lead is pushed.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
)

// ParseAction defaults unknown values to create.
func ParseAction(s string) Action {
	if Action(strings.ToLower(s)) == ActionUpdate {
		return ActionUpdate
	}
	return ActionCreate
}

// LeadStore is the slice of the lead store the syncer needs.
type LeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (repository.Lead, error)
	Mutate(ctx context.Context, id uuid.UUID, fn func(m *repository.Mutation) error) (repository.Lead, error)
	AddActivity(ctx context.Context, activity repository.NewActivity) error
}

// Pipeline places newly created contacts into a sales pipeline stage.
type Pipeline struct {
	ID      string
	StageID string
}

// SyncResult is reported to the manual sync endpoint and the job processor.
type SyncResult struct {
	Success bool
	CRMID   string
	Error   string
}

// Syncer pushes a stored lead to the configured CRM and records the outcome.
type Syncer struct {
	store    LeadStore
	adapter  Adapter
	pipeline Pipeline
	log      *logger.Logger
	now      func() time.Time
}

func NewSyncer(store LeadStore, adapter Adapter, pipeline Pipeline, log *logger.Logger) *Syncer {
	return &Syncer{
		store:    store,
		adapter:  adapter,
		pipeline: pipeline,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// ContactFromLead projects a lead into the vendor-neutral contact shape.
func ContactFromLead(lead repository.Lead) Contact {
	completed := "no"
	if lead.IsCompleted() {
		completed = "yes"
	}

	tags := []string{"yacht-lead", "source-" + strings.ToLower(string(lead.Source))}
	if lead.Status == domain.StatusHot {
		tags = append(tags, "hot-lead")
	}

	contact := Contact{
		Name:       lead.Name,
		Phone:      lead.Phone,
		Email:      deref(lead.Email),
		Source:     string(lead.Source),
		Score:      lead.Score,
		Status:     string(lead.Status),
		RentalType: deref(lead.RentalType),
		Timeline:   deref(lead.Timeline),
		Budget:     deref(lead.Budget),
		Location:   deref(lead.Location),
		Tags:       tags,
		CustomFields: map[string]string{
			"lead_id":                 lead.ID.String(),
			"qualification_completed": completed,
		},
	}
	contact.GuestCount = deref(lead.GuestCount)
	return contact
}

func summaryNote(lead repository.Lead) string {
	orNA := func(s *string) string {
		if s == nil || *s == "" {
			return "N/A"
		}
		return *s
	}
	return fmt.Sprintf("Yacht Lead | Score: %d | Status: %s | Source: %s | Charter Type: %s | Budget: %s | Timeline: %s",
		lead.Score, lead.Status, lead.Source, orNA(lead.RentalType), orNA(lead.Budget), orNA(lead.Timeline))
}

// Sync pushes the lead. Vendor rejections come back in SyncResult; the
// error is non-nil for missing leads and transport faults, which the job
// queue retries.
func (s *Syncer) Sync(ctx context.Context, leadID uuid.UUID, action Action) (SyncResult, error) {
	lead, err := s.store.GetByID(ctx, leadID)
	if err != nil {
		return SyncResult{}, err
	}

	log := s.log.WithLead(leadID.String())
	contact := ContactFromLead(lead)

	var (
		result  Result
		created bool
	)
	if action == ActionCreate || lead.CRMID == nil {
		result, created, err = s.upsertByPhone(ctx, lead, contact)
	} else {
		result, err = s.adapter.UpdateContact(ctx, *lead.CRMID, contact)
		if err == nil && result.Success && result.ContactID == "" {
			result.ContactID = *lead.CRMID
		}
	}

	if err != nil {
		s.recordFailure(ctx, leadID, action, err.Error())
		return SyncResult{Error: err.Error()}, fmt.Errorf("crm %s: %w", s.adapter.Name(), err)
	}
	if !result.Success {
		s.recordFailure(ctx, leadID, action, result.Error)
		return SyncResult{Error: result.Error}, nil
	}

	if created {
		s.decorate(ctx, log, lead, result.ContactID, contact.Tags)
	}

	syncedAt := s.now()
	contactID := result.ContactID
	_, err = s.store.Mutate(ctx, leadID, func(m *repository.Mutation) error {
		m.Lead.CRMID = &contactID
		m.Lead.CRMSyncedAt = &syncedAt
		status := domain.CRMStatusSynced
		m.Lead.CRMStatus = &status
		m.Log(domain.ActivityCRMSynced, domain.ChannelCRM, map[string]any{
			"action":  string(action),
			"crmId":   contactID,
			"adapter": s.adapter.Name(),
			"created": created,
		})
		return nil
	})
	if err != nil {
		return SyncResult{}, fmt.Errorf("persist crm sync: %w", err)
	}

	metrics.RecordCRMSync(string(action), true)
	log.Info("crm sync complete", "action", action, "crm_id", contactID, "adapter", s.adapter.Name())
	return SyncResult{Success: true, CRMID: contactID}, nil
}

func (s *Syncer) upsertByPhone(ctx context.Context, lead repository.Lead, contact Contact) (Result, bool, error) {
	existing, err := s.adapter.FindContactByPhone(ctx, lead.Phone)
	if err != nil {
		return Result{}, false, err
	}
	if existing != nil && existing.ID != "" {
		result, err := s.adapter.UpdateContact(ctx, existing.ID, contact)
		if err == nil && result.Success && result.ContactID == "" {
			result.ContactID = existing.ID
		}
		return result, false, err
	}

	result, err := s.adapter.CreateContact(ctx, contact)
	return result, true, err
}

// decorate adds tags, the summary note and the pipeline placement to a new
// contact. The contact already exists, so failures are logged only.
func (s *Syncer) decorate(ctx context.Context, log *logger.Logger, lead repository.Lead, contactID string, tags []string) {
	if res, err := s.adapter.AddTags(ctx, contactID, tags); err != nil || !res.Success {
		log.Warn("crm add tags failed", "error", errors.Join(err, resultErr(res)))
	}
	if res, err := s.adapter.AddNote(ctx, contactID, summaryNote(lead)); err != nil || !res.Success {
		log.Warn("crm add note failed", "error", errors.Join(err, resultErr(res)))
	}
	if s.pipeline.ID == "" || s.pipeline.StageID == "" {
		return
	}
	if res, err := s.adapter.MoveToPipeline(ctx, contactID, s.pipeline.ID, s.pipeline.StageID); err != nil || !res.Success {
		log.Warn("crm pipeline placement failed", "error", errors.Join(err, resultErr(res)))
	}
}

func (s *Syncer) recordFailure(ctx context.Context, leadID uuid.UUID, action Action, reason string) {
	metrics.RecordCRMSync(string(action), false)
	err := s.store.AddActivity(ctx, repository.NewActivity{
		LeadID:  leadID,
		Type:    domain.ActivityCRMSyncFailed,
		Channel: domain.ChannelCRM,
		Data:    map[string]any{"action": string(action), "error": reason},
	})
	if err != nil {
		s.log.Error("failed to record crm sync failure", "lead_id", leadID, "error", err)
	}
	s.log.Warn("crm sync failed", "lead_id", leadID, "action", action, "error", reason)
}

func resultErr(r Result) error {
	if r.Success || r.Error == "" {
		return nil
	}
	return errors.New(r.Error)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
