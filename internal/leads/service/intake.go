package service

import (
	"context"
	"errors"
	"fmt"

	"lead_pipeline_backend/internal/email"
	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/normalizer"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/scheduler"
	"lead_pipeline_backend/internal/sms"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/logger"
	"lead_pipeline_backend/platform/metrics"

	"github.com/google/uuid"
)

// IntakeResult is the outcome of one intake attempt.
type IntakeResult struct {
	LeadID   uuid.UUID
	Existing bool
	Score    int
	Status   domain.Status
}

// Ingest normalizes a channel payload and runs it through intake.
func (s *Service) Ingest(ctx context.Context, source string, raw []byte) (IntakeResult, error) {
	lead, err := s.normalizer.Normalize(ctx, source, raw)
	if err != nil {
		metrics.RecordLeadIntake(source, "invalid")
		return IntakeResult{}, normalizeError(err)
	}
	return s.process(ctx, lead)
}

// Capture runs a landing-page submission through intake. An empty source
// defaults to LANDING.
func (s *Service) Capture(ctx context.Context, source string, payload normalizer.DirectPayload) (IntakeResult, error) {
	src := domain.SourceLanding
	if source != "" {
		parsed, ok := domain.ParseSource(source)
		if !ok {
			return IntakeResult{}, apperr.BadRequest("Unknown lead source")
		}
		src = parsed
	}

	lead, err := normalizer.FromDirect(src, payload)
	if err != nil {
		metrics.RecordLeadIntake(string(src), "invalid")
		return IntakeResult{}, normalizeError(err)
	}
	return s.process(ctx, lead)
}

func normalizeError(err error) error {
	switch {
	case errors.Is(err, normalizer.ErrUnknownSource):
		return apperr.Wrap(apperr.KindBadRequest, "Unknown lead source", err)
	case errors.Is(err, normalizer.ErrInvalidPhone):
		return apperr.Wrap(apperr.KindValidation, "Valid phone number is required", err)
	case errors.Is(err, normalizer.ErrGraphUnavailable):
		return apperr.Unavailable("Failed to fetch lead details", err)
	default:
		return apperr.Wrap(apperr.KindValidation, "Failed to normalize lead data", err)
	}
}

// process deduplicates, persists, scores and schedules the first outreach.
func (s *Service) process(ctx context.Context, n normalizer.NormalizedLead) (IntakeResult, error) {
	source := string(n.Source)

	created, existing, err := s.store.CreateUnlessRecent(ctx, repository.CreateLeadParams{
		Name:        n.Name,
		Phone:       n.Phone,
		Email:       n.Email,
		Source:      n.Source,
		RentalType:  n.RentalType,
		AdID:        n.AdID,
		CampaignID:  n.CampaignID,
		UTMSource:   n.UTMSource,
		UTMMedium:   n.UTMMedium,
		UTMCampaign: n.UTMCampaign,
		Status:      domain.StatusNew,
	}, repository.NewActivity{
		Type: domain.ActivityLeadCreated,
		Data: map[string]any{"source": source, "name": n.Name},
	}, s.now().Add(-s.settings.DedupWindow))
	if err != nil {
		return IntakeResult{}, fmt.Errorf("create lead: %w", err)
	}
	if existing {
		metrics.RecordLeadIntake(source, "duplicate")
		s.log.WithContext(ctx).Info("duplicate lead", "existing_lead_id", created.ID, "source", source)
		s.bus.Publish(ctx, events.LeadDuplicate{BaseEvent: events.NewBaseEvent(), LeadID: created.ID, Source: source})
		return IntakeResult{LeadID: created.ID, Existing: true, Score: created.Score, Status: created.Status}, nil
	}

	ctx = logLead(ctx, created.ID)
	link := s.QualificationLink(created.ID)

	var outcome scoreOutcome
	lead, err := s.store.Mutate(ctx, created.ID, func(m *repository.Mutation) error {
		outcome = s.applyScore(m, "intake")
		m.Lead.QualificationLink = &link
		return nil
	})
	if err != nil {
		return IntakeResult{}, fmt.Errorf("score new lead: %w", err)
	}

	s.scheduleInitialOutreach(ctx, lead)

	metrics.RecordLeadIntake(source, "created")
	s.log.WithContext(ctx).Info("lead processed", "source", source, "score", lead.Score, "status", lead.Status)
	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Source:    source,
		Score:     lead.Score,
		Status:    string(lead.Status),
	})
	if outcome.statusChanged() {
		s.publishStatusChange(ctx, lead.ID, outcome.PreviousStatus, lead.Status)
	}

	return IntakeResult{LeadID: lead.ID, Score: lead.Score, Status: lead.Status}, nil
}

// scheduleInitialOutreach queues the qualification link by SMS, the
// optional email copy and the engagement check.
func (s *Service) scheduleInitialOutreach(ctx context.Context, lead repository.Lead) {
	id := lead.ID.String()

	s.enqueueLogged(ctx, scheduler.TaskSendSMS, func() error {
		return s.scheduler.EnqueueSMS(ctx, scheduler.SMSPayload{LeadID: id, Type: string(sms.TypeQualificationLink)}, s.settings.InitialSMSDelay)
	})

	if lead.Email != nil && *lead.Email != "" {
		s.enqueueLogged(ctx, scheduler.TaskSendEmail, func() error {
			return s.scheduler.EnqueueEmail(ctx, scheduler.EmailPayload{
				LeadID:   id,
				Email:    *lead.Email,
				Name:     lead.Name,
				Template: string(email.TemplateQualificationLink),
			}, s.settings.InitialEmailDelay)
		})
	}

	s.enqueueLogged(ctx, scheduler.TaskEngagementCheck, func() error {
		return s.scheduler.EnqueueEngagementCheck(ctx, scheduler.EngagementPayload{LeadID: id, CheckType: "link_engagement"}, s.settings.EngagementCheckDelay)
	})
}

func (s *Service) publishStatusChange(ctx context.Context, id uuid.UUID, from, to domain.Status) {
	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    id,
		OldStatus: string(from),
		NewStatus: string(to),
	})
}

func logLead(ctx context.Context, id uuid.UUID) context.Context {
	return logger.ContextWithLead(ctx, id.String())
}
