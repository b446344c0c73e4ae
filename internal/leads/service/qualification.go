package service

import (
	"context"
	"errors"
	"strings"

	"lead_pipeline_backend/internal/email"
	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/scheduler"
	"lead_pipeline_backend/internal/sms"
	"lead_pipeline_backend/platform/apperr"
	"lead_pipeline_backend/platform/sanitize"

	"github.com/google/uuid"
)

// QualificationData is the submitted qualification form.
type QualificationData struct {
	RentalType      string
	Timeline        string
	Budget          string
	Location        *string
	GuestCount      *string
	PreferredDate   *string
	SpecialRequests *string
}

func (d QualificationData) clean() QualificationData {
	d.RentalType = sanitize.Text(d.RentalType)
	d.Timeline = sanitize.Text(d.Timeline)
	d.Budget = sanitize.Text(d.Budget)
	d.Location = cleanOptional(d.Location)
	d.GuestCount = cleanOptional(d.GuestCount)
	d.PreferredDate = cleanOptional(d.PreferredDate)
	d.SpecialRequests = cleanOptional(d.SpecialRequests)
	return d
}

func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := sanitize.Text(*s)
	if v == "" {
		return nil
	}
	return &v
}

func (d QualificationData) validate() error {
	var missing []string
	if strings.TrimSpace(d.RentalType) == "" {
		missing = append(missing, "rental_type")
	}
	if strings.TrimSpace(d.Timeline) == "" {
		missing = append(missing, "timeline")
	}
	if strings.TrimSpace(d.Budget) == "" {
		missing = append(missing, "budget")
	}
	if len(missing) > 0 {
		return apperr.Validation("Missing required qualification fields").WithDetails(map[string]any{"missing": missing})
	}
	return nil
}

func (d QualificationData) activityData() map[string]any {
	data := map[string]any{
		"rentalType": d.RentalType,
		"timeline":   d.Timeline,
		"budget":     d.Budget,
	}
	if d.Location != nil {
		data["location"] = *d.Location
	}
	if d.GuestCount != nil {
		data["guestCount"] = *d.GuestCount
	}
	if d.PreferredDate != nil {
		data["preferredDate"] = *d.PreferredDate
	}
	if d.SpecialRequests != nil {
		data["specialRequests"] = *d.SpecialRequests
	}
	return data
}

// QualificationResult reports the score and tier after a completion.
type QualificationResult struct {
	Score            int
	Status           domain.Status
	AlreadyCompleted bool
}

func notFound(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("Lead not found")
	}
	return err
}

// LinkOpened records the first load of the qualification page.
func (s *Service) LinkOpened(ctx context.Context, id uuid.UUID) error {
	_, err := s.store.Mutate(logLead(ctx, id), id, func(m *repository.Mutation) error {
		if m.Lead.MarkOpened(s.now()) {
			m.Log(domain.ActivityLinkOpened, domain.ChannelWeb, nil)
		}
		return nil
	})
	return notFound(err)
}

// QualificationStarted records the first form interaction.
func (s *Service) QualificationStarted(ctx context.Context, id uuid.UUID) error {
	_, err := s.store.Mutate(logLead(ctx, id), id, func(m *repository.Mutation) error {
		if m.Lead.MarkStarted(s.now()) {
			m.Log(domain.ActivityQualificationStarted, domain.ChannelWeb, nil)
		}
		return nil
	})
	return notFound(err)
}

// CompleteQualification stores the form, re-scores the lead and routes it:
// HOT goes to the CRM and sales, WARM enters nurture, COLD stays put. A
// repeat submission changes nothing and reports the current score.
func (s *Service) CompleteQualification(ctx context.Context, id uuid.UUID, data QualificationData) (QualificationResult, error) {
	data = data.clean()
	if err := data.validate(); err != nil {
		return QualificationResult{}, err
	}
	ctx = logLead(ctx, id)

	var (
		already bool
		outcome scoreOutcome
	)
	lead, err := s.store.Mutate(ctx, id, func(m *repository.Mutation) error {
		if m.Lead.IsCompleted() {
			already = true
			return nil
		}

		l := &m.Lead
		l.RentalType = &data.RentalType
		l.Timeline = &data.Timeline
		l.Budget = &data.Budget
		l.Location = data.Location
		l.GuestCount = data.GuestCount
		l.PreferredDate = data.PreferredDate
		l.SpecialRequests = data.SpecialRequests
		l.MarkCompleted(s.now())
		m.Log(domain.ActivityQualificationCompleted, domain.ChannelWeb, data.activityData())

		outcome = s.applyScore(m, "qualification_completed")
		switch outcome.Status {
		case domain.StatusHot:
			m.Log(domain.ActivityTransferredToSales, "", transferData(*l, false))
		case domain.StatusWarm:
			setStatus(m, domain.StatusNurture, "warm_lead_nurture")
		}
		return nil
	})
	if err != nil {
		return QualificationResult{}, notFound(err)
	}

	if already {
		s.log.WithContext(ctx).Info("qualification already completed")
		return QualificationResult{Score: lead.Score, Status: lead.Status, AlreadyCompleted: true}, nil
	}

	s.bus.Publish(ctx, events.LeadQualified{
		BaseEvent: events.NewBaseEvent(),
		LeadID:    lead.ID,
		Score:     lead.Score,
		Status:    string(outcome.Status),
	})
	if lead.Status != outcome.PreviousStatus {
		s.publishStatusChange(ctx, lead.ID, outcome.PreviousStatus, lead.Status)
	}

	switch outcome.Status {
	case domain.StatusHot:
		s.routeToSales(ctx, lead, false)
	case domain.StatusWarm:
		s.startNurture(ctx, lead)
	}

	s.log.WithContext(ctx).Info("qualification completed", "score", lead.Score, "tier", outcome.Status, "status", lead.Status)
	return QualificationResult{Score: lead.Score, Status: outcome.Status}, nil
}

func transferData(lead repository.Lead, manual bool) map[string]any {
	data := map[string]any{
		"name":   lead.Name,
		"phone":  lead.Phone,
		"score":  lead.Score,
		"manual": manual,
	}
	if lead.Budget != nil {
		data["budget"] = *lead.Budget
	}
	if lead.Timeline != nil {
		data["timeline"] = *lead.Timeline
	}
	return data
}

// routeToSales queues the CRM push and announces the hand-off.
func (s *Service) routeToSales(ctx context.Context, lead repository.Lead, manual bool) {
	s.enqueueLogged(ctx, scheduler.TaskCRMSync, func() error {
		return s.scheduler.EnqueueCRMSync(ctx, scheduler.CRMSyncPayload{LeadID: lead.ID.String(), Action: "create"}, 0)
	})

	s.log.WithContext(ctx).Info("hot lead transferred to sales", "score", lead.Score, "manual", manual)
	s.bus.Publish(ctx, events.LeadTransferred{
		BaseEvent:  events.NewBaseEvent(),
		LeadID:     lead.ID,
		Name:       lead.Name,
		Phone:      lead.Phone,
		Email:      deref(lead.Email),
		Source:     string(lead.Source),
		Score:      lead.Score,
		RentalType: deref(lead.RentalType),
		Budget:     deref(lead.Budget),
		Timeline:   deref(lead.Timeline),
		Manual:     manual,
	})
}

// startNurture queues the delayed reminder text and follow-up email.
func (s *Service) startNurture(ctx context.Context, lead repository.Lead) {
	id := lead.ID.String()
	s.enqueueLogged(ctx, scheduler.TaskSendSMS, func() error {
		return s.scheduler.EnqueueSMS(ctx, scheduler.SMSPayload{LeadID: id, Type: string(sms.TypeReminder)}, s.settings.NurtureReminderDelay)
	})
	if lead.Email == nil || *lead.Email == "" {
		return
	}
	s.enqueueLogged(ctx, scheduler.TaskSendEmail, func() error {
		return s.scheduler.EnqueueEmail(ctx, scheduler.EmailPayload{
			LeadID:   id,
			Email:    *lead.Email,
			Name:     lead.Name,
			Template: string(email.TemplateFollowup),
		}, s.settings.NurtureEmailDelay)
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
