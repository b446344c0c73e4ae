package followup

import (
	"context"
	"errors"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/scheduler"
	"lead_pipeline_backend/internal/sms"
)

// errUnchanged aborts a Mutate that has nothing to write.
var errUnchanged = errors.New("lead unchanged")

// HandleEngagementCheck nudges a lead that has not finished qualifying.
// Leads that opened or started get a reminder; leads that never opened the
// link get the low-intent follow-up and move to NURTURE. The action is
// decided on the locked row so a qualification landing concurrently wins.
func (s *Service) HandleEngagementCheck(ctx context.Context, payload scheduler.EngagementPayload) error {
	id, err := parseLeadID(payload.LeadID)
	if err != nil {
		return err
	}
	log := s.log.WithContext(ctx)

	var (
		lead   repository.Lead
		action domain.EngagementAction
		skip   string
	)
	_, err = s.store.Mutate(ctx, id, func(m *repository.Mutation) error {
		lead = m.Lead
		if skip = engagementSkipReason(m.Lead); skip != "" {
			return errUnchanged
		}
		action = m.Lead.NextEngagementAction()
		if action != domain.EngagementNurture {
			return errUnchanged
		}
		previous := m.Lead.Status
		m.Lead.Status = domain.StatusNurture
		if previous != domain.StatusNurture {
			m.Log(domain.ActivityStatusChanged, "", map[string]any{
				"from":   string(previous),
				"to":     string(domain.StatusNurture),
				"reason": "link_not_opened",
			})
		}
		lead = m.Lead
		return nil
	})
	switch {
	case errors.Is(err, repository.ErrNotFound):
		log.Info("engagement check skipped", "reason", "lead_not_found")
		return nil
	case errors.Is(err, errUnchanged):
	case err != nil:
		return err
	}
	if skip != "" {
		log.Info("engagement check skipped", "reason", skip)
		return nil
	}

	log.Info("engagement check", "stage", lead.Stage().String(), "action", action.String())
	switch action {
	case domain.EngagementReminder:
		return s.sendSMS(ctx, lead, sms.TypeReminder)
	case domain.EngagementNurture:
		return s.sendSMS(ctx, lead, sms.TypeFollowup)
	default:
		return nil
	}
}

func engagementSkipReason(lead repository.Lead) string {
	if reason := contactable(lead); reason != "" {
		return reason
	}
	if lead.Status.IsTerminal() {
		return "terminal_status"
	}
	return ""
}
