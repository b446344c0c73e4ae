package followup

import (
	"context"
	"errors"
	"fmt"

	"lead_pipeline_backend/internal/email"
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/scheduler"
	"lead_pipeline_backend/internal/sms"
	"lead_pipeline_backend/platform/metrics"

	"github.com/google/uuid"
)

// HandleSMS sends one templated text. Leads that vanished or may not be
// contacted are skipped without error.
func (s *Service) HandleSMS(ctx context.Context, payload scheduler.SMSPayload) error {
	id, err := parseLeadID(payload.LeadID)
	if err != nil {
		return err
	}
	msgType, ok := sms.ParseMessageType(payload.Type)
	if !ok {
		return fmt.Errorf("sms type %q: %w", payload.Type, scheduler.ErrPermanent)
	}

	lead, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.WithContext(ctx).Info("sms skipped", "reason", "lead_not_found")
		return nil
	}
	if err != nil {
		return err
	}
	if reason := contactable(lead); reason != "" {
		s.log.WithContext(ctx).Info("sms skipped", "type", msgType, "reason", reason)
		return nil
	}
	return s.sendSMS(ctx, lead, msgType)
}

// sendSMS delivers the message. The qualification link is sent once and
// counted without being capped; follow-ups take a counter slot first and
// give it back when the provider fails.
func (s *Service) sendSMS(ctx context.Context, lead repository.Lead, msgType sms.MessageType) error {
	log := s.log.WithContext(ctx)

	if msgType == sms.TypeQualificationLink {
		if lead.LinkDeliveredAt != nil {
			log.Info("sms skipped", "type", msgType, "reason", "link_already_delivered")
			return nil
		}
	} else {
		reserved, err := s.store.ReserveSMS(ctx, lead.ID, s.limits.MaxSMS)
		if err != nil {
			return err
		}
		if !reserved {
			log.Info("sms skipped", "type", msgType, "reason", "max_sms_count_reached")
			return nil
		}
	}

	body := sms.Render(msgType, lead.FirstName(), *lead.QualificationLink)
	messageID, sendErr := s.sms.Send(ctx, lead.Phone, body)
	metrics.RecordMessage(string(domain.ChannelSMS), string(msgType), sendErr == nil)

	if sendErr != nil {
		if msgType != sms.TypeQualificationLink {
			if err := s.store.ReleaseSMS(ctx, lead.ID); err != nil {
				log.Error("failed to release sms slot", "error", err)
			}
		}
		s.logFailure(ctx, lead.ID, domain.ActivitySMSFailed, domain.ChannelSMS, string(msgType), sendErr)
		return fmt.Errorf("send %s sms via %s: %w", msgType, s.sms.Name(), sendErr)
	}

	now := s.now()
	_, err := s.store.Mutate(ctx, lead.ID, func(m *repository.Mutation) error {
		m.Lead.LastContactedAt = &now
		if msgType == sms.TypeQualificationLink {
			m.Lead.SMSCount++
			m.Lead.MarkDelivered(now)
		}
		m.Log(domain.ActivitySMSSent, domain.ChannelSMS, map[string]any{
			"type":      string(msgType),
			"messageId": messageID,
		})
		return nil
	})
	if err != nil {
		// The message is out; retrying would send it twice.
		log.Error("failed to record sms delivery", "type", msgType, "error", err)
	}
	return nil
}

// HandleEmail sends one templated email. A missing lead is an error so the
// queue retries it.
func (s *Service) HandleEmail(ctx context.Context, payload scheduler.EmailPayload) error {
	id, err := parseLeadID(payload.LeadID)
	if err != nil {
		return err
	}
	tmpl, ok := email.ParseTemplate(payload.Template)
	if !ok {
		return fmt.Errorf("email template %q: %w", payload.Template, scheduler.ErrPermanent)
	}

	lead, err := s.store.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load lead for email: %w", err)
	}
	if lead.QualificationLink == nil || *lead.QualificationLink == "" {
		return fmt.Errorf("lead %s has no qualification link", lead.ID)
	}

	log := s.log.WithContext(ctx)
	to := payload.Email
	if lead.Email != nil && *lead.Email != "" {
		to = *lead.Email
	}
	switch {
	case lead.Status == domain.StatusDoNotContact:
		log.Info("email skipped", "template", tmpl, "reason", "do_not_contact")
		return nil
	case lead.IsCompleted():
		log.Info("email skipped", "template", tmpl, "reason", "already_qualified")
		return nil
	case to == "":
		log.Info("email skipped", "template", tmpl, "reason", "no_email")
		return nil
	}

	reserved, err := s.store.ReserveEmail(ctx, lead.ID, s.limits.MaxEmail)
	if err != nil {
		return err
	}
	if !reserved {
		log.Info("email skipped", "template", tmpl, "reason", "max_email_count_reached")
		return nil
	}

	msg, err := email.LeadEmail(tmpl, to, lead.FirstName(), *lead.QualificationLink)
	if err == nil {
		var messageID string
		messageID, err = s.email.Send(ctx, msg)
		if err == nil {
			metrics.RecordMessage(string(domain.ChannelEmail), string(tmpl), true)
			s.recordEmailSent(ctx, lead.ID, tmpl, messageID)
			return nil
		}
	}

	metrics.RecordMessage(string(domain.ChannelEmail), string(tmpl), false)
	if relErr := s.store.ReleaseEmail(ctx, lead.ID); relErr != nil {
		log.Error("failed to release email slot", "error", relErr)
	}
	s.logFailure(ctx, lead.ID, domain.ActivityEmailFailed, domain.ChannelEmail, string(tmpl), err)
	return fmt.Errorf("send %s email via %s: %w", tmpl, s.email.Name(), err)
}

func (s *Service) recordEmailSent(ctx context.Context, leadID uuid.UUID, tmpl email.Template, messageID string) {
	now := s.now()
	_, err := s.store.Mutate(ctx, leadID, func(m *repository.Mutation) error {
		m.Lead.LastContactedAt = &now
		m.Log(domain.ActivityEmailSent, domain.ChannelEmail, map[string]any{
			"type":      string(tmpl),
			"messageId": messageID,
		})
		return nil
	})
	if err != nil {
		s.log.WithContext(ctx).Error("failed to record email delivery", "template", tmpl, "error", err)
	}
}

func (s *Service) logFailure(ctx context.Context, leadID uuid.UUID, activity domain.ActivityType, channel domain.Channel, kind string, cause error) {
	err := s.store.AddActivity(ctx, repository.NewActivity{
		LeadID:  leadID,
		Type:    activity,
		Channel: channel,
		Data:    map[string]any{"type": kind, "error": cause.Error()},
	})
	if err != nil {
		s.log.WithContext(ctx).Error("failed to record delivery failure", "activity", activity, "error", err)
	}
}
