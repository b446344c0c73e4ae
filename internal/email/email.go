// Package email renders and delivers lead-facing and internal emails.
package email

import (
	"context"
	"fmt"
	"strings"

	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers one message and returns the provider's message id.
type Sender interface {
	Name() string
	Send(ctx context.Context, msg Message) (string, error)
}

// New selects the sender named by cfg.GetEmailProvider().
func New(cfg config.EmailConfig, log *logger.Logger) (Sender, error) {
	switch strings.ToLower(cfg.GetEmailProvider()) {
	case "", config.ProviderSimulated:
		return NewSimulated(log), nil
	case config.EmailProviderBrevo:
		return NewBrevoSender(BrevoEndpoint, cfg.GetBrevoAPIKey(), cfg.GetEmailFromName(), cfg.GetEmailFromAddress()), nil
	case config.EmailProviderSMTP:
		return NewSMTPSender(cfg.GetSMTPHost(), cfg.GetSMTPPort(), cfg.GetSMTPUsername(), cfg.GetSMTPPassword(),
			cfg.GetEmailFromAddress(), cfg.GetEmailFromName()), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.GetEmailProvider())
	}
}

// Template names a lead-facing email.
type Template string

const (
	TemplateQualificationLink Template = "qualification_link"
	TemplateFollowup          Template = "followup"
)

// ParseTemplate reports whether s is a known lead-facing template.
func ParseTemplate(s string) (Template, bool) {
	switch t := Template(s); t {
	case TemplateQualificationLink, TemplateFollowup:
		return t, true
	}
	return "", false
}

// LeadEmail renders a lead-facing email carrying the qualification link.
func LeadEmail(t Template, to, firstName, link string) (Message, error) {
	var (
		file    string
		subject string
		data    leadLinkEmailData
	)
	switch t {
	case TemplateQualificationLink:
		file, subject = "qualification.html", subjectQualification
		data.baseEmailData = baseEmailData{
			Title:    subjectQualification,
			Heading:  "Thank You, " + firstName,
			CTALabel: "COMPLETE YOUR CHARTER REQUEST",
			CTAURL:   link,
		}
	case TemplateFollowup:
		file, subject = "followup.html", subjectFollowup
		data.baseEmailData = baseEmailData{
			Title:    subjectFollowup,
			Heading:  "Your Charter Awaits, " + firstName,
			CTALabel: "COMPLETE YOUR REQUEST",
			CTAURL:   link,
		}
	default:
		return Message{}, fmt.Errorf("unknown email template %q", t)
	}

	html, err := renderEmailTemplate(file, data)
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: html}, nil
}

// SalesAlert describes a lead handed to the sales team.
type SalesAlert struct {
	LeadID     string
	LeadName   string
	Phone      string
	Email      string
	Source     string
	Score      int
	RentalType string
	Budget     string
	Timeline   string
}

// SalesAlertEmail renders the internal notification for a transferred lead.
func SalesAlertEmail(to string, alert SalesAlert) (Message, error) {
	subject := fmt.Sprintf(subjectSalesAlertFmt, alert.LeadName, alert.Score)
	html, err := renderEmailTemplate("sales_alert.html", salesAlertEmailData{
		baseEmailData: baseEmailData{Title: subject, Heading: "New HOT Lead"},
		SalesAlert:    alert,
	})
	if err != nil {
		return Message{}, err
	}
	return Message{To: to, Subject: subject, HTML: html}, nil
}
