// Package sms delivers text messages through Twilio, a WhatsApp gateway or
// a simulated sender used in development.
package sms

import (
	"context"
	"fmt"
	"strings"

	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"
)

// Sender delivers one message and returns the provider's message id.
type Sender interface {
	Name() string
	Send(ctx context.Context, to, body string) (string, error)
}

// New selects the sender named by cfg.GetSMSProvider().
func New(cfg config.SMSConfig, log *logger.Logger) (Sender, error) {
	switch strings.ToLower(cfg.GetSMSProvider()) {
	case "", config.ProviderSimulated:
		return NewSimulated(log), nil
	case config.SMSProviderTwilio:
		return NewTwilio(TwilioBaseURL, cfg.GetTwilioAccountSID(), cfg.GetTwilioAuthToken(), cfg.GetTwilioPhoneNumber()), nil
	case config.SMSProviderWhatsApp:
		return NewWhatsApp(cfg.GetWhatsAppURL(), cfg.GetWhatsAppDeviceID(), cfg.GetWhatsAppUsername(), cfg.GetWhatsAppPassword()), nil
	default:
		return nil, fmt.Errorf("unknown sms provider %q", cfg.GetSMSProvider())
	}
}

// MessageType names the template a message was rendered from.
type MessageType string

const (
	TypeQualificationLink MessageType = "qualification_link"
	TypeFollowup          MessageType = "followup"
	TypeReminder          MessageType = "reminder"
)

// ParseMessageType reports whether s is a known message type.
func ParseMessageType(s string) (MessageType, bool) {
	switch t := MessageType(s); t {
	case TypeQualificationLink, TypeFollowup, TypeReminder:
		return t, true
	}
	return "", false
}

// Render builds the message body for a lead.
func Render(t MessageType, firstName, link string) string {
	switch t {
	case TypeFollowup:
		return fmt.Sprintf("Hi %s, just following up on your yacht charter inquiry. Complete your request here: %s - Yacht Group International", firstName, link)
	case TypeReminder:
		return fmt.Sprintf("Hi %s, your yacht charter request is still waiting. Complete it here: %s - Yacht Group International. Reply STOP to opt out.", firstName, link)
	default:
		return fmt.Sprintf("Hi %s! Thank you for your interest in Yacht Group International. Complete your charter request here: %s - YGI Concierge", firstName, link)
	}
}
