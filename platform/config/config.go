// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

// APIKeyConfig provides the shared secret guarding the management API.
type APIKeyConfig interface {
	GetAPIKey() string
}

// WebhookConfig provides the secrets used by inbound channel webhooks.
type WebhookConfig interface {
	APIKeyConfig
	GetGoogleWebhookKey() string
	GetMetaVerifyToken() string
}

// MetaConfig provides Graph API access for lead-reference lookups.
type MetaConfig interface {
	GetMetaAccessToken() string
	GetMetaGraphBaseURL() string
}

// ScoringConfig provides the scoring thresholds.
type ScoringConfig interface {
	GetHotThreshold() int
	GetWarmThreshold() int
	GetBudgetMinimum() float64
	GetScoringRulesFile() string
}

// PipelineConfig provides intake and qualification timing.
type PipelineConfig interface {
	GetQualificationLinkBaseURL() string
	GetDedupWindow() time.Duration
	GetInitialSMSDelay() time.Duration
	GetInitialEmailDelay() time.Duration
	GetEngagementCheckDelay() time.Duration
	GetNurtureReminderDelay() time.Duration
	GetNurtureEmailDelay() time.Duration
}

// FollowupConfig provides per-lead message caps.
type FollowupConfig interface {
	GetMaxSMSCount() int
	GetMaxEmailCount() int
}

// SMSConfig provides SMS provider settings.
type SMSConfig interface {
	GetSMSProvider() string
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetTwilioPhoneNumber() string
	GetWhatsAppURL() string
	GetWhatsAppDeviceID() string
	GetWhatsAppUsername() string
	GetWhatsAppPassword() string
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailProvider() string
	GetBrevoAPIKey() string
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// NotificationConfig provides settings for internal sales alerts.
type NotificationConfig interface {
	GetSalesNotificationEmail() string
}

// CRMConfig provides CRM adapter selection and credentials.
type CRMConfig interface {
	GetCRMType() string
	GetGHLAPIKey() string
	GetGHLLocationID() string
	GetGHLPipelineID() string
	GetGHLStageID() string
	GetHubSpotAPIKey() string
}

// SchedulerConfig provides settings for background job scheduling.
type SchedulerConfig interface {
	GetRedisURL() string
	GetWorkerConcurrency() int
}

// =============================================================================
// Provider names
// =============================================================================

const (
	ProviderSimulated = "simulated"

	SMSProviderTwilio   = "twilio"
	SMSProviderWhatsApp = "whatsapp"

	EmailProviderBrevo = "brevo"
	EmailProviderSMTP  = "smtp"

	CRMMock        = "mock"
	CRMGoHighLevel = "gohighlevel"
	CRMHubSpot     = "hubspot"
)

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env            string
	HTTPAddr       string
	DatabaseURL    string
	RedisURL       string
	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool
	RateLimitRPS   float64
	RateLimitBurst int

	APIKey           string
	GoogleWebhookKey string
	MetaVerifyToken  string
	MetaAccessToken  string
	MetaGraphBaseURL string

	HotThreshold     int
	WarmThreshold    int
	BudgetMinimum    float64
	ScoringRulesFile string

	QualificationLinkBaseURL string
	DedupWindow              time.Duration
	InitialSMSDelay          time.Duration
	InitialEmailDelay        time.Duration
	EngagementCheckDelay     time.Duration
	NurtureReminderDelay     time.Duration
	NurtureEmailDelay        time.Duration
	MaxSMSCount              int
	MaxEmailCount            int
	WorkerConcurrency        int

	SMSProvider       string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioPhoneNumber string
	WhatsAppURL       string
	WhatsAppDeviceID  string
	WhatsAppUsername  string
	WhatsAppPassword  string

	EmailProvider          string
	BrevoAPIKey            string
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	EmailFromName          string
	EmailFromAddress       string
	SalesNotificationEmail string

	CRMType       string
	GHLAPIKey     string
	GHLLocationID string
	GHLPipelineID string
	GHLStageID    string
	HubSpotAPIKey string
}

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }
func (c *Config) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int   { return c.RateLimitBurst }

func (c *Config) GetAPIKey() string           { return c.APIKey }
func (c *Config) GetGoogleWebhookKey() string { return c.GoogleWebhookKey }
func (c *Config) GetMetaVerifyToken() string  { return c.MetaVerifyToken }
func (c *Config) GetMetaAccessToken() string  { return c.MetaAccessToken }
func (c *Config) GetMetaGraphBaseURL() string { return c.MetaGraphBaseURL }

func (c *Config) GetHotThreshold() int        { return c.HotThreshold }
func (c *Config) GetWarmThreshold() int       { return c.WarmThreshold }
func (c *Config) GetBudgetMinimum() float64   { return c.BudgetMinimum }
func (c *Config) GetScoringRulesFile() string { return c.ScoringRulesFile }

func (c *Config) GetQualificationLinkBaseURL() string    { return c.QualificationLinkBaseURL }
func (c *Config) GetDedupWindow() time.Duration          { return c.DedupWindow }
func (c *Config) GetInitialSMSDelay() time.Duration      { return c.InitialSMSDelay }
func (c *Config) GetInitialEmailDelay() time.Duration    { return c.InitialEmailDelay }
func (c *Config) GetEngagementCheckDelay() time.Duration { return c.EngagementCheckDelay }
func (c *Config) GetNurtureReminderDelay() time.Duration { return c.NurtureReminderDelay }
func (c *Config) GetNurtureEmailDelay() time.Duration    { return c.NurtureEmailDelay }
func (c *Config) GetMaxSMSCount() int                    { return c.MaxSMSCount }
func (c *Config) GetMaxEmailCount() int                  { return c.MaxEmailCount }

func (c *Config) GetSMSProvider() string       { return c.SMSProvider }
func (c *Config) GetTwilioAccountSID() string  { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string   { return c.TwilioAuthToken }
func (c *Config) GetTwilioPhoneNumber() string { return c.TwilioPhoneNumber }
func (c *Config) GetWhatsAppURL() string       { return c.WhatsAppURL }
func (c *Config) GetWhatsAppDeviceID() string  { return c.WhatsAppDeviceID }
func (c *Config) GetWhatsAppUsername() string  { return c.WhatsAppUsername }
func (c *Config) GetWhatsAppPassword() string  { return c.WhatsAppPassword }

func (c *Config) GetEmailProvider() string          { return c.EmailProvider }
func (c *Config) GetBrevoAPIKey() string            { return c.BrevoAPIKey }
func (c *Config) GetSMTPHost() string               { return c.SMTPHost }
func (c *Config) GetSMTPPort() int                  { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string           { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string           { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string          { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string       { return c.EmailFromAddress }
func (c *Config) GetSalesNotificationEmail() string { return c.SalesNotificationEmail }

func (c *Config) GetCRMType() string       { return c.CRMType }
func (c *Config) GetGHLAPIKey() string     { return c.GHLAPIKey }
func (c *Config) GetGHLLocationID() string { return c.GHLLocationID }
func (c *Config) GetGHLPipelineID() string { return c.GHLPipelineID }
func (c *Config) GetGHLStageID() string    { return c.GHLStageID }
func (c *Config) GetHubSpotAPIKey() string { return c.HubSpotAPIKey }

func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetWorkerConcurrency() int { return c.WorkerConcurrency }

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool { return strings.EqualFold(c.Env, "production") }

// IntegrationStatus reports, per outbound integration, whether it talks to a
// real provider ("configured") or is simulated. Secrets never leave here.
func (c *Config) IntegrationStatus() map[string]string {
	status := func(real bool) string {
		if real {
			return "configured"
		}
		return ProviderSimulated
	}
	return map[string]string{
		"sms":   status(c.SMSProvider != ProviderSimulated),
		"email": status(c.EmailProvider != ProviderSimulated),
		"crm":   status(c.CRMType != CRMMock),
		"meta":  status(c.MetaAccessToken != ""),
	}
}

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379"),
		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		RateLimitRPS:   mustFloat(getEnv("RATE_LIMIT_RPS", "1")),
		RateLimitBurst: mustInt(getEnv("RATE_LIMIT_BURST", "10")),

		APIKey:           getEnv("LEAD_SYSTEM_API_KEY", "dev-lead-key"),
		GoogleWebhookKey: getEnv("GOOGLE_WEBHOOK_KEY", ""),
		MetaVerifyToken:  getEnv("META_VERIFY_TOKEN", ""),
		MetaAccessToken:  getEnv("META_ACCESS_TOKEN", ""),
		MetaGraphBaseURL: getEnv("META_GRAPH_BASE_URL", "https://graph.facebook.com"),

		HotThreshold:     mustInt(getEnv("SCORE_THRESHOLD_HOT", "50")),
		WarmThreshold:    mustInt(getEnv("SCORE_THRESHOLD_WARM", "30")),
		BudgetMinimum:    mustFloat(getEnv("BUDGET_MINIMUM_THRESHOLD", "5000")),
		ScoringRulesFile: getEnv("SCORING_RULES_FILE", ""),

		QualificationLinkBaseURL: getEnv("QUALIFICATION_LINK_BASE_URL", "https://yachtgroupinternational.com/qualify"),
		DedupWindow:              mustDuration(getEnv("DEDUP_WINDOW", "24h")),
		InitialSMSDelay:          mustDuration(getEnv("INITIAL_SMS_DELAY", "0s")),
		InitialEmailDelay:        mustDuration(getEnv("INITIAL_EMAIL_DELAY", "3m")),
		EngagementCheckDelay:     mustDuration(getEnv("LINK_ENGAGEMENT_CHECK_DELAY", "2h")),
		NurtureReminderDelay:     mustDuration(getEnv("NURTURE_REMINDER_DELAY", "1h")),
		NurtureEmailDelay:        mustDuration(getEnv("NURTURE_EMAIL_DELAY", "2h")),
		MaxSMSCount:              mustInt(getEnv("MAX_SMS_COUNT", "1")),
		MaxEmailCount:            mustInt(getEnv("MAX_EMAIL_COUNT", "2")),
		WorkerConcurrency:        mustInt(getEnv("WORKER_CONCURRENCY", "10")),

		SMSProvider:       strings.ToLower(getEnv("SMS_PROVIDER", ProviderSimulated)),
		TwilioAccountSID:  getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:   getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber: getEnv("TWILIO_PHONE_NUMBER", ""),
		WhatsAppURL:       getEnv("WHATSAPP_URL", ""),
		WhatsAppDeviceID:  getEnv("WHATSAPP_DEVICE_ID", ""),
		WhatsAppUsername:  getEnv("WHATSAPP_USERNAME", ""),
		WhatsAppPassword:  getEnv("WHATSAPP_PASSWORD", ""),

		EmailProvider:          strings.ToLower(getEnv("EMAIL_PROVIDER", ProviderSimulated)),
		BrevoAPIKey:            getEnv("BREVO_API_KEY", ""),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		EmailFromName:          getEnv("EMAIL_FROM_NAME", "Yacht Group International"),
		EmailFromAddress:       getEnv("EMAIL_FROM_ADDRESS", "concierge@yachtgroupinternational.com"),
		SalesNotificationEmail: getEnv("SALES_NOTIFICATION_EMAIL", ""),

		CRMType:       strings.ToLower(getEnv("CRM_TYPE", CRMMock)),
		GHLAPIKey:     getEnv("GHL_API_KEY", ""),
		GHLLocationID: getEnv("GHL_LOCATION_ID", ""),
		GHLPipelineID: getEnv("GHL_PIPELINE_ID", ""),
		GHLStageID:    getEnv("GHL_STAGE_ID", ""),
		HubSpotAPIKey: getEnv("HUBSPOT_API_KEY", ""),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.IsProduction() && os.Getenv("LEAD_SYSTEM_API_KEY") == "" {
		return fmt.Errorf("LEAD_SYSTEM_API_KEY is required in production")
	}
	if c.CORSAllowAll && c.CORSAllowCreds {
		return fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if c.HotThreshold <= c.WarmThreshold {
		return fmt.Errorf("SCORE_THRESHOLD_HOT (%d) must be greater than SCORE_THRESHOLD_WARM (%d)", c.HotThreshold, c.WarmThreshold)
	}
	if c.MaxSMSCount < 0 || c.MaxEmailCount < 0 {
		return fmt.Errorf("MAX_SMS_COUNT and MAX_EMAIL_COUNT must not be negative")
	}

	switch c.SMSProvider {
	case ProviderSimulated:
	case SMSProviderTwilio:
		if c.TwilioAccountSID == "" || c.TwilioAuthToken == "" || c.TwilioPhoneNumber == "" {
			return fmt.Errorf("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_PHONE_NUMBER are required when SMS_PROVIDER is twilio")
		}
	case SMSProviderWhatsApp:
		if c.WhatsAppURL == "" || c.WhatsAppDeviceID == "" {
			return fmt.Errorf("WHATSAPP_URL and WHATSAPP_DEVICE_ID are required when SMS_PROVIDER is whatsapp")
		}
	default:
		return fmt.Errorf("unknown SMS_PROVIDER %q", c.SMSProvider)
	}

	switch c.EmailProvider {
	case ProviderSimulated:
	case EmailProviderBrevo:
		if c.BrevoAPIKey == "" {
			return fmt.Errorf("BREVO_API_KEY is required when EMAIL_PROVIDER is brevo")
		}
	case EmailProviderSMTP:
		if c.SMTPHost == "" {
			return fmt.Errorf("SMTP_HOST is required when EMAIL_PROVIDER is smtp")
		}
	default:
		return fmt.Errorf("unknown EMAIL_PROVIDER %q", c.EmailProvider)
	}
	if c.EmailProvider != ProviderSimulated && c.EmailFromAddress == "" {
		return fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}

	switch c.CRMType {
	case CRMMock:
	case CRMGoHighLevel:
		if c.GHLAPIKey == "" || c.GHLLocationID == "" {
			return fmt.Errorf("GHL_API_KEY and GHL_LOCATION_ID are required when CRM_TYPE is gohighlevel")
		}
	case CRMHubSpot:
		if c.HubSpotAPIKey == "" {
			return fmt.Errorf("HUBSPOT_API_KEY is required when CRM_TYPE is hubspot")
		}
	default:
		return fmt.Errorf("unknown CRM_TYPE %q", c.CRMType)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt(value string) int {
	result, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
