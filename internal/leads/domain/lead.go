// Package domain holds the lead pipeline's vocabulary: channels, status
// tiers, activity types and the qualification funnel.
package domain

import "strings"

// Source identifies the channel a lead arrived through.
type Source string

const (
	SourceMeta    Source = "META"
	SourceGoogle  Source = "GOOGLE"
	SourceTikTok  Source = "TIKTOK"
	SourceDirect  Source = "DIRECT"
	SourceLanding Source = "LANDING"
)

// Sources lists every known channel.
var Sources = []Source{SourceMeta, SourceGoogle, SourceTikTok, SourceDirect, SourceLanding}

// ParseSource matches s case-insensitively against the known channels.
func ParseSource(s string) (Source, bool) {
	candidate := Source(strings.ToUpper(strings.TrimSpace(s)))
	for _, src := range Sources {
		if src == candidate {
			return src, true
		}
	}
	return "", false
}

// Status is the coarse routing tier of a lead.
type Status string

const (
	StatusNew          Status = "NEW"
	StatusHot          Status = "HOT"
	StatusWarm         Status = "WARM"
	StatusCold         Status = "COLD"
	StatusNurture      Status = "NURTURE"
	StatusConverted    Status = "CONVERTED"
	StatusDoNotContact Status = "DO_NOT_CONTACT"
	StatusArchived     Status = "ARCHIVED"
)

// Statuses lists every status tier.
var Statuses = []Status{
	StatusNew, StatusHot, StatusWarm, StatusCold, StatusNurture,
	StatusConverted, StatusDoNotContact, StatusArchived,
}

// ParseStatus matches s case-insensitively against the known statuses.
func ParseStatus(s string) (Status, bool) {
	candidate := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, st := range Statuses {
		if st == candidate {
			return st, true
		}
	}
	return "", false
}

// IsTerminal reports whether the status is sticky: re-scoring never replaces it.
func (s Status) IsTerminal() bool {
	return s == StatusDoNotContact || s == StatusConverted || s == StatusArchived
}

// ResolveStatus returns the status a lead should hold after scoring produced
// scored. Terminal statuses win.
func ResolveStatus(current, scored Status) Status {
	if current.IsTerminal() {
		return current
	}
	return scored
}

// ActivityType tags an entry in a lead's activity log.
type ActivityType string

const (
	ActivityLeadCreated            ActivityType = "LEAD_CREATED"
	ActivitySMSSent                ActivityType = "SMS_SENT"
	ActivitySMSFailed              ActivityType = "SMS_FAILED"
	ActivityEmailSent              ActivityType = "EMAIL_SENT"
	ActivityEmailFailed            ActivityType = "EMAIL_FAILED"
	ActivityLinkOpened             ActivityType = "LINK_OPENED"
	ActivityQualificationStarted   ActivityType = "QUALIFICATION_STARTED"
	ActivityQualificationCompleted ActivityType = "QUALIFICATION_COMPLETED"
	ActivityScoreUpdated           ActivityType = "SCORE_UPDATED"
	ActivityStatusChanged          ActivityType = "STATUS_CHANGED"
	ActivityCRMSynced              ActivityType = "CRM_SYNCED"
	ActivityCRMSyncFailed          ActivityType = "CRM_SYNC_FAILED"
	ActivityTransferredToSales     ActivityType = "TRANSFERRED_TO_SALES"
	ActivityNote                   ActivityType = "NOTE"
)

// Channel is the medium an activity happened on.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
	ChannelCRM   Channel = "crm"
	ChannelWeb   Channel = "web"
)

// CRMStatusSynced is stored on a lead after a successful CRM push.
const CRMStatusSynced = "synced"
