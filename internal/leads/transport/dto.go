package transport

import (
	"time"

	"github.com/google/uuid"
)

// Request DTOs

// LeadCaptureRequest is the public landing-page form.
type LeadCaptureRequest struct {
	Name        string `json:"name" validate:"required,min=1,max=200"`
	Phone       string `json:"phone" validate:"required,min=7,max=30"`
	Email       string `json:"email,omitempty" validate:"omitempty,email"`
	RentalType  string `json:"rentalType,omitempty" validate:"max=100"`
	UTMSource   string `json:"utmSource,omitempty" validate:"max=200"`
	UTMMedium   string `json:"utmMedium,omitempty" validate:"max=200"`
	UTMCampaign string `json:"utmCampaign,omitempty" validate:"max=200"`
	Source      string `json:"source,omitempty"`
}

// LeadRefRequest identifies a lead in the qualification page callbacks.
type LeadRefRequest struct {
	LeadID string `json:"lead_id" validate:"required,uuid"`
}

// QualificationCompleteRequest is the submitted qualification form.
type QualificationCompleteRequest struct {
	LeadID          string      `json:"lead_id" validate:"required,uuid"`
	RentalType      string      `json:"rental_type" validate:"required,max=100"`
	Timeline        string      `json:"timeline" validate:"required,max=200"`
	Budget          string      `json:"budget" validate:"required,max=100"`
	Location        *string     `json:"location,omitempty" validate:"omitempty,max=200"`
	GuestCount      *GuestCount `json:"guest_count,omitempty" validate:"omitempty,max=50"`
	PreferredDate   *string     `json:"preferred_date,omitempty" validate:"omitempty,max=100"`
	SpecialRequests *string     `json:"special_requests,omitempty" validate:"omitempty,max=2000"`
}

// UpdateLeadRequest carries the fields an operator may change.
type UpdateLeadRequest struct {
	Name            *string     `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Phone           *string     `json:"phone,omitempty" validate:"omitempty,min=7,max=30"`
	Email           *string     `json:"email,omitempty" validate:"omitempty,email"`
	Status          *string     `json:"status,omitempty" validate:"omitempty,oneof=NEW HOT WARM COLD NURTURE CONVERTED DO_NOT_CONTACT ARCHIVED"`
	RentalType      *string     `json:"rentalType,omitempty" validate:"omitempty,max=100"`
	Timeline        *string     `json:"timeline,omitempty" validate:"omitempty,max=200"`
	Budget          *string     `json:"budget,omitempty" validate:"omitempty,max=100"`
	Location        *string     `json:"location,omitempty" validate:"omitempty,max=200"`
	GuestCount      *GuestCount `json:"guestCount,omitempty" validate:"omitempty,max=50"`
	PreferredDate   *string     `json:"preferredDate,omitempty" validate:"omitempty,max=100"`
	SpecialRequests *string     `json:"specialRequests,omitempty" validate:"omitempty,max=2000"`
}

type AddNoteRequest struct {
	Note string `json:"note" validate:"required,min=1,max=5000"`
}

// ListLeadsRequest binds the management list query string.
type ListLeadsRequest struct {
	Status    string `form:"status" validate:"omitempty,oneof=NEW HOT WARM COLD NURTURE CONVERTED DO_NOT_CONTACT ARCHIVED"`
	Source    string `form:"source" validate:"omitempty,oneof=META GOOGLE TIKTOK DIRECT LANDING"`
	MinScore  *int   `form:"minScore" validate:"omitempty,min=0"`
	MaxScore  *int   `form:"maxScore" validate:"omitempty,min=0"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
	Search    string `form:"search" validate:"max=200"`
	Page      int    `form:"page" validate:"omitempty,min=1"`
	PageSize  int    `form:"pageSize" validate:"omitempty,min=1"`
}

// Response DTOs

type LeadResponse struct {
	ID                       uuid.UUID  `json:"id"`
	Name                     string     `json:"name"`
	Phone                    string     `json:"phone"`
	PhoneDisplay             string     `json:"phoneDisplay"`
	Email                    *string    `json:"email"`
	Source                   string     `json:"source"`
	RentalType               *string    `json:"rentalType"`
	AdID                     *string    `json:"adId"`
	CampaignID               *string    `json:"campaignId"`
	UTMSource                *string    `json:"utmSource"`
	UTMMedium                *string    `json:"utmMedium"`
	UTMCampaign              *string    `json:"utmCampaign"`
	Score                    int        `json:"score"`
	Status                   string     `json:"status"`
	Stage                    string     `json:"stage"`
	Timeline                 *string    `json:"timeline"`
	Budget                   *string    `json:"budget"`
	Location                 *string    `json:"location"`
	GuestCount               *string    `json:"guestCount"`
	PreferredDate            *string    `json:"preferredDate"`
	SpecialRequests          *string    `json:"specialRequests"`
	QualificationLink        *string    `json:"qualificationLink"`
	LinkDeliveredAt          *time.Time `json:"linkDeliveredAt"`
	LinkOpenedAt             *time.Time `json:"linkOpenedAt"`
	QualificationStartedAt   *time.Time `json:"qualificationStartedAt"`
	QualificationCompletedAt *time.Time `json:"qualificationCompletedAt"`
	LastContactedAt          *time.Time `json:"lastContactedAt"`
	CRMID                    *string    `json:"crmId"`
	CRMSyncedAt              *time.Time `json:"crmSyncedAt"`
	CRMStatus                *string    `json:"crmStatus"`
	SMSCount                 int        `json:"smsCount"`
	EmailCount               int        `json:"emailCount"`
	CreatedAt                time.Time  `json:"createdAt"`
	UpdatedAt                time.Time  `json:"updatedAt"`
}

type ActivityResponse struct {
	ID        uuid.UUID      `json:"id"`
	LeadID    uuid.UUID      `json:"leadId"`
	Type      string         `json:"type"`
	Channel   *string        `json:"channel"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

type ScoreLogResponse struct {
	ID            uuid.UUID `json:"id"`
	PreviousScore int       `json:"previousScore"`
	NewScore      int       `json:"newScore"`
	Reason        string    `json:"reason"`
	RulesApplied  string    `json:"rulesApplied"`
	CreatedAt     time.Time `json:"createdAt"`
}

// LeadDetailResponse is a lead with its recent history.
type LeadDetailResponse struct {
	LeadResponse
	Activities []ActivityResponse `json:"activities"`
	ScoreLog   []ScoreLogResponse `json:"scoreLog"`
}

type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

type LeadListResponse struct {
	Leads      []LeadResponse `json:"leads"`
	Pagination Pagination     `json:"pagination"`
}

type StatsResponse struct {
	Total          int            `json:"total"`
	Today          int            `json:"today"`
	ThisWeek       int            `json:"thisWeek"`
	ByStatus       map[string]int `json:"byStatus"`
	BySource       map[string]int `json:"bySource"`
	AverageScore   int            `json:"averageScore"`
	Qualified      int            `json:"qualified"`
	ConversionRate string         `json:"conversionRate"`
}

type BreakdownItem struct {
	Rule   string `json:"rule"`
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

type RescoreResponse struct {
	PreviousScore int             `json:"previousScore"`
	NewScore      int             `json:"newScore"`
	Status        string          `json:"status"`
	Breakdown     []BreakdownItem `json:"breakdown"`
}

type SyncCRMResponse struct {
	Success bool   `json:"success"`
	CRMID   string `json:"crmId,omitempty"`
	Error   string `json:"error,omitempty"`
}

// IntakeResponse is returned by every lead-creating endpoint.
type IntakeResponse struct {
	Success  bool      `json:"success"`
	LeadID   uuid.UUID `json:"leadId"`
	Existing bool      `json:"existing,omitempty"`
}

type QualificationResponse struct {
	Success bool   `json:"success"`
	Score   int    `json:"score"`
	Status  string `json:"status"`
}
