package repository

import (
	"time"

	"lead_pipeline_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Lead is the persisted lead record. The embedded Funnel carries the
// qualification timestamps.
type Lead struct {
	ID     uuid.UUID
	Name   string
	Phone  string
	Email  *string
	Source domain.Source

	RentalType  *string
	AdID        *string
	CampaignID  *string
	UTMSource   *string
	UTMMedium   *string
	UTMCampaign *string

	Score  int
	Status domain.Status

	Timeline        *string
	Budget          *string
	Location        *string
	GuestCount      *string
	PreferredDate   *string
	SpecialRequests *string

	QualificationLink *string
	domain.Funnel
	LastContactedAt *time.Time

	CRMID       *string
	CRMSyncedAt *time.Time
	CRMStatus   *string

	SMSCount   int
	EmailCount int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FirstName returns the first word of the lead's name.
func (l Lead) FirstName() string {
	for i, r := range l.Name {
		if r == ' ' {
			return l.Name[:i]
		}
	}
	return l.Name
}

// Activity is an immutable entry in a lead's audit trail.
type Activity struct {
	ID        uuid.UUID
	LeadID    uuid.UUID
	Type      domain.ActivityType
	Channel   domain.Channel
	Data      map[string]any
	CreatedAt time.Time
}

// ScoreLog records a score change.
type ScoreLog struct {
	ID            uuid.UUID
	LeadID        uuid.UUID
	PreviousScore int
	NewScore      int
	Reason        string
	RulesApplied  string
	CreatedAt     time.Time
}

// NewActivity describes an activity to append.
type NewActivity struct {
	LeadID  uuid.UUID
	Type    domain.ActivityType
	Channel domain.Channel
	Data    map[string]any
}

// CreateLeadParams holds the canonical intake record.
type CreateLeadParams struct {
	Name        string
	Phone       string
	Email       *string
	Source      domain.Source
	RentalType  *string
	AdID        *string
	CampaignID  *string
	UTMSource   *string
	UTMMedium   *string
	UTMCampaign *string
	Score       int
	Status      domain.Status
}

// ListParams filters the management list. Page is 1-based.
type ListParams struct {
	Status    *domain.Status
	Source    *domain.Source
	MinScore  *int
	MaxScore  *int
	StartDate *time.Time
	EndDate   *time.Time
	Search    string
	Page      int
	PageSize  int
}

// Offset returns the row offset for the requested page.
func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Summary holds headline counts for the stats endpoint.
type Summary struct {
	Total        int
	Today        int
	ThisWeek     int
	Qualified    int
	AverageScore float64
}

// Mutation is handed to Store.Mutate. Changes to Lead are persisted, and
// logged activities and score changes are appended, in one transaction.
type Mutation struct {
	Lead       Lead
	activities []NewActivity
	scoreLogs  []ScoreLog
}

// Log appends an activity for the locked lead.
func (m *Mutation) Log(activityType domain.ActivityType, channel domain.Channel, data map[string]any) {
	m.activities = append(m.activities, NewActivity{
		LeadID:  m.Lead.ID,
		Type:    activityType,
		Channel: channel,
		Data:    data,
	})
}

// LogScore appends a score-change record.
func (m *Mutation) LogScore(previous, next int, reason, rules string) {
	m.scoreLogs = append(m.scoreLogs, ScoreLog{
		LeadID:        m.Lead.ID,
		PreviousScore: previous,
		NewScore:      next,
		Reason:        reason,
		RulesApplied:  rules,
	})
}

// Activities returns the activities logged so far.
func (m *Mutation) Activities() []NewActivity { return m.activities }

// ScoreLogs returns the score changes logged so far.
func (m *Mutation) ScoreLogs() []ScoreLog { return m.scoreLogs }
