// Package service orchestrates the lead pipeline: intake, the qualification
// funnel, scoring and routing, and the operator-facing management actions.
package service

import (
	"context"
	"time"

	"lead_pipeline_backend/internal/crm"
	"lead_pipeline_backend/internal/events"
	"lead_pipeline_backend/internal/leads/normalizer"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/leads/scoring"
	"lead_pipeline_backend/internal/scheduler"
	"lead_pipeline_backend/platform/config"
	"lead_pipeline_backend/platform/logger"

	"github.com/google/uuid"
)

// Normalizer turns a channel payload into the canonical intake record.
type Normalizer interface {
	Normalize(ctx context.Context, source string, raw []byte) (normalizer.NormalizedLead, error)
}

// Scheduler enqueues the delayed pipeline tasks.
type Scheduler interface {
	EnqueueSMS(ctx context.Context, payload scheduler.SMSPayload, delay time.Duration) error
	EnqueueEmail(ctx context.Context, payload scheduler.EmailPayload, delay time.Duration) error
	EnqueueCRMSync(ctx context.Context, payload scheduler.CRMSyncPayload, delay time.Duration) error
	EnqueueEngagementCheck(ctx context.Context, payload scheduler.EngagementPayload, delay time.Duration) error
}

// CRMSyncer pushes a lead to the CRM synchronously.
type CRMSyncer interface {
	Sync(ctx context.Context, leadID uuid.UUID, action crm.Action) (crm.SyncResult, error)
}

// Settings are the pipeline's link and timing knobs.
type Settings struct {
	LinkBaseURL          string
	DedupWindow          time.Duration
	InitialSMSDelay      time.Duration
	InitialEmailDelay    time.Duration
	EngagementCheckDelay time.Duration
	NurtureReminderDelay time.Duration
	NurtureEmailDelay    time.Duration
}

// SettingsFromConfig reads Settings from the pipeline configuration.
func SettingsFromConfig(cfg config.PipelineConfig) Settings {
	return Settings{
		LinkBaseURL:          cfg.GetQualificationLinkBaseURL(),
		DedupWindow:          cfg.GetDedupWindow(),
		InitialSMSDelay:      cfg.GetInitialSMSDelay(),
		InitialEmailDelay:    cfg.GetInitialEmailDelay(),
		EngagementCheckDelay: cfg.GetEngagementCheckDelay(),
		NurtureReminderDelay: cfg.GetNurtureReminderDelay(),
		NurtureEmailDelay:    cfg.GetNurtureEmailDelay(),
	}
}

// Deps are the collaborators of Service.
type Deps struct {
	Store      repository.Store
	Normalizer Normalizer
	Engine     *scoring.Engine
	Scheduler  Scheduler
	Syncer     CRMSyncer
	Bus        events.Bus
	Settings   Settings
	Log        *logger.Logger
}

type Service struct {
	store      repository.Store
	normalizer Normalizer
	engine     *scoring.Engine
	scheduler  Scheduler
	syncer     CRMSyncer
	bus        events.Bus
	settings   Settings
	log        *logger.Logger
	now        func() time.Time
}

func New(deps Deps) *Service {
	return &Service{
		store:      deps.Store,
		normalizer: deps.Normalizer,
		engine:     deps.Engine,
		scheduler:  deps.Scheduler,
		syncer:     deps.Syncer,
		bus:        deps.Bus,
		settings:   deps.Settings,
		log:        deps.Log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// QualificationLink returns the personalised form URL for a lead.
func (s *Service) QualificationLink(id uuid.UUID) string {
	return s.settings.LinkBaseURL + "?lid=" + id.String()
}

// enqueueLogged enqueues a task and logs instead of failing the caller: the
// lead is already persisted and the engagement check backstops a lost task.
func (s *Service) enqueueLogged(ctx context.Context, kind string, enqueue func() error) {
	if err := enqueue(); err != nil {
		s.log.WithContext(ctx).Error("failed to enqueue task", "kind", kind, "error", err)
	}
}
