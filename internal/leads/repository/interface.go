package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no lead matches.
var ErrNotFound = errors.New("lead not found")

// LeadReader provides read-only access to lead data.
type LeadReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	// FindRecentByPhone returns the newest lead with phone created at or
	// after since, or ErrNotFound.
	FindRecentByPhone(ctx context.Context, phone string, since time.Time) (Lead, error)
	List(ctx context.Context, params ListParams) ([]Lead, int, error)
}

// LeadWriter creates and mutates leads.
type LeadWriter interface {
	// Create inserts the lead together with its creation activity.
	Create(ctx context.Context, params CreateLeadParams, created NewActivity) (Lead, error)
	// CreateUnlessRecent returns the newest lead with the same phone created
	// at or after since with existing set, and otherwise inserts like Create.
	// Calls for one phone are serialized.
	CreateUnlessRecent(ctx context.Context, params CreateLeadParams, created NewActivity, since time.Time) (lead Lead, existing bool, err error)
	// Mutate locks the lead, runs fn and persists the result atomically.
	// fn must not call back into the store.
	Mutate(ctx context.Context, id uuid.UUID, fn func(m *Mutation) error) (Lead, error)
}

// ActivityLog appends to and reads a lead's audit trail.
type ActivityLog interface {
	AddActivity(ctx context.Context, activity NewActivity) error
	ListActivities(ctx context.Context, leadID uuid.UUID, limit int) ([]Activity, error)
	ListScoreLogs(ctx context.Context, leadID uuid.UUID, limit int) ([]ScoreLog, error)
}

// SendCounter enforces per-lead message caps. Reserve increments the
// counter only while it is below max and reports whether a slot was taken;
// Release gives a slot back after a failed send.
type SendCounter interface {
	ReserveSMS(ctx context.Context, id uuid.UUID, max int) (bool, error)
	ReleaseSMS(ctx context.Context, id uuid.UUID) error
	ReserveEmail(ctx context.Context, id uuid.UUID, max int) (bool, error)
	ReleaseEmail(ctx context.Context, id uuid.UUID) error
}

// StatsReader provides the aggregates behind the stats endpoint.
type StatsReader interface {
	Summary(ctx context.Context, todayStart, weekStart time.Time) (Summary, error)
	CountByStatus(ctx context.Context) (map[string]int, error)
	CountBySource(ctx context.Context) (map[string]int, error)
}

// Store is the full lead store.
type Store interface {
	LeadReader
	LeadWriter
	ActivityLog
	SendCounter
	StatsReader
}

var (
	_ Store = (*Repository)(nil)
	_ Store = (*MemoryStore)(nil)
)
