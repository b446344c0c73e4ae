package domain

import "time"

// Stage is a position in the qualification funnel.
type Stage int

const (
	StageCreated Stage = iota
	StageLinkDelivered
	StageLinkOpened
	StageStarted
	StageCompleted
)

func (s Stage) String() string {
	switch s {
	case StageLinkDelivered:
		return "link_delivered"
	case StageLinkOpened:
		return "link_opened"
	case StageStarted:
		return "started"
	case StageCompleted:
		return "completed"
	default:
		return "created"
	}
}

// Funnel holds the qualification timestamps. Each one is written at most
// once; later marks never overwrite an earlier value.
type Funnel struct {
	LinkDeliveredAt          *time.Time
	LinkOpenedAt             *time.Time
	QualificationStartedAt   *time.Time
	QualificationCompletedAt *time.Time
}

// Stage returns the furthest stage reached.
func (f Funnel) Stage() Stage {
	switch {
	case f.QualificationCompletedAt != nil:
		return StageCompleted
	case f.QualificationStartedAt != nil:
		return StageStarted
	case f.LinkOpenedAt != nil:
		return StageLinkOpened
	case f.LinkDeliveredAt != nil:
		return StageLinkDelivered
	default:
		return StageCreated
	}
}

// IsCompleted reports whether the qualification form was submitted.
func (f Funnel) IsCompleted() bool {
	return f.QualificationCompletedAt != nil
}

// MarkDelivered records the first successful link delivery.
func (f *Funnel) MarkDelivered(now time.Time) bool {
	return setOnce(&f.LinkDeliveredAt, now)
}

// MarkOpened records the first page load of the qualification link.
func (f *Funnel) MarkOpened(now time.Time) bool {
	return setOnce(&f.LinkOpenedAt, now)
}

// MarkStarted records the first form interaction, back-filling the open.
// It reports whether the start itself was newly recorded.
func (f *Funnel) MarkStarted(now time.Time) bool {
	f.MarkOpened(now)
	return setOnce(&f.QualificationStartedAt, now)
}

// MarkCompleted records the form submission, back-filling earlier stages.
// It reports whether the completion was newly recorded.
func (f *Funnel) MarkCompleted(now time.Time) bool {
	f.MarkStarted(now)
	return setOnce(&f.QualificationCompletedAt, now)
}

// EngagementAction is the outcome of the delayed link-engagement check.
type EngagementAction int

const (
	// EngagementNone: the lead finished qualifying.
	EngagementNone EngagementAction = iota
	// EngagementReminder: the lead opened or started but did not finish.
	EngagementReminder
	// EngagementNurture: the lead never opened the link.
	EngagementNurture
)

func (a EngagementAction) String() string {
	switch a {
	case EngagementReminder:
		return "reminder"
	case EngagementNurture:
		return "nurture"
	default:
		return "none"
	}
}

// NextEngagementAction decides what the engagement check should do.
func (f Funnel) NextEngagementAction() EngagementAction {
	switch f.Stage() {
	case StageCompleted:
		return EngagementNone
	case StageStarted, StageLinkOpened:
		return EngagementReminder
	default:
		return EngagementNurture
	}
}

func setOnce(field **time.Time, now time.Time) bool {
	if *field != nil {
		return false
	}
	t := now.UTC()
	*field = &t
	return true
}
