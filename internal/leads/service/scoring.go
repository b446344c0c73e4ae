package service

import (
	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/internal/leads/repository"
	"lead_pipeline_backend/internal/leads/scoring"
)

// scoreOutcome describes what applyScore changed.
type scoreOutcome struct {
	Result         scoring.Result
	PreviousScore  int
	PreviousStatus domain.Status
	Status         domain.Status
}

func (o scoreOutcome) statusChanged() bool { return o.Status != o.PreviousStatus }

// applyScore re-scores the locked lead. It logs a score change only when the
// score moved and a status change only when the tier moved; terminal
// statuses are kept.
func (s *Service) applyScore(m *repository.Mutation, trigger string) scoreOutcome {
	lead := &m.Lead
	result := s.engine.Score(scoring.Input{
		Source:   lead.Source,
		Budget:   lead.Budget,
		Timeline: lead.Timeline,
	})

	out := scoreOutcome{
		Result:         result,
		PreviousScore:  lead.Score,
		PreviousStatus: lead.Status,
		Status:         domain.ResolveStatus(lead.Status, result.Status),
	}

	if result.Score != lead.Score {
		m.LogScore(lead.Score, result.Score, result.Reason(), result.RulesApplied())
		m.Log(domain.ActivityScoreUpdated, "", map[string]any{
			"previousScore": lead.Score,
			"newScore":      result.Score,
			"trigger":       trigger,
		})
		lead.Score = result.Score
	}
	setStatus(m, out.Status, trigger)
	return out
}

// setStatus moves the lead to next and logs the change.
func setStatus(m *repository.Mutation, next domain.Status, reason string) bool {
	previous := m.Lead.Status
	if next == previous {
		return false
	}
	m.Lead.Status = next
	m.Log(domain.ActivityStatusChanged, "", map[string]any{
		"from":   string(previous),
		"to":     string(next),
		"reason": reason,
	})
	return true
}
