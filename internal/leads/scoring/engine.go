// Package scoring computes a lead's intent score and status tier from its
// attributes. It is pure: persisting the result is the caller's job.
package scoring

import (
	"fmt"
	"strings"

	"lead_pipeline_backend/internal/leads/domain"
)

// Rule identifiers recorded in breakdowns and score logs.
const (
	RuleLeadCaptured      = "leadCaptured"
	RuleBudgetQualified   = "budgetQualified"
	RuleBudgetUnqualified = "budgetUnqualified"
	RuleBookingSoon       = "bookingSoon"
	RuleBookingMedium     = "bookingMedium"
	RuleBookingLater      = "bookingLater"
)

// Thresholds map scores onto status tiers.
type Thresholds struct {
	Hot           int
	Warm          int
	BudgetMinimum float64
}

// Input is the subset of a lead the rules look at.
type Input struct {
	Source   domain.Source
	Budget   *string
	Timeline *string
}

// BreakdownItem is one rule that fired.
type BreakdownItem struct {
	Rule   string `json:"rule"`
	Points int    `json:"points"`
	Reason string `json:"reason"`
}

// Result is the outcome of scoring a lead.
type Result struct {
	Score     int             `json:"score"`
	Status    domain.Status   `json:"status"`
	Breakdown []BreakdownItem `json:"breakdown"`
}

// Reason joins the human-readable reasons for the score log.
func (r Result) Reason() string {
	parts := make([]string, len(r.Breakdown))
	for i, item := range r.Breakdown {
		parts[i] = item.Reason
	}
	return strings.Join(parts, "; ")
}

// RulesApplied joins the rule ids for the score log.
func (r Result) RulesApplied() string {
	parts := make([]string, len(r.Breakdown))
	for i, item := range r.Breakdown {
		parts[i] = item.Rule
	}
	return strings.Join(parts, ", ")
}

// Engine scores leads against a rule table.
type Engine struct {
	rules      Rules
	thresholds Thresholds
}

// NewEngine builds an engine. rules.Sources must not be nil.
func NewEngine(rules Rules, thresholds Thresholds) *Engine {
	return &Engine{rules: rules, thresholds: thresholds}
}

// Score applies every rule in order, floors the total at zero and maps it
// onto a status tier.
func (e *Engine) Score(in Input) Result {
	var breakdown []BreakdownItem
	add := func(rule string, points int, reason string) {
		breakdown = append(breakdown, BreakdownItem{Rule: rule, Points: points, Reason: reason})
	}

	add(RuleLeadCaptured, e.rules.LeadCaptured, "Lead captured")

	if points := e.rules.Sources[in.Source]; points != 0 {
		add("source_"+strings.ToLower(string(in.Source)), points, "Source: "+string(in.Source))
	}

	if in.Budget != nil {
		if value, ok := ParseBudget(*in.Budget); ok {
			if value >= e.thresholds.BudgetMinimum {
				add(RuleBudgetQualified, e.rules.BudgetQualified,
					fmt.Sprintf("Budget $%s >= $%s", formatAmount(value), formatAmount(e.thresholds.BudgetMinimum)))
			} else {
				add(RuleBudgetUnqualified, e.rules.BudgetUnqualified,
					fmt.Sprintf("Budget $%s < $%s", formatAmount(value), formatAmount(e.thresholds.BudgetMinimum)))
			}
		}
	}

	if in.Timeline != nil {
		if days, ok := ParseTimelineDays(*in.Timeline); ok {
			switch {
			case days <= e.rules.SoonMaxDays:
				add(RuleBookingSoon, e.rules.BookingSoon,
					fmt.Sprintf("Timeline <= %d days (%d days)", e.rules.SoonMaxDays, days))
			case days <= e.rules.MediumMaxDays:
				add(RuleBookingMedium, e.rules.BookingMedium,
					fmt.Sprintf("Timeline %d-%d days (%d days)", e.rules.SoonMaxDays+1, e.rules.MediumMaxDays, days))
			default:
				add(RuleBookingLater, e.rules.BookingLater,
					fmt.Sprintf("Timeline %d+ days (%d days)", e.rules.MediumMaxDays, days))
			}
		}
	}

	score := 0
	for _, item := range breakdown {
		score += item.Points
	}
	if score < 0 {
		score = 0
	}

	return Result{Score: score, Status: e.StatusFor(score), Breakdown: breakdown}
}

// StatusFor maps a score onto HOT, WARM or COLD.
func (e *Engine) StatusFor(score int) domain.Status {
	switch {
	case score >= e.thresholds.Hot:
		return domain.StatusHot
	case score >= e.thresholds.Warm:
		return domain.StatusWarm
	default:
		return domain.StatusCold
	}
}

// formatAmount renders 50000 as "50,000".
func formatAmount(v float64) string {
	whole := fmt.Sprintf("%.0f", v)
	if len(whole) <= 3 {
		return whole
	}
	var b strings.Builder
	lead := len(whole) % 3
	if lead > 0 {
		b.WriteString(whole[:lead])
	}
	for i := lead; i < len(whole); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(whole[i : i+3])
	}
	return b.String()
}
