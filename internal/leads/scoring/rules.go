package scoring

import (
	"fmt"
	"os"

	"lead_pipeline_backend/internal/leads/domain"
	"lead_pipeline_backend/platform/config"

	"gopkg.in/yaml.v3"
)

// Rules holds the point value of every scoring rule.
type Rules struct {
	LeadCaptured      int                   `yaml:"lead_captured"`
	Sources           map[domain.Source]int `yaml:"-"`
	BudgetQualified   int                   `yaml:"budget_qualified"`
	BudgetUnqualified int                   `yaml:"budget_unqualified"`
	BookingSoon       int                   `yaml:"booking_soon"`
	BookingMedium     int                   `yaml:"booking_medium"`
	BookingLater      int                   `yaml:"booking_later"`
	SoonMaxDays       int                   `yaml:"soon_max_days"`
	MediumMaxDays     int                   `yaml:"medium_max_days"`
}

// DefaultRules returns the built-in rule table.
func DefaultRules() Rules {
	return Rules{
		LeadCaptured: 10,
		Sources: map[domain.Source]int{
			domain.SourceGoogle:  10,
			domain.SourceMeta:    5,
			domain.SourceTikTok:  0,
			domain.SourceDirect:  0,
			domain.SourceLanding: 0,
		},
		BudgetQualified:   20,
		BudgetUnqualified: -20,
		BookingSoon:       20,
		BookingMedium:     10,
		BookingLater:      0,
		SoonMaxDays:       7,
		MediumMaxDays:     30,
	}
}

// LoadRules overlays the YAML file at path onto DefaultRules. An empty path
// returns the defaults.
func LoadRules(path string) (Rules, error) {
	rules := DefaultRules()
	if path == "" {
		return rules, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, fmt.Errorf("read scoring rules: %w", err)
	}
	return ParseRules(raw)
}

// ParseRules overlays YAML onto DefaultRules. Source keys are matched
// case-insensitively.
func ParseRules(raw []byte) (Rules, error) {
	rules := DefaultRules()
	if err := yaml.Unmarshal(raw, &rules); err != nil {
		return Rules{}, fmt.Errorf("parse scoring rules: %w", err)
	}

	var file struct {
		Sources map[string]int `yaml:"sources"`
	}
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Rules{}, fmt.Errorf("parse scoring rules: %w", err)
	}
	for name, points := range file.Sources {
		src, ok := domain.ParseSource(name)
		if !ok {
			return Rules{}, fmt.Errorf("parse scoring rules: unknown source %q", name)
		}
		rules.Sources[src] = points
	}

	if rules.SoonMaxDays <= 0 || rules.MediumMaxDays < rules.SoonMaxDays {
		return Rules{}, fmt.Errorf("parse scoring rules: invalid booking windows %d/%d", rules.SoonMaxDays, rules.MediumMaxDays)
	}
	return rules, nil
}

// NewEngineFromConfig loads the rule file and thresholds named by cfg.
func NewEngineFromConfig(cfg config.ScoringConfig) (*Engine, error) {
	rules, err := LoadRules(cfg.GetScoringRulesFile())
	if err != nil {
		return nil, err
	}
	return NewEngine(rules, Thresholds{
		Hot:           cfg.GetHotThreshold(),
		Warm:          cfg.GetWarmThreshold(),
		BudgetMinimum: cfg.GetBudgetMinimum(),
	}), nil
}
