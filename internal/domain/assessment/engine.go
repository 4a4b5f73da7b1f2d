// Package assessment scores an audit and picks its mitigation
// recommendations from one shared rule table.
package assessment

import (
	"fmt"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
	"github.com/bryanwahyu/homeready/internal/domain/catalog"
)

const (
	MinScore      = 0
	MaxScore      = 100
	BaselineScore = 20

	// DefaultBaselinePremium is the assumed annual homeowner premium in USD
	// used to turn savings percentages into dollars.
	DefaultBaselinePremium = 1800
)

// Level is the discrete risk band.
type Level string

const (
	LevelLow      Level = "Low"
	LevelModerate Level = "Moderate"
	LevelHigh     Level = "High"
	LevelCritical Level = "Critical"
)

// LevelFor maps a clamped score to its band.
func LevelFor(score int) Level {
	switch {
	case score < 25:
		return LevelLow
	case score < 50:
		return LevelModerate
	case score < 75:
		return LevelHigh
	}
	return LevelCritical
}

// Finding is the evaluation of one rule against one audit.
type Finding struct {
	Field          string  `json:"field"`
	Outcome        Outcome `json:"outcome"`
	Points         int     `json:"points"`
	Note           string  `json:"note,omitempty"`
	Recommendation string  `json:"recommendation,omitempty"`
}

// RiskAssessment is derived per request and never persisted.
type RiskAssessment struct {
	Hazard audit.Hazard `json:"hazard"`
	// HazardFallback is set when the stored hazard was not recognized and
	// the audit was scored as DefaultHazard instead.
	HazardFallback bool      `json:"hazardFallback,omitempty"`
	Score          int       `json:"score"`
	Level          Level     `json:"level"`
	Concerns       []string  `json:"concerns"`
	Strengths      []string  `json:"strengths"`
	Findings       []Finding `json:"findings"`
}

// Engine holds the rule tables and the catalog they point into.
// It has no mutable state and is safe for concurrent use.
type Engine struct {
	catalog         catalog.Catalog
	hazardRules     map[audit.Hazard][]Rule
	generalRules    []Rule
	baselinePremium int
	position        map[string]int // recommendation id -> catalog index
}

type Option func(*Engine)

// WithBaselinePremium overrides DefaultBaselinePremium.
func WithBaselinePremium(usd int) Option {
	return func(e *Engine) {
		if usd > 0 {
			e.baselinePremium = usd
		}
	}
}

// WithRules replaces the rule tables.
func WithRules(hazard map[audit.Hazard][]Rule, general []Rule) Option {
	return func(e *Engine) {
		e.hazardRules = hazard
		e.generalRules = general
	}
}

// NewEngine checks that every rule points at a recommendation present in c.
func NewEngine(c catalog.Catalog, opts ...Option) (*Engine, error) {
	e := &Engine{
		catalog:         c,
		hazardRules:     DefaultHazardRules,
		generalRules:    DefaultGeneralRules,
		baselinePremium: DefaultBaselinePremium,
		position:        map[string]int{},
	}
	for i, rec := range c.Recommendations() {
		e.position[rec.ID] = i
	}
	for _, o := range opts {
		o(e)
	}

	check := func(r Rule) error {
		if r.Recommendation == "" {
			return nil
		}
		if _, ok := c.Recommendation(r.Recommendation); !ok {
			return fmt.Errorf("assessment: rule %q references unknown recommendation %q", r.Field, r.Recommendation)
		}
		return nil
	}
	for _, rules := range e.hazardRules {
		for _, r := range rules {
			if err := check(r); err != nil {
				return nil, err
			}
		}
	}
	for _, r := range e.generalRules {
		if err := check(r); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// BaselinePremium is the premium used for savings estimates.
func (e *Engine) BaselinePremium() int { return e.baselinePremium }

// EffectiveHazard resolves the hazard an audit is scored against.
func EffectiveHazard(h audit.Hazard) (audit.Hazard, bool) {
	if h.Valid() {
		return h, false
	}
	if parsed, err := audit.ParseHazard(string(h)); err == nil {
		return parsed, false
	}
	return audit.DefaultHazard, true
}

// Assess scores a. It is a pure function of the answers and the rule table.
func (e *Engine) Assess(a *audit.Audit) RiskAssessment {
	hazard, fallback := EffectiveHazard(a.PrimaryHazard)
	ra := RiskAssessment{
		Hazard:         hazard,
		HazardFallback: fallback,
		Concerns:       []string{},
		Strengths:      []string{},
	}

	score := BaselineScore
	apply := func(r Rule) {
		o := r.Evaluate(a.Answers)
		pts := r.points(o)
		note := r.note(o)
		score += pts
		switch {
		case o.NeedsWork() && note != "":
			ra.Concerns = append(ra.Concerns, note)
		case o == OutcomeGood && note != "":
			ra.Strengths = append(ra.Strengths, note)
		}
		ra.Findings = append(ra.Findings, Finding{
			Field:          r.Field,
			Outcome:        o,
			Points:         pts,
			Note:           note,
			Recommendation: r.Recommendation,
		})
	}
	for _, r := range e.hazardRules[hazard] {
		apply(r)
	}
	for _, r := range e.generalRules {
		apply(r)
	}

	ra.Score = clamp(score, MinScore, MaxScore)
	ra.Level = LevelFor(ra.Score)
	return ra
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
