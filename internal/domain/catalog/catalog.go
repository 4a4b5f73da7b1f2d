// Package catalog holds the immutable mitigation, grant and insurance
// tables the report draws from. The production tables ship embedded as YAML
// and are parsed once; tests substitute their own Catalog.
package catalog

import (
	"bytes"
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
)

// Priority tiers, ranked High first.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Rank orders priorities; lower ranks sort first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Citation points at the FEMA (or similar) document a recommendation comes from.
type Citation struct {
	Document string `yaml:"document" json:"document"`
	Page     string `yaml:"page" json:"page"`
}

func (c Citation) String() string {
	if c.Page == "" {
		return c.Document
	}
	return c.Document + ", " + c.Page
}

// Recommendation is one mitigation action.
type Recommendation struct {
	ID            string       `yaml:"id" json:"id"`
	Hazard        audit.Hazard `yaml:"hazard" json:"hazard"`
	Title         string       `yaml:"title" json:"title"`
	Description   string       `yaml:"description" json:"description"`
	CostMin       int          `yaml:"costMin" json:"costMin"`
	CostMax       int          `yaml:"costMax" json:"costMax"`
	SavingsMinPct float64      `yaml:"savingsMinPct" json:"savingsMinPct"`
	SavingsMaxPct float64      `yaml:"savingsMaxPct" json:"savingsMaxPct"`
	Priority      Priority     `yaml:"priority" json:"priority"`
	Citation      Citation     `yaml:"citation" json:"citation"`
}

// CostMidpoint is the middle of the cost range in whole dollars.
func (r Recommendation) CostMidpoint() int { return (r.CostMin + r.CostMax) / 2 }

// SavingsMidpointPct is the middle of the insurance savings range.
func (r Recommendation) SavingsMidpointPct() float64 {
	return (r.SavingsMinPct + r.SavingsMaxPct) / 2
}

// GrantProgram is a funding source for mitigation work.
type GrantProgram struct {
	ID          string         `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	Agency      string         `yaml:"agency" json:"agency"`
	MaxAmount   int            `yaml:"maxAmount" json:"maxAmount,omitempty"`
	MaxPercent  float64        `yaml:"maxPercent" json:"maxPercent,omitempty"`
	Eligibility string         `yaml:"eligibility" json:"eligibility"`
	URL         string         `yaml:"url" json:"url,omitempty"`
	Hazards     []audit.Hazard `yaml:"hazards" json:"hazards"`
}

// InsuranceProgram is a premium discount available for mitigation.
type InsuranceProgram struct {
	ID          string         `yaml:"id" json:"id"`
	Name        string         `yaml:"name" json:"name"`
	Agency      string         `yaml:"agency" json:"agency"`
	MaxPercent  float64        `yaml:"maxPercent" json:"maxPercent"`
	Eligibility string         `yaml:"eligibility" json:"eligibility"`
	Hazards     []audit.Hazard `yaml:"hazards" json:"hazards"`
}

// Catalog is read-only access to the static tables.
type Catalog interface {
	Recommendation(id string) (Recommendation, bool)
	Recommendations() []Recommendation
	Grants() []GrantProgram
	InsurancePrograms() []InsuranceProgram
}

// Static is an in-memory Catalog. It is safe for concurrent reads.
type Static struct {
	recs      []Recommendation
	byID      map[string]int
	grants    []GrantProgram
	insurance []InsuranceProgram
}

type document struct {
	Recommendations   []Recommendation   `yaml:"recommendations"`
	Grants            []GrantProgram     `yaml:"grants"`
	InsurancePrograms []InsuranceProgram `yaml:"insurancePrograms"`
}

// New validates the tables and builds a Static catalog.
func New(recs []Recommendation, grants []GrantProgram, insurance []InsuranceProgram) (*Static, error) {
	s := &Static{
		recs:      append([]Recommendation(nil), recs...),
		byID:      make(map[string]int, len(recs)),
		grants:    append([]GrantProgram(nil), grants...),
		insurance: append([]InsuranceProgram(nil), insurance...),
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	for i, r := range s.recs {
		s.byID[r.ID] = i
	}
	return s, nil
}

// Parse reads a catalog from YAML.
func Parse(data []byte) (*Static, error) {
	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return New(doc.Recommendations, doc.Grants, doc.InsurancePrograms)
}

//go:embed catalog.yaml
var defaultYAML []byte

var loadDefault = sync.OnceValues(func() (*Static, error) {
	return Parse(defaultYAML)
})

// Default returns the embedded production catalog, parsed once per process.
func Default() (*Static, error) { return loadDefault() }

func (s *Static) Recommendation(id string) (Recommendation, bool) {
	i, ok := s.byID[id]
	if !ok {
		return Recommendation{}, false
	}
	return s.recs[i], true
}

func (s *Static) Recommendations() []Recommendation {
	return append([]Recommendation(nil), s.recs...)
}

func (s *Static) Grants() []GrantProgram {
	return append([]GrantProgram(nil), s.grants...)
}

func (s *Static) InsurancePrograms() []InsuranceProgram {
	return append([]InsuranceProgram(nil), s.insurance...)
}

func (s *Static) validate() error {
	seen := map[string]bool{}
	for _, r := range s.recs {
		switch {
		case r.ID == "":
			return fmt.Errorf("catalog: recommendation %q has no id", r.Title)
		case seen[r.ID]:
			return fmt.Errorf("catalog: duplicate recommendation id %q", r.ID)
		case !r.Hazard.Valid() && r.Hazard != audit.HazardGeneral:
			return fmt.Errorf("catalog: recommendation %q has unknown hazard %q", r.ID, r.Hazard)
		case r.CostMin < 0 || r.CostMin > r.CostMax:
			return fmt.Errorf("catalog: recommendation %q cost range %d-%d is invalid", r.ID, r.CostMin, r.CostMax)
		case !validPct(r.SavingsMinPct) || !validPct(r.SavingsMaxPct) || r.SavingsMinPct > r.SavingsMaxPct:
			return fmt.Errorf("catalog: recommendation %q savings range %.1f-%.1f is invalid", r.ID, r.SavingsMinPct, r.SavingsMaxPct)
		case r.Priority.Rank() > 2:
			return fmt.Errorf("catalog: recommendation %q has unknown priority %q", r.ID, r.Priority)
		}
		seen[r.ID] = true
	}
	for _, g := range s.grants {
		if seen[g.ID] || g.ID == "" {
			return fmt.Errorf("catalog: grant id %q is empty or duplicated", g.ID)
		}
		if !validPct(g.MaxPercent) || g.MaxAmount < 0 {
			return fmt.Errorf("catalog: grant %q amount is invalid", g.ID)
		}
		if err := validHazards(g.ID, g.Hazards); err != nil {
			return err
		}
		seen[g.ID] = true
	}
	for _, p := range s.insurance {
		if seen[p.ID] || p.ID == "" {
			return fmt.Errorf("catalog: insurance program id %q is empty or duplicated", p.ID)
		}
		if !validPct(p.MaxPercent) {
			return fmt.Errorf("catalog: insurance program %q percentage is invalid", p.ID)
		}
		if err := validHazards(p.ID, p.Hazards); err != nil {
			return err
		}
		seen[p.ID] = true
	}
	return nil
}

func validPct(v float64) bool { return v >= 0 && v <= 100 }

func validHazards(id string, hs []audit.Hazard) error {
	if len(hs) == 0 {
		return fmt.Errorf("catalog: %q lists no hazards", id)
	}
	for _, h := range hs {
		if !h.Valid() && h != audit.HazardGeneral {
			return fmt.Errorf("catalog: %q has unknown hazard %q", id, h)
		}
	}
	return nil
}
