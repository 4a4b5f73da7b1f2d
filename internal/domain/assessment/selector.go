package assessment

import (
	"math"
	"sort"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
	"github.com/bryanwahyu/homeready/internal/domain/catalog"
)

// SelectedRecommendation is a catalog entry chosen for one audit with its
// derived cost and savings figures.
type SelectedRecommendation struct {
	catalog.Recommendation
	Trigger                string  `json:"trigger"`
	Outcome                Outcome `json:"outcome"`
	CostMidpoint           int     `json:"costMidpoint"`
	EstimatedAnnualSavings int     `json:"estimatedAnnualSavings"`
}

// Recommend selects the mitigations for a from the findings in ra. A
// recommendation is included when its rule came out bad or partial. The
// result is ordered High, Medium, Low with catalog order kept within a
// tier, and never repeats an id.
func (e *Engine) Recommend(a *audit.Audit, ra RiskAssessment) []SelectedRecommendation {
	hazard := ra.Hazard
	if hazard == "" {
		hazard, _ = EffectiveHazard(a.PrimaryHazard)
	}

	seen := map[string]bool{}
	out := []SelectedRecommendation{}
	for _, f := range ra.Findings {
		if !f.Outcome.NeedsWork() || f.Recommendation == "" || seen[f.Recommendation] {
			continue
		}
		rec, ok := e.catalog.Recommendation(f.Recommendation)
		if !ok {
			continue
		}
		if rec.Hazard != hazard && rec.Hazard != audit.HazardGeneral {
			continue
		}
		seen[rec.ID] = true
		out = append(out, SelectedRecommendation{
			Recommendation:         rec,
			Trigger:                f.Field,
			Outcome:                f.Outcome,
			CostMidpoint:           rec.CostMidpoint(),
			EstimatedAnnualSavings: e.annualSavings(rec),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := out[i].Priority.Rank(), out[j].Priority.Rank()
		if ri != rj {
			return ri < rj
		}
		return e.position[out[i].ID] < e.position[out[j].ID]
	})
	return out
}

func (e *Engine) annualSavings(rec catalog.Recommendation) int {
	return int(math.Round(float64(e.baselinePremium) * rec.SavingsMidpointPct() / 100))
}

// TotalSavings sums the estimated annual savings of recs.
func TotalSavings(recs []SelectedRecommendation) int {
	var n int
	for _, r := range recs {
		n += r.EstimatedAnnualSavings
	}
	return n
}

// CostRange sums the cost bounds of recs.
func CostRange(recs []SelectedRecommendation) (lo, hi int) {
	for _, r := range recs {
		lo += r.CostMin
		hi += r.CostMax
	}
	return lo, hi
}
