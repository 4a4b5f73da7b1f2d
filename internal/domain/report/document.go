// Package report turns an assessment into a printable document model.
// Layout decisions (what goes on which page) live here; markup and PDF
// conversion live in infra/render.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/bryanwahyu/homeready/internal/domain/assessment"
	"github.com/bryanwahyu/homeready/internal/domain/audit"
	"github.com/bryanwahyu/homeready/internal/domain/catalog"
)

const (
	Brand = "HomeReady"

	Disclaimer = "This report is an educational estimate based on your answers. " +
		"It is not an engineering inspection, an insurance quote or a guarantee of grant eligibility. " +
		"Costs and savings are typical ranges and vary by region, contractor and insurer. " +
		"Consult a licensed professional before starting structural work."
)

// Input is everything a report is built from.
type Input struct {
	Audit           *audit.Audit
	Assessment      assessment.RiskAssessment
	Recommendations []assessment.SelectedRecommendation
	Grants          []catalog.GrantProgram
	Insurance       []catalog.InsuranceProgram
	Insight         string
	GeneratedAt     time.Time
}

// Summary holds the headline numbers of the executive summary.
type Summary struct {
	Score          int
	Level          assessment.Level
	Concerns       int
	Actions        int
	HighPriority   int
	CostMin        int
	CostMax        int
	AnnualSavings  int
	GrantPrograms  int
	InsuranceCount int
}

// Document is the complete, layout-independent report.
type Document struct {
	Title          string
	AuditID        audit.ID
	ZIPCode        string
	Hazard         audit.Hazard
	HazardLabel    string
	HazardFallback bool
	Date           string

	Summary         Summary
	SummaryText     string
	Concerns        []string
	Strengths       []string
	Recommendations []assessment.SelectedRecommendation
	Grants          []catalog.GrantProgram
	Insurance       []catalog.InsuranceProgram
	Insight         string
	Disclaimer      string
}

// Build assembles the document. It is a pure function of in.
func Build(in Input) Document {
	ra := in.Assessment
	lo, hi := assessment.CostRange(in.Recommendations)
	s := Summary{
		Score:          ra.Score,
		Level:          ra.Level,
		Concerns:       len(ra.Concerns),
		Actions:        len(in.Recommendations),
		CostMin:        lo,
		CostMax:        hi,
		AnnualSavings:  assessment.TotalSavings(in.Recommendations),
		GrantPrograms:  len(in.Grants),
		InsuranceCount: len(in.Insurance),
	}
	for _, r := range in.Recommendations {
		if r.Priority == catalog.PriorityHigh {
			s.HighPriority++
		}
	}

	doc := Document{
		Title:           fmt.Sprintf("%s Preparedness Report", ra.Hazard.Label()),
		AuditID:         in.Audit.ID,
		ZIPCode:         in.Audit.ZIPCode,
		Hazard:          ra.Hazard,
		HazardLabel:     ra.Hazard.Label(),
		HazardFallback:  ra.HazardFallback,
		Date:            in.GeneratedAt.UTC().Format("January 2, 2006"),
		Summary:         s,
		Concerns:        ra.Concerns,
		Strengths:       ra.Strengths,
		Recommendations: in.Recommendations,
		Grants:          in.Grants,
		Insurance:       in.Insurance,
		Insight:         strings.TrimSpace(in.Insight),
		Disclaimer:      Disclaimer,
	}
	doc.SummaryText = summaryText(doc)
	return doc
}

func summaryText(d Document) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Your home in ZIP code %s scored %d out of 100 for %s risk, which places it in the %s band.",
		d.ZIPCode, d.Summary.Score, strings.ToLower(d.HazardLabel), d.Summary.Level)
	if d.HazardFallback {
		b.WriteString(" The hazard on file was not recognized, so the earthquake checklist was used.")
	}
	switch d.Summary.Actions {
	case 0:
		b.WriteString(" We found no gaps that need mitigation work. Keep your preparations current.")
	case 1:
		fmt.Fprintf(&b, " We recommend 1 action with an estimated cost of %s.",
			USDRange(d.Summary.CostMin, d.Summary.CostMax))
	default:
		fmt.Fprintf(&b, " We recommend %d actions, %d of them high priority, with a combined estimated cost of %s.",
			d.Summary.Actions, d.Summary.HighPriority, USDRange(d.Summary.CostMin, d.Summary.CostMax))
	}
	if d.Summary.AnnualSavings > 0 {
		fmt.Fprintf(&b, " Completing them could lower your homeowner premium by about %s a year.", USD(d.Summary.AnnualSavings))
	}
	if d.Summary.GrantPrograms > 0 {
		fmt.Fprintf(&b, " %d grant %s may help pay for the work.", d.Summary.GrantPrograms, plural(d.Summary.GrantPrograms, "program", "programs"))
	}
	return b.String()
}

// USD formats whole dollars as "$12,345".
func USD(n int) string { return "$" + humanize.Comma(int64(n)) }

// USDRange formats a cost range, collapsing equal bounds.
func USDRange(lo, hi int) string {
	if lo == hi {
		return USD(lo)
	}
	return USD(lo) + " to " + USD(hi)
}

// Percent formats a percentage without a trailing ".0".
func Percent(p float64) string {
	return strings.TrimSuffix(fmt.Sprintf("%.1f", p), ".0") + "%"
}

// PercentRange formats a savings range.
func PercentRange(lo, hi float64) string {
	if lo == hi {
		return Percent(lo)
	}
	return strings.TrimSuffix(Percent(lo), "%") + " to " + Percent(hi)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

// Filename is the download name for a rendered report.
func Filename(a *audit.Audit, h audit.Hazard) string {
	zip := a.ZIPCode
	if zip == "" {
		zip = "unknown"
	}
	return fmt.Sprintf("preparedness-report-%s-%s-%d.pdf", zip, h, a.ID)
}
