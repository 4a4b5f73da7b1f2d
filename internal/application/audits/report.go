package audits

import (
	"context"
	"errors"
	"fmt"

	"github.com/bryanwahyu/homeready/internal/domain/ai"
	"github.com/bryanwahyu/homeready/internal/domain/assessment"
	"github.com/bryanwahyu/homeready/internal/domain/audit"
	"github.com/bryanwahyu/homeready/internal/domain/catalog"
	"github.com/bryanwahyu/homeready/internal/domain/report"
)

// Preview is the assessment of an audit without the rendered report.
type Preview struct {
	Audit           *audit.Audit                        `json:"audit"`
	Assessment      assessment.RiskAssessment           `json:"assessment"`
	Recommendations []assessment.SelectedRecommendation `json:"recommendations"`
	Grants          []catalog.GrantProgram              `json:"grants"`
	Insurance       []catalog.InsuranceProgram          `json:"insurance"`
	CostMin         int                                 `json:"costMin"`
	CostMax         int                                 `json:"costMax"`
	AnnualSavings   int                                 `json:"annualSavings"`
}

type ReportOptions struct {
	// Insights adds the AI written paragraph. It fails with
	// ai.ErrNotConfigured when no model is configured.
	Insights bool
}

// Report is a generated PDF.
type Report struct {
	Audit      *audit.Audit
	Filename   string
	PDF        []byte
	ArchiveURL string
}

// Report outcome labels.
const (
	outcomeSuccess = "success"
	outcomeTimeout = "timeout"
	outcomeError   = "error"
)

func (s *Service) preview(a *audit.Audit) Preview {
	ra := s.Engine.Assess(a)
	recs := s.Engine.Recommend(a, ra)
	lo, hi := assessment.CostRange(recs)
	return Preview{
		Audit:           a,
		Assessment:      ra,
		Recommendations: recs,
		Grants:          catalog.GrantsFor(s.Catalog, ra.Hazard),
		Insurance:       catalog.InsuranceProgramsFor(s.Catalog, ra.Hazard),
		CostMin:         lo,
		CostMax:         hi,
		AnnualSavings:   assessment.TotalSavings(recs),
	}
}

// Assess scores the stored audit. It has no side effects.
func (s *Service) Assess(ctx context.Context, id audit.ID) (Preview, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return Preview{}, err
	}
	return s.preview(a), nil
}

// document loads everything a report needs and builds it.
func (s *Service) document(ctx context.Context, id audit.ID, opts ReportOptions) (*audit.Audit, report.Document, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, report.Document{}, err
	}
	if s.RequirePayment && a.PaymentRef == "" {
		return nil, report.Document{}, fmt.Errorf("audit %d: %w", id, audit.ErrPaymentRequired)
	}

	p := s.preview(a)
	var insight string
	if opts.Insights {
		if insight, err = s.insight(ctx, p); err != nil {
			return nil, report.Document{}, err
		}
	}

	doc := report.Build(report.Input{
		Audit:           a,
		Assessment:      p.Assessment,
		Recommendations: p.Recommendations,
		Grants:          p.Grants,
		Insurance:       p.Insurance,
		Insight:         insight,
		GeneratedAt:     s.now(),
	})
	return a, doc, nil
}

// insight returns ai.ErrNotConfigured and ai.ErrQuotaExceeded to the caller.
// Any other model failure leaves the paragraph out of the report.
func (s *Service) insight(ctx context.Context, p Preview) (string, error) {
	m := s.metrics().InsightRequests
	if !s.Insights.Configured() {
		m.WithLabelValues("not_configured").Inc()
		return "", ai.ErrNotConfigured
	}
	text, err := s.Insights.Insight(ctx, p.Audit.ZIPCode, p.Assessment, p.Recommendations)
	switch {
	case err == nil:
		m.WithLabelValues(outcomeSuccess).Inc()
		return text, nil
	case errors.Is(err, ai.ErrQuotaExceeded):
		m.WithLabelValues("quota").Inc()
		return "", err
	default:
		m.WithLabelValues(outcomeError).Inc()
		s.log().WarnContext(ctx, "insight omitted from report", "audit_id", p.Audit.ID, "error", err)
		return "", nil
	}
}

// ReportHTML renders the report markup without converting it or touching
// the completion flag.
func (s *Service) ReportHTML(ctx context.Context, id audit.ID, opts ReportOptions) ([]byte, error) {
	_, doc, err := s.document(ctx, id, opts)
	if err != nil {
		return nil, err
	}
	return s.Renderer.HTML(doc)
}

// GenerateReport renders the PDF for id. The audit is marked completed only
// after the PDF exists. Archive failures are logged and do not fail the call.
func (s *Service) GenerateReport(ctx context.Context, id audit.ID, opts ReportOptions) (*Report, error) {
	a, doc, err := s.document(ctx, id, opts)
	if err != nil {
		return nil, err
	}

	m := s.metrics()
	start := s.now()
	pdf, err := s.Renderer.PDF(ctx, doc)
	m.RenderDuration.Observe(s.now().Sub(start).Seconds())
	if err != nil {
		outcome := outcomeError
		if errors.Is(err, audit.ErrRenderTimeout) {
			outcome = outcomeTimeout
		}
		m.ReportsGenerated.WithLabelValues(string(doc.Hazard), outcome).Inc()
		s.log().ErrorContext(ctx, "report rendering failed", "audit_id", id, "hazard", doc.Hazard, "error", err)
		return nil, err
	}

	out := &Report{Audit: a, Filename: report.Filename(a, doc.Hazard), PDF: pdf}
	if s.Archive != nil {
		url, err := s.Archive.Archive(ctx, a.ID, doc.Hazard, pdf)
		if err != nil {
			m.ArchiveFailures.Inc()
			s.log().ErrorContext(ctx, "report archive failed", "audit_id", id, "error", err)
		} else {
			out.ArchiveURL = url
		}
	}

	completedAt := s.now()
	if err := s.Repo.MarkCompleted(ctx, a.ID, completedAt); err != nil {
		m.ReportsGenerated.WithLabelValues(string(doc.Hazard), outcomeError).Inc()
		return nil, fmt.Errorf("mark audit %d completed: %w", a.ID, err)
	}
	a.Completed = true
	a.CompletedAt = &completedAt

	m.ReportsGenerated.WithLabelValues(string(doc.Hazard), outcomeSuccess).Inc()
	s.log().InfoContext(ctx, "report generated",
		"audit_id", id, "hazard", doc.Hazard, "bytes", len(pdf), "archived", out.ArchiveURL != "")
	return out, nil
}
