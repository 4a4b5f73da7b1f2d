// Package audits implements the audit use cases: the questionnaire session,
// the assessment preview and report generation.
package audits

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	appai "github.com/bryanwahyu/homeready/internal/application/ai"
	"github.com/bryanwahyu/homeready/internal/domain/assessment"
	"github.com/bryanwahyu/homeready/internal/domain/audit"
	"github.com/bryanwahyu/homeready/internal/domain/catalog"
	"github.com/bryanwahyu/homeready/internal/domain/questionnaire"
	"github.com/bryanwahyu/homeready/internal/domain/report"
	"github.com/bryanwahyu/homeready/internal/observability"
)

const (
	DefaultRecentLimit = 20
	MaxRecentLimit     = 100
	maxPaymentRefLen   = 128
)

// Renderer turns a report document into bytes.
type Renderer interface {
	HTML(doc report.Document) ([]byte, error)
	PDF(ctx context.Context, doc report.Document) ([]byte, error)
}

// Archiver keeps a copy of every generated report.
type Archiver interface {
	Archive(ctx context.Context, id audit.ID, hazard audit.Hazard, pdf []byte) (string, error)
}

// Service is safe for concurrent use. Archive and Insights are optional.
type Service struct {
	Repo     audit.Repository
	Engine   *assessment.Engine
	Catalog  catalog.Catalog
	Renderer Renderer
	Archive  Archiver
	Insights *appai.Service
	Clock    clockwork.Clock
	Metrics  *observability.Metrics
	Log      *slog.Logger

	// RequirePayment gates report generation on an attached payment reference.
	RequirePayment bool
}

var fallbackMetrics = sync.OnceValue(observability.NewMetricsForTesting)

func (s *Service) now() time.Time {
	if s.Clock == nil {
		return time.Now().UTC()
	}
	return s.Clock.Now().UTC()
}

func (s *Service) metrics() *observability.Metrics {
	if s.Metrics == nil {
		return fallbackMetrics()
	}
	return s.Metrics
}

func (s *Service) log() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

//
// ==== questionnaire session ====
//

type CreateCommand struct {
	ZIPCode string        `json:"zipCode"`
	Hazard  string        `json:"primaryHazard"`
	Answers audit.Answers `json:"answers,omitempty"`
}

// UpdateCommand carries a partial update. Nil fields are left alone and an
// empty answer deletes the field.
type UpdateCommand struct {
	ZIPCode *string       `json:"zipCode,omitempty"`
	Hazard  *string       `json:"primaryHazard,omitempty"`
	Answers audit.Answers `json:"answers,omitempty"`
}

var zipPattern = regexp.MustCompile(`^(\d{5})(?:-?\d{4})?$`)

// NormalizeZIP accepts 5-digit and ZIP+4 codes and returns the 5-digit form.
func NormalizeZIP(s string) (string, bool) {
	m := zipPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	return m[1], true
}

func (s *Service) Create(ctx context.Context, cmd CreateCommand) (*audit.Audit, error) {
	verr := &audit.ValidationError{}
	zip, ok := NormalizeZIP(cmd.ZIPCode)
	if !ok {
		verr.Add("zipCode", "must be a 5-digit ZIP code")
	}
	h, err := audit.ParseHazard(cmd.Hazard)
	if err != nil {
		verr.AddErr("primaryHazard", err)
	} else if err := questionnaire.Validate(h, cmd.Answers); err != nil {
		var aerr *audit.ValidationError
		if errors.As(err, &aerr) {
			verr.Fields = append(verr.Fields, aerr.Fields...)
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	now := s.now()
	a := &audit.Audit{
		CreatedAt:     now,
		UpdatedAt:     now,
		ZIPCode:       zip,
		PrimaryHazard: h,
		Answers:       audit.Answers{}.Merge(cmd.Answers),
	}
	if err := s.Repo.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create audit: %w", err)
	}
	s.metrics().AuditsCreated.WithLabelValues(string(h)).Inc()
	s.log().InfoContext(ctx, "audit created", "audit_id", a.ID, "hazard", h, "zip", zip)
	return a, nil
}

func (s *Service) Get(ctx context.Context, id audit.ID) (*audit.Audit, error) {
	return s.Repo.Get(ctx, id)
}

// Update merges cmd into the stored audit. Answers are validated against the
// questionnaire of the hazard the audit ends up with.
func (s *Service) Update(ctx context.Context, id audit.ID, cmd UpdateCommand) (*audit.Audit, error) {
	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := &audit.ValidationError{}
	if cmd.ZIPCode != nil {
		if zip, ok := NormalizeZIP(*cmd.ZIPCode); ok {
			a.ZIPCode = zip
		} else {
			verr.Add("zipCode", "must be a 5-digit ZIP code")
		}
	}
	hazardOK := true
	if cmd.Hazard != nil {
		h, err := audit.ParseHazard(*cmd.Hazard)
		if err != nil {
			verr.AddErr("primaryHazard", err)
			hazardOK = false
		} else {
			a.PrimaryHazard = h
		}
	}
	if hazardOK {
		if err := questionnaire.Validate(a.PrimaryHazard, cmd.Answers); err != nil {
			var aerr *audit.ValidationError
			if errors.As(err, &aerr) {
				verr.Fields = append(verr.Fields, aerr.Fields...)
			}
		}
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}

	a.Answers = a.Answers.Merge(cmd.Answers)
	a.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// AttachPayment records the reference of a completed payment. The payment
// itself is processed elsewhere.
func (s *Service) AttachPayment(ctx context.Context, id audit.ID, ref string) (*audit.Audit, error) {
	ref = strings.TrimSpace(ref)
	switch {
	case ref == "":
		return nil, (&audit.ValidationError{Fields: []audit.FieldError{{Field: "paymentRef", Reason: "is required"}}}).OrNil()
	case len(ref) > maxPaymentRefLen:
		return nil, (&audit.ValidationError{Fields: []audit.FieldError{{Field: "paymentRef", Reason: fmt.Sprintf("longer than %d characters", maxPaymentRefLen)}}}).OrNil()
	}

	a, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	a.PaymentRef = ref
	a.UpdatedAt = s.now()
	if err := s.Repo.Update(ctx, a); err != nil {
		return nil, err
	}
	s.log().InfoContext(ctx, "payment attached", "audit_id", id)
	return a, nil
}

// Recent lists the newest audits for the admin view.
func (s *Service) Recent(ctx context.Context, limit int) ([]*audit.Audit, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentLimit
	case limit > MaxRecentLimit:
		limit = MaxRecentLimit
	}
	return s.Repo.Recent(ctx, limit)
}

// Cleanup deletes incomplete audits created more than olderThan ago.
func (s *Service) Cleanup(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, (&audit.ValidationError{Fields: []audit.FieldError{{Field: "olderThan", Reason: "must be positive"}}}).OrNil()
	}
	cutoff := s.now().Add(-olderThan)
	n, err := s.Repo.DeleteIncompleteBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	s.metrics().AuditsCleanedUp.Add(float64(n))
	s.log().InfoContext(ctx, "incomplete audits removed", "deleted", n, "cutoff", cutoff)
	return n, nil
}

//
// ==== static lookups ====
//

func parseHazardParam(raw string) (audit.Hazard, error) {
	h, err := audit.ParseHazard(raw)
	if err != nil {
		verr := &audit.ValidationError{}
		verr.AddErr("hazard", err)
		return "", verr.OrNil()
	}
	return h, nil
}

// Questionnaire returns the ordered questions for a hazard name or alias.
func (s *Service) Questionnaire(raw string) (audit.Hazard, []questionnaire.Question, error) {
	h, err := parseHazardParam(raw)
	if err != nil {
		return "", nil, err
	}
	return h, questionnaire.For(h), nil
}

func (s *Service) Grants(raw string) ([]catalog.GrantProgram, error) {
	h, err := parseHazardParam(raw)
	if err != nil {
		return nil, err
	}
	return catalog.GrantsFor(s.Catalog, h), nil
}

func (s *Service) Insurance(raw string) ([]catalog.InsuranceProgram, error) {
	h, err := parseHazardParam(raw)
	if err != nil {
		return nil, err
	}
	return catalog.InsuranceProgramsFor(s.Catalog, h), nil
}
