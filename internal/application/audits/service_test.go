package audits

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appai "github.com/bryanwahyu/homeready/internal/application/ai"
	domai "github.com/bryanwahyu/homeready/internal/domain/ai"
	"github.com/bryanwahyu/homeready/internal/domain/assessment"
	"github.com/bryanwahyu/homeready/internal/domain/audit"
	"github.com/bryanwahyu/homeready/internal/domain/catalog"
	"github.com/bryanwahyu/homeready/internal/domain/report"
	"github.com/bryanwahyu/homeready/internal/infra/db/memory"
	"github.com/bryanwahyu/homeready/internal/observability"
)

var start = time.Date(2026, 4, 1, 9, 30, 0, 0, time.UTC)

type fakeRenderer struct {
	mu   sync.Mutex
	docs []report.Document
	err  error
}

func (f *fakeRenderer) HTML(doc report.Document) ([]byte, error) {
	return []byte("<html>" + doc.Title + "</html>"), nil
}

func (f *fakeRenderer) PDF(_ context.Context, doc report.Document) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs = append(f.docs, doc)
	if f.err != nil {
		return nil, f.err
	}
	return []byte("%PDF-1.7 " + doc.Title), nil
}

func (f *fakeRenderer) last() report.Document {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.docs[len(f.docs)-1]
}

type fakeArchive struct {
	keys []string
	err  error
}

func (f *fakeArchive) Archive(_ context.Context, id audit.ID, h audit.Hazard, _ []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	key := fmt.Sprintf("reports/%s/%d.pdf", h, id)
	f.keys = append(f.keys, key)
	return "http://minio/" + key, nil
}

type stubInsight struct {
	reply string
	err   error
}

func (s stubInsight) Insight(context.Context, domai.InsightRequest) (string, error) {
	return s.reply, s.err
}

type fixture struct {
	svc      *Service
	repo     *memory.AuditRepository
	renderer *fakeRenderer
	clock    *clockwork.FakeClock
	metrics  *observability.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	c, err := catalog.Default()
	require.NoError(t, err)
	e, err := assessment.NewEngine(c)
	require.NoError(t, err)

	f := &fixture{
		repo:     memory.NewAuditRepository(),
		renderer: &fakeRenderer{},
		clock:    clockwork.NewFakeClockAt(start),
		metrics:  observability.NewMetricsForTesting(),
	}
	f.svc = &Service{
		Repo:     f.repo,
		Engine:   e,
		Catalog:  c,
		Renderer: f.renderer,
		Clock:    f.clock,
		Metrics:  f.metrics,
		Log:      observability.Discard(),
	}
	return f
}

func (f *fixture) create(t *testing.T, hazard string, answers audit.Answers) *audit.Audit {
	t.Helper()
	a, err := f.svc.Create(context.Background(), CreateCommand{ZIPCode: "94110", Hazard: hazard, Answers: answers})
	require.NoError(t, err)
	return a
}

func worstEarthquake() audit.Answers {
	return audit.Answers{
		"waterHeaterSecurity": audit.Text("unsecured"),
		"foundationBolting":   audit.Text("not_bolted"),
		"crippleWallBracing":  audit.Text("not_braced"),
		"furnitureAnchoring":  audit.Text("not_anchored"),
		"gasShutoff":          audit.Text("none"),
		"chimneyBracing":      audit.Text("unreinforced"),
	}
}

func TestNormalizeZIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"94110", "94110", true},
		{" 94110 ", "94110", true},
		{"94110-1234", "94110", true},
		{"941101234", "94110", true},
		{"9411", "", false},
		{"94110-12", "", false},
		{"abcde", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeZIP(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), CreateCommand{ZIPCode: "33101-0001", Hazard: "Hurricane"})
	require.NoError(t, err)

	assert.Equal(t, audit.HazardWind, a.PrimaryHazard)
	assert.Equal(t, "33101", a.ZIPCode)
	assert.False(t, a.Completed)
	assert.Equal(t, start, a.CreatedAt)
	assert.NotNil(t, a.Answers)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuditsCreated.WithLabelValues("wind")))
}

func TestCreateRejectsEveryBadField(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), CreateCommand{ZIPCode: "123", Hazard: "volcano"})
	require.Error(t, err)

	var verr *audit.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"primaryHazard", "zipCode"}, verr.FieldNames())
	assert.ErrorIs(t, err, audit.ErrUnrecognizedHazard)

	_, err = f.svc.Create(context.Background(), CreateCommand{ZIPCode: "94110", Hazard: "earthquake",
		Answers: audit.Answers{"defensibleSpace": audit.Text("100ft")}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"defensibleSpace"}, verr.FieldNames())
}

func TestUpdateMergesAndValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "earthquake", audit.Answers{"gasShutoff": audit.Text("none")})

	f.clock.Advance(time.Minute)
	got, err := f.svc.Update(ctx, a.ID, UpdateCommand{Answers: audit.Answers{
		"gasShutoff":          audit.Text(""),
		"waterHeaterSecurity": audit.Text("secured"),
	}})
	require.NoError(t, err)
	assert.Equal(t, []string{"waterHeaterSecurity"}, got.Answers.Fields())
	assert.Equal(t, start.Add(time.Minute), got.UpdatedAt)

	_, err = f.svc.Update(ctx, a.ID, UpdateCommand{Answers: audit.Answers{
		"waterHeaterSecurity": audit.Text("maybe"),
		"waterStorageDays":    audit.Text("lots"),
		"emergencyKit":        audit.Text("water"),
		"bogus":               audit.Text("x"),
	}})
	var verr *audit.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"bogus", "emergencyKit", "waterHeaterSecurity", "waterStorageDays"}, verr.FieldNames())

	stored, err := f.svc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "secured", stored.Answers.Value("waterHeaterSecurity"), "rejected update must not persist")
}

func TestUpdateHazard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.create(t, "earthquake", nil)

	wind := "tornado"
	got, err := f.svc.Update(ctx, a.ID, UpdateCommand{Hazard: &wind, Answers: audit.Answers{"roofAge": audit.Text("over_20")}})
	require.NoError(t, err)
	assert.Equal(t, audit.HazardWind, got.PrimaryHazard)

	bad, zip := "lava", "1"
	_, err = f.svc.Update(ctx, a.ID, UpdateCommand{Hazard: &bad, ZIPCode: &zip})
	assert.ErrorIs(t, err, audit.ErrUnrecognizedHazard)
	var verr *audit.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"primaryHazard", "zipCode"}, verr.FieldNames())

	_, err = f.svc.Update(ctx, 404, UpdateCommand{})
	assert.ErrorIs(t, err, audit.ErrNotFound)
}

func TestAssessPreview(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "earthquake", worstEarthquake())

	p, err := f.svc.Assess(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, 98, p.Assessment.Score)
	assert.Equal(t, assessment.LevelCritical, p.Assessment.Level)
	assert.NotEmpty(t, p.Recommendations)
	assert.NotEmpty(t, p.Grants)
	assert.NotEmpty(t, p.Insurance)
	assert.Greater(t, p.CostMax, p.CostMin)
	assert.Equal(t, assessment.TotalSavings(p.Recommendations), p.AnnualSavings)

	stored, _ := f.svc.Get(context.Background(), a.ID)
	assert.False(t, stored.Completed)
}

func TestGenerateReportMarksCompleted(t *testing.T) {
	f := newFixture(t)
	arch := &fakeArchive{}
	f.svc.Archive = arch
	a := f.create(t, "earthquake", worstEarthquake())

	f.clock.Advance(time.Hour)
	rep, err := f.svc.GenerateReport(context.Background(), a.ID, ReportOptions{})
	require.NoError(t, err)

	assert.Equal(t, fmt.Sprintf("preparedness-report-94110-earthquake-%d.pdf", a.ID), rep.Filename)
	assert.Contains(t, string(rep.PDF), "%PDF-")
	assert.Equal(t, "http://minio/"+arch.keys[0], rep.ArchiveURL)

	stored, err := f.svc.Get(context.Background(), a.ID)
	require.NoError(t, err)
	assert.True(t, stored.Completed)
	require.NotNil(t, stored.CompletedAt)
	assert.Equal(t, start.Add(time.Hour), *stored.CompletedAt)

	doc := f.renderer.last()
	assert.Equal(t, "April 1, 2026", doc.Date)
	assert.Empty(t, doc.Insight)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReportsGenerated.WithLabelValues("earthquake", "success")))
}

func TestGenerateReportRenderFailureLeavesAuditIncomplete(t *testing.T) {
	for _, tt := range []struct {
		name    string
		err     error
		outcome string
	}{
		{"failure", fmt.Errorf("%w: chrome crashed", audit.ErrRenderingFailed), "error"},
		{"timeout", fmt.Errorf("%w: deadline", audit.ErrRenderTimeout), "timeout"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.renderer.err = tt.err
			arch := &fakeArchive{}
			f.svc.Archive = arch
			a := f.create(t, "flood", nil)

			_, err := f.svc.GenerateReport(context.Background(), a.ID, ReportOptions{})
			assert.ErrorIs(t, err, tt.err)

			stored, _ := f.svc.Get(context.Background(), a.ID)
			assert.False(t, stored.Completed)
			assert.Nil(t, stored.CompletedAt)
			assert.Empty(t, arch.keys)
			assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ReportsGenerated.WithLabelValues("flood", tt.outcome)))
		})
	}
}

func TestGenerateReportSurvivesArchiveFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.Archive = &fakeArchive{err: errors.New("bucket gone")}
	a := f.create(t, "wildfire", nil)

	rep, err := f.svc.GenerateReport(context.Background(), a.ID, ReportOptions{})
	require.NoError(t, err)
	assert.Empty(t, rep.ArchiveURL)
	assert.True(t, rep.Audit.Completed)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ArchiveFailures))
}

func TestGenerateReportNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.GenerateReport(context.Background(), 12345, ReportOptions{})
	assert.ErrorIs(t, err, audit.ErrNotFound)
	assert.Empty(t, f.renderer.docs)
}

func TestGenerateReportRequiresPayment(t *testing.T) {
	f := newFixture(t)
	f.svc.RequirePayment = true
	ctx := context.Background()
	a := f.create(t, "wind", nil)

	_, err := f.svc.GenerateReport(ctx, a.ID, ReportOptions{})
	assert.ErrorIs(t, err, audit.ErrPaymentRequired)
	assert.Empty(t, f.renderer.docs)

	_, err = f.svc.AttachPayment(ctx, a.ID, "   ")
	var verr *audit.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"paymentRef"}, verr.FieldNames())

	_, err = f.svc.AttachPayment(ctx, a.ID, " pi_123 ")
	require.NoError(t, err)
	rep, err := f.svc.GenerateReport(ctx, a.ID, ReportOptions{})
	require.NoError(t, err)
	assert.Equal(t, "pi_123", rep.Audit.PaymentRef)
}

func TestGenerateReportInsights(t *testing.T) {
	t.Run("not configured", func(t *testing.T) {
		f := newFixture(t)
		a := f.create(t, "earthquake", nil)
		_, err := f.svc.GenerateReport(context.Background(), a.ID, ReportOptions{Insights: true})
		assert.ErrorIs(t, err, domai.ErrNotConfigured)
		assert.Empty(t, f.renderer.docs)
	})

	t.Run("included", func(t *testing.T) {
		f := newFixture(t)
		f.svc.Insights = appai.NewService(stubInsight{reply: "Strap the heater this weekend."}, observability.Discard())
		a := f.create(t, "earthquake", nil)
		_, err := f.svc.GenerateReport(context.Background(), a.ID, ReportOptions{Insights: true})
		require.NoError(t, err)
		assert.Equal(t, "Strap the heater this weekend.", f.renderer.last().Insight)
	})

	t.Run("quota", func(t *testing.T) {
		f := newFixture(t)
		f.svc.Insights = appai.NewService(stubInsight{err: domai.ErrQuotaExceeded}, observability.Discard())
		a := f.create(t, "earthquake", nil)
		_, err := f.svc.GenerateReport(context.Background(), a.ID, ReportOptions{Insights: true})
		assert.ErrorIs(t, err, domai.ErrQuotaExceeded)
	})

	t.Run("upstream failure is dropped", func(t *testing.T) {
		f := newFixture(t)
		f.svc.Insights = appai.NewService(stubInsight{err: errors.New("502 bad gateway")}, observability.Discard())
		a := f.create(t, "earthquake", nil)
		_, err := f.svc.GenerateReport(context.Background(), a.ID, ReportOptions{Insights: true})
		require.NoError(t, err)
		assert.Empty(t, f.renderer.last().Insight)
		assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.InsightRequests.WithLabelValues("error")))
	})
}

func TestReportHTMLHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	a := f.create(t, "flood", nil)
	html, err := f.svc.ReportHTML(context.Background(), a.ID, ReportOptions{})
	require.NoError(t, err)
	assert.Contains(t, string(html), "Flood")

	stored, _ := f.svc.Get(context.Background(), a.ID)
	assert.False(t, stored.Completed)
}

func TestCleanup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	stale := f.create(t, "flood", nil)
	done := f.create(t, "flood", nil)
	_, err := f.svc.GenerateReport(ctx, done.ID, ReportOptions{})
	require.NoError(t, err)

	f.clock.Advance(72 * time.Hour)
	fresh := f.create(t, "flood", nil)

	n, err := f.svc.Cleanup(ctx, 48*time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	_, err = f.svc.Get(ctx, stale.ID)
	assert.ErrorIs(t, err, audit.ErrNotFound)
	_, err = f.svc.Get(ctx, fresh.ID)
	assert.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.AuditsCleanedUp))

	_, err = f.svc.Cleanup(ctx, 0)
	var verr *audit.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestRecentClampsLimit(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < 25; i++ {
		f.create(t, "wind", nil)
		f.clock.Advance(time.Second)
	}
	ctx := context.Background()

	got, err := f.svc.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultRecentLimit)
	assert.True(t, got[0].CreatedAt.After(got[1].CreatedAt))

	got, err = f.svc.Recent(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, got, 25)
}

func TestStaticLookups(t *testing.T) {
	f := newFixture(t)

	h, qs, err := f.svc.Questionnaire("Seismic")
	require.NoError(t, err)
	assert.Equal(t, audit.HazardEarthquake, h)
	assert.Equal(t, "waterHeaterSecurity", qs[0].ID)

	grants, err := f.svc.Grants("wildfire")
	require.NoError(t, err)
	assert.NotEmpty(t, grants)

	_, err = f.svc.Insurance("meteor")
	var verr *audit.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"hazard"}, verr.FieldNames())
	assert.ErrorIs(t, err, audit.ErrUnrecognizedHazard)
}
