package ai

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domai "github.com/bryanwahyu/homeready/internal/domain/ai"
	"github.com/bryanwahyu/homeready/internal/domain/assessment"
	"github.com/bryanwahyu/homeready/internal/domain/audit"
	"github.com/bryanwahyu/homeready/internal/domain/catalog"
)

type stubClient struct {
	got   domai.InsightRequest
	reply string
	err   error
}

func (s *stubClient) Insight(_ context.Context, req domai.InsightRequest) (string, error) {
	s.got = req
	return s.reply, s.err
}

func TestInsightNotConfigured(t *testing.T) {
	_, err := NewService(nil, nil).Insight(context.Background(), "94110", assessment.RiskAssessment{}, nil)
	assert.ErrorIs(t, err, domai.ErrNotConfigured)
}

func TestInsightBuildsRequest(t *testing.T) {
	stub := &stubClient{reply: "  Bolt first.  "}
	ra := assessment.RiskAssessment{
		Hazard: audit.HazardWind, Score: 55, Level: assessment.LevelHigh,
		Concerns: []string{"toe-nails"},
	}
	recs := []assessment.SelectedRecommendation{{Recommendation: catalog.Recommendation{Title: "Install straps"}}}

	got, err := NewService(stub, nil).Insight(context.Background(), "33101", ra, recs)
	require.NoError(t, err)
	assert.Equal(t, "Bolt first.", got)
	assert.Equal(t, "Hurricane / Wind", stub.got.Hazard)
	assert.Equal(t, "High", stub.got.Level)
	assert.Equal(t, []string{"Install straps"}, stub.got.Recommendations)
}

func TestInsightTruncatesAtSentence(t *testing.T) {
	stub := &stubClient{reply: strings.Repeat("A sentence here. ", 200)}
	got, err := NewService(stub, nil).Insight(context.Background(), "", assessment.RiskAssessment{}, nil)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(got), maxInsightLen)
	assert.True(t, strings.HasSuffix(got, "."))
}

func TestInsightTruncatesOnRuneBoundary(t *testing.T) {
	tests := []struct {
		name  string
		reply string
		want  int
	}{
		{"two-byte runes", "a" + strings.Repeat("é", 1000), maxInsightLen - 1},
		{"three-byte runes", "ab" + strings.Repeat("€", 600), maxInsightLen - 1},
		{"ascii", strings.Repeat("x", 2000), maxInsightLen},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &stubClient{reply: tt.reply}
			got, err := NewService(stub, nil).Insight(context.Background(), "", assessment.RiskAssessment{}, nil)
			require.NoError(t, err)
			assert.True(t, utf8.ValidString(got))
			assert.Len(t, got, tt.want)
		})
	}
}

func TestInsightPassesErrorsThrough(t *testing.T) {
	stub := &stubClient{err: errors.Join(domai.ErrQuotaExceeded, errors.New("429"))}
	_, err := NewService(stub, nil).Insight(context.Background(), "", assessment.RiskAssessment{}, nil)
	assert.ErrorIs(t, err, domai.ErrQuotaExceeded)
}
