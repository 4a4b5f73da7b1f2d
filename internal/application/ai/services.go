package ai

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/bryanwahyu/homeready/internal/domain/ai"
	"github.com/bryanwahyu/homeready/internal/domain/assessment"
)

const maxInsightLen = 1500

type Service struct {
	client ai.Client
	log    *slog.Logger
}

// NewService accepts a nil client; every call then fails with ai.ErrNotConfigured.
func NewService(client ai.Client, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{client: client, log: log}
}

func (s *Service) Configured() bool { return s != nil && s.client != nil }

// Insight asks the model for a short homeowner-facing paragraph.
func (s *Service) Insight(ctx context.Context, zip string, ra assessment.RiskAssessment, recs []assessment.SelectedRecommendation) (string, error) {
	if !s.Configured() {
		return "", ai.ErrNotConfigured
	}
	req := ai.InsightRequest{
		ZIPCode:   zip,
		Hazard:    ra.Hazard.Label(),
		Score:     ra.Score,
		Level:     string(ra.Level),
		Concerns:  ra.Concerns,
		Strengths: ra.Strengths,
	}
	for _, r := range recs {
		req.Recommendations = append(req.Recommendations, r.Title)
	}

	text, err := s.client.Insight(ctx, req)
	if err != nil {
		s.log.WarnContext(ctx, "insight request failed", "hazard", ra.Hazard, "error", err)
		return "", err
	}
	text = strings.TrimSpace(text)
	if len(text) > maxInsightLen {
		end := maxInsightLen
		for end > 0 && !utf8.RuneStart(text[end]) {
			end--
		}
		if cut := strings.LastIndex(text[:end], ". "); cut > 0 {
			end = cut + 1
		}
		text = text[:end]
	}
	return text, nil
}
