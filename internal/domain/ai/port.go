package ai

import "context"

// InsightRequest is the assessment context sent to the model. It carries no
// personal data beyond the ZIP code.
type InsightRequest struct {
	ZIPCode         string   `json:"zipCode"`
	Hazard          string   `json:"hazard"`
	Score           int      `json:"score"`
	Level           string   `json:"level"`
	Concerns        []string `json:"concerns"`
	Strengths       []string `json:"strengths"`
	Recommendations []string `json:"recommendations"`
}

type Client interface {
	Insight(ctx context.Context, req InsightRequest) (string, error)
}
