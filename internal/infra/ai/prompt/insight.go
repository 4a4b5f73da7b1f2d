package prompt

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bryanwahyu/homeready/internal/domain/ai"
)

// SystemPrompt provides strict directions and schema for JSON output.
func SystemPrompt() string {
	return `You are a FEMA-trained home mitigation advisor writing for homeowners. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- summary is 2 to 4 plain sentences about what the score means for this home and hazard.
- firstSteps lists at most 3 short actions, taken from the recommendations provided, ordered by urgency.
- Do not invent costs, grant amounts or insurance discounts. Do not mention that you are an AI.
- If there are no concerns, say so and suggest keeping preparations current.

Schema (example with empty values):
{
  "summary": "<string>",
  "firstSteps": ["<string>"]
}`
}

// UserPrompt serializes the assessment context into the user message.
func UserPrompt(req ai.InsightRequest) (string, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal insight request: %w", err)
	}
	return "Write the homeowner insight for this assessment and respond with the JSON per schema. Assessment: " + string(b), nil
}

// Insight matches the schema used by the system prompt.
type Insight struct {
	Summary    string   `json:"summary"`
	FirstSteps []string `json:"firstSteps"`
}

// ParseInsight decodes the model reply into a single paragraph. Replies that
// are not JSON are used as plain text.
func ParseInsight(content string) (string, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimSuffix(strings.TrimPrefix(content, "```"), "```")
	content = strings.TrimSpace(content)
	if content == "" {
		return "", fmt.Errorf("empty insight reply")
	}
	if !strings.HasPrefix(content, "{") {
		return content, nil
	}

	var in Insight
	if err := json.Unmarshal([]byte(content), &in); err != nil {
		return "", fmt.Errorf("failed to decode insight reply: %w", err)
	}
	var b strings.Builder
	b.WriteString(strings.TrimSpace(in.Summary))
	steps := in.FirstSteps
	if len(steps) > 3 {
		steps = steps[:3]
	}
	if len(steps) > 0 {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString("Start with: ")
		for i, s := range steps {
			if i > 0 {
				b.WriteString("; ")
			}
			b.WriteString(strings.TrimSuffix(strings.TrimSpace(s), "."))
		}
		b.WriteString(".")
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("insight reply has no content")
	}
	return b.String(), nil
}
