package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ID identifies one audit row.
type ID int64

// Audit is one homeowner's questionnaire session for a hazard and ZIP code.
type Audit struct {
	ID            ID         `json:"id"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
	ZIPCode       string     `json:"zipCode"`
	PrimaryHazard Hazard     `json:"primaryHazard"`
	Answers       Answers    `json:"answers"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	PaymentRef    string     `json:"paymentRef,omitempty"`
}

// Answer is a single questionnaire answer. Single-choice, text and number
// questions use Value; multi-select questions use Values.
type Answer struct {
	Value  string
	Values []string
}

// Text returns a single answer value.
func Text(v string) Answer { return Answer{Value: v} }

// Selection returns a multi-select answer.
func Selection(vs ...string) Answer {
	if vs == nil {
		vs = []string{}
	}
	return Answer{Values: vs}
}

// IsMulti reports whether the answer came from a multi-select question.
func (a Answer) IsMulti() bool { return a.Values != nil }

// IsZero reports whether the answer carries nothing.
func (a Answer) IsZero() bool {
	return strings.TrimSpace(a.Value) == "" && len(a.Values) == 0
}

func (a Answer) String() string {
	if a.IsMulti() {
		return strings.Join(a.Values, ", ")
	}
	return a.Value
}

func (a Answer) MarshalJSON() ([]byte, error) {
	if a.IsMulti() {
		return json.Marshal(a.Values)
	}
	return json.Marshal(a.Value)
}

// UnmarshalJSON accepts a string, a number or an array of strings.
func (a *Answer) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*a = Answer{}
		return nil
	}
	switch b[0] {
	case '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Answer{Value: s}
	case '[':
		var vs []string
		if err := json.Unmarshal(b, &vs); err != nil {
			return fmt.Errorf("answer list must contain strings: %w", err)
		}
		if vs == nil {
			vs = []string{}
		}
		*a = Answer{Values: vs}
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("answer must be a string, number or list of strings")
		}
		*a = Answer{Value: n.String()}
	}
	return nil
}

// Answers is the sparse set of answered questionnaire fields.
type Answers map[string]Answer

// Get returns the answer for field, if any.
func (as Answers) Get(field string) (Answer, bool) {
	if as == nil {
		return Answer{}, false
	}
	a, ok := as[field]
	if !ok || a.IsZero() {
		return Answer{}, false
	}
	return a, true
}

// Value returns the normalized single value for field, or "" when unanswered.
func (as Answers) Value(field string) string {
	a, ok := as.Get(field)
	if !ok {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(a.Value))
}

// Fields returns answered field names in sorted order.
func (as Answers) Fields() []string {
	out := make([]string, 0, len(as))
	for k := range as {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Merge applies patch on top of as. A zero answer in patch removes the field.
func (as Answers) Merge(patch Answers) Answers {
	out := make(Answers, len(as)+len(patch))
	for k, v := range as {
		out[k] = v
	}
	for k, v := range patch {
		if v.IsZero() {
			delete(out, k)
			continue
		}
		out[k] = v
	}
	return out
}
