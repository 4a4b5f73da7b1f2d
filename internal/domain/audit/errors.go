package audit

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound is returned when the requested audit does not exist.
	ErrNotFound = errors.New("audit not found")

	// ErrUnrecognizedHazard marks a primary hazard outside the four known buckets.
	ErrUnrecognizedHazard = errors.New("unrecognized hazard")

	// ErrPaymentRequired is returned by the paid flow before a payment
	// reference has been attached.
	ErrPaymentRequired = errors.New("payment required before report generation")

	// ErrRenderingFailed wraps any failure while assembling or converting the report.
	ErrRenderingFailed = errors.New("report generation failed")

	// ErrRenderTimeout means the PDF engine did not finish in time. Retrying is safe.
	ErrRenderTimeout = errors.New("report generation timed out")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
	Err    error  `json:"-"`
}

// ValidationError collects every offending field of a create or update call.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

// Add records a problem with field.
func (e *ValidationError) Add(field, reason string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: reason})
}

// AddErr records a problem with field that wraps a sentinel error.
func (e *ValidationError) AddErr(field string, err error) {
	e.Fields = append(e.Fields, FieldError{Field: field, Reason: err.Error(), Err: err})
}

// Empty reports whether no field was rejected.
func (e *ValidationError) Empty() bool { return e == nil || len(e.Fields) == 0 }

// OrNil returns e as an error, or nil when nothing was rejected.
func (e *ValidationError) OrNil() error {
	if e.Empty() {
		return nil
	}
	sort.SliceStable(e.Fields, func(i, j int) bool { return e.Fields[i].Field < e.Fields[j].Field })
	return e
}

// FieldNames returns the offending field names.
func (e *ValidationError) FieldNames() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Field)
	}
	return out
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes wrapped sentinels so errors.Is(err, ErrUnrecognizedHazard) works.
func (e *ValidationError) Unwrap() []error {
	var out []error
	for _, f := range e.Fields {
		if f.Err != nil {
			out = append(out, f.Err)
		}
	}
	return out
}
