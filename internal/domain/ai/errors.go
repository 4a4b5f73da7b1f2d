package ai

import "errors"

// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("ai quota exceeded")

// ErrNotConfigured is returned when insights are requested but no provider key is set.
// Retrying will not help until the configuration changes.
var ErrNotConfigured = errors.New("insight service not configured")
