package middleware

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bryanwahyu/homeready/internal/domain/audit"
)

// Input validation and sanitization utilities

// ParseAuditID parses a positive decimal audit id from a path parameter.
func ParseAuditID(raw string) (audit.ID, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid audit id %q", raw)
	}
	return audit.ID(n), nil
}

// ParseBool accepts the usual query flag spellings; anything else is false.
func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidateDays validates the age in days for cleanup
func ValidateDays(days int) int {
	if days <= 0 {
		return 30 // default
	}
	if days > 365 {
		return 365 // max 1 year
	}
	return days
}
