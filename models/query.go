package models

import "strings"

// MaxQueryLength bounds the accepted free-text query. Longer input is
// rejected before any fetch is attempted.
const MaxQueryLength = 200

// ValidateQuery checks the free-text query before a run starts. It is the
// only condition the orchestrator surfaces as an error to the caller.
func ValidateQuery(query string) error {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return NewScrapeError(ErrCodeInvalidQuery, "query must not be empty", nil)
	}
	if len(trimmed) > MaxQueryLength {
		return NewScrapeError(ErrCodeInvalidQuery, "query exceeds maximum length", nil)
	}
	return nil
}
