package httpx

import (
	"net/http"
	"strings"
	"time"

	"github.com/merchkit/merchsync/internal/domain/model"
)

// validationErrorPatterns holds common validation error substrings to classify 400 vs 5xx.
// Keeping this at package scope avoids per-call allocations in isValidationError.

var validationErrorPatterns = []string{ //nolint:gochecknoglobals // read-only cache of patterns to avoid per-call allocations
	"is required",
	"validate request",
	"invalid object type",
	"must be set together",
	"must not be before",
	"is not registered",
	"unknown shop",
}

// isValidationError checks for common validation error patterns to decide 400 vs 5xx.
// This is a stopgap until typed validation errors are adopted across services.
func isValidationError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, p := range validationErrorPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

// parseDateQuery parses a YYYY-MM-DD query param. Missing values return the
// zero time without error so callers can apply their own defaults.
func parseDateQuery(r *http.Request, key string) (time.Time, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return time.Time{}, nil
	}
	return time.Parse(model.DateLayout, v)
}
