// Package errors derives metric-friendly class tags from orchestrator errors.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/merchkit/merchsync/internal/domain/model"
	apperrors "github.com/merchkit/merchsync/internal/errors"
)

// Classify returns a normalized class name for an error, suitable for tagging
// metrics and logs. Structured application errors map to their code
// (validation, upstream, timeout, ...), claim races and cancellation get
// dedicated classes, and anything else falls back to a snake_cased form of
// the innermost concrete type.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var appErr *apperrors.AppError
	if goerrors.As(err, &appErr) && appErr.Code != "" {
		return string(appErr.Code)
	}

	switch {
	case goerrors.Is(err, model.ErrNoItemsAvailable):
		return "claim_lost"
	case goerrors.Is(err, context.Canceled):
		return string(apperrors.ErrCodeCanceled)
	case goerrors.Is(err, context.DeadlineExceeded):
		return string(apperrors.ErrCodeTimeout)
	}

	// Unwrap to the innermost error for better signal.
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
