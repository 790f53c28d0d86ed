package resumes

import (
	"errors"

	"resumegen-api/internal/guard"
)

var (
	ErrNotFound = errors.New("resume not found")
	// ErrConflict reports a stale version or a generation already in progress.
	ErrConflict = errors.New("resume changed concurrently")
)

// ValidationError carries a failed guard result back to the handler.
type ValidationError struct {
	Result guard.ValidationResult
	Field  string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Result.Error
}

func invalidField(field string, res guard.ValidationResult) error {
	return &ValidationError{Field: field, Result: res}
}
