// Package apperrors defines the closed set of error kinds returned by the
// feedback engine. Callers branch on the sentinels with errors.Is; the typed
// errors only carry extra detail for logs and responses.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrForbidden            = fmt.Errorf("forbidden: %w", ErrUnauthorized)
	ErrNotFound             = errors.New("not found")
	ErrInterviewNotFound    = fmt.Errorf("interview %w", ErrNotFound)
	ErrFeedbackNotFound     = fmt.Errorf("feedback %w", ErrNotFound)
	ErrGeneration           = errors.New("generation failed")
	ErrGenerationValidation = errors.New("generated assessment is invalid")
	ErrConcurrentUpdate     = errors.New("concurrent update")
	ErrPersistence          = errors.New("persistence failed")

	// ErrVersionConflict is returned by the store when a versioned write lost
	// the race. It is retried by the caller and surfaced as ErrConcurrentUpdate.
	ErrVersionConflict = fmt.Errorf("version conflict: %w", ErrConcurrentUpdate)

	// ErrAlreadyApplied means the feedback's stats were already counted.
	ErrAlreadyApplied = errors.New("stats already applied")
)

// ValidationError describes one malformed input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError is a shorthand used by the input checks.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// GenerationError wraps an upstream generation failure. Provider detail is
// kept for diagnostics only.
type GenerationError struct {
	Provider   string
	StatusCode int
	Diagnostic string
	Timeout    bool
	Err        error
}

func (e *GenerationError) Error() string {
	var b strings.Builder
	b.WriteString("generation failed")
	if e.Provider != "" {
		b.WriteString(" (" + e.Provider + ")")
	}
	if e.Timeout {
		b.WriteString(": timed out")
	}
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, ": status %d", e.StatusCode)
	}
	if e.Diagnostic != "" {
		b.WriteString(": " + e.Diagnostic)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *GenerationError) Is(target error) bool {
	return target == ErrGeneration
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// GenerationValidationError lists every schema violation found in a
// generated object.
type GenerationValidationError struct {
	Violations []string
}

func (e *GenerationValidationError) Error() string {
	return fmt.Sprintf("generated assessment is invalid: %s", strings.Join(e.Violations, "; "))
}

func (e *GenerationValidationError) Is(target error) bool {
	return target == ErrGenerationValidation
}

// PersistenceError wraps a failed store write.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps an error kind to the status code used by the HTTP layer.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrGenerationValidation):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrGeneration):
		return http.StatusBadGateway
	case errors.Is(err, ErrConcurrentUpdate):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns a short message safe to show to end users.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return err.Error()
	case errors.Is(err, ErrForbidden):
		return "You don't have access to this resource"
	case errors.Is(err, ErrUnauthorized):
		return "Authentication required"
	case errors.Is(err, ErrInterviewNotFound):
		return "Interview not found"
	case errors.Is(err, ErrFeedbackNotFound):
		return "Feedback not found"
	case errors.Is(err, ErrNotFound):
		return "Not found"
	case errors.Is(err, ErrGenerationValidation):
		return "Generated output was malformed, please try again later"
	case errors.Is(err, ErrGeneration):
		return "Generation failed, please try again"
	case errors.Is(err, ErrConcurrentUpdate):
		return "Statistics are being updated, please retry"
	default:
		return "Internal server error"
	}
}
