// Package errors provides the error taxonomy shared by the reconcile engine and its triggers.
package errors

import (
	"errors"
	"fmt"
)

// FetchError is a batch-fatal failure: the candidate set or the reference data
// needed by every series could not be retrieved.
type FetchError struct {
	Source string // "plex" or "sonarr"
	Op     string
	cause  error
}

// NewFetchError wraps cause as a batch-fatal fetch failure.
func NewFetchError(source, op string, cause error) error {
	return &FetchError{Source: source, Op: op, cause: cause}
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Source, e.Op, e.cause)
	}
	return fmt.Sprintf("%s %s failed", e.Source, e.Op)
}

// Unwrap returns the underlying cause error for error unwrapping.
func (e *FetchError) Unwrap() error {
	return e.cause
}

// SeriesError is a failure isolated to one series; siblings keep running.
type SeriesError struct {
	Title string
	Op    string // "fetch labels", "add labels", "remove labels"
	cause error
}

// NewSeriesError wraps cause as a failure of a single series.
func NewSeriesError(title, op string, cause error) error {
	return &SeriesError{Title: title, Op: op, cause: cause}
}

// Error implements the error interface.
func (e *SeriesError) Error() string {
	return fmt.Sprintf("series %q: %s: %v", e.Title, e.Op, e.cause)
}

// Unwrap returns the underlying cause error for error unwrapping.
func (e *SeriesError) Unwrap() error {
	return e.cause
}

// ValidationError is invalid trigger input, rejected before any work starts.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a validation error for a request field.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// IsValidation checks if an error is a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsFetch checks if an error is a batch-fatal FetchError.
func IsFetch(err error) bool {
	var f *FetchError
	return errors.As(err, &f)
}

// AsSeries extracts a SeriesError from err.
func AsSeries(err error) (*SeriesError, bool) {
	var s *SeriesError
	ok := errors.As(err, &s)
	return s, ok
}
