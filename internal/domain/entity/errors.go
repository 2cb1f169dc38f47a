package entity

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for domain layer operations.
var (
	// ErrNotFound indicates that a requested entity was not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput indicates that the provided input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrValidationFailed indicates that validation checks have failed
	ErrValidationFailed = errors.New("validation failed")

	// ErrDuplicate indicates that an article with the same URL already exists.
	// Callers treat it as "already ingested", never as a failure.
	ErrDuplicate = errors.New("duplicate article url")
)

// ValidationError represents a validation error with detailed field information.
type ValidationError struct {
	Field   string
	Message string
}

// Error returns a formatted error message for the validation error.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// NetworkError reports a failed listing or detail fetch.
// A listing failure aborts the source run; a detail failure skips the article.
type NetworkError struct {
	URL        string
	StatusCode int
	// RetryAfter is the delay requested by the server (429/503), zero when absent.
	RetryAfter time.Duration
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("network error fetching %s: status %d: %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError reports that an adapter could not extract a required field.
type ParseError struct {
	URL   string
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("parse error at %s: missing %s", e.URL, e.Field)
	}
	return fmt.Sprintf("parse error at %s: %s: %v", e.URL, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// StorageError wraps a persistence failure for a single unit of work.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error in %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err carries a *NetworkError.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

// IsParseError reports whether err carries a *ParseError.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
