// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Statement and cache errors.
var (
	ErrNotFound          = errors.New("not found")
	ErrDatabaseCorrupted = errors.New("database corrupted")
	ErrEmptyStatement    = errors.New("statement has no line items")
)

// Collaborator and configuration errors.
var (
	ErrSourceUnavailable = errors.New("data source unavailable")
	ErrMissingConfig     = errors.New("missing configuration")
	ErrInvalidConfig     = errors.New("invalid configuration")
)

// UserError carries a short operator-facing message next to the underlying
// cause. The CLI prints Hint, the log gets the full chain.
type UserError struct {
	Err  error
	Hint string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Hint, e.Err)
	}
	return e.Hint
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError attaches hint to err. A nil err yields nil.
func NewUserError(hint string, err error) error {
	if err == nil {
		return nil
	}
	return &UserError{Hint: hint, Err: err}
}

// Hint returns the outermost operator-facing message in err's chain, or
// err.Error() when there is none.
func Hint(err error) string {
	var ue *UserError
	if errors.As(err, &ue) {
		return ue.Hint
	}
	return err.Error()
}

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
