package services

import (
	"errors"
	"fmt"
)

// Sentinel errors the controllers translate into HTTP statuses.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("entry already exists for this date and period")
)

// ValidationError rejects malformed input before any write happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func newValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// AuthError covers missing or rejected WHOOP credentials. Never retried.
type AuthError struct {
	Reason string
}

func (e *AuthError) Error() string { return e.Reason }
