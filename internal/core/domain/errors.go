// Package domain holds the aggregates of the music service and the rules
// they enforce on every mutation. Nothing in here talks to storage.
package domain

import (
	"errors"
	"fmt"
)

// Error kinds shared by every layer. Adapters and services wrap them with
// context; callers match with errors.Is.
var (
	ErrNotFound        = errors.New("domain: not found")
	ErrAlreadyExists   = errors.New("domain: already exists")
	ErrForbidden       = errors.New("domain: forbidden")
	ErrValidation      = errors.New("domain: validation failed")
	ErrUnavailable     = errors.New("domain: dependency unavailable")
	ErrConflict        = errors.New("domain: concurrent modification")
	ErrUnauthenticated = errors.New("domain: authentication required")
)

// ValidationError describes which field was rejected and why.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Reason)
	}
	return fmt.Sprintf("%s: %s %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
