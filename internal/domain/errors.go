package domain

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrValidation signals malformed caller input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing item.
	ErrNotFound = errors.New("not found")
	// ErrPermission signals an unauthenticated or unauthorized actor.
	ErrPermission = errors.New("permission denied")
	// ErrConflict signals a transient write contention that outlived its retries.
	ErrConflict = errors.New("conflict")
	// ErrDependency signals a failure of the store or the blob store.
	ErrDependency = errors.New("dependency unavailable")
	// ErrInvariantViolation signals stored state that breaks a consistency rule.
	// It is an internal fault and is never surfaced as a caller error.
	ErrInvariantViolation = errors.New("invariant violation")
)

// ValidationError names the offending input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrValidation.Error(), e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidation creates a validation error for field.
func NewValidation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// ConflictError wraps ErrConflict with the number of attempts made.
type ConflictError struct {
	Attempts int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: gave up after %d attempts", ErrConflict.Error(), e.Attempts)
}

func (e *ConflictError) Unwrap() error { return ErrConflict }

// DependencyError wraps a store or blob failure.
type DependencyError struct {
	Op  string
	Err error
}

func (e *DependencyError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrDependency.Error(), e.Op, e.Err)
}

// Is matches ErrDependency in addition to the wrapped cause.
func (e *DependencyError) Is(target error) bool { return target == ErrDependency }

func (e *DependencyError) Unwrap() error { return e.Err }

// NewDependency wraps err as a dependency failure of op.
func NewDependency(op string, err error) error {
	return &DependencyError{Op: op, Err: err}
}

// Classify passes err through when it already carries a domain sentinel or a
// context error, and wraps anything else as a dependency failure of op.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	for _, known := range []error{
		ErrValidation, ErrNotFound, ErrPermission, ErrConflict, ErrDependency, ErrInvariantViolation,
		context.Canceled, context.DeadlineExceeded,
	} {
		if errors.Is(err, known) {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return NewDependency(op, err)
}
