package artfeed

import "github.com/kailas-cloud/artfeed/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrValidation         = domain.ErrValidation
	ErrNotFound           = domain.ErrNotFound
	ErrPermission         = domain.ErrPermission
	ErrConflict           = domain.ErrConflict
	ErrDependency         = domain.ErrDependency
	ErrInvariantViolation = domain.ErrInvariantViolation
)

// Typed errors; use errors.As() to read their fields.
type (
	// ValidationError names the offending input field.
	ValidationError = domain.ValidationError
	// ConflictError reports a like toggle that lost every retry.
	ConflictError = domain.ConflictError
	// DependencyError wraps a store or blob store failure.
	DependencyError = domain.DependencyError
)
