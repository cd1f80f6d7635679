package domain

import (
	"errors"
	"fmt"
)

// Storage-facing errors. Both backends translate their native failures into
// these before anything reaches the engagement service.
var (
	// ErrNotFound is returned when an entity id has no matching row, or the
	// row is not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned on a uniqueness violation, e.g. a duplicate
	// (opportunity, phase) progress key.
	ErrConflict = errors.New("conflict")

	// ErrUnavailable is returned when the backing store is unreachable.
	// Callers may retry; nothing in this module retries automatically.
	ErrUnavailable = errors.New("store unavailable")
)

// ValidationError reports malformed input. It is raised before any mutation,
// so a failed call has no side effects.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// InvalidPhaseError reports a phase outside the defined set.
type InvalidPhaseError struct {
	Phase string
}

func (e *InvalidPhaseError) Error() string {
	return fmt.Sprintf("invalid phase: %q", e.Phase)
}
