// README: Shared sentinel errors forming the service-wide failure taxonomy.
package sentinel

import (
	"errors"
	"fmt"
	"strings"
)

// Stores and services return these (optionally wrapped) so the transport layer
// can translate them into distinct HTTP statuses. They represent factual states
// about resources and actors, not input validation failures:
//   - ErrUnauthenticated: caller has no resolvable identity
//   - ErrNotFound: entity does not exist in the store
//   - ErrPermissionDenied: actor is not the owning creator/donor
//   - ErrInvalidState: entity in wrong lifecycle state for the operation
//   - ErrConflict: lost a race (duplicate response, concurrent accept loser)
//
// For bad input use ValidationError, which carries per-field detail.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrInvalidState     = errors.New("invalid state")
	ErrConflict         = errors.New("conflict")
)

// ValidationError reports one or more field-level constraint violations.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidation builds a single-field validation error.
func NewValidation(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Wrap annotates err with context while preserving errors.Is/As matching.
func Wrap(err error, msg string) error {
	return fmt.Errorf("%s: %w", msg, err)
}
