package tree

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/matthewbaird/formbuilder/internal/types"
)

// NotFoundError is returned when a referenced record does not exist.
type NotFoundError struct {
	Kind types.EntityKind
	ID   uuid.UUID
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with id: %s", e.Kind, e.ID)
}

// ValidationError is returned for malformed or incomplete input.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation: " + e.Reason
}

// ConsistencyError is returned when an operation would break a tree
// invariant, such as nesting across pages or creating a cycle.
type ConsistencyError struct {
	Rule   string
	ID     uuid.UUID
	Reason string
}

// Rules reported by ConsistencyError.
const (
	RuleCycle     = "cycle"
	RuleCrossPage = "cross_page"
)

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("consistency (%s) on %s: %s", e.Rule, e.ID, e.Reason)
}

// NewNotFound builds a NotFoundError. Repositories return it for missing records.
func NewNotFound(kind types.EntityKind, id uuid.UUID) error {
	return &NotFoundError{Kind: kind, ID: id}
}

func invalid(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

// IsValidation reports whether err is, or wraps, a ValidationError.
func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

// IsConsistency reports whether err is, or wraps, a ConsistencyError.
func IsConsistency(err error) bool {
	var e *ConsistencyError
	return errors.As(err, &e)
}
