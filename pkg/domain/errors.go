package domain

import (
	"errors"
	"fmt"
)

// NotFoundError is returned when a referenced id does not resolve.
type NotFoundError struct {
	Entity EntityType
	ID     int64
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Entity, e.ID)
}

// InvalidStateError is returned when an operation's preconditions are violated
// by the current state of an entity.
type InvalidStateError struct {
	Entity EntityType
	ID     int64
	Reason string
}

func (e InvalidStateError) Error() string {
	return fmt.Sprintf("%s %d: %s", e.Entity, e.ID, e.Reason)
}

// ErrTransientConflict reports that a concurrent commit changed an entity the
// transaction depended on. Callers may retry the whole operation.
var ErrTransientConflict = errors.New("transient conflict: concurrent modification detected")

// RuleViolationError is returned when blocking violations are present.
type RuleViolationError struct {
	Result Result
}

func (e RuleViolationError) Error() string {
	return "transaction blocked by rules"
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// IsInvalidState reports whether err wraps an InvalidStateError.
func IsInvalidState(err error) bool {
	var is InvalidStateError
	return errors.As(err, &is)
}
