package experiment

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an experiment id is unknown.
	ErrNotFound = errors.New("experiment not found")
	// ErrVariantNotFound is returned when a variant id is unknown.
	ErrVariantNotFound = errors.New("variant not found")
)

// ValidationError reports a malformed experiment configuration. It is
// rejected synchronously and never partially applied.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid experiment: %s: %s", e.Field, e.Reason)
}

// StateError reports an operation that is not legal for the experiment's
// current status. The operation is rejected without side effects.
type StateError struct {
	Op     string
	Status Status
}

func (e *StateError) Error() string {
	return fmt.Sprintf("cannot %s experiment in status %q", e.Op, e.Status)
}

// InsufficientTrafficError reports a start request where the estimated
// traffic cannot reach the configured sample size. The experiment stays
// in draft.
type InsufficientTrafficError struct {
	Estimated int
	Required  int
}

func (e *InsufficientTrafficError) Error() string {
	return fmt.Sprintf("insufficient traffic: estimated %d, need %d", e.Estimated, e.Required)
}
