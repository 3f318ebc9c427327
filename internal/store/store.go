// Package store defines the persistence boundary for the experimentation
// engine and provides SQLite and in-memory implementations.
package store

import (
	"context"
	"errors"

	"github.com/splitlab/splitlab/internal/experiment"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Store is the persistence contract consumed by the engine. Implementations
// must make GetOrCreateAssignment atomic: concurrent first-time assignments
// for the same (experiment, user) converge to a single stored winner.
type Store interface {
	// Experiment operations
	SaveExperiment(ctx context.Context, e *experiment.Experiment) error
	LoadExperiment(ctx context.Context, id string) (*experiment.Experiment, error)
	ListExperiments(ctx context.Context, statuses ...experiment.Status) ([]*experiment.Experiment, error)
	DeleteExperiment(ctx context.Context, id string) error

	// Assignment operations
	GetAssignment(ctx context.Context, experimentID, userID string) (*experiment.Assignment, error)
	GetOrCreateAssignment(ctx context.Context, a experiment.Assignment) (*experiment.Assignment, bool, error)

	// Conversion operations
	AppendConversion(ctx context.Context, c experiment.Conversion) error
	QueryVariantAggregates(ctx context.Context, experimentID, variantID string, filter *experiment.SegmentFilter) (experiment.Aggregate, error)
	SegmentValues(ctx context.Context, experimentID, dimension string) ([]string, error)

	// Lifecycle
	Close() error
}
