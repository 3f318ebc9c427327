// Package assign implements deterministic variant bucketing with sticky
// assignments, and conversion recording with attribution guarding.
package assign

import (
	"context"
	"errors"
	"hash/fnv"
	"io"

	"go.uber.org/zap"

	"github.com/splitlab/splitlab/internal/experiment"
	"github.com/splitlab/splitlab/internal/metrics"
	"github.com/splitlab/splitlab/internal/store"
)

// Catalog resolves active experiments. Implemented by the lifecycle
// controller, which serves them from its cache.
type Catalog interface {
	ActiveExperiment(ctx context.Context, id string) (*experiment.Experiment, error)
}

// Engine buckets users into variants. Bucketing is pure: the same
// (experiment, user, variant list) always yields the same variant,
// independent of process restarts or call order.
type Engine struct {
	catalog Catalog
	store   store.Store
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewEngine creates an assignment engine.
func NewEngine(catalog Catalog, s store.Store, m *metrics.Collector, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{catalog: catalog, store: s, metrics: m, logger: logger}
}

// Assign returns the user's variant for the experiment, creating the
// sticky assignment on first contact. It returns (nil, nil) when the
// experiment is not accepting traffic. Concurrent first assignments for
// the same user converge on the store's insert-if-absent semantics.
func (e *Engine) Assign(ctx context.Context, experimentID, userID string, attrs map[string]string) (*experiment.Variant, error) {
	exp, err := e.catalog.ActiveExperiment(ctx, experimentID)
	if err != nil {
		return nil, err
	}
	if !exp.AcceptsTraffic() {
		e.logger.Debug("experiment not accepting traffic",
			zap.String("experiment", experimentID),
			zap.String("status", string(exp.Status)))
		return nil, nil
	}

	// Sticky lookup first: an assignment never moves a user mid-experiment.
	if existing, err := e.store.GetAssignment(ctx, experimentID, userID); err == nil {
		v, ok := exp.Variant(existing.VariantID)
		if !ok {
			return nil, experiment.ErrVariantNotFound
		}
		return v, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	chosen := Bucket(exp.Variants, experimentID, userID)

	stored, created, err := e.store.GetOrCreateAssignment(ctx, experiment.Assignment{
		ExperimentID: experimentID,
		UserID:       userID,
		VariantID:    chosen.ID,
		Attributes:   attrs,
	})
	if err != nil {
		return nil, err
	}

	if created && e.metrics != nil {
		e.metrics.AssignmentsTotal.WithLabelValues(experimentID, stored.VariantID).Inc()
	}

	// A concurrent caller may have won the insert; honor the stored row.
	v, ok := exp.Variant(stored.VariantID)
	if !ok {
		return nil, experiment.ErrVariantNotFound
	}

	e.logger.Debug("variant assigned",
		zap.String("experiment", experimentID),
		zap.String("user", userID),
		zap.String("variant", v.ID),
		zap.Bool("created", created))

	return v, nil
}

// Bucket deterministically maps a user to a variant by hashing
// "experimentID:userID" with FNV-1a, reducing to [0,100), and walking the
// variant list accumulating traffic allocations.
func Bucket(variants []experiment.Variant, experimentID, userID string) *experiment.Variant {
	h := fnv.New64a()
	io.WriteString(h, experimentID)
	io.WriteString(h, ":")
	io.WriteString(h, userID)
	point := float64(h.Sum64()) / float64(^uint64(0)) * 100

	cumulative := 0.0
	for i := range variants {
		cumulative += variants[i].TrafficAllocation
		if point < cumulative {
			return &variants[i]
		}
	}
	// Floating point drift at the top of the range lands on the last variant.
	return &variants[len(variants)-1]
}
