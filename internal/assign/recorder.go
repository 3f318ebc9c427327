package assign

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/splitlab/splitlab/internal/events"
	"github.com/splitlab/splitlab/internal/experiment"
	"github.com/splitlab/splitlab/internal/metrics"
	"github.com/splitlab/splitlab/internal/store"
)

// Recorder attributes conversion events to the user's sticky assignment.
type Recorder struct {
	catalog Catalog
	store   store.Store
	bus     *events.Bus
	metrics *metrics.Collector
	logger  *zap.Logger
}

// NewRecorder creates a conversion recorder.
func NewRecorder(catalog Catalog, s store.Store, bus *events.Bus, m *metrics.Collector, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{catalog: catalog, store: s, bus: bus, metrics: m, logger: logger}
}

// TrackConversion stores a conversion event for the user's assigned
// variant. A variant mismatch against the sticky assignment is logged and
// dropped so client-side bugs cannot corrupt variant statistics; a missing
// assignment means the experiment does not apply to this user and the
// event is ignored. Duplicate and out-of-order conversions are stored as
// distinct events; deduplication is a caller concern.
func (r *Recorder) TrackConversion(ctx context.Context, experimentID, variantID, userID string, value float64, attrs map[string]string) error {
	exp, err := r.catalog.ActiveExperiment(ctx, experimentID)
	if err != nil {
		return err
	}
	if !exp.AcceptsTraffic() {
		r.logger.Debug("conversion ignored, experiment not accepting traffic",
			zap.String("experiment", experimentID),
			zap.String("status", string(exp.Status)))
		return nil
	}

	assignment, err := r.store.GetAssignment(ctx, experimentID, userID)
	if errors.Is(err, store.ErrNotFound) {
		r.logger.Debug("conversion ignored, user has no assignment",
			zap.String("experiment", experimentID),
			zap.String("user", userID))
		return nil
	}
	if err != nil {
		return err
	}

	if assignment.VariantID != variantID {
		if r.metrics != nil {
			r.metrics.AttributionMismatch.WithLabelValues(experimentID).Inc()
		}
		r.logger.Warn("conversion dropped, variant does not match sticky assignment",
			zap.String("experiment", experimentID),
			zap.String("user", userID),
			zap.String("claimed", variantID),
			zap.String("assigned", assignment.VariantID))
		return nil
	}

	if err := r.store.AppendConversion(ctx, experiment.Conversion{
		ExperimentID: experimentID,
		VariantID:    variantID,
		UserID:       userID,
		Value:        value,
		Attributes:   attrs,
	}); err != nil {
		return err
	}

	if r.metrics != nil {
		r.metrics.ConversionsTotal.WithLabelValues(experimentID, variantID).Inc()
	}
	r.bus.Emit(events.Event{
		Name:         events.ConversionTracked,
		ExperimentID: experimentID,
		VariantID:    variantID,
		UserID:       userID,
	})

	return nil
}
