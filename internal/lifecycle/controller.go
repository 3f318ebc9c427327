// Package lifecycle owns the experiment state machine: creation,
// validation, start/pause/resume/stop transitions, and the periodic
// early-stopping monitor.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/splitlab/splitlab/internal/events"
	"github.com/splitlab/splitlab/internal/experiment"
	"github.com/splitlab/splitlab/internal/metrics"
	"github.com/splitlab/splitlab/internal/stats"
	"github.com/splitlab/splitlab/internal/store"
	"github.com/splitlab/splitlab/internal/traffic"
)

// StopReasonManual marks an operator-initiated stop.
const StopReasonManual = "manual"

// Controller mutates experiments. It keeps an explicit cache of active
// experiments keyed by id, reloaded on every start/pause/resume/stop, so
// request-path lookups avoid the store without hidden global state. The
// cache copies on both read and write: callers and transitions each work
// on private clones, so a request goroutine never shares a mutable
// struct with a concurrent transition or monitor tick.
type Controller struct {
	store     store.Store
	analyzer  *stats.Analyzer
	estimator traffic.Estimator
	bus       *events.Bus
	metrics   *metrics.Collector
	logger    *zap.Logger
	now       func() time.Time

	mu     sync.RWMutex
	active map[string]*experiment.Experiment
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock injects a time source for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Controller) { c.metrics = m }
}

// NewController creates a lifecycle controller.
func NewController(s store.Store, analyzer *stats.Analyzer, estimator traffic.Estimator, bus *events.Bus, logger *zap.Logger, opts ...Option) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Controller{
		store:     s,
		analyzer:  analyzer,
		estimator: estimator,
		bus:       bus,
		logger:    logger,
		now:       time.Now,
		active:    make(map[string]*experiment.Experiment),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create validates and persists a new experiment in draft status. Missing
// experiment and variant ids are filled in.
func (c *Controller) Create(ctx context.Context, exp *experiment.Experiment) error {
	if exp.ID == "" {
		exp.ID = uuid.NewString()
	}
	for i := range exp.Variants {
		if exp.Variants[i].ID == "" {
			exp.Variants[i].ID = uuid.NewString()
		}
	}
	if exp.Status == "" {
		exp.Status = experiment.StatusDraft
	}
	if exp.Status != experiment.StatusDraft {
		return &experiment.StateError{Op: "create", Status: exp.Status}
	}
	if exp.Config.Method == "" {
		exp.Config.Method = experiment.MethodFrequentist
	}

	if err := exp.Validate(); err != nil {
		return err
	}

	if err := c.store.SaveExperiment(ctx, exp); err != nil {
		return fmt.Errorf("failed to save experiment: %w", err)
	}

	c.bus.Emit(events.Event{Name: events.ExperimentCreated, ExperimentID: exp.ID})
	c.logger.Info("experiment created",
		zap.String("experiment", exp.ID),
		zap.String("name", exp.Name),
		zap.Int("variants", len(exp.Variants)))
	return nil
}

// Start transitions a draft experiment to running. It re-validates the
// definition and checks that estimated traffic can reach the configured
// sample size; on failure the experiment stays in draft.
func (c *Controller) Start(ctx context.Context, id string) error {
	exp, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	if exp.Status != experiment.StatusDraft {
		return &experiment.StateError{Op: "start", Status: exp.Status}
	}

	if err := exp.Validate(); err != nil {
		return err
	}

	daily, err := c.estimator.EstimateDailyTraffic(ctx, exp.Type)
	if err != nil {
		return fmt.Errorf("failed to estimate traffic: %w", err)
	}
	days := exp.Config.MinDurationDays
	if days < 1 {
		days = 1
	}
	estimated := daily * days
	required := exp.Config.MinimumSampleSize * len(exp.Variants)
	if estimated < required {
		return &experiment.InsufficientTrafficError{Estimated: estimated, Required: required}
	}

	now := c.now()
	exp.Status = experiment.StatusRunning
	exp.StartedAt = &now
	if err := c.store.SaveExperiment(ctx, exp); err != nil {
		return fmt.Errorf("failed to save experiment: %w", err)
	}
	c.cache(exp)

	c.bus.Emit(events.Event{Name: events.ExperimentStarted, ExperimentID: id})
	c.logger.Info("experiment started", zap.String("experiment", id))
	return nil
}

// Pause suspends evaluation of a running experiment. Assignments and
// conversions continue to be accepted so in-flight events are not lost.
func (c *Controller) Pause(ctx context.Context, id string) error {
	exp, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	if exp.Status != experiment.StatusRunning {
		return &experiment.StateError{Op: "pause", Status: exp.Status}
	}

	exp.Status = experiment.StatusPaused
	if err := c.store.SaveExperiment(ctx, exp); err != nil {
		return fmt.Errorf("failed to save experiment: %w", err)
	}
	c.cache(exp)

	c.bus.Emit(events.Event{Name: events.ExperimentPaused, ExperimentID: id})
	c.logger.Info("experiment paused", zap.String("experiment", id))
	return nil
}

// Resume returns a paused experiment to running.
func (c *Controller) Resume(ctx context.Context, id string) error {
	exp, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	if exp.Status != experiment.StatusPaused {
		return &experiment.StateError{Op: "resume", Status: exp.Status}
	}

	exp.Status = experiment.StatusRunning
	if err := c.store.SaveExperiment(ctx, exp); err != nil {
		return fmt.Errorf("failed to save experiment: %w", err)
	}
	c.cache(exp)

	c.bus.Emit(events.Event{Name: events.ExperimentStarted, ExperimentID: id, Reason: "resumed"})
	c.logger.Info("experiment resumed", zap.String("experiment", id))
	return nil
}

// Stop completes a running or paused experiment, computing and freezing
// its final results.
func (c *Controller) Stop(ctx context.Context, id, reason string) error {
	exp, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	if exp.Status != experiment.StatusRunning && exp.Status != experiment.StatusPaused {
		return &experiment.StateError{Op: "stop", Status: exp.Status}
	}

	results, err := c.computeResults(ctx, exp)
	if err != nil {
		return err
	}
	return c.complete(ctx, exp, results, reason)
}

// complete freezes results and writes the terminal state in a single save.
func (c *Controller) complete(ctx context.Context, exp *experiment.Experiment, results *experiment.Results, reason string) error {
	if reason == "" {
		reason = StopReasonManual
	}
	results.StopReason = reason

	now := c.now()
	exp.Status = experiment.StatusCompleted
	exp.EndedAt = &now
	exp.Results = results
	if err := c.store.SaveExperiment(ctx, exp); err != nil {
		return fmt.Errorf("failed to save experiment: %w", err)
	}
	c.uncache(exp.ID)

	c.bus.Emit(events.Event{Name: events.ExperimentStopped, ExperimentID: exp.ID, Reason: reason})
	c.logger.Info("experiment stopped",
		zap.String("experiment", exp.ID),
		zap.String("reason", reason),
		zap.String("winner", results.WinnerVariantID))
	return nil
}

// Archive moves an experiment into the terminal administrative state.
func (c *Controller) Archive(ctx context.Context, id string) error {
	exp, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	if exp.Status == experiment.StatusArchived {
		return &experiment.StateError{Op: "archive", Status: exp.Status}
	}

	exp.Status = experiment.StatusArchived
	if err := c.store.SaveExperiment(ctx, exp); err != nil {
		return fmt.Errorf("failed to save experiment: %w", err)
	}
	c.uncache(id)

	c.logger.Info("experiment archived", zap.String("experiment", id))
	return nil
}

// Results returns the experiment's results: the frozen payload for a
// completed experiment, or a freshly computed snapshot otherwise.
func (c *Controller) Results(ctx context.Context, id string) (*experiment.Results, error) {
	exp, err := c.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if exp.Status == experiment.StatusCompleted && exp.Results != nil {
		return exp.Results, nil
	}
	return c.computeResults(ctx, exp)
}

// computeResults aggregates every variant and runs the statistical
// analyzer, including segment breakdowns when configured.
func (c *Controller) computeResults(ctx context.Context, exp *experiment.Experiment) (*experiment.Results, error) {
	aggs := make([]experiment.Aggregate, 0, len(exp.Variants))
	for _, v := range exp.Variants {
		agg, err := c.store.QueryVariantAggregates(ctx, exp.ID, v.ID, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to aggregate variant %s: %w", v.ID, err)
		}
		aggs = append(aggs, agg)
	}

	results, err := c.analyzer.Analyze(exp, aggs)
	if err != nil {
		return nil, err
	}

	if len(exp.Config.SegmentDimensions) > 0 {
		segments, err := c.analyzer.AnalyzeSegments(ctx, exp, c.store)
		if err != nil {
			return nil, err
		}
		results.Segments = segments
	}
	return results, nil
}

// ActiveExperiment serves assignment-path lookups from the cache, falling
// back to the store and caching experiments that accept traffic. The
// returned experiment is the caller's private copy.
func (c *Controller) ActiveExperiment(ctx context.Context, id string) (*experiment.Experiment, error) {
	c.mu.RLock()
	exp, ok := c.active[id]
	c.mu.RUnlock()
	if ok {
		return exp.Clone(), nil
	}

	exp, err := c.store.LoadExperiment(ctx, id)
	if err != nil {
		return nil, err
	}
	if exp.AcceptsTraffic() {
		c.cache(exp)
	}
	return exp, nil
}

// LoadActive warms the cache with every running and paused experiment.
// Called once at process start.
func (c *Controller) LoadActive(ctx context.Context) error {
	exps, err := c.store.ListExperiments(ctx, experiment.StatusRunning, experiment.StatusPaused)
	if err != nil {
		return fmt.Errorf("failed to list active experiments: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.active = make(map[string]*experiment.Experiment, len(exps))
	for _, exp := range exps {
		c.active[exp.ID] = exp
	}
	return nil
}

// load prefers the cache and falls back to the store. The caller owns
// the returned copy and may mutate it before re-caching.
func (c *Controller) load(ctx context.Context, id string) (*experiment.Experiment, error) {
	c.mu.RLock()
	exp, ok := c.active[id]
	c.mu.RUnlock()
	if ok {
		return exp.Clone(), nil
	}
	return c.store.LoadExperiment(ctx, id)
}

// cache replaces the entry wholesale with its own clone; the caller's
// struct never becomes shared state.
func (c *Controller) cache(exp *experiment.Experiment) {
	c.mu.Lock()
	c.active[exp.ID] = exp.Clone()
	c.mu.Unlock()
}

func (c *Controller) uncache(id string) {
	c.mu.Lock()
	delete(c.active, id)
	c.mu.Unlock()
}
