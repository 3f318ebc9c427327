package lifecycle

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/splitlab/splitlab/internal/experiment"
)

// Stop reasons recorded by the monitor.
const (
	StopReasonEfficacy    = "efficacy boundary reached"
	StopReasonFutility    = "futility boundary reached"
	StopReasonMaxDuration = "maximum duration reached"
)

// evalConcurrency bounds how many experiments are evaluated at once
// during a tick.
const evalConcurrency = 4

// EvaluateActiveExperiments runs one monitoring cycle over every running
// experiment. Experiments are processed independently: a failed
// evaluation is logged and counted, never aborting the cycle. The cycle
// is idempotent; a crash mid-cycle just defers work to the next tick.
func (c *Controller) EvaluateActiveExperiments(ctx context.Context) error {
	exps, err := c.store.ListExperiments(ctx, experiment.StatusRunning)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(evalConcurrency)
	for _, exp := range exps {
		id := exp.ID
		g.Go(func() error {
			if err := c.CheckEarlyStopping(ctx, id); err != nil {
				if c.metrics != nil {
					c.metrics.EvaluationFailures.WithLabelValues(id).Inc()
				}
				c.logger.Error("evaluation failed",
					zap.String("experiment", id),
					zap.Error(err))
			}
			return nil
		})
	}
	return g.Wait()
}

// CheckEarlyStopping recomputes results for one running experiment and
// applies the sequential stopping rules: maximum duration always stops
// regardless of significance; with early stopping enabled, confidence at
// or above the efficacy boundary stops and ships the winner, and
// confidence below the futility boundary stops once the experiment has
// had a fair chance (minimum duration and sample size reached).
func (c *Controller) CheckEarlyStopping(ctx context.Context, id string) error {
	exp, err := c.load(ctx, id)
	if err != nil {
		return err
	}
	if exp.Status != experiment.StatusRunning {
		return nil
	}

	now := c.now()
	var elapsed time.Duration
	if exp.StartedAt != nil {
		elapsed = now.Sub(*exp.StartedAt)
	}

	if exp.Config.MaxDurationDays > 0 && elapsed >= days(exp.Config.MaxDurationDays) {
		return c.autoStop(ctx, exp, StopReasonMaxDuration)
	}

	es := exp.Config.EarlyStopping
	if es == nil || !es.Enabled {
		return nil
	}

	results, err := c.computeResults(ctx, exp)
	if err != nil {
		return err
	}
	if c.metrics != nil {
		c.metrics.EvaluationsTotal.WithLabelValues(id).Inc()
	}

	if results.Confidence >= es.EfficacyBoundary {
		c.countStop(StopReasonEfficacy)
		return c.complete(ctx, exp, results, StopReasonEfficacy)
	}

	if results.Confidence < es.FutilityBoundary && c.pastMinimums(exp, results, elapsed) {
		c.countStop(StopReasonFutility)
		return c.complete(ctx, exp, results, StopReasonFutility)
	}

	// Interim snapshot so dashboards see fresh numbers between ticks.
	exp.Results = results
	if err := c.store.SaveExperiment(ctx, exp); err != nil {
		return err
	}
	c.cache(exp)
	return nil
}

// pastMinimums reports whether the experiment has run long enough and
// gathered enough samples for a futility stop to be trustworthy.
func (c *Controller) pastMinimums(exp *experiment.Experiment, results *experiment.Results, elapsed time.Duration) bool {
	if results.InsufficientData {
		return false
	}
	if exp.Config.MinDurationDays > 0 && elapsed < days(exp.Config.MinDurationDays) {
		return false
	}
	total := 0
	for _, s := range results.Variants {
		total += s.SampleSize
	}
	return total >= exp.Config.MinimumSampleSize*len(exp.Variants)
}

func (c *Controller) autoStop(ctx context.Context, exp *experiment.Experiment, reason string) error {
	results, err := c.computeResults(ctx, exp)
	if err != nil {
		return err
	}
	c.countStop(reason)
	return c.complete(ctx, exp, results, reason)
}

func (c *Controller) countStop(reason string) {
	if c.metrics != nil {
		c.metrics.EarlyStopsTotal.WithLabelValues(reason).Inc()
	}
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
