package stats

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/splitlab/splitlab/internal/experiment"
)

// Analyzer computes experiment results from per-variant aggregates. It is
// read-only over a point-in-time snapshot of the data and safe to run
// concurrently with new conversions arriving.
type Analyzer struct {
	sampler *Sampler
	draws   int
	logger  *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithSampler injects a seeded random source for the Bayesian path.
func WithSampler(s *Sampler) Option {
	return func(a *Analyzer) { a.sampler = s }
}

// WithDraws overrides the Monte Carlo sample count.
func WithDraws(n int) Option {
	return func(a *Analyzer) { a.draws = n }
}

// WithLogger attaches a logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(opts ...Option) *Analyzer {
	a := &Analyzer{
		sampler: NewSampler(time.Now().UnixNano()),
		draws:   DefaultDraws,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// comparison holds the outcome of one treatment-vs-control test.
type comparison struct {
	variantID       string
	improvement     float64 // relative change in the success direction
	pValue          *float64
	probImprovement *float64
	confidence      float64
	effectSize      float64
	significant     bool
}

// Analyze compares every non-control variant against the control and
// selects the winner with the largest statistically significant
// improvement. Sparse data degrades gracefully into an inconclusive
// Results payload rather than an error.
func (a *Analyzer) Analyze(exp *experiment.Experiment, aggs []experiment.Aggregate) (*experiment.Results, error) {
	control, ok := exp.Control()
	if !ok {
		return nil, &experiment.ValidationError{Field: "variants", Reason: "no control variant"}
	}

	confidenceLevel := exp.ConfidenceLevel()
	byVariant := make(map[string]experiment.Aggregate, len(aggs))
	for _, agg := range aggs {
		byVariant[agg.VariantID] = agg
	}

	results := &experiment.Results{ComputedAt: time.Now()}
	summaries := make(map[string]experiment.VariantSummary, len(exp.Variants))
	for _, v := range exp.Variants {
		s := Summarize(v, byVariant[v.ID], confidenceLevel)
		summaries[v.ID] = s
		results.Variants = append(results.Variants, s)
	}

	controlSummary := summaries[control.ID]
	treatments := a.treatments(exp, summaries)

	if controlSummary.SampleSize == 0 || len(treatments) == 0 {
		results.InsufficientData = true
		results.Recommendation = "Insufficient data. Continue collecting data for reliable results."
		return results, nil
	}

	comparisons := a.compare(exp, controlSummary, treatments, confidenceLevel)

	var winner *comparison
	var best *comparison
	for i := range comparisons {
		c := &comparisons[i]
		if best == nil || c.confidence > best.confidence {
			best = c
		}
		if c.significant && (winner == nil || c.improvement > winner.improvement) {
			winner = c
		}
	}

	reported := best
	if winner != nil {
		reported = winner
		results.WinnerVariantID = winner.variantID
		results.Significant = true
	}
	if reported != nil {
		results.Confidence = reported.confidence
		results.PValue = reported.pValue
		results.ProbabilityOfImprovement = reported.probImprovement
		results.EffectSize = reported.effectSize
	}

	results.Recommendation = a.recommendation(exp, results, summaries)

	a.logger.Debug("experiment analyzed",
		zap.String("experiment", exp.ID),
		zap.String("winner", results.WinnerVariantID),
		zap.Float64("confidence", results.Confidence))

	return results, nil
}

// treatments returns the active non-control summaries in variant order.
func (a *Analyzer) treatments(exp *experiment.Experiment, summaries map[string]experiment.VariantSummary) []experiment.VariantSummary {
	var out []experiment.VariantSummary
	for _, v := range exp.Variants {
		if v.IsControl || v.Disabled {
			continue
		}
		if s := summaries[v.ID]; s.SampleSize > 0 {
			out = append(out, s)
		}
	}
	return out
}

func (a *Analyzer) compare(exp *experiment.Experiment, control experiment.VariantSummary, treatments []experiment.VariantSummary, confidenceLevel float64) []comparison {
	primary, _ := exp.PrimaryMetric()
	direction := experiment.DirectionIncrease
	minChange := 0.0
	if primary != nil && primary.Criteria != nil {
		if primary.Criteria.Direction != "" {
			direction = primary.Criteria.Direction
		}
		minChange = primary.Criteria.MinRelativeChange
	}

	alpha := 1 - confidenceLevel
	correctFor := 1
	if exp.Config.CorrectMultiple && len(treatments) > 1 {
		correctFor = len(treatments)
	}

	out := make([]comparison, 0, len(treatments))
	for _, t := range treatments {
		c := comparison{variantID: t.VariantID}
		c.improvement = relativeImprovement(control.Rate, t.Rate, direction)
		c.effectSize = a.effectSize(primary, control, t)

		switch exp.Config.Method {
		case experiment.MethodBayesian:
			prob := a.bayesianProbability(control, t, direction)
			c.probImprovement = &prob
			c.confidence = prob
			c.significant = prob > confidenceLevel
		default: // frequentist
			_, raw := TwoProportionZTest(control.Conversions, control.SampleSize, t.Conversions, t.SampleSize)
			corrected := BonferroniCorrect(raw, correctFor)
			c.pValue = &corrected
			c.confidence = 1 - corrected
			c.significant = corrected < alpha
		}

		// A significant result must also move the metric in the desired
		// direction, past any configured minimum.
		if c.improvement <= 0 || c.improvement < minChange {
			c.significant = false
		}
		out = append(out, c)
	}
	return out
}

func (a *Analyzer) bayesianProbability(control, treatment experiment.VariantSummary, direction experiment.Direction) float64 {
	if direction == experiment.DirectionDecrease {
		// P(treatment < control) is P(control > treatment).
		return a.sampler.ProbabilityOfImprovement(treatment.Conversions, treatment.SampleSize, control.Conversions, control.SampleSize, a.draws)
	}
	return a.sampler.ProbabilityOfImprovement(control.Conversions, control.SampleSize, treatment.Conversions, treatment.SampleSize, a.draws)
}

func (a *Analyzer) effectSize(primary *experiment.Metric, control, treatment experiment.VariantSummary) float64 {
	if primary != nil && primary.Aggregation != experiment.AggregationConversionRate && treatment.Conversions > 1 && control.Conversions > 1 {
		return CohenD(control.Mean, control.Variance, control.Conversions, treatment.Mean, treatment.Variance, treatment.Conversions)
	}
	return ConversionEffectSize(control.Rate, control.SampleSize, treatment.Rate, treatment.SampleSize)
}

func (a *Analyzer) recommendation(exp *experiment.Experiment, results *experiment.Results, summaries map[string]experiment.VariantSummary) string {
	if results.WinnerVariantID != "" {
		name := results.WinnerVariantID
		if v, ok := exp.Variant(results.WinnerVariantID); ok {
			name = v.Name
		}
		return fmt.Sprintf("Recommend adopting variant %q with %.1f%% confidence.", name, results.Confidence*100)
	}

	total := 0
	for _, s := range summaries {
		total += s.SampleSize
	}
	if total < exp.Config.MinimumSampleSize*len(exp.Variants) {
		return "Insufficient sample size. Continue collecting data for reliable results."
	}
	return "No statistically significant difference detected. Continue the experiment or review the hypothesis."
}

// relativeImprovement measures treatment movement relative to control in
// the desired direction. A zero control rate falls back to the absolute
// difference.
func relativeImprovement(controlRate, treatmentRate float64, direction experiment.Direction) float64 {
	diff := treatmentRate - controlRate
	if direction == experiment.DirectionDecrease {
		diff = -diff
	}
	if controlRate == 0 {
		return diff
	}
	return diff / controlRate
}
