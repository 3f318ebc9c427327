// Package experiment defines the core data model for A/B experiments:
// variants, metrics, configuration, assignments, conversions and results.
package experiment

import "time"

// Type categorizes what an experiment tests.
type Type string

const (
	TypeContent     Type = "content"
	TypeCampaign    Type = "campaign"
	TypeCreative    Type = "creative"
	TypeLandingPage Type = "landing_page"
	TypeAudience    Type = "audience"
)

// Status is the lifecycle state of an experiment.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusRunning   Status = "running"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusArchived  Status = "archived"
)

// MetricKind distinguishes the primary decision metric from supporting ones.
type MetricKind string

const (
	MetricPrimary   MetricKind = "primary"
	MetricSecondary MetricKind = "secondary"
	MetricGuardrail MetricKind = "guardrail"
)

// Aggregation is how raw conversion values roll up into a metric.
type Aggregation string

const (
	AggregationSum            Aggregation = "sum"
	AggregationAverage        Aggregation = "average"
	AggregationCount          Aggregation = "count"
	AggregationConversionRate Aggregation = "conversion_rate"
)

// Direction is the desired movement of a metric.
type Direction string

const (
	DirectionIncrease Direction = "increase"
	DirectionDecrease Direction = "decrease"
)

// Method selects the statistical comparison used for analysis.
type Method string

const (
	MethodFrequentist Method = "frequentist"
	MethodBayesian    Method = "bayesian"
)

// DefaultConfidenceLevel applies when the primary metric has no explicit
// success criteria.
const DefaultConfidenceLevel = 0.95

// Variant is one arm of an experiment.
type Variant struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	IsControl         bool    `json:"is_control"`
	TrafficAllocation float64 `json:"traffic_allocation"` // percentage, 0-100
	Disabled          bool    `json:"disabled,omitempty"`
}

// SuccessCriteria describes when a metric movement counts as a win.
type SuccessCriteria struct {
	Direction         Direction `json:"direction"`
	MinRelativeChange float64   `json:"min_relative_change,omitempty"`
	ConfidenceLevel   float64   `json:"confidence_level,omitempty"`
}

// Metric is a measured outcome of an experiment.
type Metric struct {
	Name        string           `json:"name"`
	Kind        MetricKind       `json:"kind"`
	Aggregation Aggregation      `json:"aggregation"`
	Criteria    *SuccessCriteria `json:"criteria,omitempty"`
}

// EarlyStopping configures sequential monitoring boundaries.
type EarlyStopping struct {
	Enabled          bool          `json:"enabled"`
	CheckInterval    time.Duration `json:"check_interval,omitempty"`
	FutilityBoundary float64       `json:"futility_boundary,omitempty"`
	EfficacyBoundary float64       `json:"efficacy_boundary,omitempty"`
}

// Configuration holds the statistical settings for an experiment.
type Configuration struct {
	MinimumSampleSize int            `json:"minimum_sample_size"`
	MinDurationDays   int            `json:"min_duration_days,omitempty"`
	MaxDurationDays   int            `json:"max_duration_days,omitempty"`
	Method            Method         `json:"method"`
	CorrectMultiple   bool           `json:"correct_multiple"`
	SegmentDimensions []string       `json:"segment_dimensions,omitempty"`
	EarlyStopping     *EarlyStopping `json:"early_stopping,omitempty"`
}

// Experiment is a full A/B test definition. It is owned by the lifecycle
// controller and mutated only through controller operations.
type Experiment struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Type        Type          `json:"type"`
	Status      Status        `json:"status"`
	StartedAt   *time.Time    `json:"started_at,omitempty"`
	EndedAt     *time.Time    `json:"ended_at,omitempty"`
	Variants    []Variant     `json:"variants"`
	Metrics     []Metric      `json:"metrics"`
	Config      Configuration `json:"config"`
	Results     *Results      `json:"results,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Control returns the control variant.
func (e *Experiment) Control() (*Variant, bool) {
	for i := range e.Variants {
		if e.Variants[i].IsControl {
			return &e.Variants[i], true
		}
	}
	return nil, false
}

// Variant returns the variant with the given id.
func (e *Experiment) Variant(id string) (*Variant, bool) {
	for i := range e.Variants {
		if e.Variants[i].ID == id {
			return &e.Variants[i], true
		}
	}
	return nil, false
}

// PrimaryMetric returns the experiment's primary metric.
func (e *Experiment) PrimaryMetric() (*Metric, bool) {
	for i := range e.Metrics {
		if e.Metrics[i].Kind == MetricPrimary {
			return &e.Metrics[i], true
		}
	}
	return nil, false
}

// ConfidenceLevel returns the confidence level from the primary metric's
// success criteria, or the default when unset.
func (e *Experiment) ConfidenceLevel() float64 {
	if m, ok := e.PrimaryMetric(); ok && m.Criteria != nil && m.Criteria.ConfidenceLevel > 0 {
		return m.Criteria.ConfidenceLevel
	}
	return DefaultConfidenceLevel
}

// AcceptsTraffic reports whether assignments and conversions are accepted.
// Paused experiments keep accepting in-flight events so none are lost.
func (e *Experiment) AcceptsTraffic() bool {
	return e.Status == StatusRunning || e.Status == StatusPaused
}

// Assignment records which variant a user was bucketed into. Created once,
// never moved. Attributes carry the assignment-time context used for
// segmentation (device, locale, ...).
type Assignment struct {
	ExperimentID string            `json:"experiment_id"`
	UserID       string            `json:"user_id"`
	VariantID    string            `json:"variant_id"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Conversion is a single append-only conversion event.
type Conversion struct {
	ExperimentID string            `json:"experiment_id"`
	VariantID    string            `json:"variant_id"`
	UserID       string            `json:"user_id"`
	Value        float64           `json:"value,omitempty"`
	Attributes   map[string]string `json:"attributes,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Aggregate is the raw per-variant rollup produced by the store.
type Aggregate struct {
	VariantID   string  `json:"variant_id"`
	SampleSize  int     `json:"sample_size"` // distinct assigned users
	Conversions int     `json:"conversions"` // distinct converted users
	TotalValue  float64 `json:"total_value"`
	SumSquares  float64 `json:"sum_squares"`
}

// SegmentFilter restricts aggregates to conversions matching one attribute.
type SegmentFilter struct {
	Dimension string `json:"dimension"`
	Value     string `json:"value"`
}

// VariantSummary is a per-variant statistical summary with a confidence
// interval around the conversion rate.
type VariantSummary struct {
	VariantID        string  `json:"variant_id"`
	Name             string  `json:"name"`
	IsControl        bool    `json:"is_control"`
	SampleSize       int     `json:"sample_size"`
	Conversions      int     `json:"conversions"`
	Rate             float64 `json:"rate"`
	Mean             float64 `json:"mean"`
	Variance         float64 `json:"variance"`
	CILower          float64 `json:"ci_lower"`
	CIUpper          float64 `json:"ci_upper"`
	InsufficientData bool    `json:"insufficient_data,omitempty"`
}

// SegmentResult is the comparison outcome restricted to one dimension value.
type SegmentResult struct {
	Dimension                string   `json:"dimension"`
	Value                    string   `json:"value"`
	SampleSize               int      `json:"sample_size"`
	WinnerVariantID          string   `json:"winner_variant_id,omitempty"`
	Confidence               float64  `json:"confidence"`
	PValue                   *float64 `json:"p_value,omitempty"`
	ProbabilityOfImprovement *float64 `json:"probability_of_improvement,omitempty"`
	Significant              bool     `json:"significant"`
	InsufficientData         bool     `json:"insufficient_data,omitempty"`
}

// Results is the computed outcome of an experiment. Recomputed on demand
// while running, frozen once the experiment completes.
type Results struct {
	WinnerVariantID          string           `json:"winner_variant_id,omitempty"`
	Confidence               float64          `json:"confidence"`
	PValue                   *float64         `json:"p_value,omitempty"`
	ProbabilityOfImprovement *float64         `json:"probability_of_improvement,omitempty"`
	EffectSize               float64          `json:"effect_size"`
	Significant              bool             `json:"significant"`
	InsufficientData         bool             `json:"insufficient_data,omitempty"`
	Variants                 []VariantSummary `json:"variants"`
	Segments                 []SegmentResult  `json:"segments,omitempty"`
	Recommendation           string           `json:"recommendation"`
	StopReason               string           `json:"stop_reason,omitempty"`
	ComputedAt               time.Time        `json:"computed_at"`
}
