// Package metrics exposes Prometheus counters for the experimentation
// engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds the engine's Prometheus metrics.
type Collector struct {
	AssignmentsTotal    *prometheus.CounterVec
	ConversionsTotal    *prometheus.CounterVec
	AttributionMismatch *prometheus.CounterVec
	EvaluationsTotal    *prometheus.CounterVec
	EvaluationFailures  *prometheus.CounterVec
	EarlyStopsTotal     *prometheus.CounterVec
}

// NewCollector registers the engine metrics with the given registerer.
// Passing nil uses the default registerer.
func NewCollector(namespace string, reg prometheus.Registerer) *Collector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Collector{
		AssignmentsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "assignments_total",
			Help:      "Sticky variant assignments, by experiment and variant.",
		}, []string{"experiment", "variant"}),
		ConversionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversions_total",
			Help:      "Attributed conversion events, by experiment and variant.",
		}, []string{"experiment", "variant"}),
		AttributionMismatch: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "attribution_mismatch_total",
			Help:      "Conversions dropped because the variant did not match the sticky assignment.",
		}, []string{"experiment"}),
		EvaluationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Periodic statistical evaluations, by experiment.",
		}, []string{"experiment"}),
		EvaluationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluation_failures_total",
			Help:      "Evaluation cycles that failed for an experiment.",
		}, []string{"experiment"}),
		EarlyStopsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "early_stops_total",
			Help:      "Automatic experiment stops, by reason.",
		}, []string{"reason"}),
	}
}
