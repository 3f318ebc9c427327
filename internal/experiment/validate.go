package experiment

import "math"

// allocationTolerance absorbs floating point drift when variant
// allocations are checked against 100%.
const allocationTolerance = 0.01

// Validate checks the structural invariants of an experiment definition:
// at least two variants, exactly one control, allocations summing to 100,
// and exactly one primary metric. It returns a ValidationError describing
// the first violation found.
func (e *Experiment) Validate() error {
	if e.Name == "" {
		return &ValidationError{Field: "name", Reason: "required"}
	}
	if len(e.Variants) < 2 {
		return &ValidationError{Field: "variants", Reason: "need at least 2 variants"}
	}

	controls := 0
	total := 0.0
	seen := make(map[string]bool, len(e.Variants))
	for _, v := range e.Variants {
		if v.ID == "" {
			return &ValidationError{Field: "variants", Reason: "variant id required"}
		}
		if seen[v.ID] {
			return &ValidationError{Field: "variants", Reason: "duplicate variant id " + v.ID}
		}
		seen[v.ID] = true
		if v.IsControl {
			controls++
		}
		if v.TrafficAllocation < 0 || v.TrafficAllocation > 100 {
			return &ValidationError{Field: "variants", Reason: "allocation out of range for " + v.ID}
		}
		total += v.TrafficAllocation
	}
	if controls != 1 {
		return &ValidationError{Field: "variants", Reason: "exactly one control variant required"}
	}
	if math.Abs(total-100) > allocationTolerance {
		return &ValidationError{Field: "variants", Reason: "traffic allocations must sum to 100"}
	}

	if len(e.Metrics) == 0 {
		return &ValidationError{Field: "metrics", Reason: "at least one metric required"}
	}
	primaries := 0
	for _, m := range e.Metrics {
		if m.Name == "" {
			return &ValidationError{Field: "metrics", Reason: "metric name required"}
		}
		if m.Kind == MetricPrimary {
			primaries++
		}
		if m.Criteria != nil && m.Criteria.ConfidenceLevel != 0 {
			if m.Criteria.ConfidenceLevel <= 0 || m.Criteria.ConfidenceLevel >= 1 {
				return &ValidationError{Field: "metrics", Reason: "confidence level must be in (0,1)"}
			}
		}
	}
	if primaries != 1 {
		return &ValidationError{Field: "metrics", Reason: "exactly one primary metric required"}
	}

	if es := e.Config.EarlyStopping; es != nil && es.Enabled {
		if es.FutilityBoundary < 0 || es.FutilityBoundary >= 1 {
			return &ValidationError{Field: "early_stopping", Reason: "futility boundary must be in [0,1)"}
		}
		if es.EfficacyBoundary <= 0 || es.EfficacyBoundary > 1 {
			return &ValidationError{Field: "early_stopping", Reason: "efficacy boundary must be in (0,1]"}
		}
		if es.FutilityBoundary >= es.EfficacyBoundary {
			return &ValidationError{Field: "early_stopping", Reason: "futility boundary must be below efficacy boundary"}
		}
	}

	return nil
}
