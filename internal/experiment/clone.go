package experiment

// Clone returns a deep copy of the experiment. Callers can mutate the
// copy freely without affecting the receiver or anything sharing it.
func (e *Experiment) Clone() *Experiment {
	cp := *e

	cp.Variants = append([]Variant(nil), e.Variants...)
	cp.Metrics = append([]Metric(nil), e.Metrics...)
	for i := range cp.Metrics {
		if cp.Metrics[i].Criteria != nil {
			c := *cp.Metrics[i].Criteria
			cp.Metrics[i].Criteria = &c
		}
	}

	cp.Config.SegmentDimensions = append([]string(nil), e.Config.SegmentDimensions...)
	if e.Config.EarlyStopping != nil {
		es := *e.Config.EarlyStopping
		cp.Config.EarlyStopping = &es
	}

	if e.StartedAt != nil {
		t := *e.StartedAt
		cp.StartedAt = &t
	}
	if e.EndedAt != nil {
		t := *e.EndedAt
		cp.EndedAt = &t
	}
	if e.Results != nil {
		cp.Results = e.Results.Clone()
	}
	return &cp
}

// Clone returns a deep copy of the results payload.
func (r *Results) Clone() *Results {
	cp := *r
	cp.Variants = append([]VariantSummary(nil), r.Variants...)
	cp.Segments = append([]SegmentResult(nil), r.Segments...)
	if r.PValue != nil {
		v := *r.PValue
		cp.PValue = &v
	}
	if r.ProbabilityOfImprovement != nil {
		v := *r.ProbabilityOfImprovement
		cp.ProbabilityOfImprovement = &v
	}
	return &cp
}
