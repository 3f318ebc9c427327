package stats

import "math"

// CohenD computes the standardized effect size between two groups: the
// mean difference divided by the pooled standard deviation.
func CohenD(controlMean, controlVar float64, controlN int, treatmentMean, treatmentVar float64, treatmentN int) float64 {
	if controlN < 2 || treatmentN < 2 {
		return 0
	}

	nc := float64(controlN)
	nt := float64(treatmentN)
	pooled := ((nc-1)*controlVar + (nt-1)*treatmentVar) / (nc + nt - 2)
	if pooled <= 0 {
		return 0
	}
	return (treatmentMean - controlMean) / math.Sqrt(pooled)
}

// ConversionEffectSize is CohenD for conversion-rate metrics, where each
// group's variance is the binomial p(1-p).
func ConversionEffectSize(controlRate float64, controlN int, treatmentRate float64, treatmentN int) float64 {
	return CohenD(
		controlRate, controlRate*(1-controlRate), controlN,
		treatmentRate, treatmentRate*(1-treatmentRate), treatmentN,
	)
}
