package stats

import "math"

// TwoProportionZTest compares conversion proportions between control and
// treatment under the pooled null hypothesis. It returns the z statistic
// and the two-tailed p-value.
func TwoProportionZTest(controlConv, controlN, treatmentConv, treatmentN int) (z, pValue float64) {
	if controlN == 0 || treatmentN == 0 {
		return 0, 1 // need data from both variants
	}

	pc := float64(controlConv) / float64(controlN)
	pt := float64(treatmentConv) / float64(treatmentN)

	// Pooled proportion under the null hypothesis pc == pt
	pooled := float64(controlConv+treatmentConv) / float64(controlN+treatmentN)
	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(controlN) + 1/float64(treatmentN)))

	if se == 0 {
		if pc == pt {
			return 0, 1
		}
		// Degenerate pooled variance with differing rates: treat as certain.
		return math.Inf(1), 0
	}

	z = (pt - pc) / se
	pValue = 2 * (1 - NormalCDF(math.Abs(z)))
	if pValue < 0 {
		pValue = 0
	}
	if pValue > 1 {
		pValue = 1
	}
	return z, pValue
}

// BonferroniCorrect adjusts a raw p-value for the number of simultaneous
// comparisons.
func BonferroniCorrect(pValue float64, comparisons int) float64 {
	if comparisons <= 1 {
		return pValue
	}
	return math.Min(pValue*float64(comparisons), 1)
}
