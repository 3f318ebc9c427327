package stats

import (
	"math"

	"github.com/splitlab/splitlab/internal/experiment"
)

// Summarize turns a raw store aggregate into a per-variant summary with a
// normal-approximation confidence interval around the conversion rate.
// A variant with no samples gets rate 0 and the insufficient-data flag
// rather than NaN.
func Summarize(v experiment.Variant, agg experiment.Aggregate, confidence float64) experiment.VariantSummary {
	summary := experiment.VariantSummary{
		VariantID:   v.ID,
		Name:        v.Name,
		IsControl:   v.IsControl,
		SampleSize:  agg.SampleSize,
		Conversions: agg.Conversions,
	}

	if agg.SampleSize == 0 {
		summary.InsufficientData = true
		return summary
	}

	n := float64(agg.SampleSize)
	summary.Rate = float64(agg.Conversions) / n

	se := math.Sqrt(summary.Rate * (1 - summary.Rate) / n)
	z := ZScore(confidence)
	summary.CILower = clamp01(summary.Rate - z*se)
	summary.CIUpper = clamp01(summary.Rate + z*se)

	if agg.Conversions > 0 {
		c := float64(agg.Conversions)
		summary.Mean = agg.TotalValue / c
		if agg.Conversions > 1 {
			// Sample variance from sum and sum of squares.
			summary.Variance = (agg.SumSquares - c*summary.Mean*summary.Mean) / (c - 1)
			if summary.Variance < 0 {
				summary.Variance = 0
			}
		}
	}

	return summary
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
