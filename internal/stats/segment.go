package stats

import (
	"context"
	"fmt"

	"github.com/splitlab/splitlab/internal/experiment"
)

// AggregateSource provides segment-scoped aggregates. Implemented by the
// store.
type AggregateSource interface {
	QueryVariantAggregates(ctx context.Context, experimentID, variantID string, filter *experiment.SegmentFilter) (experiment.Aggregate, error)
	SegmentValues(ctx context.Context, experimentID, dimension string) ([]string, error)
}

// AnalyzeSegments repeats the aggregate-and-compare pipeline restricted to
// each observed value of every configured segmentation dimension. Sparse
// segments are reported with the non-significant flag rather than omitted.
func (a *Analyzer) AnalyzeSegments(ctx context.Context, exp *experiment.Experiment, src AggregateSource) ([]experiment.SegmentResult, error) {
	var out []experiment.SegmentResult
	for _, dimension := range exp.Config.SegmentDimensions {
		values, err := src.SegmentValues(ctx, exp.ID, dimension)
		if err != nil {
			return nil, fmt.Errorf("failed to list values for dimension %q: %w", dimension, err)
		}

		for _, value := range values {
			filter := &experiment.SegmentFilter{Dimension: dimension, Value: value}

			aggs := make([]experiment.Aggregate, 0, len(exp.Variants))
			for _, v := range exp.Variants {
				agg, err := src.QueryVariantAggregates(ctx, exp.ID, v.ID, filter)
				if err != nil {
					return nil, fmt.Errorf("failed to aggregate segment %s=%s: %w", dimension, value, err)
				}
				aggs = append(aggs, agg)
			}

			results, err := a.Analyze(exp, aggs)
			if err != nil {
				return nil, err
			}

			segment := experiment.SegmentResult{
				Dimension:                dimension,
				Value:                    value,
				WinnerVariantID:          results.WinnerVariantID,
				Confidence:               results.Confidence,
				PValue:                   results.PValue,
				ProbabilityOfImprovement: results.ProbabilityOfImprovement,
				Significant:              results.Significant,
				InsufficientData:         results.InsufficientData,
			}
			for _, s := range results.Variants {
				segment.SampleSize += s.SampleSize
			}
			out = append(out, segment)
		}
	}
	return out, nil
}
