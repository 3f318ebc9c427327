package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitlab/splitlab/internal/experiment"
)

// fakeSource serves canned per-segment aggregates keyed by
// dimension=value/variant.
type fakeSource struct {
	values map[string][]string
	aggs   map[string]experiment.Aggregate
}

func (f *fakeSource) SegmentValues(_ context.Context, _, dimension string) ([]string, error) {
	return f.values[dimension], nil
}

func (f *fakeSource) QueryVariantAggregates(_ context.Context, _, variantID string, filter *experiment.SegmentFilter) (experiment.Aggregate, error) {
	key := filter.Dimension + "=" + filter.Value + "/" + variantID
	agg := f.aggs[key]
	agg.VariantID = variantID
	return agg, nil
}

func TestAnalyzeSegments(t *testing.T) {
	a := NewAnalyzer(WithSampler(NewSampler(1)))
	exp := twoArmExperiment(experiment.MethodFrequentist)
	exp.Config.SegmentDimensions = []string{"device"}

	src := &fakeSource{
		values: map[string][]string{"device": {"mobile", "desktop"}},
		aggs: map[string]experiment.Aggregate{
			// Mobile shows a clear lift, desktop is flat.
			"device=mobile/control":    {SampleSize: 1000, Conversions: 50},
			"device=mobile/treatment":  {SampleSize: 1000, Conversions: 100},
			"device=desktop/control":   {SampleSize: 800, Conversions: 40},
			"device=desktop/treatment": {SampleSize: 800, Conversions: 41},
		},
	}

	segments, err := a.AnalyzeSegments(context.Background(), exp, src)
	require.NoError(t, err)
	require.Len(t, segments, 2)

	mobile := segments[0]
	assert.Equal(t, "device", mobile.Dimension)
	assert.Equal(t, "mobile", mobile.Value)
	assert.Equal(t, 2000, mobile.SampleSize)
	assert.Equal(t, "treatment", mobile.WinnerVariantID)
	assert.True(t, mobile.Significant)

	desktop := segments[1]
	assert.Equal(t, "desktop", desktop.Value)
	assert.Empty(t, desktop.WinnerVariantID)
	assert.False(t, desktop.Significant)
}

func TestAnalyzeSegments_SparseSegmentReported(t *testing.T) {
	a := NewAnalyzer(WithSampler(NewSampler(1)))
	exp := twoArmExperiment(experiment.MethodFrequentist)
	exp.Config.SegmentDimensions = []string{"locale"}

	src := &fakeSource{
		values: map[string][]string{"locale": {"fr"}},
		aggs:   map[string]experiment.Aggregate{}, // nobody in the segment
	}

	segments, err := a.AnalyzeSegments(context.Background(), exp, src)
	require.NoError(t, err)
	require.Len(t, segments, 1)

	assert.True(t, segments[0].InsufficientData)
	assert.False(t, segments[0].Significant)
	assert.Zero(t, segments[0].SampleSize)
}

func TestAnalyzeSegments_NoDimensions(t *testing.T) {
	a := NewAnalyzer()
	exp := twoArmExperiment(experiment.MethodFrequentist)

	segments, err := a.AnalyzeSegments(context.Background(), exp, &fakeSource{})
	require.NoError(t, err)
	assert.Empty(t, segments)
}
