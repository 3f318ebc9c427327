package experiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validExperiment() *Experiment {
	return &Experiment{
		ID:   "exp-1",
		Name: "hero banner",
		Type: TypeContent,
		Variants: []Variant{
			{ID: "control", Name: "Control", IsControl: true, TrafficAllocation: 50},
			{ID: "b", Name: "B", TrafficAllocation: 50},
		},
		Metrics: []Metric{
			{Name: "click", Kind: MetricPrimary, Aggregation: AggregationConversionRate},
		},
	}
}

func TestValidate_OK(t *testing.T) {
	assert.NoError(t, validExperiment().Validate())
}

func TestValidate_Allocations(t *testing.T) {
	cases := []struct {
		name   string
		a, b   float64
		wantOK bool
	}{
		{"exact", 50, 50, true},
		{"uneven split", 90, 10, true},
		{"within tolerance", 49.995, 50.005, true},
		{"under", 45, 50, false},
		{"over", 55, 50, false},
		{"negative", -10, 110, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := validExperiment()
			e.Variants[0].TrafficAllocation = tc.a
			e.Variants[1].TrafficAllocation = tc.b
			err := e.Validate()
			if tc.wantOK {
				assert.NoError(t, err)
			} else {
				var verr *ValidationError
				require.ErrorAs(t, err, &verr)
				assert.Equal(t, "variants", verr.Field)
			}
		})
	}
}

func TestValidate_Variants(t *testing.T) {
	e := validExperiment()
	e.Variants = e.Variants[:1]
	assert.Error(t, e.Validate(), "one variant is not an experiment")

	e = validExperiment()
	e.Variants[1].IsControl = true
	assert.Error(t, e.Validate(), "two controls")

	e = validExperiment()
	e.Variants[0].IsControl = false
	assert.Error(t, e.Validate(), "no control")

	e = validExperiment()
	e.Variants[1].ID = "control"
	assert.Error(t, e.Validate(), "duplicate id")

	e = validExperiment()
	e.Variants[1].ID = ""
	assert.Error(t, e.Validate(), "missing id")
}

func TestValidate_Metrics(t *testing.T) {
	e := validExperiment()
	e.Metrics = nil
	assert.Error(t, e.Validate())

	e = validExperiment()
	e.Metrics[0].Kind = MetricSecondary
	assert.Error(t, e.Validate(), "no primary metric")

	e = validExperiment()
	e.Metrics = append(e.Metrics, Metric{Name: "revenue", Kind: MetricPrimary, Aggregation: AggregationSum})
	assert.Error(t, e.Validate(), "two primary metrics")

	e = validExperiment()
	e.Metrics[0].Criteria = &SuccessCriteria{ConfidenceLevel: 1.5}
	assert.Error(t, e.Validate())
}

func TestValidate_EarlyStopping(t *testing.T) {
	e := validExperiment()
	e.Config.EarlyStopping = &EarlyStopping{Enabled: true, FutilityBoundary: 0.05, EfficacyBoundary: 0.99}
	assert.NoError(t, e.Validate())

	e.Config.EarlyStopping.FutilityBoundary = 0.99
	assert.Error(t, e.Validate(), "futility must stay below efficacy")

	e.Config.EarlyStopping = &EarlyStopping{Enabled: true, FutilityBoundary: 0.05, EfficacyBoundary: 1.2}
	assert.Error(t, e.Validate())

	// Disabled boundaries are not checked.
	e.Config.EarlyStopping = &EarlyStopping{Enabled: false, EfficacyBoundary: 5}
	assert.NoError(t, e.Validate())
}

func TestValidate_Name(t *testing.T) {
	e := validExperiment()
	e.Name = ""
	var verr *ValidationError
	require.ErrorAs(t, e.Validate(), &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestExperimentHelpers(t *testing.T) {
	e := validExperiment()

	control, ok := e.Control()
	require.True(t, ok)
	assert.Equal(t, "control", control.ID)

	v, ok := e.Variant("b")
	require.True(t, ok)
	assert.Equal(t, "B", v.Name)

	_, ok = e.Variant("missing")
	assert.False(t, ok)

	assert.Equal(t, DefaultConfidenceLevel, e.ConfidenceLevel())
	e.Metrics[0].Criteria = &SuccessCriteria{ConfidenceLevel: 0.99}
	assert.Equal(t, 0.99, e.ConfidenceLevel())
}

func TestAcceptsTraffic(t *testing.T) {
	e := validExperiment()
	for status, want := range map[Status]bool{
		StatusDraft:     false,
		StatusRunning:   true,
		StatusPaused:    true,
		StatusCompleted: false,
		StatusArchived:  false,
	} {
		e.Status = status
		assert.Equal(t, want, e.AcceptsTraffic(), "status=%s", status)
	}
}
