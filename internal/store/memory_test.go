package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitlab/splitlab/internal/experiment"
)

func TestMemory_SaveLoadIsolated(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	exp := sampleExperiment("exp-1")
	require.NoError(t, m.SaveExperiment(ctx, exp))

	loaded, err := m.LoadExperiment(ctx, "exp-1")
	require.NoError(t, err)

	// Mutating the loaded copy must not leak back into the store.
	loaded.Variants[0].Name = "tampered"
	again, err := m.LoadExperiment(ctx, "exp-1")
	require.NoError(t, err)
	assert.Equal(t, "Control", again.Variants[0].Name)
}

func TestMemory_ListFiltersByStatus(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	running := sampleExperiment("exp-a")
	running.Status = experiment.StatusRunning
	require.NoError(t, m.SaveExperiment(ctx, running))

	draft := sampleExperiment("exp-b")
	require.NoError(t, m.SaveExperiment(ctx, draft))

	got, err := m.ListExperiments(ctx, experiment.StatusRunning)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "exp-a", got[0].ID)

	all, err := m.ListExperiments(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestMemory_DeleteCascades(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveExperiment(ctx, sampleExperiment("exp-1")))
	_, _, err := m.GetOrCreateAssignment(ctx, experiment.Assignment{
		ExperimentID: "exp-1", UserID: "u1", VariantID: "control",
	})
	require.NoError(t, err)

	require.NoError(t, m.DeleteExperiment(ctx, "exp-1"))
	_, err = m.GetAssignment(ctx, "exp-1", "u1")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.DeleteExperiment(ctx, "exp-1"), ErrNotFound)
}

func TestMemory_GetOrCreateAssignment(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	_, created, err := m.GetOrCreateAssignment(ctx, experiment.Assignment{
		ExperimentID: "exp-1", UserID: "u1", VariantID: "control",
	})
	require.NoError(t, err)
	assert.True(t, created)

	stored, created, err := m.GetOrCreateAssignment(ctx, experiment.Assignment{
		ExperimentID: "exp-1", UserID: "u1", VariantID: "b",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "control", stored.VariantID)
}

func TestMemory_SegmentAggregates(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	seed := func(user, device string, convert bool) {
		_, _, err := m.GetOrCreateAssignment(ctx, experiment.Assignment{
			ExperimentID: "exp-1",
			UserID:       user,
			VariantID:    "control",
			Attributes:   map[string]string{"device": device},
		})
		require.NoError(t, err)
		if convert {
			require.NoError(t, m.AppendConversion(ctx, experiment.Conversion{
				ExperimentID: "exp-1",
				VariantID:    "control",
				UserID:       user,
				Attributes:   map[string]string{"device": device},
			}))
		}
	}
	seed("u1", "mobile", true)
	seed("u2", "mobile", false)
	seed("u3", "desktop", true)

	values, err := m.SegmentValues(ctx, "exp-1", "device")
	require.NoError(t, err)
	assert.Equal(t, []string{"desktop", "mobile"}, values)

	mobile, err := m.QueryVariantAggregates(ctx, "exp-1", "control", &experiment.SegmentFilter{
		Dimension: "device", Value: "mobile",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, mobile.SampleSize)
	assert.Equal(t, 1, mobile.Conversions)
}
