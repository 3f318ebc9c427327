package assign

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitlab/splitlab/internal/experiment"
	"github.com/splitlab/splitlab/internal/store"
)

// staticCatalog serves a fixed experiment without a lifecycle controller.
type staticCatalog struct {
	exp *experiment.Experiment
}

func (c *staticCatalog) ActiveExperiment(_ context.Context, id string) (*experiment.Experiment, error) {
	if c.exp == nil || c.exp.ID != id {
		return nil, experiment.ErrNotFound
	}
	return c.exp, nil
}

func runningExperiment() *experiment.Experiment {
	return &experiment.Experiment{
		ID:     "exp-1",
		Name:   "cta copy",
		Type:   experiment.TypeContent,
		Status: experiment.StatusRunning,
		Variants: []experiment.Variant{
			{ID: "control", Name: "Control", IsControl: true, TrafficAllocation: 50},
			{ID: "b", Name: "B", TrafficAllocation: 50},
		},
		Metrics: []experiment.Metric{
			{Name: "click", Kind: experiment.MetricPrimary, Aggregation: experiment.AggregationConversionRate},
		},
	}
}

func newTestEngine(exp *experiment.Experiment) (*Engine, *store.Memory) {
	st := store.NewMemory()
	return NewEngine(&staticCatalog{exp: exp}, st, nil, nil), st
}

func TestAssign_Deterministic(t *testing.T) {
	ctx := context.Background()
	exp := runningExperiment()
	engine, _ := newTestEngine(exp)

	first, err := engine.Assign(ctx, "exp-1", "user-42", nil)
	require.NoError(t, err)
	require.NotNil(t, first)

	// Repeat calls and a fresh engine over an empty store agree.
	for i := 0; i < 5; i++ {
		again, err := engine.Assign(ctx, "exp-1", "user-42", nil)
		require.NoError(t, err)
		assert.Equal(t, first.ID, again.ID)
	}

	fresh, _ := newTestEngine(exp)
	again, err := fresh.Assign(ctx, "exp-1", "user-42", nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
}

func TestAssign_NotAcceptingTraffic(t *testing.T) {
	ctx := context.Background()
	for _, status := range []experiment.Status{
		experiment.StatusDraft,
		experiment.StatusCompleted,
		experiment.StatusArchived,
	} {
		exp := runningExperiment()
		exp.Status = status
		engine, st := newTestEngine(exp)

		v, err := engine.Assign(ctx, "exp-1", "user-1", nil)
		require.NoError(t, err)
		assert.Nil(t, v, "status=%s", status)

		_, err = st.GetAssignment(ctx, "exp-1", "user-1")
		assert.ErrorIs(t, err, store.ErrNotFound, "no assignment may be stored")
	}
}

func TestAssign_PausedStillAssigns(t *testing.T) {
	exp := runningExperiment()
	exp.Status = experiment.StatusPaused
	engine, _ := newTestEngine(exp)

	v, err := engine.Assign(context.Background(), "exp-1", "user-1", nil)
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestAssign_UnknownExperiment(t *testing.T) {
	engine, _ := newTestEngine(runningExperiment())
	_, err := engine.Assign(context.Background(), "nope", "user-1", nil)
	assert.ErrorIs(t, err, experiment.ErrNotFound)
}

func TestAssign_StoresAttributes(t *testing.T) {
	ctx := context.Background()
	engine, st := newTestEngine(runningExperiment())

	_, err := engine.Assign(ctx, "exp-1", "user-1", map[string]string{"device": "mobile"})
	require.NoError(t, err)

	a, err := st.GetAssignment(ctx, "exp-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, "mobile", a.Attributes["device"])
}

func TestAssign_HonorsStoredAssignmentOverHash(t *testing.T) {
	ctx := context.Background()
	exp := runningExperiment()
	engine, st := newTestEngine(exp)

	// Pre-seed the opposite of what hashing would pick.
	hashed := Bucket(exp.Variants, "exp-1", "user-1")
	other := "control"
	if hashed.ID == "control" {
		other = "b"
	}
	_, _, err := st.GetOrCreateAssignment(ctx, experiment.Assignment{
		ExperimentID: "exp-1", UserID: "user-1", VariantID: other,
	})
	require.NoError(t, err)

	v, err := engine.Assign(ctx, "exp-1", "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, other, v.ID)
}

func TestAssign_ConcurrentFirstContact(t *testing.T) {
	ctx := context.Background()
	engine, st := newTestEngine(runningExperiment())

	const workers = 64
	results := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := engine.Assign(ctx, "exp-1", "user-racy", nil)
			if err != nil {
				errs[i] = err
				return
			}
			results[i] = v.ID
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	for _, id := range results {
		assert.Equal(t, results[0], id, "all callers must see the same variant")
	}
	a, err := st.GetAssignment(ctx, "exp-1", "user-racy")
	require.NoError(t, err)
	assert.Equal(t, results[0], a.VariantID)
}

func TestBucket_AllocationConvergence(t *testing.T) {
	exp := runningExperiment()
	counts := map[string]int{}
	const users = 100000
	for i := 0; i < users; i++ {
		v := Bucket(exp.Variants, "exp-1", fmt.Sprintf("user-%d", i))
		counts[v.ID]++
	}

	for id, n := range counts {
		share := float64(n) / users * 100
		assert.InDelta(t, 50, share, 2, "variant %s share drifted: %.2f%%", id, share)
	}
}

func TestBucket_SkewedAllocation(t *testing.T) {
	variants := []experiment.Variant{
		{ID: "control", IsControl: true, TrafficAllocation: 90},
		{ID: "b", TrafficAllocation: 10},
	}
	counts := map[string]int{}
	const users = 50000
	for i := 0; i < users; i++ {
		v := Bucket(variants, "exp-skew", fmt.Sprintf("user-%d", i))
		counts[v.ID]++
	}

	assert.InDelta(t, 90, float64(counts["control"])/users*100, 2)
	assert.InDelta(t, 10, float64(counts["b"])/users*100, 2)
}

func TestBucket_IndependentAcrossExperiments(t *testing.T) {
	variants := runningExperiment().Variants

	same := 0
	const users = 10000
	for i := 0; i < users; i++ {
		user := fmt.Sprintf("user-%d", i)
		a := Bucket(variants, "exp-a", user)
		b := Bucket(variants, "exp-b", user)
		if a.ID == b.ID {
			same++
		}
	}

	// Different experiment ids must not correlate: overlap should hover
	// around 50%, never 100%.
	assert.InDelta(t, 0.5, float64(same)/users, 0.05)
}
