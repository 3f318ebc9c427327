package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/splitlab/splitlab/internal/experiment"
)

// Memory is a mutex-guarded in-memory Store for tests and embedded use.
type Memory struct {
	mu          sync.RWMutex
	experiments map[string]*experiment.Experiment
	assignments map[string]map[string]*experiment.Assignment // experimentID -> userID
	conversions map[string][]experiment.Conversion           // experimentID
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		experiments: make(map[string]*experiment.Experiment),
		assignments: make(map[string]map[string]*experiment.Assignment),
		conversions: make(map[string][]experiment.Conversion),
	}
}

func (m *Memory) Close() error { return nil }

func (m *Memory) SaveExperiment(ctx context.Context, e *experiment.Experiment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := e.Clone()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	cp.UpdatedAt = time.Now()
	m.experiments[e.ID] = cp
	return nil
}

func (m *Memory) LoadExperiment(ctx context.Context, id string) (*experiment.Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.experiments[id]
	if !ok {
		return nil, ErrNotFound
	}
	return e.Clone(), nil
}

func (m *Memory) ListExperiments(ctx context.Context, statuses ...experiment.Status) ([]*experiment.Experiment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	wanted := make(map[experiment.Status]bool, len(statuses))
	for _, s := range statuses {
		wanted[s] = true
	}

	var out []*experiment.Experiment
	for _, e := range m.experiments {
		if len(statuses) == 0 || wanted[e.Status] {
			out = append(out, e.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) DeleteExperiment(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.experiments[id]; !ok {
		return ErrNotFound
	}
	delete(m.experiments, id)
	delete(m.assignments, id)
	delete(m.conversions, id)
	return nil
}

func (m *Memory) GetAssignment(ctx context.Context, experimentID, userID string) (*experiment.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.assignments[experimentID][userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *Memory) GetOrCreateAssignment(ctx context.Context, a experiment.Assignment) (*experiment.Assignment, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	byUser, ok := m.assignments[a.ExperimentID]
	if !ok {
		byUser = make(map[string]*experiment.Assignment)
		m.assignments[a.ExperimentID] = byUser
	}
	if existing, ok := byUser[a.UserID]; ok {
		cp := *existing
		return &cp, false, nil
	}

	a.CreatedAt = time.Now()
	stored := a
	byUser[a.UserID] = &stored
	cp := stored
	return &cp, true, nil
}

func (m *Memory) AppendConversion(ctx context.Context, c experiment.Conversion) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.CreatedAt = time.Now()
	m.conversions[c.ExperimentID] = append(m.conversions[c.ExperimentID], c)
	return nil
}

func (m *Memory) QueryVariantAggregates(ctx context.Context, experimentID, variantID string, filter *experiment.SegmentFilter) (experiment.Aggregate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	agg := experiment.Aggregate{VariantID: variantID}
	for _, a := range m.assignments[experimentID] {
		if a.VariantID == variantID && matchesFilter(a.Attributes, filter) {
			agg.SampleSize++
		}
	}

	converted := make(map[string]bool)
	for _, c := range m.conversions[experimentID] {
		if c.VariantID != variantID || !matchesFilter(c.Attributes, filter) {
			continue
		}
		converted[c.UserID] = true
		agg.TotalValue += c.Value
		agg.SumSquares += c.Value * c.Value
	}
	agg.Conversions = len(converted)
	return agg, nil
}

func (m *Memory) SegmentValues(ctx context.Context, experimentID, dimension string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	for _, a := range m.assignments[experimentID] {
		if v, ok := a.Attributes[dimension]; ok {
			seen[v] = true
		}
	}

	values := make([]string, 0, len(seen))
	for v := range seen {
		values = append(values, v)
	}
	sort.Strings(values)
	return values, nil
}

func matchesFilter(attrs map[string]string, filter *experiment.SegmentFilter) bool {
	if filter == nil {
		return true
	}
	return attrs[filter.Dimension] == filter.Value
}
