// Package traffic estimates available experiment traffic, used when
// validating a start request.
package traffic

import (
	"context"

	"github.com/splitlab/splitlab/internal/experiment"
)

// Estimator predicts daily eligible traffic for an experiment type.
type Estimator interface {
	EstimateDailyTraffic(ctx context.Context, t experiment.Type) (int, error)
}

// Static returns fixed per-type daily estimates. Types without an entry
// fall back to Default.
type Static struct {
	PerType map[experiment.Type]int
	Default int
}

// NewStatic creates a Static estimator with the given fallback.
func NewStatic(fallback int) *Static {
	return &Static{
		PerType: make(map[experiment.Type]int),
		Default: fallback,
	}
}

func (s *Static) EstimateDailyTraffic(ctx context.Context, t experiment.Type) (int, error) {
	if n, ok := s.PerType[t]; ok {
		return n, nil
	}
	return s.Default, nil
}
