package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampler_Deterministic(t *testing.T) {
	a := NewSampler(42)
	b := NewSampler(42)

	pa := a.ProbabilityOfImprovement(50, 1000, 75, 1000, 5000)
	pb := b.ProbabilityOfImprovement(50, 1000, 75, 1000, 5000)
	assert.Equal(t, pa, pb, "same seed must produce the same estimate")
}

func TestSampler_Normal(t *testing.T) {
	s := NewSampler(1)
	n := 50000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		x := s.Normal()
		sum += x
		sumSq += x * x
	}
	mean := sum / float64(n)
	variance := sumSq/float64(n) - mean*mean

	assert.InDelta(t, 0, mean, 0.02)
	assert.InDelta(t, 1, variance, 0.03)
}

func TestSampler_Gamma(t *testing.T) {
	s := NewSampler(7)
	for _, shape := range []float64{0.5, 1, 2.5, 9} {
		n := 20000
		var sum float64
		for i := 0; i < n; i++ {
			x := s.Gamma(shape)
			require.False(t, math.IsNaN(x))
			require.GreaterOrEqual(t, x, 0.0)
			sum += x
		}
		// Gamma(shape, 1) has mean == shape.
		assert.InDelta(t, shape, sum/float64(n), shape*0.05, "shape=%v", shape)
	}
}

func TestSampler_Beta(t *testing.T) {
	s := NewSampler(3)
	n := 20000
	var sum float64
	for i := 0; i < n; i++ {
		x := s.Beta(51, 951)
		require.Greater(t, x, 0.0)
		require.Less(t, x, 1.0)
		sum += x
	}
	// Beta(51, 951) has mean 51/1002.
	assert.InDelta(t, 51.0/1002.0, sum/float64(n), 0.002)
}

func TestProbabilityOfImprovement_ClearSeparation(t *testing.T) {
	s := NewSampler(11)
	p := s.ProbabilityOfImprovement(50, 1000, 150, 1000, DefaultDraws)
	assert.Greater(t, p, 0.999)
}

func TestProbabilityOfImprovement_NoSeparation(t *testing.T) {
	s := NewSampler(11)
	p := s.ProbabilityOfImprovement(50, 1000, 50, 1000, DefaultDraws)
	assert.InDelta(t, 0.5, p, 0.05)
}

func TestProbabilityOfImprovement_ModestLift(t *testing.T) {
	// The worked z-test example has p ~0.021 two-tailed, so the posterior
	// probability of improvement should be high but not certain.
	s := NewSampler(11)
	p := s.ProbabilityOfImprovement(50, 1000, 75, 1000, DefaultDraws)
	assert.Greater(t, p, 0.95)
	assert.Less(t, p, 1.0)
}

func TestProbabilityOfImprovement_EmptyVariant(t *testing.T) {
	s := NewSampler(11)
	assert.Equal(t, 0.5, s.ProbabilityOfImprovement(0, 0, 75, 1000, 100))
}
