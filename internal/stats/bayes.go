package stats

import (
	"math"
	"math/rand"
)

// DefaultDraws is the Monte Carlo sample count for Bayesian comparison.
const DefaultDraws = 10000

// Sampler draws from the distributions used by the Bayesian path. It wraps
// a seeded random source so tests can assert exact probabilities.
type Sampler struct {
	rng *rand.Rand
}

// NewSampler returns a Sampler seeded with the given value.
func NewSampler(seed int64) *Sampler {
	return &Sampler{rng: rand.New(rand.NewSource(seed))}
}

// Normal draws a standard normal variate via the Box-Muller transform.
func (s *Sampler) Normal() float64 {
	u1 := s.rng.Float64()
	for u1 == 0 {
		u1 = s.rng.Float64()
	}
	u2 := s.rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// Gamma draws from Gamma(shape, 1) using the Marsaglia-Tsang method.
func (s *Sampler) Gamma(shape float64) float64 {
	if shape < 1 {
		// Boost: Gamma(a) = Gamma(a+1) * U^(1/a)
		u := s.rng.Float64()
		for u == 0 {
			u = s.rng.Float64()
		}
		return s.Gamma(shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9*d)
	for {
		x := s.Normal()
		v := 1 + c*x
		if v <= 0 {
			continue
		}
		v = v * v * v
		u := s.rng.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// Beta draws from Beta(a, b) via two gamma variates.
func (s *Sampler) Beta(a, b float64) float64 {
	ga := s.Gamma(a)
	gb := s.Gamma(b)
	if ga+gb == 0 {
		return 0.5
	}
	return ga / (ga + gb)
}

// ProbabilityOfImprovement models each variant's conversion rate as
// Beta(conversions+1, failures+1) and estimates P(treatment > control)
// with draws Monte Carlo samples.
func (s *Sampler) ProbabilityOfImprovement(controlConv, controlN, treatmentConv, treatmentN, draws int) float64 {
	if draws <= 0 {
		draws = DefaultDraws
	}
	if controlN == 0 || treatmentN == 0 {
		return 0.5
	}

	ac := float64(controlConv) + 1
	bc := float64(controlN-controlConv) + 1
	at := float64(treatmentConv) + 1
	bt := float64(treatmentN-treatmentConv) + 1

	wins := 0
	for i := 0; i < draws; i++ {
		if s.Beta(at, bt) > s.Beta(ac, bc) {
			wins++
		}
	}
	return float64(wins) / float64(draws)
}
