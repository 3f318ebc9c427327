package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCohenD(t *testing.T) {
	// Equal-variance groups one standard deviation apart.
	d := CohenD(10, 4, 100, 12, 4, 100)
	assert.InDelta(t, 1.0, d, 1e-9)

	// Direction follows treatment minus control.
	d = CohenD(12, 4, 100, 10, 4, 100)
	assert.InDelta(t, -1.0, d, 1e-9)
}

func TestCohenD_SmallSamples(t *testing.T) {
	assert.Zero(t, CohenD(10, 4, 1, 12, 4, 100))
	assert.Zero(t, CohenD(10, 4, 100, 12, 4, 0))
}

func TestCohenD_ZeroVariance(t *testing.T) {
	assert.Zero(t, CohenD(10, 0, 100, 12, 0, 100))
}

func TestConversionEffectSize(t *testing.T) {
	// 5.0% vs 7.5% with n=1000 each: pooled binomial variance gives a
	// small effect of about 0.103.
	d := ConversionEffectSize(0.05, 1000, 0.075, 1000)
	assert.InDelta(t, 0.1034, d, 0.001)
}
