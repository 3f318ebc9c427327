package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_FanOut(t *testing.T) {
	bus := NewBus()

	var first, second []Event
	bus.Subscribe(func(e Event) { first = append(first, e) })
	bus.Subscribe(func(e Event) { second = append(second, e) })

	bus.Emit(Event{Name: ExperimentStarted, ExperimentID: "exp-1"})

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.Equal(t, ExperimentStarted, first[0].Name)
	assert.False(t, first[0].At.IsZero(), "emit stamps the event time")
}

func TestBus_NilSafe(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() {
		bus.Emit(Event{Name: ConversionTracked})
	})
}

func TestBus_NoHandlers(t *testing.T) {
	assert.NotPanics(t, func() {
		NewBus().Emit(Event{Name: ExperimentStopped})
	})
}
