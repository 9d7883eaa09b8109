package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogendispatch/core/events"
	"github.com/kilianp07/cogendispatch/core/model"
)

func TestBusFanOut(t *testing.T) {
	bus := New()
	a, b := bus.Subscribe(), bus.Subscribe()
	require.Equal(t, 2, bus.Subscribers())

	ev := events.OptimizationFailed{RequestID: "r-1", Status: model.StatusInfeasible, Reason: "demand above capacity"}
	bus.Publish(ev)
	assert.Equal(t, ev, <-a)
	assert.Equal(t, ev, <-b)

	bus.Unsubscribe(a)
	_, open := <-a
	assert.False(t, open)
	assert.Equal(t, 1, bus.Subscribers())
	bus.Unsubscribe(a)
}

func TestBusClose(t *testing.T) {
	bus := New()
	sub := bus.Subscribe()
	bus.Close()
	bus.Close()

	_, open := <-sub
	assert.False(t, open)
	_, open = <-bus.Subscribe()
	assert.False(t, open)
	assert.NotPanics(t, func() {
		bus.Publish(events.OptimizationCompleted{})
		bus.Unsubscribe(sub)
	})
	assert.Zero(t, bus.Subscribers())
}

func TestTypedBusDropsWhenFull(t *testing.T) {
	bus := NewTyped[int](WithBuffer(2), WithBuffer(0))
	sub := bus.Subscribe()
	for i := range 5 {
		bus.Publish(i)
	}
	assert.Equal(t, uint64(3), bus.Dropped())
	assert.Equal(t, 0, <-sub)
	assert.Equal(t, 1, <-sub)
}
