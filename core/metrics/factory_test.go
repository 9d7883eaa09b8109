package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogendispatch/core/factory"
)

var closed int

type countingSink struct{ NopSink }

func (countingSink) Close() error { closed++; return nil }

func init() {
	_ = RegisterMetricsSink("test-counting", func(map[string]any) (MetricsSink, error) {
		return countingSink{}, nil
	})
	_ = RegisterMetricsSink("test-broken", func(map[string]any) (MetricsSink, error) {
		return nil, errors.New("no route to host")
	})
}

func TestNewMetricsSinkShapes(t *testing.T) {
	s, err := NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, s)

	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-counting"}, {Type: "test-broken", Disabled: true}})
	require.NoError(t, err)
	assert.IsType(t, countingSink{}, s)

	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-counting"}, {Type: "test-counting"}})
	require.NoError(t, err)
	m, ok := s.(*MultiSink)
	require.True(t, ok)
	assert.Len(t, m.Sinks, 2)
}

func TestNewMetricsSinkClosesOnError(t *testing.T) {
	closed = 0
	_, err := NewMetricsSink([]factory.ModuleConfig{{Type: "test-counting"}, {Type: "test-counting"}, {Type: "test-broken"}})
	require.Error(t, err)
	assert.ErrorContains(t, err, "sinks[2]")
	assert.ErrorContains(t, err, "no route to host")
	assert.Equal(t, 2, closed)

	_, err = NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}})
	assert.ErrorIs(t, err, factory.ErrUnknownType)
	assert.Contains(t, RegisteredSinks(), "test-counting")
}
