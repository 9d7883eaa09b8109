package metrics

import (
	"fmt"

	"github.com/kilianp07/cogendispatch/core/factory"
)

var sinks = factory.NewRegistry[MetricsSink]("metrics sink")

// RegisterMetricsSink makes a sink type available to NewMetricsSink.
func RegisterMetricsSink(name string, f factory.Factory[MetricsSink]) error {
	return sinks.Register(name, f)
}

// RegisteredSinks lists the known sink types.
func RegisteredSinks() []string { return sinks.Names() }

// NewMetricsSink builds the enabled sinks of cfgs. Nothing enabled yields a
// NopSink, one sink is returned as is and several are wrapped in a
// MultiSink. When a sink fails to build, those already built are closed.
func NewMetricsSink(cfgs []factory.ModuleConfig) (MetricsSink, error) {
	var built []MetricsSink
	for i, c := range cfgs {
		if c.Disabled {
			continue
		}
		s, err := sinks.Create(c)
		if err != nil {
			_ = NewMultiSink(built...).Close()
			return nil, fmt.Errorf("sinks[%d]: %w", i, err)
		}
		built = append(built, s)
	}
	switch len(built) {
	case 0:
		return NopSink{}, nil
	case 1:
		return built[0], nil
	default:
		return NewMultiSink(built...), nil
	}
}
