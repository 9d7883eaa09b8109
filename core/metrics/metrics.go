package metrics

import (
	"time"

	"github.com/kilianp07/cogendispatch/core/model"
)

// OptimizationEvent describes one completed solve, optimal or not.
type OptimizationEvent struct {
	RequestID       string
	Status          model.SolveStatus
	Period          model.TariffPeriod
	ElecDemandMW    float64
	SteamDemandTPH  float64
	TotalCost       float64
	BaselineCost    float64
	Savings         float64
	GridImportMW    float64
	BoilerTPH       float64
	SulfurTPH       float64
	Units           []model.UnitDispatch
	Recommendations int
	SolveDuration   time.Duration
	TelemetrySource string
	Time            time.Time
}

// MetricsSink records optimization runs.
type MetricsSink interface {
	RecordOptimization(ev OptimizationEvent) error
}

// Rejection kinds.
const (
	RejectInvalidRequest    = "invalid_request"
	RejectInvalidConstraint = "invalid_constraint"
	RejectTimeout           = "timeout"
)

// RejectionEvent is a request refused before a solution was produced.
type RejectionEvent struct {
	RequestID string
	Kind      string
	Reason    string
	Time      time.Time
}

// RejectionRecorder is implemented by sinks that count rejected requests.
type RejectionRecorder interface {
	RecordRejection(ev RejectionEvent) error
}

// TelemetryEvent is the plant reading used by a solve.
type TelemetryEvent struct {
	SulfurFlowTPH  float64
	SulfurSteamTPH float64
	MPPressureBar  *float64
	Source         string
	Time           time.Time
}

// TelemetryRecorder is implemented by sinks that track plant readings.
type TelemetryRecorder interface {
	RecordTelemetry(ev TelemetryEvent) error
}

// NopSink discards everything.
type NopSink struct{}

func (NopSink) RecordOptimization(OptimizationEvent) error { return nil }
func (NopSink) RecordRejection(RejectionEvent) error       { return nil }
func (NopSink) RecordTelemetry(TelemetryEvent) error       { return nil }

// MultiSink fans events out to several sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink combines sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordOptimization forwards to every sink and returns the first error.
// Every sink is called even when an earlier one fails.
func (m *MultiSink) RecordOptimization(ev OptimizationEvent) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordOptimization(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RecordRejection forwards to sinks implementing RejectionRecorder.
func (m *MultiSink) RecordRejection(ev RejectionEvent) error {
	var first error
	for _, s := range m.Sinks {
		if rec, ok := s.(RejectionRecorder); ok {
			if err := rec.RecordRejection(ev); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// RecordTelemetry forwards to sinks implementing TelemetryRecorder.
func (m *MultiSink) RecordTelemetry(ev TelemetryEvent) error {
	var first error
	for _, s := range m.Sinks {
		if rec, ok := s.(TelemetryRecorder); ok {
			if err := rec.RecordTelemetry(ev); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}

// Close closes every sink that holds resources and returns the first error.
func (m *MultiSink) Close() error {
	var first error
	for _, s := range m.Sinks {
		switch c := s.(type) {
		case interface{ Close() error }:
			if err := c.Close(); err != nil && first == nil {
				first = err
			}
		case interface{ Close() }:
			c.Close()
		}
	}
	return first
}
