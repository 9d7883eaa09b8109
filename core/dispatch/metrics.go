package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Solve stages reported in the stage label.
const (
	stageScreen  = "screen"
	stageSimplex = "simplex"
	stageVerify  = "verify"
)

var (
	solvesTotal   *prometheus.CounterVec
	solveDuration prometheus.Histogram
	lpRows        prometheus.Gauge
)

// newCollectors creates new metric collectors.
func newCollectors() (*prometheus.CounterVec, prometheus.Histogram, prometheus.Gauge) {
	solves := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cogen_lp_solves_total",
			Help: "Dispatch solves by outcome status and the stage that decided it",
		},
		[]string{"status", "stage"},
	)
	dur := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "cogen_lp_solve_seconds",
			Help:    "Time spent building, solving and verifying the dispatch LP",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)
	rows := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "cogen_lp_rows",
			Help: "Constraint rows of the last dispatch LP",
		},
	)
	return solves, dur, rows
}

func init() {
	solvesTotal, solveDuration, lpRows = newCollectors()
	MustRegisterMetrics(nil)
}

// MustRegisterMetrics registers solver metrics on the provided registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func MustRegisterMetrics(reg prometheus.Registerer) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(solvesTotal, solveDuration, lpRows)
}

// ResetMetrics reinitializes metrics collectors for testing purposes and
// registers them on the provided registry if not nil.
func ResetMetrics(reg prometheus.Registerer) {
	solvesTotal, solveDuration, lpRows = newCollectors()
	if reg != nil {
		MustRegisterMetrics(reg)
	}
}

func observe(stage string, out Outcome) Outcome {
	solvesTotal.WithLabelValues(out.Status.String(), stage).Inc()
	solveDuration.Observe(out.Duration.Seconds())
	if out.Rows > 0 {
		lpRows.Set(float64(out.Rows))
	}
	return out
}
