package dispatch

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogendispatch/core/model"
)

func TestMetricsRegistration(t *testing.T) {
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	reg := prometheus.NewRegistry()
	MustRegisterMetrics(reg)
	solvesTotal.WithLabelValues("Optimal", stageSimplex).Inc()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, n := range []string{"cogen_lp_solves_total", "cogen_lp_solve_seconds", "cogen_lp_rows"} {
		assert.True(t, names[n], n)
	}
}

func TestSolveRecordsStage(t *testing.T) {
	ResetMetrics(nil)
	t.Cleanup(func() { ResetMetrics(nil) })
	d := newDispatcher()

	out := d.Solve(problem(t, 60, 400, 14, nil))
	require.Equal(t, model.StatusOptimal, out.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(solvesTotal.WithLabelValues("Optimal", stageSimplex)))
	assert.Equal(t, float64(out.Rows), testutil.ToFloat64(lpRows))

	out = d.Solve(problem(t, 140, 400, 14, nil))
	require.Equal(t, model.StatusInfeasible, out.Status)
	assert.Equal(t, 1.0, testutil.ToFloat64(solvesTotal.WithLabelValues("Infeasible", stageScreen)))
}
