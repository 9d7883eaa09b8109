package metrics

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogendispatch/core/factory"
	coremetrics "github.com/kilianp07/cogendispatch/core/metrics"
	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/infra/kpi"
)

func TestKPISinkFromConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "daily.db")
	s, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{{Type: "kpi", Conf: map[string]any{"path": path}}})
	require.NoError(t, err)
	store, ok := s.(*kpi.SQLiteStore)
	require.True(t, ok)
	defer store.Close()

	now := time.Now()
	require.NoError(t, s.RecordOptimization(coremetrics.OptimizationEvent{Status: model.StatusOptimal, Savings: 12, Time: now}))
	days, err := store.Query(now, now)
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, 12.0, days[0].Savings)
}

func TestSinkConfErrors(t *testing.T) {
	for _, cfg := range []factory.ModuleConfig{
		{Type: "influx", Conf: map[string]any{"url": "http://localhost:8086"}},
		{Type: "influx", Conf: map[string]any{"url": "http://localhost:8086", "bucket": "b", "tokn": "x"}},
		{Type: "kpi", Conf: map[string]any{"file": "kpi.db"}},
		{Type: "prometheus", Conf: map[string]any{"port": 9100}},
	} {
		_, err := coremetrics.NewMetricsSink([]factory.ModuleConfig{cfg})
		assert.Error(t, err, "%+v", cfg)
	}
}
