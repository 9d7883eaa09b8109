package kpi

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/cogendispatch/core/metrics"
	"github.com/kilianp07/cogendispatch/core/model"
)

func TestSQLiteStoreAggregatesByDay(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "kpi.db"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	d1 := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	d2 := d1.Add(24 * time.Hour)
	evs := []coremetrics.OptimizationEvent{
		{Status: model.StatusOptimal, TotalCost: 100, BaselineCost: 150, Savings: 50, Time: d1},
		{Status: model.StatusOptimal, TotalCost: 200, BaselineCost: 260, Savings: 60, Time: d1.Add(5 * time.Hour)},
		{Status: model.StatusInfeasible, TotalCost: 999, Time: d1.Add(6 * time.Hour)},
		{Status: model.StatusOptimal, TotalCost: 10, BaselineCost: 10, Time: d2},
	}
	for _, ev := range evs {
		require.NoError(t, s.RecordOptimization(ev))
	}

	days, err := s.Query(d1, d2)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, Day(d1), days[0].Date)
	assert.Equal(t, 3, days[0].Runs)
	assert.Equal(t, 2, days[0].Optimal)
	assert.InDelta(t, 300, days[0].TotalCost, 1e-9)
	assert.InDelta(t, 110, days[0].Savings, 1e-9)
	assert.Equal(t, 1, days[1].Runs)

	only, err := s.Query(d2, d2)
	require.NoError(t, err)
	assert.Len(t, only, 1)
}

func TestDay(t *testing.T) {
	loc := time.FixedZone("UTC+1", 3600)
	got := Day(time.Date(2025, 3, 2, 0, 30, 0, 0, loc))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), got)
}
