package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogendispatch/core/model"
)

func TestOptimizeBatchKeepsOrderAndErrors(t *testing.T) {
	s := newService(t, newLP())
	reqs := []model.DemandRequest{
		{ElecDemandMW: 60, SteamDemandTPH: 400, Hour: hour(14)},
		{ElecDemandMW: 140, SteamDemandTPH: 400, Hour: hour(14)},
		{ElecDemandMW: -5, SteamDemandTPH: 400},
		{ElecDemandMW: 40, SteamDemandTPH: 250, Hour: hour(2)},
	}
	out, err := s.OptimizeBatch(context.Background(), reqs, 2)
	require.NoError(t, err)
	require.Len(t, out, len(reqs))

	require.NoError(t, out[0].Err)
	assert.Equal(t, 60.0, out[0].Report.Demands.Electricity)
	assert.ErrorIs(t, out[1].Err, ErrInfeasible)
	assert.ErrorIs(t, out[2].Err, ErrInvalidRequest)
	require.NoError(t, out[3].Err)
	assert.Equal(t, model.PeriodOffPeak, out[3].Report.TariffPeriod)
}

func TestOptimizeBatchMatchesSequential(t *testing.T) {
	s := newService(t, newLP())
	var reqs []model.DemandRequest
	for e := 30.0; e <= 90; e += 15 {
		reqs = append(reqs, model.DemandRequest{ElecDemandMW: e, SteamDemandTPH: 350, Hour: hour(12)})
	}
	out, err := s.OptimizeBatch(context.Background(), reqs, 0)
	require.NoError(t, err)
	for i, req := range reqs {
		want, err := s.Optimize(context.Background(), req)
		require.NoError(t, err)
		require.NoError(t, out[i].Err)
		assert.Equal(t, want.TotalCost, out[i].Report.TotalCost)
		assert.Equal(t, want.Units, out[i].Report.Units)
	}
}

func TestOptimizeBatchCancelled(t *testing.T) {
	s := newService(t, newLP())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.OptimizeBatch(ctx, []model.DemandRequest{{ElecDemandMW: 60, SteamDemandTPH: 400}}, 1)
	assert.ErrorIs(t, err, context.Canceled)
}
