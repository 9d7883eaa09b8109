package scheduler

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogendispatch/core/cost"
	"github.com/kilianp07/cogendispatch/core/dispatch"
	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/core/optimizer"
	"github.com/kilianp07/cogendispatch/core/physics"
	"github.com/kilianp07/cogendispatch/core/recommend"
)

const profileYAML = `name: weekday
constraints:
  gta2_status: MAINTENANCE
hours:
  - {hour: 19, elec_demand: 70, steam_demand: 420}
  - {hour: 3, elec_demand: 40, steam_demand: 300}
  - {hour: 14, elec_demand: 130, steam_demand: 400}
  - {hour: 10, elec_demand: 55, steam_demand: 380, constraints: {gta2_status: "OFF", gta3_status: MAINTENANCE}}
`

func newService(t *testing.T) *optimizer.Service {
	t.Helper()
	pm, cm := physics.Default(), cost.Default()
	s, err := optimizer.NewService(dispatch.NewLPDispatcher(pm, cm, dispatch.Limits{}, dispatch.Config{}, nil), pm, cm, recommend.New(recommend.Config{}), nil)
	require.NoError(t, err)
	return s
}

func TestDecodeProfile(t *testing.T) {
	p, err := DecodeProfile(strings.NewReader(profileYAML), "yaml")
	require.NoError(t, err)
	assert.Equal(t, "weekday", p.Name)

	reqs := p.Requests()
	require.Len(t, reqs, 4)
	hours := []int{*reqs[0].Hour, *reqs[1].Hour, *reqs[2].Hour, *reqs[3].Hour}
	assert.Equal(t, []int{3, 10, 14, 19}, hours)
	assert.Equal(t, "MAINTENANCE", reqs[0].Constraints["gta2_status"])
	assert.Equal(t, "OFF", reqs[1].Constraints["gta2_status"])
	assert.Equal(t, "MAINTENANCE", reqs[1].Constraints["gta3_status"])
	assert.NotContains(t, p.Constraints, "gta3_status")

	_, err = DecodeProfile(strings.NewReader(`{"hours":[{"hour":5,"elec_demand":10,"steam_demand":10}]}`), "json")
	require.NoError(t, err)
}

func TestDecodeProfileErrors(t *testing.T) {
	tests := map[string]struct{ data, format string }{
		"format":    {"hours: []", "toml"},
		"empty":     {"name: x", "yaml"},
		"range":     {"hours: [{hour: 24}]", "yaml"},
		"duplicate": {"hours: [{hour: 2}, {hour: 2}]", "yaml"},
		"syntax":    {"{", "json"},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeProfile(strings.NewReader(tc.data), tc.format)
			assert.Error(t, err)
		})
	}
	_, err := LoadProfile("missing.yaml")
	assert.Error(t, err)
}

func TestBuildPlan(t *testing.T) {
	p, err := DecodeProfile(strings.NewReader(profileYAML), "yaml")
	require.NoError(t, err)

	plan, err := Build(context.Background(), newService(t), p, 2)
	require.NoError(t, err)
	require.Len(t, plan.Entries, 4)
	assert.Equal(t, 1, plan.Unsolved)

	var cost, base float64
	for _, e := range plan.Entries {
		if e.Hour == 14 {
			assert.Equal(t, model.StatusInfeasible, e.Status)
			assert.Nil(t, e.Report)
			assert.NotEmpty(t, e.Error)
			continue
		}
		require.NotNil(t, e.Report, "hour %d: %s", e.Hour, e.Error)
		assert.Equal(t, model.StatusOptimal, e.Status)
		cost += e.Report.TotalCost
		base += e.Report.BaselineCost
	}
	assert.InDelta(t, cost, plan.TotalCost, 1e-6)
	assert.InDelta(t, base, plan.BaselineCost, 1e-6)
	assert.Len(t, plan.Reports(), 3)
	assert.Equal(t, model.PeriodPeak, plan.Entries[3].Report.TariffPeriod)
}

type failingBatcher struct{}

func (failingBatcher) OptimizeBatch(ctx context.Context, _ []model.DemandRequest, _ int) ([]optimizer.BatchResult, error) {
	return nil, context.Canceled
}

func TestBuildPropagatesBatchError(t *testing.T) {
	_, err := Build(context.Background(), failingBatcher{}, Profile{Hours: []Slot{{Hour: 1}}}, 1)
	assert.ErrorIs(t, err, context.Canceled)

	_, err = Build(context.Background(), failingBatcher{}, Profile{}, 1)
	assert.Error(t, err)
}
