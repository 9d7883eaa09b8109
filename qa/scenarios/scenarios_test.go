package scenarios

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogendispatch/app"
	"github.com/kilianp07/cogendispatch/config"
	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/core/optimizer"
)

func TestCatalog(t *testing.T) {
	list, err := Catalog()
	require.NoError(t, err)
	require.Len(t, list, 9)

	sc, ok := Find(list, "gta 2 maintenance")
	require.True(t, ok)
	req := sc.Request.ToModel()
	assert.Equal(t, 60.0, req.ElecDemandMW)
	require.NotNil(t, req.Hour)
	assert.Equal(t, 14, *req.Hour)
	assert.Equal(t, "MAINTENANCE", req.Constraints["gta2_status"])
	assert.Equal(t, 95.0, sc.Expected.MaxAdmission[2])

	_, ok = Find(list, "unknown")
	assert.False(t, ok)
}

func TestCatalogRuns(t *testing.T) {
	list, err := Catalog()
	require.NoError(t, err)
	cfg := config.Default()
	opt, err := app.NewOptimizer(&cfg)
	require.NoError(t, err)

	for _, res := range RunAll(context.Background(), opt, list) {
		t.Run(res.Scenario.Name, func(t *testing.T) {
			assert.True(t, res.Passed(), "%v", res.Failures)
		})
	}
}

type fakeOptimizer struct {
	rep *model.DispatchReport
	err error
}

func (f fakeOptimizer) Optimize(context.Context, model.DemandRequest) (*model.DispatchReport, error) {
	return f.rep, f.err
}

func TestRunReportsFailures(t *testing.T) {
	sc := Scenario{Name: "x", Expected: Expected{Status: "Optimal", MaxAdmission: map[int]float64{1: 50}, MinSteam: 500}}
	rep := &model.DispatchReport{
		Status:    model.StatusOptimal,
		Units:     []model.UnitDispatch{{UnitID: 1, AdmissionTPH: 80, ExtractionTPH: 90}},
		BoilerTPH: 100,
	}
	res := Run(context.Background(), fakeOptimizer{rep: rep}, sc)
	assert.False(t, res.Passed())
	assert.Len(t, res.Failures, 3)

	res = Run(context.Background(), fakeOptimizer{err: &optimizer.OutcomeError{Status: model.StatusInfeasible}}, sc)
	assert.Equal(t, model.StatusInfeasible, res.Status)
	assert.Equal(t, []string{"status Infeasible, want Optimal"}, res.Failures)

	res = Run(context.Background(), fakeOptimizer{err: errors.New("boom")}, Scenario{Name: "y"})
	assert.Equal(t, []string{"boom"}, res.Failures)
}

func TestLoadAndParseErrors(t *testing.T) {
	_, err := Load("no-file.yaml")
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenarios:\n  - name: a\n    request: {elec_demand: 10, steam_demand: 20}\n"), 0o644))
	list, err := Load(path)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Nil(t, list[0].Request.ToModel().Hour)

	for _, data := range []string{":", "scenarios:\n  - description: no name\n", "scenarios:\n  - name: a\n    expect: {status: Maybe}\n"} {
		_, err := Parse([]byte(data))
		assert.Error(t, err, data)
	}
}
