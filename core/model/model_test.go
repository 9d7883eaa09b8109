package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeneratorUnitPowerAt(t *testing.T) {
	u := GeneratorUnit{ID: 1, Coef: Coefficients{A: 0.25, B: -0.2, Intercept: 1}}
	assert.InDelta(t, 0.25*100-0.2*40+1, u.PowerAt(100, 40), 1e-12)
}

func TestRangeContains(t *testing.T) {
	r := Range{Min: 10, Max: 37}
	assert.True(t, r.Contains(10, 0))
	assert.True(t, r.Contains(37.0000001, 1e-6))
	assert.False(t, r.Contains(9.9, 1e-6))
}

func TestParseTariffPeriod(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want TariffPeriod
	}{
		{"peak", PeriodPeak},
		{"Standard", PeriodStandard},
		{" OFF-PEAK ", PeriodOffPeak},
	} {
		got, err := ParseTariffPeriod(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, got.String(), mustParse(t, got.String()).String())
	}
	_, err := ParseTariffPeriod("night")
	assert.Error(t, err)
}

func mustParse(t *testing.T, s string) TariffPeriod {
	t.Helper()
	p, err := ParseTariffPeriod(s)
	require.NoError(t, err)
	return p
}

func TestDispatchSolutionTotals(t *testing.T) {
	s := DispatchSolution{
		Units: []UnitDispatch{
			{UnitID: 1, AdmissionTPH: 100, ExtractionTPH: 40, PowerMW: 20},
			{UnitID: 2, AdmissionTPH: 80, ExtractionTPH: 30, PowerMW: 15},
		},
		GridImportMW: 5,
		BoilerTPH:    10,
		SulfurTPH:    50,
	}
	assert.InDelta(t, 35, s.GeneratedPowerMW(), 1e-12)
	assert.InDelta(t, 40, s.SuppliedPowerMW(), 1e-12)
	assert.InDelta(t, 130, s.SuppliedSteamTPH(), 1e-12)
	c := CostBreakdown{Grid: 1, Boiler: 2, Sulfur: 3, GTAFuel: 4}
	assert.Equal(t, 10.0, c.Total())
}

func TestReportJSONUsesNames(t *testing.T) {
	r := DispatchReport{
		Status:       StatusInfeasible,
		TariffPeriod: PeriodPeak,
		Units:        []UnitDispatch{{UnitID: 2, Status: UnitMaintenance}},
		Recommendations: []Recommendation{
			{Title: "x", Priority: PriorityHigh, ImpactValue: 12},
		},
	}
	data, err := json.Marshal(r)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "Infeasible", out["status"])
	assert.Equal(t, "peak", out["tariff_period"])
	units := out["units"].([]any)
	assert.Equal(t, "MAINTENANCE", units[0].(map[string]any)["status"])
	rec := out["recommendations"].([]any)[0].(map[string]any)
	assert.Equal(t, "high", rec["priority"])
	assert.NotContains(t, rec, "ImpactValue")
	assert.NotContains(t, rec, "safety_check")
	assert.NotContains(t, out["telemetry"], "mp_pressure")
}

func TestReportJSONRoundTripKeepsEnums(t *testing.T) {
	in := DispatchReport{
		Status:          StatusOptimal,
		TariffPeriod:    PeriodOffPeak,
		Units:           []UnitDispatch{{UnitID: 3, Status: UnitOff}},
		Recommendations: []Recommendation{{Title: "x", Priority: PriorityMedium}},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)
	var out DispatchReport
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, StatusOptimal, out.Status)
	assert.Equal(t, PeriodOffPeak, out.TariffPeriod)
	assert.Equal(t, UnitOff, out.Units[0].Status)
	assert.Equal(t, PriorityMedium, out.Recommendations[0].Priority)

	var s SolveStatus
	assert.Error(t, s.UnmarshalText([]byte("Feasible")))
}
