package constraints

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogendispatch/core/model"
)

func TestResolveEmpty(t *testing.T) {
	r, err := Resolve(nil)
	require.NoError(t, err)
	for id := 1; id <= 3; id++ {
		assert.Equal(t, model.UnitOn, r.UnitStatus(id))
	}
	assert.Equal(t, 3, r.AvailableUnits())
	assert.Equal(t, 100.0, r.GridCap(100))
	assert.Equal(t, 50.0, r.SulfurCeiling(50))
	assert.Zero(t, r.ClientMinSteam())
	assert.Nil(t, r.ForcedPeriod)
	assert.Empty(t, r.Applied())
}

func TestResolveFullVocabulary(t *testing.T) {
	raw := map[string]any{
		"gta1_status":      "off",
		"GTA2_STATUS":      "Maintenance",
		"client_min_steam": json.Number("460"),
		"max_grid_import":  "40",
		"sulfur_max":       30,
		"forced_period":    "PEAK",
	}
	r, err := Resolve(raw)
	require.NoError(t, err)

	assert.Equal(t, model.UnitOff, r.UnitStatus(1))
	assert.Equal(t, model.UnitMaintenance, r.UnitStatus(2))
	assert.Equal(t, model.UnitOn, r.UnitStatus(3))
	assert.Equal(t, 2, r.AvailableUnits())
	assert.Equal(t, 460.0, r.ClientMinSteam())
	assert.Equal(t, 40.0, r.GridCap(100))
	assert.Equal(t, 30.0, r.SulfurCeiling(50))
	assert.Equal(t, 10.0, r.SulfurCeiling(10))
	require.NotNil(t, r.ForcedPeriod)
	assert.Equal(t, model.PeriodPeak, *r.ForcedPeriod)

	assert.Equal(t, map[string]any{
		"gta1_status":      "OFF",
		"gta2_status":      "MAINTENANCE",
		"client_min_steam": 460.0,
		"max_grid_import":  40.0,
		"sulfur_max":       30.0,
		"forced_period":    "peak",
	}, r.Applied())
	require.Len(t, r.Items, 6)
	for i := 1; i < len(r.Items); i++ {
		assert.Less(t, r.Items[i-1].Key(), r.Items[i].Key())
	}
}

func TestResolveOverridesOnlyTighten(t *testing.T) {
	r, err := Resolve(map[string]any{"max_grid_import": 500.0})
	require.NoError(t, err)
	assert.Equal(t, 100.0, r.GridCap(100))
}

func TestResolveAlias(t *testing.T) {
	r, err := Resolve(map[string]any{"cap_steam": 460})
	require.NoError(t, err)
	assert.Equal(t, 460.0, r.ClientMinSteam())
	assert.Contains(t, r.Applied(), KeyClientMinSteam)

	_, err = Resolve(map[string]any{"cap_steam": 460, "client_min_steam": 400})
	assert.ErrorIs(t, err, ErrInvalidConstraint)
}

func TestResolveRejects(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]any
		key  string
	}{
		{"unknown key", map[string]any{"gta4_status": "OFF"}, "gta4_status"},
		{"status ON", map[string]any{"gta1_status": "ON"}, "gta1_status"},
		{"status number", map[string]any{"gta1_status": 0}, "gta1_status"},
		{"negative", map[string]any{"max_grid_import": -1}, "max_grid_import"},
		{"nan", map[string]any{"sulfur_max": math.NaN()}, "sulfur_max"},
		{"inf", map[string]any{"sulfur_max": math.Inf(1)}, "sulfur_max"},
		{"bool", map[string]any{"client_min_steam": true}, "client_min_steam"},
		{"nil", map[string]any{"client_min_steam": nil}, "client_min_steam"},
		{"text", map[string]any{"client_min_steam": "lots"}, "client_min_steam"},
		{"period", map[string]any{"forced_period": "night"}, "forced_period"},
		{"period type", map[string]any{"forced_period": 1}, "forced_period"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			r, err := Resolve(tc.raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidConstraint))
			var ice *InvalidConstraintError
			require.True(t, errors.As(err, &ice))
			assert.Equal(t, tc.key, ice.Key)
			assert.Empty(t, r.Items)
		})
	}
}

func TestResolveNoPartialApplication(t *testing.T) {
	r, err := Resolve(map[string]any{"gta1_status": "OFF", "zzz": 1})
	require.Error(t, err)
	assert.Equal(t, model.UnitOn, r.UnitStatus(1))
}

func TestResolveDeterministicError(t *testing.T) {
	raw := map[string]any{"b_unknown": 1, "a_unknown": 2, "c_unknown": 3}
	for i := 0; i < 20; i++ {
		_, err := Resolve(raw)
		var ice *InvalidConstraintError
		require.True(t, errors.As(err, &ice))
		assert.Equal(t, "a_unknown", ice.Key)
	}
}

func TestWithUnitStatus(t *testing.T) {
	var r Resolved
	r2 := r.WithUnitStatus(3, model.UnitOff)
	assert.Equal(t, model.UnitOn, r.UnitStatus(3))
	assert.Equal(t, model.UnitOff, r2.UnitStatus(3))
	assert.Equal(t, model.UnitOff, r.UnitStatus(9))
}
