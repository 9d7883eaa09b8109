package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/cogendispatch/core/model"
)

func TestBaselinePolicy(t *testing.T) {
	d := newDispatcher()
	p := problem(t, 60, 400, 14, nil)
	b := d.Baseline(p)

	assert.Equal(t, 50.0, b.GTALoadPercent)
	var power float64
	for _, u := range b.Units {
		assert.InDelta(t, 95, u.AdmissionTPH, 1e-9)
		assert.InDelta(t, 28.5, u.ExtractionTPH, 1e-9)
		power += u.PowerMW
	}
	assert.InDelta(t, 60*1.03-power, b.GridImportMW, 1e-9)
	assert.InDelta(t, 400*1.05-3*28.5-50, b.BoilerTPH, 1e-9)
	// 284.5 T/h of boiler steam exceeds the 200 T/h boiler.
	assert.False(t, b.WithinLimits)
	assert.InDelta(t, b.Cost.Total(), b.TotalCost, 1e-9)
}

func TestBaselineWithinLimits(t *testing.T) {
	b := newDispatcher().Baseline(problem(t, 60, 250, 14, nil))
	assert.True(t, b.WithinLimits)
	assert.InDelta(t, 250*1.05-3*28.5-50, b.BoilerTPH, 1e-9)
}

func TestBaselineRespectsUnitStatus(t *testing.T) {
	d := newDispatcher()
	b := d.Baseline(problem(t, 40, 200, 3, map[string]any{"gta1_status": "OFF", "gta2_status": "maintenance"}))
	assert.Equal(t, model.UnitOff, b.Units[0].Status)
	assert.Zero(t, b.Units[0].AdmissionTPH)
	assert.Zero(t, b.Units[0].PowerMW)
	assert.LessOrEqual(t, b.Units[1].AdmissionTPH, 95.0)
	assert.InDelta(t, 95, b.Units[2].AdmissionTPH, 1e-9)
}

func TestBaselineNoSurplusImport(t *testing.T) {
	b := newDispatcher().Baseline(problem(t, 10, 50, 3, nil))
	assert.Zero(t, b.GridImportMW)
	assert.Zero(t, b.BoilerTPH)
}
