package dispatch

import (
	"math"

	"github.com/kilianp07/cogendispatch/core/model"
)

// Baseline estimates the cost of the fixed reference policy for the same
// problem: every available unit at BaselineLoad of its nominal admission
// (capped by its constrained maximum), extraction at BaselineExtraction of
// that admission, grid and boiler covering what remains. It never fails;
// WithinLimits reports whether the policy respects the site caps.
func (d *LPDispatcher) Baseline(p Problem) model.BaselineSolution {
	envs := d.envelopes(p.Constraints)
	req := d.requirements(p)

	b := model.BaselineSolution{
		Units:          make([]model.UnitDispatch, len(envs)),
		SulfurTPH:      req.sulfur,
		GTALoadPercent: d.cfg.BaselineLoad * 100,
		WithinLimits:   true,
	}
	var power, extraction, admission float64
	for i, e := range envs {
		u := model.UnitDispatch{UnitID: e.unit.ID, Status: e.status}
		if e.running() {
			u.AdmissionTPH = math.Min(e.unit.Admission.Max*d.cfg.BaselineLoad, e.maxAdm)
			u.ExtractionTPH = math.Min(u.AdmissionTPH*d.cfg.BaselineExtraction, e.maxExtr)
			u.PowerMW = math.Max(e.unit.PowerAt(u.AdmissionTPH, u.ExtractionTPH), 0)
			if !e.unit.Power.Contains(u.PowerMW, 0) {
				b.WithinLimits = false
			}
		}
		power += u.PowerMW
		extraction += u.ExtractionTPH
		admission += u.AdmissionTPH
		b.Units[i] = u
	}
	b.GridImportMW = math.Max(req.power-power, 0)
	b.BoilerTPH = math.Max(req.steam-extraction-req.sulfur, 0)

	if b.GridImportMW > req.grid ||
		b.BoilerTPH > d.limits.MaxBoilerTPH ||
		power+b.GridImportMW > d.limits.MaxTotalPowerMW ||
		extraction+b.BoilerTPH+req.sulfur > d.limits.MaxTotalSteamTPH {
		b.WithinLimits = false
	}
	b.Cost = d.cost.Breakdown(p.Tariff, b.GridImportMW, b.BoilerTPH, b.SulfurTPH, admission)
	b.TotalCost = b.Cost.Total()
	return b
}
