package dispatch

import (
	"math"

	"github.com/kilianp07/cogendispatch/core/constraints"
	"github.com/kilianp07/cogendispatch/core/model"
)

// Problem is one solve input. Demands are raw; margins are applied by the
// solver and the baseline alike.
type Problem struct {
	ElecDemandMW   float64
	SteamDemandTPH float64
	// Tariff is the grid price in DH/kWh for the hour being dispatched.
	Tariff float64
	// SulfurAvailableTPH is the sulfur-recovery steam reported by telemetry,
	// before the constraint ceiling.
	SulfurAvailableTPH float64
	Constraints        constraints.Resolved
	Verbose            bool
}

// unitEnvelope is the operating envelope of one unit after constraints.
type unitEnvelope struct {
	unit    model.GeneratorUnit
	status  model.UnitStatus
	minAdm  float64
	maxAdm  float64
	maxExtr float64
}

func (e unitEnvelope) running() bool { return e.status.Running() }

// maxPower is the largest power reachable without extraction.
func (e unitEnvelope) maxPower() float64 {
	if !e.running() {
		return 0
	}
	best := math.Max(e.unit.PowerAt(e.maxAdm, 0), e.unit.PowerAt(e.minAdm, 0))
	return math.Min(best, e.unit.Power.Max)
}

// maxSteam is the largest extraction allowed.
func (e unitEnvelope) maxSteam() float64 {
	if !e.running() {
		return 0
	}
	return math.Min(e.maxExtr, e.maxAdm)
}

// requirements is the supply needed for a problem.
type requirements struct {
	power  float64
	steam  float64
	sulfur float64
	grid   float64
}

func (d *LPDispatcher) envelopes(r constraints.Resolved) []unitEnvelope {
	units := d.physics.Units()
	out := make([]unitEnvelope, len(units))
	for i, u := range units {
		st := r.UnitStatus(u.ID)
		env := unitEnvelope{unit: u, status: st}
		switch st {
		case model.UnitOff:
		case model.UnitMaintenance:
			env.maxAdm = u.Admission.Max * d.limits.MaintenanceFactor
			env.minAdm = math.Min(u.Admission.Min, env.maxAdm)
			env.maxExtr = u.Extraction.Max
		default:
			env.maxAdm = u.Admission.Max
			env.minAdm = u.Admission.Min
			env.maxExtr = u.Extraction.Max
		}
		out[i] = env
	}
	return out
}

func (d *LPDispatcher) requirements(p Problem) requirements {
	// Margins never push a demand the site can carry above the site caps.
	power := math.Min(p.ElecDemandMW*d.limits.PowerMargin, math.Max(p.ElecDemandMW, d.limits.MaxTotalPowerMW))
	steam := math.Min(p.SteamDemandTPH*d.limits.SteamMargin, math.Max(p.SteamDemandTPH, d.limits.MaxTotalSteamTPH))
	return requirements{
		power:  power,
		steam:  math.Max(steam, p.Constraints.ClientMinSteam()),
		sulfur: math.Min(math.Max(p.Constraints.SulfurCeiling(p.SulfurAvailableTPH), 0), d.limits.MaxTotalSteamTPH),
		grid:   p.Constraints.GridCap(d.limits.MaxGridImportMW),
	}
}

// MaxAdmission returns the admission ceiling of every unit once the
// constraints are applied, keyed by unit id. OFF units map to 0.
func (d *LPDispatcher) MaxAdmission(r constraints.Resolved) map[int]float64 {
	envs := d.envelopes(r)
	out := make(map[int]float64, len(envs))
	for _, e := range envs {
		out[e.unit.ID] = e.maxAdm
	}
	return out
}
