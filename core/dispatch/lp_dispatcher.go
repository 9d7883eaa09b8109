package dispatch

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/cogendispatch/core/cost"
	"github.com/kilianp07/cogendispatch/core/logger"
	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/core/physics"
)

// Column layout of the decision vector: admission and extraction per unit,
// then grid import and boiler output.
const (
	colGrid   = 2 * physics.UnitCount
	colBoiler = colGrid + 1
	numVars   = colBoiler + 1
)

// varScale expresses decision variables in hundreds of T/h (or MW) so the
// simplex works on values of order one.
const varScale = 100.0

func colAdm(i int) int  { return 2 * i }
func colExtr(i int) int { return 2*i + 1 }

// Outcome is the result of a solve. Solution is set only when Status is
// StatusOptimal.
type Outcome struct {
	Status   model.SolveStatus
	Solution *model.DispatchSolution
	Reason   string
	// Objective is the LP objective in DH/h, sulfur cost included.
	Objective float64
	Rows      int
	Duration  time.Duration
}

// lpSolve points to the simplex routine. It can be overridden in tests to
// simulate solver failures.
var lpSolve = lp.Simplex

// LPDispatcher finds the cost-minimal dispatch of the units, grid and boiler.
// It holds only immutable configuration and is safe for concurrent use.
type LPDispatcher struct {
	physics *physics.Model
	cost    *cost.Model
	limits  Limits
	cfg     Config
	log     logger.Logger
}

// NewLPDispatcher returns a dispatcher. Zero-valued limits and config fields
// take their defaults.
func NewLPDispatcher(pm *physics.Model, cm *cost.Model, limits Limits, cfg Config, log logger.Logger) *LPDispatcher {
	limits.SetDefaults()
	cfg.SetDefaults()
	return &LPDispatcher{physics: pm, cost: cm, limits: limits, cfg: cfg, log: logger.OrNop(log)}
}

// Limits returns the effective site limits.
func (d *LPDispatcher) Limits() Limits { return d.limits }

// Config returns the effective solver settings.
func (d *LPDispatcher) Config() Config { return d.cfg }

// lpData is the problem in inequality form G·x <= h.
type lpData struct {
	c []float64
	g [][]float64
	h []float64
}

func (l *lpData) le(row []float64, h float64) {
	l.g = append(l.g, row)
	l.h = append(l.h, h)
}

func (d *LPDispatcher) buildData(p Problem, envs []unitEnvelope, req requirements) lpData {
	fuel := d.cost.UnitCost(cost.SourceGTAFuel)
	data := lpData{c: make([]float64, numVars)}
	data.c[colGrid] = cost.GridPerMWh(p.Tariff)
	data.c[colBoiler] = d.cost.UnitCost(cost.SourceBoiler)

	elec := make([]float64, numVars)
	site := make([]float64, numVars)
	steam := make([]float64, numVars)
	var intercepts float64
	for i, e := range envs {
		a, s := colAdm(i), colExtr(i)
		data.c[a] = fuel

		row := make([]float64, numVars)
		row[s], row[a] = 1, -1
		data.le(row, 0)

		row = make([]float64, numVars)
		row[a] = 1
		data.le(row, e.maxAdm)

		if e.minAdm > 0 {
			row = make([]float64, numVars)
			row[a] = -1
			data.le(row, -e.minAdm)
		}

		row = make([]float64, numVars)
		row[s] = 1
		data.le(row, e.maxSteam())

		steam[s] = -1
		if !e.running() {
			continue
		}
		coef := e.unit.Coef
		row = make([]float64, numVars)
		row[a], row[s] = coef.A, coef.B
		data.le(row, e.unit.Power.Max-coef.Intercept)

		row = make([]float64, numVars)
		row[a], row[s] = -coef.A, -coef.B
		data.le(row, coef.Intercept-e.unit.Power.Min)

		elec[a], elec[s] = -coef.A, -coef.B
		site[a], site[s] = coef.A, coef.B
		intercepts += coef.Intercept
	}

	elec[colGrid] = -1
	data.le(elec, intercepts-req.power)

	site[colGrid] = 1
	data.le(site, d.limits.MaxTotalPowerMW-intercepts)

	steam[colBoiler] = -1
	data.le(steam, req.sulfur-req.steam)

	total := make([]float64, numVars)
	for i, v := range steam {
		total[i] = -v
	}
	data.le(total, d.limits.MaxTotalSteamTPH-req.sulfur)

	row := make([]float64, numVars)
	row[colGrid] = 1
	data.le(row, req.grid)

	row = make([]float64, numVars)
	row[colBoiler] = 1
	data.le(row, d.limits.MaxBoilerTPH)
	return data
}

// solveLP converts the problem to the standard form [G | I]·[x; s] = h with
// x, s >= 0 and runs the simplex. Rows are scaled to unit infinity norm.
func solveLP(data lpData, tol float64) ([]float64, error) {
	m := len(data.g)
	n := numVars + m
	A := mat.NewDense(m, n, nil)
	b := make([]float64, m)
	for i, row := range data.g {
		norm := 0.0
		for _, v := range row {
			norm = math.Max(norm, math.Abs(v*varScale))
		}
		if norm == 0 {
			norm = 1
		}
		for j, v := range row {
			A.Set(i, j, v*varScale/norm)
		}
		A.Set(i, numVars+i, 1/norm)
		b[i] = data.h[i] / norm
	}
	c := make([]float64, n)
	for j, v := range data.c {
		c[j] = v * varScale
	}
	_, sol, err := lpSolve(c, A, b, tol, nil)
	if err != nil {
		return nil, err
	}
	x := make([]float64, numVars)
	for j := range x {
		x[j] = sol[j] * varScale
	}
	return x, nil
}

// Solve dispatches one problem. It never panics on solver failures: every
// failure is reported through the Outcome status.
func (d *LPDispatcher) Solve(p Problem) Outcome {
	start := time.Now()
	envs := d.envelopes(p.Constraints)
	req := d.requirements(p)

	if reason := d.screen(p, envs, req); reason != "" {
		return observe(stageScreen, Outcome{Status: model.StatusInfeasible, Reason: reason, Duration: time.Since(start)})
	}

	data := d.buildData(p, envs, req)
	x, err := solveLP(data, d.cfg.Tolerance)
	out := Outcome{Rows: len(data.g)}
	if err != nil {
		out.Duration = time.Since(start)
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			out.Status, out.Reason = model.StatusInfeasible, "no dispatch satisfies the demand and constraints"
		case errors.Is(err, lp.ErrUnbounded):
			out.Status, out.Reason = model.StatusUnbounded, "linear program is unbounded"
		default:
			out.Status, out.Reason = model.StatusError, fmt.Sprintf("simplex failed: %v", err)
		}
		d.log.Warnf("dispatch solve: %s (%v)", out.Status, err)
		return observe(stageSimplex, out)
	}

	sol := d.assemble(p, envs, req, x)
	out.Duration = time.Since(start)
	if err := d.verify(sol, envs, req); err != nil {
		out.Status, out.Reason = model.StatusError, fmt.Sprintf("solution failed verification: %v", err)
		d.log.Errorf("dispatch solve: %v", err)
		return observe(stageVerify, out)
	}
	out.Status = model.StatusOptimal
	out.Solution = &sol
	out.Objective = sol.TotalCost
	if p.Verbose {
		d.log.Debugw("dispatch solved", map[string]any{
			"rows":       out.Rows,
			"cols":       numVars + out.Rows,
			"objective":  out.Objective,
			"grid":       sol.GridImportMW,
			"boiler":     sol.BoilerTPH,
			"sulfur":     sol.SulfurTPH,
			"duration_s": out.Duration.Seconds(),
		})
	}
	return observe(stageSimplex, out)
}

// screen rejects problems whose demand exceeds the achievable supply before
// the simplex runs. It returns the reason or "".
func (d *LPDispatcher) screen(p Problem, envs []unitEnvelope, req requirements) string {
	running := 0
	var power, steam float64
	for _, e := range envs {
		if !e.running() {
			continue
		}
		running++
		if e.maxPower() < e.unit.Power.Min {
			return fmt.Sprintf("GTA %d cannot reach its minimum power of %.1f MW", e.unit.ID, e.unit.Power.Min)
		}
		power += e.maxPower()
		steam += e.maxSteam()
	}
	if running == 0 && (p.ElecDemandMW > 0 || p.SteamDemandTPH > 0) {
		return "no generator unit available"
	}
	power = math.Min(power+req.grid, d.limits.MaxTotalPowerMW)
	if req.power > power {
		return fmt.Sprintf("required power %.2f MW exceeds achievable %.2f MW", req.power, power)
	}
	steam = math.Min(steam+d.limits.MaxBoilerTPH+req.sulfur, d.limits.MaxTotalSteamTPH)
	if req.steam > steam {
		return fmt.Sprintf("required steam %.2f T/h exceeds achievable %.2f T/h", req.steam, steam)
	}
	return ""
}

// assemble turns the LP vector into a priced solution. Round-off below zero
// is clamped and units that are OFF report exact zeros.
func (d *LPDispatcher) assemble(p Problem, envs []unitEnvelope, req requirements, x []float64) model.DispatchSolution {
	clamp := func(v float64) float64 {
		if v < 0 {
			return 0
		}
		return v
	}
	sol := model.DispatchSolution{
		Units:        make([]model.UnitDispatch, len(envs)),
		GridImportMW: clamp(x[colGrid]),
		BoilerTPH:    clamp(x[colBoiler]),
		SulfurTPH:    req.sulfur,
	}
	var admission float64
	for i, e := range envs {
		u := model.UnitDispatch{UnitID: e.unit.ID, Status: e.status}
		if e.running() {
			u.AdmissionTPH = clamp(x[colAdm(i)])
			u.ExtractionTPH = math.Min(clamp(x[colExtr(i)]), u.AdmissionTPH)
			u.PowerMW = e.unit.PowerAt(u.AdmissionTPH, u.ExtractionTPH)
		}
		admission += u.AdmissionTPH
		sol.Units[i] = u
	}
	sol.Cost = d.cost.Breakdown(p.Tariff, sol.GridImportMW, sol.BoilerTPH, sol.SulfurTPH, admission)
	sol.TotalCost = sol.Cost.Total()
	return sol
}

// verify checks a solution against every physical and business limit.
func (d *LPDispatcher) verify(sol model.DispatchSolution, envs []unitEnvelope, req requirements) error {
	tol := d.cfg.VerifyTolerance
	for i, e := range envs {
		u := sol.Units[i]
		if u.ExtractionTPH > u.AdmissionTPH+tol {
			return fmt.Errorf("GTA %d extraction %.6f above admission %.6f", u.UnitID, u.ExtractionTPH, u.AdmissionTPH)
		}
		if !e.running() {
			if u.AdmissionTPH != 0 || u.ExtractionTPH != 0 || u.PowerMW != 0 {
				return fmt.Errorf("GTA %d is off but loaded", u.UnitID)
			}
			continue
		}
		if !(model.Range{Min: e.minAdm, Max: e.maxAdm}).Contains(u.AdmissionTPH, tol) {
			return fmt.Errorf("GTA %d admission %.6f outside [%g,%g]", u.UnitID, u.AdmissionTPH, e.minAdm, e.maxAdm)
		}
		if u.ExtractionTPH > e.maxExtr+tol {
			return fmt.Errorf("GTA %d extraction %.6f above %g", u.UnitID, u.ExtractionTPH, e.maxExtr)
		}
		if !e.unit.Power.Contains(u.PowerMW, tol) {
			return fmt.Errorf("GTA %d power %.6f outside [%g,%g]", u.UnitID, u.PowerMW, e.unit.Power.Min, e.unit.Power.Max)
		}
	}
	power, steam := sol.SuppliedPowerMW(), sol.SuppliedSteamTPH()
	switch {
	case power < req.power-tol:
		return fmt.Errorf("power %.6f below required %.6f", power, req.power)
	case steam < req.steam-tol:
		return fmt.Errorf("steam %.6f below required %.6f", steam, req.steam)
	case sol.GridImportMW > req.grid+tol:
		return fmt.Errorf("grid import %.6f above cap %g", sol.GridImportMW, req.grid)
	case sol.BoilerTPH > d.limits.MaxBoilerTPH+tol:
		return fmt.Errorf("boiler %.6f above cap %g", sol.BoilerTPH, d.limits.MaxBoilerTPH)
	case power > d.limits.MaxTotalPowerMW+tol:
		return fmt.Errorf("total power %.6f above site limit %g", power, d.limits.MaxTotalPowerMW)
	case steam > d.limits.MaxTotalSteamTPH+tol:
		return fmt.Errorf("total steam %.6f above site limit %g", steam, d.limits.MaxTotalSteamTPH)
	}
	return nil
}
