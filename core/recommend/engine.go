// Package recommend derives ranked operator instructions from a solved
// dispatch and its baseline.
package recommend

import (
	"fmt"
	"math"
	"sort"

	"github.com/kilianp07/cogendispatch/core/model"
)

const (
	iconSavings = "💰"
	iconGear    = "⚙️"
	iconStop    = "🛑"
	iconWarn    = "⚠️"
	iconPower   = "⚡"
	iconOK      = "✅"
	iconAlert   = "🔴"
	iconRecycle = "♻️"
	iconGreen   = "🟢"
)

// Input is everything the rules look at. It is never modified.
type Input struct {
	Solution model.DispatchSolution
	Baseline model.BaselineSolution
	Period   model.TariffPeriod
	// Tariff is the grid price in DH/kWh.
	Tariff         float64
	SteamDemandTPH float64
	// MaxAdmission is the effective admission ceiling per unit id.
	MaxAdmission map[int]float64
	GridCapMW    float64
	BoilerCost   float64
	// MPPressureBar is the measured header pressure, nil when unknown.
	MPPressureBar *float64
}

// Engine applies the rule set.
type Engine struct {
	cfg Config
}

// New returns an Engine. Zero-valued thresholds take their defaults.
func New(cfg Config) *Engine {
	cfg.SetDefaults()
	return &Engine{cfg: cfg}
}

// Recommend returns the recommendations sorted by priority, then by absolute
// financial impact, both descending. Ties keep rule order.
func (e *Engine) Recommend(in Input) []model.Recommendation {
	var recs []model.Recommendation
	add := func(r model.Recommendation) { recs = append(recs, r) }

	sol, base := in.Solution, in.Baseline
	savings := base.TotalCost - sol.TotalCost
	if savings > 0 {
		add(model.Recommendation{
			Icon:        iconSavings,
			Title:       "Optimization Savings Identified",
			Instruction: fmt.Sprintf("Total potential savings: %.0f DH/h (%.0f DH/year) vs baseline operation.", savings, savings*e.cfg.HoursPerYear),
			Impact:      fmt.Sprintf("+%.0f DH/h", savings),
			ImpactValue: savings,
			Priority:    model.PriorityHigh,
		})
	}

	running := 0
	for _, u := range sol.Units {
		if !u.Status.Running() {
			continue
		}
		running++
		ceiling := in.MaxAdmission[u.UnitID]
		if ceiling > 0 && u.AdmissionTPH >= e.cfg.CapacityRatio*ceiling {
			add(model.Recommendation{
				Icon:        iconGear,
				Title:       fmt.Sprintf("Push GTA %d to Capacity", u.UnitID),
				Instruction: fmt.Sprintf("Increase admission valve setpoint to %.1f T/h. Ramp slowly over 5 minutes to avoid thermal shock.", u.AdmissionTPH),
				SafetyCheck: "Monitor condenser vacuum: high flow may degrade vacuum. Keep sea water pumps at full capacity.",
				Impact:      fmt.Sprintf("%.1f MW generation", u.PowerMW),
				Priority:    model.PriorityHigh,
			})
			continue
		}
		add(model.Recommendation{
			Icon:        iconGear,
			Title:       fmt.Sprintf("Adjust GTA %d Setpoint", u.UnitID),
			Instruction: fmt.Sprintf("Set admission to %.1f T/h and extraction to %.1f T/h. Monitor ramp rate.", u.AdmissionTPH, u.ExtractionTPH),
			Impact:      fmt.Sprintf("%.1f MW, %.1f T/h steam", u.PowerMW, u.ExtractionTPH),
			Priority:    model.PriorityMedium,
		})
	}

	switch {
	case sol.BoilerTPH < e.cfg.BoilerOffTPH && base.BoilerTPH > e.cfg.BoilerActiveTPH:
		avoided := base.BoilerTPH * in.BoilerCost
		add(model.Recommendation{
			Icon:        iconStop,
			Title:       "Shutdown Auxiliary Boiler",
			Instruction: "Ramp boiler firing rate down to 0 over 10 minutes. Switch steam supply to sulfur recovery and GTA extraction.",
			SafetyCheck: fmt.Sprintf("Verify the MP header holds above %.1f bar without the boiler.", e.cfg.PressureMinBar),
			Impact:      fmt.Sprintf("Saves %.0f DH/h (%.0f DH/T avoided)", avoided, in.BoilerCost),
			ImpactValue: avoided,
			Priority:    model.PriorityHigh,
		})
	case sol.BoilerTPH > e.cfg.BoilerActiveTPH:
		add(model.Recommendation{
			Icon:        iconWarn,
			Title:       "Expensive Steam Source Active",
			Instruction: fmt.Sprintf("Auxiliary boiler running at %.1f T/h. Consider more GTA extraction or sulfur recovery to reduce boiler load.", sol.BoilerTPH),
			Impact:      fmt.Sprintf("%.0f DH/h cost (%.0f DH/T)", sol.Cost.Boiler, in.BoilerCost),
			ImpactValue: -sol.Cost.Boiler,
			Priority:    model.PriorityMedium,
		})
	}

	gridCost := sol.GridImportMW * in.Tariff * 1000
	if in.Period == model.PeriodPeak {
		if sol.GridImportMW > e.cfg.PeakGridMW {
			add(model.Recommendation{
				Icon:        iconPower,
				Title:       fmt.Sprintf("Peak Tariff Alert (%.3f DH/kWh)", in.Tariff),
				Instruction: fmt.Sprintf("Maximize internal generation. Current grid import: %.1f MW. If GTAs are maxed out, request load shedding from downstream plants.", sol.GridImportMW),
				SafetyCheck: "Notify production planning before any load reduction.",
				Impact:      fmt.Sprintf("Current import costing %.0f DH/h at peak rate", gridCost),
				ImpactValue: -gridCost,
				Priority:    model.PriorityHigh,
			})
		} else {
			add(model.Recommendation{
				Icon:        iconOK,
				Title:       "Peak Shaving Successful",
				Instruction: fmt.Sprintf("Grid import held at %.1f MW during peak hours. Maintain current GTA loading.", sol.GridImportMW),
				Impact:      "Avoiding expensive peak charges",
				Priority:    model.PriorityLow,
			})
		}
	}

	reduction := base.GridImportMW - sol.GridImportMW
	switch {
	case reduction > e.cfg.GridReductionMW:
		avoided := reduction * in.Tariff * 1000
		add(model.Recommendation{
			Icon:        iconOK,
			Title:       "Grid Import Optimized",
			Instruction: fmt.Sprintf("Grid dependency reduced by %.1f MW through optimal GTA dispatch.", reduction),
			Impact:      fmt.Sprintf("%.0f DH/h avoided", avoided),
			ImpactValue: avoided,
			Priority:    model.PriorityMedium,
		})
	case in.GridCapMW > 0 && sol.GridImportMW > e.cfg.GridWarningRatio*in.GridCapMW:
		add(model.Recommendation{
			Icon:        iconAlert,
			Title:       "Grid Capacity Warning",
			Instruction: fmt.Sprintf("Grid import at %.1f MW, near the %.0f MW limit. Increase GTA generation.", sol.GridImportMW, in.GridCapMW),
			SafetyCheck: "Risk of breaker trip if the limit is exceeded. Contact the substation operator.",
			Impact:      "Critical capacity issue",
			ImpactValue: -gridCost,
			Priority:    model.PriorityHigh,
		})
	}

	pressure, measured := e.pressure(in)
	source := "Predicted"
	if measured {
		source = "Measured"
	}
	if pressure < e.cfg.PressureMinBar {
		add(model.Recommendation{
			Icon:        iconWarn,
			Title:       "MP Pressure Risk",
			Instruction: fmt.Sprintf("%s MP pressure: %.1f bar, below the %.1f bar minimum. Increase steam production.", source, pressure, e.cfg.PressureMinBar),
			SafetyCheck: "Low MP pressure may cause a turbine protective trip. Monitor the header continuously.",
			Impact:      "Process reliability at risk",
			Priority:    model.PriorityHigh,
		})
	} else {
		add(model.Recommendation{
			Icon:        iconOK,
			Title:       "Process Reliability: Stable",
			Instruction: fmt.Sprintf("%s MP header pressure %.1f bar, above the %.1f bar minimum.", source, pressure, e.cfg.PressureMinBar),
			Impact:      "Safe operation confirmed",
			Priority:    model.PriorityLow,
		})
	}

	if sol.SulfurTPH > e.cfg.FreeSteamTPH {
		add(model.Recommendation{
			Icon:        iconRecycle,
			Title:       "Free Steam Maximized",
			Instruction: fmt.Sprintf("Using %.1f T/h from sulfur recovery. Maintain sulfur plant operations.", sol.SulfurTPH),
			Impact:      "Base load steam secured",
			Priority:    model.PriorityLow,
		})
	}

	if running == 0 {
		add(model.Recommendation{
			Icon:        iconAlert,
			Title:       "No GTAs Running",
			Instruction: "Start at least one GTA to enable cogeneration and reduce grid dependency.",
			SafetyCheck: "Follow the GTA startup checklist. Verify HP steam availability before opening the admission valve.",
			Impact:      "Missing cogeneration opportunity",
			Priority:    model.PriorityHigh,
		})
	}

	if in.Period == model.PeriodOffPeak {
		add(model.Recommendation{
			Icon:        iconGreen,
			Title:       "Off-Peak Advantage Active",
			Instruction: fmt.Sprintf("Grid electricity at %.3f DH/kWh, the cheapest rate.", in.Tariff),
			Impact:      "Favorable tariff window",
			Priority:    model.PriorityLow,
		})
	}

	Sort(recs)
	return recs
}

// pressure returns the MP header pressure and whether it was measured.
// Without a measurement it is estimated from the steam supply ratio.
func (e *Engine) pressure(in Input) (float64, bool) {
	if in.MPPressureBar != nil {
		return *in.MPPressureBar, true
	}
	ratio := 1.0
	if in.SteamDemandTPH > 0 {
		ratio = in.Solution.SuppliedSteamTPH() / in.SteamDemandTPH
	}
	return 7 + 2*ratio, false
}

// Sort orders recommendations by priority, then absolute impact, both
// descending. The sort is stable.
func Sort(recs []model.Recommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		if recs[i].Priority != recs[j].Priority {
			return recs[i].Priority > recs[j].Priority
		}
		return math.Abs(recs[i].ImpactValue) > math.Abs(recs[j].ImpactValue)
	})
}
