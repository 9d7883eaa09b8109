package model

import (
	"fmt"
	"strings"
)

// DemandRequest is one optimization call: a demand snapshot plus the raw
// business constraints for that hour.
type DemandRequest struct {
	ElecDemandMW   float64        `json:"elec_demand"`
	SteamDemandTPH float64        `json:"steam_demand"`
	Hour           *int           `json:"hour,omitempty"` // 0-23, current hour when nil
	Constraints    map[string]any `json:"constraints,omitempty"`
	Verbose        bool           `json:"verbose,omitempty"`
}

// SolveStatus is the outcome of a dispatch solve.
type SolveStatus int

const (
	StatusOptimal SolveStatus = iota
	StatusInfeasible
	StatusUnbounded
	StatusError
)

// String returns the status label exposed to callers.
func (s SolveStatus) String() string {
	switch s {
	case StatusOptimal:
		return "Optimal"
	case StatusInfeasible:
		return "Infeasible"
	case StatusUnbounded:
		return "Unbounded"
	case StatusError:
		return "Error"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s SolveStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SolveStatus) UnmarshalText(b []byte) error {
	for _, c := range []SolveStatus{StatusOptimal, StatusInfeasible, StatusUnbounded, StatusError} {
		if strings.EqualFold(c.String(), string(b)) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown solve status %q", b)
}

// UnitDispatch is the operating point of one unit.
type UnitDispatch struct {
	UnitID        int        `json:"unit"`
	Status        UnitStatus `json:"status"`
	AdmissionTPH  float64    `json:"admission"`
	ExtractionTPH float64    `json:"extraction"`
	PowerMW       float64    `json:"power"`
}

// CostBreakdown splits an hourly cost (DH/h) by source.
type CostBreakdown struct {
	Grid    float64 `json:"grid"`
	Boiler  float64 `json:"boiler"`
	Sulfur  float64 `json:"sulfur"`
	GTAFuel float64 `json:"gta_fuel"`
}

// Total sums all sources.
func (c CostBreakdown) Total() float64 {
	return c.Grid + c.Boiler + c.Sulfur + c.GTAFuel
}

// DispatchSolution is the cost-minimal dispatch returned by the solver.
type DispatchSolution struct {
	Units        []UnitDispatch `json:"units"`
	GridImportMW float64        `json:"grid_import"`
	BoilerTPH    float64        `json:"boiler_output"`
	SulfurTPH    float64        `json:"sulfur_steam"`
	Cost         CostBreakdown  `json:"cost_breakdown"`
	TotalCost    float64        `json:"total_cost"`
}

// GeneratedPowerMW is the power produced by the units, grid excluded.
func (s DispatchSolution) GeneratedPowerMW() float64 { return generated(s.Units) }

// SuppliedPowerMW is unit power plus grid import.
func (s DispatchSolution) SuppliedPowerMW() float64 { return generated(s.Units) + s.GridImportMW }

// SuppliedSteamTPH is extraction plus boiler plus sulfur-recovery steam.
func (s DispatchSolution) SuppliedSteamTPH() float64 {
	return extracted(s.Units) + s.BoilerTPH + s.SulfurTPH
}

// BaselineSolution is the dispatch of the fixed naive policy, kept only
// for savings comparison.
type BaselineSolution struct {
	Units          []UnitDispatch `json:"units"`
	GridImportMW   float64        `json:"grid_import"`
	BoilerTPH      float64        `json:"boiler_output"`
	SulfurTPH      float64        `json:"sulfur_steam"`
	GTALoadPercent float64        `json:"gta_load_percent"`
	Cost           CostBreakdown  `json:"cost_breakdown"`
	TotalCost      float64        `json:"total_cost"`
	// WithinLimits is false when the policy needs more grid or boiler than allowed.
	WithinLimits bool `json:"within_limits"`
}

func generated(units []UnitDispatch) float64 {
	var p float64
	for _, u := range units {
		p += u.PowerMW
	}
	return p
}

func extracted(units []UnitDispatch) float64 {
	var s float64
	for _, u := range units {
		s += u.ExtractionTPH
	}
	return s
}
