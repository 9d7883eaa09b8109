package model

import (
	"fmt"
	"strings"
	"time"
)

// Priority ranks operator recommendations.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityMedium
	PriorityHigh
)

// String returns the lower-case priority name.
func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p Priority) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Priority) UnmarshalText(b []byte) error {
	for _, c := range []Priority{PriorityLow, PriorityMedium, PriorityHigh} {
		if strings.EqualFold(c.String(), string(b)) {
			*p = c
			return nil
		}
	}
	return fmt.Errorf("unknown priority %q", b)
}

// Recommendation is one operator instruction derived from a solved dispatch.
type Recommendation struct {
	Icon        string   `json:"icon"`
	Title       string   `json:"title"`
	Instruction string   `json:"instruction"`
	SafetyCheck string   `json:"safety_check,omitempty"`
	Impact      string   `json:"impact"`
	Priority    Priority `json:"priority"`
	// ImpactValue is the hourly financial impact in DH used for ranking.
	ImpactValue float64 `json:"-"`
}

// BaselineSummary is the part of the baseline echoed in a report.
type BaselineSummary struct {
	GridImportMW   float64 `json:"grid_import"`
	BoilerTPH      float64 `json:"boiler_output"`
	GTALoadPercent float64 `json:"gta_load_percent"`
	WithinLimits   bool    `json:"within_limits"`
}

// Demands echoes the requested demand.
type Demands struct {
	Electricity float64 `json:"electricity"`
	Steam       float64 `json:"steam"`
}

// TelemetryEcho records the externally supplied values used by a solve.
type TelemetryEcho struct {
	SulfurFlowTPH  float64  `json:"sulfur_flow"`
	SulfurSteamTPH float64  `json:"sulfur_available"`
	MPPressureBar  *float64 `json:"mp_pressure,omitempty"`
	Source         string   `json:"source"`
}

// DispatchReport is the complete answer to a DemandRequest.
type DispatchReport struct {
	ID                 string           `json:"id"`
	Status             SolveStatus      `json:"status"`
	Units              []UnitDispatch   `json:"units"`
	GridImportMW       float64          `json:"grid_import"`
	BoilerTPH          float64          `json:"boiler_output"`
	SulfurTPH          float64          `json:"sulfur_steam"`
	TotalCost          float64          `json:"total_cost"`
	CostBreakdown      CostBreakdown    `json:"cost_breakdown"`
	BaselineCost       float64          `json:"baseline_cost"`
	Baseline           BaselineSummary  `json:"baseline"`
	Savings            float64          `json:"savings"`
	SavingsPercent     float64          `json:"savings_percent"`
	TariffPeriod       TariffPeriod     `json:"tariff_period"`
	Tariff             float64          `json:"tariff"`
	Recommendations    []Recommendation `json:"recommendations"`
	Demands            Demands          `json:"demands"`
	ConstraintsApplied map[string]any   `json:"constraints_applied"`
	Telemetry          TelemetryEcho    `json:"telemetry"`
	ModelVersion       string           `json:"model_version"`
	SolveMS            float64          `json:"solve_ms"`
	Timestamp          time.Time        `json:"timestamp"`
}
