// Package cost provides the tariff bands and unit costs used to price a
// dispatch. All amounts are in DH.
package cost

import (
	"fmt"

	"github.com/kilianp07/cogendispatch/core/model"
)

// Source identifies a priced energy source.
type Source int

const (
	SourceGrid Source = iota
	SourceBoiler
	SourceSulfur
	SourceGTAFuel
)

func (s Source) String() string {
	switch s {
	case SourceGrid:
		return "grid"
	case SourceBoiler:
		return "boiler"
	case SourceSulfur:
		return "sulfur"
	case SourceGTAFuel:
		return "gta_fuel"
	default:
		return "unknown"
	}
}

// Config holds tariffs (DH/kWh), peak and standard windows, and unit costs (DH/T).
type Config struct {
	PeakDHPerKWh     float64 `json:"peak"`
	StandardDHPerKWh float64 `json:"standard"`
	OffPeakDHPerKWh  float64 `json:"off_peak"`
	// Hours are [start, end) in local time.
	PeakStartHour     int `json:"peak_start_hour"`
	PeakEndHour       int `json:"peak_end_hour"`
	StandardStartHour int `json:"standard_start_hour"`

	BoilerDHPerT  float64 `json:"boiler_cost"`
	SulfurDHPerT  float64 `json:"sulfur_cost"`
	GTAFuelDHPerT float64 `json:"gta_fuel_cost"`
}

// DefaultConfig returns the site tariff contract.
func DefaultConfig() Config {
	return Config{
		PeakDHPerKWh:      1.271,
		StandardDHPerKWh:  0.897,
		OffPeakDHPerKWh:   0.552,
		PeakStartHour:     17,
		PeakEndHour:       22,
		StandardStartHour: 7,
		BoilerDHPerT:      284,
		SulfurDHPerT:      20,
		GTAFuelDHPerT:     65,
	}
}

// SetDefaults replaces zero values with the defaults.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.PeakDHPerKWh == 0 {
		c.PeakDHPerKWh = d.PeakDHPerKWh
	}
	if c.StandardDHPerKWh == 0 {
		c.StandardDHPerKWh = d.StandardDHPerKWh
	}
	if c.OffPeakDHPerKWh == 0 {
		c.OffPeakDHPerKWh = d.OffPeakDHPerKWh
	}
	if c.PeakStartHour == 0 && c.PeakEndHour == 0 {
		c.PeakStartHour, c.PeakEndHour = d.PeakStartHour, d.PeakEndHour
	}
	if c.StandardStartHour == 0 {
		c.StandardStartHour = d.StandardStartHour
	}
	if c.BoilerDHPerT == 0 {
		c.BoilerDHPerT = d.BoilerDHPerT
	}
	if c.SulfurDHPerT == 0 {
		c.SulfurDHPerT = d.SulfurDHPerT
	}
	if c.GTAFuelDHPerT == 0 {
		c.GTAFuelDHPerT = d.GTAFuelDHPerT
	}
}

// Validate checks that prices are non-negative and windows are ordered.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"peak": c.PeakDHPerKWh, "standard": c.StandardDHPerKWh, "off_peak": c.OffPeakDHPerKWh,
		"boiler_cost": c.BoilerDHPerT, "sulfur_cost": c.SulfurDHPerT, "gta_fuel_cost": c.GTAFuelDHPerT,
	} {
		if v < 0 {
			return fmt.Errorf("tariff: %s must be >= 0", name)
		}
	}
	if c.StandardStartHour < 0 || c.StandardStartHour > c.PeakStartHour ||
		c.PeakStartHour > c.PeakEndHour || c.PeakEndHour > 24 {
		return fmt.Errorf("tariff: hours must satisfy 0 <= standard_start <= peak_start <= peak_end <= 24")
	}
	return nil
}

// Model prices energy sources. It holds no mutable state.
type Model struct {
	cfg Config
}

// New validates cfg and returns a Model.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Model{cfg: cfg}, nil
}

// Default returns the model for the default contract.
func Default() *Model { return &Model{cfg: DefaultConfig()} }

// Config returns the configuration the model was built from.
func (m *Model) Config() Config { return m.cfg }

// PeriodAt returns the tariff band of an hour of day. Hours outside 0..23
// wrap around.
func (m *Model) PeriodAt(hour int) model.TariffPeriod {
	hour = ((hour % 24) + 24) % 24
	switch {
	case hour >= m.cfg.PeakStartHour && hour < m.cfg.PeakEndHour:
		return model.PeriodPeak
	case hour >= m.cfg.StandardStartHour && hour < m.cfg.PeakStartHour:
		return model.PeriodStandard
	default:
		return model.PeriodOffPeak
	}
}

// TariffFor returns the grid price of a band in DH/kWh.
func (m *Model) TariffFor(p model.TariffPeriod) float64 {
	switch p {
	case model.PeriodPeak:
		return m.cfg.PeakDHPerKWh
	case model.PeriodStandard:
		return m.cfg.StandardDHPerKWh
	default:
		return m.cfg.OffPeakDHPerKWh
	}
}

// Tariff returns the grid price at an hour of day in DH/kWh.
func (m *Model) Tariff(hour int) float64 { return m.TariffFor(m.PeriodAt(hour)) }

// UnitCost returns the price per ton of steam for boiler and sulfur, per ton
// of admission for GTA fuel. Grid has no per-ton cost: use Tariff.
func (m *Model) UnitCost(s Source) float64 {
	switch s {
	case SourceBoiler:
		return m.cfg.BoilerDHPerT
	case SourceSulfur:
		return m.cfg.SulfurDHPerT
	case SourceGTAFuel:
		return m.cfg.GTAFuelDHPerT
	default:
		return 0
	}
}

// GridPerMWh converts a DH/kWh tariff to DH per MW held for one hour.
func GridPerMWh(tariff float64) float64 { return tariff * 1000 }

// Breakdown prices an hourly operating point.
func (m *Model) Breakdown(tariff, gridMW, boilerTPH, sulfurTPH, admissionTPH float64) model.CostBreakdown {
	return model.CostBreakdown{
		Grid:    gridMW * GridPerMWh(tariff),
		Boiler:  boilerTPH * m.cfg.BoilerDHPerT,
		Sulfur:  sulfurTPH * m.cfg.SulfurDHPerT,
		GTAFuel: admissionTPH * m.cfg.GTAFuelDHPerT,
	}
}
