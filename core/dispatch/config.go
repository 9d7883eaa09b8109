package dispatch

import "fmt"

// Limits are the site-level operating limits shared by the solver and the
// baseline.
type Limits struct {
	// PowerMargin and SteamMargin scale demand into the required supply.
	PowerMargin      float64 `json:"power_margin"`
	SteamMargin      float64 `json:"steam_margin"`
	MaxGridImportMW  float64 `json:"max_grid_import"`
	MaxBoilerTPH     float64 `json:"max_boiler"`
	MaxTotalPowerMW  float64 `json:"max_total_power"`
	MaxTotalSteamTPH float64 `json:"max_total_steam"`
	// MaintenanceFactor scales the admission ceiling of a unit in maintenance.
	MaintenanceFactor float64 `json:"maintenance_factor"`
}

// DefaultLimits returns the limits of the site.
func DefaultLimits() Limits {
	return Limits{
		PowerMargin:       1.03,
		SteamMargin:       1.05,
		MaxGridImportMW:   100,
		MaxBoilerTPH:      200,
		MaxTotalPowerMW:   111,
		MaxTotalSteamTPH:  600,
		MaintenanceFactor: 0.5,
	}
}

// SetDefaults replaces zero values with the site defaults.
func (l *Limits) SetDefaults() {
	d := DefaultLimits()
	if l.PowerMargin == 0 {
		l.PowerMargin = d.PowerMargin
	}
	if l.SteamMargin == 0 {
		l.SteamMargin = d.SteamMargin
	}
	if l.MaxGridImportMW == 0 {
		l.MaxGridImportMW = d.MaxGridImportMW
	}
	if l.MaxBoilerTPH == 0 {
		l.MaxBoilerTPH = d.MaxBoilerTPH
	}
	if l.MaxTotalPowerMW == 0 {
		l.MaxTotalPowerMW = d.MaxTotalPowerMW
	}
	if l.MaxTotalSteamTPH == 0 {
		l.MaxTotalSteamTPH = d.MaxTotalSteamTPH
	}
	if l.MaintenanceFactor == 0 {
		l.MaintenanceFactor = d.MaintenanceFactor
	}
}

// Validate checks the limits are usable.
func (l Limits) Validate() error {
	if l.PowerMargin < 1 || l.SteamMargin < 1 {
		return fmt.Errorf("limits: margins must be >= 1")
	}
	if l.MaintenanceFactor <= 0 || l.MaintenanceFactor > 1 {
		return fmt.Errorf("limits: maintenance_factor must be in (0,1]")
	}
	if l.MaxGridImportMW < 0 || l.MaxBoilerTPH < 0 || l.MaxTotalPowerMW <= 0 || l.MaxTotalSteamTPH <= 0 {
		return fmt.Errorf("limits: capacities must be positive")
	}
	return nil
}

// Config tunes the simplex run and the baseline policy.
type Config struct {
	Tolerance float64 `json:"tolerance"`
	// VerifyTolerance bounds the violation accepted when checking a solution.
	VerifyTolerance float64 `json:"verify_tolerance"`
	TimeoutMS       int     `json:"timeout_ms"`
	// BaselineLoad is the fraction of nominal admission used by the baseline.
	BaselineLoad float64 `json:"baseline_load"`
	// BaselineExtraction is the extraction/admission ratio of the baseline.
	BaselineExtraction float64 `json:"baseline_extraction"`
}

// DefaultConfig returns the solver defaults.
func DefaultConfig() Config {
	return Config{
		Tolerance:          1e-9,
		VerifyTolerance:    1e-6,
		TimeoutMS:          3000,
		BaselineLoad:       0.5,
		BaselineExtraction: 0.3,
	}
}

// SetDefaults replaces zero values with the defaults.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.Tolerance == 0 {
		c.Tolerance = d.Tolerance
	}
	if c.VerifyTolerance == 0 {
		c.VerifyTolerance = d.VerifyTolerance
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = d.TimeoutMS
	}
	if c.BaselineLoad == 0 {
		c.BaselineLoad = d.BaselineLoad
	}
	if c.BaselineExtraction == 0 {
		c.BaselineExtraction = d.BaselineExtraction
	}
}

// Validate checks the solver settings.
func (c Config) Validate() error {
	if c.Tolerance <= 0 || c.VerifyTolerance <= 0 {
		return fmt.Errorf("solver: tolerances must be positive")
	}
	if c.TimeoutMS < 0 {
		return fmt.Errorf("solver: timeout_ms must be >= 0")
	}
	if c.BaselineLoad <= 0 || c.BaselineLoad > 1 || c.BaselineExtraction < 0 || c.BaselineExtraction > 1 {
		return fmt.Errorf("solver: baseline ratios must be in (0,1]")
	}
	return nil
}
