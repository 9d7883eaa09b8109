package recommend

import "fmt"

// Config holds the thresholds of the rule set.
type Config struct {
	// CapacityRatio marks a unit as pushed when admission reaches this share
	// of its effective maximum.
	CapacityRatio float64 `json:"capacity_ratio"`
	// BoilerOffTPH is the output below which the boiler counts as stopped.
	BoilerOffTPH float64 `json:"boiler_off_tph"`
	// BoilerActiveTPH is the output above which the boiler counts as running.
	BoilerActiveTPH float64 `json:"boiler_active_tph"`
	PeakGridMW      float64 `json:"peak_grid_mw"`
	GridReductionMW float64 `json:"grid_reduction_mw"`
	// GridWarningRatio raises a warning when import exceeds this share of the cap.
	GridWarningRatio float64 `json:"grid_warning_ratio"`
	PressureMinBar   float64 `json:"pressure_min_bar"`
	FreeSteamTPH     float64 `json:"free_steam_tph"`
	HoursPerYear     float64 `json:"hours_per_year"`
}

// DefaultConfig returns the operating thresholds of the site.
func DefaultConfig() Config {
	return Config{
		CapacityRatio:    0.92,
		BoilerOffTPH:     1,
		BoilerActiveTPH:  10,
		PeakGridMW:       10,
		GridReductionMW:  5,
		GridWarningRatio: 0.9,
		PressureMinBar:   8.5,
		FreeSteamTPH:     70,
		HoursPerYear:     8760,
	}
}

// SetDefaults replaces zero values with the defaults.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	set := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	set(&c.CapacityRatio, d.CapacityRatio)
	set(&c.BoilerOffTPH, d.BoilerOffTPH)
	set(&c.BoilerActiveTPH, d.BoilerActiveTPH)
	set(&c.PeakGridMW, d.PeakGridMW)
	set(&c.GridReductionMW, d.GridReductionMW)
	set(&c.GridWarningRatio, d.GridWarningRatio)
	set(&c.PressureMinBar, d.PressureMinBar)
	set(&c.FreeSteamTPH, d.FreeSteamTPH)
	set(&c.HoursPerYear, d.HoursPerYear)
}

// Validate checks the ratios.
func (c Config) Validate() error {
	if c.CapacityRatio <= 0 || c.CapacityRatio > 1 {
		return fmt.Errorf("recommend: capacity_ratio must be in (0,1]")
	}
	if c.GridWarningRatio <= 0 || c.GridWarningRatio > 1 {
		return fmt.Errorf("recommend: grid_warning_ratio must be in (0,1]")
	}
	if c.BoilerOffTPH > c.BoilerActiveTPH {
		return fmt.Errorf("recommend: boiler_off_tph above boiler_active_tph")
	}
	return nil
}
