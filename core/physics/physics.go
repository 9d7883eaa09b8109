// Package physics holds the linear power model of the turbo-alternators.
package physics

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/cogendispatch/core/model"
)

// DefaultVersion labels the coefficient set of the GTA technical sheet.
const DefaultVersion = "annexe3-2025"

// UnitCount is the number of turbo-alternators on site.
const UnitCount = 3

// ErrUnknownUnit is returned for a unit id outside 1..UnitCount.
var ErrUnknownUnit = errors.New("unknown unit")

// Config describes a versioned coefficient set.
type Config struct {
	Version string                `json:"version"`
	Units   []model.GeneratorUnit `json:"units"`
}

// DefaultConfig returns the canonical coefficient set.
func DefaultConfig() Config {
	bounds := func(id int, coef model.Coefficients) model.GeneratorUnit {
		return model.GeneratorUnit{
			ID:         id,
			Admission:  model.Range{Min: 0, Max: 190},
			Extraction: model.Range{Min: 0, Max: 100},
			Power:      model.Range{Min: 10, Max: 37},
			Coef:       coef,
		}
	}
	return Config{
		Version: DefaultVersion,
		Units: []model.GeneratorUnit{
			bounds(1, model.Coefficients{A: 0.2761, B: -0.1805, Intercept: -2.72}),
			bounds(2, model.Coefficients{A: 0.2560, B: -0.1782, Intercept: -0.02}),
			bounds(3, model.Coefficients{A: 0.2573, B: -0.1723, Intercept: 0.06}),
		},
	}
}

// SetDefaults fills an empty configuration with the canonical set.
func (c *Config) SetDefaults() {
	if len(c.Units) == 0 {
		*c = DefaultConfig()
		return
	}
	if c.Version == "" {
		c.Version = "custom"
	}
}

// Validate rejects malformed coefficient sets.
func (c Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("physics: version is required")
	}
	if len(c.Units) != UnitCount {
		return fmt.Errorf("physics: expected %d units, got %d", UnitCount, len(c.Units))
	}
	seen := make(map[int]bool, UnitCount)
	for _, u := range c.Units {
		if u.ID < 1 || u.ID > UnitCount || seen[u.ID] {
			return fmt.Errorf("physics: invalid or duplicate unit id %d", u.ID)
		}
		seen[u.ID] = true
		for name, r := range map[string]model.Range{"admission": u.Admission, "extraction": u.Extraction, "power": u.Power} {
			if r.Min < 0 || r.Min > r.Max {
				return fmt.Errorf("physics: unit %d %s range [%g,%g] invalid", u.ID, name, r.Min, r.Max)
			}
		}
	}
	return nil
}

// Bounds groups the operating ranges of one unit.
type Bounds struct {
	Admission  model.Range
	Extraction model.Range
	Power      model.Range
}

// Model evaluates unit power. It is immutable once built and safe for
// concurrent use.
type Model struct {
	version string
	units   [UnitCount]model.GeneratorUnit
}

// New validates cfg and builds a Model.
func New(cfg Config) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := &Model{version: cfg.Version}
	for _, u := range cfg.Units {
		m.units[u.ID-1] = u
	}
	return m, nil
}

// Default builds the canonical model.
func Default() *Model {
	m, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return m
}

// Version returns the coefficient set label.
func (m *Model) Version() string { return m.version }

// Units returns a copy of the units ordered by id.
func (m *Model) Units() []model.GeneratorUnit {
	out := make([]model.GeneratorUnit, 0, UnitCount)
	out = append(out, m.units[:]...)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Unit returns the unit with the given id.
func (m *Model) Unit(id int) (model.GeneratorUnit, error) {
	if id < 1 || id > UnitCount {
		return model.GeneratorUnit{}, fmt.Errorf("%w: %d", ErrUnknownUnit, id)
	}
	return m.units[id-1], nil
}

// Power returns the electrical output in MW for the given admission and
// extraction in T/h.
func (m *Model) Power(id int, admission, extraction float64) (float64, error) {
	u, err := m.Unit(id)
	if err != nil {
		return 0, err
	}
	return u.PowerAt(admission, extraction), nil
}

// Bounds returns the operating ranges of a unit.
func (m *Model) Bounds(id int) (Bounds, error) {
	u, err := m.Unit(id)
	if err != nil {
		return Bounds{}, err
	}
	return Bounds{Admission: u.Admission, Extraction: u.Extraction, Power: u.Power}, nil
}

// InstalledPowerMW is the sum of the units' maximum power.
func (m *Model) InstalledPowerMW() float64 {
	var p float64
	for _, u := range m.units {
		p += u.Power.Max
	}
	return p
}
