package model

import (
	"fmt"
	"strings"
)

// Range is a closed interval [Min, Max].
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether v lies in the range, allowing tol of slack on both ends.
func (r Range) Contains(v, tol float64) bool {
	return v >= r.Min-tol && v <= r.Max+tol
}

// Coefficients define the linear power model of a unit:
// power = A*admission + B*extraction + Intercept.
type Coefficients struct {
	A         float64 `json:"a"`
	B         float64 `json:"b"`
	Intercept float64 `json:"intercept"`
}

// GeneratorUnit describes one turbo-alternator (GTA). Units are built once
// from configuration and never mutated.
type GeneratorUnit struct {
	ID         int          `json:"id"`
	Admission  Range        `json:"admission"`  // HP steam in, T/h
	Extraction Range        `json:"extraction"` // MP steam out, T/h
	Power      Range        `json:"power"`      // MW when running
	Coef       Coefficients `json:"coefficients"`
}

// PowerAt evaluates the linear power model without clamping.
func (u GeneratorUnit) PowerAt(admission, extraction float64) float64 {
	return u.Coef.A*admission + u.Coef.B*extraction + u.Coef.Intercept
}

// UnitStatus is the availability of a unit for one solve.
type UnitStatus int

const (
	UnitOn UnitStatus = iota
	UnitOff
	UnitMaintenance
)

// String returns the status name as used in constraint maps.
func (s UnitStatus) String() string {
	switch s {
	case UnitOn:
		return "ON"
	case UnitOff:
		return "OFF"
	case UnitMaintenance:
		return "MAINTENANCE"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s UnitStatus) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *UnitStatus) UnmarshalText(b []byte) error {
	for _, c := range []UnitStatus{UnitOn, UnitOff, UnitMaintenance} {
		if strings.EqualFold(c.String(), string(b)) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown unit status %q", b)
}

// Running reports whether the unit may carry load.
func (s UnitStatus) Running() bool { return s != UnitOff }

// TariffPeriod is one of the three grid tariff bands.
type TariffPeriod int

const (
	PeriodOffPeak TariffPeriod = iota
	PeriodStandard
	PeriodPeak
)

// String returns the canonical period name.
func (p TariffPeriod) String() string {
	switch p {
	case PeriodOffPeak:
		return "off-peak"
	case PeriodStandard:
		return "standard"
	case PeriodPeak:
		return "peak"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (p TariffPeriod) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *TariffPeriod) UnmarshalText(b []byte) error {
	v, err := ParseTariffPeriod(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// ParseTariffPeriod converts a period name, case-insensitively.
func ParseTariffPeriod(s string) (TariffPeriod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "off-peak":
		return PeriodOffPeak, nil
	case "standard":
		return PeriodStandard, nil
	case "peak":
		return PeriodPeak, nil
	default:
		return 0, fmt.Errorf("unknown tariff period %q", s)
	}
}
