// Package constraints turns the loosely typed business constraint map sent
// with a demand into typed overrides for the solver.
package constraints

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/core/physics"
)

// Recognized keys.
const (
	KeyGTA1Status     = "gta1_status"
	KeyGTA2Status     = "gta2_status"
	KeyGTA3Status     = "gta3_status"
	KeyClientMinSteam = "client_min_steam"
	KeyMaxGridImport  = "max_grid_import"
	KeySulfurMax      = "sulfur_max"
	KeyForcedPeriod   = "forced_period"
)

// aliases maps accepted alternative spellings to canonical keys.
var aliases = map[string]string{
	"cap_steam": KeyClientMinSteam,
}

// ErrInvalidConstraint is wrapped by every resolution failure.
var ErrInvalidConstraint = errors.New("invalid constraint")

// InvalidConstraintError describes the first offending entry.
type InvalidConstraintError struct {
	Key    string
	Value  any
	Reason string
}

func (e *InvalidConstraintError) Error() string {
	return fmt.Sprintf("%s: %s=%v: %s", ErrInvalidConstraint, e.Key, e.Value, e.Reason)
}

func (e *InvalidConstraintError) Unwrap() error { return ErrInvalidConstraint }

// Constraint is one resolved entry. The set of implementations is closed.
type Constraint interface {
	Key() string
	apply(r *Resolved)
}

// UnitStatusConstraint takes a unit out of normal service.
type UnitStatusConstraint struct {
	UnitID int
	Status model.UnitStatus
}

func (c UnitStatusConstraint) Key() string { return fmt.Sprintf("gta%d_status", c.UnitID) }

func (c UnitStatusConstraint) apply(r *Resolved) { r.statuses[c.UnitID-1] = c.Status }

// NumericOverride tightens one numeric limit.
type NumericOverride struct {
	Name  string
	Value float64
}

func (c NumericOverride) Key() string { return c.Name }

func (c NumericOverride) apply(r *Resolved) {
	v := c.Value
	switch c.Name {
	case KeyClientMinSteam:
		r.ClientMinSteamTPH = &v
	case KeyMaxGridImport:
		r.MaxGridImportMW = &v
	case KeySulfurMax:
		r.SulfurMaxTPH = &v
	}
}

// ForcedPeriod prices the grid at a fixed band regardless of the hour.
type ForcedPeriod struct {
	Period model.TariffPeriod
}

func (c ForcedPeriod) Key() string { return KeyForcedPeriod }

func (c ForcedPeriod) apply(r *Resolved) {
	p := c.Period
	r.ForcedPeriod = &p
}

// Resolved is the typed result of Resolve. The zero value means no
// constraint: every unit ON and defaults everywhere.
type Resolved struct {
	statuses          [physics.UnitCount]model.UnitStatus
	ClientMinSteamTPH *float64
	MaxGridImportMW   *float64
	SulfurMaxTPH      *float64
	ForcedPeriod      *model.TariffPeriod
	// Items lists the accepted constraints ordered by key.
	Items []Constraint
}

// UnitStatus returns the status of unit id, ON when unconstrained.
func (r Resolved) UnitStatus(id int) model.UnitStatus {
	if id < 1 || id > physics.UnitCount {
		return model.UnitOff
	}
	return r.statuses[id-1]
}

// WithUnitStatus returns a copy of r with the status of unit id replaced.
func (r Resolved) WithUnitStatus(id int, s model.UnitStatus) Resolved {
	if id >= 1 && id <= physics.UnitCount {
		r.statuses[id-1] = s
	}
	return r
}

// AvailableUnits counts units not OFF.
func (r Resolved) AvailableUnits() int {
	n := 0
	for _, s := range r.statuses {
		if s.Running() {
			n++
		}
	}
	return n
}

// GridCap returns the effective grid import ceiling.
func (r Resolved) GridCap(def float64) float64 {
	if r.MaxGridImportMW != nil {
		return math.Min(def, *r.MaxGridImportMW)
	}
	return def
}

// SulfurCeiling returns the effective sulfur-recovery steam ceiling.
func (r Resolved) SulfurCeiling(available float64) float64 {
	if r.SulfurMaxTPH != nil {
		return math.Min(available, *r.SulfurMaxTPH)
	}
	return available
}

// ClientMinSteam returns the client minimum or 0.
func (r Resolved) ClientMinSteam() float64 {
	if r.ClientMinSteamTPH != nil {
		return *r.ClientMinSteamTPH
	}
	return 0
}

// Applied echoes the accepted constraints with canonical keys and values.
func (r Resolved) Applied() map[string]any {
	out := make(map[string]any, len(r.Items))
	for _, c := range r.Items {
		switch v := c.(type) {
		case UnitStatusConstraint:
			out[v.Key()] = v.Status.String()
		case NumericOverride:
			out[v.Key()] = v.Value
		case ForcedPeriod:
			out[v.Key()] = v.Period.String()
		}
	}
	return out
}

// Resolve validates raw and returns the typed constraints. Entries are
// processed in key order so the reported error is deterministic. On error
// nothing is returned.
func Resolve(raw map[string]any) (Resolved, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	seen := make(map[string]string, len(raw))
	items := make([]Constraint, 0, len(raw))
	for _, k := range keys {
		canon := strings.ToLower(strings.TrimSpace(k))
		if a, ok := aliases[canon]; ok {
			canon = a
		}
		if prev, dup := seen[canon]; dup {
			return Resolved{}, &InvalidConstraintError{Key: k, Value: raw[k], Reason: fmt.Sprintf("duplicates %q", prev)}
		}
		seen[canon] = k
		c, err := parse(canon, raw[k])
		if err != nil {
			return Resolved{}, &InvalidConstraintError{Key: k, Value: raw[k], Reason: err.Error()}
		}
		items = append(items, c)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Key() < items[j].Key() })

	r := Resolved{Items: items}
	for _, c := range items {
		c.apply(&r)
	}
	return r, nil
}

func parse(key string, v any) (Constraint, error) {
	switch key {
	case KeyGTA1Status, KeyGTA2Status, KeyGTA3Status:
		s, err := parseStatus(v)
		if err != nil {
			return nil, err
		}
		id := int(key[3] - '0')
		return UnitStatusConstraint{UnitID: id, Status: s}, nil
	case KeyClientMinSteam, KeyMaxGridImport, KeySulfurMax:
		f, err := parseNumber(v)
		if err != nil {
			return nil, err
		}
		return NumericOverride{Name: key, Value: f}, nil
	case KeyForcedPeriod:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected a period name")
		}
		p, err := model.ParseTariffPeriod(s)
		if err != nil {
			return nil, err
		}
		return ForcedPeriod{Period: p}, nil
	default:
		return nil, fmt.Errorf("unknown key")
	}
}

func parseStatus(v any) (model.UnitStatus, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("expected OFF or MAINTENANCE")
	}
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OFF":
		return model.UnitOff, nil
	case "MAINTENANCE":
		return model.UnitMaintenance, nil
	default:
		return 0, fmt.Errorf("expected OFF or MAINTENANCE")
	}
}

func parseNumber(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int8:
		f = float64(n)
	case int16:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint:
		f = float64(n)
	case uint8:
		f = float64(n)
	case uint16:
		f = float64(n)
	case uint32:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		p, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		f = p
	case string:
		p, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number")
		}
		f = p
	default:
		return 0, fmt.Errorf("expected a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("must be finite")
	}
	if f < 0 {
		return 0, fmt.Errorf("must be >= 0")
	}
	return f, nil
}
