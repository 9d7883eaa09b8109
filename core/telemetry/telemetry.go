// Package telemetry reads the externally measured plant values the solver
// needs: sulfur-recovery throughput and MP header pressure.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Source labels.
const (
	SourceStatic   = "static"
	SourceCSV      = "csv"
	SourceMQTT     = "mqtt"
	SourceFallback = "fallback"
)

// ErrNoTelemetry is returned when a provider has nothing usable to report.
var ErrNoTelemetry = errors.New("no telemetry available")

// Snapshot is one reading of the plant.
type Snapshot struct {
	// SulfurFlowTPH is the total sulfur throughput of the recovery units.
	SulfurFlowTPH float64
	// SulfurSteamTPH is the steam made available by sulfur recovery.
	SulfurSteamTPH float64
	// MPPressureBar is nil when neither measured nor estimated.
	MPPressureBar *float64
	Source        string
	Time          time.Time
}

// Provider returns the current plant reading. Implementations must be safe
// for concurrent use.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

// Config selects and tunes the telemetry provider.
type Config struct {
	// Source is "static", "csv" or "mqtt".
	Source string `json:"source"`
	// SteamPerSulfur converts sulfur throughput into recoverable steam.
	SteamPerSulfur float64 `json:"steam_per_sulfur"`
	// FallbackSulfurSteamTPH is used when the provider fails.
	FallbackSulfurSteamTPH float64 `json:"fallback_sulfur_steam"`

	StaticSulfurFlowTPH float64  `json:"static_sulfur_flow"`
	StaticPressureBar   *float64 `json:"static_mp_pressure"`

	CSVPath string `json:"csv_path"`

	Topic         string `json:"topic"`
	MaxAgeSeconds int    `json:"max_age_seconds"`
}

// DefaultConfig returns a static provider reading 25 T/h of sulfur.
func DefaultConfig() Config {
	return Config{
		Source:                 SourceStatic,
		SteamPerSulfur:         2.0,
		FallbackSulfurSteamTPH: 50,
		StaticSulfurFlowTPH:    25,
		Topic:                  "plant/telemetry",
		MaxAgeSeconds:          300,
	}
}

// SetDefaults replaces zero values with the defaults.
func (c *Config) SetDefaults() {
	d := DefaultConfig()
	if c.Source == "" {
		c.Source = d.Source
	}
	if c.SteamPerSulfur == 0 {
		c.SteamPerSulfur = d.SteamPerSulfur
	}
	if c.FallbackSulfurSteamTPH == 0 {
		c.FallbackSulfurSteamTPH = d.FallbackSulfurSteamTPH
	}
	if c.Topic == "" {
		c.Topic = d.Topic
	}
	if c.MaxAgeSeconds == 0 {
		c.MaxAgeSeconds = d.MaxAgeSeconds
	}
}

// Validate checks the provider settings.
func (c Config) Validate() error {
	switch c.Source {
	case SourceStatic, SourceMQTT:
	case SourceCSV:
		if c.CSVPath == "" {
			return fmt.Errorf("telemetry: csv_path is required for csv source")
		}
	default:
		return fmt.Errorf("telemetry: unknown source %q", c.Source)
	}
	if c.SteamPerSulfur <= 0 {
		return fmt.Errorf("telemetry: steam_per_sulfur must be positive")
	}
	if c.FallbackSulfurSteamTPH < 0 || c.StaticSulfurFlowTPH < 0 {
		return fmt.Errorf("telemetry: sulfur values must be >= 0")
	}
	return nil
}

// MaxAge returns how long a pushed reading stays valid.
func (c Config) MaxAge() time.Duration {
	return time.Duration(c.MaxAgeSeconds) * time.Second
}

// Fallback returns the snapshot used when no provider answers.
func (c Config) Fallback() Snapshot {
	return Snapshot{
		SulfurFlowTPH:  c.FallbackSulfurSteamTPH / c.SteamPerSulfur,
		SulfurSteamTPH: c.FallbackSulfurSteamTPH,
		Source:         SourceFallback,
	}
}

// Static always returns the same reading.
type Static struct {
	snap Snapshot
}

// NewStatic builds a Static provider from a sulfur flow and an optional
// pressure.
func NewStatic(sulfurFlowTPH, steamPerSulfur float64, pressure *float64) *Static {
	return &Static{snap: Snapshot{
		SulfurFlowTPH:  sulfurFlowTPH,
		SulfurSteamTPH: sulfurFlowTPH * steamPerSulfur,
		MPPressureBar:  pressure,
		Source:         SourceStatic,
	}}
}

// Snapshot implements Provider.
func (s *Static) Snapshot(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	out := s.snap
	out.Time = time.Now()
	return out, nil
}
