// Package logger provides the zerolog implementation of the core logger.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	corelogger "github.com/kilianp07/cogendispatch/core/logger"
)

// Logger mirrors the core logger interface.
type Logger = corelogger.Logger

// NopLogger discards every message.
type NopLogger = corelogger.NopLogger

// Config selects the level, format and destination of the logs.
type Config struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string `json:"level"`
	// Format is "json" or "console". Empty follows APP_ENV.
	Format string `json:"format"`
	// File switches output from stdout to a size-rotated file.
	File       string `json:"file"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
}

// SetDefaults fills the rotation limits used with File.
func (c *Config) SetDefaults() {
	if c.MaxSizeMB == 0 {
		c.MaxSizeMB = 50
	}
	if c.MaxBackups == 0 {
		c.MaxBackups = 5
	}
}

// Validate checks the level and format names.
func (c Config) Validate() error {
	if _, err := parseLevel(c.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Format) {
	case "", "json", "console":
	default:
		return fmt.Errorf("logging: unknown format %q", c.Format)
	}
	if c.MaxSizeMB < 0 || c.MaxBackups < 0 {
		return fmt.Errorf("logging: rotation limits must not be negative")
	}
	return nil
}

// Configure applies cfg to every logger created afterwards.
func Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	cfg.SetDefaults()
	lvl, _ := parseLevel(cfg.Level)
	zerolog.SetGlobalLevel(lvl)

	var w io.Writer = os.Stdout
	if cfg.File != "" {
		w = &lumberjack.Logger{Filename: cfg.File, MaxSize: cfg.MaxSizeMB, MaxBackups: cfg.MaxBackups, Compress: true}
	}
	f := strings.ToLower(cfg.Format)
	setOutput(w, f == "console" || (f == "" && cfg.File == "" && devEnv()))
	return nil
}

func parseLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("logging: unknown level %q", s)
	}
	return lvl, nil
}

// New returns a Logger for the given component.
func New(component string) Logger {
	return NewZerologLogger(component)
}
