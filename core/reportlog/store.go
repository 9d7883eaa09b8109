// Package reportlog keeps a history of optimization decisions: the request,
// the outcome and, when optimal, the full report.
package reportlog

import (
	"context"
	"fmt"
	"time"

	"github.com/kilianp07/cogendispatch/core/model"
)

// Record is one optimization decision.
type Record struct {
	ID        string                `json:"id"`
	Timestamp time.Time             `json:"timestamp"`
	Request   model.DemandRequest   `json:"request"`
	Status    model.SolveStatus     `json:"status"`
	Reason    string                `json:"reason,omitempty"`
	Report    *model.DispatchReport `json:"report,omitempty"`
}

// Period returns the tariff period of the report, or "" without report.
func (r Record) Period() string {
	if r.Report == nil {
		return ""
	}
	return r.Report.TariffPeriod.String()
}

// Query filters records. Zero fields match everything.
type Query struct {
	Start  time.Time
	End    time.Time
	Status *model.SolveStatus
	Period string
	// Limit keeps the most recent records when > 0.
	Limit int
}

// Matches reports whether r passes the time, status and period filters.
func (q Query) Matches(r Record) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.Status != nil && r.Status != *q.Status {
		return false
	}
	if q.Period != "" && r.Period() != q.Period {
		return false
	}
	return true
}

func (q Query) limit(recs []Record) []Record {
	if q.Limit > 0 && len(recs) > q.Limit {
		return recs[len(recs)-q.Limit:]
	}
	return recs
}

// Store persists records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// Backends.
const (
	BackendNone   = "none"
	BackendJSONL  = "jsonl"
	BackendSQLite = "sqlite"
)

// Config selects the store. Rotation applies to the jsonl backend when
// MaxSizeMB is positive.
type Config struct {
	Backend    string `json:"backend"`
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = BackendJSONL
	}
	if c.Path == "" && c.Backend != BackendNone {
		if c.Backend == BackendSQLite {
			c.Path = "decisions.db"
		} else {
			c.Path = "decisions.jsonl"
		}
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendNone:
		return nil
	case BackendJSONL, BackendSQLite:
	default:
		return fmt.Errorf("reportlog: unknown backend %s", c.Backend)
	}
	if c.Path == "" {
		return fmt.Errorf("reportlog: path is required")
	}
	return nil
}

// New opens the configured store. The none backend yields a NopStore.
func New(cfg Config) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Backend {
	case BackendNone:
		return NopStore{}, nil
	case BackendSQLite:
		return NewSQLiteStore(cfg.Path)
	default:
		if cfg.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(cfg.Path, cfg.MaxSizeMB, cfg.MaxBackups, cfg.MaxAgeDays)
		}
		return NewJSONLStore(cfg.Path)
	}
}

// NopStore keeps nothing.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }
