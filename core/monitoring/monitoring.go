// Package monitoring reports solver failures and panics to an external error
// tracker. The default monitor discards everything.
package monitoring

import (
	"sync"
	"time"

	"github.com/kilianp07/cogendispatch/core/model"
)

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	// CapturePanic reports a value obtained from recover.
	CapturePanic(rec any, tags map[string]string)
	Flush(timeout time.Duration)
}

// Config holds the error tracker settings. An empty DSN disables reporting.
type Config struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	Release          string  `json:"release"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
}

// NopMonitor drops every event.
type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) CapturePanic(any, map[string]string)       {}
func (NopMonitor) Flush(time.Duration)                       {}

var (
	mu      sync.RWMutex
	current Monitor = NopMonitor{}
)

// Init sets the global monitor implementation. Nil is ignored.
func Init(m Monitor) {
	if m == nil {
		return
	}
	mu.Lock()
	current = m
	mu.Unlock()
}

// Current returns the global monitor.
func Current() Monitor {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// CaptureException records the error on the global monitor.
func CaptureException(err error, tags map[string]string) {
	Current().CaptureException(err, tags)
}

// Flush flushes buffered events of the global monitor.
func Flush(d time.Duration) {
	Current().Flush(d)
}

// SolveTags is the tag set attached to a failed solve.
func SolveTags(requestID string, status model.SolveStatus, period model.TariffPeriod) map[string]string {
	return map[string]string{
		"request_id":    requestID,
		"status":        status.String(),
		"tariff_period": period.String(),
		"component":     "dispatch",
	}
}
