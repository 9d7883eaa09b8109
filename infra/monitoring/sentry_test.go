package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/cogendispatch/core/model"
	coremon "github.com/kilianp07/cogendispatch/core/monitoring"
)

func TestNewSentryMonitorWithoutDSN(t *testing.T) {
	m, err := NewSentryMonitor(coremon.Config{}, nil)
	require.NoError(t, err)
	assert.IsType(t, coremon.NopMonitor{}, m)
}

func TestNewSentryMonitorRejectsBadDSN(t *testing.T) {
	_, err := NewSentryMonitor(coremon.Config{DSN: "::not a dsn"}, nil)
	assert.ErrorContains(t, err, "sentry")
}

func TestSentryMonitorCaptures(t *testing.T) {
	m, err := NewSentryMonitor(coremon.Config{DSN: "https://public@127.0.0.1:1/42", Environment: "test"},
		map[string]string{"model_version": "annexe3-2025"})
	require.NoError(t, err)
	assert.NotPanics(t, func() {
		m.CaptureException(nil, nil)
		m.CaptureException(errors.New("lp: singular"), coremon.SolveTags("r1", model.StatusError, model.PeriodPeak))
		m.CapturePanic("index out of range", map[string]string{"component": "solver"})
		m.Flush(10 * time.Millisecond)
	})
}
