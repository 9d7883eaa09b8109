package telemetry

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coretel "github.com/kilianp07/cogendispatch/core/telemetry"
	infmqtt "github.com/kilianp07/cogendispatch/infra/mqtt"
)

type fakeSub struct {
	topic   string
	handler infmqtt.Handler
}

func (f *fakeSub) Subscribe(topic string, _ byte, h infmqtt.Handler) error {
	f.topic, f.handler = topic, h
	return nil
}

func newTestSubscriber(t *testing.T, now time.Time) (*Subscriber, *fakeSub) {
	t.Helper()
	cfg := coretel.DefaultConfig()
	cfg.Source = coretel.SourceMQTT
	s, err := NewSubscriber(cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	s.now = func() time.Time { return now }
	fs := &fakeSub{}
	require.NoError(t, s.Start(fs, 1))
	return s, fs
}

func TestSubscriberNoReading(t *testing.T) {
	s, fs := newTestSubscriber(t, time.Now())
	assert.Equal(t, "plant/telemetry", fs.topic)
	_, err := s.Snapshot(context.Background())
	assert.ErrorIs(t, err, coretel.ErrNoTelemetry)
}

func TestSubscriberFlowAndPressure(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s, fs := newTestSubscriber(t, now)
	fs.handler("plant/telemetry", []byte(`{"sulfur_flow":30,"mp_pressure":8.7}`))

	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Equal(t, coretel.SourceMQTT, snap.Source)
	assert.InDelta(t, 30, snap.SulfurFlowTPH, 1e-12)
	assert.InDelta(t, 60, snap.SulfurSteamTPH, 1e-12)
	require.NotNil(t, snap.MPPressureBar)
	assert.InDelta(t, 8.7, *snap.MPPressureBar, 1e-12)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.received.WithLabelValues("ok")))
	assert.Equal(t, float64(now.Unix()), testutil.ToFloat64(s.lastSeen))
}

func TestSubscriberSumsLines(t *testing.T) {
	s, fs := newTestSubscriber(t, time.Now())
	fs.handler("t", []byte(`{"sulfur_lines":{"L1":10,"L2":12.5,"L3":2.5}}`))
	snap, err := s.Snapshot(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 25, snap.SulfurFlowTPH, 1e-12)
	assert.Nil(t, snap.MPPressureBar)
}

func TestSubscriberRejectsInvalid(t *testing.T) {
	s, fs := newTestSubscriber(t, time.Now())
	fs.handler("t", []byte(`nope`))
	fs.handler("t", []byte(`{"mp_pressure":9}`))
	fs.handler("t", []byte(`{"sulfur_flow":-3}`))
	assert.Equal(t, 3.0, testutil.ToFloat64(s.received.WithLabelValues("invalid")))
	_, err := s.Snapshot(context.Background())
	assert.ErrorIs(t, err, coretel.ErrNoTelemetry)
}

func TestSubscriberStaleReading(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s, fs := newTestSubscriber(t, now)
	fs.handler("t", []byte(`{"sulfur_flow":20,"ts":1699999000}`))
	_, err := s.Snapshot(context.Background())
	assert.ErrorIs(t, err, coretel.ErrNoTelemetry)

	fs.handler("t", []byte(`{"sulfur_flow":20,"ts":1699999900}`))
	_, err = s.Snapshot(context.Background())
	assert.NoError(t, err)
}

func TestNewProvider(t *testing.T) {
	static, err := NewProvider(coretel.Config{}, nil, 0, nil)
	require.NoError(t, err)
	assert.IsType(t, &coretel.Static{}, static)

	path := filepath.Join(t.TempDir(), "stream.csv")
	require.NoError(t, os.WriteFile(path, []byte("soufre_l1,soufre_l2\n10,15\n"), 0o644))
	csv, err := NewProvider(coretel.Config{Source: coretel.SourceCSV, CSVPath: path}, nil, 0, nil)
	require.NoError(t, err)
	snap, err := csv.Snapshot(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 25, snap.SulfurFlowTPH, 1e-12)

	_, err = NewProvider(coretel.Config{Source: coretel.SourceMQTT}, nil, 0, nil)
	assert.Error(t, err)

	fs := &fakeSub{}
	mq, err := NewProvider(coretel.Config{Source: coretel.SourceMQTT, Topic: "x/y"}, fs, 0, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.IsType(t, &Subscriber{}, mq)
	assert.Equal(t, "x/y", fs.topic)

	_, err = NewProvider(coretel.Config{Source: "kafka"}, nil, 0, nil)
	assert.Error(t, err)
}
