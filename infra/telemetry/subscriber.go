// Package telemetry receives plant readings pushed over MQTT and builds the
// configured telemetry provider.
package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	coretel "github.com/kilianp07/cogendispatch/core/telemetry"
	"github.com/kilianp07/cogendispatch/infra/logger"
	infmqtt "github.com/kilianp07/cogendispatch/infra/mqtt"
)

// Message is the JSON document pushed by the plant. Either SulfurFlowTPH or
// SulfurLines is set; lines are summed.
type Message struct {
	SulfurFlowTPH *float64           `json:"sulfur_flow"`
	SulfurLines   map[string]float64 `json:"sulfur_lines"`
	MPPressureBar *float64           `json:"mp_pressure"`
	TS            *int64             `json:"ts"`
}

// Subscriber keeps the latest reading received on the telemetry topic.
// Readings older than the configured max age are not served.
type Subscriber struct {
	steamPerSulfur float64
	maxAge         time.Duration
	topic          string
	log            logger.Logger
	now            func() time.Time

	mu   sync.RWMutex
	last coretel.Snapshot
	has  bool

	received *prometheus.CounterVec
	lastSeen prometheus.Gauge
}

// NewSubscriber creates a Subscriber. Metrics are registered on reg when it
// is not nil.
func NewSubscriber(cfg coretel.Config, reg prometheus.Registerer) (*Subscriber, error) {
	cfg.SetDefaults()
	s := &Subscriber{
		steamPerSulfur: cfg.SteamPerSulfur,
		maxAge:         cfg.MaxAge(),
		topic:          cfg.Topic,
		log:            logger.New("telemetry"),
		now:            time.Now,
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cogen_telemetry_messages_total",
			Help: "Telemetry messages received over MQTT, by result",
		}, []string{"result"}),
		lastSeen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cogen_telemetry_last_message_timestamp_seconds",
			Help: "Unix timestamp of the last valid telemetry message",
		}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{s.received, s.lastSeen} {
			if err := reg.Register(c); err != nil {
				var are prometheus.AlreadyRegisteredError
				if !errors.As(err, &are) {
					return nil, err
				}
			}
		}
	}
	return s, nil
}

// Start subscribes to the telemetry topic.
func (s *Subscriber) Start(sub infmqtt.Subscriber, qos byte) error {
	return sub.Subscribe(s.topic, qos, s.onMessage)
}

func (s *Subscriber) onMessage(topic string, payload []byte) {
	if err := s.process(payload); err != nil {
		s.received.WithLabelValues("invalid").Inc()
		s.log.Errorf("telemetry on %s: %v", topic, err)
		return
	}
	s.received.WithLabelValues("ok").Inc()
}

func (s *Subscriber) process(payload []byte) error {
	var msg Message
	if err := json.Unmarshal(payload, &msg); err != nil {
		return err
	}
	var flow float64
	switch {
	case msg.SulfurFlowTPH != nil:
		flow = *msg.SulfurFlowTPH
	case len(msg.SulfurLines) > 0:
		for _, v := range msg.SulfurLines {
			flow += v
		}
	default:
		return fmt.Errorf("no sulfur flow in message")
	}
	if math.IsNaN(flow) || math.IsInf(flow, 0) || flow < 0 {
		return fmt.Errorf("invalid sulfur flow %v", flow)
	}
	ts := s.now()
	if msg.TS != nil {
		ts = time.Unix(*msg.TS, 0)
	}
	snap := coretel.Snapshot{
		SulfurFlowTPH:  flow,
		SulfurSteamTPH: flow * s.steamPerSulfur,
		MPPressureBar:  msg.MPPressureBar,
		Source:         coretel.SourceMQTT,
		Time:           ts,
	}
	s.mu.Lock()
	s.last, s.has = snap, true
	s.mu.Unlock()
	s.lastSeen.Set(float64(ts.Unix()))
	return nil
}

// Snapshot implements the telemetry provider. It fails with
// ErrNoTelemetry when nothing fresh was received.
func (s *Subscriber) Snapshot(ctx context.Context) (coretel.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return coretel.Snapshot{}, err
	}
	s.mu.RLock()
	snap, has := s.last, s.has
	s.mu.RUnlock()
	if !has {
		return coretel.Snapshot{}, coretel.ErrNoTelemetry
	}
	if age := s.now().Sub(snap.Time); s.maxAge > 0 && age > s.maxAge {
		return coretel.Snapshot{}, fmt.Errorf("%w: last reading is %s old", coretel.ErrNoTelemetry, age.Truncate(time.Second))
	}
	return snap, nil
}
