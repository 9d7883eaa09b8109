package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/cogendispatch/config"
	"github.com/kilianp07/cogendispatch/core/events"
	coremetrics "github.com/kilianp07/cogendispatch/core/metrics"
	"github.com/kilianp07/cogendispatch/core/model"
	coremon "github.com/kilianp07/cogendispatch/core/monitoring"
	"github.com/kilianp07/cogendispatch/core/optimizer"
	"github.com/kilianp07/cogendispatch/core/reportlog"
	coretel "github.com/kilianp07/cogendispatch/core/telemetry"
	"github.com/kilianp07/cogendispatch/infra/logger"
	"github.com/kilianp07/cogendispatch/infra/metrics"
	"github.com/kilianp07/cogendispatch/infra/monitoring"
	"github.com/kilianp07/cogendispatch/infra/mqtt"
	"github.com/kilianp07/cogendispatch/infra/telemetry"
	"github.com/kilianp07/cogendispatch/internal/eventbus"
)

// Options tune how much of the stack New brings up.
type Options struct {
	// Connect opens the MQTT connection when a broker is configured.
	Connect bool
	// Registerer receives the telemetry collectors. Nil means the default registry.
	Registerer prometheus.Registerer
}

// Service wires the optimizer to its sinks, store, telemetry and transport.
type Service struct {
	cfg       *config.Config
	opt       *optimizer.Service
	store     reportlog.Store
	sink      coremetrics.MetricsSink
	bus       *eventbus.Bus
	monitor   coremon.Monitor
	client    *mqtt.PahoClient
	responder *mqtt.Responder
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts Options) (*Service, error) {
	if err := logger.Configure(cfg.Logging); err != nil {
		return nil, err
	}
	logg := logger.New("service")
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry, map[string]string{"model_version": cfg.Plant.Version})
	if err != nil {
		logg.Warnf("sentry disabled: %v", err)
		mon = coremon.NopMonitor{}
	}
	coremon.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := reportlog.New(cfg.ReportLog)
	if err != nil {
		return nil, fmt.Errorf("decision log: %w", err)
	}

	svc := &Service{cfg: cfg, store: store, sink: sink, bus: eventbus.New(eventbus.WithBuffer(64)), monitor: mon, log: logg}
	if opts.Connect && cfg.MQTT.Broker != "" {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.client = client
	}

	opt, err := NewOptimizer(cfg)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	var sub mqtt.Subscriber
	if svc.client != nil {
		sub = svc.client
	}
	switch {
	case cfg.Telemetry.Source == coretel.SourceMQTT && sub == nil:
		logg.Warnf("telemetry source mqtt without a connection, using fallback")
	default:
		prov, err := telemetry.NewProvider(cfg.Telemetry, sub, svc.qos(mqtt.QoSTelemetry), reg)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("telemetry: %w", err)
		}
		opt.SetTelemetry(prov, cfg.Telemetry.Fallback())
	}
	opt.SetMetrics(sink)
	opt.SetStore(store)
	opt.SetBus(svc.bus)
	opt.SetMonitor(mon)
	svc.opt = opt

	if svc.client != nil {
		svc.responder = mqtt.NewResponder(svc.client, opt, cfg.MQTT.ReportTopic, svc.qos(mqtt.QoSReport), 0, logger.New("responder"))
	}
	return svc, nil
}

// Optimizer returns the wired optimization service.
func (s *Service) Optimizer() *optimizer.Service { return s.opt }

// Store returns the decision log.
func (s *Service) Store() reportlog.Store { return s.store }

// Publish sends a report on the configured report topic.
func (s *Service) Publish(rep *model.DispatchReport) error {
	if s.responder == nil {
		return errors.New("mqtt is not connected")
	}
	return s.responder.PublishReport(rep)
}

// Run serves MQTT requests and the metrics endpoint until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.watch(ctx)
	if s.cfg.Metrics.Address != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.Address, prometheus.DefaultGatherer); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	if s.responder == nil {
		s.log.Warnf("no mqtt broker configured, serving metrics only")
		<-ctx.Done()
		return nil
	}
	s.log.Infof("listening for dispatch requests on %s", s.cfg.MQTT.RequestTopic)
	return s.responder.Listen(ctx, s.client, s.cfg.MQTT.RequestTopic, s.qos(mqtt.QoSRequest))
}

// watch logs the optimization lifecycle.
func (s *Service) watch(ctx context.Context) {
	ch := s.bus.Subscribe()
	defer s.bus.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			switch e := ev.(type) {
			case events.OptimizationCompleted:
				s.log.Infof("dispatch %s: %s cost=%.1f savings=%.1f", e.Report.ID, e.Report.Status, e.Report.TotalCost, e.Report.Savings)
			case events.OptimizationFailed:
				if e.Rejected {
					s.log.Warnf("dispatch %s rejected: %s", e.RequestID, e.Reason)
				} else {
					s.log.Warnf("dispatch %s: %s: %s", e.RequestID, e.Status, e.Reason)
				}
			}
		}
	}
}

func (s *Service) qos(key string) byte {
	if s.client == nil {
		return 0
	}
	return s.client.QoS(key)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	if s.client != nil {
		s.client.Disconnect()
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	switch c := s.sink.(type) {
	case interface{ Close() error }:
		errs = append(errs, c.Close())
	case interface{ Close() }:
		c.Close()
	}
	if n := s.bus.Dropped(); n > 0 {
		s.log.Warnf("%d lifecycle events dropped by slow subscribers", n)
	}
	s.bus.Close()
	s.monitor.Flush(2 * time.Second)
	return errors.Join(errs...)
}
