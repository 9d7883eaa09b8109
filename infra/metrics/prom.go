package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/cogendispatch/core/metrics"
	"github.com/kilianp07/cogendispatch/core/model"
)

// PromSink exposes optimization runs as Prometheus metrics.
type PromSink struct {
	runs       *prometheus.CounterVec
	rejections *prometheus.CounterVec
	duration   prometheus.Histogram
	cost       *prometheus.GaugeVec
	supply     *prometheus.GaugeVec
	unitPower  *prometheus.GaugeVec
	unitAdm    *prometheus.GaugeVec
	sulfurFlow prometheus.Gauge
	pressure   prometheus.Gauge
	readings   *prometheus.CounterVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cogen_optimizations_total",
			Help: "Optimization requests solved, by status and tariff period",
		}, []string{"status", "period"}),
		rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cogen_rejections_total",
			Help: "Requests rejected before a solution was produced",
		}, []string{"kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cogen_solve_duration_seconds",
			Help:    "Wall time of the LP solve",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 3},
		}),
		cost: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cogen_hourly_cost_dh",
			Help: "Hourly cost of the last optimal dispatch in DH/h",
		}, []string{"kind"}),
		supply: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cogen_supply",
			Help: "Grid import (MW), boiler and sulfur steam (T/h) of the last optimal dispatch",
		}, []string{"source"}),
		unitPower: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cogen_unit_power_mw",
			Help: "Power setpoint per GTA",
		}, []string{"unit"}),
		unitAdm: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "cogen_unit_admission_tph",
			Help: "HP steam admission setpoint per GTA",
		}, []string{"unit"}),
		sulfurFlow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cogen_sulfur_flow_tph",
			Help: "Sulfur throughput used by the last solve",
		}),
		pressure: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "cogen_mp_pressure_bar",
			Help: "Last measured MP header pressure",
		}),
		readings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cogen_telemetry_readings_total",
			Help: "Telemetry snapshots used, by source",
		}, []string{"source"}),
	}
	var err error
	register := func(c prometheus.Collector) prometheus.Collector {
		if err != nil {
			return c
		}
		if rerr := reg.Register(c); rerr != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(rerr, &are) {
				return are.ExistingCollector
			}
			err = rerr
		}
		return c
	}
	s.runs = register(s.runs).(*prometheus.CounterVec)
	s.rejections = register(s.rejections).(*prometheus.CounterVec)
	s.duration = register(s.duration).(prometheus.Histogram)
	s.cost = register(s.cost).(*prometheus.GaugeVec)
	s.supply = register(s.supply).(*prometheus.GaugeVec)
	s.unitPower = register(s.unitPower).(*prometheus.GaugeVec)
	s.unitAdm = register(s.unitAdm).(*prometheus.GaugeVec)
	s.sulfurFlow = register(s.sulfurFlow).(prometheus.Gauge)
	s.pressure = register(s.pressure).(prometheus.Gauge)
	s.readings = register(s.readings).(*prometheus.CounterVec)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// RecordOptimization counts the run. Gauges follow optimal runs only.
func (s *PromSink) RecordOptimization(ev coremetrics.OptimizationEvent) error {
	s.runs.WithLabelValues(ev.Status.String(), ev.Period.String()).Inc()
	s.duration.Observe(ev.SolveDuration.Seconds())
	if ev.Status != model.StatusOptimal {
		return nil
	}
	s.cost.WithLabelValues("optimized").Set(ev.TotalCost)
	s.cost.WithLabelValues("baseline").Set(ev.BaselineCost)
	s.cost.WithLabelValues("savings").Set(ev.Savings)
	s.supply.WithLabelValues("grid").Set(ev.GridImportMW)
	s.supply.WithLabelValues("boiler").Set(ev.BoilerTPH)
	s.supply.WithLabelValues("sulfur").Set(ev.SulfurTPH)
	for _, u := range ev.Units {
		id := strconv.Itoa(u.UnitID)
		s.unitPower.WithLabelValues(id).Set(u.PowerMW)
		s.unitAdm.WithLabelValues(id).Set(u.AdmissionTPH)
	}
	return nil
}

// RecordRejection counts rejected requests by kind.
func (s *PromSink) RecordRejection(ev coremetrics.RejectionEvent) error {
	s.rejections.WithLabelValues(ev.Kind).Inc()
	return nil
}

// RecordTelemetry tracks the plant reading used by a solve.
func (s *PromSink) RecordTelemetry(ev coremetrics.TelemetryEvent) error {
	s.readings.WithLabelValues(ev.Source).Inc()
	s.sulfurFlow.Set(ev.SulfurFlowTPH)
	if ev.MPPressureBar != nil {
		s.pressure.Set(*ev.MPPressureBar)
	}
	return nil
}
