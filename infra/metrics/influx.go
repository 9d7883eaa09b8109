package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/cogendispatch/core/metrics"
	"github.com/kilianp07/cogendispatch/infra/logger"
)

// InfluxSink writes optimization runs to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordOptimization writes one optimization point and, for optimal runs,
// one setpoint point per unit.
func (s *InfluxSink) RecordOptimization(ev coremetrics.OptimizationEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("optimization").
		AddTag("request_id", ev.RequestID).
		AddTag("status", ev.Status.String()).
		AddTag("period", ev.Period.String()).
		AddTag("telemetry_source", ev.TelemetrySource).
		AddField("elec_demand_mw", round3(ev.ElecDemandMW)).
		AddField("steam_demand_tph", round3(ev.SteamDemandTPH)).
		AddField("total_cost", round3(ev.TotalCost)).
		AddField("baseline_cost", round3(ev.BaselineCost)).
		AddField("savings", round3(ev.Savings)).
		AddField("grid_import_mw", round3(ev.GridImportMW)).
		AddField("boiler_tph", round3(ev.BoilerTPH)).
		AddField("sulfur_tph", round3(ev.SulfurTPH)).
		AddField("recommendations", ev.Recommendations).
		AddField("solve_ms", round3(ev.SolveDuration.Seconds()*1000)).
		SetTime(ev.Time)
	points := []*write.Point{p}
	for _, u := range ev.Units {
		points = append(points, write.NewPointWithMeasurement("unit_setpoint").
			AddTag("request_id", ev.RequestID).
			AddTag("unit", strconv.Itoa(u.UnitID)).
			AddTag("status", u.Status.String()).
			AddField("admission_tph", round3(u.AdmissionTPH)).
			AddField("extraction_tph", round3(u.ExtractionTPH)).
			AddField("power_mw", round3(u.PowerMW)).
			SetTime(ev.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordRejection writes a rejected request.
func (s *InfluxSink) RecordRejection(ev coremetrics.RejectionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("rejection").
		AddTag("request_id", ev.RequestID).
		AddTag("kind", ev.Kind).
		AddField("reason", ev.Reason).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordTelemetry writes the plant reading used by a solve.
func (s *InfluxSink) RecordTelemetry(ev coremetrics.TelemetryEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("telemetry").
		AddTag("source", ev.Source).
		AddField("sulfur_flow_tph", round3(ev.SulfurFlowTPH)).
		AddField("sulfur_steam_tph", round3(ev.SulfurSteamTPH))
	if ev.MPPressureBar != nil {
		p = p.AddField("mp_pressure_bar", round3(*ev.MPPressureBar))
	}
	p = p.SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the HTTP client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
