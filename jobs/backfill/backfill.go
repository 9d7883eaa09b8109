// Package backfill replays the decision log into metrics sinks, e.g. to
// rebuild the daily KPI database.
package backfill

import (
	coremetrics "github.com/kilianp07/cogendispatch/core/metrics"
	"github.com/kilianp07/cogendispatch/core/reportlog"
)

// Event converts a decision record into the event a sink would have seen.
func Event(rec reportlog.Record) coremetrics.OptimizationEvent {
	ev := coremetrics.OptimizationEvent{
		RequestID:      rec.ID,
		Status:         rec.Status,
		ElecDemandMW:   rec.Request.ElecDemandMW,
		SteamDemandTPH: rec.Request.SteamDemandTPH,
		Time:           rec.Timestamp,
	}
	if r := rec.Report; r != nil {
		ev.Period = r.TariffPeriod
		ev.TotalCost = r.TotalCost
		ev.BaselineCost = r.BaselineCost
		ev.Savings = r.Savings
		ev.GridImportMW = r.GridImportMW
		ev.BoilerTPH = r.BoilerTPH
		ev.SulfurTPH = r.SulfurTPH
		ev.Units = r.Units
		ev.Recommendations = len(r.Recommendations)
		ev.TelemetrySource = r.Telemetry.Source
	}
	return ev
}

// Backfill records every decision in sink. Sinks that aggregate, such as the
// KPI store, should start empty or runs are counted twice.
func Backfill(sink coremetrics.MetricsSink, recs []reportlog.Record) (int, error) {
	for i, rec := range recs {
		if err := sink.RecordOptimization(Event(rec)); err != nil {
			return i, err
		}
	}
	return len(recs), nil
}
