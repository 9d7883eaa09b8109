package optimizer

import (
	"context"
	"errors"
	"time"

	"github.com/kilianp07/cogendispatch/core/events"
	"github.com/kilianp07/cogendispatch/core/metrics"
	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/core/monitoring"
	"github.com/kilianp07/cogendispatch/core/reportlog"
)

// Side effects never change the result of Optimize; their failures are only
// logged.

func (s *Service) publish(ev any) {
	if s.bus != nil {
		s.bus.Publish(ev)
	}
}

func (s *Service) reject(r request, kind string, err error) {
	s.log.Warnf("request %s rejected: %v", r.id, err)
	if rr, ok := s.metrics.(metrics.RejectionRecorder); ok {
		if merr := rr.RecordRejection(metrics.RejectionEvent{
			RequestID: r.id,
			Kind:      kind,
			Reason:    err.Error(),
			Time:      r.start,
		}); merr != nil {
			s.log.Errorf("rejection metrics error: %v", merr)
		}
	}
	if kind != metrics.RejectTimeout {
		s.publish(events.OptimizationFailed{RequestID: r.id, Rejected: true, Reason: err.Error(), Time: r.start})
	}
}

func (s *Service) failed(ctx context.Context, r request, status model.SolveStatus, reason string, d time.Duration) {
	s.log.Warnf("request %s: dispatch %s: %s", r.id, status, reason)
	s.record(metrics.OptimizationEvent{
		RequestID:       r.id,
		Status:          status,
		Period:          r.period,
		ElecDemandMW:    r.req.ElecDemandMW,
		SteamDemandTPH:  r.req.SteamDemandTPH,
		SolveDuration:   d,
		TelemetrySource: r.snap.Source,
		Time:            r.start,
	})
	s.append(ctx, reportlog.Record{ID: r.id, Timestamp: r.start, Request: r.req, Status: status, Reason: reason})
	s.publish(events.OptimizationFailed{RequestID: r.id, Status: status, Reason: reason, Time: r.start})
	if status == model.StatusError || status == model.StatusUnbounded {
		s.monitor.CaptureException(errors.New(reason), monitoring.SolveTags(r.id, status, r.period))
	}
}

func (s *Service) completed(ctx context.Context, r request, rep *model.DispatchReport, d time.Duration) {
	s.log.Infof("request %s: %s, cost %.0f DH/h, savings %.0f DH/h (%.1f%%)",
		r.id, rep.TariffPeriod, rep.TotalCost, rep.Savings, rep.SavingsPercent)
	s.record(metrics.OptimizationEvent{
		RequestID:       r.id,
		Status:          rep.Status,
		Period:          rep.TariffPeriod,
		ElecDemandMW:    r.req.ElecDemandMW,
		SteamDemandTPH:  r.req.SteamDemandTPH,
		TotalCost:       rep.TotalCost,
		BaselineCost:    rep.BaselineCost,
		Savings:         rep.Savings,
		GridImportMW:    rep.GridImportMW,
		BoilerTPH:       rep.BoilerTPH,
		SulfurTPH:       rep.SulfurTPH,
		Units:           rep.Units,
		Recommendations: len(rep.Recommendations),
		SolveDuration:   d,
		TelemetrySource: rep.Telemetry.Source,
		Time:            r.start,
	})
	s.append(ctx, reportlog.Record{ID: r.id, Timestamp: r.start, Request: r.req, Status: rep.Status, Report: rep})
	s.publish(events.OptimizationCompleted{Report: rep})
}

func (s *Service) record(ev metrics.OptimizationEvent) {
	if err := s.metrics.RecordOptimization(ev); err != nil {
		s.log.Errorf("optimization metrics error: %v", err)
	}
}

func (s *Service) append(ctx context.Context, rec reportlog.Record) {
	if err := s.store.Append(context.WithoutCancel(ctx), rec); err != nil {
		s.log.Errorf("decision log append failed: %v", err)
	}
}
