// Package optimizer answers demand requests: it validates and resolves the
// request, solves the dispatch, prices the naive baseline and derives the
// operator recommendations.
package optimizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/cogendispatch/core/constraints"
	"github.com/kilianp07/cogendispatch/core/cost"
	"github.com/kilianp07/cogendispatch/core/dispatch"
	"github.com/kilianp07/cogendispatch/core/events"
	"github.com/kilianp07/cogendispatch/core/logger"
	"github.com/kilianp07/cogendispatch/core/metrics"
	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/core/monitoring"
	"github.com/kilianp07/cogendispatch/core/physics"
	"github.com/kilianp07/cogendispatch/core/recommend"
	"github.com/kilianp07/cogendispatch/core/reportlog"
	"github.com/kilianp07/cogendispatch/core/telemetry"
	"github.com/kilianp07/cogendispatch/internal/eventbus"
)

// DefaultTimeout bounds a single solve.
const DefaultTimeout = 3 * time.Second

// Solver is the dispatch backend. *dispatch.LPDispatcher implements it.
type Solver interface {
	Solve(p dispatch.Problem) dispatch.Outcome
	Baseline(p dispatch.Problem) model.BaselineSolution
	MaxAdmission(r constraints.Resolved) map[int]float64
	Limits() dispatch.Limits
}

// Service runs optimizations. Its collaborators are set before the first
// call and never change afterwards, so Optimize is safe for concurrent use.
type Service struct {
	solver      Solver
	physics     *physics.Model
	cost        *cost.Model
	recommender *recommend.Engine
	telemetry   telemetry.Provider
	fallback    telemetry.Snapshot
	timeout     time.Duration

	metrics metrics.MetricsSink
	store   reportlog.Store
	bus     eventbus.EventBus
	monitor monitoring.Monitor
	log     logger.Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a Service. Telemetry, metrics, decision log and event
// bus are optional and configured with the Set* methods.
func NewService(solver Solver, pm *physics.Model, cm *cost.Model, rec *recommend.Engine, log logger.Logger) (*Service, error) {
	if solver == nil || pm == nil || cm == nil || rec == nil {
		return nil, fmt.Errorf("optimizer: nil parameter provided to NewService")
	}
	return &Service{
		solver:      solver,
		physics:     pm,
		cost:        cm,
		recommender: rec,
		fallback:    telemetry.DefaultConfig().Fallback(),
		timeout:     DefaultTimeout,
		metrics:     metrics.NopSink{},
		store:       reportlog.NopStore{},
		monitor:     monitoring.Current(),
		log:         logger.OrNop(log),
		now:         time.Now,
		newID:       uuid.NewString,
	}, nil
}

// SetTelemetry sets the plant reading provider and the snapshot used when it
// fails.
func (s *Service) SetTelemetry(p telemetry.Provider, fallback telemetry.Snapshot) {
	s.telemetry = p
	s.fallback = fallback
}

// SetTimeout bounds each solve. Non-positive values restore the default.
func (s *Service) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = DefaultTimeout
	}
	s.timeout = d
}

// SetMetrics sets the metrics sink.
func (s *Service) SetMetrics(sink metrics.MetricsSink) {
	if sink == nil {
		sink = metrics.NopSink{}
	}
	s.metrics = sink
}

// SetStore sets the decision log.
func (s *Service) SetStore(st reportlog.Store) {
	if st == nil {
		st = reportlog.NopStore{}
	}
	s.store = st
}

// SetBus sets the bus receiving lifecycle events.
func (s *Service) SetBus(b eventbus.EventBus) { s.bus = b }

// SetMonitor sets the error monitor.
func (s *Service) SetMonitor(m monitoring.Monitor) {
	if m == nil {
		m = monitoring.NopMonitor{}
	}
	s.monitor = m
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// SetIDFunc overrides the report id generator.
func (s *Service) SetIDFunc(f func() string) { s.newID = f }

// request carries the per-call state between the steps of Optimize.
type request struct {
	id       string
	start    time.Time
	req      model.DemandRequest
	resolved constraints.Resolved
	period   model.TariffPeriod
	tariff   float64
	snap     telemetry.Snapshot
}

// Optimize answers one demand request. Non-optimal solves return an
// *OutcomeError; rejected requests wrap ErrInvalidRequest or
// constraints.ErrInvalidConstraint.
func (s *Service) Optimize(ctx context.Context, req model.DemandRequest) (*model.DispatchReport, error) {
	r := request{id: s.newID(), start: s.now(), req: req}
	if err := Validate(req); err != nil {
		s.reject(r, metrics.RejectInvalidRequest, err)
		return nil, err
	}
	resolved, err := constraints.Resolve(req.Constraints)
	if err != nil {
		s.reject(r, metrics.RejectInvalidConstraint, err)
		return nil, err
	}
	r.resolved = resolved
	s.publish(events.OptimizationRequested{RequestID: r.id, Request: req, Time: r.start})

	hour := r.start.Hour()
	if req.Hour != nil {
		hour = *req.Hour
	}
	r.period = s.cost.PeriodAt(hour)
	if fp := resolved.ForcedPeriod; fp != nil {
		r.period = *fp
	}
	r.tariff = s.cost.TariffFor(r.period)
	r.snap = s.snapshot(ctx)

	problem := dispatch.Problem{
		ElecDemandMW:       req.ElecDemandMW,
		SteamDemandTPH:     req.SteamDemandTPH,
		Tariff:             r.tariff,
		SulfurAvailableTPH: r.snap.SulfurSteamTPH,
		Constraints:        resolved,
		Verbose:            req.Verbose,
	}
	if req.Verbose {
		s.log.Debugw("optimization request", map[string]any{
			"id":          r.id,
			"elec":        req.ElecDemandMW,
			"steam":       req.SteamDemandTPH,
			"period":      r.period.String(),
			"sulfur":      r.snap.SulfurSteamTPH,
			"constraints": resolved.Applied(),
		})
	}

	out, err := s.solve(ctx, problem)
	if err != nil {
		if errors.Is(err, ErrSolveTimeout) {
			s.reject(r, metrics.RejectTimeout, err)
			s.failed(ctx, r, model.StatusError, err.Error(), 0)
		}
		return nil, err
	}
	if out.Status != model.StatusOptimal {
		s.failed(ctx, r, out.Status, out.Reason, out.Duration)
		return nil, &OutcomeError{RequestID: r.id, Status: out.Status, Reason: out.Reason}
	}

	base := s.solver.Baseline(problem)
	recs := s.recommender.Recommend(recommend.Input{
		Solution:       *out.Solution,
		Baseline:       base,
		Period:         r.period,
		Tariff:         r.tariff,
		SteamDemandTPH: req.SteamDemandTPH,
		MaxAdmission:   s.solver.MaxAdmission(resolved),
		GridCapMW:      resolved.GridCap(s.solver.Limits().MaxGridImportMW),
		BoilerCost:     s.cost.UnitCost(cost.SourceBoiler),
		MPPressureBar:  r.snap.MPPressureBar,
	})
	report := s.report(r, *out.Solution, base, recs, out.Duration)
	s.completed(ctx, r, report, out.Duration)
	return report, nil
}

// snapshot reads telemetry once, falling back to the configured reading.
func (s *Service) snapshot(ctx context.Context) telemetry.Snapshot {
	snap := s.fallback
	if s.telemetry != nil {
		got, err := s.telemetry.Snapshot(ctx)
		if err == nil {
			snap = got
		} else {
			s.log.Warnf("telemetry unavailable, using fallback: %v", err)
		}
	}
	if snap.Time.IsZero() {
		snap.Time = s.now()
	}
	if tr, ok := s.metrics.(metrics.TelemetryRecorder); ok {
		if err := tr.RecordTelemetry(metrics.TelemetryEvent{
			SulfurFlowTPH:  snap.SulfurFlowTPH,
			SulfurSteamTPH: snap.SulfurSteamTPH,
			MPPressureBar:  snap.MPPressureBar,
			Source:         snap.Source,
			Time:           snap.Time,
		}); err != nil {
			s.log.Errorf("telemetry metrics error: %v", err)
		}
	}
	return snap
}

// solve runs the solver under the wall-clock guard. A panic in the solver is
// turned into an Error outcome.
func (s *Service) solve(ctx context.Context, p dispatch.Problem) (dispatch.Outcome, error) {
	ch := make(chan dispatch.Outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				s.monitor.CapturePanic(rec, map[string]string{"component": "solver"})
				ch <- dispatch.Outcome{Status: model.StatusError, Reason: fmt.Sprintf("solver panic: %v", rec)}
			}
		}()
		ch <- s.solver.Solve(p)
	}()
	timer := time.NewTimer(s.timeout)
	defer timer.Stop()
	select {
	case out := <-ch:
		return out, nil
	case <-timer.C:
		return dispatch.Outcome{}, fmt.Errorf("%w: no answer within %s", ErrSolveTimeout, s.timeout)
	case <-ctx.Done():
		return dispatch.Outcome{}, ctx.Err()
	}
}

func (s *Service) report(r request, sol model.DispatchSolution, base model.BaselineSolution, recs []model.Recommendation, d time.Duration) *model.DispatchReport {
	savings := base.TotalCost - sol.TotalCost
	var pct float64
	if base.TotalCost > 0 {
		pct = savings / base.TotalCost * 100
	}
	if recs == nil {
		recs = []model.Recommendation{}
	}
	return &model.DispatchReport{
		ID:            r.id,
		Status:        model.StatusOptimal,
		Units:         sol.Units,
		GridImportMW:  sol.GridImportMW,
		BoilerTPH:     sol.BoilerTPH,
		SulfurTPH:     sol.SulfurTPH,
		TotalCost:     sol.TotalCost,
		CostBreakdown: sol.Cost,
		BaselineCost:  base.TotalCost,
		Baseline: model.BaselineSummary{
			GridImportMW:   base.GridImportMW,
			BoilerTPH:      base.BoilerTPH,
			GTALoadPercent: base.GTALoadPercent,
			WithinLimits:   base.WithinLimits,
		},
		Savings:         savings,
		SavingsPercent:  pct,
		TariffPeriod:    r.period,
		Tariff:          r.tariff,
		Recommendations: recs,
		Demands: model.Demands{
			Electricity: r.req.ElecDemandMW,
			Steam:       r.req.SteamDemandTPH,
		},
		ConstraintsApplied: r.resolved.Applied(),
		Telemetry: model.TelemetryEcho{
			SulfurFlowTPH:  r.snap.SulfurFlowTPH,
			SulfurSteamTPH: r.snap.SulfurSteamTPH,
			MPPressureBar:  r.snap.MPPressureBar,
			Source:         r.snap.Source,
		},
		ModelVersion: s.physics.Version(),
		SolveMS:      float64(d.Microseconds()) / 1000,
		Timestamp:    r.start,
	}
}
