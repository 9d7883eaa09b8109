package scenarios

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/core/optimizer"
)

const tolerance = 1e-6

// Optimizer is the service a scenario runs against.
type Optimizer interface {
	Optimize(ctx context.Context, req model.DemandRequest) (*model.DispatchReport, error)
}

// Result is the outcome of one scenario run.
type Result struct {
	Scenario Scenario
	Status   model.SolveStatus
	Report   *model.DispatchReport
	Err      error
	// Failures lists unmet expectations; empty means the run passed.
	Failures []string
}

// Passed reports whether every expectation held.
func (r Result) Passed() bool { return len(r.Failures) == 0 }

// Run optimizes the scenario request and checks its expectations.
func Run(ctx context.Context, opt Optimizer, sc Scenario) Result {
	res := Result{Scenario: sc}
	rep, err := opt.Optimize(ctx, sc.Request.ToModel())
	res.Report, res.Err = rep, err

	var oe *optimizer.OutcomeError
	switch {
	case err == nil:
		res.Status = rep.Status
	case errors.As(err, &oe):
		res.Status = oe.Status
	default:
		res.Status = model.StatusError
		if sc.Expected.Status == "" {
			res.Failures = append(res.Failures, err.Error())
		}
	}
	res.Failures = append(res.Failures, check(sc.Expected, res.Status, rep)...)
	return res
}

// RunAll runs every scenario in order.
func RunAll(ctx context.Context, opt Optimizer, list []Scenario) []Result {
	out := make([]Result, 0, len(list))
	for _, sc := range list {
		out = append(out, Run(ctx, opt, sc))
	}
	return out
}

func check(exp Expected, status model.SolveStatus, rep *model.DispatchReport) []string {
	var fails []string
	if exp.Status != "" {
		var want model.SolveStatus
		_ = want.UnmarshalText([]byte(exp.Status))
		if want != status {
			fails = append(fails, fmt.Sprintf("status %s, want %s", status, want))
		}
	}
	if rep == nil {
		return fails
	}
	var steam float64
	for _, u := range rep.Units {
		steam += u.ExtractionTPH
		if u.ExtractionTPH > u.AdmissionTPH+tolerance {
			fails = append(fails, fmt.Sprintf("unit %d extraction %.3f above admission %.3f", u.UnitID, u.ExtractionTPH, u.AdmissionTPH))
		}
		if limit, ok := exp.MaxAdmission[u.UnitID]; ok && u.AdmissionTPH > limit+tolerance {
			fails = append(fails, fmt.Sprintf("unit %d admission %.3f above %.3f", u.UnitID, u.AdmissionTPH, limit))
		}
	}
	if rep.GridImportMW < -tolerance {
		fails = append(fails, fmt.Sprintf("negative grid import %.3f", rep.GridImportMW))
	}
	steam += rep.BoilerTPH + rep.SulfurTPH
	if exp.MinSteam > 0 && steam < exp.MinSteam-tolerance {
		fails = append(fails, fmt.Sprintf("steam %.3f below %.3f", steam, exp.MinSteam))
	}
	return fails
}
