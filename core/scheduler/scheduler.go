package scheduler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sort"

	"github.com/kilianp07/cogendispatch/core/model"
	"github.com/kilianp07/cogendispatch/core/optimizer"
)

// Slot is the demand of one hour.
type Slot struct {
	Hour           int            `json:"hour" yaml:"hour"`
	ElecDemandMW   float64        `json:"elec_demand" yaml:"elec_demand"`
	SteamDemandTPH float64        `json:"steam_demand" yaml:"steam_demand"`
	Constraints    map[string]any `json:"constraints,omitempty" yaml:"constraints,omitempty"`
}

// Profile is a day of hourly demand. Constraints apply to every hour;
// a slot's own constraints override them key by key.
type Profile struct {
	Name        string         `json:"name" yaml:"name"`
	Constraints map[string]any `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	Hours       []Slot         `json:"hours" yaml:"hours"`
}

// Validate checks that hours are within 0..23 and not repeated.
func (p Profile) Validate() error {
	if len(p.Hours) == 0 {
		return errors.New("profile has no hours")
	}
	seen := make(map[int]bool, len(p.Hours))
	for _, s := range p.Hours {
		if s.Hour < 0 || s.Hour > 23 {
			return fmt.Errorf("hour %d outside 0..23", s.Hour)
		}
		if seen[s.Hour] {
			return fmt.Errorf("hour %d listed twice", s.Hour)
		}
		seen[s.Hour] = true
	}
	return nil
}

// Requests returns one demand request per slot, ordered by hour.
func (p Profile) Requests() []model.DemandRequest {
	slots := append([]Slot(nil), p.Hours...)
	sort.Slice(slots, func(i, j int) bool { return slots[i].Hour < slots[j].Hour })
	out := make([]model.DemandRequest, len(slots))
	for i, s := range slots {
		h := s.Hour
		var raw map[string]any
		if len(p.Constraints) > 0 || len(s.Constraints) > 0 {
			raw = make(map[string]any, len(p.Constraints)+len(s.Constraints))
			maps.Copy(raw, p.Constraints)
			maps.Copy(raw, s.Constraints)
		}
		out[i] = model.DemandRequest{
			ElecDemandMW:   s.ElecDemandMW,
			SteamDemandTPH: s.SteamDemandTPH,
			Hour:           &h,
			Constraints:    raw,
		}
	}
	return out
}

// Batcher solves independent requests. *optimizer.Service implements it.
type Batcher interface {
	OptimizeBatch(ctx context.Context, reqs []model.DemandRequest, workers int) ([]optimizer.BatchResult, error)
}

// Entry is the outcome of one hour.
type Entry struct {
	Hour   int                   `json:"hour"`
	Status model.SolveStatus     `json:"status"`
	Report *model.DispatchReport `json:"report,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// Plan is a day of dispatch. Totals cover optimal hours only.
type Plan struct {
	Name         string  `json:"name,omitempty"`
	Entries      []Entry `json:"entries"`
	TotalCost    float64 `json:"total_cost"`
	BaselineCost float64 `json:"baseline_cost"`
	Savings      float64 `json:"savings"`
	Unsolved     int     `json:"unsolved"`
}

// Reports returns the reports of the optimal hours in hour order.
func (p *Plan) Reports() []*model.DispatchReport {
	out := make([]*model.DispatchReport, 0, len(p.Entries))
	for _, e := range p.Entries {
		if e.Report != nil {
			out = append(out, e.Report)
		}
	}
	return out
}

// Build solves every hour of the profile with at most workers in parallel.
func Build(ctx context.Context, b Batcher, p Profile, workers int) (*Plan, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	reqs := p.Requests()
	results, err := b.OptimizeBatch(ctx, reqs, workers)
	if err != nil {
		return nil, err
	}
	plan := &Plan{Name: p.Name, Entries: make([]Entry, len(results))}
	for i, res := range results {
		e := Entry{Hour: *reqs[i].Hour, Report: res.Report}
		if res.Err != nil {
			e.Error = res.Err.Error()
			e.Status = model.StatusError
			var oe *optimizer.OutcomeError
			if errors.As(res.Err, &oe) {
				e.Status = oe.Status
			}
			plan.Unsolved++
		} else {
			e.Status = res.Report.Status
			plan.TotalCost += res.Report.TotalCost
			plan.BaselineCost += res.Report.BaselineCost
			plan.Savings += res.Report.Savings
		}
		plan.Entries[i] = e
	}
	return plan, nil
}
