package app

import (
	"fmt"
	"time"

	"github.com/kilianp07/cogendispatch/config"
	"github.com/kilianp07/cogendispatch/core/cost"
	"github.com/kilianp07/cogendispatch/core/dispatch"
	"github.com/kilianp07/cogendispatch/core/optimizer"
	"github.com/kilianp07/cogendispatch/core/physics"
	"github.com/kilianp07/cogendispatch/core/recommend"
	"github.com/kilianp07/cogendispatch/infra/logger"
)

// NewOptimizer builds the optimization service from the plant, tariff,
// limits, solver and recommendation sections. Side effects and telemetry
// are left at their defaults.
func NewOptimizer(cfg *config.Config) (*optimizer.Service, error) {
	pm, err := physics.New(cfg.Plant)
	if err != nil {
		return nil, fmt.Errorf("physics: %w", err)
	}
	cm, err := cost.New(cfg.Tariff)
	if err != nil {
		return nil, fmt.Errorf("tariff: %w", err)
	}
	solver := dispatch.NewLPDispatcher(pm, cm, cfg.Limits, cfg.Solver, logger.New("dispatch"))
	svc, err := optimizer.NewService(solver, pm, cm, recommend.New(cfg.Recommend), logger.New("optimizer"))
	if err != nil {
		return nil, err
	}
	svc.SetTimeout(time.Duration(cfg.Solver.TimeoutMS) * time.Millisecond)
	svc.SetTelemetry(nil, cfg.Telemetry.Fallback())
	return svc, nil
}
