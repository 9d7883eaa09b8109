package optimizer

import (
	"fmt"
	"math"

	"github.com/kilianp07/cogendispatch/core/model"
)

// Accepted request ranges.
const (
	MaxElecDemandMW   = 150.0
	MaxSteamDemandTPH = 600.0
)

// Validate checks the demand ranges and the hour. Constraints are checked
// separately by the resolver.
func Validate(req model.DemandRequest) error {
	if err := inRange("elec_demand", req.ElecDemandMW, MaxElecDemandMW); err != nil {
		return err
	}
	if err := inRange("steam_demand", req.SteamDemandTPH, MaxSteamDemandTPH); err != nil {
		return err
	}
	if req.Hour != nil && (*req.Hour < 0 || *req.Hour > 23) {
		return fmt.Errorf("%w: hour %d must be in [0, 23]", ErrInvalidRequest, *req.Hour)
	}
	return nil
}

func inRange(name string, v, upper float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s must be a finite number", ErrInvalidRequest, name)
	}
	if v < 0 || v > upper {
		return fmt.Errorf("%w: %s %.2f must be in [0, %.0f]", ErrInvalidRequest, name, v, upper)
	}
	return nil
}
