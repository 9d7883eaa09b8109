package events

import (
	"time"

	"github.com/kilianp07/cogendispatch/core/model"
)

// OptimizationRequested is published once a request passed validation.
type OptimizationRequested struct {
	RequestID string
	Request   model.DemandRequest
	Time      time.Time
}

// OptimizationCompleted carries the final report.
type OptimizationCompleted struct {
	Report *model.DispatchReport
}

// OptimizationFailed is published for rejected or non-optimal requests.
// Status is meaningful only when Rejected is false.
type OptimizationFailed struct {
	RequestID string
	Status    model.SolveStatus
	Rejected  bool
	Reason    string
	Time      time.Time
}
