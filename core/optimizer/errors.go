package optimizer

import (
	"errors"
	"fmt"

	"github.com/kilianp07/cogendispatch/core/model"
)

var (
	// ErrInvalidRequest reports demand values outside the accepted ranges.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrInfeasible means no dispatch satisfies the demand and constraints.
	ErrInfeasible = errors.New("dispatch infeasible")
	// ErrUnbounded signals an internal modelling error.
	ErrUnbounded = errors.New("dispatch unbounded")
	// ErrSolverFailure covers every other solver failure.
	ErrSolverFailure = errors.New("solver failure")
	// ErrSolveTimeout is returned when the solve exceeds its deadline.
	ErrSolveTimeout = errors.New("solve timeout")
)

// OutcomeError is returned for a solve that did not end Optimal.
type OutcomeError struct {
	RequestID string
	Status    model.SolveStatus
	Reason    string
}

func (e *OutcomeError) Error() string {
	return fmt.Sprintf("dispatch %s: %s", e.Status, e.Reason)
}

// Unwrap maps the status to its sentinel.
func (e *OutcomeError) Unwrap() error {
	switch e.Status {
	case model.StatusInfeasible:
		return ErrInfeasible
	case model.StatusUnbounded:
		return ErrUnbounded
	default:
		return ErrSolverFailure
	}
}
