package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrInvalidParameter indicates a non-positive mass, stiffness or step, a
	// negative damping ratio, or another out-of-range input.
	ErrInvalidParameter = errors.New("dynamo: invalid parameter")

	// ErrDimensionMismatch indicates a state vector that does not fit the system.
	// It wraps ErrInvalidParameter.
	ErrDimensionMismatch = fmt.Errorf("dynamo: dimension mismatch between state and system: %w", ErrInvalidParameter)

	// ErrUnstable indicates the run left the divergence bound.
	ErrUnstable = errors.New("dynamo: simulation unstable (state diverged)")

	// ErrCanceled indicates the run was interrupted between steps.
	ErrCanceled = errors.New("dynamo: simulation canceled by context")
)

// ParamError reports which input was rejected.
type ParamError struct {
	Field  string
	Value  float64
	Reason string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("dynamo: invalid parameter %s=%g: %s", e.Field, e.Value, e.Reason)
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidParameter
}

// InvalidParam builds a ParamError.
func InvalidParam(field string, value float64, reason string) error {
	return &ParamError{Field: field, Value: value, Reason: reason}
}

// SimulationError wraps an error with simulation context.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
