package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for model and solver operations.
var (
	// ErrInvalidState indicates a state vector containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")

	// ErrDomain indicates a model function evaluated outside its domain,
	// e.g. negative substrate.
	ErrDomain = errors.New("dynamo: argument outside model domain")

	// ErrConfiguration indicates an invalid run configuration.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrFormulation indicates an internal inconsistency while assembling
	// the optimization problem.
	ErrFormulation = errors.New("dynamo: inconsistent problem formulation")

	// ErrDimensionMismatch indicates mismatched state/parameter dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch between state and system")
)

// ConfigError names the offending configuration field.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfiguration
}

// Configf builds a ConfigError with a formatted reason.
func Configf(field, format string, args ...any) error {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
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
