// Package solver is the NLP backend boundary. The core hands it an [NLP]
// (bounds, objective, equality constraints and their derivatives) and
// gets back a [Solution] with a convergence [Status].
//
// [AugLag] is the bundled backend: an augmented Lagrangian outer loop
// whose bound-constrained subproblems are mapped to unconstrained ones by
// smooth variable transforms and minimized with gonum's L-BFGS.
package solver

import (
	"context"
	"fmt"
	"time"
)

// NLP is the problem contract consumed by a Solver:
//
//	minimize Eval(z) subject to Constraints(z) = 0, lower <= z <= upper
type NLP interface {
	Dim() int
	NumEq() int
	Bounds() (lower, upper []float64)
	Eval(z []float64) float64
	Grad(grad, z []float64)
	Constraints(c, z []float64)
	// ConstraintsJacT writes J(z)^T v into out.
	ConstraintsJacT(out, z, v []float64)
}

type Solver interface {
	Solve(ctx context.Context, p NLP, x0 []float64, s Settings) (*Solution, error)
}

type Status int

const (
	Converged Status = iota
	AcceptableTolerance
	Infeasible
	IterationLimit
	NumericalError
)

var statusNames = map[Status]string{
	Converged:           "converged",
	AcceptableTolerance: "acceptable",
	Infeasible:          "infeasible",
	IterationLimit:      "iteration_limit",
	NumericalError:      "numerical_error",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("Status(%d)", int(s))
}

// ParseStatus is the inverse of String.
func ParseStatus(name string) (Status, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("solver: unknown status %q", name)
}

// Success reports whether the primal values are usable.
func (s Status) Success() bool {
	return s == Converged || s == AcceptableTolerance
}

// Advice suggests the caller's next move for a status.
func (s Status) Advice() string {
	switch s {
	case Converged:
		return "accept"
	case AcceptableTolerance:
		return "accept, or tighten by refining the grid"
	case Infeasible:
		return "relax control bounds or check the initial condition"
	case IterationLimit:
		return "raise the iteration cap or warm start from a coarser grid"
	case NumericalError:
		return "refine the grid or rescale kinetic parameters"
	default:
		return "unknown"
	}
}

type Settings struct {
	// Tol is the constraint violation accepted as converged.
	Tol float64
	// AcceptableTol is the looser violation reported as AcceptableTolerance
	// when the budget runs out.
	AcceptableTol float64
	// MaxIter caps the total number of inner quasi-Newton iterations.
	MaxIter int
	// MaxOuter caps the multiplier updates.
	MaxOuter int
	// MaxTime bounds wall-clock time; zero means unbounded.
	MaxTime time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		Tol:           1e-6,
		AcceptableTol: 1e-4,
		MaxIter:       20000,
		MaxOuter:      40,
	}
}

type Solution struct {
	Status     Status
	X          []float64
	Objective  float64
	Violation  float64
	Iterations int
	Outer      int
	Runtime    time.Duration
}
