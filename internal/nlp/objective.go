// Package nlp assembles the collocation NLP: decision bounds, equality
// constraints (trapezoid defects and the initial condition) and the scalar
// objective with its analytic gradient.
package nlp

import (
	"fmt"
	"strings"

	"github.com/san-kum/chemopt/internal/dynamo"
)

// ZeroFloor replaces weights that are exactly zero. It is small enough to
// leave the optimum unchanged in practice but keeps every objective term's
// gradient alive, which the interior line search needs.
const ZeroFloor = 1e-6

type Mode int

const (
	MaximizeProduction Mode = iota
	MinimizeDiversity
	Weighted
)

var modeNames = map[Mode]string{
	MaximizeProduction: "production",
	MinimizeDiversity:  "diversity",
	Weighted:           "weighted",
}

func (m Mode) String() string {
	if s, ok := modeNames[m]; ok {
		return s
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	for m, name := range modeNames {
		if strings.EqualFold(s, name) {
			return m, nil
		}
	}
	return 0, dynamo.Configf("objective.mode", "unknown mode %q (want production, diversity or weighted)", s)
}

// Objective selects the performance index and carries its weights.
// Alpha and Beta only matter in Weighted mode; Gamma weighs the control
// curvature penalty in every mode.
type Objective struct {
	Mode  Mode
	Alpha float64
	Beta  float64
	Gamma float64
}

// Floor substitutes ZeroFloor for an exact zero.
func Floor(v float64) float64 {
	if v == 0 {
		return ZeroFloor
	}
	return v
}

// Regularized returns a copy with every zero weight floored.
func (o Objective) Regularized() Objective {
	o.Alpha = Floor(o.Alpha)
	o.Beta = Floor(o.Beta)
	o.Gamma = Floor(o.Gamma)
	return o
}

// Floored reports which weights were exactly zero.
func (o Objective) Floored() []string {
	var names []string
	if o.Alpha == 0 {
		names = append(names, "alpha")
	}
	if o.Beta == 0 {
		names = append(names, "beta")
	}
	if o.Gamma == 0 {
		names = append(names, "gamma")
	}
	return names
}

// weights returns the production and diversity weights of the mode.
func (o Objective) weights() (wp, wd float64) {
	switch o.Mode {
	case MaximizeProduction:
		return 1, 0
	case MinimizeDiversity:
		return 0, 1
	default:
		return o.Alpha, o.Beta
	}
}

// Evaluate combines terminal production p, terminal diversity d and the
// control curvature penalty r into the minimized scalar.
func (o Objective) Evaluate(p, d, r float64) float64 {
	wp, wd := o.weights()
	return -wp*p + wd*d + o.Gamma*r
}

func (o Objective) Validate() error {
	if _, ok := modeNames[o.Mode]; !ok {
		return dynamo.Configf("objective.mode", "unknown mode %d", int(o.Mode))
	}
	if o.Alpha < 0 || o.Beta < 0 || o.Gamma < 0 {
		return dynamo.Configf("objective", "weights must be non-negative (alpha=%g beta=%g gamma=%g)", o.Alpha, o.Beta, o.Gamma)
	}
	return nil
}

// Curvature is sum over interior points of (u[k+1] - 2u[k] + u[k-1])^2.
// Constant and linearly ramping controls cost nothing.
func Curvature(u []float64) float64 {
	sum := 0.0
	for k := 1; k+1 < len(u); k++ {
		d := u[k+1] - 2*u[k] + u[k-1]
		sum += d * d
	}
	return sum
}

// curvatureGrad adds scale * dCurvature/du into grad.
func curvatureGrad(u []float64, scale float64, grad []float64) {
	for k := 1; k+1 < len(u); k++ {
		d := 2 * scale * (u[k+1] - 2*u[k] + u[k-1])
		grad[k+1] += d
		grad[k] -= 2 * d
		grad[k-1] += d
	}
}
