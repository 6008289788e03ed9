package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/chemopt/internal/dynamo"
)

// decay is dx/dt = -u*x with an analytic Jacobian.
type decay struct{}

func (d *decay) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{-u[0] * x[0]}
}
func (d *decay) StateDim() int   { return 1 }
func (d *decay) ControlDim() int { return 1 }
func (d *decay) Linearize(x dynamo.State, u float64, jx, ju []float64) {
	jx[0] = -u
	ju[0] = -x[0]
}

func TestTrapezoidSatisfiesImplicitRule(t *testing.T) {
	tr := NewTrapezoid()
	dyn := &decay{}
	x := dynamo.State{2.0}
	dt := 0.3

	y := tr.StepControlled(dyn, x, dynamo.Control{1.0}, dynamo.Control{2.0}, 0, dt)

	// linear in x: y = x (1 - dt/2*u0) / (1 + dt/2*u1)
	want := 2.0 * (1 - 0.15*1.0) / (1 + 0.15*2.0)
	if math.Abs(y[0]-want) > 1e-10 {
		t.Errorf("trapezoid step = %.12f, want %.12f", y[0], want)
	}
}

func TestTrapezoidFixedPointFallback(t *testing.T) {
	tr := NewTrapezoid()
	dyn := &simpleDynamics{}
	dt := 0.01

	x := dynamo.State{1.0, 0.0}
	for i := 0; i < 100; i++ {
		x = tr.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	if math.Abs(x[0]-math.Cos(1)) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], math.Cos(1))
	}
	// trapezoid conserves the oscillator's energy exactly
	if e := x[0]*x[0] + x[1]*x[1]; math.Abs(e-1) > 1e-8 {
		t.Errorf("energy drift: %g", e-1)
	}
}
