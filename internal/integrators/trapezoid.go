package integrators

import (
	"math"

	"github.com/san-kum/chemopt/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Linearizer is implemented by systems with a single scalar control that
// can report analytic Jacobians of their right-hand side.
type Linearizer interface {
	Linearize(x dynamo.State, u float64, jx, ju []float64)
}

// Trapezoid is the implicit trapezoidal rule
//
//	x1 = x0 + dt/2 * (f(x0, u0) + f(x1, u1))
//
// solved by Newton iteration when the system is a Linearizer and by
// fixed-point iteration otherwise. It produces trajectories that satisfy
// the collocation defects up to Tol.
type Trapezoid struct {
	Tol     float64
	MaxIter int
}

func NewTrapezoid() *Trapezoid {
	return &Trapezoid{Tol: 1e-12, MaxIter: 50}
}

func (tr *Trapezoid) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return tr.StepControlled(dyn, x, u, u, t, dt)
}

// StepControlled advances one step with distinct controls at both ends.
func (tr *Trapezoid) StepControlled(dyn dynamo.System, x dynamo.State, u0, u1 dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	f0 := dyn.Derive(x, u0, t)

	// explicit Euler predictor
	y := make(dynamo.State, n)
	for i := range x {
		y[i] = x[i] + dt*f0[i]
	}

	lin, ok := dyn.(Linearizer)
	var jx, ju []float64
	if ok {
		jx = make([]float64, n*n)
		ju = make([]float64, n)
	}
	r := make([]float64, n)

	for iter := 0; iter < tr.MaxIter; iter++ {
		f1 := dyn.Derive(y, u1, t+dt)
		resid := 0.0
		for i := range y {
			r[i] = y[i] - x[i] - 0.5*dt*(f0[i]+f1[i])
			resid = math.Max(resid, math.Abs(r[i]))
		}
		if resid <= tr.Tol {
			break
		}

		if !ok {
			for i := range y {
				y[i] -= r[i]
			}
			continue
		}

		uv := 0.0
		if len(u1) > 0 {
			uv = u1[0]
		}
		lin.Linearize(y, uv, jx, ju)
		a := mat.NewDense(n, n, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				v := -0.5 * dt * jx[i*n+j]
				if i == j {
					v += 1
				}
				a.Set(i, j, v)
			}
		}
		var delta mat.VecDense
		if err := delta.SolveVec(a, mat.NewVecDense(n, r)); err != nil {
			// singular Newton matrix, fall back to a fixed-point update
			for i := range y {
				y[i] -= r[i]
			}
			continue
		}
		for i := range y {
			y[i] -= delta.AtVec(i)
		}
	}

	return y
}
