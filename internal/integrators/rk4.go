package integrators

import "github.com/san-kum/chemopt/internal/dynamo"

// RK4 is the classical fourth-order Runge-Kutta scheme. Under
// StepControlled the control is linear across the step, so the midpoint
// stages see the average of both end controls.
type RK4 struct {
	k     [4]dynamo.State
	stage dynamo.State
	uMid  dynamo.Control
}

func NewRK4() *RK4 {
	return &RK4{}
}

func (r *RK4) grow(n, m int) {
	if len(r.stage) != n {
		for i := range r.k {
			r.k[i] = make(dynamo.State, n)
		}
		r.stage = make(dynamo.State, n)
	}
	if len(r.uMid) != m {
		r.uMid = make(dynamo.Control, m)
	}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	return r.StepControlled(dyn, x, u, u, t, dt)
}

func (r *RK4) StepControlled(dyn dynamo.System, x dynamo.State, u0, u1 dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.grow(n, len(u0))
	for j := range u0 {
		r.uMid[j] = u0[j]
		if j < len(u1) {
			r.uMid[j] = 0.5 * (u0[j] + u1[j])
		}
	}

	copy(r.k[0], dyn.Derive(x, u0, t))
	r.advance(x, r.k[0], 0.5*dt)
	copy(r.k[1], dyn.Derive(r.stage, r.uMid, t+0.5*dt))
	r.advance(x, r.k[1], 0.5*dt)
	copy(r.k[2], dyn.Derive(r.stage, r.uMid, t+0.5*dt))
	r.advance(x, r.k[2], dt)
	copy(r.k[3], dyn.Derive(r.stage, u1, t+dt))

	next := make(dynamo.State, n)
	h := dt / 6
	for i := range next {
		next[i] = x[i] + h*(r.k[0][i]+2*(r.k[1][i]+r.k[2][i])+r.k[3][i])
	}
	return next
}

// advance sets stage = x + h*k.
func (r *RK4) advance(x, k dynamo.State, h float64) {
	for i := range x {
		r.stage[i] = x[i] + h*k[i]
	}
}
