package chemostat

import (
	"math"

	"github.com/san-kum/chemopt/internal/dynamo"
)

// Model binds kinetics and a migration rate into a dynamo.System with
// state (x_0..x_{n-1}, s) and a single dilution control.
type Model struct {
	Kinetics  Kinetics
	Migration float64
}

func NewModel(k Kinetics, migration float64) *Model {
	return &Model{Kinetics: k, Migration: migration}
}

func (m *Model) StateDim() int   { return m.Kinetics.Species() + 1 }
func (m *Model) ControlDim() int { return 1 }

// Derive implements dynamo.System.
func (m *Model) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	out := make(dynamo.State, len(x))
	m.Eval(x, control(u), out)
	return out
}

// Eval writes f(state, u) into out. Substrate below zero is clamped to
// zero before it reaches the kinetics.
func (m *Model) Eval(state dynamo.State, u float64, out []float64) {
	n := m.Kinetics.Species()
	x := state[:n]
	s := math.Max(state[n], 0)
	m.Kinetics.speciesDerivative(x, s, u, m.Migration, out[:n])
	out[n] = m.Kinetics.substrateBalance(x, s, u)
}

// Linearize writes the Jacobians of f at (state, u): jx is row-major
// (n+1)x(n+1) with jx[r*(n+1)+c] = df_r/dstate_c, and ju[r] = df_r/du.
// Below zero substrate f does not depend on it, so that column is zero.
func (m *Model) Linearize(state dynamo.State, u float64, jx, ju []float64) {
	k := m.Kinetics
	n := k.Species()
	dim := n + 1
	s := math.Max(state[n], 0)
	clamped := state[n] < 0

	for i := range jx {
		jx[i] = 0
	}
	for i := 0; i < n; i++ {
		xi := state[i]
		g := k.growth(s, i)
		row := jx[i*dim : (i+1)*dim]
		if m.Migration != 0 {
			for j := 0; j < n; j++ {
				row[j] = m.Migration * k.Coupling.At(i, j)
			}
		}
		row[i] += g - u
		row[n] = k.growthSlope(s, i) * xi
		ju[i] = -xi

		// substrate row
		jx[n*dim+i] = -g / k.Yield[i]
		jx[n*dim+n] -= k.growthSlope(s, i) * xi / k.Yield[i]
	}
	jx[n*dim+n] -= u
	ju[n] = k.Feed - s

	if clamped {
		for r := 0; r < dim; r++ {
			jx[r*dim+n] = 0
		}
	}
}

func control(u dynamo.Control) float64 {
	if len(u) == 0 {
		return 0
	}
	return u[0]
}
