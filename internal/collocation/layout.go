package collocation

import "github.com/san-kum/chemopt/internal/dynamo"

// Layout indexes the flat decision vector. Variables are blocked by kind:
// all species (point-major), then substrate, then control.
//
//	[x(0,0..n-1) x(1,0..n-1) ... x(N,..) | s(0..N) | u(0..N)]
type Layout struct {
	Species int
	Points  int
}

func NewLayout(species int, grid Grid) Layout {
	return Layout{Species: species, Points: grid.Points()}
}

// StateDim is the number of states per grid point (species + substrate).
func (l Layout) StateDim() int { return l.Species + 1 }

func (l Layout) Dim() int { return (l.Species + 2) * l.Points }

func (l Layout) SpeciesAt(k, i int) int { return k*l.Species + i }

func (l Layout) Substrate(k int) int { return l.Species*l.Points + k }

func (l Layout) Control(k int) int { return (l.Species+1)*l.Points + k }

// StateIndex maps state component j (species for j < n, substrate for
// j == n) at point k to its decision-vector index.
func (l Layout) StateIndex(k, j int) int {
	if j == l.Species {
		return l.Substrate(k)
	}
	return l.SpeciesAt(k, j)
}

// StateInto copies the state at point k into dst (len StateDim).
func (l Layout) StateInto(z []float64, k int, dst []float64) {
	copy(dst[:l.Species], z[k*l.Species:(k+1)*l.Species])
	dst[l.Species] = z[l.Substrate(k)]
}

func (l Layout) State(z []float64, k int) dynamo.State {
	st := make(dynamo.State, l.StateDim())
	l.StateInto(z, k, st)
	return st
}

// SetState writes a state into the decision vector at point k.
func (l Layout) SetState(z []float64, k int, st []float64) {
	copy(z[k*l.Species:(k+1)*l.Species], st[:l.Species])
	z[l.Substrate(k)] = st[l.Species]
}

// Controls returns the control block (shares storage with z).
func (l Layout) Controls(z []float64) []float64 {
	return z[l.Control(0) : l.Control(0)+l.Points]
}
