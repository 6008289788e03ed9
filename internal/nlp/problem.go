package nlp

import (
	"fmt"
	"math"

	"github.com/san-kum/chemopt/internal/chemostat"
	"github.com/san-kum/chemopt/internal/collocation"
	"github.com/san-kum/chemopt/internal/dynamo"
)

// ControlBounds bound the dilution rate at every grid point.
type ControlBounds struct {
	Min float64
	Max float64
}

func (b ControlBounds) Mid() float64 { return 0.5 * (b.Min + b.Max) }

func (b ControlBounds) Validate() error {
	if b.Min < 0 {
		return dynamo.Configf("control.min", "must be non-negative, got %g", b.Min)
	}
	if b.Min > b.Max {
		return dynamo.Configf("control", "min %g exceeds max %g", b.Min, b.Max)
	}
	return nil
}

// Problem is one fully formulated NLP. It is built per run, consumed by a
// single solve and then discarded.
//
// Constraint rows are ordered as all trapezoid defects (interval-major)
// followed by the n+1 initial-condition rows X[0] - x0.
type Problem struct {
	Transcription *collocation.Transcription
	Layout        collocation.Layout
	Grid          collocation.Grid
	Objective     Objective
	Limits        ControlBounds
	X0            dynamo.State

	lower, upper []float64
	speciesGrad  []float64
}

// Formulate builds the NLP. The objective weights are floored here.
func Formulate(model *chemostat.Model, grid collocation.Grid, x0 dynamo.State, obj Objective, bounds ControlBounds) (*Problem, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	if err := bounds.Validate(); err != nil {
		return nil, err
	}
	tr, err := collocation.NewTranscription(model, grid)
	if err != nil {
		return nil, err
	}
	layout := tr.Layout
	if len(x0) != layout.StateDim() {
		return nil, fmt.Errorf("%w: initial state has %d entries, want %d (species then substrate)",
			dynamo.ErrFormulation, len(x0), layout.StateDim())
	}
	for i, v := range x0 {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: initial state[%d] = %g", dynamo.ErrFormulation, i, v)
		}
	}

	p := &Problem{
		Transcription: tr,
		Layout:        layout,
		Grid:          grid,
		Objective:     obj.Regularized(),
		Limits:        bounds,
		X0:            x0.Clone(),
		lower:         make([]float64, layout.Dim()),
		upper:         make([]float64, layout.Dim()),
		speciesGrad:   make([]float64, layout.Species),
	}
	for i := range p.upper {
		p.upper[i] = math.Inf(1)
	}
	for k := 0; k < layout.Points; k++ {
		p.lower[layout.Control(k)] = bounds.Min
		p.upper[layout.Control(k)] = bounds.Max
	}
	return p, nil
}

func (p *Problem) Dim() int { return p.Layout.Dim() }

func (p *Problem) NumEq() int {
	return p.Transcription.NumDefects() + p.Layout.StateDim()
}

func (p *Problem) Bounds() (lower, upper []float64) {
	return p.lower, p.upper
}

// Terms returns terminal production, terminal diversity and control
// curvature at z.
func (p *Problem) Terms(z []float64) (prod, div, curv float64) {
	l := p.Layout
	last := l.Points - 1
	x := z[l.SpeciesAt(last, 0) : l.SpeciesAt(last, 0)+l.Species]
	u := l.Controls(z)
	return chemostat.ProductionRate(u[last], x), chemostat.DiversityIndex(x), Curvature(u)
}

// Eval is the objective value at z.
func (p *Problem) Eval(z []float64) float64 {
	prod, div, curv := p.Terms(z)
	return p.Objective.Evaluate(prod, div, curv)
}

// Grad writes the objective gradient at z into grad.
func (p *Problem) Grad(grad, z []float64) {
	for i := range grad {
		grad[i] = 0
	}
	l := p.Layout
	last := l.Points - 1
	first := l.SpeciesAt(last, 0)
	x := z[first : first+l.Species]
	u := l.Controls(z)
	wp, wd := p.Objective.weights()

	if wp != 0 {
		total := 0.0
		for i := range x {
			grad[first+i] -= wp * u[last]
			total += x[i]
		}
		grad[l.Control(last)] -= wp * total
	}
	if wd != 0 {
		chemostat.DiversityGradient(x, p.speciesGrad)
		for i, g := range p.speciesGrad {
			grad[first+i] += wd * g
		}
	}
	curvatureGrad(u, p.Objective.Gamma, grad[l.Control(0):l.Control(0)+l.Points])
}

// Constraints writes every equality residual into c (len NumEq).
func (p *Problem) Constraints(c, z []float64) {
	nd := p.Transcription.NumDefects()
	p.Transcription.Defects(z, c[:nd])
	for j, v := range p.X0 {
		c[nd+j] = z[p.Layout.StateIndex(0, j)] - v
	}
}

// ConstraintsJacT writes J(z)^T v into out (len Dim).
func (p *Problem) ConstraintsJacT(out, z, v []float64) {
	for i := range out {
		out[i] = 0
	}
	nd := p.Transcription.NumDefects()
	p.Transcription.DefectsJacT(z, v[:nd], out)
	for j := range p.X0 {
		out[p.Layout.StateIndex(0, j)] += v[nd+j]
	}
}

// Violation is the largest absolute equality residual at z.
func (p *Problem) Violation(z []float64) float64 {
	c := make([]float64, p.NumEq())
	p.Constraints(c, z)
	worst := 0.0
	for _, v := range c {
		worst = math.Max(worst, math.Abs(v))
	}
	return worst
}
