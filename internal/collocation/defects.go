package collocation

import (
	"fmt"

	"github.com/san-kum/chemopt/internal/chemostat"
	"github.com/san-kum/chemopt/internal/dynamo"
)

// pointwise evaluation is split across goroutines above this many points
const parallelPoints = 512

// Transcription evaluates trapezoid defects and their Jacobian products for
// one model on one grid. It owns scratch buffers and is not safe for
// concurrent use; each solve builds its own.
type Transcription struct {
	Model  *chemostat.Model
	Grid   Grid
	Layout Layout

	states []float64 // Points*dim
	f      []float64 // Points*dim
	jx     []float64 // Points*dim*dim
	ju     []float64 // Points*dim
}

func NewTranscription(model *chemostat.Model, grid Grid) (*Transcription, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: nil model", dynamo.ErrFormulation)
	}
	if err := model.Kinetics.Validate(); err != nil {
		return nil, err
	}
	layout := NewLayout(model.Kinetics.Species(), grid)
	dim := layout.StateDim()
	p := layout.Points
	return &Transcription{
		Model:  model,
		Grid:   grid,
		Layout: layout,
		states: make([]float64, p*dim),
		f:      make([]float64, p*dim),
		jx:     make([]float64, p*dim*dim),
		ju:     make([]float64, p*dim),
	}, nil
}

// NumDefects is (n+1)*N.
func (tr *Transcription) NumDefects() int {
	return tr.Layout.StateDim() * tr.Grid.Intervals
}

// DefectIndex is the row of the defect for interval k, state j.
func (tr *Transcription) DefectIndex(k, j int) int {
	return k*tr.Layout.StateDim() + j
}

func (tr *Transcription) evalPoints(z []float64, withJac bool) {
	l := tr.Layout
	dim := l.StateDim()
	dynamo.ParallelFor(l.Points, parallelPoints, func(start, end int) {
		for k := start; k < end; k++ {
			st := tr.states[k*dim : (k+1)*dim]
			l.StateInto(z, k, st)
			u := z[l.Control(k)]
			tr.Model.Eval(st, u, tr.f[k*dim:(k+1)*dim])
			if withJac {
				tr.Model.Linearize(st, u, tr.jx[k*dim*dim:(k+1)*dim*dim], tr.ju[k*dim:(k+1)*dim])
			}
		}
	})
}

// Defects writes every trapezoid residual into out (len NumDefects).
func (tr *Transcription) Defects(z, out []float64) {
	tr.evalPoints(z, false)
	dim := tr.Layout.StateDim()
	h := 0.5 * tr.Grid.Step()
	for k := 0; k < tr.Grid.Intervals; k++ {
		a := tr.states[k*dim : (k+1)*dim]
		b := tr.states[(k+1)*dim : (k+2)*dim]
		fa := tr.f[k*dim : (k+1)*dim]
		fb := tr.f[(k+1)*dim : (k+2)*dim]
		row := out[k*dim : (k+1)*dim]
		for j := 0; j < dim; j++ {
			row[j] = b[j] - a[j] - h*(fa[j]+fb[j])
		}
	}
}

// DefectsJacT adds J(z)^T v to out, where J is the Jacobian of Defects
// with respect to the full decision vector.
func (tr *Transcription) DefectsJacT(z, v, out []float64) {
	tr.evalPoints(z, true)
	l := tr.Layout
	dim := l.StateDim()
	h := 0.5 * tr.Grid.Step()

	for k := 0; k < tr.Grid.Intervals; k++ {
		for j := 0; j < dim; j++ {
			w := v[k*dim+j]
			if w == 0 {
				continue
			}
			jxa := tr.jx[k*dim*dim+j*dim : k*dim*dim+(j+1)*dim]
			jxb := tr.jx[(k+1)*dim*dim+j*dim : (k+1)*dim*dim+(j+1)*dim]
			for m := 0; m < dim; m++ {
				out[l.StateIndex(k, m)] -= w * h * jxa[m]
				out[l.StateIndex(k+1, m)] -= w * h * jxb[m]
			}
			out[l.StateIndex(k, j)] -= w
			out[l.StateIndex(k+1, j)] += w
			out[l.Control(k)] -= w * h * tr.ju[k*dim+j]
			out[l.Control(k+1)] -= w * h * tr.ju[(k+1)*dim+j]
		}
	}
}
