// Package optimal runs one optimal-control solve end to end and maps the
// solver's decision vector back to a time-indexed trajectory.
package optimal

import (
	"fmt"
	"time"

	"github.com/san-kum/chemopt/internal/chemostat"
	"github.com/san-kum/chemopt/internal/collocation"
	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/solver"
)

// Point is the state of the reactor at one grid time. Production and
// Diversity are the instantaneous harvest rate u*sum(x) and the Simpson
// index of the species at that time.
type Point struct {
	Time       float64
	Species    []float64
	Substrate  float64
	Control    float64
	Production float64
	Diversity  float64
}

// Trajectory is ordered by time on a uniform grid.
type Trajectory []Point

func (tr Trajectory) Times() []float64 {
	out := make([]float64, len(tr))
	for i, p := range tr {
		out[i] = p.Time
	}
	return out
}

func (tr Trajectory) Controls() []float64 {
	out := make([]float64, len(tr))
	for i, p := range tr {
		out[i] = p.Control
	}
	return out
}

func (tr Trajectory) States() []dynamo.State {
	out := make([]dynamo.State, len(tr))
	for i, p := range tr {
		st := make(dynamo.State, len(p.Species)+1)
		copy(st, p.Species)
		st[len(p.Species)] = p.Substrate
		out[i] = st
	}
	return out
}

// Column extracts one series by name: time, substrate, control,
// production, diversity or x<i>.
func (tr Trajectory) Column(name string) ([]float64, error) {
	out := make([]float64, len(tr))
	var pick func(Point) float64
	switch name {
	case "time":
		pick = func(p Point) float64 { return p.Time }
	case "substrate":
		pick = func(p Point) float64 { return p.Substrate }
	case "control":
		pick = func(p Point) float64 { return p.Control }
	case "production":
		pick = func(p Point) float64 { return p.Production }
	case "diversity":
		pick = func(p Point) float64 { return p.Diversity }
	default:
		var i int
		if _, err := fmt.Sscanf(name, "x%d", &i); err != nil || len(tr) == 0 || i < 0 || i >= len(tr[0].Species) {
			return nil, fmt.Errorf("optimal: unknown column %q", name)
		}
		pick = func(p Point) float64 { return p.Species[i] }
	}
	for k, p := range tr {
		out[k] = pick(p)
	}
	return out, nil
}

type Result struct {
	Status          solver.Status
	Trajectory      Trajectory
	FinalProduction float64
	FinalDiversity  float64
	Iterations      int
	WallTime        time.Duration
	Violation       float64
	Objective       float64
	Advice          string
}

// Extract maps a decision vector to a Result. Only the trajectory, the
// terminal indices and the status fields are filled; solver statistics
// are left to the caller.
func Extract(layout collocation.Layout, grid collocation.Grid, z []float64, status solver.Status) (*Result, error) {
	if len(z) != layout.Dim() {
		return nil, fmt.Errorf("%w: decision vector has %d entries, layout wants %d",
			dynamo.ErrDimensionMismatch, len(z), layout.Dim())
	}
	if layout.Points != grid.Points() {
		return nil, fmt.Errorf("%w: layout has %d points, grid %d",
			dynamo.ErrDimensionMismatch, layout.Points, grid.Points())
	}

	times := grid.Times()
	traj := make(Trajectory, layout.Points)
	for k := range traj {
		x := make([]float64, layout.Species)
		copy(x, z[layout.SpeciesAt(k, 0):layout.SpeciesAt(k, 0)+layout.Species])
		u := z[layout.Control(k)]
		traj[k] = Point{
			Time:       times[k],
			Species:    x,
			Substrate:  z[layout.Substrate(k)],
			Control:    u,
			Production: chemostat.ProductionRate(u, x),
			Diversity:  chemostat.DiversityIndex(x),
		}
	}
	last := traj[len(traj)-1]
	return &Result{
		Status:          status,
		Trajectory:      traj,
		FinalProduction: last.Production,
		FinalDiversity:  last.Diversity,
		Advice:          status.Advice(),
	}, nil
}

// Pack is the inverse of Extract for the trajectory part.
func Pack(layout collocation.Layout, traj Trajectory) ([]float64, error) {
	if len(traj) != layout.Points {
		return nil, fmt.Errorf("%w: trajectory has %d points, layout wants %d",
			dynamo.ErrDimensionMismatch, len(traj), layout.Points)
	}
	z := make([]float64, layout.Dim())
	for k, p := range traj {
		if len(p.Species) != layout.Species {
			return nil, fmt.Errorf("%w: point %d has %d species, want %d",
				dynamo.ErrDimensionMismatch, k, len(p.Species), layout.Species)
		}
		copy(z[layout.SpeciesAt(k, 0):], p.Species)
		z[layout.Substrate(k)] = p.Substrate
		z[layout.Control(k)] = p.Control
	}
	return z, nil
}
