package analysis

import (
	"context"
	"fmt"

	"github.com/san-kum/chemopt/internal/chemostat"
	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/integrators"
)

// washoutBiomass is the total biomass below which a steady state counts
// as washed out.
const washoutBiomass = 1e-6

// OperatingPoint is the settled behaviour under one constant dilution rate.
// Values are averaged over the record window.
type OperatingPoint struct {
	Dilution   float64
	Biomass    float64
	Substrate  float64
	Production float64
	Diversity  float64
	Washout    bool
}

type OperatingOptions struct {
	Min, Max   float64
	Steps      int
	Integrator string
	Dt         float64
	// Transient is discarded before Record is averaged.
	Transient float64
	Record    float64
}

func DefaultOperatingOptions(lo, hi float64) OperatingOptions {
	return OperatingOptions{
		Min:        lo,
		Max:        hi,
		Steps:      41,
		Integrator: "rk4",
		Dt:         0.05,
		Transient:  200,
		Record:     20,
	}
}

func (o OperatingOptions) validate() error {
	switch {
	case o.Steps < 1:
		return dynamo.Configf("diagram.steps", "must be at least 1, got %d", o.Steps)
	case o.Min < 0 || o.Max < o.Min:
		return dynamo.Configf("diagram.range", "need 0 <= min <= max, got [%g, %g]", o.Min, o.Max)
	case o.Dt <= 0:
		return dynamo.Configf("diagram.dt", "must be positive, got %g", o.Dt)
	case o.Transient < 0 || o.Record <= 0:
		return dynamo.Configf("diagram.record", "transient %g and record %g", o.Transient, o.Record)
	}
	return nil
}

// OperatingDiagram holds the dilution rate constant at each of Steps
// evenly spaced values in [Min, Max] and records the settled state.
// Points are computed in parallel and returned in dilution order.
func OperatingDiagram(ctx context.Context, model *chemostat.Model, x0 dynamo.State, opts OperatingOptions) ([]OperatingPoint, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if len(x0) != model.StateDim() {
		return nil, fmt.Errorf("%w: x0 has %d entries, model expects %d",
			dynamo.ErrDimensionMismatch, len(x0), model.StateDim())
	}
	if _, err := integrators.Get(opts.Integrator); err != nil {
		return nil, err
	}

	step := 0.0
	if opts.Steps > 1 {
		step = (opts.Max - opts.Min) / float64(opts.Steps-1)
	}
	points := make([]OperatingPoint, opts.Steps)
	errs := make([]error, opts.Steps)

	dynamo.ParallelFor(opts.Steps, 1, func(start, end int) {
		// integrators keep scratch space, so each chunk owns one
		integ, _ := integrators.Get(opts.Integrator)
		for i := start; i < end; i++ {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return
			}
			points[i], errs[i] = settle(model, integ, x0, opts.Min+float64(i)*step, opts)
		}
	})

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return points, nil
}

func settle(model *chemostat.Model, integ dynamo.Integrator, x0 dynamo.State, u float64, opts OperatingOptions) (OperatingPoint, error) {
	x := x0.Clone()
	ctrl := dynamo.Control{u}
	t := 0.0
	for t < opts.Transient {
		x = integ.Step(model, x, ctrl, t, opts.Dt)
		t += opts.Dt
	}

	pt := OperatingPoint{Dilution: u}
	samples := 0
	for t < opts.Transient+opts.Record {
		x = integ.Step(model, x, ctrl, t, opts.Dt)
		t += opts.Dt
		if !x.IsValid() {
			return pt, &dynamo.SimulationError{Time: t, State: x.Clone(), Wrapped: dynamo.ErrInvalidState}
		}

		species := x.Species()
		pt.Biomass += x.Biomass()
		pt.Substrate += x.Substrate()
		pt.Production += chemostat.ProductionRate(u, species)
		pt.Diversity += chemostat.DiversityIndex(species)
		samples++
	}

	if samples > 0 {
		n := float64(samples)
		pt.Biomass /= n
		pt.Substrate /= n
		pt.Production /= n
		pt.Diversity /= n
	}
	pt.Washout = pt.Biomass < washoutBiomass
	return pt, nil
}

// Column extracts one field of the diagram for plotting.
func Column(points []OperatingPoint, name string) ([]float64, error) {
	out := make([]float64, len(points))
	for i, p := range points {
		switch name {
		case "dilution":
			out[i] = p.Dilution
		case "biomass":
			out[i] = p.Biomass
		case "substrate":
			out[i] = p.Substrate
		case "production":
			out[i] = p.Production
		case "diversity":
			out[i] = p.Diversity
		default:
			return nil, fmt.Errorf("unknown diagram column %q", name)
		}
	}
	return out, nil
}
