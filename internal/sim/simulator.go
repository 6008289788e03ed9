package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/chemopt/internal/dynamo"
)

// ControlledStepper advances with separate controls at the start and end
// of the step, keeping the simulation consistent with the piecewise-linear
// control of the collocation grid.
type ControlledStepper interface {
	StepControlled(dyn dynamo.System, x dynamo.State, u0, u1 dynamo.Control, t, dt float64) dynamo.State
}

type Simulator struct {
	dyn        dynamo.System
	integrator dynamo.Integrator
	controller dynamo.Controller
	metrics    []dynamo.Metric
	observers  []dynamo.Observer
}

func New(dyn dynamo.System, integrator dynamo.Integrator, controller dynamo.Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
	}
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Run integrates from x0 on a uniform grid of round(Duration/Dt) steps.
// Controls are recorded at every grid point, including the last.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg dynamo.Config) (*dynamo.Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.dyn.StateDim() {
		return nil, fmt.Errorf("%w: x0 has %d entries, system expects %d",
			dynamo.ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}

	steps := int(cfg.Duration/cfg.Dt + 0.5)
	dt := cfg.Duration / float64(steps)
	result := &dynamo.Result{
		States:   make([]dynamo.State, 0, steps+1),
		Controls: make([]dynamo.Control, 0, steps+1),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
		Errors:   make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0
	u := s.controller.Compute(x, t)

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)
	result.Controls = append(result.Controls, u)

	controlled, linear := s.integrator.(ControlledStepper)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		tNext := float64(i+1) * dt
		var newX dynamo.State
		var uNext dynamo.Control
		if linear {
			uNext = s.controller.Compute(x, tNext)
			newX = controlled.StepControlled(s.dyn, x, u, uNext, t, dt)
		} else {
			newX = s.integrator.Step(s.dyn, x, u, t, dt)
			uNext = s.controller.Compute(newX, tNext)
		}

		if cfg.ValidateState && !newX.IsValid() {
			err := &dynamo.SimulationError{Step: i, Time: t, State: x.Clone(), Wrapped: dynamo.ErrInvalidState}
			result.Errors = append(result.Errors, err)
			break
		}

		x = newX
		t = tNext
		u = uNext
		result.StepsTaken++

		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, t)
	}

	for _, m := range s.metrics {
		m.Observe(x, u, t)
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) validateConfig(cfg dynamo.Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	return nil
}
