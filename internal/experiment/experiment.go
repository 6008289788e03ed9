// Package experiment drives a forward simulation of the chemostat with a
// replayed control profile or a feedback controller. It is how optimized
// profiles are checked against an integrator independent of the
// collocation grid.
package experiment

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/chemopt/internal/chemostat"
	"github.com/san-kum/chemopt/internal/control"
	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/integrators"
	"github.com/san-kum/chemopt/internal/metrics"
	"github.com/san-kum/chemopt/internal/optimal"
	"github.com/san-kum/chemopt/internal/sim"
)

type Config struct {
	Kinetics   chemostat.Kinetics
	Migration  float64
	InitState  dynamo.State
	Integrator string
	Dt         float64
	Duration   float64
	Signal     dynamo.Controller
}

// FromRun takes the model, initial state and horizon of run. The signal
// defaults to the midpoint of the run's control bounds.
func FromRun(run optimal.Run, integrator string, dt float64) Config {
	return Config{
		Kinetics:   run.Kinetics,
		Migration:  run.Migration,
		InitState:  run.X0.Clone(),
		Integrator: integrator,
		Dt:         dt,
		Duration:   run.Horizon,
		Signal:     control.NewConstant(run.Bounds.Mid()),
	}
}

// Replay builds a signal that interpolates a solved trajectory's controls.
func Replay(traj optimal.Trajectory) (*control.TimeVarying, error) {
	return control.NewTimeVarying(traj.Times(), traj.Controls())
}

type Experiment struct {
	cfg       Config
	simulator *sim.Simulator
}

func New(cfg Config) *Experiment {
	return &Experiment{cfg: cfg}
}

func (e *Experiment) Setup() error {
	if err := e.cfg.Kinetics.Validate(); err != nil {
		return err
	}
	if e.cfg.Signal == nil {
		return fmt.Errorf("experiment: no control signal")
	}
	integ, err := integrators.Get(e.cfg.Integrator)
	if err != nil {
		return err
	}
	model := chemostat.NewModel(e.cfg.Kinetics, e.cfg.Migration)
	e.simulator = sim.New(model, integ, e.cfg.Signal)
	for _, m := range metrics.Defaults() {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*dynamo.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	return e.simulator.Run(ctx, e.cfg.InitState.Clone(), dynamo.Config{
		Dt:            e.cfg.Dt,
		Duration:      e.cfg.Duration,
		ValidateState: true,
	})
}

// Trajectory converts a simulation result to trajectory points.
func Trajectory(res *dynamo.Result) optimal.Trajectory {
	traj := make(optimal.Trajectory, len(res.States))
	for k, st := range res.States {
		x := append([]float64(nil), st.Species()...)
		u := 0.0
		if k < len(res.Controls) && len(res.Controls[k]) > 0 {
			u = res.Controls[k][0]
		}
		traj[k] = optimal.Point{
			Time:       res.Times[k],
			Species:    x,
			Substrate:  st.Substrate(),
			Control:    u,
			Production: chemostat.ProductionRate(u, x),
			Diversity:  chemostat.DiversityIndex(x),
		}
	}
	return traj
}

// Deviation is the largest absolute state difference between two
// trajectories at matching times. Points of b are looked up by time; b
// must cover a's grid.
func Deviation(a, b optimal.Trajectory) (float64, error) {
	if len(b) == 0 {
		return 0, fmt.Errorf("%w: empty reference trajectory", dynamo.ErrDimensionMismatch)
	}
	worst := 0.0
	j := 0
	for _, p := range a {
		for j < len(b)-1 && b[j].Time < p.Time-1e-9 {
			j++
		}
		if math.Abs(b[j].Time-p.Time) > 1e-9 {
			continue
		}
		if len(b[j].Species) != len(p.Species) {
			return 0, fmt.Errorf("%w: %d vs %d species", dynamo.ErrDimensionMismatch, len(p.Species), len(b[j].Species))
		}
		for i := range p.Species {
			worst = math.Max(worst, math.Abs(p.Species[i]-b[j].Species[i]))
		}
		worst = math.Max(worst, math.Abs(p.Substrate-b[j].Substrate))
	}
	return worst, nil
}
