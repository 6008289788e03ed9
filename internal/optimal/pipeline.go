package optimal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/chemopt/internal/chemostat"
	"github.com/san-kum/chemopt/internal/collocation"
	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/guess"
	"github.com/san-kum/chemopt/internal/nlp"
	"github.com/san-kum/chemopt/internal/solver"
)

// Run is one fully resolved solve request.
type Run struct {
	Name      string
	Kinetics  chemostat.Kinetics
	Migration float64
	X0        dynamo.State
	Horizon   float64
	Intervals int
	Objective nlp.Objective
	Bounds    nlp.ControlBounds
	Settings  solver.Settings
	Guess     guess.Options
}

func (r Run) Validate() error {
	if err := r.Kinetics.Validate(); err != nil {
		return err
	}
	n := r.Kinetics.Species()
	if len(r.X0) != n+1 {
		return dynamo.Configf("init_state", "has %d entries, want %d (species then substrate)", len(r.X0), n+1)
	}
	for i, v := range r.X0 {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return dynamo.Configf("init_state", "entry %d is %g, want a finite non-negative value", i, v)
		}
	}
	if r.Migration < 0 {
		return dynamo.Configf("kinetics.migration", "must be non-negative, got %g", r.Migration)
	}
	if err := r.Objective.Validate(); err != nil {
		return err
	}
	return r.Bounds.Validate()
}

// Pipeline runs validate, formulate, guess, solve and extract. It holds
// no per-run state and may be shared by concurrent callers as long as the
// Solver is.
type Pipeline struct {
	Solver solver.Solver
	Logger *slog.Logger
}

// NewPipeline returns a pipeline over s; nil selects the augmented
// Lagrangian backend.
func NewPipeline(s solver.Solver, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if s == nil {
		s = solver.NewAugLag(logger)
	}
	return &Pipeline{Solver: s, Logger: logger}
}

// Formulate validates run and builds its NLP.
func (p *Pipeline) Formulate(run Run) (*nlp.Problem, error) {
	if err := run.Validate(); err != nil {
		return nil, err
	}
	grid, err := collocation.NewGrid(run.Horizon, run.Intervals)
	if err != nil {
		return nil, err
	}
	if floored := run.Objective.Floored(); len(floored) > 0 {
		p.Logger.Debug("zero weights floored", "run", run.Name, "params", floored, "floor", nlp.ZeroFloor)
	}
	return nlp.Formulate(chemostat.NewModel(run.Kinetics, run.Migration), grid, run.X0, run.Objective, run.Bounds)
}

// Solve runs one optimization. A non-converged solve is reported through
// Result.Status; the error return is reserved for invalid configuration,
// formulation failures and cancellation. warm, if non-nil, replaces the
// configured guess strategy with a resampling of its trajectory.
func (p *Pipeline) Solve(ctx context.Context, run Run, warm *Result) (*Result, error) {
	start := time.Now()
	prob, err := p.Formulate(run)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.Name, err)
	}

	var z0 []float64
	if warm != nil {
		tr := warm.Trajectory
		z0, err = guess.WarmStart(prob, tr.Times(), tr.States(), tr.Controls())
	} else {
		z0, err = guess.Build(ctx, prob, run.Guess)
	}
	if err != nil {
		return nil, fmt.Errorf("run %s: initial guess: %w", run.Name, err)
	}
	p.Logger.Debug("initial guess ready",
		"run", run.Name,
		"warm", warm != nil,
		"strategy", run.Guess.Strategy.String(),
		"objective", prob.Eval(z0),
		"violation", prob.Violation(z0),
	)

	sol, err := p.Solver.Solve(ctx, prob, z0, run.Settings)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.Name, err)
	}

	res, err := Extract(prob.Layout, prob.Grid, sol.X, sol.Status)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", run.Name, err)
	}
	res.Iterations = sol.Iterations
	res.Violation = sol.Violation
	res.Objective = sol.Objective
	res.WallTime = time.Since(start)

	level := slog.LevelInfo
	if !sol.Status.Success() {
		level = slog.LevelWarn
	}
	p.Logger.Log(ctx, level, "solve finished",
		"run", run.Name,
		"status", res.Status.String(),
		"production", res.FinalProduction,
		"diversity", res.FinalDiversity,
		"iterations", res.Iterations,
		"violation", res.Violation,
		"wall_time", res.WallTime,
	)
	return res, nil
}
