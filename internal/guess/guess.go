// Package guess builds starting points for the collocation NLP.
//
// Every builder returns a full decision vector in the problem's layout,
// inside the variable bounds, with the first grid point equal to the
// configured initial state.
package guess

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/san-kum/chemopt/internal/control"
	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/integrators"
	"github.com/san-kum/chemopt/internal/nlp"
	"github.com/san-kum/chemopt/internal/sim"
)

// terminalFloor keeps interpolated states off the zero bound.
const terminalFloor = 1e-4

type Strategy int

const (
	Linear Strategy = iota
	Simulate
	Search
)

var strategyNames = []string{"linear", "simulate", "search"}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("Strategy(%d)", int(s))
}

// ParseStrategy maps a config name to a Strategy; empty selects Linear.
func ParseStrategy(name string) (Strategy, error) {
	if name == "" {
		return Linear, nil
	}
	for i, n := range strategyNames {
		if strings.EqualFold(n, name) {
			return Strategy(i), nil
		}
	}
	return 0, dynamo.Configf("guess.strategy", "unknown strategy %q (want one of %s)",
		name, strings.Join(strategyNames, ", "))
}

type Options struct {
	Strategy Strategy
	// Control is the constant guess level. Nil selects the midpoint of
	// the control bounds.
	Control *float64
	Search  SearchOptions
}

// Build dispatches on opts.Strategy.
func Build(ctx context.Context, p *nlp.Problem, opts Options) ([]float64, error) {
	u := p.Limits.Mid()
	if opts.Control != nil {
		u = clamp(*opts.Control, p.Limits.Min, p.Limits.Max)
	}
	switch opts.Strategy {
	case Linear:
		return LinearGuess(ctx, p, u)
	case Simulate:
		return SimulatedGuess(ctx, p, control.NewConstant(u))
	case Search:
		z, _, err := SearchGuess(ctx, p, opts.Search)
		return z, err
	default:
		return nil, dynamo.Configf("guess.strategy", "unknown strategy %v", opts.Strategy)
	}
}

// LinearGuess holds the control at u and interpolates the states
// linearly from x0 to the terminal state of a forward simulation under u.
func LinearGuess(ctx context.Context, p *nlp.Problem, u float64) ([]float64, error) {
	states, err := simulate(ctx, p, control.NewConstant(u))
	if err != nil {
		return nil, err
	}
	l := p.Layout
	terminal := states[len(states)-1].Clone()
	for j := range terminal {
		terminal[j] = math.Max(terminal[j], terminalFloor)
	}

	z := make([]float64, l.Dim())
	last := float64(l.Points - 1)
	for k := 0; k < l.Points; k++ {
		l.SetState(z, k, dynamo.Lerp(p.X0, terminal, float64(k)/last))
		z[l.Control(k)] = u
	}
	l.SetState(z, 0, p.X0)
	return z, nil
}

// SimulatedGuess integrates the model under profile with the implicit
// trapezoid rule on the collocation grid, so the guess starts with
// near-zero defects.
func SimulatedGuess(ctx context.Context, p *nlp.Problem, profile control.Profile) ([]float64, error) {
	states, err := simulate(ctx, p, profile)
	if err != nil {
		return nil, err
	}
	l := p.Layout
	us := control.Resample(profile, p.Grid.Times())
	z := make([]float64, l.Dim())
	for k := 0; k < l.Points; k++ {
		l.SetState(z, k, states[k])
		z[l.Control(k)] = clamp(us[k], p.Limits.Min, p.Limits.Max)
	}
	return z, nil
}

type controller interface {
	control.Profile
	dynamo.Controller
}

// simulate returns Points states, non-negative. If the integration stops
// early on an invalid state the last valid state is held.
func simulate(ctx context.Context, p *nlp.Problem, profile control.Profile) ([]dynamo.State, error) {
	ctrl, ok := profile.(controller)
	if !ok {
		return nil, fmt.Errorf("guess: profile %T cannot drive a simulation", profile)
	}
	model := p.Transcription.Model
	s := sim.New(model, integrators.NewTrapezoid(), ctrl)
	res, err := s.Run(ctx, p.X0, dynamo.Config{
		Dt:            p.Grid.Step(),
		Duration:      p.Grid.Horizon,
		ValidateState: true,
	})
	if err != nil {
		return nil, fmt.Errorf("guess: forward simulation: %w", err)
	}

	points := p.Layout.Points
	states := make([]dynamo.State, points)
	for k := 0; k < points; k++ {
		i := min(k, len(res.States)-1)
		st := res.States[i].Clone()
		for j := range st {
			st[j] = math.Max(st[j], 0)
		}
		states[k] = st
	}
	states[0] = p.X0.Clone()
	return states, nil
}

// WarmStart resamples a prior trajectory onto p's grid. States are
// interpolated linearly, controls piecewise-linearly, and both are pulled
// into bounds. The first point is reset to the configured initial state.
func WarmStart(p *nlp.Problem, times []float64, states []dynamo.State, controls []float64) ([]float64, error) {
	if len(times) == 0 || len(times) != len(states) || len(times) != len(controls) {
		return nil, fmt.Errorf("%w: warm start has %d times, %d states, %d controls",
			dynamo.ErrDimensionMismatch, len(times), len(states), len(controls))
	}
	l := p.Layout
	for i, st := range states {
		if len(st) != l.StateDim() {
			return nil, fmt.Errorf("%w: warm start state %d has %d entries, want %d",
				dynamo.ErrDimensionMismatch, i, len(st), l.StateDim())
		}
	}
	profile, err := control.NewTimeVarying(times, controls)
	if err != nil {
		return nil, fmt.Errorf("guess: warm start controls: %w", err)
	}

	grid := p.Grid.Times()
	z := make([]float64, l.Dim())
	for k, t := range grid {
		st := stateAt(times, states, t)
		for j := range st {
			st[j] = math.Max(st[j], 0)
		}
		l.SetState(z, k, st)
		z[l.Control(k)] = clamp(profile.ValueAt(t), p.Limits.Min, p.Limits.Max)
	}
	l.SetState(z, 0, p.X0)
	return z, nil
}

func stateAt(times []float64, states []dynamo.State, t float64) dynamo.State {
	n := len(times)
	if t <= times[0] {
		return states[0].Clone()
	}
	if t >= times[n-1] {
		return states[n-1].Clone()
	}
	i := sort.SearchFloat64s(times, t)
	if times[i] == t {
		return states[i].Clone()
	}
	w := (t - times[i-1]) / (times[i] - times[i-1])
	return dynamo.Lerp(states[i-1], states[i], w)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
