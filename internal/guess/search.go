package guess

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/cwbudde/mayfly"

	"github.com/san-kum/chemopt/internal/control"
	"github.com/san-kum/chemopt/internal/nlp"
)

// SearchOptions configure the mayfly search over control ramps.
type SearchOptions struct {
	Iterations int
	Population int
	Seed       int64
}

func DefaultSearchOptions() SearchOptions {
	return SearchOptions{Iterations: 25, Population: 12, Seed: 1}
}

// SearchGuess looks for the linear control ramp u(t) = u0 + (u1-u0) t/tf
// whose simulated trajectory scores best on p's objective, and returns
// that trajectory with its cost. Defects are ignored by the search: each
// candidate is already a forward solution.
func SearchGuess(ctx context.Context, p *nlp.Problem, opts SearchOptions) ([]float64, float64, error) {
	def := DefaultSearchOptions()
	if opts.Iterations <= 0 {
		opts.Iterations = def.Iterations
	}
	if opts.Population <= 0 {
		opts.Population = def.Population
	}
	opts.Population = max(opts.Population, 2)

	lo, hi := p.Limits.Min, p.Limits.Max
	if hi-lo < 1e-12 {
		z, err := SimulatedGuess(ctx, p, control.NewConstant(lo))
		if err != nil {
			return nil, 0, err
		}
		return z, p.Eval(z), nil
	}

	ramp := func(pos []float64) *control.TimeVarying {
		tv, _ := control.NewTimeVarying(
			[]float64{0, p.Grid.Horizon},
			[]float64{clamp(pos[0], lo, hi), clamp(pos[1], lo, hi)},
		)
		return tv
	}

	cfg := mayfly.NewDefaultConfig()
	cfg.ObjectiveFunc = func(pos []float64) float64 {
		if ctx.Err() != nil {
			return math.Inf(1)
		}
		z, err := SimulatedGuess(ctx, p, ramp(pos))
		if err != nil {
			return math.Inf(1)
		}
		cost := p.Eval(z)
		if math.IsNaN(cost) {
			return math.Inf(1)
		}
		return cost
	}
	cfg.ProblemSize = 2
	cfg.MaxIterations = opts.Iterations
	// mating pairs the best k males with the best k females, so offspring
	// and mutant counts must follow both population sizes
	cfg.NPop = opts.Population
	cfg.NPopF = opts.Population
	cfg.NC = 2 * (opts.Population / 2)
	cfg.NM = max(1, int(math.Round(0.05*float64(opts.Population))))
	cfg.LowerBound = lo
	cfg.UpperBound = hi
	cfg.Rand = rand.New(rand.NewSource(opts.Seed))

	res, err := mayfly.Optimize(cfg)
	if err != nil {
		return nil, 0, fmt.Errorf("guess: control search: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	z, err := SimulatedGuess(ctx, p, ramp(res.GlobalBest.Position))
	if err != nil {
		return nil, 0, err
	}
	return z, res.GlobalBest.Cost, nil
}
