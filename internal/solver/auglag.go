package solver

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/optimize"
)

// AugLag minimizes
//
//	L(z, lambda; mu) = f(z) + lambda.c(z) + mu/2 |c(z)|^2
//
// over the bound-transformed variables with L-BFGS, then updates the
// multipliers lambda += mu*c and grows mu while the violation does not
// shrink fast enough. The inner solve cannot be interrupted; the context
// is checked between multiplier updates.
//
// A point is Converged only when it is feasible to Settings.Tol and the
// projected gradient of the Lagrangian is below StationarityTol relative
// to 1+|f|. The best feasible iterate seen, the start included, is
// returned when the final iterate is worse.
type AugLag struct {
	Logger *slog.Logger

	Store           int     // L-BFGS memory
	InnerIter       int     // iteration cap per subproblem
	InnerGradTol    float64 // subproblem gradient threshold
	StationarityTol float64
	InitialPenalty  float64
	MaxPenalty      float64
	PenaltyGrowth   float64
}

func NewAugLag(logger *slog.Logger) *AugLag {
	if logger == nil {
		logger = slog.Default()
	}
	return &AugLag{
		Logger:         logger,
		Store:           20,
		InnerIter:       2000,
		InnerGradTol:    1e-9,
		StationarityTol: 1e-4,
		InitialPenalty:  10,
		MaxPenalty:      1e9,
		PenaltyGrowth:   10,
	}
}

func (a *AugLag) Solve(ctx context.Context, p NLP, x0 []float64, s Settings) (*Solution, error) {
	n, m := p.Dim(), p.NumEq()
	if len(x0) != n {
		return nil, fmt.Errorf("solver: initial point has %d entries, problem has %d", len(x0), n)
	}
	if s.Tol <= 0 || s.MaxIter <= 0 || s.MaxOuter <= 0 {
		return nil, fmt.Errorf("solver: tolerance and iteration caps must be positive (tol=%g max_iter=%d max_outer=%d)",
			s.Tol, s.MaxIter, s.MaxOuter)
	}
	if s.AcceptableTol < s.Tol {
		s.AcceptableTol = s.Tol
	}
	for i, v := range x0 {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("solver: initial point[%d] = %g", i, v)
		}
	}

	start := time.Now()
	lower, upper := p.Bounds()
	tf := newTransform(lower, upper)

	y := make([]float64, n)
	tf.internal(x0, y)

	lambda := make([]float64, m)
	mu := a.InitialPenalty

	x := make([]float64, n)
	c := make([]float64, m)
	w := make([]float64, m)
	gx := make([]float64, n)
	jt := make([]float64, n)

	problem := optimize.Problem{
		Func: func(y []float64) float64 {
			tf.external(y, x)
			p.Constraints(c, x)
			f := p.Eval(x)
			for i, ci := range c {
				f += lambda[i]*ci + 0.5*mu*ci*ci
			}
			return f
		},
		Grad: func(grad, y []float64) {
			tf.external(y, x)
			p.Constraints(c, x)
			for i, ci := range c {
				w[i] = lambda[i] + mu*ci
			}
			p.Grad(gx, x)
			p.ConstraintsJacT(jt, x, w)
			for i := range grad {
				grad[i] = gx[i] + jt[i]
			}
			tf.chain(y, grad)
		},
	}

	// kkt evaluates the current x at multipliers lambda + mu*c.
	kkt := func() (obj, viol, stat float64) {
		p.Constraints(c, x)
		for i, ci := range c {
			w[i] = lambda[i] + mu*ci
		}
		p.Grad(gx, x)
		p.ConstraintsJacT(jt, x, w)
		for i := range gx {
			gx[i] += jt[i]
		}
		obj = p.Eval(x)
		return obj, maxAbs(c), projectedGradient(x, gx, lower, upper)
	}

	var best incumbent
	tf.external(y, x)
	if obj, viol, _ := kkt(); viol <= s.Tol {
		best.offer(x, obj)
	}

	sol := &Solution{Status: IterationLimit}
	decided := false
	prevViol := math.Inf(1)
	prevObj := math.Inf(1)
	stall, flat := 0, 0

	for outer := 1; outer <= s.MaxOuter; outer++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		remaining := s.MaxIter - sol.Iterations
		if remaining <= 0 {
			break
		}
		settings := &optimize.Settings{
			GradientThreshold: a.InnerGradTol,
			MajorIterations:   min(remaining, a.InnerIter),
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-14,
				Relative:   1e-12,
				Iterations: 30,
			},
		}
		if s.MaxTime > 0 {
			left := s.MaxTime - time.Since(start)
			if left <= 0 {
				break
			}
			settings.Runtime = left
		}

		res, err := optimize.Minimize(problem, y, settings, &optimize.LBFGS{Store: a.Store})
		if res != nil {
			sol.Iterations += res.Stats.MajorIterations
			if finite(res.X) {
				copy(y, res.X)
			}
		}
		if err != nil {
			a.Logger.Debug("subproblem ended early", "outer", outer, "err", err)
		}
		sol.Outer = outer

		tf.external(y, x)
		obj, viol, stat := kkt()
		a.Logger.Debug("outer iteration",
			"outer", outer,
			"objective", obj,
			"violation", viol,
			"stationarity", stat,
			"penalty", mu,
			"iterations", sol.Iterations,
		)

		if math.IsNaN(viol) || math.IsInf(viol, 0) || math.IsNaN(obj) || math.IsInf(obj, 0) {
			sol.Status = NumericalError
			decided = true
			break
		}

		stationary := stat <= a.StationarityTol*(1+math.Abs(obj))
		if viol <= s.Tol {
			best.offer(x, obj)
			if stationary {
				sol.Status = Converged
				decided = true
				break
			}
			if math.Abs(obj-prevObj) <= s.Tol*(1+math.Abs(obj)) {
				flat++
			} else {
				flat = 0
			}
			if flat >= 3 {
				break
			}
		}

		for i, ci := range c {
			lambda[i] += mu * ci
		}
		if viol > s.Tol && viol > 0.25*prevViol {
			mu = math.Min(mu*a.PenaltyGrowth, a.MaxPenalty)
		}
		if mu >= a.MaxPenalty && viol > s.AcceptableTol && viol > 0.9*prevViol {
			stall++
		} else {
			stall = 0
		}
		if stall >= 3 {
			sol.Status = Infeasible
			decided = true
			break
		}
		prevViol = viol
		prevObj = obj
	}

	tf.external(y, x)
	sol.Objective, sol.Violation, _ = kkt()
	sol.X = append([]float64(nil), x...)

	if best.ok && (sol.Status != Converged || best.obj < sol.Objective) {
		a.Logger.Debug("returning best feasible iterate", "objective", best.obj, "final_objective", sol.Objective)
		copy(x, best.x)
		obj, viol, stat := kkt()
		sol.X = append(sol.X[:0], x...)
		sol.Objective, sol.Violation = obj, viol
		if stat <= a.StationarityTol*(1+math.Abs(obj)) {
			sol.Status = Converged
		} else {
			sol.Status = AcceptableTolerance
		}
		decided = true
	}
	sol.Runtime = time.Since(start)

	if !decided && sol.Violation <= s.AcceptableTol {
		sol.Status = AcceptableTolerance
	}

	a.Logger.Debug("solve finished",
		"status", sol.Status.String(),
		"objective", sol.Objective,
		"violation", sol.Violation,
		"iterations", sol.Iterations,
		"runtime", sol.Runtime,
	)
	return sol, nil
}

// incumbent keeps the feasible iterate with the lowest objective.
type incumbent struct {
	ok  bool
	x   []float64
	obj float64
}

func (b *incumbent) offer(x []float64, obj float64) {
	if math.IsNaN(obj) || (b.ok && obj >= b.obj) {
		return
	}
	b.ok = true
	b.x = append(b.x[:0], x...)
	b.obj = obj
}

// projectedGradient is max_i |x_i - clip(x_i - g_i)|, zero at a
// first-order point of the bound-constrained problem.
func projectedGradient(x, g, lower, upper []float64) float64 {
	worst := 0.0
	for i, xi := range x {
		step := math.Max(lower[i], math.Min(upper[i], xi-g[i]))
		d := math.Abs(xi - step)
		if math.IsNaN(d) {
			return math.NaN()
		}
		worst = math.Max(worst, d)
	}
	return worst
}

func maxAbs(v []float64) float64 {
	worst := 0.0
	for _, x := range v {
		if math.IsNaN(x) {
			return math.NaN()
		}
		worst = math.Max(worst, math.Abs(x))
	}
	return worst
}

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
