package optimal_test

import (
	"context"
	"io"
	"log/slog"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/chemopt/internal/chemostat"
	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/guess"
	"github.com/san-kum/chemopt/internal/nlp"
	"github.com/san-kum/chemopt/internal/optimal"
	"github.com/san-kum/chemopt/internal/solver"
)

func kinetics(mu, k, y []float64, feed float64) chemostat.Kinetics {
	kin, err := chemostat.NewKinetics(mu, k, y, nil, feed)
	Expect(err).NotTo(HaveOccurred())
	return kin
}

func curvature(res *optimal.Result) float64 {
	u := make([]float64, len(res.Trajectory))
	for k, p := range res.Trajectory {
		u[k] = p.Control
	}
	return nlp.Curvature(u)
}

func settings() solver.Settings {
	s := solver.DefaultSettings()
	s.MaxIter = 60000
	return s
}

var _ = Describe("Scenarios", func() {
	var (
		ctx      context.Context
		pipeline *optimal.Pipeline
	)

	BeforeEach(func() {
		ctx = context.Background()
		pipeline = optimal.NewPipeline(nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	})

	Describe("single species production", func() {
		var run optimal.Run

		BeforeEach(func() {
			run = optimal.Run{
				Name:      "single",
				Kinetics:  kinetics([]float64{1}, []float64{0.5}, []float64{0.5}, 2),
				X0:        dynamo.State{0.5, 1},
				Horizon:   30,
				Intervals: 150,
				Objective: nlp.Objective{Mode: nlp.MaximizeProduction},
				Bounds:    nlp.ControlBounds{Min: 0, Max: 3},
				Settings:  settings(),
				Guess:     guess.Options{Strategy: guess.Simulate},
			}
		})

		It("ends at the upper control bound and gains from a wider bound", func() {
			low, err := pipeline.Solve(ctx, run, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(low.Status).To(Equal(solver.Converged), "violation %g", low.Violation)
			Expect(low.Trajectory).To(HaveLen(151))

			last := low.Trajectory[len(low.Trajectory)-1]
			Expect(last.Control).To(BeNumerically(">=", 0.9*run.Bounds.Max))

			run.Bounds.Max = 5
			high, err := pipeline.Solve(ctx, run, low)
			Expect(err).NotTo(HaveOccurred())
			Expect(high.Status).To(Equal(solver.Converged), "violation %g", high.Violation)
			Expect(high.Trajectory[len(high.Trajectory)-1].Control).To(BeNumerically(">=", 0.9*run.Bounds.Max))
			Expect(high.FinalProduction).To(BeNumerically(">=", 0.98*low.FinalProduction))
		})

		It("keeps every point inside the bounds", func() {
			res, err := pipeline.Solve(ctx, run, nil)
			Expect(err).NotTo(HaveOccurred())
			for _, p := range res.Trajectory {
				Expect(p.Control).To(BeNumerically(">=", run.Bounds.Min))
				Expect(p.Control).To(BeNumerically("<=", run.Bounds.Max))
				Expect(p.Substrate).To(BeNumerically(">=", 0))
				Expect(p.Species[0]).To(BeNumerically(">=", 0))
			}
		})
	})

	Describe("five species diversity", func() {
		It("cannot push the index below an even split and does no worse than the uncontrolled run", func() {
			run := optimal.Run{
				Name: "five",
				Kinetics: kinetics(
					[]float64{1.0, 0.9, 0.8, 0.7, 0.6},
					[]float64{0.3, 0.3, 0.3, 0.3, 0.3},
					[]float64{0.5, 0.5, 0.5, 0.5, 0.5},
					2,
				),
				Migration: 0.01,
				X0:        dynamo.State{0.2, 0.2, 0.2, 0.2, 0.2, 1},
				Horizon:   10,
				Intervals: 40,
				Objective: nlp.Objective{Mode: nlp.MinimizeDiversity, Gamma: 1e-4},
				Bounds:    nlp.ControlBounds{Min: 0.05, Max: 1},
				Settings:  settings(),
				Guess:     guess.Options{Strategy: guess.Simulate},
			}
			Expect(chemostat.DiversityIndex(run.X0[:5])).To(BeNumerically("~", 0.2, 1e-12))

			prob, err := pipeline.Formulate(run)
			Expect(err).NotTo(HaveOccurred())
			z0, err := guess.Build(ctx, prob, run.Guess)
			Expect(err).NotTo(HaveOccurred())
			uncontrolled, err := optimal.Extract(prob.Layout, prob.Grid, z0, solver.Converged)
			Expect(err).NotTo(HaveOccurred())

			res, err := pipeline.Solve(ctx, run, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(res.FinalDiversity).To(BeNumerically(">=", 0.2-1e-9))
			Expect(res.FinalDiversity).To(BeNumerically("<=", uncontrolled.FinalDiversity+1e-3))
		})
	})

	Describe("weighted objective", func() {
		It("lands between the single-objective optima", func() {
			run := optimal.Run{
				Name:      "weighted",
				Kinetics:  kinetics([]float64{1.0, 0.8}, []float64{0.3, 0.2}, []float64{0.5, 0.5}, 2),
				Migration: 0.05,
				X0:        dynamo.State{0.3, 0.3, 1},
				Horizon:   20,
				Intervals: 40,
				Objective: nlp.Objective{Mode: nlp.Weighted, Alpha: 0.5, Beta: 0.5, Gamma: 0.01},
				Bounds:    nlp.ControlBounds{Min: 0, Max: 1.5},
				Settings:  settings(),
				Guess:     guess.Options{Strategy: guess.Simulate},
			}
			weighted, err := pipeline.Solve(ctx, run, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(weighted.Status).To(Equal(solver.Converged), "violation %g", weighted.Violation)

			prodRun := run
			prodRun.Objective.Mode = nlp.MaximizeProduction
			prod, err := pipeline.Solve(ctx, prodRun, weighted)
			Expect(err).NotTo(HaveOccurred())
			Expect(prod.Status).To(Equal(solver.Converged), "violation %g", prod.Violation)

			divRun := run
			divRun.Objective.Mode = nlp.MinimizeDiversity
			div, err := pipeline.Solve(ctx, divRun, weighted)
			Expect(err).NotTo(HaveOccurred())
			Expect(div.Status).To(Equal(solver.Converged), "violation %g", div.Violation)

			// Every objective carries the same curvature penalty, so the
			// orderings hold up to gamma times the curvature of the two runs.
			slack := func(a, b *optimal.Result) float64 {
				return 1e-4 + run.Objective.Gamma*(curvature(a)+curvature(b))
			}
			Expect(weighted.FinalProduction).To(BeNumerically("<=", prod.FinalProduction+slack(weighted, prod)))
			Expect(weighted.FinalProduction).To(BeNumerically(">=", div.FinalProduction-slack(weighted, div)))
			Expect(weighted.FinalDiversity).To(BeNumerically(">=", div.FinalDiversity-slack(weighted, div)))
			Expect(weighted.FinalDiversity).To(BeNumerically("<=", prod.FinalDiversity+slack(weighted, prod)))

			// The single-objective solves start from the weighted optimum
			// and may not end worse than it.
			Expect(prod.Objective).To(BeNumerically("<=",
				prodRun.Objective.Evaluate(weighted.FinalProduction, weighted.FinalDiversity, curvature(weighted))+1e-5))
			Expect(div.Objective).To(BeNumerically("<=",
				divRun.Objective.Evaluate(weighted.FinalProduction, weighted.FinalDiversity, curvature(weighted))+1e-5))
		})
	})
})
