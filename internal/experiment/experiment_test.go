package experiment

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/chemopt/internal/chemostat"
	"github.com/san-kum/chemopt/internal/control"
	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/nlp"
	"github.com/san-kum/chemopt/internal/optimal"
)

func testRun(t *testing.T) optimal.Run {
	t.Helper()
	k, err := chemostat.NewKinetics([]float64{1, 0.8}, []float64{0.3, 0.2}, []float64{0.5, 0.5}, nil, 2)
	if err != nil {
		t.Fatal(err)
	}
	return optimal.Run{
		Kinetics:  k,
		Migration: 0.05,
		X0:        dynamo.State{0.3, 0.3, 1},
		Horizon:   5,
		Intervals: 50,
		Bounds:    nlp.ControlBounds{Min: 0, Max: 1},
	}
}

func simulate(t *testing.T, cfg Config) *dynamo.Result {
	t.Helper()
	exp := New(cfg)
	if err := exp.Setup(); err != nil {
		t.Fatalf("setup: %v", err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return res
}

func TestIntegratorsAgree(t *testing.T) {
	run := testRun(t)
	rk4 := simulate(t, FromRun(run, "rk4", 0.01))
	trap := simulate(t, FromRun(run, "trapezoid", 0.01))

	if len(rk4.States) != 501 {
		t.Fatalf("got %d states, want 501", len(rk4.States))
	}
	dev, err := Deviation(Trajectory(trap), Trajectory(rk4))
	if err != nil {
		t.Fatal(err)
	}
	if dev > 1e-3 {
		t.Errorf("trapezoid vs rk4 deviation %g", dev)
	}
	for _, name := range []string{"production", "diversity", "harvest", "washout", "control_effort"} {
		if _, ok := rk4.Metrics[name]; !ok {
			t.Errorf("metric %s missing", name)
		}
	}
	if got := rk4.Metrics["control_effort"]; math.Abs(got-0.5) > 1e-12 {
		t.Errorf("control effort %g, want the constant 0.5", got)
	}
}

func TestReplay(t *testing.T) {
	run := testRun(t)
	cfg := FromRun(run, "rk4", 0.05)
	cfg.Signal = control.NewConstant(0.7)
	traj := Trajectory(simulate(t, cfg))

	sig, err := Replay(traj)
	if err != nil {
		t.Fatal(err)
	}
	for _, tm := range []float64{0, 1.234, 5} {
		if got := sig.ValueAt(tm); math.Abs(got-0.7) > 1e-12 {
			t.Errorf("replayed control at %g = %g", tm, got)
		}
	}

	cfg.Signal = sig
	again := Trajectory(simulate(t, cfg))
	dev, err := Deviation(again, traj)
	if err != nil {
		t.Fatal(err)
	}
	if dev > 1e-12 {
		t.Errorf("replay deviates by %g", dev)
	}

	if _, err := Replay(nil); err == nil {
		t.Error("empty trajectory replayed")
	}
}

func TestTrajectoryIndices(t *testing.T) {
	run := testRun(t)
	traj := Trajectory(simulate(t, FromRun(run, "euler", 0.1)))
	p := traj[0]
	if p.Diversity != chemostat.DiversityIndex(p.Species) || p.Production != 0.5*(0.3+0.3) {
		t.Errorf("first point %+v", p)
	}
	if p.Substrate != 1 {
		t.Errorf("substrate %g", p.Substrate)
	}
}

func TestSetupErrors(t *testing.T) {
	run := testRun(t)
	cfg := FromRun(run, "leapfrog", 0.1)
	if err := New(cfg).Setup(); err == nil {
		t.Error("unknown integrator accepted")
	}
	cfg = FromRun(run, "rk4", 0.1)
	cfg.Signal = nil
	if err := New(cfg).Setup(); err == nil {
		t.Error("missing signal accepted")
	}
	if _, err := New(cfg).Run(context.Background()); err == nil {
		t.Error("run without setup accepted")
	}
	if _, err := Deviation(nil, nil); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFeedbackSignal(t *testing.T) {
	run := testRun(t)
	cfg := FromRun(run, "rk4", 0.05)
	cfg.Signal = control.NewPID(2, 0.5, 0, 0.4, run.Bounds.Min, run.Bounds.Max)
	traj := Trajectory(simulate(t, cfg))
	for _, p := range traj {
		if p.Control < run.Bounds.Min || p.Control > run.Bounds.Max {
			t.Fatalf("control %g at t=%g outside bounds", p.Control, p.Time)
		}
	}
	// initial biomass 0.6 is above target, so dilution starts high
	if traj[0].Control <= 0 {
		t.Errorf("first control %g, want positive", traj[0].Control)
	}
}
