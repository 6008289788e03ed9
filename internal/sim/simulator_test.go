package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/chemopt/internal/dynamo"
)

type testDynamics struct{}

func (t *testDynamics) Derive(x dynamo.State, u dynamo.Control, time float64) dynamo.State {
	return dynamo.State{-x[0]}
}

func (t *testDynamics) StateDim() int   { return 1 }
func (t *testDynamics) ControlDim() int { return 0 }

type testIntegrator struct{}

func (t *testIntegrator) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, time float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, time)
	return dynamo.State{x[0] + dt*dx[0]}
}

type testController struct{}

func (t *testController) Compute(x dynamo.State, time float64) dynamo.Control {
	return dynamo.Control{time}
}

func TestSimulatorRun(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, &testController{})

	cfg := dynamo.Config{
		Dt:       0.1,
		Duration: 1.0,
	}

	x0 := dynamo.State{1.0}
	result, err := sim.Run(context.Background(), x0, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 11 {
		t.Errorf("expected 11 states, got %d", len(result.States))
	}

	if len(result.Times) != 11 {
		t.Errorf("expected 11 times, got %d", len(result.Times))
	}

	if len(result.Controls) != 11 {
		t.Errorf("expected a control at every grid point, got %d", len(result.Controls))
	}

	if last := result.Controls[10][0]; math.Abs(last-1.0) > 1e-12 {
		t.Errorf("final control should be evaluated at t=1, got %g", last)
	}

	finalState := result.States[len(result.States)-1][0]
	expected := 1.0 * math.Exp(-1.0)
	if math.Abs(finalState-expected) > 0.2 {
		t.Errorf("expected final state ~%.4f, got %.4f", expected, finalState)
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, &testController{})

	tests := []struct {
		name string
		cfg  dynamo.Config
	}{
		{"zero dt", dynamo.Config{Dt: 0, Duration: 1.0}},
		{"negative dt", dynamo.Config{Dt: -0.1, Duration: 1.0}},
		{"zero duration", dynamo.Config{Dt: 0.1, Duration: 0}},
		{"negative duration", dynamo.Config{Dt: 0.1, Duration: -1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x0 := dynamo.State{1.0}
			_, err := sim.Run(context.Background(), x0, tt.cfg)
			if err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestSimulatorDimensionMismatch(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, &testController{})
	_, err := sim.Run(context.Background(), dynamo.State{1, 2}, dynamo.Config{Dt: 0.1, Duration: 1})
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(x dynamo.State, u dynamo.Control, time float64) {
	t.count++
	t.sum += x[0]
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

func TestSimulatorMetrics(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, &testController{})

	metric := &testMetric{}
	sim.AddMetric(metric)

	cfg := dynamo.Config{Dt: 0.1, Duration: 1.0}
	x0 := dynamo.State{1.0}

	result, err := sim.Run(context.Background(), x0, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}

	if metric.count != 11 {
		t.Errorf("expected 11 observations, got %d", metric.count)
	}
}

func TestSimulatorCanceled(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, &testController{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.Run(ctx, dynamo.State{1.0}, dynamo.Config{Dt: 0.1, Duration: 1.0})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
