package control

import (
	"math"
	"testing"

	"github.com/san-kum/chemopt/internal/dynamo"
)

func TestPIDDirection(t *testing.T) {
	ctrl := NewPID(2, 0, 0, 0.5, 0, 3)
	u := ctrl.Compute(dynamo.State{0.8, 0.4, 1}, 0)
	if len(u) != 1 {
		t.Fatalf("expected 1 control, got %d", len(u))
	}
	if math.Abs(u[0]-1.4) > 1e-12 {
		t.Errorf("biomass above target: u = %g, want 1.4", u[0])
	}

	ctrl.Reset()
	u = ctrl.Compute(dynamo.State{0.1, 0.1, 1}, 0)
	if u[0] != 0 {
		t.Errorf("biomass below target should clamp to the lower bound, got %g", u[0])
	}
}

func TestPIDAntiWindup(t *testing.T) {
	ctrl := NewPID(10, 1, 0, 0.5, 0, 1)
	high := dynamo.State{1.2, 1}
	if u := ctrl.Compute(high, 0); u[0] != 1 {
		t.Fatalf("u = %g, want saturated 1", u[0])
	}
	if u := ctrl.Compute(high, 1); u[0] != 1 {
		t.Fatalf("u = %g, want saturated 1", u[0])
	}
	// no integral was accumulated while saturated
	if u := ctrl.Compute(dynamo.State{0.5, 1}, 2); u[0] != 0 {
		t.Errorf("u at target = %g, want 0", u[0])
	}
}

func TestPIDIntegral(t *testing.T) {
	ctrl := NewPID(0, 1, 0, 0.5, -10, 10)
	x := dynamo.State{0.7, 1}
	ctrl.Compute(x, 0)
	u := ctrl.Compute(x, 2)
	if math.Abs(u[0]-0.4) > 1e-12 {
		t.Errorf("integral term %g, want 0.4", u[0])
	}

	ctrl.Reset()
	if u := ctrl.Compute(x, 5); u[0] != 0 {
		t.Errorf("after reset u = %g, want 0", u[0])
	}
}
