package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/chemopt/internal/dynamo"
)

func TestProductionAndDiversity(t *testing.T) {
	p := NewProduction()
	d := NewDiversity()

	x := dynamo.State{1, 3, 0.2} // two species + substrate
	u := dynamo.Control{0.5}

	p.Observe(x, u, 0)
	d.Observe(x, u, 0)

	if p.Value() != 2 {
		t.Errorf("production = %g, want 2", p.Value())
	}
	if want := (1.0 + 9.0) / 16.0; math.Abs(d.Value()-want) > 1e-12 {
		t.Errorf("diversity = %g, want %g", d.Value(), want)
	}

	p.Reset()
	d.Reset()
	if p.Value() != 0 || d.Value() != 0 {
		t.Error("Reset should clear last observation")
	}
}

func TestHarvest(t *testing.T) {
	h := NewHarvest()
	x := dynamo.State{2, 0.1}
	for i := 0; i <= 10; i++ {
		h.Observe(x, dynamo.Control{1}, float64(i)*0.1)
	}
	// constant rate 2 over one time unit
	if math.Abs(h.Value()-2) > 1e-12 {
		t.Errorf("harvest = %g, want 2", h.Value())
	}
}

func TestWashout(t *testing.T) {
	w := NewWashout(0.5)
	w.Observe(dynamo.State{1, 0}, nil, 0)
	w.Observe(dynamo.State{0.1, 0}, nil, 1)
	if w.Value() != 0.5 {
		t.Errorf("washout = %g, want 0.5", w.Value())
	}
}

func TestControlEffort(t *testing.T) {
	c := NewControlEffort()
	c.Observe(nil, dynamo.Control{-1}, 0)
	c.Observe(nil, dynamo.Control{3}, 1)
	if c.Value() != 2 {
		t.Errorf("control effort = %g, want 2", c.Value())
	}

	// a repeated final instant adds no weight
	c.Reset()
	c.Observe(nil, dynamo.Control{1}, 0)
	c.Observe(nil, dynamo.Control{1}, 3)
	c.Observe(nil, dynamo.Control{1}, 3)
	if c.Value() != 1 {
		t.Errorf("control effort = %g, want 1", c.Value())
	}

	c.Reset()
	c.Observe(nil, dynamo.Control{2}, 5)
	c.Observe(nil, dynamo.Control{4}, 5)
	if c.Value() != 3 {
		t.Errorf("single instant should average samples, got %g", c.Value())
	}
}

func TestControlVariation(t *testing.T) {
	c := NewControlVariation()
	for i, u := range []float64{0, 1, 1, 0, 0.5} {
		c.Observe(nil, dynamo.Control{u}, float64(i))
	}
	if c.Value() != 2.5 {
		t.Errorf("variation = %g, want 2.5", c.Value())
	}
	c.Reset()
	if c.Value() != 0 {
		t.Errorf("after reset %g", c.Value())
	}
}

func TestDefaultsHaveUniqueNames(t *testing.T) {
	seen := map[string]bool{}
	for _, m := range Defaults() {
		if seen[m.Name()] {
			t.Errorf("duplicate metric %q", m.Name())
		}
		seen[m.Name()] = true
	}
}
