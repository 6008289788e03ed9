package collocation

import (
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/chemopt/internal/chemostat"
	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/integrators"
)

func testModel(t *testing.T, eps float64) *chemostat.Model {
	t.Helper()
	k, err := chemostat.NewKinetics(
		[]float64{1.0, 0.7},
		[]float64{0.4, 0.2},
		[]float64{0.5, 0.6},
		nil, 2.0,
	)
	if err != nil {
		t.Fatal(err)
	}
	return chemostat.NewModel(k, eps)
}

func TestGrid(t *testing.T) {
	g, err := NewGrid(2, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0.5, 1, 1.5, 2}
	got := g.Times()
	if len(got) != len(want) {
		t.Fatalf("expected %d points, got %d", len(want), len(got))
	}
	for i := range want {
		if math.Abs(got[i]-want[i]) > 1e-15 {
			t.Errorf("time[%d] = %g, want %g", i, got[i], want[i])
		}
	}
	if g.Time(4) != 2 {
		t.Errorf("last grid time must equal the horizon exactly, got %v", g.Time(4))
	}
}

func TestGridInvalid(t *testing.T) {
	if _, err := NewGrid(0, 10); err == nil {
		t.Error("expected error for zero horizon")
	}
	if _, err := NewGrid(1, 0); err == nil {
		t.Error("expected error for zero intervals")
	}
}

func TestLayoutIndicesAreABijection(t *testing.T) {
	g, _ := NewGrid(1, 5)
	l := NewLayout(3, g)

	seen := make([]bool, l.Dim())
	mark := func(i int) {
		if i < 0 || i >= l.Dim() {
			t.Fatalf("index %d out of range [0, %d)", i, l.Dim())
		}
		if seen[i] {
			t.Fatalf("index %d used twice", i)
		}
		seen[i] = true
	}
	for k := 0; k < l.Points; k++ {
		for j := 0; j < l.StateDim(); j++ {
			mark(l.StateIndex(k, j))
		}
		mark(l.Control(k))
	}
	for i, ok := range seen {
		if !ok {
			t.Errorf("index %d never used", i)
		}
	}
}

func TestLayoutStateRoundTrip(t *testing.T) {
	g, _ := NewGrid(1, 3)
	l := NewLayout(2, g)
	z := make([]float64, l.Dim())

	st := dynamo.State{1.5, 2.5, 0.25}
	l.SetState(z, 2, st)
	got := l.State(z, 2)
	for i := range st {
		if got[i] != st[i] {
			t.Errorf("component %d = %g, want %g", i, got[i], st[i])
		}
	}
	l.Controls(z)[1] = 0.8
	if z[l.Control(1)] != 0.8 {
		t.Error("Controls should share storage with the decision vector")
	}
}

func TestDefectsVanishOnTrapezoidTrajectory(t *testing.T) {
	model := testModel(t, 0.05)
	g, _ := NewGrid(5, 25)
	tr, err := NewTranscription(model, g)
	if err != nil {
		t.Fatal(err)
	}
	l := tr.Layout
	z := make([]float64, l.Dim())

	controls := make([]float64, l.Points)
	for k := range controls {
		controls[k] = 0.3 + 0.2*math.Sin(float64(k)/4)
	}
	copy(l.Controls(z), controls)

	stepper := integrators.NewTrapezoid()
	x := dynamo.State{0.5, 0.2, 1.0}
	l.SetState(z, 0, x)
	for k := 0; k < g.Intervals; k++ {
		x = stepper.StepControlled(model, x, dynamo.Control{controls[k]}, dynamo.Control{controls[k+1]}, g.Time(k), g.Step())
		l.SetState(z, k+1, x)
	}

	d := make([]float64, tr.NumDefects())
	tr.Defects(z, d)
	for i, v := range d {
		if math.Abs(v) > 1e-9 {
			t.Errorf("defect %d = %g, want ~0", i, v)
		}
	}
}

func TestDefectsJacTMatchesFiniteDifference(t *testing.T) {
	model := testModel(t, 0.1)
	g, _ := NewGrid(2, 3)
	tr, err := NewTranscription(model, g)
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(7))
	z := make([]float64, tr.Layout.Dim())
	for i := range z {
		z[i] = 0.2 + rng.Float64()
	}
	v := make([]float64, tr.NumDefects())
	for i := range v {
		v[i] = rng.Float64() - 0.5
	}

	got := make([]float64, len(z))
	tr.DefectsJacT(z, v, got)

	dot := func(z []float64) float64 {
		d := make([]float64, tr.NumDefects())
		tr.Defects(z, d)
		s := 0.0
		for i := range d {
			s += d[i] * v[i]
		}
		return s
	}

	h := 1e-6
	for i := range z {
		zp := append([]float64(nil), z...)
		zm := append([]float64(nil), z...)
		zp[i] += h
		zm[i] -= h
		fd := (dot(zp) - dot(zm)) / (2 * h)
		if math.Abs(fd-got[i]) > 1e-6 {
			t.Errorf("J^T v [%d] = %g, finite difference %g", i, got[i], fd)
		}
	}
}

func TestNewTranscriptionRejectsBadKinetics(t *testing.T) {
	g, _ := NewGrid(1, 2)
	if _, err := NewTranscription(nil, g); err == nil {
		t.Error("expected error for nil model")
	}
	bad := &chemostat.Model{Kinetics: chemostat.Kinetics{MaxGrowth: []float64{1}}}
	if _, err := NewTranscription(bad, g); err == nil {
		t.Error("expected error for incomplete kinetics")
	}
}
