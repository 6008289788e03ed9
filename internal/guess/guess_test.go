package guess

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/chemopt/internal/chemostat"
	"github.com/san-kum/chemopt/internal/collocation"
	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/nlp"
)

func testProblem(t *testing.T, intervals int) *nlp.Problem {
	t.Helper()
	k, err := chemostat.NewKinetics(
		[]float64{1.0, 0.7},
		[]float64{0.4, 0.2},
		[]float64{0.5, 0.6},
		nil, 3.0,
	)
	if err != nil {
		t.Fatal(err)
	}
	grid, err := collocation.NewGrid(4, intervals)
	if err != nil {
		t.Fatal(err)
	}
	p, err := nlp.Formulate(chemostat.NewModel(k, 0.02), grid,
		dynamo.State{0.2, 0.4, 1.5},
		nlp.Objective{Mode: nlp.Weighted, Alpha: 1, Beta: 0.5, Gamma: 0.01},
		nlp.ControlBounds{Min: 0.1, Max: 1.2})
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func checkBounds(t *testing.T, p *nlp.Problem, z []float64) {
	t.Helper()
	if len(z) != p.Dim() {
		t.Fatalf("len(z) = %d, want %d", len(z), p.Dim())
	}
	lower, upper := p.Bounds()
	for i, v := range z {
		if v < lower[i] || v > upper[i] || math.IsNaN(v) {
			t.Fatalf("z[%d] = %g outside [%g, %g]", i, v, lower[i], upper[i])
		}
	}
	st := p.Layout.State(z, 0)
	for j := range st {
		if st[j] != p.X0[j] {
			t.Fatalf("initial state %v, want %v", st, p.X0)
		}
	}
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in   string
		want Strategy
	}{
		{"", Linear},
		{"linear", Linear},
		{"Simulate", Simulate},
		{"search", Search},
	}
	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseStrategy(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := ParseStrategy("random"); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestLinearGuess(t *testing.T) {
	p := testProblem(t, 10)
	z, err := LinearGuess(context.Background(), p, 0.5)
	if err != nil {
		t.Fatal(err)
	}
	checkBounds(t, p, z)

	for _, u := range p.Layout.Controls(z) {
		if u != 0.5 {
			t.Fatalf("control %g, want 0.5", u)
		}
	}
	// States lie on a straight line between the ends.
	l := p.Layout
	first, mid, last := l.State(z, 0), l.State(z, 5), l.State(z, 10)
	for j := range mid {
		want := 0.5 * (first[j] + last[j])
		if math.Abs(mid[j]-want) > 1e-12 {
			t.Errorf("state %d at midpoint = %g, want %g", j, mid[j], want)
		}
		if last[j] < terminalFloor {
			t.Errorf("terminal state %d = %g below floor", j, last[j])
		}
	}
}

func TestSimulatedGuessIsConsistent(t *testing.T) {
	p := testProblem(t, 20)
	u := 0.6
	z, err := Build(context.Background(), p, Options{Strategy: Simulate, Control: &u})
	if err != nil {
		t.Fatal(err)
	}
	checkBounds(t, p, z)
	if v := p.Violation(z); v > 1e-8 {
		t.Errorf("simulated guess violation = %g", v)
	}
}

func TestBuildClampsControl(t *testing.T) {
	p := testProblem(t, 5)
	u := 7.0
	z, err := Build(context.Background(), p, Options{Strategy: Linear, Control: &u})
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range p.Layout.Controls(z) {
		if c != p.Limits.Max {
			t.Fatalf("control %g, want clamp to %g", c, p.Limits.Max)
		}
	}

	z, err = Build(context.Background(), p, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if c := p.Layout.Controls(z)[0]; c != p.Limits.Mid() {
		t.Errorf("default control %g, want midpoint %g", c, p.Limits.Mid())
	}
}

func TestWarmStart(t *testing.T) {
	coarse := testProblem(t, 8)
	zc, err := SimulatedGuess(context.Background(), coarse, rampProfile(t, coarse))
	if err != nil {
		t.Fatal(err)
	}
	times := coarse.Grid.Times()
	states := make([]dynamo.State, len(times))
	for k := range times {
		states[k] = coarse.Layout.State(zc, k)
	}
	controls := append([]float64(nil), coarse.Layout.Controls(zc)...)

	// Same grid reproduces the vector.
	same, err := WarmStart(coarse, times, states, controls)
	if err != nil {
		t.Fatal(err)
	}
	for i := range zc {
		if math.Abs(same[i]-zc[i]) > 1e-12 {
			t.Fatalf("z[%d] = %g, want %g", i, same[i], zc[i])
		}
	}

	fine := testProblem(t, 16)
	zf, err := WarmStart(fine, times, states, controls)
	if err != nil {
		t.Fatal(err)
	}
	checkBounds(t, fine, zf)
	// Every coarse point is every second fine point.
	for k := range times {
		if got := fine.Layout.Controls(zf)[2*k]; math.Abs(got-controls[k]) > 1e-12 {
			t.Errorf("control at coarse point %d = %g, want %g", k, got, controls[k])
		}
	}
}

func TestWarmStartRejectsMismatch(t *testing.T) {
	p := testProblem(t, 4)
	_, err := WarmStart(p, []float64{0, 1}, []dynamo.State{{1, 1, 1}}, []float64{0.5, 0.5})
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	_, err = WarmStart(p, []float64{0, 1}, []dynamo.State{{1, 1}, {1, 1}}, []float64{0.5, 0.5})
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("short state: expected ErrDimensionMismatch, got %v", err)
	}
}

func TestSearchGuess(t *testing.T) {
	p := testProblem(t, 10)
	z, cost, err := SearchGuess(context.Background(), p, SearchOptions{Iterations: 4, Population: 6, Seed: 7})
	if err != nil {
		t.Fatal(err)
	}
	checkBounds(t, p, z)
	if math.Abs(cost-p.Eval(z)) > 1e-9 {
		t.Errorf("reported cost %g, objective at guess %g", cost, p.Eval(z))
	}
	if v := p.Violation(z); v > 1e-8 {
		t.Errorf("searched guess violation = %g", v)
	}
}

func TestBuildSearchDefaults(t *testing.T) {
	p := testProblem(t, 8)
	z, err := Build(context.Background(), p, Options{Strategy: Search})
	if err != nil {
		t.Fatal(err)
	}
	checkBounds(t, p, z)
	if v := p.Violation(z); v > 1e-8 {
		t.Errorf("searched guess violation = %g", v)
	}
}

func TestSearchGuessSmallPopulations(t *testing.T) {
	p := testProblem(t, 6)
	for _, pop := range []int{1, 2, 3, 19, 25} {
		z, _, err := SearchGuess(context.Background(), p, SearchOptions{Iterations: 2, Population: pop, Seed: 3})
		if err != nil {
			t.Fatalf("population %d: %v", pop, err)
		}
		checkBounds(t, p, z)
	}
}

func rampProfile(t *testing.T, p *nlp.Problem) controlProfile {
	t.Helper()
	return controlProfile{lo: p.Limits.Min, hi: p.Limits.Max, tf: p.Grid.Horizon}
}

// controlProfile ramps from lo to hi over [0, tf].
type controlProfile struct{ lo, hi, tf float64 }

func (c controlProfile) ValueAt(t float64) float64 { return c.lo + (c.hi-c.lo)*t/c.tf }

func (c controlProfile) Compute(x dynamo.State, t float64) dynamo.Control {
	return dynamo.Control{c.ValueAt(t)}
}
