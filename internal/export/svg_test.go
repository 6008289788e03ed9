package export

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/optimal"
)

func TestLineSVG(t *testing.T) {
	svg, err := LineSVG([]float64{0, 1, 2}, []float64{1, 3, 2}, 200, 100, "#00ff00", "control")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Errorf("not a complete document:\n%s", svg)
	}
	if !strings.Contains(svg, `stroke="#00ff00"`) || !strings.Contains(svg, "control [1, 3]") {
		t.Errorf("series or title missing:\n%s", svg)
	}
	if strings.Count(svg, " L") != 2 {
		t.Errorf("expected 2 line segments:\n%s", svg)
	}

	// flat series must not divide by zero
	flat, err := LineSVG([]float64{0, 1}, []float64{2, 2}, 100, 50, "#fff", "flat")
	if err != nil || strings.Contains(flat, "NaN") || strings.Contains(flat, "Inf") {
		t.Errorf("flat series: %v\n%s", err, flat)
	}
}

func TestLineSVGErrors(t *testing.T) {
	if _, err := LineSVG([]float64{0, 1}, []float64{1}, 10, 10, "#fff", ""); !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if _, err := LineSVG([]float64{0}, []float64{1}, 10, 10, "#fff", ""); err == nil {
		t.Error("single point accepted")
	}
}

func TestTrajectorySVG(t *testing.T) {
	traj := optimal.Trajectory{
		{Time: 0, Species: []float64{0.5}, Substrate: 1, Control: 0.1, Production: 0.05, Diversity: 1},
		{Time: 1, Species: []float64{0.6}, Substrate: 0.8, Control: 0.3, Production: 0.18, Diversity: 1},
	}
	svg, err := TrajectorySVG(traj, []string{"control", "x0"}, 300, 120)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(svg, `height="240"`) {
		t.Error("two panels should stack to 240px")
	}
	if strings.Count(svg, "<path") != 2 {
		t.Errorf("expected one path per column:\n%s", svg)
	}

	if _, err := TrajectorySVG(traj, []string{"yield"}, 300, 120); err == nil {
		t.Error("unknown column accepted")
	}
	if _, err := TrajectorySVG(traj, nil, 300, 120); err == nil {
		t.Error("no columns accepted")
	}

	path := filepath.Join(t.TempDir(), "run.svg")
	if err := WriteFile(path, svg); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != svg {
		t.Errorf("file round trip: %v", err)
	}
}
