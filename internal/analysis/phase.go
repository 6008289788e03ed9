package analysis

import (
	"strings"

	"github.com/san-kum/chemopt/internal/optimal"
)

// PhasePortrait pairs two trajectory columns, e.g. substrate against one
// species.
type PhasePortrait struct {
	XName, YName string
	Points       []struct{ X, Y float64 }
}

func NewPhasePortrait(traj optimal.Trajectory, xName, yName string) (*PhasePortrait, error) {
	xs, err := traj.Column(xName)
	if err != nil {
		return nil, err
	}
	ys, err := traj.Column(yName)
	if err != nil {
		return nil, err
	}
	portrait := &PhasePortrait{
		XName:  xName,
		YName:  yName,
		Points: make([]struct{ X, Y float64 }, len(xs)),
	}
	for i := range xs {
		portrait.Points[i].X = xs[i]
		portrait.Points[i].Y = ys[i]
	}
	return portrait, nil
}

// ASCII draws the portrait on a width x height character grid. The first
// point is marked 'o' and the last 'x'.
func (p *PhasePortrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = min(minX, pt.X), max(maxX, pt.X)
		minY, maxY = min(minY, pt.Y), max(maxY, pt.Y)
	}

	// Add padding
	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.05
	minY -= rangeY * 0.05
	rangeX *= 1.1
	rangeY *= 1.1

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	cell := func(x, y float64) (int, int) {
		col := int((x - minX) / rangeX * float64(width-1))
		row := height - 1 - int((y-minY)/rangeY*float64(height-1))
		return row, col
	}
	for _, pt := range p.Points {
		row, col := cell(pt.X, pt.Y)
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}
	first, last := p.Points[0], p.Points[len(p.Points)-1]
	if row, col := cell(first.X, first.Y); row >= 0 && row < height && col >= 0 && col < width {
		canvas[row][col] = 'o'
	}
	if row, col := cell(last.X, last.Y); row >= 0 && row < height && col >= 0 && col < width {
		canvas[row][col] = 'x'
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	sb.WriteString(p.XName + " → " + p.YName + "\n")
	return sb.String()
}
