// Package export renders stored trajectories as standalone SVG charts.
package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/optimal"
)

const (
	background = "#0a0a0a"
	axisColor  = "#444444"
	textColor  = "#bbbbbb"
)

// palette cycles across columns.
var palette = []string{"#00ff88", "#ffaa00", "#44aaff", "#ff5577", "#cc88ff"}

// LineSVG draws ys against xs scaled to fill width x height with a 10%
// margin. A flat series is drawn mid-height.
func LineSVG(xs, ys []float64, width, height int, strokeColor, title string) (string, error) {
	if len(xs) != len(ys) {
		return "", fmt.Errorf("%w: %d x values, %d y values", dynamo.ErrDimensionMismatch, len(xs), len(ys))
	}
	if len(xs) < 2 {
		return "", fmt.Errorf("export: need at least 2 points, got %d", len(xs))
	}

	var sb strings.Builder
	writeHeader(&sb, width, height)
	writeSeries(&sb, xs, ys, 0, 0, width, height, strokeColor, title)
	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

// TrajectorySVG stacks one panel per column, all against time.
func TrajectorySVG(traj optimal.Trajectory, columns []string, width, panelHeight int) (string, error) {
	if len(traj) < 2 {
		return "", fmt.Errorf("export: need at least 2 points, got %d", len(traj))
	}
	if len(columns) == 0 {
		return "", fmt.Errorf("export: no columns")
	}
	times := traj.Times()

	var sb strings.Builder
	writeHeader(&sb, width, panelHeight*len(columns))
	for i, name := range columns {
		ys, err := traj.Column(name)
		if err != nil {
			return "", err
		}
		writeSeries(&sb, times, ys, 0, i*panelHeight, width, panelHeight, palette[i%len(palette)], name)
	}
	sb.WriteString("</svg>\n")
	return sb.String(), nil
}

func WriteFile(path, svg string) error {
	return os.WriteFile(path, []byte(svg), 0644)
}

func writeHeader(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

func writeSeries(sb *strings.Builder, xs, ys []float64, left, top, width, height int, strokeColor, title string) {
	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := range xs {
		minX, maxX = min(minX, xs[i]), max(maxX, xs[i])
		minY, maxY = min(minY, ys[i]), max(maxY, ys[i])
	}
	lo, hi := minY, maxY

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
		minY -= 0.5
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	w, h := float64(width), float64(height)
	px := func(x float64) float64 { return float64(left) + (x-minX)/rangeX*w }
	py := func(y float64) float64 { return float64(top) + h - (y-minY)/rangeY*h }

	fmt.Fprintf(sb, `<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s"/>
`, px(xs[0]), py(lo), px(xs[len(xs)-1]), py(lo), axisColor)
	fmt.Fprintf(sb, `<text x="%d" y="%d" fill="%s" font-family="monospace" font-size="12">%s [%.4g, %.4g]</text>
`, left+6, top+16, textColor, title, lo, hi)

	fmt.Fprintf(sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)
	for i := range xs {
		if i == 0 {
			fmt.Fprintf(sb, "%.1f,%.1f", px(xs[i]), py(ys[i]))
		} else {
			fmt.Fprintf(sb, " L%.1f,%.1f", px(xs[i]), py(ys[i]))
		}
	}
	sb.WriteString("\"/>\n")
}
