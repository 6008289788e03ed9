package tui

import (
	"fmt"
	"strings"

	"github.com/san-kum/chemopt/internal/optimal"
	"github.com/san-kum/chemopt/internal/storage"
)

// RenderSummary draws one run's summary with sparklines of its control,
// production and diversity series.
func RenderSummary(sum storage.Summary, traj optimal.Trajectory) string {
	var b strings.Builder
	b.WriteString(Title.Render(sum.Name) + "  " + StatusStyle(sum.Status).Render(sum.Status) + "\n\n")

	row := func(label, value string) {
		fmt.Fprintf(&b, "%s %s\n", Label.Render(fmt.Sprintf("%-18s", label)), Value.Render(value))
	}
	row("species", fmt.Sprint(sum.Species))
	if sum.Horizon > 0 {
		row("horizon", fmt.Sprintf("%g", sum.Horizon))
	}
	if sum.Alpha != nil && sum.Beta != nil {
		row("weights", fmt.Sprintf("alpha=%g beta=%g", *sum.Alpha, *sum.Beta))
	}
	if sum.Status == storage.StatusError {
		row("error", sum.Error)
		return Panel.Render(b.String())
	}
	row("final production", fmt.Sprintf("%.6g", sum.FinalProduction))
	row("final diversity", fmt.Sprintf("%.6f", sum.FinalDiversity))
	row("objective", fmt.Sprintf("%.6g", sum.Objective))
	row("violation", fmt.Sprintf("%.2e", sum.Violation))
	row("iterations", fmt.Sprint(sum.Iterations))
	row("wall time", fmt.Sprintf("%.2fs", sum.WallTime))
	if sum.Advice != "" {
		row("advice", sum.Advice)
	}

	if len(traj) > 1 {
		b.WriteString("\n")
		for _, col := range []string{"control", "production", "diversity"} {
			series, err := traj.Column(col)
			if err != nil {
				continue
			}
			fmt.Fprintf(&b, "%s %s\n", Label.Render(fmt.Sprintf("%-18s", col)), Sparkline(series, 40))
		}
	}
	return Panel.Render(b.String())
}
