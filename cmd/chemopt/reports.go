package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/chemopt/internal/analysis"
	"github.com/san-kum/chemopt/internal/config"
	"github.com/san-kum/chemopt/internal/export"
	"github.com/san-kum/chemopt/internal/storage"
	"github.com/san-kum/chemopt/internal/tui"
)

// chatterWarn flags profiles whose upper-band power suggests grid-scale
// oscillation rather than a real switching structure.
const chatterWarn = 0.2

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := storage.New(dataDir).List()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tSPECIES\tPRODUCTION\tDIVERSITY\tITER\tTIME")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4g\t%.4f\t%d\t%.2fs\n",
			r.Name, r.Status, r.Species, r.FinalProduction, r.FinalDiversity, r.Iterations, r.WallTime)
	}
	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	sum, err := st.Load(args[0])
	if err != nil {
		return err
	}
	traj, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	fmt.Println(tui.RenderSummary(*sum, traj))
	if spec, err := analysis.ControlSpectrum(traj); err == nil {
		share := spec.HighFrequencyShare()
		fmt.Printf("control high-frequency share: %.3f\n", share)
		if share > chatterWarn {
			logger.Warn("control profile chatters between grid points", "run", args[0], "share", share)
		}
	}
	return nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	traj, err := storage.New(dataDir).LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	if len(traj) == 0 {
		return fmt.Errorf("run %s has no trajectory", args[0])
	}

	if phase != "" {
		names := strings.Split(phase, ",")
		if len(names) != 2 {
			return fmt.Errorf("--phase wants two columns, got %q", phase)
		}
		portrait, err := analysis.NewPhasePortrait(traj, strings.TrimSpace(names[0]), strings.TrimSpace(names[1]))
		if err != nil {
			return err
		}
		fmt.Print(portrait.ASCII(80, 24))
		return nil
	}

	columns := []string{"control", "production", "diversity", "substrate"}
	if column != "" {
		columns = []string{column}
	}
	if svgFile != "" {
		svg, err := export.TrajectorySVG(traj, columns, 800, 200)
		if err != nil {
			return err
		}
		if err := export.WriteFile(svgFile, svg); err != nil {
			return err
		}
		logger.Info("wrote svg", "run", args[0], "path", svgFile)
	}
	for _, name := range columns {
		data, err := traj.Column(name)
		if err != nil {
			return err
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(80),
			asciigraph.Caption(name),
		))
		fmt.Println()
	}
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	for _, name := range config.ListPresets() {
		fmt.Printf("%-14s %s\n", name, config.GetPreset(name).Summary())
	}
	return nil
}

func exportJSON(cmd *cobra.Command, args []string) error {
	data, err := storage.New(dataDir).Export(args[0])
	if err != nil {
		return err
	}
	if outFile == "" {
		return storage.ExportJSON(os.Stdout, data)
	}
	if err := storage.ExportJSONFile(outFile, data); err != nil {
		return err
	}
	logger.Info("exported", "run", args[0], "path", outFile)
	return nil
}
