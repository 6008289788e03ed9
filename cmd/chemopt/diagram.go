package main

import (
	"fmt"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/chemopt/internal/analysis"
	"github.com/san-kum/chemopt/internal/chemostat"
)

func runDiagram(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	run, err := cfg.Run("diagram")
	if err != nil {
		return err
	}

	opts := analysis.DefaultOperatingOptions(run.Bounds.Min, run.Bounds.Max)
	opts.Steps = diagramSteps
	opts.Integrator = integrator

	ctx, cancel := signalContext()
	defer cancel()

	model := chemostat.NewModel(run.Kinetics, run.Migration)
	points, err := analysis.OperatingDiagram(ctx, model, run.X0, opts)
	if err != nil {
		return err
	}
	data, err := analysis.Column(points, diagramCol)
	if err != nil {
		return err
	}

	fmt.Printf("%-10s %-10s %-10s %-10s %-10s\n", "dilution", "biomass", "substrate", "production", "diversity")
	for _, p := range points {
		mark := ""
		if p.Washout {
			mark = "  washout"
		}
		fmt.Printf("%-10.4g %-10.4g %-10.4g %-10.4g %-10.4f%s\n",
			p.Dilution, p.Biomass, p.Substrate, p.Production, p.Diversity, mark)
	}
	if len(data) > 1 {
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("%s vs dilution rate [%g, %g]", diagramCol, opts.Min, opts.Max)),
		))
	}
	return nil
}
