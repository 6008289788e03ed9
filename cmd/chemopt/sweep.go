package main

import (
	"fmt"
	"io"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/chemopt/internal/batch"
	"github.com/san-kum/chemopt/internal/config"
	"github.com/san-kum/chemopt/internal/optimal"
	"github.com/san-kum/chemopt/internal/solver"
	"github.com/san-kum/chemopt/internal/storage"
	"github.com/san-kum/chemopt/internal/tui"
)

func runSweep(cmd *cobra.Command, args []string) error {
	sw, err := config.LoadSweep(args[0])
	if err != nil {
		return err
	}
	jobs, err := batch.Expand(sw)
	if err != nil {
		return fmt.Errorf("sweep: %w", err)
	}

	dir := outDir
	if dir == "" {
		dir = sw.Output
	}
	if dir == "" {
		dir = dataDir
	}
	st := storage.New(dir)

	ctx, cancel := signalContext()
	defer cancel()

	if !useTUI {
		orch := batch.New(optimal.NewPipeline(nil, logger), st, workers, logger)
		orch.OnProgress = func(p batch.Progress) {
			logger.Info("run finished",
				"run", p.Name,
				"status", p.Summary.Status,
				"done", p.Done,
				"total", p.Total,
			)
		}
		sums, err := orch.Run(ctx, sw)
		if err != nil {
			return err
		}
		printTally(sums)
		fmt.Printf("results written to %s\n", st.Dir())
		return nil
	}

	// log lines would tear the bubbletea view
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	orch := batch.New(optimal.NewPipeline(nil, quiet), st, workers, quiet)

	p := tea.NewProgram(tui.NewSweepModel(len(jobs)))
	orch.OnProgress = func(pr batch.Progress) {
		p.Send(tui.ProgressMsg(pr))
	}

	var sums []storage.Summary
	go func() {
		var runErr error
		sums, runErr = orch.Run(ctx, sw)
		p.Send(tui.DoneMsg{Err: runErr})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		return err
	}
	view := final.(tui.SweepModel)
	if view.Cancelled {
		cancel()
		return fmt.Errorf("sweep cancelled")
	}
	if view.Err != nil {
		return view.Err
	}
	printTally(sums)
	fmt.Printf("results written to %s\n", st.Dir())
	return nil
}

func printTally(sums []storage.Summary) {
	counts := make(map[string]int)
	for _, s := range sums {
		counts[s.Status]++
	}
	fmt.Printf("%d runs:", len(sums))
	statuses := []string{storage.StatusError}
	for _, st := range []solver.Status{solver.Converged, solver.AcceptableTolerance, solver.IterationLimit, solver.Infeasible, solver.NumericalError} {
		statuses = append(statuses, st.String())
	}
	for _, status := range statuses {
		if counts[status] > 0 {
			fmt.Printf(" %s=%d", status, counts[status])
		}
	}
	fmt.Println()
}
