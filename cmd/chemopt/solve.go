package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/chemopt/internal/config"
	"github.com/san-kum/chemopt/internal/optimal"
	"github.com/san-kum/chemopt/internal/storage"
	"github.com/san-kum/chemopt/internal/tui"
)

// loadRunConfig layers defaults, preset, config file and changed flags.
func loadRunConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("horizon") {
		cfg.Horizon = horizon
	}
	if flags.Changed("intervals") {
		cfg.Intervals = intervals
	}
	if flags.Changed("mode") {
		cfg.Objective.Mode = mode
	}
	if flags.Changed("alpha") {
		cfg.Objective.Alpha = alpha
	}
	if flags.Changed("beta") {
		cfg.Objective.Beta = beta
	}
	if flags.Changed("gamma") {
		cfg.Objective.Gamma = gamma
	}
	if flags.Changed("umin") {
		cfg.Control.Min = umin
	}
	if flags.Changed("umax") {
		cfg.Control.Max = umax
	}
	if flags.Changed("guess") {
		cfg.Guess.Strategy = guessName
	}
	if flags.Changed("guess-control") {
		u := guessLevel
		cfg.Guess.Control = &u
	}
	if flags.Changed("max-iter") {
		cfg.Solver.MaxIter = maxIter
	}
	if flags.Changed("max-time") {
		d, err := time.ParseDuration(maxTime)
		if err != nil {
			return nil, fmt.Errorf("--max-time: %w", err)
		}
		cfg.Solver.MaxTime = d
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	name := runName
	if name == "" {
		name = "run-" + time.Now().Format("20060102-150405")
	}
	run, err := cfg.Run(name)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	var warm *optimal.Result
	if warmFrom != "" {
		traj, err := st.LoadTrajectory(warmFrom)
		if err != nil {
			return fmt.Errorf("warm start: %w", err)
		}
		if len(traj) == 0 {
			return fmt.Errorf("warm start: run %s has no trajectory", warmFrom)
		}
		warm = &optimal.Result{Trajectory: traj}
	}

	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("solving", "run", name, "config", cfg.Summary())
	res, err := optimal.NewPipeline(nil, logger).Solve(ctx, run, warm)
	if err != nil {
		if _, serr := st.SaveFailure(name, nil, cfg.Species, err); serr != nil {
			logger.Error("could not record failure", "err", serr)
		}
		return err
	}
	sum, err := st.SaveResult(name, nil, res)
	if err != nil {
		return err
	}

	fmt.Println(tui.RenderSummary(*sum, res.Trajectory))
	if showPlot {
		fmt.Println(asciigraph.Plot(res.Trajectory.Controls(),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("dilution rate u(t)"),
		))
	}
	return nil
}
