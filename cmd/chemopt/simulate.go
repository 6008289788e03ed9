package main

import (
	"fmt"
	"math"
	"sort"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/chemopt/internal/control"
	"github.com/san-kum/chemopt/internal/experiment"
	"github.com/san-kum/chemopt/internal/optimal"
	"github.com/san-kum/chemopt/internal/storage"
)

func runSimulate(cmd *cobra.Command, args []string) error {
	cfg, err := loadRunConfig(cmd)
	if err != nil {
		return err
	}
	run, err := cfg.Run("simulate")
	if err != nil {
		return err
	}
	expCfg := experiment.FromRun(run, integrator, dt)
	var stored optimal.Trajectory

	if cmd.Flags().Changed("setpoint") && replay != "" {
		return fmt.Errorf("--setpoint and --replay are exclusive")
	}
	if cmd.Flags().Changed("setpoint") {
		expCfg.Signal = control.NewPID(kp, ki, 0, setpoint, run.Bounds.Min, run.Bounds.Max)
	}
	if replay != "" {
		traj, err := storage.New(dataDir).LoadTrajectory(replay)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		sig, err := experiment.Replay(traj)
		if err != nil {
			return fmt.Errorf("replay %s: %w", replay, err)
		}
		expCfg.Signal = sig
		expCfg.InitState = traj.States()[0]
		stored = traj
		if n := len(traj); n > 1 {
			expCfg.Duration = traj[n-1].Time
			// land on every stored grid point so the runs can be compared
			h := traj[1].Time - traj[0].Time
			expCfg.Dt = h / math.Ceil(h/dt-1e-9)
		}
	}

	exp := experiment.New(expCfg)
	if err := exp.Setup(); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	logger.Info("simulating", "integrator", integrator, "dt", dt, "duration", expCfg.Duration)
	res, err := exp.Run(ctx)
	if err != nil {
		return err
	}
	for _, e := range res.Errors {
		logger.Warn("simulation", "err", e)
	}

	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	fmt.Printf("steps: %d\n", res.StepsTaken)
	for _, name := range names {
		fmt.Printf("%-16s %.6g\n", name+":", res.Metrics[name])
	}

	if len(stored) > 1 {
		dev, err := experiment.Deviation(stored, experiment.Trajectory(res))
		if err != nil {
			return err
		}
		fmt.Printf("max state deviation from %s: %.3g\n", replay, dev)
	}

	biomass := make([]float64, len(res.States))
	for i, st := range res.States {
		biomass[i] = st.Biomass()
	}
	fmt.Println(asciigraph.Plot(biomass,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("total biomass"),
	))
	return nil
}
