package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	dataDir   string
	logLevel  string
	logFormat string
	logger    *slog.Logger

	// run config sources
	configFile string
	preset     string

	// run config overrides
	runName    string
	horizon    float64
	intervals  int
	mode       string
	alpha      float64
	beta       float64
	gamma      float64
	umin       float64
	umax       float64
	guessName  string
	guessLevel float64
	maxIter    int
	maxTime    string
	warmFrom   string
	showPlot   bool

	// sweep
	workers int
	useTUI  bool
	outDir  string

	// simulate
	integrator string
	dt         float64
	replay     string

	// reports
	column  string
	outFile string
	svgFile string
	phase   string

	// diagram
	diagramSteps int
	diagramCol   string

	// feedback
	setpoint float64
	kp       float64
	ki       float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "chemopt",
		Short: "optimal dilution control for multi-species chemostats",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger = newLogger(logLevel, logFormat)
			slog.SetDefault(logger)
		},
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".chemopt", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	solveCmd := &cobra.Command{
		Use:   "solve",
		Short: "solve one optimal control problem",
		Args:  cobra.NoArgs,
		RunE:  runSolve,
	}
	addRunFlags(solveCmd)
	solveCmd.Flags().StringVar(&runName, "name", "", "run name (default: timestamped)")
	solveCmd.Flags().StringVar(&warmFrom, "warm", "", "warm start from a stored run")
	solveCmd.Flags().BoolVar(&showPlot, "plot", false, "plot the control profile")

	sweepCmd := &cobra.Command{
		Use:   "sweep [sweep.yaml]",
		Short: "run a batch over initial conditions, horizons and weights",
		Args:  cobra.ExactArgs(1),
		RunE:  runSweep,
	}
	sweepCmd.Flags().IntVar(&workers, "workers", 0, "concurrent solves (default: from file, else GOMAXPROCS)")
	sweepCmd.Flags().BoolVar(&useTUI, "tui", false, "show live progress")
	sweepCmd.Flags().StringVar(&outDir, "out", "", "output directory (default: from file, else the data directory)")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "forward-simulate under a constant or replayed control",
		Args:  cobra.NoArgs,
		RunE:  runSimulate,
	}
	addRunFlags(simulateCmd)
	simulateCmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (euler, rk4, trapezoid)")
	simulateCmd.Flags().Float64Var(&dt, "dt", 0.01, "timestep")
	simulateCmd.Flags().StringVar(&replay, "replay", "", "replay the control profile of a stored run")
	simulateCmd.Flags().Float64Var(&setpoint, "setpoint", 0, "hold total biomass with a PID controller instead")
	simulateCmd.Flags().Float64Var(&kp, "kp", 2, "PID proportional gain")
	simulateCmd.Flags().Float64Var(&ki, "ki", 0.5, "PID integral gain")

	diagramCmd := &cobra.Command{
		Use:   "diagram",
		Short: "steady states across constant dilution rates",
		Args:  cobra.NoArgs,
		RunE:  runDiagram,
	}
	addRunFlags(diagramCmd)
	diagramCmd.Flags().IntVar(&diagramSteps, "steps", 41, "dilution rates between umin and umax")
	diagramCmd.Flags().StringVar(&diagramCol, "column", "production", "column to plot (biomass, substrate, production, diversity)")
	diagramCmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator (euler, rk4, trapezoid)")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run]",
		Short: "show a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run]",
		Short: "plot stored run columns",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&column, "column", "", "single column to plot (default: control, production, diversity, substrate)")
	plotCmd.Flags().StringVar(&svgFile, "svg", "", "also write the plotted columns to an SVG file")
	plotCmd.Flags().StringVar(&phase, "phase", "", "phase portrait of two columns, e.g. substrate,x0")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list built-in run presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run]",
		Short: "export a stored run to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outFile, "out", "o", "", "output file (default: stdout)")

	rootCmd.AddCommand(solveCmd, sweepCmd, simulateCmd, diagramCmd, listCmd, showCmd, plotCmd, presetsCmd, exportJSONCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().Float64Var(&horizon, "horizon", 0, "final time tf")
	cmd.Flags().IntVar(&intervals, "intervals", 0, "collocation intervals N")
	cmd.Flags().StringVar(&mode, "mode", "", "objective (production, diversity, weighted)")
	cmd.Flags().Float64Var(&alpha, "alpha", 0, "production weight")
	cmd.Flags().Float64Var(&beta, "beta", 0, "diversity weight")
	cmd.Flags().Float64Var(&gamma, "gamma", 0, "control curvature weight")
	cmd.Flags().Float64Var(&umin, "umin", 0, "lower dilution bound")
	cmd.Flags().Float64Var(&umax, "umax", 0, "upper dilution bound")
	cmd.Flags().StringVar(&guessName, "guess", "", "initial guess (linear, simulate, search)")
	cmd.Flags().Float64Var(&guessLevel, "guess-control", 0, "constant control of the initial guess")
	cmd.Flags().IntVar(&maxIter, "max-iter", 0, "solver iteration cap")
	cmd.Flags().StringVar(&maxTime, "max-time", "", "solver wall-time budget (e.g. 30s)")
}

func newLogger(level, format string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
