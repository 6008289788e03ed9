package config

import (
	"sort"

	"github.com/san-kum/chemopt/internal/solver"
)

func f64(v float64) *float64 { return &v }

var defaultSolver = func() SolverConfig {
	s := solver.DefaultSettings()
	return SolverConfig{Tol: s.Tol, AcceptableTol: s.AcceptableTol, MaxIter: s.MaxIter, MaxOuter: s.MaxOuter}
}()

var Presets = map[string]*Config{
	"single": {
		Species: 1, InitState: []float64{0.5, 1.0}, Horizon: 30, Intervals: 150,
		Objective: ObjectiveConfig{Mode: "production"},
		Control:   ControlConfig{Min: 0, Max: 3},
		Solver:    defaultSolver,
		Kinetics: KineticsConfig{
			MaxGrowth: []float64{1}, HalfSat: []float64{0.5}, Yield: []float64{0.5}, Feed: 2,
		},
		Guess: GuessConfig{Strategy: "simulate"},
	},
	"single_wide": {
		Species: 1, InitState: []float64{0.5, 1.0}, Horizon: 30, Intervals: 150,
		Objective: ObjectiveConfig{Mode: "production"},
		Control:   ControlConfig{Min: 0, Max: 5},
		Solver:    defaultSolver,
		Kinetics: KineticsConfig{
			MaxGrowth: []float64{1}, HalfSat: []float64{0.5}, Yield: []float64{0.5}, Feed: 2,
		},
		Guess: GuessConfig{Strategy: "simulate"},
	},
	"five_species": {
		Species: 5, InitState: []float64{0.2, 0.2, 0.2, 0.2, 0.2, 1.0}, Horizon: 10, Intervals: 40,
		Objective: ObjectiveConfig{Mode: "diversity", Gamma: 1e-4},
		Control:   ControlConfig{Min: 0.05, Max: 1},
		Solver:    defaultSolver,
		Kinetics: KineticsConfig{
			MaxGrowth: []float64{1.0, 0.9, 0.8, 0.7, 0.6},
			HalfSat:   []float64{0.3},
			Yield:     []float64{0.5},
			Migration: 0.01,
			Feed:      2,
		},
		Guess: GuessConfig{Strategy: "simulate"},
	},
	"weighted": {
		Species: 2, InitState: []float64{0.3, 0.3, 1.0}, Horizon: 20, Intervals: 40,
		Objective: ObjectiveConfig{Mode: "weighted", Alpha: 0.5, Beta: 0.5, Gamma: 0.01},
		Control:   ControlConfig{Min: 0, Max: 1.5},
		Solver:    defaultSolver,
		Kinetics: KineticsConfig{
			MaxGrowth: []float64{1.0, 0.8},
			HalfSat:   []float64{0.3, 0.2},
			Yield:     []float64{0.5},
			Migration: 0.05,
			Feed:      2,
		},
		Guess: GuessConfig{Strategy: "simulate"},
	},
	"searched": {
		Species: 3, InitState: []float64{0.2, 0.3, 0.1, 1.5}, Horizon: 15, Intervals: 60,
		Objective: ObjectiveConfig{Mode: "weighted", Alpha: 1, Beta: 0.2, Gamma: 0.01},
		Control:   ControlConfig{Min: 0.05, Max: 1.2},
		Solver:    defaultSolver,
		Kinetics: KineticsConfig{
			MaxGrowth: []float64{0.9, 0.8, 0.7},
			HalfSat:   []float64{0.4, 0.3, 0.2},
			Yield:     []float64{0.5, 0.45, 0.4},
			Coupling:  [][]float64{{-1, 1, 0}, {1, -2, 1}, {0, 1, -1}},
			Migration: 0.02,
			Feed:      3,
		},
		Guess: GuessConfig{Strategy: "search", Control: f64(0.6), Seed: 1},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
