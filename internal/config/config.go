package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/chemopt/internal/chemostat"
	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/guess"
	"github.com/san-kum/chemopt/internal/nlp"
	"github.com/san-kum/chemopt/internal/optimal"
	"github.com/san-kum/chemopt/internal/solver"
)

const (
	DefaultHorizon   = 30.0
	DefaultIntervals = 150
	DefaultMaxGrowth = 1.0
	DefaultHalfSat   = 0.5
	DefaultYield     = 0.5
	DefaultFeed      = 2.0
	DefaultUMax      = 3.0
)

type Config struct {
	Species   int             `yaml:"species"`
	InitState []float64       `yaml:"init_state"`
	Horizon   float64         `yaml:"horizon"`
	Intervals int             `yaml:"intervals"`
	Objective ObjectiveConfig `yaml:"objective"`
	Control   ControlConfig   `yaml:"control"`
	Solver    SolverConfig    `yaml:"solver"`
	Kinetics  KineticsConfig  `yaml:"kinetics"`
	Guess     GuessConfig     `yaml:"guess"`
}

type ObjectiveConfig struct {
	Mode  string  `yaml:"mode"`
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
	Gamma float64 `yaml:"gamma"`
}

type ControlConfig struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

type SolverConfig struct {
	Tol           float64       `yaml:"tol"`
	AcceptableTol float64       `yaml:"acceptable_tol"`
	MaxIter       int           `yaml:"max_iter"`
	MaxOuter      int           `yaml:"max_outer"`
	MaxTime       time.Duration `yaml:"max_time"`
}

// KineticsConfig holds per-species parameters. A single value is
// broadcast to every species.
type KineticsConfig struct {
	MaxGrowth []float64   `yaml:"max_growth"`
	HalfSat   []float64   `yaml:"half_sat"`
	Yield     []float64   `yaml:"yield"`
	Coupling  [][]float64 `yaml:"coupling,omitempty"`
	Migration float64     `yaml:"migration"`
	Feed      float64     `yaml:"feed"`
}

type GuessConfig struct {
	Strategy   string   `yaml:"strategy"`
	Control    *float64 `yaml:"control,omitempty"`
	Seed       int64    `yaml:"seed,omitempty"`
	Iterations int      `yaml:"iterations,omitempty"`
	Population int      `yaml:"population,omitempty"`
}

func DefaultConfig() *Config {
	s := solver.DefaultSettings()
	return &Config{
		Species:   1,
		InitState: []float64{0.5, 1.0},
		Horizon:   DefaultHorizon,
		Intervals: DefaultIntervals,
		Objective: ObjectiveConfig{Mode: nlp.MaximizeProduction.String()},
		Control:   ControlConfig{Min: 0, Max: DefaultUMax},
		Solver: SolverConfig{
			Tol:           s.Tol,
			AcceptableTol: s.AcceptableTol,
			MaxIter:       s.MaxIter,
			MaxOuter:      s.MaxOuter,
		},
		Kinetics: KineticsConfig{
			MaxGrowth: []float64{DefaultMaxGrowth},
			HalfSat:   []float64{DefaultHalfSat},
			Yield:     []float64{DefaultYield},
			Feed:      DefaultFeed,
		},
		Guess: GuessConfig{Strategy: guess.Linear.String()},
	}
}

// Load reads a YAML run config over the defaults. Unknown keys are
// rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := decodeStrict(data, cfg); err != nil {
		return nil, &dynamo.ConfigError{Field: path, Reason: err.Error()}
	}
	return cfg, nil
}

func decodeStrict(data []byte, out any) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.InitState = append([]float64(nil), c.InitState...)
	out.Kinetics.MaxGrowth = append([]float64(nil), c.Kinetics.MaxGrowth...)
	out.Kinetics.HalfSat = append([]float64(nil), c.Kinetics.HalfSat...)
	out.Kinetics.Yield = append([]float64(nil), c.Kinetics.Yield...)
	if c.Kinetics.Coupling != nil {
		out.Kinetics.Coupling = make([][]float64, len(c.Kinetics.Coupling))
		for i, row := range c.Kinetics.Coupling {
			out.Kinetics.Coupling[i] = append([]float64(nil), row...)
		}
	}
	if c.Guess.Control != nil {
		u := *c.Guess.Control
		out.Guess.Control = &u
	}
	return &out
}

func (c *Config) Validate() error {
	_, err := c.Run("")
	return err
}

// Run resolves the config into a solve request.
func (c *Config) Run(name string) (optimal.Run, error) {
	if c.Species < 1 {
		return optimal.Run{}, dynamo.Configf("species", "must be at least 1, got %d", c.Species)
	}
	if len(c.InitState) != c.Species+1 {
		return optimal.Run{}, dynamo.Configf("init_state", "has %d entries, want %d (species then substrate)",
			len(c.InitState), c.Species+1)
	}
	mu, err := broadcast("kinetics.max_growth", c.Kinetics.MaxGrowth, c.Species)
	if err != nil {
		return optimal.Run{}, err
	}
	ks, err := broadcast("kinetics.half_sat", c.Kinetics.HalfSat, c.Species)
	if err != nil {
		return optimal.Run{}, err
	}
	ys, err := broadcast("kinetics.yield", c.Kinetics.Yield, c.Species)
	if err != nil {
		return optimal.Run{}, err
	}
	coupling, err := c.coupling()
	if err != nil {
		return optimal.Run{}, err
	}
	kin, err := chemostat.NewKinetics(mu, ks, ys, coupling, c.Kinetics.Feed)
	if err != nil {
		return optimal.Run{}, &dynamo.ConfigError{Field: "kinetics", Reason: err.Error()}
	}

	mode, err := nlp.ParseMode(c.Objective.Mode)
	if err != nil {
		return optimal.Run{}, err
	}
	strategy, err := guess.ParseStrategy(c.Guess.Strategy)
	if err != nil {
		return optimal.Run{}, err
	}
	settings := solver.Settings{
		Tol:           c.Solver.Tol,
		AcceptableTol: c.Solver.AcceptableTol,
		MaxIter:       c.Solver.MaxIter,
		MaxOuter:      c.Solver.MaxOuter,
		MaxTime:       c.Solver.MaxTime,
	}
	if err := validateSettings(settings); err != nil {
		return optimal.Run{}, err
	}
	if c.Horizon <= 0 {
		return optimal.Run{}, dynamo.Configf("horizon", "must be positive, got %g", c.Horizon)
	}
	if c.Intervals < 1 {
		return optimal.Run{}, dynamo.Configf("intervals", "must be at least 1, got %d", c.Intervals)
	}

	run := optimal.Run{
		Name:      name,
		Kinetics:  kin,
		Migration: c.Kinetics.Migration,
		X0:        dynamo.State(append([]float64(nil), c.InitState...)),
		Horizon:   c.Horizon,
		Intervals: c.Intervals,
		Objective: nlp.Objective{
			Mode:  mode,
			Alpha: c.Objective.Alpha,
			Beta:  c.Objective.Beta,
			Gamma: c.Objective.Gamma,
		},
		Bounds:   nlp.ControlBounds{Min: c.Control.Min, Max: c.Control.Max},
		Settings: settings,
		Guess: guess.Options{
			Strategy: strategy,
			Control:  c.Guess.Control,
			Search: guess.SearchOptions{
				Iterations: c.Guess.Iterations,
				Population: c.Guess.Population,
				Seed:       c.Guess.Seed,
			},
		},
	}
	if err := run.Validate(); err != nil {
		return optimal.Run{}, err
	}
	return run, nil
}

func (c *Config) coupling() (*mat.Dense, error) {
	if len(c.Kinetics.Coupling) == 0 {
		return nil, nil
	}
	m, err := chemostat.CouplingFromRows(c.Kinetics.Coupling)
	if err != nil {
		return nil, &dynamo.ConfigError{Field: "kinetics.coupling", Reason: err.Error()}
	}
	if r, _ := m.Dims(); r != c.Species {
		return nil, dynamo.Configf("kinetics.coupling", "is %dx%d, want %dx%d", r, r, c.Species, c.Species)
	}
	return m, nil
}

func broadcast(field string, v []float64, n int) ([]float64, error) {
	switch len(v) {
	case n:
		return append([]float64(nil), v...), nil
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = v[0]
		}
		return out, nil
	default:
		return nil, dynamo.Configf(field, "has %d entries, want 1 or %d", len(v), n)
	}
}

func validateSettings(s solver.Settings) error {
	if s.Tol <= 0 {
		return dynamo.Configf("solver.tol", "must be positive, got %g", s.Tol)
	}
	if s.AcceptableTol < s.Tol {
		return dynamo.Configf("solver.acceptable_tol", "%g is tighter than tol %g", s.AcceptableTol, s.Tol)
	}
	if s.MaxIter < 1 {
		return dynamo.Configf("solver.max_iter", "must be at least 1, got %d", s.MaxIter)
	}
	if s.MaxOuter < 1 {
		return dynamo.Configf("solver.max_outer", "must be at least 1, got %d", s.MaxOuter)
	}
	if s.MaxTime < 0 {
		return dynamo.Configf("solver.max_time", "must not be negative, got %v", s.MaxTime)
	}
	return nil
}

// Summary is a one-line description for listings.
func (c *Config) Summary() string {
	return fmt.Sprintf("n=%d tf=%g N=%d mode=%s u=[%g,%g]",
		c.Species, c.Horizon, c.Intervals, c.Objective.Mode, c.Control.Min, c.Control.Max)
}
