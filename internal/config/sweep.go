package config

import (
	"os"
	"sort"
	"strings"

	"github.com/san-kum/chemopt/internal/dynamo"
	"github.com/san-kum/chemopt/internal/nlp"
)

// Sweep is a cartesian batch: every initial condition, every horizon and,
// for weighted objectives, every weight pair.
type Sweep struct {
	Preset            string               `yaml:"preset,omitempty"`
	Base              *Config              `yaml:"base,omitempty"`
	InitialConditions map[string][]float64 `yaml:"initial_conditions"`
	Horizons          []float64            `yaml:"horizons"`
	Weights           []WeightPair         `yaml:"weights,omitempty"`
	Workers           int                  `yaml:"workers"`
	Output            string               `yaml:"output"`
}

type WeightPair struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
}

func LoadSweep(path string) (*Sweep, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sw := &Sweep{}
	if err := decodeStrict(data, sw); err != nil {
		return nil, &dynamo.ConfigError{Field: path, Reason: err.Error()}
	}
	return sw, nil
}

// BaseConfig resolves the run config every sweep entry starts from:
// Base if set, else the named preset, else the defaults.
func (s *Sweep) BaseConfig() (*Config, error) {
	switch {
	case s.Base != nil:
		return s.Base.Clone(), nil
	case s.Preset != "":
		cfg := GetPreset(s.Preset)
		if cfg == nil {
			return nil, dynamo.Configf("preset", "unknown preset %q", s.Preset)
		}
		return cfg, nil
	default:
		return DefaultConfig(), nil
	}
}

// ConditionIDs returns the initial-condition names in sorted order.
func (s *Sweep) ConditionIDs() []string {
	ids := make([]string, 0, len(s.InitialConditions))
	for id := range s.InitialConditions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Validate checks the sweep as a whole. Any error here halts the batch
// before a single run starts.
func (s *Sweep) Validate() error {
	base, err := s.BaseConfig()
	if err != nil {
		return err
	}
	if len(s.InitialConditions) == 0 {
		return dynamo.Configf("initial_conditions", "at least one is required")
	}
	if len(s.Horizons) == 0 {
		return dynamo.Configf("horizons", "at least one is required")
	}
	if s.Workers < 0 {
		return dynamo.Configf("workers", "must not be negative, got %d", s.Workers)
	}
	mode, err := nlp.ParseMode(base.Objective.Mode)
	if err != nil {
		return err
	}
	if len(s.Weights) > 0 && mode != nlp.Weighted {
		return dynamo.Configf("weights", "only apply to the weighted objective, base mode is %s", mode)
	}
	for i, w := range s.Weights {
		if w.Alpha < 0 || w.Beta < 0 {
			return dynamo.Configf("weights", "pair %d has a negative weight (%g, %g)", i, w.Alpha, w.Beta)
		}
	}
	for _, id := range s.ConditionIDs() {
		if id == "" {
			return dynamo.Configf("initial_conditions", "empty condition id")
		}
		if strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
			return dynamo.Configf("initial_conditions", "condition id %q must not contain path separators or '..'", id)
		}
		cfg := base.Clone()
		cfg.InitState = s.InitialConditions[id]
		for _, h := range s.Horizons {
			cfg.Horizon = h
			if err := cfg.Validate(); err != nil {
				return &dynamo.ConfigError{Field: "initial_conditions." + id, Reason: err.Error()}
			}
		}
	}
	return nil
}
