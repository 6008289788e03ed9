// Package batch runs a sweep of independent solves on a bounded worker
// pool and persists one result pair per configuration.
package batch

import (
	"github.com/san-kum/chemopt/internal/config"
	"github.com/san-kum/chemopt/internal/nlp"
	"github.com/san-kum/chemopt/internal/storage"
)

// Job is one fully expanded sweep entry.
type Job struct {
	Key    storage.Key
	Config *config.Config
}

func (j Job) Name() string { return j.Key.Name() }

// axis is one sweep dimension; each option edits a job in place.
type axis []func(*Job)

// Expand validates the sweep and returns the cartesian product of its
// initial conditions, horizons and weight pairs in a stable order.
func Expand(sw *config.Sweep) ([]Job, error) {
	if err := sw.Validate(); err != nil {
		return nil, err
	}
	base, err := sw.BaseConfig()
	if err != nil {
		return nil, err
	}
	mode, err := nlp.ParseMode(base.Objective.Mode)
	if err != nil {
		return nil, err
	}

	var conditions axis
	for _, id := range sw.ConditionIDs() {
		ic := sw.InitialConditions[id]
		conditions = append(conditions, func(j *Job) {
			j.Key.Condition = id
			j.Config.InitState = append([]float64(nil), ic...)
		})
	}
	var horizons axis
	for _, h := range sw.Horizons {
		horizons = append(horizons, func(j *Job) {
			j.Key.Horizon = h
			j.Config.Horizon = h
		})
	}
	axes := []axis{conditions, horizons}

	if mode == nlp.Weighted {
		pairs := sw.Weights
		if len(pairs) == 0 {
			pairs = []config.WeightPair{{Alpha: base.Objective.Alpha, Beta: base.Objective.Beta}}
		}
		var weights axis
		for _, w := range pairs {
			weights = append(weights, func(j *Job) {
				j.Key.Weighted = true
				j.Key.Alpha, j.Key.Beta = w.Alpha, w.Beta
				j.Config.Objective.Alpha, j.Config.Objective.Beta = w.Alpha, w.Beta
			})
		}
		axes = append(axes, weights)
	}

	var jobs []Job
	expandRecursive(axes, 0, Job{Config: base}, &jobs)
	return jobs, nil
}

func expandRecursive(axes []axis, depth int, current Job, jobs *[]Job) {
	if depth == len(axes) {
		*jobs = append(*jobs, current)
		return
	}
	for _, apply := range axes[depth] {
		next := Job{Key: current.Key, Config: current.Config.Clone()}
		apply(&next)
		expandRecursive(axes, depth+1, next, jobs)
	}
}
