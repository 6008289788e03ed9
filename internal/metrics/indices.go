package metrics

import (
	"github.com/san-kum/chemopt/internal/chemostat"
	"github.com/san-kum/chemopt/internal/dynamo"
)

// Production reports the production rate u*sum(x) at the last observation.
type Production struct {
	last float64
}

func NewProduction() *Production { return &Production{} }

func (p *Production) Name() string { return "production" }

func (p *Production) Observe(x dynamo.State, u dynamo.Control, t float64) {
	p.last = chemostat.ProductionRate(first(u), x.Species())
}

func (p *Production) Value() float64 { return p.last }
func (p *Production) Reset()         { p.last = 0 }

// Diversity reports the concentration index at the last observation.
type Diversity struct {
	last float64
}

func NewDiversity() *Diversity { return &Diversity{} }

func (d *Diversity) Name() string { return "diversity" }

func (d *Diversity) Observe(x dynamo.State, u dynamo.Control, t float64) {
	d.last = chemostat.DiversityIndex(x.Species())
}

func (d *Diversity) Value() float64 { return d.last }
func (d *Diversity) Reset()         { d.last = 0 }

// Harvest integrates the production rate over time with the trapezoid rule.
type Harvest struct {
	total    float64
	prevRate float64
	prevT    float64
	started  bool
}

func NewHarvest() *Harvest { return &Harvest{} }

func (h *Harvest) Name() string { return "harvest" }

func (h *Harvest) Observe(x dynamo.State, u dynamo.Control, t float64) {
	rate := chemostat.ProductionRate(first(u), x.Species())
	if h.started && t > h.prevT {
		h.total += 0.5 * (rate + h.prevRate) * (t - h.prevT)
	}
	h.prevRate, h.prevT, h.started = rate, t, true
}

func (h *Harvest) Value() float64 { return h.total }

func (h *Harvest) Reset() {
	h.total, h.prevRate, h.prevT, h.started = 0, 0, 0, false
}

// Washout is the fraction of observations with total biomass below a
// threshold.
type Washout struct {
	threshold  float64
	violations int
	samples    int
}

func NewWashout(threshold float64) *Washout {
	return &Washout{threshold: threshold}
}

func (w *Washout) Name() string { return "washout" }

func (w *Washout) Observe(x dynamo.State, u dynamo.Control, t float64) {
	w.samples++
	if x.Biomass() < w.threshold {
		w.violations++
	}
}

func (w *Washout) Value() float64 {
	if w.samples == 0 {
		return 0
	}
	return float64(w.violations) / float64(w.samples)
}

func (w *Washout) Reset() {
	w.violations = 0
	w.samples = 0
}

// Defaults returns the metric set recorded for every simulated run.
func Defaults() []dynamo.Metric {
	return []dynamo.Metric{
		NewProduction(),
		NewDiversity(),
		NewHarvest(),
		NewWashout(1e-3),
		NewControlEffort(),
		NewControlVariation(),
	}
}

func first(u dynamo.Control) float64 {
	if len(u) == 0 {
		return 0
	}
	return u[0]
}
