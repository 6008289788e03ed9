package metrics

import (
	"math"

	"github.com/san-kum/chemopt/internal/dynamo"
)

// ControlEffort is the time-weighted mean dilution rate, integrated with
// the trapezoid rule over the observation times. Observations that share a
// single instant fall back to the plain sample mean.
type ControlEffort struct {
	integral float64
	sum      float64
	samples  int
	t0       float64
	prevT    float64
	prevU    float64
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{}
}

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	v := math.Abs(first(u))
	if c.samples == 0 {
		c.t0 = t
	} else {
		c.integral += 0.5 * (v + c.prevU) * (t - c.prevT)
	}
	c.sum += v
	c.samples++
	c.prevT, c.prevU = t, v
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	if span := c.prevT - c.t0; span > 0 {
		return c.integral / span
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	*c = ControlEffort{}
}

// ControlVariation is the total variation sum |u[k]-u[k-1]| of the
// observed dilution rate, a measure of how much the profile switches.
type ControlVariation struct {
	total   float64
	prev    float64
	samples int
}

func NewControlVariation() *ControlVariation {
	return &ControlVariation{}
}

func (c *ControlVariation) Name() string { return "control_variation" }

func (c *ControlVariation) Observe(x dynamo.State, u dynamo.Control, t float64) {
	v := first(u)
	if c.samples > 0 {
		c.total += math.Abs(v - c.prev)
	}
	c.prev = v
	c.samples++
}

func (c *ControlVariation) Value() float64 { return c.total }

func (c *ControlVariation) Reset() {
	*c = ControlVariation{}
}
