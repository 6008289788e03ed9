package control

import (
	"fmt"
	"sort"

	"github.com/san-kum/chemopt/internal/dynamo"
)

// Profile is a scalar control signal over time.
type Profile interface {
	ValueAt(t float64) float64
}

type Constant struct {
	U float64
}

func NewConstant(u float64) *Constant {
	return &Constant{U: u}
}

func (c *Constant) ValueAt(t float64) float64 { return c.U }

func (c *Constant) Compute(x dynamo.State, t float64) dynamo.Control {
	return dynamo.Control{c.U}
}

// TimeVarying interpolates linearly between samples and holds the end
// values outside [Times[0], Times[len-1]].
type TimeVarying struct {
	Times  []float64
	Values []float64
}

func NewTimeVarying(times, values []float64) (*TimeVarying, error) {
	if len(times) == 0 || len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d times, %d values", dynamo.ErrDimensionMismatch, len(times), len(values))
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return nil, fmt.Errorf("control: sample times must increase (t[%d]=%g, t[%d]=%g)", i-1, times[i-1], i, times[i])
		}
	}
	return &TimeVarying{
		Times:  append([]float64(nil), times...),
		Values: append([]float64(nil), values...),
	}, nil
}

func (p *TimeVarying) ValueAt(t float64) float64 {
	n := len(p.Times)
	if t <= p.Times[0] {
		return p.Values[0]
	}
	if t >= p.Times[n-1] {
		return p.Values[n-1]
	}
	i := sort.SearchFloat64s(p.Times, t)
	if p.Times[i] == t {
		return p.Values[i]
	}
	t0, t1 := p.Times[i-1], p.Times[i]
	w := (t - t0) / (t1 - t0)
	return p.Values[i-1] + w*(p.Values[i]-p.Values[i-1])
}

func (p *TimeVarying) Compute(x dynamo.State, t float64) dynamo.Control {
	return dynamo.Control{p.ValueAt(t)}
}

// Resample evaluates the profile on the given times.
func Resample(p Profile, times []float64) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = p.ValueAt(t)
	}
	return out
}
