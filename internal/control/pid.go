package control

import "github.com/san-kum/chemopt/internal/dynamo"

// PID holds total biomass at Target by adjusting the dilution rate, the
// way a turbidostat does. Biomass above target raises dilution. Output is
// clamped to [Min, Max] and the integral stops accumulating while the
// output is saturated.
type PID struct {
	Kp       float64
	Ki       float64
	Kd       float64
	Target   float64
	Min      float64
	Max      float64
	integral float64
	prevErr  float64
	prevT    float64
	first    bool
}

func NewPID(kp, ki, kd, target, lo, hi float64) *PID {
	return &PID{
		Kp:     kp,
		Ki:     ki,
		Kd:     kd,
		Target: target,
		Min:    lo,
		Max:    hi,
		first:  true,
	}
}

func (p *PID) Compute(x dynamo.State, t float64) dynamo.Control {
	err := x.Biomass() - p.Target

	if p.first {
		p.prevErr = err
		p.prevT = t
		p.first = false
		return dynamo.Control{p.clamp(p.Kp * err)}
	}

	dt := t - p.prevT
	if dt <= 0 {
		return dynamo.Control{p.clamp(p.Kp*err + p.Ki*p.integral)}
	}
	derivative := (err - p.prevErr) / dt
	integral := p.integral + err*dt
	raw := p.Kp*err + p.Ki*integral + p.Kd*derivative
	u := p.clamp(raw)
	if u == raw {
		p.integral = integral
	}
	p.prevErr = err
	p.prevT = t
	return dynamo.Control{u}
}

func (p *PID) clamp(u float64) float64 {
	if u < p.Min {
		return p.Min
	}
	if u > p.Max {
		return p.Max
	}
	return u
}

// Reset clears integral and derivative state
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
	p.first = true
}
