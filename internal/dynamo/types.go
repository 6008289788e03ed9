package dynamo

import (
	"math"
)

// State holds species concentrations followed by the substrate
// concentration, so len(State) == species+1.
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Species returns the species part of the state (shares storage).
func (s State) Species() []float64 {
	if len(s) == 0 {
		return nil
	}
	return s[:len(s)-1]
}

// Biomass is the total species concentration.
func (s State) Biomass() float64 {
	total := 0.0
	for _, v := range s.Species() {
		total += v
	}
	return total
}

// Substrate returns the trailing substrate concentration.
func (s State) Substrate() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1]
}

// Lerp interpolates between a and b, w in [0, 1].
func Lerp(a, b State, w float64) State {
	result := make(State, len(a))
	for i := range a {
		result[i] = a[i] + w*(b[i]-a[i])
	}
	return result
}

type Control []float64

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

type Controller interface {
	Compute(x State, t float64) Control
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

type Config struct {
	Dt            float64
	Duration      float64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.1,
		Duration:      10.0,
		ValidateState: true,
	}
}

type Result struct {
	States     []State
	Controls   []Control
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}
