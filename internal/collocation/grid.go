package collocation

import (
	"github.com/san-kum/chemopt/internal/dynamo"
)

// Grid is a uniform time grid of Intervals+1 points over [0, Horizon].
type Grid struct {
	Horizon   float64
	Intervals int
}

func NewGrid(horizon float64, intervals int) (Grid, error) {
	if horizon <= 0 {
		return Grid{}, dynamo.Configf("horizon", "must be positive, got %g", horizon)
	}
	if intervals < 1 {
		return Grid{}, dynamo.Configf("intervals", "must be at least 1, got %d", intervals)
	}
	return Grid{Horizon: horizon, Intervals: intervals}, nil
}

func (g Grid) Step() float64 { return g.Horizon / float64(g.Intervals) }

func (g Grid) Points() int { return g.Intervals + 1 }

func (g Grid) Time(k int) float64 {
	if k == g.Intervals {
		return g.Horizon
	}
	return float64(k) * g.Step()
}

func (g Grid) Times() []float64 {
	times := make([]float64, g.Points())
	for k := range times {
		times[k] = g.Time(k)
	}
	return times
}
