package chemostat

import (
	"fmt"

	"github.com/san-kum/chemopt/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Kinetics holds the per-run kinetic parameters of the community.
type Kinetics struct {
	MaxGrowth []float64
	HalfSat   []float64
	Yield     []float64
	Coupling  *mat.Dense
	Feed      float64
}

// NewKinetics validates the parameter shapes and returns an immutable
// Kinetics. A nil coupling selects NeighbourCoupling(n).
func NewKinetics(maxGrowth, halfSat, yield []float64, coupling *mat.Dense, feed float64) (Kinetics, error) {
	n := len(maxGrowth)
	k := Kinetics{
		MaxGrowth: append([]float64(nil), maxGrowth...),
		HalfSat:   append([]float64(nil), halfSat...),
		Yield:     append([]float64(nil), yield...),
		Feed:      feed,
	}
	if coupling == nil {
		coupling = NeighbourCoupling(n)
	}
	k.Coupling = mat.DenseCopyOf(coupling)
	if err := k.Validate(); err != nil {
		return Kinetics{}, err
	}
	return k, nil
}

// Species returns the number of species n.
func (k Kinetics) Species() int { return len(k.MaxGrowth) }

func (k Kinetics) Validate() error {
	n := len(k.MaxGrowth)
	if n < 1 {
		return fmt.Errorf("%w: at least one species required", dynamo.ErrFormulation)
	}
	if len(k.HalfSat) != n || len(k.Yield) != n {
		return fmt.Errorf("%w: %w: kinetics lengths max_growth=%d half_sat=%d yield=%d",
			dynamo.ErrFormulation, dynamo.ErrDimensionMismatch, n, len(k.HalfSat), len(k.Yield))
	}
	for i := 0; i < n; i++ {
		if k.MaxGrowth[i] < 0 {
			return fmt.Errorf("%w: species %d max growth %g", dynamo.ErrFormulation, i, k.MaxGrowth[i])
		}
		if k.HalfSat[i] <= 0 {
			return fmt.Errorf("%w: species %d half saturation %g", dynamo.ErrFormulation, i, k.HalfSat[i])
		}
		if k.Yield[i] <= 0 {
			return fmt.Errorf("%w: species %d yield %g", dynamo.ErrFormulation, i, k.Yield[i])
		}
	}
	if k.Coupling == nil {
		return fmt.Errorf("%w: coupling matrix missing", dynamo.ErrFormulation)
	}
	if r, c := k.Coupling.Dims(); r != n || c != n {
		return fmt.Errorf("%w: %w: coupling matrix is %dx%d, want %dx%d",
			dynamo.ErrFormulation, dynamo.ErrDimensionMismatch, r, c, n, n)
	}
	if k.Feed < 0 {
		return fmt.Errorf("%w: feed concentration %g", dynamo.ErrFormulation, k.Feed)
	}
	return nil
}

// NeighbourCoupling returns the nearest-neighbour migration matrix: each
// species exchanges with i-1 and i+1. Columns sum to zero, so migration
// conserves total biomass.
func NeighbourCoupling(n int) *mat.Dense {
	if n < 1 {
		n = 1
	}
	c := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		if i > 0 {
			c.Set(i, i-1, 1)
			c.Set(i-1, i-1, c.At(i-1, i-1)-1)
		}
		if i < n-1 {
			c.Set(i, i+1, 1)
			c.Set(i+1, i+1, c.At(i+1, i+1)-1)
		}
	}
	return c
}

// CouplingFromRows builds a coupling matrix from row slices.
func CouplingFromRows(rows [][]float64) (*mat.Dense, error) {
	n := len(rows)
	if n == 0 {
		return nil, nil
	}
	data := make([]float64, 0, n*n)
	for i, row := range rows {
		if len(row) != n {
			return nil, fmt.Errorf("%w: coupling row %d has %d entries, want %d",
				dynamo.ErrDimensionMismatch, i, len(row), n)
		}
		data = append(data, row...)
	}
	return mat.NewDense(n, n, data), nil
}
