package chemostat

import (
	"fmt"

	"github.com/san-kum/chemopt/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// GrowthRate is the Monod growth rate of species i at substrate s.
func (k Kinetics) GrowthRate(s float64, i int) (float64, error) {
	if s < 0 {
		return 0, fmt.Errorf("%w: substrate %g is negative", dynamo.ErrDomain, s)
	}
	return k.growth(s, i), nil
}

func (k Kinetics) growth(s float64, i int) float64 {
	return k.MaxGrowth[i] * s / (k.HalfSat[i] + s)
}

// growthSlope is dg_i/ds.
func (k Kinetics) growthSlope(s float64, i int) float64 {
	d := k.HalfSat[i] + s
	return k.MaxGrowth[i] * k.HalfSat[i] / (d * d)
}

// MigrationFlux is the net migration into species i. The substrate does
// not enter the flux; it is accepted for a uniform per-species signature.
func (k Kinetics) MigrationFlux(eps float64, x []float64, s float64, i int) float64 {
	if eps == 0 {
		return 0
	}
	sum := 0.0
	for j, xj := range x {
		sum += k.Coupling.At(i, j) * xj
	}
	return eps * sum
}

// migration computes every species' migration flux at once.
func (k Kinetics) migration(eps float64, x []float64, out []float64) {
	if eps == 0 {
		for i := range out {
			out[i] = 0
		}
		return
	}
	dst := mat.NewVecDense(len(out), out)
	dst.MulVec(k.Coupling, mat.NewVecDense(len(x), x))
	dst.ScaleVec(eps, dst)
}

// SubstrateBalance is ds/dt: feed inflow minus total uptake.
func (k Kinetics) SubstrateBalance(x []float64, s, u float64) (float64, error) {
	if s < 0 {
		return 0, fmt.Errorf("%w: substrate %g is negative", dynamo.ErrDomain, s)
	}
	return k.substrateBalance(x, s, u), nil
}

func (k Kinetics) substrateBalance(x []float64, s, u float64) float64 {
	uptake := 0.0
	for i, xi := range x {
		uptake += k.growth(s, i) * xi / k.Yield[i]
	}
	return u*(k.Feed-s) - uptake
}

// StateDerivative returns dx/dt per species and ds/dt.
func (k Kinetics) StateDerivative(x []float64, s, u, eps float64) ([]float64, float64, error) {
	if len(x) != k.Species() {
		return nil, 0, fmt.Errorf("%w: %d species given, kinetics has %d",
			dynamo.ErrDimensionMismatch, len(x), k.Species())
	}
	if s < 0 {
		return nil, 0, fmt.Errorf("%w: substrate %g is negative", dynamo.ErrDomain, s)
	}
	dx := make([]float64, len(x))
	k.speciesDerivative(x, s, u, eps, dx)
	return dx, k.substrateBalance(x, s, u), nil
}

func (k Kinetics) speciesDerivative(x []float64, s, u, eps float64, out []float64) {
	k.migration(eps, x, out)
	for i, xi := range x {
		out[i] += (k.growth(s, i) - u) * xi
	}
}

// DiversityIndex is the Simpson concentration index sum((x_i/sum x)^2).
// Zero total biomass yields 0.
func DiversityIndex(x []float64) float64 {
	total := 0.0
	for _, v := range x {
		total += v
	}
	if total <= 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		p := v / total
		sum += p * p
	}
	return sum
}

// DiversityGradient writes dD/dx_i into grad.
func DiversityGradient(x []float64, grad []float64) {
	total, squares := 0.0, 0.0
	for _, v := range x {
		total += v
		squares += v * v
	}
	if total <= 0 {
		for i := range grad {
			grad[i] = 0
		}
		return
	}
	t2 := total * total
	t3 := t2 * total
	for i, v := range x {
		grad[i] = 2*v/t2 - 2*squares/t3
	}
}

// ProductionRate is the biomass outflow rate u * sum(x).
func ProductionRate(u float64, x []float64) float64 {
	total := 0.0
	for _, v := range x {
		total += v
	}
	return u * total
}
