package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/chemopt/internal/optimal"
)

// Spectrum is the one-sided power spectrum of a control profile sampled
// on a uniform grid, with the mean removed.
type Spectrum struct {
	Frequencies []float64
	Power       []float64
}

// ControlSpectrum transforms the control column of traj. Collocation
// profiles that alternate between neighbouring grid points show up as
// power near the Nyquist frequency.
func ControlSpectrum(traj optimal.Trajectory) (*Spectrum, error) {
	n := len(traj)
	if n < 4 {
		return nil, fmt.Errorf("analysis: spectrum needs at least 4 points, got %d", n)
	}
	dt := (traj[n-1].Time - traj[0].Time) / float64(n-1)
	if dt <= 0 {
		return nil, fmt.Errorf("analysis: trajectory times do not increase")
	}
	for k := 1; k < n; k++ {
		if step := traj[k].Time - traj[k-1].Time; math.Abs(step-dt) > 1e-6*dt {
			return nil, fmt.Errorf("analysis: non-uniform grid at point %d (step %g, expected %g)", k, step, dt)
		}
	}

	u := traj.Controls()
	mean := 0.0
	for _, v := range u {
		mean += v
	}
	mean /= float64(n)
	for i := range u {
		u[i] -= mean
	}

	coeffs := fft.FFTReal(u)
	half := n/2 + 1
	s := &Spectrum{
		Frequencies: make([]float64, half),
		Power:       make([]float64, half),
	}
	for k := 0; k < half; k++ {
		s.Frequencies[k] = float64(k) / (float64(n) * dt)
		a := cmplx.Abs(coeffs[k])
		s.Power[k] = a * a / float64(n)
	}
	return s, nil
}

// HighFrequencyShare is the fraction of power in the upper half of the
// band. It is 0 for a constant profile.
func (s *Spectrum) HighFrequencyShare() float64 {
	total, high := 0.0, 0.0
	cut := len(s.Power) / 2
	for k, p := range s.Power {
		total += p
		if k > cut {
			high += p
		}
	}
	if total <= 1e-300 {
		return 0
	}
	return high / total
}
