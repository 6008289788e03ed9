package solver

import "math"

// Bound transforms map an unconstrained internal variable y to an external
// x that always satisfies its bounds:
//
//	[lo, hi]:   x = lo + (hi - lo) * (sin(y) + 1) / 2
//	[lo, +Inf): x = lo - 1 + sqrt(y*y + 1)
//	(-Inf, hi]: x = hi + 1 - sqrt(y*y + 1)
//	free:       x = y
type boundKind uint8

const (
	free boundKind = iota
	lowerOnly
	upperOnly
	boxed
	fixed
)

// interiorMargin keeps starting points off the bounds, where the
// transforms have zero slope.
const interiorMargin = 1e-6

type transform struct {
	kind   []boundKind
	lo, hi []float64
}

func newTransform(lower, upper []float64) *transform {
	n := len(lower)
	tf := &transform{kind: make([]boundKind, n), lo: lower, hi: upper}
	for i := 0; i < n; i++ {
		loFinite := !math.IsInf(lower[i], -1)
		hiFinite := !math.IsInf(upper[i], 1)
		switch {
		case loFinite && hiFinite && upper[i] == lower[i]:
			tf.kind[i] = fixed
		case loFinite && hiFinite:
			tf.kind[i] = boxed
		case loFinite:
			tf.kind[i] = lowerOnly
		case hiFinite:
			tf.kind[i] = upperOnly
		default:
			tf.kind[i] = free
		}
	}
	return tf
}

// external writes x(y) into x.
func (tf *transform) external(y, x []float64) {
	for i, yi := range y {
		switch tf.kind[i] {
		case boxed:
			x[i] = tf.lo[i] + 0.5*(tf.hi[i]-tf.lo[i])*(math.Sin(yi)+1)
		case lowerOnly:
			x[i] = tf.lo[i] - 1 + math.Sqrt(yi*yi+1)
		case upperOnly:
			x[i] = tf.hi[i] + 1 - math.Sqrt(yi*yi+1)
		case fixed:
			x[i] = tf.lo[i]
		default:
			x[i] = yi
		}
	}
}

// chain multiplies gx (gradient in x) by dx/dy in place.
func (tf *transform) chain(y, gx []float64) {
	for i, yi := range y {
		switch tf.kind[i] {
		case boxed:
			gx[i] *= 0.5 * (tf.hi[i] - tf.lo[i]) * math.Cos(yi)
		case lowerOnly:
			gx[i] *= yi / math.Sqrt(yi*yi+1)
		case upperOnly:
			gx[i] *= -yi / math.Sqrt(yi*yi+1)
		case fixed:
			gx[i] = 0
		}
	}
}

// internal maps a starting point into y, clipping it into the interior.
func (tf *transform) internal(x, y []float64) {
	for i, xi := range x {
		switch tf.kind[i] {
		case boxed:
			width := tf.hi[i] - tf.lo[i]
			r := 2*(xi-tf.lo[i])/width - 1
			r = math.Max(-1+interiorMargin, math.Min(1-interiorMargin, r))
			y[i] = math.Asin(r)
		case lowerOnly:
			d := math.Max(xi-tf.lo[i], interiorMargin) + 1
			y[i] = math.Sqrt(d*d - 1)
		case upperOnly:
			d := math.Max(tf.hi[i]-xi, interiorMargin) + 1
			y[i] = math.Sqrt(d*d - 1)
		case fixed:
			y[i] = 0
		default:
			y[i] = xi
		}
	}
}
