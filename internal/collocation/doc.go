// Package collocation transcribes the chemostat ODE into algebraic
// equality constraints with the implicit trapezoidal rule.
//
// The horizon [0, tf] is split into N equal intervals. States and the
// control live on all N+1 grid points; the control is piecewise linear
// between them. For every interval k and state component j the defect
//
//	X[k+1]_j - X[k]_j - (dt/2) * (f_j(X[k], u[k]) + f_j(X[k+1], u[k+1]))
//
// must vanish. The rule is second-order accurate and A-stable, so the grid
// can stay coarse even where growth saturates.
package collocation
