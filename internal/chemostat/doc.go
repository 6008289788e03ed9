// Package chemostat implements the multi-species chemostat dynamics.
//
// Each species i grows on a single limiting substrate with Monod kinetics
//
//	g_i(s) = mu_i * s / (K_i + s)
//
// and is diluted at the control rate u. Species exchange biomass through a
// coupling matrix C scaled by the migration rate eps:
//
//	dx_i/dt = (g_i(s) - u) x_i + eps * sum_j C[i][j] x_j
//	ds/dt   = u (sf - s) - sum_i g_i(s) x_i / Y_i
//
// Two scalar indices summarize a state: the production rate u * sum(x) and
// the Simpson-type concentration index sum((x_i/sum(x))^2), which is 1 when a
// single species dominates and 1/n under an even distribution.
//
// All functions are pure. [Kinetics] is an immutable value; the model never
// clamps its inputs, so callers must keep substrate non-negative.
package chemostat
