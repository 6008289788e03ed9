// Package dynamo provides the shared primitives of the chemostat solver.
//
// The package defines the vector and interface vocabulary used by every
// other package:
//
//   - [State]: species concentrations followed by substrate
//   - [System]: interface for ODE systems (dX/dt = f(X, u, t))
//   - [Integrator]: numerical stepper interface
//   - [Controller]: control profile evaluated along a trajectory
//   - [Metric]: running scalar observed along a trajectory
//
// It also holds the error taxonomy shared by configuration, formulation and
// the dynamics model. Configuration problems wrap [ErrConfiguration],
// inconsistent problem assembly wraps [ErrFormulation], and evaluating the
// model outside its domain wraps [ErrDomain].
//
// # Thread Safety
//
// All types here are plain values. Kinetic parameters are threaded through
// every call explicitly, so independent solves never share mutable state.
package dynamo
