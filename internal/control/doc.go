// Package control provides dilution-rate profiles for the chemostat.
//
// A profile is either autonomous or time varying; both expose
// ValueAt(t) and implement [dynamo.Controller] so the reference simulator
// can drive the model with either:
//
//   - [Constant]: a fixed dilution rate
//   - [TimeVarying]: piecewise-linear interpolation between grid samples,
//     matching the control representation of the collocation grid
//
// [PID] is a feedback alternative that holds total biomass at a setpoint.
//
// # Usage
//
//	u := control.NewTimeVarying(times, values)
//	s := sim.New(model, integrators.NewRK4(), u)
package control
