// Package analysis characterizes chemostat dynamics outside the optimizer.
//
//   - [OperatingDiagram]: steady states across a sweep of constant dilution
//     rates, locating the washout boundary
//   - [NewPhasePortrait]: two trajectory columns plotted against each other
//   - [ControlSpectrum]: power spectrum of a solved control profile
//
// # Washout
//
// A single species washes out once the dilution rate exceeds its growth
// rate at feed concentration:
//
//	pts, _ := analysis.OperatingDiagram(ctx, model, x0, analysis.DefaultOperatingOptions(0, 2))
//	for _, p := range pts {
//	    if p.Washout {
//	        // first dilution rate the culture cannot sustain
//	    }
//	}
package analysis
