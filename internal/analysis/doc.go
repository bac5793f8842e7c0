// Package analysis compares numerical deck simulations with the closed-form
// solution.
//
//   - [SweepSDOF], [SweepDeck]: steady-state amplitude over a frequency list
//   - [Validate], [CompareSeries]: pointwise error records past a threshold
//   - [Convergence]: error reduction as the step size shrinks
//   - [DampingStudy]: response for several damping ratios
//   - [SampleAt], [Envelope], [PhasePortrait]: views over a single run
//   - [DominantFrequency]: peak of the power spectrum
//
// Independent runs execute concurrently with a bounded errgroup; results
// are always returned in input order.
//
//	res, err := analysis.SweepSDOF(ctx, physics.DefaultParams(), analysis.SweepConfig{
//	    Frequencies: []float64{0.5, 1, 1.5},
//	    Ratios:      true,
//	})
package analysis
