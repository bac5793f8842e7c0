// Package dynamo provides the core simulation primitives for the deck models.
//
// The package defines the fundamental interfaces and types for fixed-step
// numerical integration of first-order ordinary differential equations:
//
//   - [State]: interleaved (position, velocity) vector, one pair per DOF
//   - [System]: derivative function dX/dt = f(X, t)
//   - [Integrator]: single fixed-step numerical stepper
//   - [Simulator]: drives an Integrator over a run and produces a [TimeSeries]
//   - [Ensemble]: runs independent jobs concurrently
//
// # Example
//
//	sys, _ := physics.NewSDOF(params)
//	sim := dynamo.New(sys, integrators.NewRK4())
//	series, err := sim.Run(ctx, dynamo.State{0, 0}, dynamo.Config{Dt: 0.005, Duration: 20})
//	if err == nil && series.Unstable() {
//	    // samples after series.Instability.Step are missing
//	}
//
// # Thread Safety
//
// Systems are immutable after construction and safe to share. Integrators may
// keep scratch buffers and must not be shared between goroutines; a Simulator
// owns one Integrator, so use one Simulator per goroutine or the [Ensemble].
package dynamo
