// Package analytic holds the closed-form response of a forced single
// degree of freedom oscillator
//
//	m x'' + c x' + k x = F0 sin(Ωt),  x(0) = x0, x'(0) = v0
//
// as the sum of the steady-state particular solution X sin(Ωt − φ) and a
// homogeneous transient whose form depends on the damping [Regime].
// The regime is picked once in [New]; the overdamped expressions are never
// evaluated inside [CriticalBand].
//
// The package also provides frequency-domain helpers (amplitude curve,
// Bode data) and steady-state response surfaces.
package analytic
