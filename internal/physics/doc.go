// Package physics provides the oscillator models of the bridge deck.
//
// Each model implements [dynamo.System], binding its parameters at
// construction so that concurrent runs never share mutable state:
//
//   - [SDOF]: single mass-spring-damper under F0 sin(Ωt)
//   - [Deck]: four corner masses on anchor springs with edge coupling
//
// Both models implement [dynamo.Hamiltonian] and [dynamo.Describer].
//
// # Coupling convention
//
// For each deck edge (i, j) the coupling force on corner i is
//
//	f = -kc (xi - xj) - cc (vi - vj)
//
// and corner j receives -f, so every edge pair sums to zero:
//
//	sys, _ := physics.NewDeck(physics.DefaultDeckParams(), physics.LeftColumn(f0, omega))
//	modes, _ := physics.Modes(sys)
package physics
