package integrators

import (
	"testing"

	"github.com/san-kum/bridgesim/internal/dynamo"
)

type benchDynamics struct{}

func (b *benchDynamics) StateDim() int { return 2 }
func (b *benchDynamics) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func BenchmarkEuler(b *testing.B) {
	integrator := NewEuler()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.01)
	}
}

func BenchmarkRK4(b *testing.B) {
	integrator := NewRK4()
	dyn := &benchDynamics{}
	x := dynamo.State{1.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.01)
	}
}

// benchDeck is four corners on anchor springs with ring coupling.
type benchDeck struct{}

func (b *benchDeck) StateDim() int { return 8 }
func (b *benchDeck) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, 8)
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		dx[2*i] = x[2*i+1]
		dx[2*i+1] = -40*x[2*i] - 10*(x[2*i]-x[2*j])
	}
	return dx
}

func BenchmarkRK4_Deck(b *testing.B) {
	integrator := NewRK4()
	dyn := &benchDeck{}
	x := make(dynamo.State, 8)
	for i := range x {
		x[i] = float64(i) * 0.1
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, 0, 0.001)
	}
}
