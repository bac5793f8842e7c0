package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/bridgesim/internal/dynamo"
)

type simpleDynamics struct{}

func (s *simpleDynamics) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], -x[0]}
}

func (s *simpleDynamics) StateDim() int { return 2 }

// forcedDynamics is x'' + x = sin(2t) with x(0)=0, v(0)=0, whose exact
// solution is x = (2 sin t - sin 2t)/3.
type forcedDynamics struct{}

func (f *forcedDynamics) Derive(x dynamo.State, t float64) dynamo.State {
	return dynamo.State{x[1], math.Sin(2*t) - x[0]}
}

func (f *forcedDynamics) StateDim() int { return 2 }

func forcedExact(t float64) float64 {
	return (2*math.Sin(t) - math.Sin(2*t)) / 3
}

func TestRK4Accuracy(t *testing.T) {
	dyn := &simpleDynamics{}
	integ := NewRK4()

	x := dynamo.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-8 {
		t.Errorf("position error too large: got %.10f, expected %.10f", x[0], expectedX)
	}

	if math.Abs(x[1]-expectedV) > 1e-8 {
		t.Errorf("velocity error too large: got %.10f, expected %.10f", x[1], expectedV)
	}
}

func TestRK4TimeDependentForcing(t *testing.T) {
	integ := NewRK4()
	dyn := &forcedDynamics{}

	x := dynamo.State{0, 0}
	dt := 0.01
	for i := 0; i < 500; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
	}

	if got, want := x[0], forcedExact(5.0); math.Abs(got-want) > 1e-8 {
		t.Errorf("x(5) = %.10f, want %.10f", got, want)
	}
}

func maxError(integ dynamo.Integrator, dt float64) float64 {
	dyn := &forcedDynamics{}
	x := dynamo.State{0, 0}
	steps := int(math.Round(4.0 / dt))
	worst := 0.0
	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, float64(i)*dt, dt)
		e := math.Abs(x[0] - forcedExact(float64(i+1)*dt))
		worst = math.Max(worst, e)
	}
	return worst
}

func TestConvergenceOrder(t *testing.T) {
	tests := []struct {
		name     string
		newInteg func() dynamo.Integrator
		lo, hi   float64
	}{
		{"rk4", func() dynamo.Integrator { return NewRK4() }, 10, 17},
		{"euler", func() dynamo.Integrator { return NewEuler() }, 1.7, 2.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			coarse := maxError(tt.newInteg(), 0.04)
			fine := maxError(tt.newInteg(), 0.02)
			ratio := coarse / fine
			if ratio < tt.lo || ratio > tt.hi {
				t.Errorf("halving h reduced error by %.2f, want within [%.1f, %.1f]", ratio, tt.lo, tt.hi)
			}
		})
	}
}

func TestRK4ScratchReuseAcrossDimensions(t *testing.T) {
	integ := NewRK4()
	x2 := integ.Step(&simpleDynamics{}, dynamo.State{1, 0}, 0, 0.1)
	if len(x2) != 2 {
		t.Fatalf("expected 2 components, got %d", len(x2))
	}

	x4 := integ.Step(&benchDeck{}, make(dynamo.State, 8), 0, 0.1)
	if len(x4) != 8 {
		t.Fatalf("expected 8 components, got %d", len(x4))
	}
}

func TestRegistry(t *testing.T) {
	for _, name := range Names() {
		integ, err := ByName(name)
		if err != nil || integ == nil {
			t.Errorf("ByName(%q) failed: %v", name, err)
		}
	}

	if _, err := ByName("verlet"); err == nil {
		t.Error("expected error for unknown integrator")
	}

	a, _ := Factory("rk4")
	if a() == a() {
		t.Error("factory should return distinct integrators")
	}
}
