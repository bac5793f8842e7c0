package metrics

import (
	"context"
	"math"
	"testing"

	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/integrators"
	"github.com/san-kum/bridgesim/internal/physics"
)

func TestEnergyAverage(t *testing.T) {
	sys, _ := physics.NewSDOF(physics.DefaultParams())
	m := NewEnergy(sys)

	m.Observe(dynamo.State{0.1, 0}, 0)
	m.Observe(dynamo.State{0, 0}, 0.1)

	if math.Abs(m.Value()-100) > 1e-9 {
		t.Errorf("expected mean energy 100 J, got %f", m.Value())
	}
	if math.Abs(m.Peak()-200) > 1e-9 {
		t.Errorf("expected peak energy 200 J, got %f", m.Peak())
	}
}

func TestEnergyReset(t *testing.T) {
	sys, _ := physics.NewSDOF(physics.DefaultParams())
	m := NewEnergy(sys)

	m.Observe(dynamo.State{1.0, 1.0}, 0)
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}

	m.Reset()
	if m.Value() != 0 || m.Peak() != 0 {
		t.Errorf("expected zero after reset, got %f", m.Value())
	}
}

func TestEnergyConservedWithoutDampingOrForce(t *testing.T) {
	p := physics.DefaultParams().WithZeta(0)
	p.Force = 0
	sys, _ := physics.NewSDOF(p)

	m := NewEnergy(sys)
	s := dynamo.New(sys, integrators.NewRK4())
	s.AddMetric(m)

	ts, err := s.Run(context.Background(), dynamo.State{0.1, 0}, dynamo.Config{Dt: 0.001, Duration: 10, DivergenceLimit: 1e6})
	if err != nil {
		t.Fatal(err)
	}
	if ts.EnergyDrift > 1e-8 {
		t.Errorf("energy drift too large: %g", ts.EnergyDrift)
	}
	if math.Abs(ts.Metrics["energy"]-200) > 1e-4 {
		t.Errorf("expected mean energy 200 J, got %f", ts.Metrics["energy"])
	}
}

func TestPeakDisplacement(t *testing.T) {
	m := NewPeakDisplacement(1, 5)
	if m.Name() != "peak_x1" {
		t.Errorf("unexpected name %q", m.Name())
	}

	m.Observe(dynamo.State{0, 0, 9, 0}, 1)
	m.Observe(dynamo.State{0, 0, -0.3, 0}, 5)
	m.Observe(dynamo.State{0, 0, 0.2, 0}, 6)
	if m.Value() != 0.3 {
		t.Errorf("expected 0.3, got %f", m.Value())
	}

	m.Observe(dynamo.State{0, 0}, 7)
	if m.Value() != 0.3 {
		t.Errorf("short state should be ignored, got %f", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestExceedance(t *testing.T) {
	e := NewExceedance(1)
	if e.Value() != 0 {
		t.Errorf("empty metric should report 0, got %f", e.Value())
	}
	if _, ok := e.First(); ok {
		t.Error("no exceedance expected yet")
	}

	e.Observe(dynamo.State{0.5, 5}, 0)
	e.Observe(dynamo.State{0, 0, -2, 0}, 1)
	e.Observe(dynamo.State{math.NaN(), 0}, 2)
	e.Observe(dynamo.State{0.9, -9}, 3)
	if e.Value() != 0.5 {
		t.Errorf("expected 0.5, got %f", e.Value())
	}
	if first, ok := e.First(); !ok || first != 1 {
		t.Errorf("expected first exceedance at t=1, got %f (%v)", first, ok)
	}

	e.Reset()
	if _, ok := e.First(); ok || e.Value() != 0 {
		t.Error("expected cleared state after reset")
	}
}
