package dynamo

import (
	"fmt"
	"math"
)

// State is the interleaved state vector [x0, v0, x1, v1, ...].
type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

// DOF returns the number of (position, velocity) pairs.
func (s State) DOF() int { return len(s) / 2 }

func (s State) Position(dof int) float64 { return s[2*dof] }
func (s State) Velocity(dof int) float64 { return s[2*dof+1] }

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// MaxAbs returns the largest component magnitude.
func (s State) MaxAbs() float64 {
	m := 0.0
	for _, v := range s {
		if a := math.Abs(v); a > m || math.IsNaN(a) {
			m = a
		}
	}
	return m
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is a first-order ODE dX/dt = f(X, t). Implementations bind all
// parameters at construction and never mutate them afterwards.
type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Hamiltonian is implemented by systems that can report mechanical energy.
type Hamiltonian interface {
	Energy(x State) float64
}

// Describer is implemented by systems that can report their parameters.
type Describer interface {
	Params() map[string]float64
}

type Integrator interface {
	Step(sys System, x State, t float64, dt float64) State
}

// Order is implemented by integrators that know their global order of accuracy.
type Order interface {
	Order() int
}

type Metric interface {
	Name() string
	Observe(x State, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, t float64)
}

const DefaultDivergenceLimit = 1e6

// MaxSteps bounds N so a run never asks for more samples than memory holds.
const MaxSteps = 10_000_000

type Config struct {
	Dt       float64
	Duration float64
	// Steps overrides Duration when positive.
	Steps int
	// DivergenceLimit bounds |x| and |v|; zero means DefaultDivergenceLimit.
	DivergenceLimit float64
	ValidateState   bool
}

func DefaultConfig() Config {
	return Config{
		Dt:              0.005,
		Duration:        20.0,
		DivergenceLimit: DefaultDivergenceLimit,
		ValidateState:   true,
	}
}

// StepCount returns N, the number of steps a run takes.
func (c Config) StepCount() int {
	if c.Steps > 0 {
		return c.Steps
	}
	n := c.Duration / c.Dt
	// guard against ceil(20/0.005) landing on 4001 from rounding
	return int(math.Ceil(n - 1e-9*math.Max(1, n)))
}

func (c Config) limit() float64 {
	if c.DivergenceLimit > 0 {
		return c.DivergenceLimit
	}
	return DefaultDivergenceLimit
}

// Instability annotates a run that left the divergence bound.
type Instability struct {
	Step   int     `json:"step"`
	Time   float64 `json:"time"`
	Reason string  `json:"reason"`
}

func (i Instability) String() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", i.Step, i.Time, i.Reason)
}
