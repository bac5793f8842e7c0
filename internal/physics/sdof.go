package physics

import (
	"math"

	"github.com/san-kum/bridgesim/internal/dynamo"
)

// SDOF is a single damped oscillator with state [x, v]:
//
//	x' = v
//	v' = (F0 sin(Ωt) - c v - k x) / m
type SDOF struct {
	params Params
	m, k   float64
	c      float64
	force  ForceFunc
}

func NewSDOF(p Params) (*SDOF, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &SDOF{
		params: p,
		m:      p.Mass,
		k:      p.Stiffness,
		c:      p.Coefficient(),
		force:  Harmonic(p.Force, p.Omega),
	}, nil
}

// NewFreeSDOF builds an unforced oscillator.
func NewFreeSDOF(p Params) (*SDOF, error) {
	s, err := NewSDOF(p)
	if err != nil {
		return nil, err
	}
	s.force = nil
	return s, nil
}

func (s *SDOF) StateDim() int { return 2 }

func (s *SDOF) Derive(x dynamo.State, t float64) dynamo.State {
	pos, vel := x[0], x[1]
	f := 0.0
	if s.force != nil {
		f = s.force(t)
	}
	return dynamo.State{vel, (f - s.c*vel - s.k*pos) / s.m}
}

func (s *SDOF) Parameters() Params { return s.params }

func (s *SDOF) Energy(x dynamo.State) float64 {
	pos, vel := x[0], x[1]
	return 0.5*s.m*vel*vel + 0.5*s.k*pos*pos
}

func (s *SDOF) Params() map[string]float64 {
	return map[string]float64{
		"m":       s.m,
		"k":       s.k,
		"c":       s.c,
		"zeta":    s.params.Ratio(),
		"f0":      s.params.Force,
		"omega":   s.params.Omega,
		"omega_n": math.Sqrt(s.k / s.m),
	}
}
