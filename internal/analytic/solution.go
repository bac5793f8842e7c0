package analytic

import (
	"errors"
	"math"

	"github.com/san-kum/bridgesim/internal/physics"
)

// ErrNoSteadyState marks an undamped oscillator driven exactly at its
// natural frequency. Its response grows linearly and has no finite X.
var ErrNoSteadyState = errors.New("analytic: undamped resonance has no steady state")

// Solution is the complete response x(t) = xp(t) + xh(t). It is immutable
// and safe for concurrent use.
type Solution struct {
	params physics.Params
	wn     float64
	zeta   float64
	omega  float64
	x0, v0 float64

	amp   float64
	phase float64
	// secular is set for undamped resonance, where
	// xp(t) = -(F0 / 2mωn) t cos(ωn t).
	secular bool
	hom     homogeneous
}

// New solves for the given parameters and initial conditions.
func New(p physics.Params, x0, v0 float64) (*Solution, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	s := &Solution{
		params: p,
		wn:     p.NaturalFrequency(),
		zeta:   p.Ratio(),
		omega:  p.Omega,
		x0:     x0,
		v0:     v0,
	}

	amp, err := SteadyAmplitude(p, p.Omega)
	switch {
	case errors.Is(err, ErrNoSteadyState):
		s.secular = true
		s.amp = math.Inf(1)
		s.phase = math.Pi / 2
	case err != nil:
		return nil, err
	default:
		s.amp = amp
		s.phase = PhaseLag(p, p.Omega)
	}

	xp0, vp0 := s.particular(0)
	s.hom = newHomogeneous(s.wn, s.zeta, x0-xp0, v0-vp0)
	return s, nil
}

// FreeResponse is the unforced solution for a given natural frequency and
// damping ratio.
func FreeResponse(wn, zeta, x0, v0 float64) (*Solution, error) {
	return New(physics.Params{Mass: 1, Stiffness: wn * wn, Zeta: zeta}, x0, v0)
}

func (s *Solution) particular(t float64) (float64, float64) {
	if s.secular {
		g := s.params.Force / (2 * s.params.Mass * s.wn)
		sin, cos := math.Sincos(s.wn * t)
		return -g * t * cos, -g*cos + g*s.wn*t*sin
	}
	sin, cos := math.Sincos(s.omega*t - s.phase)
	return s.amp * sin, s.amp * s.omega * cos
}

// Displacement returns x(t).
func (s *Solution) Displacement(t float64) float64 {
	xp, _ := s.particular(t)
	xh, _ := s.hom.at(t)
	return xp + xh
}

// Velocity returns x'(t).
func (s *Solution) Velocity(t float64) float64 {
	_, vp := s.particular(t)
	_, vh := s.hom.at(t)
	return vp + vh
}

// Particular returns the steady-state part xp(t).
func (s *Solution) Particular(t float64) float64 {
	xp, _ := s.particular(t)
	return xp
}

// Homogeneous returns the transient part xh(t).
func (s *Solution) Homogeneous(t float64) float64 {
	xh, _ := s.hom.at(t)
	return xh
}

// Amplitude returns X, or +Inf for undamped resonance.
func (s *Solution) Amplitude() float64 { return s.amp }

// Phase returns φ in radians.
func (s *Solution) Phase() float64 { return s.phase }

func (s *Solution) Regime() Regime { return Classify(s.zeta) }

func (s *Solution) Coefficients() Coefficients { return s.hom.coefficients() }

func (s *Solution) Params() physics.Params { return s.params }

// Resonant reports whether the particular solution is the secular
// undamped-resonance term.
func (s *Solution) Resonant() bool { return s.secular }

// Series evaluates x(t) on a time grid.
func (s *Solution) Series(times []float64) []float64 {
	out := make([]float64, len(times))
	for i, t := range times {
		out[i] = s.Displacement(t)
	}
	return out
}

// SteadyAmplitude returns X(Ω) = (F0/m) / √((ωn² − Ω²)² + (2ζωnΩ)²).
func SteadyAmplitude(p physics.Params, omega float64) (float64, error) {
	wn := p.NaturalFrequency()
	zeta := p.Ratio()
	d := wn*wn - omega*omega
	v := 2 * zeta * wn * omega
	denom := math.Sqrt(d*d + v*v)
	if denom == 0 {
		if p.Force == 0 {
			return 0, nil
		}
		return math.Inf(1), ErrNoSteadyState
	}
	return (p.Force / p.Mass) / denom, nil
}

// PhaseLag returns φ(Ω) = atan2(2ζωnΩ, ωn² − Ω²) in [0, π].
func PhaseLag(p physics.Params, omega float64) float64 {
	wn := p.NaturalFrequency()
	return math.Atan2(2*p.Ratio()*wn*omega, wn*wn-omega*omega)
}
