package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/bridgesim/internal/dynamo"
)

const (
	DefaultMass      = 1000.0
	DefaultStiffness = 4e4
	DefaultZeta      = 0.05
	DefaultForce     = 1000.0
)

// ErrInvalidParams is returned, wrapped with the offending field, by every
// parameter validation in this package.
var ErrInvalidParams = fmt.Errorf("physics: invalid parameters: %w", dynamo.ErrInvalidParameter)

// Params describes a single damped oscillator under F0 sin(Ωt).
// Damping is given either as the ratio Zeta or the coefficient DampingCoeff;
// when DampingCoeff is positive it takes precedence. The natural frequency
// is always derived from Stiffness and Mass.
type Params struct {
	Mass         float64 `yaml:"mass" json:"mass" mapstructure:"mass"`
	Stiffness    float64 `yaml:"stiffness" json:"stiffness" mapstructure:"stiffness"`
	Zeta         float64 `yaml:"zeta" json:"zeta" mapstructure:"zeta"`
	DampingCoeff float64 `yaml:"damping_coeff,omitempty" json:"damping_coeff,omitempty" mapstructure:"damping_coeff"`
	Force        float64 `yaml:"force" json:"force" mapstructure:"force"`
	Omega        float64 `yaml:"omega" json:"omega" mapstructure:"omega"`
}

// DefaultParams is the reference deck: m=1000 kg, k=4e4 N/m, ζ=0.05,
// F0=1000 N driven at resonance.
func DefaultParams() Params {
	p := Params{
		Mass:      DefaultMass,
		Stiffness: DefaultStiffness,
		Zeta:      DefaultZeta,
		Force:     DefaultForce,
	}
	p.Omega = p.NaturalFrequency()
	return p
}

func (p Params) Validate() error {
	switch {
	case !(p.Mass > 0) || math.IsInf(p.Mass, 0):
		return paramErr("mass", p.Mass, "must be positive")
	case !(p.Stiffness > 0) || math.IsInf(p.Stiffness, 0):
		return paramErr("stiffness", p.Stiffness, "must be positive")
	case p.Zeta < 0 || math.IsNaN(p.Zeta):
		return paramErr("zeta", p.Zeta, "must not be negative")
	case p.DampingCoeff < 0 || math.IsNaN(p.DampingCoeff):
		return paramErr("damping_coeff", p.DampingCoeff, "must not be negative")
	case math.IsNaN(p.Force) || math.IsInf(p.Force, 0):
		return paramErr("force", p.Force, "must be finite")
	case p.Omega < 0 || math.IsNaN(p.Omega) || math.IsInf(p.Omega, 0):
		return paramErr("omega", p.Omega, "must be finite and not negative")
	}
	return nil
}

func paramErr(field string, v float64, reason string) error {
	return fmt.Errorf("%w: %w", ErrInvalidParams, dynamo.InvalidParam(field, v, reason))
}

// NaturalFrequency returns ωn = √(k/m).
func (p Params) NaturalFrequency() float64 {
	return math.Sqrt(p.Stiffness / p.Mass)
}

// Coefficient returns c in Ns/m.
func (p Params) Coefficient() float64 {
	if p.DampingCoeff > 0 {
		return p.DampingCoeff
	}
	return 2 * p.Zeta * math.Sqrt(p.Stiffness*p.Mass)
}

// Ratio returns ζ, derived from DampingCoeff when that is set.
func (p Params) Ratio() float64 {
	if p.DampingCoeff > 0 {
		return p.DampingCoeff / (2 * math.Sqrt(p.Stiffness*p.Mass))
	}
	return p.Zeta
}

// DampedFrequency returns ωd = ωn√(1-ζ²), or zero when ζ >= 1.
func (p Params) DampedFrequency() float64 {
	z := p.Ratio()
	if z >= 1 {
		return 0
	}
	return p.NaturalFrequency() * math.Sqrt(1-z*z)
}

// WithOmega returns a copy driven at a different forcing frequency.
func (p Params) WithOmega(omega float64) Params {
	p.Omega = omega
	return p
}

// WithZeta returns a copy with a different damping ratio and no explicit coefficient.
func (p Params) WithZeta(zeta float64) Params {
	p.Zeta = zeta
	p.DampingCoeff = 0
	return p
}

// SettlingTime returns 10/(ζωn), the run length after which transients are
// negligible, or +Inf when undamped.
func (p Params) SettlingTime() float64 {
	z := p.Ratio()
	if z == 0 {
		return math.Inf(1)
	}
	return 10 / (z * p.NaturalFrequency())
}
