package analytic

import (
	"fmt"
	"math"
)

// CriticalBand is the half-width around ζ = 1 treated as critical damping.
const CriticalBand = 1e-9

type Regime int

const (
	Underdamped Regime = iota
	Critical
	Overdamped
)

func (r Regime) String() string {
	switch r {
	case Underdamped:
		return "underdamped"
	case Critical:
		return "critical"
	case Overdamped:
		return "overdamped"
	}
	return fmt.Sprintf("Regime(%d)", int(r))
}

func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func Classify(zeta float64) Regime {
	switch {
	case math.Abs(zeta-1) <= CriticalBand:
		return Critical
	case zeta < 1:
		return Underdamped
	default:
		return Overdamped
	}
}

// Coefficients are the homogeneous constants of one regime. Underdamped and
// critical solutions use C1, C2; overdamped solutions use A, B with decay
// rates Lambda1, Lambda2.
type Coefficients struct {
	Regime  Regime  `json:"regime"`
	C1      float64 `json:"c1,omitempty"`
	C2      float64 `json:"c2,omitempty"`
	A       float64 `json:"a,omitempty"`
	B       float64 `json:"b,omitempty"`
	Lambda1 float64 `json:"lambda1,omitempty"`
	Lambda2 float64 `json:"lambda2,omitempty"`
}

// homogeneous is the transient for a regime, with xh0 and vh0 its
// initial displacement and velocity.
type homogeneous interface {
	at(t float64) (x, v float64)
	coefficients() Coefficients
}

func newHomogeneous(wn, zeta, xh0, vh0 float64) homogeneous {
	switch Classify(zeta) {
	case Critical:
		return critical{wn: wn, c1: xh0, c2: vh0 + wn*xh0}
	case Underdamped:
		wd := wn * math.Sqrt(1-zeta*zeta)
		return underdamped{
			sigma: zeta * wn,
			wd:    wd,
			c1:    xh0,
			c2:    (vh0 + zeta*wn*xh0) / wd,
		}
	default:
		s := math.Sqrt(zeta*zeta - 1)
		l1 := -wn * (zeta - s)
		l2 := -wn * (zeta + s)
		a := (vh0 - l2*xh0) / (l1 - l2)
		return overdamped{l1: l1, l2: l2, a: a, b: xh0 - a}
	}
}

type underdamped struct {
	sigma, wd float64
	c1, c2    float64
}

func (u underdamped) at(t float64) (float64, float64) {
	e := math.Exp(-u.sigma * t)
	sin, cos := math.Sincos(u.wd * t)
	x := e * (u.c1*cos + u.c2*sin)
	v := e * ((u.wd*u.c2-u.sigma*u.c1)*cos - (u.wd*u.c1+u.sigma*u.c2)*sin)
	return x, v
}

func (u underdamped) coefficients() Coefficients {
	return Coefficients{Regime: Underdamped, C1: u.c1, C2: u.c2}
}

type critical struct {
	wn, c1, c2 float64
}

func (c critical) at(t float64) (float64, float64) {
	e := math.Exp(-c.wn * t)
	x := (c.c1 + c.c2*t) * e
	v := (c.c2 - c.wn*(c.c1+c.c2*t)) * e
	return x, v
}

func (c critical) coefficients() Coefficients {
	return Coefficients{Regime: Critical, C1: c.c1, C2: c.c2}
}

type overdamped struct {
	l1, l2 float64
	a, b   float64
}

func (o overdamped) at(t float64) (float64, float64) {
	e1, e2 := math.Exp(o.l1*t), math.Exp(o.l2*t)
	return o.a*e1 + o.b*e2, o.a*o.l1*e1 + o.b*o.l2*e2
}

func (o overdamped) coefficients() Coefficients {
	return Coefficients{Regime: Overdamped, A: o.a, B: o.b, Lambda1: o.l1, Lambda2: o.l2}
}
