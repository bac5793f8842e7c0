package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/bridgesim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// Corner indices of the deck. Positions in the state vector are
// state[2*i] and velocities state[2*i+1].
const (
	FrontLeft = iota
	FrontRight
	BackLeft
	BackRight

	Corners = 4
)

var cornerNames = [Corners]string{"front-left", "front-right", "back-left", "back-right"}

func CornerName(i int) string {
	if i < 0 || i >= Corners {
		return fmt.Sprintf("corner-%d", i)
	}
	return cornerNames[i]
}

// Edge couples two adjacent corners.
type Edge struct{ I, J int }

// Edges are the four rectangle sides. There is no diagonal coupling.
var Edges = [4]Edge{
	{FrontLeft, FrontRight},
	{FrontLeft, BackLeft},
	{FrontRight, BackRight},
	{BackLeft, BackRight},
}

// DeckParams are shared by all four corners.
type DeckParams struct {
	Mass              float64 `yaml:"mass" json:"mass" mapstructure:"mass"`
	AnchorStiffness   float64 `yaml:"anchor_stiffness" json:"anchor_stiffness" mapstructure:"anchor_stiffness"`
	AnchorDamping     float64 `yaml:"anchor_damping" json:"anchor_damping" mapstructure:"anchor_damping"`
	CouplingStiffness float64 `yaml:"coupling_stiffness" json:"coupling_stiffness" mapstructure:"coupling_stiffness"`
	CouplingDamping   float64 `yaml:"coupling_damping" json:"coupling_damping" mapstructure:"coupling_damping"`
	Force             float64 `yaml:"force" json:"force" mapstructure:"force"`
	Omega             float64 `yaml:"omega" json:"omega" mapstructure:"omega"`
}

// DefaultDeckParams: m=1000 kg, k0=4e4 N/m, ζ0=0.05, kc=1e4 N/m, cc=500 Ns/m,
// F0=1 kN at 2.25 Hz.
func DefaultDeckParams() DeckParams {
	return DeckParams{
		Mass:              DefaultMass,
		AnchorStiffness:   DefaultStiffness,
		AnchorDamping:     2 * DefaultZeta * math.Sqrt(DefaultStiffness*DefaultMass),
		CouplingStiffness: 1e4,
		CouplingDamping:   500,
		Force:             DefaultForce,
		Omega:             2 * math.Pi * 2.25,
	}
}

func (p DeckParams) Validate() error {
	switch {
	case !(p.Mass > 0) || math.IsInf(p.Mass, 0):
		return paramErr("mass", p.Mass, "must be positive")
	case !(p.AnchorStiffness > 0) || math.IsInf(p.AnchorStiffness, 0):
		return paramErr("anchor_stiffness", p.AnchorStiffness, "must be positive")
	case !(p.AnchorDamping >= 0):
		return paramErr("anchor_damping", p.AnchorDamping, "must not be negative")
	case !(p.CouplingStiffness >= 0):
		return paramErr("coupling_stiffness", p.CouplingStiffness, "must not be negative")
	case !(p.CouplingDamping >= 0):
		return paramErr("coupling_damping", p.CouplingDamping, "must not be negative")
	case math.IsNaN(p.Force) || math.IsInf(p.Force, 0):
		return paramErr("force", p.Force, "must be finite")
	case !(p.Omega >= 0) || math.IsInf(p.Omega, 0):
		return paramErr("omega", p.Omega, "must be finite and not negative")
	}
	return nil
}

// Corner returns the single-corner oscillator formed by the anchor
// spring and damper alone.
func (p DeckParams) Corner() Params {
	return Params{
		Mass:         p.Mass,
		Stiffness:    p.AnchorStiffness,
		Zeta:         p.AnchorDamping / (2 * math.Sqrt(p.AnchorStiffness*p.Mass)),
		DampingCoeff: p.AnchorDamping,
		Force:        p.Force,
		Omega:        p.Omega,
	}
}

func (p DeckParams) WithOmega(omega float64) DeckParams {
	p.Omega = omega
	return p
}

// Deck is the four-corner coupled model with state
// [x0, v0, x1, v1, x2, v2, x3, v3].
type Deck struct {
	params  DeckParams
	forcing Forcing
}

// NewDeck binds parameters and a forcing distribution. A nil forcing
// leaves the deck unforced; otherwise it must have one entry per corner.
func NewDeck(p DeckParams, f Forcing) (*Deck, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if f == nil {
		f = Unforced(Corners)
	}
	if len(f) != Corners {
		return nil, fmt.Errorf("%w: forcing has %d entries, want %d", dynamo.ErrDimensionMismatch, len(f), Corners)
	}
	fc := make(Forcing, Corners)
	copy(fc, f)
	return &Deck{params: p, forcing: fc}, nil
}

// NewDeckMode is NewDeck with the harmonic load from p distributed by mode.
func NewDeckMode(p DeckParams, mode ForcingMode) (*Deck, error) {
	f, err := DeckForcing(mode, p.Force, p.Omega)
	if err != nil {
		return nil, err
	}
	return NewDeck(p, f)
}

func (d *Deck) StateDim() int { return 2 * Corners }

func (d *Deck) Derive(x dynamo.State, t float64) dynamo.State {
	p := d.params
	var force [Corners]float64
	for i := 0; i < Corners; i++ {
		xi, vi := x[2*i], x[2*i+1]
		force[i] = d.forcing.At(i, t) - p.AnchorStiffness*xi - p.AnchorDamping*vi
	}
	for _, e := range Edges {
		f := -p.CouplingStiffness*(x[2*e.I]-x[2*e.J]) - p.CouplingDamping*(x[2*e.I+1]-x[2*e.J+1])
		force[e.I] += f
		force[e.J] -= f
	}

	dx := make(dynamo.State, 2*Corners)
	for i := 0; i < Corners; i++ {
		dx[2*i] = x[2*i+1]
		dx[2*i+1] = force[i] / p.Mass
	}
	return dx
}

// CouplingForce returns the force edge e exerts on its I corner.
// Corner J receives the negation.
func (d *Deck) CouplingForce(x dynamo.State, e Edge) float64 {
	p := d.params
	return -p.CouplingStiffness*(x[2*e.I]-x[2*e.J]) - p.CouplingDamping*(x[2*e.I+1]-x[2*e.J+1])
}

func (d *Deck) Parameters() DeckParams { return d.params }

func (d *Deck) Forcing() Forcing {
	out := make(Forcing, len(d.forcing))
	copy(out, d.forcing)
	return out
}

// ForcedCorners names the corners that carry an external load.
func (d *Deck) ForcedCorners() []string {
	var names []string
	for _, i := range d.forcing.Forced() {
		names = append(names, CornerName(i))
	}
	return names
}

// Energy is the kinetic energy plus anchor and coupling spring potential.
func (d *Deck) Energy(x dynamo.State) float64 {
	p := d.params
	var e float64
	for i := 0; i < Corners; i++ {
		xi, vi := x[2*i], x[2*i+1]
		e += 0.5*p.Mass*vi*vi + 0.5*p.AnchorStiffness*xi*xi
	}
	for _, edge := range Edges {
		dx := x[2*edge.I] - x[2*edge.J]
		e += 0.5 * p.CouplingStiffness * dx * dx
	}
	return e
}

func (d *Deck) Params() map[string]float64 {
	p := d.params
	return map[string]float64{
		"m":     p.Mass,
		"k0":    p.AnchorStiffness,
		"c0":    p.AnchorDamping,
		"kc":    p.CouplingStiffness,
		"cc":    p.CouplingDamping,
		"f0":    p.Force,
		"omega": p.Omega,
	}
}

// StateMatrix returns A in x' = A x + B u for the unforced deck.
func (d *Deck) StateMatrix() *mat.Dense {
	p := d.params
	n := 2 * Corners
	a := mat.NewDense(n, n, nil)

	var deg [Corners]float64
	for _, e := range Edges {
		deg[e.I]++
		deg[e.J]++
	}
	for i := 0; i < Corners; i++ {
		a.Set(2*i, 2*i+1, 1)
		a.Set(2*i+1, 2*i, -(p.AnchorStiffness+deg[i]*p.CouplingStiffness)/p.Mass)
		a.Set(2*i+1, 2*i+1, -(p.AnchorDamping+deg[i]*p.CouplingDamping)/p.Mass)
	}
	for _, e := range Edges {
		kc := p.CouplingStiffness / p.Mass
		cc := p.CouplingDamping / p.Mass
		a.Set(2*e.I+1, 2*e.J, kc)
		a.Set(2*e.I+1, 2*e.J+1, cc)
		a.Set(2*e.J+1, 2*e.I, kc)
		a.Set(2*e.J+1, 2*e.I+1, cc)
	}
	return a
}
