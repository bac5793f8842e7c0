package metrics

import (
	"math"
	"strconv"

	"github.com/san-kum/bridgesim/internal/dynamo"
)

// Energy averages the mechanical energy of a Hamiltonian system over a run.
type Energy struct {
	name    string
	sys     dynamo.Hamiltonian
	samples int
	total   float64
	peak    float64
}

func NewEnergy(sys dynamo.Hamiltonian) *Energy {
	return &Energy{name: "energy", sys: sys}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x dynamo.State, t float64) {
	en := e.sys.Energy(x)
	e.total += en
	e.peak = math.Max(e.peak, en)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.total / float64(e.samples)
}

// Peak is the largest energy observed.
func (e *Energy) Peak() float64 { return e.peak }

func (e *Energy) Reset() {
	e.total = 0
	e.peak = 0
	e.samples = 0
}

// PeakDisplacement tracks max |x| of one DOF from time From onward.
type PeakDisplacement struct {
	name string
	dof  int
	From float64
	peak float64
}

func NewPeakDisplacement(dof int, from float64) *PeakDisplacement {
	return &PeakDisplacement{name: "peak_x" + strconv.Itoa(dof), dof: dof, From: from}
}

func (p *PeakDisplacement) Name() string { return p.name }

func (p *PeakDisplacement) Observe(x dynamo.State, t float64) {
	if t < p.From || 2*p.dof >= len(x) {
		return
	}
	p.peak = math.Max(p.peak, math.Abs(x.Position(p.dof)))
}

func (p *PeakDisplacement) Value() float64 { return p.peak }

func (p *PeakDisplacement) Reset() { p.peak = 0 }
