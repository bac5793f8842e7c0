package metrics

import (
	"math"

	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/physics"
)

// DefaultDeflectionLimit is the span/800 serviceability limit of the
// default deck.
const DefaultDeflectionLimit = physics.DefaultDeckLength / 800

// Exceedance is the fraction of samples in which any DOF deflects more
// than limit. Velocities are not checked.
type Exceedance struct {
	limit    float64
	over     int
	samples  int
	first    float64
	exceeded bool
}

func NewExceedance(limit float64) *Exceedance {
	return &Exceedance{limit: limit}
}

func (e *Exceedance) Name() string { return "exceedance" }

func (e *Exceedance) Observe(x dynamo.State, t float64) {
	e.samples++
	for dof := 0; dof < x.DOF(); dof++ {
		if d := x.Position(dof); math.Abs(d) > e.limit || math.IsNaN(d) {
			e.over++
			if !e.exceeded {
				e.exceeded, e.first = true, t
			}
			return
		}
	}
}

func (e *Exceedance) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return float64(e.over) / float64(e.samples)
}

// First returns the time of the first exceedance, or false if the limit
// was never crossed.
func (e *Exceedance) First() (float64, bool) { return e.first, e.exceeded }

func (e *Exceedance) Reset() {
	e.over, e.samples = 0, 0
	e.first, e.exceeded = 0, false
}
