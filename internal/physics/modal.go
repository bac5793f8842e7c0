package physics

import (
	"errors"
	"math"
	"math/cmplx"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// RK4StabilityBound is the approximate extent of the RK4 stability region
// along the imaginary axis.
const RK4StabilityBound = 2.78

// Linear is implemented by models with a constant first-order system matrix.
type Linear interface {
	StateMatrix() *mat.Dense
}

var ErrEigen = errors.New("physics: eigen decomposition did not converge")

// ModalAnalysis holds the eigen structure of a linear model.
type ModalAnalysis struct {
	Eigenvalues []complex128 `json:"-"`
	// Frequencies are the distinct damped modal frequencies in rad/s, ascending.
	Frequencies    []float64 `json:"frequencies"`
	DampingRatios  []float64 `json:"damping_ratios"`
	SpectralRadius float64   `json:"spectral_radius"`
}

// Modes factorizes the system matrix of sys.
func Modes(sys Linear) (*ModalAnalysis, error) {
	var eig mat.Eigen
	if ok := eig.Factorize(sys.StateMatrix(), mat.EigenNone); !ok {
		return nil, ErrEigen
	}
	vals := eig.Values(nil)

	ma := &ModalAnalysis{Eigenvalues: vals}
	type mode struct{ wd, zeta float64 }
	var modes []mode
	for _, v := range vals {
		if r := cmplx.Abs(v); r > ma.SpectralRadius {
			ma.SpectralRadius = r
		}
		if imag(v) <= 0 {
			continue
		}
		zeta := 0.0
		if wn := cmplx.Abs(v); wn > 0 {
			zeta = -real(v) / wn
		}
		modes = append(modes, mode{wd: imag(v), zeta: zeta})
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i].wd < modes[j].wd })

	const tol = 1e-6
	for _, m := range modes {
		n := len(ma.Frequencies)
		if n > 0 && math.Abs(ma.Frequencies[n-1]-m.wd) <= tol*math.Max(1, m.wd) {
			continue
		}
		ma.Frequencies = append(ma.Frequencies, m.wd)
		ma.DampingRatios = append(ma.DampingRatios, m.zeta)
	}
	return ma, nil
}

// MaxStableStep is the largest RK4 step inside the stability estimate.
func (m *ModalAnalysis) MaxStableStep() float64 {
	if m.SpectralRadius == 0 {
		return math.Inf(1)
	}
	return RK4StabilityBound / m.SpectralRadius
}

// StepStable reports whether max|λ|·h <= 2.78.
func (m *ModalAnalysis) StepStable(h float64) bool {
	return m.SpectralRadius*h <= RK4StabilityBound
}

func (s *SDOF) StateMatrix() *mat.Dense {
	return mat.NewDense(2, 2, []float64{
		0, 1,
		-s.k / s.m, -s.c / s.m,
	})
}
