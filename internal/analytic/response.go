package analytic

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/san-kum/bridgesim/internal/physics"
	"gonum.org/v1/gonum/floats"
)

// ResponsePoint is one sample of the steady-state amplitude curve.
type ResponsePoint struct {
	Omega     float64 `json:"omega"`
	Ratio     float64 `json:"ratio"`
	Amplitude float64 `json:"amplitude"`
	Phase     float64 `json:"phase"`
}

// FrequencyResponse evaluates X(Ω) and φ(Ω) at each frequency. Undamped
// resonance yields an infinite amplitude.
func FrequencyResponse(p physics.Params, omegas []float64) []ResponsePoint {
	wn := p.NaturalFrequency()
	out := make([]ResponsePoint, len(omegas))
	for i, w := range omegas {
		x, _ := SteadyAmplitude(p, w)
		out[i] = ResponsePoint{
			Omega:     w,
			Ratio:     w / wn,
			Amplitude: math.Abs(x),
			Phase:     PhaseLag(p, w),
		}
	}
	return out
}

// BodePoint is the receptance H(iω) = 1 / (k − mω² + icω) at one frequency.
type BodePoint struct {
	Omega       float64 `json:"omega"`
	MagnitudeDB float64 `json:"magnitude_db"`
	PhaseDeg    float64 `json:"phase_deg"`
}

// Bode samples H(iω) on n logarithmically spaced frequencies in
// [wMin, wMax] rad/s.
func Bode(p physics.Params, wMin, wMax float64, n int) ([]BodePoint, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !(wMin > 0) || !(wMax > wMin) || n < 2 {
		return nil, fmt.Errorf("%w: bode range [%g, %g] with %d points", physics.ErrInvalidParams, wMin, wMax, n)
	}

	c := p.Coefficient()
	omegas := floats.LogSpan(make([]float64, n), wMin, wMax)
	out := make([]BodePoint, n)
	for i, w := range omegas {
		h := 1 / complex(p.Stiffness-p.Mass*w*w, c*w)
		out[i] = BodePoint{
			Omega:       w,
			MagnitudeDB: 20 * math.Log10(cmplx.Abs(h)),
			PhaseDeg:    cmplx.Phase(h) * 180 / math.Pi,
		}
	}
	return out, nil
}

// TimeFrequencySurface samples the steady-state displacement
// X(Ω) sin(Ωt − φ(Ω)) with X = times and Y = omegas. Cells with no
// steady state are NaN.
func TimeFrequencySurface(p physics.Params, times, omegas []float64) *physics.Surface {
	s := &physics.Surface{X: times, Y: omegas, Z: make([][]float64, len(omegas))}
	for j, w := range omegas {
		s.Z[j] = steadyRow(p, w, times)
	}
	return s
}

// DampingSurface samples the steady-state displacement at a fixed Ω with
// X = times and Y = damping ratios.
func DampingSurface(p physics.Params, times, zetas []float64) *physics.Surface {
	s := &physics.Surface{X: times, Y: zetas, Z: make([][]float64, len(zetas))}
	for j, z := range zetas {
		s.Z[j] = steadyRow(p.WithZeta(z), p.Omega, times)
	}
	return s
}

func steadyRow(p physics.Params, omega float64, times []float64) []float64 {
	row := make([]float64, len(times))
	x, err := SteadyAmplitude(p, omega)
	if err != nil {
		for i := range row {
			row[i] = math.NaN()
		}
		return row
	}
	phi := PhaseLag(p, omega)
	for i, t := range times {
		row[i] = x * math.Sin(omega*t-phi)
	}
	return row
}

// ResonancePeak returns the frequency of maximum steady-state amplitude,
// ωn√(1 − 2ζ²), and the amplitude there. For ζ ≥ 1/√2 the curve is
// monotone and the peak is the static deflection at Ω = 0.
func ResonancePeak(p physics.Params) (omega, amplitude float64) {
	z := p.Ratio()
	if 2*z*z >= 1 {
		x, _ := SteadyAmplitude(p, 0)
		return 0, math.Abs(x)
	}
	omega = p.NaturalFrequency() * math.Sqrt(1-2*z*z)
	x, _ := SteadyAmplitude(p, omega)
	return omega, math.Abs(x)
}
