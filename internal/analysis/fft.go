package analysis

import (
	"math"
	"math/cmplx"

	"github.com/san-kum/bridgesim/internal/dynamo"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// PowerSpectrum returns |X_k|² / n for k = 0..n/2 of a real signal.
func PowerSpectrum(data []float64) []float64 {
	n := len(data)
	if n == 0 {
		return nil
	}
	coeff := fourier.NewFFT(n).Coefficients(nil, data)
	power := make([]float64, len(coeff))
	for i, c := range coeff {
		a := cmplx.Abs(c)
		power[i] = a * a / float64(n)
	}
	return power
}

// DominantFrequency returns the angular frequency (rad/s) of the strongest
// non-DC spectral line of dof over samples at time >= from.
func DominantFrequency(ts *dynamo.TimeSeries, dof int, from float64) float64 {
	start := ts.Window(from)
	x := ts.Displacement(dof)[start:]
	if len(x) < 4 {
		return 0
	}

	centered := make([]float64, len(x))
	copy(centered, x)
	floats.AddConst(-stat.Mean(x, nil), centered)

	power := PowerSpectrum(centered)
	best := 1
	for k := 2; k < len(power); k++ {
		if power[k] > power[best] {
			best = k
		}
	}
	return 2 * math.Pi * float64(best) / (float64(len(x)) * ts.Dt)
}
