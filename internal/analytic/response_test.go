package analytic_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/bridgesim/internal/analytic"
	"github.com/san-kum/bridgesim/internal/physics"
)

var _ = Describe("frequency response", func() {
	p := physics.DefaultParams()
	wn := p.NaturalFrequency()

	It("gives the static deflection at Ω = 0", func() {
		x, err := analytic.SteadyAmplitude(p, 0)
		Expect(err).NotTo(HaveOccurred())
		Expect(x).To(BeNumerically("~", p.Force/p.Stiffness, 1e-15))
		Expect(analytic.PhaseLag(p, 0)).To(BeZero())
	})

	It("reports undamped resonance", func() {
		x, err := analytic.SteadyAmplitude(p.WithZeta(0), wn)
		Expect(errors.Is(err, analytic.ErrNoSteadyState)).To(BeTrue())
		Expect(math.IsInf(x, 1)).To(BeTrue())
	})

	It("lags by more than π/2 above resonance", func() {
		Expect(analytic.PhaseLag(p, 2*wn)).To(BeNumerically(">", math.Pi/2))
		Expect(analytic.PhaseLag(p, 2*wn)).To(BeNumerically("<=", math.Pi))
	})

	It("samples the amplitude curve", func() {
		pts := analytic.FrequencyResponse(p, []float64{0.5 * wn, wn, 1.5 * wn})
		Expect(pts).To(HaveLen(3))
		Expect(pts[1].Ratio).To(BeNumerically("~", 1, 1e-12))
		Expect(pts[1].Amplitude).To(BeNumerically("~", 0.25, 1e-12))
		Expect(pts[1].Amplitude).To(BeNumerically(">", pts[0].Amplitude))
		Expect(pts[1].Amplitude).To(BeNumerically(">", pts[2].Amplitude))
	})

	It("finds the resonance peak", func() {
		w, x := analytic.ResonancePeak(p)
		Expect(w).To(BeNumerically("~", wn*math.Sqrt(1-2*0.05*0.05), 1e-12))
		Expect(x).To(BeNumerically(">=", 0.25))

		w, x = analytic.ResonancePeak(p.WithZeta(1))
		Expect(w).To(BeZero())
		Expect(x).To(BeNumerically("~", p.Force/p.Stiffness, 1e-15))
	})

	Describe("Bode", func() {
		It("spans a log grid and matches X/F0", func() {
			pts, err := analytic.Bode(p, 0.1, 100, 500)
			Expect(err).NotTo(HaveOccurred())
			Expect(pts).To(HaveLen(500))
			Expect(pts[0].Omega).To(BeNumerically("~", 0.1, 1e-12))
			Expect(pts[499].Omega).To(BeNumerically("~", 100, 1e-9))

			for _, pt := range pts[:5] {
				x, _ := analytic.SteadyAmplitude(p, pt.Omega)
				Expect(math.Pow(10, pt.MagnitudeDB/20)).To(BeNumerically("~", x/p.Force, 1e-12))
				Expect(pt.PhaseDeg).To(BeNumerically("<=", 0))
			}
			Expect(pts[499].PhaseDeg).To(BeNumerically("<", -170))
		})

		It("rejects a bad range", func() {
			_, err := analytic.Bode(p, 0, 100, 10)
			Expect(errors.Is(err, physics.ErrInvalidParams)).To(BeTrue())
			_, err = analytic.Bode(p, 10, 1, 10)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("surfaces", func() {
		times := []float64{0, 0.25, 0.5}

		It("builds the time-frequency grid", func() {
			omegas := []float64{0.5 * wn, wn}
			s := analytic.TimeFrequencySurface(p, times, omegas)
			Expect(s.Z).To(HaveLen(2))
			Expect(s.Z[0]).To(HaveLen(3))
			// At resonance φ = π/2 so x(0) = -X.
			Expect(s.Z[1][0]).To(BeNumerically("~", -0.25, 1e-12))
		})

		It("marks undamped resonance cells as NaN", func() {
			s := analytic.DampingSurface(p, times, []float64{0, 0.5})
			Expect(math.IsNaN(s.Z[0][1])).To(BeTrue())
			Expect(math.IsNaN(s.Z[1][1])).To(BeFalse())
		})
	})
})
