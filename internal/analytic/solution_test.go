package analytic_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/bridgesim/internal/analytic"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/physics"
)

var _ = Describe("Classify", func() {
	DescribeTable("picks the damping regime",
		func(zeta float64, want analytic.Regime) {
			Expect(analytic.Classify(zeta)).To(Equal(want))
		},
		Entry("undamped", 0.0, analytic.Underdamped),
		Entry("light", 0.05, analytic.Underdamped),
		Entry("just below the band", 1-1e-6, analytic.Underdamped),
		Entry("exactly critical", 1.0, analytic.Critical),
		Entry("inside the band", 1+5e-10, analytic.Critical),
		Entry("just above the band", 1+1e-6, analytic.Overdamped),
		Entry("heavy", 2.0, analytic.Overdamped),
	)

	It("names each regime", func() {
		Expect(analytic.Critical.String()).To(Equal("critical"))
		Expect(analytic.Regime(9).String()).To(Equal("Regime(9)"))
	})
})

var _ = Describe("Solution", func() {
	var resonance physics.Params

	BeforeEach(func() {
		resonance = physics.DefaultParams()
	})

	Context("at resonance with ζ = 0.05", func() {
		It("has X = 0.25 m and φ = π/2", func() {
			sol, err := analytic.New(resonance, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Amplitude()).To(BeNumerically("~", 0.25, 1e-12))
			Expect(sol.Phase()).To(BeNumerically("~", math.Pi/2, 1e-12))
			Expect(sol.Regime()).To(Equal(analytic.Underdamped))
		})

		It("matches the initial conditions", func() {
			sol, err := analytic.New(resonance, 0.02, -0.1)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Displacement(0)).To(BeNumerically("~", 0.02, 1e-12))
			Expect(sol.Velocity(0)).To(BeNumerically("~", -0.1, 1e-12))
		})

		It("decays to the particular solution", func() {
			sol, _ := analytic.New(resonance, 0, 0)
			t := 40.0
			Expect(math.Abs(sol.Homogeneous(t))).To(BeNumerically("<", 1e-4))
			Expect(sol.Displacement(t)).To(BeNumerically("~", sol.Particular(t), 1e-4))
		})
	})

	It("satisfies the equation of motion in every regime", func() {
		for _, zeta := range []float64{0, 0.3, 1, 1.7} {
			p := resonance.WithZeta(zeta).WithOmega(4.1)
			sol, err := analytic.New(p, 0.01, 0.05)
			Expect(err).NotTo(HaveOccurred())

			const h = 1e-4
			for _, t := range []float64{0.3, 1.1, 2.9} {
				acc := (sol.Velocity(t+h) - sol.Velocity(t-h)) / (2 * h)
				rhs := (p.Force*math.Sin(p.Omega*t) - p.Coefficient()*sol.Velocity(t) - p.Stiffness*sol.Displacement(t)) / p.Mass
				Expect(acc).To(BeNumerically("~", rhs, 1e-5), "ζ=%g t=%g", zeta, t)
			}
		}
	})

	Context("critically damped", func() {
		It("gives x(1) = 2/e for ωn = 1, x0 = 1, v0 = 0", func() {
			sol, err := analytic.FreeResponse(1, 1, 1, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Regime()).To(Equal(analytic.Critical))
			Expect(sol.Homogeneous(1)).To(BeNumerically("~", 2/math.E, 1e-9))
			Expect(sol.Displacement(1)).To(BeNumerically("~", 0.7357588823428847, 1e-9))

			c := sol.Coefficients()
			Expect(c.C1).To(Equal(1.0))
			Expect(c.C2).To(Equal(1.0))
		})

		It("stays finite inside the critical band", func() {
			sol, err := analytic.FreeResponse(1, 1+1e-10, 1, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Regime()).To(Equal(analytic.Critical))
			Expect(math.IsNaN(sol.Displacement(2))).To(BeFalse())
			Expect(math.IsInf(sol.Displacement(2), 0)).To(BeFalse())
		})
	})

	Context("overdamped", func() {
		It("has A + B = 1 for x0 = 1, v0 = 0", func() {
			sol, err := analytic.FreeResponse(1, 2, 1, 0)
			Expect(err).NotTo(HaveOccurred())
			c := sol.Coefficients()
			Expect(c.Regime).To(Equal(analytic.Overdamped))
			Expect(c.A + c.B).To(BeNumerically("~", 1, 1e-12))
			Expect(c.Lambda1).To(BeNumerically("~", -(2 - math.Sqrt(3)), 1e-12))
			Expect(c.Lambda2).To(BeNumerically("~", -(2 + math.Sqrt(3)), 1e-12))
		})

		It("never changes sign", func() {
			sol, _ := analytic.FreeResponse(1, 2, 1, 0)
			for t := 0.05; t < 60; t += 0.05 {
				Expect(sol.Displacement(t)).To(BeNumerically(">", 0), "t=%g", t)
			}
		})

		It("supports general initial conditions", func() {
			sol, _ := analytic.FreeResponse(3, 1.5, -0.4, 2)
			Expect(sol.Displacement(0)).To(BeNumerically("~", -0.4, 1e-12))
			Expect(sol.Velocity(0)).To(BeNumerically("~", 2, 1e-12))
		})
	})

	Context("undamped resonance", func() {
		It("uses the secular particular solution", func() {
			p := resonance.WithZeta(0)
			sol, err := analytic.New(p, 0, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(sol.Resonant()).To(BeTrue())
			Expect(math.IsInf(sol.Amplitude(), 1)).To(BeTrue())
			Expect(sol.Displacement(0)).To(BeNumerically("~", 0, 1e-12))
			Expect(sol.Velocity(0)).To(BeNumerically("~", 0, 1e-12))

			wn := p.NaturalFrequency()
			g := p.Force / (2 * p.Mass * wn)
			period := 2 * math.Pi / wn
			for k := 1; k <= 5; k++ {
				t := float64(k) * period
				Expect(math.Abs(sol.Displacement(t + period/2))).To(BeNumerically("~", g*(t+period/2), 1e-9))
			}
		})
	})

	It("evaluates a series on a grid", func() {
		sol, _ := analytic.New(resonance, 0, 0)
		times := []float64{0, 0.5, 1}
		xs := sol.Series(times)
		Expect(xs).To(HaveLen(3))
		Expect(xs[2]).To(Equal(sol.Displacement(1)))
	})

	It("rejects invalid parameters", func() {
		p := resonance
		p.Mass = 0
		_, err := analytic.New(p, 0, 0)
		Expect(errors.Is(err, dynamo.ErrInvalidParameter)).To(BeTrue())
	})
})
