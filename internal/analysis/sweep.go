package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"
	"runtime"

	"github.com/san-kum/bridgesim/internal/analytic"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/integrators"
	"github.com/san-kum/bridgesim/internal/physics"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultTail = 0.2
	// UndefinedBelow is the theoretical amplitude under which a relative
	// error is not reported.
	UndefinedBelow = 1e-12
)

var ErrEmptyFrequencies = fmt.Errorf("analysis: empty frequency list: %w", dynamo.ErrInvalidParameter)

type SweepConfig struct {
	Frequencies []float64 `yaml:"frequencies" json:"frequencies" mapstructure:"frequencies"`
	// Ratios marks Frequencies as multiples of the natural frequency.
	Ratios bool `yaml:"ratios" json:"ratios" mapstructure:"ratios"`
	// Hertz marks Frequencies as cycles per second. Ignored with Ratios.
	Hertz           bool    `yaml:"hertz" json:"hertz" mapstructure:"hertz"`
	Dt              float64 `yaml:"dt" json:"dt" mapstructure:"dt"`
	Duration        float64 `yaml:"duration" json:"duration" mapstructure:"duration"`
	Tail            float64 `yaml:"tail" json:"tail" mapstructure:"tail"`
	Workers         int     `yaml:"workers" json:"workers" mapstructure:"workers"`
	DivergenceLimit float64 `yaml:"divergence_limit" json:"divergence_limit" mapstructure:"divergence_limit"`

	NewIntegrator func() dynamo.Integrator `yaml:"-" json:"-" mapstructure:"-"`
}

func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Frequencies:     RatioGrid(0.5, 1.5, 11),
		Ratios:          true,
		Dt:              0.005,
		Duration:        60,
		Tail:            DefaultTail,
		DivergenceLimit: dynamo.DefaultDivergenceLimit,
	}
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.Tail == 0 {
		c.Tail = DefaultTail
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.DivergenceLimit == 0 {
		c.DivergenceLimit = dynamo.DefaultDivergenceLimit
	}
	if c.NewIntegrator == nil {
		c.NewIntegrator = func() dynamo.Integrator { return integrators.NewRK4() }
	}
	return c
}

func (c SweepConfig) Validate() error {
	if len(c.Frequencies) == 0 {
		return ErrEmptyFrequencies
	}
	for _, f := range c.Frequencies {
		if !(f > 0) || math.IsInf(f, 0) {
			return dynamo.InvalidParam("frequency", f, "must be positive and finite")
		}
	}
	if !(c.Dt > 0) {
		return dynamo.InvalidParam("dt", c.Dt, "must be positive")
	}
	if !(c.Duration > 0) {
		return dynamo.InvalidParam("duration", c.Duration, "must be positive")
	}
	if c.Tail < 0 || c.Tail > 1 || math.IsNaN(c.Tail) {
		return dynamo.InvalidParam("tail", c.Tail, "must be in (0, 1]")
	}
	return nil
}

// Omegas resolves the configured frequencies to rad/s.
func (c SweepConfig) Omegas(wn float64) []float64 {
	out := make([]float64, len(c.Frequencies))
	for i, f := range c.Frequencies {
		switch {
		case c.Ratios:
			f *= wn
		case c.Hertz:
			f *= 2 * math.Pi
		}
		out[i] = f
	}
	return out
}

type SweepResult struct {
	Frequency     float64 `json:"frequency"`
	Ratio         float64 `json:"ratio"`
	Theoretical   float64 `json:"theoretical"`
	Numerical     float64 `json:"numerical"`
	RelativeError float64 `json:"relative_error"`
	// Undefined is set when the relative error could not be formed.
	Undefined bool `json:"undefined,omitempty"`
	// NoSteadyState marks undamped resonance; Theoretical is then zero.
	NoSteadyState bool                `json:"no_steady_state,omitempty"`
	Unstable      bool                `json:"unstable,omitempty"`
	Instability   *dynamo.Instability `json:"instability,omitempty"`
}

// SweepCase is one frequency point: the model to integrate, its initial
// state, the observed DOF and its theoretical amplitude.
type SweepCase struct {
	System      dynamo.System
	X0          dynamo.State
	DOF         int
	Theoretical float64
	// NoSteadyState is set when Theoretical is unbounded.
	NoSteadyState bool
}

// Sweep integrates one case per frequency in parallel. build is called
// sequentially before any run starts.
func Sweep(ctx context.Context, cfg SweepConfig, omegas []float64, wn float64, build func(omega float64) (SweepCase, error)) ([]SweepResult, error) {
	cfg = cfg.withDefaults()
	if len(omegas) == 0 {
		return nil, ErrEmptyFrequencies
	}

	cases := make([]SweepCase, len(omegas))
	for i, w := range omegas {
		c, err := build(w)
		if err != nil {
			return nil, fmt.Errorf("sweep Ω=%g: %w", w, err)
		}
		cases[i] = c
	}

	runCfg := dynamo.Config{
		Dt:              cfg.Dt,
		Duration:        cfg.Duration,
		DivergenceLimit: cfg.DivergenceLimit,
		ValidateState:   true,
	}
	results := make([]SweepResult, len(omegas))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)
	for i := range cases {
		g.Go(func() error {
			c := cases[i]
			ts, err := dynamo.New(c.System, cfg.NewIntegrator()).Run(gctx, c.X0, runCfg)
			if err != nil {
				return fmt.Errorf("sweep Ω=%g: %w", omegas[i], err)
			}
			results[i] = newSweepResult(omegas[i], wn, c, ts, cfg.Tail)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func newSweepResult(omega, wn float64, c SweepCase, ts *dynamo.TimeSeries, tail float64) SweepResult {
	r := SweepResult{
		Frequency:     omega,
		Ratio:         omega / wn,
		Theoretical:   c.Theoretical,
		NoSteadyState: c.NoSteadyState,
	}
	if c.NoSteadyState {
		r.Theoretical = 0
	}
	if ts.Unstable() {
		r.Unstable = true
		r.Undefined = true
		r.Instability = ts.Instability
		return r
	}
	r.Numerical = TailPeak(ts.Displacement(c.DOF), tail)
	if c.NoSteadyState {
		r.Undefined = true
		return r
	}
	r.RelativeError, r.Undefined = RelativeError(r.Numerical, r.Theoretical)
	return r
}

// SweepSDOF sweeps the forcing frequency of a single oscillator from rest.
func SweepSDOF(ctx context.Context, p physics.Params, cfg SweepConfig) ([]SweepResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	wn := p.NaturalFrequency()
	return Sweep(ctx, cfg, cfg.Omegas(wn), wn, func(omega float64) (SweepCase, error) {
		q := p.WithOmega(omega)
		sys, err := physics.NewSDOF(q)
		if err != nil {
			return SweepCase{}, err
		}
		x, err := analytic.SteadyAmplitude(q, omega)
		return SweepCase{
			System:        sys,
			X0:            dynamo.State{0, 0},
			Theoretical:   math.Abs(x),
			NoSteadyState: errors.Is(err, analytic.ErrNoSteadyState),
		}, nil
	})
}

// SweepDeck sweeps the deck from rest and observes one corner. The
// theoretical amplitude is that of a single anchored corner.
func SweepDeck(ctx context.Context, p physics.DeckParams, mode physics.ForcingMode, corner int, cfg SweepConfig) ([]SweepResult, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if corner < 0 || corner >= physics.Corners {
		return nil, dynamo.InvalidParam("corner", float64(corner), "must be 0..3")
	}
	wn := p.Corner().NaturalFrequency()
	return Sweep(ctx, cfg, cfg.Omegas(wn), wn, func(omega float64) (SweepCase, error) {
		q := p.WithOmega(omega)
		sys, err := physics.NewDeckMode(q, mode)
		if err != nil {
			return SweepCase{}, err
		}
		return SweepCase{
			System:      sys,
			X0:          make(dynamo.State, 2*physics.Corners),
			DOF:         corner,
			Theoretical: DeckAmplitude(q, omega),
		}, nil
	})
}

// DeckAmplitude is F0 / √((k0 − mΩ²)² + (c0Ω)²).
func DeckAmplitude(p physics.DeckParams, omega float64) float64 {
	re := p.AnchorStiffness - p.Mass*omega*omega
	im := p.AnchorDamping * omega
	return math.Abs(p.Force) / math.Hypot(re, im)
}

// TailPeak returns max |x| over the final fraction of xs.
func TailPeak(xs []float64, tail float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	start := int(float64(len(xs)) * (1 - tail))
	if start >= len(xs) {
		start = len(xs) - 1
	}
	if start < 0 {
		start = 0
	}
	var peak float64
	for _, x := range xs[start:] {
		if a := math.Abs(x); a > peak {
			peak = a
		}
	}
	return peak
}

// RelativeError returns (num − theo)/theo. The second result is true
// when theo is too small or not finite, in which case the error is zero.
func RelativeError(num, theo float64) (float64, bool) {
	if math.Abs(theo) < UndefinedBelow || math.IsInf(theo, 0) || math.IsNaN(theo) {
		return 0, true
	}
	return (num - theo) / theo, false
}

// RatioGrid returns n evenly spaced frequency ratios in [lo, hi].
func RatioGrid(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
