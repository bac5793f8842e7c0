package analysis

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/bridgesim/internal/analytic"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/integrators"
	"github.com/san-kum/bridgesim/internal/physics"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DefaultFloor keeps relative errors finite where the reference crosses zero.
const DefaultFloor = 1e-10

var ErrGridMismatch = errors.New("analysis: series are not on the same time grid")

// ErrorRecord compares one sample. RelativeError is in percent.
type ErrorRecord struct {
	Time          float64 `json:"time"`
	Analytical    float64 `json:"analytical"`
	Numeric       float64 `json:"numeric"`
	AbsoluteError float64 `json:"absolute_error"`
	RelativeError float64 `json:"relative_error"`
}

type Summary struct {
	Count   int     `json:"count"`
	MaxAbs  float64 `json:"max_abs"`
	MeanAbs float64 `json:"mean_abs"`
	RMS     float64 `json:"rms"`
	MaxRel  float64 `json:"max_rel"`
	// PeakNumeric and PeakAnalytical are max |x| over the window.
	PeakNumeric    float64 `json:"peak_numeric"`
	PeakAnalytical float64 `json:"peak_analytical"`
}

// CompareSeries pairs numeric and reference values on a shared grid and
// keeps samples with time >= threshold. A non-positive floor means
// DefaultFloor.
func CompareSeries(times, numeric, reference []float64, threshold, floor float64) ([]ErrorRecord, error) {
	if len(numeric) != len(times) || len(reference) != len(times) {
		return nil, fmt.Errorf("%w: %d times, %d numeric, %d reference", ErrGridMismatch, len(times), len(numeric), len(reference))
	}
	if floor <= 0 {
		floor = DefaultFloor
	}

	cut := threshold - 1e-12*math.Max(1, math.Abs(threshold))
	var out []ErrorRecord
	for i, t := range times {
		if t < cut {
			continue
		}
		abs := math.Abs(numeric[i] - reference[i])
		out = append(out, ErrorRecord{
			Time:          t,
			Analytical:    reference[i],
			Numeric:       numeric[i],
			AbsoluteError: abs,
			RelativeError: abs / math.Max(math.Abs(reference[i]), floor) * 100,
		})
	}
	return out, nil
}

// CompareTimeSeries compares the displacement of one DOF across two runs,
// which must share Dt and sample times.
func CompareTimeSeries(numeric, reference *dynamo.TimeSeries, dof int, threshold float64) ([]ErrorRecord, error) {
	if numeric.Len() != reference.Len() || numeric.Dt != reference.Dt {
		return nil, fmt.Errorf("%w: %d samples at dt=%g vs %d at dt=%g",
			ErrGridMismatch, numeric.Len(), numeric.Dt, reference.Len(), reference.Dt)
	}
	if !floats.EqualApprox(numeric.Times, reference.Times, 1e-12) {
		return nil, ErrGridMismatch
	}
	return CompareSeries(numeric.Times, numeric.Displacement(dof), reference.Displacement(dof), threshold, DefaultFloor)
}

func Summarize(records []ErrorRecord) Summary {
	s := Summary{Count: len(records)}
	if len(records) == 0 {
		return s
	}
	abs := make([]float64, len(records))
	var sq float64
	for i, r := range records {
		abs[i] = r.AbsoluteError
		sq += r.AbsoluteError * r.AbsoluteError
		s.MaxRel = math.Max(s.MaxRel, r.RelativeError)
		s.PeakNumeric = math.Max(s.PeakNumeric, math.Abs(r.Numeric))
		s.PeakAnalytical = math.Max(s.PeakAnalytical, math.Abs(r.Analytical))
	}
	s.MaxAbs = floats.Max(abs)
	s.MeanAbs = stat.Mean(abs, nil)
	s.RMS = math.Sqrt(sq / float64(len(records)))
	return s
}

type ValidationConfig struct {
	Dt        float64 `yaml:"dt" json:"dt" mapstructure:"dt"`
	Duration  float64 `yaml:"duration" json:"duration" mapstructure:"duration"`
	Threshold float64 `yaml:"threshold" json:"threshold" mapstructure:"threshold"`
	Floor     float64 `yaml:"floor" json:"floor" mapstructure:"floor"`

	NewIntegrator func() dynamo.Integrator `yaml:"-" json:"-" mapstructure:"-"`
}

func DefaultValidationConfig() ValidationConfig {
	return ValidationConfig{Dt: 0.005, Duration: 20, Threshold: 10, Floor: DefaultFloor}
}

type Validation struct {
	Regime      analytic.Regime     `json:"regime"`
	Amplitude   float64             `json:"amplitude"`
	Records     []ErrorRecord       `json:"records"`
	Summary     Summary             `json:"summary"`
	Instability *dynamo.Instability `json:"instability,omitempty"`
	// Series holds the full numeric run.
	Series *dynamo.TimeSeries `json:"-"`
}

// Validate integrates the oscillator and compares it with the closed-form
// solution from the same initial conditions.
func Validate(ctx context.Context, p physics.Params, x0, v0 float64, cfg ValidationConfig) (*Validation, error) {
	sol, err := analytic.New(p, x0, v0)
	if err != nil {
		return nil, err
	}
	sys, err := physics.NewSDOF(p)
	if err != nil {
		return nil, err
	}
	newInteg := cfg.NewIntegrator
	if newInteg == nil {
		newInteg = func() dynamo.Integrator { return integrators.NewRK4() }
	}

	ts, err := dynamo.New(sys, newInteg()).Run(ctx, dynamo.State{x0, v0}, dynamo.Config{
		Dt:              cfg.Dt,
		Duration:        cfg.Duration,
		DivergenceLimit: dynamo.DefaultDivergenceLimit,
		ValidateState:   true,
	})
	if err != nil {
		return nil, err
	}

	records, err := CompareSeries(ts.Times, ts.Displacement(0), sol.Series(ts.Times), cfg.Threshold, cfg.Floor)
	if err != nil {
		return nil, err
	}
	amp := sol.Amplitude()
	if math.IsInf(amp, 0) {
		amp = 0
	}
	return &Validation{
		Regime:      sol.Regime(),
		Amplitude:   amp,
		Records:     records,
		Summary:     Summarize(records),
		Instability: ts.Instability,
		Series:      ts,
	}, nil
}
