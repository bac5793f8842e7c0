package analysis

import (
	"context"
	"math"

	"github.com/san-kum/bridgesim/internal/analytic"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/integrators"
	"github.com/san-kum/bridgesim/internal/physics"
)

func DefaultZetas() []float64 { return []float64{0, 0.05, 0.5, 2} }

type DampingConfig struct {
	Zetas       []float64 `yaml:"zetas" json:"zetas" mapstructure:"zetas"`
	Dt          float64   `yaml:"dt" json:"dt" mapstructure:"dt"`
	Duration    float64   `yaml:"duration" json:"duration" mapstructure:"duration"`
	Tail        float64   `yaml:"tail" json:"tail" mapstructure:"tail"`
	SampleTimes []float64 `yaml:"sample_times" json:"sample_times" mapstructure:"sample_times"`
	Workers     int       `yaml:"workers" json:"workers" mapstructure:"workers"`
}

func DefaultDampingConfig() DampingConfig {
	return DampingConfig{
		Zetas:       DefaultZetas(),
		Dt:          0.005,
		Duration:    60,
		Tail:        DefaultTail,
		SampleTimes: []float64{0, 10, 20, 30, 40, 50, 60},
	}
}

// DampingRun is one damping ratio of a study. Theoretical is zero when the
// damping admits no steady state.
type DampingRun struct {
	Zeta        float64             `json:"zeta"`
	Regime      analytic.Regime     `json:"regime"`
	Theoretical float64             `json:"theoretical"`
	Peak        float64             `json:"peak"`
	Envelope    []float64           `json:"envelope"`
	LogEnvelope []float64           `json:"log_envelope"`
	Instability *dynamo.Instability `json:"instability,omitempty"`
	Series      *dynamo.TimeSeries  `json:"-"`
}

// DampingStudy runs the forced oscillator from rest once per damping ratio.
func DampingStudy(ctx context.Context, p physics.Params, cfg DampingConfig) ([]DampingRun, error) {
	if len(cfg.Zetas) == 0 {
		cfg.Zetas = DefaultZetas()
	}
	if cfg.Tail == 0 {
		cfg.Tail = DefaultTail
	}

	jobs := make([]dynamo.Job, len(cfg.Zetas))
	for i, z := range cfg.Zetas {
		sys, err := physics.NewSDOF(p.WithZeta(z))
		if err != nil {
			return nil, err
		}
		jobs[i] = dynamo.Job{
			System: sys,
			X0:     dynamo.State{0, 0},
			Config: dynamo.Config{Dt: cfg.Dt, Duration: cfg.Duration, DivergenceLimit: dynamo.DefaultDivergenceLimit},
		}
	}
	runs, err := dynamo.NewEnsemble(func() dynamo.Integrator { return integrators.NewRK4() }, cfg.Workers).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	out := make([]DampingRun, len(runs))
	for i, ts := range runs {
		z := cfg.Zetas[i]
		x := ts.Displacement(0)
		theo, _ := analytic.SteadyAmplitude(p.WithZeta(z), p.Omega)
		if math.IsInf(theo, 0) {
			theo = 0
		}
		env := Envelope(ts, 0, cfg.SampleTimes)
		out[i] = DampingRun{
			Zeta:        z,
			Regime:      analytic.Classify(z),
			Theoretical: math.Abs(theo),
			Peak:        TailPeak(x, cfg.Tail),
			Envelope:    env,
			LogEnvelope: logSafe(env),
			Instability: ts.Instability,
			Series:      ts,
		}
	}
	return out, nil
}

// logSafe takes the natural log, mapping non-positive values to the log of
// DefaultFloor.
func logSafe(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = math.Log(math.Max(x, DefaultFloor))
	}
	return out
}
