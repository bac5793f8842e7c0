package analysis

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/bridgesim/internal/analytic"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/integrators"
	"github.com/san-kum/bridgesim/internal/physics"
)

type ConvergencePoint struct {
	Dt       float64 `json:"dt"`
	MaxError float64 `json:"max_error"`
	// Ratio and Order compare with the previous step size; both are zero
	// for the first entry.
	Ratio float64 `json:"ratio"`
	Order float64 `json:"order"`
}

// DefaultSteps halve from 0.04 s.
func DefaultSteps() []float64 {
	return []float64{0.04, 0.02, 0.01, 0.005}
}

// Convergence measures the maximum pointwise displacement error against
// the closed-form solution for each step size over the same duration.
func Convergence(ctx context.Context, p physics.Params, x0, v0 float64, steps []float64, duration float64, newIntegrator func() dynamo.Integrator) ([]ConvergencePoint, error) {
	if len(steps) == 0 {
		return nil, dynamo.InvalidParam("steps", 0, "need at least one step size")
	}
	sol, err := analytic.New(p, x0, v0)
	if err != nil {
		return nil, err
	}
	sys, err := physics.NewSDOF(p)
	if err != nil {
		return nil, err
	}
	if newIntegrator == nil {
		newIntegrator = func() dynamo.Integrator { return integrators.NewRK4() }
	}

	jobs := make([]dynamo.Job, len(steps))
	for i, h := range steps {
		jobs[i] = dynamo.Job{
			System: sys,
			X0:     dynamo.State{x0, v0},
			Config: dynamo.Config{Dt: h, Duration: duration, DivergenceLimit: dynamo.DefaultDivergenceLimit},
		}
	}
	runs, err := dynamo.NewEnsemble(newIntegrator, 0).Run(ctx, jobs)
	if err != nil {
		return nil, err
	}

	out := make([]ConvergencePoint, len(steps))
	for i, ts := range runs {
		if ts.Unstable() {
			return nil, fmt.Errorf("convergence dt=%g: %w (%s)", steps[i], dynamo.ErrUnstable, ts.Instability)
		}
		var maxErr float64
		for k, t := range ts.Times {
			maxErr = math.Max(maxErr, math.Abs(ts.States[k][0]-sol.Displacement(t)))
		}
		out[i] = ConvergencePoint{Dt: steps[i], MaxError: maxErr}
		if i > 0 && maxErr > 0 {
			prev := out[i-1]
			out[i].Ratio = prev.MaxError / maxErr
			out[i].Order = math.Log(out[i].Ratio) / math.Log(prev.Dt/steps[i])
		}
	}
	return out, nil
}
