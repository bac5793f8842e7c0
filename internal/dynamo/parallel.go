package dynamo

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Job is one independent run of an Ensemble.
type Job struct {
	System System
	X0     State
	Config Config
}

// Ensemble runs independent jobs concurrently. Each job gets its own
// Integrator from the factory, so no scratch state is shared.
type Ensemble struct {
	newIntegrator func() Integrator
	workers       int
}

func NewEnsemble(newIntegrator func() Integrator, workers int) *Ensemble {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Ensemble{newIntegrator: newIntegrator, workers: workers}
}

// Run returns one series per job, in job order. The first failing job
// cancels the rest.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]*TimeSeries, error) {
	results := make([]*TimeSeries, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, job := range jobs {
		g.Go(func() error {
			sim := New(job.System, e.newIntegrator())
			series, err := sim.Run(ctx, job.X0, job.Config)
			if err != nil {
				return err
			}
			results[i] = series
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// ParallelFor executes fn over [0, n) split into contiguous chunks of at
// least minChunk indices and returns the first error a chunk reports.
func ParallelFor(n, minChunk int, fn func(start, end int) error) error {
	if n <= 0 {
		return nil
	}
	numWorkers := runtime.GOMAXPROCS(0)
	if minChunk < 1 {
		minChunk = 1
	}
	if n <= minChunk || numWorkers <= 1 {
		return fn(0, n)
	}

	workers := min(numWorkers, n/minChunk)
	if workers < 1 {
		workers = 1
	}
	chunkSize := (n + workers - 1) / workers

	var g errgroup.Group
	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		g.Go(func() error {
			return fn(start, end)
		})
	}
	return g.Wait()
}
