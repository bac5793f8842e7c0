package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/bridgesim/internal/config"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/logging"
	"github.com/san-kum/bridgesim/internal/physics"
)

// Recorder receives one event per finished run.
type Recorder interface {
	ObserveRun(model string, series *dynamo.TimeSeries, elapsed time.Duration, err error)
}

type Option func(*Experiment)

func WithLogger(log *slog.Logger) Option {
	return func(e *Experiment) { e.log = log }
}

func WithRecorder(rec Recorder) Option {
	return func(e *Experiment) { e.rec = rec }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

type Experiment struct {
	cfg       *config.Config
	sys       dynamo.System
	simulator *dynamo.Simulator
	registry  *Registry
	log       *slog.Logger
	rec       Recorder
	modal     *physics.ModalAnalysis
}

type Result struct {
	Series *dynamo.TimeSeries
	Params map[string]float64
	// Modal is nil for models without a constant system matrix.
	Modal   *physics.ModalAnalysis
	Elapsed time.Duration
}

// New validates cfg and builds the model, integrator and default metrics.
func New(cfg *config.Config, opts ...Option) (*Experiment, error) {
	e := &Experiment{cfg: cfg}
	for _, o := range opts {
		o(e)
	}
	if e.log == nil {
		e.log = logging.NewNop()
	}
	if e.registry == nil {
		e.registry = NewRegistry()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sys, err := e.registry.GetModel(cfg)
	if err != nil {
		return nil, err
	}
	integ, err := e.registry.GetIntegrator(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	e.sys = sys
	e.simulator = dynamo.New(sys, integ)
	for _, m := range e.registry.DefaultMetrics(cfg, sys) {
		e.simulator.AddMetric(m)
	}

	e.checkStep()
	return e, nil
}

func (e *Experiment) checkStep() {
	lin, ok := e.sys.(physics.Linear)
	if !ok {
		return
	}
	modal, err := physics.Modes(lin)
	if err != nil {
		e.log.Warn("modal analysis failed", "error", err)
		return
	}
	e.modal = modal
	if !modal.StepStable(e.cfg.Dt) {
		e.log.Warn("step exceeds RK4 stability estimate",
			"dt", e.cfg.Dt,
			"max_stable_dt", modal.MaxStableStep(),
			"spectral_radius", modal.SpectralRadius)
	}
}

func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	x0 := e.cfg.GetInitState()
	attrs := []any{
		"model", e.cfg.Model,
		"integrator", e.cfg.Integrator,
		"dt", e.cfg.Dt,
		"duration", e.cfg.Duration,
	}
	if d, ok := e.sys.(*physics.Deck); ok {
		attrs = append(attrs, "forced", d.ForcedCorners())
	}
	e.log.Debug("run starting", attrs...)

	start := time.Now()
	series, err := e.simulator.Run(ctx, x0, e.cfg.RunConfig())
	elapsed := time.Since(start)
	if e.rec != nil {
		e.rec.ObserveRun(e.cfg.Model, series, elapsed, err)
	}
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", e.cfg.Model, err)
	}

	if series.Unstable() {
		e.log.Warn("run diverged", "model", e.cfg.Model, "instability", series.Instability.String())
	} else {
		e.log.Info("run finished", "model", e.cfg.Model, "steps", series.StepsTaken, "elapsed", elapsed)
	}

	res := &Result{Series: series, Modal: e.modal, Elapsed: elapsed}
	if d, ok := e.sys.(dynamo.Describer); ok {
		res.Params = d.Params()
	}
	return res, nil
}

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *dynamo.Simulator {
	return e.simulator
}

func (e *Experiment) System() dynamo.System { return e.sys }

func (e *Experiment) Config() *config.Config { return e.cfg }
