package dynamo

import (
	"context"
	"fmt"
	"math"
)

type Simulator struct {
	sys        System
	integrator Integrator
	metrics    []Metric
	observers  []Observer
}

func New(sys System, integrator Integrator) *Simulator {
	return &Simulator{
		sys:        sys,
		integrator: integrator,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) System() System { return s.sys }

// Run integrates from x0 at t=0 and returns N+1 samples. A run that leaves the
// divergence bound stops early and is annotated through TimeSeries.Instability;
// it is not an error. Cancellation returns the partial series and ErrCanceled.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*TimeSeries, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}

	steps := cfg.StepCount()
	limit := cfg.limit()
	dt := cfg.Dt
	series := newTimeSeries(dt, steps+1)

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	series.append(0, x)
	s.observe(x, 0)

	initialEnergy := s.energy(x)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.finish(series, x, initialEnergy)
			return series, fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		default:
		}

		t := float64(i) * dt
		next := s.integrator.Step(s.sys, x, t, dt)

		if reason := divergence(next, limit); reason != "" {
			series.Instability = &Instability{Step: i + 1, Time: float64(i+1) * dt, Reason: reason}
			break
		}

		x = next
		tn := float64(i+1) * dt
		series.StepsTaken++
		series.append(tn, x)
		s.observe(x, tn)
	}

	s.finish(series, x, initialEnergy)
	return series, nil
}

func (s *Simulator) validate(x0 State, cfg Config) error {
	if !(cfg.Dt > 0) {
		return InvalidParam("dt", cfg.Dt, "must be positive")
	}
	if cfg.Steps < 0 {
		return InvalidParam("steps", float64(cfg.Steps), "must not be negative")
	}
	if cfg.Steps == 0 && !(cfg.Duration > 0) {
		return InvalidParam("duration", cfg.Duration, "must be positive when steps is unset")
	}
	if cfg.Steps > MaxSteps {
		return InvalidParam("steps", float64(cfg.Steps), fmt.Sprintf("must not exceed %d", MaxSteps))
	}
	if n := cfg.Duration / cfg.Dt; cfg.Steps == 0 && !(n <= MaxSteps) {
		return InvalidParam("duration", cfg.Duration, fmt.Sprintf("duration/dt = %.3g exceeds %d steps", n, MaxSteps))
	}
	if len(x0) == 0 || len(x0)%2 != 0 {
		return fmt.Errorf("%w: state length %d is not a positive even number", ErrDimensionMismatch, len(x0))
	}
	if len(x0) != s.sys.StateDim() {
		return fmt.Errorf("%w: state length %d, system expects %d", ErrDimensionMismatch, len(x0), s.sys.StateDim())
	}
	if cfg.ValidateState && !x0.IsValid() {
		return InvalidParam("x0", math.NaN(), "initial state contains NaN or Inf")
	}
	return nil
}

func divergence(x State, limit float64) string {
	if !x.IsValid() {
		return "invalid state (NaN/Inf)"
	}
	if m := x.MaxAbs(); m > limit {
		return fmt.Sprintf("|state| %.3g exceeds bound %.3g", m, limit)
	}
	return ""
}

func (s *Simulator) observe(x State, t float64) {
	for _, m := range s.metrics {
		m.Observe(x, t)
	}
	for _, obs := range s.observers {
		obs.OnStep(x, t)
	}
}

func (s *Simulator) finish(series *TimeSeries, x State, initialEnergy float64) {
	if initialEnergy != 0 {
		series.EnergyDrift = math.Abs(s.energy(x)-initialEnergy) / math.Abs(initialEnergy)
	}
	for _, m := range s.metrics {
		series.Metrics[m.Name()] = m.Value()
	}
}

func (s *Simulator) energy(x State) float64 {
	if h, ok := s.sys.(Hamiltonian); ok {
		return h.Energy(x)
	}
	return 0
}

// RunWithCallback steps until the callback returns false, the duration is
// reached, or ctx is done. Used by live views that consume states as they come.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 State, cfg Config, callback func(State, float64) bool) error {
	if err := s.validate(x0, cfg); err != nil {
		return err
	}

	x := x0.Clone()
	limit := cfg.limit()
	steps := cfg.StepCount()

	for i := 0; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %w", ErrCanceled, ctx.Err())
		default:
		}

		t := float64(i) * cfg.Dt
		if !callback(x, t) || i == steps {
			return nil
		}

		x = s.integrator.Step(s.sys, x, t, cfg.Dt)
		if reason := divergence(x, limit); reason != "" {
			return &SimulationError{Step: i + 1, Time: t + cfg.Dt, State: x, Wrapped: fmt.Errorf("%w: %s", ErrUnstable, reason)}
		}
	}

	return nil
}
