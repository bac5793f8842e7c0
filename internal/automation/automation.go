// Package automation runs scripted sequences of simulations and studies
// described in YAML.
package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/san-kum/bridgesim/internal/analysis"
	"github.com/san-kum/bridgesim/internal/config"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/experiment"
	"github.com/san-kum/bridgesim/internal/logging"
	"github.com/san-kum/bridgesim/internal/storage"
	"gopkg.in/yaml.v3"
)

const (
	ActionRun      = "run"
	ActionSweep    = "sweep"
	ActionValidate = "validate"
	ActionConverge = "converge"
	ActionDamping  = "damping"
	ActionVary     = "vary"
)

var ErrUnknownAction = errors.New("automation: unknown action")

// Scenario defines a scripted sequence of studies.
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one study. Model, Preset and Set select its
// configuration as config.Resolve does.
type ScenarioStep struct {
	Name   string            `yaml:"name"`
	Action string            `yaml:"action"`
	Model  string            `yaml:"model"`
	Preset string            `yaml:"preset"`
	Set    map[string]string `yaml:"set"`
	// Vary is the dotted key changed between runs of a vary step.
	Vary   string    `yaml:"vary"`
	Values []float64 `yaml:"values"`
	Save   bool      `yaml:"save"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	return &scenario, nil
}

// StepResult holds the output of one step; only the field matching the
// action is set.
type StepResult struct {
	Name        string
	Action      string
	Config      *config.Config
	Run         *experiment.Result
	Sweep       []analysis.SweepResult
	Validation  *analysis.Validation
	Convergence []analysis.ConvergencePoint
	Damping     []analysis.DampingRun
	Vary        []VaryPoint
	// RunID is set when the step was saved.
	RunID string
}

// VaryPoint is one run of a vary step.
type VaryPoint struct {
	Value       float64
	Peak        []float64
	Instability *dynamo.Instability
}

type Runner struct {
	log      *slog.Logger
	store    *storage.Store
	recorder experiment.Recorder
}

type Option func(*Runner)

func WithLogger(log *slog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// WithStore saves the output of steps marked save.
func WithStore(s *storage.Store) Option {
	return func(r *Runner) { r.store = s }
}

func WithRecorder(rec experiment.Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, o := range opts {
		o(r)
	}
	if r.log == nil {
		r.log = logging.NewNop()
	}
	return r
}

// Run executes the steps in order and stops at the first failure,
// returning the results gathered so far.
func (r *Runner) Run(ctx context.Context, sc *Scenario) ([]StepResult, error) {
	results := make([]StepResult, 0, len(sc.Steps))
	for i, step := range sc.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step %d", i+1)
		}
		r.log.Info("scenario step", "scenario", sc.Name, "step", name, "action", step.Action, "index", i+1, "of", len(sc.Steps))

		res, err := r.runStep(ctx, step)
		if err != nil {
			return results, fmt.Errorf("%s: %w", name, err)
		}
		res.Name = name
		results = append(results, *res)
	}
	return results, nil
}

func (r *Runner) runStep(ctx context.Context, step ScenarioStep) (*StepResult, error) {
	cfg, err := config.Resolve(step.Model, step.Preset, step.Set)
	if err != nil {
		return nil, err
	}
	res := &StepResult{Action: step.Action, Config: cfg}
	meta := storage.RunMetadata{
		Model:      cfg.Model,
		Integrator: cfg.Integrator,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Forcing:    cfg.Forcing,
	}

	switch step.Action {
	case ActionRun, "":
		res.Action = ActionRun
		exp, err := experiment.New(cfg, experiment.WithLogger(r.log), experiment.WithRecorder(r.recorder))
		if err != nil {
			return nil, err
		}
		if res.Run, err = exp.Run(ctx); err != nil {
			return nil, err
		}
		if step.Save && r.store != nil {
			meta.Params = res.Run.Params
			res.RunID, err = r.store.Save(meta, res.Run.Series)
		}
		return res, err

	case ActionSweep:
		if res.Sweep, err = experiment.Sweep(ctx, cfg); err != nil {
			return nil, err
		}
		if step.Save && r.store != nil {
			meta.Dt, meta.Duration = cfg.Sweep.Dt, cfg.Sweep.Duration
			res.RunID, err = r.store.SaveSweep(meta, res.Sweep)
		}
		return res, err

	case ActionValidate:
		if res.Validation, err = experiment.Validate(ctx, cfg); err != nil {
			return nil, err
		}
		if step.Save && r.store != nil {
			meta.Dt, meta.Duration = cfg.Validation.Dt, cfg.Validation.Duration
			res.RunID, err = r.store.SaveValidation(meta, res.Validation)
		}
		return res, err

	case ActionConverge:
		res.Convergence, err = experiment.Converge(ctx, cfg, nil)
		return res, err

	case ActionDamping:
		res.Damping, err = experiment.Damping(ctx, cfg)
		return res, err

	case ActionVary:
		res.Vary, err = r.vary(ctx, step)
		return res, err
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownAction, step.Action)
}

// vary repeats a run once per value of step.Vary and records the peak
// displacement of every DOF.
func (r *Runner) vary(ctx context.Context, step ScenarioStep) ([]VaryPoint, error) {
	if step.Vary == "" || len(step.Values) == 0 {
		return nil, fmt.Errorf("vary step needs a key and values")
	}
	points := make([]VaryPoint, 0, len(step.Values))
	for _, v := range step.Values {
		set := make(map[string]string, len(step.Set)+1)
		for k, val := range step.Set {
			set[k] = val
		}
		set[step.Vary] = strconv.FormatFloat(v, 'g', -1, 64)

		cfg, err := config.Resolve(step.Model, step.Preset, set)
		if err != nil {
			return points, err
		}
		exp, err := experiment.New(cfg, experiment.WithLogger(r.log), experiment.WithRecorder(r.recorder))
		if err != nil {
			return points, err
		}
		run, err := exp.Run(ctx)
		if err != nil {
			return points, err
		}

		ts := run.Series
		p := VaryPoint{Value: v, Instability: ts.Instability, Peak: make([]float64, cfg.StateDim()/2)}
		for dof := range p.Peak {
			p.Peak[dof] = analysis.TailPeak(ts.Displacement(dof), 1)
		}
		points = append(points, p)
	}
	return points, nil
}
