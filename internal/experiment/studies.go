package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/bridgesim/internal/analysis"
	"github.com/san-kum/bridgesim/internal/config"
	"github.com/san-kum/bridgesim/internal/integrators"
	"github.com/san-kum/bridgesim/internal/physics"
)

// Sweep runs the frequency sweep configured in cfg.Sweep for the
// configured model. Deck sweeps observe cfg.Corner.
func Sweep(ctx context.Context, cfg *config.Config) ([]analysis.SweepResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	sc := cfg.Sweep
	if sc.DivergenceLimit == 0 {
		sc.DivergenceLimit = cfg.DivergenceLimit
	}
	fn, err := integrators.Factory(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	sc.NewIntegrator = fn

	switch cfg.Model {
	case config.ModelDeck:
		mode, err := cfg.ForcingMode()
		if err != nil {
			return nil, err
		}
		return analysis.SweepDeck(ctx, cfg.Deck, mode, cfg.Corner, sc)
	default:
		return analysis.SweepSDOF(ctx, cfg.SDOF, sc)
	}
}

// Validate compares a numeric SDOF run against the closed-form solution.
// The deck has no closed form, so its single-corner equivalent is used.
func Validate(ctx context.Context, cfg *config.Config) (*analysis.Validation, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	vc := cfg.Validation
	fn, err := integrators.Factory(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	vc.NewIntegrator = fn
	return analysis.Validate(ctx, StudyParams(cfg), cfg.InitState.Pos, cfg.InitState.Vel, vc)
}

// Converge runs the step-halving study on the SDOF parameters of cfg.
func Converge(ctx context.Context, cfg *config.Config, steps []float64) ([]analysis.ConvergencePoint, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	fn, err := integrators.Factory(cfg.Integrator)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		steps = analysis.DefaultSteps()
	}
	return analysis.Convergence(ctx, StudyParams(cfg), cfg.InitState.Pos, cfg.InitState.Vel, steps, cfg.Duration, fn)
}

func Damping(ctx context.Context, cfg *config.Config) ([]analysis.DampingRun, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return analysis.DampingStudy(ctx, StudyParams(cfg), cfg.Damping)
}

// StudyParams is the SDOF parameter set the closed-form studies use for cfg.
func StudyParams(cfg *config.Config) physics.Params {
	if cfg.Model == config.ModelDeck {
		return cfg.Deck.Corner()
	}
	return cfg.SDOF
}

// Describe returns a one-line summary of the configured model.
func Describe(cfg *config.Config) string {
	switch cfg.Model {
	case config.ModelDeck:
		p := cfg.Deck
		return fmt.Sprintf("deck m=%g k0=%g c0=%.4g kc=%g cc=%g F0=%g Ω=%.4g forcing=%s",
			p.Mass, p.AnchorStiffness, p.AnchorDamping, p.CouplingStiffness, p.CouplingDamping, p.Force, p.Omega, cfg.Forcing)
	default:
		p := cfg.SDOF
		return fmt.Sprintf("sdof m=%g k=%g ζ=%g F0=%g Ω=%.4g ωn=%.4g",
			p.Mass, p.Stiffness, p.Zeta, p.Force, p.Omega, p.NaturalFrequency())
	}
}
