package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/bridgesim/internal/config"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/integrators"
	"github.com/san-kum/bridgesim/internal/metrics"
	"github.com/san-kum/bridgesim/internal/physics"
)

type ModelFactory func(cfg *config.Config) (dynamo.System, error)

type Registry struct {
	models map[string]ModelFactory
}

func NewRegistry() *Registry {
	r := &Registry{models: make(map[string]ModelFactory)}

	r.models[config.ModelSDOF] = func(cfg *config.Config) (dynamo.System, error) {
		return physics.NewSDOF(cfg.SDOF)
	}
	r.models[config.ModelDeck] = func(cfg *config.Config) (dynamo.System, error) {
		mode, err := cfg.ForcingMode()
		if err != nil {
			return nil, err
		}
		return physics.NewDeckMode(cfg.Deck, mode)
	}
	return r
}

func (r *Registry) Register(name string, fn ModelFactory) {
	r.models[name] = fn
}

func (r *Registry) GetModel(cfg *config.Config) (dynamo.System, error) {
	fn, ok := r.models[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", cfg.Model)
	}
	return fn(cfg)
}

func (r *Registry) GetIntegrator(name string) (dynamo.Integrator, error) {
	return integrators.ByName(name)
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DefaultMetrics observes energy, the time spent over the serviceability
// deflection limit and the steady-state peak of the reported DOF.
func (r *Registry) DefaultMetrics(cfg *config.Config, sys dynamo.System) []dynamo.Metric {
	dof := 0
	if cfg.Model == config.ModelDeck {
		dof = cfg.Corner
	}
	out := []dynamo.Metric{
		metrics.NewExceedance(metrics.DefaultDeflectionLimit),
		metrics.NewPeakDisplacement(dof, cfg.Duration/2),
	}
	if h, ok := sys.(dynamo.Hamiltonian); ok {
		out = append(out, metrics.NewEnergy(h))
	}
	return out
}
