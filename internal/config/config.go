package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/san-kum/bridgesim/internal/analysis"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/integrators"
	"github.com/san-kum/bridgesim/internal/physics"
	"gopkg.in/yaml.v3"
)

const (
	ModelSDOF = "sdof"
	ModelDeck = "deck"

	DefaultDt       = 0.005
	DefaultDuration = 20.0
)

type Config struct {
	Model           string  `yaml:"model" mapstructure:"model"`
	Integrator      string  `yaml:"integrator" mapstructure:"integrator"`
	Dt              float64 `yaml:"dt" mapstructure:"dt"`
	Duration        float64 `yaml:"duration" mapstructure:"duration"`
	DivergenceLimit float64 `yaml:"divergence_limit" mapstructure:"divergence_limit"`
	// Forcing is the deck load distribution, see physics.ForcingMode.
	Forcing string `yaml:"forcing" mapstructure:"forcing"`
	// Corner is the deck corner reported by sweeps and plots.
	Corner int `yaml:"corner" mapstructure:"corner"`

	InitState  InitStateConfig           `yaml:"init_state" mapstructure:"init_state"`
	SDOF       physics.Params            `yaml:"sdof" mapstructure:"sdof"`
	Deck       physics.DeckParams        `yaml:"deck" mapstructure:"deck"`
	Sweep      analysis.SweepConfig      `yaml:"sweep" mapstructure:"sweep"`
	Validation analysis.ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Damping    analysis.DampingConfig    `yaml:"damping" mapstructure:"damping"`
}

// InitStateConfig sets x0 and v0 for every DOF. State, when it has the
// model's full length, overrides them.
type InitStateConfig struct {
	Pos   float64   `yaml:"pos" mapstructure:"pos"`
	Vel   float64   `yaml:"vel" mapstructure:"vel"`
	State []float64 `yaml:"state,omitempty" mapstructure:"state"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:           ModelSDOF,
		Integrator:      "rk4",
		Dt:              DefaultDt,
		Duration:        DefaultDuration,
		DivergenceLimit: dynamo.DefaultDivergenceLimit,
		Forcing:         string(physics.ForcingLeftColumn),
		SDOF:            physics.DefaultParams(),
		Deck:            physics.DefaultDeckParams(),
		Sweep:           analysis.DefaultSweepConfig(),
		Validation:      analysis.DefaultValidationConfig(),
		Damping:         analysis.DefaultDampingConfig(),
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch c.Model {
	case ModelSDOF:
		if err := c.SDOF.Validate(); err != nil {
			return err
		}
	case ModelDeck:
		if err := c.Deck.Validate(); err != nil {
			return err
		}
		if _, err := physics.ParseForcingMode(c.Forcing); err != nil {
			return err
		}
		if c.Corner < 0 || c.Corner >= physics.Corners {
			return dynamo.InvalidParam("corner", float64(c.Corner), "must be 0..3")
		}
	default:
		return fmt.Errorf("unknown model %q (want %s or %s)", c.Model, ModelSDOF, ModelDeck)
	}
	if _, err := integrators.ByName(c.Integrator); err != nil {
		return err
	}
	if !(c.Dt > 0) {
		return dynamo.InvalidParam("dt", c.Dt, "must be positive")
	}
	if !(c.Duration > 0) {
		return dynamo.InvalidParam("duration", c.Duration, "must be positive")
	}
	return nil
}

// RunConfig is the simulator configuration for a single run.
func (c *Config) RunConfig() dynamo.Config {
	return dynamo.Config{
		Dt:              c.Dt,
		Duration:        c.Duration,
		DivergenceLimit: c.DivergenceLimit,
		ValidateState:   true,
	}
}

func (c *Config) StateDim() int {
	if c.Model == ModelDeck {
		return 2 * physics.Corners
	}
	return 2
}

func (c *Config) GetInitState() dynamo.State {
	n := c.StateDim()
	if len(c.InitState.State) == n {
		return dynamo.State(append([]float64(nil), c.InitState.State...))
	}
	x := make(dynamo.State, n)
	for i := 0; i < n/2; i++ {
		x[2*i] = c.InitState.Pos
		x[2*i+1] = c.InitState.Vel
	}
	return x
}

// ForcingMode parses the deck forcing distribution.
func (c *Config) ForcingMode() (physics.ForcingMode, error) {
	return physics.ParseForcingMode(c.Forcing)
}

// ApplyOverrides sets fields from dotted keys such as "sdof.zeta" or
// "dt". Values are converted with weak typing, so "0.1" decodes into a
// float64 and "1,2" into a []float64.
func ApplyOverrides(cfg *Config, overrides map[string]string) error {
	if len(overrides) == 0 {
		return nil
	}
	tree := map[string]interface{}{}
	for key, val := range overrides {
		parts := strings.Split(strings.TrimSpace(key), ".")
		node := tree
		for _, p := range parts[:len(parts)-1] {
			child, ok := node[p].(map[string]interface{})
			if !ok {
				child = map[string]interface{}{}
				node[p] = child
			}
			node = child
		}
		var v interface{} = val
		if strings.Contains(val, ",") {
			v = strings.Split(val, ",")
		}
		node[parts[len(parts)-1]] = v
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		ZeroFields:       true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(tree); err != nil {
		return fmt.Errorf("overrides: %w", err)
	}
	return nil
}

// ParseOverrides splits "key=value" pairs.
func ParseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("override %q is not key=value", p)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}
