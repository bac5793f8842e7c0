package config

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/bridgesim/internal/physics"
)

func sdofPreset(zeta, ratio, duration float64) *Config {
	cfg := DefaultConfig()
	cfg.SDOF = cfg.SDOF.WithZeta(zeta)
	cfg.SDOF.Omega = ratio * cfg.SDOF.NaturalFrequency()
	cfg.Duration = duration
	return cfg
}

func deckPreset(mode physics.ForcingMode, hz float64) *Config {
	cfg := DefaultConfig()
	cfg.Model = ModelDeck
	cfg.Forcing = string(mode)
	cfg.Deck.Omega = 2 * math.Pi * hz
	cfg.Dt = 0.001
	cfg.Duration = 10
	return cfg
}

var Presets = map[string]map[string]*Config{
	ModelSDOF: {
		"resonance":  sdofPreset(0.05, 1, 20),
		"undamped":   sdofPreset(0, 1, 20),
		"damped":     sdofPreset(0.5, 1, 20),
		"critical":   sdofPreset(1, 1, 20),
		"overdamped": sdofPreset(2, 1, 20),
		"off-peak":   sdofPreset(0.05, 1.5, 60),
	},
	ModelDeck: {
		"left-column": deckPreset(physics.ForcingLeftColumn, 2.25),
		"symmetric":   deckPreset(physics.ForcingSymmetric, 2.25),
		"resonant":    deckPreset(physics.ForcingSymmetric, math.Sqrt(40)/(2*math.Pi)),
	},
}

// GetPreset returns a copy of a named preset, or nil.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	cfg, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve starts from a preset, or the defaults for model when preset is
// empty, applies overrides and validates the result.
func Resolve(model, preset string, overrides map[string]string) (*Config, error) {
	if model == "" {
		model = ModelSDOF
	}
	var cfg *Config
	if preset != "" {
		if cfg = GetPreset(model, preset); cfg == nil {
			return nil, fmt.Errorf("unknown preset %q for model %s", preset, model)
		}
	} else {
		cfg = DefaultConfig()
		cfg.Model = model
	}
	if err := ApplyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
