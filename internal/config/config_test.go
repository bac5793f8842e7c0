package config

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/physics"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != ModelSDOF {
		t.Errorf("expected model sdof, got %s", cfg.Model)
	}
	if cfg.Dt <= 0 {
		t.Error("dt should be positive")
	}
	if cfg.Duration <= 0 {
		t.Error("duration should be positive")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset(ModelSDOF, "resonance")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.SDOF.Zeta != 0.05 {
		t.Errorf("expected zeta 0.05, got %f", cfg.SDOF.Zeta)
	}
	if cfg.SDOF.Omega != cfg.SDOF.NaturalFrequency() {
		t.Errorf("resonance preset should drive at ωn")
	}

	cfg.Dt = 99
	if GetPreset(ModelSDOF, "resonance").Dt == 99 {
		t.Error("GetPreset should return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	cfg := GetPreset(ModelSDOF, "nonexistent")
	if cfg != nil {
		t.Error("expected nil for nonexistent preset")
	}

	cfg = GetPreset("nonexistent", "resonance")
	if cfg != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestListPresets(t *testing.T) {
	presets := ListPresets(ModelDeck)
	if len(presets) != 3 || presets[0] != "left-column" {
		t.Errorf("unexpected deck presets %v", presets)
	}

	presets = ListPresets("nonexistent")
	if presets != nil {
		t.Error("expected nil for nonexistent model")
	}
}

func TestPresetsValidate(t *testing.T) {
	for model, presets := range Presets {
		for name, cfg := range presets {
			if err := cfg.Validate(); err != nil {
				t.Errorf("%s/%s: %v", model, name, err)
			}
		}
	}
}

func TestGetInitState(t *testing.T) {
	tests := []struct {
		model    string
		init     InitStateConfig
		expected dynamo.State
	}{
		{ModelSDOF, InitStateConfig{Pos: 0.1, Vel: 0.2}, dynamo.State{0.1, 0.2}},
		{ModelDeck, InitStateConfig{Pos: 0.1}, dynamo.State{0.1, 0, 0.1, 0, 0.1, 0, 0.1, 0}},
		{ModelDeck, InitStateConfig{State: []float64{1, 2, 3, 4, 5, 6, 7, 8}}, dynamo.State{1, 2, 3, 4, 5, 6, 7, 8}},
		{ModelSDOF, InitStateConfig{Pos: 0.3, State: []float64{1, 2, 3}}, dynamo.State{0.3, 0}},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		cfg.Model = tt.model
		cfg.InitState = tt.init
		state := cfg.GetInitState()
		if len(state) != len(tt.expected) {
			t.Fatalf("model %s: expected %d states, got %d", tt.model, len(tt.expected), len(state))
		}
		for i := range state {
			if state[i] != tt.expected[i] {
				t.Errorf("model %s: state[%d] = %f, want %f", tt.model, i, state[i], tt.expected[i])
			}
		}
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mut  func(*Config)
	}{
		{"unknown model", func(c *Config) { c.Model = "truss" }},
		{"unknown integrator", func(c *Config) { c.Integrator = "rk45" }},
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative duration", func(c *Config) { c.Duration = -1 }},
		{"bad mass", func(c *Config) { c.SDOF.Mass = 0 }},
		{"bad forcing", func(c *Config) { c.Model = ModelDeck; c.Forcing = "diagonal" }},
		{"bad corner", func(c *Config) { c.Model = ModelDeck; c.Corner = 4 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mut(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	cfg := DefaultConfig()
	cfg.Dt = 0
	if err := cfg.Validate(); !errors.Is(err, dynamo.ErrInvalidParameter) {
		t.Errorf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "deck.yaml")

	cfg := GetPreset(ModelDeck, "symmetric")
	cfg.Deck.CouplingStiffness = 2e4
	cfg.Sweep.Frequencies = []float64{1, 2, 3}
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Model != ModelDeck || loaded.Forcing != string(physics.ForcingSymmetric) {
		t.Errorf("unexpected model/forcing %s/%s", loaded.Model, loaded.Forcing)
	}
	if loaded.Deck.CouplingStiffness != 2e4 {
		t.Errorf("expected kc 2e4, got %f", loaded.Deck.CouplingStiffness)
	}
	if len(loaded.Sweep.Frequencies) != 3 {
		t.Errorf("expected 3 sweep frequencies, got %v", loaded.Sweep.Frequencies)
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestApplyOverrides(t *testing.T) {
	cfg := DefaultConfig()
	err := ApplyOverrides(cfg, map[string]string{
		"dt":                    "0.01",
		"model":                 "deck",
		"sdof.zeta":             "0.2",
		"deck.coupling_damping": "750",
		"sweep.frequencies":     "0.8,1,1.2",
		"sweep.ratios":          "true",
		"corner":                "2",
	})
	if err != nil {
		t.Fatal(err)
	}

	if cfg.Dt != 0.01 || cfg.Model != ModelDeck || cfg.Corner != 2 {
		t.Errorf("top-level overrides not applied: %+v", cfg)
	}
	if cfg.SDOF.Zeta != 0.2 {
		t.Errorf("expected zeta 0.2, got %f", cfg.SDOF.Zeta)
	}
	if cfg.SDOF.Mass != physics.DefaultMass {
		t.Errorf("untouched fields should keep defaults, mass=%f", cfg.SDOF.Mass)
	}
	if cfg.Deck.CouplingDamping != 750 {
		t.Errorf("expected cc 750, got %f", cfg.Deck.CouplingDamping)
	}
	if len(cfg.Sweep.Frequencies) != 3 || cfg.Sweep.Frequencies[2] != 1.2 {
		t.Errorf("unexpected frequencies %v", cfg.Sweep.Frequencies)
	}

	if err := ApplyOverrides(cfg, map[string]string{"sdof.nope": "1"}); err == nil {
		t.Error("expected error for unknown key")
	}
	if err := ApplyOverrides(cfg, map[string]string{"dt": "fast"}); err == nil {
		t.Error("expected error for non-numeric value")
	}
}

func TestParseOverrides(t *testing.T) {
	m, err := ParseOverrides([]string{"dt=0.01", " sdof.zeta = 0.3 "})
	if err != nil {
		t.Fatal(err)
	}
	if m["dt"] != "0.01" || m["sdof.zeta"] != "0.3" {
		t.Errorf("unexpected overrides %v", m)
	}
	if _, err := ParseOverrides([]string{"dt"}); err == nil {
		t.Error("expected error for missing '='")
	}
}

func TestResolve(t *testing.T) {
	cfg, err := Resolve("", "", map[string]string{"dt": "0.01"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Model != ModelSDOF || cfg.Dt != 0.01 {
		t.Errorf("unexpected config model=%s dt=%g", cfg.Model, cfg.Dt)
	}

	cfg, err = Resolve(ModelDeck, "symmetric", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Forcing != string(physics.ForcingSymmetric) {
		t.Errorf("expected symmetric forcing, got %s", cfg.Forcing)
	}
	if Presets[ModelDeck]["symmetric"].Forcing != string(physics.ForcingSymmetric) {
		t.Error("resolve must not modify the preset table")
	}

	if _, err := Resolve(ModelDeck, "nope", nil); err == nil {
		t.Error("expected error for unknown preset")
	}
	if _, err := Resolve(ModelSDOF, "", map[string]string{"sdof.mass": "0"}); err == nil {
		t.Error("expected validation error")
	}
}
