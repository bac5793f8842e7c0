package automation

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/bridgesim/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scenarioYAML = `
name: deck-check
description: resonance and damping checks
steps:
  - name: resonance
    action: run
    preset: resonance
    set:
      duration: "5"
    save: true
  - name: sweep
    action: sweep
    set:
      sweep.frequencies: "0.9,1.1"
      sweep.duration: "30"
    save: true
  - name: validate
    action: validate
    preset: resonance
    save: true
  - name: zeta
    action: vary
    model: deck
    vary: deck.coupling_stiffness
    values: [0, 20000]
    set:
      duration: "2"
      deck.coupling_damping: "0"
`

func TestParseScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)
	assert.Equal(t, "deck-check", sc.Name)
	require.Len(t, sc.Steps, 4)
	assert.Equal(t, "0.9,1.1", sc.Steps[1].Set["sweep.frequencies"])
	assert.Equal(t, []float64{0, 20000}, sc.Steps[3].Values)

	_, err = ParseScenario([]byte("name: empty\n"))
	assert.Error(t, err)
	_, err = ParseScenario([]byte("steps: [[["))
	assert.Error(t, err)
}

func TestLoadScenario(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(scenarioYAML), 0644))
	sc, err := LoadScenario(path)
	require.NoError(t, err)
	assert.Len(t, sc.Steps, 4)

	_, err = LoadScenario(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunScenario(t *testing.T) {
	sc, err := ParseScenario([]byte(scenarioYAML))
	require.NoError(t, err)

	store := storage.New(t.TempDir())
	results, err := NewRunner(WithStore(store)).Run(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, results, 4)

	run := results[0]
	assert.Equal(t, ActionRun, run.Action)
	require.NotNil(t, run.Run)
	assert.Equal(t, 1000, run.Run.Series.StepsTaken)
	assert.NotEmpty(t, run.RunID)

	assert.Len(t, results[1].Sweep, 2)
	assert.NotEmpty(t, results[1].RunID)

	require.NotNil(t, results[2].Validation)
	assert.Less(t, results[2].Validation.Summary.MaxAbs, 1e-6)

	vary := results[3].Vary
	require.Len(t, vary, 2)
	// left-column forcing leaves the right column at rest without coupling
	assert.Greater(t, vary[0].Peak[0], 0.0)
	assert.Zero(t, vary[0].Peak[1])
	assert.Greater(t, vary[1].Peak[1], 0.0)

	runs, err := store.List()
	require.NoError(t, err)
	assert.Len(t, runs, 3)
}

func TestRunScenarioErrors(t *testing.T) {
	r := NewRunner()
	ctx := context.Background()

	_, err := r.Run(ctx, &Scenario{Steps: []ScenarioStep{{Action: "explode"}}})
	assert.ErrorIs(t, err, ErrUnknownAction)

	results, err := r.Run(ctx, &Scenario{Steps: []ScenarioStep{
		{Action: ActionConverge, Set: map[string]string{"duration": "5"}},
		{Action: ActionRun, Preset: "missing"},
	}})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "step 2")
	require.Len(t, results, 1)
	assert.Len(t, results[0].Convergence, 4)

	_, err = r.Run(ctx, &Scenario{Steps: []ScenarioStep{{Action: ActionVary}}})
	assert.Error(t, err)
}
