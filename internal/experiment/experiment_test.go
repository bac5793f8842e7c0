package experiment

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/san-kum/bridgesim/internal/config"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	model string
	steps int
	err   error
	calls int
}

func (r *recorder) ObserveRun(model string, s *dynamo.TimeSeries, _ time.Duration, err error) {
	r.calls++
	r.model = model
	r.err = err
	if s != nil {
		r.steps = s.StepsTaken
	}
}

func TestRun_SDOF(t *testing.T) {
	cfg := config.GetPreset(config.ModelSDOF, "resonance")
	rec := &recorder{}

	exp, err := New(cfg, WithRecorder(rec))
	require.NoError(t, err)

	res, err := exp.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4001, res.Series.Len())
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 4000, rec.steps)
	assert.Equal(t, config.ModelSDOF, rec.model)

	require.NotNil(t, res.Modal)
	assert.Contains(t, res.Params, "omega_n")
	assert.InDelta(t, 0.25, res.Series.Metrics["peak_x0"], 0.0025)
	// at 0.25 m amplitude |x| > 0.125 m for at most two thirds of a cycle
	assert.Greater(t, res.Series.Metrics["exceedance"], 0.2)
	assert.Less(t, res.Series.Metrics["exceedance"], 2.0/3)
	assert.Greater(t, res.Series.Metrics["energy"], 0.0)
}

func TestRun_DeckWarnsOnLargeStep(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.GetPreset(config.ModelDeck, "left-column")
	cfg.Dt = 0.5
	cfg.Duration = 50

	exp, err := New(cfg, WithLogger(logging.NewWriter(&buf, slog.LevelDebug)))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "step exceeds RK4 stability estimate")

	res, err := exp.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Series.Unstable())
	assert.Contains(t, buf.String(), "run diverged")
	assert.Contains(t, buf.String(), "back-left")
	assert.NotContains(t, buf.String(), "back-right")
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SDOF.Mass = 0
	_, err := New(cfg)
	assert.ErrorIs(t, err, dynamo.ErrInvalidParameter)

	cfg = config.DefaultConfig()
	cfg.Model = "truss"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestRun_Canceled(t *testing.T) {
	rec := &recorder{}
	exp, err := New(config.DefaultConfig(), WithRecorder(rec))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = exp.Run(ctx)
	assert.True(t, errors.Is(err, dynamo.ErrCanceled))
	assert.ErrorIs(t, rec.err, context.Canceled)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"deck", "sdof"}, r.ListModels())

	_, err := r.GetIntegrator("verlet")
	assert.Error(t, err)

	cfg := config.DefaultConfig()
	cfg.Model = config.ModelDeck
	sys, err := r.GetModel(cfg)
	require.NoError(t, err)
	assert.Equal(t, 8, sys.StateDim())

	ms := r.DefaultMetrics(cfg, sys)
	assert.Len(t, ms, 3)
}
