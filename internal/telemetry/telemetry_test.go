package telemetry

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/integrators"
	"github.com/san-kum/bridgesim/internal/physics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func run(t *testing.T, dt float64) *dynamo.TimeSeries {
	t.Helper()
	sys, err := physics.NewSDOF(physics.DefaultParams())
	require.NoError(t, err)
	ts, err := dynamo.New(sys, integrators.NewRK4()).Run(context.Background(), dynamo.State{0, 0},
		dynamo.Config{Dt: dt, Duration: 20, DivergenceLimit: dynamo.DefaultDivergenceLimit})
	require.NoError(t, err)
	return ts
}

func TestObserveRun(t *testing.T) {
	m := New()

	m.ObserveRun("sdof", run(t, 0.01), 5*time.Millisecond, nil)
	m.ObserveRun("sdof", run(t, 1.0), time.Millisecond, nil)
	m.ObserveRun("deck", nil, 0, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("sdof", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("sdof", OutcomeUnstable)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Runs.WithLabelValues("deck", OutcomeError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Instabilities.WithLabelValues("sdof")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(m.Steps.WithLabelValues("sdof")), 2000.0)
	assert.Equal(t, 2, testutil.CollectAndCount(m.RunDuration))
}

func TestObserveSweepAndCache(t *testing.T) {
	m := New()
	m.ObserveSweep("deck", 6)
	m.ObserveCache(true)
	m.ObserveCache(false)
	m.ObserveCache(false)

	assert.Equal(t, 6.0, testutil.ToFloat64(m.SweepPoints.WithLabelValues("deck")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.CacheLookups.WithLabelValues("miss")))
}

func TestHandler(t *testing.T) {
	m := New()
	m.ObserveSweep("sdof", 3)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	assert.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `bridgesim_sweep_points_total{model="sdof"} 3`))
}
