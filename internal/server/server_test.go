package server_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/san-kum/bridgesim/internal/analysis"
	"github.com/san-kum/bridgesim/internal/cache"
	"github.com/san-kum/bridgesim/internal/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func get(h http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestSimulate(t *testing.T) {
	h := server.New(server.WithMaxPoints(100)).Handler()

	rec := post(t, h, "/v1/simulate", server.RunRequest{Model: "sdof", Preset: "resonance"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp server.SimulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "sdof", resp.Model)
	assert.Equal(t, 4000, resp.Steps)
	assert.Equal(t, 41, resp.Stride)
	assert.LessOrEqual(t, len(resp.Times), 100)
	assert.Len(t, resp.States, len(resp.Times))
	assert.InDelta(t, 41*0.005, resp.Times[1], 1e-12)
	assert.InDelta(t, 40.0, resp.Params["k"]/resp.Params["m"], 1e-12)
	assert.Nil(t, resp.Instability)
	require.NotNil(t, resp.Modal)
	assert.Len(t, resp.Modal.Frequencies, 1)
}

func TestSimulateDeckOverrides(t *testing.T) {
	h := server.New().Handler()

	rec := post(t, h, "/v1/simulate", server.RunRequest{
		Model: "deck",
		Set:   map[string]string{"duration": "1", "forcing": "symmetric"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp server.SimulateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 200, resp.Steps)
	for _, x := range resp.States {
		require.Len(t, x, 8)
		assert.Equal(t, x[0], x[2])
		assert.Equal(t, x[0], x[6])
	}
}

func TestSimulateBadRequests(t *testing.T) {
	h := server.New().Handler()

	tests := []struct {
		name string
		body any
	}{
		{"unknown model", server.RunRequest{Model: "truss"}},
		{"unknown preset", server.RunRequest{Model: "sdof", Preset: "nope"}},
		{"negative mass", server.RunRequest{Set: map[string]string{"sdof.mass": "-1"}}},
		{"unknown key", server.RunRequest{Set: map[string]string{"sdof.bogus": "1"}}},
		{"malformed", "not an object"},
		{"tiny dt", server.RunRequest{Set: map[string]string{"dt": "1e-300"}}},
		{"too many steps", server.RunRequest{Set: map[string]string{"dt": "1e-7", "duration": "1e5"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := post(t, h, "/v1/simulate", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestSweepCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	store := cache.NewFromClient(backend.NewClient(&backend.Options{Addr: mr.Addr()}))

	h := server.New(server.WithCache(store)).Handler()
	req := server.RunRequest{Set: map[string]string{
		"sweep.frequencies": "0.8,1.2",
		"sweep.duration":    "30",
	}}

	var first, second server.SweepResponse
	rec := post(t, h, "/v1/sweep", req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	assert.False(t, first.Cached)
	require.Len(t, first.Results, 2)
	assert.InDelta(t, 0.8, first.Results[0].Ratio, 1e-12)

	rec = post(t, h, "/v1/sweep", req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	assert.True(t, second.Cached)
	assert.Equal(t, first.Results, second.Results)

	metrics := get(h, "/metrics").Body.String()
	assert.Contains(t, metrics, `bridgesim_cache_lookups_total{result="hit"} 1`)
	assert.Contains(t, metrics, `bridgesim_sweep_points_total{model="sdof"} 2`)
}

func TestSweepUndampedResonance(t *testing.T) {
	h := server.New().Handler()
	rec := post(t, h, "/v1/sweep", server.RunRequest{Set: map[string]string{
		"sdof.zeta":         "0",
		"sweep.frequencies": "1",
		"sweep.duration":    "10",
	}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp server.SweepResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.True(t, resp.Results[0].NoSteadyState)
	assert.True(t, resp.Results[0].Undefined)
	assert.Zero(t, resp.Results[0].Theoretical)
}

func TestValidate(t *testing.T) {
	h := server.New().Handler()
	rec := post(t, h, "/v1/validate", server.RunRequest{Preset: "resonance"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Regime    string                 `json:"regime"`
		Amplitude float64                `json:"amplitude"`
		Records   []analysis.ErrorRecord `json:"records"`
		Summary   analysis.Summary       `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "underdamped", resp.Regime)
	assert.InDelta(t, 0.25, resp.Amplitude, 1e-9)
	assert.Len(t, resp.Records, 2001)
	assert.Less(t, resp.Summary.MaxAbs, 1e-6)
}

func TestBode(t *testing.T) {
	h := server.New().Handler()

	rec := get(h, "/v1/bode?zeta=0.1&n=50&wmin=1&wmax=100")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Natural float64 `json:"natural_frequency"`
		Peak    float64 `json:"peak_frequency"`
		Points  []struct {
			Omega float64 `json:"omega"`
		} `json:"points"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Points, 50)
	assert.InDelta(t, 1.0, resp.Points[0].Omega, 1e-9)
	assert.Less(t, resp.Peak, resp.Natural)

	rec = get(h, "/v1/bode?zeta=0")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"no_steady_state":true`)

	assert.Equal(t, http.StatusBadRequest, get(h, "/v1/bode?m=abc").Code)
	assert.Equal(t, http.StatusBadRequest, get(h, "/v1/bode?m=-5").Code)
	assert.Equal(t, http.StatusBadRequest, get(h, "/v1/bode?wmin=10&wmax=1").Code)
	assert.Equal(t, http.StatusBadRequest, get(h, "/v1/bode?n=1000000000").Code)
}

func TestStepLimit(t *testing.T) {
	h := server.New(server.WithMaxSteps(1000)).Handler()

	rec := post(t, h, "/v1/simulate", server.RunRequest{Set: map[string]string{"dt": "0.01", "duration": "10"}})
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = post(t, h, "/v1/simulate", server.RunRequest{Set: map[string]string{"dt": "0.001", "duration": "10"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "server limit")

	rec = post(t, h, "/v1/sweep", server.RunRequest{Set: map[string]string{"sweep.dt": "1e-6"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPresetsAndHealth(t *testing.T) {
	h := server.New().Handler()

	rec := get(h, "/v1/presets/deck")
	require.Equal(t, http.StatusOK, rec.Code)
	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	assert.Contains(t, names, "left-column")

	assert.Equal(t, http.StatusNotFound, get(h, "/v1/presets/truss").Code)

	rec = get(h, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `"cache":"disabled"`))
}
