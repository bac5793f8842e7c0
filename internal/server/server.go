// Package server exposes simulations, sweeps and validation runs over a
// JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/san-kum/bridgesim/internal/analysis"
	"github.com/san-kum/bridgesim/internal/analytic"
	"github.com/san-kum/bridgesim/internal/cache"
	"github.com/san-kum/bridgesim/internal/config"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/experiment"
	"github.com/san-kum/bridgesim/internal/logging"
	"github.com/san-kum/bridgesim/internal/physics"
	"github.com/san-kum/bridgesim/internal/telemetry"
)

const (
	DefaultMaxPoints = 2000
	// DefaultMaxSteps bounds duration/dt of any run a request asks for.
	DefaultMaxSteps = 1_000_000
	// MaxBodePoints bounds the n query parameter of /v1/bode.
	MaxBodePoints = 10_000
)

// SweepCache stores sweep results between requests.
type SweepCache interface {
	GetSweep(ctx context.Context, key string) ([]analysis.SweepResult, error)
	PutSweep(ctx context.Context, key string, results []analysis.SweepResult) error
	Ping(ctx context.Context) error
}

type Server struct {
	log       *slog.Logger
	metrics   *telemetry.Metrics
	cache     SweepCache
	maxPoints int
	maxSteps  int
}

type Option func(*Server)

func WithLogger(log *slog.Logger) Option {
	return func(s *Server) { s.log = log }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

func WithCache(c SweepCache) Option {
	return func(s *Server) { s.cache = c }
}

// WithMaxPoints caps the number of samples returned by /v1/simulate.
func WithMaxPoints(n int) Option {
	return func(s *Server) { s.maxPoints = n }
}

// WithMaxSteps caps the step count of runs requested over HTTP. Values
// above dynamo.MaxSteps are clamped to it.
func WithMaxSteps(n int) Option {
	return func(s *Server) { s.maxSteps = n }
}

func New(opts ...Option) *Server {
	s := &Server{maxPoints: DefaultMaxPoints, maxSteps: DefaultMaxSteps}
	for _, o := range opts {
		o(s)
	}
	if s.log == nil {
		s.log = logging.NewNop()
	}
	if s.metrics == nil {
		s.metrics = telemetry.New()
	}
	if s.maxSteps <= 0 || s.maxSteps > dynamo.MaxSteps {
		s.maxSteps = dynamo.MaxSteps
	}
	return s
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.Health)
	r.Handle("/metrics", s.metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/simulate", s.Simulate)
		r.Post("/sweep", s.Sweep)
		r.Post("/validate", s.Validate)
		r.Get("/bode", s.Bode)
		r.Get("/presets/{model}", s.Presets)
	})
	return r
}

// RunRequest selects a model configuration: a preset or the defaults for
// Model, then dotted-key overrides as accepted by config.ApplyOverrides.
type RunRequest struct {
	Model  string            `json:"model"`
	Preset string            `json:"preset,omitempty"`
	Set    map[string]string `json:"set,omitempty"`
}

func (req RunRequest) config() (*config.Config, error) {
	return config.Resolve(req.Model, req.Preset, req.Set)
}

type SimulateResponse struct {
	Model       string                 `json:"model"`
	Params      map[string]float64     `json:"params"`
	Dt          float64                `json:"dt"`
	Steps       int                    `json:"steps"`
	Stride      int                    `json:"stride"`
	Times       []float64              `json:"times"`
	States      []dynamo.State         `json:"states"`
	Metrics     map[string]float64     `json:"metrics"`
	Modal       *physics.ModalAnalysis `json:"modal,omitempty"`
	Instability *dynamo.Instability    `json:"instability,omitempty"`
	ElapsedMs   float64                `json:"elapsed_ms"`
}

func (s *Server) Simulate(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.decode(w, r)
	if !ok {
		return
	}
	exp, err := experiment.New(cfg, experiment.WithLogger(s.log), experiment.WithRecorder(s.metrics))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := exp.Run(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	ts := res.Series
	stride := 1
	if s.maxPoints > 0 && ts.Len() > s.maxPoints {
		stride = (ts.Len() + s.maxPoints - 1) / s.maxPoints
	}
	resp := SimulateResponse{
		Model:       cfg.Model,
		Params:      res.Params,
		Dt:          ts.Dt,
		Steps:       ts.StepsTaken,
		Stride:      stride,
		Metrics:     ts.Metrics,
		Modal:       res.Modal,
		Instability: ts.Instability,
		ElapsedMs:   float64(res.Elapsed.Microseconds()) / 1000,
	}
	for i := 0; i < ts.Len(); i += stride {
		resp.Times = append(resp.Times, ts.Times[i])
		resp.States = append(resp.States, ts.States[i])
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type SweepResponse struct {
	Model   string                 `json:"model"`
	Cached  bool                   `json:"cached"`
	Results []analysis.SweepResult `json:"results"`
}

func (s *Server) Sweep(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.decode(w, r)
	if !ok {
		return
	}

	key := ""
	if s.cache != nil {
		var err error
		key, err = sweepKey(cfg)
		if err == nil {
			results, err := s.cache.GetSweep(r.Context(), key)
			switch {
			case err == nil:
				s.metrics.ObserveCache(true)
				s.writeJSON(w, http.StatusOK, SweepResponse{Model: cfg.Model, Cached: true, Results: results})
				return
			case errors.Is(err, cache.ErrMiss):
				s.metrics.ObserveCache(false)
			default:
				s.log.Warn("sweep cache lookup failed", "err", err)
			}
		}
	}

	results, err := experiment.Sweep(r.Context(), cfg)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.metrics.ObserveSweep(cfg.Model, len(results))

	if s.cache != nil && key != "" {
		if err := s.cache.PutSweep(r.Context(), key, results); err != nil {
			s.log.Warn("sweep cache store failed", "err", err)
		}
	}
	s.writeJSON(w, http.StatusOK, SweepResponse{Model: cfg.Model, Results: results})
}

func sweepKey(cfg *config.Config) (string, error) {
	req := struct {
		Model      string
		Integrator string
		Forcing    string
		Corner     int
		SDOF       physics.Params
		Deck       physics.DeckParams
		Sweep      analysis.SweepConfig
		Limit      float64
	}{cfg.Model, cfg.Integrator, cfg.Forcing, cfg.Corner, cfg.SDOF, cfg.Deck, cfg.Sweep, cfg.DivergenceLimit}
	if cfg.Model == config.ModelDeck {
		req.SDOF = physics.Params{}
	} else {
		req.Deck, req.Forcing, req.Corner = physics.DeckParams{}, "", 0
	}
	return cache.Key(req)
}

func (s *Server) Validate(w http.ResponseWriter, r *http.Request) {
	cfg, ok := s.decode(w, r)
	if !ok {
		return
	}
	v, err := experiment.Validate(r.Context(), cfg)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, v)
}

// Bode serves the analytical frequency response of the oscillator given
// by query parameters m, k, zeta and f0 over [wmin, wmax] rad/s.
func (s *Server) Bode(w http.ResponseWriter, r *http.Request) {
	p := physics.DefaultParams()
	q := r.URL.Query()
	wMin, wMax, n := 0.1*p.NaturalFrequency(), 10*p.NaturalFrequency(), 100

	fields := []struct {
		name string
		dst  *float64
	}{
		{"m", &p.Mass}, {"k", &p.Stiffness}, {"zeta", &p.Zeta}, {"f0", &p.Force},
		{"wmin", &wMin}, {"wmax", &wMax},
	}
	for _, f := range fields {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid "+f.name+": "+err.Error())
			return
		}
		*f.dst = v
	}
	if raw := q.Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid n: "+err.Error())
			return
		}
		n = v
	}
	if n > MaxBodePoints {
		s.writeError(w, http.StatusBadRequest, "n must not exceed "+strconv.Itoa(MaxBodePoints))
		return
	}
	if err := p.Validate(); err != nil {
		s.fail(w, r, err)
		return
	}

	points, err := analytic.Bode(p, wMin, wMax, n)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	peakW, peakX := analytic.ResonancePeak(p)
	resp := map[string]any{
		"natural_frequency": p.NaturalFrequency(),
		"peak_frequency":    peakW,
		"peak_amplitude":    peakX,
		"points":            points,
	}
	if math.IsInf(peakX, 0) {
		resp["peak_amplitude"] = 0
		resp["no_steady_state"] = true
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) Presets(w http.ResponseWriter, r *http.Request) {
	model := chi.URLParam(r, "model")
	names := config.ListPresets(model)
	if names == nil {
		s.writeError(w, http.StatusNotFound, "unknown model "+model)
		return
	}
	s.writeJSON(w, http.StatusOK, names)
}

func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"status": "ok", "cache": "disabled"}
	if s.cache != nil {
		status["cache"] = "ok"
		if err := s.cache.Ping(r.Context()); err != nil {
			status["cache"] = "unavailable"
		}
	}
	s.writeJSON(w, http.StatusOK, status)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request) (*config.Config, bool) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return nil, false
	}
	cfg, err := req.config()
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	if err := s.checkSteps(cfg); err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return cfg, true
}

// checkSteps rejects configurations whose run, sweep or validation step
// count exceeds the server cap. Zero study steps fall back to defaults.
func (s *Server) checkSteps(cfg *config.Config) error {
	runs := []struct {
		field        string
		dt, duration float64
	}{
		{"duration", cfg.Dt, cfg.Duration},
		{"sweep.duration", cfg.Sweep.Dt, cfg.Sweep.Duration},
		{"validation.duration", cfg.Validation.Dt, cfg.Validation.Duration},
	}
	for _, r := range runs {
		if r.dt == 0 || r.duration == 0 {
			continue
		}
		if n := r.duration / r.dt; !(n <= float64(s.maxSteps)) {
			return dynamo.InvalidParam(r.field, r.duration,
				fmt.Sprintf("duration/dt = %.3g exceeds the server limit of %d steps", n, s.maxSteps))
		}
	}
	return nil
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, dynamo.ErrInvalidParameter):
		code = http.StatusBadRequest
	case errors.Is(err, dynamo.ErrCanceled):
		code = http.StatusServiceUnavailable
	}
	s.log.Warn("request failed",
		"path", r.URL.Path,
		"request_id", middleware.GetReqID(r.Context()),
		"status", code,
		"err", err)
	s.writeError(w, code, err.Error())
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, map[string]string{"error": msg})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("encode response", "err", err)
	}
}
