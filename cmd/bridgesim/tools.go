package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/san-kum/bridgesim/internal/automation"
	"github.com/san-kum/bridgesim/internal/cache"
	"github.com/san-kum/bridgesim/internal/config"
	"github.com/san-kum/bridgesim/internal/experiment"
	"github.com/san-kum/bridgesim/internal/integrators"
	"github.com/san-kum/bridgesim/internal/server"
	"github.com/san-kum/bridgesim/internal/telemetry"
	"github.com/san-kum/bridgesim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	theme         string
	stepsPerFrame int
	addr          string
	redisAddr     string
	redisPassword string
	redisDB       int
	cacheTTL      time.Duration
	maxPoints     int
	saveSteps     bool
)

func toolCommands() []*cobra.Command {
	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run simulation with live visualization",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	liveCmd.Flags().StringVar(&theme, "theme", "steel", "color theme ("+strings.Join(viz.ThemeNames(), ", ")+")")
	liveCmd.Flags().IntVar(&stepsPerFrame, "speed", 0, "integration steps per frame (default real time)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "start the HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
	serveCmd.Flags().StringVarP(&addr, "addr", "a", ":8080", "listen address")
	serveCmd.Flags().StringVar(&redisAddr, "redis", "", "redis address for the sweep cache (disabled when empty)")
	serveCmd.Flags().StringVar(&redisPassword, "redis-password", "", "redis password")
	serveCmd.Flags().IntVar(&redisDB, "redis-db", 0, "redis database")
	serveCmd.Flags().DurationVar(&cacheTTL, "cache-ttl", time.Hour, "sweep cache TTL")
	serveCmd.Flags().IntVar(&maxPoints, "max-points", server.DefaultMaxPoints, "samples returned per simulation")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run a YAML scenario of simulations and studies",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&saveSteps, "save", true, "store steps marked save in the data directory")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	return []*cobra.Command{liveCmd, serveCmd, scenarioCmd, presetsCmd}
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.WithLogger(log))
	if err != nil {
		return err
	}
	integ, err := integrators.ByName(cfg.Integrator)
	if err != nil {
		return err
	}

	m := viz.NewModel(exp.System(), integ, cfg.GetInitState(), cfg.Dt, viz.Options{
		Name:            experiment.Describe(cfg),
		StepsPerFrame:   stepsPerFrame,
		DivergenceLimit: cfg.DivergenceLimit,
		Duration:        cfg.Duration,
		Theme:           theme,
	})
	return viz.Run(m)
}

func runServe(cmd *cobra.Command, args []string) error {
	metrics := telemetry.New()
	opts := []server.Option{
		server.WithLogger(log),
		server.WithMetrics(metrics),
		server.WithMaxPoints(maxPoints),
	}

	if redisAddr != "" {
		store := cache.New(redisAddr, redisPassword, redisDB, cache.WithTTL(cacheTTL))
		defer store.Close()

		ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Second)
		err := store.Ping(ctx)
		cancel()
		if err != nil {
			return fmt.Errorf("redis %s: %w", redisAddr, err)
		}
		opts = append(opts, server.WithCache(store))
		log.Info("sweep cache enabled", "redis", redisAddr, "ttl", cacheTTL)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           server.New(opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		fmt.Printf("bridgesim API listening on %s\n", srv.Addr)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		fmt.Println("\nshutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown did not complete", "error", err)
			return srv.Close()
		}
		return nil
	}
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	opts := []automation.Option{automation.WithLogger(log)}
	if saveSteps {
		st, err := openStore()
		if err != nil {
			return err
		}
		opts = append(opts, automation.WithStore(st))
	}

	fmt.Printf("scenario: %s (%d steps)\n", sc.Name, len(sc.Steps))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	fmt.Println()

	results, err := automation.NewRunner(opts...).Run(cmd.Context(), sc)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tACTION\tMODEL\tRESULT\tID")
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Action, r.Config.Model, summarize(r), r.RunID)
	}
	if ferr := w.Flush(); ferr != nil && err == nil {
		err = ferr
	}
	return err
}

// summarize condenses a step result into one table cell.
func summarize(r automation.StepResult) string {
	switch {
	case r.Run != nil:
		ts := r.Run.Series
		if ts.Unstable() {
			return "unstable: " + ts.Instability.String()
		}
		return fmt.Sprintf("%d steps in %v", ts.StepsTaken, r.Run.Elapsed.Round(time.Millisecond))
	case r.Sweep != nil:
		var worst float64
		for _, s := range r.Sweep {
			if !s.Undefined && !s.NoSteadyState && !s.Unstable {
				worst = max(worst, math.Abs(s.RelativeError))
			}
		}
		return fmt.Sprintf("%d points, max rel. error %.3f%%", len(r.Sweep), 100*worst)
	case r.Validation != nil:
		s := r.Validation.Summary
		return fmt.Sprintf("%s, max |e| %.3g, rms %.3g", r.Validation.Regime, s.MaxAbs, s.RMS)
	case len(r.Convergence) > 0:
		last := r.Convergence[len(r.Convergence)-1]
		return fmt.Sprintf("order %.2f at h=%g", last.Order, last.Dt)
	case r.Damping != nil:
		return fmt.Sprintf("%d damping ratios", len(r.Damping))
	case r.Vary != nil:
		parts := make([]string, len(r.Vary))
		for i, p := range r.Vary {
			parts[i] = fmt.Sprintf("%g→%.3g", p.Value, maxOf(p.Peak))
		}
		return strings.Join(parts, " ")
	}
	return ""
}

func maxOf(xs []float64) float64 {
	var m float64
	for _, x := range xs {
		m = max(m, x)
	}
	return m
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPRESET\tSUMMARY")
	for _, m := range []string{config.ModelSDOF, config.ModelDeck} {
		for _, name := range config.ListPresets(m) {
			fmt.Fprintf(w, "%s\t%s\t%s\n", m, name, experiment.Describe(config.GetPreset(m, name)))
		}
	}
	return w.Flush()
}
