package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/bridgesim/internal/analysis"
	"github.com/san-kum/bridgesim/internal/config"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/experiment"
	"github.com/san-kum/bridgesim/internal/logging"
	"github.com/san-kum/bridgesim/internal/physics"
	"github.com/san-kum/bridgesim/internal/storage"
	"github.com/san-kum/bridgesim/internal/viz"
	"github.com/spf13/cobra"
)

var (
	dataDir    string
	logLevel   string
	configFile string
	model      string
	preset     string
	overrides  []string
	save       bool
	noSave     bool
	plotFlag   bool
	// Output options shared by plots and exports
	outFile string
	width   int
	height  int
	dof     int
	from    float64
	nx, ny  int
	strobe  bool

	log *slog.Logger
)

// main registers every command and runs the root command, exiting with
// status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "bridgesim",
		Short:         "bridge deck vibration lab",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level, err := logging.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log = logging.New(level)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".bridgesim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&model, "model", config.ModelSDOF, "model (sdof, deck)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringArrayVar(&overrides, "set", nil, "override a config field (key=value), repeatable")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().BoolVar(&plotFlag, "plot", false, "plot displacements after the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot displacements of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().IntVar(&width, "width", 80, "plot width")
	plotCmd.Flags().IntVar(&height, "height", 10, "plot height")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&dof, "dof", 0, "degree of freedom")
	analyzeCmd.Flags().Float64Var(&from, "from", 0, "ignore samples before this time")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "ASCII phase portrait of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  phaseRun,
	}
	phaseCmd.Flags().IntVar(&dof, "dof", 0, "degree of freedom")
	phaseCmd.Flags().Float64Var(&from, "from", 0, "ignore samples before this time")
	phaseCmd.Flags().IntVar(&width, "width", 80, "portrait width")
	phaseCmd.Flags().IntVar(&height, "height", 10, "portrait height")
	phaseCmd.Flags().BoolVar(&strobe, "strobe", false, "sample once per forcing period instead of every step")

	shapeCmd := &cobra.Command{
		Use:   "shape [run_id]",
		Short: "deck surface from the final corner displacements of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  shapeRun,
	}
	shapeCmd.Flags().IntVar(&nx, "nx", 11, "grid points along the deck")
	shapeCmd.Flags().IntVar(&ny, "ny", 5, "grid points across the deck")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, analyzeCmd, phaseCmd, shapeCmd)
	rootCmd.AddCommand(studyCommands()...)
	rootCmd.AddCommand(exportCommands()...)
	rootCmd.AddCommand(toolCommands()...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the run configuration from --config or --preset and
// the --set overrides.
func loadConfig() (*config.Config, error) {
	set, err := config.ParseOverrides(overrides)
	if err != nil {
		return nil, err
	}
	if configFile == "" {
		return config.Resolve(model, preset, set)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyOverrides(cfg, set); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func openStore() (*storage.Store, error) {
	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return nil, err
	}
	return st, nil
}

func metadata(cfg *config.Config) storage.RunMetadata {
	meta := storage.RunMetadata{
		Model:      cfg.Model,
		Dt:         cfg.Dt,
		Duration:   cfg.Duration,
		Integrator: cfg.Integrator,
	}
	if cfg.Model == config.ModelDeck {
		meta.Forcing = cfg.Forcing
	}
	return meta
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.WithLogger(log))
	if err != nil {
		return err
	}

	fmt.Printf("running %s\n", experiment.Describe(cfg))
	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	ts := result.Series

	fmt.Printf("completed in %v\n", result.Elapsed)
	fmt.Printf("steps: %d\n", ts.StepsTaken)
	if ts.Unstable() {
		fmt.Printf("unstable: %s\n", ts.Instability)
	}

	if !noSave {
		st, err := openStore()
		if err != nil {
			return err
		}
		meta := metadata(cfg)
		meta.Params = result.Params
		runID, err := st.Save(meta, ts)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}

	fmt.Println("\nmetrics:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	names := make([]string, 0, len(ts.Metrics))
	for name := range ts.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s\t%.6g\n", name, ts.Metrics[name])
	}
	if result.Modal != nil {
		for i, f := range result.Modal.Frequencies {
			fmt.Fprintf(w, "  mode %d\t%.4f rad/s (ζ=%.4f)\n", i+1, f, result.Modal.DampingRatios[i])
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if plotFlag {
		fmt.Println()
		plotDisplacements(ts, cfg.Model, 80, 10)
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tKIND\tMODEL\tTIME\tDURATION\tDT\tINTEG\tSTATUS")

	for _, run := range runs {
		status := "ok"
		if run.Instability != nil {
			status = "unstable"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%.4fs\t%s\t%s\n",
			run.ID,
			run.Kind,
			run.Model,
			run.Timestamp.Format(time.DateTime),
			run.Duration,
			run.Dt,
			run.Integrator,
			status,
		)
	}

	return w.Flush()
}

func loadRun(runID string) (*storage.RunMetadata, *dynamo.TimeSeries, error) {
	st := storage.New(dataDir)
	meta, ts, err := st.LoadSeries(runID)
	if err != nil {
		return nil, nil, err
	}
	if meta.Kind != storage.KindRun {
		return nil, nil, fmt.Errorf("%s is a %s record, not a run", runID, meta.Kind)
	}
	if ts.Len() == 0 {
		return nil, nil, fmt.Errorf("no data in run %s", runID)
	}
	return meta, ts, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, ts, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s\n", meta.Model)
	fmt.Printf("samples: %d\n\n", ts.Len())

	plotDisplacements(ts, meta.Model, width, height)
	return nil
}

func plotDisplacements(ts *dynamo.TimeSeries, model string, width, height int) {
	for i := 0; i < ts.States[0].DOF(); i++ {
		data := ts.Displacement(i)
		caption := fmt.Sprintf("x%d vs time", i)
		if model == config.ModelDeck {
			caption = physics.CornerName(i) + " displacement"
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(height),
			asciigraph.Width(width),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, ts, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if dof < 0 || dof >= ts.States[0].DOF() {
		return fmt.Errorf("dof %d out of range", dof)
	}

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("model: %s\n\n", meta.Model)

	x := ts.Displacement(dof)[ts.Window(from):]
	n := 1
	for n < len(x) {
		n *= 2
	}
	padded := make([]float64, n)
	copy(padded, x)

	ps := analysis.PowerSpectrum(padded)
	plotData := ps[:max(2, len(ps)/8)]

	graph := asciigraph.Plot(plotData,
		asciigraph.Height(15),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power spectrum (x%d)", dof)),
	)
	fmt.Println(graph)
	fmt.Println()

	w := analysis.DominantFrequency(ts, dof, from)
	fmt.Printf("dominant frequency: %.4f rad/s (%.4f hz)\n", w, w/(2*math.Pi))
	if forcing, ok := meta.Params["omega"]; ok && forcing > 0 {
		fmt.Printf("forcing frequency:  %.4f rad/s\n", forcing)
		printSteadiness(ts, dof, forcing)
	}
	return nil
}

// printSteadiness shows the per-period peak envelope and how far the
// stroboscopic section moved over the last forcing period.
func printSteadiness(ts *dynamo.TimeSeries, dof int, omega float64) {
	_, peaks := analysis.PeakEnvelope(ts, dof, 2*math.Pi/omega)
	if len(peaks) > 0 {
		fmt.Printf("peak envelope:      %s %.4g → %.4g m\n", viz.Sparkline(peaks, 40), peaks[0], peaks[len(peaks)-1])
	}

	section := analysis.Stroboscopic(ts, dof, omega, from)
	if section == nil || len(section.Points) < 2 {
		return
	}
	a, b := section.Points[len(section.Points)-2], section.Points[len(section.Points)-1]
	fmt.Printf("strobe drift:       %.3g m over the last period (%d sections)\n",
		math.Hypot(b.X-a.X, (b.Y-a.Y)/omega), len(section.Points))
}

func phaseRun(cmd *cobra.Command, args []string) error {
	meta, ts, err := loadRun(args[0])
	if err != nil {
		return err
	}

	title := "phase portrait"
	portrait := analysis.PhasePortrait(ts, dof, from)
	if strobe {
		omega := meta.Params["omega"]
		if !(omega > 0) {
			return fmt.Errorf("run %s is unforced, no stroboscopic section", meta.ID)
		}
		title = "stroboscopic section"
		portrait = analysis.Stroboscopic(ts, dof, omega, from)
	}
	if portrait == nil {
		return fmt.Errorf("dof %d out of range", dof)
	}
	fmt.Printf("%s: %s (x%d, %d points)\n\n", title, meta.ID, dof, len(portrait.Points))
	fmt.Println(analysis.PhasePortraitToASCII(portrait, width, height))
	return nil
}

func shapeRun(cmd *cobra.Command, args []string) error {
	meta, ts, err := loadRun(args[0])
	if err != nil {
		return err
	}
	if meta.Model != config.ModelDeck {
		return fmt.Errorf("run %s is not a deck run", meta.ID)
	}

	final := ts.States[ts.Len()-1]
	surface, err := physics.DeckShape(physics.CornerDisplacements(final), physics.DefaultDeckLength, physics.DefaultDeckWidth, nx, ny)
	if err != nil {
		return err
	}

	fmt.Printf("deck shape at t=%.3fs (mm)\n\n", ts.Times[ts.Len()-1])
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 1, ' ', tabwriter.AlignRight)
	header := []string{"y\\x"}
	for _, x := range surface.X {
		header = append(header, fmt.Sprintf("%.0f", x))
	}
	fmt.Fprintln(w, strings.Join(header, "\t")+"\t")
	for j, row := range surface.Z {
		cells := []string{fmt.Sprintf("%.0f", surface.Y[j])}
		for _, z := range row {
			cells = append(cells, fmt.Sprintf("%.3f", 1000*z))
		}
		fmt.Fprintln(w, strings.Join(cells, "\t")+"\t")
	}
	return w.Flush()
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
