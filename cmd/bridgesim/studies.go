package main

import (
	"fmt"
	"math"
	"os"

	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/bridgesim/internal/analysis"
	"github.com/san-kum/bridgesim/internal/analytic"
	"github.com/san-kum/bridgesim/internal/config"
	"github.com/san-kum/bridgesim/internal/experiment"
	"github.com/san-kum/bridgesim/internal/export"
	"github.com/san-kum/bridgesim/internal/physics"
	"github.com/san-kum/bridgesim/internal/report"
	"github.com/san-kum/bridgesim/internal/viz"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
)

var (
	jsonOut bool
	style   string
	samples int
	steps   []float64
	wMin    float64
	wMax    float64
	points  int
	rows    int
	pngFile string
)

func studyCommands() []*cobra.Command {
	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "steady-state amplitude over a frequency sweep",
		Args:  cobra.NoArgs,
		RunE:  runSweep,
	}
	sweepCmd.Flags().BoolVar(&plotFlag, "plot", false, "plot numerical and theoretical amplitudes")
	sweepCmd.Flags().BoolVar(&save, "save", false, "store the sweep in the data directory")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "compare a numeric run against the closed-form solution",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
	validateCmd.Flags().IntVar(&samples, "samples", 20, "error table rows (0 for summary only)")
	validateCmd.Flags().BoolVar(&save, "save", false, "store the error records in the data directory")
	validateCmd.Flags().BoolVar(&plotFlag, "plot", false, "plot numeric and analytical displacement")

	convergeCmd := &cobra.Command{
		Use:   "converge",
		Short: "error against the closed form while halving the step",
		Args:  cobra.NoArgs,
		RunE:  runConverge,
	}
	convergeCmd.Flags().Float64SliceVar(&steps, "steps", nil, "step sizes (default 0.04,0.02,0.01,0.005)")

	dampingCmd := &cobra.Command{
		Use:   "damping",
		Short: "free and forced response across damping ratios",
		Args:  cobra.NoArgs,
		RunE:  runDamping,
	}

	bodeCmd := &cobra.Command{
		Use:   "bode",
		Short: "magnitude and phase of the receptance",
		Args:  cobra.NoArgs,
		RunE:  runBode,
	}
	bodeCmd.Flags().Float64Var(&wMin, "wmin", 0, "lowest frequency in rad/s (default ωn/10)")
	bodeCmd.Flags().Float64Var(&wMax, "wmax", 0, "highest frequency in rad/s (default 10ωn)")
	bodeCmd.Flags().IntVar(&points, "n", 200, "number of frequencies")

	surfaceCmd := &cobra.Command{
		Use:   "surface",
		Short: "steady-state response over time and frequency or damping",
		Args:  cobra.NoArgs,
		RunE:  runSurface,
	}
	surfaceCmd.Flags().IntVar(&rows, "n", 11, "rows in the surface")

	modesCmd := &cobra.Command{
		Use:   "modes",
		Short: "modal frequencies and the RK4 step estimate",
		Args:  cobra.NoArgs,
		RunE:  runModes,
	}

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "run every study and render a markdown report",
		Args:  cobra.NoArgs,
		RunE:  runReport,
	}
	reportCmd.Flags().StringVarP(&outFile, "output", "o", "", "write the markdown to a file instead of rendering it")
	reportCmd.Flags().IntVar(&samples, "samples", 20, "validation table rows")

	for _, c := range []*cobra.Command{sweepCmd, validateCmd, bodeCmd} {
		c.Flags().StringVar(&pngFile, "png", "", "also write a PNG plot to this file")
	}

	cmds := []*cobra.Command{sweepCmd, validateCmd, convergeCmd, dampingCmd, bodeCmd, surfaceCmd, modesCmd, reportCmd}
	for _, c := range cmds {
		c.Flags().BoolVar(&jsonOut, "json", false, "print JSON instead of a table")
		c.Flags().StringVar(&style, "style", "", "glamour style (dark, light, notty); auto when empty")
	}
	return cmds
}

// plotPNG writes the plot built by fn to --png, if set.
func plotPNG(fn func() (*plot.Plot, error)) error {
	if pngFile == "" {
		return nil
	}
	p, err := fn()
	if err != nil {
		return err
	}
	outFile = pngFile
	return savePNG(p)
}

// show renders b for the terminal unless --json asked for v.
func show(b *report.Builder, v any) error {
	if jsonOut {
		return printJSON(v)
	}
	out, err := report.Render(b.String(), style)
	if err != nil {
		return err
	}
	fmt.Print(out)
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.Info("sweep starting", "model", cfg.Model, "points", len(cfg.Sweep.Frequencies))

	results, err := experiment.Sweep(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if save {
		st, err := openStore()
		if err != nil {
			return err
		}
		id, err := st.SaveSweep(metadata(cfg), results)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "sweep id: %s\n", id)
	}

	var b report.Builder
	b.Paragraph("%s", experiment.Describe(cfg))
	title := "Frequency sweep"
	if cfg.Model == config.ModelDeck {
		title = fmt.Sprintf("Frequency sweep (%s)", physics.CornerName(cfg.Corner))
	}
	report.Sweep(&b, title, results)
	if err := show(&b, results); err != nil {
		return err
	}
	if err := plotPNG(func() (*plot.Plot, error) { return export.SweepPlot(results) }); err != nil {
		return err
	}

	if plotFlag && !jsonOut {
		numeric := make([]float64, len(results))
		theory := make([]float64, len(results))
		for i, r := range results {
			numeric[i], theory[i] = r.Numerical, r.Theoretical
		}
		graph := asciigraph.PlotMany([][]float64{numeric, theory},
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
			asciigraph.Caption("amplitude vs frequency (numerical, theoretical)"),
		)
		fmt.Println(graph)
	}
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	v, err := experiment.Validate(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	if save {
		st, err := openStore()
		if err != nil {
			return err
		}
		meta := metadata(cfg)
		meta.Dt, meta.Duration = v.Series.Dt, cfg.Validation.Duration
		id, err := st.SaveValidation(meta, v)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "validation id: %s\n", id)
	}

	var b report.Builder
	b.Paragraph("%s", experiment.Describe(cfg))
	report.Validation(&b, v, samples)
	if err := show(&b, v); err != nil {
		return err
	}

	if plotFlag && !jsonOut {
		numeric := make([]float64, len(v.Records))
		exact := make([]float64, len(v.Records))
		for i, r := range v.Records {
			numeric[i], exact[i] = r.Numeric, r.Analytical
		}
		fmt.Println(asciigraph.PlotMany([][]float64{numeric, exact},
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
			asciigraph.Caption("displacement vs time (numeric, analytical)"),
		))
	}
	return plotPNG(func() (*plot.Plot, error) { return export.ValidationPlot(v) })
}

func runConverge(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	pts, err := experiment.Converge(cmd.Context(), cfg, steps)
	if err != nil {
		return err
	}

	var b report.Builder
	report.Convergence(&b, pts)
	return show(&b, pts)
}

func runDamping(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	runs, err := experiment.Damping(cmd.Context(), cfg)
	if err != nil {
		return err
	}

	var b report.Builder
	report.Damping(&b, runs, cfg.Damping.SampleTimes)
	return show(&b, runs)
}

func runBode(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p := experiment.StudyParams(cfg)
	wn := p.NaturalFrequency()
	lo, hi := wMin, wMax
	if lo == 0 {
		lo = wn / 10
	}
	if hi == 0 {
		hi = 10 * wn
	}

	pts, err := analytic.Bode(p, lo, hi, points)
	if err != nil {
		return err
	}
	if err := plotPNG(func() (*plot.Plot, error) { return export.BodePlot(pts) }); err != nil {
		return err
	}
	if jsonOut {
		return printJSON(pts)
	}

	mag := make([]float64, len(pts))
	phase := make([]float64, len(pts))
	for i, pt := range pts {
		mag[i], phase[i] = pt.MagnitudeDB, pt.PhaseDeg
	}
	fmt.Println(asciigraph.Plot(mag,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("|H| (dB), %.3g..%.3g rad/s log scale", lo, hi)),
	))
	fmt.Println()
	fmt.Println(asciigraph.Plot(phase,
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.Caption("phase (deg)"),
	))

	peak, amp := analytic.ResonancePeak(p)
	fmt.Printf("\nωn = %.4f rad/s\n", wn)
	if math.IsInf(amp, 0) {
		fmt.Println("undamped: no finite resonance peak")
	} else {
		fmt.Printf("peak at %.4f rad/s, amplitude %.6g m\n", peak, amp)
	}
	return nil
}

func runSurface(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	p := experiment.StudyParams(cfg)
	wn := p.NaturalFrequency()
	period := 2 * math.Pi / p.Omega
	times := floats.Span(make([]float64, 64), 0, 2*period)

	omegas := analysis.RatioGrid(0.5*wn, 1.5*wn, rows)
	freq := analytic.TimeFrequencySurface(p, times, omegas)
	zetas := analysis.RatioGrid(0, 2, rows)
	damp := analytic.DampingSurface(p, times, zetas)
	if jsonOut {
		return printJSON(map[string]*physics.Surface{"frequency": freq, "damping": damp})
	}

	var b report.Builder
	b.Paragraph("%s", experiment.Describe(cfg))
	b.Paragraph("Steady-state displacement over two forcing periods (%.4g s).", 2*period)
	surfaceTable(&b, "Frequency", "Ω (rad/s)", freq)
	surfaceTable(&b, "Damping", "ζ", damp)
	return show(&b, nil)
}

func surfaceTable(b *report.Builder, title, axis string, s *physics.Surface) {
	b.Heading(2, title)
	table := make([][]string, 0, len(s.Y))
	for j, y := range s.Y {
		row := s.Z[j]
		if floats.HasNaN(row) {
			table = append(table, []string{fmt.Sprintf("%.4g", y), "no steady state", ""})
			continue
		}
		amp := math.Max(floats.Max(row), -floats.Min(row))
		table = append(table, []string{fmt.Sprintf("%.4g", y), fmt.Sprintf("%.6g", amp), "`" + viz.Sparkline(row, len(row)) + "`"})
	}
	b.Table([]string{axis, "amplitude (m)", "x(t)"}, table)
}

func runModes(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	exp, err := experiment.New(cfg, experiment.WithLogger(log))
	if err != nil {
		return err
	}
	lin, ok := exp.System().(physics.Linear)
	if !ok {
		return fmt.Errorf("model %s has no system matrix", cfg.Model)
	}
	modal, err := physics.Modes(lin)
	if err != nil {
		return err
	}

	var b report.Builder
	b.Paragraph("%s", experiment.Describe(cfg))
	report.Modes(&b, modal, cfg.Dt)
	return show(&b, modal)
}

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	var b report.Builder
	b.Heading(1, "Bridge deck vibration report")
	b.Paragraph("%s", experiment.Describe(cfg))

	exp, err := experiment.New(cfg, experiment.WithLogger(log))
	if err != nil {
		return err
	}
	if lin, ok := exp.System().(physics.Linear); ok {
		modal, err := physics.Modes(lin)
		if err != nil {
			return err
		}
		report.Modes(&b, modal, cfg.Dt)
	}

	sweep, err := experiment.Sweep(ctx, cfg)
	if err != nil {
		return err
	}
	report.Sweep(&b, "Frequency sweep", sweep)

	v, err := experiment.Validate(ctx, cfg)
	if err != nil {
		return err
	}
	report.Validation(&b, v, samples)

	conv, err := experiment.Converge(ctx, cfg, nil)
	if err != nil {
		return err
	}
	report.Convergence(&b, conv)

	runs, err := experiment.Damping(ctx, cfg)
	if err != nil {
		return err
	}
	report.Damping(&b, runs, cfg.Damping.SampleTimes)

	if jsonOut {
		return printJSON(map[string]any{
			"sweep":       sweep,
			"validation":  v,
			"convergence": conv,
			"damping":     runs,
		})
	}
	if outFile != "" {
		return os.WriteFile(outFile, []byte(b.String()), 0644)
	}
	return show(&b, nil)
}
