// Package report formats study results as markdown tables and renders
// them for the terminal.
package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/san-kum/bridgesim/internal/analysis"
	"github.com/san-kum/bridgesim/internal/physics"
)

// Builder accumulates markdown sections.
type Builder struct {
	sb strings.Builder
}

func (b *Builder) Heading(level int, text string) {
	fmt.Fprintf(&b.sb, "%s %s\n\n", strings.Repeat("#", level), text)
}

func (b *Builder) Paragraph(format string, args ...any) {
	fmt.Fprintf(&b.sb, format+"\n\n", args...)
}

// Table writes a pipe table. Rows shorter than the header are padded.
func (b *Builder) Table(header []string, rows [][]string) {
	b.sb.WriteString("| " + strings.Join(header, " | ") + " |\n")
	b.sb.WriteString("|" + strings.Repeat("---|", len(header)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(header))
		copy(cells, row)
		b.sb.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	b.sb.WriteString("\n")
}

func (b *Builder) String() string { return b.sb.String() }

func num(v float64) string { return fmt.Sprintf("%.6g", v) }

// Sweep writes the amplitude table of a frequency sweep.
func Sweep(b *Builder, title string, results []analysis.SweepResult) {
	b.Heading(2, title)
	rows := make([][]string, 0, len(results))
	var worst float64
	for _, r := range results {
		theo, rel := num(r.Theoretical), fmt.Sprintf("%.4f%%", 100*r.RelativeError)
		switch {
		case r.Unstable:
			rel = "unstable"
		case r.NoSteadyState:
			theo, rel = "∞", "n/a"
		case r.Undefined:
			rel = "n/a"
		default:
			worst = max(worst, math.Abs(r.RelativeError))
		}
		rows = append(rows, []string{fmt.Sprintf("%.3f", r.Ratio), num(r.Frequency), theo, num(r.Numerical), rel})
	}
	b.Table([]string{"Ω/ωn", "Ω (rad/s)", "theoretical (m)", "numerical (m)", "rel. error"}, rows)
	b.Paragraph("Largest defined relative error: **%.4f%%**", 100*worst)
}

func Validation(b *Builder, v *analysis.Validation, sample int) {
	b.Heading(2, "Validation ("+v.Regime.String()+")")
	s := v.Summary
	b.Table([]string{"samples", "max |e|", "mean |e|", "rms", "max rel. %", "peak numeric", "peak analytical"},
		[][]string{{fmt.Sprint(s.Count), num(s.MaxAbs), num(s.MeanAbs), num(s.RMS), num(s.MaxRel), num(s.PeakNumeric), num(s.PeakAnalytical)}})
	if v.Instability != nil {
		b.Paragraph("Run diverged at %s.", v.Instability.String())
	}
	if sample <= 0 || len(v.Records) == 0 {
		return
	}
	stride := max(1, len(v.Records)/sample)
	rows := make([][]string, 0, sample+1)
	for i := 0; i < len(v.Records); i += stride {
		r := v.Records[i]
		rows = append(rows, []string{num(r.Time), num(r.Analytical), num(r.Numeric), num(r.AbsoluteError), fmt.Sprintf("%.4f", r.RelativeError)})
	}
	b.Table([]string{"t (s)", "analytical", "numeric", "abs. error", "rel. error %"}, rows)
}

func Damping(b *Builder, runs []analysis.DampingRun, sampleTimes []float64) {
	b.Heading(2, "Damping study")
	header := []string{"ζ", "regime", "theoretical", "peak"}
	for _, t := range sampleTimes {
		header = append(header, fmt.Sprintf("|x|@%gs", t))
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		theo := num(r.Theoretical)
		if r.Theoretical == 0 && r.Zeta == 0 {
			theo = "∞"
		}
		row := []string{num(r.Zeta), r.Regime.String(), theo, num(r.Peak)}
		for _, e := range r.Envelope {
			row = append(row, num(e))
		}
		rows = append(rows, row)
	}
	b.Table(header, rows)
}

func Convergence(b *Builder, points []analysis.ConvergencePoint) {
	b.Heading(2, "Step convergence")
	rows := make([][]string, 0, len(points))
	for i, p := range points {
		ratio, order := "", ""
		if i > 0 {
			ratio, order = fmt.Sprintf("%.2f", p.Ratio), fmt.Sprintf("%.2f", p.Order)
		}
		rows = append(rows, []string{num(p.Dt), num(p.MaxError), ratio, order})
	}
	b.Table([]string{"h (s)", "max |e|", "ratio", "order"}, rows)
}

func Modes(b *Builder, m *physics.ModalAnalysis, dt float64) {
	b.Heading(2, "Modes")
	rows := make([][]string, 0, len(m.Frequencies))
	for i, w := range m.Frequencies {
		rows = append(rows, []string{fmt.Sprint(i + 1), num(w), fmt.Sprintf("%.4f", w/(2*math.Pi)), fmt.Sprintf("%.4f", m.DampingRatios[i])})
	}
	b.Table([]string{"mode", "ωd (rad/s)", "fd (Hz)", "ζ"}, rows)
	stable := "inside"
	if !m.StepStable(dt) {
		stable = "**outside**"
	}
	b.Paragraph("Spectral radius %.4g rad/s; h = %g is %s the RK4 stability estimate (max h ≈ %.4g).",
		m.SpectralRadius, dt, stable, m.MaxStableStep())
}

// Render formats markdown for the terminal. style is a glamour standard
// style name; empty selects one from the terminal background.
func Render(markdown, style string) (string, error) {
	opt := glamour.WithAutoStyle()
	if style != "" {
		opt = glamour.WithStandardStyle(style)
	}
	r, err := glamour.NewTermRenderer(opt, glamour.WithWordWrap(120))
	if err != nil {
		return "", err
	}
	return r.Render(markdown)
}
