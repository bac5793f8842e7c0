package export

import (
	"errors"
	"fmt"
	"io"

	"github.com/san-kum/bridgesim/internal/analysis"
	"github.com/san-kum/bridgesim/internal/analytic"
	"github.com/san-kum/bridgesim/internal/dynamo"
	"github.com/san-kum/bridgesim/internal/physics"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

var ErrNoData = errors.New("export: nothing to plot")

// Line is one labelled curve of a line plot.
type Line struct {
	Label string
	X, Y  []float64
}

// LinePlot builds a plot with one coloured line per entry.
func LinePlot(title, xlabel, ylabel string, lines ...Line) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	drawn := 0
	for i, l := range lines {
		if len(l.X) != len(l.Y) {
			return nil, fmt.Errorf("export: line %q has %d x and %d y values", l.Label, len(l.X), len(l.Y))
		}
		if len(l.X) == 0 {
			continue
		}
		pts := make(plotter.XYs, len(l.X))
		for j := range l.X {
			pts[j].X = l.X[j]
			pts[j].Y = l.Y[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		if l.Label != "" {
			p.Legend.Add(l.Label, line)
		}
		drawn++
	}
	if drawn == 0 {
		return nil, ErrNoData
	}
	p.Legend.Top = true
	return p, nil
}

// WritePNG renders p at the given size in inches.
func WritePNG(w io.Writer, p *plot.Plot, widthIn, heightIn float64, dpi int) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(dpi),
	)
	p.Draw(draw.New(c))

	pngc := vgimg.PngCanvas{Canvas: c}
	if _, err := pngc.WriteTo(w); err != nil {
		return fmt.Errorf("export: write png: %w", err)
	}
	return nil
}

// SeriesPlot plots the displacement of every DOF against time.
func SeriesPlot(ts *dynamo.TimeSeries, title string) (*plot.Plot, error) {
	if ts.Len() == 0 {
		return nil, ErrNoData
	}
	n := ts.States[0].DOF()
	lines := make([]Line, n)
	for dof := 0; dof < n; dof++ {
		label := "x"
		if n == physics.Corners {
			label = physics.CornerName(dof)
		}
		lines[dof] = Line{Label: label, X: ts.Times, Y: ts.Displacement(dof)}
	}
	return LinePlot(title, "time (s)", "displacement (m)", lines...)
}

// SweepPlot compares numerical and theoretical amplitude against the
// frequency ratio. Points without a steady state are left out of the
// theoretical curve.
func SweepPlot(results []analysis.SweepResult) (*plot.Plot, error) {
	var num, theo Line
	num.Label, theo.Label = "numerical", "theoretical"
	for _, r := range results {
		if !r.Unstable {
			num.X = append(num.X, r.Ratio)
			num.Y = append(num.Y, r.Numerical)
		}
		if !r.NoSteadyState {
			theo.X = append(theo.X, r.Ratio)
			theo.Y = append(theo.Y, r.Theoretical)
		}
	}
	return LinePlot("Frequency sweep", "Ω/ωn", "amplitude (m)", theo, num)
}

func ValidationPlot(v *analysis.Validation) (*plot.Plot, error) {
	ana := Line{Label: "analytical"}
	num := Line{Label: "numeric"}
	for _, r := range v.Records {
		ana.X = append(ana.X, r.Time)
		ana.Y = append(ana.Y, r.Analytical)
		num.X = append(num.X, r.Time)
		num.Y = append(num.Y, r.Numeric)
	}
	return LinePlot("Validation ("+v.Regime.String()+")", "time (s)", "displacement (m)", ana, num)
}

// BodePlot draws the magnitude on a logarithmic frequency axis.
func BodePlot(points []analytic.BodePoint) (*plot.Plot, error) {
	mag := Line{Label: "|H| (dB)"}
	for _, p := range points {
		mag.X = append(mag.X, p.Omega)
		mag.Y = append(mag.Y, p.MagnitudeDB)
	}
	p, err := LinePlot("Receptance", "ω (rad/s)", "magnitude (dB)", mag)
	if err != nil {
		return nil, err
	}
	p.X.Scale = plot.LogScale{}
	p.X.Tick.Marker = plot.LogTicks{Prec: -1}
	return p, nil
}
