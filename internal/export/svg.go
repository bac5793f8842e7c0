package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/bridgesim/internal/analysis"
	"github.com/san-kum/bridgesim/internal/dynamo"
)

type Point struct{ X, Y float64 }

// Path is one polyline of an SVG chart.
type Path struct {
	Points []Point
	Color  string
}

// CornerColors are the stroke colours of deck corners 0..3.
var CornerColors = []string{"#00d7ff", "#ff5f87", "#afff5f", "#ffaf00"}

// TrajectoryToSVG creates an SVG from trajectory data
func TrajectoryToSVG(points []Point, width, height int, strokeColor string) string {
	return PathsToSVG([]Path{{Points: points, Color: strokeColor}}, width, height)
}

// PathsToSVG draws all paths on shared axes with 10% padding.
func PathsToSVG(paths []Path, width, height int) string {
	var first *Point
	minX, maxX, minY, maxY := 0.0, 0.0, 0.0, 0.0
	for _, path := range paths {
		for i := range path.Points {
			p := path.Points[i]
			if first == nil {
				first = &path.Points[i]
				minX, maxX, minY, maxY = p.X, p.X, p.Y, p.Y
				continue
			}
			minX, maxX = min(minX, p.X), max(maxX, p.X)
			minY, maxY = min(minY, p.Y), max(maxY, p.Y)
		}
	}
	if first == nil {
		return ""
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for _, path := range paths {
		if len(path.Points) < 2 {
			continue
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, path.Color)
		for i, p := range path.Points {
			x := (p.X - minX) / rangeX * float64(width)
			y := float64(height) - (p.Y-minY)/rangeY*float64(height)
			if i == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	sb.WriteString("</svg>")
	return sb.String()
}

// SeriesToSVG plots displacement against time for each DOF of ts.
func SeriesToSVG(ts *dynamo.TimeSeries, width, height int) string {
	if ts.Len() == 0 {
		return ""
	}
	n := ts.States[0].DOF()
	paths := make([]Path, n)
	for dof := 0; dof < n; dof++ {
		xs := ts.Displacement(dof)
		pts := make([]Point, len(xs))
		for i, x := range xs {
			pts[i] = Point{ts.Times[i], x}
		}
		paths[dof] = Path{Points: pts, Color: CornerColors[dof%len(CornerColors)]}
	}
	return PathsToSVG(paths, width, height)
}

func PhaseToSVG(portrait *analysis.PhasePortrait2D, width, height int) string {
	if portrait == nil {
		return ""
	}
	pts := make([]Point, len(portrait.Points))
	for i, p := range portrait.Points {
		pts[i] = Point(p)
	}
	return TrajectoryToSVG(pts, width, height, CornerColors[portrait.DOF%len(CornerColors)])
}
