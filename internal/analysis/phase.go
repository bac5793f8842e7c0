package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/bridgesim/internal/dynamo"
)

type PhasePoint struct{ X, Y float64 }

// PhasePortrait2D is the (displacement, velocity) trajectory of one DOF.
type PhasePortrait2D struct {
	DOF    int
	Points []PhasePoint
}

// PhasePortrait extracts the trajectory of dof from a run, starting at
// time from.
func PhasePortrait(ts *dynamo.TimeSeries, dof int, from float64) *PhasePortrait2D {
	if ts.Len() == 0 || 2*dof+1 >= len(ts.States[0]) {
		return nil
	}
	start := ts.Window(from)
	portrait := &PhasePortrait2D{
		DOF:    dof,
		Points: make([]PhasePoint, 0, ts.Len()-start),
	}
	for _, s := range ts.States[start:] {
		portrait.Points = append(portrait.Points, PhasePoint{X: s.Position(dof), Y: s.Velocity(dof)})
	}
	return portrait
}

// Stroboscopic samples the phase point of dof once per forcing period
// starting at time from. In steady state all points coincide.
func Stroboscopic(ts *dynamo.TimeSeries, dof int, omega, from float64) *PhasePortrait2D {
	if ts.Len() == 0 || !(omega > 0) || 2*dof+1 >= len(ts.States[0]) {
		return nil
	}
	period := 2 * math.Pi / omega
	end := ts.Times[ts.Len()-1]
	section := &PhasePortrait2D{DOF: dof}
	for t := from; t <= end+1e-9*ts.Dt; t += period {
		s := ts.States[ts.Sample(t)]
		section.Points = append(section.Points, PhasePoint{X: s.Position(dof), Y: s.Velocity(dof)})
	}
	return section
}

// PhasePortraitToASCII plots the portrait on a width×height character grid.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y
	for _, p := range portrait.Points {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
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

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	// axes
	if minX <= 0 && maxX >= 0 {
		col := int((0 - minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
