package physics

import (
	"fmt"

	"github.com/san-kum/bridgesim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
)

const (
	DefaultDeckLength = 100.0
	DefaultDeckWidth  = 20.0

	shapeRowsPerChunk = 64
)

// Surface is a displacement field sampled on a regular grid: Z[j][i] is
// the value at (X[i], Y[j]).
type Surface struct {
	X []float64   `json:"x"`
	Y []float64   `json:"y"`
	Z [][]float64 `json:"z"`
}

// DeckShape interpolates the four corner displacements bilinearly over a
// length×width deck. FrontLeft sits at (0, 0), FrontRight at (length, 0),
// BackLeft at (0, width) and BackRight at (length, width).
func DeckShape(disp [Corners]float64, length, width float64, nx, ny int) (*Surface, error) {
	if !(length > 0) || !(width > 0) {
		return nil, fmt.Errorf("%w: deck dimensions %gx%g", ErrInvalidParams, length, width)
	}
	if nx < 2 || ny < 2 {
		return nil, fmt.Errorf("%w: grid %dx%d needs at least 2 points per axis", ErrInvalidParams, nx, ny)
	}

	s := &Surface{
		X: floats.Span(make([]float64, nx), 0, length),
		Y: floats.Span(make([]float64, ny), 0, width),
		Z: make([][]float64, ny),
	}
	err := dynamo.ParallelFor(ny, shapeRowsPerChunk, func(start, end int) error {
		for j := start; j < end; j++ {
			v := s.Y[j] / width
			row := make([]float64, nx)
			for i, x := range s.X {
				u := x / length
				row[i] = disp[FrontLeft]*(1-u)*(1-v) +
					disp[FrontRight]*u*(1-v) +
					disp[BackLeft]*(1-u)*v +
					disp[BackRight]*u*v
			}
			if floats.HasNaN(row) {
				return fmt.Errorf("%w: non-finite corner displacement %v", ErrInvalidParams, disp)
			}
			s.Z[j] = row
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s, nil
}

// CornerDisplacements extracts the four corner positions from a deck state.
func CornerDisplacements(x []float64) [Corners]float64 {
	var d [Corners]float64
	for i := range d {
		d[i] = x[2*i]
	}
	return d
}
