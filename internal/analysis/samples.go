package analysis

import (
	"math"

	"github.com/san-kum/bridgesim/internal/dynamo"
)

// SampleRow is one row of a lookup table.
type SampleRow struct {
	Time   float64   `json:"time"`
	Values []float64 `json:"values"`
}

// SampleAt returns the displacement of each listed DOF at the samples
// nearest to the requested times.
func SampleAt(ts *dynamo.TimeSeries, times []float64, dofs ...int) []SampleRow {
	if ts.Len() == 0 {
		return nil
	}
	if len(dofs) == 0 {
		dofs = make([]int, ts.States[0].DOF())
		for i := range dofs {
			dofs[i] = i
		}
	}
	rows := make([]SampleRow, len(times))
	for i, t := range times {
		k := ts.Sample(t)
		vals := make([]float64, len(dofs))
		for j, d := range dofs {
			vals[j] = ts.States[k].Position(d)
		}
		rows[i] = SampleRow{Time: ts.Times[k], Values: vals}
	}
	return rows
}

// Envelope returns |x| of one DOF at the samples nearest to times.
func Envelope(ts *dynamo.TimeSeries, dof int, times []float64) []float64 {
	out := make([]float64, len(times))
	if ts.Len() == 0 {
		return out
	}
	for i, t := range times {
		out[i] = math.Abs(ts.States[ts.Sample(t)].Position(dof))
	}
	return out
}

// PeakEnvelope returns max |x| of one DOF over consecutive windows of the
// given length, with the window start times.
func PeakEnvelope(ts *dynamo.TimeSeries, dof int, window float64) (starts, peaks []float64) {
	if ts.Len() == 0 || !(window > 0) {
		return nil, nil
	}
	per := int(math.Round(window / ts.Dt))
	if per < 1 {
		per = 1
	}
	for k := 0; k < ts.Len(); k += per {
		end := min(k+per, ts.Len())
		var peak float64
		for _, s := range ts.States[k:end] {
			peak = math.Max(peak, math.Abs(s.Position(dof)))
		}
		starts = append(starts, ts.Times[k])
		peaks = append(peaks, peak)
	}
	return starts, peaks
}
