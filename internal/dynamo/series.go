package dynamo

import "math"

// TimeSeries holds the uniformly spaced samples of one run. Sample i is at
// time i*Dt. It is append-only while the run is in progress.
type TimeSeries struct {
	Dt          float64
	Times       []float64
	States      []State
	StepsTaken  int
	EnergyDrift float64
	Metrics     map[string]float64
	Instability *Instability
}

func newTimeSeries(dt float64, capacity int) *TimeSeries {
	return &TimeSeries{
		Dt:      dt,
		Times:   make([]float64, 0, capacity),
		States:  make([]State, 0, capacity),
		Metrics: make(map[string]float64),
	}
}

func (ts *TimeSeries) append(t float64, x State) {
	ts.Times = append(ts.Times, t)
	ts.States = append(ts.States, x)
}

func (ts *TimeSeries) Len() int { return len(ts.Times) }

// Unstable reports whether the run stopped on the divergence bound.
func (ts *TimeSeries) Unstable() bool { return ts.Instability != nil }

// Component extracts one state index across all samples.
func (ts *TimeSeries) Component(idx int) []float64 {
	out := make([]float64, len(ts.States))
	for i, s := range ts.States {
		if idx < len(s) {
			out[i] = s[idx]
		}
	}
	return out
}

// Displacement returns the position history of one DOF.
func (ts *TimeSeries) Displacement(dof int) []float64 { return ts.Component(2 * dof) }

// Velocities returns the velocity history of one DOF.
func (ts *TimeSeries) Velocities(dof int) []float64 { return ts.Component(2*dof + 1) }

// Window returns the index of the first sample with time >= t0, or Len()
// when no sample qualifies.
func (ts *TimeSeries) Window(t0 float64) int {
	for i, t := range ts.Times {
		if t >= t0-1e-9*ts.Dt {
			return i
		}
	}
	return len(ts.Times)
}

// Sample returns the index of the sample nearest to t.
func (ts *TimeSeries) Sample(t float64) int {
	if len(ts.Times) == 0 {
		return -1
	}
	if ts.Dt <= 0 {
		return 0
	}
	i := int(math.Round(t / ts.Dt))
	if i < 0 {
		i = 0
	}
	if i >= len(ts.Times) {
		i = len(ts.Times) - 1
	}
	return i
}

func (ts *TimeSeries) Final() State {
	if len(ts.States) == 0 {
		return nil
	}
	return ts.States[len(ts.States)-1]
}
