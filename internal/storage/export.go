package storage

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/san-kum/bridgesim/internal/analysis"
	"github.com/san-kum/bridgesim/internal/dynamo"
)

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// WriteStatesCSV writes one row per sample: time, then x and v per DOF.
func WriteStatesCSV(w io.Writer, ts *dynamo.TimeSeries) error {
	cw := csv.NewWriter(w)
	if len(ts.States) == 0 {
		cw.Flush()
		return cw.Error()
	}

	header := []string{"time"}
	for i := 0; i < ts.States[0].DOF(); i++ {
		header = append(header, "x"+strconv.Itoa(i), "v"+strconv.Itoa(i))
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i, x := range ts.States {
		row := make([]string, 0, len(x)+1)
		row = append(row, ftoa(ts.Times[i]))
		for _, val := range x {
			row = append(row, ftoa(val))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteSweepCSV(w io.Writer, results []analysis.SweepResult) error {
	cw := csv.NewWriter(w)
	header := []string{"frequency", "ratio", "theoretical", "numerical", "relative_error", "undefined", "no_steady_state", "unstable"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := []string{
			ftoa(r.Frequency), ftoa(r.Ratio), ftoa(r.Theoretical), ftoa(r.Numerical), ftoa(r.RelativeError),
			strconv.FormatBool(r.Undefined), strconv.FormatBool(r.NoSteadyState), strconv.FormatBool(r.Unstable),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func WriteValidationCSV(w io.Writer, records []analysis.ErrorRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "analytical", "numeric", "absolute_error", "relative_error_pct"}); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{ftoa(r.Time), ftoa(r.Analytical), ftoa(r.Numeric), ftoa(r.AbsoluteError), ftoa(r.RelativeError)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type ExportData struct {
	Model       string              `json:"model"`
	Integrator  string              `json:"integrator"`
	Dt          float64             `json:"dt"`
	Duration    float64             `json:"duration"`
	Steps       int                 `json:"steps"`
	Params      map[string]float64  `json:"params,omitempty"`
	Times       []float64           `json:"times"`
	States      []dynamo.State      `json:"states"`
	Metrics     map[string]float64  `json:"metrics"`
	Instability *dynamo.Instability `json:"instability,omitempty"`
}

// ExportJSON writes the full series of a run as indented JSON.
func ExportJSON(w io.Writer, meta RunMetadata, ts *dynamo.TimeSeries) error {
	data := ExportData{
		Model:       meta.Model,
		Integrator:  meta.Integrator,
		Dt:          ts.Dt,
		Duration:    meta.Duration,
		Steps:       ts.StepsTaken,
		Params:      meta.Params,
		Times:       ts.Times,
		States:      ts.States,
		Metrics:     ts.Metrics,
		Instability: ts.Instability,
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(data)
}
