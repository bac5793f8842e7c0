package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/bridgesim/internal/analysis"
	"github.com/san-kum/bridgesim/internal/dynamo"
)

const (
	KindRun        = "run"
	KindSweep      = "sweep"
	KindValidation = "validation"

	metadataFile   = "metadata.json"
	statesFile     = "states.csv"
	sweepFile      = "sweep.csv"
	validationFile = "validation.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID          string              `json:"id"`
	Kind        string              `json:"kind"`
	Model       string              `json:"model"`
	Timestamp   time.Time           `json:"timestamp"`
	Dt          float64             `json:"dt"`
	Duration    float64             `json:"duration"`
	Integrator  string              `json:"integrator"`
	Forcing     string              `json:"forcing,omitempty"`
	Steps       int                 `json:"steps"`
	Params      map[string]float64  `json:"params,omitempty"`
	Metrics     map[string]float64  `json:"metrics,omitempty"`
	Instability *dynamo.Instability `json:"instability,omitempty"`
}

// Save writes metadata.json and states.csv for one run and returns its ID.
func (s *Store) Save(meta RunMetadata, ts *dynamo.TimeSeries) (string, error) {
	meta.Kind = KindRun
	meta.Steps = ts.StepsTaken
	meta.Metrics = ts.Metrics
	meta.Instability = ts.Instability
	if meta.Dt == 0 {
		meta.Dt = ts.Dt
	}

	runDir, err := s.create(&meta)
	if err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, statesFile), func(w io.Writer) error {
		return WriteStatesCSV(w, ts)
	}); err != nil {
		return "", err
	}
	return meta.ID, nil
}

// SaveSweep stores a sweep table under a new run directory.
func (s *Store) SaveSweep(meta RunMetadata, results []analysis.SweepResult) (string, error) {
	meta.Kind = KindSweep
	meta.Steps = len(results)
	runDir, err := s.create(&meta)
	if err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, sweepFile), func(w io.Writer) error {
		return WriteSweepCSV(w, results)
	}); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func (s *Store) SaveValidation(meta RunMetadata, v *analysis.Validation) (string, error) {
	meta.Kind = KindValidation
	meta.Steps = len(v.Records)
	meta.Instability = v.Instability
	meta.Metrics = map[string]float64{
		"max_abs_error": v.Summary.MaxAbs,
		"rms_error":     v.Summary.RMS,
		"max_rel_error": v.Summary.MaxRel,
		"amplitude":     v.Amplitude,
	}
	runDir, err := s.create(&meta)
	if err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, validationFile), func(w io.Writer) error {
		return WriteValidationCSV(w, v.Records)
	}); err != nil {
		return "", err
	}
	return meta.ID, nil
}

func (s *Store) create(meta *RunMetadata) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	meta.ID = id.String()
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}
	err = writeFile(filepath.Join(runDir, metadataFile), func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(meta)
	})
	if err != nil {
		return "", err
	}
	return runDir, nil
}

func writeFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// List returns stored runs, oldest first. Directories without readable
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadStates reads states.csv back as rows of state values and their times.
func (s *Store) LoadStates(runID string) ([]dynamo.State, []float64, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, statesFile))
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) < 2 {
		return []dynamo.State{}, []float64{}, nil
	}

	times := make([]float64, 0, len(records)-1)
	states := make([]dynamo.State, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) == 0 {
			continue
		}
		t, err := strconv.ParseFloat(record[0], 64)
		if err != nil {
			return nil, nil, fmt.Errorf("states.csv line %d: %w", i+2, err)
		}
		state := make(dynamo.State, len(record)-1)
		for j, field := range record[1:] {
			if state[j], err = strconv.ParseFloat(field, 64); err != nil {
				return nil, nil, fmt.Errorf("states.csv line %d: %w", i+2, err)
			}
		}
		times = append(times, t)
		states = append(states, state)
	}
	return states, times, nil
}

// LoadSeries rebuilds the stored time series of a run.
func (s *Store) LoadSeries(runID string) (*RunMetadata, *dynamo.TimeSeries, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	states, times, err := s.LoadStates(runID)
	if err != nil {
		return nil, nil, err
	}
	return meta, &dynamo.TimeSeries{
		Dt:          meta.Dt,
		Times:       times,
		States:      states,
		StepsTaken:  meta.Steps,
		Metrics:     meta.Metrics,
		Instability: meta.Instability,
	}, nil
}
