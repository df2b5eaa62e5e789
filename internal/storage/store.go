package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/san-kum/spinlab/internal/engine"
	"github.com/san-kum/spinlab/internal/spin"
)

var ErrEmptyRun = errors.New("storage: run has no recorded steps")

// Store keeps one directory per relaxation run under baseDir.
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
	ID          string             `json:"id"`
	Lattice     string             `json:"lattice"`
	Hamiltonian string             `json:"hamiltonian"`
	Chirality   string             `json:"chirality"`
	NSpins      int                `json:"n_spins"`
	Image       int                `json:"image"`
	Chain       int                `json:"chain"`
	Timestamp   time.Time          `json:"timestamp"`
	Seed        int64              `json:"seed"`
	StepSize    float64            `json:"step_size"`
	Tolerance   float64            `json:"tolerance"`
	StepsTaken  int                `json:"steps_taken"`
	Converged   bool               `json:"converged"`
	FinalEnergy float64            `json:"final_energy"`
	Metrics     map[string]float64 `json:"metrics"`
}

// Save writes metadata.json, energies.csv and spins.csv for one run and
// returns its generated ID. ID, Timestamp and the result fields of meta are
// filled in here.
func (s *Store) Save(meta RunMetadata, result *engine.Result, spins spin.Field) (string, error) {
	if len(result.Energies) == 0 {
		return "", ErrEmptyRun
	}

	meta.ID = uuid.New().String()
	meta.Timestamp = time.Now()
	meta.StepsTaken = result.StepsTaken
	meta.Converged = result.Converged
	meta.FinalEnergy = result.Final.Total()
	meta.Metrics = result.Metrics
	meta.NSpins = len(spins)

	runDir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	energies := make([][]string, 0, len(result.Energies)+1)
	energies = append(energies, []string{"step", "energy"})
	for i, e := range result.Energies {
		energies = append(energies, []string{strconv.Itoa(i), formatFloat(e)})
	}
	if err := writeCSV(filepath.Join(runDir, "energies.csv"), energies); err != nil {
		return "", err
	}

	rows := make([][]string, 0, len(spins)+1)
	rows = append(rows, []string{"x", "y", "z"})
	for _, v := range spins {
		rows = append(rows, []string{formatFloat(v[0]), formatFloat(v[1]), formatFloat(v[2])})
	}
	if err := writeCSV(filepath.Join(runDir, "spins.csv"), rows); err != nil {
		return "", err
	}

	return meta.ID, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return err
	}
	return w.Error()
}

// List returns every readable run, newest first.
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

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

func readCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	return r.ReadAll()
}

// LoadEnergies returns the total energy of every recorded step.
func (s *Store) LoadEnergies(runID string) ([]float64, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, "energies.csv"))
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []float64{}, nil
	}

	energies := make([]float64, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) < 2 {
			return nil, fmt.Errorf("energies.csv line %d: expected 2 fields, got %d", i+2, len(record))
		}
		e, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, fmt.Errorf("energies.csv line %d: %w", i+2, err)
		}
		energies = append(energies, e)
	}
	return energies, nil
}

// LoadSpins returns the final spin configuration of a run.
func (s *Store) LoadSpins(runID string) (spin.Field, error) {
	records, err := readCSV(filepath.Join(s.baseDir, runID, "spins.csv"))
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return spin.Field{}, nil
	}

	field := make(spin.Field, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != 3 {
			return nil, fmt.Errorf("spins.csv line %d: expected 3 fields, got %d", i+2, len(record))
		}
		var v spin.Vector3
		for k := range v {
			c, err := strconv.ParseFloat(record[k], 64)
			if err != nil {
				return nil, fmt.Errorf("spins.csv line %d: %w", i+2, err)
			}
			v[k] = c
		}
		field = append(field, v)
	}
	return field, nil
}
