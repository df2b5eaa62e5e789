package storage

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/san-kum/spinlab/internal/engine"
	"github.com/san-kum/spinlab/internal/hamiltonian"
	"github.com/san-kum/spinlab/internal/spin"
)

func testResult() *engine.Result {
	return &engine.Result{
		Energies:   []float64{-1.5, -2.25, -2.3125},
		Final:      hamiltonian.Energy{Exchange: -2.0, Anisotropy: -0.3125},
		StepsTaken: 2,
		Converged:  true,
		Metrics:    map[string]float64{"max_torque": 1e-7},
	}
}

func TestStoreSaveLoad(t *testing.T) {
	st := New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	spins := spin.Field{{0, 0, 1}, {0.6, 0, 0.8}}
	runID, err := st.Save(RunMetadata{Lattice: "square", Hamiltonian: hamiltonian.NamePairs, Seed: 42}, testResult(), spins)
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if runID == "" {
		t.Fatal("expected non-empty run id")
	}

	meta, err := st.Load(runID)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Lattice != "square" || meta.Seed != 42 {
		t.Errorf("metadata mismatch: %+v", meta)
	}
	if meta.NSpins != 2 || meta.StepsTaken != 2 || !meta.Converged {
		t.Errorf("result fields not recorded: %+v", meta)
	}
	if meta.FinalEnergy != -2.3125 {
		t.Errorf("expected final energy -2.3125, got %f", meta.FinalEnergy)
	}
	if meta.Metrics["max_torque"] != 1e-7 {
		t.Errorf("expected max_torque metric, got %v", meta.Metrics)
	}

	energies, err := st.LoadEnergies(runID)
	if err != nil {
		t.Fatalf("load energies failed: %v", err)
	}
	if len(energies) != 3 || energies[2] != -2.3125 {
		t.Errorf("expected energies to round trip exactly, got %v", energies)
	}

	loaded, err := st.LoadSpins(runID)
	if err != nil {
		t.Fatalf("load spins failed: %v", err)
	}
	if len(loaded) != 2 || loaded[1] != spins[1] {
		t.Errorf("expected spins %v, got %v", spins, loaded)
	}
}

func TestStoreSave_EmptyRun(t *testing.T) {
	st := New(t.TempDir())
	_, err := st.Save(RunMetadata{}, &engine.Result{}, nil)
	if err != ErrEmptyRun {
		t.Errorf("expected ErrEmptyRun, got %v", err)
	}
}

func TestStoreList(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)

	runs, err := st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}

	first, _ := st.Save(RunMetadata{Lattice: "sc"}, testResult(), spin.Field{{0, 0, 1}})
	second, _ := st.Save(RunMetadata{Lattice: "hex"}, testResult(), spin.Field{{0, 0, 1}})

	// stray entries are skipped
	if err := os.MkdirAll(filepath.Join(dir, "broken"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	ids := map[string]bool{runs[0].ID: true, runs[1].ID: true}
	if !ids[first] || !ids[second] {
		t.Errorf("expected runs %s and %s, got %v", first, second, ids)
	}
	if runs[0].Timestamp.Before(runs[1].Timestamp) {
		t.Error("expected newest run first")
	}
}

func TestStoreList_MissingDir(t *testing.T) {
	st := New(filepath.Join(t.TempDir(), "nonexistent"))
	runs, err := st.List()
	if err != nil {
		t.Fatalf("expected no error for missing dir, got %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("expected 0 runs, got %d", len(runs))
	}
}

func TestStoreLoad_NotFound(t *testing.T) {
	st := New(t.TempDir())
	if _, err := st.Load("nonexistent"); err == nil {
		t.Error("expected error for nonexistent run")
	}
	if _, err := st.LoadEnergies("nonexistent"); err == nil {
		t.Error("expected error for nonexistent energies")
	}
}

func TestLoadSpins_Malformed(t *testing.T) {
	dir := t.TempDir()
	st := New(dir)
	runDir := filepath.Join(dir, "bad")
	if err := os.MkdirAll(runDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(runDir, "spins.csv"), []byte("x,y,z\n1,2\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := st.LoadSpins("bad"); err == nil {
		t.Error("expected error for short spin row")
	}
}

func TestWriteJSON(t *testing.T) {
	st := New(t.TempDir())
	runID, err := st.Save(RunMetadata{Lattice: "square"}, testResult(), spin.Field{{1, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := st.WriteJSON(runID, &buf); err != nil {
		t.Fatalf("write json failed: %v", err)
	}

	var data ExportData
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if data.ID != runID || data.Lattice != "square" {
		t.Errorf("metadata not inlined: %+v", data.RunMetadata)
	}
	if len(data.Energies) != 3 || len(data.Spins) != 1 || data.Spins[0] != [3]float64{1, 0, 0} {
		t.Errorf("unexpected export payload: %+v", data)
	}

	path := filepath.Join(t.TempDir(), "run.json")
	if err := st.ExportJSON(runID, path); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("export file missing: %v", err)
	}
}
