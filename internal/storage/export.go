package storage

import (
	"encoding/json"
	"io"
	"os"
)

type ExportData struct {
	RunMetadata
	Energies []float64   `json:"energies"`
	Spins    [][3]float64 `json:"spins"`
}

// Export bundles a stored run into a single JSON document.
func (s *Store) Export(runID string) (*ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return nil, err
	}
	energies, err := s.LoadEnergies(runID)
	if err != nil {
		return nil, err
	}
	spins, err := s.LoadSpins(runID)
	if err != nil {
		return nil, err
	}

	data := &ExportData{
		RunMetadata: *meta,
		Energies:    energies,
		Spins:       make([][3]float64, len(spins)),
	}
	for i, v := range spins {
		data.Spins[i] = v
	}
	return data, nil
}

func (s *Store) ExportJSON(runID, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return s.WriteJSON(runID, file)
}

func (s *Store) WriteJSON(runID string, w io.Writer) error {
	data, err := s.Export(runID)
	if err != nil {
		return err
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
