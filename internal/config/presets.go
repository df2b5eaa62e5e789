package config

import "sort"

var Presets = map[string]map[string]*Config{
	"square": {
		"ferromagnet": {
			Geometry:    GeometryConfig{Lattice: "square", NCells: [3]int{20, 20, 1}, LatticeConstant: 1},
			Hamiltonian: HamiltonianConfig{Kind: "pairs", Chirality: 1},
			Chain:       ChainConfig{Images: 1},
			Relax:       RelaxConfig{StepSize: 0.1, MaxSteps: 2000, Tolerance: 1e-6, Init: InitRandom},
		},
		"skyrmion": {
			Geometry:    GeometryConfig{Lattice: "square", NCells: [3]int{30, 30, 1}, LatticeConstant: 1},
			Hamiltonian: HamiltonianConfig{Kind: "pairs", Chirality: 2},
			Chain:       ChainConfig{Images: 1},
			Relax:       RelaxConfig{StepSize: 0.05, MaxSteps: 5000, Tolerance: 1e-7, Init: InitPlusZ},
		},
	},
	"hex": {
		"bloch": {
			Geometry:    GeometryConfig{Lattice: "hex", NCells: [3]int{24, 24, 1}, LatticeConstant: 1},
			Hamiltonian: HamiltonianConfig{Kind: "shells", Chirality: 1},
			Chain:       ChainConfig{Images: 1},
			Relax:       RelaxConfig{StepSize: 0.05, MaxSteps: 5000, Tolerance: 1e-7, Init: InitRandom},
		},
		"neel": {
			Geometry:    GeometryConfig{Lattice: "hex", NCells: [3]int{24, 24, 1}, LatticeConstant: 1},
			Hamiltonian: HamiltonianConfig{Kind: "pairs", Chirality: 2},
			Chain:       ChainConfig{Images: 1},
			Relax:       RelaxConfig{StepSize: 0.05, MaxSteps: 5000, Tolerance: 1e-7, Init: InitRandom},
		},
	},
	"sc": {
		"bulk": {
			Geometry:    GeometryConfig{Lattice: "sc", NCells: [3]int{8, 8, 8}, LatticeConstant: 1},
			Hamiltonian: HamiltonianConfig{Kind: "pairs", Chirality: 1},
			Chain:       ChainConfig{Images: 1},
			Relax:       RelaxConfig{StepSize: 0.1, MaxSteps: 2000, Tolerance: 1e-6, Init: InitRandom},
		},
		"chain": {
			Geometry:    GeometryConfig{Lattice: "sc", NCells: [3]int{6, 6, 6}, LatticeConstant: 1},
			Hamiltonian: HamiltonianConfig{Kind: "shells", Chirality: 1},
			Chain:       ChainConfig{Images: 4},
			Relax:       RelaxConfig{StepSize: 0.1, MaxSteps: 1000, Tolerance: 1e-6, Init: InitRandom, Seed: 7},
		},
	},
}

// GetPreset returns a copy of the named preset with defaults filled in, or nil.
func GetPreset(lattice, preset string) *Config {
	latticePresets, ok := Presets[lattice]
	if !ok {
		return nil
	}
	p, ok := latticePresets[preset]
	if !ok {
		return nil
	}
	cfg := *p
	def := DefaultConfig()
	if cfg.Log == (LogConfig{}) {
		cfg.Log = def.Log
	}
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	return &cfg
}

func ListPresets(lattice string) []string {
	latticePresets, ok := Presets[lattice]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(latticePresets))
	for name := range latticePresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
