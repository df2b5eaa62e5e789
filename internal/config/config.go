package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/san-kum/spinlab/internal/geometry"
	"github.com/san-kum/spinlab/internal/hamiltonian"
	"github.com/san-kum/spinlab/internal/neighbours"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLattice         = "square"
	DefaultCells           = 10
	DefaultLatticeConstant = 1.0
	DefaultImages          = 1
	DefaultStepSize        = 0.1
	DefaultMaxSteps        = 1000
	DefaultTolerance       = 1e-6
	DefaultDataDir         = "./data"
)

const (
	InitPlusZ  = "plus_z"
	InitRandom = "random"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config describes how the state is set up. Hamiltonian parameter values are
// never read from it; they are applied through the api.
type Config struct {
	Geometry    GeometryConfig    `yaml:"geometry"`
	Hamiltonian HamiltonianConfig `yaml:"hamiltonian"`
	Chain       ChainConfig       `yaml:"chain"`
	Log         LogConfig         `yaml:"log"`
	Relax       RelaxConfig       `yaml:"relax"`
	DataDir     string            `yaml:"data_dir"`
}

type GeometryConfig struct {
	Lattice         string  `yaml:"lattice"`
	NCells          [3]int  `yaml:"n_cells,flow"`
	LatticeConstant float64 `yaml:"lattice_constant"`
}

type HamiltonianConfig struct {
	Kind      string `yaml:"kind"`
	Chirality int    `yaml:"chirality"`
}

type ChainConfig struct {
	Images int `yaml:"images"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

type RelaxConfig struct {
	StepSize  float64 `yaml:"step_size"`
	MaxSteps  int     `yaml:"max_steps"`
	Tolerance float64 `yaml:"tolerance"`
	Init      string  `yaml:"init"`
	Seed      int64   `yaml:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		Geometry: GeometryConfig{
			Lattice:         DefaultLattice,
			NCells:          [3]int{DefaultCells, DefaultCells, 1},
			LatticeConstant: DefaultLatticeConstant,
		},
		Hamiltonian: HamiltonianConfig{
			Kind:      string(hamiltonian.KindPairs),
			Chirality: int(neighbours.Bloch),
		},
		Chain: ChainConfig{Images: DefaultImages},
		Log:   LogConfig{Level: "info", Format: "console"},
		Relax: RelaxConfig{
			StepSize:  DefaultStepSize,
			MaxSteps:  DefaultMaxSteps,
			Tolerance: DefaultTolerance,
			Init:      InitRandom,
		},
		DataDir: DefaultDataDir,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if _, err := hamiltonian.ParseKind(c.Hamiltonian.Kind); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if !c.ChiralityValue().Valid() {
		return fmt.Errorf("%w: chirality %d", ErrInvalidConfig, c.Hamiltonian.Chirality)
	}
	if c.Chain.Images < 1 {
		return fmt.Errorf("%w: chain needs at least one image, got %d", ErrInvalidConfig, c.Chain.Images)
	}
	if !slices.Contains(geometry.Lattices(), c.Geometry.Lattice) {
		return fmt.Errorf("%w: unknown lattice %q", ErrInvalidConfig, c.Geometry.Lattice)
	}
	for i, n := range c.Geometry.NCells {
		if n < 1 {
			return fmt.Errorf("%w: n_cells[%d] = %d", ErrInvalidConfig, i, n)
		}
	}
	if c.Geometry.LatticeConstant <= 0 {
		return fmt.Errorf("%w: lattice constant must be positive", ErrInvalidConfig)
	}
	if c.Relax.StepSize <= 0 || c.Relax.MaxSteps < 1 {
		return fmt.Errorf("%w: relax needs a positive step size and step budget", ErrInvalidConfig)
	}
	switch c.Relax.Init {
	case InitPlusZ, InitRandom:
	default:
		return fmt.Errorf("%w: unknown init %q", ErrInvalidConfig, c.Relax.Init)
	}
	return nil
}

// BuildGeometry constructs the lattice described by the geometry section.
func (c *Config) BuildGeometry() (*geometry.Geometry, error) {
	return geometry.FromLattice(c.Geometry.Lattice, c.Geometry.NCells, c.Geometry.LatticeConstant)
}

func (c *Config) Kind() hamiltonian.Kind {
	return hamiltonian.Kind(c.Hamiltonian.Kind)
}

// ChiralityValue maps an unset chirality to Bloch.
func (c *Config) ChiralityValue() neighbours.Chirality {
	if c.Hamiltonian.Chirality == 0 {
		return neighbours.Bloch
	}
	return neighbours.Chirality(c.Hamiltonian.Chirality)
}
