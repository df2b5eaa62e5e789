package engine

import (
	"fmt"

	"github.com/san-kum/spinlab/internal/hamiltonian"
)

// Step is what observers and metrics see after every relaxation iteration.
type Step struct {
	Index     int
	Energy    hamiltonian.Energy
	MaxTorque float64
}

type Metric interface {
	Name() string
	Observe(s Step)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Step)
}

type Config struct {
	StepSize      float64
	MaxSteps      int
	Tolerance     float64
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		StepSize:      0.1,
		MaxSteps:      1000,
		Tolerance:     1e-6,
		ValidateState: true,
	}
}

type Result struct {
	Energies   []float64
	Final      hamiltonian.Energy
	MaxTorque  float64
	StepsTaken int
	Converged  bool
	Metrics    map[string]float64
}

type RelaxError struct {
	Step    int
	Message string
}

func (e RelaxError) Error() string {
	return fmt.Sprintf("step %d: %s", e.Step, e.Message)
}
