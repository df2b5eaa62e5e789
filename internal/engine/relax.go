package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/spinlab/internal/hamiltonian"
	"github.com/san-kum/spinlab/internal/spin"
)

// System is what the relaxer drives. Evaluate must read the Hamiltonian
// under the image's parameter lock.
type System interface {
	Spins() spin.Field
	SetSpins(f spin.Field) error
	Evaluate(spins, grad spin.Field) (hamiltonian.Energy, error)
}

// Relaxer minimizes the energy of a spin configuration by projected steepest
// descent.
type Relaxer struct {
	metrics   []Metric
	observers []Observer
}

func New() *Relaxer {
	return &Relaxer{
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (r *Relaxer) AddMetric(m Metric)     { r.metrics = append(r.metrics, m) }
func (r *Relaxer) AddObserver(o Observer) { r.observers = append(r.observers, o) }

// Run relaxes sys until the largest torque drops below cfg.Tolerance, the
// step budget runs out, or ctx is cancelled. Spins are written back after
// every step, so a cancelled run leaves sys at its last configuration.
func (r *Relaxer) Run(ctx context.Context, sys System, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	result := &Result{
		Energies: make([]float64, 0, cfg.MaxSteps),
		Metrics:  make(map[string]float64),
	}
	for _, m := range r.metrics {
		m.Reset()
	}

	s := sys.Spins()
	grad := make(spin.Field, len(s))
	torque := make(spin.Field, len(s))

	for i := 0; i < cfg.MaxSteps; i++ {
		select {
		case <-ctx.Done():
			r.collect(result)
			return result, ctx.Err()
		default:
		}

		e, err := sys.Evaluate(s, grad)
		if err != nil {
			return result, fmt.Errorf("step %d: %w", i, err)
		}
		maxTorque := project(s, grad, torque)

		step := Step{Index: i, Energy: e, MaxTorque: maxTorque}
		for _, m := range r.metrics {
			m.Observe(step)
		}
		for _, obs := range r.observers {
			obs.OnStep(step)
		}
		result.Energies = append(result.Energies, e.Total())
		result.Final = e
		result.MaxTorque = maxTorque

		if maxTorque < cfg.Tolerance {
			result.Converged = true
			break
		}

		for j := range s {
			if next, ok := s[j].Sub(torque[j].Scale(cfg.StepSize)).Normalized(); ok {
				s[j] = next
			}
		}
		if cfg.ValidateState && !s.IsValid() {
			return result, RelaxError{Step: i, Message: "invalid spin configuration (NaN/Inf)"}
		}
		if err := sys.SetSpins(s); err != nil {
			return result, fmt.Errorf("step %d: %w", i, err)
		}
		result.StepsTaken++
	}

	if !result.Converged {
		e, err := sys.Evaluate(s, nil)
		if err != nil {
			return result, err
		}
		result.Final = e
	}

	r.collect(result)
	return result, nil
}

func (r *Relaxer) collect(result *Result) {
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// project stores the component of grad perpendicular to each spin in torque
// and returns its largest norm.
func project(s, grad, torque spin.Field) float64 {
	maxTorque := 0.0
	for i := range s {
		torque[i] = grad[i].Sub(s[i].Scale(grad[i].Dot(s[i])))
		maxTorque = math.Max(maxTorque, torque[i].Norm())
	}
	return maxTorque
}

func validateConfig(cfg Config) error {
	if cfg.StepSize <= 0 {
		return fmt.Errorf("step size must be positive, got %f", cfg.StepSize)
	}
	if cfg.MaxSteps < 1 {
		return fmt.Errorf("max steps must be at least 1, got %d", cfg.MaxSteps)
	}
	if cfg.Tolerance < 0 {
		return fmt.Errorf("tolerance must not be negative, got %g", cfg.Tolerance)
	}
	return nil
}
