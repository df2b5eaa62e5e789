package metrics

import (
	"math"

	"github.com/san-kum/spinlab/internal/engine"
)

// EnergyChange tracks the relative energy change since the first observed step.
type EnergyChange struct {
	name    string
	initial float64
	current float64
	samples int
}

func NewEnergyChange() *EnergyChange {
	return &EnergyChange{name: "energy_change"}
}

func (e *EnergyChange) Name() string { return e.name }

func (e *EnergyChange) Observe(s engine.Step) {
	total := s.Energy.Total()
	if e.samples == 0 {
		e.initial = total
	}
	e.current = total
	e.samples++
}

func (e *EnergyChange) Value() float64 {
	if e.samples == 0 || e.initial == 0 {
		return 0
	}
	return (e.current - e.initial) / math.Abs(e.initial)
}

func (e *EnergyChange) Reset() {
	e.initial = 0
	e.current = 0
	e.samples = 0
}

// Torque reports the smallest maximum torque seen so far.
type Torque struct {
	name    string
	min     float64
	samples int
}

func NewTorque() *Torque {
	return &Torque{name: "max_torque"}
}

func (t *Torque) Name() string { return t.name }

func (t *Torque) Observe(s engine.Step) {
	if t.samples == 0 || s.MaxTorque < t.min {
		t.min = s.MaxTorque
	}
	t.samples++
}

func (t *Torque) Value() float64 {
	if t.samples == 0 {
		return 0
	}
	return t.min
}

func (t *Torque) Reset() {
	t.min = 0
	t.samples = 0
}

func Default() []engine.Metric {
	return []engine.Metric{NewEnergyChange(), NewTorque()}
}
