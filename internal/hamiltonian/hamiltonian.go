package hamiltonian

import (
	"fmt"

	"github.com/san-kum/spinlab/internal/spin"
)

const (
	NameShells = "Heisenberg (Neighbours)"
	NamePairs  = "Heisenberg (Pairs)"
)

// Kind selects the interaction model an image is built with.
type Kind string

const (
	KindShells Kind = "shells"
	KindPairs  Kind = "pairs"
)

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindShells, KindPairs:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown hamiltonian kind: %s (expected %s or %s)", s, KindShells, KindPairs)
}

// IndexedTerm is a site-resolved on-site term. Indices, Magnitudes and
// Normals always have equal length and every normal is a unit vector.
type IndexedTerm struct {
	Indices    []int
	Magnitudes []float64
	Normals    []spin.Vector3
}

func (t IndexedTerm) Len() int { return len(t.Indices) }

func (t IndexedTerm) Clone() IndexedTerm {
	return IndexedTerm{
		Indices:    append([]int(nil), t.Indices...),
		Magnitudes: append([]float64(nil), t.Magnitudes...),
		Normals:    append([]spin.Vector3(nil), t.Normals...),
	}
}

// Bond is one directed interaction between unit-cell sites I and J, applied
// in every cell. Normal is only meaningful for DMI bonds.
type Bond struct {
	I, J        int
	Translation [3]int
	Shell       int
	Magnitude   float64
	Normal      spin.Vector3
}

// Common holds the on-site parameters shared by both interaction models.
type Common struct {
	MuS        []float64
	Field      IndexedTerm
	Anisotropy IndexedTerm
	Active     []Term
}

func newCommon(nSites int) Common {
	mu := make([]float64, nSites)
	for i := range mu {
		mu[i] = spin.DefaultMuS
	}
	return Common{MuS: mu}
}

func (c *Common) clone() Common {
	return Common{
		MuS:        append([]float64(nil), c.MuS...),
		Field:      c.Field.Clone(),
		Anisotropy: c.Anisotropy.Clone(),
		Active:     append([]Term(nil), c.Active...),
	}
}

// Variant is implemented only by *Shells and *Pairs.
type Variant interface {
	Name() string
	Base() *Common
	Clone() Variant
	variant()
}

// Shells is the shell-averaged model: one exchange and one DMI coefficient
// per neighbour shell.
type Shells struct {
	Common
	Exchange []float64
	DMI      []float64
}

func NewShells(nSites int) *Shells {
	h := &Shells{Common: newCommon(nSites), Exchange: []float64{}, DMI: []float64{}}
	RefreshContributions(h)
	return h
}

func (h *Shells) Name() string  { return NameShells }
func (h *Shells) Base() *Common { return &h.Common }
func (h *Shells) variant()      {}

func (h *Shells) Clone() Variant {
	return &Shells{
		Common:   h.Common.clone(),
		Exchange: append([]float64(nil), h.Exchange...),
		DMI:      append([]float64(nil), h.DMI...),
	}
}

// Pairs is the explicit-pair model: every bond is materialized.
type Pairs struct {
	Common
	ExchangeBonds []Bond
	DMIBonds      []Bond
}

func NewPairs(nSites int) *Pairs {
	h := &Pairs{Common: newCommon(nSites), ExchangeBonds: []Bond{}, DMIBonds: []Bond{}}
	RefreshContributions(h)
	return h
}

func (h *Pairs) Name() string  { return NamePairs }
func (h *Pairs) Base() *Common { return &h.Common }
func (h *Pairs) variant()      {}

func (h *Pairs) Clone() Variant {
	return &Pairs{
		Common:        h.Common.clone(),
		ExchangeBonds: append([]Bond(nil), h.ExchangeBonds...),
		DMIBonds:      append([]Bond(nil), h.DMIBonds...),
	}
}

func New(kind Kind, nSites int) (Variant, error) {
	switch kind {
	case KindShells:
		return NewShells(nSites), nil
	case KindPairs:
		return NewPairs(nSites), nil
	}
	return nil, fmt.Errorf("unknown hamiltonian kind: %s", kind)
}
