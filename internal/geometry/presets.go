package geometry

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/spinlab/internal/spin"
)

type lattice struct {
	bravais [3]spin.Vector3
	basis   []spin.Vector3
}

var lattices = map[string]lattice{
	"sc": {
		bravais: [3]spin.Vector3{spin.UnitX, spin.UnitY, spin.UnitZ},
		basis:   []spin.Vector3{{0, 0, 0}},
	},
	"square": {
		bravais: [3]spin.Vector3{spin.UnitX, spin.UnitY, spin.UnitZ},
		basis:   []spin.Vector3{{0, 0, 0}},
	},
	"hex": {
		bravais: [3]spin.Vector3{{1, 0, 0}, {0.5, math.Sqrt(3) / 2, 0}, spin.UnitZ},
		basis:   []spin.Vector3{{0, 0, 0}},
	},
	"bcc": {
		bravais: [3]spin.Vector3{spin.UnitX, spin.UnitY, spin.UnitZ},
		basis:   []spin.Vector3{{0, 0, 0}, {0.5, 0.5, 0.5}},
	},
	"fcc": {
		bravais: [3]spin.Vector3{spin.UnitX, spin.UnitY, spin.UnitZ},
		basis:   []spin.Vector3{{0, 0, 0}, {0.5, 0.5, 0}, {0.5, 0, 0.5}, {0, 0.5, 0.5}},
	},
}

// FromLattice builds a geometry from a named lattice. Two-dimensional
// lattices ("square", "hex") force a single cell along z.
func FromLattice(name string, nCells [3]int, latticeConstant float64) (*Geometry, error) {
	l, ok := lattices[name]
	if !ok {
		return nil, fmt.Errorf("unknown lattice: %s (available: %v)", name, Lattices())
	}
	if name == "square" || name == "hex" {
		nCells[2] = 1
	}
	return New(l.bravais, l.basis, nCells, latticeConstant)
}

func Lattices() []string {
	names := make([]string, 0, len(lattices))
	for name := range lattices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
