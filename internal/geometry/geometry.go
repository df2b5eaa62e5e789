package geometry

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/spinlab/internal/spin"
)

var (
	ErrEmptyBasis        = errors.New("geometry: basis must contain at least one site")
	ErrInvalidCells      = errors.New("geometry: cell counts must be positive")
	ErrDegenerateLattice = errors.New("geometry: bravais vectors are linearly dependent")
)

// Geometry is a finite Bravais lattice with a multi-site basis. Sites are
// ordered basis-fastest: site = atom + nAtoms*(a + Na*(b + Nb*c)).
type Geometry struct {
	Bravais         [3]spin.Vector3
	Basis           []spin.Vector3 // fractional, in units of Bravais
	NCells          [3]int
	LatticeConstant float64

	CellAtoms []spin.Vector3 // cartesian positions of the basis in cell (0,0,0)
	Positions []spin.Vector3
	NSpins    int
}

func New(bravais [3]spin.Vector3, basis []spin.Vector3, nCells [3]int, latticeConstant float64) (*Geometry, error) {
	if len(basis) == 0 {
		return nil, ErrEmptyBasis
	}
	for _, n := range nCells {
		if n <= 0 {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCells, nCells)
		}
	}
	if math.Abs(bravais[0].Dot(bravais[1].Cross(bravais[2]))) < 1e-12 {
		return nil, ErrDegenerateLattice
	}
	if latticeConstant <= 0 {
		latticeConstant = 1
	}

	g := &Geometry{
		Bravais:         bravais,
		Basis:           append([]spin.Vector3(nil), basis...),
		NCells:          nCells,
		LatticeConstant: latticeConstant,
	}

	g.CellAtoms = make([]spin.Vector3, len(basis))
	for i, b := range basis {
		g.CellAtoms[i] = g.cartesian(b)
	}

	g.NSpins = len(basis) * nCells[0] * nCells[1] * nCells[2]
	g.Positions = make([]spin.Vector3, 0, g.NSpins)
	for c := 0; c < nCells[2]; c++ {
		for b := 0; b < nCells[1]; b++ {
			for a := 0; a < nCells[0]; a++ {
				origin := g.CellOrigin([3]int{a, b, c})
				for _, atom := range g.CellAtoms {
					g.Positions = append(g.Positions, origin.Add(atom))
				}
			}
		}
	}

	return g, nil
}

func (g *Geometry) cartesian(frac spin.Vector3) spin.Vector3 {
	var r spin.Vector3
	for d := 0; d < 3; d++ {
		r = r.Add(g.Bravais[d].Scale(frac[d]))
	}
	return r.Scale(g.LatticeConstant)
}

// CellOrigin returns the cartesian origin of the cell at the given (possibly
// out-of-box) lattice translation.
func (g *Geometry) CellOrigin(cell [3]int) spin.Vector3 {
	return g.cartesian(spin.Vector3{float64(cell[0]), float64(cell[1]), float64(cell[2])})
}

func (g *Geometry) NCellAtoms() int { return len(g.Basis) }

// BasicDomainSiteCount is the number of sites that carry their own
// parameters. Every site of the simulated box is its own basic domain.
func (g *Geometry) BasicDomainSiteCount() int { return g.NSpins }

// Dimensionality counts lattice directions with more than one cell.
func (g *Geometry) Dimensionality() int {
	dims := 0
	for _, n := range g.NCells {
		if n > 1 {
			dims++
		}
	}
	return dims
}

func (g *Geometry) Site(atom int, cell [3]int) int {
	n := len(g.Basis)
	return atom + n*(cell[0]+g.NCells[0]*(cell[1]+g.NCells[1]*cell[2]))
}

func (g *Geometry) CellOf(site int) (atom int, cell [3]int) {
	n := len(g.Basis)
	atom = site % n
	rest := site / n
	cell[0] = rest % g.NCells[0]
	rest /= g.NCells[0]
	cell[1] = rest % g.NCells[1]
	cell[2] = rest / g.NCells[1]
	return atom, cell
}

// Translate returns the site index of atom in cell+t. Directions that leave
// the box wrap when periodic and report false otherwise.
func (g *Geometry) Translate(atom int, cell, t [3]int, periodic [3]bool) (int, bool) {
	var target [3]int
	for d := 0; d < 3; d++ {
		x := cell[d] + t[d]
		n := g.NCells[d]
		if x < 0 || x >= n {
			if !periodic[d] {
				return 0, false
			}
			x = ((x % n) + n) % n
		}
		target[d] = x
	}
	return g.Site(atom, target), true
}
