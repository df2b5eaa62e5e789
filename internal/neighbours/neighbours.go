package neighbours

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/spinlab/internal/geometry"
	"github.com/san-kum/spinlab/internal/spin"
)

var ErrNegativeShells = errors.New("neighbours: shell count must not be negative")

const defaultTolerance = 1e-6

// Pair is a directed bond from unit-cell site I to unit-cell site J in the
// cell displaced by Translation.
type Pair struct {
	I, J        int
	Translation [3]int
}

// Neighbour is a Pair tagged with its zero-based shell index.
type Neighbour struct {
	Pair
	Shell int
}

// Finder enumerates neighbour shells of a geometry. Every physical bond is
// reported once from each of its ends.
type Finder struct {
	Tolerance float64
}

func NewFinder() *Finder {
	return &Finder{Tolerance: defaultTolerance}
}

// BondVector is the cartesian vector from site I to site J of the pair.
func BondVector(g *geometry.Geometry, p Pair) spin.Vector3 {
	return g.CellOrigin(p.Translation).Add(g.CellAtoms[p.J]).Sub(g.CellAtoms[p.I])
}

type candidate struct {
	pair Pair
	dist float64
}

// InShells returns every neighbour of every unit-cell site up to and including
// the nShells-th distinct distance. Shell radii are computed per site.
func (f *Finder) InShells(g *geometry.Geometry, nShells int) ([]Neighbour, error) {
	if nShells < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeShells, nShells)
	}
	if nShells == 0 {
		return []Neighbour{}, nil
	}

	var tMax [3]int
	for d := 0; d < 3; d++ {
		if g.NCells[d] > 1 {
			tMax[d] = nShells + 1
		}
	}

	out := make([]Neighbour, 0)
	for i := 0; i < g.NCellAtoms(); i++ {
		cands := f.candidates(g, i, tMax)
		radii := f.radii(cands, nShells)
		for _, c := range cands {
			if s := f.shellOf(radii, c.dist); s >= 0 {
				out = append(out, Neighbour{Pair: c.pair, Shell: s})
			}
		}
	}
	return out, nil
}

// ShellRadii reports the first nShells neighbour distances of unit-cell site atom.
func (f *Finder) ShellRadii(g *geometry.Geometry, atom, nShells int) []float64 {
	var tMax [3]int
	for d := 0; d < 3; d++ {
		if g.NCells[d] > 1 {
			tMax[d] = nShells + 1
		}
	}
	return f.radii(f.candidates(g, atom, tMax), nShells)
}

func (f *Finder) candidates(g *geometry.Geometry, i int, tMax [3]int) []candidate {
	var cands []candidate
	for a := -tMax[0]; a <= tMax[0]; a++ {
		for b := -tMax[1]; b <= tMax[1]; b++ {
			for c := -tMax[2]; c <= tMax[2]; c++ {
				for j := 0; j < g.NCellAtoms(); j++ {
					p := Pair{I: i, J: j, Translation: [3]int{a, b, c}}
					d := BondVector(g, p).Norm()
					if d < f.tolerance() {
						continue
					}
					cands = append(cands, candidate{pair: p, dist: d})
				}
			}
		}
	}
	return cands
}

func (f *Finder) radii(cands []candidate, nShells int) []float64 {
	dists := make([]float64, len(cands))
	for k, c := range cands {
		dists[k] = c.dist
	}
	sort.Float64s(dists)

	radii := make([]float64, 0, nShells)
	for _, d := range dists {
		if len(radii) == nShells {
			break
		}
		if len(radii) > 0 && f.same(radii[len(radii)-1], d) {
			continue
		}
		radii = append(radii, d)
	}
	return radii
}

func (f *Finder) shellOf(radii []float64, d float64) int {
	for s, r := range radii {
		if f.same(r, d) {
			return s
		}
	}
	return -1
}

func (f *Finder) same(a, b float64) bool {
	return math.Abs(a-b) <= f.tolerance()*math.Max(1, math.Abs(a))
}

func (f *Finder) tolerance() float64 {
	if f.Tolerance <= 0 {
		return defaultTolerance
	}
	return f.Tolerance
}
