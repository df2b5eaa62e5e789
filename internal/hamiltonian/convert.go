package hamiltonian

import (
	"fmt"

	"github.com/san-kum/spinlab/internal/geometry"
	"github.com/san-kum/spinlab/internal/neighbours"
	"github.com/san-kum/spinlab/internal/spin"
)

// NeighbourFinder is the geometry collaborator the converter needs.
type NeighbourFinder interface {
	InShells(g *geometry.Geometry, nShells int) ([]neighbours.Neighbour, error)
	DMINormal(g *geometry.Geometry, p neighbours.Pair, c neighbours.Chirality) (spin.Vector3, error)
}

// ExchangeBondsFromShells materializes the exchange bonds of the first
// nShells shells with magnitude jij[shell]/2. Each physical bond is
// enumerated from both ends, hence the halving.
func ExchangeBondsFromShells(f NeighbourFinder, g *geometry.Geometry, nShells int, jij []float64) ([]Bond, error) {
	return bondsFromShells(f, g, nShells, jij, false, 0)
}

// DMIBondsFromShells is ExchangeBondsFromShells plus a DMI normal per bond
// derived with the given chirality.
func DMIBondsFromShells(f NeighbourFinder, g *geometry.Geometry, nShells int, dij []float64, c neighbours.Chirality) ([]Bond, error) {
	return bondsFromShells(f, g, nShells, dij, true, c)
}

func bondsFromShells(f NeighbourFinder, g *geometry.Geometry, nShells int, coeff []float64, withNormals bool, c neighbours.Chirality) ([]Bond, error) {
	if nShells < 0 || len(coeff) < nShells {
		return nil, fmt.Errorf("%w: n_shells=%d, coefficients=%d", spin.ErrDimensionMismatch, nShells, len(coeff))
	}

	nb, err := f.InShells(g, nShells)
	if err != nil {
		return nil, err
	}

	bonds := make([]Bond, 0, len(nb))
	for _, n := range nb {
		b := Bond{
			I:           n.I,
			J:           n.J,
			Translation: n.Translation,
			Shell:       n.Shell,
			Magnitude:   0.5 * coeff[n.Shell],
		}
		if withNormals {
			normal, err := f.DMINormal(g, n.Pair, c)
			if err != nil {
				return nil, err
			}
			b.Normal = normal
		}
		bonds = append(bonds, b)
	}
	return bonds, nil
}
