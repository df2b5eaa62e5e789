package hamiltonian

import (
	"fmt"

	"github.com/san-kum/spinlab/internal/geometry"
	"github.com/san-kum/spinlab/internal/neighbours"
	"github.com/san-kum/spinlab/internal/spin"
)

// Energy is the per-term energy of a spin configuration, in meV.
type Energy struct {
	Zeeman     float64
	Anisotropy float64
	Exchange   float64
	DMI        float64
}

func (e Energy) Total() float64 {
	return e.Zeeman + e.Anisotropy + e.Exchange + e.DMI
}

// Interactions are the bond lists an energy evaluation runs over.
type Interactions struct {
	Exchange []Bond
	DMI      []Bond
}

// Expand returns the bonds of v. Pair bonds are returned as-is; shell
// coefficients go through the same conversion SetExchange/SetDMI use.
func Expand(v Variant, f NeighbourFinder, g *geometry.Geometry, c neighbours.Chirality) (Interactions, error) {
	switch h := v.(type) {
	case *Pairs:
		return Interactions{Exchange: h.ExchangeBonds, DMI: h.DMIBonds}, nil
	case *Shells:
		ex, err := ExchangeBondsFromShells(f, g, len(h.Exchange), h.Exchange)
		if err != nil {
			return Interactions{}, err
		}
		dmi, err := DMIBondsFromShells(f, g, len(h.DMI), h.DMI, c)
		if err != nil {
			return Interactions{}, err
		}
		return Interactions{Exchange: ex, DMI: dmi}, nil
	}
	return Interactions{}, fmt.Errorf("unknown hamiltonian variant %T", v)
}

// Evaluate computes the energy of spins and, when grad is non-nil, writes
// dE/ds for every site into grad. Bonds leaving the box across a
// non-periodic direction are skipped.
func Evaluate(g *geometry.Geometry, boundary [3]bool, v Variant, in Interactions, spins spin.Field, grad spin.Field) (Energy, error) {
	if len(spins) != g.NSpins {
		return Energy{}, fmt.Errorf("%w: %d spins for %d sites", spin.ErrDimensionMismatch, len(spins), g.NSpins)
	}
	if grad != nil {
		if len(grad) != len(spins) {
			return Energy{}, fmt.Errorf("%w: gradient of %d for %d sites", spin.ErrDimensionMismatch, len(grad), len(spins))
		}
		for i := range grad {
			grad[i] = spin.Vector3{}
		}
	}

	var e Energy
	c := v.Base()

	for k, idx := range c.Field.Indices {
		h, n := c.Field.Magnitudes[k], c.Field.Normals[k]
		e.Zeeman -= h * n.Dot(spins[idx])
		if grad != nil {
			grad[idx] = grad[idx].Sub(n.Scale(h))
		}
	}

	for k, idx := range c.Anisotropy.Indices {
		K, n := c.Anisotropy.Magnitudes[k], c.Anisotropy.Normals[k]
		proj := n.Dot(spins[idx])
		e.Anisotropy -= K * proj * proj
		if grad != nil {
			grad[idx] = grad[idx].Sub(n.Scale(2 * K * proj))
		}
	}

	forEachBond(g, boundary, in.Exchange, func(b *Bond, sa, sb int) {
		e.Exchange -= b.Magnitude * spins[sa].Dot(spins[sb])
		if grad != nil {
			grad[sa] = grad[sa].Sub(spins[sb].Scale(b.Magnitude))
			grad[sb] = grad[sb].Sub(spins[sa].Scale(b.Magnitude))
		}
	})

	forEachBond(g, boundary, in.DMI, func(b *Bond, sa, sb int) {
		e.DMI -= b.Magnitude * b.Normal.Dot(spins[sa].Cross(spins[sb]))
		if grad != nil {
			grad[sa] = grad[sa].Sub(spins[sb].Cross(b.Normal).Scale(b.Magnitude))
			grad[sb] = grad[sb].Sub(b.Normal.Cross(spins[sa]).Scale(b.Magnitude))
		}
	})

	return e, nil
}

func forEachBond(g *geometry.Geometry, boundary [3]bool, bonds []Bond, fn func(b *Bond, sa, sb int)) {
	if len(bonds) == 0 {
		return
	}
	for z := 0; z < g.NCells[2]; z++ {
		for y := 0; y < g.NCells[1]; y++ {
			for x := 0; x < g.NCells[0]; x++ {
				cell := [3]int{x, y, z}
				for i := range bonds {
					b := &bonds[i]
					sb, ok := g.Translate(b.J, cell, b.Translation, boundary)
					if !ok {
						continue
					}
					fn(b, g.Site(b.I, cell), sb)
				}
			}
		}
	}
}
