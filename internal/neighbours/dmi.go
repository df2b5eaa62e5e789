package neighbours

import (
	"errors"
	"fmt"

	"github.com/san-kum/spinlab/internal/geometry"
	"github.com/san-kum/spinlab/internal/spin"
)

var (
	ErrDegenerateNormal = errors.New("neighbours: DMI normal is undefined for this bond")
	ErrInvalidChirality = errors.New("neighbours: unknown chirality")
)

// Chirality selects the DMI vector convention of a bond.
type Chirality int

const (
	Bloch        Chirality = 1
	InverseBloch Chirality = -1
	Neel         Chirality = 2
	InverseNeel  Chirality = -2
)

func (c Chirality) Valid() bool {
	switch c {
	case Bloch, InverseBloch, Neel, InverseNeel:
		return true
	}
	return false
}

func (c Chirality) String() string {
	switch c {
	case Bloch:
		return "bloch"
	case InverseBloch:
		return "inverse-bloch"
	case Neel:
		return "neel"
	case InverseNeel:
		return "inverse-neel"
	}
	return fmt.Sprintf("chirality(%d)", int(c))
}

// DMINormal derives the unit DMI vector of a bond. Bloch types point along
// the bond, Néel types lie in-plane perpendicular to it (z × r).
func (f *Finder) DMINormal(g *geometry.Geometry, p Pair, c Chirality) (spin.Vector3, error) {
	if !c.Valid() {
		return spin.Vector3{}, fmt.Errorf("%w: %d", ErrInvalidChirality, int(c))
	}

	r := BondVector(g, p)
	var n spin.Vector3
	switch c {
	case Bloch:
		n = r
	case InverseBloch:
		n = r.Scale(-1)
	case Neel:
		n = spin.UnitZ.Cross(r)
	case InverseNeel:
		n = spin.UnitZ.Cross(r).Scale(-1)
	}

	unit, ok := n.Normalized()
	if !ok || n.Norm() < f.tolerance()*r.Norm() {
		return spin.Vector3{}, fmt.Errorf("%w: pair %d->%d %v, %s", ErrDegenerateNormal, p.I, p.J, p.Translation, c)
	}
	return unit, nil
}
