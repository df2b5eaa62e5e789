// Package api is the call surface for Hamiltonian parameters. Every function
// resolves (idxImage, idxChain) through the state before touching the image's
// parameter store; a negative index selects the active image or chain.
package api

import (
	"github.com/san-kum/spinlab/internal/hamiltonian"
	"github.com/san-kum/spinlab/internal/params"
	"github.com/san-kum/spinlab/internal/spin"
	"github.com/san-kum/spinlab/internal/state"
)

func store(st *state.State, idxImage, idxChain int) (*params.Store, error) {
	img, _, err := st.FromIndices(idxImage, idxChain)
	if err != nil {
		return nil, err
	}
	return img.Params, nil
}

func SetBoundaryConditions(st *state.State, periodic [3]bool, idxImage, idxChain int) error {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return err
	}
	s.SetBoundaryConditions(periodic)
	return nil
}

func SetMuS(st *state.State, mu float64, idxImage, idxChain int) error {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return err
	}
	s.SetMomentMagnitude(mu)
	return nil
}

// SetField sets a uniform external field; magnitude is in Tesla.
func SetField(st *state.State, magnitude float64, normal spin.Vector3, idxImage, idxChain int) error {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return err
	}
	return s.SetExternalField(magnitude, normal)
}

func SetAnisotropy(st *state.State, magnitude float64, normal spin.Vector3, idxImage, idxChain int) error {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return err
	}
	return s.SetAnisotropy(magnitude, normal)
}

func SetExchange(st *state.State, nShells int, jij []float64, idxImage, idxChain int) error {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return err
	}
	return s.SetExchange(nShells, jij)
}

func SetDMI(st *state.State, nShells int, dij []float64, idxImage, idxChain int) error {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return err
	}
	return s.SetDMI(nShells, dij)
}

// SetDDI always reports spin.ErrUnsupported and changes nothing.
func SetDDI(st *state.State, radius float64, idxImage, idxChain int) error {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return err
	}
	return s.SetDipolarCutoff(radius)
}

func GetName(st *state.State, idxImage, idxChain int) (string, error) {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return "", err
	}
	return s.Name(), nil
}

func GetBoundaryConditions(st *state.State, idxImage, idxChain int) ([3]bool, error) {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return [3]bool{}, err
	}
	return s.BoundaryConditions(), nil
}

func GetMuS(st *state.State, idxImage, idxChain int) ([]float64, error) {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return nil, err
	}
	return s.MomentMagnitudes(), nil
}

func GetField(st *state.State, idxImage, idxChain int) (float64, spin.Vector3, error) {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return 0, spin.Vector3{}, err
	}
	m, n := s.ExternalField()
	return m, n, nil
}

func GetAnisotropy(st *state.State, idxImage, idxChain int) (float64, spin.Vector3, error) {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return 0, spin.Vector3{}, err
	}
	m, n := s.Anisotropy()
	return m, n, nil
}

// GetExchange returns the number of shells and their constants. Only the
// shell model supports it.
func GetExchange(st *state.State, idxImage, idxChain int) (int, []float64, error) {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return 0, nil, err
	}
	jij, err := s.Exchange()
	return len(jij), jij, err
}

func GetDMI(st *state.State, idxImage, idxChain int) (int, []float64, error) {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return 0, nil, err
	}
	dij, err := s.DMI()
	return len(dij), dij, err
}

func GetDDI(st *state.State, idxImage, idxChain int) (float64, error) {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return 0, err
	}
	return s.DipolarCutoff()
}

func GetExchangeBonds(st *state.State, idxImage, idxChain int) ([]hamiltonian.Bond, error) {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return nil, err
	}
	return s.ExchangeBonds()
}

func GetDMIBonds(st *state.State, idxImage, idxChain int) ([]hamiltonian.Bond, error) {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return nil, err
	}
	return s.DMIBonds()
}

func GetActiveTerms(st *state.State, idxImage, idxChain int) ([]hamiltonian.Term, error) {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return nil, err
	}
	return s.ActiveTerms(), nil
}

// Summary is a read-only view of one image's parameters.
type Summary struct {
	Name       string
	Boundary   [3]bool
	MuS        float64
	Field      float64
	FieldDir   spin.Vector3
	Anisotropy float64
	AnisoDir   spin.Vector3
	Exchange   []float64
	DMI        []float64
	NExchange  int
	NDMI       int
	Active     []hamiltonian.Term
}

// Describe gathers a Summary. Bond counts are reported for the pair model,
// shell constants for the shell model.
func Describe(st *state.State, idxImage, idxChain int) (Summary, error) {
	s, err := store(st, idxImage, idxChain)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		Name:     s.Name(),
		Boundary: s.BoundaryConditions(),
		Active:   s.ActiveTerms(),
	}
	if mu := s.MomentMagnitudes(); len(mu) > 0 {
		sum.MuS = mu[0]
	}
	sum.Field, sum.FieldDir = s.ExternalField()
	sum.Anisotropy, sum.AnisoDir = s.Anisotropy()

	s.Read(func(v hamiltonian.Variant, _ [3]bool) {
		switch h := v.(type) {
		case *hamiltonian.Shells:
			sum.Exchange = append([]float64{}, h.Exchange...)
			sum.DMI = append([]float64{}, h.DMI...)
			sum.NExchange, sum.NDMI = len(h.Exchange), len(h.DMI)
		case *hamiltonian.Pairs:
			sum.NExchange, sum.NDMI = len(h.ExchangeBonds), len(h.DMIBonds)
		}
	})
	return sum, nil
}
