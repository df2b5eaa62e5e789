package params

import (
	"fmt"
	"sync"
	"time"

	"github.com/san-kum/spinlab/internal/geometry"
	"github.com/san-kum/spinlab/internal/hamiltonian"
	"github.com/san-kum/spinlab/internal/logging"
	"github.com/san-kum/spinlab/internal/neighbours"
	"github.com/san-kum/spinlab/internal/spin"
)

// Location identifies the image a store belongs to; it tags every log record.
type Location struct {
	Image int
	Chain int
}

// Recorder receives store activity, typically a *metrics.Collector.
type Recorder interface {
	RecordUpdate(operation, hamiltonian string)
	RecordUnsupported(operation, hamiltonian string)
	RecordRegeneration(term string, bonds int, took time.Duration)
}

type nopRecorder struct{}

func (nopRecorder) RecordUpdate(string, string)                     {}
func (nopRecorder) RecordUnsupported(string, string)                {}
func (nopRecorder) RecordRegeneration(string, int, time.Duration) {}

type Options struct {
	Finder    hamiltonian.NeighbourFinder
	Chirality neighbours.Chirality
	Sink      logging.Sink
	Recorder  Recorder
	Location  Location
}

// Store owns the Hamiltonian parameters of one image. Setters hold the write
// lock for their full duration, including the contribution refresh and the
// log record; getters hold the read lock. Calling a setter from inside Read
// deadlocks.
type Store struct {
	mu       sync.RWMutex
	geom     *geometry.Geometry
	boundary [3]bool
	ham      hamiltonian.Variant
	loc      Location

	finder    hamiltonian.NeighbourFinder
	chirality neighbours.Chirality
	sink      logging.Sink
	recorder  Recorder
}

// New creates a store with default parameters and open boundaries. The
// interaction model is fixed for the lifetime of the store.
func New(g *geometry.Geometry, kind hamiltonian.Kind, opts Options) (*Store, error) {
	ham, err := hamiltonian.New(kind, g.BasicDomainSiteCount())
	if err != nil {
		return nil, err
	}
	if opts.Chirality == 0 {
		opts.Chirality = neighbours.Bloch
	}
	if !opts.Chirality.Valid() {
		return nil, fmt.Errorf("%w: %d", neighbours.ErrInvalidChirality, int(opts.Chirality))
	}
	if opts.Finder == nil {
		opts.Finder = neighbours.NewFinder()
	}
	if opts.Sink == nil {
		opts.Sink = logging.NewSink(nil)
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}

	return &Store{
		geom:      g,
		ham:       ham,
		loc:       opts.Location,
		finder:    opts.Finder,
		chirality: opts.Chirality,
		sink:      opts.Sink,
		recorder:  opts.Recorder,
	}, nil
}

func (s *Store) Geometry() *geometry.Geometry     { return s.geom }
func (s *Store) Chirality() neighbours.Chirality { return s.chirality }

// Name returns the display name of the interaction model. The model never
// changes, so no lock is taken.
func (s *Store) Name() string { return s.ham.Name() }

func (s *Store) Relocate(loc Location) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loc = loc
}

func (s *Store) Location() Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loc
}

func (s *Store) log(level logging.Level, msg string) {
	s.sink.Record(level, logging.SenderAPI, msg, s.loc.Image, s.loc.Chain)
}

func (s *Store) applied(op string) {
	hamiltonian.RefreshContributions(s.ham)
	s.recorder.RecordUpdate(op, s.ham.Name())
}

func (s *Store) rejected(term string, err error) error {
	s.log(logging.Warning, fmt.Sprintf("Rejected %s update: %v", term, err))
	return fmt.Errorf("%s: %w", term, err)
}

func (s *Store) unsupported(op string) error {
	s.recorder.RecordUnsupported(op, s.ham.Name())
	s.log(logging.Warning, fmt.Sprintf("%s is not implemented for %s", op, s.ham.Name()))
	return &spin.UnsupportedError{Op: op, Hamiltonian: s.ham.Name()}
}

func (s *Store) SetBoundaryConditions(periodic [3]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.boundary = periodic
	s.recorder.RecordUpdate("SetBoundaryConditions", s.ham.Name())
	s.log(logging.Info, fmt.Sprintf("Set boundary conditions to %d %d %d",
		btoi(periodic[0]), btoi(periodic[1]), btoi(periodic[2])))
}

// SetMomentMagnitude overwrites every site's moment with mu.
func (s *Store) SetMomentMagnitude(mu float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.ham.Base()
	for i := range c.MuS {
		c.MuS[i] = mu
	}
	s.applied("SetMomentMagnitude")
	s.log(logging.Info, fmt.Sprintf("Set mu_s to %f", mu))
}

// SetExternalField applies a uniform field of the given strength (T) along
// normal. Stored magnitudes are in energy units: magnitude * mu_s[i] * MuB.
func (s *Store) SetExternalField(magnitude float64, normal spin.Vector3) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := normal.Normalized()
	if !ok {
		s.log(logging.Warning, fmt.Sprintf("Rejected external field direction (%f,%f,%f)", normal[0], normal[1], normal[2]))
		return fmt.Errorf("external field: %w", spin.ErrZeroNormal)
	}

	c := s.ham.Base()
	c.Field = s.uniformTerm(n, func(i int) float64 {
		return magnitude * c.MuS[i] * spin.MuB
	})
	s.applied("SetExternalField")
	s.log(logging.Info, fmt.Sprintf("Set external field to %f, direction (%f,%f,%f)", magnitude, normal[0], normal[1], normal[2]))
	return nil
}

// SetAnisotropy applies a uniform uniaxial anisotropy. The magnitude is
// stored as given, already in energy units.
func (s *Store) SetAnisotropy(magnitude float64, normal spin.Vector3) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := normal.Normalized()
	if !ok {
		s.log(logging.Warning, fmt.Sprintf("Rejected anisotropy direction (%f,%f,%f)", normal[0], normal[1], normal[2]))
		return fmt.Errorf("anisotropy: %w", spin.ErrZeroNormal)
	}

	c := s.ham.Base()
	c.Anisotropy = s.uniformTerm(n, func(int) float64 { return magnitude })
	s.applied("SetAnisotropy")
	s.log(logging.Info, fmt.Sprintf("Set anisotropy to %f, direction (%f,%f,%f)", magnitude, normal[0], normal[1], normal[2]))
	return nil
}

func (s *Store) uniformTerm(n spin.Vector3, magnitude func(i int) float64) hamiltonian.IndexedTerm {
	nos := s.geom.NSpins
	t := hamiltonian.IndexedTerm{
		Indices:    make([]int, nos),
		Magnitudes: make([]float64, nos),
		Normals:    make([]spin.Vector3, nos),
	}
	for i := 0; i < nos; i++ {
		t.Indices[i] = i
		t.Magnitudes[i] = magnitude(i)
		t.Normals[i] = n
	}
	return t
}

// SetExchange sets the exchange constants of the first nShells shells. The
// shell model stores them directly; the pair model regenerates its whole
// exchange bond list.
func (s *Store) SetExchange(nShells int, jij []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkShells(nShells, jij); err != nil {
		return s.rejected("exchange", err)
	}

	switch h := s.ham.(type) {
	case *hamiltonian.Shells:
		h.Exchange = copyShells(h.Exchange, nShells, jij)
	case *hamiltonian.Pairs:
		start := time.Now()
		bonds, err := hamiltonian.ExchangeBondsFromShells(s.finder, s.geom, nShells, jij)
		if err != nil {
			return s.rejected("exchange", err)
		}
		s.recorder.RecordRegeneration("exchange", len(bonds), time.Since(start))
		h.ExchangeBonds = bonds
	default:
		return s.unsupported("SetExchange")
	}

	s.applied("SetExchange")
	s.log(logging.Info, fmt.Sprintf("Set exchange for %d shells to %v", nShells, jij[:nShells]))
	return nil
}

// SetDMI is SetExchange for the Dzyaloshinskii-Moriya constants. Pair-model
// bond normals follow the store's chirality.
func (s *Store) SetDMI(nShells int, dij []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := checkShells(nShells, dij); err != nil {
		return s.rejected("dmi", err)
	}

	switch h := s.ham.(type) {
	case *hamiltonian.Shells:
		next := copyShells(append([]float64(nil), h.DMI...), nShells, dij)
		// every stored shell must have well-defined bond normals
		if _, err := hamiltonian.DMIBondsFromShells(s.finder, s.geom, len(next), next, s.chirality); err != nil {
			return s.rejected("dmi", err)
		}
		h.DMI = next
	case *hamiltonian.Pairs:
		start := time.Now()
		bonds, err := hamiltonian.DMIBondsFromShells(s.finder, s.geom, nShells, dij, s.chirality)
		if err != nil {
			return s.rejected("dmi", err)
		}
		s.recorder.RecordRegeneration("dmi", len(bonds), time.Since(start))
		h.DMIBonds = bonds
	default:
		return s.unsupported("SetDMI")
	}

	s.applied("SetDMI")
	s.log(logging.Info, fmt.Sprintf("Set DMI for %d shells to %v (%s)", nShells, dij[:nShells], s.chirality))
	return nil
}

// SetDipolarCutoff is not implemented by either interaction model and never
// changes state.
func (s *Store) SetDipolarCutoff(radius float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.unsupported("SetDipolarCutoff")
}

func checkShells(nShells int, coeff []float64) error {
	if nShells < 0 || len(coeff) < nShells {
		return fmt.Errorf("%w: n_shells=%d, coefficients=%d", spin.ErrDimensionMismatch, nShells, len(coeff))
	}
	return nil
}

func copyShells(dst []float64, nShells int, src []float64) []float64 {
	if len(dst) < nShells {
		grown := make([]float64, nShells)
		copy(grown, dst)
		dst = grown
	}
	copy(dst[:nShells], src[:nShells])
	return dst
}

func (s *Store) BoundaryConditions() [3]bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.log(logging.Debug, "Get boundary conditions")
	return s.boundary
}

// MomentMagnitudes returns a copy of mu_s over the basic domain.
func (s *Store) MomentMagnitudes() []float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.log(logging.Debug, "Get mu_s")

	n := s.geom.BasicDomainSiteCount()
	out := make([]float64, n)
	copy(out, s.ham.Base().MuS[:n])
	return out
}

// ExternalField reports the first field entry converted back to Tesla.
// Without entries it reports (0, +z); a zero moment reports magnitude 0.
func (s *Store) ExternalField() (float64, spin.Vector3) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.log(logging.Debug, "Get external field")

	c := s.ham.Base()
	if c.Field.Len() == 0 {
		return 0, spin.UnitZ
	}
	mu := c.MuS[c.Field.Indices[0]]
	if mu == 0 {
		return 0, c.Field.Normals[0]
	}
	return c.Field.Magnitudes[0] / mu / spin.MuB, c.Field.Normals[0]
}

// Anisotropy reports the first anisotropy entry, or (0, +z) when empty.
func (s *Store) Anisotropy() (float64, spin.Vector3) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.log(logging.Debug, "Get anisotropy")

	c := s.ham.Base()
	if c.Anisotropy.Len() == 0 {
		return 0, spin.UnitZ
	}
	return c.Anisotropy.Magnitudes[0], c.Anisotropy.Normals[0]
}

// Exchange returns the per-shell exchange constants. Only the shell model
// keeps them; the pair model reports ErrUnsupported.
func (s *Store) Exchange() ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.log(logging.Debug, "Get exchange")

	h, ok := s.ham.(*hamiltonian.Shells)
	if !ok {
		return nil, s.unsupported("GetExchange")
	}
	return append([]float64{}, h.Exchange...), nil
}

func (s *Store) DMI() ([]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	s.log(logging.Debug, "Get DMI")

	h, ok := s.ham.(*hamiltonian.Shells)
	if !ok {
		return nil, s.unsupported("GetDMI")
	}
	return append([]float64{}, h.DMI...), nil
}

func (s *Store) DipolarCutoff() (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return 0, s.unsupported("GetDipolarCutoff")
}

// ExchangeBonds returns a copy of the pair model's exchange bonds.
func (s *Store) ExchangeBonds() ([]hamiltonian.Bond, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.ham.(*hamiltonian.Pairs)
	if !ok {
		return nil, s.unsupported("GetExchangeBonds")
	}
	return append([]hamiltonian.Bond{}, h.ExchangeBonds...), nil
}

func (s *Store) DMIBonds() ([]hamiltonian.Bond, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h, ok := s.ham.(*hamiltonian.Pairs)
	if !ok {
		return nil, s.unsupported("GetDMIBonds")
	}
	return append([]hamiltonian.Bond{}, h.DMIBonds...), nil
}

func (s *Store) ActiveTerms() []hamiltonian.Term {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]hamiltonian.Term{}, s.ham.Base().Active...)
}

// Snapshot returns a deep copy of the variant and the boundary flags.
func (s *Store) Snapshot() (hamiltonian.Variant, [3]bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ham.Clone(), s.boundary
}

// Read runs fn with the read lock held. fn must not retain v or call any
// setter of this store.
func (s *Store) Read(fn func(v hamiltonian.Variant, boundary [3]bool)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.ham, s.boundary)
}

// Evaluate computes the energy of spins (and the gradient into grad, when
// non-nil) against the current parameters, under the read lock.
func (s *Store) Evaluate(spins, grad spin.Field) (hamiltonian.Energy, error) {
	var (
		e   hamiltonian.Energy
		err error
	)
	s.Read(func(v hamiltonian.Variant, boundary [3]bool) {
		var in hamiltonian.Interactions
		in, err = hamiltonian.Expand(v, s.finder, s.geom, s.chirality)
		if err != nil {
			return
		}
		e, err = hamiltonian.Evaluate(s.geom, boundary, v, in, spins, grad)
	})
	return e, err
}

func btoi(b bool) int {
	if b {
		return 1
	}
	return 0
}
