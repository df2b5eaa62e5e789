package state

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"

	"github.com/san-kum/spinlab/internal/config"
	"github.com/san-kum/spinlab/internal/geometry"
	"github.com/san-kum/spinlab/internal/hamiltonian"
	"github.com/san-kum/spinlab/internal/logging"
	"github.com/san-kum/spinlab/internal/params"
	"github.com/san-kum/spinlab/internal/spin"
	"go.uber.org/zap"
)

var (
	ErrNoImage   = errors.New("state: image index out of range")
	ErrNoChain   = errors.New("state: chain index out of range")
	ErrLastImage = errors.New("state: cannot delete the last image of a chain")
)

// Image is one spin configuration and the parameters it is evaluated with.
// The store is created with the image and never replaced.
type Image struct {
	mu     sync.RWMutex
	geom   *geometry.Geometry
	spins  spin.Field
	Params *params.Store
}

func (img *Image) Geometry() *geometry.Geometry { return img.geom }

// Spins returns a copy of the current configuration.
func (img *Image) Spins() spin.Field {
	img.mu.RLock()
	defer img.mu.RUnlock()
	return img.spins.Clone()
}

func (img *Image) SetSpins(f spin.Field) error {
	if len(f) != img.geom.NSpins {
		return fmt.Errorf("%w: %d spins for %d sites", spin.ErrDimensionMismatch, len(f), img.geom.NSpins)
	}
	if !f.IsValid() {
		return spin.ErrInvalidState
	}
	img.mu.Lock()
	defer img.mu.Unlock()
	img.spins = f.Clone()
	return nil
}

// Evaluate computes energy and gradient of spins with the image's current
// parameters.
func (img *Image) Evaluate(spins, grad spin.Field) (hamiltonian.Energy, error) {
	return img.Params.Evaluate(spins, grad)
}

// Chain is an ordered set of images sharing one geometry. Its contents are
// guarded by the owning State's lock.
type Chain struct {
	mu     *sync.RWMutex
	images []*Image
	active int
}

func (c *Chain) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

func (c *Chain) Active() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.active
}

// Images returns a snapshot of the chain's images in order.
func (c *Chain) Images() []*Image {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]*Image(nil), c.images...)
}

// State owns every chain of the process and the currently active indices.
type State struct {
	mu     sync.RWMutex
	cfg    *config.Config
	geom   *geometry.Geometry
	chains []*Chain
	active int

	logger   *zap.Logger
	sink     logging.Sink
	recorder params.Recorder
}

// New builds a single chain of cfg.Chain.Images images. A nil logger
// discards logs; a nil recorder discards metrics.
func New(cfg *config.Config, logger *zap.Logger, recorder params.Recorder) (*State, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g, err := cfg.BuildGeometry()
	if err != nil {
		return nil, err
	}

	st := &State{
		cfg:      cfg,
		geom:     g,
		logger:   logger,
		sink:     logging.NewSink(logger),
		recorder: recorder,
	}

	rng := rand.New(rand.NewSource(cfg.Relax.Seed))
	chain := &Chain{mu: &st.mu, images: make([]*Image, 0, cfg.Chain.Images)}
	for i := 0; i < cfg.Chain.Images; i++ {
		img, err := st.newImage(params.Location{Image: i, Chain: 0})
		if err != nil {
			return nil, err
		}
		img.spins = initialSpins(g.NSpins, cfg.Relax.Init, rng)
		chain.images = append(chain.images, img)
	}
	st.chains = []*Chain{chain}

	st.sink.Record(logging.Info, logging.SenderAPI,
		fmt.Sprintf("State set up: %s lattice, %d spins, %d images, %s",
			cfg.Geometry.Lattice, g.NSpins, cfg.Chain.Images, chain.images[0].Params.Name()),
		-1, -1)

	return st, nil
}

func (st *State) newImage(loc params.Location) (*Image, error) {
	store, err := params.New(st.geom, st.cfg.Kind(), params.Options{
		Chirality: st.cfg.ChiralityValue(),
		Sink:      st.sink,
		Recorder:  st.recorder,
		Location:  loc,
	})
	if err != nil {
		return nil, err
	}
	return &Image{geom: st.geom, Params: store}, nil
}

func initialSpins(n int, mode string, rng *rand.Rand) spin.Field {
	if mode != config.InitRandom {
		return spin.NewField(n, spin.UnitZ)
	}
	f := make(spin.Field, n)
	for i := range f {
		for {
			v := spin.Vector3{rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()}
			if u, ok := v.Normalized(); ok {
				f[i] = u
				break
			}
		}
	}
	return f
}

func (st *State) Config() *config.Config       { return st.cfg }
func (st *State) Geometry() *geometry.Geometry { return st.geom }
func (st *State) Logger() *zap.Logger          { return st.logger }
func (st *State) Sink() logging.Sink           { return st.sink }

func (st *State) NumChains() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.chains)
}

// FromIndices resolves an image and its chain. A negative index selects the
// active chain or the chain's active image.
func (st *State) FromIndices(idxImage, idxChain int) (*Image, *Chain, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.resolve(idxImage, idxChain)
}

func (st *State) resolve(idxImage, idxChain int) (*Image, *Chain, error) {
	if idxChain < 0 {
		idxChain = st.active
	}
	if idxChain >= len(st.chains) {
		return nil, nil, fmt.Errorf("%w: %d (have %d)", ErrNoChain, idxChain, len(st.chains))
	}
	chain := st.chains[idxChain]

	if idxImage < 0 {
		idxImage = chain.active
	}
	if idxImage >= len(chain.images) {
		return nil, nil, fmt.Errorf("%w: %d (chain %d has %d)", ErrNoImage, idxImage, idxChain, len(chain.images))
	}
	return chain.images[idxImage], chain, nil
}

// Chain returns the chain at idxChain, or the active one when negative.
func (st *State) Chain(idxChain int) (*Chain, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	_, chain, err := st.resolve(-1, idxChain)
	return chain, err
}

func (st *State) SetActiveImage(idxImage, idxChain int) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if idxImage < 0 {
		return fmt.Errorf("%w: %d", ErrNoImage, idxImage)
	}
	_, chain, err := st.resolve(idxImage, idxChain)
	if err != nil {
		return err
	}
	chain.active = idxImage
	return nil
}

// DeleteImage removes an image from its chain. Images behind it move up one
// index and their log tags follow.
func (st *State) DeleteImage(idxImage, idxChain int) error {
	st.mu.Lock()
	defer st.mu.Unlock()

	if idxChain < 0 {
		idxChain = st.active
	}
	_, chain, err := st.resolve(idxImage, idxChain)
	if err != nil {
		return err
	}
	if idxImage < 0 {
		idxImage = chain.active
	}
	if len(chain.images) == 1 {
		return ErrLastImage
	}

	images := make([]*Image, 0, len(chain.images)-1)
	images = append(images, chain.images[:idxImage]...)
	chain.images = append(images, chain.images[idxImage+1:]...)
	for i := idxImage; i < len(chain.images); i++ {
		chain.images[i].Params.Relocate(params.Location{Image: i, Chain: idxChain})
	}
	if chain.active >= len(chain.images) || chain.active > idxImage {
		chain.active--
	}

	st.sink.Record(logging.Info, logging.SenderAPI,
		fmt.Sprintf("Deleted image, chain now has %d images", len(chain.images)), idxImage, idxChain)
	return nil
}
