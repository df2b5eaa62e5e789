package engine_test

import (
	"context"
	"errors"
	"math"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/spinlab/internal/config"
	"github.com/san-kum/spinlab/internal/engine"
	"github.com/san-kum/spinlab/internal/hamiltonian"
	"github.com/san-kum/spinlab/internal/metrics"
	"github.com/san-kum/spinlab/internal/spin"
	"github.com/san-kum/spinlab/internal/state"
)

// 4x4 periodic square lattice, J=1, K=1 along z: the ground state is all +z
// with E = -2*16*J - 16*K.
const groundState = -48.0

func newImages(n int) []*state.Image {
	cfg := config.DefaultConfig()
	cfg.Geometry.NCells = [3]int{4, 4, 1}
	cfg.Chain.Images = n
	cfg.Relax.Init = config.InitPlusZ
	st, err := state.New(cfg, nil, nil)
	Expect(err).NotTo(HaveOccurred())

	chain, err := st.Chain(-1)
	Expect(err).NotTo(HaveOccurred())
	for _, img := range chain.Images() {
		img.Params.SetBoundaryConditions([3]bool{true, true, false})
		Expect(img.Params.SetExchange(1, []float64{1})).To(Succeed())
		Expect(img.Params.SetAnisotropy(1, spin.UnitZ)).To(Succeed())
		Expect(img.SetSpins(tilted(img.Geometry().NSpins))).To(Succeed())
	}
	return chain.Images()
}

// tilted spreads spins over the upper hemisphere.
func tilted(n int) spin.Field {
	f := make(spin.Field, n)
	for i := range f {
		theta := 0.3 + 0.6*float64(i%5)/4
		phi := 0.7 * float64(i)
		f[i] = spin.Vector3{math.Sin(theta) * math.Cos(phi), math.Sin(theta) * math.Sin(phi), math.Cos(theta)}
	}
	return f
}

type countingObserver struct {
	steps []engine.Step
}

func (o *countingObserver) OnStep(s engine.Step) { o.steps = append(o.steps, s) }

type failingSystem struct {
	spins spin.Field
}

func (f *failingSystem) Spins() spin.Field           { return f.spins.Clone() }
func (f *failingSystem) SetSpins(s spin.Field) error { f.spins = s.Clone(); return nil }
func (f *failingSystem) Evaluate(_, _ spin.Field) (hamiltonian.Energy, error) {
	return hamiltonian.Energy{}, errBroken
}

var errBroken = errors.New("broken hamiltonian")

var _ = Describe("Relaxer", func() {
	var (
		img *state.Image
		cfg engine.Config
	)

	BeforeEach(func() {
		img = newImages(1)[0]
		cfg = engine.DefaultConfig()
		cfg.MaxSteps = 5000
	})

	It("relaxes to the ferromagnetic ground state", func() {
		res, err := engine.New().Run(context.Background(), img, cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Converged).To(BeTrue())
		Expect(res.MaxTorque).To(BeNumerically("<", cfg.Tolerance))
		Expect(res.Final.Total()).To(BeNumerically("~", groundState, 1e-6))
		Expect(res.Energies[len(res.Energies)-1]).To(BeNumerically("<", res.Energies[0]))

		for _, s := range img.Spins() {
			Expect(s[2]).To(BeNumerically("~", 1, 1e-6))
		}
	})

	It("notifies observers and metrics every step", func() {
		obs := &countingObserver{}
		r := engine.New()
		r.AddObserver(obs)
		for _, m := range metrics.Default() {
			r.AddMetric(m)
		}

		res, err := r.Run(context.Background(), img, cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(obs.steps).To(HaveLen(len(res.Energies)))
		Expect(obs.steps).To(HaveLen(res.StepsTaken + 1))
		Expect(obs.steps[0].Index).To(Equal(0))
		Expect(res.Metrics).To(HaveKey("energy_change"))
		Expect(res.Metrics["energy_change"]).To(BeNumerically("<", 0))
		Expect(res.Metrics["max_torque"]).To(BeNumerically("<", cfg.Tolerance))
	})

	It("stops at the step budget without converging", func() {
		cfg.MaxSteps = 3

		res, err := engine.New().Run(context.Background(), img, cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Converged).To(BeFalse())
		Expect(res.StepsTaken).To(Equal(3))
		Expect(res.Energies).To(HaveLen(3))
		Expect(res.Final.Total()).To(BeNumerically("<=", res.Energies[2]))
	})

	It("returns the context error when cancelled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		before := img.Spins()

		res, err := engine.New().Run(ctx, img, cfg)

		Expect(err).To(MatchError(context.Canceled))
		Expect(res.StepsTaken).To(Equal(0))
		Expect(img.Spins()).To(Equal(before))
	})

	It("rejects invalid configs", func() {
		for _, bad := range []engine.Config{
			{StepSize: 0, MaxSteps: 10},
			{StepSize: 0.1, MaxSteps: 0},
			{StepSize: 0.1, MaxSteps: 10, Tolerance: -1},
		} {
			_, err := engine.New().Run(context.Background(), img, bad)
			Expect(err).To(HaveOccurred())
		}
	})

	It("propagates evaluation errors", func() {
		sys := &failingSystem{spins: spin.NewField(4, spin.UnitZ)}

		_, err := engine.New().Run(context.Background(), sys, cfg)

		Expect(err).To(MatchError(errBroken))
	})

	It("lets parameter setters interleave with a running relaxation", func() {
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer GinkgoRecover()
			defer wg.Done()
			for i := 0; i < 20; i++ {
				Expect(img.Params.SetExchange(1, []float64{1})).To(Succeed())
				img.Params.SetMomentMagnitude(1)
			}
		}()

		res, err := engine.New().Run(context.Background(), img, cfg)
		wg.Wait()

		Expect(err).NotTo(HaveOccurred())
		Expect(res.Converged).To(BeTrue())
	})
})

var _ = Describe("Ensemble", func() {
	It("relaxes every image of a chain", func() {
		images := newImages(3)
		systems := make([]engine.System, len(images))
		for i, img := range images {
			systems[i] = img
		}
		cfg := engine.DefaultConfig()
		cfg.MaxSteps = 5000

		results, err := engine.NewEnsemble(metrics.Default, 2).Run(context.Background(), systems, cfg)

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for _, res := range results {
			Expect(res.Converged).To(BeTrue())
			Expect(res.Final.Total()).To(BeNumerically("~", groundState, 1e-6))
			Expect(res.Metrics).To(HaveKey("max_torque"))
		}
	})

	It("reports the first failure", func() {
		systems := []engine.System{
			newImages(1)[0],
			&failingSystem{spins: spin.NewField(16, spin.UnitZ)},
		}

		_, err := engine.NewEnsemble(nil, 0).Run(context.Background(), systems, engine.DefaultConfig())

		Expect(err).To(MatchError(errBroken))
	})
})
