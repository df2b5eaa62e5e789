package state

import (
	"math"
	"sync"
	"testing"

	"github.com/san-kum/spinlab/internal/config"
	"github.com/san-kum/spinlab/internal/hamiltonian"
	"github.com/san-kum/spinlab/internal/params"
	"github.com/san-kum/spinlab/internal/spin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func testConfig(images int) *config.Config {
	cfg := config.DefaultConfig()
	cfg.Geometry.NCells = [3]int{4, 4, 1}
	cfg.Chain.Images = images
	cfg.Relax.Seed = 42
	return cfg
}

func TestNew(t *testing.T) {
	st, err := New(testConfig(3), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, st.NumChains())
	chain, err := st.Chain(-1)
	require.NoError(t, err)
	require.Equal(t, 3, chain.Len())

	for i, img := range chain.Images() {
		assert.Equal(t, params.Location{Image: i, Chain: 0}, img.Params.Location())
		assert.Equal(t, hamiltonian.NamePairs, img.Params.Name())
		spins := img.Spins()
		require.Len(t, spins, 16)
		for _, s := range spins {
			assert.InDelta(t, 1, s.Norm(), 1e-12)
		}
	}
}

func TestNew_DistinctStores(t *testing.T) {
	st, err := New(testConfig(2), nil, nil)
	require.NoError(t, err)

	a, _, err := st.FromIndices(0, 0)
	require.NoError(t, err)
	b, _, err := st.FromIndices(1, 0)
	require.NoError(t, err)

	a.Params.SetMomentMagnitude(3)
	assert.Equal(t, spin.DefaultMuS, b.Params.MomentMagnitudes()[0])
}

func TestNew_PlusZ(t *testing.T) {
	cfg := testConfig(1)
	cfg.Relax.Init = config.InitPlusZ
	st, err := New(cfg, nil, nil)
	require.NoError(t, err)

	img, _, err := st.FromIndices(-1, -1)
	require.NoError(t, err)
	for _, s := range img.Spins() {
		assert.Equal(t, spin.UnitZ, s)
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(1)
	cfg.Hamiltonian.Kind = "dipolar"
	_, err := New(cfg, nil, nil)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNew_LogsSetup(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	_, err := New(testConfig(1), zap.New(core), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessageSnippet("State set up").Len())
}

func TestFromIndices(t *testing.T) {
	st, err := New(testConfig(3), nil, nil)
	require.NoError(t, err)

	tests := []struct {
		name      string
		img       int
		chain     int
		wantErr   error
		wantImage int
	}{
		{"active", -1, -1, nil, 0},
		{"explicit", 2, 0, nil, 2},
		{"active chain", 1, -1, nil, 1},
		{"image out of range", 3, 0, ErrNoImage, 0},
		{"chain out of range", 0, 1, ErrNoChain, 0},
	}

	chain, _ := st.Chain(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img, _, err := st.FromIndices(tt.img, tt.chain)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, img)
				return
			}
			require.NoError(t, err)
			assert.Same(t, chain.Images()[tt.wantImage], img)
		})
	}
}

func TestSetActiveImage(t *testing.T) {
	st, err := New(testConfig(3), nil, nil)
	require.NoError(t, err)

	require.NoError(t, st.SetActiveImage(2, -1))
	img, chain, err := st.FromIndices(-1, -1)
	require.NoError(t, err)
	assert.Same(t, chain.Images()[2], img)

	assert.ErrorIs(t, st.SetActiveImage(5, 0), ErrNoImage)
	assert.ErrorIs(t, st.SetActiveImage(-1, 0), ErrNoImage)
}

func TestDeleteImage(t *testing.T) {
	st, err := New(testConfig(3), nil, nil)
	require.NoError(t, err)
	require.NoError(t, st.SetActiveImage(2, 0))
	chain, _ := st.Chain(0)
	last := chain.Images()[2]

	require.NoError(t, st.DeleteImage(0, 0))

	assert.Equal(t, 2, chain.Len())
	assert.Same(t, last, chain.Images()[1])
	assert.Equal(t, params.Location{Image: 1, Chain: 0}, last.Params.Location())
	assert.Equal(t, 1, chain.Active())

	require.NoError(t, st.DeleteImage(-1, -1))
	assert.ErrorIs(t, st.DeleteImage(0, 0), ErrLastImage)
}

func TestDeleteImage_ConcurrentReaders(t *testing.T) {
	st, err := New(testConfig(6), nil, nil)
	require.NoError(t, err)
	chain, err := st.Chain(0)
	require.NoError(t, err)
	before := chain.Images()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5; i++ {
			assert.NoError(t, st.DeleteImage(0, 0))
		}
	}()
	for i := 0; i < 200; i++ {
		images := chain.Images()
		assert.NotEmpty(t, images)
		assert.Less(t, chain.Active(), chain.Len()+1)
		for _, img := range images {
			assert.NotNil(t, img)
		}
	}
	wg.Wait()

	assert.Equal(t, 1, chain.Len())
	assert.Len(t, before, 6)
	assert.Same(t, before[5], chain.Images()[0])
}

func TestImage_SetSpins(t *testing.T) {
	st, err := New(testConfig(1), nil, nil)
	require.NoError(t, err)
	img, _, _ := st.FromIndices(0, 0)

	assert.ErrorIs(t, img.SetSpins(make(spin.Field, 3)), spin.ErrDimensionMismatch)

	bad := spin.NewField(16, spin.UnitX)
	bad[3] = spin.Vector3{math.NaN(), 0, 0}
	assert.ErrorIs(t, img.SetSpins(bad), spin.ErrInvalidState)

	good := spin.NewField(16, spin.UnitX)
	require.NoError(t, img.SetSpins(good))
	good[0] = spin.UnitY
	assert.Equal(t, spin.UnitX, img.Spins()[0])
}

func TestImage_Evaluate(t *testing.T) {
	st, err := New(testConfig(1), nil, nil)
	require.NoError(t, err)
	img, _, _ := st.FromIndices(0, 0)

	img.Params.SetBoundaryConditions([3]bool{true, true, false})
	require.NoError(t, img.Params.SetExchange(1, []float64{1}))

	e, err := img.Evaluate(spin.NewField(16, spin.UnitZ), nil)
	require.NoError(t, err)
	// 16 sites, 2 bonds each on a periodic square lattice
	assert.InDelta(t, -32, e.Exchange, 1e-9)
}
