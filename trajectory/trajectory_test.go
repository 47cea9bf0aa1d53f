package trajectory

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeterministicFreqMonotonicallyIncreases(t *testing.T) {
	alpha := 1000.0
	prev := DeterministicFreq(0, alpha)
	for _, tt := range []float64{1, 2, 3, 4, 5} {
		cur := DeterministicFreq(tt, alpha)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
	assert.InDelta(t, 1.0, DeterministicFreq(100, alpha), 1e-6)
}

func TestNeutralFreqBoundaryNoNaN(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	f := NeutralFreq(rng, 0.01, 0)
	assert.False(t, f != f) // NaN check
	f = NeutralFreq(rng, 0.01, 1)
	assert.False(t, f != f)
}

func TestStochasticFreqBoundaryReturnsUnchanged(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	assert.Equal(t, 0.0, StochasticFreq(rng, 0.01, 0, 1000))
	assert.Equal(t, 1.0, StochasticFreq(rng, 0.01, 1, 1000))
}

func TestVariablePopnSizeTrajClampsAtOne(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		f := VariablePopnSizeTraj(rng, 0.5, 0.999999, -500, 0.5, 1.0)
		assert.LessOrEqual(t, f, 1.0)
	}
}

func TestProposeAndAcceptProducesReadableTrajectory(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	gen := NewGenerator(Config{Mode: 'd', Alpha: 1000, DeltaTMod: 40}, rng)
	traj, err := gen.ProposeAndAccept(50)
	require.NoError(t, err)
	defer traj.Close()

	require.Greater(t, traj.Len(), 0)
	first, err := traj.At(0)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, float64(first), 0.2)

	_, err = traj.At(traj.Len())
	assert.Error(t, err)
}

func TestProposeAndAcceptStochasticModeTerminates(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	gen := NewGenerator(Config{Mode: 's', Alpha: 200, DeltaTMod: 40}, rng)
	traj, err := gen.ProposeAndAccept(20)
	require.NoError(t, err)
	defer traj.Close()
	assert.Greater(t, traj.Len(), 0)
}
