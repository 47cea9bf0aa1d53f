package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discoal-go/discoal/internal/testutil"
	"github.com/discoal-go/discoal/registry"
	"github.com/discoal-go/discoal/simcontext"
)

func newTestContext(t *testing.T, sampleSize, nSites int, theta, rho float64) *simcontext.SimulationContext {
	t.Helper()
	return testutil.NewContext(testutil.Opts{
		SampleSize: sampleSize, NSites: nSites, NPops: 1, Theta: theta, Rho: rho, Seed1: 11, Seed2: 22,
	})
}

func TestRunNeutralPhaseCoalescesToMRCA(t *testing.T) {
	ctx := newTestContext(t, 6, 100, 5.0, 0)
	tNow := 0.0
	for ctx.Registry.Total() > 1 {
		next, err := RunNeutralPhase(ctx, tNow, tNow+1000.0)
		require.NoError(t, err)
		if next == tNow {
			t.Fatal("RunNeutralPhase made no progress")
		}
		tNow = next
		if tNow >= 999.0 {
			break
		}
	}
	assert.Equal(t, 1, ctx.Registry.Total())
}

func TestRunNeutralPhaseRespectsBoundary(t *testing.T) {
	ctx := newTestContext(t, 4, 50, 0, 0)
	next, err := RunNeutralPhase(ctx, 0, 0.5)
	require.NoError(t, err)
	assert.Equal(t, 0.5, next)
}

func TestInitializeSweepClassesPartitionsPopulation(t *testing.T) {
	ctx := newTestContext(t, 10, 50, 0, 0)
	InitializeSweepClasses(ctx, 0.5)
	total := ctx.Registry.SweepClassSize(registry.SweepB) + ctx.Registry.SweepClassSize(registry.Sweepb)
	assert.Equal(t, 10, total)
}

func TestResetSweepClassesClearsTags(t *testing.T) {
	ctx := newTestContext(t, 8, 50, 0, 0)
	InitializeSweepClasses(ctx, 0.5)
	ResetSweepClasses(ctx)
	assert.Equal(t, 0, ctx.Registry.SweepClassSize(registry.SweepB))
	assert.Equal(t, 0, ctx.Registry.SweepClassSize(registry.Sweepb))
}
