package argops

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discoal-go/discoal/config"
	"github.com/discoal-go/discoal/internal/testutil"
	"github.com/discoal-go/discoal/registry"
	"github.com/discoal-go/discoal/simcontext"
)

func newTestContext(t *testing.T, sampleSize, nSites int) *simcontext.SimulationContext {
	t.Helper()
	return testutil.NewContext(testutil.Opts{SampleSize: sampleSize, NSites: nSites, NPops: 1})
}

func TestCoalesceReducesPopulationByOne(t *testing.T) {
	ctx := newTestContext(t, 4, 100)
	require.Equal(t, 4, ctx.Registry.PopulationSize(0))
	Coalesce(ctx, 0, 0.1)
	assert.Equal(t, 3, ctx.Registry.PopulationSize(0))
	assert.Equal(t, 3, ctx.Registry.Total())
}

func TestCoalesceToCompletionMergesAllAncestry(t *testing.T) {
	ctx := newTestContext(t, 5, 50)
	for ctx.Registry.PopulationSize(0) > 1 {
		Coalesce(ctx, 0, 0.1)
	}
	require.Equal(t, 1, ctx.Registry.PopulationSize(0))
	mrca := ctx.Registry.All()[0]
	assert.Equal(t, 0, mrca.Ancestry.First())
	assert.Equal(t, 50, mrca.Ancestry.Last())
	assert.Equal(t, 5, mrca.Ancestry.GetCount(0))
}

func TestMigrateMovesLineageBetweenPopulations(t *testing.T) {
	p := config.NewDefault()
	p.SampleSizes = []int{2, 2}
	p.NPops = 2
	p.SampleSize = 4
	p.NSites = 10
	ctx := simcontext.New(p, 3, 4)
	ctx.SeedLeaves()

	require.Equal(t, 2, ctx.Registry.PopulationSize(0))
	require.Equal(t, 2, ctx.Registry.PopulationSize(1))

	ok := Migrate(ctx, 0, 1)
	require.True(t, ok)
	assert.Equal(t, 1, ctx.Registry.PopulationSize(0))
	assert.Equal(t, 3, ctx.Registry.PopulationSize(1))
}

func TestMigrateFromEmptyPopulationIsNoOp(t *testing.T) {
	ctx := testutil.NewContext(testutil.Opts{SampleSize: 2, NSites: 10, NPops: 2})
	ok := Migrate(ctx, 1, 0)
	assert.False(t, ok)
}

func TestRecombineAcceptsInteriorSite(t *testing.T) {
	ctx := newTestContext(t, 2, 10)
	accepted := false
	for i := 0; i < 200 && !accepted; i++ {
		accepted = Recombine(ctx, 0, 0.05, false, 0)
	}
	// With 2 single-segment full-span leaves, every crossover site except 0
	// is strictly interior to [0, nSites), so acceptance should happen often.
	assert.True(t, accepted)
}

func TestSweepClassSwapRequiresNonemptyClass(t *testing.T) {
	ctx := newTestContext(t, 4, 10)
	ok := SweepClassSwap(ctx, 0, registry.SweepB)
	assert.False(t, ok)
}

func TestJoinMovesAllLineages(t *testing.T) {
	p := config.NewDefault()
	p.SampleSizes = []int{3, 2}
	p.NPops = 2
	p.SampleSize = 5
	p.NSites = 10
	ctx := simcontext.New(p, 5, 6)
	ctx.SeedLeaves()

	Join(ctx, 1, 0)
	assert.Equal(t, 5, ctx.Registry.PopulationSize(0))
	assert.Equal(t, 0, ctx.Registry.PopulationSize(1))
}

func TestAdmixSplitsDaughterBetweenParents(t *testing.T) {
	p := config.NewDefault()
	p.SampleSizes = []int{6, 0, 0}
	p.NPops = 3
	p.SampleSize = 6
	p.NSites = 10
	ctx := simcontext.New(p, 7, 8)
	ctx.SeedLeaves()

	Admix(ctx, 0, 1, 2, 0.5)
	assert.Equal(t, 0, ctx.Registry.PopulationSize(0))
	assert.Equal(t, 6, ctx.Registry.PopulationSize(1)+ctx.Registry.PopulationSize(2))
}
