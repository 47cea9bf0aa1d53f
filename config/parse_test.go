package config

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discoal-go/discoal/arg"
)

func split(s string) []string { return strings.Fields(s) }

func TestParseS1Neutral(t *testing.T) {
	p, err := Parse(split("10 1 1000 -t 5 -r 5"))
	require.NoError(t, err)
	assert.Equal(t, 10, p.SampleSize)
	assert.Equal(t, 1, p.NumReplicates)
	assert.Equal(t, 1000, p.NSites)
	assert.Equal(t, 5.0, p.Theta)
	assert.Equal(t, 5.0, p.Rho)
}

func TestParseSweepWithAlphaAndSite(t *testing.T) {
	p, err := Parse(split("20 1 10000 -t 10 -r 5 -ws 0.05 -a 1000 -x 0.5"))
	require.NoError(t, err)
	assert.Equal(t, SweepStochastic, p.SweepMode)
	assert.InDelta(t, 0.1, p.Tau, 1e-9) // tau doubled
	assert.Equal(t, 1000.0, p.Alpha)
	assert.Equal(t, 0.5, p.SweepSite)
}

func TestParsePopulationsAndMigration(t *testing.T) {
	p, err := Parse(split("10 1 1000 -t 5 -r 2 -p 2 5 5 -ed 0.2 1 0 -M 0"))
	require.NoError(t, err)
	require.Equal(t, 2, p.NPops)
	assert.Equal(t, []int{5, 5}, p.SampleSizes)
	require.Len(t, p.Events, 2) // initial bogus + the -ed event
	assert.Equal(t, 0.0, p.MigMatConst[0][1])
}

func TestParseTreeSequenceFullARG(t *testing.T) {
	p, err := Parse(split("10 1 1000 -t 5 -r 5 -ts full.trees -F"))
	require.NoError(t, err)
	assert.Equal(t, "full.trees", p.TSOutputPath)
	assert.True(t, p.FullARG)
}

func TestParseFullARGWithoutTSIsError(t *testing.T) {
	_, err := Parse(split("10 1 1000 -t 5 -F"))
	assert.Error(t, err)
}

func TestParseRejectsRecurrentPlusSoftSweep(t *testing.T) {
	_, err := Parse(split("10 1 1000 -t 5 -R 0.1 -f 0.1"))
	assert.Error(t, err)
}

func TestParseSampleSizeTooLarge(t *testing.T) {
	_, err := Parse(split("70000 1 1000"))
	assert.Error(t, err)
}

func TestParseUnknownFlag(t *testing.T) {
	_, err := Parse(split("10 1 1000 -zz"))
	assert.Error(t, err)
}

func TestParseAncientSample(t *testing.T) {
	p, err := Parse(split("10 1 1000 -t 5 -A 3 0 1.0"))
	require.NoError(t, err)
	var found bool
	for _, e := range p.Events {
		if e.Type == arg.EventAncientSample {
			found = true
			assert.Equal(t, 3, e.LineageNumber)
			assert.Equal(t, 0, e.PopID)
		}
	}
	assert.True(t, found)
}

func TestParseMigrationWithoutPopsIsError(t *testing.T) {
	_, err := Parse(split("10 1 1000 -M 1"))
	assert.Error(t, err)
}
