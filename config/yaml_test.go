package config

import (
	"io/ioutil"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/discoal-go/discoal/arg"
)

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	f, err := ioutil.TempFile("", "discoal-cfg-*.yaml")
	require.NoError(t, err)
	_, err = f.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, f.Close())
	t.Cleanup(func() { os.Remove(f.Name()) })
	return f.Name()
}

func TestLoadYAMLBasics(t *testing.T) {
	path := writeTemp(t, `
simulation:
  sample_size: 10
  num_replicates: 1
  n_sites: 1000
genetics:
  theta: 5.0
  rho: 2.0
selection:
  mode: s
  tau: 0.1
  alpha: 1000
  site: 0.5
`)
	p, err := LoadYAML(path)
	require.NoError(t, err)
	assert.Equal(t, 10, p.SampleSize)
	assert.Equal(t, 5.0, p.Theta)
	assert.Equal(t, SweepStochastic, p.SweepMode)
	assert.InDelta(t, 0.2, p.Tau, 1e-9)
}

func TestLoadDemesTranslatesEpochs(t *testing.T) {
	path := writeTemp(t, `
time_units: generations
generation_time: 1
demes:
  - name: ancestral
    epochs:
      - end_time: 1000
        start_size: 10000
  - name: derived
    ancestors: [ancestral]
    epochs:
      - end_time: 0
        start_size: 5000
`)
	events, err := LoadDemes(path, 1.0, 10000)
	require.NoError(t, err)
	require.NotEmpty(t, events)
	var sawMerge bool
	for _, e := range events {
		if e.Type == arg.EventMerge {
			sawMerge = true
		}
	}
	assert.True(t, sawMerge)
}
