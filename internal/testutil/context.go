// Package testutil builds small, deterministic SimulationContext fixtures
// shared across package tests, mirroring how grailbio's own testutil
// packages centralize fixture construction instead of letting every
// _test.go file hand-roll its own.
package testutil

import (
	"github.com/discoal-go/discoal/config"
	"github.com/discoal-go/discoal/simcontext"
)

// Opts configures a fixture context; zero-value fields fall back to
// single-population, neutral-only defaults.
type Opts struct {
	SampleSize int
	NSites     int
	NPops      int
	Theta      float64
	Rho        float64
	Seed1      uint64
	Seed2      uint64
}

// NewContext builds a SimulationContext with SeedLeaves already called, for
// tests that need a ready-to-use registry of leaf lineages.
func NewContext(o Opts) *simcontext.SimulationContext {
	p := config.NewDefault()
	p.SampleSize = o.SampleSize
	p.NSites = o.NSites
	p.NPops = o.NPops
	if p.NPops < 1 {
		p.NPops = 1
	}
	if p.NPops == 1 {
		p.SampleSizes = []int{o.SampleSize}
	}
	p.Theta = o.Theta
	p.Rho = o.Rho
	seed1, seed2 := o.Seed1, o.Seed2
	if seed1 == 0 && seed2 == 0 {
		seed1, seed2 = 1, 2
	}
	ctx := simcontext.New(p, seed1, seed2)
	ctx.SeedLeaves()
	return ctx
}
