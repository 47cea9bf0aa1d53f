// Package config parses the simulator's legacy positional/compact-flag
// command line (§6) into a Params struct, optionally overlaid by a YAML
// configuration file and/or a demes demographic model.
//
// The flag grammar is order-sensitive and uses repeated single-letter
// flags with variable arity ("-p npops n1 n2...", "-en t p size"), which
// does not fit Go's standard flag.FlagSet well. Parse instead walks os.Args
// by hand, mirroring original_source/discoal_multipop.c's getParameters —
// the same "switch on argv[i][1]" shape, translated into idiomatic Go
// (a small cursor over a string slice, explicit errors instead of exit()).
package config

import "github.com/discoal-go/discoal/arg"

// SweepMode selects the forward-time trajectory model for a sweep epoch.
type SweepMode byte

const (
	SweepNone        SweepMode = 0
	SweepDeterministic SweepMode = 'd'
	SweepStochastic    SweepMode = 's'
	SweepNeutral       SweepMode = 'N'
)

// Prior describes an optional [low, high] (or, for -Pre, a mean) range
// used when this run sampled a parameter rather than fixing it — the
// priors are recorded but sampling them is a CLI-level concern the
// original program performs before invoking the engine; the core only
// needs the resolved values, so Params carries the resolved values plus
// these records for provenance/logging.
type Prior struct {
	Set  bool
	Low  float64
	High float64
	Mean float64
	Exp  bool // -Pre: exponential prior on rho, mean only
}

// Params is the fully resolved configuration for one simulator invocation.
type Params struct {
	SampleSize    int
	NumReplicates int
	NSites        int

	NPops       int
	SampleSizes []int

	Theta float64
	Rho   float64

	GammaConvRate float64 // -g / -gr gene-conversion rate (or ratio to rho)
	GCMean        int     // mean gene-conversion tract length
	GammaCoRatio  bool     // true if -gr ratio form used (GammaConvRate is a ratio to Rho)

	SweepMode        SweepMode
	Tau              float64 // time of sweep, in 2N0 units, already x2-scaled
	Alpha            float64
	SweepSite        float64 // in [0,1); -1 means "left-flanking" mode (-ls/-ld/-ln)
	F0               float64 // soft-sweep frequency floor
	SoftSweep        bool
	UA               float64 // recurrent adaptive mutation rate
	PartialSweep     bool
	PartialFinalFreq float64
	LeftRho          float64 // -ls/-ld/-ln flanking-locus rho
	LeftFlankingMode bool
	RecurSweep       bool
	RecurSweepRate   float64
	RecurLeftMode    bool // -L: recurrent sweep at a random, left-flanking site

	MigMatConst [][]float64 // npops x npops migration rate matrix

	Events []arg.Event

	Seed1, Seed2 uint64

	EffectivePopnSize int // -N

	TSOutputPath string // -ts
	FullARG      bool   // -F

	Priors map[string]Prior

	DeltaTMod float64 // trajectory step-size divisor, default 40 (-i)
}

// DefaultDeltaTMod matches original_source's default of 40.
const DefaultDeltaTMod = 40.0

// NewDefault returns Params pre-populated with the same defaults
// discoal_multipop.c's getParameters establishes before scanning flags.
func NewDefault() Params {
	return Params{
		NPops:             1,
		DeltaTMod:         DefaultDeltaTMod,
		EffectivePopnSize: 1000000,
		SweepSite:         0.5,
		Priors:            map[string]Prior{},
	}
}
