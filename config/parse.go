package config

import (
	"fmt"
	"strconv"

	"github.com/discoal-go/discoal/arg"
)

// ParseError is returned for any malformed/contradictory command line,
// per §7's "configuration error" class: printed and the process aborts
// before simulation begins.
type ParseError struct {
	msg string
}

func (e *ParseError) Error() string { return "config: " + e.msg }

func errf(format string, args ...interface{}) error {
	return &ParseError{msg: fmt.Sprintf(format, args...)}
}

// cursor walks a []string argument vector the way discoal_multipop.c's
// getParameters walks argv, but with bounds checking instead of undefined
// behavior on a short argument list.
type cursor struct {
	args []string
	pos  int
}

func (c *cursor) cur() string { return c.args[c.pos] }

func (c *cursor) next() (string, error) {
	c.pos++
	if c.pos >= len(c.args) {
		return "", errf("flag %q is missing its argument", c.args[c.pos-1])
	}
	return c.args[c.pos], nil
}

func (c *cursor) nextFloat() (float64, error) {
	s, err := c.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errf("expected a number after %q, got %q", c.args[c.pos-1], s)
	}
	return v, nil
}

func (c *cursor) nextInt() (int, error) {
	s, err := c.next()
	if err != nil {
		return 0, err
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errf("expected an integer after %q, got %q", c.args[c.pos-1], s)
	}
	return v, nil
}

// Parse parses the full legacy positional+flag grammar described in §6.
func Parse(args []string) (Params, error) {
	if len(args) < 3 {
		return Params{}, errf("usage: sampleSize numReplicates nSites [options]")
	}
	p := NewDefault()

	var err error
	if p.SampleSize, err = strconv.Atoi(args[0]); err != nil {
		return Params{}, errf("sampleSize must be an integer, got %q", args[0])
	}
	if p.SampleSize > 65535 {
		return Params{}, errf("sampleSize %d exceeds the maximum representable ancestry count (65535)", p.SampleSize)
	}
	if p.NumReplicates, err = strconv.Atoi(args[1]); err != nil {
		return Params{}, errf("numReplicates must be an integer, got %q", args[1])
	}
	if p.NSites, err = strconv.Atoi(args[2]); err != nil {
		return Params{}, errf("nSites must be an integer, got %q", args[2])
	}
	const maxSites = 220020
	if p.NSites > maxSites {
		return Params{}, errf("nSites %d exceeds the compiled-in limit (%d)", p.NSites, maxSites)
	}

	p.SampleSizes = []int{p.SampleSize}
	p.Events = append(p.Events, arg.Event{Time: 0, Type: arg.EventPopSize, PopID: 0, SizeOrRate: 1.0})

	c := &cursor{args: args, pos: 3}
	for c.pos < len(c.args) {
		tok := c.cur()
		if len(tok) < 2 || tok[0] != '-' {
			return Params{}, errf("expected a flag, got %q", tok)
		}
		if err := p.parseOne(c, tok); err != nil {
			return Params{}, err
		}
		c.pos++
	}

	if p.RecurSweep && p.SoftSweep {
		return Params{}, errf("recurrent sweep mode (-R/-L) cannot be combined with a soft-sweep frequency floor (-f); unsupported combination")
	}
	if p.LeftFlankingMode && p.SweepSite >= 0 && p.SweepSite != 0.5 {
		// sweepSite defaults to 0.5; only flag an explicit interior -x as
		// contradictory with left-flanking mode.
		return Params{}, errf("left-flanking sweep mode (-ls/-ld/-ln) cannot be combined with an interior sweep site (-x %g)", p.SweepSite)
	}
	if len(p.MigMatConst) == 0 && p.NPops > 1 {
		p.MigMatConst = newMigMatrix(p.NPops)
	}
	return p, nil
}

func newMigMatrix(n int) [][]float64 {
	m := make([][]float64, n)
	for i := range m {
		m[i] = make([]float64, n)
	}
	return m
}

func (p *Params) parseOne(c *cursor, tok string) error {
	sub := byte(0)
	if len(tok) > 2 {
		sub = tok[2]
	}
	var err error
	switch tok[1] {
	case 'F':
		if p.TSOutputPath == "" {
			return errf("-F requires -ts to be specified first")
		}
		p.FullARG = true
	case 't':
		if sub == 's' {
			p.TSOutputPath, err = c.next()
		} else {
			p.Theta, err = c.nextFloat()
		}
	case 'i':
		p.DeltaTMod, err = c.nextFloat()
	case 'r':
		p.Rho, err = c.nextFloat()
	case 'g':
		if sub == 'r' {
			p.GammaCoRatio = true
			if p.GammaConvRate, err = c.nextFloat(); err != nil {
				return err
			}
			p.GCMean, err = c.nextInt()
		} else {
			if p.GammaConvRate, err = c.nextFloat(); err != nil {
				return err
			}
			p.GCMean, err = c.nextInt()
		}
	case 'a':
		p.Alpha, err = c.nextFloat()
	case 'x':
		p.SweepSite, err = c.nextFloat()
	case 'M':
		if p.NPops == 1 {
			return errf("-M requires more than one population; specify -p before -M")
		}
		var rate float64
		if rate, err = c.nextFloat(); err != nil {
			return err
		}
		p.MigMatConst = newMigMatrix(p.NPops)
		for i := 0; i < p.NPops; i++ {
			for j := 0; j < p.NPops; j++ {
				if i != j {
					p.MigMatConst[i][j] = rate
				}
			}
		}
	case 'm':
		if p.NPops == 1 {
			return errf("-m requires more than one population; specify -p before -m")
		}
		var i, j int
		var rate float64
		if i, err = c.nextInt(); err != nil {
			return err
		}
		if j, err = c.nextInt(); err != nil {
			return err
		}
		if rate, err = c.nextFloat(); err != nil {
			return err
		}
		if p.MigMatConst == nil {
			p.MigMatConst = newMigMatrix(p.NPops)
		}
		if i < 0 || i >= p.NPops || j < 0 || j >= p.NPops {
			return errf("-m population index out of range: %d %d", i, j)
		}
		p.MigMatConst[i][j] = rate
	case 'p':
		if p.NPops, err = c.nextInt(); err != nil {
			return err
		}
		const maxPops = 6
		if p.NPops > maxPops {
			return errf("too many populations (%d); maximum is %d", p.NPops, maxPops)
		}
		p.SampleSizes = make([]int, p.NPops)
		for i := 0; i < p.NPops; i++ {
			if p.SampleSizes[i], err = c.nextInt(); err != nil {
				return err
			}
		}
	case 'e':
		return p.parseEvent(c, sub)
	case 'w':
		p.SweepMode = SweepMode(sub)
		if p.Tau, err = c.nextFloat(); err != nil {
			return err
		}
		p.Tau *= 2.0
		p.Events = append(p.Events, arg.Event{Time: p.Tau, Type: arg.EventSweep})
	case 'l':
		p.SweepMode = SweepMode(sub)
		p.SweepSite = -1.0
		p.LeftFlankingMode = true
		if p.Tau, err = c.nextFloat(); err != nil {
			return err
		}
		p.Tau *= 2.0
		if p.LeftRho, err = c.nextFloat(); err != nil {
			return err
		}
		p.LeftRho *= 2.0
		p.Events = append(p.Events, arg.Event{Time: p.Tau, Type: arg.EventSweep})
	case 'f':
		p.SoftSweep = true
		p.F0, err = c.nextFloat()
	case 'u':
		p.UA, err = c.nextFloat()
	case 'P':
		return p.parsePrior(c, tok)
	case 'd':
		var s1, s2 int
		if s1, err = c.nextInt(); err != nil {
			return err
		}
		if s2, err = c.nextInt(); err != nil {
			return err
		}
		p.Seed1, p.Seed2 = uint64(s1), uint64(s2)
	case 'N':
		p.EffectivePopnSize, err = c.nextInt()
	case 'R':
		p.RecurSweep = true
		p.SweepMode = SweepStochastic
		p.RecurSweepRate, err = c.nextFloat()
	case 'L':
		p.RecurSweep = true
		p.RecurLeftMode = true
		p.SweepMode = SweepStochastic
		p.SweepSite = -1.0
		if p.RecurSweepRate, err = c.nextFloat(); err != nil {
			return err
		}
		if p.RecurSweepRate <= 0 {
			return errf("-L recurSweepRate must be > 0")
		}
	case 'c':
		p.PartialSweep = true
		p.SweepMode = SweepStochastic
		if p.PartialFinalFreq, err = c.nextFloat(); err != nil {
			return err
		}
		if p.PartialFinalFreq <= 0.0 || p.PartialFinalFreq >= 1.0 {
			return errf("-c partialSweepFinalFreq must be in (0,1)")
		}
	case 'A':
		var n, pop int
		var t float64
		if n, err = c.nextInt(); err != nil {
			return err
		}
		if pop, err = c.nextInt(); err != nil {
			return err
		}
		if t, err = c.nextFloat(); err != nil {
			return err
		}
		if n >= p.SampleSize {
			return errf("-A ancient sample size (%d) must be less than total sampleSize (%d)", n, p.SampleSize)
		}
		p.Events = append(p.Events, arg.Event{
			Time: t * 2.0, Type: arg.EventAncientSample, PopID: pop, LineageNumber: n,
		})
	default:
		return errf("unknown flag %q", tok)
	}
	return err
}

func (p *Params) parseEvent(c *cursor, sub byte) error {
	var err error
	switch sub {
	case 'n':
		e := arg.Event{Type: arg.EventPopSize}
		if e.Time, err = c.nextFloat(); err != nil {
			return err
		}
		e.Time *= 2.0
		if e.PopID, err = c.nextInt(); err != nil {
			return err
		}
		if e.SizeOrRate, err = c.nextFloat(); err != nil {
			return err
		}
		p.Events = append(p.Events, e)
	case 'd', 'j': // -ed / -ej: backward-time population join
		e := arg.Event{Type: arg.EventMerge}
		if e.Time, err = c.nextFloat(); err != nil {
			return err
		}
		e.Time *= 2.0
		if e.PopID, err = c.nextInt(); err != nil {
			return err
		}
		if e.PopID2, err = c.nextInt(); err != nil {
			return err
		}
		p.Events = append(p.Events, e)
	case 'a':
		e := arg.Event{Type: arg.EventAdmix}
		if e.Time, err = c.nextFloat(); err != nil {
			return err
		}
		e.Time *= 2.0
		if e.PopID, err = c.nextInt(); err != nil { // daughter
			return err
		}
		if e.PopID2, err = c.nextInt(); err != nil { // parent 1
			return err
		}
		if e.PopID3, err = c.nextInt(); err != nil { // parent 2
			return err
		}
		if e.AdmixProp, err = c.nextFloat(); err != nil {
			return err
		}
		p.Events = append(p.Events, e)
	case 'M': // -eM t rate: uniform migration-rate-matrix change
		if p.NPops == 1 {
			return errf("-eM requires more than one population; specify -p first")
		}
		e := arg.Event{Type: arg.EventMigRate, PopID: -1}
		if e.Time, err = c.nextFloat(); err != nil {
			return err
		}
		e.Time *= 2.0
		if e.SizeOrRate, err = c.nextFloat(); err != nil {
			return err
		}
		p.Events = append(p.Events, e)
	case 'm': // -em t i j rate: single-pair migration-rate change
		if p.NPops == 1 {
			return errf("-em requires more than one population; specify -p first")
		}
		e := arg.Event{Type: arg.EventMigRate}
		if e.Time, err = c.nextFloat(); err != nil {
			return err
		}
		e.Time *= 2.0
		if e.PopID, err = c.nextInt(); err != nil {
			return err
		}
		if e.PopID2, err = c.nextInt(); err != nil {
			return err
		}
		if e.SizeOrRate, err = c.nextFloat(); err != nil {
			return err
		}
		p.Events = append(p.Events, e)
	default:
		return errf("unknown -e sub-flag '%c'", sub)
	}
	return nil
}

func (p *Params) parsePrior(c *cursor, tok string) error {
	name := tok[2:]
	pr := Prior{Set: true}
	var err error
	switch name {
	case "t", "a", "x", "f":
		if pr.Low, err = c.nextFloat(); err != nil {
			return err
		}
		if pr.High, err = c.nextFloat(); err != nil {
			return err
		}
	case "c":
		p.PartialSweep = true
		if pr.Low, err = c.nextFloat(); err != nil {
			return err
		}
		if pr.High, err = c.nextFloat(); err != nil {
			return err
		}
	case "r":
		if pr.Low, err = c.nextFloat(); err != nil {
			return err
		}
		if pr.High, err = c.nextFloat(); err != nil {
			return err
		}
	case "re":
		pr.Exp = true
		if pr.Mean, err = c.nextFloat(); err != nil {
			return err
		}
	case "u", "uA":
		if pr.Low, err = c.nextFloat(); err != nil {
			return err
		}
		if pr.High, err = c.nextFloat(); err != nil {
			return err
		}
	case "e1", "e2":
		var tl, th, sl, sh float64
		if tl, err = c.nextFloat(); err != nil {
			return err
		}
		if th, err = c.nextFloat(); err != nil {
			return err
		}
		if sl, err = c.nextFloat(); err != nil {
			return err
		}
		if sh, err = c.nextFloat(); err != nil {
			return err
		}
		pr.Low, pr.High = tl*2.0, th*2.0
		p.Priors[name+"_size_low"] = Prior{Set: true, Low: sl}
		p.Priors[name+"_size_high"] = Prior{Set: true, Low: sh}
		p.Events = append(p.Events, arg.Event{Type: arg.EventPopSize})
	default:
		return errf("unknown prior flag -P%s", name)
	}
	p.Priors[name] = pr
	return nil
}
