package trajectory

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/grailbio/base/errors"
	"golang.org/x/sys/unix"
)

// trajFileCounter disambiguates trajectory files created within the same
// nanosecond by concurrent replicates (traverse.Each runs them in
// parallel), completing the pid+nanotime+counter naming scheme of §6.
var trajFileCounter int64

// newTrajFile creates the backing file for one accepted trajectory, named
// discoal-traj-<pid>-<nanotime>-<counter> under os.TempDir() per §6. This
// is deliberately a plain *os.File rather than a
// github.com/grailbio/base/file.Create handle: its descriptor is passed
// straight to unix.Mmap, which needs a real local file descriptor, and
// base/file's storage-abstracted handle (it also targets cloud backends)
// does not guarantee one.
func newTrajFile() (*os.File, error) {
	name := fmt.Sprintf("discoal-traj-%d-%d-%d", os.Getpid(), time.Now().UnixNano(), atomic.AddInt64(&trajFileCounter, 1))
	return os.OpenFile(filepath.Join(os.TempDir(), name), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
}

// maxSteps bounds trajectory length; exceeding it is a fatal programmer
// error per spec.md §4.6 ("trajectory length is bounded at 5e8 steps;
// overflow is fatal").
const maxSteps = 500_000_000

var errTrajectoryOverflow = errors.New("trajectory: proposal exceeded the maximum step bound")

// Config bundles the parameters one trajectory proposal needs: the sweep
// mode, selection/dominance coefficients, soft-sweep floor, and the
// population-size schedule the generator must walk through (supplied by
// the caller from the demographic event list currently in effect).
type Config struct {
	Mode  byte // 'd' deterministic, 's' stochastic, 'N' neutral
	Alpha float64
	F0    float64 // soft-sweep floor; 0 means hard sweep
	H     float64 // dominance coefficient, used by VariablePopnSizeTraj
	DeltaTMod float64

	// SizeAt returns the population-0 size multiplier sigma_0 at
	// coalescent-time-units-before-present t (t increases forward from the
	// sweep's onset). The generator uses this to rescale dt and to compute
	// the final acceptance ratio currentSizeRatio/Nmax (§4.6).
	SizeAt func(t float64) float64
}

// Generator proposes sweep trajectories and accepts one via rejection
// sampling against the largest size-ratio seen (§4.6 Braverman-style
// acceptance).
type Generator struct {
	cfg Config
	rng *rand.Rand
}

// NewGenerator builds a trajectory generator for the given configuration
// and RNG (shared with the replicate's SimulationContext so the whole
// replicate is reproducible from one seed pair).
func NewGenerator(cfg Config, rng *rand.Rand) *Generator {
	if cfg.DeltaTMod <= 0 {
		cfg.DeltaTMod = 40.0
	}
	return &Generator{cfg: cfg, rng: rng}
}

// MappedTrajectory is a read-only, randomly addressable view of an
// accepted trajectory, backed by an mmap'd temp file (§4.6, §5).
type MappedTrajectory struct {
	file *os.File
	data []byte
	n    int
}

// At returns the frequency recorded at step, or an invariant error if step
// runs past the mapped region (§7's invariant error class, not a silent
// zero return).
func (m *MappedTrajectory) At(step int) (float32, error) {
	if step < 0 || step >= m.n {
		return 0, errors.E(errInvariantStepOOB, "trajectory: step", step, "out of", m.n)
	}
	bits := binary.LittleEndian.Uint32(m.data[step*4 : step*4+4])
	return math.Float32frombits(bits), nil
}

// Len returns the number of steps in the mapped trajectory.
func (m *MappedTrajectory) Len() int { return m.n }

// Close unmaps and closes the backing file, then unlinks it — a trajectory
// is single-use, consumed by exactly one sweep phase (§5 cancellation:
// this same path runs on normal completion and on signal-driven cleanup).
func (m *MappedTrajectory) Close() error {
	var firstErr error
	if m.data != nil {
		if err := unix.Munmap(m.data); err != nil && firstErr == nil {
			firstErr = err
		}
		m.data = nil
	}
	if m.file != nil {
		path := m.file.Name()
		if err := m.file.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := os.Remove(path); err != nil && firstErr == nil && !os.IsNotExist(err) {
			firstErr = err
		}
	}
	return firstErr
}

var errInvariantStepOOB = errors.New("trajectory: step cursor past end of mapped region")

// step advances the trajectory once per the generator's mode, returning
// the next frequency. Soft sweeps (F0 > 0) fall through to the neutral
// jump process once freq drops below F0 (§4.6).
func (g *Generator) step(dt, freq float64) float64 {
	if g.cfg.F0 > 0 && freq < g.cfg.F0 {
		return NeutralFreq(g.rng, dt, freq)
	}
	switch g.cfg.Mode {
	case 'd':
		return freq // deterministic path is sampled via DeterministicFreq directly, not stepped
	case 'N':
		return NeutralFreq(g.rng, dt, freq)
	default:
		return StochasticFreq(g.rng, dt, freq, g.cfg.Alpha)
	}
}

// propose generates one full forward-time trajectory from frequency 1
// (backward-time: the sweep completes at t=0, fixation at onset) down to
// the 1/(2N) absorption boundary, walking the population-size schedule and
// tracking the largest size ratio seen. Returns the steps and the
// acceptance probability currentSizeRatio/Nmax: the size ratio at the last
// step over the largest one, per §4.6.
func (g *Generator) propose(effectivePopSize int) (steps []float32, acceptProb float64, err error) {
	// Start one boundary step below fixation: at exactly freq==1 the
	// diffusion/genic-selection step functions have zero variance (p*q==0)
	// and never move, so the walk would never reach the absorption
	// boundary. Starting at 1-1/(2N) is the frequency a just-fixed
	// mutation had one generation earlier.
	freq := 1.0 - 1.0/(2.0*float64(effectivePopSize))
	t := 0.0
	maxRatio := 0.0
	curRatio := 1.0
	n := 0
	for freq > 1.0/(2.0*float64(effectivePopSize)) {
		if n >= maxSteps {
			return nil, 0, errTrajectoryOverflow
		}
		sigma := 1.0
		if g.cfg.SizeAt != nil {
			sigma = g.cfg.SizeAt(t)
		}
		curRatio = sigma
		if sigma > maxRatio {
			maxRatio = sigma
		}
		dt := 1.0 / (g.cfg.DeltaTMod * sigma * float64(effectivePopSize))

		var next float64
		if g.cfg.Mode == 'd' {
			next = DeterministicFreq(t, g.cfg.Alpha)
		} else {
			next = g.step(dt, freq)
		}
		if next < 0 {
			next = 0
		}
		if next > 1 {
			next = 1
		}
		steps = append(steps, float32(freq))
		freq = next
		t += dt
		n++
	}
	if maxRatio <= 0 {
		maxRatio = 1.0
	}
	return steps, curRatio / maxRatio, nil
}

// ProposeAndAccept proposes trajectories in memory and accepts one with
// probability currentSizeRatio/Nmax; rejected proposals never touch the
// filesystem. The accepted trajectory is written to a pid/nanotime-tagged
// temp file and mmapped read-only through the same descriptor (§4.6, §5,
// §6 trajectory-file naming).
func (g *Generator) ProposeAndAccept(effectivePopSize int) (*MappedTrajectory, error) {
	for {
		steps, acceptProb, err := g.propose(effectivePopSize)
		if err != nil {
			return nil, err
		}
		if g.rng.Float64() >= acceptProb {
			continue
		}

		f, err := newTrajFile()
		if err != nil {
			return nil, errors.E(err, "trajectory: create temp file")
		}
		buf := make([]byte, 4*len(steps))
		for i, s := range steps {
			binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(s))
		}
		if _, err := f.Write(buf); err != nil {
			path := f.Name()
			f.Close()
			os.Remove(path)
			return nil, errors.E(err, "trajectory: write proposal")
		}
		if err := f.Sync(); err != nil {
			path := f.Name()
			f.Close()
			os.Remove(path)
			return nil, errors.E(err, "trajectory: sync proposal")
		}

		data, err := unix.Mmap(int(f.Fd()), 0, len(buf), unix.PROT_READ, unix.MAP_SHARED)
		if err != nil {
			path := f.Name()
			f.Close()
			os.Remove(path)
			return nil, errors.E(err, "trajectory: mmap accepted trajectory")
		}
		return &MappedTrajectory{file: f, data: data, n: len(steps)}, nil
	}
}
