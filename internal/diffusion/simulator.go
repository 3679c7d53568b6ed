package diffusion

import (
	"context"
	"fmt"
	"hash/fnv"

	"github.com/nvandessel/illusim/internal/illusion"
	"github.com/nvandessel/illusim/internal/network"
	"github.com/nvandessel/illusim/internal/opinion"
)

// DefaultMaxRounds caps a run when the labeling never settles.
const DefaultMaxRounds = 50

// HaltReason explains why a run stopped.
type HaltReason string

const (
	// HaltConverged means a round produced zero label changes.
	HaltConverged HaltReason = "converged"
	// HaltMaxRounds means the round cap was exhausted without a fixed
	// point.
	HaltMaxRounds HaltReason = "max-rounds"
	// HaltCycle means a labeling repeated an earlier round. Only
	// reported when Config.DetectCycles is set.
	HaltCycle HaltReason = "cycle"
)

// RoundStats describes one executed round.
type RoundStats struct {
	// Round is the zero-based round index.
	Round int
	// IllusionSize is the illusion-set size measured on the labeling
	// entering the round.
	IllusionSize int
	// Flips is the number of nodes that changed label this round.
	Flips int
	// RedCount is the number of Red nodes after the update.
	RedCount int
}

// RoundObserver receives per-round statistics. The simulator calls it
// inline, so implementations must be cheap.
type RoundObserver interface {
	ObserveRound(stats RoundStats)
}

// Config holds tunable parameters for the simulator.
type Config struct {
	// Rule is the update rule applied each round. Required.
	Rule Rule

	// MaxRounds caps the loop. Zero or negative means DefaultMaxRounds.
	MaxRounds int

	// DetectCycles enables labeling-hash cycle detection for reversible
	// rules. It never changes the label sequence, only when the loop
	// stops.
	DetectCycles bool

	// Observer, when non-nil, receives one RoundStats per executed
	// round.
	Observer RoundObserver
}

// DefaultConfig returns a threshold-rule configuration with the standard
// round cap.
func DefaultConfig() Config {
	return Config{
		Rule:      ThresholdRule{Phi: DefaultPhi},
		MaxRounds: DefaultMaxRounds,
	}
}

// Result is the outcome of a run.
type Result struct {
	// Final is the labeling when the loop stopped.
	Final opinion.Labeling

	// Series holds one illusion-set size per executed round, measured on
	// the labeling entering that round. Its last entry is the run's
	// final illusion count.
	Series []int

	// Rounds is the number of executed rounds, always len(Series).
	Rounds int

	// Halt records why the loop stopped.
	Halt HaltReason

	// FinalReport is the detection report for the final labeling. After
	// a converged run it matches the last series entry; after a capped
	// run it reflects the state one update past it.
	FinalReport illusion.Report
}

// Simulator runs synchronous opinion updates. It is stateless: all mutable
// state lives in the labelings created during Run, so one Simulator may be
// shared across trials and goroutines.
type Simulator struct {
	cfg Config
}

// NewSimulator validates the configuration and returns a simulator.
func NewSimulator(cfg Config) (*Simulator, error) {
	if cfg.Rule == nil {
		return nil, ErrNoRule
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	return &Simulator{cfg: cfg}, nil
}

// Run executes rounds until a fixed point, a detected cycle, or the round
// cap. The initial labeling is copied, never mutated.
func (s *Simulator) Run(ctx context.Context, g *network.Graph, initial opinion.Labeling) (Result, error) {
	n := g.NodeCount()
	if len(initial) != n {
		return Result{}, fmt.Errorf("%w: %d labels for %d nodes", illusion.ErrSizeMismatch, len(initial), n)
	}

	cur := initial.Clone()
	series := make([]int, 0, s.cfg.MaxRounds)
	halt := HaltMaxRounds

	var seen map[uint64]struct{}
	var scratch []byte
	if s.cfg.DetectCycles {
		seen = make(map[uint64]struct{}, s.cfg.MaxRounds+1)
		scratch = make([]byte, n)
		seen[hashLabeling(cur, scratch)] = struct{}{}
	}

	for round := 0; round < s.cfg.MaxRounds; round++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("diffusion halted at round %d: %w", round, err)
		}

		// Measure the illusion on the labeling entering this round.
		rep, err := illusion.Detect(g, cur)
		if err != nil {
			return Result{}, err
		}
		series = append(series, rep.Size())

		// Synchronous update: every node reads the current snapshot and
		// writes into a fresh labeling, so in-round order cannot matter.
		next := opinion.NewLabeling(n)
		flips := 0
		for v := 0; v < n; v++ {
			next[v] = s.cfg.Rule.Next(g, cur, v)
			if next[v] != cur[v] {
				flips++
			}
		}

		if s.cfg.Observer != nil {
			s.cfg.Observer.ObserveRound(RoundStats{
				Round:        round,
				IllusionSize: rep.Size(),
				Flips:        flips,
				RedCount:     next.CountRed(),
			})
		}

		if flips == 0 {
			halt = HaltConverged
			break
		}
		cur = next

		if s.cfg.DetectCycles {
			h := hashLabeling(cur, scratch)
			if _, ok := seen[h]; ok {
				halt = HaltCycle
				break
			}
			seen[h] = struct{}{}
		}
	}

	finalRep, err := illusion.Detect(g, cur)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Final:       cur,
		Series:      series,
		Rounds:      len(series),
		Halt:        halt,
		FinalReport: finalRep,
	}, nil
}

// hashLabeling fingerprints a labeling with FNV-1a for cycle detection.
func hashLabeling(labels opinion.Labeling, scratch []byte) uint64 {
	for i, l := range labels {
		scratch[i] = byte(l)
	}
	h := fnv.New64a()
	h.Write(scratch)
	return h.Sum64()
}
