// Package experiment batches independent simulation trials and aggregates
// their illusion counts into grouped statistics.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"golang.org/x/sync/errgroup"

	"github.com/nvandessel/illusim/internal/diffusion"
	"github.com/nvandessel/illusim/internal/illusion"
	"github.com/nvandessel/illusim/internal/network"
	"github.com/nvandessel/illusim/internal/opinion"
)

// Config describes a batch of trials.
type Config struct {
	// Trials is the number of independent graphs to generate.
	Trials int

	// Nodes and EdgesPerNode are the generation parameters.
	Nodes        int
	EdgesPerNode int

	// Fractions lists the forced minority fractions applied to every graph.
	Fractions []float64

	// Rule is the update rule shared by all trials. Required.
	Rule diffusion.Rule

	// MaxRounds caps each diffusion run. Zero means the simulator default.
	MaxRounds int

	// DetectCycles enables labeling-cycle detection in each run.
	DetectCycles bool

	// Seed is the master seed. Per-trial seeds are derived from it up
	// front, so a batch reproduces exactly regardless of worker count.
	Seed uint64

	// Workers bounds trial parallelism. Zero or one means sequential.
	Workers int

	// Logger, when non-nil, receives per-trial failure and batch logs.
	Logger *slog.Logger
}

// Trial is the record of one (graph, fraction) computation.
type Trial struct {
	// Index is the graph index within the batch.
	Index int
	// Influencers is the influencer count of this trial's graph.
	Influencers int
	// Fraction is the forced minority fraction.
	Fraction float64
	// StaticIllusion is the illusion-set size before any diffusion.
	StaticIllusion int
	// FinalIllusion is the illusion-set size entering the final round.
	FinalIllusion int
	// Rounds and Halt describe the diffusion run.
	Rounds int
	Halt   diffusion.HaltReason
}

// Failure records one isolated (trial, fraction) error.
type Failure struct {
	Index    int
	Fraction float64
	Err      error
}

// Batch is the outcome of a run. Records keep slot order: trial index
// ascending, fractions in configuration order within a trial.
type Batch struct {
	Records  []Trial
	Failures []Failure
}

// Runner executes batches of independent trials.
type Runner struct {
	cfg Config
	sim *diffusion.Simulator
}

// NewRunner validates the configuration and returns a runner.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Trials < 1 {
		return nil, fmt.Errorf("experiment: trials must be at least 1, got %d", cfg.Trials)
	}
	if cfg.EdgesPerNode < 1 || cfg.EdgesPerNode >= cfg.Nodes {
		return nil, fmt.Errorf("%w: n=%d m=%d, need n > m >= 1", network.ErrBadParams, cfg.Nodes, cfg.EdgesPerNode)
	}
	if len(cfg.Fractions) == 0 {
		return nil, fmt.Errorf("%w: fraction list is empty", opinion.ErrBadFraction)
	}
	for _, f := range cfg.Fractions {
		if f < 0 || f > 1 {
			return nil, fmt.Errorf("%w: %v is outside [0, 1]", opinion.ErrBadFraction, f)
		}
	}
	sim, err := diffusion.NewSimulator(diffusion.Config{
		Rule:         cfg.Rule,
		MaxRounds:    cfg.MaxRounds,
		DetectCycles: cfg.DetectCycles,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	return &Runner{cfg: cfg, sim: sim}, nil
}

// Run executes Trials × len(Fractions) computations. Each trial owns a
// fresh graph; each fraction gets a fresh labeling on that graph. A
// failing computation is recorded in Batch.Failures and excluded from
// Records without disturbing other trials; context cancellation aborts
// the whole batch.
func (r *Runner) Run(ctx context.Context) (Batch, error) {
	nFrac := len(r.cfg.Fractions)
	records := make([]*Trial, r.cfg.Trials*nFrac)
	failures := make([]*Failure, r.cfg.Trials*nFrac)

	// Derive every trial seed from the master stream before any work
	// starts: trial t sees the same seed on one worker or eight.
	master := rand.New(rand.NewPCG(r.cfg.Seed, r.cfg.Seed))
	seeds := make([]uint64, r.cfg.Trials)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(r.cfg.Workers)
	for t := 0; t < r.cfg.Trials; t++ {
		eg.Go(func() error {
			return r.runTrial(egCtx, t, seeds[t], records, failures)
		})
	}
	if err := eg.Wait(); err != nil {
		return Batch{}, err
	}

	batch := Batch{Records: make([]Trial, 0, len(records))}
	for _, rec := range records {
		if rec != nil {
			batch.Records = append(batch.Records, *rec)
		}
	}
	for _, f := range failures {
		if f != nil {
			batch.Failures = append(batch.Failures, *f)
		}
	}
	if r.cfg.Logger != nil {
		r.cfg.Logger.Debug("batch complete",
			"trials", r.cfg.Trials,
			"fractions", nFrac,
			"records", len(batch.Records),
			"failures", len(batch.Failures))
	}
	return batch, nil
}

// runTrial generates one graph and runs every fraction on it. Each slot
// in records/failures belongs to exactly one (trial, fraction) pair, so
// concurrent trials never contend.
func (r *Runner) runTrial(ctx context.Context, idx int, seed uint64, records []*Trial, failures []*Failure) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	base := idx * len(r.cfg.Fractions)
	rng := rand.New(rand.NewPCG(seed, seed))

	g, err := network.Generate(r.cfg.Nodes, r.cfg.EdgesPerNode, rng)
	if err != nil {
		r.failTrial(idx, base, fmt.Errorf("generate: %w", err), failures)
		return nil
	}
	influencers, err := network.SelectInfluencers(g)
	if err != nil {
		r.failTrial(idx, base, fmt.Errorf("select influencers: %w", err), failures)
		return nil
	}

	for fi, fraction := range r.cfg.Fractions {
		if err := ctx.Err(); err != nil {
			return err
		}
		rec, err := r.runFraction(ctx, idx, g, influencers, fraction, rng)
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			failures[base+fi] = &Failure{Index: idx, Fraction: fraction, Err: err}
			if r.cfg.Logger != nil {
				r.cfg.Logger.Warn("trial computation failed",
					"trial", idx, "fraction", fraction, "error", err)
			}
			continue
		}
		records[base+fi] = rec
	}
	return nil
}

// failTrial marks every fraction slot of a trial failed with the same cause.
func (r *Runner) failTrial(idx, base int, err error, failures []*Failure) {
	for fi, fraction := range r.cfg.Fractions {
		failures[base+fi] = &Failure{Index: idx, Fraction: fraction, Err: err}
	}
	if r.cfg.Logger != nil {
		r.cfg.Logger.Warn("trial failed", "trial", idx, "error", err)
	}
}

// runFraction labels the trial graph at one fraction, measures the static
// illusion, and runs diffusion to the final count.
func (r *Runner) runFraction(ctx context.Context, idx int, g *network.Graph, influencers []int, fraction float64, rng *rand.Rand) (*Trial, error) {
	labels, err := opinion.Assign(g, influencers, fraction, rng)
	if err != nil {
		return nil, fmt.Errorf("assign: %w", err)
	}
	static, err := illusion.Detect(g, labels)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}
	res, err := r.sim.Run(ctx, g, labels)
	if err != nil {
		return nil, err
	}
	return &Trial{
		Index:          idx,
		Influencers:    len(influencers),
		Fraction:       fraction,
		StaticIllusion: static.Size(),
		FinalIllusion:  res.Series[len(res.Series)-1],
		Rounds:         res.Rounds,
		Halt:           res.Halt,
	}, nil
}
