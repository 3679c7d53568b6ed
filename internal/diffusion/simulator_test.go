package diffusion

import (
	"context"
	"errors"
	"math/rand/v2"
	"reflect"
	"testing"

	"github.com/nvandessel/illusim/internal/illusion"
	"github.com/nvandessel/illusim/internal/network"
	"github.com/nvandessel/illusim/internal/opinion"
)

// statsCollector records every RoundStats the simulator emits.
type statsCollector struct {
	stats []RoundStats
}

func (c *statsCollector) ObserveRound(s RoundStats) {
	c.stats = append(c.stats, s)
}

// mustSimulator builds a simulator or fails the test.
func mustSimulator(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	sim, err := NewSimulator(cfg)
	if err != nil {
		t.Fatalf("NewSimulator: %v", err)
	}
	return sim
}

func TestNewSimulator_RequiresRule(t *testing.T) {
	if _, err := NewSimulator(Config{}); !errors.Is(err, ErrNoRule) {
		t.Errorf("NewSimulator without rule = %v, want ErrNoRule", err)
	}
}

func TestSimulator_StarThresholdSpread(t *testing.T) {
	// Star with a Red center: every leaf's single neighbor is Red, so
	// all leaves flip in round 0 and the illusion collapses to zero in
	// round 1.
	g := starGraph(t, 4)
	initial := opinion.NewLabeling(5)
	initial[0] = opinion.Red

	sim := mustSimulator(t, DefaultConfig())
	res, err := sim.Run(context.Background(), g, initial)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if want := []int{4, 0}; !reflect.DeepEqual(res.Series, want) {
		t.Errorf("series = %v, want %v", res.Series, want)
	}
	if res.Rounds != 2 {
		t.Errorf("rounds = %d, want 2", res.Rounds)
	}
	if res.Halt != HaltConverged {
		t.Errorf("halt = %s, want converged", res.Halt)
	}
	if got := res.Final.CountRed(); got != 5 {
		t.Errorf("final Red count = %d, want 5", got)
	}
	if res.FinalReport.Size() != res.Series[len(res.Series)-1] {
		t.Errorf("final report size %d does not match last series entry %d",
			res.FinalReport.Size(), res.Series[len(res.Series)-1])
	}
}

func TestSimulator_ThresholdMonotoneAndBounded(t *testing.T) {
	const n = 120
	g, err := network.GenerateSeeded(n, 2, 21)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	influencers, err := network.SelectInfluencers(g)
	if err != nil {
		t.Fatalf("SelectInfluencers: %v", err)
	}
	initial, err := opinion.Assign(g, influencers, 0.2, rand.New(rand.NewPCG(21, 21)))
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}

	collector := &statsCollector{}
	sim := mustSimulator(t, Config{
		Rule:      ThresholdRule{Phi: 0.5},
		MaxRounds: 2 * n,
		Observer:  collector,
	})

	res, err := sim.Run(context.Background(), g, initial)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// One-way adoption: the Red count can never shrink, and the run
	// must settle within n+1 rounds even with the cap lifted far above.
	prev := initial.CountRed()
	for _, s := range collector.stats {
		if s.RedCount < prev {
			t.Fatalf("round %d: Red count dropped from %d to %d", s.Round, prev, s.RedCount)
		}
		prev = s.RedCount
	}
	if res.Halt != HaltConverged {
		t.Errorf("halt = %s, want converged", res.Halt)
	}
	if res.Rounds > n+1 {
		t.Errorf("threshold rule took %d rounds, want at most %d", res.Rounds, n+1)
	}
}

func TestSimulator_MajorityHaltsOnFixedPoint(t *testing.T) {
	// Adjacent Red and Blue pairs on a 4-cycle give every node a tied
	// neighborhood: the very first update changes nothing.
	g := network.NewGraph(4)
	for v := 0; v < 4; v++ {
		if err := g.AddEdge(v, (v+1)%4); err != nil {
			t.Fatalf("AddEdge: %v", err)
		}
	}
	initial := opinion.Labeling{opinion.Red, opinion.Red, opinion.Blue, opinion.Blue}

	sim := mustSimulator(t, Config{Rule: MajorityRule{}})
	res, err := sim.Run(context.Background(), g, initial)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Rounds != 1 {
		t.Errorf("rounds = %d, want 1 (immediate halt)", res.Rounds)
	}
	if res.Halt != HaltConverged {
		t.Errorf("halt = %s, want converged", res.Halt)
	}
	if !res.Final.Equal(initial) {
		t.Error("fixed-point run changed the labeling")
	}
}

func TestSimulator_MajorityOscillationHitsCap(t *testing.T) {
	// Two connected nodes with opposite labels swap forever under
	// majority vote.
	g := network.NewGraph(2)
	if err := g.AddEdge(0, 1); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	initial := opinion.Labeling{opinion.Red, opinion.Blue}

	sim := mustSimulator(t, Config{Rule: MajorityRule{}, MaxRounds: 6})
	res, err := sim.Run(context.Background(), g, initial)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Halt != HaltMaxRounds {
		t.Errorf("halt = %s, want max-rounds", res.Halt)
	}
	if res.Rounds != 6 {
		t.Errorf("rounds = %d, want 6", res.Rounds)
	}
}

func TestSimulator_CycleDetectionFlagsOscillation(t *testing.T) {
	g := network.NewGraph(2)
	if err := g.AddEdge(0, 1); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	initial := opinion.Labeling{opinion.Red, opinion.Blue}

	sim := mustSimulator(t, Config{Rule: MajorityRule{}, MaxRounds: 50, DetectCycles: true})
	res, err := sim.Run(context.Background(), g, initial)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if res.Halt != HaltCycle {
		t.Errorf("halt = %s, want cycle", res.Halt)
	}
	// Round 0 produces the swapped labeling, round 1 returns to the
	// initial one.
	if res.Rounds != 2 {
		t.Errorf("rounds = %d, want 2", res.Rounds)
	}
}

func TestSimulator_ObserverSeesEveryRound(t *testing.T) {
	g := starGraph(t, 4)
	initial := opinion.NewLabeling(5)
	initial[0] = opinion.Red

	collector := &statsCollector{}
	cfg := DefaultConfig()
	cfg.Observer = collector

	sim := mustSimulator(t, cfg)
	res, err := sim.Run(context.Background(), g, initial)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(collector.stats) != res.Rounds {
		t.Fatalf("observer saw %d rounds, result says %d", len(collector.stats), res.Rounds)
	}
	for i, s := range collector.stats {
		if s.Round != i {
			t.Errorf("stats[%d].Round = %d, want %d", i, s.Round, i)
		}
		if s.IllusionSize != res.Series[i] {
			t.Errorf("stats[%d].IllusionSize = %d, series says %d", i, s.IllusionSize, res.Series[i])
		}
	}
}

func TestSimulator_InitialLabelingNotMutated(t *testing.T) {
	g := starGraph(t, 4)
	initial := opinion.NewLabeling(5)
	initial[0] = opinion.Red

	sim := mustSimulator(t, DefaultConfig())
	if _, err := sim.Run(context.Background(), g, initial); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if initial.CountRed() != 1 || initial[0] != opinion.Red {
		t.Error("Run mutated the caller's initial labeling")
	}
}

func TestSimulator_ContextCancellation(t *testing.T) {
	g := starGraph(t, 4)
	initial := opinion.NewLabeling(5)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sim := mustSimulator(t, DefaultConfig())
	if _, err := sim.Run(ctx, g, initial); !errors.Is(err, context.Canceled) {
		t.Errorf("Run on cancelled context = %v, want context.Canceled", err)
	}
}

func TestSimulator_SizeMismatch(t *testing.T) {
	g := starGraph(t, 3)
	sim := mustSimulator(t, DefaultConfig())
	if _, err := sim.Run(context.Background(), g, opinion.NewLabeling(2)); !errors.Is(err, illusion.ErrSizeMismatch) {
		t.Errorf("Run with short labeling = %v, want ErrSizeMismatch", err)
	}
}
