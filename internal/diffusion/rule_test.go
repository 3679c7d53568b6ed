package diffusion

import (
	"errors"
	"testing"

	"github.com/nvandessel/illusim/internal/network"
	"github.com/nvandessel/illusim/internal/opinion"
)

// path3 builds the path graph 0-1-2.
func path3(t *testing.T) *network.Graph {
	t.Helper()
	g := network.NewGraph(3)
	for _, e := range [][2]int{{0, 1}, {1, 2}} {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%d, %d): %v", e[0], e[1], err)
		}
	}
	return g
}

// starGraph builds a star with node 0 at the center.
func starGraph(t *testing.T, leaves int) *network.Graph {
	t.Helper()
	g := network.NewGraph(leaves + 1)
	for v := 1; v <= leaves; v++ {
		if err := g.AddEdge(0, v); err != nil {
			t.Fatalf("AddEdge(0, %d): %v", v, err)
		}
	}
	return g
}

func TestThresholdRule_StrictExceedance(t *testing.T) {
	g := path3(t)
	cur := opinion.Labeling{opinion.Red, opinion.Blue, opinion.Blue}

	// Node 1 sees exactly half Red. At phi 0.5 the share must strictly
	// exceed, so it stays Blue; at phi 0.4 it flips.
	if got := (ThresholdRule{Phi: 0.5}).Next(g, cur, 1); got != opinion.Blue {
		t.Errorf("phi 0.5: node 1 = %s, want blue", got)
	}
	if got := (ThresholdRule{Phi: 0.4}).Next(g, cur, 1); got != opinion.Red {
		t.Errorf("phi 0.4: node 1 = %s, want red", got)
	}
}

func TestThresholdRule_RedNeverReverts(t *testing.T) {
	g := path3(t)
	cur := opinion.Labeling{opinion.Blue, opinion.Red, opinion.Blue}
	if got := (ThresholdRule{Phi: 0.5}).Next(g, cur, 1); got != opinion.Red {
		t.Errorf("Red node surrounded by Blue = %s, want red", got)
	}
}

func TestThresholdRule_IsolatedStaysBlue(t *testing.T) {
	g := network.NewGraph(3)
	if err := g.AddEdge(0, 1); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	cur := opinion.Labeling{opinion.Red, opinion.Red, opinion.Blue}
	if got := (ThresholdRule{Phi: 0.5}).Next(g, cur, 2); got != opinion.Blue {
		t.Errorf("isolated Blue node = %s, want blue", got)
	}
}

func TestMajorityRule_AdoptsStrictMajority(t *testing.T) {
	g := starGraph(t, 4)
	cur := opinion.Labeling{opinion.Blue, opinion.Red, opinion.Red, opinion.Red, opinion.Red}

	if got := (MajorityRule{}).Next(g, cur, 0); got != opinion.Red {
		t.Errorf("center with all-Red neighbors = %s, want red", got)
	}
	if got := (MajorityRule{}).Next(g, cur, 1); got != opinion.Blue {
		t.Errorf("leaf with Blue center = %s, want blue", got)
	}
}

func TestMajorityRule_TieKeepsLabel(t *testing.T) {
	g := path3(t)
	for _, own := range []opinion.Label{opinion.Blue, opinion.Red} {
		cur := opinion.Labeling{opinion.Red, own, opinion.Blue}
		if got := (MajorityRule{}).Next(g, cur, 1); got != own {
			t.Errorf("tied neighborhood with own label %s = %s, want unchanged", own, got)
		}
	}
}

func TestMajorityRule_IsolatedKeepsLabel(t *testing.T) {
	g := network.NewGraph(3)
	if err := g.AddEdge(0, 1); err != nil {
		t.Fatalf("AddEdge: %v", err)
	}
	cur := opinion.Labeling{opinion.Blue, opinion.Blue, opinion.Red}
	if got := (MajorityRule{}).Next(g, cur, 2); got != opinion.Red {
		t.Errorf("isolated node = %s, want its own label red", got)
	}
}

func TestNewRule(t *testing.T) {
	r, err := NewRule("threshold", 0.3)
	if err != nil {
		t.Fatalf("NewRule(threshold): %v", err)
	}
	if tr, ok := r.(ThresholdRule); !ok || tr.Phi != 0.3 {
		t.Errorf("NewRule(threshold, 0.3) = %#v, want ThresholdRule{Phi: 0.3}", r)
	}

	r, err = NewRule("majority", 0)
	if err != nil {
		t.Fatalf("NewRule(majority): %v", err)
	}
	if r.Name() != "majority" {
		t.Errorf("rule name = %q, want majority", r.Name())
	}

	if _, err := NewRule("gossip", 0); !errors.Is(err, ErrNoRule) {
		t.Errorf("NewRule(gossip) = %v, want ErrNoRule", err)
	}
}
