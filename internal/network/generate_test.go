package network

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"reflect"
	"testing"
)

// assertSimple fails the test if the graph contains a self-loop or a
// duplicate neighbor entry.
func assertSimple(t *testing.T, g *Graph) {
	t.Helper()
	for v := 0; v < g.NodeCount(); v++ {
		seen := make(map[int32]bool, g.Degree(v))
		for _, u := range g.Neighbors(v) {
			if int(u) == v {
				t.Fatalf("node %d has a self-loop", v)
			}
			if seen[u] {
				t.Fatalf("node %d has duplicate neighbor %d", v, u)
			}
			seen[u] = true
		}
	}
}

// assertConnected fails the test if not every node is reachable from node 0.
func assertConnected(t *testing.T, g *Graph) {
	t.Helper()
	n := g.NodeCount()
	visited := make([]bool, n)
	visited[0] = true
	queue := []int{0}
	reached := 1
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, u := range g.Neighbors(v) {
			if !visited[u] {
				visited[u] = true
				reached++
				queue = append(queue, int(u))
			}
		}
	}
	if reached != n {
		t.Fatalf("graph is disconnected: reached %d of %d nodes", reached, n)
	}
}

func TestGenerate_RejectsBadParams(t *testing.T) {
	tests := []struct {
		name string
		n, m int
	}{
		{"m zero", 10, 0},
		{"m equals n", 5, 5},
		{"m exceeds n", 5, 8},
		{"n zero", 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := GenerateSeeded(tt.n, tt.m, 1); !errors.Is(err, ErrBadParams) {
				t.Errorf("Generate(%d, %d) = %v, want ErrBadParams", tt.n, tt.m, err)
			}
		})
	}

	if _, err := Generate(10, 2, nil); !errors.Is(err, ErrBadParams) {
		t.Errorf("Generate with nil rng = %v, want ErrBadParams", err)
	}
}

func TestGenerate_StructuralInvariants(t *testing.T) {
	tests := []struct {
		n, m int
	}{
		{2, 1},
		{10, 1},
		{10, 2},
		{50, 3},
		{200, 2},
		{6, 5},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("n=%d m=%d", tt.n, tt.m), func(t *testing.T) {
			g, err := GenerateSeeded(tt.n, tt.m, 42)
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}

			if g.NodeCount() != tt.n {
				t.Errorf("node count = %d, want %d", g.NodeCount(), tt.n)
			}
			if want := EdgeTotal(tt.n, tt.m); g.EdgeCount() != want {
				t.Errorf("edge count = %d, want %d", g.EdgeCount(), want)
			}

			sum := 0
			for v := 0; v < g.NodeCount(); v++ {
				sum += g.Degree(v)
				if g.Degree(v) < tt.m {
					t.Errorf("node %d has degree %d, want >= %d", v, g.Degree(v), tt.m)
				}
			}
			if sum != 2*g.EdgeCount() {
				t.Errorf("degree sum = %d, want %d", sum, 2*g.EdgeCount())
			}

			assertSimple(t, g)
			assertConnected(t, g)
		})
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	g1, err := GenerateSeeded(100, 2, 7)
	if err != nil {
		t.Fatalf("first Generate: %v", err)
	}
	g2, err := GenerateSeeded(100, 2, 7)
	if err != nil {
		t.Fatalf("second Generate: %v", err)
	}
	if !reflect.DeepEqual(g1.adj, g2.adj) {
		t.Error("same seed produced different graphs")
	}
}

func TestGenerate_AcceptsSharedRand(t *testing.T) {
	// Two graphs drawn from one rng must both satisfy the invariants;
	// the rng is consumed sequentially.
	rng := rand.New(rand.NewPCG(3, 3))
	for i := 0; i < 2; i++ {
		g, err := Generate(30, 2, rng)
		if err != nil {
			t.Fatalf("Generate run %d: %v", i, err)
		}
		assertSimple(t, g)
		assertConnected(t, g)
	}
}
