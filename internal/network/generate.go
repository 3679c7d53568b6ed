package network

import (
	"fmt"
	"math/rand/v2"
)

// Generate builds a scale-free graph with n nodes by preferential
// attachment. The first m nodes form a fully connected core; every later
// node attaches to m distinct existing nodes chosen with probability
// proportional to their current degree. The same rng state always produces
// the same graph.
//
// Requires n > m >= 1 and a non-nil rng.
func Generate(n, m int, rng *rand.Rand) (*Graph, error) {
	if m < 1 || m >= n {
		return nil, fmt.Errorf("%w: need n > m >= 1, got n=%d m=%d", ErrBadParams, n, m)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil rng", ErrBadParams)
	}

	g := NewGraph(n)

	// Step 1: connected core. A clique over the first m nodes keeps the
	// graph connected and gives every node a final degree of at least m.
	for u := 0; u < m; u++ {
		for v := u + 1; v < m; v++ {
			g.link(u, v)
		}
	}

	// Step 2: degree-weighted sampling bag. A node appears once per unit
	// of degree, so uniform indexing into the bag is preferential
	// attachment.
	bag := make([]int32, 0, 2*EdgeTotal(n, m))
	for u := 0; u < m; u++ {
		for i := 0; i < m-1; i++ {
			bag = append(bag, int32(u))
		}
	}

	// Step 3: attach the remaining nodes. The first attached node links to
	// the entire core, which also seeds the bag for m = 1 where the core
	// has no internal edges.
	targets := make([]int32, 0, m)
	for v := m; v < n; v++ {
		targets = targets[:0]
		if v == m {
			for u := 0; u < m; u++ {
				targets = append(targets, int32(u))
			}
		} else {
			for len(targets) < m {
				t := bag[rng.IntN(len(bag))]
				if containsNode(targets, t) {
					continue
				}
				targets = append(targets, t)
			}
		}
		for _, t := range targets {
			g.link(v, int(t))
			bag = append(bag, int32(v), t)
		}
	}

	return g, nil
}

// GenerateSeeded is Generate with a fresh PCG source seeded from seed.
func GenerateSeeded(n, m int, seed uint64) (*Graph, error) {
	return Generate(n, m, rand.New(rand.NewPCG(seed, seed)))
}

// EdgeTotal returns the number of edges Generate produces for (n, m):
// the core clique plus m edges per attached node.
func EdgeTotal(n, m int) int {
	return m*(m-1)/2 + (n-m)*m
}

// containsNode reports whether id is already among the chosen targets.
func containsNode(targets []int32, id int32) bool {
	for _, t := range targets {
		if t == id {
			return true
		}
	}
	return false
}
