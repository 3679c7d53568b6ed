package opinion

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/nvandessel/illusim/internal/network"
)

var (
	// ErrBadFraction reports a minority fraction outside [0, 1].
	ErrBadFraction = errors.New("minority fraction outside [0, 1]")

	// ErrInsufficientPool reports a random fill that demands more
	// non-influencer nodes than exist.
	ErrInsufficientPool = errors.New("not enough non-influencer nodes to fill minority")
)

// Assign produces the initial labeling for a graph: exactly
// round(fraction x N) nodes are Red, the rest Blue.
//
// Influencers are the preferred minority members. When there are more
// influencers than the target, the highest-degree influencers win, ties
// broken by ascending node ID. When there are fewer, the deficit is drawn
// uniformly at random, without replacement, from the non-influencer
// population; a pool smaller than the deficit fails with
// ErrInsufficientPool rather than filling partially.
func Assign(g *network.Graph, influencers []int, fraction float64, rng *rand.Rand) (Labeling, error) {
	if fraction < 0 || fraction > 1 {
		return nil, fmt.Errorf("%w: %f", ErrBadFraction, fraction)
	}

	n := g.NodeCount()
	target := int(math.Round(fraction * float64(n)))
	labels := NewLabeling(n)

	// Deduplicate the influencer set.
	isInfluencer := make([]bool, n)
	count := 0
	for _, v := range influencers {
		if !isInfluencer[v] {
			isInfluencer[v] = true
			count++
		}
	}

	switch {
	case count > target:
		// Too many influencers: only the strongest keep the minority
		// label.
		unique := make([]int, 0, count)
		for v := 0; v < n; v++ {
			if isInfluencer[v] {
				unique = append(unique, v)
			}
		}
		sort.Slice(unique, func(i, j int) bool {
			di, dj := g.Degree(unique[i]), g.Degree(unique[j])
			if di != dj {
				return di > dj
			}
			return unique[i] < unique[j]
		})
		for _, v := range unique[:target] {
			labels[v] = Red
		}

	case count < target:
		for v := 0; v < n; v++ {
			if isInfluencer[v] {
				labels[v] = Red
			}
		}
		pool := make([]int, 0, n-count)
		for v := 0; v < n; v++ {
			if !isInfluencer[v] {
				pool = append(pool, v)
			}
		}
		fill, err := sampleFill(pool, target-count, rng)
		if err != nil {
			return nil, err
		}
		for _, v := range fill {
			labels[v] = Red
		}

	default:
		for v := 0; v < n; v++ {
			if isInfluencer[v] {
				labels[v] = Red
			}
		}
	}

	return labels, nil
}

// sampleFill draws need nodes uniformly at random, without replacement,
// from pool. The pool is reordered in place.
func sampleFill(pool []int, need int, rng *rand.Rand) ([]int, error) {
	if need > len(pool) {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientPool, need, len(pool))
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: nil rng", network.ErrBadParams)
	}
	rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	return pool[:need], nil
}
