// Package illusion detects the majority illusion: nodes whose neighborhood
// majority disagrees with the global majority opinion.
package illusion

import (
	"errors"
	"fmt"

	"github.com/nvandessel/illusim/internal/network"
	"github.com/nvandessel/illusim/internal/opinion"
)

// ErrSizeMismatch reports a labeling whose length differs from the graph's
// node count.
var ErrSizeMismatch = errors.New("labeling size does not match graph")

// Report is the outcome of one detection pass.
type Report struct {
	// GlobalMajority is the label held by the strictly larger part of the
	// population. An exact count tie resolves to Blue.
	GlobalMajority opinion.Label

	// Illusioned lists, in ascending order, every node whose local
	// majority differs from the global one. Isolated nodes and nodes
	// with an exactly tied neighborhood never appear.
	Illusioned []int

	// BlueCount and RedCount are the global label totals.
	BlueCount int
	RedCount  int
}

// Size returns the number of illusioned nodes.
func (r Report) Size() int { return len(r.Illusioned) }

// Detect computes the global majority and the illusion set for a labeling.
// It is a pure function: deterministic, idempotent, and linear in the
// number of edges. A zero-node graph returns network.ErrEmptyGraph.
func Detect(g *network.Graph, labels opinion.Labeling) (Report, error) {
	n := g.NodeCount()
	if n == 0 {
		return Report{}, network.ErrEmptyGraph
	}
	if len(labels) != n {
		return Report{}, fmt.Errorf("%w: %d labels for %d nodes", ErrSizeMismatch, len(labels), n)
	}

	blue, red := labels.Counts()
	global := opinion.Blue
	if red > blue {
		global = opinion.Red
	}

	var illusioned []int
	for v := 0; v < n; v++ {
		nbrs := g.Neighbors(v)
		if len(nbrs) == 0 {
			continue
		}
		redNbrs := 0
		for _, u := range nbrs {
			if labels[u] == opinion.Red {
				redNbrs++
			}
		}
		blueNbrs := len(nbrs) - redNbrs
		if redNbrs == blueNbrs {
			continue
		}
		local := opinion.Blue
		if redNbrs > blueNbrs {
			local = opinion.Red
		}
		if local != global {
			illusioned = append(illusioned, v)
		}
	}

	return Report{
		GlobalMajority: global,
		Illusioned:     illusioned,
		BlueCount:      blue,
		RedCount:       red,
	}, nil
}
