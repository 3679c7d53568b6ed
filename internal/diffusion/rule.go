// Package diffusion iterates opinion updates over a labeled graph until the
// labeling stops changing or a round cap is reached. Two update rules are
// supported: one-way threshold adoption and reversible majority vote.
package diffusion

import (
	"errors"
	"fmt"

	"github.com/nvandessel/illusim/internal/network"
	"github.com/nvandessel/illusim/internal/opinion"
)

// ErrNoRule reports a simulator configured without an update rule, or a
// rule name that does not exist.
var ErrNoRule = errors.New("no diffusion rule")

// DefaultPhi is the adoption threshold used when none is configured.
const DefaultPhi = 0.5

// Rule computes a node's next opinion from the current synchronous
// snapshot. Implementations must be stateless: the same Rule value is
// shared across rounds and, in batch runs, across goroutines.
type Rule interface {
	// Next returns v's label for the next round given the current
	// labeling.
	Next(g *network.Graph, cur opinion.Labeling, v int) opinion.Label

	// Name identifies the rule in configuration and output.
	Name() string
}

// ThresholdRule is one-way adoption: a Blue node turns Red once the Red
// share of its neighborhood strictly exceeds Phi; Red nodes never revert,
// so the Red count is non-decreasing across rounds.
type ThresholdRule struct {
	Phi float64
}

func (r ThresholdRule) Name() string { return "threshold" }

func (r ThresholdRule) Next(g *network.Graph, cur opinion.Labeling, v int) opinion.Label {
	if cur[v] == opinion.Red {
		return opinion.Red
	}
	nbrs := g.Neighbors(v)
	if float64(countRed(cur, nbrs)) > r.Phi*float64(len(nbrs)) {
		return opinion.Red
	}
	return opinion.Blue
}

// MajorityRule is reversible majority vote: a node adopts the strict
// majority label among its neighbors, keeps its label on an exact tie, and
// keeps its label when it has no neighbors. This rule can oscillate.
type MajorityRule struct{}

func (MajorityRule) Name() string { return "majority" }

func (MajorityRule) Next(g *network.Graph, cur opinion.Labeling, v int) opinion.Label {
	nbrs := g.Neighbors(v)
	if len(nbrs) == 0 {
		return cur[v]
	}
	red := countRed(cur, nbrs)
	blue := len(nbrs) - red
	switch {
	case red > blue:
		return opinion.Red
	case blue > red:
		return opinion.Blue
	default:
		return cur[v]
	}
}

// NewRule builds a rule from its configuration name: "threshold" (using
// phi) or "majority".
func NewRule(name string, phi float64) (Rule, error) {
	switch name {
	case "threshold":
		return ThresholdRule{Phi: phi}, nil
	case "majority":
		return MajorityRule{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown rule %q", ErrNoRule, name)
	}
}

// countRed counts Red labels among the given neighbors.
func countRed(labels opinion.Labeling, nbrs []int32) int {
	red := 0
	for _, u := range nbrs {
		if labels[u] == opinion.Red {
			red++
		}
	}
	return red
}
