// Package network provides the undirected social graph used by the
// simulation: a preferential-attachment generator, degree statistics, and
// influencer selection. A graph is built once per trial and treated as
// immutable afterwards.
package network

import (
	"errors"
	"fmt"
)

var (
	// ErrBadParams reports construction or generation parameters that
	// violate a precondition.
	ErrBadParams = errors.New("invalid graph parameters")

	// ErrEmptyGraph reports an operation that is undefined on a graph
	// with no nodes, such as mean-degree computation.
	ErrEmptyGraph = errors.New("graph has no nodes")
)

// Graph is an undirected simple graph over the fixed node set 0..N-1.
// Neighbors are kept as adjacency slices so degree lookups and neighbor
// walks are allocation-free.
type Graph struct {
	adj   [][]int32
	edges int
}

// NewGraph creates a graph with n nodes and no edges.
func NewGraph(n int) *Graph {
	return &Graph{adj: make([][]int32, n)}
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.adj) }

// EdgeCount returns the number of undirected edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Degree returns the number of neighbors of v.
func (g *Graph) Degree(v int) int { return len(g.adj[v]) }

// Neighbors returns the adjacency slice of v. The slice is owned by the
// graph and must not be modified.
func (g *Graph) Neighbors(v int) []int32 { return g.adj[v] }

// AddEdge inserts the undirected edge (u, v). Self-loops, duplicate edges,
// and endpoints outside [0, NodeCount) are rejected with ErrBadParams.
func (g *Graph) AddEdge(u, v int) error {
	n := len(g.adj)
	if u < 0 || u >= n || v < 0 || v >= n {
		return fmt.Errorf("%w: edge (%d, %d) outside node range [0, %d)", ErrBadParams, u, v, n)
	}
	if u == v {
		return fmt.Errorf("%w: self-loop on node %d", ErrBadParams, u)
	}
	if g.HasEdge(u, v) {
		return fmt.Errorf("%w: duplicate edge (%d, %d)", ErrBadParams, u, v)
	}
	g.link(u, v)
	return nil
}

// HasEdge reports whether the undirected edge (u, v) exists.
func (g *Graph) HasEdge(u, v int) bool {
	// Scan the shorter of the two adjacency lists.
	a, b := u, v
	if len(g.adj[a]) > len(g.adj[b]) {
		a, b = b, a
	}
	for _, w := range g.adj[a] {
		if int(w) == b {
			return true
		}
	}
	return false
}

// link appends the edge without validation. Callers must guarantee the
// endpoints are distinct, in range, and not already connected.
func (g *Graph) link(u, v int) {
	g.adj[u] = append(g.adj[u], int32(v))
	g.adj[v] = append(g.adj[v], int32(u))
	g.edges++
}

// MeanDegree returns the average degree 2E/N.
func (g *Graph) MeanDegree() (float64, error) {
	if len(g.adj) == 0 {
		return 0, ErrEmptyGraph
	}
	return 2 * float64(g.edges) / float64(len(g.adj)), nil
}

// DegreeStats summarizes a graph's degree distribution.
type DegreeStats struct {
	Min  int
	Max  int
	Mean float64
}

// Degrees computes min, max, and mean degree in a single pass.
func (g *Graph) Degrees() (DegreeStats, error) {
	if len(g.adj) == 0 {
		return DegreeStats{}, ErrEmptyGraph
	}

	stats := DegreeStats{Min: len(g.adj[0]), Max: len(g.adj[0])}
	total := 0
	for v := range g.adj {
		d := len(g.adj[v])
		total += d
		if d < stats.Min {
			stats.Min = d
		}
		if d > stats.Max {
			stats.Max = d
		}
	}
	stats.Mean = float64(total) / float64(len(g.adj))
	return stats, nil
}
