// Package visualization renders labeled networks in various output formats.
package visualization

import (
	"fmt"
	"strings"

	"github.com/nvandessel/illusim/internal/illusion"
	"github.com/nvandessel/illusim/internal/network"
	"github.com/nvandessel/illusim/internal/opinion"
)

// Format specifies the output format for network rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// labelColors maps opinion labels to DOT fill colors.
var labelColors = map[opinion.Label]string{
	opinion.Blue: "steelblue",
	opinion.Red:  "tomato",
}

// RenderDOT produces a Graphviz DOT representation of a labeled network.
// Nodes under the majority illusion get a doubled border so they stand out
// in the rendered image.
func RenderDOT(g *network.Graph, labels opinion.Labeling) (string, error) {
	var b strings.Builder
	b.WriteString("graph illusim {\n")
	b.WriteString("  layout=neato;\n")
	b.WriteString("  overlap=false;\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\", fontsize=10];\n")
	b.WriteString("  edge [color=gray60];\n\n")

	n := g.NodeCount()
	if n == 0 {
		b.WriteString("}\n")
		return b.String(), nil
	}

	rep, err := illusion.Detect(g, labels)
	if err != nil {
		return "", fmt.Errorf("detect illusion: %w", err)
	}
	illusioned := make(map[int]bool, len(rep.Illusioned))
	for _, v := range rep.Illusioned {
		illusioned[v] = true
	}

	// Render nodes
	for v := 0; v < n; v++ {
		color := labelColors[labels[v]]
		if color == "" {
			color = "lightgray"
		}

		extra := ""
		if illusioned[v] {
			extra = ", peripheries=2, penwidth=2"
		}
		b.WriteString(fmt.Sprintf("  %d [label=\"%d\", fillcolor=%q, tooltip=\"degree=%d\"%s];\n",
			v, v, color, g.Degree(v), extra))
	}
	b.WriteString("\n")

	// Render edges once each: the adjacency lists hold both directions.
	for u := 0; u < n; u++ {
		for _, w := range g.Neighbors(u) {
			if int(w) > u {
				b.WriteString(fmt.Sprintf("  %d -- %d;\n", u, int(w)))
			}
		}
	}

	b.WriteString("}\n")
	return b.String(), nil
}

// RenderJSON produces a JSON graph representation with nodes and edges arrays
// plus the detection totals.
func RenderJSON(g *network.Graph, labels opinion.Labeling) (map[string]interface{}, error) {
	n := g.NodeCount()
	if n == 0 {
		return map[string]interface{}{
			"nodes":      []map[string]interface{}{},
			"edges":      []map[string]interface{}{},
			"node_count": 0,
			"edge_count": 0,
		}, nil
	}

	rep, err := illusion.Detect(g, labels)
	if err != nil {
		return nil, fmt.Errorf("detect illusion: %w", err)
	}
	illusioned := make(map[int]bool, len(rep.Illusioned))
	for _, v := range rep.Illusioned {
		illusioned[v] = true
	}

	jsonNodes := make([]map[string]interface{}, 0, n)
	for v := 0; v < n; v++ {
		jsonNodes = append(jsonNodes, map[string]interface{}{
			"id":         v,
			"label":      labels[v].String(),
			"degree":     g.Degree(v),
			"illusioned": illusioned[v],
		})
	}

	jsonEdges := make([]map[string]interface{}, 0, g.EdgeCount())
	for u := 0; u < n; u++ {
		for _, w := range g.Neighbors(u) {
			if int(w) > u {
				jsonEdges = append(jsonEdges, map[string]interface{}{
					"source": u,
					"target": int(w),
				})
			}
		}
	}

	return map[string]interface{}{
		"nodes":           jsonNodes,
		"edges":           jsonEdges,
		"node_count":      len(jsonNodes),
		"edge_count":      len(jsonEdges),
		"global_majority": rep.GlobalMajority.String(),
		"blue_count":      rep.BlueCount,
		"red_count":       rep.RedCount,
		"illusion_count":  rep.Size(),
	}, nil
}
