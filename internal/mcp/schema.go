// Package mcp provides an MCP (Model Context Protocol) server for illusim.
package mcp

import (
	"time"
)

// GenerateInput defines the input for the illusim_generate tool.
type GenerateInput struct {
	Nodes        int    `json:"nodes,omitempty" jsonschema:"Number of nodes in the network (default from config)"`
	EdgesPerNode int    `json:"edges_per_node,omitempty" jsonschema:"Edges each new node attaches with (default from config)"`
	Seed         uint64 `json:"seed,omitempty" jsonschema:"Generator seed; the same seed reproduces the same network (default: 0)"`
}

// GenerateOutput defines the output for the illusim_generate tool.
type GenerateOutput struct {
	NodeCount       int     `json:"node_count" jsonschema:"Number of nodes generated"`
	EdgeCount       int     `json:"edge_count" jsonschema:"Number of undirected edges"`
	MeanDegree      float64 `json:"mean_degree" jsonschema:"Mean node degree"`
	MaxDegree       int     `json:"max_degree" jsonschema:"Largest node degree"`
	InfluencerCount int     `json:"influencer_count" jsonschema:"Nodes whose degree exceeds twice the mean"`
	Influencers     []int   `json:"influencers,omitempty" jsonschema:"Influencer node IDs (capped for readability)"`
}

// SimulateInput defines the input for the illusim_simulate tool.
type SimulateInput struct {
	Nodes        int     `json:"nodes,omitempty" jsonschema:"Number of nodes in the network (default from config)"`
	EdgesPerNode int     `json:"edges_per_node,omitempty" jsonschema:"Edges each new node attaches with (default from config)"`
	Fraction     float64 `json:"fraction,omitempty" jsonschema:"Fraction of the population seeded with the minority opinion (default from config)"`
	Rule         string  `json:"rule,omitempty" jsonschema:"Update rule: 'threshold' or 'majority' (default from config)"`
	Phi          float64 `json:"phi,omitempty" jsonschema:"Threshold rule adoption fraction in [0,1] (default from config)"`
	MaxRounds    int     `json:"max_rounds,omitempty" jsonschema:"Round cap before the run halts (default from config)"`
	DetectCycles bool    `json:"detect_cycles,omitempty" jsonschema:"Halt when a repeated labeling is seen (default: false)"`
	Seed         uint64  `json:"seed,omitempty" jsonschema:"Seed driving network generation and opinion assignment (default: 0)"`
}

// SimulateOutput defines the output for the illusim_simulate tool.
type SimulateOutput struct {
	NodeCount       int    `json:"node_count" jsonschema:"Number of nodes in the network"`
	EdgeCount       int    `json:"edge_count" jsonschema:"Number of undirected edges"`
	InfluencerCount int    `json:"influencer_count" jsonschema:"Nodes whose degree exceeds twice the mean"`
	InitialRed      int    `json:"initial_red" jsonschema:"Red nodes after assignment, before any update"`
	StaticIllusion  int    `json:"static_illusion" jsonschema:"Illusioned nodes in the initial labeling"`
	Rule            string `json:"rule" jsonschema:"Update rule that drove the run"`
	Series          []int  `json:"series" jsonschema:"Illusion-set size entering each round"`
	Rounds          int    `json:"rounds" jsonschema:"Executed rounds"`
	Halt            string `json:"halt" jsonschema:"Why the run stopped: converged, max-rounds, or cycle"`
	FinalRed        int    `json:"final_red" jsonschema:"Red nodes in the final labeling"`
	FinalIllusion   int    `json:"final_illusion" jsonschema:"Illusioned nodes in the final labeling"`
}

// BatchInput defines the input for the illusim_batch tool.
type BatchInput struct {
	Trials       int       `json:"trials,omitempty" jsonschema:"Independent trials to run (default from config)"`
	Nodes        int       `json:"nodes,omitempty" jsonschema:"Number of nodes per trial network (default from config)"`
	EdgesPerNode int       `json:"edges_per_node,omitempty" jsonschema:"Edges each new node attaches with (default from config)"`
	Fractions    []float64 `json:"fractions,omitempty" jsonschema:"Minority fractions to sweep per trial (default from config)"`
	Rule         string    `json:"rule,omitempty" jsonschema:"Update rule: 'threshold' or 'majority' (default from config)"`
	Phi          float64   `json:"phi,omitempty" jsonschema:"Threshold rule adoption fraction in [0,1] (default from config)"`
	MaxRounds    int       `json:"max_rounds,omitempty" jsonschema:"Round cap per run (default from config)"`
	Seed         uint64    `json:"seed,omitempty" jsonschema:"Master seed; per-trial seeds derive from it (default: 0)"`
	Workers      int       `json:"workers,omitempty" jsonschema:"Concurrent trial workers (default: GOMAXPROCS)"`
	Save         bool      `json:"save,omitempty" jsonschema:"Persist the batch to the result store (default: false)"`
}

// BatchOutput defines the output for the illusim_batch tool.
type BatchOutput struct {
	Trials       int          `json:"trials" jsonschema:"Trial records produced"`
	Failures     int          `json:"failures" jsonschema:"Trial computations that failed and were skipped"`
	Rows         []SummaryRow `json:"rows" jsonschema:"Illusion statistics grouped by influencer count"`
	ExperimentID int64        `json:"experiment_id,omitempty" jsonschema:"Row ID in the result store when save was requested"`
	Message      string       `json:"message" jsonschema:"Human-readable result message"`
}

// SummaryRow groups trial statistics for one influencer count.
type SummaryRow struct {
	Influencers int           `json:"influencers" jsonschema:"Influencer count shared by the grouped trials"`
	Trials      int           `json:"trials" jsonschema:"Trials in this group"`
	Cells       []SummaryCell `json:"cells" jsonschema:"Per-fraction statistics for this group"`
}

// SummaryCell holds the illusion statistics for one (influencer count, fraction) pair.
type SummaryCell struct {
	Fraction   float64 `json:"fraction" jsonschema:"Minority fraction this cell covers"`
	N          int     `json:"n" jsonschema:"Samples in this cell"`
	StaticMean float64 `json:"static_mean" jsonschema:"Mean illusion size before diffusion"`
	StaticSD   float64 `json:"static_sd" jsonschema:"Sample standard deviation of the static illusion size"`
	FinalMean  float64 `json:"final_mean" jsonschema:"Mean illusion size after diffusion"`
	FinalSD    float64 `json:"final_sd" jsonschema:"Sample standard deviation of the final illusion size"`
}

// RenderInput defines the input for the illusim_render tool.
type RenderInput struct {
	Nodes        int     `json:"nodes,omitempty" jsonschema:"Number of nodes in the network (default from config)"`
	EdgesPerNode int     `json:"edges_per_node,omitempty" jsonschema:"Edges each new node attaches with (default from config)"`
	Fraction     float64 `json:"fraction,omitempty" jsonschema:"Fraction of the population seeded with the minority opinion (default from config)"`
	Seed         uint64  `json:"seed,omitempty" jsonschema:"Seed driving network generation and opinion assignment (default: 0)"`
	Format       string  `json:"format,omitempty" jsonschema:"Output format: 'dot' or 'json' (default: 'json')"`
}

// RenderOutput defines the output for the illusim_render tool.
type RenderOutput struct {
	Format    string      `json:"format" jsonschema:"Format of the rendered graph"`
	Graph     interface{} `json:"graph" jsonschema:"Rendered graph: DOT source or a JSON object"`
	NodeCount int         `json:"node_count" jsonschema:"Number of nodes rendered"`
	EdgeCount int         `json:"edge_count" jsonschema:"Number of edges rendered"`
}

// ExperimentsInput defines the input for the illusim_experiments tool.
type ExperimentsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"Most recent experiments to return (default: 10)"`
}

// ExperimentsOutput defines the output for the illusim_experiments tool.
type ExperimentsOutput struct {
	Experiments []ExperimentSummary `json:"experiments,omitempty" jsonschema:"Stored experiments, newest first"`
	Count       int                 `json:"count" jsonschema:"Number of experiments returned"`
}

// ExperimentSummary provides a list view of a stored experiment.
type ExperimentSummary struct {
	ID           int64     `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Nodes        int       `json:"nodes"`
	EdgesPerNode int       `json:"edges_per_node"`
	Trials       int       `json:"trials"`
	Rule         string    `json:"rule"`
	Phi          float64   `json:"phi"`
	MaxRounds    int       `json:"max_rounds"`
	Seed         uint64    `json:"seed"`
}
