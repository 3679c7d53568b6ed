package mcp

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/illusim/internal/diffusion"
	"github.com/nvandessel/illusim/internal/experiment"
	"github.com/nvandessel/illusim/internal/illusion"
	"github.com/nvandessel/illusim/internal/network"
	"github.com/nvandessel/illusim/internal/opinion"
	"github.com/nvandessel/illusim/internal/ratelimit"
	"github.com/nvandessel/illusim/internal/store"
	"github.com/nvandessel/illusim/internal/visualization"
)

// maxListedInfluencers caps the influencer IDs echoed by illusim_generate.
const maxListedInfluencers = 25

// registerTools registers all illusim MCP tools with the server.
func (s *Server) registerTools() error {
	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "illusim_generate",
		Description: "Generate a scale-free network and report its degree profile and influencer set",
	}, s.handleGenerate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "illusim_simulate",
		Description: "Run one simulation: generate a network, seed opinions, diffuse, and track the majority illusion per round",
	}, s.handleSimulate)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "illusim_batch",
		Description: "Run a batch of independent trials and aggregate illusion statistics by influencer count",
	}, s.handleBatch)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "illusim_render",
		Description: "Render a freshly seeded network in DOT (Graphviz) or JSON format with illusioned nodes marked",
	}, s.handleRender)

	sdk.AddTool(s.server, &sdk.Tool{
		Name:        "illusim_experiments",
		Description: "List experiments saved in the result store, newest first",
	}, s.handleExperiments)

	return nil
}

// registerResources registers MCP resources exposing stored experiment summaries.
func (s *Server) registerResources() error {
	s.server.AddResource(&sdk.Resource{
		URI:         "illusim://experiments/latest",
		Name:        "illusim-latest-experiment",
		Description: "Summary of the most recently saved experiment batch.",
		MIMEType:    "text/markdown",
	}, s.handleLatestExperimentResource)

	s.server.AddResourceTemplate(&sdk.ResourceTemplate{
		URITemplate: "illusim://experiments/{id}",
		Name:        "illusim-experiment",
		Description: "Full summary for one stored experiment, including grouped illusion statistics.",
		MIMEType:    "text/markdown",
	}, s.handleExperimentResource)

	return nil
}

// networkParams fills unset network inputs from the loaded config.
func (s *Server) networkParams(nodes, edgesPerNode int) (int, int) {
	if nodes <= 0 {
		nodes = s.cfg.Network.Nodes
	}
	if edgesPerNode <= 0 {
		edgesPerNode = s.cfg.Network.EdgesPerNode
	}
	return nodes, edgesPerNode
}

// seedLabeled builds a network and its initial labeling from one seed, so
// identical inputs reproduce identical runs.
func (s *Server) seedLabeled(nodes, edgesPerNode int, fraction float64, seed uint64) (*network.Graph, []int, opinion.Labeling, error) {
	rng := rand.New(rand.NewPCG(seed, seed))

	g, err := network.Generate(nodes, edgesPerNode, rng)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("generate network: %w", err)
	}
	influencers, err := network.SelectInfluencers(g)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("select influencers: %w", err)
	}
	labels, err := opinion.Assign(g, influencers, fraction, rng)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("assign opinions: %w", err)
	}

	return g, influencers, labels, nil
}

func (s *Server) handleGenerate(ctx context.Context, req *sdk.CallToolRequest, args GenerateInput) (_ *sdk.CallToolResult, _ GenerateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("illusim_generate", start, retErr, sanitizeToolParams(map[string]interface{}{
			"nodes":          args.Nodes,
			"edges_per_node": args.EdgesPerNode,
			"seed":           args.Seed,
		}))
	}()

	if err := ratelimit.CheckLimit(s.limits, "illusim_generate"); err != nil {
		return nil, GenerateOutput{}, err
	}

	nodes, edgesPerNode := s.networkParams(args.Nodes, args.EdgesPerNode)

	g, err := network.GenerateSeeded(nodes, edgesPerNode, args.Seed)
	if err != nil {
		return nil, GenerateOutput{}, fmt.Errorf("generate network: %w", err)
	}

	stats, err := g.Degrees()
	if err != nil {
		return nil, GenerateOutput{}, err
	}

	influencers, err := network.SelectInfluencers(g)
	if err != nil {
		return nil, GenerateOutput{}, fmt.Errorf("select influencers: %w", err)
	}

	listed := influencers
	if len(listed) > maxListedInfluencers {
		listed = listed[:maxListedInfluencers]
	}

	return nil, GenerateOutput{
		NodeCount:       g.NodeCount(),
		EdgeCount:       g.EdgeCount(),
		MeanDegree:      stats.Mean,
		MaxDegree:       stats.Max,
		InfluencerCount: len(influencers),
		Influencers:     listed,
	}, nil
}

func (s *Server) handleSimulate(ctx context.Context, req *sdk.CallToolRequest, args SimulateInput) (_ *sdk.CallToolResult, _ SimulateOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("illusim_simulate", start, retErr, sanitizeToolParams(map[string]interface{}{
			"nodes":          args.Nodes,
			"edges_per_node": args.EdgesPerNode,
			"fraction":       args.Fraction,
			"rule":           args.Rule,
			"phi":            args.Phi,
			"max_rounds":     args.MaxRounds,
			"detect_cycles":  args.DetectCycles,
			"seed":           args.Seed,
		}))
	}()

	if err := ratelimit.CheckLimit(s.limits, "illusim_simulate"); err != nil {
		return nil, SimulateOutput{}, err
	}

	nodes, edgesPerNode := s.networkParams(args.Nodes, args.EdgesPerNode)
	fraction := args.Fraction
	if fraction == 0 {
		fraction = s.cfg.Opinion.Fraction
	}
	ruleName := args.Rule
	if ruleName == "" {
		ruleName = s.cfg.Diffusion.Rule
	}
	phi := args.Phi
	if phi == 0 {
		phi = s.cfg.Diffusion.Phi
	}
	maxRounds := args.MaxRounds
	if maxRounds <= 0 {
		maxRounds = s.cfg.Diffusion.MaxRounds
	}

	rule, err := diffusion.NewRule(ruleName, phi)
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	g, influencers, labels, err := s.seedLabeled(nodes, edgesPerNode, fraction, args.Seed)
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	staticRep, err := illusion.Detect(g, labels)
	if err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("detect illusion: %w", err)
	}

	sim, err := diffusion.NewSimulator(diffusion.Config{
		Rule:         rule,
		MaxRounds:    maxRounds,
		DetectCycles: args.DetectCycles,
	})
	if err != nil {
		return nil, SimulateOutput{}, err
	}

	res, err := sim.Run(ctx, g, labels)
	if err != nil {
		return nil, SimulateOutput{}, fmt.Errorf("run simulation: %w", err)
	}

	return nil, SimulateOutput{
		NodeCount:       g.NodeCount(),
		EdgeCount:       g.EdgeCount(),
		InfluencerCount: len(influencers),
		InitialRed:      labels.CountRed(),
		StaticIllusion:  staticRep.Size(),
		Rule:            rule.Name(),
		Series:          res.Series,
		Rounds:          res.Rounds,
		Halt:            string(res.Halt),
		FinalRed:        res.Final.CountRed(),
		FinalIllusion:   res.FinalReport.Size(),
	}, nil
}

func (s *Server) handleBatch(ctx context.Context, req *sdk.CallToolRequest, args BatchInput) (_ *sdk.CallToolResult, _ BatchOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("illusim_batch", start, retErr, sanitizeToolParams(map[string]interface{}{
			"trials":         args.Trials,
			"nodes":          args.Nodes,
			"edges_per_node": args.EdgesPerNode,
			"fractions":      args.Fractions,
			"rule":           args.Rule,
			"max_rounds":     args.MaxRounds,
			"seed":           args.Seed,
			"workers":        args.Workers,
			"save":           args.Save,
		}))
	}()

	if err := ratelimit.CheckLimit(s.limits, "illusim_batch"); err != nil {
		return nil, BatchOutput{}, err
	}

	trials := args.Trials
	if trials <= 0 {
		trials = s.cfg.Batch.Trials
	}
	nodes, edgesPerNode := s.networkParams(args.Nodes, args.EdgesPerNode)
	fractions := args.Fractions
	if len(fractions) == 0 {
		fractions = s.cfg.Batch.Fractions
	}
	ruleName := args.Rule
	if ruleName == "" {
		ruleName = s.cfg.Batch.Rule
	}
	phi := args.Phi
	if phi == 0 {
		phi = s.cfg.Diffusion.Phi
	}
	maxRounds := args.MaxRounds
	if maxRounds <= 0 {
		maxRounds = s.cfg.Diffusion.MaxRounds
	}

	rule, err := diffusion.NewRule(ruleName, phi)
	if err != nil {
		return nil, BatchOutput{}, err
	}

	runner, err := experiment.NewRunner(experiment.Config{
		Trials:       trials,
		Nodes:        nodes,
		EdgesPerNode: edgesPerNode,
		Fractions:    fractions,
		Rule:         rule,
		MaxRounds:    maxRounds,
		Seed:         args.Seed,
		Workers:      args.Workers,
	})
	if err != nil {
		return nil, BatchOutput{}, fmt.Errorf("configure batch: %w", err)
	}

	batch, err := runner.Run(ctx)
	if err != nil {
		return nil, BatchOutput{}, fmt.Errorf("run batch: %w", err)
	}

	summary := experiment.Summarize(batch.Records)
	out := BatchOutput{
		Trials:   len(batch.Records),
		Failures: len(batch.Failures),
		Rows:     summaryRows(summary),
		Message: fmt.Sprintf("%d trial records (%d failures) across %d influencer groups",
			len(batch.Records), len(batch.Failures), len(summary.Rows)),
	}

	if args.Save {
		id, err := s.store.SaveBatch(ctx, store.Meta{
			Nodes:        nodes,
			EdgesPerNode: edgesPerNode,
			Trials:       trials,
			Rule:         rule.Name(),
			Phi:          phi,
			MaxRounds:    maxRounds,
			Seed:         args.Seed,
		}, batch)
		if err != nil {
			return nil, BatchOutput{}, fmt.Errorf("save batch: %w", err)
		}
		out.ExperimentID = id
		out.Message += fmt.Sprintf(", saved as experiment %d", id)
	}

	return nil, out, nil
}

func (s *Server) handleRender(ctx context.Context, req *sdk.CallToolRequest, args RenderInput) (_ *sdk.CallToolResult, _ RenderOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("illusim_render", start, retErr, sanitizeToolParams(map[string]interface{}{
			"nodes":          args.Nodes,
			"edges_per_node": args.EdgesPerNode,
			"fraction":       args.Fraction,
			"seed":           args.Seed,
			"format":         args.Format,
		}))
	}()

	if err := ratelimit.CheckLimit(s.limits, "illusim_render"); err != nil {
		return nil, RenderOutput{}, err
	}

	nodes, edgesPerNode := s.networkParams(args.Nodes, args.EdgesPerNode)
	fraction := args.Fraction
	if fraction == 0 {
		fraction = s.cfg.Opinion.Fraction
	}

	g, _, labels, err := s.seedLabeled(nodes, edgesPerNode, fraction, args.Seed)
	if err != nil {
		return nil, RenderOutput{}, err
	}

	format := args.Format
	if format == "" {
		format = "json"
	}

	switch visualization.Format(format) {
	case visualization.FormatDOT:
		dot, err := visualization.RenderDOT(g, labels)
		if err != nil {
			return nil, RenderOutput{}, fmt.Errorf("render DOT: %w", err)
		}
		return nil, RenderOutput{
			Format:    "dot",
			Graph:     dot,
			NodeCount: g.NodeCount(),
			EdgeCount: g.EdgeCount(),
		}, nil

	case visualization.FormatJSON:
		result, err := visualization.RenderJSON(g, labels)
		if err != nil {
			return nil, RenderOutput{}, fmt.Errorf("render JSON: %w", err)
		}
		return nil, RenderOutput{
			Format:    "json",
			Graph:     result,
			NodeCount: g.NodeCount(),
			EdgeCount: g.EdgeCount(),
		}, nil

	default:
		return nil, RenderOutput{}, fmt.Errorf("unsupported format %q (use 'dot' or 'json')", format)
	}
}

func (s *Server) handleExperiments(ctx context.Context, req *sdk.CallToolRequest, args ExperimentsInput) (_ *sdk.CallToolResult, _ ExperimentsOutput, retErr error) {
	start := time.Now()
	defer func() {
		s.auditTool("illusim_experiments", start, retErr, sanitizeToolParams(map[string]interface{}{
			"limit": args.Limit,
		}))
	}()

	if err := ratelimit.CheckLimit(s.limits, "illusim_experiments"); err != nil {
		return nil, ExperimentsOutput{}, err
	}

	limit := args.Limit
	if limit <= 0 {
		limit = 10
	}

	metas, err := s.store.Experiments(ctx)
	if err != nil {
		return nil, ExperimentsOutput{}, fmt.Errorf("list experiments: %w", err)
	}
	if len(metas) > limit {
		metas = metas[:limit]
	}

	items := make([]ExperimentSummary, 0, len(metas))
	for _, m := range metas {
		items = append(items, ExperimentSummary{
			ID:           m.ID,
			CreatedAt:    m.CreatedAt,
			Nodes:        m.Nodes,
			EdgesPerNode: m.EdgesPerNode,
			Trials:       m.Trials,
			Rule:         m.Rule,
			Phi:          m.Phi,
			MaxRounds:    m.MaxRounds,
			Seed:         m.Seed,
		})
	}

	return nil, ExperimentsOutput{Experiments: items, Count: len(items)}, nil
}

// handleLatestExperimentResource returns the newest stored experiment as markdown.
func (s *Server) handleLatestExperimentResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	metas, err := s.store.Experiments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}

	if len(metas) == 0 {
		return &sdk.ReadResourceResult{
			Contents: []*sdk.ResourceContents{
				{
					URI:      "illusim://experiments/latest",
					MIMEType: "text/markdown",
					Text:     "# Experiments\n\nNo experiments saved yet. Run `illusim_batch` with save=true to record one.\n",
				},
			},
		}, nil
	}

	text, err := s.experimentMarkdown(ctx, metas[0])
	if err != nil {
		return nil, err
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      "illusim://experiments/latest",
				MIMEType: "text/markdown",
				Text:     text,
			},
		},
	}, nil
}

// handleExperimentResource returns one stored experiment as markdown.
// URI format: illusim://experiments/{id}
func (s *Server) handleExperimentResource(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
	uri := req.Params.URI
	prefix := "illusim://experiments/"
	if !strings.HasPrefix(uri, prefix) {
		return nil, fmt.Errorf("invalid URI format: %s", uri)
	}
	idStr := strings.TrimPrefix(uri, prefix)
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid experiment ID %q: %w", idStr, err)
	}

	metas, err := s.store.Experiments(ctx)
	if err != nil {
		return nil, fmt.Errorf("list experiments: %w", err)
	}

	var meta *store.Meta
	for i := range metas {
		if metas[i].ID == id {
			meta = &metas[i]
			break
		}
	}
	if meta == nil {
		return nil, fmt.Errorf("experiment not found: %d", id)
	}

	text, err := s.experimentMarkdown(ctx, *meta)
	if err != nil {
		return nil, err
	}

	return &sdk.ReadResourceResult{
		Contents: []*sdk.ResourceContents{
			{
				URI:      uri,
				MIMEType: "text/markdown",
				Text:     text,
			},
		},
	}, nil
}

// experimentMarkdown formats one stored experiment as a markdown summary.
func (s *Server) experimentMarkdown(ctx context.Context, meta store.Meta) (string, error) {
	records, err := s.store.Trials(ctx, meta.ID)
	if err != nil {
		return "", fmt.Errorf("load trials: %w", err)
	}
	failures, err := s.store.Failures(ctx, meta.ID)
	if err != nil {
		return "", fmt.Errorf("load failures: %w", err)
	}

	sum := experiment.Summarize(records)

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# Experiment %d\n\n", meta.ID))
	sb.WriteString(fmt.Sprintf("**Created:** %s\n", meta.CreatedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("**Network:** %d nodes, %d edges per node\n", meta.Nodes, meta.EdgesPerNode))
	sb.WriteString(fmt.Sprintf("**Rule:** %s", meta.Rule))
	if meta.Rule == "threshold" {
		sb.WriteString(fmt.Sprintf(" (phi=%.2f)", meta.Phi))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("**Trials:** %d, seed %d\n\n", meta.Trials, meta.Seed))

	sb.WriteString("## Illusion by influencer count\n\n")
	sb.WriteString("| influencers | trials | fraction | static mean | static sd | final mean | final sd |\n")
	sb.WriteString("|---:|---:|---:|---:|---:|---:|---:|\n")
	for _, row := range sum.Rows {
		for i, cell := range row.Cells {
			if cell.N == 0 {
				continue
			}
			sb.WriteString(fmt.Sprintf("| %d | %d | %.2f | %.1f | %.1f | %.1f | %.1f |\n",
				row.Influencers, row.Trials, sum.Fractions[i],
				cell.StaticMean, cell.StaticSD, cell.FinalMean, cell.FinalSD))
		}
	}

	if len(failures) > 0 {
		sb.WriteString(fmt.Sprintf("\n%d trial computations failed and were skipped.\n", len(failures)))
	}

	return sb.String(), nil
}

// summaryRows flattens a summary into rows that carry their fractions inline.
func summaryRows(sum experiment.Summary) []SummaryRow {
	rows := make([]SummaryRow, 0, len(sum.Rows))
	for _, row := range sum.Rows {
		cells := make([]SummaryCell, 0, len(row.Cells))
		for i, cell := range row.Cells {
			cells = append(cells, SummaryCell{
				Fraction:   sum.Fractions[i],
				N:          cell.N,
				StaticMean: cell.StaticMean,
				StaticSD:   cell.StaticSD,
				FinalMean:  cell.FinalMean,
				FinalSD:    cell.FinalSD,
			})
		}
		rows = append(rows, SummaryRow{
			Influencers: row.Influencers,
			Trials:      row.Trials,
			Cells:       cells,
		})
	}
	return rows
}
