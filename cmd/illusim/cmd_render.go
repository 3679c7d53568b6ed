package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/nvandessel/illusim/internal/config"
	"github.com/nvandessel/illusim/internal/network"
	"github.com/nvandessel/illusim/internal/opinion"
	"github.com/nvandessel/illusim/internal/visualization"
	"github.com/spf13/cobra"
)

func newRenderCmd(cfg *config.IllusimConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a seeded network for visualization",
		Long: `Generate and seed a network, then write it out in DOT (Graphviz) or
JSON format. Nodes are colored by opinion, and nodes under the majority
illusion are drawn with a doubled border.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			nodes, _ := cmd.Flags().GetInt("nodes")
			edgesPerNode, _ := cmd.Flags().GetInt("edges-per-node")
			fraction, _ := cmd.Flags().GetFloat64("fraction")
			seed, _ := cmd.Flags().GetUint64("seed")
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")

			rng := rand.New(rand.NewPCG(seed, seed))

			g, err := network.Generate(nodes, edgesPerNode, rng)
			if err != nil {
				return fmt.Errorf("generate network: %w", err)
			}
			influencers, err := network.SelectInfluencers(g)
			if err != nil {
				return fmt.Errorf("select influencers: %w", err)
			}
			labels, err := opinion.Assign(g, influencers, fraction, rng)
			if err != nil {
				return fmt.Errorf("assign opinions: %w", err)
			}

			var rendered []byte
			switch visualization.Format(format) {
			case visualization.FormatDOT:
				dot, err := visualization.RenderDOT(g, labels)
				if err != nil {
					return fmt.Errorf("render DOT: %w", err)
				}
				rendered = []byte(dot)

			case visualization.FormatJSON:
				result, err := visualization.RenderJSON(g, labels)
				if err != nil {
					return fmt.Errorf("render JSON: %w", err)
				}
				buf := &bytes.Buffer{}
				enc := json.NewEncoder(buf)
				enc.SetIndent("", "  ")
				if err := enc.Encode(result); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}
				rendered = buf.Bytes()

			default:
				return fmt.Errorf("unsupported format %q (use 'dot' or 'json')", format)
			}

			if output != "" {
				if err := os.WriteFile(output, rendered, 0644); err != nil {
					return fmt.Errorf("write %s: %w", output, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rendered network written to %s\n", output)
				return nil
			}

			_, err = cmd.OutOrStdout().Write(rendered)
			return err
		},
	}

	cmd.Flags().Int("nodes", cfg.Network.Nodes, "Number of nodes")
	cmd.Flags().Int("edges-per-node", cfg.Network.EdgesPerNode, "Edges each new node attaches with")
	cmd.Flags().Float64("fraction", cfg.Opinion.Fraction, "Minority fraction to seed")
	cmd.Flags().Uint64("seed", 0, "Seed for network generation and opinion assignment")
	cmd.Flags().String("format", "dot", "Output format: dot or json")
	cmd.Flags().StringP("output", "o", "", "Output file path (default stdout)")

	return cmd
}
