package main

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"

	"github.com/nvandessel/illusim/internal/config"
	"github.com/nvandessel/illusim/internal/diffusion"
	"github.com/nvandessel/illusim/internal/illusion"
	"github.com/nvandessel/illusim/internal/logging"
	"github.com/nvandessel/illusim/internal/network"
	"github.com/nvandessel/illusim/internal/opinion"
	"github.com/spf13/cobra"
)

func newSimulateCmd(cfg *config.IllusimConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one diffusion and track the majority illusion per round",
		Long: `Generate a network, seed the minority opinion on its influencers, then
run synchronous opinion updates until the labeling settles or the round
cap is reached.

The illusion size is measured on the labeling entering each round, so
the printed series starts with the static illusion.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			nodes, _ := cmd.Flags().GetInt("nodes")
			edgesPerNode, _ := cmd.Flags().GetInt("edges-per-node")
			fraction, _ := cmd.Flags().GetFloat64("fraction")
			ruleName, _ := cmd.Flags().GetString("rule")
			phi, _ := cmd.Flags().GetFloat64("phi")
			maxRounds, _ := cmd.Flags().GetInt("max-rounds")
			detectCycles, _ := cmd.Flags().GetBool("detect-cycles")
			seed, _ := cmd.Flags().GetUint64("seed")
			traceDir, _ := cmd.Flags().GetString("trace")
			dotPath, _ := cmd.Flags().GetString("dot")
			dotFinalPath, _ := cmd.Flags().GetString("dot-final")

			rule, err := diffusion.NewRule(ruleName, phi)
			if err != nil {
				return err
			}

			// One stream drives generation and assignment, so a seed
			// reproduces the whole run.
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

			static, err := illusion.Detect(g, labels)
			if err != nil {
				return fmt.Errorf("detect illusion: %w", err)
			}

			if dotPath != "" {
				if err := writeDOT(dotPath, g, labels); err != nil {
					return err
				}
			}

			simCfg := diffusion.Config{
				Rule:         rule,
				MaxRounds:    maxRounds,
				DetectCycles: detectCycles,
			}
			if traceDir != "" {
				rl := logging.NewRoundLogger(traceDir, "debug")
				defer rl.Close()
				simCfg.Observer = rl
			}

			sim, err := diffusion.NewSimulator(simCfg)
			if err != nil {
				return err
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			res, err := sim.Run(ctx, g, labels)
			if err != nil {
				return fmt.Errorf("run simulation: %w", err)
			}

			if dotFinalPath != "" {
				if err := writeDOT(dotFinalPath, g, res.Final); err != nil {
					return err
				}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"nodes":            g.NodeCount(),
					"edges":            g.EdgeCount(),
					"influencer_count": len(influencers),
					"initial_red":      labels.CountRed(),
					"static_illusion":  static.Size(),
					"rule":             rule.Name(),
					"series":           res.Series,
					"rounds":           res.Rounds,
					"halt":             string(res.Halt),
					"final_red":        res.Final.CountRed(),
					"final_illusion":   res.FinalReport.Size(),
					"seed":             seed,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Network: %d nodes, %d edges, %d influencers (seed %d)\n",
				g.NodeCount(), g.EdgeCount(), len(influencers), seed)
			fmt.Fprintf(out, "Seeded %d red nodes (fraction %.2f), static illusion %d\n",
				labels.CountRed(), fraction, static.Size())
			fmt.Fprintf(out, "Rule %s halted after %d rounds (%s)\n",
				rule.Name(), res.Rounds, res.Halt)
			fmt.Fprintf(out, "Illusion series: %s\n", joinInts(res.Series))
			fmt.Fprintf(out, "Final: %d red nodes, illusion %d\n",
				res.Final.CountRed(), res.FinalReport.Size())
			if dotPath != "" {
				fmt.Fprintf(out, "Initial labeling written to %s\n", dotPath)
			}
			if dotFinalPath != "" {
				fmt.Fprintf(out, "Final labeling written to %s\n", dotFinalPath)
			}
			return nil
		},
	}

	cmd.Flags().Int("nodes", cfg.Network.Nodes, "Number of nodes")
	cmd.Flags().Int("edges-per-node", cfg.Network.EdgesPerNode, "Edges each new node attaches with")
	cmd.Flags().Float64("fraction", cfg.Opinion.Fraction, "Minority fraction to seed")
	cmd.Flags().String("rule", cfg.Diffusion.Rule, "Update rule: threshold or majority")
	cmd.Flags().Float64("phi", cfg.Diffusion.Phi, "Adoption share for the threshold rule")
	cmd.Flags().Int("max-rounds", cfg.Diffusion.MaxRounds, "Round cap")
	cmd.Flags().Bool("detect-cycles", cfg.Diffusion.DetectCycles, "Halt when a labeling repeats")
	cmd.Flags().Uint64("seed", 0, "Seed for network generation and opinion assignment")
	cmd.Flags().String("trace", "", "Directory for a per-round JSONL trace")
	cmd.Flags().String("dot", "", "Write the initial labeled network as DOT to this file")
	cmd.Flags().String("dot-final", "", "Write the final labeled network as DOT to this file")

	return cmd
}
