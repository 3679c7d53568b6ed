package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/illusim/internal/config"
	"github.com/nvandessel/illusim/internal/diffusion"
	"github.com/nvandessel/illusim/internal/experiment"
	"github.com/nvandessel/illusim/internal/export"
	"github.com/nvandessel/illusim/internal/store"
	"github.com/spf13/cobra"
)

func newBatchCmd(cfg *config.IllusimConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Run repeated trials and aggregate illusion statistics",
		Long: `Run independent trials, each on a fresh network, and group the static
and final illusion sizes by influencer count. Per-trial seeds derive
from the master seed up front, so a batch reproduces exactly regardless
of worker count.

Results can be persisted to the local result store with --save and
exported as an Arrow IPC file with --arrow for columnar analysis.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			trials, _ := cmd.Flags().GetInt("trials")
			nodes, _ := cmd.Flags().GetInt("nodes")
			edgesPerNode, _ := cmd.Flags().GetInt("edges-per-node")
			fractions, _ := cmd.Flags().GetFloat64Slice("fractions")
			ruleName, _ := cmd.Flags().GetString("rule")
			phi, _ := cmd.Flags().GetFloat64("phi")
			maxRounds, _ := cmd.Flags().GetInt("max-rounds")
			detectCycles, _ := cmd.Flags().GetBool("detect-cycles")
			seed, _ := cmd.Flags().GetUint64("seed")
			workers, _ := cmd.Flags().GetInt("workers")
			save, _ := cmd.Flags().GetBool("save")
			dbPath, _ := cmd.Flags().GetString("db")
			arrowPath, _ := cmd.Flags().GetString("arrow")

			// Naming a store means the caller wants the batch in it.
			save = save || cmd.Flags().Changed("db")

			rule, err := diffusion.NewRule(ruleName, phi)
			if err != nil {
				return err
			}

			runner, err := experiment.NewRunner(experiment.Config{
				Trials:       trials,
				Nodes:        nodes,
				EdgesPerNode: edgesPerNode,
				Fractions:    fractions,
				Rule:         rule,
				MaxRounds:    maxRounds,
				DetectCycles: detectCycles,
				Seed:         seed,
				Workers:      workers,
				Logger:       newLogger(cmd),
			})
			if err != nil {
				return fmt.Errorf("configure batch: %w", err)
			}

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			batch, err := runner.Run(ctx)
			if err != nil {
				return fmt.Errorf("run batch: %w", err)
			}

			summary := experiment.Summarize(batch.Records)

			var experimentID int64
			if save {
				path, err := resolveStorePath(dbPath)
				if err != nil {
					return err
				}
				rs, err := store.Open(path)
				if err != nil {
					return fmt.Errorf("open result store: %w", err)
				}
				defer rs.Close()

				experimentID, err = rs.SaveBatch(ctx, store.Meta{
					Nodes:        nodes,
					EdgesPerNode: edgesPerNode,
					Trials:       trials,
					Rule:         rule.Name(),
					Phi:          phi,
					MaxRounds:    maxRounds,
					Seed:         seed,
				}, batch)
				if err != nil {
					return fmt.Errorf("save batch: %w", err)
				}
			}

			if arrowPath != "" {
				if err := export.WriteTrialsFile(arrowPath, batch.Records); err != nil {
					return fmt.Errorf("export trial records: %w", err)
				}
			}

			if jsonOut {
				payload := map[string]interface{}{
					"trials":   len(batch.Records),
					"failures": len(batch.Failures),
					"rule":     rule.Name(),
					"seed":     seed,
					"summary":  summary,
				}
				if save {
					payload["experiment_id"] = experimentID
				}
				if arrowPath != "" {
					payload["arrow"] = arrowPath
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(payload)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Ran %d trial records (%d failures), rule %s, seed %d\n",
				len(batch.Records), len(batch.Failures), rule.Name(), seed)
			printSummary(out, summary)
			if save {
				fmt.Fprintf(out, "Saved as experiment %d\n", experimentID)
			}
			if arrowPath != "" {
				fmt.Fprintf(out, "Trial records exported to %s\n", arrowPath)
			}
			return nil
		},
	}

	cmd.Flags().Int("trials", cfg.Batch.Trials, "Independent trials to run")
	cmd.Flags().Int("nodes", cfg.Network.Nodes, "Number of nodes per trial network")
	cmd.Flags().Int("edges-per-node", cfg.Network.EdgesPerNode, "Edges each new node attaches with")
	cmd.Flags().Float64Slice("fractions", cfg.Batch.Fractions, "Minority fractions tried on every network")
	cmd.Flags().String("rule", cfg.Batch.Rule, "Update rule: threshold or majority")
	cmd.Flags().Float64("phi", cfg.Diffusion.Phi, "Adoption share for the threshold rule")
	cmd.Flags().Int("max-rounds", cfg.Diffusion.MaxRounds, "Round cap per run")
	cmd.Flags().Bool("detect-cycles", false, "Halt runs when a labeling repeats")
	cmd.Flags().Uint64("seed", 0, "Master seed for the whole batch")
	cmd.Flags().Int("workers", cfg.Batch.Workers, "Concurrent trial workers (0 means sequential)")
	cmd.Flags().Bool("save", false, "Persist results to the local result store")
	cmd.Flags().String("db", "", "Result store path (default ~/.illusim/results.db)")
	cmd.Flags().String("arrow", "", "Write trial records to an Arrow IPC file")

	return cmd
}
