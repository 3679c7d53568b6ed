package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/nvandessel/illusim/internal/experiment"
	"github.com/nvandessel/illusim/internal/export"
	"github.com/nvandessel/illusim/internal/store"
	"github.com/spf13/cobra"
)

func newExperimentsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "experiments",
		Short: "Inspect saved experiment results",
	}

	cmd.PersistentFlags().String("db", "", "Result store path (default ~/.illusim/results.db)")

	cmd.AddCommand(
		newExperimentsListCmd(),
		newExperimentsShowCmd(),
	)

	return cmd
}

func newExperimentsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved experiments, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			dbPath, _ := cmd.Flags().GetString("db")

			path, err := resolveStorePath(dbPath)
			if err != nil {
				return err
			}
			rs, err := store.Open(path)
			if err != nil {
				return fmt.Errorf("open result store: %w", err)
			}
			defer rs.Close()

			metas, err := rs.Experiments(cmd.Context())
			if err != nil {
				return fmt.Errorf("list experiments: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"experiments": metas,
					"count":       len(metas),
				})
			}

			if len(metas) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No experiments saved yet. Run 'illusim batch --save' to record one.")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "id\tcreated\tnodes\tedges/node\ttrials\trule\tseed")
			for _, m := range metas {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%d\t%s\t%d\n",
					m.ID, formatCreated(m.CreatedAt), m.Nodes, m.EdgesPerNode,
					m.Trials, m.Rule, m.Seed)
			}
			return tw.Flush()
		},
	}
}

func newExperimentsShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one experiment's grouped illusion statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			dbPath, _ := cmd.Flags().GetString("db")
			arrowPath, _ := cmd.Flags().GetString("arrow")

			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid experiment ID %q", args[0])
			}

			path, err := resolveStorePath(dbPath)
			if err != nil {
				return err
			}
			rs, err := store.Open(path)
			if err != nil {
				return fmt.Errorf("open result store: %w", err)
			}
			defer rs.Close()

			ctx := cmd.Context()

			metas, err := rs.Experiments(ctx)
			if err != nil {
				return fmt.Errorf("list experiments: %w", err)
			}
			var meta *store.Meta
			for i := range metas {
				if metas[i].ID == id {
					meta = &metas[i]
					break
				}
			}
			if meta == nil {
				return fmt.Errorf("experiment not found: %d", id)
			}

			records, err := rs.Trials(ctx, id)
			if err != nil {
				return fmt.Errorf("load trials: %w", err)
			}
			failures, err := rs.Failures(ctx, id)
			if err != nil {
				return fmt.Errorf("load failures: %w", err)
			}

			if arrowPath != "" {
				if err := export.WriteTrialsFile(arrowPath, records); err != nil {
					return fmt.Errorf("export trial records: %w", err)
				}
			}

			summary := experiment.Summarize(records)

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"experiment": meta,
					"summary":    summary,
					"failures":   len(failures),
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Experiment %d: %d nodes, %d edges per node, %d trials, rule %s, seed %d\n",
				meta.ID, meta.Nodes, meta.EdgesPerNode, meta.Trials, meta.Rule, meta.Seed)
			fmt.Fprintf(out, "Created %s\n", formatCreated(meta.CreatedAt))
			printSummary(out, summary)
			if len(failures) > 0 {
				fmt.Fprintf(out, "%d trial computations failed and were skipped\n", len(failures))
			}
			if arrowPath != "" {
				fmt.Fprintf(out, "Trial records exported to %s\n", arrowPath)
			}
			return nil
		},
	}

	cmd.Flags().String("arrow", "", "Write this experiment's trial records to an Arrow IPC file")

	return cmd
}
