package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/nvandessel/illusim/internal/config"
	"github.com/nvandessel/illusim/internal/experiment"
	"github.com/nvandessel/illusim/internal/logging"
	"github.com/nvandessel/illusim/internal/network"
	"github.com/nvandessel/illusim/internal/opinion"
	"github.com/nvandessel/illusim/internal/visualization"
	"github.com/spf13/cobra"
	"log/slog"
)

var version = "0.1.0-dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	if err := newRootCmd(cfg).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Flag defaults come from cfg so that
// --help shows the effective values after config file and env overrides.
func newRootCmd(cfg *config.IllusimConfig) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "illusim",
		Short: "Majority illusion simulator for scale-free networks",
		Long: `illusim grows preferential-attachment networks, seeds a minority
opinion on their most connected nodes, and measures how many nodes see
a local majority that contradicts the global one, both before and
after opinion diffusion.`,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON (for agent consumption)")
	rootCmd.PersistentFlags().String("log-level", cfg.Logging.Level, "Log level: info, debug, or trace")

	// Add subcommands
	rootCmd.AddCommand(
		newVersionCmd(),
		newGenerateCmd(cfg),
		newSimulateCmd(cfg),
		newBatchCmd(cfg),
		newRenderCmd(cfg),
		newExperimentsCmd(),
		newConfigCmd(),
		newMCPServerCmd(),
	)

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			jsonOut, _ := cmd.Flags().GetBool("json")
			if jsonOut {
				json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"version": version})
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "illusim version %s\n", version)
			}
		},
	}
}

// newLogger builds the operational logger from the persistent log-level flag.
func newLogger(cmd *cobra.Command) *slog.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return logging.NewLogger(level, cmd.ErrOrStderr())
}

// signalContext derives a context that is cancelled by SIGINT or SIGTERM,
// so long runs stop at the next round boundary instead of dying mid-write.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	notifySignals(sigCh)

	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// resolveStorePath expands the default result store location when the
// --db flag is empty.
func resolveStorePath(path string) (string, error) {
	if path != "" {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".illusim", "results.db"), nil
}

// joinInts formats the illusion series as space-separated counts.
func joinInts(xs []int) string {
	var b strings.Builder
	for i, x := range xs {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(x))
	}
	return b.String()
}

// printSummary writes grouped illusion statistics as an aligned table,
// one row per influencer count, one column pair per fraction.
func printSummary(w io.Writer, sum experiment.Summary) {
	if len(sum.Rows) == 0 {
		fmt.Fprintln(w, "No trial records to summarize.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "influencers\ttrials")
	for _, f := range sum.Fractions {
		fmt.Fprintf(tw, "\tstatic@%.2f\tfinal@%.2f", f, f)
	}
	fmt.Fprintln(tw)

	for _, row := range sum.Rows {
		fmt.Fprintf(tw, "%d\t%d", row.Influencers, row.Trials)
		for _, cell := range row.Cells {
			if cell.N == 0 {
				fmt.Fprint(tw, "\t-\t-")
				continue
			}
			fmt.Fprintf(tw, "\t%.1f (sd %.1f)\t%.1f (sd %.1f)",
				cell.StaticMean, cell.StaticSD, cell.FinalMean, cell.FinalSD)
		}
		fmt.Fprintln(tw)
	}
	tw.Flush()
}

// formatCreated renders store timestamps for table output.
func formatCreated(t time.Time) string {
	return t.Local().Format("2006-01-02 15:04")
}

// writeDOT renders a labeled network as Graphviz DOT and writes it to path.
func writeDOT(path string, g *network.Graph, labels opinion.Labeling) error {
	dot, err := visualization.RenderDOT(g, labels)
	if err != nil {
		return fmt.Errorf("render DOT: %w", err)
	}
	if err := os.WriteFile(path, []byte(dot), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
