package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/illusim/internal/config"
	"github.com/nvandessel/illusim/internal/experiment"
	"github.com/spf13/cobra"
)

// newTestRootCmd creates a root command with persistent flags for testing subcommands
func newTestRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use: "illusim",
	}
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level")
	return rootCmd
}

// isolateHome sets HOME to a temp directory to avoid touching real ~/.illusim/
// MUST be called for any test that loads config or opens stores by default path
func isolateHome(t *testing.T, tmpDir string) string {
	t.Helper()
	tmpHome := filepath.Join(tmpDir, "home")
	if err := os.MkdirAll(tmpHome, 0700); err != nil {
		t.Fatalf("Failed to create temp home: %v", err)
	}
	t.Setenv("HOME", tmpHome)
	return tmpHome
}

func TestNewRootCmd_HasSubcommands(t *testing.T) {
	rootCmd := newRootCmd(config.Default())

	want := []string{"version", "generate", "simulate", "batch", "render", "experiments", "config", "mcp-server"}
	for _, name := range want {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd == rootCmd {
			t.Errorf("missing subcommand %q", name)
		}
	}
}

func TestNewVersionCmd(t *testing.T) {
	cmd := newVersionCmd()
	if cmd.Use != "version" {
		t.Errorf("Use = %q, want %q", cmd.Use, "version")
	}
}

func TestVersionCmd_JSONOutput(t *testing.T) {
	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newVersionCmd())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--json"})

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("version failed: %v", err)
	}

	var got map[string]string
	if err := json.Unmarshal(out.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON output: %v", err)
	}
	if got["version"] != version {
		t.Errorf("version = %q, want %q", got["version"], version)
	}
}

func TestNewMCPServerCmd(t *testing.T) {
	cmd := newMCPServerCmd()
	if cmd.Use != "mcp-server" {
		t.Errorf("Use = %q, want %q", cmd.Use, "mcp-server")
	}
	if cmd.Flags().Lookup("data-dir") == nil {
		t.Error("missing --data-dir flag")
	}
}

func TestJoinInts(t *testing.T) {
	tests := []struct {
		input []int
		want  string
	}{
		{nil, ""},
		{[]int{7}, "7"},
		{[]int{3, 1, 0}, "3 1 0"},
	}

	for _, tt := range tests {
		if got := joinInts(tt.input); got != tt.want {
			t.Errorf("joinInts(%v) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestResolveStorePath_Explicit(t *testing.T) {
	got, err := resolveStorePath("/tmp/custom.db")
	if err != nil {
		t.Fatalf("resolveStorePath failed: %v", err)
	}
	if got != "/tmp/custom.db" {
		t.Errorf("path = %q, want %q", got, "/tmp/custom.db")
	}
}

func TestResolveStorePath_Default(t *testing.T) {
	tmpHome := isolateHome(t, t.TempDir())

	got, err := resolveStorePath("")
	if err != nil {
		t.Fatalf("resolveStorePath failed: %v", err)
	}
	want := filepath.Join(tmpHome, ".illusim", "results.db")
	if got != want {
		t.Errorf("path = %q, want %q", got, want)
	}
}

func TestPrintSummary(t *testing.T) {
	sum := experiment.Summary{
		Fractions: []float64{0.2},
		Rows: []experiment.Row{
			{
				Influencers: 3,
				Trials:      2,
				Cells: []experiment.Cell{
					{N: 2, StaticMean: 5, StaticSD: 1, FinalMean: 7.5, FinalSD: 2},
				},
			},
		},
	}

	var out bytes.Buffer
	printSummary(&out, sum)

	text := out.String()
	if !strings.Contains(text, "influencers") {
		t.Errorf("missing header, got: %s", text)
	}
	if !strings.Contains(text, "static@0.20") {
		t.Errorf("missing fraction column, got: %s", text)
	}
	if !strings.Contains(text, "5.0 (sd 1.0)") {
		t.Errorf("missing static cell, got: %s", text)
	}
	if !strings.Contains(text, "7.5 (sd 2.0)") {
		t.Errorf("missing final cell, got: %s", text)
	}
}

func TestPrintSummary_Empty(t *testing.T) {
	var out bytes.Buffer
	printSummary(&out, experiment.Summary{})

	if !strings.Contains(out.String(), "No trial records") {
		t.Errorf("expected empty-summary message, got: %s", out.String())
	}
}
