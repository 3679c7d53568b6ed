package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func runConfigCmd(t *testing.T, args ...string) string {
	t.Helper()
	rootCmd := newTestRootCmd()
	rootCmd.AddCommand(newConfigCmd())
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(append([]string{"config"}, args...))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("config %v failed: %v", args, err)
	}
	return out.String()
}

func TestConfigListCmd(t *testing.T) {
	isolateHome(t, t.TempDir())

	text := runConfigCmd(t, "list")
	if !strings.Contains(text, "network.nodes") {
		t.Errorf("missing network.nodes, got: %s", text)
	}
	if !strings.Contains(text, "1000") {
		t.Errorf("missing default node count, got: %s", text)
	}
	if !strings.Contains(text, "batch.fractions") {
		t.Errorf("missing batch.fractions, got: %s", text)
	}
}

func TestConfigSetGetCmd(t *testing.T) {
	tmpHome := isolateHome(t, t.TempDir())

	setOut := runConfigCmd(t, "set", "network.nodes", "5000")
	if !strings.Contains(setOut, "Set network.nodes = 5000") {
		t.Errorf("missing confirmation, got: %s", setOut)
	}

	// The value persists to the config file and round-trips through get.
	if _, err := os.Stat(filepath.Join(tmpHome, ".illusim", "config.yaml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	getOut := runConfigCmd(t, "get", "network.nodes")
	if !strings.Contains(getOut, "network.nodes = 5000") {
		t.Errorf("value did not round-trip, got: %s", getOut)
	}
}

func TestConfigSetCmd_Fractions(t *testing.T) {
	isolateHome(t, t.TempDir())

	runConfigCmd(t, "set", "batch.fractions", "0.1,0.2,0.3")

	getOut := runConfigCmd(t, "get", "batch.fractions")
	if !strings.Contains(getOut, "0.1,0.2,0.3") {
		t.Errorf("fractions did not round-trip, got: %s", getOut)
	}
}

func TestConfigGetCmd_UnknownKey(t *testing.T) {
	isolateHome(t, t.TempDir())

	text := runConfigCmd(t, "get", "bogus.key")
	if !strings.Contains(text, "Unknown configuration key") {
		t.Errorf("missing unknown-key message, got: %s", text)
	}
}

func TestConfigSetCmd_InvalidValue(t *testing.T) {
	isolateHome(t, t.TempDir())

	text := runConfigCmd(t, "set", "opinion.fraction", "abc")
	if !strings.Contains(text, "Error:") {
		t.Errorf("missing error message, got: %s", text)
	}
}

func TestConfigSetCmd_CrossFieldValidation(t *testing.T) {
	tmpHome := isolateHome(t, t.TempDir())

	// Defaults have 1000 nodes, so edges_per_node 0 breaks the generator
	// constraint and must not be written.
	text := runConfigCmd(t, "set", "network.edges_per_node", "0")
	if !strings.Contains(text, "Error:") {
		t.Errorf("missing validation error, got: %s", text)
	}
	if _, err := os.Stat(filepath.Join(tmpHome, ".illusim", "config.yaml")); err == nil {
		t.Error("invalid config was written to disk")
	}
}

func TestConfigSetCmd_UnknownRule(t *testing.T) {
	isolateHome(t, t.TempDir())

	text := runConfigCmd(t, "set", "diffusion.rule", "gossip")
	if !strings.Contains(text, "Error:") {
		t.Errorf("missing validation error, got: %s", text)
	}
}

func TestParseFractions(t *testing.T) {
	got, err := parseFractions("0.1, 0.25,0.5")
	if err != nil {
		t.Fatalf("parseFractions failed: %v", err)
	}
	want := []float64{0.1, 0.25, 0.5}
	if len(got) != len(want) {
		t.Fatalf("got %d fractions, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fraction[%d] = %v, want %v", i, got[i], want[i])
		}
	}

	if _, err := parseFractions("0.1,x"); err == nil {
		t.Error("expected error for non-numeric fraction")
	}
}

func TestFormatFractions(t *testing.T) {
	if got := formatFractions([]float64{0.1, 0.3, 0.4}); got != "0.1,0.3,0.4" {
		t.Errorf("formatFractions = %q, want %q", got, "0.1,0.3,0.4")
	}
	if got := formatFractions(nil); got != "" {
		t.Errorf("formatFractions(nil) = %q, want empty", got)
	}
}
