package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	config := Default()

	// Network defaults
	if config.Network.Nodes != 1000 {
		t.Errorf("expected Nodes 1000, got %d", config.Network.Nodes)
	}
	if config.Network.EdgesPerNode != 2 {
		t.Errorf("expected EdgesPerNode 2, got %d", config.Network.EdgesPerNode)
	}

	// Opinion defaults
	if config.Opinion.Fraction != 0.2 {
		t.Errorf("expected Fraction 0.2, got %f", config.Opinion.Fraction)
	}

	// Diffusion defaults
	if config.Diffusion.Rule != "threshold" {
		t.Errorf("expected Rule 'threshold', got '%s'", config.Diffusion.Rule)
	}
	if config.Diffusion.Phi != 0.5 {
		t.Errorf("expected Phi 0.5, got %f", config.Diffusion.Phi)
	}
	if config.Diffusion.MaxRounds != 50 {
		t.Errorf("expected MaxRounds 50, got %d", config.Diffusion.MaxRounds)
	}
	if config.Diffusion.DetectCycles {
		t.Error("expected DetectCycles to be false by default")
	}

	// Batch defaults
	if config.Batch.Trials != 200 {
		t.Errorf("expected Trials 200, got %d", config.Batch.Trials)
	}
	if len(config.Batch.Fractions) != 3 {
		t.Fatalf("expected 3 default fractions, got %v", config.Batch.Fractions)
	}
	if config.Batch.Rule != "majority" {
		t.Errorf("expected batch Rule 'majority', got '%s'", config.Batch.Rule)
	}

	// Logging defaults
	if config.Logging.Level != "info" {
		t.Errorf("expected Logging.Level 'info', got '%s'", config.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	// Create a temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
network:
  nodes: 500
  edges_per_node: 3

diffusion:
  rule: majority
  phi: 0.4
  max_rounds: 25
  detect_cycles: true

batch:
  trials: 50
  fractions: [0.1, 0.2]
  workers: 4
`
	if err := os.WriteFile(configPath, []byte(configContent), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	config, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if config.Network.Nodes != 500 {
		t.Errorf("expected Nodes 500, got %d", config.Network.Nodes)
	}
	if config.Network.EdgesPerNode != 3 {
		t.Errorf("expected EdgesPerNode 3, got %d", config.Network.EdgesPerNode)
	}
	if config.Diffusion.Rule != "majority" {
		t.Errorf("expected Rule 'majority', got '%s'", config.Diffusion.Rule)
	}
	if config.Diffusion.Phi != 0.4 {
		t.Errorf("expected Phi 0.4, got %f", config.Diffusion.Phi)
	}
	if !config.Diffusion.DetectCycles {
		t.Error("expected DetectCycles to be true")
	}
	if config.Batch.Trials != 50 {
		t.Errorf("expected Trials 50, got %d", config.Batch.Trials)
	}
	if len(config.Batch.Fractions) != 2 || config.Batch.Fractions[0] != 0.1 {
		t.Errorf("expected Fractions [0.1, 0.2], got %v", config.Batch.Fractions)
	}
	if config.Batch.Workers != 4 {
		t.Errorf("expected Workers 4, got %d", config.Batch.Workers)
	}

	// Unset sections keep their defaults
	if config.Opinion.Fraction != 0.2 {
		t.Errorf("expected default Fraction 0.2, got %f", config.Opinion.Fraction)
	}
	if config.Logging.Level != "info" {
		t.Errorf("expected default Logging.Level 'info', got '%s'", config.Logging.Level)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ILLUSIM_NODES", "250")
	t.Setenv("ILLUSIM_RULE", "majority")
	t.Setenv("ILLUSIM_PHI", "0.35")
	t.Setenv("ILLUSIM_TRIALS", "10")
	t.Setenv("ILLUSIM_WORKERS", "8")

	config := Default()
	applyEnvOverrides(config)

	if config.Network.Nodes != 250 {
		t.Errorf("expected Nodes 250, got %d", config.Network.Nodes)
	}
	if config.Diffusion.Rule != "majority" {
		t.Errorf("expected Rule 'majority', got '%s'", config.Diffusion.Rule)
	}
	if config.Diffusion.Phi != 0.35 {
		t.Errorf("expected Phi 0.35, got %f", config.Diffusion.Phi)
	}
	if config.Batch.Trials != 10 {
		t.Errorf("expected Trials 10, got %d", config.Batch.Trials)
	}
	if config.Batch.Workers != 8 {
		t.Errorf("expected Workers 8, got %d", config.Batch.Workers)
	}
}

func TestEnvOverrides_LogLevel(t *testing.T) {
	t.Setenv("ILLUSIM_LOG_LEVEL", "debug")

	config := Default()
	applyEnvOverrides(config)

	if config.Logging.Level != "debug" {
		t.Errorf("expected Logging.Level 'debug', got '%s'", config.Logging.Level)
	}
}

func TestEnvOverrides_IgnoresUnparsable(t *testing.T) {
	t.Setenv("ILLUSIM_NODES", "not-a-number")
	t.Setenv("ILLUSIM_PHI", "also-not-a-number")

	config := Default()
	applyEnvOverrides(config)

	if config.Network.Nodes != 1000 {
		t.Errorf("expected default Nodes 1000, got %d", config.Network.Nodes)
	}
	if config.Diffusion.Phi != 0.5 {
		t.Errorf("expected default Phi 0.5, got %f", config.Diffusion.Phi)
	}
}

func TestValidate_Valid(t *testing.T) {
	config := Default()
	if err := config.Validate(); err != nil {
		t.Errorf("expected valid config, got error: %v", err)
	}
}

func TestValidate_InvalidNetwork(t *testing.T) {
	tests := []struct {
		name  string
		nodes int
		m     int
	}{
		{"m zero", 100, 0},
		{"m equals n", 100, 100},
		{"m above n", 10, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			config.Network.Nodes = tt.nodes
			config.Network.EdgesPerNode = tt.m
			if err := config.Validate(); err == nil {
				t.Error("expected validation error for invalid network params")
			}
		})
	}
}

func TestValidate_InvalidFraction(t *testing.T) {
	tests := []struct {
		name     string
		fraction float64
	}{
		{"negative", -0.1},
		{"greater than 1", 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			config.Opinion.Fraction = tt.fraction
			if err := config.Validate(); err == nil {
				t.Error("expected validation error for invalid fraction")
			}
		})
	}
}

func TestValidate_InvalidPhi(t *testing.T) {
	config := Default()
	config.Diffusion.Phi = 1.2
	if err := config.Validate(); err == nil {
		t.Error("expected validation error for invalid phi")
	}
}

func TestValidate_InvalidRule(t *testing.T) {
	config := Default()
	config.Diffusion.Rule = "gossip"
	if err := config.Validate(); err == nil {
		t.Error("expected validation error for invalid rule")
	}
}

func TestValidate_InvalidBatch(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*IllusimConfig)
	}{
		{"zero trials", func(c *IllusimConfig) { c.Batch.Trials = 0 }},
		{"empty fractions", func(c *IllusimConfig) { c.Batch.Fractions = nil }},
		{"fraction above one", func(c *IllusimConfig) { c.Batch.Fractions = []float64{0.2, 1.1} }},
		{"negative workers", func(c *IllusimConfig) { c.Batch.Workers = -1 }},
		{"bad batch rule", func(c *IllusimConfig) { c.Batch.Rule = "gossip" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := Default()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestValidate_ValidRules(t *testing.T) {
	validRules := []string{"", "threshold", "majority"}

	for _, rule := range validRules {
		t.Run(rule, func(t *testing.T) {
			config := Default()
			config.Diffusion.Rule = rule
			if err := config.Validate(); err != nil {
				t.Errorf("expected rule '%s' to be valid, got error: %v", rule, err)
			}
		})
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	config := Default()
	config.Logging.Level = "verbose"
	if err := config.Validate(); err == nil {
		t.Error("expected validation error for invalid log level")
	}
}

func TestValidate_ValidLogLevels(t *testing.T) {
	validLevels := []string{"", "info", "debug", "trace"}

	for _, level := range validLevels {
		t.Run(level, func(t *testing.T) {
			config := Default()
			config.Logging.Level = level
			if err := config.Validate(); err != nil {
				t.Errorf("expected log level '%s' to be valid, got error: %v", level, err)
			}
		})
	}
}

func TestLoadFromFile_NotFound(t *testing.T) {
	_, err := LoadFromFile("/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error for nonexistent file")
	}
}

func TestLoadFromFile_InvalidYAML(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	invalidYAML := `
network:
  nodes: [invalid yaml
`
	if err := os.WriteFile(configPath, []byte(invalidYAML), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	_, err := LoadFromFile(configPath)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}
