// Package config provides unified configuration loading for illusim.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/nvandessel/illusim/internal/diffusion"
)

// IllusimConfig contains all illusim configuration settings.
type IllusimConfig struct {
	// Network contains graph generation settings.
	Network NetworkConfig `json:"network" yaml:"network"`

	// Opinion contains initial labeling settings for single runs.
	Opinion OpinionConfig `json:"opinion" yaml:"opinion"`

	// Diffusion contains update-rule settings for single runs.
	Diffusion DiffusionConfig `json:"diffusion" yaml:"diffusion"`

	// Batch contains experiment batch settings.
	Batch BatchConfig `json:"batch" yaml:"batch"`

	// Logging contains settings for operational and round logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// NetworkConfig configures graph generation.
type NetworkConfig struct {
	// Nodes is the generated graph size.
	Nodes int `json:"nodes" yaml:"nodes"`

	// EdgesPerNode is how many existing nodes each new node attaches to.
	EdgesPerNode int `json:"edges_per_node" yaml:"edges_per_node"`
}

// OpinionConfig configures the initial labeling of single runs.
type OpinionConfig struct {
	// Fraction is the forced minority fraction of the node count.
	Fraction float64 `json:"fraction" yaml:"fraction"`
}

// DiffusionConfig configures the update loop of single runs.
type DiffusionConfig struct {
	// Rule selects the update rule: "threshold" or "majority".
	Rule string `json:"rule" yaml:"rule"`

	// Phi is the adoption share a Blue node's Red neighbors must strictly
	// exceed under the threshold rule.
	Phi float64 `json:"phi" yaml:"phi"`

	// MaxRounds caps a run that never settles.
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`

	// DetectCycles halts reversible-rule oscillations when a labeling
	// repeats.
	DetectCycles bool `json:"detect_cycles" yaml:"detect_cycles"`
}

// BatchConfig configures experiment batches.
type BatchConfig struct {
	// Trials is the number of independent graphs per batch.
	Trials int `json:"trials" yaml:"trials"`

	// Fractions lists the forced minority fractions tried on every graph.
	Fractions []float64 `json:"fractions" yaml:"fractions"`

	// Rule selects the batch update rule: "threshold" or "majority".
	Rule string `json:"rule" yaml:"rule"`

	// Workers bounds trial parallelism. Zero or one runs sequentially.
	Workers int `json:"workers" yaml:"workers"`
}

// LoggingConfig configures illusim's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables round logging to rounds.jsonl.
	// "trace" additionally includes full per-round content.
	Level string `json:"level" yaml:"level"`
}

// Default returns an IllusimConfig with sensible defaults.
func Default() *IllusimConfig {
	return &IllusimConfig{
		Network: NetworkConfig{
			Nodes:        1000,
			EdgesPerNode: 2,
		},
		Opinion: OpinionConfig{
			Fraction: 0.2,
		},
		Diffusion: DiffusionConfig{
			Rule:      "threshold",
			Phi:       diffusion.DefaultPhi,
			MaxRounds: diffusion.DefaultMaxRounds,
		},
		Batch: BatchConfig{
			Trials:    200,
			Fractions: []float64{0.10, 0.30, 0.40},
			Rule:      "majority",
			Workers:   0,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.illusim/config.yaml -> environment variables
func Load() (*IllusimConfig, error) {
	config := Default()

	// Try to load from default config file
	homeDir, err := os.UserHomeDir()
	if err == nil {
		configPath := filepath.Join(homeDir, ".illusim", "config.yaml")
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*IllusimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	return config, nil
}

// Validate checks that the configuration is valid.
func (c *IllusimConfig) Validate() error {
	if c.Network.EdgesPerNode < 1 || c.Network.EdgesPerNode >= c.Network.Nodes {
		return fmt.Errorf("network needs nodes > edges_per_node >= 1, got nodes=%d edges_per_node=%d",
			c.Network.Nodes, c.Network.EdgesPerNode)
	}

	if c.Opinion.Fraction < 0 || c.Opinion.Fraction > 1 {
		return fmt.Errorf("fraction must be between 0 and 1, got %f", c.Opinion.Fraction)
	}

	if c.Diffusion.Phi < 0 || c.Diffusion.Phi > 1 {
		return fmt.Errorf("phi must be between 0 and 1, got %f", c.Diffusion.Phi)
	}

	if c.Diffusion.MaxRounds < 1 {
		return fmt.Errorf("max_rounds must be at least 1, got %d", c.Diffusion.MaxRounds)
	}

	if c.Batch.Trials < 1 {
		return fmt.Errorf("trials must be at least 1, got %d", c.Batch.Trials)
	}

	if len(c.Batch.Fractions) == 0 {
		return fmt.Errorf("batch fractions must not be empty")
	}
	for _, f := range c.Batch.Fractions {
		if f < 0 || f > 1 {
			return fmt.Errorf("batch fraction must be between 0 and 1, got %f", f)
		}
	}

	if c.Batch.Workers < 0 {
		return fmt.Errorf("workers must be non-negative, got %d", c.Batch.Workers)
	}

	validRules := map[string]bool{"": true, "threshold": true, "majority": true}
	if !validRules[c.Diffusion.Rule] {
		return fmt.Errorf("invalid rule: %s (valid: threshold, majority, or empty for default)", c.Diffusion.Rule)
	}
	if !validRules[c.Batch.Rule] {
		return fmt.Errorf("invalid batch rule: %s (valid: threshold, majority, or empty for default)", c.Batch.Rule)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *IllusimConfig) {
	if v := os.Getenv("ILLUSIM_NODES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Network.Nodes = n
		}
	}
	if v := os.Getenv("ILLUSIM_EDGES_PER_NODE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Network.EdgesPerNode = n
		}
	}

	if v := os.Getenv("ILLUSIM_FRACTION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Opinion.Fraction = f
		}
	}

	if v := os.Getenv("ILLUSIM_RULE"); v != "" {
		config.Diffusion.Rule = v
	}
	if v := os.Getenv("ILLUSIM_PHI"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Diffusion.Phi = f
		}
	}
	if v := os.Getenv("ILLUSIM_MAX_ROUNDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Diffusion.MaxRounds = n
		}
	}

	if v := os.Getenv("ILLUSIM_TRIALS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Batch.Trials = n
		}
	}
	if v := os.Getenv("ILLUSIM_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Batch.Workers = n
		}
	}

	if v := os.Getenv("ILLUSIM_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
}
