package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/nvandessel/illusim/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage illusim configuration",
		Long: `View and modify illusim configuration settings.

Configuration is stored in ~/.illusim/config.yaml.

Examples:
  illusim config list                       # Show all settings
  illusim config get network.nodes          # Get a specific setting
  illusim config set network.nodes 5000     # Set a setting
  illusim config set batch.fractions 0.1,0.2,0.3`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				return json.NewEncoder(out).Encode(cfg)
			}

			fmt.Fprintln(out, "Configuration (~/.illusim/config.yaml):")
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Network Settings:")
			fmt.Fprintf(out, "  network.nodes:            %d\n", cfg.Network.Nodes)
			fmt.Fprintf(out, "  network.edges_per_node:   %d\n", cfg.Network.EdgesPerNode)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Opinion Settings:")
			fmt.Fprintf(out, "  opinion.fraction:         %.2f\n", cfg.Opinion.Fraction)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Diffusion Settings:")
			fmt.Fprintf(out, "  diffusion.rule:           %s\n", valueOrDefault(cfg.Diffusion.Rule, "(default)"))
			fmt.Fprintf(out, "  diffusion.phi:            %.2f\n", cfg.Diffusion.Phi)
			fmt.Fprintf(out, "  diffusion.max_rounds:     %d\n", cfg.Diffusion.MaxRounds)
			fmt.Fprintf(out, "  diffusion.detect_cycles:  %v\n", cfg.Diffusion.DetectCycles)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Batch Settings:")
			fmt.Fprintf(out, "  batch.trials:             %d\n", cfg.Batch.Trials)
			fmt.Fprintf(out, "  batch.fractions:          %s\n", formatFractions(cfg.Batch.Fractions))
			fmt.Fprintf(out, "  batch.rule:               %s\n", valueOrDefault(cfg.Batch.Rule, "(default)"))
			fmt.Fprintf(out, "  batch.workers:            %d\n", cfg.Batch.Workers)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Logging Settings:")
			fmt.Fprintf(out, "  logging.level:            %s\n", valueOrDefault(cfg.Logging.Level, "(default)"))

			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			value, found := getConfigValue(cfg, key)
			if !found {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"error": "key not found",
						"key":   key,
					})
				} else {
					fmt.Fprintf(out, "Unknown configuration key: %s\n", key)
				}
				return nil
			}

			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			} else {
				fmt.Fprintf(out, "%s = %v\n", key, value)
			}

			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]
			value := args[1]

			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			out := cmd.OutOrStdout()
			if err := setConfigValue(cfg, key, value); err != nil {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"error": err.Error(),
						"key":   key,
					})
				} else {
					fmt.Fprintf(out, "Error: %v\n", err)
				}
				return nil
			}

			// Cross-field constraints (nodes vs edges_per_node) are only
			// checkable on the whole config.
			if err := cfg.Validate(); err != nil {
				if jsonOut {
					json.NewEncoder(out).Encode(map[string]interface{}{
						"error": err.Error(),
						"key":   key,
					})
				} else {
					fmt.Fprintf(out, "Error: %v\n", err)
				}
				return nil
			}

			if err := saveConfig(cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				json.NewEncoder(out).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			} else {
				fmt.Fprintf(out, "Set %s = %s\n", key, value)
			}

			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key.
func getConfigValue(cfg *config.IllusimConfig, key string) (interface{}, bool) {
	switch key {
	case "network.nodes":
		return cfg.Network.Nodes, true
	case "network.edges_per_node":
		return cfg.Network.EdgesPerNode, true
	case "opinion.fraction":
		return cfg.Opinion.Fraction, true
	case "diffusion.rule":
		return cfg.Diffusion.Rule, true
	case "diffusion.phi":
		return cfg.Diffusion.Phi, true
	case "diffusion.max_rounds":
		return cfg.Diffusion.MaxRounds, true
	case "diffusion.detect_cycles":
		return cfg.Diffusion.DetectCycles, true
	case "batch.trials":
		return cfg.Batch.Trials, true
	case "batch.fractions":
		return formatFractions(cfg.Batch.Fractions), true
	case "batch.rule":
		return cfg.Batch.Rule, true
	case "batch.workers":
		return cfg.Batch.Workers, true
	case "logging.level":
		return cfg.Logging.Level, true
	default:
		return nil, false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
func setConfigValue(cfg *config.IllusimConfig, key, value string) error {
	switch key {
	case "network.nodes":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid node count: %s", value)
		}
		cfg.Network.Nodes = n
	case "network.edges_per_node":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid edge count: %s", value)
		}
		cfg.Network.EdgesPerNode = n
	case "opinion.fraction":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid fraction: %s (must be a number between 0 and 1)", value)
		}
		cfg.Opinion.Fraction = f
	case "diffusion.rule":
		cfg.Diffusion.Rule = value
	case "diffusion.phi":
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid phi: %s (must be a number between 0 and 1)", value)
		}
		cfg.Diffusion.Phi = f
	case "diffusion.max_rounds":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid round cap: %s", value)
		}
		cfg.Diffusion.MaxRounds = n
	case "diffusion.detect_cycles":
		cfg.Diffusion.DetectCycles = value == "true" || value == "1"
	case "batch.trials":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid trial count: %s", value)
		}
		cfg.Batch.Trials = n
	case "batch.fractions":
		fractions, err := parseFractions(value)
		if err != nil {
			return err
		}
		cfg.Batch.Fractions = fractions
	case "batch.rule":
		cfg.Batch.Rule = value
	case "batch.workers":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid worker count: %s", value)
		}
		cfg.Batch.Workers = n
	case "logging.level":
		cfg.Logging.Level = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	return nil
}

// parseFractions parses a comma-separated fraction list like "0.1,0.3,0.4".
func parseFractions(value string) ([]float64, error) {
	parts := strings.Split(value, ",")
	fractions := make([]float64, 0, len(parts))
	for _, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid fraction %q (expect comma-separated numbers)", p)
		}
		fractions = append(fractions, f)
	}
	return fractions, nil
}

// formatFractions renders a fraction list in the form parseFractions accepts.
func formatFractions(fractions []float64) string {
	parts := make([]string, len(fractions))
	for i, f := range fractions {
		parts[i] = strconv.FormatFloat(f, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}

// saveConfig writes the configuration to ~/.illusim/config.yaml.
func saveConfig(cfg *config.IllusimConfig) error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	illusimDir := filepath.Join(homeDir, ".illusim")
	if err := os.MkdirAll(illusimDir, 0700); err != nil {
		return fmt.Errorf("failed to create .illusim directory: %w", err)
	}

	configPath := filepath.Join(illusimDir, "config.yaml")
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// valueOrDefault returns the value if non-empty, otherwise the default.
func valueOrDefault(value, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}
