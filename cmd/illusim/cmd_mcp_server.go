package main

import (
	"fmt"

	"github.com/nvandessel/illusim/internal/mcp"
	"github.com/spf13/cobra"
)

func newMCPServerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp-server",
		Short: "Run the MCP server on stdio",
		Long: `Run an MCP (Model Context Protocol) server exposing illusim's
generation, simulation, and batch tools over stdio, so AI agents can
drive experiments and read saved results.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dataDir, _ := cmd.Flags().GetString("data-dir")

			srv, err := mcp.NewServer(&mcp.Config{
				Name:    "illusim",
				Version: version,
				DataDir: dataDir,
			})
			if err != nil {
				return fmt.Errorf("create MCP server: %w", err)
			}

			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().String("data-dir", "", "Data directory (default ~/.illusim)")

	return cmd
}
