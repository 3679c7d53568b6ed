// Package mcp provides an MCP (Model Context Protocol) server for illusim.
package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/illusim/internal/config"
	"github.com/nvandessel/illusim/internal/ratelimit"
	"github.com/nvandessel/illusim/internal/store"
)

// Server wraps the MCP SDK server and provides illusim-specific functionality.
type Server struct {
	server  *sdk.Server
	store   *store.ResultStore
	cfg     *config.IllusimConfig
	audit   *AuditLogger
	limits  ratelimit.ToolLimiters
	dataDir string
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "illusim")
	Version string // Server version
	DataDir string // Directory for the result database and audit log
}

// NewServer creates a new MCP server with illusim tools.
func NewServer(cfg *Config) (*Server, error) {
	dataDir := cfg.DataDir
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home dir: %w", err)
		}
		dataDir = filepath.Join(home, ".illusim")
	}

	simCfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	resultStore, err := store.Open(filepath.Join(dataDir, "results.db"))
	if err != nil {
		return nil, fmt.Errorf("open result store: %w", err)
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			// Client initialized, ready to serve
		},
	})

	s := &Server{
		server:  mcpServer,
		store:   resultStore,
		cfg:     simCfg,
		audit:   NewAuditLogger(dataDir),
		limits:  ratelimit.NewToolLimiters(),
		dataDir: dataDir,
	}

	if err := s.registerTools(); err != nil {
		resultStore.Close()
		return nil, fmt.Errorf("register tools: %w", err)
	}

	if err := s.registerResources(); err != nil {
		resultStore.Close()
		return nil, fmt.Errorf("register resources: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)

	go func() {
		<-sigChan
		cancel()
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.store.Close()
	s.audit.Close()

	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	err := s.store.Close()
	if aerr := s.audit.Close(); aerr != nil && err == nil {
		err = aerr
	}
	return err
}
