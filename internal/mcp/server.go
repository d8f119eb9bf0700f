package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/code-digest/internal/compact"
	"github.com/mvp-joe/code-digest/internal/depgraph"
	"github.com/mvp-joe/code-digest/internal/digest"
	"github.com/mvp-joe/code-digest/internal/workspace"
)

// Project is the part of a workspace the tools operate on.
// *workspace.Workspace implements it.
type Project interface {
	Compact(ctx context.Context) (*compact.Result, error)
	Selection(ctx context.Context) (*digest.Selection, error)
	SaveSelection(ctx context.Context, sel *digest.Selection) error
	Graph(ctx context.Context) (*depgraph.Graph, error)
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Name    string
	Version string
	// Watch recompacts on file changes while serving.
	Watch    bool
	Debounce time.Duration
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Name:     "digest-mcp",
		Version:  "1.0.0",
		Watch:    true,
		Debounce: compact.DefaultDebounce,
	}
}

// Server manages the MCP server lifecycle.
type Server struct {
	config  *ServerConfig
	ws      *workspace.Workspace
	watcher *compact.Watcher
	mcp     *server.MCPServer
}

// NewServer creates an MCP server exposing the digest tools of ws.
func NewServer(ws *workspace.Workspace, config *ServerConfig) (*Server, error) {
	if ws == nil {
		return nil, fmt.Errorf("workspace is required")
	}
	if config == nil {
		config = DefaultServerConfig()
	}

	mcpServer := server.NewMCPServer(
		config.Name,
		config.Version,
		server.WithToolCapabilities(true),
	)
	AddTools(mcpServer, ws)

	s := &Server{config: config, ws: ws, mcp: mcpServer}

	if config.Watch {
		watcher, err := compact.NewWatcher(ws.Engine(), ws.Root(), config.Debounce, s.onRecompact)
		if err != nil {
			return nil, fmt.Errorf("failed to create file watcher: %w", err)
		}
		s.watcher = watcher
	}

	return s, nil
}

// AddTools registers every digest tool with an MCP server.
func AddTools(s *server.MCPServer, project Project) {
	AddDigestCompactTool(s, project)
	AddDigestGraphTool(s, project)
	AddDigestSectionsTool(s, project)
}

func (s *Server) onRecompact(result *compact.Result, err error) {
	if err != nil {
		log.Printf("Warning: recompaction failed: %v", err)
		return
	}
	if result == nil {
		return
	}
	if err := s.ws.Save(context.Background(), result); err != nil {
		log.Printf("Warning: failed to store recompacted digest: %v", err)
	}
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if s.watcher != nil {
		s.watcher.Start(ctx)
		defer s.watcher.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops the watcher.
func (s *Server) Close() error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	return nil
}
