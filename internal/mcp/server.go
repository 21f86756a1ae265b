// Package mcp exposes the dynamic CRUD engine over the Model Context
// Protocol so AI agents can discover allow-listed tables, inspect their
// schemas, and execute audited mutations.
package mcp

import (
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zlovtnik/graphqlScala-sub003/internal/engine"
	"github.com/zlovtnik/graphqlScala-sub003/internal/reader"
)

// MCPServer wraps the mcp-go server with ssf tool registrations. Tool calls
// are attributed to a fixed actor in the audit trail.
type MCPServer struct {
	engine *engine.Engine
	reader *reader.Reader
	actor  string
	logger *slog.Logger
	server *server.MCPServer
}

// NewMCPServer creates an MCPServer pre-loaded with the ssf tools. The
// returned server is ready to serve over stdio or HTTP.
func NewMCPServer(eng *engine.Engine, rd *reader.Reader, actor string, logger *slog.Logger) *MCPServer {
	if actor == "" {
		actor = "mcp"
	}
	s := &MCPServer{
		engine: eng,
		reader: rd,
		actor:  actor,
		logger: logger,
	}

	mcpServer := server.NewMCPServer(
		"ssf Dynamic CRUD",
		"0.1.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.server = mcpServer
	return s
}

// Server returns the underlying mcp-go MCPServer instance. Useful for
// advanced configuration or testing.
func (s *MCPServer) Server() *server.MCPServer {
	return s.server
}

// ServeStdio starts the MCP server in stdio mode, the integration path for
// MCP clients that launch the server as a subprocess.
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server in stdio mode")
	return server.ServeStdio(s.server)
}

// ServeHTTP starts the MCP server in Streamable HTTP mode, listening on the
// given address (e.g. ":3001").
func (s *MCPServer) ServeHTTP(addr string) error {
	httpServer := server.NewStreamableHTTPServer(s.server)
	s.logger.Info("MCP HTTP server starting", "addr", addr)
	return httpServer.Start(addr)
}

func readOnlyAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(true),
	}
}

func mutatingAnnotation() mcp.ToolAnnotation {
	return mcp.ToolAnnotation{
		ReadOnlyHint: boolPtr(false),
	}
}

func boolPtr(b bool) *bool {
	return &b
}
