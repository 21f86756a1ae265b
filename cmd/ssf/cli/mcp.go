package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	smcp "github.com/zlovtnik/graphqlScala-sub003/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var (
		transport string
		port      int
		actor     string
	)

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start the MCP server for AI agents",
		Long: `Start a Model Context Protocol (MCP) server that exposes the dynamic CRUD
engine as tools for AI agents. Supports stdio (default) and HTTP transports.

In stdio mode, the MCP server communicates over stdin/stdout using JSON-RPC,
suitable for MCP clients that launch the server as a subprocess.`,
		Example: `  ssf mcp                               # stdio mode
  ssf mcp --transport http --port 3001  # Streamable HTTP mode`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMCP(transport, port, actor)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport mode: stdio or http")
	cmd.Flags().IntVar(&port, "port", 3001, "HTTP port (only used with --transport http)")
	cmd.Flags().StringVar(&actor, "actor", "mcp", "Actor recorded in the audit trail for tool calls")

	return cmd
}

func runMCP(transport string, port int, actor string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, false)

	st, err := buildStack(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	mcpServer := smcp.NewMCPServer(st.engine, st.reader, actor, logger)

	switch transport {
	case "stdio":
		return mcpServer.ServeStdio()
	case "http":
		return mcpServer.ServeHTTP(fmt.Sprintf(":%d", port))
	default:
		return fmt.Errorf("unknown transport %q (use stdio or http)", transport)
	}
}
