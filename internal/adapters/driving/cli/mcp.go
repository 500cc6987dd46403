package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/notewise/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search the
vault, read notes and ask for title and tag suggestions.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Examples:
  # Stdio mode (default)
  notewise mcp serve --vault ~/notes

  # HTTP mode (for MCP Inspector, remote access)
  notewise mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "notewise": {
        "command": "/path/to/notewise",
        "args": ["mcp", "serve", "--vault", "/path/to/notes"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

// newMCPServer builds the server from the installed services.
func newMCPServer(s *Services) (*mcp.Server, error) {
	return mcp.NewServer(&mcp.Ports{
		Query:  s.Query,
		Vault:  s.Vault,
		Titles: s.Titles,
		Tags:   s.Tags,
	})
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	s, err := services()
	if err != nil {
		return err
	}
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := newMCPServer(s)
	if err != nil {
		return err
	}

	// Keep embeddings current while clients query.
	s.Regenerator.Start(cmd.Context())
	defer s.Regenerator.Stop()
	unsubscribe := s.Vault.OnContentChanged(s.Regenerator.HandleChange)
	defer unsubscribe()

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
