package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/code-digest/internal/compact"
	"github.com/mvp-joe/code-digest/internal/mcp"
	"github.com/mvp-joe/code-digest/internal/workspace"
)

var noWatchFlag bool

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for digest tools",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can read
the project digest.

The MCP server:
- Compacts the project on first use and stores the digest
- Recompacts when files change (unless --no-watch)
- Provides digest_compact, digest_sections and digest_graph tools
- Communicates via stdio (standard MCP transport)

Example:
  digest mcp`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().BoolVar(&noWatchFlag, "no-watch", false, "do not recompact on file changes")
}

func runMCP(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(nil)
	if err != nil {
		return err
	}

	// Progress bars would corrupt the stdio transport.
	ws, _, err := openWorkspace(root, workspace.Options{
		Progress: &compact.NoOpProgressReporter{},
	})
	if err != nil {
		return err
	}
	defer ws.Close()

	fmt.Fprintf(os.Stderr, "Digest MCP Server\n")
	fmt.Fprintf(os.Stderr, "Project Root: %s\n\n", ws.Root())

	config := mcp.DefaultServerConfig()
	config.Version = Version
	config.Watch = !noWatchFlag

	server, err := mcp.NewServer(ws, config)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	defer server.Close()

	return server.Serve(cmd.Context())
}
