package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/code-digest/internal/depgraph"
	"github.com/mvp-joe/code-digest/internal/workspace"
)

var (
	graphJSONFlag       bool
	graphDepsFlag       string
	graphDependentsFlag string
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Show the file dependency graph of the stored digest",
	Long: `Graph builds the file dependency graph from the stored digest, leaving out
disabled sections. Nodes are files; edges are resolved relative imports.
Import cycles and props drilled through two or more components are listed.

Examples:
  # Summary of groups, edges, cycles and drilling chains
  digest graph

  # Full graph as JSON
  digest graph --json

  # What does App.tsx import, and who imports Button.tsx?
  digest graph --deps src/App.tsx
  digest graph --dependents src/components/Button.tsx
`,
	Args: cobra.NoArgs,
	RunE: runGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().BoolVar(&graphJSONFlag, "json", false, "print the graph as JSON")
	graphCmd.Flags().StringVar(&graphDepsFlag, "deps", "", "list the files this file imports")
	graphCmd.Flags().StringVar(&graphDependentsFlag, "dependents", "", "list the files importing this file")
}

func runGraph(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(nil)
	if err != nil {
		return err
	}

	opts := workspace.Options{}
	if !graphJSONFlag {
		opts.GraphProgress = NewCLIProgressReporter(cmd.ErrOrStderr(), quietFlag)
	}
	ws, _, err := openWorkspace(root, opts)
	if err != nil {
		return err
	}
	defer ws.Close()

	g, err := ws.Graph(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case graphDepsFlag != "":
		return printRelations(out, g, graphDepsFlag, g.Dependencies)
	case graphDependentsFlag != "":
		return printRelations(out, g, graphDependentsFlag, g.Dependents)
	case graphJSONFlag:
		return encodeJSON(out, g)
	default:
		printGraph(out, g)
		return nil
	}
}

func printRelations(w io.Writer, g *depgraph.Graph, id string, query func(string) []string) error {
	if _, ok := g.Node(id); !ok {
		return fmt.Errorf("file not in graph: %s", id)
	}
	for _, file := range query(id) {
		fmt.Fprintln(w, file)
	}
	return nil
}

func printGraph(w io.Writer, g *depgraph.Graph) {
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d files, %d imports, %d groups",
		g.Metadata.NodeCount, g.Metadata.EdgeCount, g.Metadata.GroupCount)))

	for _, group := range g.Groups {
		label := group.Label
		if label == "" {
			label = group.Dir + " (root)"
		}
		fmt.Fprintf(w, "\n%s\n", headerStyle.Render(label))
		for _, id := range group.NodeIDs {
			deps := g.Dependencies(id)
			if len(deps) == 0 {
				fmt.Fprintf(w, "  %s\n", id)
				continue
			}
			fmt.Fprintf(w, "  %s %s\n", id, mutedStyle.Render("→ "+strings.Join(deps, ", ")))
		}
	}

	if len(g.Cycles) > 0 {
		fmt.Fprintf(w, "\n%s\n", errorStyle.Render("Import cycles"))
		for _, cycle := range g.Cycles {
			fmt.Fprintf(w, "  %s\n", strings.Join(cycle, " ↔ "))
		}
	}

	if len(g.Drilling) > 0 {
		fmt.Fprintf(w, "\n%s\n", headerStyle.Render("Prop drilling"))
		for _, chain := range g.Drilling {
			fmt.Fprintf(w, "  %s: %s\n", chain.Prop, strings.Join(chain.Path, " → "))
		}
	}
}
