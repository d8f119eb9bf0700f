package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/code-digest/internal/depgraph"
	mcputils "github.com/mvp-joe/code-digest/internal/mcp-utils"
	"github.com/mvp-joe/code-digest/internal/workspace"
)

// Graph tool operations.
const (
	OperationSummary      = "summary"
	OperationNode         = "node"
	OperationDependencies = "dependencies"
	OperationDependents   = "dependents"
	OperationCycles       = "cycles"
	OperationDrilling     = "drilling"
)

var graphOperations = []string{
	OperationSummary,
	OperationNode,
	OperationDependencies,
	OperationDependents,
	OperationCycles,
	OperationDrilling,
}

// GraphRequest represents the digest_graph tool parameters.
type GraphRequest struct {
	Operation string `json:"operation"`
	Target    string `json:"target"`
}

// NodeRelations is the dependencies/dependents operation result.
type NodeRelations struct {
	Target string   `json:"target"`
	Files  []string `json:"files"`
}

// AddDigestGraphTool registers the digest_graph tool with an MCP server.
func AddDigestGraphTool(s *server.MCPServer, project Project) {
	tool := mcp.NewTool(
		"digest_graph",
		mcp.WithDescription(`Query the file dependency graph derived from the stored digest (disabled sections excluded). Nodes are files keyed by path; edges are resolved relative imports.

Operations:
- summary: all nodes, edges, directory groups, cycles and drilling chains
- node: facts of one file (components, functions, hooks, constants, props)
- dependencies: files the target imports
- dependents: files importing the target
- cycles: import cycles
- drilling: props received and passed on through two or more hops`),
		mcp.WithString("operation",
			mcp.Required(),
			mcp.Enum(graphOperations...),
			mcp.Description("Query type")),
		mcp.WithString("target",
			mcp.Description("File path for node, dependencies and dependents (e.g. 'src/App.tsx')")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createDigestGraphHandler(project))
}

func createDigestGraphHandler(project Project) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req GraphRequest
		if err := mcputils.CoerceBindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}
		if req.Operation == "" {
			return mcp.NewToolResultError("operation parameter is required"), nil
		}

		g, err := project.Graph(ctx)
		if errors.Is(err, workspace.ErrNoDigest) {
			return mcp.NewToolResultError("no digest stored; call digest_compact first"), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to build graph: %w", err)
		}

		return queryGraph(g, req)
	}
}

func queryGraph(g *depgraph.Graph, req GraphRequest) (*mcp.CallToolResult, error) {
	needsTarget := req.Operation == OperationNode ||
		req.Operation == OperationDependencies ||
		req.Operation == OperationDependents
	if needsTarget {
		if req.Target == "" {
			return mcp.NewToolResultError(fmt.Sprintf("target parameter is required for %s", req.Operation)), nil
		}
		if _, ok := g.Node(req.Target); !ok {
			return mcp.NewToolResultError(fmt.Sprintf("file not in graph: %s", req.Target)), nil
		}
	}

	switch req.Operation {
	case OperationSummary:
		return marshalToolResponse(g)
	case OperationNode:
		node, _ := g.Node(req.Target)
		return marshalToolResponse(node)
	case OperationDependencies:
		return marshalToolResponse(NodeRelations{Target: req.Target, Files: nonNil(g.Dependencies(req.Target))})
	case OperationDependents:
		return marshalToolResponse(NodeRelations{Target: req.Target, Files: nonNil(g.Dependents(req.Target))})
	case OperationCycles:
		cycles := g.Cycles
		if cycles == nil {
			cycles = [][]string{}
		}
		return marshalToolResponse(cycles)
	case OperationDrilling:
		chains := g.Drilling
		if chains == nil {
			chains = []depgraph.DrillChain{}
		}
		return marshalToolResponse(chains)
	default:
		return mcp.NewToolResultError(fmt.Sprintf("invalid operation: %s (must be one of: %v)", req.Operation, graphOperations)), nil
	}
}
