package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/code-digest/internal/digest"
	mcputils "github.com/mvp-joe/code-digest/internal/mcp-utils"
	"github.com/mvp-joe/code-digest/internal/workspace"
)

// SectionsRequest represents the digest_sections tool parameters.
type SectionsRequest struct {
	Disable   []string `json:"disable"`
	Enable    []string `json:"enable"`
	ToggleDir []string `json:"toggle_dir"`
}

// SectionsResponse lists the sections after applying the request.
type SectionsResponse struct {
	Sections      []digest.Section `json:"sections"`
	Disabled      []string         `json:"disabled"`
	FileCount     int              `json:"file_count"`
	TokenEstimate int              `json:"token_estimate"`
	Changed       bool             `json:"changed"`
}

// AddDigestSectionsTool registers the digest_sections tool with an MCP server.
func AddDigestSectionsTool(s *server.MCPServer, project Project) {
	tool := mcp.NewTool(
		"digest_sections",
		mcp.WithDescription(`List the digest sections grouped by directory with per-file token estimates, and enable or disable them. Disabled sections are left out of digest_compact and digest_graph. Called without arguments it only lists.

toggle_dir flips a whole directory: when every file in it is disabled they are all enabled, otherwise they are all disabled.`),
		mcp.WithArray("disable",
			mcp.WithStringItems(),
			mcp.Description("File paths to disable (e.g. ['src/legacy/Old.tsx'])")),
		mcp.WithArray("enable",
			mcp.WithStringItems(),
			mcp.Description("File paths to enable")),
		mcp.WithArray("toggle_dir",
			mcp.WithStringItems(),
			mcp.Description("Directories to toggle (e.g. ['src/components'])")),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithIdempotentHintAnnotation(false),
	)

	s.AddTool(tool, createDigestSectionsHandler(project))
}

func createDigestSectionsHandler(project Project) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req SectionsRequest
		if err := mcputils.CoerceBindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		sel, err := project.Selection(ctx)
		if errors.Is(err, workspace.ErrNoDigest) {
			return mcp.NewToolResultError("no digest stored; call digest_compact first"), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load sections: %w", err)
		}

		changed := applySectionChanges(sel, req)
		if changed {
			if err := project.SaveSelection(ctx, sel); err != nil {
				return nil, fmt.Errorf("failed to save sections: %w", err)
			}
		}

		composed := sel.Compose()
		return marshalToolResponse(SectionsResponse{
			Sections:      sel.Sections(),
			Disabled:      nonNil(sel.Disabled()),
			FileCount:     composed.FileCount,
			TokenEstimate: composed.TokenEstimate,
			Changed:       changed,
		})
	}
}

// applySectionChanges applies disables, then enables, then directory
// toggles. Returns whether the disabled set changed.
func applySectionChanges(sel *digest.Selection, req SectionsRequest) bool {
	before := digest.NewPathSet(sel.Disabled()...)

	for _, p := range req.Disable {
		if !sel.IsDisabled(p) {
			sel.TogglePath(p)
		}
	}
	for _, p := range req.Enable {
		if sel.IsDisabled(p) {
			sel.TogglePath(p)
		}
	}
	for _, dir := range req.ToggleDir {
		sel.ToggleDir(dir)
	}

	after := sel.Disabled()
	if len(after) != len(before) {
		return true
	}
	for _, p := range after {
		if !before.Has(p) {
			return true
		}
	}
	return false
}
