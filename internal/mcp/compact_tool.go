package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/mvp-joe/code-digest/internal/compact"
	"github.com/mvp-joe/code-digest/internal/digest"
	mcputils "github.com/mvp-joe/code-digest/internal/mcp-utils"
	"github.com/mvp-joe/code-digest/internal/workspace"
)

// CompactRequest represents the digest_compact tool parameters.
type CompactRequest struct {
	// Refresh recompacts the project before answering.
	Refresh bool `json:"refresh"`
	// IncludeDisabled returns the full digest, ignoring disabled sections.
	IncludeDisabled bool `json:"include_disabled"`
}

// CompactResponse is the digest_compact result.
type CompactResponse struct {
	Digest        string   `json:"digest"`
	FileCount     int      `json:"file_count"`
	TokenEstimate int      `json:"token_estimate"`
	Disabled      []string `json:"disabled,omitempty"`
	// Run is set when this call compacted the project.
	Run *RunSummary `json:"run,omitempty"`
}

// RunSummary describes a compaction run.
type RunSummary struct {
	RunID            string             `json:"run_id"`
	Files            int                `json:"files"`
	Skipped          []string           `json:"skipped,omitempty"`
	OriginalSize     int                `json:"original_size"`
	CompressionRatio float64            `json:"compression_ratio"`
	Tiers            compact.TierCounts `json:"tiers"`
	DurationMs       int64              `json:"duration_ms"`
}

// AddDigestCompactTool registers the digest_compact tool with an MCP server.
func AddDigestCompactTool(s *server.MCPServer, project Project) {
	tool := mcp.NewTool(
		"digest_compact",
		mcp.WithDescription(`Return a token-efficient digest of the project: one "## path" section per source file, sized by file length (path only, signatures, or a structural skeleton of imports, exports, components, functions, hooks and types).

The stored digest is returned with disabled sections removed. The project is compacted on first use or when refresh is true.`),
		mcp.WithBoolean("refresh",
			mcp.Description("Recompact the project before answering (default: false)")),
		mcp.WithBoolean("include_disabled",
			mcp.Description("Include sections disabled with digest_sections (default: false)")),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createDigestCompactHandler(project))
}

func createDigestCompactHandler(project Project) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var req CompactRequest
		if err := mcputils.CoerceBindArguments(request, &req); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Invalid arguments: %v", err)), nil
		}

		var resp CompactResponse
		if req.Refresh {
			result, errResult := runCompaction(ctx, project)
			if errResult != nil {
				return errResult, nil
			}
			// An empty project is not stored, so the old digest would be stale.
			if result == nil {
				return mcp.NewToolResultError("no supported source files found; the stored digest was not updated"), nil
			}
			resp.Run = summarize(result)
		}

		sel, err := project.Selection(ctx)
		if errors.Is(err, workspace.ErrNoDigest) && !req.Refresh {
			result, errResult := runCompaction(ctx, project)
			if errResult != nil {
				return errResult, nil
			}
			resp.Run = summarize(result)
			sel, err = project.Selection(ctx)
		}
		if errors.Is(err, workspace.ErrNoDigest) {
			return mcp.NewToolResultError("no supported source files found"), nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load digest: %w", err)
		}

		composed := sel.Compose()
		if req.IncludeDisabled {
			composed = digest.Compose(digest.Join(sel.Fragments()), nil)
		}
		resp.Digest = composed.Digest
		resp.FileCount = composed.FileCount
		resp.TokenEstimate = composed.TokenEstimate
		resp.Disabled = sel.Disabled()

		return marshalToolResponse(resp)
	}
}

// runCompaction compacts the project, mapping expected failures to tool errors.
func runCompaction(ctx context.Context, project Project) (*compact.Result, *mcp.CallToolResult) {
	result, err := project.Compact(ctx)
	switch {
	case errors.Is(err, compact.ErrBusy):
		return nil, mcp.NewToolResultError("compaction already running; try again shortly")
	case err != nil:
		return nil, mcp.NewToolResultError(fmt.Sprintf("compaction failed: %v", err))
	}
	return result, nil
}

func summarize(result *compact.Result) *RunSummary {
	if result == nil {
		return nil
	}
	return &RunSummary{
		RunID:            result.RunID,
		Files:            result.Files,
		Skipped:          result.Skipped,
		OriginalSize:     result.OriginalSize,
		CompressionRatio: result.CompressionRatio(),
		Tiers:            result.Tiers,
		DurationMs:       result.Duration.Milliseconds(),
	}
}
