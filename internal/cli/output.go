package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mvp-joe/code-digest/internal/compact"
	"github.com/mvp-joe/code-digest/internal/digest"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("green")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("red")).Bold(true)
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("cyan")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Width(16)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("green"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("red"))
)

// printResultSummary writes the outcome of a compaction run.
func printResultSummary(w io.Writer, result *compact.Result) {
	fmt.Fprintln(w, successStyle.Render(fmt.Sprintf("✓ Compacted %s files in %.1fs",
		formatNumber(result.Files), result.Duration.Seconds())))
	printField(w, "Run", result.RunID)
	printField(w, "Original", formatNumber(result.OriginalSize)+" chars")
	printField(w, "Digest", fmt.Sprintf("%s chars (%.1f%%)",
		formatNumber(len([]rune(result.Output))), 100*result.CompressionRatio()))
	printField(w, "Tokens", "~"+digest.FormatTokenCount(result.TokenEstimate))
	printField(w, "Tiers", fmt.Sprintf("%d skeleton, %d signatures, %d path-only",
		result.Tiers.Skeleton, result.Tiers.Signatures, result.Tiers.PathOnly))
	if len(result.Skipped) > 0 {
		printField(w, "Skipped", errorStyle.Render(strings.Join(result.Skipped, ", ")))
	}
}

func printField(w io.Writer, label, value string) {
	fmt.Fprintln(w, labelStyle.Render("  "+label)+value)
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	str := fmt.Sprintf("%d", n)
	var result strings.Builder
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result.WriteByte(',')
		}
		result.WriteRune(c)
	}
	return result.String()
}

// encodeJSON writes v as indented JSON.
func encodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
