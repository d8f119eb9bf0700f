package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/code-digest/internal/workspace"
)

var diffSaveFlag bool

// diffCmd represents the diff command
var diffCmd = &cobra.Command{
	Use:   "diff [path]",
	Short: "Show how the digest changed since the last compaction",
	Long: `Diff compacts the project again and prints a unified diff between the stored
digest and the fresh one. Nothing is stored unless --save is given.

Examples:
  digest diff
  digest diff --save
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDiff,
}

func init() {
	rootCmd.AddCommand(diffCmd)
	diffCmd.Flags().BoolVar(&diffSaveFlag, "save", false, "store the fresh digest after diffing")
}

func runDiff(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	root, err := projectRoot(args)
	if err != nil {
		return err
	}
	ws, _, err := openWorkspace(root, workspace.Options{})
	if err != nil {
		return err
	}
	defer ws.Close()

	var previous, previousRun string
	latest, err := ws.Latest(ctx)
	switch {
	case err == nil:
		previous, previousRun = latest.Output, latest.RunID
	case errors.Is(err, workspace.ErrNoDigest):
		previousRun = "none"
	default:
		return err
	}

	result, err := ws.Preview(ctx)
	if err != nil {
		return fmt.Errorf("compaction failed: %w", err)
	}
	var current, currentRun string
	if result != nil {
		current, currentRun = result.Output, result.RunID
	}

	text, err := unifiedDiff(previous, current, "digest@"+previousRun, "digest@"+currentRun)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if text == "" {
		fmt.Fprintln(out, mutedStyle.Render("No changes"))
	} else {
		printDiff(out, text)
	}

	if diffSaveFlag && result != nil {
		return ws.Save(ctx, result)
	}
	return nil
}

// unifiedDiff returns the unified diff of a and b with three lines of
// context, or "" when they are equal.
func unifiedDiff(a, b, fromFile, toFile string) (string, error) {
	if a == b {
		return "", nil
	}
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        splitLinesKeepNL(a),
		B:        splitLinesKeepNL(b),
		FromFile: fromFile,
		ToFile:   toFile,
		Context:  3,
	})
}

// splitLinesKeepNL splits s into lines, each keeping its trailing newline.
// A final line without one gets one so difflib hunks stay well formed.
func splitLinesKeepNL(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if last := lines[len(lines)-1]; !strings.HasSuffix(last, "\n") {
		lines[len(lines)-1] = last + "\n"
	}
	return lines
}

func printDiff(w io.Writer, text string) {
	for _, line := range strings.SplitAfter(text, "\n") {
		if line == "" {
			continue
		}
		body := strings.TrimSuffix(line, "\n")
		switch {
		case strings.HasPrefix(body, "+++"), strings.HasPrefix(body, "---"), strings.HasPrefix(body, "@@"):
			fmt.Fprintln(w, headerStyle.Render(body))
		case strings.HasPrefix(body, "+"):
			fmt.Fprintln(w, addedStyle.Render(body))
		case strings.HasPrefix(body, "-"):
			fmt.Fprintln(w, removedStyle.Render(body))
		default:
			fmt.Fprintln(w, body)
		}
	}
}
