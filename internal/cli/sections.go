package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/code-digest/internal/digest"
	"github.com/mvp-joe/code-digest/internal/workspace"
)

var (
	disableFlag      []string
	enableFlag       []string
	toggleDirFlag    []string
	sectionsJSONFlag bool
)

// sectionsCmd represents the sections command
var sectionsCmd = &cobra.Command{
	Use:   "sections",
	Short: "List, enable and disable digest sections",
	Long: `Sections lists the stored digest grouped by directory with per-file token
estimates. Disabled files are left out of the composed digest, the graph and
the MCP tools. The selection is stored per project.

--toggle-dir flips a whole directory: when every file in it is disabled they
are all enabled, otherwise they are all disabled.

Examples:
  digest sections
  digest sections --disable src/legacy/Old.tsx
  digest sections --toggle-dir src/stories
`,
	Args: cobra.NoArgs,
	RunE: runSections,
}

func init() {
	rootCmd.AddCommand(sectionsCmd)
	sectionsCmd.Flags().StringSliceVar(&disableFlag, "disable", nil, "file paths to disable")
	sectionsCmd.Flags().StringSliceVar(&enableFlag, "enable", nil, "file paths to enable")
	sectionsCmd.Flags().StringSliceVar(&toggleDirFlag, "toggle-dir", nil, "directories to toggle")
	sectionsCmd.Flags().BoolVar(&sectionsJSONFlag, "json", false, "print sections as JSON")
}

func runSections(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(nil)
	if err != nil {
		return err
	}
	ws, _, err := openWorkspace(root, workspace.Options{})
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx := cmd.Context()
	sel, err := ws.Selection(ctx)
	if err != nil {
		return err
	}

	for _, p := range disableFlag {
		if !sel.IsDisabled(p) {
			sel.TogglePath(p)
		}
	}
	for _, p := range enableFlag {
		if sel.IsDisabled(p) {
			sel.TogglePath(p)
		}
	}
	for _, dir := range toggleDirFlag {
		sel.ToggleDir(dir)
	}

	if len(disableFlag)+len(enableFlag)+len(toggleDirFlag) > 0 {
		if err := ws.SaveSelection(ctx, sel); err != nil {
			return fmt.Errorf("failed to save sections: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	if sectionsJSONFlag {
		return encodeJSON(out, sel.Sections())
	}
	printSections(out, sel)
	return nil
}

func printSections(w io.Writer, sel *digest.Selection) {
	for _, section := range sel.Sections() {
		fmt.Fprintf(w, "%s %s\n",
			headerStyle.Render(section.Dir),
			mutedStyle.Render(fmt.Sprintf("%d/%d files, ~%s tokens",
				section.Enabled, len(section.Files), digest.FormatTokenCount(section.Tokens))))
		for _, file := range section.Files {
			mark := addedStyle.Render("[x]")
			if file.Disabled {
				mark = removedStyle.Render("[ ]")
			}
			fmt.Fprintf(w, "  %s %s %s\n", mark, file.Path,
				mutedStyle.Render("~"+digest.FormatTokenCount(file.Tokens)))
		}
	}

	composed := sel.Compose()
	fmt.Fprintf(w, "\n%s\n", successStyle.Render(fmt.Sprintf("%d files, ~%s tokens enabled",
		composed.FileCount, digest.FormatTokenCount(composed.TokenEstimate))))
}
