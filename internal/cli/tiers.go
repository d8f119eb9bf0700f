package cli

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/code-digest/internal/compact"
	"github.com/mvp-joe/code-digest/internal/digest"
	"github.com/mvp-joe/code-digest/internal/extract"
)

var tiersFilesFlag bool

// tiersCmd represents the tiers command
var tiersCmd = &cobra.Command{
	Use:   "tiers [path]",
	Short: "Show how the project's files fall into detail tiers",
	Long: `Tiers lists how many eligible files land in each detail tier and how many
lines and raw tokens they hold, without extracting anything. Use it to see
where a digest's budget goes before compacting.

Examples:
  digest tiers
  digest tiers --files
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTiers,
}

func init() {
	rootCmd.AddCommand(tiersCmd)
	tiersCmd.Flags().BoolVar(&tiersFilesFlag, "files", false, "list every file with its tier")
}

// tierStats accumulates the files of one tier.
type tierStats struct {
	Files  int
	Lines  int
	Tokens int
}

// tierFile is one measured file.
type tierFile struct {
	Path  string
	Lines int
	Tier  digest.Tier
}

func runTiers(cmd *cobra.Command, args []string) error {
	root, err := projectRoot(args)
	if err != nil {
		return err
	}
	cfg, global, err := loadConfig(root)
	if err != nil {
		return err
	}

	registry := extract.NewRegistry(cfg.RegistryOptions(global)...)
	defer registry.Close()

	filter, err := compact.NewFilter(cfg.Compact.Ignore, registry.Supports)
	if err != nil {
		return fmt.Errorf("invalid ignore pattern: %w", err)
	}

	entries, err := compact.Walk(root)
	if err != nil {
		return fmt.Errorf("failed to list files: %w", err)
	}

	stats := map[digest.Tier]*tierStats{
		digest.TierPathOnly:   {},
		digest.TierSignatures: {},
		digest.TierSkeleton:   {},
	}
	var files []tierFile
	for _, entry := range filter.Apply(root, entries) {
		data, err := os.ReadFile(entry.Path)
		if err != nil {
			log.Printf("Skipped %s: %v", entry.Path, err)
			continue
		}
		content := string(data)
		lines := digest.LineCount(content)
		tier := digest.TierFor(lines)

		s := stats[tier]
		s.Files++
		s.Lines += lines
		s.Tokens += digest.EstimateTokens(content)

		rel, err := filepath.Rel(root, entry.Path)
		if err != nil {
			rel = entry.Path
		}
		files = append(files, tierFile{Path: filepath.ToSlash(rel), Lines: lines, Tier: tier})
	}

	out := cmd.OutOrStdout()
	printTiers(out, stats)
	if tiersFilesFlag {
		printTierFiles(out, files)
	}
	return nil
}

func printTiers(w io.Writer, stats map[digest.Tier]*tierStats) {
	fmt.Fprintln(w, headerStyle.Render("Detail tiers"))
	for _, tier := range []digest.Tier{digest.TierPathOnly, digest.TierSignatures, digest.TierSkeleton} {
		s := stats[tier]
		printField(w, tier.String(), fmt.Sprintf("%s files, %s lines, ~%s tokens raw",
			formatNumber(s.Files), formatNumber(s.Lines), digest.FormatTokenCount(s.Tokens)))
	}
}

func printTierFiles(w io.Writer, files []tierFile) {
	sort.Slice(files, func(i, j int) bool {
		if files[i].Lines != files[j].Lines {
			return files[i].Lines > files[j].Lines
		}
		return files[i].Path < files[j].Path
	})
	fmt.Fprintln(w)
	for _, f := range files {
		fmt.Fprintf(w, "  %-10s %6d  %s\n", f.Tier, f.Lines, f.Path)
	}
}
