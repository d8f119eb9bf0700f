package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/code-digest/internal/digest"
	"github.com/mvp-joe/code-digest/internal/extract"
)

var (
	extractFormatFlag     string
	extractSignaturesFlag bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract <file>",
	Short: "Print the structural skeleton of one file",
	Long: `Extract runs the extractor for a single file regardless of its length and
prints the result. Useful for checking what a file contributes to the digest.

Formats:
  labeled   Imports:, Components:, Functions:, ... (default)
  compact   imports:, fn:, const:, ...
  json      the raw skeleton

Examples:
  digest extract src/App.tsx
  digest extract src/api.py --format json
  digest extract src/lib.rs --signatures
`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)
	extractCmd.Flags().StringVar(&extractFormatFlag, "format", string(digest.StyleLabeled), "output format: labeled, compact or json")
	extractCmd.Flags().BoolVar(&extractSignaturesFlag, "signatures", false, "print declaration signatures instead of the skeleton")
}

func runExtract(cmd *cobra.Command, args []string) error {
	path, err := filepath.Abs(args[0])
	if err != nil {
		return err
	}
	source, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	root, err := projectRoot(nil)
	if err != nil {
		return err
	}
	cfg, global, err := loadConfig(root)
	if err != nil {
		return err
	}
	registry := extract.NewRegistry(cfg.RegistryOptions(global)...)
	defer registry.Close()

	if !registry.Supports(path) {
		return fmt.Errorf("%w: %s", extract.ErrUnsupported, args[0])
	}

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if extractSignaturesFlag {
		sigs, err := registry.Signatures(ctx, path, source)
		if err != nil {
			return fmt.Errorf("failed to extract %s: %w", args[0], err)
		}
		if extractFormatFlag == "json" {
			return encodeJSON(out, sigs)
		}
		fmt.Fprintln(out, digest.FormatSignatures(sigs))
		return nil
	}

	skeleton, err := registry.Skeleton(ctx, path, source)
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", args[0], err)
	}
	if extractFormatFlag == "json" {
		return encodeJSON(out, skeleton)
	}

	style, err := digest.ParseStyle(extractFormatFlag)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, digest.FormatSkeleton(skeleton, style))
	return nil
}
