package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/code-digest/internal/compact"
	"github.com/mvp-joe/code-digest/internal/workspace"
)

var (
	watchFlag    bool
	outFlag      string
	printFlag    bool
	debounceFlag time.Duration
)

// compactCmd represents the compact command
var compactCmd = &cobra.Command{
	Use:   "compact [path]",
	Short: "Compact the project into a digest",
	Long: `Compact walks the project, renders every supported source file into one
digest section and stores the result in the project's digest store.

Files under 300 lines appear by path only, files under 800 lines by their
declaration signatures, longer files by a structural skeleton. Sections
disabled with "digest sections" are left out of --out and --print.

Examples:
  # Compact the current directory
  digest compact

  # Write the composed digest to a file
  digest compact --out digest.md

  # Recompact whenever files change
  digest compact --watch
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompact,
}

func init() {
	rootCmd.AddCommand(compactCmd)
	compactCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "watch for file changes and recompact")
	compactCmd.Flags().StringVarP(&outFlag, "out", "o", "", "write the composed digest to this file")
	compactCmd.Flags().BoolVar(&printFlag, "print", false, "print the composed digest to stdout")
	compactCmd.Flags().DurationVar(&debounceFlag, "debounce", compact.DefaultDebounce, "wait for changes to settle this long before recompacting")
}

func runCompact(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	root, err := projectRoot(args)
	if err != nil {
		return err
	}

	progress := NewCLIProgressReporter(cmd.ErrOrStderr(), quietFlag)
	ws, _, err := openWorkspace(root, workspace.Options{Progress: progress})
	if err != nil {
		return err
	}
	defer ws.Close()

	if err := compactOnce(ctx, cmd, ws); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("compaction cancelled")
		}
		return err
	}

	if !watchFlag {
		return nil
	}
	return watchProject(ctx, cmd, ws)
}

// compactOnce runs one compaction and writes the requested outputs.
func compactOnce(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace) error {
	result, err := ws.Compact(ctx)
	if err != nil {
		return fmt.Errorf("compaction failed: %w", err)
	}
	if result == nil {
		if !quietFlag {
			fmt.Fprintln(cmd.ErrOrStderr(), "No supported source files found")
		}
		return nil
	}

	if !quietFlag {
		printResultSummary(cmd.ErrOrStderr(), result)
	}
	return writeComposed(ctx, cmd, ws)
}

// writeComposed writes the composed digest to --out and/or stdout.
func writeComposed(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace) error {
	if outFlag == "" && !printFlag {
		return nil
	}

	composed, err := ws.Composed(ctx)
	if err != nil {
		return err
	}

	if outFlag != "" {
		if err := os.WriteFile(outFlag, []byte(composed.Digest+"\n"), 0644); err != nil {
			return fmt.Errorf("failed to write digest: %w", err)
		}
		if !quietFlag {
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %d sections to %s\n", composed.FileCount, outFlag)
		}
	}
	if printFlag {
		fmt.Fprintln(cmd.OutOrStdout(), composed.Digest)
	}
	return nil
}

// watchProject recompacts after file changes until ctx is cancelled.
func watchProject(ctx context.Context, cmd *cobra.Command, ws *workspace.Workspace) error {
	watcher, err := compact.NewWatcher(ws.Engine(), ws.Root(), debounceFlag, func(result *compact.Result, err error) {
		if err != nil {
			log.Printf("Warning: recompaction failed: %v", err)
			return
		}
		if result == nil {
			return
		}
		if err := ws.Save(ctx, result); err != nil {
			log.Printf("Warning: %v", err)
			return
		}
		if !quietFlag {
			printResultSummary(cmd.ErrOrStderr(), result)
		}
		if err := writeComposed(ctx, cmd, ws); err != nil {
			log.Printf("Warning: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	if !quietFlag {
		log.Println("Watching for changes (Ctrl+C to stop)...")
	}
	watcher.Start(ctx)
	<-ctx.Done()
	watcher.Stop()

	if !quietFlag {
		log.Println("Watch mode stopped")
	}
	return nil
}
