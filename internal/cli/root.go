package cli

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/code-digest/internal/config"
	"github.com/mvp-joe/code-digest/internal/workspace"
)

var (
	dirFlag     string
	quietFlag   bool
	verboseFlag bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "digest",
	Short: "Digest - token-efficient project summaries for LLM context",
	Long: `Digest compacts a source tree into a line-oriented digest sized for an LLM
context window. Each file becomes one "## path" section: short files by path
only, medium files by declaration signatures, long files by a structural
skeleton of imports, exports, components, functions, hooks and types.

The digest is stored per project and can be narrowed by disabling sections,
turned into a file dependency graph, or served to assistants over MCP.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quietFlag {
			log.SetOutput(io.Discard)
		} else {
			log.SetOutput(cmd.ErrOrStderr())
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dirFlag, "dir", "C", "", "project root (default is the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "disable progress bars and non-error output")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "verbose output")
}

// projectRoot resolves the project root from --dir, an optional positional
// path, or the working directory.
func projectRoot(args []string) (string, error) {
	root := dirFlag
	if len(args) > 0 && args[0] != "" {
		root = args[0]
	}
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("failed to get working directory: %w", err)
		}
		root = wd
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %s: %w", root, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("project root not accessible: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("project root is not a directory: %s", abs)
	}
	return abs, nil
}

// loadConfig loads the project configuration of root.
func loadConfig(root string) (*config.Config, *config.GlobalConfig, error) {
	cfg, err := config.LoadConfigFromDir(root)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	global, err := config.LoadGlobalConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load global configuration: %w", err)
	}
	if verboseFlag {
		log.Printf("Project root: %s", root)
		log.Printf("Digest store: %s", cfg.DBPath(root))
	}
	return cfg, global, nil
}

// openWorkspace loads configuration and opens the workspace of root.
func openWorkspace(root string, opts workspace.Options) (*workspace.Workspace, *config.Config, error) {
	cfg, global, err := loadConfig(root)
	if err != nil {
		return nil, nil, err
	}
	opts.Global = global
	ws, err := workspace.Open(root, cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	return ws, cfg, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
