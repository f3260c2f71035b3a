// Command graft is an LLM coding agent: it sends a task and file context
// to a model, parses the reply for edit instructions, and applies them to
// the working tree across multiple rounds.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"graft/internal/config"
	"graft/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose    bool
	configPath string
	workspace  string

	// Logger
	logger *zap.Logger
)

// rootCmd is the base command; running it bare starts the REPL.
var rootCmd = &cobra.Command{
	Use:   "graft",
	Short: "graft - apply LLM replies to your working tree",
	Long: `graft turns model replies into safe, reviewable file edits.

It speaks a strict SEARCH/REPLACE block protocol to the model, locates
each search span in the real file under three matching tiers, and applies
the mutation with backups and per-edit confirmation.

Run without arguments to start the interactive shell.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
		logging.CloseAll()
		logging.CloseAudit()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runRepl()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (default .graft/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "workspace root (default current directory)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(bundleCmd)
	rootCmd.AddCommand(chunkCmd)
}

// resolveWorkspace returns the absolute workspace root.
func resolveWorkspace() string {
	ws := workspace
	if ws == "" {
		ws, _ = os.Getwd()
	}
	if abs, err := filepath.Abs(ws); err == nil {
		ws = abs
	}
	return ws
}

// loadConfig loads configuration for the resolved workspace and brings
// the categorized file logger up.
func loadConfig() (*config.Config, string, error) {
	ws := resolveWorkspace()

	path := configPath
	if path == "" {
		path = filepath.Join(ws, ".graft", "config.yaml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, ws, err
	}

	if err := logging.Initialize(ws); err != nil && verbose {
		fmt.Fprintf(os.Stderr, "logging init failed: %v\n", err)
	}
	if err := logging.InitAudit(); err != nil && verbose {
		fmt.Fprintf(os.Stderr, "audit init failed: %v\n", err)
	}

	return cfg, ws, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
