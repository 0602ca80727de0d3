// Package cmd provides the CLI commands for codesearch.
package cmd

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/codesearch/internal/logging"
	"github.com/aman-cerp/codesearch/pkg/version"
)

var debugMode bool

// NewRootCmd creates the root command for the codesearch CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "codesearch",
		Short:   "Hybrid (BM25 + semantic) search over a codebase",
		Long:    `codesearch indexes a codebase and answers hybrid search queries over it, combining BM25 keyword matching with dense vector similarity.`,
		Version: version.Version,
	}
	cmd.SetVersionTemplate("codesearch version {{.Version}}\n")
	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to the log file")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newReindexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newClearCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// setupLogging initializes file logging for the duration of a command,
// returning a cleanup function to defer.
func setupLogging() func() {
	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if debugMode {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = true
	}
	_, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return func() {}
	}
	return cleanup
}

// findProjectRoot walks up from dir looking for a .codesearch.yaml/.yml
// config file or a .git directory, falling back to dir itself.
func findProjectRoot(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return dir
	}
	for current := abs; ; {
		if fileExists(filepath.Join(current, ".codesearch.yaml")) ||
			fileExists(filepath.Join(current, ".codesearch.yml")) ||
			fileExists(filepath.Join(current, ".git")) {
			return current
		}
		parent := filepath.Dir(current)
		if parent == current {
			return abs
		}
		current = parent
	}
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func resolveRoot(path string) string {
	if path == "" {
		path = "."
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return findProjectRoot(".")
	}
	return findProjectRoot(abs)
}
