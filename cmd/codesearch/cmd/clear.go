package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newClearCmd() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:   "clear [path]",
		Short: "Clear a codebase's index",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				path = args[0]
			}
			return runClear(cmd.Context(), cmd, path)
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", ".", "Codebase root to clear")
	return cmd
}

func runClear(ctx context.Context, cmd *cobra.Command, path string) error {
	cleanup := setupLogging()
	defer cleanup()

	root := resolveRoot(path)

	cb, err := openCodebase(ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = cb.Close() }()

	result, err := cb.ClearIndex(ctx, root)
	if err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Cleared index for %s (%d codebases remain indexed)\n", root, result.RemainingIndexedCodebases)
	return nil
}
