package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/codesearch/pkg/indexer"
)

func newReindexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reindex [path]",
		Short: "Reindex a directory by diffing against the last snapshot",
		Long: `Reindex re-scans a previously indexed directory, adding new files,
re-chunking and re-embedding modified ones, and removing deleted ones,
without rebuilding the whole index from scratch.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := "."
			if len(args) > 0 {
				path = args[0]
			}
			return runReindex(ctx, cmd, path)
		},
	}
	return cmd
}

func runReindex(ctx context.Context, cmd *cobra.Command, path string) error {
	cleanup := setupLogging()
	defer cleanup()

	root := resolveRoot(path)

	cb, err := openCodebase(ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = cb.Close() }()

	out := cmd.OutOrStdout()
	progress := func(ev indexer.ProgressEvent) {
		fmt.Fprintf(out, "\r%s: %.0f%% (%d/%d)", ev.Phase, ev.Percentage, ev.Processed, ev.Total)
	}

	stats, err := cb.ReindexByChange(ctx, root, progress)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	fmt.Fprintf(out, "Reindexed: %d added, %d modified, %d removed\n", stats.Added, stats.Modified, stats.Removed)
	return nil
}
