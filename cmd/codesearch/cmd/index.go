package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/codesearch/pkg/chunk"
	"github.com/aman-cerp/codesearch/pkg/indexer"
)

func newIndexCmd() *cobra.Command {
	var (
		force    bool
		splitter string
		exts     []string
		ignore   []string
	)

	cmd := &cobra.Command{
		Use:   "index [path]",
		Short: "Index a directory for searching",
		Long: `Index a directory to enable hybrid search over its contents.

This scans files, chunks code, generates embeddings, and builds both
BM25 and vector indices for retrieval.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			path := "."
			if len(args) > 0 {
				path = args[0]
			}

			var strategy chunk.Strategy
			switch splitter {
			case "", "ast":
				strategy = chunk.StrategyAST
			case "langchain":
				strategy = chunk.StrategyLangchain
			default:
				return fmt.Errorf("unknown --splitter %q (want ast or langchain)", splitter)
			}

			return runIndex(ctx, cmd, path, IndexRunOptions{
				Force:          force,
				Splitter:       strategy,
				AllowedExts:    exts,
				IgnorePatterns: ignore,
			})
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Clear any existing index for this root before indexing")
	cmd.Flags().StringVar(&splitter, "splitter", "ast", "Chunking strategy: ast or langchain")
	cmd.Flags().StringSliceVar(&exts, "ext", nil, "Restrict indexing to these file extensions (repeatable, e.g. --ext .go)")
	cmd.Flags().StringSliceVar(&ignore, "ignore", nil, "Additional glob ignore patterns (repeatable)")

	return cmd
}

// IndexRunOptions mirrors codesearch.IndexOptions; kept distinct so this
// package doesn't need to import codesearch's root types for flag wiring.
type IndexRunOptions struct {
	Force          bool
	Splitter       chunk.Strategy
	AllowedExts    []string
	IgnorePatterns []string
}

func runIndex(ctx context.Context, cmd *cobra.Command, path string, opts IndexRunOptions) error {
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

	stats, err := cb.IndexCodebase(ctx, root, codesearchIndexOptions(opts), progress)
	fmt.Fprintln(out)
	if err != nil {
		return fmt.Errorf("indexing failed: %w", err)
	}

	fmt.Fprintf(out, "Indexed %d files, %d chunks (%s)\n", stats.IndexedFiles, stats.TotalChunks, stats.Status)
	return nil
}
