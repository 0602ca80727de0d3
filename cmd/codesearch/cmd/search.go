package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/codesearch/pkg/searcher"
)

func newSearchCmd() *cobra.Command {
	var (
		path      string
		limit     int
		threshold float64
		exts      []string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search an indexed codebase",
		Long: `Search runs hybrid (BM25 + semantic) search over a previously indexed
codebase and prints the fused, ranked results.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")

			opts := searcher.Options{Limit: limit, ExtensionFilter: exts}
			if threshold > 0 {
				opts.Threshold = &threshold
			}

			return runSearch(cmd.Context(), cmd, path, query, opts, format)
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", ".", "Codebase root to search")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "Drop results scoring below this fused score (0 disables)")
	cmd.Flags().StringSliceVar(&exts, "ext", nil, "Restrict results to these file extensions (repeatable, e.g. --ext .go)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text or json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, path, query string, opts searcher.Options, format string) error {
	cleanup := setupLogging()
	defer cleanup()

	root := resolveRoot(path)

	cb, err := openCodebase(ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = cb.Close() }()

	results, err := cb.SearchCode(ctx, root, query, opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if format == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Fprintf(out, "No results found for %q\n", query)
		return nil
	}

	fmt.Fprintf(out, "Found %d results for %q:\n\n", len(results), query)
	for i, r := range results {
		location := r.RelativePath
		if r.StartLine > 0 {
			location = fmt.Sprintf("%s:%d-%d", r.RelativePath, r.StartLine, r.EndLine)
		}
		fmt.Fprintf(out, "%d. %s (score: %.3f)\n", i+1, location, r.Score)
		for _, line := range firstLines(r.Content, 3) {
			fmt.Fprintf(out, "   %s\n", line)
		}
		fmt.Fprintln(out)
	}
	return nil
}

func firstLines(content string, n int) []string {
	lines := strings.Split(content, "\n")
	if len(lines) > n {
		lines = lines[:n]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
