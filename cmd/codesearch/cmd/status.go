package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aman-cerp/codesearch"
)

func newStatusCmd() *cobra.Command {
	var (
		path       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "status [path]",
		Short: "Show a codebase's indexing status",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				path = args[0]
			}
			return runStatus(cmd.Context(), cmd, path, jsonOutput)
		},
	}

	cmd.Flags().StringVarP(&path, "path", "p", ".", "Codebase root to inspect")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runStatus(ctx context.Context, cmd *cobra.Command, path string, jsonOutput bool) error {
	root := resolveRoot(path)

	cb, err := openCodebase(ctx, root)
	if err != nil {
		return err
	}
	defer func() { _ = cb.Close() }()

	st, err := cb.GetIndexingStatus(root)
	if err != nil {
		return fmt.Errorf("failed to get indexing status: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(st)
	}

	switch st.Kind {
	case codesearch.StatusNotFound:
		fmt.Fprintf(out, "%s: not indexed\n", root)
	case codesearch.StatusIndexing:
		fmt.Fprintf(out, "%s: indexing (%.0f%%)\n", root, st.Progress)
	case codesearch.StatusIndexed:
		fmt.Fprintf(out, "%s: indexed (%d files, %d chunks, %s)\n", root, st.Files, st.Chunks, st.CompletionStatus)
	case codesearch.StatusIndexFailed:
		fmt.Fprintf(out, "%s: index failed at %.0f%%: %s\n", root, st.LastPct, st.Error)
	}
	return nil
}
