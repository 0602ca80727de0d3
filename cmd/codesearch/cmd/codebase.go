package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aman-cerp/codesearch"
	"github.com/aman-cerp/codesearch/internal/config"
	"github.com/aman-cerp/codesearch/pkg/status"
)

// cliCodebase bundles a codesearch.Codebase with the disk-backed status
// registry the CLI opened for it, so a command can close both on exit.
type cliCodebase struct {
	*codesearch.Codebase
	registry *status.Registry
}

func (c *cliCodebase) Close() error {
	err := c.Codebase.Close()
	if regErr := c.registry.Close(); regErr != nil && err == nil {
		err = regErr
	}
	return err
}

// openCodebase opens a codesearch.Codebase rooted at root, storing its
// snapshots, lock files, status registry, and (absent an explicit
// store.endpoint in config) its vector store under root/.codesearch —
// the way the teacher's CLI keeps per-project state under root/.amanmcp.
// The status registry and, for the default hnsw backend, the vector
// store are disk-backed so status/search/clear see what a prior `index`
// invocation (a different process) wrote.
func openCodebase(ctx context.Context, root string) (*cliCodebase, error) {
	dataDir := filepath.Join(root, ".codesearch")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, err
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}
	if (cfg.Store.Backend == "" || cfg.Store.Backend == "hnsw") && cfg.Store.Endpoint == "" {
		cfg.Store.Endpoint = filepath.Join(dataDir, "vectors.db")
	}

	registry, err := status.NewRegistryWithDisk(filepath.Join(dataDir, "status.db"))
	if err != nil {
		return nil, err
	}

	cb, err := codesearch.OpenWithConfig(ctx, cfg, codesearch.Options{
		SnapshotDir: filepath.Join(dataDir, "snapshots"),
		LockDir:     filepath.Join(dataDir, "locks"),
		Registry:    registry,
	})
	if err != nil {
		_ = registry.Close()
		return nil, err
	}

	return &cliCodebase{Codebase: cb, registry: registry}, nil
}

func codesearchIndexOptions(opts IndexRunOptions) codesearch.IndexOptions {
	return codesearch.IndexOptions{
		Force:          opts.Force,
		Splitter:       opts.Splitter,
		AllowedExts:    opts.AllowedExts,
		IgnorePatterns: opts.IgnorePatterns,
	}
}
