package codesearch

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aman-cerp/codesearch/internal/config"
	"github.com/aman-cerp/codesearch/pkg/embed"
	"github.com/aman-cerp/codesearch/pkg/searcher"
	"github.com/aman-cerp/codesearch/pkg/vectorstore"
)

func newTestCodebase(t *testing.T) (*Codebase, string) {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"),
		[]byte("package main\n\nfunc main() {\n\tprintln(\"hello world\")\n}\n"), 0o644))

	cfg := config.NewConfig()
	cb, err := OpenWithConfig(context.Background(), cfg, Options{
		SnapshotDir: t.TempDir(),
		LockDir:     t.TempDir(),
		Embedder:    embed.NewStaticClient(),
		Store:       vectorstore.NewHNSWStore(vectorstore.DefaultHNSWConfig()),
	})
	require.NoError(t, err)
	return cb, root
}

func TestCodebase_IndexAndSearch(t *testing.T) {
	cb, root := newTestCodebase(t)
	ctx := context.Background()

	stats, err := cb.IndexCodebase(ctx, root, IndexOptions{}, nil)
	require.NoError(t, err)
	assert.Greater(t, stats.IndexedFiles, 0)

	results, err := cb.SearchCode(ctx, root, "hello world", searcher.Options{Limit: 10})
	require.NoError(t, err)
	assert.NotEmpty(t, results)
}

func TestCodebase_GetIndexingStatus_NotFoundThenIndexed(t *testing.T) {
	cb, root := newTestCodebase(t)
	ctx := context.Background()

	st, err := cb.GetIndexingStatus(root)
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, st.Kind)

	_, err = cb.IndexCodebase(ctx, root, IndexOptions{}, nil)
	require.NoError(t, err)

	st, err = cb.GetIndexingStatus(root)
	require.NoError(t, err)
	assert.Equal(t, StatusIndexed, st.Kind)
	assert.Greater(t, st.Files, 0)
}

func TestCodebase_ClearIndex(t *testing.T) {
	cb, root := newTestCodebase(t)
	ctx := context.Background()

	_, err := cb.IndexCodebase(ctx, root, IndexOptions{}, nil)
	require.NoError(t, err)

	result, err := cb.ClearIndex(ctx, root)
	require.NoError(t, err)
	assert.True(t, result.Cleared)

	st, err := cb.GetIndexingStatus(root)
	require.NoError(t, err)
	assert.Equal(t, StatusNotFound, st.Kind)
}

func TestCodebase_ReindexByChange(t *testing.T) {
	cb, root := newTestCodebase(t)
	ctx := context.Background()

	_, err := cb.IndexCodebase(ctx, root, IndexOptions{}, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(root, "extra.go"),
		[]byte("package main\n\nfunc extra() {}\n"), 0o644))

	stats, err := cb.ReindexByChange(ctx, root, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Added)
}
