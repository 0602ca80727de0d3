package indexer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/aman-cerp/codesearch/internal/errors"
	"github.com/aman-cerp/codesearch/pkg/bm25"
	"github.com/aman-cerp/codesearch/pkg/embed"
	"github.com/aman-cerp/codesearch/pkg/snapshot"
	"github.com/aman-cerp/codesearch/pkg/status"
	"github.com/aman-cerp/codesearch/pkg/vectorstore"
)

func newTestIndexer(t *testing.T, cfg Config) (*Indexer, *status.Registry, string) {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hello world\")\n}\n")
	writeFile(t, root, "util.go", "package main\n\nfunc add(a, b int) int {\n\treturn a + b\n}\n")

	registry := status.NewRegistry()
	snapDir := t.TempDir()
	snapshots := snapshot.NewStore(snapDir)
	store := vectorstore.NewHNSWStore(vectorstore.DefaultHNSWConfig())
	client := embed.NewStaticClient()
	models := bm25.NewRegistry()

	return New(cfg, registry, snapshots, client, store, models), registry, root
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestIndexCodebase_HappyPath_Hybrid(t *testing.T) {
	idx, registry, root := newTestIndexer(t, Config{})

	var events []ProgressEvent
	stats, err := idx.IndexCodebase(context.Background(), root, IndexOptions{}, func(ev ProgressEvent) {
		events = append(events, ev)
	})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.IndexedFiles)
	assert.Greater(t, stats.TotalChunks, 0)
	assert.Equal(t, status.CompletionCompleted, stats.Status)
	assert.NotEmpty(t, events)

	entry, ok, err := registry.Get(root)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, status.KindIndexed, entry.Kind)
	assert.Equal(t, 2, entry.Files)
}

func TestIndexCodebase_HappyPath_DenseOnly(t *testing.T) {
	nonHybrid := false
	idx, _, root := newTestIndexer(t, Config{Hybrid: &nonHybrid})

	stats, err := idx.IndexCodebase(context.Background(), root, IndexOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.IndexedFiles)
	assert.Greater(t, stats.TotalChunks, 0)
}

func TestIndexCodebase_AlreadyIndexed_WithoutForce(t *testing.T) {
	idx, _, root := newTestIndexer(t, Config{})

	_, err := idx.IndexCodebase(context.Background(), root, IndexOptions{}, nil)
	require.NoError(t, err)

	_, err = idx.IndexCodebase(context.Background(), root, IndexOptions{}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindAlreadyIndexed))
}

func TestIndexCodebase_Force_DropsAndReindexes(t *testing.T) {
	idx, _, root := newTestIndexer(t, Config{})

	_, err := idx.IndexCodebase(context.Background(), root, IndexOptions{}, nil)
	require.NoError(t, err)

	stats, err := idx.IndexCodebase(context.Background(), root, IndexOptions{Force: true}, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.IndexedFiles)
}

func TestIndexCodebase_PathNotFound(t *testing.T) {
	idx, _, root := newTestIndexer(t, Config{})

	_, err := idx.IndexCodebase(context.Background(), filepath.Join(root, "does-not-exist"), IndexOptions{}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindPathNotFound))
}

func TestIndexCodebase_InvalidSplitter(t *testing.T) {
	idx, _, root := newTestIndexer(t, Config{})

	_, err := idx.IndexCodebase(context.Background(), root, IndexOptions{Splitter: "not-a-real-splitter"}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindInvalidSplitter))
}

func TestIndexCodebase_InvalidExtensionFilter(t *testing.T) {
	idx, _, root := newTestIndexer(t, Config{})

	_, err := idx.IndexCodebase(context.Background(), root, IndexOptions{AllowedExts: []string{"go"}}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindInvalidExtensionFilter))
}

func TestIndexCodebase_AlreadyIndexing(t *testing.T) {
	idx, registry, root := newTestIndexer(t, Config{})
	require.NoError(t, registry.Start(root))

	_, err := idx.IndexCodebase(context.Background(), root, IndexOptions{}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindAlreadyIndexing))
}

func TestIndexCodebase_ProgressIsMonotonic(t *testing.T) {
	idx, _, root := newTestIndexer(t, Config{})

	var last float64
	_, err := idx.IndexCodebase(context.Background(), root, IndexOptions{}, func(ev ProgressEvent) {
		assert.GreaterOrEqual(t, ev.Percentage, last)
		last = ev.Percentage
	})
	require.NoError(t, err)
	assert.Equal(t, 100.0, last)
}

func TestIndexCodebase_LimitReached_StopsCleanly(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.go", "package main\n\nfunc a() { println(1) }\n")
	writeFile(t, root, "b.go", "package main\n\nfunc b() { println(2) }\n")
	writeFile(t, root, "c.go", "package main\n\nfunc c() { println(3) }\n")

	registry := status.NewRegistry()
	snapshots := snapshot.NewStore(t.TempDir())
	store := vectorstore.NewHNSWStore(vectorstore.HNSWConfig{M: 16, EfSearch: 20, MaxVectors: 1})
	client := embed.NewStaticClient()
	models := bm25.NewRegistry()

	idx := New(Config{InsertBatchSize: 1, EmbedBatchSize: 1}, registry, snapshots, client, store, models)

	stats, err := idx.IndexCodebase(context.Background(), root, IndexOptions{}, nil)
	require.NoError(t, err)
	assert.Equal(t, status.CompletionLimitReached, stats.Status)
	assert.Less(t, stats.IndexedFiles, 3)

	entry, ok, err := registry.Get(root)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, status.CompletionLimitReached, entry.CompletionStatus)
}

func TestIndexCodebase_Cancellation(t *testing.T) {
	idx, _, root := newTestIndexer(t, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := idx.IndexCodebase(ctx, root, IndexOptions{}, nil)
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindCancelled))
}

func TestStatus_PassthroughToRegistry(t *testing.T) {
	idx, registry, root := newTestIndexer(t, Config{})

	_, ok, err := idx.Status(root)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, registry.Start(root))
	entry, ok, err := idx.Status(root)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, status.KindIndexing, entry.Kind)
}
