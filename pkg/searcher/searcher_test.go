package searcher

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
	"github.com/aman-cerp/codesearch/pkg/indexer"
	"github.com/aman-cerp/codesearch/pkg/snapshot"
	"github.com/aman-cerp/codesearch/pkg/status"
	"github.com/aman-cerp/codesearch/pkg/vectorstore"
)

type harness struct {
	idx      *indexer.Indexer
	searcher *Searcher
	registry *status.Registry
	root     string
}

func newHarness(t *testing.T, idxCfg indexer.Config, searchCfg Config) *harness {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hello world\")\n}\n")
	writeFile(t, root, "readme.md", "# hello world\n\nThis project prints hello world.\n")

	registry := status.NewRegistry()
	snapshots := snapshot.NewStore(t.TempDir())
	store := vectorstore.NewHNSWStore(vectorstore.DefaultHNSWConfig())
	client := embed.NewStaticClient()
	models := bm25.NewRegistry()

	idx := indexer.New(idxCfg, registry, snapshots, client, store, models)
	s := New(searchCfg, registry, models, client, store)

	return &harness{idx: idx, searcher: s, registry: registry, root: root}
}

func writeFile(t *testing.T, root, relPath, content string) {
	t.Helper()
	full := filepath.Join(root, relPath)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestSearch_HybridHappyPath(t *testing.T) {
	h := newHarness(t, indexer.Config{}, Config{})

	_, err := h.idx.IndexCodebase(context.Background(), h.root, indexer.IndexOptions{}, nil)
	require.NoError(t, err)

	results, err := h.searcher.Search(context.Background(), h.root, "hello world", Options{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.False(t, r.IndexingInProgress)
		assert.NotEmpty(t, r.RelativePath)
	}
}

func TestSearch_DenseOnly_NonHybridCollection(t *testing.T) {
	nonHybrid := false
	h := newHarness(t, indexer.Config{Hybrid: &nonHybrid}, Config{})

	_, err := h.idx.IndexCodebase(context.Background(), h.root, indexer.IndexOptions{}, nil)
	require.NoError(t, err)

	results, err := h.searcher.Search(context.Background(), h.root, "hello world", Options{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
}

func TestSearch_NotIndexed(t *testing.T) {
	h := newHarness(t, indexer.Config{}, Config{})

	_, err := h.searcher.Search(context.Background(), h.root, "hello world", Options{Limit: 10})
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindNotIndexed))
}

func TestSearch_ThresholdExcludesEverything(t *testing.T) {
	h := newHarness(t, indexer.Config{}, Config{})

	_, err := h.idx.IndexCodebase(context.Background(), h.root, indexer.IndexOptions{}, nil)
	require.NoError(t, err)

	impossible := 1000.0
	results, err := h.searcher.Search(context.Background(), h.root, "hello world", Options{
		Limit:     10,
		Threshold: &impossible,
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_ExtensionFilter(t *testing.T) {
	h := newHarness(t, indexer.Config{}, Config{})

	_, err := h.idx.IndexCodebase(context.Background(), h.root, indexer.IndexOptions{}, nil)
	require.NoError(t, err)

	results, err := h.searcher.Search(context.Background(), h.root, "hello world", Options{
		Limit:           10,
		ExtensionFilter: []string{".go"},
	})
	require.NoError(t, err)
	for _, r := range results {
		assert.Equal(t, ".go", filepath.Ext(r.RelativePath))
	}

	results, err = h.searcher.Search(context.Background(), h.root, "hello world", Options{
		Limit:           10,
		ExtensionFilter: []string{".rs"},
	})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_InvalidExtensionFilter(t *testing.T) {
	h := newHarness(t, indexer.Config{}, Config{})

	_, err := h.searcher.Search(context.Background(), h.root, "hello world", Options{
		Limit:           10,
		ExtensionFilter: []string{"go"},
	})
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindInvalidExtensionFilter))
}

func TestSearch_MatchedTermsHighlighted(t *testing.T) {
	h := newHarness(t, indexer.Config{}, Config{})

	_, err := h.idx.IndexCodebase(context.Background(), h.root, indexer.IndexOptions{}, nil)
	require.NoError(t, err)

	results, err := h.searcher.Search(context.Background(), h.root, "hello", Options{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	var sawMatch bool
	for _, r := range results {
		if len(r.MatchedTerms) > 0 {
			sawMatch = true
			assert.Contains(t, r.MatchedTerms, "hello")
		}
	}
	assert.True(t, sawMatch, "expected at least one result to report a matched term")
}

func TestSearch_PermittedWhileIndexing(t *testing.T) {
	h := newHarness(t, indexer.Config{}, Config{})

	_, err := h.idx.IndexCodebase(context.Background(), h.root, indexer.IndexOptions{}, nil)
	require.NoError(t, err)

	// Simulate a reindex in flight against the already-populated collection.
	require.NoError(t, h.registry.Start(h.root))

	results, err := h.searcher.Search(context.Background(), h.root, "hello world", Options{Limit: 10})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, r := range results {
		assert.True(t, r.IndexingInProgress)
	}
}
