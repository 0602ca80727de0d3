package vectorstore

import (
	"context"
	"testing"

	appErrors "github.com/aman-cerp/codesearch/internal/errors"
	"github.com/aman-cerp/codesearch/pkg/bm25"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() HNSWConfig {
	return HNSWConfig{M: 16, EfSearch: 20}
}

func doc(id string, vec []float32) Document {
	return Document{ID: id, Content: id, RelativePath: id + ".go", FileExtension: ".go", Vector: vec}
}

func TestHNSWStore_CollectionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore(testConfig())

	ok, err := s.HasCollection(ctx, "code")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.CreateCollection(ctx, "code", 3))
	ok, err = s.HasCollection(ctx, "code")
	require.NoError(t, err)
	assert.True(t, ok)

	names, err := s.ListCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"code"}, names)

	// creating again is a no-op, not an error
	require.NoError(t, s.CreateCollection(ctx, "code", 3))

	require.NoError(t, s.DropCollection(ctx, "code"))
	ok, err = s.HasCollection(ctx, "code")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHNSWStore_Insert_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore(testConfig())
	require.NoError(t, s.CreateCollection(ctx, "code", 3))

	err := s.Insert(ctx, "code", []Document{doc("a", []float32{1, 0})})
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindStoreError))
}

func TestHNSWStore_InsertHybrid_RequiresSparseVectorOnHybridCollection(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore(testConfig())
	require.NoError(t, s.CreateHybridCollection(ctx, "code", 2))

	err := s.InsertHybrid(ctx, "code", []Document{doc("a", []float32{1, 0})})
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindStoreError))
}

func TestHNSWStore_Search_ReturnsNearestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore(testConfig())
	require.NoError(t, s.CreateCollection(ctx, "code", 2))

	require.NoError(t, s.Insert(ctx, "code", []Document{
		doc("close", []float32{1, 0}),
		doc("far", []float32{0, 1}),
	}))

	results, err := s.Search(ctx, "code", []float32{0.99, 0.01}, 2, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "close", results[0].ID)
	assert.Equal(t, "far", results[1].ID)
	assert.Greater(t, results[0].Score, results[1].Score)
}

func TestHNSWStore_Search_AppliesFilter(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore(testConfig())
	require.NoError(t, s.CreateCollection(ctx, "code", 2))

	a := doc("a", []float32{1, 0})
	a.FileExtension = ".go"
	b := doc("b", []float32{0.9, 0.1})
	b.FileExtension = ".py"
	require.NoError(t, s.Insert(ctx, "code", []Document{a, b}))

	results, err := s.Search(ctx, "code", []float32{1, 0}, 5, `fileExtension == ".py"`)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].ID)
}

func TestHNSWStore_Search_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore(testConfig())
	require.NoError(t, s.CreateCollection(ctx, "code", 3))

	_, err := s.Search(ctx, "code", []float32{1, 0}, 5, "")
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindStoreError))
}

func TestHNSWStore_Search_MalformedFilter(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore(testConfig())
	require.NoError(t, s.CreateCollection(ctx, "code", 2))
	require.NoError(t, s.Insert(ctx, "code", []Document{doc("a", []float32{1, 0})}))

	_, err := s.Search(ctx, "code", []float32{1, 0}, 5, "nonsense filter")
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindUnsupportedFilter))
}

func TestHNSWStore_HybridSearch_FusesViaRRF(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore(testConfig())
	require.NoError(t, s.CreateHybridCollection(ctx, "code", 2))

	denseOnly := doc("dense-only", []float32{1, 0})
	denseOnly.Sparse = bm25.SparseVector{Indices: []int{0}, Values: []float32{0.01}}

	both := doc("both", []float32{0.95, 0.05})
	both.Sparse = bm25.SparseVector{Indices: []int{1}, Values: []float32{5.0}}

	sparseOnly := doc("sparse-only", []float32{0, 1})
	sparseOnly.Sparse = bm25.SparseVector{Indices: []int{1}, Values: []float32{5.0}}

	require.NoError(t, s.InsertHybrid(ctx, "code", []Document{denseOnly, both, sparseOnly}))

	results, err := s.HybridSearch(ctx, "code", []float32{1, 0}, bm25.SparseVector{Indices: []int{1}, Values: []float32{1.0}}, 3, "")
	require.NoError(t, err)
	require.Len(t, results, 3)
	// "both" ranks well in both branches, so it should come out on top.
	assert.Equal(t, "both", results[0].ID)
}

func TestHNSWStore_HybridSearch_NonHybridCollectionDegradesToDenseOnly(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore(testConfig())
	require.NoError(t, s.CreateCollection(ctx, "code", 2))
	require.NoError(t, s.Insert(ctx, "code", []Document{doc("a", []float32{1, 0})}))

	results, err := s.HybridSearch(ctx, "code", []float32{1, 0}, bm25.SparseVector{}, 5, "")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestHNSWStore_Query_ListsAllMatchingSortedByID(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore(testConfig())
	require.NoError(t, s.CreateCollection(ctx, "code", 2))
	require.NoError(t, s.Insert(ctx, "code", []Document{
		doc("b", []float32{1, 0}),
		doc("a", []float32{0, 1}),
	}))

	docs, err := s.Query(ctx, "code", "", nil, 10)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
}

func TestHNSWStore_Delete_RemovesFromSearchAndQuery(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore(testConfig())
	require.NoError(t, s.CreateCollection(ctx, "code", 2))
	require.NoError(t, s.Insert(ctx, "code", []Document{
		doc("a", []float32{1, 0}),
		doc("b", []float32{0, 1}),
	}))

	require.NoError(t, s.Delete(ctx, "code", []string{"a"}))

	docs, err := s.Query(ctx, "code", "", nil, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "b", docs[0].ID)

	results, err := s.Search(ctx, "code", []float32{1, 0}, 10, "")
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.ID)
	}
}

func TestHNSWStore_CheckCollectionLimit(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MaxVectors = 2
	s := NewHNSWStore(cfg)
	require.NoError(t, s.CreateCollection(ctx, "code", 2))

	ok, err := s.CheckCollectionLimit(ctx, "code")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Insert(ctx, "code", []Document{
		doc("a", []float32{1, 0}),
		doc("b", []float32{0, 1}),
	}))

	ok, err = s.CheckCollectionLimit(ctx, "code")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHNSWStore_CheckCollectionLimit_UnboundedByDefault(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore(testConfig())
	require.NoError(t, s.CreateCollection(ctx, "code", 2))

	ok, err := s.CheckCollectionLimit(ctx, "code")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestHNSWStore_UnknownCollection_ReturnsStoreError(t *testing.T) {
	ctx := context.Background()
	s := NewHNSWStore(testConfig())

	_, err := s.Search(ctx, "missing", []float32{1, 0}, 5, "")
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindStoreError))
}
