package vectorstore

import (
	"context"
	"testing"

	appErrors "github.com/aman-cerp/codesearch/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFAISSLikeStore_Delete_AlwaysRejected(t *testing.T) {
	ctx := context.Background()
	s := NewFAISSLikeStore(testConfig())
	require.NoError(t, s.CreateCollection(ctx, "code", 2))
	require.NoError(t, s.Insert(ctx, "code", []Document{doc("a", []float32{1, 0})}))

	err := s.Delete(ctx, "code", []string{"a"})
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindUnsupportedDeletion))

	// document must still be there
	docs, err := s.Query(ctx, "code", "", nil, 10)
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestFAISSLikeStore_Query_RejectsNonEmptyFilter(t *testing.T) {
	ctx := context.Background()
	s := NewFAISSLikeStore(testConfig())
	require.NoError(t, s.CreateCollection(ctx, "code", 2))

	_, err := s.Query(ctx, "code", `fileExtension == ".go"`, nil, 10)
	require.Error(t, err)
	assert.True(t, appErrors.IsKind(err, appErrors.KindUnsupportedFilter))
}

func TestFAISSLikeStore_Query_AllowsEmptyFilter(t *testing.T) {
	ctx := context.Background()
	s := NewFAISSLikeStore(testConfig())
	require.NoError(t, s.CreateCollection(ctx, "code", 2))
	require.NoError(t, s.Insert(ctx, "code", []Document{doc("a", []float32{1, 0})}))

	docs, err := s.Query(ctx, "code", "", nil, 10)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "a", docs[0].ID)
}

func TestFAISSLikeStore_Search_DelegatesToInner(t *testing.T) {
	ctx := context.Background()
	s := NewFAISSLikeStore(testConfig())
	require.NoError(t, s.CreateCollection(ctx, "code", 2))
	require.NoError(t, s.Insert(ctx, "code", []Document{
		doc("close", []float32{1, 0}),
		doc("far", []float32{0, 1}),
	}))

	results, err := s.Search(ctx, "code", []float32{0.99, 0.01}, 2, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "close", results[0].ID)
}

func TestFAISSLikeStore_CheckCollectionLimit_DelegatesToInner(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig()
	cfg.MaxVectors = 1
	s := NewFAISSLikeStore(cfg)
	require.NoError(t, s.CreateCollection(ctx, "code", 2))
	require.NoError(t, s.Insert(ctx, "code", []Document{doc("a", []float32{1, 0})}))

	ok, err := s.CheckCollectionLimit(ctx, "code")
	require.NoError(t, err)
	assert.False(t, ok)
}
