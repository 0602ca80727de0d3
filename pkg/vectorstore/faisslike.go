package vectorstore

import (
	"context"
	"strings"

	appErrors "github.com/aman-cerp/codesearch/internal/errors"
	"github.com/aman-cerp/codesearch/pkg/bm25"
)

// FAISSLikeStore wraps an in-process index with the intrinsic limitations
// spec §4.10 documents for the FAISS backend family: deletion is always
// rejected, and query() rejects any non-trivial filter rather than silently
// ignoring it. Grounded on the same internal/store/hnsw.go the teacher uses
// for its one dense store, inverted here to demonstrate the documented
// limitation instead of working around it — the core (pkg/indexer) reacts
// to a rejected delete by logging a warning and leaving the stale documents
// in the collection (it does not start or demand a reindex), and to a
// rejected filter by listing all docs up to the limit.
type FAISSLikeStore struct {
	inner *HNSWStore
}

var _ VectorStore = (*FAISSLikeStore)(nil)

// NewFAISSLikeStore wraps cfg's in-process index with FAISS-family
// limitations.
func NewFAISSLikeStore(cfg HNSWConfig) *FAISSLikeStore {
	return &FAISSLikeStore{inner: NewHNSWStore(cfg)}
}

func (s *FAISSLikeStore) CreateCollection(ctx context.Context, name string, dimension int) error {
	return s.inner.CreateCollection(ctx, name, dimension)
}

func (s *FAISSLikeStore) CreateHybridCollection(ctx context.Context, name string, dimension int) error {
	return s.inner.CreateHybridCollection(ctx, name, dimension)
}

func (s *FAISSLikeStore) DropCollection(ctx context.Context, name string) error {
	return s.inner.DropCollection(ctx, name)
}

func (s *FAISSLikeStore) HasCollection(ctx context.Context, name string) (bool, error) {
	return s.inner.HasCollection(ctx, name)
}

func (s *FAISSLikeStore) ListCollections(ctx context.Context) ([]string, error) {
	return s.inner.ListCollections(ctx)
}

func (s *FAISSLikeStore) Insert(ctx context.Context, collection string, docs []Document) error {
	return s.inner.Insert(ctx, collection, docs)
}

func (s *FAISSLikeStore) InsertHybrid(ctx context.Context, collection string, docs []Document) error {
	return s.inner.InsertHybrid(ctx, collection, docs)
}

func (s *FAISSLikeStore) Search(ctx context.Context, collection string, query []float32, limit int, filter string) ([]SearchResult, error) {
	return s.inner.Search(ctx, collection, query, limit, filter)
}

func (s *FAISSLikeStore) HybridSearch(ctx context.Context, collection string, dense []float32, sparse bm25.SparseVector, limit int, filter string) ([]SearchResult, error) {
	return s.inner.HybridSearch(ctx, collection, dense, sparse, limit, filter)
}

// Query rejects any non-empty filter expression with UnsupportedFilter, per
// spec §4.10's FAISS-family limitation; an empty filter lists all documents
// up to limit, which is also the fallback the core performs after a
// rejection.
func (s *FAISSLikeStore) Query(ctx context.Context, collection string, filter string, outputFields []string, limit int) ([]Document, error) {
	if strings.TrimSpace(filter) != "" {
		return nil, appErrors.New(appErrors.KindUnsupportedFilter,
			"vectorstore: faiss-family backend rejects non-trivial query filters").WithCollection(collection)
	}
	return s.inner.Query(ctx, collection, "", outputFields, limit)
}

// Delete always rejects: FAISS-family backends have no delete-by-id path.
func (s *FAISSLikeStore) Delete(_ context.Context, collection string, _ []string) error {
	return appErrors.New(appErrors.KindUnsupportedDeletion,
		"vectorstore: faiss-family backend does not support delete").WithCollection(collection)
}

func (s *FAISSLikeStore) CheckCollectionLimit(ctx context.Context, collection string) (bool, error) {
	return s.inner.CheckCollectionLimit(ctx, collection)
}

func (s *FAISSLikeStore) Close() error {
	return s.inner.Close()
}
