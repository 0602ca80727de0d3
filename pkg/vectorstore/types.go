// Package vectorstore implements the VectorStore contract (spec §4.10):
// collection lifecycle, dense and hybrid insert/search, filtered query, and
// deletion, over three backend families — an in-process HNSW graph, a
// FAISS-family adapter that deliberately rejects delete and non-trivial
// filters, and a Postgres/pgvector adapter for a real external store.
package vectorstore

import (
	"context"

	"github.com/aman-cerp/codesearch/pkg/bm25"
)

// Document is one retrievable unit stored in a collection: the chunk
// content plus the metadata spec §6 requires round-trip through the store,
// and the vectors used to index it.
type Document struct {
	ID            string
	Content       string
	RelativePath  string
	StartLine     int
	EndLine       int
	FileExtension string
	Metadata      string // opaque JSON, must round-trip verbatim

	Vector []float32         // dense embedding
	Sparse bm25.SparseVector // BM25 term weights, empty for dense-only collections
}

// SearchResult is one ranked hit. Document is populated when the caller
// requested output fields (query) or when the backend returns full records
// alongside scores (search/hybrid_search); it is nil otherwise.
type SearchResult struct {
	ID       string
	Score    float32
	Document *Document
}

// VectorStore is the collaborator contract from spec §4.10.
type VectorStore interface {
	CreateCollection(ctx context.Context, name string, dimension int) error
	CreateHybridCollection(ctx context.Context, name string, dimension int) error
	DropCollection(ctx context.Context, name string) error
	HasCollection(ctx context.Context, name string) (bool, error)
	ListCollections(ctx context.Context) ([]string, error)

	Insert(ctx context.Context, collection string, docs []Document) error
	InsertHybrid(ctx context.Context, collection string, docs []Document) error

	Search(ctx context.Context, collection string, query []float32, limit int, filter string) ([]SearchResult, error)
	HybridSearch(ctx context.Context, collection string, dense []float32, sparse bm25.SparseVector, limit int, filter string) ([]SearchResult, error)

	// Query lists documents matching filter (spec's filter grammar), up to
	// limit, projecting outputFields (empty means all fields).
	Query(ctx context.Context, collection string, filter string, outputFields []string, limit int) ([]Document, error)

	// Delete removes documents by id. FAISS-family backends must reject
	// this with UnsupportedDeletion (spec §4.10).
	Delete(ctx context.Context, collection string, ids []string) error

	// CheckCollectionLimit returns false when the backend is near capacity;
	// the Indexer treats that as the limit_reached terminal status.
	CheckCollectionLimit(ctx context.Context, collection string) (bool, error)

	Close() error
}
