// Package codesearch is the public library surface of the semantic code
// search engine: index a codebase, keep its index incrementally current,
// and run hybrid (dense + BM25) search over it. It wires together
// pkg/indexer and pkg/searcher behind the five operations spec.md §6
// defines, selecting concrete collaborators (embedder, vector store) from
// an internal/config.Config the way the teacher's cmd/amanmcp wires its
// own server from a loaded config.
package codesearch

import (
	"context"
	"fmt"
	"time"

	"github.com/aman-cerp/codesearch/internal/config"
	appErrors "github.com/aman-cerp/codesearch/internal/errors"
	"github.com/aman-cerp/codesearch/pkg/bm25"
	"github.com/aman-cerp/codesearch/pkg/embed"
	"github.com/aman-cerp/codesearch/pkg/indexer"
	"github.com/aman-cerp/codesearch/pkg/searcher"
	"github.com/aman-cerp/codesearch/pkg/snapshot"
	"github.com/aman-cerp/codesearch/pkg/status"
	"github.com/aman-cerp/codesearch/pkg/vectorstore"
)

// Codebase is the entry point into the library: one Codebase serves every
// root it's asked to index or search, keyed internally by each root's
// canonicalised collection name (internal/canon).
type Codebase struct {
	cfg       *config.Config
	registry  *status.Registry
	snapshots *snapshot.Store
	embedder  embed.Client
	store     vectorstore.VectorStore
	models    *bm25.Registry
	indexer   *indexer.Indexer
	searcher  *searcher.Searcher
}

// Options lets a caller override what Open would otherwise build from
// cfg, for tests or for a host process that already owns a
// status.Registry, snapshot.Store, or vectorstore.VectorStore.
type Options struct {
	SnapshotDir string // directory for snapshot.Store; defaults to ".codesearch/snapshots" relative to the working directory
	LockDir     string // directory for pkg/indexer's cross-process lock files
	Embedder    embed.Client
	Store       vectorstore.VectorStore
	Registry    *status.Registry
}

// Open builds a Codebase from configuration rooted at configDir (where
// .codesearch.yaml, if present, is read from), constructing the embedder
// and vector store backends cfg selects.
func Open(ctx context.Context, configDir string, opts Options) (*Codebase, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("codesearch: loading configuration: %w", err)
	}
	return OpenWithConfig(ctx, cfg, opts)
}

// OpenWithConfig is Open, given an already-loaded Config (e.g. built by a
// caller from flags rather than a file).
func OpenWithConfig(ctx context.Context, cfg *config.Config, opts Options) (*Codebase, error) {
	registry := opts.Registry
	if registry == nil {
		registry = status.NewRegistry()
	}

	snapshotDir := opts.SnapshotDir
	if snapshotDir == "" {
		snapshotDir = ".codesearch/snapshots"
	}
	snapshots := snapshot.NewStore(snapshotDir)

	embedder := opts.Embedder
	if embedder == nil {
		built, err := buildEmbedder(ctx, cfg.Embeddings)
		if err != nil {
			return nil, err
		}
		embedder = built
	}

	store := opts.Store
	if store == nil {
		built, err := buildStore(ctx, cfg.Store)
		if err != nil {
			return nil, err
		}
		store = built
	}

	models := bm25.NewRegistry()

	idxCfg := indexer.Config{
		EmbedBatchSize:  cfg.Performance.EmbedBatch,
		InsertBatchSize: cfg.Performance.InsertBatch,
		WorkerPoolSize:  cfg.Performance.IndexWorkers,
		RequestTimeout:  durationSeconds(cfg.Performance.RequestTimeoutSeconds),
		LockDir:         opts.LockDir,
	}
	idx := indexer.New(idxCfg, registry, snapshots, embedder, store, models)

	searchCfg := searcher.Config{RequestTimeout: durationSeconds(cfg.Performance.RequestTimeoutSeconds)}
	s := searcher.New(searchCfg, registry, models, embedder, store)

	return &Codebase{
		cfg: cfg, registry: registry, snapshots: snapshots,
		embedder: embedder, store: store, models: models,
		indexer: idx, searcher: s,
	}, nil
}

func buildEmbedder(ctx context.Context, cfg config.EmbeddingsConfig) (embed.Client, error) {
	var client embed.Client
	switch cfg.Provider {
	case "", "static":
		client = embed.NewStaticClient()
	case "ollama":
		built, err := embed.NewOllamaClient(ctx, embed.OllamaConfig{
			Host:      cfg.OllamaHost,
			Model:     cfg.Model,
			Dimension: cfg.Dimensions,
			Retry:     embed.DefaultRetryPolicy(),
		})
		if err != nil {
			return nil, fmt.Errorf("codesearch: constructing ollama embedder: %w", err)
		}
		client = built
	case "openai":
		built, err := embed.NewOpenAIClient(ctx, embed.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.Model,
			Dimension: cfg.Dimensions,
			Retry:     embed.DefaultRetryPolicy(),
		})
		if err != nil {
			return nil, fmt.Errorf("codesearch: constructing openai embedder: %w", err)
		}
		client = built
	default:
		return nil, fmt.Errorf("codesearch: unknown embeddings.provider %q", cfg.Provider)
	}

	if cfg.CacheSize > 0 {
		client = embed.NewCachedClient(client, cfg.CacheSize)
	}
	return client, nil
}

func buildStore(ctx context.Context, cfg config.StoreConfig) (vectorstore.VectorStore, error) {
	hnswCfg := vectorstore.HNSWConfig{MaxVectors: cfg.CollectionLimit}
	switch cfg.Backend {
	case "", "hnsw":
		if cfg.Endpoint != "" {
			return vectorstore.NewPersistentHNSWStore(hnswCfg, cfg.Endpoint)
		}
		return vectorstore.NewHNSWStore(hnswCfg), nil
	case "faiss":
		return vectorstore.NewFAISSLikeStore(hnswCfg), nil
	case "pgvector":
		store, err := vectorstore.OpenPGVectorStore(ctx, cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("codesearch: connecting pgvector store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("codesearch: unknown store.backend %q", cfg.Backend)
	}
}

func durationSeconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// IndexCodebase implements spec §6's index_codebase.
func (c *Codebase) IndexCodebase(ctx context.Context, root string, opts IndexOptions, progressCB indexer.ProgressFunc) (indexer.IndexStats, error) {
	return c.indexer.IndexCodebase(ctx, root, indexer.IndexOptions{
		Force:          opts.Force,
		Splitter:       opts.Splitter,
		AllowedExts:    opts.AllowedExts,
		IgnorePatterns: opts.IgnorePatterns,
	}, progressCB)
}

// ReindexByChange implements spec §6's reindex_by_change.
func (c *Codebase) ReindexByChange(ctx context.Context, root string, progressCB indexer.ProgressFunc) (indexer.ReindexStats, error) {
	return c.indexer.ReindexByChange(ctx, root, progressCB)
}

// ClearIndex implements spec §6's clear_index.
func (c *Codebase) ClearIndex(ctx context.Context, root string) (ClearResult, error) {
	if err := c.indexer.Clear(ctx, root); err != nil {
		return ClearResult{}, err
	}
	names, err := c.store.ListCollections(ctx)
	if err != nil {
		return ClearResult{}, err
	}
	return ClearResult{Cleared: true, RemainingIndexedCodebases: uint32(len(names))}, nil
}

// SearchCode implements spec §6's search_code.
func (c *Codebase) SearchCode(ctx context.Context, root, query string, opts searcher.Options) ([]searcher.Result, error) {
	return c.searcher.Search(ctx, root, query, opts)
}

// GetIndexingStatus implements spec §6's get_indexing_status, mapping the
// registry's tagged-union CodebaseEntry onto the four states spec.md §6
// names.
func (c *Codebase) GetIndexingStatus(root string) (Status, error) {
	entry, ok, err := c.registry.Get(root)
	if err != nil {
		return Status{}, err
	}
	if !ok {
		return Status{Kind: StatusNotFound}, nil
	}
	switch entry.Kind {
	case status.KindIndexing:
		return Status{Kind: StatusIndexing, Progress: entry.Progress}, nil
	case status.KindIndexed:
		return Status{Kind: StatusIndexed, Files: entry.Files, Chunks: entry.Chunks, CompletionStatus: entry.CompletionStatus}, nil
	case status.KindIndexFailed:
		return Status{Kind: StatusIndexFailed, Error: entry.ErrorMessage, LastPct: entry.LastAttemptedPercentage}, nil
	default:
		return Status{}, appErrors.New(appErrors.KindInternal, "codesearch: unknown status registry entry kind")
	}
}

// Close releases resources held by the Codebase's vector store (a
// sqlite-backed HNSWStore's db handle, a pgvector connection pool).
func (c *Codebase) Close() error {
	return c.store.Close()
}
