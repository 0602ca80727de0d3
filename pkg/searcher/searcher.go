package searcher

import (
	"context"
	"sort"
	"strings"

	"github.com/aman-cerp/codesearch/internal/canon"
	"github.com/aman-cerp/codesearch/internal/docmeta"
	appErrors "github.com/aman-cerp/codesearch/internal/errors"
	"github.com/aman-cerp/codesearch/pkg/bm25"
	"github.com/aman-cerp/codesearch/pkg/embed"
	"github.com/aman-cerp/codesearch/pkg/status"
	"github.com/aman-cerp/codesearch/pkg/vectorstore"
)

// DefaultLimit is applied when Options.Limit is left at its zero value.
// Not part of spec.md's search_code signature (limit is a required
// parameter there) — added so a zero-valued Options is still a usable
// call from the library surface and cmd/codesearch's default flag value.
const DefaultLimit = 10

// Searcher implements spec §4.7's search(root, query, opts) protocol,
// orchestrating C4 (embedder), C3 (BM25Model, via the same models
// registry the Indexer trains into) and C5 (vector store).
type Searcher struct {
	cfg      Config
	registry *status.Registry
	models   *bm25.Registry
	embedder embed.Client
	store    vectorstore.VectorStore
}

// New constructs a Searcher. registry, models, embedder and store must be
// the same instances a corresponding pkg/indexer.Indexer was constructed
// with, so a search observes the codebase that indexer is maintaining.
func New(cfg Config, registry *status.Registry, models *bm25.Registry, embedder embed.Client, store vectorstore.VectorStore) *Searcher {
	return &Searcher{
		cfg:      cfg.withDefaults(),
		registry: registry,
		models:   models,
		embedder: embedder,
		store:    store,
	}
}

// Search implements spec §4.7's protocol end to end.
func (s *Searcher) Search(ctx context.Context, root, query string, opts Options) ([]Result, error) {
	if err := validateExtensionFilter(opts.ExtensionFilter); err != nil {
		return nil, err
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	entry, ok, err := s.registry.Get(root)
	if err != nil {
		return nil, err
	}
	if !ok || entry.Kind == status.KindIndexFailed {
		return nil, appErrors.New(appErrors.KindNotIndexed, "searcher: codebase has not been indexed").WithPath(root)
	}
	indexingInProgress := entry.Kind == status.KindIndexing

	canonicalRoot, err := canon.Root(root)
	if err != nil {
		return nil, appErrors.Wrap(appErrors.KindPathNotFound, "searcher: resolving root", err).WithPath(root)
	}
	collectionName := canon.CollectionName(canonicalRoot)

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.RequestTimeout)
	dense, err := s.embedder.Embed(probeCtx, embed.PreprocessText(query))
	cancel()
	if err != nil {
		return nil, appErrors.Wrap(appErrors.KindEmbeddingError, "searcher: embedding query", err).WithPath(root)
	}

	fetchLimit := limit * 2

	var raw []vectorstore.SearchResult
	if model, ok := s.models.Get(collectionName); ok && model.Trained() {
		sparse, genErr := model.Generate(query, bm25.GenerateOptions{MaxTerms: DefaultQueryMaxTerms, Normalize: true})
		if genErr != nil {
			// Trained flipped false between the check and Generate (a
			// concurrent reindex just started); degrade to dense-only
			// for this call rather than failing it.
			raw, err = s.store.Search(ctx, collectionName, dense, fetchLimit, "")
		} else {
			raw, err = s.store.HybridSearch(ctx, collectionName, dense, sparse, fetchLimit, "")
		}
	} else {
		raw, err = s.store.Search(ctx, collectionName, dense, fetchLimit, "")
	}
	if err != nil {
		return nil, err
	}

	type scoredResult struct {
		id     string
		result Result
	}
	scored := make([]scoredResult, 0, len(raw))
	for _, r := range raw {
		if r.Document == nil {
			continue
		}
		if opts.Threshold != nil && float64(r.Score) < *opts.Threshold {
			continue
		}
		if !matchesExtensionFilter(r.Document.FileExtension, opts.ExtensionFilter) {
			continue
		}
		meta := docmeta.Decode(r.Document.Metadata)
		scored = append(scored, scoredResult{
			id: r.ID,
			result: Result{
				Content:            r.Document.Content,
				RelativePath:       r.Document.RelativePath,
				StartLine:          r.Document.StartLine,
				EndLine:            r.Document.EndLine,
				Language:           meta.Language,
				Score:              float64(r.Score),
				IndexingInProgress: indexingInProgress,
			},
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].result.Score > scored[j].result.Score
	})
	if len(scored) > limit {
		scored = scored[:limit]
	}

	results := make([]Result, len(scored))
	ids := make([]string, len(scored))
	for i, sr := range scored {
		results[i] = sr.result
		ids[i] = sr.id
	}

	if mts, ok := s.store.(matchedTermsStore); ok {
		terms, mtErr := mts.MatchedTerms(ctx, collectionName, query, ids)
		if mtErr == nil {
			for i := range results {
				results[i].MatchedTerms = terms[ids[i]]
			}
		}
	}

	return results, nil
}

// matchedTermsStore is an optional VectorStore capability (implemented by
// HNSWStore's bleve companion index) for highlighting which query terms
// landed in a given result. Absent on backends that don't support it.
type matchedTermsStore interface {
	MatchedTerms(ctx context.Context, collection, query string, ids []string) (map[string][]string, error)
}

func matchesExtensionFilter(ext string, filter []string) bool {
	if len(filter) == 0 {
		return true
	}
	for _, f := range filter {
		if strings.EqualFold(ext, f) {
			return true
		}
	}
	return false
}
