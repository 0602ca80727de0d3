package indexer

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aman-cerp/codesearch/internal/canon"
	appErrors "github.com/aman-cerp/codesearch/internal/errors"
	"github.com/aman-cerp/codesearch/pkg/bm25"
	"github.com/aman-cerp/codesearch/pkg/chunk"
	"github.com/aman-cerp/codesearch/pkg/embed"
	"github.com/aman-cerp/codesearch/pkg/snapshot"
	"github.com/aman-cerp/codesearch/pkg/status"
	"github.com/aman-cerp/codesearch/pkg/vectorstore"
)

// queryLimit bounds how many existing documents ReindexByChange reads
// back from the store to seed BM25 retraining and to locate a path's
// document ids for deletion. Real corpora are expected to stay well
// under this; a codebase that doesn't degrades to training on a
// truncated sample rather than failing outright.
const queryLimit = 100000

// ReindexByChange implements spec §4.6's reindex_by_change protocol:
// diff the codebase against its last snapshot, then apply exactly the
// added/modified/removed delta to the vector store.
func (idx *Indexer) ReindexByChange(ctx context.Context, root string, progressCB ProgressFunc) (ReindexStats, error) {
	entry, ok, err := idx.registry.Get(root)
	if err != nil {
		return ReindexStats{}, err
	}
	if ok && entry.Kind == status.KindIndexing {
		return ReindexStats{}, appErrors.New(appErrors.KindAlreadyIndexing, "indexer: codebase is already being indexed").WithPath(root)
	}

	canonicalRoot, err := canon.Root(root)
	if err != nil {
		return ReindexStats{}, appErrors.Wrap(appErrors.KindPathNotFound, "indexer: resolving root", err).WithPath(root)
	}
	collectionName := canon.CollectionName(canonicalRoot)

	fl, err := idx.acquireRootLock(canonicalRoot)
	if err != nil {
		return ReindexStats{}, err
	}
	defer fl.Unlock()

	has, err := idx.store.HasCollection(ctx, collectionName)
	if err != nil {
		return ReindexStats{}, err
	}
	if !has {
		return ReindexStats{}, appErrors.New(appErrors.KindNotIndexed, "indexer: codebase has not been indexed").WithPath(root)
	}

	if err := idx.registry.ForceReindex(root); err != nil {
		return ReindexStats{}, err
	}

	stats, err := idx.runReindex(ctx, root, collectionName, entry, progressCB)
	if err != nil {
		_ = idx.registry.SetFailed(root, err.Error(), 0)
		return ReindexStats{}, err
	}
	return stats, nil
}

func (idx *Indexer) runReindex(ctx context.Context, root, collectionName string, priorEntry status.CodebaseEntry, progressCB ProgressFunc) (ReindexStats, error) {
	prior, err := idx.snapshots.Load(root)
	if err != nil {
		return ReindexStats{}, appErrors.Wrap(appErrors.KindInternal, "indexer: loading prior snapshot", err).WithPath(root)
	}

	diff, err := snapshot.Detect(ctx, root, prior, snapshot.DiffOptions{})
	if err != nil {
		return ReindexStats{}, appErrors.Wrap(appErrors.KindInternal, "indexer: detecting changes", err).WithPath(root)
	}

	total := len(diff.Added) + len(diff.Modified) + len(diff.Removed)
	processed := 0
	report := func() {
		progressCB.emit("reindexing", processed, total)
	}
	report()

	hybrid := idx.cfg.hybrid()
	var model *bm25.Model
	corpus := []string{}
	if hybrid {
		model = idx.models.GetOrCreate(collectionName)
		existing, err := idx.store.Query(ctx, collectionName, "", []string{"content"}, queryLimit)
		if err != nil {
			return ReindexStats{}, err
		}
		if len(existing) == queryLimit {
			slog.Warn("indexer: existing collection may exceed query sample size, bm25 retraining will be approximate",
				slog.String("collection", collectionName), slog.Int("limit", queryLimit))
		}
		for _, d := range existing {
			corpus = append(corpus, d.Content)
		}
	}

	deletedChunks := 0
	deleteByPath := func(relPath string) error {
		docs, err := idx.store.Query(ctx, collectionName, quoteEq("relativePath", relPath), []string{"id"}, queryLimit)
		if err != nil && appErrors.IsKind(err, appErrors.KindUnsupportedFilter) {
			slog.Warn("indexer: store rejects query filters, scanning full collection instead",
				slog.String("collection", collectionName), slog.String("path", relPath))
			all, qerr := idx.store.Query(ctx, collectionName, "", []string{"id", "relativePath"}, queryLimit)
			if qerr != nil {
				return qerr
			}
			docs = nil
			for _, d := range all {
				if d.RelativePath == relPath {
					docs = append(docs, d)
				}
			}
		} else if err != nil {
			return err
		}
		if len(docs) == 0 {
			return nil
		}
		ids := make([]string, len(docs))
		for i, d := range docs {
			ids[i] = d.ID
		}
		if err := idx.store.Delete(ctx, collectionName, ids); err != nil {
			if appErrors.IsKind(err, appErrors.KindUnsupportedDeletion) {
				slog.Warn("indexer: store does not support deletion, leaving stale documents",
					slog.String("collection", collectionName), slog.String("path", relPath))
				return nil
			}
			return err
		}
		deletedChunks += len(ids)
		return nil
	}

	insertedChunks := 0
	insertPath := func(relPath string) error {
		absPath := filepath.Join(root, filepath.FromSlash(relPath))
		data, err := os.ReadFile(absPath)
		if err != nil {
			slog.Warn("indexer: cannot read file, skipping", slog.String("path", absPath), slog.String("error", err.Error()))
			return nil
		}

		chunks, err := chunk.Chunk(ctx, &chunk.FileInput{Path: relPath, Content: data}, chunk.Options{})
		if err != nil {
			slog.Warn("indexer: chunking failed, skipping file", slog.String("path", absPath), slog.String("error", err.Error()))
			return nil
		}
		if len(chunks) == 0 {
			return nil
		}

		texts := make([]string, len(chunks))
		for i, c := range chunks {
			texts[i] = embed.PreprocessText(c.Content)
		}
		vecs, err := embedWithFallback(ctx, idx.embedder, texts, idx.cfg.PerItemFallbackDelay)
		if err != nil {
			return err
		}

		docs := make([]vectorstore.Document, 0, len(chunks))
		var newTexts []string
		for i, c := range chunks {
			if vecs[i] == nil {
				continue
			}
			docs = append(docs, vectorstore.Document{
				ID:            documentID(relPath, c.StartLine, c.EndLine, c.Content),
				Content:       c.Content,
				RelativePath:  relPath,
				StartLine:     c.StartLine,
				EndLine:       c.EndLine,
				FileExtension: filepath.Ext(relPath),
				Metadata:      encodeMetadata(c),
				Vector:        vecs[i],
			})
			newTexts = append(newTexts, c.Content)
		}
		if len(docs) == 0 {
			return nil
		}

		if hybrid {
			corpus = append(corpus, newTexts...)
			if err := model.Learn(corpus); err != nil {
				return appErrors.Wrap(appErrors.KindInternal, "indexer: training bm25 model", err).WithPath(root)
			}
			for i := range docs {
				sparse, err := model.Generate(docs[i].Content, bm25.GenerateOptions{Normalize: true})
				if err != nil {
					return appErrors.Wrap(appErrors.KindInternal, "indexer: generating sparse vector", err).WithPath(root)
				}
				docs[i].Sparse = sparse
			}
			if err := idx.store.InsertHybrid(ctx, collectionName, docs); err != nil {
				return err
			}
		} else {
			if err := idx.store.Insert(ctx, collectionName, docs); err != nil {
				return err
			}
		}
		insertedChunks += len(docs)
		return nil
	}

	for _, relPath := range diff.Removed {
		if err := checkCancelled(ctx); err != nil {
			return ReindexStats{}, err
		}
		if err := deleteByPath(relPath); err != nil {
			return ReindexStats{}, err
		}
		processed++
		report()
	}

	for _, relPath := range diff.Modified {
		if err := checkCancelled(ctx); err != nil {
			return ReindexStats{}, err
		}
		if err := deleteByPath(relPath); err != nil {
			return ReindexStats{}, err
		}
		if err := insertPath(relPath); err != nil {
			return ReindexStats{}, err
		}
		processed++
		report()
	}

	for _, relPath := range diff.Added {
		if err := checkCancelled(ctx); err != nil {
			return ReindexStats{}, err
		}
		if err := insertPath(relPath); err != nil {
			return ReindexStats{}, err
		}
		processed++
		report()
	}

	if err := idx.snapshots.Save(root, diff.NewSnapshot); err != nil {
		return ReindexStats{}, appErrors.Wrap(appErrors.KindInternal, "indexer: persisting snapshot", err).WithPath(root)
	}

	finalFiles := priorEntry.Files - len(diff.Removed) + len(diff.Added)
	if finalFiles < 0 {
		finalFiles = 0
	}
	finalChunks := priorEntry.Chunks - deletedChunks + insertedChunks
	if finalChunks < 0 {
		finalChunks = 0
	}
	if err := idx.registry.SetIndexed(root, finalFiles, finalChunks, status.CompletionCompleted); err != nil {
		return ReindexStats{}, err
	}

	return ReindexStats{
		Added:    len(diff.Added),
		Modified: len(diff.Modified),
		Removed:  len(diff.Removed),
	}, nil
}

// Clear implements spec §4.6's clear(root): drop the collection, delete
// the snapshot, and reset the status registry. Every step is idempotent
// on already-absent state.
func (idx *Indexer) Clear(ctx context.Context, root string) error {
	canonicalRoot, err := canon.Root(root)
	if err != nil {
		return appErrors.Wrap(appErrors.KindPathNotFound, "indexer: resolving root", err).WithPath(root)
	}
	collectionName := canon.CollectionName(canonicalRoot)

	if err := idx.store.DropCollection(ctx, collectionName); err != nil {
		return err
	}
	idx.models.Delete(collectionName)
	if err := idx.snapshots.Delete(root); err != nil {
		return appErrors.Wrap(appErrors.KindInternal, "indexer: deleting snapshot", err).WithPath(root)
	}
	return idx.registry.Clear(root)
}

func quoteEq(field, value string) string {
	return field + " == '" + value + "'"
}
