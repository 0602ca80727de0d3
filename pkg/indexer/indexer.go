package indexer

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/aman-cerp/codesearch/internal/canon"
	appErrors "github.com/aman-cerp/codesearch/internal/errors"
	"github.com/aman-cerp/codesearch/pkg/bm25"
	"github.com/aman-cerp/codesearch/pkg/chunk"
	"github.com/aman-cerp/codesearch/pkg/embed"
	"github.com/aman-cerp/codesearch/pkg/scanner"
	"github.com/aman-cerp/codesearch/pkg/snapshot"
	"github.com/aman-cerp/codesearch/pkg/status"
	"github.com/aman-cerp/codesearch/pkg/vectorstore"
)

// Indexer orchestrates C1 (scanner), C2 (chunker), C3 (bm25), C4
// (embedder) and C5 (vector store) for one or many codebases, grounded on
// the teacher's internal/async indexer for the status-registry wiring and
// on pkg/searcher/fusion.go's errgroup usage for the bounded pipeline.
type Indexer struct {
	cfg       Config
	registry  *status.Registry
	snapshots *snapshot.Store
	embedder  embed.Client
	store     vectorstore.VectorStore
	models    *bm25.Registry
}

// New constructs an Indexer. registry, snapshots, embedder, store and
// models are required collaborators; cfg's zero fields take package
// defaults. models is shared with a pkg/searcher.Searcher reading the
// same collections, so query-time BM25 scoring always sees the model this
// Indexer is training rather than a disconnected copy.
func New(cfg Config, registry *status.Registry, snapshots *snapshot.Store, embedder embed.Client, store vectorstore.VectorStore, models *bm25.Registry) *Indexer {
	return &Indexer{
		cfg:       cfg.withDefaults(),
		registry:  registry,
		snapshots: snapshots,
		embedder:  embedder,
		store:     store,
		models:    models,
	}
}

// Status is a pure StatusRegistry read (spec §4.6's status(root)).
func (idx *Indexer) Status(root string) (status.CodebaseEntry, bool, error) {
	return idx.registry.Get(root)
}

// IndexCodebase implements spec §4.6's index_codebase protocol.
func (idx *Indexer) IndexCodebase(ctx context.Context, root string, opts IndexOptions, progressCB ProgressFunc) (IndexStats, error) {
	if err := validateSplitter(opts.Splitter); err != nil {
		return IndexStats{}, err
	}
	if err := validateExtensions(opts.AllowedExts); err != nil {
		return IndexStats{}, err
	}

	info, statErr := os.Stat(root)
	if statErr != nil || !info.IsDir() {
		return IndexStats{}, appErrors.New(appErrors.KindPathNotFound, "indexer: root does not exist or is not a directory").WithPath(root)
	}

	if entry, ok, err := idx.registry.Get(root); err != nil {
		return IndexStats{}, err
	} else if ok && entry.Kind == status.KindIndexing {
		return IndexStats{}, appErrors.New(appErrors.KindAlreadyIndexing, "indexer: codebase is already being indexed").WithPath(root)
	}

	canonicalRoot, err := canon.Root(root)
	if err != nil {
		return IndexStats{}, appErrors.Wrap(appErrors.KindPathNotFound, "indexer: resolving root", err).WithPath(root)
	}
	collectionName := canon.CollectionName(canonicalRoot)

	fl, err := idx.acquireRootLock(canonicalRoot)
	if err != nil {
		return IndexStats{}, err
	}
	defer fl.Unlock()

	has, err := idx.store.HasCollection(ctx, collectionName)
	if err != nil {
		return IndexStats{}, err
	}
	if has {
		if !opts.Force {
			return IndexStats{}, appErrors.New(appErrors.KindAlreadyIndexed, "indexer: codebase is already indexed").WithPath(root)
		}
		if err := idx.store.DropCollection(ctx, collectionName); err != nil {
			return IndexStats{}, err
		}
	}

	if err := idx.registry.Start(root); err != nil {
		return IndexStats{}, err
	}

	return idx.runIndex(ctx, root, collectionName, opts, progressCB)
}

// runIndex performs every step of index_codebase after the status
// registry has transitioned to Indexing, and is responsible for taking
// the registry to a terminal state (Indexed or IndexFailed) on every
// return path.
func (idx *Indexer) runIndex(ctx context.Context, root, collectionName string, opts IndexOptions, progressCB ProgressFunc) (IndexStats, error) {
	cfg := idx.cfg
	var lastPct float64
	var pctMu sync.Mutex
	trackedCB := ProgressFunc(func(ev ProgressEvent) {
		pctMu.Lock()
		lastPct = ev.Percentage
		pctMu.Unlock()
		if progressCB != nil {
			progressCB(ev)
		}
	})
	fail := func(err error) (IndexStats, error) {
		pctMu.Lock()
		pct := lastPct
		pctMu.Unlock()
		_ = idx.registry.SetFailed(root, err.Error(), pct)
		return IndexStats{}, err
	}

	walker, err := scanner.New(root, scanner.Options{
		Extensions:     opts.AllowedExts,
		IgnorePatterns: opts.IgnorePatterns,
	})
	if err != nil {
		return fail(appErrors.Wrap(appErrors.KindInternal, "indexer: constructing scanner", err).WithPath(root))
	}

	var files []scanner.Entry
	for e := range walker.Walk(ctx) {
		files = append(files, e)
	}
	if err := checkCancelled(ctx); err != nil {
		return fail(err)
	}

	dim := idx.embedder.Dimension()
	if dim <= 0 {
		probeCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
		vec, perr := idx.embedder.Embed(probeCtx, "dimension probe")
		cancel()
		if perr != nil {
			return fail(appErrors.Wrap(appErrors.KindEmbeddingError, "indexer: probing embedding dimension", perr).WithPath(root))
		}
		dim = len(vec)
	}

	hybrid := cfg.hybrid()
	if hybrid {
		err = idx.store.CreateHybridCollection(ctx, collectionName, dim)
	} else {
		err = idx.store.CreateCollection(ctx, collectionName, dim)
	}
	if err != nil {
		return fail(err)
	}

	var model *bm25.Model
	if hybrid {
		model = idx.models.GetOrCreate(collectionName)
	}

	result, err := idx.runPipeline(ctx, pipelineParams{
		cfg:            cfg,
		files:          files,
		splitter:       opts.Splitter,
		collectionName: collectionName,
		hybrid:         hybrid,
		model:          model,
		progressCB:     trackedCB,
		root:           root,
		store:          idx.store,
	})
	if err != nil {
		return fail(err)
	}

	if err := idx.snapshots.Save(root, result.hashes); err != nil {
		return fail(appErrors.Wrap(appErrors.KindInternal, "indexer: persisting snapshot", err).WithPath(root))
	}

	completionStatus := status.CompletionCompleted
	if result.limitReached {
		completionStatus = status.CompletionLimitReached
	}
	if err := idx.registry.SetIndexed(root, result.processedFiles, result.insertedChunks, completionStatus); err != nil {
		return IndexStats{}, err
	}

	return IndexStats{
		IndexedFiles: result.processedFiles,
		TotalChunks:  result.insertedChunks,
		Status:       completionStatus,
	}, nil
}

// pipelineParams bundles one run's fixed inputs.
type pipelineParams struct {
	cfg            Config
	files          []scanner.Entry
	splitter       chunk.Strategy
	collectionName string
	hybrid         bool
	model          *bm25.Model
	progressCB     ProgressFunc
	root           string
	store          vectorstore.VectorStore
}

// pipelineResult is what a completed (or cleanly limit-stopped) run
// produced.
type pipelineResult struct {
	processedFiles int
	insertedChunks int
	limitReached   bool
	hashes         map[string]string
}

// fileChunkResult is one worker's output for one file.
type fileChunkResult struct {
	idx     int
	relPath string
	hash    string
	chunks  []chunk.Unit
}

// trackedDoc carries the file a document was produced from, so the
// insert stage can update per-file landed-chunk counts without threading
// that bookkeeping through vectorstore.Document itself.
type trackedDoc struct {
	doc     vectorstore.Document
	fileIdx int
}

// runPipeline is the bounded chunk -> embed -> insert pipeline spec
// §4.6 steps 6-11 and §5 describe: a worker pool chunks files
// concurrently, a single assembler batches chunks for embedding, up to
// EmbedConcurrency embed batches run concurrently, and a single insert
// worker serialises BM25 re-training with insertion (§5's "two
// concurrent insert_hybrid calls are serialised" rule is trivially
// satisfied since there is only ever one insert worker per run).
//
// Internal early stop (the vector store signalling its capacity limit)
// is modelled as cancelling runCtx without that counting as a pipeline
// error: every stage treats "runCtx done but the caller's ctx is still
// live" as a clean stop rather than a failure.
func (idx *Indexer) runPipeline(ctx context.Context, p pipelineParams) (pipelineResult, error) {
	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	g, gctx := errgroup.WithContext(runCtx)

	jobs := make(chan int, len(p.files))
	for i := range p.files {
		jobs <- i
	}
	close(jobs)

	chunked := make(chan fileChunkResult, p.cfg.WorkerPoolSize)
	var workers sync.WaitGroup
	workers.Add(p.cfg.WorkerPoolSize)
	for w := 0; w < p.cfg.WorkerPoolSize; w++ {
		g.Go(func() error {
			defer workers.Done()
			for fileIdx := range jobs {
				select {
				case <-gctx.Done():
					continue
				default:
				}
				result := idx.chunkFile(gctx, p.files[fileIdx], fileIdx, p.splitter)
				select {
				case chunked <- result:
				case <-gctx.Done():
				}
			}
			return nil
		})
	}
	go func() {
		workers.Wait()
		close(chunked)
	}()

	state := newRunState(len(p.files))

	embedBatches := make(chan []stagedChunk, p.cfg.EmbedConcurrency)
	g.Go(func() error {
		defer close(embedBatches)
		return idx.assemble(ctx, gctx, chunked, embedBatches, state, p.cfg.EmbedBatchSize)
	})

	insertBatches := make(chan []trackedDoc, p.cfg.InsertBacklog)
	var embedWG sync.WaitGroup
	embedWG.Add(p.cfg.EmbedConcurrency)
	for w := 0; w < p.cfg.EmbedConcurrency; w++ {
		g.Go(func() error {
			defer embedWG.Done()
			return idx.embedStage(ctx, gctx, embedBatches, insertBatches, p.cfg)
		})
	}
	go func() {
		embedWG.Wait()
		close(insertBatches)
	}()

	limitReached := false
	g.Go(func() error {
		reached, err := idx.insertStage(ctx, gctx, insertBatches, p, state, stop)
		limitReached = reached
		return err
	})

	if err := g.Wait(); err != nil {
		return pipelineResult{}, err
	}

	processedFiles, insertedChunks := state.results()
	return pipelineResult{
		processedFiles: processedFiles,
		insertedChunks: insertedChunks,
		limitReached:   limitReached,
		hashes:         state.snapshot(),
	}, nil
}

func (idx *Indexer) chunkFile(ctx context.Context, entry scanner.Entry, fileIdx int, splitter chunk.Strategy) fileChunkResult {
	relPath := filepath.ToSlash(entry.RelPath)

	data, err := os.ReadFile(entry.AbsPath)
	if err != nil {
		slog.Warn("indexer: cannot read file, skipping", slog.String("path", entry.AbsPath), slog.String("error", err.Error()))
		return fileChunkResult{idx: fileIdx, relPath: relPath}
	}

	chunks, err := chunk.Chunk(ctx, &chunk.FileInput{Path: relPath, Content: data}, chunk.Options{Strategy: splitter})
	if err != nil {
		slog.Warn("indexer: chunking failed, skipping file", slog.String("path", entry.AbsPath), slog.String("error", err.Error()))
		return fileChunkResult{idx: fileIdx, relPath: relPath}
	}

	return fileChunkResult{idx: fileIdx, relPath: relPath, hash: hashBytes(data), chunks: chunks}
}

// assemble batches chunked files' chunks into embedBatchSize-sized
// groups for the embed stage, and feeds every file's chunk count into
// state as soon as it is known.
func (idx *Indexer) assemble(ctx, gctx context.Context, in <-chan fileChunkResult, out chan<- []stagedChunk, state *runState, embedBatchSize int) error {
	var buffer []stagedChunk

	flush := func() error {
		if len(buffer) == 0 {
			return nil
		}
		batch := buffer
		buffer = nil
		select {
		case out <- batch:
			return nil
		case <-gctx.Done():
			return checkCancelled(ctx)
		}
	}

	for fc := range in {
		state.recordChunked(fc.idx, fc.relPath, fc.hash, len(fc.chunks))

		for _, c := range fc.chunks {
			buffer = append(buffer, stagedChunk{
				relPath:  fc.relPath,
				content:  c.Content,
				ext:      filepath.Ext(fc.relPath),
				metadata: encodeMetadata(c),
				start:    c.StartLine,
				end:      c.EndLine,
				fileIdx:  fc.idx,
			})
			if len(buffer) >= embedBatchSize {
				if err := flush(); err != nil {
					return err
				}
			}
		}
	}
	return flush()
}

func (idx *Indexer) embedStage(ctx, gctx context.Context, in <-chan []stagedChunk, out chan<- []trackedDoc, cfg Config) error {
	for batch := range in {
		texts := make([]string, len(batch))
		for i, sc := range batch {
			texts[i] = embed.PreprocessText(sc.content)
		}

		vecs, err := embedWithFallback(gctx, idx.embedder, texts, cfg.PerItemFallbackDelay)
		if err != nil {
			return err
		}

		docs := make([]trackedDoc, 0, len(batch))
		for i, sc := range batch {
			if vecs[i] == nil {
				continue
			}
			docs = append(docs, trackedDoc{
				fileIdx: sc.fileIdx,
				doc: vectorstore.Document{
					ID:            documentID(sc.relPath, sc.start, sc.end, sc.content),
					Content:       sc.content,
					RelativePath:  sc.relPath,
					StartLine:     sc.start,
					EndLine:       sc.end,
					FileExtension: sc.ext,
					Metadata:      sc.metadata,
					Vector:        vecs[i],
				},
			})
		}
		if len(docs) == 0 {
			continue
		}

		select {
		case out <- docs:
		case <-gctx.Done():
			return checkCancelled(ctx)
		}
	}
	return nil
}

// insertStage is the single serialised writer. It re-buffers the
// EmbedBatchSize-sized groups arriving from the embed stage into
// InsertBatchSize-sized groups (spec §5's distinct EMBED_BATCH/
// INSERT_BATCH defaults), re-training the BM25 model over the corpus
// accumulated so far before each store write and reporting progress
// after it lands. Its bool return reports whether the store's capacity
// limit was hit (a clean stop, not an error).
func (idx *Indexer) insertStage(ctx, gctx context.Context, in <-chan []trackedDoc, p pipelineParams, state *runState, stop context.CancelFunc) (bool, error) {
	var buffer []trackedDoc

	flush := func(batch []trackedDoc) (bool, error) {
		if len(batch) == 0 {
			return false, nil
		}
		docs := make([]vectorstore.Document, len(batch))
		for i, td := range batch {
			docs[i] = td.doc
		}

		if p.hybrid {
			texts := make([]string, len(docs))
			for i, d := range docs {
				texts[i] = d.Content
			}
			corpus := state.addToCorpus(texts)
			if err := p.model.Learn(corpus); err != nil {
				return false, appErrors.Wrap(appErrors.KindInternal, "indexer: training bm25 model", err).WithPath(p.root)
			}
			for i := range docs {
				sparse, err := p.model.Generate(docs[i].Content, bm25.GenerateOptions{Normalize: true})
				if err != nil {
					return false, appErrors.Wrap(appErrors.KindInternal, "indexer: generating sparse vector", err).WithPath(p.root)
				}
				docs[i].Sparse = sparse
			}
			if err := p.store.InsertHybrid(ctx, p.collectionName, docs); err != nil {
				return false, err
			}
		} else {
			if err := p.store.Insert(ctx, p.collectionName, docs); err != nil {
				return false, err
			}
		}

		for _, td := range batch {
			state.markInserted(td.fileIdx)
		}

		processed, total := state.progress()
		p.progressCB.emit("indexing", processed, total)

		ok, err := p.store.CheckCollectionLimit(ctx, p.collectionName)
		if err != nil {
			return false, err
		}
		if !ok {
			stop()
			return true, nil
		}
		return false, nil
	}

	for incoming := range in {
		buffer = append(buffer, incoming...)
		for len(buffer) >= p.cfg.InsertBatchSize {
			reached, err := flush(buffer[:p.cfg.InsertBatchSize])
			buffer = buffer[p.cfg.InsertBatchSize:]
			if err != nil || reached {
				return reached, err
			}
		}

		select {
		case <-gctx.Done():
			return false, checkCancelled(ctx)
		default:
		}
	}

	reached, err := flush(buffer)
	return reached, err
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%x", sum)
}
