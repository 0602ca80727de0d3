// Package indexer orchestrates the full and incremental indexing
// protocols (spec §4.6): it drives the scanner, chunker, and BM25 model
// over a codebase, stages documents through a bounded embed→insert
// pipeline, and keeps the status registry and snapshot store consistent
// with what actually landed in the vector store.
package indexer

import (
	"context"
	"os"
	"regexp"
	"runtime"
	"time"

	appErrors "github.com/aman-cerp/codesearch/internal/errors"
	"github.com/aman-cerp/codesearch/pkg/chunk"
)

// Tuning constants from spec §4.6/§5. Each has a Config field that
// overrides it; the constant is the default applied when that field is
// left zero.
const (
	DefaultEmbedBatchSize  = 64
	DefaultInsertBatchSize = 128

	// DefaultEmbedConcurrency bounds the in-flight embedding batches. §5
	// calls for "at most 2 in-flight embedding batches".
	DefaultEmbedConcurrency = 2
	// DefaultInsertBacklog bounds how many insert batches may be queued
	// ahead of the single insert worker ("at most 2 in-flight insert
	// batches"); insertion itself is serialised per collection so BM25
	// re-training never interleaves with a concurrent insert (§5).
	DefaultInsertBacklog = 2

	// DefaultPerItemFallbackDelay is the pause between per-item embed
	// calls when a batch falls back to one-at-a-time embedding (§4.9).
	DefaultPerItemFallbackDelay = 100 * time.Millisecond

	// DefaultRequestTimeout bounds a single embedding or store RPC (§5).
	DefaultRequestTimeout = 30 * time.Second
)

// Config configures an Indexer. Zero-valued fields fall back to the
// package defaults above.
type Config struct {
	EmbedBatchSize  int
	InsertBatchSize int
	EmbedConcurrency int
	InsertBacklog    int
	PerItemFallbackDelay time.Duration
	RequestTimeout       time.Duration

	// WorkerPoolSize bounds concurrent CPU-bound chunk work. 0 means
	// min(GOMAXPROCS, 8), per spec §5.
	WorkerPoolSize int

	// LockDir is where per-root advisory lock files live, guarding a
	// codebase against concurrent indexing from two separate processes
	// (the StatusRegistry's AlreadyIndexing check only covers goroutines
	// within one). Defaults to os.TempDir().
	LockDir string

	// Hybrid selects whether index_codebase creates a hybrid (dense +
	// BM25) collection or a dense-only one. Not part of spec.md's
	// index_codebase signature (force/splitter/allowed_exts/
	// ignore_patterns only) — added here as a construction-time default
	// so both VectorStore collection kinds and both Searcher branches
	// (§4.7's hybrid vs degrade-to-dense-only) are reachable. Defaults
	// to true.
	Hybrid *bool
}

func (c Config) withDefaults() Config {
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if c.InsertBatchSize <= 0 {
		c.InsertBatchSize = DefaultInsertBatchSize
	}
	if c.EmbedConcurrency <= 0 {
		c.EmbedConcurrency = DefaultEmbedConcurrency
	}
	if c.InsertBacklog <= 0 {
		c.InsertBacklog = DefaultInsertBacklog
	}
	if c.PerItemFallbackDelay <= 0 {
		c.PerItemFallbackDelay = DefaultPerItemFallbackDelay
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	if c.WorkerPoolSize <= 0 {
		c.WorkerPoolSize = runtime.GOMAXPROCS(0)
		if c.WorkerPoolSize > 8 {
			c.WorkerPoolSize = 8
		}
	}
	if c.Hybrid == nil {
		h := true
		c.Hybrid = &h
	}
	if c.LockDir == "" {
		c.LockDir = os.TempDir()
	}
	return c
}

func (c Config) hybrid() bool {
	return c.Hybrid == nil || *c.Hybrid
}

// IndexOptions parametrizes index_codebase, per spec.md §6.
type IndexOptions struct {
	Force          bool
	Splitter       chunk.Strategy // "" defaults to chunk.StrategyAST
	AllowedExts    []string
	IgnorePatterns []string
}

// IndexStats is index_codebase's result shape.
type IndexStats struct {
	IndexedFiles int
	TotalChunks  int
	Status       string // "completed" | "limit_reached"
}

// ReindexStats is reindex_by_change's result shape.
type ReindexStats struct {
	Added    int
	Modified int
	Removed  int
}

// ProgressEvent is emitted to a ProgressFunc during a run. Percentage is
// monotonically non-decreasing within one run (spec §5).
type ProgressEvent struct {
	Phase      string
	Processed  int
	Total      int
	Percentage float64
}

// ProgressFunc receives ProgressEvents. nil is a valid no-op callback.
type ProgressFunc func(ProgressEvent)

func (f ProgressFunc) emit(phase string, processed, total int) {
	if f == nil {
		return
	}
	pct := 0.0
	if total > 0 {
		pct = 100 * float64(processed) / float64(total)
		if pct > 100 {
			pct = 100
		}
	}
	f(ProgressEvent{Phase: phase, Processed: processed, Total: total, Percentage: pct})
}

// extensionPattern is the surface syntax spec.md §6 defines for
// allowed-extension entries.
var extensionPattern = regexp.MustCompile(`^\.[A-Za-z0-9_+-]+$`)

func validateExtensions(exts []string) error {
	for _, e := range exts {
		if !extensionPattern.MatchString(e) {
			return appErrors.New(appErrors.KindInvalidExtensionFilter, "indexer: malformed extension filter entry: "+e)
		}
	}
	return nil
}

func validateSplitter(s chunk.Strategy) error {
	switch s {
	case "", chunk.StrategyAST, chunk.StrategyLangchain:
		return nil
	default:
		return appErrors.New(appErrors.KindInvalidSplitter, "indexer: unrecognised splitter: "+string(s))
	}
}

// checkCancelled wraps ctx.Err(), if any, as a Cancelled *errors.Error.
func checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return appErrors.Wrap(appErrors.KindCancelled, "indexer: operation cancelled", err)
	}
	return nil
}
