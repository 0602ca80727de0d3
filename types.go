package codesearch

import "github.com/aman-cerp/codesearch/pkg/chunk"

// IndexOptions parametrizes IndexCodebase, per spec.md §6's
// index_codebase({force, splitter, allowed_exts?, ignore_patterns?}).
type IndexOptions struct {
	Force          bool
	Splitter       chunk.Strategy
	AllowedExts    []string
	IgnorePatterns []string
}

// ClearResult is ClearIndex's result shape, per spec.md §6's
// clear_index → {cleared, remaining_indexed_codebases}.
type ClearResult struct {
	Cleared                   bool
	RemainingIndexedCodebases uint32
}

// StatusKind discriminates Status's tagged union, per spec.md §6's
// get_indexing_status → NotFound | Indexing | Indexed | IndexFailed.
type StatusKind string

const (
	StatusNotFound    StatusKind = "NotFound"
	StatusIndexing    StatusKind = "Indexing"
	StatusIndexed     StatusKind = "Indexed"
	StatusIndexFailed StatusKind = "IndexFailed"
)

// Status is GetIndexingStatus's result shape. Only the fields relevant
// to Kind are meaningful.
type Status struct {
	Kind StatusKind

	// Indexing
	Progress float64

	// Indexed
	Files            int
	Chunks           int
	CompletionStatus string

	// IndexFailed
	Error   string
	LastPct float64
}
