package status

// Kind discriminates the CodebaseEntry tagged union.
type Kind string

const (
	KindIndexing    Kind = "Indexing"
	KindIndexed     Kind = "Indexed"
	KindIndexFailed Kind = "IndexFailed"
)

// Terminal completion statuses an Indexed entry can carry.
const (
	CompletionCompleted    = "completed"
	CompletionLimitReached = "limit_reached"
)

// CodebaseEntry is the per-codebase lifecycle state tracked by a Registry.
// Only the fields relevant to Kind are meaningful; the zero value of the
// others is left unset.
type CodebaseEntry struct {
	Kind Kind

	// Indexing
	Progress float64

	// Indexed
	Files            int
	Chunks           int
	CompletionStatus string

	// IndexFailed
	ErrorMessage            string
	LastAttemptedPercentage float64
}
