// Package chunk splits source files into retrievable units: an AST-aware
// strategy for supported languages, a heading-based strategy for Markdown,
// and a size-based fallback for everything else (or for files whose
// grammar fails to load).
package chunk

// Default bounding parameters, spec §4.2.
const (
	DefaultMaxChunkChars = 2500
	DefaultMinChunkChars = 200
	DefaultChunkSize     = 1000
	DefaultChunkOverlap  = 200
)

// Strategy selects how a file is split.
type Strategy string

const (
	// StrategyAST applies a language grammar and splits at declaration
	// boundaries. It is the default strategy.
	StrategyAST Strategy = "ast"
	// StrategyLangchain splits purely on size, using a priority-ordered
	// separator list. Used as a fallback when no grammar is available or
	// grammar loading fails.
	StrategyLangchain Strategy = "langchain"
)

// Options bounds chunk production. Zero values are replaced by the
// package defaults.
type Options struct {
	Strategy Strategy

	// MaxChunkChars bounds an AST-strategy chunk before it is split
	// recursively at the next grammatical level.
	MaxChunkChars int
	// MinChunkChars is the threshold under which consecutive top-level
	// siblings are merged greedily.
	MinChunkChars int

	// ChunkSize and ChunkOverlap parametrize the langchain strategy.
	ChunkSize    int
	ChunkOverlap int
}

func (o Options) withDefaults() Options {
	if o.Strategy == "" {
		o.Strategy = StrategyAST
	}
	if o.MaxChunkChars <= 0 {
		o.MaxChunkChars = DefaultMaxChunkChars
	}
	if o.MinChunkChars <= 0 {
		o.MinChunkChars = DefaultMinChunkChars
	}
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.ChunkOverlap <= 0 {
		o.ChunkOverlap = DefaultChunkOverlap
	}
	return o
}

// Unit is a single retrievable unit produced from a file.
type Unit struct {
	FilePath string // relative to the project root
	Content  string

	// Language is the detected language name ("go", "python", "markdown",
	// ...), empty if unknown.
	Language string
	// NodeKind is the grammar node type that produced the chunk (e.g.
	// "function_declaration"), or the strategy name for size-based
	// chunks. Present for observability only, never parsed by callers.
	NodeKind string

	StartLine int // 1-indexed, inclusive
	EndLine   int // 1-indexed, inclusive
}

// FileInput is the input to Chunk.
type FileInput struct {
	Path     string // relative path, used for language detection and Chunk.FilePath
	Content  []byte
	Language string // overrides extension-based detection when non-empty
}
