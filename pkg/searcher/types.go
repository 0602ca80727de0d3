// Package searcher implements query-time hybrid retrieval (spec §4.7):
// embed the query, fetch dense and (for hybrid collections) sparse
// candidate lists, fuse them with reciprocal rank fusion, then apply
// threshold and extension filtering before shaping the final result set.
package searcher

import (
	"regexp"
	"time"

	appErrors "github.com/aman-cerp/codesearch/internal/errors"
)

// DefaultRequestTimeout bounds a single embedding or store RPC issued by
// a search, matching the indexer's own per-request default (spec §5).
const DefaultRequestTimeout = 30 * time.Second

// DefaultQueryMaxTerms is the max_terms spec §4.7 step 2 fixes for
// BM25Model.generate(query, ...) at query time.
const DefaultQueryMaxTerms = 256

// Config configures a Searcher. Zero-valued fields take package
// defaults.
type Config struct {
	RequestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = DefaultRequestTimeout
	}
	return c
}

// Options parametrizes search_code, per spec.md §6.
type Options struct {
	Limit int

	// Threshold, if non-nil, drops fused results scoring below it
	// (spec §4.7 step 4, applied after fusion).
	Threshold *float64

	// ExtensionFilter, if non-empty, restricts results to file
	// extensions in the set (spec §4.7 step 5): case-insensitive exact
	// match, each entry must start with '.'.
	ExtensionFilter []string
}

// Result is search_code's per-hit shape (spec §4.7 step 6).
type Result struct {
	Content            string
	RelativePath       string
	StartLine          int
	EndLine            int
	Language           string
	Score              float64
	IndexingInProgress bool

	// MatchedTerms lists the query terms bleve found in this hit's
	// content, for a caller that wants to highlight them. Populated only
	// when the backing VectorStore implements matchedTermsStore and the
	// collection is hybrid; nil otherwise (not a failure).
	MatchedTerms []string
}

var extensionPattern = regexp.MustCompile(`^\.[A-Za-z0-9_+-]+$`)

func validateExtensionFilter(exts []string) error {
	for _, e := range exts {
		if !extensionPattern.MatchString(e) {
			return appErrors.New(appErrors.KindInvalidExtensionFilter, "searcher: malformed extension filter entry: "+e)
		}
	}
	return nil
}
