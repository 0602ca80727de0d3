package vectorstore

import (
	"sort"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// highlightIndex is a per-hybrid-collection full-text index used solely to
// recover which query terms actually matched a given document, for
// search-result highlighting. It plays no role in ranking or retrieval —
// that is the hnsw graph's and the sparse dot-product branch's job — so it
// is kept as small, disposable, in-memory state rather than persisted
// alongside the collection.
type highlightIndex struct {
	mu    sync.Mutex
	index bleve.Index
}

// highlightDoc is the single-field document shape indexed into bleve.
type highlightDoc struct {
	Content string `json:"content"`
}

func newHighlightIndex() *highlightIndex {
	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		// bleve.NewMemOnly with a default mapping does not fail in
		// practice; degrade to "no highlighting" rather than panic.
		return &highlightIndex{}
	}
	return &highlightIndex{index: idx}
}

func (h *highlightIndex) put(id, content string) {
	if h == nil || h.index == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = h.index.Index(id, highlightDoc{Content: content})
}

func (h *highlightIndex) remove(id string) {
	if h == nil || h.index == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	_ = h.index.Delete(id)
}

// matchedTerms returns, per document id in ids that bleve actually matched
// against query, the distinct query terms found in its content. ids not
// present in the returned map did not match any query term.
func (h *highlightIndex) matchedTerms(query string, ids []string) (map[string][]string, error) {
	if h == nil || h.index == nil || len(ids) == 0 {
		return nil, nil
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	matchQuery := bleve.NewMatchQuery(query)
	matchQuery.SetField("content")
	combined := bleve.NewConjunctionQuery(bleve.NewDocIDQuery(ids), matchQuery)

	req := bleve.NewSearchRequest(combined)
	req.Size = len(ids)
	req.IncludeLocations = true

	res, err := h.index.Search(req)
	if err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(res.Hits))
	for _, hit := range res.Hits {
		seen := make(map[string]struct{})
		for _, termLocs := range hit.Locations {
			for term := range termLocs {
				seen[term] = struct{}{}
			}
		}
		if len(seen) == 0 {
			continue
		}
		terms := make([]string, 0, len(seen))
		for t := range seen {
			terms = append(terms, t)
		}
		sort.Strings(terms)
		out[hit.ID] = terms
	}
	return out, nil
}

func (h *highlightIndex) close() error {
	if h == nil || h.index == nil {
		return nil
	}
	return h.index.Close()
}
