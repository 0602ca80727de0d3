package bm25

import "sync"

// Registry hands out one Model per collection, shared between the single
// writer that retrains it (the Indexer, spec §5's "BM25 model is mutated
// only from inside the indexing pipeline") and any number of concurrent
// readers (Searcher.Search calling Generate). Model itself is already
// safe for concurrent Learn/Generate via its own RWMutex; Registry only
// adds the collection-name lookup, so a reader always resolves to the
// same instance the writer is retraining rather than a stale copy.
type Registry struct {
	mu     sync.Mutex
	models map[string]*Model
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{models: make(map[string]*Model)}
}

// GetOrCreate returns collection's Model, creating an untrained one on
// first use.
func (r *Registry) GetOrCreate(collection string, opts ...Option) *Model {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[collection]
	if !ok {
		m = New(opts...)
		r.models[collection] = m
	}
	return m
}

// Get returns collection's Model, if one has been created.
func (r *Registry) Get(collection string) (*Model, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.models[collection]
	return m, ok
}

// Delete forgets collection's Model, if any. Called when a codebase's
// collection is dropped so a later reindex starts from a fresh model
// rather than one trained on the previous collection's corpus.
func (r *Registry) Delete(collection string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.models, collection)
}
