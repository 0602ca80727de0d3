package vectorstore

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/coder/hnsw"

	appErrors "github.com/aman-cerp/codesearch/internal/errors"
	"github.com/aman-cerp/codesearch/pkg/bm25"
)

// HNSWConfig configures an in-process HNSWStore.
type HNSWConfig struct {
	M          int
	EfSearch   int
	MaxVectors int // 0 disables the capacity check

	// MmapCacheDir, if set, makes every collection mirror its dense
	// vectors, in insertion order, into an MmapVectorCache at
	// "<MmapCacheDir>/<collection>.vec" as they're inserted. The cache
	// is rebuilt from scratch on every NewPersistentHNSWStore rehydration
	// (it never itself survives a restart's reinsertion pass) and exists
	// for callers that want a cheap, zero-copy sequential scan over a
	// collection's vectors without going through the DocStore's sqlite
	// rows. Empty (the default) disables the cache entirely.
	MmapCacheDir string
}

// DefaultHNSWConfig matches coder/hnsw's recommended defaults.
func DefaultHNSWConfig() HNSWConfig {
	return HNSWConfig{M: 16, EfSearch: 20}
}

type hnswCollection struct {
	mu        sync.RWMutex
	hybrid    bool
	dim       int
	graph     *hnsw.Graph[uint64]
	idMap     map[string]uint64
	keyMap    map[uint64]string
	nextKey   uint64
	docs      map[string]Document // id -> full document, for query/metadata/sparse scoring
	highlight *highlightIndex      // matched-term support, hybrid collections only
	vecCache  *MmapVectorCache     // non-nil when HNSWConfig.MmapCacheDir is set
}

func newHNSWCollection(hybrid bool, dim int, cfg HNSWConfig) *hnswCollection {
	graph := hnsw.NewGraph[uint64]()
	graph.Distance = hnsw.CosineDistance
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25
	c := &hnswCollection{
		hybrid: hybrid,
		dim:    dim,
		graph:  graph,
		idMap:  make(map[string]uint64),
		keyMap: make(map[uint64]string),
		docs:   make(map[string]Document),
	}
	if hybrid {
		c.highlight = newHighlightIndex()
	}
	return c
}

// HNSWStore implements VectorStore in-process: dense vectors live in a
// coder/hnsw graph per collection, and hybrid collections additionally keep
// each document's sparse BM25 vector for a sparse dot-product branch, fused
// with the two branches via reciprocal rank fusion. Grounded on the
// teacher's internal/store/hnsw.go, generalized from one flat dense-only
// store to many named collections plus the sparse/hybrid branch spec.md
// requires.
type HNSWStore struct {
	mu          sync.RWMutex
	cfg         HNSWConfig
	collections map[string]*hnswCollection
	docStore    *DocStore // non-nil when constructed via NewPersistentHNSWStore
}

var _ VectorStore = (*HNSWStore)(nil)

// NewHNSWStore constructs an empty in-process store with no persistence:
// every collection is lost when the process exits.
func NewHNSWStore(cfg HNSWConfig) *HNSWStore {
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}
	return &HNSWStore{cfg: cfg, collections: make(map[string]*hnswCollection)}
}

// NewPersistentHNSWStore wraps NewHNSWStore with a sqlite-backed DocStore
// shadow at dbPath: every collection create/drop and document
// insert/delete is mirrored there, and any collections persisted by a
// prior process are rehydrated here (their documents re-inserted into a
// fresh in-memory hnsw graph) before this returns. The graph itself never
// touches disk; it's cheap enough to rebuild from the documents' stored
// vectors on every restart.
func NewPersistentHNSWStore(cfg HNSWConfig, dbPath string) (*HNSWStore, error) {
	docStore, err := OpenDocStore(dbPath)
	if err != nil {
		return nil, err
	}

	s := NewHNSWStore(cfg)
	s.docStore = docStore

	persisted, err := docStore.LoadAll(context.Background())
	if err != nil {
		_ = docStore.Close()
		return nil, err
	}
	for _, pc := range persisted {
		if err := s.createCollection(pc.Name, pc.Dimension, pc.Hybrid); err != nil {
			_ = docStore.Close()
			return nil, err
		}
		if err := s.insertInternal(pc.Name, pc.Documents, false, false); err != nil {
			_ = docStore.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *HNSWStore) CreateCollection(_ context.Context, name string, dimension int) error {
	return s.createCollection(name, dimension, false)
}

func (s *HNSWStore) CreateHybridCollection(_ context.Context, name string, dimension int) error {
	return s.createCollection(name, dimension, true)
}

func (s *HNSWStore) createCollection(name string, dimension int, hybrid bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.collections[name]; exists {
		return nil
	}
	c := newHNSWCollection(hybrid, dimension, s.cfg)
	if s.cfg.MmapCacheDir != "" {
		// The cache mirrors the in-memory graph, which is itself rebuilt
		// from the DocStore on every process start (see
		// NewPersistentHNSWStore) rather than loaded from disk. Start
		// from an empty cache file so a restart's rehydration inserts
		// don't pile duplicate entries onto whatever a previous
		// process left behind.
		_ = os.Remove(s.mmapCachePath(name))
		cache, err := OpenMmapVectorCache(s.mmapCachePath(name), dimension)
		if err != nil {
			return fmt.Errorf("vectorstore: opening mmap vector cache for %q: %w", name, err)
		}
		c.vecCache = cache
	}
	s.collections[name] = c
	if s.docStore != nil {
		if err := s.docStore.PutCollection(context.Background(), name, dimension, hybrid); err != nil {
			return err
		}
	}
	return nil
}

func (s *HNSWStore) mmapCachePath(name string) string {
	return filepath.Join(s.cfg.MmapCacheDir, name+".vec")
}

func (s *HNSWStore) DropCollection(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.collections[name]; ok {
		_ = c.highlight.close()
		if c.vecCache != nil {
			_ = c.vecCache.Close()
			_ = os.Remove(s.mmapCachePath(name))
		}
	}
	delete(s.collections, name)
	if s.docStore != nil {
		return s.docStore.DropCollection(ctx, name)
	}
	return nil
}

func (s *HNSWStore) HasCollection(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.collections[name]
	return ok, nil
}

func (s *HNSWStore) ListCollections(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.collections))
	for name := range s.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *HNSWStore) collection(name string) (*hnswCollection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.collections[name]
	if !ok {
		return nil, appErrors.New(appErrors.KindStoreError, "vectorstore: unknown collection").WithCollection(name)
	}
	return c, nil
}

func (s *HNSWStore) insert(collection string, docs []Document, requireSparse bool) error {
	return s.insertInternal(collection, docs, requireSparse, true)
}

// insertInternal is the shared body behind Insert/InsertHybrid and
// NewPersistentHNSWStore's rehydration path. persist is false only when
// called from rehydration, since those documents just came out of
// docStore and re-writing them there would be redundant.
func (s *HNSWStore) insertInternal(collection string, docs []Document, requireSparse, persist bool) error {
	if len(docs) == 0 {
		return nil
	}
	c, err := s.collection(collection)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, doc := range docs {
		if len(doc.Vector) != c.dim {
			return appErrors.New(appErrors.KindStoreError,
				fmt.Sprintf("vectorstore: dimension mismatch: expected %d, got %d", c.dim, len(doc.Vector))).
				WithCollection(collection)
		}
		if requireSparse && c.hybrid && len(doc.Sparse.Indices) == 0 {
			return appErrors.New(appErrors.KindStoreError,
				"vectorstore: insert_hybrid requires a sparse vector for hybrid collections").WithCollection(collection)
		}

		if existingKey, exists := c.idMap[doc.ID]; exists {
			delete(c.keyMap, existingKey)
			delete(c.idMap, doc.ID)
		}

		vec := make([]float32, len(doc.Vector))
		copy(vec, doc.Vector)
		normalizeInPlace(vec)

		key := c.nextKey
		c.nextKey++
		c.graph.Add(hnsw.MakeNode(key, vec))
		c.idMap[doc.ID] = key
		c.keyMap[key] = doc.ID
		c.docs[doc.ID] = doc
		if c.hybrid {
			c.highlight.put(doc.ID, doc.Content)
		}
		if c.vecCache != nil {
			if _, err := c.vecCache.Append(doc.Vector); err != nil {
				return fmt.Errorf("vectorstore: mirroring vector to mmap cache: %w", err)
			}
		}
	}

	if persist && s.docStore != nil {
		if err := s.docStore.PutDocuments(context.Background(), collection, docs); err != nil {
			return err
		}
	}
	return nil
}

func (s *HNSWStore) Insert(_ context.Context, collection string, docs []Document) error {
	return s.insert(collection, docs, false)
}

func (s *HNSWStore) InsertHybrid(_ context.Context, collection string, docs []Document) error {
	return s.insert(collection, docs, true)
}

// denseResult pairs a document id with its cosine distance to the query,
// mirroring the teacher's VectorResult shape.
type denseResult struct {
	id       string
	distance float32
}

// denseSearch returns up to k ids ranked by ascending cosine distance
// (most similar first).
func (c *hnswCollection) denseSearch(query []float32, k int) []denseResult {
	if c.graph.Len() == 0 {
		return nil
	}
	q := make([]float32, len(query))
	copy(q, query)
	normalizeInPlace(q)

	nodes := c.graph.Search(q, k)
	results := make([]denseResult, 0, len(nodes))
	for _, node := range nodes {
		id, ok := c.keyMap[node.Key]
		if !ok {
			continue
		}
		results = append(results, denseResult{id: id, distance: c.graph.Distance(q, node.Value)})
	}
	return results
}

func denseIDs(results []denseResult) []string {
	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.id
	}
	return ids
}

// sparseSearch scores every live document's sparse vector against query by
// dot product and returns up to k ids ranked descending. There is no
// approximate index for the sparse branch: collections stay small enough
// (one per codebase) for an exhaustive scan to be cheap.
func (c *hnswCollection) sparseSearch(query bm25.SparseVector, k int) []string {
	type scored struct {
		id    string
		score float64
	}
	queryWeights := make(map[int]float32, len(query.Indices))
	for i, idx := range query.Indices {
		queryWeights[idx] = query.Values[i]
	}

	var results []scored
	for id, doc := range c.docs {
		if len(doc.Sparse.Indices) == 0 {
			continue
		}
		var dot float64
		for i, idx := range doc.Sparse.Indices {
			if qw, ok := queryWeights[idx]; ok {
				dot += float64(qw) * float64(doc.Sparse.Values[i])
			}
		}
		if dot > 0 {
			results = append(results, scored{id: id, score: dot})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].id < results[j].id
	})
	if len(results) > k {
		results = results[:k]
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.id
	}
	return ids
}

func (s *HNSWStore) Search(_ context.Context, collection string, query []float32, limit int, filter string) ([]SearchResult, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	f, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if len(query) != c.dim {
		return nil, appErrors.New(appErrors.KindStoreError,
			fmt.Sprintf("vectorstore: dimension mismatch: expected %d, got %d", c.dim, len(query))).WithCollection(collection)
	}

	dense := c.denseSearch(query, limit*4) // overfetch to survive post-filtering
	results := make([]SearchResult, 0, limit)
	for _, d := range dense {
		doc := c.docs[d.id]
		if !f.Matches(doc) {
			continue
		}
		docCopy := doc
		results = append(results, SearchResult{ID: d.id, Score: cosineDistanceToScore(d.distance), Document: &docCopy})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func (s *HNSWStore) HybridSearch(_ context.Context, collection string, dense []float32, sparse bm25.SparseVector, limit int, filter string) ([]SearchResult, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	f, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.hybrid {
		return s.searchLocked(c, dense, limit, f)
	}

	prefetch := limit * 2
	denseResults := c.denseSearch(dense, prefetch)
	sparseIDs := c.sparseSearch(sparse, prefetch)
	fused := FuseRRF(denseIDs(denseResults), sparseIDs, DefaultRRFConstant)

	results := make([]SearchResult, 0, limit)
	for _, fr := range fused {
		doc, ok := c.docs[fr.ID]
		if !ok || !f.Matches(doc) {
			continue
		}
		docCopy := doc
		results = append(results, SearchResult{ID: fr.ID, Score: float32(fr.Score), Document: &docCopy})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func (s *HNSWStore) searchLocked(c *hnswCollection, query []float32, limit int, f *Filter) ([]SearchResult, error) {
	if len(query) != c.dim {
		return nil, appErrors.New(appErrors.KindStoreError,
			fmt.Sprintf("vectorstore: dimension mismatch: expected %d, got %d", c.dim, len(query)))
	}
	dense := c.denseSearch(query, limit*4)
	results := make([]SearchResult, 0, limit)
	for _, d := range dense {
		doc := c.docs[d.id]
		if !f.Matches(doc) {
			continue
		}
		docCopy := doc
		results = append(results, SearchResult{ID: d.id, Score: cosineDistanceToScore(d.distance), Document: &docCopy})
		if len(results) == limit {
			break
		}
	}
	return results, nil
}

func (s *HNSWStore) Query(_ context.Context, collection string, filter string, _ []string, limit int) ([]Document, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	f, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.docs))
	for id := range c.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	docs := make([]Document, 0, limit)
	for _, id := range ids {
		doc := c.docs[id]
		if !f.Matches(doc) {
			continue
		}
		docs = append(docs, doc)
		if len(docs) == limit {
			break
		}
	}
	return docs, nil
}

func (s *HNSWStore) Delete(ctx context.Context, collection string, ids []string) error {
	c, err := s.collection(collection)
	if err != nil {
		return err
	}
	c.mu.Lock()
	var deleted []string
	for _, id := range ids {
		if key, exists := c.idMap[id]; exists {
			// Lazy deletion: coder/hnsw has known issues deleting the last
			// node in a graph, so orphan the mapping instead of calling
			// graph.Delete.
			delete(c.keyMap, key)
			delete(c.idMap, id)
			delete(c.docs, id)
			if c.hybrid {
				c.highlight.remove(id)
			}
			deleted = append(deleted, id)
		}
	}
	c.mu.Unlock()

	if s.docStore != nil && len(deleted) > 0 {
		return s.docStore.DeleteDocuments(ctx, collection, deleted)
	}
	return nil
}

func (s *HNSWStore) CheckCollectionLimit(_ context.Context, collection string) (bool, error) {
	if s.cfg.MaxVectors <= 0 {
		return true, nil
	}
	c, err := s.collection(collection)
	if err != nil {
		return false, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.idMap) < s.cfg.MaxVectors, nil
}

// MatchedTerms is an optional capability beyond the VectorStore contract:
// for hybrid collections, it reports which of query's terms actually
// matched each of ids' content, using the collection's bleve companion
// index. pkg/searcher type-asserts for this to populate Result's
// highlighting field; backends that don't implement it (FAISS-family,
// pgvector) simply aren't asked.
func (s *HNSWStore) MatchedTerms(_ context.Context, collection, query string, ids []string) (map[string][]string, error) {
	c, err := s.collection(collection)
	if err != nil {
		return nil, err
	}
	c.mu.RLock()
	highlight := c.highlight
	c.mu.RUnlock()
	return highlight.matchedTerms(query, ids)
}

func (s *HNSWStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.collections {
		_ = c.highlight.close()
		if c.vecCache != nil {
			_ = c.vecCache.Close()
		}
	}
	s.collections = nil
	if s.docStore != nil {
		return s.docStore.Close()
	}
	return nil
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// cosineDistanceToScore converts a cosine distance (0 identical, 2 opposite)
// into a similarity score in [0, 1].
func cosineDistanceToScore(distance float32) float32 {
	return 1.0 - distance/2.0
}
