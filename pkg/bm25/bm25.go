// Package bm25 implements a pure in-memory BM25 ranking model: learn a
// vocabulary and document statistics from a corpus, then score arbitrary
// text against that vocabulary. Model state round-trips bit-exactly
// through JSON so an indexer can persist and reload it.
package bm25

import (
	"math"
	"sort"
	"sync"

	"github.com/aman-cerp/codesearch/internal/errors"
)

// DefaultCodeStopWords is an opt-in list of common code-body tokens. New
// does not apply it; a Model built with WithStopWords(DefaultCodeStopWords)
// filters these tokens out of both training and query tokenization.
var DefaultCodeStopWords = []string{
	"var", "let", "const", "func", "function", "def", "class",
	"return", "if", "else", "for", "while",
	"data", "result", "value", "item", "key", "err", "ctx", "tmp",
}

// Option configures a Model at construction time.
type Option func(*Model)

// WithK1 sets the term-frequency saturation parameter (default 1.2).
func WithK1(k1 float64) Option { return func(m *Model) { m.k1 = k1 } }

// WithB sets the length-normalization parameter (default 0.75).
func WithB(b float64) Option { return func(m *Model) { m.b = b } }

// WithMinTermLen sets the minimum token length retained by the tokenizer
// (default 2).
func WithMinTermLen(n int) Option { return func(m *Model) { m.minTermLen = n } }

// WithStopWords sets the stop-word list (empty by default). Pass
// DefaultCodeStopWords to opt into filtering common code-body tokens.
func WithStopWords(words []string) Option {
	return func(m *Model) { m.stopWords = append([]string(nil), words...) }
}

// Model is a trained (or untrained) BM25 ranking model.
type Model struct {
	mu sync.RWMutex

	k1         float64
	b          float64
	minTermLen int
	stopWords  []string
	stopWordSet map[string]struct{}

	trained      bool
	vocabulary   map[string]int // term -> vocab index
	vocabTerms   []string       // vocab index -> term
	idf          []float32      // vocab index -> idf
	avgDocLength float32
}

// New builds an untrained Model with the given options applied over the
// defaults: k1=1.2, b=0.75, minTermLen=2, and an empty stop-word list.
// The stop-word list is empty by default (not DefaultCodeStopWords) to
// preserve upstream behavior; pass WithStopWords(DefaultCodeStopWords) to
// opt into filtering common code-body tokens.
func New(opts ...Option) *Model {
	m := &Model{
		k1:         1.2,
		b:          0.75,
		minTermLen: 2,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.stopWordSet = buildStopWordSet(m.stopWords)
	return m
}

func buildStopWordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Trained reports whether Learn has successfully built a vocabulary.
func (m *Model) Trained() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.trained
}

// Stats summarizes the trained model.
type Stats struct {
	VocabularySize int
	AvgDocLength   float32
}

// Stats returns the model's current statistics. Zero-valued if untrained.
func (m *Model) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{VocabularySize: len(m.vocabTerms), AvgDocLength: m.avgDocLength}
}

// Learn rebuilds the model from scratch over corpus, discarding any prior
// state. Fails with errors.EmptyCorpus if corpus yields zero documents.
func (m *Model) Learn(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New(errors.KindEmptyCorpus, "bm25: corpus must contain at least one document")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	df := map[string]int{}          // document frequency per term
	docTokenCounts := make([]int, len(corpus))
	vocabulary := map[string]int{}
	var vocabTerms []string

	for i, doc := range corpus {
		tokens := m.tokenize(doc)
		docTokenCounts[i] = len(tokens)

		seen := map[string]struct{}{}
		for _, t := range tokens {
			if _, ok := vocabulary[t]; !ok {
				vocabulary[t] = len(vocabTerms)
				vocabTerms = append(vocabTerms, t)
			}
			seen[t] = struct{}{}
		}
		for t := range seen {
			df[t]++
		}
	}

	n := float64(len(corpus))
	idf := make([]float32, len(vocabTerms))
	for term, index := range vocabulary {
		docFreq := float64(df[term])
		idf[index] = float32(math.Log((n - docFreq + 0.5) / (docFreq + 0.5)))
	}

	var totalTokens int
	for _, c := range docTokenCounts {
		totalTokens += c
	}

	m.vocabulary = vocabulary
	m.vocabTerms = vocabTerms
	m.idf = idf
	m.avgDocLength = float32(float64(totalTokens) / n)
	m.trained = true

	return nil
}

// GenerateOptions configures Generate.
type GenerateOptions struct {
	MaxTerms  int     // keep only the top MaxTerms scoring terms; 0 means no limit
	MinScore  float64 // drop terms scoring at or below this value
	Normalize bool    // L2-normalize the resulting score vector
}

// SparseVector is a sorted-by-index sparse BM25 score vector: Indices[i]
// is the vocabulary index of Values[i].
type SparseVector struct {
	Indices []int
	Values  []float32
}

// Generate scores text's tokens against the trained vocabulary, per spec
// §4.3's BM25 formula. Fails with errors.NotTrained if Learn has not run.
func (m *Model) Generate(text string, opts GenerateOptions) (SparseVector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.trained {
		return SparseVector{}, errors.New(errors.KindNotTrained, "bm25: model has not been trained")
	}

	tokens := m.tokenize(text)
	tf := map[int]int{}
	for _, t := range tokens {
		idx, ok := m.vocabulary[t]
		if !ok {
			continue
		}
		tf[idx]++
	}

	docLength := float64(len(tokens))
	type scored struct {
		index int
		score float32
	}
	scores := make([]scored, 0, len(tf))
	for idx, freq := range tf {
		score := m.scoreTerm(idx, freq, docLength)
		if float64(score) <= opts.MinScore {
			continue
		}
		scores = append(scores, scored{index: idx, score: score})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].score != scores[j].score {
			return scores[i].score > scores[j].score
		}
		return scores[i].index < scores[j].index // stable tie-break: lower vocab index wins
	})

	if opts.MaxTerms > 0 && len(scores) > opts.MaxTerms {
		scores = scores[:opts.MaxTerms]
	}

	sort.Slice(scores, func(i, j int) bool { return scores[i].index < scores[j].index })

	vec := SparseVector{
		Indices: make([]int, len(scores)),
		Values:  make([]float32, len(scores)),
	}
	for i, s := range scores {
		vec.Indices[i] = s.index
		vec.Values[i] = s.score
	}

	if opts.Normalize {
		normalizeL2(vec.Values)
	}

	return vec, nil
}

func (m *Model) scoreTerm(vocabIndex, tf int, docLength float64) float32 {
	idf := float64(m.idf[vocabIndex])
	termFreq := float64(tf)
	avgLen := float64(m.avgDocLength)
	if avgLen == 0 {
		avgLen = 1
	}
	numerator := termFreq * (m.k1 + 1)
	denominator := termFreq + m.k1*(1-m.b+m.b*docLength/avgLen)
	return float32(idf * numerator / denominator)
}

func normalizeL2(values []float32) {
	var sumSquares float64
	for _, v := range values {
		sumSquares += float64(v) * float64(v)
	}
	if sumSquares == 0 {
		return
	}
	norm := math.Sqrt(sumSquares)
	for i, v := range values {
		values[i] = float32(float64(v) / norm)
	}
}
