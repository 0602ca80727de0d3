package embed

import (
	"context"
	"hash/fnv"
	"math"
	"regexp"
	"strings"
)

// StaticDimension is the vector width StaticClient produces.
const StaticDimension = 256

const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

var tokenPattern = regexp.MustCompile(`[a-zA-Z0-9]+`)

var staticStopWords = map[string]struct{}{
	"func": {}, "function": {}, "def": {}, "class": {}, "return": {},
	"import": {}, "const": {}, "var": {}, "let": {}, "int": {},
	"string": {}, "bool": {}, "void": {}, "true": {}, "false": {},
	"nil": {}, "null": {}, "this": {}, "self": {}, "new": {},
}

// StaticClient produces deterministic, hash-based embeddings with no
// network dependency: useful for offline development and tests where
// semantic quality doesn't matter but a stable dimension and reproducible
// output do.
type StaticClient struct{}

var _ Client = (*StaticClient)(nil)

// NewStaticClient returns a StaticClient.
func NewStaticClient() *StaticClient { return &StaticClient{} }

// Embed implements Client.
func (c *StaticClient) Embed(_ context.Context, text string) ([]float32, error) {
	text = PreprocessText(text)
	return normalizeVector(hashVector(text)), nil
}

// EmbedBatch implements Client.
func (c *StaticClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = vec
	}
	return vectors, nil
}

// Dimension implements Client.
func (c *StaticClient) Dimension() int { return StaticDimension }

// Close implements Client; StaticClient holds no resources.
func (c *StaticClient) Close() error { return nil }

func hashVector(text string) []float32 {
	vector := make([]float32, StaticDimension)

	for _, token := range filterStopWords(tokenPattern.FindAllString(strings.ToLower(text), -1)) {
		vector[hashToIndex(token)] += tokenWeight
	}

	normalized := strings.ToLower(text)
	for _, ngram := range extractNgrams(normalized, ngramSize) {
		vector[hashToIndex(ngram)] += ngramWeight
	}

	return vector
}

func filterStopWords(tokens []string) []string {
	filtered := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, stop := staticStopWords[t]; !stop {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

func extractNgrams(text string, n int) []string {
	if len(text) < n {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	ngrams := make([]string, 0, len(text)-n+1)
	for i := 0; i+n <= len(text); i++ {
		ngrams = append(ngrams, text[i:i+n])
	}
	return ngrams
}

func hashToIndex(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32() % StaticDimension)
}

func normalizeVector(v []float32) []float32 {
	var sumSquares float64
	for _, val := range v {
		sumSquares += float64(val) * float64(val)
	}
	magnitude := math.Sqrt(sumSquares)
	if magnitude == 0 {
		return v
	}
	normalized := make([]float32, len(v))
	for i, val := range v {
		normalized[i] = float32(float64(val) / magnitude)
	}
	return normalized
}
