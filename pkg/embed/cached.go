package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the number of unique embeddings a CachedClient
// keeps in memory when no explicit size is given.
const DefaultCacheSize = 1000

// CachedClient wraps a Client with an LRU cache keyed on text content, so
// repeated queries (a common pattern for interactive search) skip the
// underlying embedding call entirely.
type CachedClient struct {
	inner Client
	cache *lru.Cache[string, []float32]
}

var _ Client = (*CachedClient)(nil)

// NewCachedClient wraps inner with an LRU cache of the given size. A
// non-positive size falls back to DefaultCacheSize.
func NewCachedClient(inner Client, cacheSize int) *CachedClient {
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	cache, _ := lru.New[string, []float32](cacheSize)
	return &CachedClient{inner: inner, cache: cache}
}

func (c *CachedClient) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%d\x00%s", c.inner.Dimension(), text)))
	return hex.EncodeToString(sum[:])
}

// Embed implements Client.
func (c *CachedClient) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.cacheKey(text)
	if vec, ok := c.cache.Get(key); ok {
		return vec, nil
	}

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, vec)
	return vec, nil
}

// EmbedBatch implements Client, checking the cache per text and only
// forwarding cache misses to the inner client, in order.
func (c *CachedClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	results := make([][]float32, len(texts))
	var missIndices []int
	var missTexts []string

	for i, text := range texts {
		key := c.cacheKey(text)
		if vec, ok := c.cache.Get(key); ok {
			results[i] = vec
			continue
		}
		missIndices = append(missIndices, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return results, nil
	}

	fresh, err := c.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}

	for j, idx := range missIndices {
		results[idx] = fresh[j]
		c.cache.Add(c.cacheKey(texts[idx]), fresh[j])
	}
	return results, nil
}

// Dimension implements Client.
func (c *CachedClient) Dimension() int { return c.inner.Dimension() }

// Close implements Client, closing the wrapped client.
func (c *CachedClient) Close() error { return c.inner.Close() }
