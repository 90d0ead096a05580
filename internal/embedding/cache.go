package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/maypok86/otter"
)

// CacheMaxWeight bounds the cached provider's memory footprint. A 384-dim
// float32 vector is 1536 bytes; this budget holds roughly 200k distinct
// chunk texts before eviction kicks in.
const CacheMaxWeight = 300 * 1024 * 1024

// CachedProvider wraps a Provider with a weight-based LRU keyed by
// (mode, text) hash, so identical chunk text embedded more than once
// within a process run — repeated license headers, vendored copies,
// boilerplate imports — is embedded once.
type CachedProvider struct {
	inner Provider
	cache otter.Cache[string, []float32]
}

// NewCachedProvider builds a CachedProvider around inner with the default
// weight budget.
func NewCachedProvider(inner Provider) (*CachedProvider, error) {
	cache, err := otter.MustBuilder[string, []float32](CacheMaxWeight).
		Cost(func(key string, value []float32) uint32 {
			return uint32(len(value)*4 + len(key))
		}).
		CollectStats().
		Build()
	if err != nil {
		return nil, fmt.Errorf("embedding: build cache: %w", err)
	}
	return &CachedProvider{inner: inner, cache: cache}, nil
}

func (c *CachedProvider) Dimensions() int { return c.inner.Dimensions() }

// Inner returns the wrapped Provider, for callers (tests, diagnostics)
// that need to inspect which concrete provider backs the cache.
func (c *CachedProvider) Inner() Provider { return c.inner }

func (c *CachedProvider) Close() error {
	c.cache.Close()
	return c.inner.Close()
}

// Embed returns cached vectors for texts seen before under the same mode
// and delegates the rest to inner, populating the cache with whatever it
// returns (including nils for failed slots, which are never cached since
// a transient failure should not poison future attempts).
func (c *CachedProvider) Embed(ctx context.Context, texts []string, mode Mode) ([][]float32, error) {
	out := make([][]float32, len(texts))
	keys := make([]string, len(texts))
	var missIdx []int
	var missTexts []string

	for i, text := range texts {
		key := cacheKey(mode, text)
		keys[i] = key
		if v, ok := c.cache.Get(key); ok {
			out[i] = v
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := c.inner.Embed(ctx, missTexts, mode)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(missTexts) {
		return nil, fmt.Errorf("embedding: cached provider got %d vectors for %d misses", len(vectors), len(missTexts))
	}

	for j, idx := range missIdx {
		out[idx] = vectors[j]
		if vectors[j] != nil {
			c.cache.Set(keys[idx], vectors[j])
		}
	}
	return out, nil
}

func cacheKey(mode Mode, text string) string {
	sum := sha256.Sum256([]byte(string(mode) + "\x00" + text))
	return hex.EncodeToString(sum[:])
}
