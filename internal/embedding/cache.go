package embedding

import (
	"container/list"
	"context"
	"sync"
)

// EmbeddingCache is an LRU cache for embeddings keyed by text.
type EmbeddingCache struct {
	capacity int
	cache    map[string]*list.Element
	lru      *list.List
	mu       sync.Mutex
}

type cacheEntry struct {
	key   string
	value []float32
}

// NewEmbeddingCache creates a new cache with the given capacity.
func NewEmbeddingCache(capacity int) *EmbeddingCache {
	return &EmbeddingCache{
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Get returns the cached embedding for key if present and marks it recently used.
func (c *EmbeddingCache) Get(key string) ([]float32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		return elem.Value.(*cacheEntry).value, true
	}
	return nil, false
}

// Set stores the embedding for key, evicting the oldest entry if at capacity.
func (c *EmbeddingCache) Set(key string, value []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.cache[key]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).value = value
		return
	}

	elem := c.lru.PushFront(&cacheEntry{key: key, value: value})
	c.cache[key] = elem

	if c.lru.Len() > c.capacity {
		if oldest := c.lru.Back(); oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).key)
		}
	}
}

// Len returns the number of cached entries.
func (c *EmbeddingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// CachedProvider serves repeated texts from an LRU cache and forwards only
// the distinct misses to the wrapped provider, in one call.
type CachedProvider struct {
	inner Provider
	cache *EmbeddingCache
}

// NewCachedProvider wraps inner with a cache of the given capacity.
func NewCachedProvider(inner Provider, capacity int) *CachedProvider {
	return &CachedProvider{inner: inner, cache: NewEmbeddingCache(capacity)}
}

// Embed returns cached vectors where possible. Vectors are only cached after
// the wrapped call succeeded and returned one vector per miss.
func (p *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var misses []string
	pending := make(map[string][]int)
	for i, t := range texts {
		if v, ok := p.cache.Get(t); ok {
			out[i] = v
			continue
		}
		if _, seen := pending[t]; !seen {
			misses = append(misses, t)
		}
		pending[t] = append(pending[t], i)
	}
	if len(misses) == 0 {
		return out, nil
	}

	vecs, err := p.inner.Embed(ctx, misses)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(misses) {
		return nil, decodeError(p.inner.Name(), "got %d vectors for %d inputs", len(vecs), len(misses))
	}
	for j, t := range misses {
		p.cache.Set(t, vecs[j])
		for _, i := range pending[t] {
			out[i] = vecs[j]
		}
	}
	return out, nil
}

// Dimensions returns the wrapped provider's dimension.
func (p *CachedProvider) Dimensions() int { return p.inner.Dimensions() }

// Name returns the wrapped provider's name.
func (p *CachedProvider) Name() string { return p.inner.Name() }

// Close closes the wrapped provider.
func (p *CachedProvider) Close() error { return p.inner.Close() }
