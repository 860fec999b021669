package embeddings

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
)

// QueryCacheCapacity bounds the query-side embedding LRU.
const QueryCacheCapacity = 64

// queryKeyMaxLen bounds cache keys; queries longer than this share a key
// with their prefix, which is harmless for retrieval.
const queryKeyMaxLen = 256

// Facade wraps an Embedder with lazy attachment, L2 normalization and a
// bounded LRU for query embeddings. Chunk embeddings are computed once
// and persisted, so only the query side caches.
type Facade struct {
	mu       sync.Mutex
	embedder Embedder
	cache    *lruCache

	// callMu serializes calls into the underlying model. The native
	// context behind real embedders is not thread-safe.
	callMu sync.Mutex
}

// NewFacade creates an unattached facade.
func NewFacade() *Facade {
	return &Facade{cache: newLRUCache(QueryCacheCapacity)}
}

// Attach binds the underlying embedder. Re-attaching the same embedder
// is a no-op; attaching a different one clears the query cache.
func (f *Facade) Attach(e Embedder) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.embedder == e {
		return
	}
	f.embedder = e
	f.cache.clear()
}

// Detach releases the embedder and clears the query cache.
func (f *Facade) Detach() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedder = nil
	f.cache.clear()
}

// Attached reports whether an embedder is bound.
func (f *Facade) Attached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedder != nil
}

// Dimensions returns the attached embedder's vector dimension.
func (f *Facade) Dimensions() (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.embedder == nil {
		return 0, ErrNotAttached
	}
	return f.embedder.Dimensions(), nil
}

// Embed computes a unit-normalized embedding for document text. No
// caching: chunk vectors are persisted by the store.
func (f *Facade) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.embed(ctx, text)
}

// EmbedQuery computes a unit-normalized embedding for a query, consulting
// the LRU first. Returned slices are defensive copies.
func (f *Facade) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	key := queryKey(query)

	f.mu.Lock()
	if vec, ok := f.cache.get(key); ok {
		f.mu.Unlock()
		return vec, nil
	}
	f.mu.Unlock()

	vec, err := f.embed(ctx, query)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.cache.put(key, vec)
	f.mu.Unlock()
	return vec, nil
}

// ClearCache drops all cached query embeddings.
func (f *Facade) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.clear()
}

func (f *Facade) embed(ctx context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	embedder := f.embedder
	f.mu.Unlock()
	if embedder == nil {
		return nil, ErrNotAttached
	}

	f.callMu.Lock()
	vec, err := embedder.Embed(ctx, text)
	f.callMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbeddingFailed, err)
	}
	if len(vec) == 0 {
		return nil, fmt.Errorf("%w: empty vector", ErrEmbeddingFailed)
	}

	normalize(vec)
	return vec, nil
}

// normalize scales vec to unit L2 length in place. Vectors that are
// already unit length (within tolerance) are left untouched.
func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	norm := math.Sqrt(sum)
	if math.Abs(norm-1) < 1e-6 {
		return
	}
	if norm < 1e-12 {
		norm = 1e-12
	}
	inv := 1 / norm
	for i := range vec {
		vec[i] = float32(float64(vec[i]) * inv)
	}
}

func queryKey(query string) string {
	key := strings.ToLower(query)
	if len(key) > queryKeyMaxLen {
		key = key[:queryKeyMaxLen]
	}
	return key
}
