// Package embeddings defines the embedding contract consumed by the
// indexing and retrieval pipelines, and the facade that manages model
// attachment, vector normalization and the query-side cache.
package embeddings

import (
	"context"
	"errors"
)

// Embedder maps text to a fixed-dimension float vector. Implementations
// wrap a locally loaded model; the dimension must stay constant for the
// lifetime of a store.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Failure kinds surfaced to callers.
var (
	ErrNotAttached     = errors.New("embedder not attached")
	ErrEmbeddingFailed = errors.New("embedding failed")
)
