package embeddings

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vecNorm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func TestFacadeNotAttached(t *testing.T) {
	f := NewFacade()
	assert.False(t, f.Attached())

	_, err := f.Embed(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotAttached)

	_, err = f.EmbedQuery(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrNotAttached)

	_, err = f.Dimensions()
	assert.ErrorIs(t, err, ErrNotAttached)
}

func TestFacadeNormalizes(t *testing.T) {
	f := NewFacade()
	f.Attach(NewMockEmbedder(64))

	vec, err := f.Embed(context.Background(), "some chunk text")
	require.NoError(t, err)
	assert.Len(t, vec, 64)
	assert.InDelta(t, 1.0, vecNorm(vec), 1e-5)
}

func TestQueryCacheHit(t *testing.T) {
	mock := NewMockEmbedder(32)
	f := NewFacade()
	f.Attach(mock)

	first, err := f.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls())

	second, err := f.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	// Second call must not reach the model.
	assert.Equal(t, 1, mock.Calls())

	// Keys are case-insensitive.
	_, err = f.EmbedQuery(context.Background(), "HELLO")
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls())
}

func TestQueryCacheDefensiveCopy(t *testing.T) {
	f := NewFacade()
	f.Attach(NewMockEmbedder(16))

	first, err := f.EmbedQuery(context.Background(), "query")
	require.NoError(t, err)
	first[0] = 999

	second, err := f.EmbedQuery(context.Background(), "query")
	require.NoError(t, err)
	assert.NotEqual(t, float32(999), second[0])
}

func TestQueryCacheKeyTruncation(t *testing.T) {
	mock := NewMockEmbedder(16)
	f := NewFacade()
	f.Attach(mock)

	long := strings.Repeat("a", 300)
	_, err := f.EmbedQuery(context.Background(), long)
	require.NoError(t, err)

	// Same 256-char prefix shares a cache slot.
	_, err = f.EmbedQuery(context.Background(), long+"suffix")
	require.NoError(t, err)
	assert.Equal(t, 1, mock.Calls())
}

func TestDetachClearsCache(t *testing.T) {
	mock := NewMockEmbedder(16)
	f := NewFacade()
	f.Attach(mock)

	_, err := f.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	f.Detach()
	assert.False(t, f.Attached())

	f.Attach(mock)
	_, err = f.EmbedQuery(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.Calls())
}

func TestChunkEmbedNotCached(t *testing.T) {
	mock := NewMockEmbedder(16)
	f := NewFacade()
	f.Attach(mock)

	_, err := f.Embed(context.Background(), "chunk")
	require.NoError(t, err)
	_, err = f.Embed(context.Background(), "chunk")
	require.NoError(t, err)
	assert.Equal(t, 2, mock.Calls())
}

func TestEmbeddingFailureWrapped(t *testing.T) {
	mock := NewMockEmbedder(16)
	mock.FailWith(errors.New("native crash"))
	f := NewFacade()
	f.Attach(mock)

	_, err := f.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, ErrEmbeddingFailed)
	assert.Contains(t, err.Error(), "native crash")
}

func TestMockEmbedderDeterministic(t *testing.T) {
	m := NewMockEmbedder(48)
	a, err := m.Embed(context.Background(), "same input")
	require.NoError(t, err)
	b, err := m.Embed(context.Background(), "same input")
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := m.Embed(context.Background(), "different input")
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestLRUCacheEviction(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", []float32{1})
	c.put("b", []float32{2})
	c.put("c", []float32{3})
	assert.Equal(t, 2, c.len())

	_, ok := c.get("a")
	assert.False(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)

	// Recency: touching b keeps it over c.
	c.get("b")
	c.put("d", []float32{4})
	_, ok = c.get("c")
	assert.False(t, ok)
	_, ok = c.get("b")
	assert.True(t, ok)
}
