package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickcecere/lrag/internal/embeddings"
	"github.com/nickcecere/lrag/internal/source"
	"github.com/nickcecere/lrag/internal/store"
)

type fixture struct {
	repo   *Repository
	mock   *embeddings.MockEmbedder
	facade *embeddings.Facade
	root   string
}

func setup(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()

	mock := embeddings.NewMockEmbedder(32)
	facade := embeddings.NewFacade()
	facade.Attach(mock)

	repo, err := New(root, facade, Options{
		ChunkTargetChars:  300,
		ChunkOverlapChars: 100,
	})
	require.NoError(t, err)

	return &fixture{repo: repo, mock: mock, facade: facade, root: root}
}

func docBody(topic string) string {
	var b strings.Builder
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, "Section %d of this document explains %s in careful detail with several supporting facts. ", i, topic)
	}
	return b.String()
}

func (fx *fixture) addDoc(t *testing.T, name, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	src, err := source.NewFile(path)
	require.NoError(t, err)
	require.NoError(t, fx.repo.AddDocuments(context.Background(), []source.Source{src}))
	fx.repo.WaitForIndexing()

	for _, rec := range fx.repo.SnapshotDocs() {
		if rec.Name == name {
			return rec.DocID
		}
	}
	t.Fatalf("document %s not found after indexing", name)
	return ""
}

func TestAddDocumentReachesReady(t *testing.T) {
	fx := setup(t)
	id := fx.addDoc(t, "alpha.txt", docBody("alpha particles"))

	docs := fx.repo.SnapshotDocs()
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0].DocID)
	assert.Equal(t, store.StatusReady, docs[0].Status)

	stats, err := fx.repo.Store().DocStats(id)
	require.NoError(t, err)
	assert.Greater(t, stats.ChunkCount, 0)
	assert.Zero(t, stats.EmbeddingBytes%int64(stats.ChunkCount*4))
}

func TestAddDocumentFailedGate(t *testing.T) {
	fx := setup(t)
	id := fx.addDoc(t, "short.txt", "too short to index")

	docs := fx.repo.SnapshotDocs()
	require.Len(t, docs, 1)
	assert.Equal(t, id, docs[0].DocID)
	assert.Equal(t, store.StatusFailed, docs[0].Status)
	assert.Contains(t, docs[0].Error, "short")
}

func TestRetrieveReturnsHits(t *testing.T) {
	fx := setup(t)
	fx.addDoc(t, "doc.txt", docBody("solar panel efficiency"))

	hits, err := fx.repo.Retrieve(context.Background(), "solar panel efficiency", 5, -1, "")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.LessOrEqual(t, len(hits), 5)

	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
	assert.Equal(t, "doc.txt", hits[0].DocName)
}

func TestRetrieveEmptyQuery(t *testing.T) {
	fx := setup(t)
	fx.addDoc(t, "doc.txt", docBody("anything"))

	hits, err := fx.repo.Retrieve(context.Background(), "   ", 5, 0, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestRetrieveDeterministic(t *testing.T) {
	fx := setup(t)
	fx.addDoc(t, "a.txt", docBody("first topic"))
	fx.addDoc(t, "b.txt", docBody("second topic"))

	first, err := fx.repo.Retrieve(context.Background(), "topic details", 8, -1, "")
	require.NoError(t, err)
	second, err := fx.repo.Retrieve(context.Background(), "topic details", 8, -1, "")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestRetrieveFilterByDoc(t *testing.T) {
	fx := setup(t)
	aID := fx.addDoc(t, "a.txt", docBody("alpha subject"))
	fx.addDoc(t, "b.txt", docBody("beta subject"))

	hits, err := fx.repo.Retrieve(context.Background(), "subject", 10, -1, aID)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	for _, h := range hits {
		assert.Equal(t, aID, h.DocID)
	}
}

func TestRetrieveExcludesDimensionMismatch(t *testing.T) {
	fx := setup(t)
	goodID := fx.addDoc(t, "good.txt", docBody("matching dimensions"))

	// Re-attach with a different dimension and index another doc.
	other := embeddings.NewMockEmbedder(64)
	fx.facade.Attach(other)
	mismatchID := fx.addDoc(t, "mismatch.txt", docBody("other dimensions"))

	// Query embeds at 64 dims now: only the 64-dim doc qualifies.
	hits, err := fx.repo.Retrieve(context.Background(), "dimensions", 10, -1, "")
	require.NoError(t, err)
	for _, h := range hits {
		assert.Equal(t, mismatchID, h.DocID)
		assert.NotEqual(t, goodID, h.DocID)
	}
	assert.NotEmpty(t, hits)
}

func TestRemoveDocumentIdempotent(t *testing.T) {
	fx := setup(t)
	id := fx.addDoc(t, "doc.txt", docBody("to be removed"))

	require.NoError(t, fx.repo.RemoveDocument(context.Background(), id))
	assert.Empty(t, fx.repo.SnapshotDocs())

	// Second removal succeeds.
	require.NoError(t, fx.repo.RemoveDocument(context.Background(), id))
}

func TestClearAll(t *testing.T) {
	fx := setup(t)
	fx.addDoc(t, "a.txt", docBody("one"))
	fx.addDoc(t, "b.txt", docBody("two"))

	require.NoError(t, fx.repo.ClearAll(context.Background()))
	assert.Empty(t, fx.repo.SnapshotDocs())
}

func TestFallbackTopChunks(t *testing.T) {
	fx := setup(t)
	id := fx.addDoc(t, "doc.txt", docBody("fallback content"))

	hits, err := fx.repo.FallbackTopChunks(id, 3)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.LessOrEqual(t, len(hits), 3)
	for i, h := range hits {
		assert.Equal(t, i, h.ChunkIndex)
		assert.Equal(t, 1.0, h.Score)
	}
}

func TestCacheRefreshOnRewrite(t *testing.T) {
	fx := setup(t)
	id := fx.addDoc(t, "doc.txt", docBody("cache coherency"))

	_, err := fx.repo.Retrieve(context.Background(), "cache coherency", 5, -1, "")
	require.NoError(t, err)

	// Rewrite the chunk text on disk behind the cache's back, moving the
	// mtime, and confirm retrieval reflects the new content.
	chunks, err := fx.repo.Store().ReadChunks(id)
	require.NoError(t, err)
	time.Sleep(10 * time.Millisecond)
	for i := range chunks {
		chunks[i].Text = "REPLACED " + chunks[i].Text
	}
	require.NoError(t, fx.repo.Store().WriteChunks(id, chunks))

	hits, err := fx.repo.Retrieve(context.Background(), "cache coherency", 5, -1, "")
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.True(t, strings.HasPrefix(hits[0].Text, "REPLACED "))
}

func TestObserveDocsEmitsOnChange(t *testing.T) {
	fx := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := fx.repo.ObserveDocs(ctx, 20*time.Millisecond)

	fx.addDoc(t, "doc.txt", docBody("observed"))

	select {
	case docs := <-ch:
		require.NotEmpty(t, docs)
		assert.Equal(t, "doc.txt", docs[0].Name)
	case <-time.After(3 * time.Second):
		t.Fatal("no snapshot emitted after indexing")
	}
}
