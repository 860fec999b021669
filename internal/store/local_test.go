package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nickcecere/lrag/internal/vecmath"
)

func setupTestStore(t *testing.T) *Local {
	t.Helper()
	s, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	return s
}

func sampleRecord(id string, createdAt int64) *DocRecord {
	return &DocRecord{
		DocID:     id,
		URI:       "file:///tmp/" + id + ".txt",
		Name:      id + ".txt",
		MIME:      "text/plain",
		SizeBytes: 1234,
		CreatedAt: createdAt,
		Status:    StatusIndexing,
	}
}

func TestMetaRoundTrip(t *testing.T) {
	s := setupTestStore(t)

	rec := sampleRecord("doc-1", 1000)
	require.NoError(t, s.WriteMeta(rec))

	got, err := s.ReadMeta("doc-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// meta.json is pretty-printed.
	data, err := os.ReadFile(filepath.Join(s.DocDir("doc-1"), "meta.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"docId\"")
}

func TestChunksRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.WriteMeta(sampleRecord("doc-1", 1000)))

	chunks := []ChunkRecord{
		{ChunkID: "c0", ChunkIndex: 0, Text: "first chunk\nwith newline"},
		{ChunkID: "c1", ChunkIndex: 1, Text: "second chunk"},
	}
	require.NoError(t, s.WriteChunks("doc-1", chunks))

	got, err := s.ReadChunks("doc-1")
	require.NoError(t, err)
	assert.Equal(t, chunks, got)
}

func TestEmbeddingsRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.WriteMeta(sampleRecord("doc-1", 1000)))

	packed := append(vecmath.Pack([]float32{1, 2, 3}), vecmath.Pack([]float32{4, 5, 6})...)
	require.NoError(t, s.WriteEmbeddings("doc-1", packed))

	got, err := s.ReadEmbeddingsRaw("doc-1")
	require.NoError(t, err)
	assert.Equal(t, packed, got)
}

func TestAtomicWriteLeavesNoTemp(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.WriteMeta(sampleRecord("doc-1", 1000)))

	entries, err := os.ReadDir(s.DocDir("doc-1"))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestListDocsSortedNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.WriteMeta(sampleRecord("old", 1000)))
	require.NoError(t, s.WriteMeta(sampleRecord("mid", 2000)))
	require.NoError(t, s.WriteMeta(sampleRecord("new", 3000)))

	docs := s.ListDocs()
	require.Len(t, docs, 3)
	assert.Equal(t, "new", docs[0].DocID)
	assert.Equal(t, "mid", docs[1].DocID)
	assert.Equal(t, "old", docs[2].DocID)
}

func TestListDocsSkipsUnreadable(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.WriteMeta(sampleRecord("good", 1000)))

	// A folder with corrupt meta must be skipped, not raised.
	badDir := s.DocDir("bad")
	require.NoError(t, os.MkdirAll(badDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(badDir, "meta.json"), []byte("{not json"), 0o644))

	// A folder with no meta at all.
	require.NoError(t, os.MkdirAll(s.DocDir("empty"), 0o755))

	docs := s.ListDocs()
	require.Len(t, docs, 1)
	assert.Equal(t, "good", docs[0].DocID)
}

func TestDocStats(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.WriteMeta(sampleRecord("doc-1", 1000)))

	chunks := []ChunkRecord{
		{ChunkID: "c0", ChunkIndex: 0, Text: "a"},
		{ChunkID: "c1", ChunkIndex: 1, Text: "b"},
	}
	require.NoError(t, s.WriteChunks("doc-1", chunks))
	require.NoError(t, s.WriteEmbeddings("doc-1", make([]byte, 2*3*4))) // two 3-dim vectors

	stats, err := s.DocStats("doc-1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ChunkCount)
	assert.Equal(t, int64(24), stats.EmbeddingBytes)
	assert.Equal(t, int64(12), stats.BytesPerVector())
	assert.Greater(t, stats.TotalBytes, stats.EmbeddingBytes)
}

func TestBytesPerVectorCorruption(t *testing.T) {
	stats := &DocStats{ChunkCount: 3, EmbeddingBytes: 25}
	assert.Equal(t, int64(0), stats.BytesPerVector())

	stats = &DocStats{ChunkCount: 0, EmbeddingBytes: 100}
	assert.Equal(t, int64(0), stats.BytesPerVector())
}

func TestDeleteDocIdempotent(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.WriteMeta(sampleRecord("doc-1", 1000)))

	require.NoError(t, s.DeleteDoc("doc-1"))
	_, err := os.Stat(s.DocDir("doc-1"))
	assert.True(t, os.IsNotExist(err))

	// Second delete succeeds.
	require.NoError(t, s.DeleteDoc("doc-1"))
}

func TestDeleteAll(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.WriteMeta(sampleRecord("a", 1)))
	require.NoError(t, s.WriteMeta(sampleRecord("b", 2)))

	require.NoError(t, s.DeleteAll())
	assert.Empty(t, s.ListDocs())
}

func TestFileMTimes(t *testing.T) {
	s := setupTestStore(t)
	require.NoError(t, s.WriteMeta(sampleRecord("doc-1", 1000)))
	require.NoError(t, s.WriteChunks("doc-1", []ChunkRecord{{ChunkID: "c0"}}))
	require.NoError(t, s.WriteEmbeddings("doc-1", make([]byte, 4)))

	c1, e1, err := s.FileMTimes("doc-1")
	require.NoError(t, err)
	assert.False(t, c1.IsZero())
	assert.False(t, e1.IsZero())

	// Rewriting embeddings must move its mtime forward.
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, s.WriteEmbeddings("doc-1", make([]byte, 8)))
	_, e2, err := s.FileMTimes("doc-1")
	require.NoError(t, err)
	assert.True(t, e2.After(e1))
}

func TestCrashSafetyTmpDiscarded(t *testing.T) {
	s := setupTestStore(t)
	rec := sampleRecord("doc-1", 1000)
	require.NoError(t, s.WriteMeta(rec))

	// Simulate a crash mid-write: a stale .tmp next to valid data.
	tmp := filepath.Join(s.DocDir("doc-1"), "embeddings.bin.tmp")
	require.NoError(t, os.WriteFile(tmp, []byte("partial"), 0o644))

	// The record still reads as INDEXING and re-running the write
	// replaces everything cleanly.
	got, err := s.ReadMeta("doc-1")
	require.NoError(t, err)
	assert.Equal(t, StatusIndexing, got.Status)

	require.NoError(t, s.WriteEmbeddings("doc-1", make([]byte, 16)))
	data, err := s.ReadEmbeddingsRaw("doc-1")
	require.NoError(t, err)
	assert.Len(t, data, 16)
}
