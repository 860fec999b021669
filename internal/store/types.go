// Package store persists indexed documents on disk. Each document owns a
// folder under <root>/rag/docs/<docID>/ holding meta.json (the document
// record), chunks.jsonl (one chunk per line) and embeddings.bin (packed
// little-endian float32 vectors, no header).
package store

// Status is the lifecycle state of an indexed document. Transitions are
// monotonic: INDEXING moves to READY or FAILED and never back.
type Status string

const (
	StatusIndexing Status = "INDEXING"
	StatusReady    Status = "READY"
	StatusFailed   Status = "FAILED"
)

// DocRecord is the persisted metadata for one user document.
type DocRecord struct {
	DocID     string `json:"docId"`
	URI       string `json:"uri"`
	Name      string `json:"name"`
	MIME      string `json:"mime"`
	SizeBytes int64  `json:"sizeBytes"`
	CreatedAt int64  `json:"createdAt"` // unix milliseconds
	Status    Status `json:"status"`
	Error     string `json:"error,omitempty"`

	// EmbeddingDim is recorded once the document reaches READY. Folders
	// written by older builds may omit it; readers then infer the
	// dimension from file sizes.
	EmbeddingDim int `json:"embeddingDim,omitempty"`
}

// ChunkRecord is one line of chunks.jsonl. ChunkIndex values are dense
// 0..N-1 and match vector order in embeddings.bin.
type ChunkRecord struct {
	ChunkID    string `json:"chunkId"`
	ChunkIndex int    `json:"chunkIndex"`
	Text       string `json:"text"`
}

// DocStats summarizes a document folder's on-disk footprint.
type DocStats struct {
	ChunkCount     int
	EmbeddingBytes int64
	TotalBytes     int64
}

// BytesPerVector returns the per-vector byte width, or 0 when the folder
// is empty or inconsistent (embedding bytes not divisible by the chunk
// count). A zero return with a non-zero chunk count marks corruption.
func (s *DocStats) BytesPerVector() int64 {
	if s.ChunkCount == 0 {
		return 0
	}
	if s.EmbeddingBytes%int64(s.ChunkCount) != 0 {
		return 0
	}
	return s.EmbeddingBytes / int64(s.ChunkCount)
}
