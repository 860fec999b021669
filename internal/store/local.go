package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/charmbracelet/log"
)

// File names inside a document folder.
const (
	metaFile       = "meta.json"
	chunksFile     = "chunks.jsonl"
	embeddingsFile = "embeddings.bin"
)

// Local is the on-disk document store. It is the only writer to each
// document folder; callers serialize writers per docID.
type Local struct {
	root string
}

// NewLocal opens (creating if needed) a store rooted at root.
func NewLocal(root string) (*Local, error) {
	s := &Local{root: root}
	if err := os.MkdirAll(s.DocsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("creating docs dir: %w", err)
	}
	return s, nil
}

// Root returns the store root directory.
func (s *Local) Root() string { return s.root }

// DocsDir returns the directory holding all document folders.
func (s *Local) DocsDir() string { return filepath.Join(s.root, "rag", "docs") }

// DocDir returns one document's folder.
func (s *Local) DocDir(docID string) string { return filepath.Join(s.DocsDir(), docID) }

// WriteMeta atomically persists a document record as pretty-printed JSON,
// creating the folder on first write.
func (s *Local) WriteMeta(rec *DocRecord) error {
	if rec.DocID == "" {
		return fmt.Errorf("doc record missing id")
	}
	dir := s.DocDir(rec.DocID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating doc dir: %w", err)
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding meta: %w", err)
	}
	return writeFileAtomic(filepath.Join(dir, metaFile), data)
}

// ReadMeta loads a document record.
func (s *Local) ReadMeta(docID string) (*DocRecord, error) {
	data, err := os.ReadFile(filepath.Join(s.DocDir(docID), metaFile))
	if err != nil {
		return nil, fmt.Errorf("reading meta: %w", err)
	}
	var rec DocRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decoding meta: %w", err)
	}
	return &rec, nil
}

// WriteChunks atomically persists the chunk list as JSONL.
func (s *Local) WriteChunks(docID string, chunks []ChunkRecord) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, c := range chunks {
		if err := enc.Encode(c); err != nil {
			return fmt.Errorf("encoding chunk %d: %w", c.ChunkIndex, err)
		}
	}
	return writeFileAtomic(filepath.Join(s.DocDir(docID), chunksFile), buf.Bytes())
}

// ReadChunks loads all chunks in file order.
func (s *Local) ReadChunks(docID string) ([]ChunkRecord, error) {
	f, err := os.Open(filepath.Join(s.DocDir(docID), chunksFile))
	if err != nil {
		return nil, fmt.Errorf("opening chunks: %w", err)
	}
	defer f.Close()

	var chunks []ChunkRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var c ChunkRecord
		if err := json.Unmarshal(line, &c); err != nil {
			return nil, fmt.Errorf("decoding chunk line %d: %w", len(chunks), err)
		}
		chunks = append(chunks, c)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading chunks: %w", err)
	}
	return chunks, nil
}

// WriteEmbeddings atomically persists the packed vector bytes.
func (s *Local) WriteEmbeddings(docID string, packed []byte) error {
	return writeFileAtomic(filepath.Join(s.DocDir(docID), embeddingsFile), packed)
}

// ReadEmbeddingsRaw loads the packed vector bytes.
func (s *Local) ReadEmbeddingsRaw(docID string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.DocDir(docID), embeddingsFile))
	if err != nil {
		return nil, fmt.Errorf("reading embeddings: %w", err)
	}
	return data, nil
}

// FileMTimes returns the last-modified times of chunks.jsonl and
// embeddings.bin, used for cache coherency.
func (s *Local) FileMTimes(docID string) (chunksMTime, embMTime time.Time, err error) {
	dir := s.DocDir(docID)
	ci, err := os.Stat(filepath.Join(dir, chunksFile))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("stat chunks: %w", err)
	}
	ei, err := os.Stat(filepath.Join(dir, embeddingsFile))
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("stat embeddings: %w", err)
	}
	return ci.ModTime(), ei.ModTime(), nil
}

// ListDocs returns every readable document record sorted by creation
// time, newest first. Unreadable folders are skipped with a warning.
func (s *Local) ListDocs() []DocRecord {
	entries, err := os.ReadDir(s.DocsDir())
	if err != nil {
		log.Warn("Failed to enumerate docs dir", "error", err)
		return nil
	}

	var docs []DocRecord
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		rec, err := s.ReadMeta(entry.Name())
		if err != nil {
			log.Warn("Skipping unreadable doc folder", "doc", entry.Name(), "error", err)
			continue
		}
		docs = append(docs, *rec)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt > docs[j].CreatedAt
	})
	return docs
}

// DocStats reports a document's chunk count and on-disk byte sizes.
func (s *Local) DocStats(docID string) (*DocStats, error) {
	chunks, err := s.ReadChunks(docID)
	if err != nil {
		return nil, err
	}

	dir := s.DocDir(docID)
	stats := &DocStats{ChunkCount: len(chunks)}
	for _, name := range []string{metaFile, chunksFile, embeddingsFile} {
		info, err := os.Stat(filepath.Join(dir, name))
		if err != nil {
			continue
		}
		stats.TotalBytes += info.Size()
		if name == embeddingsFile {
			stats.EmbeddingBytes = info.Size()
		}
	}
	return stats, nil
}

// DeleteDoc removes a document folder recursively. Deleting a missing
// document is not an error.
func (s *Local) DeleteDoc(docID string) error {
	if docID == "" {
		return fmt.Errorf("empty doc id")
	}
	return os.RemoveAll(s.DocDir(docID))
}

// DeleteAll removes every document folder.
func (s *Local) DeleteAll() error {
	entries, err := os.ReadDir(s.DocsDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("enumerating docs dir: %w", err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(s.DocsDir(), entry.Name())); err != nil {
			return fmt.Errorf("removing %s: %w", entry.Name(), err)
		}
	}
	return nil
}
