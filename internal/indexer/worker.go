// Package indexer runs the per-document ingestion pipeline: extract,
// normalize, chunk, embed, persist. One worker owns one document at a
// time; the pool keys workers by document id.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nickcecere/lrag/internal/chunker"
	"github.com/nickcecere/lrag/internal/embeddings"
	"github.com/nickcecere/lrag/internal/extract"
	"github.com/nickcecere/lrag/internal/source"
	"github.com/nickcecere/lrag/internal/store"
	"github.com/nickcecere/lrag/internal/vecmath"
)

// Worker failure kinds beyond the extraction gates.
var (
	ErrEmbedderNotReady = errors.New("embedder not ready")
	ErrNoChunks         = errors.New("chunking produced no chunks")
	ErrDimMismatch      = errors.New("embedding dimension mismatch within document")
)

// maxErrorChars bounds the error string persisted into meta.json.
const maxErrorChars = 300

// Worker indexes documents into the store.
type Worker struct {
	store   *store.Local
	embed   *embeddings.Facade
	chunker *chunker.Chunker
	staging *source.Staging
}

// NewWorker creates a Worker.
func NewWorker(st *store.Local, embed *embeddings.Facade, ch *chunker.Chunker, staging *source.Staging) *Worker {
	return &Worker{store: st, embed: embed, chunker: ch, staging: staging}
}

// Index runs the full pipeline for one staged document. The record must
// already carry its identity fields; Index owns the status transitions.
// On success the record is READY on disk; on failure it is FAILED with a
// bounded error string. Cancellation is honored at stage boundaries and
// between embeddings, and leaves the record in INDEXING for the caller
// to delete or retry.
func (w *Worker) Index(ctx context.Context, rec *store.DocRecord, staged *source.StagedFile) error {
	rec.Status = store.StatusIndexing
	rec.Error = ""
	if err := w.store.WriteMeta(rec); err != nil {
		return fmt.Errorf("writing indexing meta: %w", err)
	}

	err := w.run(ctx, rec, staged)
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	rec.Status = store.StatusFailed
	rec.Error = boundedError(err)
	if metaErr := w.store.WriteMeta(rec); metaErr != nil {
		log.Warn("Failed to persist FAILED status", "doc", rec.DocID, "error", metaErr)
	}
	log.Warn("Indexing failed", "doc", rec.DocID, "name", rec.Name, "error", err)
	return err
}

func (w *Worker) run(ctx context.Context, rec *store.DocRecord, staged *source.StagedFile) error {
	start := time.Now()

	if !w.embed.Attached() {
		return ErrEmbedderNotReady
	}

	f, err := os.Open(staged.Path)
	if err != nil {
		return fmt.Errorf("opening staged file: %w", err)
	}
	raw, err := extract.Extract(f, staged.DisplayName, staged.MIME)
	f.Close()
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	text, err := extract.Prepare(raw)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	chunks := w.chunker.Chunk(text)
	if len(chunks) == 0 {
		return ErrNoChunks
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	records := make([]store.ChunkRecord, 0, len(chunks))
	var packed []byte
	dim := 0
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return err
		}
		vec, err := w.embed.Embed(ctx, c.Text)
		if err != nil {
			return err
		}
		if dim == 0 {
			dim = len(vec)
		} else if len(vec) != dim {
			return fmt.Errorf("%w: chunk %d produced %d, expected %d",
				ErrDimMismatch, c.Index, len(vec), dim)
		}
		packed = append(packed, vecmath.Pack(vec)...)
		records = append(records, store.ChunkRecord{
			ChunkID:    uuid.NewString(),
			ChunkIndex: c.Index,
			Text:       c.Text,
		})
	}

	if err := w.store.WriteChunks(rec.DocID, records); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := w.store.WriteEmbeddings(rec.DocID, packed); err != nil {
		return err
	}

	rec.Status = store.StatusReady
	rec.Error = ""
	rec.EmbeddingDim = dim
	if err := w.store.WriteMeta(rec); err != nil {
		return fmt.Errorf("writing ready meta: %w", err)
	}

	if w.staging != nil {
		w.staging.Remove(staged.Path)
	}

	log.Info("Document indexed",
		"doc", rec.DocID,
		"name", rec.Name,
		"chunks", len(records),
		"dim", dim,
		"duration", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

func boundedError(err error) string {
	msg := err.Error()
	if len(msg) > maxErrorChars {
		msg = msg[:maxErrorChars]
	}
	return msg
}
