// Package rag is the public API of the retrieval engine: document
// lifecycle, similarity retrieval over the on-disk store, and context
// block assembly for prompt injection.
package rag

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/nickcecere/lrag/internal/chunker"
	"github.com/nickcecere/lrag/internal/embeddings"
	"github.com/nickcecere/lrag/internal/indexer"
	"github.com/nickcecere/lrag/internal/source"
	"github.com/nickcecere/lrag/internal/store"
)

// RetrievalHit is one scored chunk. Score is the dot product of the
// query and chunk vectors; both are unit length, so it equals cosine
// similarity in [-1, 1].
type RetrievalHit struct {
	DocID      string  `json:"docId"`
	DocName    string  `json:"docName"`
	ChunkID    string  `json:"chunkId"`
	ChunkIndex int     `json:"chunkIndex"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Options tunes the repository. Zero values fall back to defaults.
type Options struct {
	ChunkTargetChars    int
	ChunkOverlapChars   int
	TopK                int
	Threshold           float64
	DocCacheCapacity    int
	WorkerMaxConcurrent int
	StagingCapBytes     int64
}

// Defaults for Options.
const (
	DefaultTopK             = 8
	DefaultThreshold        = 0.05
	DefaultDocCacheCapacity = 8
)

func (o Options) withDefaults() Options {
	if o.ChunkTargetChars <= 0 {
		o.ChunkTargetChars = chunker.DefaultTargetChars
	}
	if o.ChunkOverlapChars <= 0 {
		o.ChunkOverlapChars = chunker.DefaultOverlapChars
	}
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.Threshold == 0 {
		o.Threshold = DefaultThreshold
	}
	if o.DocCacheCapacity <= 0 {
		o.DocCacheCapacity = DefaultDocCacheCapacity
	}
	if o.WorkerMaxConcurrent <= 0 {
		o.WorkerMaxConcurrent = indexer.DefaultMaxConcurrent()
	}
	return o
}

// Repository owns the store, the staging area, the worker pool and the
// retrieval cache. Construct one at startup and share it by reference.
type Repository struct {
	store   *store.Local
	embed   *embeddings.Facade
	staging *source.Staging
	pool    *indexer.Pool
	worker  *indexer.Worker
	cache   *docCache
	opts    Options
}

// New opens a repository rooted at root.
func New(root string, embed *embeddings.Facade, opts Options) (*Repository, error) {
	opts = opts.withDefaults()

	st, err := store.NewLocal(root)
	if err != nil {
		return nil, err
	}
	staging, err := source.NewStaging(root, opts.StagingCapBytes)
	if err != nil {
		return nil, err
	}

	ch := chunker.New(opts.ChunkTargetChars, opts.ChunkOverlapChars)
	return &Repository{
		store:   st,
		embed:   embed,
		staging: staging,
		pool:    indexer.NewPool(opts.WorkerMaxConcurrent),
		worker:  indexer.NewWorker(st, embed, ch, staging),
		cache:   newDocCache(opts.DocCacheCapacity),
		opts:    opts,
	}, nil
}

// Store exposes the underlying document store for read-only inspection.
func (r *Repository) Store() *store.Local { return r.store }

// AddDocuments stages each source, persists an INDEXING record and
// enqueues one background worker per document. Staging failures fail the
// individual source, not the batch.
func (r *Repository) AddDocuments(ctx context.Context, sources []source.Source) error {
	var firstErr error
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.addOne(ctx, src); err != nil {
			log.Warn("Failed to submit document", "name", src.DisplayName(), "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (r *Repository) addOne(ctx context.Context, src source.Source) error {
	staged, err := r.staging.Stage(src)
	if err != nil {
		return fmt.Errorf("staging %s: %w", src.DisplayName(), err)
	}

	uri := "file://" + staged.Path
	if fs, ok := src.(*source.FileSource); ok {
		uri = "file://" + fs.Path()
	}

	rec := &store.DocRecord{
		DocID:     uuid.NewString(),
		URI:       uri,
		Name:      staged.DisplayName,
		MIME:      staged.MIME,
		SizeBytes: staged.SizeBytes,
		CreatedAt: time.Now().UnixMilli(),
		Status:    store.StatusIndexing,
	}
	if err := r.store.WriteMeta(rec); err != nil {
		return fmt.Errorf("recording %s: %w", src.DisplayName(), err)
	}

	// Workers outlive the submitting call; they stop only via
	// RemoveDocument, ClearAll or pool shutdown.
	jobCtx := context.WithoutCancel(ctx)
	r.pool.Submit(jobCtx, rec.DocID, func(ctx context.Context) error {
		defer r.cache.invalidate(rec.DocID)
		return r.worker.Index(ctx, rec, staged)
	})

	log.Info("Document submitted", "doc", rec.DocID, "name", rec.Name)
	return nil
}

// RemoveDocument cancels any in-flight worker, deletes the folder and
// invalidates the cache entry. Removing an unknown id succeeds.
func (r *Repository) RemoveDocument(_ context.Context, docID string) error {
	r.pool.Cancel(docID)
	if err := r.store.DeleteDoc(docID); err != nil {
		return err
	}
	r.cache.invalidate(docID)
	log.Info("Document removed", "doc", docID)
	return nil
}

// ClearAll cancels all workers, deletes every document, clears the cache
// and empties the staging directory.
func (r *Repository) ClearAll(_ context.Context) error {
	r.pool.CancelAll()
	if err := r.store.DeleteAll(); err != nil {
		return err
	}
	r.cache.clear()
	if err := r.staging.Clear(); err != nil {
		return err
	}
	log.Info("All documents removed")
	return nil
}

// SnapshotDocs returns all document records, newest first.
func (r *Repository) SnapshotDocs() []store.DocRecord {
	return r.store.ListDocs()
}

// InvalidateCache drops one document's cache entry.
func (r *Repository) InvalidateCache(docID string) { r.cache.invalidate(docID) }

// ClearCache drops all cache entries.
func (r *Repository) ClearCache() { r.cache.clear() }

// WaitForIndexing blocks until all submitted index jobs finish. Intended
// for shutdown paths and tests.
func (r *Repository) WaitForIndexing() { r.pool.Wait() }

// ObserveDocs polls the store every period and emits a snapshot whenever
// the record set changes structurally, starting with an immediate poll.
// The channel closes when ctx is cancelled.
func (r *Repository) ObserveDocs(ctx context.Context, period time.Duration) <-chan []store.DocRecord {
	if period <= 0 {
		period = time.Second
	}
	out := make(chan []store.DocRecord, 1)

	go func() {
		defer close(out)

		var last []store.DocRecord
		emit := func() {
			docs := r.store.ListDocs()
			if docsEqual(docs, last) {
				return
			}
			last = docs
			select {
			case out <- docs:
			case <-ctx.Done():
			}
		}

		emit()
		ticker := time.NewTicker(period)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				emit()
			}
		}
	}()
	return out
}

func docsEqual(a, b []store.DocRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
