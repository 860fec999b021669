package rag

import (
	"container/heap"
	"context"
	"sort"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/nickcecere/lrag/internal/store"
	"github.com/nickcecere/lrag/internal/vecmath"
)

// Retrieve embeds the query once and ranks every chunk of every READY
// document by dot product, returning at most k hits above threshold,
// best first. A non-empty filterDocID restricts scoring to one document.
// Passing k <= 0 or a zero threshold applies the configured defaults.
func (r *Repository) Retrieve(ctx context.Context, query string, k int, threshold float64, filterDocID string) ([]RetrievalHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if k <= 0 {
		k = r.opts.TopK
	}
	if threshold == 0 {
		threshold = r.opts.Threshold
	}

	qvec, err := r.embed.EmbedQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	dim := len(qvec)

	h := &hitHeap{}
	heap.Init(h)

	for _, rec := range r.store.ListDocs() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if rec.Status != store.StatusReady {
			continue
		}
		if filterDocID != "" && rec.DocID != filterDocID {
			continue
		}

		entry, err := r.ensureEntry(rec, dim)
		if err != nil {
			log.Warn("Excluding document from retrieval", "doc", rec.DocID, "name", rec.Name, "error", err)
			continue
		}
		if entry == nil {
			continue
		}

		for i, c := range entry.chunks {
			score, err := vecmath.DotPackedLE(qvec, entry.packed, i*entry.bytesPerVec, dim)
			if err != nil {
				log.Warn("Excluding document from retrieval", "doc", rec.DocID, "error", err)
				break
			}
			if score <= threshold {
				continue
			}
			cand := candidate{
				hit: RetrievalHit{
					DocID:      rec.DocID,
					DocName:    rec.Name,
					ChunkID:    c.ChunkID,
					ChunkIndex: c.ChunkIndex,
					Text:       c.Text,
					Score:      score,
				},
				createdAt: rec.CreatedAt,
			}
			if h.Len() < k {
				heap.Push(h, cand)
			} else if worseThan((*h)[0], cand) {
				(*h)[0] = cand
				heap.Fix(h, 0)
			}
		}
	}

	hits := make([]RetrievalHit, 0, h.Len())
	cands := []candidate(*h)
	sort.SliceStable(cands, func(i, j int) bool { return worseThan(cands[j], cands[i]) })
	for _, c := range cands {
		hits = append(hits, c.hit)
	}
	return hits, nil
}

// FallbackTopChunks returns the first max chunks of one document with
// score 1.0, for when similarity search yields nothing usable.
func (r *Repository) FallbackTopChunks(docID string, max int) ([]RetrievalHit, error) {
	if max <= 0 {
		max = r.opts.TopK
	}

	rec, err := r.store.ReadMeta(docID)
	if err != nil {
		return nil, err
	}
	chunks, err := r.store.ReadChunks(docID)
	if err != nil {
		return nil, err
	}

	if len(chunks) > max {
		chunks = chunks[:max]
	}
	hits := make([]RetrievalHit, 0, len(chunks))
	for _, c := range chunks {
		hits = append(hits, RetrievalHit{
			DocID:      rec.DocID,
			DocName:    rec.Name,
			ChunkID:    c.ChunkID,
			ChunkIndex: c.ChunkIndex,
			Text:       c.Text,
			Score:      1.0,
		})
	}
	return hits, nil
}

// ensureEntry returns a valid cache entry for rec, reloading from disk
// when the cached mtimes are stale. A nil entry with nil error means the
// document is excluded (corrupt or dimension mismatch). Disk I/O happens
// outside the cache lock.
func (r *Repository) ensureEntry(rec store.DocRecord, queryDim int) (*docEntry, error) {
	chunksMTime, embMTime, err := r.store.FileMTimes(rec.DocID)
	if err != nil {
		return nil, err
	}

	if entry, ok := r.cache.get(rec.DocID); ok {
		if entry.chunksMTime.Equal(chunksMTime) && entry.embMTime.Equal(embMTime) && entry.dim() == queryDim {
			return entry, nil
		}
		r.cache.invalidate(rec.DocID)
	}

	chunks, err := r.store.ReadChunks(rec.DocID)
	if err != nil {
		return nil, err
	}
	packed, err := r.store.ReadEmbeddingsRaw(rec.DocID)
	if err != nil {
		return nil, err
	}

	if len(chunks) == 0 || len(packed)%len(chunks) != 0 {
		log.Warn("Document store is inconsistent", "doc", rec.DocID,
			"chunks", len(chunks), "embeddingBytes", len(packed))
		return nil, nil
	}
	bytesPerVec := len(packed) / len(chunks)
	if bytesPerVec%vecmath.FloatSize != 0 {
		log.Warn("Document vector width is corrupt", "doc", rec.DocID, "bytesPerVector", bytesPerVec)
		return nil, nil
	}

	entry := &docEntry{
		chunks:      chunks,
		packed:      packed,
		bytesPerVec: bytesPerVec,
		chunksMTime: chunksMTime,
		embMTime:    embMTime,
	}

	if entry.dim() != queryDim {
		log.Warn("Skipping document with mismatched dimension",
			"doc", rec.DocID, "docDim", entry.dim(), "queryDim", queryDim)
		return nil, nil
	}
	if rec.EmbeddingDim != 0 && rec.EmbeddingDim != entry.dim() {
		log.Warn("Recorded dimension disagrees with store files",
			"doc", rec.DocID, "recorded", rec.EmbeddingDim, "inferred", entry.dim())
		return nil, nil
	}

	r.cache.put(rec.DocID, entry)
	return entry, nil
}

// candidate pairs a hit with its document recency for tie-breaking.
type candidate struct {
	hit       RetrievalHit
	createdAt int64
}

// worseThan reports whether a ranks strictly below b: lower score first,
// then older document, then higher chunk index.
func worseThan(a, b candidate) bool {
	if a.hit.Score != b.hit.Score {
		return a.hit.Score < b.hit.Score
	}
	if a.createdAt != b.createdAt {
		return a.createdAt < b.createdAt
	}
	return a.hit.ChunkIndex > b.hit.ChunkIndex
}

// hitHeap is a min-heap ordered by worseThan, so the root is always the
// weakest candidate.
type hitHeap []candidate

func (h hitHeap) Len() int            { return len(h) }
func (h hitHeap) Less(i, j int) bool  { return worseThan(h[i], h[j]) }
func (h hitHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x interface{}) { *h = append(*h, x.(candidate)) }
func (h *hitHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
