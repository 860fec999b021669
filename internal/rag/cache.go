package rag

import (
	"container/list"
	"sync"
	"time"

	"github.com/nickcecere/lrag/internal/store"
)

// docEntry is one document's retrieval state, loaded from disk and
// immutable once cached. Validity is keyed on the mtimes of both data
// files: any store write moves an mtime and forces a reload.
type docEntry struct {
	chunks      []store.ChunkRecord
	packed      []byte
	bytesPerVec int
	chunksMTime time.Time
	embMTime    time.Time
}

func (e *docEntry) dim() int { return e.bytesPerVec / 4 }

// docCache is a bounded LRU of docEntry keyed by document id. The mutex
// guards only map/list manipulation; loading entries from disk happens
// outside the lock.
type docCache struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type docCacheItem struct {
	docID string
	entry *docEntry
}

func newDocCache(capacity int) *docCache {
	return &docCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

// get returns the cached entry for docID if present, marking it
// recently used.
func (c *docCache) get(docID string) (*docEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[docID]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*docCacheItem).entry, true
}

// put inserts or replaces an entry, evicting by recency past capacity.
func (c *docCache) put(docID string, entry *docEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[docID]; ok {
		el.Value.(*docCacheItem).entry = entry
		c.order.MoveToFront(el)
		return
	}

	c.entries[docID] = c.order.PushFront(&docCacheItem{docID: docID, entry: entry})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*docCacheItem).docID)
	}
}

func (c *docCache) invalidate(docID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[docID]; ok {
		c.order.Remove(el)
		delete(c.entries, docID)
	}
}

func (c *docCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.entries = make(map[string]*list.Element, c.capacity)
}
