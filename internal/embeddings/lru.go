package embeddings

import "container/list"

// lruCache is a small bounded LRU for query embeddings. Values are
// copied on both put and get so callers can never alias cache storage.
// Not safe for concurrent use; the facade holds its own mutex.
type lruCache struct {
	capacity int
	order    *list.List
	entries  map[string]*list.Element
}

type lruEntry struct {
	key string
	vec []float32
}

func newLRUCache(capacity int) *lruCache {
	return &lruCache{
		capacity: capacity,
		order:    list.New(),
		entries:  make(map[string]*list.Element, capacity),
	}
}

func (c *lruCache) get(key string) ([]float32, bool) {
	el, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(el)
	vec := el.Value.(*lruEntry).vec
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

func (c *lruCache) put(key string, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)

	if el, ok := c.entries[key]; ok {
		el.Value.(*lruEntry).vec = stored
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&lruEntry{key: key, vec: stored})
	for c.order.Len() > c.capacity {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*lruEntry).key)
	}
}

func (c *lruCache) clear() {
	c.order.Init()
	c.entries = make(map[string]*list.Element, c.capacity)
}

func (c *lruCache) len() int { return c.order.Len() }
