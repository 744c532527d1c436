package cache

import (
	"container/list"
	"sync"
	"time"
)

type entry[K comparable, V any] struct {
	key      K
	value    V
	size     int
	deadline time.Time
}

// LRUTTL is a threadsafe LRU cache with per-entry TTL and an optional byte
// budget. A nil *LRUTTL is a no-op cache: every Get misses.
type LRUTTL[K comparable, V any] struct {
	mu         sync.Mutex
	order      *list.List
	items      map[K]*list.Element
	maxEntries int
	maxBytes   int
	usedBytes  int
	ttl        time.Duration
}

func NewLRUTTL[K comparable, V any](maxEntries, maxBytes int, ttl time.Duration) *LRUTTL[K, V] {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LRUTTL[K, V]{
		order:      list.New(),
		items:      make(map[K]*list.Element),
		maxEntries: maxEntries,
		maxBytes:   maxBytes,
		ttl:        ttl,
	}
}

func (c *LRUTTL[K, V]) Get(key K) (V, bool) {
	var zero V
	if c == nil {
		return zero, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.items[key]
	if !ok {
		return zero, false
	}
	ent := el.Value.(*entry[K, V])
	if time.Now().After(ent.deadline) {
		c.drop(el)
		return zero, false
	}
	c.order.MoveToFront(el)
	return ent.value, true
}

// Set inserts or refreshes key. sizeBytes feeds the byte budget; pass 0 when
// only the entry count matters.
func (c *LRUTTL[K, V]) Set(key K, value V, sizeBytes int) {
	if c == nil {
		return
	}
	if sizeBytes < 0 {
		sizeBytes = 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	deadline := time.Now().Add(c.ttl)
	if el, ok := c.items[key]; ok {
		ent := el.Value.(*entry[K, V])
		c.usedBytes += sizeBytes - ent.size
		ent.value = value
		ent.size = sizeBytes
		ent.deadline = deadline
		c.order.MoveToFront(el)
		c.evict()
		return
	}

	el := c.order.PushFront(&entry[K, V]{key: key, value: value, size: sizeBytes, deadline: deadline})
	c.items[key] = el
	c.usedBytes += sizeBytes
	c.evict()
}

func (c *LRUTTL[K, V]) Delete(key K) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.drop(el)
	}
}

func (c *LRUTTL[K, V]) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *LRUTTL[K, V]) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order = list.New()
	c.items = make(map[K]*list.Element)
	c.usedBytes = 0
}

func (c *LRUTTL[K, V]) evict() {
	for c.order.Len() > 0 {
		if c.order.Len() <= c.maxEntries && (c.maxBytes <= 0 || c.usedBytes <= c.maxBytes) {
			return
		}
		c.drop(c.order.Back())
	}
}

func (c *LRUTTL[K, V]) drop(el *list.Element) {
	if el == nil {
		return
	}
	c.order.Remove(el)
	ent := el.Value.(*entry[K, V])
	delete(c.items, ent.key)
	c.usedBytes -= ent.size
	if c.usedBytes < 0 {
		c.usedBytes = 0
	}
}
