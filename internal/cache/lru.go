package cache

import (
	"container/list"
	"sync"
	"time"
)

// LRUCache bounds both size and age: least-recently-used entries are
// evicted past maxEntries, and every entry expires ttl after it was
// set. Reads never return an expired value.
type LRUCache[T any] struct {
	mu         sync.Mutex
	maxEntries int
	ttl        time.Duration
	byKey      map[string]*list.Element
	order      *list.List // front is most recently used
}

type entry[T any] struct {
	key       string
	value     T
	expiresAt time.Time
}

func NewLRUCache[T any](maxEntries int, ttl time.Duration) *LRUCache[T] {
	return &LRUCache[T]{
		maxEntries: maxEntries,
		ttl:        ttl,
		byKey:      make(map[string]*list.Element),
		order:      list.New(),
	}
}

// Get returns the cached value for key, dropping it if expired.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, ok := c.byKey[key]
	if !ok {
		return zero, false
	}
	ent := elem.Value.(*entry[T])
	if time.Now().After(ent.expiresAt) {
		c.remove(elem)
		return zero, false
	}
	c.order.MoveToFront(elem)
	return ent.value, true
}

// Set stores value under key, restarting its TTL and evicting the
// least recently used entry when the cache is full.
func (c *LRUCache[T]) Set(key string, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ent := &entry[T]{
		key:       key,
		value:     value,
		expiresAt: time.Now().Add(c.ttl),
	}
	if elem, ok := c.byKey[key]; ok {
		elem.Value = ent
		c.order.MoveToFront(elem)
		return
	}
	c.byKey[key] = c.order.PushFront(ent)

	if c.order.Len() > c.maxEntries {
		if oldest := c.order.Back(); oldest != nil {
			c.remove(oldest)
		}
	}
}

// Delete drops key if present. This is the invalidation hook: writes
// that can move a cached value call it with the affected key.
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.byKey[key]; ok {
		c.remove(elem)
	}
}

// CleanExpired drops every expired entry and reports how many went.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	removed := 0
	for elem := c.order.Front(); elem != nil; {
		next := elem.Next()
		if now.After(elem.Value.(*entry[T]).expiresAt) {
			c.remove(elem)
			removed++
		}
		elem = next
	}
	return removed
}

func (c *LRUCache[T]) remove(elem *list.Element) {
	delete(c.byKey, elem.Value.(*entry[T]).key)
	c.order.Remove(elem)
}
