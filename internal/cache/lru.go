package cache

import (
	"container/list"
	"sync"
	"time"
)

// Observer is notified of lookups. *metrics.Metrics satisfies it.
type Observer interface {
	IncrCacheHit(cache string)
	IncrCacheMiss(cache string)
}

// Config configures an LRUCache.
type Config struct {
	// Name labels hit and miss notifications.
	Name    string
	MaxSize int
	TTL     time.Duration
	// Observer may be nil.
	Observer Observer
	// Now defaults to time.Now.
	Now func() time.Time
}

// LRUCache is a size-bounded cache with per-entry TTL. Entries written
// from a read that started before a Purge can be dropped with
// SetIfGeneration, so a replaced snapshot is never cached again.
type LRUCache[T any] struct {
	mu         sync.Mutex
	cfg        Config
	items      map[string]*list.Element
	lru        *list.List
	generation uint64
}

type cacheItem[T any] struct {
	key       string
	data      T
	expiresAt time.Time
}

// Ensure interface conformance
var _ Cache[struct{}] = (*LRUCache[struct{}])(nil)

// NewLRUCache creates a new LRU cache with TTL
func NewLRUCache[T any](cfg Config) *LRUCache[T] {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 100
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &LRUCache[T]{
		cfg:   cfg,
		items: make(map[string]*list.Element),
		lru:   list.New(),
	}
}

// Get returns a live entry and reports the lookup to the observer.
func (c *LRUCache[T]) Get(key string) (T, bool) {
	data, ok := c.get(key)
	if c.cfg.Observer != nil {
		if ok {
			c.cfg.Observer.IncrCacheHit(c.cfg.Name)
		} else {
			c.cfg.Observer.IncrCacheMiss(c.cfg.Name)
		}
	}
	return data, ok
}

func (c *LRUCache[T]) get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero T
	elem, exists := c.items[key]
	if !exists {
		return zero, false
	}

	item := elem.Value.(*cacheItem[T])
	if c.cfg.Now().After(item.expiresAt) {
		c.removeElement(elem)
		return zero, false
	}

	c.lru.MoveToFront(elem)
	return item.data, true
}

// Set stores a value unconditionally.
func (c *LRUCache[T]) Set(key string, data T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setLocked(key, data)
}

// SetIfGeneration stores data unless the cache was purged after gen was read.
func (c *LRUCache[T]) SetIfGeneration(key string, data T, gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.setLocked(key, data)
	return true
}

func (c *LRUCache[T]) setLocked(key string, data T) {
	item := &cacheItem[T]{
		key:       key,
		data:      data,
		expiresAt: c.cfg.Now().Add(c.cfg.TTL),
	}

	if elem, exists := c.items[key]; exists {
		elem.Value = item
		c.lru.MoveToFront(elem)
		return
	}

	c.items[key] = c.lru.PushFront(item)
	if c.lru.Len() > c.cfg.MaxSize {
		if oldest := c.lru.Back(); oldest != nil {
			c.removeElement(oldest)
		}
	}
}

// Delete removes a key from the cache
func (c *LRUCache[T]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, exists := c.items[key]; exists {
		c.removeElement(elem)
	}
}

// Purge drops every entry and bumps the generation.
func (c *LRUCache[T]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.lru.Init()
	c.generation++
}

// Generation returns the current purge epoch.
func (c *LRUCache[T]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *LRUCache[T]) removeElement(elem *list.Element) {
	item := elem.Value.(*cacheItem[T])
	delete(c.items, item.key)
	c.lru.Remove(elem)
}

// CleanExpired removes all expired entries and returns how many were removed.
// Entries are scanned from the least recently used end.
func (c *LRUCache[T]) CleanExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.cfg.Now()
	removed := 0
	for elem := c.lru.Back(); elem != nil; {
		prev := elem.Prev()
		if now.After(elem.Value.(*cacheItem[T]).expiresAt) {
			c.removeElement(elem)
			removed++
		}
		elem = prev
	}
	return removed
}

// Size returns the current number of items in the cache
func (c *LRUCache[T]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}
