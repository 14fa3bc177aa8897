package cache

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type countingObserver struct {
	hits, misses map[string]int
}

func (o *countingObserver) IncrCacheHit(name string)  { o.hits[name]++ }
func (o *countingObserver) IncrCacheMiss(name string) { o.misses[name]++ }

func TestLRUCache_GetSetEvict(t *testing.T) {
	c := NewLRUCache[int](Config{MaxSize: 2, TTL: time.Minute})
	c.Set("a", 1)
	c.Set("b", 2)
	if _, ok := c.Get("a"); !ok { // a becomes most recent
		t.Fatal("expected a")
	}
	c.Set("c", 3) // evicts b

	if _, ok := c.Get("b"); ok {
		t.Error("b should have been evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("a = %v, %v", v, ok)
	}
	if c.Size() != 2 {
		t.Errorf("Size = %d, want 2", c.Size())
	}
}

func TestLRUCache_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[string](Config{MaxSize: 10, TTL: time.Minute, Now: clock.Now})
	c.Set("k", "v")
	clock.Advance(2 * time.Minute)

	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry returned")
	}
	c.Set("x", "y")
	c.Set("z", "w")
	clock.Advance(30 * time.Second)
	c.Set("fresh", "v")
	clock.Advance(45 * time.Second)
	if n := c.CleanExpired(); n != 2 {
		t.Errorf("CleanExpired = %d, want 2", n)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry removed")
	}
}

func TestLRUCache_DeleteAndPurge(t *testing.T) {
	c := NewLRUCache[int](Config{MaxSize: 10, TTL: time.Minute})
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Error("a should be deleted")
	}
	c.Purge()
	if c.Size() != 0 {
		t.Errorf("Size after Purge = %d", c.Size())
	}
	c.Set("c", 3)
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Error("cache unusable after Purge")
	}
}

func TestLRUCache_SetIfGenerationDropsReadsAcrossPurge(t *testing.T) {
	c := NewLRUCache[int](Config{MaxSize: 10, TTL: time.Minute})

	gen := c.Generation()
	if !c.SetIfGeneration("a", 1, gen) {
		t.Fatal("set within the same generation refused")
	}

	stale := c.Generation()
	c.Purge()
	if c.SetIfGeneration("a", 2, stale) {
		t.Error("value read before Purge was stored")
	}
	if _, ok := c.Get("a"); ok {
		t.Error("stale entry visible after Purge")
	}
	if !c.SetIfGeneration("a", 3, c.Generation()) {
		t.Error("set in the new generation refused")
	}
}

func TestLRUCache_ReportsHitsAndMisses(t *testing.T) {
	obs := &countingObserver{hits: map[string]int{}, misses: map[string]int{}}
	c := NewLRUCache[int](Config{Name: "family", Observer: obs})

	c.Get("a")
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")

	if obs.hits["family"] != 2 || obs.misses["family"] != 1 {
		t.Errorf("hits=%d misses=%d, want 2 and 1", obs.hits["family"], obs.misses["family"])
	}
}

func TestManager_StartStop(t *testing.T) {
	c := NewLRUCache[int](Config{MaxSize: 10, TTL: time.Millisecond})
	c.Set("a", 1)

	m := NewManager()
	m.Register(c)
	m.StartCleanup(2 * time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	m.Stop()

	if c.Size() != 0 {
		t.Errorf("expected cleanup to remove expired entry, size %d", c.Size())
	}
}
