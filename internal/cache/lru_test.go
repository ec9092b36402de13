package cache

import (
	"sort"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

type evictLog struct {
	mu   sync.Mutex
	keys []string
}

func (e *evictLog) record(key string, _ int) {
	e.mu.Lock()
	e.keys = append(e.keys, key)
	e.mu.Unlock()
}

func (e *evictLog) sorted() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := append([]string(nil), e.keys...)
	sort.Strings(out)
	return out
}

func TestLRUCapacityEviction(t *testing.T) {
	var ev evictLog
	c := NewLRUCache[int](2, time.Hour, WithEvict[int](ev.record))

	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a") // b is now least recently used
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("a = %v, %v", v, ok)
	}
	if got := ev.sorted(); len(got) != 1 || got[0] != "b" {
		t.Fatalf("evicted %v, want [b]", got)
	}
	if c.Size() != 2 {
		t.Fatalf("size = %d", c.Size())
	}
}

func TestLRUOverwriteDoesNotEvict(t *testing.T) {
	var ev evictLog
	c := NewLRUCache[int](2, time.Hour, WithEvict[int](ev.record))
	c.Set("a", 1)
	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Fatalf("a = %d", v)
	}
	if len(ev.sorted()) != 0 {
		t.Fatalf("overwrite triggered eviction")
	}
}

func TestLRUTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	var ev evictLog
	c := NewLRUCache[int](10, time.Minute, WithEvict[int](ev.record), WithClock[int](clock.Now))

	c.Set("a", 1)
	c.Set("b", 2)
	clock.Advance(2 * time.Minute)

	if _, ok := c.Get("a"); ok {
		t.Fatalf("expected a to expire")
	}
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("CleanExpired = %d, want 1", n)
	}
	if got := ev.sorted(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("evicted %v", got)
	}
}

func TestLRUSlidingExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := NewLRUCache[int](10, time.Minute, WithSlidingExpiry[int](), WithClock[int](clock.Now))

	c.Set("a", 1)
	for i := 0; i < 5; i++ {
		clock.Advance(45 * time.Second)
		if _, ok := c.Get("a"); !ok {
			t.Fatalf("entry expired despite being read (step %d)", i)
		}
	}
	clock.Advance(2 * time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatalf("idle entry should expire")
	}
}

func TestLRUDeleteAndPurge(t *testing.T) {
	var ev evictLog
	c := NewLRUCache[int](10, time.Hour, WithEvict[int](ev.record))
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	if !c.Delete("a") || c.Delete("a") {
		t.Fatalf("unexpected Delete results")
	}
	if n := c.Purge(); n != 2 {
		t.Fatalf("Purge = %d", n)
	}
	if c.Size() != 0 {
		t.Fatalf("size after purge = %d", c.Size())
	}
	if got := ev.sorted(); len(got) != 3 {
		t.Fatalf("evicted %v", got)
	}
}

func TestEvictCallbackMayUseCache(t *testing.T) {
	var c *LRUCache[int]
	c = NewLRUCache[int](1, time.Hour, WithEvict[int](func(key string, _ int) {
		c.Size() // would deadlock if called with the lock held
	}))
	c.Set("a", 1)
	c.Set("b", 2)
}

func TestManagerSweepAndStop(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	c := NewLRUCache[int](10, time.Minute, WithClock[int](clock.Now))
	c.Set("a", 1)

	m := NewManager(nil)
	m.Register(c)
	clock.Advance(time.Hour)
	if n := m.Sweep(); n != 1 {
		t.Fatalf("Sweep = %d", n)
	}

	m.StartCleanup(time.Millisecond)
	m.Stop()
	m.Stop()

	unstarted := NewManager(nil)
	unstarted.Stop()
}
