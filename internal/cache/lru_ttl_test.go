package cache

import (
	"testing"
	"time"
)

func TestLRUTTLExpiry(t *testing.T) {
	c := NewLRUTTL[string, string](10, 0, 30*time.Millisecond)

	c.Set("k1", "v1", 2)
	if v, ok := c.Get("k1"); !ok || v != "v1" {
		t.Fatalf("get before expiry: %q ok=%v", v, ok)
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("k1"); ok {
		t.Fatal("expected miss after ttl expiry")
	}
	if c.Len() != 0 {
		t.Fatalf("len = %d after expiry sweep", c.Len())
	}
}

func TestLRUTTLEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewLRUTTL[string, string](2, 0, time.Minute)

	c.Set("a", "aa", 2)
	c.Set("b", "bb", 2)
	if _, ok := c.Get("a"); !ok {
		t.Fatal("touch a")
	}
	c.Set("c", "cc", 2)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to remain")
	}
}

func TestLRUTTLByteBudget(t *testing.T) {
	c := NewLRUTTL[string, []byte](100, 10, time.Minute)

	c.Set("a", []byte("aaaa"), 4)
	c.Set("b", []byte("bbbb"), 4)
	c.Set("c", []byte("cccc"), 4)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected a to fall out of the byte budget")
	}
	if c.Len() != 2 {
		t.Fatalf("len = %d, want 2", c.Len())
	}
}

func TestLRUTTLNilIsNoop(t *testing.T) {
	var c *LRUTTL[string, int]
	c.Set("a", 1, 0)
	if _, ok := c.Get("a"); ok {
		t.Fatal("nil cache must always miss")
	}
	c.Delete("a")
	c.Purge()
	if c.Len() != 0 {
		t.Fatal("nil cache has length 0")
	}
}

func TestLRUTTLSetRefreshesExisting(t *testing.T) {
	c := NewLRUTTL[string, string](2, 0, time.Minute)

	c.Set("a", "old", 2)
	c.Set("a", "new", 4)
	if v, ok := c.Get("a"); !ok || v != "new" {
		t.Fatalf("get = %q ok=%v, want refreshed value", v, ok)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d, want 1", c.Len())
	}
}
