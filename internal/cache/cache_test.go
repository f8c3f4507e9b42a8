package cache

import (
	"testing"
	"time"
)

func clockedCache(start time.Time) (*Cache, *time.Time) {
	c := New()
	now := start
	c.now = func() time.Time { return now }
	return c, &now
}

func TestGetSet_RoundTrip(t *testing.T) {
	c, _ := clockedCache(time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC))

	if _, ok := c.Get("site-capacity:all"); ok {
		t.Fatal("hit on empty cache")
	}
	c.Set("site-capacity:all", "payload", 2*time.Minute)
	got, ok := c.Get("site-capacity:all")
	if !ok {
		t.Fatal("miss after Set")
	}
	if got != "payload" {
		t.Errorf("payload = %v, want %q", got, "payload")
	}
}

func TestGet_LazyExpiry(t *testing.T) {
	start := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	c, now := clockedCache(start)

	c.Set("agg:mty", 42, 2*time.Minute)

	// Just inside the window: still served.
	*now = start.Add(2 * time.Minute)
	if _, ok := c.Get("agg:mty"); !ok {
		t.Error("miss at exact expiry instant boundary")
	}

	// Past the window: reported as a miss and collected.
	*now = start.Add(2*time.Minute + time.Nanosecond)
	if _, ok := c.Get("agg:mty"); ok {
		t.Error("hit past expiry")
	}
	if c.Len() != 0 {
		t.Errorf("Len = %d after lazy expiry, want 0", c.Len())
	}
}

func TestSet_LastWriteWins(t *testing.T) {
	c, _ := clockedCache(time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC))

	c.Set("k", "old", time.Minute)
	c.Set("k", "new", time.Minute)
	got, _ := c.Get("k")
	if got != "new" {
		t.Errorf("payload = %v, want last write", got)
	}
}

func TestSet_NonPositiveTTLStoresNothing(t *testing.T) {
	c, _ := clockedCache(time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC))

	c.Set("k", "v", 0)
	c.Set("k2", "v", -time.Second)
	if c.Len() != 0 {
		t.Errorf("Len = %d, want 0", c.Len())
	}
}

func TestInvalidate(t *testing.T) {
	c, _ := clockedCache(time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC))

	c.Set("k", "v", time.Minute)
	if !c.Invalidate("k") {
		t.Error("Invalidate reported absent for present key")
	}
	if c.Invalidate("k") {
		t.Error("Invalidate reported present for absent key")
	}
	if _, ok := c.Get("k"); ok {
		t.Error("hit after Invalidate")
	}
}

func TestInvalidatePrefix(t *testing.T) {
	c, _ := clockedCache(time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC))

	c.Set("site-capacity:all", 1, time.Minute)
	c.Set("site-capacity:plaza:mty", 2, time.Minute)
	c.Set("cost:all", 3, time.Minute)

	if n := c.InvalidatePrefix("site-capacity:"); n != 2 {
		t.Errorf("removed %d, want 2", n)
	}
	if _, ok := c.Get("cost:all"); !ok {
		t.Error("unrelated key lost on prefix invalidation")
	}
}

func TestKeyPrefix(t *testing.T) {
	tests := []struct {
		key, want string
	}{
		{"site-capacity:all", "site-capacity"},
		{"narrative:executive", "narrative"},
		{"bare", "bare"},
		{":odd", ":odd"},
	}
	for _, tc := range tests {
		if got := keyPrefix(tc.key); got != tc.want {
			t.Errorf("keyPrefix(%q) = %q, want %q", tc.key, got, tc.want)
		}
	}
}
