package cache

import (
	"strings"
	"testing"
	"time"
)

func TestHashKey(t *testing.T) {
	a := HashKey("server=localhost;database=People")
	b := HashKey("server=localhost;database=People")
	c := HashKey("server=localhost;database=Orders")

	if a != b {
		t.Errorf("HashKey not deterministic: %q != %q", a, b)
	}
	if a == c {
		t.Errorf("distinct keys hashed identically: %q", a)
	}
	// SHA-1 is 20 bytes; base64 of that is 28 characters.
	if len(a) != 28 {
		t.Errorf("HashKey length = %d, want 28", len(a))
	}
	if strings.Contains(a, "localhost") {
		t.Errorf("raw key leaked into hashed key %q", a)
	}
}

func TestHelperRoundTrip(t *testing.T) {
	h := NewHelper[string](NewMemoryStore(time.Minute, 10))

	if _, ok := h.TryGet("missing"); ok {
		t.Fatal("TryGet on empty cache reported a hit")
	}

	h.Add("dbo.GetPeople", "schema")
	got, ok := h.TryGet("dbo.GetPeople")
	if !ok || got != "schema" {
		t.Fatalf("TryGet = (%q, %t), want (schema, true)", got, ok)
	}
}

func TestMemoryStoreTTL(t *testing.T) {
	now := time.Now()
	s := NewMemoryStore(time.Hour, 0)
	s.now = func() time.Time { return now }

	s.Set("k", "v")

	if _, ok := s.Get("k"); !ok {
		t.Fatal("fresh entry reported absent")
	}

	now = now.Add(2 * time.Hour)
	if _, ok := s.Get("k"); ok {
		t.Fatal("expired entry reported present")
	}
	if s.Len() != 0 {
		t.Errorf("expired entry not reclaimed on access: Len = %d", s.Len())
	}
}

func TestMemoryStoreLRUEviction(t *testing.T) {
	s := NewMemoryStore(0, 2)

	s.Set("a", 1)
	s.Set("b", 2)
	s.Get("a") // touch a so b becomes least recently used
	s.Set("c", 3)

	if _, ok := s.Get("b"); ok {
		t.Error("least recently used entry survived eviction")
	}
	if _, ok := s.Get("a"); !ok {
		t.Error("recently used entry was evicted")
	}
	if _, ok := s.Get("c"); !ok {
		t.Error("new entry missing after eviction")
	}
}

func TestMemoryStoreSetRefreshesEntry(t *testing.T) {
	now := time.Now()
	s := NewMemoryStore(time.Hour, 0)
	s.now = func() time.Time { return now }

	s.Set("k", "old")
	now = now.Add(45 * time.Minute)
	s.Set("k", "new")
	now = now.Add(30 * time.Minute) // 75m after first set, 30m after second

	got, ok := s.Get("k")
	if !ok || got != "new" {
		t.Fatalf("Get = (%v, %t), want (new, true)", got, ok)
	}
}
