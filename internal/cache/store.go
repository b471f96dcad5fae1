// Package cache provides the hash-keyed caching layer shared by the schema
// cache and the connection-pool registry: a Store interface with a bounded
// TTL/LRU in-memory implementation, and a typed Helper that hashes keys
// before they reach the store.
package cache

import (
	"container/list"
	"sync"
	"time"
)

// Store is the key-value contract the Helper delegates to. Implementations
// own TTL and size enforcement; the Helper never evicts.
type Store interface {
	Get(key string) (any, bool)
	Set(key string, value any)
}

// MemoryStore is a mutex-guarded in-process Store with per-entry TTL and an
// LRU size bound. Expired entries are reclaimed lazily on access; there is
// no background sweep.
type MemoryStore struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List // front = most recently used

	// now is replaceable in tests.
	now func() time.Time
}

type memoryEntry struct {
	key       string
	value     any
	expiresAt time.Time
}

// NewMemoryStore creates a MemoryStore. A non-positive ttl disables expiry;
// a non-positive maxEntries disables the size bound.
func NewMemoryStore(ttl time.Duration, maxEntries int) *MemoryStore {
	return &MemoryStore{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
}

// Get returns the value for key if present and unexpired. An expired entry
// is removed and reported as absent.
func (s *MemoryStore) Get(key string) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil, false
	}
	entry := el.Value.(*memoryEntry)
	if !entry.expiresAt.IsZero() && s.now().After(entry.expiresAt) {
		s.order.Remove(el)
		delete(s.entries, key)
		return nil, false
	}
	s.order.MoveToFront(el)
	return entry.value, true
}

// Set stores value under key, resetting its TTL. When the store is full the
// least recently used entry is evicted.
func (s *MemoryStore) Set(key string, value any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl)
	}

	if el, ok := s.entries[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = expiresAt
		s.order.MoveToFront(el)
		return
	}

	el := s.order.PushFront(&memoryEntry{key: key, value: value, expiresAt: expiresAt})
	s.entries[key] = el

	if s.maxEntries > 0 && s.order.Len() > s.maxEntries {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.entries, oldest.Value.(*memoryEntry).key)
		}
	}
}

// Len reports the number of entries currently held, including entries whose
// TTL has elapsed but which have not been touched since.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}
