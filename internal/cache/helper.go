package cache

import (
	"crypto/sha1"
	"encoding/base64"
)

// HashKey transforms a raw cache key through SHA-1 and base64 so the
// underlying store never sees raw, potentially sensitive or oversized keys
// such as full connection strings.
func HashKey(key string) string {
	sum := sha1.Sum([]byte(key))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// Helper is a typed get/set wrapper over a Store. Every key is hashed with
// HashKey before lookup or store; eviction policy stays with the Store.
type Helper[V any] struct {
	store Store
}

// NewHelper creates a Helper backed by store.
func NewHelper[V any](store Store) *Helper[V] {
	return &Helper[V]{store: store}
}

// TryGet looks up key. The second return reports whether a value of the
// expected type was present.
func (h *Helper[V]) TryGet(key string) (V, bool) {
	var zero V
	raw, ok := h.store.Get(HashKey(key))
	if !ok {
		return zero, false
	}
	v, ok := raw.(V)
	if !ok {
		return zero, false
	}
	return v, true
}

// Add stores value under key.
func (h *Helper[V]) Add(key string, value V) {
	h.store.Set(HashKey(key), value)
}
