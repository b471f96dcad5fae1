package pool

import (
	"sync"
	"time"

	"github.com/Falven/mssql-data-source/internal/cache"
)

const (
	// DefaultTTL bounds how long an idle pool stays registered.
	DefaultTTL = time.Hour
	// DefaultMaxEntries bounds how many distinct configurations are held.
	DefaultMaxEntries = 1000
)

// Manager hands out the process-wide query and mutation pools. Each side has
// its own hash-keyed registry so repeated facade constructions (for example
// one per server request) reuse live pools instead of exhausting the database
// with fresh connections.
type Manager struct {
	mu       sync.Mutex
	query    *cache.Helper[*Pool]
	mutation *cache.Helper[*Pool]
}

// NewManager creates a Manager with default TTL/size-bounded registries.
func NewManager() *Manager {
	return NewManagerWithStores(
		cache.NewMemoryStore(DefaultTTL, DefaultMaxEntries),
		cache.NewMemoryStore(DefaultTTL, DefaultMaxEntries),
	)
}

// NewManagerWithStores creates a Manager over caller-supplied stores, one for
// query pools and one for mutation pools.
func NewManagerWithStores(queryStore, mutationStore cache.Store) *Manager {
	return &Manager{
		query:    cache.NewHelper[*Pool](queryStore),
		mutation: cache.NewHelper[*Pool](mutationStore),
	}
}

// QueryPool returns the cached pool for cfg on the query side, constructing
// and registering an unconnected pool on first use. The returned pool may not
// be connected yet; callers go through WithRequest, which connects it.
func (m *Manager) QueryPool(cfg Config) (*Pool, error) {
	return m.pool(m.query, cfg)
}

// MutationPool is QueryPool's counterpart for the mutation side.
func (m *Manager) MutationPool(cfg Config) (*Pool, error) {
	return m.pool(m.mutation, cfg)
}

func (m *Manager) pool(registry *cache.Helper[*Pool], cfg Config) (*Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cfg.CacheKey()
	if p, ok := registry.TryGet(key); ok {
		return p, nil
	}

	p, err := newPool(cfg)
	if err != nil {
		return nil, err
	}
	registry.Add(key, p)
	return p, nil
}
