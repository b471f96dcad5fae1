package proc

import (
	"time"

	"github.com/Falven/mssql-data-source/internal/cache"
)

// DefaultSchemaTTL bounds how long a cached procedure schema is trusted.
const DefaultSchemaTTL = time.Hour

// SchemaCache caches raw introspection results keyed by the procedure name
// exactly as the caller supplied it (hashing happens inside the cache
// helper). Expired entries are reclaimed lazily on access; there is no
// purge sweep. Concurrent cold-cache callers may race to populate an entry;
// last writer wins, which is harmless because parsing is deterministic for
// the same definition text.
type SchemaCache struct {
	helper *cache.Helper[*RawSchema]
}

// NewSchemaCache creates a SchemaCache with the default TTL.
func NewSchemaCache() *SchemaCache {
	return NewSchemaCacheWithStore(cache.NewMemoryStore(DefaultSchemaTTL, 0))
}

// NewSchemaCacheWithStore creates a SchemaCache over a caller-supplied store.
func NewSchemaCacheWithStore(store cache.Store) *SchemaCache {
	return &SchemaCache{helper: cache.NewHelper[*RawSchema](store)}
}

// TryGet returns the cached schema for procedure, if present.
func (c *SchemaCache) TryGet(procedure string) (*RawSchema, bool) {
	return c.helper.TryGet(procedure)
}

// Add caches the schema for procedure.
func (c *SchemaCache) Add(procedure string, schema *RawSchema) {
	c.helper.Add(procedure, schema)
}
