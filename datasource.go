// Package datasource exposes Microsoft SQL Server stored procedures as
// typed, cacheable operations for a resolver layer. Query and mutation
// traffic run on independent connection pools; procedure parameter schemas
// are introspected from the database catalog and cached; result rows and
// output parameters are normalized to the consumer's requested field casing.
package datasource

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/Falven/mssql-data-source/internal/cache"
	"github.com/Falven/mssql-data-source/internal/fields"
	"github.com/Falven/mssql-data-source/internal/pool"
	"github.com/Falven/mssql-data-source/internal/proc"
)

// Re-exported so consumers only import this package.
type (
	// ConnectionConfig holds connection parameters for one pool.
	ConnectionConfig = pool.Config
	// ResultEnvelope is the normalized outcome of one invocation.
	ResultEnvelope = proc.ResultEnvelope
	// FieldTable maps lowercased field names to their canonical casing.
	FieldTable = fields.Table
)

// EndpointConfig pairs a connection configuration with the logger used for
// that side's traffic.
type EndpointConfig struct {
	Connection ConnectionConfig
	Logger     *slog.Logger
}

// DataSource is the facade over the invocation pipeline. Construct one per
// resolver context if convenient; pools and schema cache are shared through
// the injected managers, so repeated construction stays cheap.
type DataSource struct {
	pools    *pool.Manager
	query    endpoint
	mutation endpoint
}

type endpoint struct {
	cfg  ConnectionConfig
	log  *slog.Logger
	proc *proc.Manager
}

// Option customizes a DataSource.
type Option func(*settings)

type settings struct {
	pools       *pool.Manager
	schemaStore cache.Store
	meta        proc.MetadataSource
}

// WithPoolManager shares an existing pool manager across facades. Without
// it each New call builds its own manager, which still deduplicates pools
// per configuration but not across facades.
func WithPoolManager(m *pool.Manager) Option {
	return func(s *settings) { s.pools = m }
}

// WithSchemaStore replaces the store backing the schema cache, for example
// to shorten the TTL below the one-hour default.
func WithSchemaStore(store cache.Store) Option {
	return func(s *settings) { s.schemaStore = store }
}

// WithMetadataSource substitutes the schema introspection/parsing strategy.
func WithMetadataSource(meta proc.MetadataSource) Option {
	return func(s *settings) { s.meta = meta }
}

// New creates a DataSource with independent query and mutation endpoints.
// Nil loggers are replaced with discard loggers; advisory logging never
// affects control flow.
func New(query, mutation EndpointConfig, opts ...Option) *DataSource {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.pools == nil {
		s.pools = pool.NewManager()
	}

	var schemaCache *proc.SchemaCache
	if s.schemaStore != nil {
		schemaCache = proc.NewSchemaCacheWithStore(s.schemaStore)
	} else {
		schemaCache = proc.NewSchemaCache()
	}

	return &DataSource{
		pools:    s.pools,
		query:    newEndpoint(query, s.meta, schemaCache),
		mutation: newEndpoint(mutation, s.meta, schemaCache),
	}
}

func newEndpoint(cfg EndpointConfig, meta proc.MetadataSource, schemaCache *proc.SchemaCache) endpoint {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if meta == nil {
		meta = proc.NewMetadata(log)
	}
	return endpoint{
		cfg:  cfg.Connection,
		log:  log,
		proc: proc.NewManager(meta, schemaCache, log),
	}
}

// ExecOption customizes one invocation.
type ExecOption func(*execSettings)

type execSettings struct {
	tables fields.Tables
}

// WithSelectionFields supplies the canonical casing of the fields the
// consumer selected for the procedure's result sets. Column names are
// matched case-insensitively; unmatched columns fall back to camelCase.
func WithSelectionFields(names ...string) ExecOption {
	return func(s *execSettings) { s.tables.Selection = fields.TableOf(names...) }
}

// WithSiblingFields supplies the canonical casing of the top-level fields
// that sit next to the result sets, used for output-parameter names.
func WithSiblingFields(names ...string) ExecOption {
	return func(s *execSettings) { s.tables.Siblings = fields.TableOf(names...) }
}

// ExecuteStoredProcedureQuery runs a stored procedure on the query pool.
func (d *DataSource) ExecuteStoredProcedureQuery(ctx context.Context, procedure string, input map[string]any, opts ...ExecOption) (*ResultEnvelope, error) {
	return d.execute(ctx, d.query, d.pools.QueryPool, "query", procedure, input, opts)
}

// ExecuteStoredProcedureMutation runs a stored procedure on the mutation pool.
func (d *DataSource) ExecuteStoredProcedureMutation(ctx context.Context, procedure string, input map[string]any, opts ...ExecOption) (*ResultEnvelope, error) {
	return d.execute(ctx, d.mutation, d.pools.MutationPool, "mutation", procedure, input, opts)
}

func (d *DataSource) execute(ctx context.Context, ep endpoint, resolvePool func(pool.Config) (*pool.Pool, error), kind, procedure string, input map[string]any, opts []ExecOption) (*ResultEnvelope, error) {
	var s execSettings
	for _, opt := range opts {
		opt(&s)
	}

	invocation := uuid.NewString()
	start := time.Now()
	ep.log.Debug("stored procedure call",
		"kind", kind,
		"procedure", procedure,
		"invocation", invocation,
	)

	p, err := resolvePool(ep.cfg)
	if err != nil {
		return nil, err
	}

	envelope, err := pool.WithRequest(ctx, p, func(conn *sqlx.Conn) (*ResultEnvelope, error) {
		return ep.proc.Execute(ctx, conn, procedure, input, s.tables)
	})
	if err != nil {
		ep.log.Debug("stored procedure call failed",
			"kind", kind,
			"procedure", procedure,
			"invocation", invocation,
			"error", err,
		)
		return nil, err
	}

	ep.log.Debug("stored procedure call finished",
		"kind", kind,
		"procedure", procedure,
		"invocation", invocation,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return envelope, nil
}
