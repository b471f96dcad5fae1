package proc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/Falven/mssql-data-source/internal/fields"
)

// MetadataSource resolves and parses procedure schemas. Satisfied by
// *Metadata; replaceable so a real T-SQL parser can substitute for the
// pattern-matching one without touching orchestration.
type MetadataSource interface {
	ParameterSchema(ctx context.Context, q Querier, procedure string) (*RawSchema, error)
	ParseParameters(procedure string, raw *RawSchema) ([]*Parameter, error)
}

// Manager orchestrates one stored-procedure invocation end to end: schema
// resolution, parameter preparation and validation, execution, and result
// normalization.
type Manager struct {
	meta  MetadataSource
	cache *SchemaCache
	log   *slog.Logger
}

// NewManager creates a Manager. A nil logger disables advisory logging.
func NewManager(meta MetadataSource, schemaCache *SchemaCache, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{meta: meta, cache: schemaCache, log: log}
}

// Execute runs procedure over the given request with the caller's input.
// Driver-level execution failures propagate unchanged; every internal check
// fails fast and leaves the shared caches exactly as they were.
func (m *Manager) Execute(ctx context.Context, q Querier, procedure string, input map[string]any, tables fields.Tables) (*ResultEnvelope, error) {
	start := time.Now()

	raw, err := m.resolveSchema(ctx, q, procedure)
	if err != nil {
		return nil, err
	}

	params, err := m.meta.ParseParameters(procedure, raw)
	if err != nil {
		return nil, err
	}

	prepared := prepareParameters(params, input)
	if err := validateRequired(procedure, prepared); err != nil {
		return nil, err
	}

	args, outs, err := buildArgs(prepared)
	if err != nil {
		return nil, err
	}

	resultSets, rowsAffected, returnValue, err := m.run(ctx, q, procedure, args)
	if err != nil {
		return nil, err
	}

	envelope := normalizeEnvelope(resultSets, rowsAffected, returnValue, outs, tables)

	m.log.Debug("executed stored procedure",
		"procedure", procedure,
		"result_sets", len(envelope.ResultSets),
		"return_value", envelope.ReturnValue,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)

	return envelope, nil
}

// resolveSchema returns the cached raw schema for procedure, introspecting
// and populating the cache on a miss. Concurrent misses may introspect
// redundantly; introspection is idempotent, so the race is accepted over
// lock coordination.
func (m *Manager) resolveSchema(ctx context.Context, q Querier, procedure string) (*RawSchema, error) {
	if raw, ok := m.cache.TryGet(procedure); ok {
		m.log.Debug("schema cache hit", "procedure", procedure)
		return raw, nil
	}
	m.log.Debug("schema cache miss", "procedure", procedure)

	raw, err := m.meta.ParameterSchema(ctx, q, procedure)
	if err != nil {
		return nil, err
	}
	m.cache.Add(procedure, raw)
	return raw, nil
}

// run executes the procedure by qualified name and drains every result set.
// Output destinations bound in args are populated by the driver once the
// rows are fully consumed and closed.
func (m *Manager) run(ctx context.Context, q Querier, procedure string, args []interface{}) (resultSets [][]map[string]any, rowsAffected []int64, returnValue int64, err error) {
	schemaName, objectName, err := SplitProcedureName(procedure)
	if err != nil {
		return nil, nil, 0, err
	}

	var status mssql.ReturnStatus
	execArgs := append(args, &status)

	rows, err := q.QueryxContext(ctx, fmt.Sprintf("[%s].[%s]", schemaName, objectName), execArgs...)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("execute %s: %w", procedure, err)
	}
	defer rows.Close()

	for {
		set := []map[string]any{}
		for rows.Next() {
			row := make(map[string]any)
			if err := rows.MapScan(row); err != nil {
				return nil, nil, 0, fmt.Errorf("scan %s result row: %w", procedure, err)
			}
			set = append(set, row)
		}
		if err := rows.Err(); err != nil {
			return nil, nil, 0, fmt.Errorf("iterate %s results: %w", procedure, err)
		}
		resultSets = append(resultSets, set)
		rowsAffected = append(rowsAffected, int64(len(set)))
		if !rows.NextResultSet() {
			break
		}
	}

	// Close before reading the return status and output destinations; the
	// driver delivers them in the trailing done token.
	if err := rows.Close(); err != nil {
		return nil, nil, 0, fmt.Errorf("close %s results: %w", procedure, err)
	}

	return resultSets, rowsAffected, int64(status), nil
}
