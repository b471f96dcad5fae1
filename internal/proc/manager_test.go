package proc

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/Falven/mssql-data-source/internal/fields"
)

// fakeMetadata serves canned schemas and counts introspection calls.
type fakeMetadata struct {
	raw         *RawSchema
	err         error
	schemaCalls int
}

func (f *fakeMetadata) ParameterSchema(ctx context.Context, q Querier, procedure string) (*RawSchema, error) {
	f.schemaCalls++
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

func (f *fakeMetadata) ParseParameters(procedure string, raw *RawSchema) ([]*Parameter, error) {
	return NewMetadata(nil).ParseParameters(procedure, raw)
}

func testRawSchema() *RawSchema {
	return &RawSchema{
		Parameters: []CatalogParameter{
			{Name: "@Page", Type: "int", Mode: "IN"},
			{Name: "@PageSize", Type: "int", Mode: "IN"},
			{Name: "@RecordCount", Type: "int", Mode: "INOUT"},
		},
		Definition: `CREATE PROCEDURE dbo.GetPeople
	@Page int,
	@PageSize int,
	@RecordCount int OUTPUT
AS BEGIN SELECT 1 END`,
	}
}

// Resolving the same procedure twice must introspect exactly once; the
// second resolution is a cache hit with identical content.
func TestResolveSchemaCachesIntrospection(t *testing.T) {
	fake := &fakeMetadata{raw: testRawSchema()}
	m := NewManager(fake, NewSchemaCache(), nil)

	first, err := m.resolveSchema(context.Background(), nil, "dbo.GetPeople")
	if err != nil {
		t.Fatalf("resolveSchema: %v", err)
	}
	second, err := m.resolveSchema(context.Background(), nil, "dbo.GetPeople")
	if err != nil {
		t.Fatalf("resolveSchema: %v", err)
	}

	if fake.schemaCalls != 1 {
		t.Errorf("introspection ran %d times, want 1", fake.schemaCalls)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("cache hit returned different schema content than the miss")
	}
}

func TestResolveSchemaKeysAreCaseSensitive(t *testing.T) {
	fake := &fakeMetadata{raw: testRawSchema()}
	m := NewManager(fake, NewSchemaCache(), nil)

	if _, err := m.resolveSchema(context.Background(), nil, "dbo.GetPeople"); err != nil {
		t.Fatalf("resolveSchema: %v", err)
	}
	if _, err := m.resolveSchema(context.Background(), nil, "dbo.getpeople"); err != nil {
		t.Fatalf("resolveSchema: %v", err)
	}

	if fake.schemaCalls != 2 {
		t.Errorf("differently cased names shared a cache entry: %d introspections, want 2", fake.schemaCalls)
	}
}

// A failed introspection must leave the cache unpopulated so the next call
// retries rather than serving a partial write.
func TestResolveSchemaDoesNotCacheFailures(t *testing.T) {
	fake := &fakeMetadata{err: ErrDefinitionNotFound}
	m := NewManager(fake, NewSchemaCache(), nil)

	if _, err := m.resolveSchema(context.Background(), nil, "dbo.GetPeople"); !errors.Is(err, ErrDefinitionNotFound) {
		t.Fatalf("resolveSchema = %v, want ErrDefinitionNotFound", err)
	}

	fake.err = nil
	fake.raw = testRawSchema()
	if _, err := m.resolveSchema(context.Background(), nil, "dbo.GetPeople"); err != nil {
		t.Fatalf("resolveSchema after recovery: %v", err)
	}
	if fake.schemaCalls != 2 {
		t.Errorf("introspection ran %d times, want 2 (failure must not populate cache)", fake.schemaCalls)
	}
}

// Execute fails before touching the database when required input parameters
// are absent, naming every one of them.
func TestExecuteReportsMissingParametersBeforeRunning(t *testing.T) {
	fake := &fakeMetadata{raw: testRawSchema()}
	m := NewManager(fake, NewSchemaCache(), nil)

	_, err := m.Execute(context.Background(), nil, "dbo.GetPeople",
		map[string]any{"page": 1}, fields.Tables{})

	var missingErr *MissingParametersError
	if !errors.As(err, &missingErr) {
		t.Fatalf("Execute = %v, want MissingParametersError", err)
	}
	if !reflect.DeepEqual(missingErr.Missing, []string{"pagesize"}) {
		t.Errorf("missing = %v, want [pagesize]", missingErr.Missing)
	}
}

func TestExecutePropagatesModeErrors(t *testing.T) {
	raw := testRawSchema()
	raw.Parameters[0].Mode = "OUT"
	fake := &fakeMetadata{raw: raw}
	m := NewManager(fake, NewSchemaCache(), nil)

	_, err := m.Execute(context.Background(), nil, "dbo.GetPeople",
		map[string]any{"page": 1, "pageSize": 10}, fields.Tables{})

	var modeErr *UnknownModeError
	if !errors.As(err, &modeErr) {
		t.Fatalf("Execute = %v, want UnknownModeError", err)
	}
}
