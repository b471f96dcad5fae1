package proc

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/Falven/mssql-data-source/internal/sqltype"
)

// Querier is the slice of sqlx that introspection and execution need. Both
// *sqlx.DB and *sqlx.Conn satisfy it.
type Querier interface {
	QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
}

// parameterSchemaQuery is one batch returning two result sets: the declared
// parameters from the catalog and the full definition text. The catalog
// never reports textual defaults and the definition text never reliably
// reports lengths and precision, so both are fetched and reconciled.
// Temporal types carry their fractional-second precision in
// DATETIME_PRECISION with NUMERIC_SCALE NULL, so the two are coalesced into
// one scale column.
const parameterSchemaQuery = `SELECT
		PARAMETER_NAME,
		DATA_TYPE,
		PARAMETER_MODE,
		CHARACTER_MAXIMUM_LENGTH,
		NUMERIC_PRECISION,
		COALESCE(NUMERIC_SCALE, DATETIME_PRECISION) AS NUMERIC_SCALE
	FROM INFORMATION_SCHEMA.PARAMETERS
	WHERE SPECIFIC_SCHEMA = @schema AND SPECIFIC_NAME = @object
	ORDER BY ORDINAL_POSITION;
	SELECT OBJECT_DEFINITION(OBJECT_ID(@qualified)) AS definition;`

// Metadata introspects stored-procedure schemas and parses parameter lists
// out of definition text.
type Metadata struct {
	log *slog.Logger
}

// NewMetadata creates a Metadata. A nil logger disables advisory logging.
func NewMetadata(log *slog.Logger) *Metadata {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Metadata{log: log}
}

// ParameterSchema runs the introspection batch for procedure and validates
// its shape: exactly two result sets, and exactly one non-empty definition
// row. The two failure modes surface as distinct errors so a misconfigured
// procedure name can be told apart from missing VIEW DEFINITION permission.
func (m *Metadata) ParameterSchema(ctx context.Context, q Querier, procedure string) (*RawSchema, error) {
	schemaName, objectName, err := SplitProcedureName(procedure)
	if err != nil {
		return nil, err
	}
	qualified := fmt.Sprintf("[%s].[%s]", schemaName, objectName)

	rows, err := q.QueryxContext(ctx, parameterSchemaQuery,
		sql.Named("schema", schemaName),
		sql.Named("object", objectName),
		sql.Named("qualified", qualified),
	)
	if err != nil {
		return nil, fmt.Errorf("introspect %s: %w", procedure, err)
	}
	defer rows.Close()

	raw := &RawSchema{}

	// Result set 1: catalog parameter rows.
	for rows.Next() {
		var p CatalogParameter
		if err := rows.StructScan(&p); err != nil {
			return nil, fmt.Errorf("scan parameter row for %s: %w", procedure, err)
		}
		raw.Parameters = append(raw.Parameters, p)
	}

	// Result set 2: the definition row.
	if !rows.NextResultSet() {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, procedure)
	}

	definitionRows := 0
	for rows.Next() {
		var definition *string
		if err := rows.Scan(&definition); err != nil {
			return nil, fmt.Errorf("scan definition row for %s: %w", procedure, err)
		}
		definitionRows++
		if definition != nil {
			raw.Definition = *definition
		}
	}
	if rows.NextResultSet() {
		return nil, fmt.Errorf("%w: %s: unexpected extra result set", ErrSchemaNotFound, procedure)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("introspect %s: %w", procedure, err)
	}
	if definitionRows != 1 || strings.TrimSpace(raw.Definition) == "" {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, procedure)
	}

	m.log.Debug("introspected stored procedure schema",
		"procedure", procedure,
		"parameters", len(raw.Parameters),
	)

	return raw, nil
}

// ParseParameters merges the catalog rows with defaults extracted from the
// definition text. Catalog parameters with no textual default simply remain
// without one.
func (m *Metadata) ParseParameters(procedure string, raw *RawSchema) ([]*Parameter, error) {
	schemaName, objectName, err := SplitProcedureName(procedure)
	if err != nil {
		return nil, err
	}

	params := make([]*Parameter, 0, len(raw.Parameters))
	byKey := make(map[string]*Parameter, len(raw.Parameters))
	for _, row := range raw.Parameters {
		mode, err := ParseMode(row.Mode)
		if err != nil {
			return nil, fmt.Errorf("parameter %s of %s: %w", row.Name, procedure, err)
		}
		p := &Parameter{
			Name:      row.Name,
			Type:      row.Type,
			Mode:      mode,
			Length:    row.Length,
			Precision: row.Precision,
			Scale:     row.Scale,
		}
		params = append(params, p)
		byKey[p.Key()] = p
	}

	section, err := parameterSection(schemaName, objectName, raw.Definition)
	if err != nil {
		return nil, err
	}

	for _, match := range parameterDefaultPattern.FindAllStringSubmatch(section, -1) {
		name, literal := match[1], match[2]
		p, ok := byKey[strings.ToLower(strings.TrimPrefix(name, "@"))]
		if !ok {
			continue
		}
		value, err := sqltype.ConvertLiteral(literal, p.Type)
		if err != nil {
			return nil, fmt.Errorf("default for %s of %s: %w", p.Name, procedure, err)
		}
		p.Default = value
		p.HasDefault = true
	}

	return params, nil
}

var (
	lineCommentPattern  = regexp.MustCompile(`--[^\r\n]*`)
	blockCommentPattern = regexp.MustCompile(`(?s)/\*.*?\*/`)

	// parameterDefaultPattern matches one declaration of the shape
	// "@name type = default". Only declarations carrying a default are of
	// interest; everything else already came from the catalog.
	parameterDefaultPattern = regexp.MustCompile(
		`(@\w+)\s+[\w\[\]."]+(?:\s*\(\s*[\w\s,]*\))?\s*=\s*(N?'(?:[^']|'')*'|0[xX][0-9A-Fa-f]+|[^\s,)]+)`)
)

// stripComments removes -- line comments and /* */ block comments. An empty
// result means the definition text was not in a shape we understand
// (unexpected encoding, for instance) and is treated as a parse failure.
func stripComments(definition string) (string, error) {
	s := blockCommentPattern.ReplaceAllString(definition, "")
	s = lineCommentPattern.ReplaceAllString(s, "")
	if strings.TrimSpace(s) == "" {
		return "", fmt.Errorf("%w: comment stripping produced empty text", ErrDefinitionParse)
	}
	return s, nil
}

// parameterSection strips comments and extracts the text between the
// CREATE/ALTER PROCEDURE header and the terminating AS or FOR REPLICATION
// keyword.
func parameterSection(schemaName, objectName, definition string) (string, error) {
	stripped, err := stripComments(definition)
	if err != nil {
		return "", err
	}

	re, err := headerPattern(schemaName, objectName)
	if err != nil {
		return "", err
	}

	match := re.FindStringSubmatch(stripped)
	if match == nil {
		return "", fmt.Errorf("%w: procedure header for [%s].[%s] not found",
			ErrDefinitionParse, schemaName, objectName)
	}
	if len(match) != 2 {
		return "", fmt.Errorf("%w: unexpected header decomposition for [%s].[%s]",
			ErrDefinitionParse, schemaName, objectName)
	}
	return match[1], nil
}

// headerPattern builds the anchored pattern locating one procedure's
// parameter list. The schema qualifier and brackets around either part are
// optional in source text regardless of how the caller addressed the
// procedure.
func headerPattern(schemaName, objectName string) (*regexp.Regexp, error) {
	pattern := `(?is)\b(?:CREATE|ALTER)\s+PROC(?:EDURE)?\s+` +
		`(?:\[?` + regexp.QuoteMeta(schemaName) + `\]?\s*\.\s*)?` +
		`\[?` + regexp.QuoteMeta(objectName) + `\]?` +
		`(.*?)\b(?:AS|FOR\s+REPLICATION)\b`

	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDefinitionParse, err)
	}
	return re, nil
}

// SplitProcedureName decomposes a possibly bracket-quoted, one- to
// three-part dotted identifier into schema and object name. A missing schema
// defaults to dbo; a leading database qualifier is discarded.
func SplitProcedureName(procedure string) (schemaName, objectName string, err error) {
	name := strings.TrimSpace(procedure)
	if name == "" {
		return "", "", fmt.Errorf("%w: empty procedure name", ErrSchemaNotFound)
	}

	parts := splitIdentifier(name)
	for i, p := range parts {
		parts[i] = strings.Trim(p, "[]\"")
	}

	switch len(parts) {
	case 1:
		return "dbo", parts[0], nil
	case 2:
		return parts[0], parts[1], nil
	case 3:
		return parts[1], parts[2], nil
	default:
		return "", "", fmt.Errorf("%w: cannot parse procedure name %q", ErrSchemaNotFound, procedure)
	}
}

// splitIdentifier splits a dotted identifier on dots outside brackets.
func splitIdentifier(name string) []string {
	var parts []string
	var b strings.Builder
	depth := 0
	for _, r := range name {
		switch r {
		case '[':
			depth++
			b.WriteRune(r)
		case ']':
			depth--
			b.WriteRune(r)
		case '.':
			if depth > 0 {
				b.WriteRune(r)
				continue
			}
			parts = append(parts, b.String())
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	parts = append(parts, b.String())
	return parts
}
