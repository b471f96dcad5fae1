package proc

import (
	"encoding/json"
	"unicode/utf8"

	"github.com/Falven/mssql-data-source/internal/fields"
	"github.com/Falven/mssql-data-source/internal/sqltype"
)

// ResultEnvelope is the normalized outcome of one procedure invocation:
// every tabular result set in order, the procedure's return code, per-result-
// set row counts, and the output-parameter values. When serialized, output
// fields are spread at the top level next to resultSets.
type ResultEnvelope struct {
	ResultSets   [][]map[string]any `json:"resultSets"`
	ReturnValue  int64              `json:"returnValue"`
	RowsAffected []int64            `json:"rowsAffected"`
	Output       map[string]any     `json:"-"`
}

// MarshalJSON spreads the output-parameter fields at the top level of the
// envelope, matching how the resolver layer consumes them. Reserved envelope
// keys win over colliding output names.
func (e *ResultEnvelope) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Output)+3)
	for k, v := range e.Output {
		m[k] = v
	}
	m["resultSets"] = e.ResultSets
	m["returnValue"] = e.ReturnValue
	m["rowsAffected"] = e.RowsAffected
	return json.Marshal(m)
}

// normalizeEnvelope remaps result-set columns through the selection table,
// output parameters through the sibling table, and assembles the envelope.
func normalizeEnvelope(resultSets [][]map[string]any, rowsAffected []int64, returnValue int64, outs map[string]any, tables fields.Tables) *ResultEnvelope {
	remappedSets := make([][]map[string]any, len(resultSets))
	for i, set := range resultSets {
		remappedSets[i] = make([]map[string]any, len(set))
		for j, row := range set {
			remappedSets[i][j] = remapRow(row, tables.Selection)
		}
	}

	output := make(map[string]any, len(outs))
	for name, dest := range outs {
		output[tables.Siblings.Resolve(name)] = cleanValue(sqltype.OutValue(dest))
	}

	return &ResultEnvelope{
		ResultSets:   remappedSets,
		ReturnValue:  returnValue,
		RowsAffected: rowsAffected,
		Output:       output,
	}
}

func remapRow(row map[string]any, table fields.Table) map[string]any {
	out := make(map[string]any, len(row))
	for name, value := range row {
		out[table.Resolve(name)] = cleanValue(value)
	}
	return out
}

// cleanValue converts textual []byte driver returns into strings so the
// envelope serializes as JSON text rather than base64.
func cleanValue(v any) any {
	if b, ok := v.([]byte); ok && utf8.Valid(b) {
		return string(b)
	}
	return v
}
