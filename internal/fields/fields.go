// Package fields resolves raw database column and output-parameter names to
// the casing a consumer asked for. A resolver layer that knows the exact
// requested field names supplies a Table; anything not covered falls back to
// generic camelCase conversion.
package fields

import (
	"strings"

	"github.com/iancoleman/strcase"
)

// Table maps a lowercased field name to its canonical casing.
type Table map[string]string

// TableOf builds a Table from canonically cased field names.
func TableOf(names ...string) Table {
	if len(names) == 0 {
		return nil
	}
	t := make(Table, len(names))
	for _, n := range names {
		t[strings.ToLower(n)] = n
	}
	return t
}

// Resolve returns the canonical casing for a raw column or parameter name.
// A nil Table, or a name absent from it, falls back to lowerCamelCase.
func (t Table) Resolve(raw string) string {
	if t != nil {
		if canonical, ok := t[strings.ToLower(raw)]; ok {
			return canonical
		}
	}
	return strcase.ToLowerCamel(raw)
}

// Tables carries the two name tables of one invocation: Selection covers the
// columns of the procedure's result sets, Siblings covers the output-parameter
// fields that sit next to the result sets in the envelope.
type Tables struct {
	Selection Table
	Siblings  Table
}
