// Package proc implements the stored-procedure invocation pipeline: catalog
// introspection, definition-text parsing, schema caching, parameter
// preparation and validation, execution, and result normalization.
package proc

import (
	"fmt"
	"strings"
)

// Mode is a parameter's direction. The vocabulary is closed: the SQL Server
// catalog only ever reports IN and INOUT (OUTPUT parameters are readable
// inside the procedure, so the catalog calls them INOUT). Anything else is
// rejected when the catalog row is ingested.
type Mode int

const (
	ModeIn Mode = iota + 1
	ModeInOut
)

// String returns the catalog spelling of the mode.
func (m Mode) String() string {
	switch m {
	case ModeIn:
		return "IN"
	case ModeInOut:
		return "INOUT"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode converts a catalog PARAMETER_MODE value. Unrecognized values are
// a metadata inconsistency and fail immediately rather than flowing on to
// the bind step.
func ParseMode(s string) (Mode, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IN":
		return ModeIn, nil
	case "INOUT":
		return ModeInOut, nil
	default:
		return 0, &UnknownModeError{Raw: s}
	}
}

// Parameter is one declared parameter of a procedure, merged from the
// catalog row (name, type, mode, sizes) and the definition text (default).
// Immutable once parsed.
type Parameter struct {
	Name       string // includes the leading @
	Type       string // catalog-reported type name
	Mode       Mode
	Default    any
	HasDefault bool
	Length     *int64
	Precision  *int64
	Scale      *int64
}

// Key returns the lookup key for caller input matching: the name with its
// sigil stripped, lowercased.
func (p Parameter) Key() string {
	return strings.ToLower(strings.TrimPrefix(p.Name, "@"))
}

// CatalogParameter is one row of the INFORMATION_SCHEMA.PARAMETERS result
// set, before mode parsing and default extraction.
type CatalogParameter struct {
	Name      string  `db:"PARAMETER_NAME"`
	Type      string  `db:"DATA_TYPE"`
	Mode      string  `db:"PARAMETER_MODE"`
	Length    *int64  `db:"CHARACTER_MAXIMUM_LENGTH"`
	Precision *int64  `db:"NUMERIC_PRECISION"`
	Scale     *int64  `db:"NUMERIC_SCALE"`
}

// RawSchema is the unparsed introspection result for one procedure: the
// catalog parameter rows and the full definition text. Both parts must be
// present; this is also the payload held by the schema cache, so cache hits
// re-run text parsing rather than carrying a second parsed representation.
type RawSchema struct {
	Parameters []CatalogParameter
	Definition string
}
