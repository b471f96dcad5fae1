package proc

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrSchemaNotFound reports that the introspection batch did not return
	// the expected two result sets for a procedure.
	ErrSchemaNotFound = errors.New("stored procedure schema not found")

	// ErrDefinitionNotFound reports that the definition result set did not
	// contain exactly one non-empty row. Distinct from ErrSchemaNotFound so
	// a misnamed procedure can be told apart from a permissions problem.
	ErrDefinitionNotFound = errors.New("stored procedure definition not found")

	// ErrDefinitionParse reports that the definition text did not match the
	// expected CREATE/ALTER PROCEDURE shape, or that comment stripping
	// produced an empty result.
	ErrDefinitionParse = errors.New("could not parse stored procedure definition")
)

// UnknownModeError reports a catalog parameter mode outside the closed
// IN/INOUT vocabulary. It indicates inconsistent catalog metadata and should
// never occur against a well-formed database.
type UnknownModeError struct {
	Raw string
}

func (e *UnknownModeError) Error() string {
	return fmt.Sprintf("unknown parameter mode %q", e.Raw)
}

// MissingParametersError enumerates every declared parameter that has
// neither a caller-supplied value nor a definition default, so callers see
// the full list in one failure instead of discovering them one at a time.
type MissingParametersError struct {
	Procedure string
	Missing   []string // input keys (sigil stripped)
}

func (e *MissingParametersError) Error() string {
	return fmt.Sprintf("procedure %s missing required parameters: %s",
		e.Procedure, strings.Join(e.Missing, ", "))
}
