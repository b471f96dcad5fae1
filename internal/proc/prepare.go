package proc

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/Falven/mssql-data-source/internal/sqltype"
)

// PreparedParameter is a declared parameter resolved to a driver-bindable
// descriptor with the caller's value attached. Built fresh per invocation
// from the parsed schema; never cached.
type PreparedParameter struct {
	Param    *Parameter
	Type     sqltype.Descriptor
	Value    any
	HasValue bool
}

// prepareParameters resolves every declared parameter's driver type and
// merges the caller's input by case-insensitive, sigil-stripped name match.
// Input keys that match no declared parameter are silently ignored; the
// schema is the source of truth for what is bindable.
func prepareParameters(params []*Parameter, input map[string]any) []*PreparedParameter {
	prepared := make([]*PreparedParameter, 0, len(params))
	byKey := make(map[string]*PreparedParameter, len(params))

	for _, p := range params {
		pp := &PreparedParameter{
			Param: p,
			Type:  sqltype.MapDBType(p.Type, p.Length, p.Precision, p.Scale),
		}
		prepared = append(prepared, pp)
		byKey[p.Key()] = pp
	}

	for key, value := range input {
		if pp, ok := byKey[strings.ToLower(key)]; ok {
			pp.Value = value
			pp.HasValue = true
		}
	}

	return prepared
}

// validateRequired collects every input parameter that has neither a
// caller-supplied value nor a definition default, and fails with the full
// list. Output parameters are filled by the procedure itself and are never
// required from the caller.
func validateRequired(procedure string, prepared []*PreparedParameter) error {
	var missing []string
	for _, pp := range prepared {
		if pp.Param.Mode != ModeIn {
			continue
		}
		if !pp.HasValue && !pp.Param.HasDefault {
			missing = append(missing, pp.Param.Key())
		}
	}
	if len(missing) > 0 {
		return &MissingParametersError{Procedure: procedure, Missing: missing}
	}
	return nil
}

// buildArgs converts prepared parameters into named driver arguments. A
// parameter with a definition default and no supplied value is not bound at
// all, letting the procedure apply its own default. Output destinations are
// returned keyed by sigil-stripped parameter name for envelope assembly.
func buildArgs(prepared []*PreparedParameter) (args []interface{}, outs map[string]any, err error) {
	outs = make(map[string]any)

	for _, pp := range prepared {
		if pp.Param.HasDefault && !pp.HasValue {
			continue
		}
		name := strings.TrimPrefix(pp.Param.Name, "@")

		switch pp.Param.Mode {
		case ModeIn:
			v, err := sqltype.BindValue(pp.Type, pp.Value)
			if err != nil {
				return nil, nil, fmt.Errorf("parameter %s: %w", pp.Param.Name, err)
			}
			args = append(args, sql.Named(name, v))

		case ModeInOut:
			var initial any
			if pp.HasValue {
				initial = pp.Value
			}
			dest, err := sqltype.NewOutDest(pp.Type, initial)
			if err != nil {
				return nil, nil, fmt.Errorf("parameter %s: %w", pp.Param.Name, err)
			}
			outs[name] = dest
			args = append(args, sql.Named(name, sql.Out{Dest: dest, In: pp.HasValue}))

		default:
			// Unknown modes are rejected at catalog ingestion; reaching this
			// branch means a PreparedParameter was constructed by hand.
			return nil, nil, &UnknownModeError{Raw: pp.Param.Mode.String()}
		}
	}

	return args, outs, nil
}
