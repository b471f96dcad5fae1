package proc

import (
	"database/sql"
	"errors"
	"reflect"
	"sort"
	"strings"
	"testing"
)

func pagingParams() []*Parameter {
	return []*Parameter{
		{Name: "@Page", Type: "int", Mode: ModeIn},
		{Name: "@PageSize", Type: "int", Mode: ModeIn},
		{Name: "@RecordCount", Type: "int", Mode: ModeInOut},
	}
}

func TestPrepareParametersCaseInsensitiveMatch(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
	}{
		{"camelCase input", map[string]any{"page": 1, "pageSize": 10}},
		{"PascalCase input", map[string]any{"Page": 1, "PageSize": 10}},
		{"shouting input", map[string]any{"PAGE": 1, "PAGESIZE": 10}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prepared := prepareParameters(pagingParams(), tt.input)
			for _, pp := range prepared {
				if pp.Param.Mode != ModeIn {
					continue
				}
				if !pp.HasValue {
					t.Errorf("%s not bound from input %v", pp.Param.Name, tt.input)
				}
			}
		})
	}
}

func TestPrepareParametersIgnoresUnknownInput(t *testing.T) {
	prepared := prepareParameters(pagingParams(), map[string]any{
		"page":        1,
		"pageSize":    10,
		"notDeclared": "whatever",
	})

	if len(prepared) != 3 {
		t.Fatalf("unknown input key grew the prepared list: %d", len(prepared))
	}
	if err := validateRequired("dbo.GetPeople", prepared); err != nil {
		t.Errorf("validateRequired = %v, want nil", err)
	}
}

func TestPrepareParametersIdempotent(t *testing.T) {
	params := pagingParams()
	input := map[string]any{"page": 1, "pageSize": 10}

	first := prepareParameters(params, input)
	second := prepareParameters(params, input)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("prepareParameters not idempotent:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestValidateRequiredEnumeratesAllMissing(t *testing.T) {
	params := []*Parameter{
		{Name: "@A", Type: "int", Mode: ModeIn},
		{Name: "@B", Type: "int", Mode: ModeIn},
		{Name: "@C", Type: "int", Mode: ModeIn},
		{Name: "@D", Type: "int", Mode: ModeIn, HasDefault: true, Default: int64(1)},
	}
	prepared := prepareParameters(params, map[string]any{"a": 1})

	err := validateRequired("dbo.GetPeople", prepared)
	var missingErr *MissingParametersError
	if !errors.As(err, &missingErr) {
		t.Fatalf("validateRequired = %v, want MissingParametersError", err)
	}

	got := append([]string(nil), missingErr.Missing...)
	sort.Strings(got)
	want := []string{"b", "c"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("missing = %v, want %v", got, want)
	}
}

// An OUTPUT parameter with no default and no supplied value is not missing:
// the procedure fills it.
func TestValidateRequiredExemptsOutputParameters(t *testing.T) {
	prepared := prepareParameters(pagingParams(), map[string]any{"page": 1, "pageSize": 10})
	if err := validateRequired("dbo.GetPeople", prepared); err != nil {
		t.Errorf("validateRequired = %v, want nil", err)
	}
}

func TestValidateRequiredMissingPageSize(t *testing.T) {
	prepared := prepareParameters(pagingParams(), map[string]any{"page": 1})

	err := validateRequired("dbo.GetPeople", prepared)
	var missingErr *MissingParametersError
	if !errors.As(err, &missingErr) {
		t.Fatalf("validateRequired = %v, want MissingParametersError", err)
	}
	if !reflect.DeepEqual(missingErr.Missing, []string{"pagesize"}) {
		t.Errorf("missing = %v, want [pagesize]", missingErr.Missing)
	}
	if !strings.Contains(err.Error(), "pagesize") {
		t.Errorf("error message does not name the missing parameter: %v", err)
	}
}

func TestBuildArgs(t *testing.T) {
	params := []*Parameter{
		{Name: "@Page", Type: "int", Mode: ModeIn},
		{Name: "@Filter", Type: "nvarchar", Mode: ModeIn, HasDefault: true, Default: "none"},
		{Name: "@RecordCount", Type: "int", Mode: ModeInOut},
	}
	prepared := prepareParameters(params, map[string]any{"page": float64(2)})

	args, outs, err := buildArgs(prepared)
	if err != nil {
		t.Fatalf("buildArgs: %v", err)
	}

	// @Filter has a default and no supplied value: not bound at all, so the
	// procedure applies its own default.
	if len(args) != 2 {
		t.Fatalf("got %d args, want 2 (defaulted parameter must be skipped)", len(args))
	}

	named := map[string]sql.NamedArg{}
	for _, a := range args {
		na := a.(sql.NamedArg)
		named[na.Name] = na
	}

	if v, ok := named["Page"]; !ok {
		t.Error("@Page not bound")
	} else if v.Value != int64(2) {
		t.Errorf("@Page bound to %#v, want int64(2)", v.Value)
	}

	out, ok := named["RecordCount"]
	if !ok {
		t.Fatal("@RecordCount not bound")
	}
	outArg, ok := out.Value.(sql.Out)
	if !ok {
		t.Fatalf("@RecordCount bound as %T, want sql.Out", out.Value)
	}
	if outArg.In {
		t.Error("output parameter without a supplied value marked as In")
	}
	if outs["RecordCount"] != outArg.Dest {
		t.Error("output destination not tracked for envelope assembly")
	}
}

func TestBuildArgsInOutWithValue(t *testing.T) {
	params := []*Parameter{
		{Name: "@Counter", Type: "int", Mode: ModeInOut},
	}
	prepared := prepareParameters(params, map[string]any{"counter": float64(5)})

	args, outs, err := buildArgs(prepared)
	if err != nil {
		t.Fatalf("buildArgs: %v", err)
	}
	if len(args) != 1 {
		t.Fatalf("got %d args, want 1", len(args))
	}

	na := args[0].(sql.NamedArg)
	outArg := na.Value.(sql.Out)
	if !outArg.In {
		t.Error("INOUT parameter with a supplied value must be marked In")
	}
	if got := *(outs["Counter"].(*int64)); got != 5 {
		t.Errorf("INOUT destination seeded with %d, want 5", got)
	}
}
