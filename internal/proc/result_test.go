package proc

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/Falven/mssql-data-source/internal/fields"
)

func TestNormalizeEnvelopeRemapsColumns(t *testing.T) {
	resultSets := [][]map[string]any{
		{
			{"FIRST_NAME": "Ada", "LAST_NAME": []byte("Lovelace")},
			{"FIRST_NAME": "Alan", "LAST_NAME": []byte("Turing")},
		},
	}
	count := int64(2)
	tables := fields.Tables{
		Selection: fields.TableOf("firstName"),
		Siblings:  fields.TableOf("recordCount"),
	}

	env := normalizeEnvelope(resultSets, []int64{2}, 0,
		map[string]any{"RecordCount": &count}, tables)

	want := [][]map[string]any{
		{
			{"firstName": "Ada", "lastName": "Lovelace"},
			{"firstName": "Alan", "lastName": "Turing"},
		},
	}
	if !reflect.DeepEqual(env.ResultSets, want) {
		t.Errorf("ResultSets = %+v, want %+v", env.ResultSets, want)
	}
	if got := env.Output["recordCount"]; got != int64(2) {
		t.Errorf("Output[recordCount] = %#v, want int64(2)", got)
	}
	if !reflect.DeepEqual(env.RowsAffected, []int64{2}) {
		t.Errorf("RowsAffected = %v, want [2]", env.RowsAffected)
	}
}

// With no field tables supplied every name falls back to camelCase.
func TestNormalizeEnvelopeWithoutTables(t *testing.T) {
	resultSets := [][]map[string]any{
		{{"Person_Id": int64(7), "Full Name": "Ada Lovelace"}},
	}
	status := int64(1)

	env := normalizeEnvelope(resultSets, []int64{1}, 0,
		map[string]any{"StatusCode": &status}, fields.Tables{})

	row := env.ResultSets[0][0]
	if _, ok := row["personId"]; !ok {
		t.Errorf("snake-cased column not camelCased: %v", row)
	}
	if _, ok := row["fullName"]; !ok {
		t.Errorf("spaced column not camelCased: %v", row)
	}
	if _, ok := env.Output["statusCode"]; !ok {
		t.Errorf("output name not camelCased: %v", env.Output)
	}
}

func TestCleanValue(t *testing.T) {
	if got := cleanValue([]byte("hello")); got != "hello" {
		t.Errorf("textual bytes = %#v, want string", got)
	}
	binary := []byte{0xff, 0xfe, 0x00}
	if got := cleanValue(binary); !reflect.DeepEqual(got, binary) {
		t.Errorf("non-UTF8 bytes were converted: %#v", got)
	}
	if got := cleanValue(int64(5)); got != int64(5) {
		t.Errorf("non-byte value changed: %#v", got)
	}
	if got := cleanValue(nil); got != nil {
		t.Errorf("nil changed: %#v", got)
	}
}

// Output fields serialize at the top level of the envelope, and reserved
// envelope keys win over colliding output names.
func TestEnvelopeMarshalSpreadsOutput(t *testing.T) {
	env := &ResultEnvelope{
		ResultSets:   [][]map[string]any{{{"id": int64(1)}}},
		ReturnValue:  0,
		RowsAffected: []int64{1},
		Output: map[string]any{
			"recordCount": int64(42),
			"returnValue": int64(99),
		},
	}

	data, err := json.Marshal(env)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if got := decoded["recordCount"]; got != float64(42) {
		t.Errorf("recordCount = %#v, want 42 at top level", got)
	}
	if got := decoded["returnValue"]; got != float64(0) {
		t.Errorf("returnValue = %#v, want the envelope's 0, not the colliding output", got)
	}
	if _, ok := decoded["resultSets"]; !ok {
		t.Error("resultSets missing from serialized envelope")
	}
}
