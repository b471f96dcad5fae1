// Package sqltype maps SQL Server catalog type names to driver-bindable
// descriptors and converts between T-SQL literals, caller-supplied values,
// and the Go values the go-mssqldb driver expects.
package sqltype

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-sql/civil"
	"github.com/google/uuid"
	mssql "github.com/microsoft/go-mssqldb"
)

// Family classifies a SQL Server data type by how it is bound and converted.
type Family int

const (
	FamilyChar Family = iota // char, varchar, text
	FamilyNChar              // nchar, nvarchar, ntext, xml, sysname
	FamilyInteger            // tinyint, smallint, int, bigint
	FamilyDecimal            // decimal, numeric
	FamilyFloat              // float, real
	FamilyMoney              // money, smallmoney
	FamilyBit
	FamilyDate
	FamilyTime
	FamilyDateTime       // datetime, smalldatetime, datetime2
	FamilyDateTimeOffset
	FamilyBinary // binary, varbinary, image
	FamilyRowVersion
	FamilyUniqueIdentifier
	FamilyVariant
	FamilySpatial // geometry, geography, hierarchyid
)

// Descriptor is a driver-bindable rendition of a catalog-reported type:
// the normalized type name, its family, and whichever of length, precision,
// and scale are meaningful for that family.
type Descriptor struct {
	Name      string
	Family    Family
	Length    int64 // -1 means MAX; 0 means driver default
	Precision int64
	Scale     int64
}

// typeArity describes how a catalog type consumes the optional size columns.
type typeArity int

const (
	arityNone typeArity = iota
	arityLength
	arityScale
	arityPrecisionScale
)

var knownTypes = map[string]struct {
	family Family
	arity  typeArity
}{
	"char":             {FamilyChar, arityLength},
	"varchar":          {FamilyChar, arityLength},
	"text":             {FamilyChar, arityNone},
	"nchar":            {FamilyNChar, arityLength},
	"nvarchar":         {FamilyNChar, arityLength},
	"ntext":            {FamilyNChar, arityNone},
	"sysname":          {FamilyNChar, arityNone},
	"xml":              {FamilyNChar, arityNone},
	"tinyint":          {FamilyInteger, arityNone},
	"smallint":         {FamilyInteger, arityNone},
	"int":              {FamilyInteger, arityNone},
	"bigint":           {FamilyInteger, arityNone},
	"decimal":          {FamilyDecimal, arityPrecisionScale},
	"numeric":          {FamilyDecimal, arityPrecisionScale},
	"float":            {FamilyFloat, arityNone},
	"real":             {FamilyFloat, arityNone},
	"money":            {FamilyMoney, arityNone},
	"smallmoney":       {FamilyMoney, arityNone},
	"bit":              {FamilyBit, arityNone},
	"date":             {FamilyDate, arityNone},
	"time":             {FamilyTime, arityScale},
	"datetime":         {FamilyDateTime, arityNone},
	"smalldatetime":    {FamilyDateTime, arityNone},
	"datetime2":        {FamilyDateTime, arityScale},
	"datetimeoffset":   {FamilyDateTimeOffset, arityScale},
	"binary":           {FamilyBinary, arityLength},
	"varbinary":        {FamilyBinary, arityLength},
	"image":            {FamilyBinary, arityNone},
	"timestamp":        {FamilyRowVersion, arityNone},
	"rowversion":       {FamilyRowVersion, arityNone},
	"uniqueidentifier": {FamilyUniqueIdentifier, arityNone},
	"sql_variant":      {FamilyVariant, arityNone},
	"geometry":         {FamilySpatial, arityNone},
	"geography":        {FamilySpatial, arityNone},
	"hierarchyid":      {FamilySpatial, arityNone},
}

// fallbackDescriptor is used for unrecognized catalog type names and for
// table-valued parameters, which cannot be bound from a flat input map.
// Degrading to a generic variable-length text type keeps the long tail of
// exotic catalog strings from blocking procedure execution.
func fallbackDescriptor(name string) Descriptor {
	return Descriptor{Name: name, Family: FamilyNChar, Length: -1}
}

// MapDBType resolves a catalog-reported type name (plus the optional length,
// precision, and scale columns) into a Descriptor. Lookup is case-insensitive.
// Unknown type names and table types never fail; they fall back to a generic
// nvarchar(max)-style descriptor.
func MapDBType(name string, length, precision, scale *int64) Descriptor {
	key := strings.ToLower(strings.TrimSpace(name))
	info, ok := knownTypes[key]
	if !ok {
		// "table type" is what INFORMATION_SCHEMA reports for TVPs.
		return fallbackDescriptor(name)
	}

	d := Descriptor{Name: key, Family: info.family}
	switch info.arity {
	case arityLength:
		if length != nil {
			d.Length = *length
		}
	case arityScale:
		if scale != nil {
			d.Scale = *scale
		}
	case arityPrecisionScale:
		if precision != nil {
			d.Precision = *precision
		}
		if scale != nil {
			d.Scale = *scale
		}
	}
	return d
}

// BindValue coerces a caller-supplied value (typically decoded from JSON:
// string, float64, bool, nil) into the Go value the driver binds for the
// descriptor's family.
func BindValue(d Descriptor, v any) (any, error) {
	if v == nil {
		return nil, nil
	}

	switch d.Family {
	case FamilyChar:
		s, err := toString(v)
		if err != nil {
			return nil, bindErr(d, err)
		}
		if d.Length < 0 {
			return mssql.VarCharMax(s), nil
		}
		return mssql.VarChar(s), nil

	case FamilyNChar, FamilyVariant, FamilySpatial:
		s, err := toString(v)
		if err != nil {
			return nil, bindErr(d, err)
		}
		return s, nil

	case FamilyInteger:
		n, err := toInt64(v)
		if err != nil {
			return nil, bindErr(d, err)
		}
		return n, nil

	case FamilyDecimal, FamilyMoney:
		// Decimals travel as strings to avoid float rounding.
		switch t := v.(type) {
		case string:
			return t, nil
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64), nil
		case int:
			return strconv.FormatInt(int64(t), 10), nil
		case int64:
			return strconv.FormatInt(t, 10), nil
		default:
			return nil, bindErr(d, fmt.Errorf("cannot convert %T to decimal", v))
		}

	case FamilyFloat:
		f, err := toFloat64(v)
		if err != nil {
			return nil, bindErr(d, err)
		}
		return f, nil

	case FamilyBit:
		b, err := toBool(v)
		if err != nil {
			return nil, bindErr(d, err)
		}
		return b, nil

	case FamilyDate:
		t, err := toTime(v)
		if err != nil {
			return nil, bindErr(d, err)
		}
		return civil.DateOf(t), nil

	case FamilyTime:
		t, err := toTime(v)
		if err != nil {
			return nil, bindErr(d, err)
		}
		return civil.TimeOf(t), nil

	case FamilyDateTime, FamilyDateTimeOffset:
		t, err := toTime(v)
		if err != nil {
			return nil, bindErr(d, err)
		}
		return t, nil

	case FamilyBinary, FamilyRowVersion:
		b, err := toBytes(v)
		if err != nil {
			return nil, bindErr(d, err)
		}
		return b, nil

	case FamilyUniqueIdentifier:
		switch t := v.(type) {
		case string:
			u, err := uuid.Parse(t)
			if err != nil {
				return nil, bindErr(d, err)
			}
			return mssql.UniqueIdentifier(u), nil
		case mssql.UniqueIdentifier:
			return t, nil
		case uuid.UUID:
			return mssql.UniqueIdentifier(t), nil
		default:
			return nil, bindErr(d, fmt.Errorf("cannot convert %T to uniqueidentifier", v))
		}
	}

	return nil, bindErr(d, fmt.Errorf("unhandled family %d", d.Family))
}

// NewOutDest allocates the destination an output binding scans into. When
// initial is non-nil (an INOUT parameter with a caller-supplied value), the
// destination starts out holding the coerced input value.
func NewOutDest(d Descriptor, initial any) (any, error) {
	switch d.Family {
	case FamilyChar, FamilyNChar, FamilyDecimal, FamilyMoney, FamilyVariant, FamilySpatial:
		dest := new(string)
		if initial != nil {
			s, err := toString(initial)
			if err != nil {
				return nil, bindErr(d, err)
			}
			*dest = s
		}
		return dest, nil
	case FamilyInteger:
		dest := new(int64)
		if initial != nil {
			n, err := toInt64(initial)
			if err != nil {
				return nil, bindErr(d, err)
			}
			*dest = n
		}
		return dest, nil
	case FamilyFloat:
		dest := new(float64)
		if initial != nil {
			f, err := toFloat64(initial)
			if err != nil {
				return nil, bindErr(d, err)
			}
			*dest = f
		}
		return dest, nil
	case FamilyBit:
		dest := new(bool)
		if initial != nil {
			b, err := toBool(initial)
			if err != nil {
				return nil, bindErr(d, err)
			}
			*dest = b
		}
		return dest, nil
	case FamilyDate, FamilyTime, FamilyDateTime, FamilyDateTimeOffset:
		dest := new(time.Time)
		if initial != nil {
			t, err := toTime(initial)
			if err != nil {
				return nil, bindErr(d, err)
			}
			*dest = t
		}
		return dest, nil
	case FamilyBinary, FamilyRowVersion:
		dest := new([]byte)
		if initial != nil {
			b, err := toBytes(initial)
			if err != nil {
				return nil, bindErr(d, err)
			}
			*dest = b
		}
		return dest, nil
	case FamilyUniqueIdentifier:
		dest := new(mssql.UniqueIdentifier)
		if initial != nil {
			v, err := BindValue(d, initial)
			if err != nil {
				return nil, err
			}
			*dest = v.(mssql.UniqueIdentifier)
		}
		return dest, nil
	}
	return nil, bindErr(d, fmt.Errorf("unhandled family %d", d.Family))
}

// OutValue dereferences a destination created by NewOutDest.
func OutValue(dest any) any {
	switch t := dest.(type) {
	case *string:
		return *t
	case *int64:
		return *t
	case *float64:
		return *t
	case *bool:
		return *t
	case *time.Time:
		return *t
	case *[]byte:
		return *t
	case *mssql.UniqueIdentifier:
		return t.String()
	default:
		return dest
	}
}

func bindErr(d Descriptor, err error) error {
	return fmt.Errorf("bind %s: %w", d.Name, err)
}

// --- value coercion helpers ---

func toString(v any) (string, error) {
	switch t := v.(type) {
	case string:
		return t, nil
	case []byte:
		return string(t), nil
	case fmt.Stringer:
		return t.String(), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(t), nil
	case int64:
		return strconv.FormatInt(t, 10), nil
	case bool:
		return strconv.FormatBool(t), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", v)
	}
}

func toInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case int:
		return int64(t), nil
	case int32:
		return int64(t), nil
	case float64:
		return int64(t), nil
	case string:
		return strconv.ParseInt(strings.TrimSpace(t), 10, 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to int64", v)
	}
}

func toFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(t), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float64", v)
	}
}

func toBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case float64:
		return t != 0, nil
	case int:
		return t != 0, nil
	case int64:
		return t != 0, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true":
			return true, nil
		case "0", "false":
			return false, nil
		}
		return false, fmt.Errorf("cannot convert %q to bool", t)
	default:
		return false, fmt.Errorf("cannot convert %T to bool", v)
	}
}

// timeLayouts are tried in order when parsing textual temporal values.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"15:04:05.999999999",
	"15:04:05",
}

func toTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		s := strings.TrimSpace(t)
		for _, layout := range timeLayouts {
			if parsed, err := time.Parse(layout, s); err == nil {
				return parsed, nil
			}
		}
		return time.Time{}, fmt.Errorf("cannot parse %q as time", t)
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to time", v)
	}
}

func toBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		if strings.HasPrefix(t, "0x") || strings.HasPrefix(t, "0X") {
			return hex.DecodeString(t[2:])
		}
		if b, err := base64.StdEncoding.DecodeString(t); err == nil {
			return b, nil
		}
		return []byte(t), nil
	default:
		return nil, fmt.Errorf("cannot convert %T to bytes", v)
	}
}
