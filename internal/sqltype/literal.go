package sqltype

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupportedType reports a default-value literal whose SQL type family
// cannot be converted: table-valued parameters, user-defined types, and any
// catalog type string outside the known families.
var ErrUnsupportedType = errors.New("unsupported sql type")

// literalFamily classifies a catalog type name by prefix for default-literal
// conversion. Checked in order; the first matching prefix wins, so longer or
// more specific prefixes come before shorter ones ("datetimeoffset" before
// "datetime" before "date"), and the bytes family comes before the temporal
// one so "timestamp" is not swallowed by the "time" prefix.
var literalFamilies = []struct {
	prefixes []string
	convert  func(lit, sqlType string) (any, error)
}{
	{[]string{"nchar", "nvarchar", "ntext", "char", "varchar", "text", "sysname", "xml", "uniqueidentifier"}, literalString},
	{[]string{"bit"}, literalBool},
	{[]string{"tinyint", "smallint", "int", "bigint", "decimal", "numeric", "float", "real", "smallmoney", "money"}, literalNumber},
	{[]string{"varbinary", "binary", "image", "timestamp", "rowversion"}, literalBytes},
	{[]string{"datetimeoffset", "datetime2", "datetime", "smalldatetime", "date", "time"}, literalTime},
	{[]string{"geometry", "geography", "hierarchyid"}, literalPassthrough},
}

// ConvertLiteral converts a textual default-value token captured from a
// procedure definition into a native value, classified by the parameter's
// catalog type. The literal "NULL" (exact match) is always nil regardless of
// type. Table types and user-defined types are unsupported and fail, as does
// any type name not matching a known family.
func ConvertLiteral(literal, sqlType string) (any, error) {
	if literal == "NULL" {
		return nil, nil
	}

	lower := strings.ToLower(strings.TrimSpace(sqlType))
	if lower == "table type" || strings.HasPrefix(lower, "table") {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, sqlType)
	}

	for _, fam := range literalFamilies {
		for _, p := range fam.prefixes {
			if strings.HasPrefix(lower, p) {
				return fam.convert(literal, sqlType)
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, sqlType)
}

// unquoteLiteral strips an optional N prefix and surrounding single quotes,
// collapsing doubled quotes inside the body.
func unquoteLiteral(lit string) string {
	s := strings.TrimSpace(lit)
	if strings.HasPrefix(s, "N'") {
		s = s[1:]
	}
	if len(s) >= 2 && s[0] == '\'' && s[len(s)-1] == '\'' {
		s = strings.ReplaceAll(s[1:len(s)-1], "''", "'")
	}
	return s
}

func literalString(lit, _ string) (any, error) {
	return unquoteLiteral(lit), nil
}

func literalBool(lit, sqlType string) (any, error) {
	switch strings.TrimSpace(lit) {
	case "1":
		return true, nil
	case "0":
		return false, nil
	}
	return nil, fmt.Errorf("invalid %s literal %q", sqlType, lit)
}

func literalNumber(lit, sqlType string) (any, error) {
	s := strings.TrimSpace(lit)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s literal %q: %w", sqlType, lit, err)
	}
	return f, nil
}

func literalTime(lit, sqlType string) (any, error) {
	s := unquoteLiteral(lit)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return nil, fmt.Errorf("invalid %s literal %q", sqlType, lit)
}

func literalBytes(lit, sqlType string) (any, error) {
	s := strings.TrimSpace(lit)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		b, err := hex.DecodeString(s[2:])
		if err != nil {
			return nil, fmt.Errorf("invalid %s literal %q: %w", sqlType, lit, err)
		}
		return b, nil
	}
	return []byte(unquoteLiteral(s)), nil
}

func literalPassthrough(lit, _ string) (any, error) {
	return unquoteLiteral(lit), nil
}
