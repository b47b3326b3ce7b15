package mapper

import (
	"encoding/hex"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	integerTypeRe  = regexp.MustCompile(`(?i)int|serial|year`)
	floatTypeRe    = regexp.MustCompile(`(?i)float|real|double|numeric|decimal`)
	textTypeRe     = regexp.MustCompile(`(?i)char|text|name|citext|json|enum`)
	temporalTypeRe = regexp.MustCompile(`(?i)time|date`)
)

// MapValue converts a single column value to a JSON scalar (nil, bool, a Go number type,
// or string), using typeName (the column's declared database type) and dialect to pick the
// conversion rule. The first matching rule wins; an unmappable type never errors, it
// degrades to a descriptive string so the caller never loses a column.
func MapValue(dialect Dialect, typeName string, raw any) any {
	if raw == nil {
		return nil
	}

	if b, ok := raw.([]byte); ok && b == nil {
		return nil
	}

	switch dialect {
	case Postgres:
		return mapPostgres(typeName, raw)
	case MySQL:
		return mapMySQL(typeName, raw)
	case SQLite:
		return mapSQLite(typeName, raw)
	default:
		return fallback(typeName, raw)
	}
}

func mapPostgres(typeName string, raw any) any {
	lower := strings.ToLower(typeName)

	switch {
	case lower == "bool" || lower == "boolean" || lower == "bit":
		if v, ok := asBool(raw); ok {
			return v
		}
	case lower == "uuid":
		if v, ok := asUUIDString(raw); ok {
			return v
		}
	case integerTypeRe.MatchString(lower):
		if v, ok := asInt(raw); ok {
			return v
		}
	case floatTypeRe.MatchString(lower):
		if v, ok := asFloat(raw); ok {
			return v
		}
		return asString(raw)
	case lower == "text" || textTypeRe.MatchString(lower):
		return asString(raw)
	case lower == "bytea":
		return asHex(raw)
	case temporalTypeRe.MatchString(lower) || lower == "date":
		return asTemporalString(raw)
	}

	return fallback(typeName, raw)
}

func mapMySQL(typeName string, raw any) any {
	lower := strings.ToLower(typeName)

	switch {
	// The "tinyint(1)" match is aspirational: go-sql-driver/mysql's
	// sql.ColumnType.DatabaseTypeName() reports bare "TINYINT" with no display width, so a
	// typeName sourced from the driver never actually hits this branch and tinyint(1)
	// columns fall through to the integer rule below. The match stays for callers that pass
	// a width-qualified type string from elsewhere (e.g. information_schema.COLUMN_TYPE).
	case lower == "tinyint(1)" || lower == "bool" || lower == "boolean":
		if v, ok := asBool(raw); ok {
			return v
		}
	case strings.Contains(lower, "unsigned"):
		if v, ok := asUint(raw); ok {
			return v
		}
	case integerTypeRe.MatchString(lower):
		if v, ok := asInt(raw); ok {
			return v
		}
	case floatTypeRe.MatchString(lower):
		if v, ok := asFloat(raw); ok {
			return v
		}
		return asString(raw)
	case lower == "text" || textTypeRe.MatchString(lower):
		return asString(raw)
	case lower == "blob" || lower == "binary" || lower == "varbinary":
		if b, ok := rawBytes(raw); ok && len(b) == 16 {
			if id, err := uuid.FromBytes(b); err == nil {
				return id.String()
			}
		}
		return asHex(raw)
	case lower == "timestamp" || temporalTypeRe.MatchString(lower):
		return asTemporalString(raw)
	}

	return fallback(typeName, raw)
}

func mapSQLite(typeName string, raw any) any {
	lower := strings.ToLower(typeName)

	switch {
	case lower == "bool" || lower == "boolean":
		if v, ok := asBool(raw); ok {
			return v
		}
	case integerTypeRe.MatchString(lower):
		if v, ok := asInt(raw); ok {
			return v
		}
	case floatTypeRe.MatchString(lower):
		if v, ok := asFloat(raw); ok {
			return v
		}
		return asString(raw)
	case lower == "text" || textTypeRe.MatchString(lower):
		return asString(raw)
	case lower == "blob":
		return asHex(raw)
	}

	return fallback(typeName, raw)
}

// fallback handles a type name none of the dialect's rule tables recognized. It only
// trusts the value's own Go type here (bool stays bool), rather than calling asBool, which
// would otherwise misread an ordinary 0/1 integer as a boolean.
func fallback(typeName string, raw any) any {
	if b, ok := raw.(bool); ok {
		return b
	}
	if v, ok := asInt(raw); ok {
		return v
	}
	if v, ok := asFloat(raw); ok {
		return v
	}
	if s, ok := raw.(string); ok {
		return s
	}

	return fmt.Sprintf("Binary/Complex (%s)", typeName)
}

func rawBytes(raw any) ([]byte, bool) {
	b, ok := raw.([]byte)
	return b, ok
}

func asBool(raw any) (bool, bool) {
	switch v := raw.(type) {
	case bool:
		return v, true
	case int64:
		return v != 0, true
	case []byte:
		s := string(v)
		return s == "1" || strings.EqualFold(s, "t") || strings.EqualFold(s, "true"), true
	case string:
		return v == "1" || strings.EqualFold(v, "t") || strings.EqualFold(v, "true"), true
	}

	return false, false
}

func asInt(raw any) (int64, bool) {
	switch v := raw.(type) {
	case int64:
		return v, true
	case int32:
		return int64(v), true
	case int:
		return int64(v), true
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	case float64:
		return int64(v), true
	}

	return 0, false
}

func asUint(raw any) (uint64, bool) {
	switch v := raw.(type) {
	case uint64:
		return v, true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case []byte:
		n, err := strconv.ParseUint(string(v), 10, 64)
		return n, err == nil
	case string:
		n, err := strconv.ParseUint(v, 10, 64)
		return n, err == nil
	}

	return 0, false
}

func asFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case []byte:
		f, err := strconv.ParseFloat(string(v), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	case int64:
		return float64(v), true
	}

	return 0, false
}

func asString(raw any) string {
	switch v := raw.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asHex(raw any) string {
	b, ok := rawBytes(raw)
	if !ok {
		b = []byte(asString(raw))
	}

	return "0x" + hex.EncodeToString(b)
}

func asUUIDString(raw any) (string, bool) {
	switch v := raw.(type) {
	case string:
		if id, err := uuid.Parse(v); err == nil {
			return id.String(), true
		}
		return v, true
	case []byte:
		if len(v) == 16 {
			if id, err := uuid.FromBytes(v); err == nil {
				return id.String(), true
			}
		}
		if id, err := uuid.ParseBytes(v); err == nil {
			return id.String(), true
		}
	}

	return "", false
}

// asTemporalString renders a time.Time as ISO-8601 for UTC datetimes, "YYYY-MM-DD HH:MM:SS"
// for naive (non-UTC-tagged) ones, otherwise the value's own string form.
func asTemporalString(raw any) string {
	switch v := raw.(type) {
	case time.Time:
		if v.Location() == time.UTC {
			return v.Format(time.RFC3339)
		}
		return v.Format("2006-01-02 15:04:05")
	case []byte:
		return string(v)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}
