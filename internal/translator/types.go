package translator

import (
	"fmt"
	"strings"
)

// UnboundedText is the fallback target type for anything that cannot be mapped
const UnboundedText = "TEXT"

// typeMap holds the fixed source -> PostgreSQL mapping for types that
// carry no length, precision or scale of interest.
var typeMap = map[string]string{
	"bigint":           "BIGINT",
	"int":              "INTEGER",
	"integer":          "INTEGER",
	"mediumint":        "INTEGER",
	"smallint":         "SMALLINT",
	"tinyint":          "SMALLINT",
	"bit":              "BOOLEAN",
	"money":            "NUMERIC(19,4)",
	"smallmoney":       "NUMERIC(10,4)",
	"real":             "REAL",
	"double":           "DOUBLE PRECISION",
	"date":             "DATE",
	"datetime":         "TIMESTAMP",
	"datetime2":        "TIMESTAMP",
	"smalldatetime":    "TIMESTAMP",
	"time":             "TIME",
	"datetimeoffset":   "TIMESTAMP WITH TIME ZONE",
	"year":             "SMALLINT",
	"text":             "TEXT",
	"ntext":            "TEXT",
	"tinytext":         "TEXT",
	"mediumtext":       "TEXT",
	"longtext":         "TEXT",
	"image":            "BYTEA",
	"tinyblob":         "BYTEA",
	"blob":             "BYTEA",
	"mediumblob":       "BYTEA",
	"longblob":         "BYTEA",
	"timestamp":        "BYTEA",
	"rowversion":       "BYTEA",
	"uniqueidentifier": "UUID",
	"xml":              "XML",
	"json":             "JSONB",
	"enum":             "TEXT",
	"set":              "TEXT",
	"sysname":          "VARCHAR(128)",
	"geography":        "TEXT",
	"geometry":         "TEXT",
	"hierarchyid":      "TEXT",
	"sql_variant":      "TEXT",
}

// KnownTypes returns the source type names covered by the fixed mapping
func KnownTypes() []string {
	names := make([]string, 0, len(typeMap))
	for name := range typeMap {
		names = append(names, name)
	}
	return names
}

// MapType converts a source column type to a PostgreSQL type.
// The second return value is false when the type was unknown and
// degraded to TEXT; callers report that as a warning.
func MapType(typeName string, maxLength, precision, scale *int64) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(typeName))

	// Unbounded variable-length types
	if maxLength != nil && *maxLength == -1 {
		switch name {
		case "varchar", "nvarchar":
			return "TEXT", true
		case "varbinary":
			return "BYTEA", true
		}
	}

	switch name {
	case "decimal", "numeric":
		switch {
		case precision != nil && scale != nil:
			return fmt.Sprintf("NUMERIC(%d,%d)", *precision, *scale), true
		case precision != nil:
			return fmt.Sprintf("NUMERIC(%d)", *precision), true
		default:
			return "NUMERIC", true
		}

	case "char", "nchar":
		length := charLength(name, maxLength)
		if length <= 0 {
			length = 1
		}
		return fmt.Sprintf("CHAR(%d)", length), true

	case "varchar", "nvarchar":
		length := charLength(name, maxLength)
		if length <= 0 {
			return "TEXT", true
		}
		return fmt.Sprintf("VARCHAR(%d)", length), true

	case "binary", "varbinary":
		return "BYTEA", true

	case "float":
		if precision != nil && *precision <= 24 {
			return "REAL", true
		}
		return "DOUBLE PRECISION", true

	case "datetime2":
		if s, ok := fractionalScale(scale); ok {
			return fmt.Sprintf("TIMESTAMP(%d)", s), true
		}
	case "time":
		if s, ok := fractionalScale(scale); ok {
			return fmt.Sprintf("TIME(%d)", s), true
		}
	case "datetimeoffset":
		if s, ok := fractionalScale(scale); ok {
			return fmt.Sprintf("TIMESTAMP(%d) WITH TIME ZONE", s), true
		}
	}

	if mapped, ok := typeMap[name]; ok {
		return mapped, true
	}

	return UnboundedText, false
}

// charLength converts a catalog length to characters. Wide types report
// their length in bytes, two per character.
func charLength(name string, maxLength *int64) int64 {
	if maxLength == nil {
		return 0
	}
	length := *maxLength
	if strings.HasPrefix(name, "n") {
		length /= 2
	}
	return length
}

// fractionalScale returns the scale when PostgreSQL can represent it
func fractionalScale(scale *int64) (int64, bool) {
	if scale == nil || *scale < 0 || *scale > 6 {
		return 0, false
	}
	return *scale, true
}

// IsBooleanType reports whether the target type is BOOLEAN
func IsBooleanType(targetType string) bool {
	return strings.EqualFold(strings.TrimSpace(targetType), "BOOLEAN")
}

// SerialType returns the auto-incrementing integer type sized for the source type
func SerialType(sourceType string) string {
	switch strings.ToLower(sourceType) {
	case "bigint":
		return "BIGSERIAL"
	case "smallint", "tinyint":
		return "SMALLSERIAL"
	default:
		return "SERIAL"
	}
}
