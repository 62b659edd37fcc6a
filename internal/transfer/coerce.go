package transfer

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	mssql "github.com/denisenkom/go-mssqldb"
	"github.com/shopspring/decimal"
	"github.com/vitebski/db-migrator/pkg/models"
)

const (
	dateLayout           = "2006-01-02"
	timeLayout           = "15:04:05.999999"
	timestampLayout      = "2006-01-02T15:04:05.999999"
	timestampZonedLayout = "2006-01-02T15:04:05.999999Z07:00"
)

var binaryTypes = map[string]bool{
	"binary":     true,
	"varbinary":  true,
	"image":      true,
	"timestamp":  true,
	"rowversion": true,
	"tinyblob":   true,
	"blob":       true,
	"mediumblob": true,
	"longblob":   true,

	// Spatial and CLR values arrive in their internal serialization
	"geography":          true,
	"geometry":           true,
	"hierarchyid":        true,
	"sql_variant":        true,
	"point":              true,
	"linestring":         true,
	"polygon":            true,
	"multipoint":         true,
	"multilinestring":    true,
	"multipolygon":       true,
	"geometrycollection": true,
}

var decimalTypes = map[string]bool{
	"decimal":    true,
	"numeric":    true,
	"money":      true,
	"smallmoney": true,
}

// CoerceValue converts a driver value from the source into something the
// target accepts for the column's mapped type.
func CoerceValue(column models.Column, value interface{}) (interface{}, error) {
	if value == nil {
		return nil, nil
	}
	sourceType := strings.ToLower(column.SourceType)

	switch {
	case binaryTypes[sourceType]:
		if b, ok := value.([]byte); ok {
			return `\x` + hex.EncodeToString(b), nil
		}

	case sourceType == "bit":
		return truthy(value), nil

	case sourceType == "uniqueidentifier":
		if b, ok := value.([]byte); ok {
			var id mssql.UniqueIdentifier
			if err := id.Scan(b); err != nil {
				return nil, fmt.Errorf("column %s: %w", column.Name, err)
			}
			return id.String(), nil
		}

	case decimalTypes[sourceType]:
		switch v := value.(type) {
		case []byte:
			return parseDecimal(column, string(v))
		case string:
			return parseDecimal(column, v)
		}
	}

	switch v := value.(type) {
	case time.Time:
		return formatTemporal(sourceType, v), nil
	case []byte:
		return string(v), nil
	}
	return value, nil
}

// CoerceRow converts every cell of a row, in column order
func CoerceRow(row models.Row) ([]interface{}, error) {
	values := make([]interface{}, len(row))
	for i, cell := range row {
		v, err := CoerceValue(cell.Column, cell.Value)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

func parseDecimal(column models.Column, s string) (interface{}, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("column %s: invalid numeric value %q: %w", column.Name, s, err)
	}
	return d, nil
}

// formatTemporal renders a time as ISO-8601 matching the column's type
func formatTemporal(sourceType string, t time.Time) string {
	switch sourceType {
	case "date":
		return t.Format(dateLayout)
	case "time":
		return t.Format(timeLayout)
	case "datetimeoffset":
		return t.Format(timestampZonedLayout)
	default:
		return t.Format(timestampLayout)
	}
}

// truthy maps bit values to booleans: 1, true and any non-zero byte are true
func truthy(value interface{}) bool {
	switch v := value.(type) {
	case bool:
		return v
	case int64:
		return v != 0
	case int32:
		return v != 0
	case int:
		return v != 0
	case uint8:
		return v != 0
	case float64:
		return v != 0
	case []byte:
		if len(v) == 1 && (v[0] == '1' || v[0] == 1) {
			return true
		}
		s := strings.ToLower(string(v))
		return s == "true" || s == "1"
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "1" || s == "true"
	default:
		return false
	}
}
