package translator

import "testing"

func int64p(v int64) *int64 {
	return &v
}

func TestMapType(t *testing.T) {
	tests := []struct {
		name      string
		typeName  string
		maxLength *int64
		precision *int64
		scale     *int64
		expected  string
	}{
		{"varchar max", "varchar", int64p(-1), nil, nil, "TEXT"},
		{"nvarchar max", "NVARCHAR", int64p(-1), nil, nil, "TEXT"},
		{"varbinary max", "varbinary", int64p(-1), nil, nil, "BYTEA"},
		{"nvarchar halves", "nvarchar", int64p(20), nil, nil, "VARCHAR(10)"},
		{"varchar keeps length", "varchar", int64p(50), nil, nil, "VARCHAR(50)"},
		{"varchar without length", "varchar", nil, nil, nil, "TEXT"},
		{"varchar zero length", "varchar", int64p(0), nil, nil, "TEXT"},
		{"nchar halves", "nchar", int64p(10), nil, nil, "CHAR(5)"},
		{"char zero length", "char", int64p(0), nil, nil, "CHAR(1)"},
		{"char absent length", "char", nil, nil, nil, "CHAR(1)"},
		{"decimal with scale", "decimal", nil, int64p(10), int64p(2), "NUMERIC(10,2)"},
		{"decimal precision only", "numeric", nil, int64p(18), nil, "NUMERIC(18)"},
		{"decimal bare", "decimal", nil, nil, nil, "NUMERIC"},
		{"binary fixed", "binary", int64p(16), nil, nil, "BYTEA"},
		{"varbinary bounded", "varbinary", int64p(200), nil, nil, "BYTEA"},
		{"float single", "float", nil, int64p(24), nil, "REAL"},
		{"float double", "float", nil, int64p(53), nil, "DOUBLE PRECISION"},
		{"float no precision", "float", nil, nil, nil, "DOUBLE PRECISION"},
		{"datetime2 scale", "datetime2", nil, nil, int64p(3), "TIMESTAMP(3)"},
		{"datetime2 scale 7", "datetime2", nil, nil, int64p(7), "TIMESTAMP"},
		{"datetime2 no scale", "datetime2", nil, nil, nil, "TIMESTAMP"},
		{"time scale", "time", nil, nil, int64p(0), "TIME(0)"},
		{"datetimeoffset scale", "datetimeoffset", nil, nil, int64p(6), "TIMESTAMP(6) WITH TIME ZONE"},
		{"datetimeoffset default", "datetimeoffset", nil, nil, int64p(7), "TIMESTAMP WITH TIME ZONE"},
		{"identity", "int", nil, int64p(10), int64p(0), "INTEGER"},
		{"bit", "bit", nil, nil, nil, "BOOLEAN"},
		{"money", "money", nil, int64p(19), int64p(4), "NUMERIC(19,4)"},
		{"uniqueidentifier", "uniqueidentifier", nil, nil, nil, "UUID"},
		{"geography", "geography", nil, nil, nil, "TEXT"},
		{"rowversion", "timestamp", nil, nil, nil, "BYTEA"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, known := MapType(tt.typeName, tt.maxLength, tt.precision, tt.scale)
			if !known {
				t.Errorf("Expected %s to be a known type", tt.typeName)
			}
			if got != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, got)
			}
		})
	}
}

func TestMapTypeUnknown(t *testing.T) {
	got, known := MapType("cursor", nil, nil, nil)
	if known {
		t.Error("Expected cursor to be reported as unknown")
	}
	if got != UnboundedText {
		t.Errorf("Expected %s for unknown type, got %s", UnboundedText, got)
	}
}

func TestMapTypeCoversLookupTable(t *testing.T) {
	for _, name := range KnownTypes() {
		got, known := MapType(name, nil, nil, nil)
		if !known {
			t.Errorf("Expected %s to be covered by the lookup table", name)
		}
		if got == "" {
			t.Errorf("Expected a non-empty target type for %s", name)
		}
	}
}

func TestSerialType(t *testing.T) {
	tests := map[string]string{
		"bigint":   "BIGSERIAL",
		"smallint": "SMALLSERIAL",
		"tinyint":  "SMALLSERIAL",
		"int":      "SERIAL",
		"numeric":  "SERIAL",
	}
	for source, expected := range tests {
		if got := SerialType(source); got != expected {
			t.Errorf("SerialType(%s): expected %s, got %s", source, expected, got)
		}
	}
}

func TestConvertDefault(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		targetType string
		expected   string
		emitted    bool
	}{
		{"getdate", "(getdate())", "TIMESTAMP", "CURRENT_TIMESTAMP", true},
		{"sysdatetime upper", "(SYSDATETIME())", "TIMESTAMP", "CURRENT_TIMESTAMP", true},
		{"utc", "(getutcdate())", "TIMESTAMP", "(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')", true},
		{"newid", "(newid())", "UUID", "gen_random_uuid()", true},
		{"user", "(suser_sname())", "VARCHAR(128)", "CURRENT_USER", true},
		{"host", "(host_name())", "VARCHAR(64)", "inet_client_addr()::text", true},
		{"national string", "(N'pending')", "VARCHAR(20)", "'pending'", true},
		{"plain string", "('abc')", "VARCHAR(20)", "'abc'", true},
		{"nested numeric", "((0))", "INTEGER", "0", true},
		{"negative decimal", "((-1.5))", "NUMERIC(10,2)", "-1.5", true},
		{"bit true", "((1))", "BOOLEAN", "TRUE", true},
		{"bit false", "((0))", "BOOLEAN", "FALSE", true},
		{"bool text", "'true'", "BOOLEAN", "TRUE", true},
		{"null", "(NULL)", "INTEGER", "", false},
		{"empty", "", "INTEGER", "", false},
		{"expression kept", "(datepart(year,getdate()))", "INTEGER", "datepart(year,getdate())", true},
		{"partial parens kept", "(1)+(2)", "INTEGER", "(1)+(2)", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, emitted := ConvertDefault(tt.raw, tt.targetType)
			if emitted != tt.emitted {
				t.Fatalf("Expected emitted=%v, got %v", tt.emitted, emitted)
			}
			if got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}
