package translator

import "strings"

// functionDefaults maps source default functions to PostgreSQL expressions
var functionDefaults = map[string]string{
	"getdate()":           "CURRENT_TIMESTAMP",
	"sysdatetime()":       "CURRENT_TIMESTAMP",
	"sysdatetimeoffset()": "CURRENT_TIMESTAMP",
	"current_timestamp":   "CURRENT_TIMESTAMP",
	"current_timestamp()": "CURRENT_TIMESTAMP",
	"now()":               "CURRENT_TIMESTAMP",
	"getutcdate()":        "(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')",
	"sysutcdatetime()":    "(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')",
	"utc_timestamp()":     "(CURRENT_TIMESTAMP AT TIME ZONE 'UTC')",
	"newid()":             "gen_random_uuid()",
	"newsequentialid()":   "gen_random_uuid()",
	"uuid()":              "gen_random_uuid()",
	"suser_sname()":       "CURRENT_USER",
	"suser_name()":        "CURRENT_USER",
	"user_name()":         "CURRENT_USER",
	"current_user":        "CURRENT_USER",
	"current_user()":      "CURRENT_USER",
	"system_user":         "CURRENT_USER",
	"host_name()":         "inet_client_addr()::text",
}

// ConvertDefault translates a raw source default expression for a column of
// the given target type. It returns false when no DEFAULT clause should be
// emitted. Unrecognized expressions are passed through unchanged.
func ConvertDefault(raw string, targetType string) (string, bool) {
	expr := stripParens(strings.TrimSpace(raw))
	if expr == "" || strings.EqualFold(expr, "NULL") {
		return "", false
	}

	if IsBooleanType(targetType) {
		switch strings.ToLower(expr) {
		case "1", "'1'", "true", "'true'", "b'1'":
			return "TRUE", true
		case "0", "'0'", "false", "'false'", "b'0'":
			return "FALSE", true
		}
	}

	if mapped, ok := functionDefaults[strings.ToLower(expr)]; ok {
		return mapped, true
	}

	// National character literal: N'abc'
	if len(expr) >= 3 && (expr[0] == 'N' || expr[0] == 'n') && expr[1] == '\'' && strings.HasSuffix(expr, "'") {
		return expr[1:], true
	}

	// String and numeric literals, and anything unrecognized, pass through
	return expr, true
}

// stripParens removes every layer of parentheses wrapping the whole expression,
// so ((0)) becomes 0 while (a) + (b) is left alone.
func stripParens(expr string) string {
	for len(expr) >= 2 && expr[0] == '(' && expr[len(expr)-1] == ')' && wrapsWhole(expr) {
		expr = strings.TrimSpace(expr[1 : len(expr)-1])
	}
	return expr
}

// wrapsWhole reports whether the opening parenthesis at index 0 closes at the last byte
func wrapsWhole(expr string) bool {
	depth := 0
	inString := false
	for i := 0; i < len(expr); i++ {
		ch := expr[i]
		if ch == '\'' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch ch {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(expr)-1 {
				return false
			}
		}
	}
	return depth == 0
}
