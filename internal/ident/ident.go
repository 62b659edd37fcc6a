package ident

import (
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Separator joins schema and table names in the flattened target namespace
const Separator = "__"

// MaxIdentifierLength is PostgreSQL's NAMEDATALEN - 1
const MaxIdentifierLength = 63

// TableIdentifier composes the target table name for a source schema and table
func TableIdentifier(schema, table string) string {
	return schema + Separator + table
}

// Quote wraps an identifier in double quotes, doubling embedded quotes
func Quote(identifier string) string {
	return pgx.Identifier{identifier}.Sanitize()
}

// QuoteTable returns the quoted target name for a source schema and table
func QuoteTable(schema, table string) string {
	return Quote(TableIdentifier(schema, table))
}

// QuoteList quotes each column name and joins them with ", "
func QuoteList(columns []string) string {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = Quote(c)
	}
	return strings.Join(quoted, ", ")
}

// PrimaryKeyName returns the pk_ constraint name for a table
func PrimaryKeyName(tableIdent string) string {
	return "pk_" + tableIdent
}

// UniqueName returns the uq_ constraint name for a table and its columns
func UniqueName(tableIdent string, columns []string) string {
	return "uq_" + tableIdent + "_" + strings.Join(columns, "_")
}

// ForeignKeyName returns the fk_ constraint name for a table and its columns
func ForeignKeyName(tableIdent string, columns []string) string {
	return "fk_" + tableIdent + "_" + strings.Join(columns, "_")
}

// Registry hands out constraint names that are unique within one run and
// fit PostgreSQL's identifier length limit.
type Registry struct {
	issued map[string]bool
}

// NewRegistry creates an empty name registry
func NewRegistry() *Registry {
	return &Registry{issued: make(map[string]bool)}
}

// Claim returns name, or a shortened and/or suffixed variant of it, and
// records the result as taken.
func (r *Registry) Claim(name string) string {
	candidate := Shorten(name)
	for n := 2; r.issued[candidate]; n++ {
		suffix := fmt.Sprintf("_%d", n)
		candidate = truncate(Shorten(name), MaxIdentifierLength-len(suffix)) + suffix
	}
	r.issued[candidate] = true
	return candidate
}

// Shorten truncates names over MaxIdentifierLength and appends a hash of
// the full name so distinct long names stay distinct.
func Shorten(name string) string {
	if len(name) <= MaxIdentifierLength {
		return name
	}
	h := fnv.New32a()
	h.Write([]byte(name))
	suffix := fmt.Sprintf("_%08x", h.Sum32())
	return truncate(name, MaxIdentifierLength-len(suffix)) + suffix
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !isRuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
