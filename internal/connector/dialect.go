package connector

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/go-sql-driver/mysql"
)

// Dialect captures what differs between supported source engines when
// building connection strings and data queries.
type Dialect interface {
	Name() string
	DriverName() string
	DSN(host, port, user, password, database, encrypt string) string
	QuoteIdent(name string) string
	CountQuery(schema, table string) string
	PageQuery(schema, table string, columns, orderBy []string, offset, limit int64) (string, []interface{})
}

// DialectFor returns the dialect for an engine name
func DialectFor(engine string) (Dialect, error) {
	switch strings.ToLower(engine) {
	case "mssql", "sqlserver":
		return MSSQLDialect{}, nil
	case "mysql":
		return MySQLDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported source engine: %s", engine)
	}
}

// MSSQLDialect targets Microsoft SQL Server through go-mssqldb
type MSSQLDialect struct{}

func (MSSQLDialect) Name() string       { return "mssql" }
func (MSSQLDialect) DriverName() string { return "sqlserver" }

func (MSSQLDialect) DSN(host, port, user, password, database, encrypt string) string {
	query := url.Values{}
	query.Set("database", database)
	if encrypt != "" {
		query.Set("encrypt", encrypt)
	}
	u := &url.URL{
		Scheme:   "sqlserver",
		User:     url.UserPassword(user, password),
		Host:     net.JoinHostPort(host, port),
		RawQuery: query.Encode(),
	}
	return u.String()
}

// QuoteIdent wraps a name in brackets, doubling any closing bracket
func (MSSQLDialect) QuoteIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (d MSSQLDialect) CountQuery(schema, table string) string {
	return fmt.Sprintf("SELECT COUNT_BIG(*) FROM %s.%s", d.QuoteIdent(schema), d.QuoteIdent(table))
}

func (d MSSQLDialect) PageQuery(schema, table string, columns, orderBy []string, offset, limit int64) (string, []interface{}) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s.%s ORDER BY %s OFFSET @p1 ROWS FETCH NEXT @p2 ROWS ONLY",
		quoteAll(d, columns), d.QuoteIdent(schema), d.QuoteIdent(table), quoteAll(d, orderBy),
	)
	return query, []interface{}{offset, limit}
}

// MySQLDialect targets MySQL through go-sql-driver/mysql
type MySQLDialect struct{}

func (MySQLDialect) Name() string       { return "mysql" }
func (MySQLDialect) DriverName() string { return "mysql" }

func (MySQLDialect) DSN(host, port, user, password, database, _ string) string {
	cfg := mysql.NewConfig()
	cfg.User = user
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(host, port)
	cfg.DBName = database
	cfg.ParseTime = true
	return cfg.FormatDSN()
}

// QuoteIdent wraps a name in backticks, doubling any embedded backtick
func (MySQLDialect) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (d MySQLDialect) CountQuery(schema, table string) string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s.%s", d.QuoteIdent(schema), d.QuoteIdent(table))
}

func (d MySQLDialect) PageQuery(schema, table string, columns, orderBy []string, offset, limit int64) (string, []interface{}) {
	query := fmt.Sprintf(
		"SELECT %s FROM %s.%s ORDER BY %s LIMIT ? OFFSET ?",
		quoteAll(d, columns), d.QuoteIdent(schema), d.QuoteIdent(table), quoteAll(d, orderBy),
	)
	return query, []interface{}{limit, offset}
}

func quoteAll(d Dialect, names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = d.QuoteIdent(n)
	}
	return strings.Join(quoted, ", ")
}
