package connector

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/denisenkom/go-mssqldb"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/db-migrator/internal/config"
	"github.com/vitebski/db-migrator/pkg/models"
)

// SourceConnector handles the source database connection and query execution
type SourceConnector struct {
	Host     string
	User     string
	Password string
	Database string
	Port     string
	Encrypt  string
	Dialect  Dialect
	DB       *sql.DB
	Logger   *logrus.Logger
}

// NewSourceConnector creates a new source connector
func NewSourceConnector(cfg config.SourceConfig, logger *logrus.Logger) (*SourceConnector, error) {
	dialect, err := DialectFor(cfg.Engine)
	if err != nil {
		return nil, err
	}

	return &SourceConnector{
		Host:     cfg.Host,
		User:     cfg.User,
		Password: cfg.Password,
		Database: cfg.Database,
		Port:     cfg.Port,
		Encrypt:  cfg.Encrypt,
		Dialect:  dialect,
		Logger:   logger,
	}, nil
}

// Connect establishes a connection to the source database
func (sc *SourceConnector) Connect(ctx context.Context) error {
	if sc.Database == "" {
		return fmt.Errorf("source database name must be provided")
	}

	dsn := sc.Dialect.DSN(sc.Host, sc.Port, sc.User, sc.Password, sc.Database, sc.Encrypt)
	db, err := sql.Open(sc.Dialect.DriverName(), dsn)
	if err != nil {
		return fmt.Errorf("open %s connection: %w", sc.Dialect.Name(), err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("ping %s database %s: %w", sc.Dialect.Name(), sc.Database, err)
	}

	sc.DB = db
	sc.Logger.Infof("Connected to %s database: %s", sc.Dialect.Name(), sc.Database)
	return nil
}

// Disconnect closes the database connection
func (sc *SourceConnector) Disconnect() {
	if sc.DB != nil {
		if err := sc.DB.Close(); err != nil {
			sc.Logger.Errorf("Error closing source connection: %v", err)
		} else {
			sc.Logger.Infof("%s connection closed", sc.Dialect.Name())
		}
		sc.DB = nil
	}
}

// ExecuteQuery executes a catalog query and returns the results keyed by column name.
// Byte slices are returned as strings.
func (sc *SourceConnector) ExecuteQuery(ctx context.Context, query string, params ...interface{}) ([]map[string]interface{}, error) {
	if sc.DB == nil {
		return nil, fmt.Errorf("source connection is not open")
	}

	rows, err := sc.DB.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("read columns: %w", err)
	}

	var results []map[string]interface{}

	for rows.Next() {
		values, err := scanValues(rows, len(columns))
		if err != nil {
			return nil, err
		}

		row := make(map[string]interface{}, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return results, nil
}

// CountRows returns the number of rows in a source table
func (sc *SourceConnector) CountRows(ctx context.Context, table models.Table) (int64, error) {
	var count int64
	query := sc.Dialect.CountQuery(table.Schema, table.Name)
	if err := sc.DB.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count rows in %s: %w", table.ID(), err)
	}
	return count, nil
}

// FetchPage reads one page of a table ordered by orderBy. Values are returned
// as produced by the driver, paired with their declared column.
func (sc *SourceConnector) FetchPage(ctx context.Context, table models.Table, orderBy []string, offset, limit int64) ([]models.Row, error) {
	query, args := sc.Dialect.PageQuery(table.Schema, table.Name, table.ColumnNames(), orderBy, offset, limit)

	rows, err := sc.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetch %s at offset %d: %w", table.ID(), offset, err)
	}
	defer rows.Close()

	var page []models.Row
	for rows.Next() {
		values, err := scanValues(rows, len(table.Columns))
		if err != nil {
			return nil, err
		}
		row := make(models.Row, len(table.Columns))
		for i, col := range table.Columns {
			row[i] = models.Cell{Column: col, Value: values[i]}
		}
		page = append(page, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", table.ID(), err)
	}
	return page, nil
}

func scanValues(rows *sql.Rows, n int) ([]interface{}, error) {
	// Create a slice of interface{} to hold the values
	values := make([]interface{}, n)
	// Create a slice of pointers to the values
	valuePtrs := make([]interface{}, n)
	for i := range values {
		valuePtrs[i] = &values[i]
	}

	if err := rows.Scan(valuePtrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	return values, nil
}
