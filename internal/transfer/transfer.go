package transfer

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/db-migrator/internal/ident"
	"github.com/vitebski/db-migrator/internal/runlog"
	"github.com/vitebski/db-migrator/internal/utils"
	"github.com/vitebski/db-migrator/pkg/models"
)

// DefaultBatchSize is the number of rows read and committed per page
const DefaultBatchSize = 1000

// RowSource reads table data from the source database
type RowSource interface {
	CountRows(ctx context.Context, table models.Table) (int64, error)
	FetchPage(ctx context.Context, table models.Table, orderBy []string, offset, limit int64) ([]models.Row, error)
}

// Target is the part of the PostgreSQL connection the engine writes through
type Target interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Engine copies rows table by table in fixed-size pages
type Engine struct {
	Source       RowSource
	Target       Target
	Reporter     *runlog.Reporter
	BatchSize    int64
	ShowProgress bool
	FailedTables map[models.TableID]bool
}

// NewEngine creates a transfer engine
func NewEngine(source RowSource, target Target, batchSize int, reporter *runlog.Reporter) *Engine {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Engine{
		Source:       source,
		Target:       target,
		Reporter:     reporter,
		BatchSize:    int64(batchSize),
		FailedTables: make(map[models.TableID]bool),
	}
}

// MigrateData copies every table in the given order. A table whose copy
// fails is recorded and the next table is attempted.
func (e *Engine) MigrateData(ctx context.Context, tables []models.Table, order []models.TableID) models.MigrationStats {
	var stats models.MigrationStats
	e.Reporter.Section("Migrating Data")

	byID := make(map[models.TableID]models.Table, len(tables))
	for _, t := range tables {
		byID[t.ID()] = t
	}

	for _, id := range order {
		table, ok := byID[id]
		if !ok {
			continue
		}
		tableStats := e.migrateTable(ctx, table)
		stats.Merge(tableStats)
	}

	return stats
}

func (e *Engine) migrateTable(ctx context.Context, table models.Table) models.MigrationStats {
	var stats models.MigrationStats
	fields := logrus.Fields{"table": table.ID().String()}

	total, err := e.Source.CountRows(ctx, table)
	if err != nil {
		stats.Errors++
		e.FailedTables[table.ID()] = true
		e.Reporter.Error(runlog.CategoryData, "Failed to count source rows", err, fields)
		return stats
	}

	if total == 0 {
		stats.TablesSkipped++
		e.Reporter.Info(runlog.CategoryData, fmt.Sprintf("Table %s is empty, skipping data", table.ID()), fields)
		return stats
	}

	orderBy, stable := PageKey(table)
	if !stable {
		stats.Warnings++
		e.Reporter.Warn(runlog.CategoryData, "No primary or unique key; paging by first column may skip or repeat rows", logrus.Fields{
			"table":    table.ID().String(),
			"order_by": strings.Join(orderBy, ", "),
		})
	}

	migrated, err := e.CopyTable(ctx, table, orderBy, total)
	stats.RowsMigrated += migrated
	if err != nil {
		stats.Errors++
		e.FailedTables[table.ID()] = true
		e.Reporter.Error(runlog.CategoryData, fmt.Sprintf("Failed to migrate data for %s", table.ID()), err, logrus.Fields{
			"table":         table.ID().String(),
			"rows_migrated": migrated,
			"rows_total":    total,
		})
		return stats
	}

	e.Reporter.Success(runlog.CategoryData, fmt.Sprintf("Migrated %d rows into %s", migrated, ident.TableIdentifier(table.Schema, table.Name)), fields)

	stats.Warnings += e.ResetSequences(ctx, table)
	return stats
}

// PageKey picks the ORDER BY columns for paging: the primary key, else the
// first unique constraint, else the first column. The second value is false
// when only the first column was available.
func PageKey(table models.Table) ([]string, bool) {
	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) > 0 {
		return table.PrimaryKey.Columns, true
	}
	for _, uq := range table.UniqueKeys {
		if len(uq.Columns) > 0 {
			return uq.Columns, true
		}
	}
	if len(table.Columns) == 0 {
		return nil, false
	}
	return []string{table.Columns[0].Name}, false
}

// BuildInsert renders the single-row INSERT for a table
func BuildInsert(table models.Table) string {
	placeholders := make([]string, len(table.Columns))
	for i := range table.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ident.QuoteTable(table.Schema, table.Name),
		ident.QuoteList(table.ColumnNames()),
		strings.Join(placeholders, ", "),
	)
}

// CopyTable pages through a table and inserts each page in its own
// transaction. It returns the rows committed before any failure.
func (e *Engine) CopyTable(ctx context.Context, table models.Table, orderBy []string, total int64) (int64, error) {
	insertSQL := BuildInsert(table)
	progress := utils.NewProgressManager(total, table.ID().String(), e.ShowProgress)
	defer progress.Finish()

	var migrated int64
	for offset := int64(0); offset < total; offset += e.BatchSize {
		page, err := e.Source.FetchPage(ctx, table, orderBy, offset, e.BatchSize)
		if err != nil {
			return migrated, err
		}
		if len(page) == 0 {
			break
		}

		if err := e.insertPage(ctx, insertSQL, page); err != nil {
			return migrated, fmt.Errorf("page at offset %d: %w", offset, err)
		}

		migrated += int64(len(page))
		progress.Add(int64(len(page)))
		e.Reporter.Logger.WithFields(logrus.Fields{
			"table":  table.ID().String(),
			"offset": offset,
			"rows":   len(page),
		}).Debug("Committed page")
	}

	return migrated, nil
}

// insertPage writes all rows of a page in one transaction; any row failure
// rolls the whole page back.
func (e *Engine) insertPage(ctx context.Context, insertSQL string, page []models.Row) error {
	tx, err := e.Target.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	for i, row := range page {
		values, err := CoerceRow(row)
		if err == nil {
			_, err = tx.Exec(ctx, insertSQL, values...)
		}
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				e.Reporter.Logger.Warnf("Rollback failed: %v", rbErr)
			}
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// SequenceResetSQL renders the statement that moves a serial column's
// sequence to the column's current maximum.
func SequenceResetSQL(table models.Table, column string) string {
	col := ident.Quote(column)
	return fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence($1, $2), COALESCE(MAX(%s), 1), MAX(%s) IS NOT NULL) FROM %s",
		col, col, ident.QuoteTable(table.Schema, table.Name),
	)
}

// ResetSequences resynchronizes the sequence behind every identity column
// and returns the number of failures, which are reported as warnings.
func (e *Engine) ResetSequences(ctx context.Context, table models.Table) int {
	warnings := 0
	for _, col := range table.AutoIncrementColumns() {
		fields := logrus.Fields{"table": table.ID().String(), "column": col.Name}

		var value *int64
		err := e.Target.QueryRow(ctx, SequenceResetSQL(table, col.Name),
			ident.QuoteTable(table.Schema, table.Name), col.Name).Scan(&value)
		if err == nil && value == nil {
			err = fmt.Errorf("no sequence backs column %s", col.Name)
		}
		if err != nil {
			warnings++
			e.Reporter.Warn(runlog.CategorySequences, "Failed to reset sequence", logrus.Fields{
				"table":  table.ID().String(),
				"column": col.Name,
				"error":  err.Error(),
			})
			continue
		}

		fields["value"] = *value
		e.Reporter.Success(runlog.CategorySequences, "Reset sequence", fields)
	}
	return warnings
}
