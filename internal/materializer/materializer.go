package materializer

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/db-migrator/internal/ident"
	"github.com/vitebski/db-migrator/internal/runlog"
	"github.com/vitebski/db-migrator/internal/translator"
	"github.com/vitebski/db-migrator/pkg/models"
)

// Execer runs DDL and catalog lookups against the target database
type Execer interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// Materializer creates tables and foreign keys on the target
type Materializer struct {
	Target   Execer
	Reporter *runlog.Reporter
	Names    *ident.Registry
}

// NewMaterializer creates a materializer with a fresh constraint-name registry
func NewMaterializer(target Execer, reporter *runlog.Reporter) *Materializer {
	return &Materializer{
		Target:   target,
		Reporter: reporter,
		Names:    ident.NewRegistry(),
	}
}

// TableDDL is a CREATE TABLE statement plus what went into it
type TableDDL struct {
	SQL          string
	UnknownTypes []string
	HasPK        bool
}

// BuildCreateTable renders the CREATE TABLE statement for a source table
func (m *Materializer) BuildCreateTable(table models.Table) TableDDL {
	var ddl TableDDL
	tableIdent := ident.TableIdentifier(table.Schema, table.Name)

	var defs []string
	for _, col := range table.Columns {
		def, known := ColumnDefinition(col)
		if !known {
			ddl.UnknownTypes = append(ddl.UnknownTypes, fmt.Sprintf("%s (%s)", col.Name, col.SourceType))
		}
		defs = append(defs, "    "+def)
	}

	if table.PrimaryKey != nil && len(table.PrimaryKey.Columns) > 0 {
		name := m.Names.Claim(ident.PrimaryKeyName(tableIdent))
		defs = append(defs, fmt.Sprintf("    CONSTRAINT %s PRIMARY KEY (%s)",
			ident.Quote(name), ident.QuoteList(table.PrimaryKey.Columns)))
		ddl.HasPK = true
	}

	for _, uq := range table.UniqueKeys {
		name := m.Names.Claim(ident.UniqueName(tableIdent, uq.Columns))
		defs = append(defs, fmt.Sprintf("    CONSTRAINT %s UNIQUE (%s)",
			ident.Quote(name), ident.QuoteList(uq.Columns)))
	}

	ddl.SQL = fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n%s\n)", ident.Quote(tableIdent), strings.Join(defs, ",\n"))
	return ddl
}

// ColumnDefinition renders one column of a CREATE TABLE statement. The
// second value is false when the source type had to degrade to TEXT.
func ColumnDefinition(col models.Column) (string, bool) {
	targetType, known := translator.MapType(col.SourceType, col.MaxLength, col.Precision, col.Scale)

	// Identity columns are implicitly NOT NULL and self-defaulting
	if col.IsAutoIncrement {
		return ident.Quote(col.Name) + " " + translator.SerialType(col.SourceType), known
	}

	var b strings.Builder
	b.WriteString(ident.Quote(col.Name))
	b.WriteString(" ")
	b.WriteString(targetType)
	if !col.IsNullable {
		b.WriteString(" NOT NULL")
	}
	if col.Default != nil {
		if expr, ok := translator.ConvertDefault(*col.Default, targetType); ok {
			b.WriteString(" DEFAULT ")
			b.WriteString(expr)
		}
	}
	return b.String(), known
}

// CreateTables runs phase 1: one CREATE TABLE per table with inline primary
// and unique keys. A failing table is counted and skipped.
func (m *Materializer) CreateTables(ctx context.Context, tables []models.Table) models.MigrationStats {
	var stats models.MigrationStats
	m.Reporter.Section("Creating Tables")

	for _, table := range tables {
		stats.TablesProcessed++
		tableIdent := ident.TableIdentifier(table.Schema, table.Name)

		exists, err := m.TableExists(ctx, tableIdent)
		if err != nil {
			stats.Errors++
			m.Reporter.Error(runlog.CategorySchema, fmt.Sprintf("Failed to check table %s", tableIdent), err, logrus.Fields{
				"table": table.ID().String(),
			})
			continue
		}
		if exists {
			stats.TablesExisting++
			m.Reporter.Info(runlog.CategorySchema, fmt.Sprintf("Table %s already exists, left unchanged", tableIdent), logrus.Fields{
				"table": table.ID().String(),
			})
			continue
		}

		ddl := m.BuildCreateTable(table)

		for _, unknown := range ddl.UnknownTypes {
			stats.Warnings++
			m.Reporter.Warn(runlog.CategoryTypes, "Unknown source type mapped to TEXT", logrus.Fields{
				"table":  table.ID().String(),
				"column": unknown,
			})
		}

		if err := m.exec(ctx, ddl.SQL); err != nil {
			stats.Errors++
			m.Reporter.Error(runlog.CategorySchema, fmt.Sprintf("Failed to create table %s", tableIdent), err, logrus.Fields{
				"table": table.ID().String(),
			})
			continue
		}

		stats.TablesCreated++
		if ddl.HasPK {
			stats.PrimaryKeysCreated++
		}
		m.Reporter.Success(runlog.CategorySchema, fmt.Sprintf("Created table %s", tableIdent), logrus.Fields{
			"columns":     len(table.Columns),
			"unique_keys": len(table.UniqueKeys),
		})
	}

	return stats
}

// TableExists reports whether a table with the given identifier is already
// present on the target
func (m *Materializer) TableExists(ctx context.Context, tableIdent string) (bool, error) {
	var exists bool
	if err := m.Target.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", ident.Quote(tableIdent)).Scan(&exists); err != nil {
		return false, fmt.Errorf("look up %s: %w", tableIdent, err)
	}
	return exists, nil
}

// BuildForeignKey renders the ALTER TABLE statement for a foreign key
func (m *Materializer) BuildForeignKey(fk models.ForeignKey) string {
	sourceIdent := ident.TableIdentifier(fk.SourceSchema, fk.SourceTable)
	name := m.Names.Claim(ident.ForeignKeyName(sourceIdent, fk.SourceColumns))

	return fmt.Sprintf(
		"ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s (%s) ON DELETE %s ON UPDATE %s",
		ident.Quote(sourceIdent),
		ident.Quote(name),
		ident.QuoteList(fk.SourceColumns),
		ident.QuoteTable(fk.TargetSchema, fk.TargetTable),
		ident.QuoteList(fk.TargetColumns),
		fk.OnDelete.SQL(),
		fk.OnUpdate.SQL(),
	)
}

// AddForeignKeys runs phase 2 in the given order. Each failure is counted
// and the remaining keys are still attempted.
func (m *Materializer) AddForeignKeys(ctx context.Context, foreignKeys []models.ForeignKey) models.MigrationStats {
	var stats models.MigrationStats
	m.Reporter.Section("Adding Foreign Keys")

	for _, fk := range foreignKeys {
		fields := logrus.Fields{
			"constraint": fk.ConstraintName,
			"from":       fk.Source().String(),
			"to":         fk.Target().String(),
		}
		if err := m.exec(ctx, m.BuildForeignKey(fk)); err != nil {
			stats.Errors++
			m.Reporter.Error(runlog.CategoryConstraints, "Failed to add foreign key", err, fields)
			continue
		}
		stats.ForeignKeysCreated++
		m.Reporter.Success(runlog.CategoryConstraints, "Added foreign key", fields)
	}

	return stats
}

func (m *Materializer) exec(ctx context.Context, sql string) error {
	if _, err := m.Target.Exec(ctx, sql); err != nil {
		return fmt.Errorf("%w\nSQL: %s", err, sql)
	}
	return nil
}
