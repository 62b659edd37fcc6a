package analyzer

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/vitebski/db-migrator/internal/connector"
	"github.com/vitebski/db-migrator/internal/runlog"
	"github.com/vitebski/db-migrator/pkg/models"
)

// SchemaAnalyzer reads tables, columns and constraints from the source catalog
type SchemaAnalyzer struct {
	DB       *connector.SourceConnector
	Reporter *runlog.Reporter
	queries  catalogQueries
	engine   string
}

// NewSchemaAnalyzer creates a new schema analyzer for the connector's engine
func NewSchemaAnalyzer(db *connector.SourceConnector, reporter *runlog.Reporter) *SchemaAnalyzer {
	sa := &SchemaAnalyzer{
		DB:       db,
		Reporter: reporter,
		queries:  mssqlQueries,
		engine:   db.Dialect.Name(),
	}
	if sa.engine == "mysql" {
		sa.queries = mysqlQueries
	}
	return sa
}

// AnalyzeSchema introspects every base table and all foreign keys.
// Any query failure aborts the analysis.
func (sa *SchemaAnalyzer) AnalyzeSchema(ctx context.Context) (*models.SchemaInfo, error) {
	ids, err := sa.ListTables(ctx)
	if err != nil {
		return nil, err
	}
	sa.Reporter.Info(runlog.CategorySchema, fmt.Sprintf("Found %d tables", len(ids)), nil)

	info := &models.SchemaInfo{}
	for _, id := range ids {
		table, err := sa.AnalyzeTable(ctx, id)
		if err != nil {
			return nil, err
		}
		info.Tables = append(info.Tables, *table)
	}

	info.ForeignKeys, err = sa.ListForeignKeys(ctx)
	if err != nil {
		return nil, err
	}
	sa.Reporter.Info(runlog.CategorySchema, fmt.Sprintf("Found %d foreign keys", len(info.ForeignKeys)), nil)

	return info, nil
}

// AnalyzeTable reads the columns and constraints of a single table
func (sa *SchemaAnalyzer) AnalyzeTable(ctx context.Context, id models.TableID) (*models.Table, error) {
	table := &models.Table{Schema: id.Schema, Name: id.Name}

	var err error
	if table.Columns, err = sa.ListColumns(ctx, id.Schema, id.Name); err != nil {
		return nil, err
	}
	if table.PrimaryKey, err = sa.GetPrimaryKey(ctx, id.Schema, id.Name); err != nil {
		return nil, err
	}
	if table.UniqueKeys, err = sa.ListUniqueConstraints(ctx, id.Schema, id.Name); err != nil {
		return nil, err
	}
	if table.CheckConstraints, err = sa.ListCheckConstraints(ctx, id.Schema, id.Name); err != nil {
		return nil, err
	}

	for _, check := range table.CheckConstraints {
		sa.Reporter.Info(runlog.CategorySchema, "Check constraint is not migrated", logrus.Fields{
			"table":      id.String(),
			"constraint": check.ConstraintName,
			"expression": check.Expression,
		})
	}

	sa.Reporter.Info(runlog.CategorySchema, fmt.Sprintf("Analyzed table %s", id), logrus.Fields{
		"columns":     len(table.Columns),
		"primary_key": table.PrimaryKey != nil,
		"unique_keys": len(table.UniqueKeys),
		"checks":      len(table.CheckConstraints),
	})
	return table, nil
}

// ListTables returns the base tables outside system schemas, ordered by schema then name
func (sa *SchemaAnalyzer) ListTables(ctx context.Context) ([]models.TableID, error) {
	rows, err := sa.DB.ExecuteQuery(ctx, sa.queries.tables)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	var ids []models.TableID
	for _, row := range rows {
		ids = append(ids, models.TableID{
			Schema: asString(row["schema_name"]),
			Name:   asString(row["table_name"]),
		})
	}
	return ids, nil
}

// ListColumns returns a table's columns in ordinal order
func (sa *SchemaAnalyzer) ListColumns(ctx context.Context, schema, table string) ([]models.Column, error) {
	rows, err := sa.DB.ExecuteQuery(ctx, sa.queries.columns, schema, table)
	if err != nil {
		return nil, fmt.Errorf("list columns of %s.%s: %w", schema, table, err)
	}

	var columns []models.Column
	for _, row := range rows {
		column := models.Column{
			Name:            asString(row["column_name"]),
			SourceType:      strings.ToLower(asString(row["data_type"])),
			MaxLength:       asInt64Ptr(row["max_length"]),
			Precision:       asInt64Ptr(row["numeric_precision"]),
			Scale:           asInt64Ptr(row["numeric_scale"]),
			IsNullable:      isYes(row["is_nullable"]),
			Default:         asStringPtr(row["column_default"]),
			IsAutoIncrement: isYes(row["is_identity"]),
		}
		if pos := asInt64Ptr(row["ordinal_position"]); pos != nil {
			column.OrdinalPosition = int(*pos)
		}

		if sa.engine == "mysql" {
			normalizeMySQLColumn(&column, asString(row["column_type"]), isYes(row["default_is_expression"]))
		}

		columns = append(columns, column)
	}
	return columns, nil
}

// GetPrimaryKey returns the table's primary key, or nil when it has none
func (sa *SchemaAnalyzer) GetPrimaryKey(ctx context.Context, schema, table string) (*models.PrimaryKey, error) {
	rows, err := sa.DB.ExecuteQuery(ctx, sa.queries.primaryKey, schema, table)
	if err != nil {
		return nil, fmt.Errorf("get primary key of %s.%s: %w", schema, table, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	pk := &models.PrimaryKey{ConstraintName: asString(rows[0]["constraint_name"])}
	for _, row := range rows {
		pk.Columns = append(pk.Columns, asString(row["column_name"]))
	}
	return pk, nil
}

// ListUniqueConstraints returns unique constraints grouped by name with column order kept
func (sa *SchemaAnalyzer) ListUniqueConstraints(ctx context.Context, schema, table string) ([]models.UniqueConstraint, error) {
	rows, err := sa.DB.ExecuteQuery(ctx, sa.queries.uniqueKeys, schema, table)
	if err != nil {
		return nil, fmt.Errorf("list unique constraints of %s.%s: %w", schema, table, err)
	}

	index := make(map[string]int)
	var constraints []models.UniqueConstraint
	for _, row := range rows {
		name := asString(row["constraint_name"])
		i, ok := index[name]
		if !ok {
			i = len(constraints)
			index[name] = i
			constraints = append(constraints, models.UniqueConstraint{ConstraintName: name})
		}
		constraints[i].Columns = append(constraints[i].Columns, asString(row["column_name"]))
	}
	return constraints, nil
}

// ListCheckConstraints returns the check constraints of a table
func (sa *SchemaAnalyzer) ListCheckConstraints(ctx context.Context, schema, table string) ([]models.CheckConstraint, error) {
	rows, err := sa.DB.ExecuteQuery(ctx, sa.queries.checks, schema, table)
	if err != nil {
		return nil, fmt.Errorf("list check constraints of %s.%s: %w", schema, table, err)
	}

	var checks []models.CheckConstraint
	for _, row := range rows {
		checks = append(checks, models.CheckConstraint{
			ConstraintName: asString(row["constraint_name"]),
			Expression:     asString(row["definition"]),
		})
	}
	return checks, nil
}

// ListForeignKeys returns every foreign key in the source database, one
// entry per constraint with source and target columns in key order.
func (sa *SchemaAnalyzer) ListForeignKeys(ctx context.Context) ([]models.ForeignKey, error) {
	rows, err := sa.DB.ExecuteQuery(ctx, sa.queries.foreignKeys)
	if err != nil {
		return nil, fmt.Errorf("list foreign keys: %w", err)
	}

	type fkKey struct {
		schema, table, name string
	}
	index := make(map[fkKey]int)
	var foreignKeys []models.ForeignKey

	for _, row := range rows {
		key := fkKey{
			schema: asString(row["source_schema"]),
			table:  asString(row["source_table"]),
			name:   asString(row["constraint_name"]),
		}
		i, ok := index[key]
		if !ok {
			i = len(foreignKeys)
			index[key] = i
			foreignKeys = append(foreignKeys, models.ForeignKey{
				ConstraintName: key.name,
				SourceSchema:   key.schema,
				SourceTable:    key.table,
				TargetSchema:   asString(row["target_schema"]),
				TargetTable:    asString(row["target_table"]),
				OnDelete:       models.ParseReferentialAction(asString(row["delete_action"])),
				OnUpdate:       models.ParseReferentialAction(asString(row["update_action"])),
			})
		}
		foreignKeys[i].SourceColumns = append(foreignKeys[i].SourceColumns, asString(row["source_column"]))
		foreignKeys[i].TargetColumns = append(foreignKeys[i].TargetColumns, asString(row["target_column"]))
	}
	return foreignKeys, nil
}

// mysqlTypeAliases folds MySQL spellings into the shared type vocabulary
var mysqlTypeAliases = map[string]string{
	"timestamp": "datetime",
}

// normalizeMySQLColumn rewrites a MySQL column so the translator sees the
// same conventions as for SQL Server: shared type names and quoted
// literal defaults. BOOL and BOOLEAN are stored as tinyint(1), which only
// the full column type reveals.
func normalizeMySQLColumn(column *models.Column, columnType string, defaultIsExpression bool) {
	if alias, ok := mysqlTypeAliases[column.SourceType]; ok {
		column.SourceType = alias
	}
	if strings.HasPrefix(strings.ToLower(columnType), "tinyint(1)") {
		column.SourceType = "bit"
	}

	if column.Default == nil || defaultIsExpression {
		return
	}
	def := *column.Default
	upper := strings.ToUpper(def)
	if strings.HasPrefix(upper, "CURRENT_TIMESTAMP") || strings.HasSuffix(def, ")") || strings.HasPrefix(def, "b'") {
		return
	}

	switch column.SourceType {
	case "char", "varchar", "tinytext", "text", "mediumtext", "longtext", "enum", "set",
		"date", "datetime", "time":
		quoted := "'" + strings.ReplaceAll(def, "'", "''") + "'"
		column.Default = &quoted
	}
}

func asString(v interface{}) string {
	if v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func asStringPtr(v interface{}) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	return &s
}

func asInt64Ptr(v interface{}) *int64 {
	if v == nil {
		return nil
	}
	val, err := strconv.ParseInt(fmt.Sprintf("%v", v), 10, 64)
	if err != nil {
		return nil
	}
	return &val
}

func isYes(v interface{}) bool {
	switch strings.ToUpper(asString(v)) {
	case "YES", "1", "TRUE":
		return true
	default:
		return false
	}
}
