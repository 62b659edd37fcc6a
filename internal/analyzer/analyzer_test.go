package analyzer

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/sirupsen/logrus"
	"github.com/vitebski/db-migrator/internal/connector"
	"github.com/vitebski/db-migrator/internal/runlog"
	"github.com/vitebski/db-migrator/pkg/models"
)

func newTestAnalyzer(t *testing.T, dialect connector.Dialect) (*SchemaAnalyzer, sqlmock.Sqlmock) {
	// Create a logger
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress log output during tests

	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	source := &connector.SourceConnector{
		Database: "Sales",
		Dialect:  dialect,
		DB:       db,
		Logger:   logger,
	}
	return NewSchemaAnalyzer(source, runlog.New(logger)), mock
}

var columnHeaders = []string{
	"column_name", "data_type", "max_length", "numeric_precision", "numeric_scale",
	"is_nullable", "column_default", "ordinal_position", "is_identity", "default_is_expression",
}

var mysqlColumnHeaders = []string{
	"column_name", "data_type", "column_type", "max_length", "numeric_precision", "numeric_scale",
	"is_nullable", "column_default", "ordinal_position", "is_identity", "default_is_expression",
}

func TestNewSchemaAnalyzer(t *testing.T) {
	sa, _ := newTestAnalyzer(t, connector.MSSQLDialect{})
	if sa.queries.tables != mssqlQueries.tables {
		t.Error("Expected SQL Server catalog queries for the mssql dialect")
	}

	sa, _ = newTestAnalyzer(t, connector.MySQLDialect{})
	if sa.queries.tables != mysqlQueries.tables {
		t.Error("Expected information_schema queries for the mysql dialect")
	}
}

func TestAnalyzeSchema(t *testing.T) {
	sa, mock := newTestAnalyzer(t, connector.MSSQLDialect{})

	mock.ExpectQuery("FROM sys.tables t").
		WillReturnRows(sqlmock.NewRows([]string{"schema_name", "table_name"}).
			AddRow("dbo", "Customers").
			AddRow("dbo", "Orders"))

	// dbo.Customers
	mock.ExpectQuery("FROM sys.columns c").WithArgs("dbo", "Customers").
		WillReturnRows(sqlmock.NewRows(columnHeaders).
			AddRow("Id", "int", nil, nil, nil, "NO", nil, int64(1), "YES", "YES").
			AddRow("Email", "nvarchar", int64(200), nil, nil, "NO", nil, int64(2), "NO", "YES"))
	mock.ExpectQuery("kc.type = 'PK'").WithArgs("dbo", "Customers").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}).
			AddRow("PK_Customers", "Id"))
	mock.ExpectQuery("kc.type = 'UQ'").WithArgs("dbo", "Customers").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}).
			AddRow("UQ_Customers_Email", "Email"))
	mock.ExpectQuery("FROM sys.check_constraints").WithArgs("dbo", "Customers").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "definition"}).
			AddRow("CK_Customers_Email", "([Email] like '%@%')"))

	// dbo.Orders
	mock.ExpectQuery("FROM sys.columns c").WithArgs("dbo", "Orders").
		WillReturnRows(sqlmock.NewRows(columnHeaders).
			AddRow("Id", "int", nil, nil, nil, "NO", nil, int64(1), "YES", "YES").
			AddRow("CustomerId", "int", nil, nil, nil, "NO", nil, int64(2), "NO", "YES").
			AddRow("Amount", "decimal", nil, int64(10), int64(2), "NO", nil, int64(3), "NO", "YES").
			AddRow("CreatedAt", "datetime", nil, nil, nil, "YES", "(getdate())", int64(4), "NO", "YES"))
	mock.ExpectQuery("kc.type = 'PK'").WithArgs("dbo", "Orders").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}).
			AddRow("PK_Orders", "Id"))
	mock.ExpectQuery("kc.type = 'UQ'").WithArgs("dbo", "Orders").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}))
	mock.ExpectQuery("FROM sys.check_constraints").WithArgs("dbo", "Orders").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "definition"}))

	mock.ExpectQuery("FROM sys.foreign_keys fk").
		WillReturnRows(sqlmock.NewRows([]string{
			"constraint_name", "source_schema", "source_table", "source_column",
			"target_schema", "target_table", "target_column", "delete_action", "update_action",
		}).AddRow("FK_Orders_Customers", "dbo", "Orders", "CustomerId", "dbo", "Customers", "Id", "CASCADE", "NO_ACTION"))

	info, err := sa.AnalyzeSchema(context.Background())
	if err != nil {
		t.Fatalf("Expected analysis to succeed, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}

	if len(info.Tables) != 2 {
		t.Fatalf("Expected 2 tables, got %d", len(info.Tables))
	}

	customers := info.Tables[0]
	if customers.PrimaryKey == nil || customers.PrimaryKey.Columns[0] != "Id" {
		t.Errorf("Expected Customers primary key on Id, got %+v", customers.PrimaryKey)
	}
	if len(customers.UniqueKeys) != 1 || customers.UniqueKeys[0].Columns[0] != "Email" {
		t.Errorf("Expected unique key on Email, got %+v", customers.UniqueKeys)
	}
	if len(customers.CheckConstraints) != 1 {
		t.Errorf("Expected one check constraint, got %d", len(customers.CheckConstraints))
	}
	if !customers.Columns[0].IsAutoIncrement || customers.Columns[0].IsNullable {
		t.Errorf("Expected Id to be a non-null identity column, got %+v", customers.Columns[0])
	}
	if *customers.Columns[1].MaxLength != 200 {
		t.Errorf("Expected Email max length 200, got %d", *customers.Columns[1].MaxLength)
	}

	orders := info.Tables[1]
	amount := orders.Columns[2]
	if amount.Precision == nil || *amount.Precision != 10 || *amount.Scale != 2 {
		t.Errorf("Expected Amount decimal(10,2), got %+v", amount)
	}
	createdAt := orders.Columns[3]
	if createdAt.Default == nil || *createdAt.Default != "(getdate())" || !createdAt.IsNullable {
		t.Errorf("Expected CreatedAt nullable with getdate() default, got %+v", createdAt)
	}
	if createdAt.OrdinalPosition != 4 {
		t.Errorf("Expected ordinal position 4, got %d", createdAt.OrdinalPosition)
	}
	if len(orders.UniqueKeys) != 0 {
		t.Errorf("Expected no unique keys on Orders, got %d", len(orders.UniqueKeys))
	}

	if len(info.ForeignKeys) != 1 {
		t.Fatalf("Expected 1 foreign key, got %d", len(info.ForeignKeys))
	}
	fk := info.ForeignKeys[0]
	if fk.OnDelete != models.Cascade || fk.OnUpdate != models.NoAction {
		t.Errorf("Expected CASCADE / NO_ACTION, got %s / %s", fk.OnDelete, fk.OnUpdate)
	}
}

func TestAnalyzeSchemaPropagatesErrors(t *testing.T) {
	sa, mock := newTestAnalyzer(t, connector.MSSQLDialect{})

	mock.ExpectQuery("FROM sys.tables t").
		WillReturnRows(sqlmock.NewRows([]string{"schema_name", "table_name"}).AddRow("dbo", "Orders"))
	mock.ExpectQuery("FROM sys.columns c").WillReturnError(errors.New("permission denied"))

	if _, err := sa.AnalyzeSchema(context.Background()); err == nil {
		t.Error("Expected a column query failure to abort the analysis")
	}
}

func TestListForeignKeysGroupsColumns(t *testing.T) {
	sa, mock := newTestAnalyzer(t, connector.MSSQLDialect{})

	mock.ExpectQuery("FROM sys.foreign_keys fk").
		WillReturnRows(sqlmock.NewRows([]string{
			"constraint_name", "source_schema", "source_table", "source_column",
			"target_schema", "target_table", "target_column", "delete_action", "update_action",
		}).
			AddRow("FK_Lines_Orders", "dbo", "OrderLines", "OrderId", "dbo", "Orders", "Id", "NO_ACTION", "NO_ACTION").
			AddRow("FK_Lines_Orders", "dbo", "OrderLines", "Region", "dbo", "Orders", "Region", "NO_ACTION", "NO_ACTION").
			AddRow("FK_Employee_Manager", "dbo", "Employee", "ManagerId", "dbo", "Employee", "Id", "SET_NULL", "NO_ACTION"))

	fks, err := sa.ListForeignKeys(context.Background())
	if err != nil {
		t.Fatalf("Expected foreign keys, got %v", err)
	}
	if len(fks) != 2 {
		t.Fatalf("Expected 2 constraints, got %d", len(fks))
	}
	composite := fks[0]
	if len(composite.SourceColumns) != 2 || composite.SourceColumns[1] != "Region" || composite.TargetColumns[1] != "Region" {
		t.Errorf("Expected positional column pairs, got %v -> %v", composite.SourceColumns, composite.TargetColumns)
	}
	if !fks[1].IsSelfReference() || fks[1].OnDelete != models.SetNull {
		t.Errorf("Expected self reference with SET NULL, got %+v", fks[1])
	}
}

func TestListUniqueConstraintsGroupsByName(t *testing.T) {
	sa, mock := newTestAnalyzer(t, connector.MSSQLDialect{})

	mock.ExpectQuery("kc.type = 'UQ'").WithArgs("dbo", "Orders").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}).
			AddRow("UQ_Code_Region", "Code").
			AddRow("UQ_Code_Region", "Region").
			AddRow("UQ_Number", "Number"))

	uniques, err := sa.ListUniqueConstraints(context.Background(), "dbo", "Orders")
	if err != nil {
		t.Fatalf("Expected unique constraints, got %v", err)
	}
	if len(uniques) != 2 {
		t.Fatalf("Expected 2 constraints, got %d", len(uniques))
	}
	if uniques[0].Columns[0] != "Code" || uniques[0].Columns[1] != "Region" {
		t.Errorf("Expected column order to be kept, got %v", uniques[0].Columns)
	}
}

func TestGetPrimaryKeyAbsent(t *testing.T) {
	sa, mock := newTestAnalyzer(t, connector.MSSQLDialect{})

	mock.ExpectQuery("kc.type = 'PK'").WithArgs("dbo", "Log").
		WillReturnRows(sqlmock.NewRows([]string{"constraint_name", "column_name"}))

	pk, err := sa.GetPrimaryKey(context.Background(), "dbo", "Log")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if pk != nil {
		t.Errorf("Expected no primary key, got %+v", pk)
	}
}

func TestListColumnsMySQLNormalization(t *testing.T) {
	sa, mock := newTestAnalyzer(t, connector.MySQLDialect{})

	mock.ExpectQuery("FROM information_schema.COLUMNS").WithArgs("shop", "orders").
		WillReturnRows(sqlmock.NewRows(mysqlColumnHeaders).
			AddRow("id", "bigint", "bigint", nil, int64(19), int64(0), "NO", nil, int64(1), "YES", "NO").
			AddRow("status", "varchar", "varchar(20)", int64(20), nil, nil, "NO", "new", int64(2), "NO", "NO").
			AddRow("created_at", "timestamp", "timestamp", nil, nil, int64(0), "NO", "CURRENT_TIMESTAMP", int64(3), "NO", "YES").
			AddRow("active", "tinyint", "tinyint(1)", nil, int64(3), int64(0), "NO", "1", int64(4), "NO", "NO").
			AddRow("note", "varchar", "varchar(50)", int64(50), nil, nil, "YES", "it's", int64(5), "NO", "NO").
			AddRow("quantity", "tinyint", "tinyint(4)", nil, int64(3), int64(0), "NO", "0", int64(6), "NO", "NO"))

	columns, err := sa.ListColumns(context.Background(), "shop", "orders")
	if err != nil {
		t.Fatalf("Expected columns, got %v", err)
	}

	if !columns[0].IsAutoIncrement {
		t.Error("Expected auto_increment to mark id as identity")
	}
	if *columns[1].Default != "'new'" {
		t.Errorf("Expected literal default to be quoted, got %s", *columns[1].Default)
	}
	if columns[2].SourceType != "datetime" || *columns[2].Default != "CURRENT_TIMESTAMP" {
		t.Errorf("Expected timestamp folded to datetime with expression default, got %s %s",
			columns[2].SourceType, *columns[2].Default)
	}
	if columns[3].SourceType != "bit" || *columns[3].Default != "1" {
		t.Errorf("Expected tinyint(1) folded to bit with default untouched, got %s %s",
			columns[3].SourceType, *columns[3].Default)
	}
	if columns[5].SourceType != "tinyint" {
		t.Errorf("Expected wider tinyint to stay tinyint, got %s", columns[5].SourceType)
	}
	if *columns[4].Default != "'it''s'" {
		t.Errorf("Expected embedded quote to be doubled, got %s", *columns[4].Default)
	}
}
