package models

import "testing"

func TestParseReferentialAction(t *testing.T) {
	tests := []struct {
		input    string
		expected ReferentialAction
	}{
		{"NO_ACTION", NoAction},
		{"CASCADE", Cascade},
		{"SET_NULL", SetNull},
		{"SET NULL", SetNull},
		{"set_default", SetDefault},
		{"RESTRICT", NoAction},
		{"", NoAction},
	}

	for _, tt := range tests {
		if got := ParseReferentialAction(tt.input); got != tt.expected {
			t.Errorf("ParseReferentialAction(%q): expected %s, got %s", tt.input, tt.expected, got)
		}
	}

	if SetNull.SQL() != "SET NULL" {
		t.Errorf("Expected SET NULL, got %s", SetNull.SQL())
	}
	if ReferentialAction("bogus").SQL() != "NO ACTION" {
		t.Errorf("Expected unknown action to render as NO ACTION, got %s", ReferentialAction("bogus").SQL())
	}
}

func TestMigrationStatsMerge(t *testing.T) {
	total := MigrationStats{TablesProcessed: 2, Errors: 1}
	total.Merge(MigrationStats{TablesCreated: 2, PrimaryKeysCreated: 1, RowsMigrated: 2500, Warnings: 3})
	total.Merge(MigrationStats{ForeignKeysCreated: 4, TablesExisting: 1, Errors: 1})

	if total.TablesProcessed != 2 || total.TablesCreated != 2 || total.PrimaryKeysCreated != 1 {
		t.Errorf("Unexpected table counters: %s", total)
	}
	if total.TablesExisting != 1 {
		t.Errorf("Expected 1 existing table, got %d", total.TablesExisting)
	}
	if total.ForeignKeysCreated != 4 {
		t.Errorf("Expected 4 foreign keys, got %d", total.ForeignKeysCreated)
	}
	if total.RowsMigrated != 2500 {
		t.Errorf("Expected 2500 rows, got %d", total.RowsMigrated)
	}
	if total.Errors != 2 || total.Warnings != 3 {
		t.Errorf("Expected 2 errors and 3 warnings, got %d and %d", total.Errors, total.Warnings)
	}
	if total.Succeeded() {
		t.Error("Expected run with errors not to be successful")
	}
}

func TestForeignKeySelfReference(t *testing.T) {
	fk := ForeignKey{SourceSchema: "dbo", SourceTable: "Employee", TargetSchema: "dbo", TargetTable: "Employee"}
	if !fk.IsSelfReference() {
		t.Error("Expected Employee -> Employee to be a self reference")
	}
	fk.TargetSchema = "hr"
	if fk.IsSelfReference() {
		t.Error("Expected dbo.Employee -> hr.Employee not to be a self reference")
	}
}

func TestTableHelpers(t *testing.T) {
	table := Table{
		Schema: "dbo",
		Name:   "Orders",
		Columns: []Column{
			{Name: "Id", IsAutoIncrement: true},
			{Name: "Amount"},
		},
	}

	if table.ID().String() != "dbo.Orders" {
		t.Errorf("Expected dbo.Orders, got %s", table.ID())
	}
	if cols := table.AutoIncrementColumns(); len(cols) != 1 || cols[0].Name != "Id" {
		t.Errorf("Expected Id as the only identity column, got %v", cols)
	}
	names := table.ColumnNames()
	if len(names) != 2 || names[1] != "Amount" {
		t.Errorf("Expected [Id Amount], got %v", names)
	}
}
