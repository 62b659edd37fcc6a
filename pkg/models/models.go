package models

import (
	"fmt"
	"strings"
)

// Column represents a source column with its properties
type Column struct {
	Name            string
	SourceType      string
	MaxLength       *int64 // -1 means unbounded (max)
	Precision       *int64
	Scale           *int64
	IsNullable      bool
	Default         *string
	OrdinalPosition int
	IsAutoIncrement bool
}

// TableID identifies a table by its schema and name
type TableID struct {
	Schema string
	Name   string
}

// String returns the dotted schema.table form used in log output
func (id TableID) String() string {
	return id.Schema + "." + id.Name
}

// PrimaryKey represents a table's primary key constraint
type PrimaryKey struct {
	ConstraintName string
	Columns        []string
}

// UniqueConstraint represents a unique constraint on a table
type UniqueConstraint struct {
	ConstraintName string
	Columns        []string
}

// CheckConstraint holds the raw expression of a check constraint
type CheckConstraint struct {
	ConstraintName string
	Expression     string
}

// ReferentialAction is the ON DELETE / ON UPDATE behaviour of a foreign key
type ReferentialAction string

const (
	NoAction   ReferentialAction = "NO_ACTION"
	Cascade    ReferentialAction = "CASCADE"
	SetNull    ReferentialAction = "SET_NULL"
	SetDefault ReferentialAction = "SET_DEFAULT"
)

// ParseReferentialAction normalizes a catalog action description.
// Unknown values map to NoAction.
func ParseReferentialAction(s string) ReferentialAction {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	normalized = strings.ReplaceAll(normalized, " ", "_")
	switch ReferentialAction(normalized) {
	case Cascade:
		return Cascade
	case SetNull:
		return SetNull
	case SetDefault:
		return SetDefault
	default:
		return NoAction
	}
}

// SQL returns the action as written in DDL
func (a ReferentialAction) SQL() string {
	switch a {
	case Cascade:
		return "CASCADE"
	case SetNull:
		return "SET NULL"
	case SetDefault:
		return "SET DEFAULT"
	default:
		return "NO ACTION"
	}
}

// ForeignKey represents a foreign key relationship between two tables
type ForeignKey struct {
	ConstraintName string
	SourceSchema   string
	SourceTable    string
	SourceColumns  []string
	TargetSchema   string
	TargetTable    string
	TargetColumns  []string
	OnDelete       ReferentialAction
	OnUpdate       ReferentialAction
}

// Source returns the referencing table
func (fk ForeignKey) Source() TableID {
	return TableID{Schema: fk.SourceSchema, Name: fk.SourceTable}
}

// Target returns the referenced table
func (fk ForeignKey) Target() TableID {
	return TableID{Schema: fk.TargetSchema, Name: fk.TargetTable}
}

// IsSelfReference reports whether the key points back at its own table
func (fk ForeignKey) IsSelfReference() bool {
	return fk.Source() == fk.Target()
}

// Table represents information about a source table
type Table struct {
	Schema           string
	Name             string
	Columns          []Column
	PrimaryKey       *PrimaryKey
	UniqueKeys       []UniqueConstraint
	CheckConstraints []CheckConstraint
}

// ID returns the table's identity
func (t Table) ID() TableID {
	return TableID{Schema: t.Schema, Name: t.Name}
}

// AutoIncrementColumns returns the identity columns in declaration order
func (t Table) AutoIncrementColumns() []Column {
	var cols []Column
	for _, c := range t.Columns {
		if c.IsAutoIncrement {
			cols = append(cols, c)
		}
	}
	return cols
}

// ColumnNames returns the column names in declaration order
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// SchemaInfo represents the introspected source schema
type SchemaInfo struct {
	Tables      []Table
	ForeignKeys []ForeignKey
}

// Cell pairs a declared column with a fetched value
type Cell struct {
	Column Column
	Value  interface{}
}

// Row is one fetched source row in column declaration order
type Row []Cell

// Values returns the cell values in order
func (r Row) Values() []interface{} {
	values := make([]interface{}, len(r))
	for i, c := range r {
		values[i] = c.Value
	}
	return values
}

// MigrationStats accumulates counters for one phase of a run
type MigrationStats struct {
	TablesProcessed    int
	TablesCreated      int
	TablesSkipped      int
	TablesExisting     int
	PrimaryKeysCreated int
	ForeignKeysCreated int
	RowsMigrated       int64
	Errors             int
	Warnings           int
}

// Merge adds the counters of other into s
func (s *MigrationStats) Merge(other MigrationStats) {
	s.TablesProcessed += other.TablesProcessed
	s.TablesCreated += other.TablesCreated
	s.TablesSkipped += other.TablesSkipped
	s.TablesExisting += other.TablesExisting
	s.PrimaryKeysCreated += other.PrimaryKeysCreated
	s.ForeignKeysCreated += other.ForeignKeysCreated
	s.RowsMigrated += other.RowsMigrated
	s.Errors += other.Errors
	s.Warnings += other.Warnings
}

// Succeeded reports whether the run finished without errors
func (s MigrationStats) Succeeded() bool {
	return s.Errors == 0
}

func (s MigrationStats) String() string {
	return fmt.Sprintf("tables=%d created=%d pks=%d fks=%d rows=%d errors=%d warnings=%d",
		s.TablesProcessed, s.TablesCreated, s.PrimaryKeysCreated, s.ForeignKeysCreated,
		s.RowsMigrated, s.Errors, s.Warnings)
}

// VerificationResult represents the outcome of comparing source and target row counts
type VerificationResult struct {
	Success    bool
	Mismatched map[string][2]int64
}
