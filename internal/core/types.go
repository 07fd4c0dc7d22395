package core

import (
	"strings"
	"time"
)

// Canonical column names. Header cells are trimmed and matched exactly;
// "taxId" is accepted as an alias of ColumnTaxID.
const (
	ColumnName  = "name"
	ColumnEmail = "email"
	ColumnTaxID = "cpf"
	ColumnCity  = "city"
	ColumnState = "state"
)

// RequiredColumns lists the header columns an import file must contain.
var RequiredColumns = []string{ColumnName, ColumnEmail, ColumnTaxID, ColumnCity, ColumnState}

// columnAliases maps alternative header cells to their canonical column.
var columnAliases = map[string]string{
	"taxId": ColumnTaxID,
}

// canonicalColumn returns the canonical name for a header cell.
func canonicalColumn(header string) string {
	key := strings.TrimSpace(header)
	if alias, ok := columnAliases[key]; ok {
		return alias
	}
	return key
}

// RawRow is one data line zipped against the header. A column that is
// missing from the map is absent; empty cells are never stored.
type RawRow struct {
	columns []string
	values  map[string]string
}

// NewRawRow zips header cells with fields. Cells are trimmed and empty
// values are left absent. Extra fields beyond the header are ignored.
func NewRawRow(header, fields []string) RawRow {
	row := RawRow{
		columns: make([]string, 0, len(header)),
		values:  make(map[string]string, len(header)),
	}
	for i, h := range header {
		col := canonicalColumn(h)
		row.columns = append(row.columns, col)
		if i >= len(fields) {
			continue
		}
		if v := strings.TrimSpace(fields[i]); v != "" {
			row.values[col] = v
		}
	}
	return row
}

// Get returns the value of a column and whether it is present.
func (r RawRow) Get(column string) (string, bool) {
	v, ok := r.values[column]
	return v, ok
}

// Set stores a value; an empty value marks the column absent.
func (r RawRow) Set(column, value string) {
	if value == "" {
		delete(r.values, column)
		return
	}
	r.values[column] = value
}

// Columns returns the column order taken from the header.
func (r RawRow) Columns() []string {
	return r.columns
}

// Clone returns an independent copy of the row.
func (r RawRow) Clone() RawRow {
	out := RawRow{
		columns: append([]string(nil), r.columns...),
		values:  make(map[string]string, len(r.values)),
	}
	for k, v := range r.values {
		out.values[k] = v
	}
	return out
}

// NormalizedRecord is a row that passed validation and is ready for creation.
type NormalizedRecord struct {
	Name        string
	Email       string
	TaxID       string // 11 digits
	City        string
	State       string // registry code
	OwnerUserID int64
}

// User is the owner of an import run.
type User struct {
	ID    int64
	Name  string
	Email string
}

// OutcomeStatus tags a RowOutcome.
type OutcomeStatus string

const (
	OutcomeCreated  OutcomeStatus = "created"
	OutcomeRejected OutcomeStatus = "rejected"
)

// RowOutcome is the result of one data line.
type RowOutcome struct {
	Line       int
	Status     OutcomeStatus
	EmployeeID int64    // Set when Status is OutcomeCreated
	Errors     []string // Line-prefixed messages when Status is OutcomeRejected
}

// ImportSummary aggregates one pass over an import file.
type ImportSummary struct {
	FilePath         string
	OwnerUserID      int64
	ProcessedCount   int // Rows created
	ErrorCount       int // Rows rejected
	TotalLines       int // ProcessedCount + ErrorCount
	ValidationErrors []string
	Rows             []RowOutcome
	Duration         time.Duration
}

// accept records a created row.
func (s *ImportSummary) accept(line int, employeeID int64) {
	s.ProcessedCount++
	s.TotalLines++
	s.Rows = append(s.Rows, RowOutcome{Line: line, Status: OutcomeCreated, EmployeeID: employeeID})
}

// reject records a rejected row and its messages.
func (s *ImportSummary) reject(line int, messages ...string) {
	s.ErrorCount++
	s.TotalLines++
	s.ValidationErrors = append(s.ValidationErrors, messages...)
	s.Rows = append(s.Rows, RowOutcome{Line: line, Status: OutcomeRejected, Errors: messages})
}
