// Package query implements dialect-aware query execution on top of the connection
// registry: one-shot execution with pagination and derived counts, a streaming executor for
// large result sets, and the filter/sort clause builder shared by both.
package query

import "time"

// QueryResult is the uniform shape returned by one-shot execution, regardless of dialect.
type QueryResult struct {
	Columns         []string `json:"columns"`
	Rows            [][]any  `json:"rows"`
	AffectedRows    int64    `json:"affectedRows"`
	ExecutionTimeMs int64    `json:"executionTimeMs"`

	TotalCount *int64 `json:"totalCount,omitempty"`
	Page       *int   `json:"page,omitempty"`
	PageSize   *int   `json:"pageSize,omitempty"`
}

// TableMetadata is the dialect-specific size/comment summary returned by GetTableMetadata.
type TableMetadata struct {
	TotalSize *string `json:"totalSize,omitempty"`
	DataSize  *string `json:"dataSize,omitempty"`
	IndexSize *string `json:"indexSize,omitempty"`
	Comment   *string `json:"comment,omitempty"`
}

// ColumnStructure describes one column as reported by GetTableStructure.
type ColumnStructure struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primaryKey"`
	Default    string `json:"default,omitempty"`
}

// TableIndexStructure describes one index as reported by GetTableStructure.
type TableIndexStructure struct {
	Name      string   `json:"name"`
	Columns   []string `json:"columns"`
	IsUnique  bool     `json:"isUnique"`
	IndexType string   `json:"indexType,omitempty"`
}

// TableConstraintStructure describes one constraint (primary key, foreign key, unique, or
// check) as reported by GetTableStructure. Definition is a dialect-native rendering of what
// the constraint actually enforces, not a normalized cross-dialect shape.
type TableConstraintStructure struct {
	Name           string `json:"name"`
	ConstraintType string `json:"constraintType"`
	Definition     string `json:"definition"`
}

// TableStructure is the full shape returned by GetTableStructure: columns plus the indexes
// and constraints defined on the table.
type TableStructure struct {
	Columns     []ColumnStructure          `json:"columns"`
	Indexes     []TableIndexStructure      `json:"indexes"`
	Constraints []TableConstraintStructure `json:"constraints"`
}

// SidebarItemType distinguishes the kinds of objects GetSidebarItems can return.
type SidebarItemType string

const (
	SidebarTable     SidebarItemType = "Table"
	SidebarView      SidebarItemType = "View"
	SidebarFunction  SidebarItemType = "Function"
	SidebarProcedure SidebarItemType = "Procedure"
)

// SidebarItem is one entry in the connection's sidebar listing: a table, view, or (for
// Postgres/MySQL) a stored function/procedure.
type SidebarItem struct {
	Name   string          `json:"name"`
	Type   SidebarItemType `json:"type"`
	Schema string          `json:"schema,omitempty"`
}

// Operator enumerates the comparison operators a FilterConfig entry may use.
type Operator string

const (
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpLessThan     Operator = "<"
	OpGreaterThan  Operator = ">"
	OpLessEqual    Operator = "<="
	OpGreaterEqual Operator = ">="
	OpContains     Operator = "Contains"
	OpStartsWith   Operator = "Starts With"
	OpEndsWith     Operator = "Ends With"
	OpIn           Operator = "IN"
	OpIsNull       Operator = "IS NULL"
	OpIsNotNull    Operator = "IS NOT NULL"
	OpLike         Operator = "LIKE"
	OpILike        Operator = "ILIKE"
)

// FilterConfig is one row-filter descriptor from the table browser UI. Value's meaning
// depends on Operator: for OpIn it is a pre-formatted, comma-separated list inserted
// verbatim; for OpIsNull/OpIsNotNull it is ignored; otherwise it is a single literal.
type FilterConfig struct {
	ID       string   `json:"id"`
	Column   string   `json:"column"`
	Operator Operator `json:"operator"`
	Value    string   `json:"value"`
	Enabled  bool     `json:"enabled"`
}

// SortDirection is ASC or DESC; any other value is treated as ASC.
type SortDirection string

const (
	SortAscending  SortDirection = "ASC"
	SortDescending SortDirection = "DESC"
)

// BatchSize bounds how many rows ExecuteQueryStreaming buffers before emitting a batch.
const BatchSize = 1000

// YieldInterval is the cooperative sleep after each emitted batch, giving the sink a chance
// to drain and the scheduler a chance to run other work.
const YieldInterval = 5 * time.Millisecond
