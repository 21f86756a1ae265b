// Package model defines the request, response, and metadata shapes shared by
// the dynamic CRUD engine, the read path, and the HTTP/MCP surfaces.
package model

// Operation identifies the kind of statement a request wants executed.
type Operation string

const (
	OpSelect Operation = "SELECT"
	OpInsert Operation = "INSERT"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// ColumnValue is one column/value pair of a mutation payload. Values arrive
// as strings and are always passed to the database as bind parameters.
type ColumnValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Filter is a single comparison predicate against one column.
type Filter struct {
	Column   string `json:"column"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// FilterGroup combines several filters with one logical operator. The engine
// supports at most one top-level group per request and no nesting.
type FilterGroup struct {
	Operator string   `json:"operator"` // "AND" or "OR"
	Filters  []Filter `json:"filters"`
}

// GlobalSearch describes a term matched with LIKE across several columns.
// When Columns is empty the engine falls back to the table's text-typed
// columns, capped at a fixed limit.
type GlobalSearch struct {
	Term          string   `json:"term"`
	Columns       []string `json:"columns,omitempty"`
	MatchMode     string   `json:"matchMode,omitempty"` // CONTAINS, STARTS_WITH, ENDS_WITH, EXACT
	CaseSensitive bool     `json:"caseSensitive,omitempty"`
}

// ExecuteRequest is the structural description of one CRUD operation as
// received from the API layer. Pagination and ordering fields are consumed
// by the read path only; the mutation engine ignores them.
type ExecuteRequest struct {
	TableName      string        `json:"tableName"`
	Operation      Operation     `json:"operation"`
	Columns        []ColumnValue `json:"columns,omitempty"`
	Filters        []Filter      `json:"filters,omitempty"`
	FilterGroups   []FilterGroup `json:"filterGroups,omitempty"`
	GlobalSearch   *GlobalSearch `json:"globalSearch,omitempty"`
	Limit          *int          `json:"limit,omitempty"`
	Offset         *int          `json:"offset,omitempty"`
	OrderBy        string        `json:"orderBy,omitempty"`
	OrderDirection string        `json:"orderDirection,omitempty"`
}

// RowOperation is one row's payload inside a bulk request. ColumnNames and
// ColumnValues are parallel arrays and must have the same length.
type RowOperation struct {
	ColumnNames  []string `json:"columnNames"`
	ColumnValues []string `json:"columnValues"`
}

// BulkRequest describes a batch of row-level operations against one table.
// Filters apply per row for UPDATE and DELETE; INSERT ignores them.
type BulkRequest struct {
	TableName string         `json:"tableName"`
	Operation Operation      `json:"operation"`
	Rows      []RowOperation `json:"rows"`
	Filters   []Filter       `json:"filters,omitempty"`
}

// MutationResult reports the outcome of a single mutation.
type MutationResult struct {
	Message      string `json:"message"`
	GeneratedID  string `json:"generatedId,omitempty"`
	AffectedRows int64  `json:"affectedRows"`
}

// BulkResult summarizes one bulk batch.
type BulkResult struct {
	TotalRows     int     `json:"totalRows"`
	ProcessedRows int     `json:"processedRows"`
	AffectedRows  int64   `json:"affectedRows"`
	DurationMs    float64 `json:"durationMs"`
	Message       string  `json:"message"`
}

// QueryResult holds rows returned by the read path plus the column metadata
// the client needs to render them.
type QueryResult struct {
	Rows       []map[string]interface{} `json:"rows"`
	TotalCount *int64                   `json:"totalCount,omitempty"`
	Columns    []ColumnMeta             `json:"columns"`
}
