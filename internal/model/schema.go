package model

import "strings"

// ColumnMeta describes one column of an allow-listed table as reported by
// the database catalog.
type ColumnMeta struct {
	Name         string `json:"name" db:"name"`
	DeclaredType string `json:"declaredType" db:"declared_type"`
	Nullable     bool   `json:"nullable" db:"nullable"`
	IsPrimaryKey bool   `json:"isPrimaryKey" db:"is_primary_key"`
	IsIdentity   bool   `json:"isIdentity" db:"is_identity"`
}

// TableSchema is the introspection result exposed to clients.
type TableSchema struct {
	Name    string       `json:"name"`
	Columns []ColumnMeta `json:"columns"`
}

// sensitiveColumns are never exposed through the read path, schema
// responses, or global-search expansion.
var sensitiveColumns = map[string]struct{}{
	"PASSWORD":      {},
	"PASSWORD_HASH": {},
	"SECRET":        {},
	"SECRET_KEY":    {},
	"ACCESS_KEY":    {},
	"API_KEY":       {},
	"TOKEN":         {},
	"REFRESH_TOKEN": {},
}

// IsSensitiveColumn reports whether a column name is on the suppression list.
func IsSensitiveColumn(name string) bool {
	_, ok := sensitiveColumns[strings.ToUpper(name)]
	return ok
}

// ColumnSet is the loaded metadata for one table, preserving catalog order
// and indexed by uppercase column name.
type ColumnSet struct {
	columns []ColumnMeta
	byName  map[string]ColumnMeta
}

// NewColumnSet builds a ColumnSet from catalog rows.
func NewColumnSet(columns []ColumnMeta) ColumnSet {
	byName := make(map[string]ColumnMeta, len(columns))
	for _, c := range columns {
		byName[strings.ToUpper(c.Name)] = c
	}
	return ColumnSet{columns: columns, byName: byName}
}

// Len returns the number of columns in the set.
func (cs ColumnSet) Len() int { return len(cs.columns) }

// Columns returns all columns in catalog order.
func (cs ColumnSet) Columns() []ColumnMeta { return cs.columns }

// Resolve looks up a column by name, case-insensitively, and returns its
// declared metadata.
func (cs ColumnSet) Resolve(name string) (ColumnMeta, bool) {
	c, ok := cs.byName[strings.ToUpper(name)]
	return c, ok
}

// Visible returns the columns in catalog order with sensitive columns removed.
func (cs ColumnSet) Visible() []ColumnMeta {
	out := make([]ColumnMeta, 0, len(cs.columns))
	for _, c := range cs.columns {
		if IsSensitiveColumn(c.Name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// TextColumns returns up to limit non-sensitive text-typed column names, in
// catalog order. Used to default global-search targets.
func (cs ColumnSet) TextColumns(limit int) []string {
	var out []string
	for _, c := range cs.columns {
		if IsSensitiveColumn(c.Name) || !isTextType(c.DeclaredType) {
			continue
		}
		out = append(out, c.Name)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// PrimaryKey returns the declared primary-key column names in catalog order.
func (cs ColumnSet) PrimaryKey() []string {
	var out []string
	for _, c := range cs.columns {
		if c.IsPrimaryKey {
			out = append(out, c.Name)
		}
	}
	return out
}

// Identity returns the identity/auto-increment column, if the table has one.
func (cs ColumnSet) Identity() (ColumnMeta, bool) {
	for _, c := range cs.columns {
		if c.IsIdentity {
			return c, true
		}
	}
	return ColumnMeta{}, false
}

func isTextType(declared string) bool {
	t := strings.ToUpper(declared)
	return strings.Contains(t, "CHAR") || strings.Contains(t, "TEXT") ||
		strings.Contains(t, "CLOB") || strings.Contains(t, "STRING")
}
