// Package dialect abstracts the SQL dialect differences the engine cares
// about: bind placeholder style, identifier quoting, the current-timestamp
// expression, pagination syntax, and column-catalog introspection.
package dialect

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

// Dialect is implemented once per supported database driver.
type Dialect interface {
	// Name is the dialect key used in configuration ("oracle", "postgres", ...).
	Name() string
	// DriverName is the database/sql driver to open connections with.
	DriverName() string
	// Quote returns the dialect-quoted form of a validated identifier.
	Quote(name string) string
	// Placeholder returns the bind placeholder for a 1-based index.
	Placeholder(index int) string
	// NowExpr is the SQL expression for the current timestamp.
	NowExpr() string
	// LimitOffset returns the pagination fragment, or "" when limit <= 0.
	LimitOffset(limit, offset int) string
	// Columns introspects the column catalog for one table. An empty result
	// means the table does not exist.
	Columns(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMeta, error)
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Dialect)
)

// Register makes a dialect available by name. Called from each dialect's
// init; later registrations with the same name overwrite earlier ones.
func Register(d Dialect) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[d.Name()] = d
}

// Get returns the dialect registered under name.
func Get(name string) (Dialect, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	d, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("unknown database dialect %q (supported: %s)", name, strings.Join(Names(), ", "))
	}
	return d, nil
}

// Names returns the registered dialect names, sorted.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// doubleQuote is the ANSI identifier quoting shared by most dialects.
func doubleQuote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// limitOffsetClause is the LIMIT/OFFSET form used by postgres, mysql,
// sqlite, and snowflake.
func limitOffsetClause(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	s := fmt.Sprintf("LIMIT %d", limit)
	if offset > 0 {
		s += fmt.Sprintf(" OFFSET %d", offset)
	}
	return s
}

// fetchClause is the OFFSET ... FETCH form used by oracle and mssql.
func fetchClause(limit, offset int) string {
	if limit <= 0 {
		return ""
	}
	return fmt.Sprintf("OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", offset, limit)
}
