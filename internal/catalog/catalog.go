// Package catalog loads column metadata for allow-listed tables. Metadata is
// fetched fresh for every operation; caching, if any, belongs to callers.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/zlovtnik/graphqlScala-sub003/internal/dialect"
	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

// ErrUnknownTable reports an allow-listed table with no catalog metadata,
// which distinguishes a deployment/config bug from a disallowed table.
var ErrUnknownTable = errors.New("table does not exist")

// Loader introspects the column catalog through a dialect.
type Loader struct {
	db *sqlx.DB
	d  dialect.Dialect
}

// NewLoader creates a Loader over an open connection pool.
func NewLoader(db *sqlx.DB, d dialect.Dialect) *Loader {
	return &Loader{db: db, d: d}
}

// Load returns the column set for a normalized table name. Zero catalog rows
// is a hard error.
func (l *Loader) Load(ctx context.Context, table string) (model.ColumnSet, error) {
	cols, err := l.d.Columns(ctx, l.db, table)
	if err != nil {
		return model.ColumnSet{}, err
	}
	if len(cols) == 0 {
		return model.ColumnSet{}, fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	return model.NewColumnSet(cols), nil
}
