package dialect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

func init() { Register(sqlite{}) }

type sqlite struct{}

func (sqlite) Name() string       { return "sqlite" }
func (sqlite) DriverName() string { return "sqlite" }

func (sqlite) Quote(name string) string { return doubleQuote(name) }

func (sqlite) Placeholder(_ int) string { return "?" }

func (sqlite) NowExpr() string { return "CURRENT_TIMESTAMP" }

func (sqlite) LimitOffset(limit, offset int) string { return limitOffsetClause(limit, offset) }

type sqliteColumnRow struct {
	Name    string `db:"name"`
	Type    string `db:"type"`
	NotNull int    `db:"notnull"`
	PK      int    `db:"pk"`
}

func (d sqlite) Columns(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMeta, error) {
	var rows []sqliteColumnRow
	err := db.SelectContext(ctx, &rows,
		`SELECT name, type, "notnull", pk FROM pragma_table_info(?)`, table)
	if err != nil {
		return nil, fmt.Errorf("sqlite introspect %s: %w", table, err)
	}

	cols := make([]model.ColumnMeta, 0, len(rows))
	for _, r := range rows {
		// A single INTEGER primary key aliases the rowid and auto-increments.
		identity := r.PK == 1 && strings.EqualFold(r.Type, "INTEGER")
		cols = append(cols, model.ColumnMeta{
			Name:         r.Name,
			DeclaredType: r.Type,
			Nullable:     r.NotNull == 0 && r.PK == 0,
			IsPrimaryKey: r.PK > 0,
			IsIdentity:   identity,
		})
	}
	return cols, nil
}
