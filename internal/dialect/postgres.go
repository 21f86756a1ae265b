package dialect

import (
	"context"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/jmoiron/sqlx"

	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

func init() { Register(postgres{}) }

type postgres struct{}

func (postgres) Name() string       { return "postgres" }
func (postgres) DriverName() string { return "pgx" }

func (postgres) Quote(name string) string { return doubleQuote(name) }

func (postgres) Placeholder(index int) string { return fmt.Sprintf("$%d", index) }

func (postgres) NowExpr() string { return "CURRENT_TIMESTAMP" }

func (postgres) LimitOffset(limit, offset int) string { return limitOffsetClause(limit, offset) }

// Identity detection covers both declared identity columns and serial
// (nextval-defaulted) columns.
const postgresColumnsSQL = `
SELECT c.column_name AS name,
       c.data_type AS declared_type,
       c.is_nullable = 'YES' AS nullable,
       (c.is_identity = 'YES' OR COALESCE(c.column_default, '') LIKE 'nextval%') AS is_identity,
       EXISTS (
           SELECT 1
           FROM information_schema.table_constraints tc
           JOIN information_schema.key_column_usage kcu
             ON tc.constraint_name = kcu.constraint_name
            AND tc.table_schema = kcu.table_schema
           WHERE tc.constraint_type = 'PRIMARY KEY'
             AND tc.table_name = c.table_name
             AND tc.table_schema = c.table_schema
             AND kcu.column_name = c.column_name
       ) AS is_primary_key
FROM information_schema.columns c
WHERE upper(c.table_name) = $1
  AND c.table_schema = current_schema()
ORDER BY c.ordinal_position`

func (d postgres) Columns(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMeta, error) {
	var cols []model.ColumnMeta
	if err := db.SelectContext(ctx, &cols, postgresColumnsSQL, table); err != nil {
		return nil, fmt.Errorf("postgres introspect %s: %w", table, err)
	}
	return cols, nil
}
