package dialect

import (
	"context"
	"fmt"

	_ "github.com/go-sql-driver/mysql" // registers the "mysql" driver
	"github.com/jmoiron/sqlx"
	"strings"

	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

func init() { Register(mysqlDialect{}) }

type mysqlDialect struct{}

func (mysqlDialect) Name() string       { return "mysql" }
func (mysqlDialect) DriverName() string { return "mysql" }

func (mysqlDialect) Quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (mysqlDialect) Placeholder(_ int) string { return "?" }

func (mysqlDialect) NowExpr() string { return "CURRENT_TIMESTAMP" }

func (mysqlDialect) LimitOffset(limit, offset int) string { return limitOffsetClause(limit, offset) }

const mysqlColumnsSQL = `
SELECT column_name AS name,
       data_type AS declared_type,
       is_nullable = 'YES' AS nullable,
       extra LIKE '%auto_increment%' AS is_identity,
       column_key = 'PRI' AS is_primary_key
FROM information_schema.columns
WHERE table_schema = DATABASE()
  AND upper(table_name) = ?
ORDER BY ordinal_position`

func (d mysqlDialect) Columns(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMeta, error) {
	var cols []model.ColumnMeta
	if err := db.SelectContext(ctx, &cols, mysqlColumnsSQL, table); err != nil {
		return nil, fmt.Errorf("mysql introspect %s: %w", table, err)
	}
	return cols, nil
}
