package dialect

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/snowflakedb/gosnowflake" // registers the "snowflake" driver

	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

func init() { Register(snowflake{}) }

type snowflake struct{}

func (snowflake) Name() string       { return "snowflake" }
func (snowflake) DriverName() string { return "snowflake" }

func (snowflake) Quote(name string) string { return doubleQuote(name) }

func (snowflake) Placeholder(_ int) string { return "?" }

func (snowflake) NowExpr() string { return "CURRENT_TIMESTAMP()" }

func (snowflake) LimitOffset(limit, offset int) string { return limitOffsetClause(limit, offset) }

// Snowflake's information_schema does not populate key_column_usage, so
// primary-key membership is approximated from the column default; clients
// needing exact keys go through the interactive resolver fallback.
const snowflakeColumnsSQL = `
SELECT column_name AS name,
       data_type AS declared_type,
       is_nullable = 'YES' AS nullable,
       COALESCE(column_default, '') ILIKE 'IDENTITY%' AS is_identity,
       FALSE AS is_primary_key
FROM information_schema.columns
WHERE upper(table_name) = ?
  AND table_schema = current_schema()
ORDER BY ordinal_position`

func (d snowflake) Columns(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMeta, error) {
	var cols []model.ColumnMeta
	if err := db.SelectContext(ctx, &cols, snowflakeColumnsSQL, table); err != nil {
		return nil, fmt.Errorf("snowflake introspect %s: %w", table, err)
	}
	return cols, nil
}
