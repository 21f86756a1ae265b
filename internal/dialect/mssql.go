package dialect

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/microsoft/go-mssqldb" // registers the "sqlserver" driver

	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

func init() { Register(mssql{}) }

type mssql struct{}

func (mssql) Name() string       { return "mssql" }
func (mssql) DriverName() string { return "sqlserver" }

func (mssql) Quote(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}

func (mssql) Placeholder(index int) string { return fmt.Sprintf("@p%d", index) }

func (mssql) NowExpr() string { return "SYSUTCDATETIME()" }

// SQL Server requires an ORDER BY for OFFSET/FETCH; the read path always
// appends one before paginating.
func (mssql) LimitOffset(limit, offset int) string { return fetchClause(limit, offset) }

const mssqlColumnsSQL = `
SELECT c.COLUMN_NAME AS name,
       c.DATA_TYPE AS declared_type,
       CASE WHEN c.IS_NULLABLE = 'YES' THEN 1 ELSE 0 END AS nullable,
       ISNULL(COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity'), 0) AS is_identity,
       CASE WHEN EXISTS (
           SELECT 1
           FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
           JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu
             ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
           WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY'
             AND tc.TABLE_NAME = c.TABLE_NAME
             AND kcu.COLUMN_NAME = c.COLUMN_NAME
       ) THEN 1 ELSE 0 END AS is_primary_key
FROM INFORMATION_SCHEMA.COLUMNS c
WHERE UPPER(c.TABLE_NAME) = @p1
ORDER BY c.ORDINAL_POSITION`

func (d mssql) Columns(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMeta, error) {
	var cols []model.ColumnMeta
	if err := db.SelectContext(ctx, &cols, mssqlColumnsSQL, table); err != nil {
		return nil, fmt.Errorf("mssql introspect %s: %w", table, err)
	}
	return cols, nil
}
