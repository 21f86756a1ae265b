package dialect

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/sijms/go-ora/v2" // registers the "oracle" driver

	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

func init() { Register(oracle{}) }

// oracle targets Oracle Database via go-ora. Binds use the :bN style; go-ora
// binds plain args positionally in order of placeholder appearance.
type oracle struct{}

func (oracle) Name() string       { return "oracle" }
func (oracle) DriverName() string { return "oracle" }

func (oracle) Quote(name string) string { return doubleQuote(name) }

func (oracle) Placeholder(index int) string { return fmt.Sprintf(":b%d", index) }

func (oracle) NowExpr() string { return "SYSTIMESTAMP" }

func (oracle) LimitOffset(limit, offset int) string { return fetchClause(limit, offset) }

// oracleColumnsSQL reads the user's column catalog. Identity columns are
// flagged directly by user_tab_cols; primary-key membership comes from the
// P-type constraint.
const oracleColumnsSQL = `
SELECT utc.column_name AS name,
       utc.data_type AS declared_type,
       CASE WHEN utc.nullable = 'Y' THEN 1 ELSE 0 END AS nullable,
       CASE WHEN utc.identity_column = 'YES' THEN 1 ELSE 0 END AS is_identity,
       CASE WHEN EXISTS (
           SELECT 1
           FROM user_cons_columns ucc
           JOIN user_constraints uc ON ucc.constraint_name = uc.constraint_name
           WHERE uc.constraint_type = 'P'
             AND uc.table_name = utc.table_name
             AND ucc.column_name = utc.column_name
       ) THEN 1 ELSE 0 END AS is_primary_key
FROM user_tab_cols utc
WHERE utc.table_name = :b1
  AND utc.hidden_column = 'NO'
ORDER BY utc.column_id`

func (d oracle) Columns(ctx context.Context, db *sqlx.DB, table string) ([]model.ColumnMeta, error) {
	var cols []model.ColumnMeta
	if err := db.SelectContext(ctx, &cols, oracleColumnsSQL, table); err != nil {
		return nil, fmt.Errorf("oracle introspect %s: %w", table, err)
	}
	return cols, nil
}
