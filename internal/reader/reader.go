// Package reader serves the SELECT half of the dynamic engine: filtered,
// paginated row listing over allow-listed tables, with sensitive columns
// suppressed from both the projection and the results.
package reader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/zlovtnik/graphqlScala-sub003/internal/dialect"
	"github.com/zlovtnik/graphqlScala-sub003/internal/engine"
	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
	"github.com/zlovtnik/graphqlScala-sub003/internal/query"
)

// ErrUnknownOrderColumn flags an ORDER BY column absent from the table.
var ErrUnknownOrderColumn = errors.New("unknown order column")

const defaultLimit = 100

// Reader runs read-only queries on the CRUD pool.
type Reader struct {
	db    *sqlx.DB
	d     dialect.Dialect
	allow *engine.AllowList
	meta  engine.MetadataLoader
}

// New wires a Reader sharing the engine's pool, dialect, and catalog loader.
func New(db *sqlx.DB, d dialect.Dialect, allow *engine.AllowList, meta engine.MetadataLoader) *Reader {
	return &Reader{db: db, d: d, allow: allow, meta: meta}
}

// Query lists rows matching the request's filters. Only non-sensitive
// columns are projected; the total count ignores pagination.
func (r *Reader) Query(ctx context.Context, req model.ExecuteRequest) (*model.QueryResult, error) {
	table, err := query.NormalizeIdentifier(req.TableName, "table")
	if err != nil {
		return nil, err
	}
	if !r.allow.Allows(table) {
		return nil, fmt.Errorf("%w: %s", engine.ErrTableNotAllowed, table)
	}
	cols, err := r.meta.Load(ctx, table)
	if err != nil {
		return nil, err
	}

	visible := cols.Visible()
	projection := make([]string, len(visible))
	for i, c := range visible {
		projection[i] = r.d.Quote(c.Name)
	}

	c := query.Compiler{Quote: r.d.Quote, Placeholder: r.d.Placeholder}
	pred, err := c.Compile(cols, req.Filters, req.FilterGroups, req.GlobalSearch, 1)
	if err != nil {
		return nil, err
	}

	where := ""
	if !pred.Empty() {
		where = " WHERE " + pred.SQL
	}

	orderBy, err := r.orderClause(cols, req.OrderBy, req.OrderDirection)
	if err != nil {
		return nil, err
	}

	limit := defaultLimit
	if req.Limit != nil && *req.Limit > 0 {
		limit = *req.Limit
	}
	offset := 0
	if req.Offset != nil && *req.Offset > 0 {
		offset = *req.Offset
	}

	sqlText := "SELECT " + strings.Join(projection, ", ") + " FROM " + r.d.Quote(table) + where + orderBy
	if page := r.d.LimitOffset(limit, offset); page != "" {
		sqlText += " " + page
	}

	rows, err := r.db.QueryxContext(ctx, sqlText, pred.Binds...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrStatementExecutionFailed, err)
	}
	defer rows.Close()

	results := make([]map[string]interface{}, 0, limit)
	for rows.Next() {
		row := map[string]interface{}{}
		if err := rows.MapScan(row); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", engine.ErrStatementExecutionFailed, err)
		}
		cleanRowValues(row)
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", engine.ErrStatementExecutionFailed, err)
	}

	total, err := r.count(ctx, table, pred)
	if err != nil {
		return nil, err
	}

	return &model.QueryResult{Rows: results, TotalCount: &total, Columns: visible}, nil
}

func (r *Reader) count(ctx context.Context, table string, pred *query.Predicate) (int64, error) {
	sqlText := "SELECT COUNT(*) FROM " + r.d.Quote(table)
	if !pred.Empty() {
		sqlText += " WHERE " + pred.SQL
	}
	var total int64
	if err := r.db.GetContext(ctx, &total, sqlText, pred.Binds...); err != nil {
		return 0, fmt.Errorf("%w: count: %w", engine.ErrStatementExecutionFailed, err)
	}
	return total, nil
}

// orderClause validates the requested order column against the catalog and
// falls back to the primary key (or the first column) so that dialects
// requiring ORDER BY for pagination always get one.
func (r *Reader) orderClause(cols model.ColumnSet, orderBy, direction string) (string, error) {
	var target model.ColumnMeta
	if orderBy != "" {
		name, err := query.NormalizeIdentifier(orderBy, "order column")
		if err != nil {
			return "", err
		}
		meta, ok := cols.Resolve(name)
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnknownOrderColumn, orderBy)
		}
		target = meta
	} else if pk := cols.PrimaryKey(); len(pk) > 0 {
		meta, _ := cols.Resolve(pk[0])
		target = meta
	} else if all := cols.Columns(); len(all) > 0 {
		target = all[0]
	} else {
		return "", nil
	}

	dir := "ASC"
	if strings.EqualFold(strings.TrimSpace(direction), "DESC") {
		dir = "DESC"
	}
	return " ORDER BY " + r.d.Quote(target.Name) + " " + dir, nil
}

// cleanRowValues rewrites driver byte slices as strings so JSON encoding
// does not base64 them.
func cleanRowValues(row map[string]interface{}) {
	for k, v := range row {
		if b, ok := v.([]byte); ok {
			row[k] = string(b)
		}
	}
}
