package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

// ExecuteBulk runs one mutation per row against a single table, sharing one
// audit entry for the whole batch. The batch aborts on the first row error;
// rows already executed stay committed and their counts are recorded.
func (e *Engine) ExecuteBulk(ctx context.Context, req model.BulkRequest, actx model.AuditContext) (*model.BulkResult, error) {
	start := time.Now()
	res, err := e.executeBulk(ctx, req, start)

	if auditErr := e.audit(ctx, req.TableName, string(req.Operation), actx, res.AffectedRows, res.Message, err); auditErr != nil {
		if err == nil {
			return nil, auditErr
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

// executeBulk always returns a result so a partial batch's counts reach the
// audit entry even when a row fails.
func (e *Engine) executeBulk(ctx context.Context, req model.BulkRequest, start time.Time) (*model.BulkResult, error) {
	res := &model.BulkResult{TotalRows: len(req.Rows)}

	if len(req.Rows) == 0 {
		return res, ErrEmptyBulkPayload
	}

	table, cols, err := e.resolveTable(ctx, req.TableName)
	if err != nil {
		return res, err
	}

	switch req.Operation {
	case model.OpInsert, model.OpUpdate, model.OpDelete:
	default:
		return res, fmt.Errorf("%w: bulk %q", ErrUnsupportedOperation, req.Operation)
	}

	for i, row := range req.Rows {
		if len(row.ColumnNames) != len(row.ColumnValues) {
			return res, fmt.Errorf("row %d: %w: %d names, %d values",
				i+1, ErrMismatchedPayload, len(row.ColumnNames), len(row.ColumnValues))
		}
		payload := make([]model.ColumnValue, len(row.ColumnNames))
		for j, name := range row.ColumnNames {
			payload[j] = model.ColumnValue{Name: name, Value: row.ColumnValues[j]}
		}

		var rowRes *model.MutationResult
		var rowErr error
		switch req.Operation {
		case model.OpInsert:
			// Bulk INSERT ignores any supplied filters.
			rowRes, rowErr = e.insert(ctx, table, cols, payload)
		case model.OpUpdate:
			rowRes, rowErr = e.update(ctx, table, cols, payload, req.Filters, nil, nil)
		case model.OpDelete:
			rowRes, rowErr = e.delete(ctx, table, cols, req.Filters, nil, nil)
		}
		if rowErr != nil {
			return res, fmt.Errorf("row %d: %w", i+1, rowErr)
		}
		res.ProcessedRows++
		res.AffectedRows += rowRes.AffectedRows
	}

	res.DurationMs = float64(time.Since(start).Microseconds()) / 1000.0
	res.Message = fmt.Sprintf("Bulk %s on %s: %d/%d row(s) processed, %d affected",
		strings.ToUpper(string(req.Operation)), table, res.ProcessedRows, res.TotalRows, res.AffectedRows)
	return res, nil
}
