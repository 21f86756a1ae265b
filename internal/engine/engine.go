// Package engine synthesizes and executes parameterized DML statements from
// structurally-described operations against allow-listed tables, and writes
// an audit record for every attempt regardless of outcome.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/zlovtnik/graphqlScala-sub003/internal/catalog"
	"github.com/zlovtnik/graphqlScala-sub003/internal/dialect"
	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
	"github.com/zlovtnik/graphqlScala-sub003/internal/query"
)

// updatedAtColumn is touched automatically on UPDATE when present and not
// already set by the caller.
const updatedAtColumn = "UPDATED_AT"

// MetadataLoader loads the column catalog for a normalized table name.
type MetadataLoader interface {
	Load(ctx context.Context, table string) (model.ColumnSet, error)
}

// AuditRecorder durably records one entry per top-level invocation. Its
// write must commit independently of the CRUD statement's transaction.
type AuditRecorder interface {
	Record(ctx context.Context, entry model.AuditEntry) error
}

// Engine executes INSERT/UPDATE/DELETE operations. It is stateless between
// invocations; each call is handled synchronously on the caller's goroutine.
type Engine struct {
	db       *sqlx.DB
	d        dialect.Dialect
	allow    *AllowList
	meta     MetadataLoader
	recorder AuditRecorder
	logger   *slog.Logger
}

// New wires an Engine. The recorder must use a connection scope independent
// of db so its writes survive CRUD rollbacks.
func New(db *sqlx.DB, d dialect.Dialect, allow *AllowList, meta MetadataLoader, recorder AuditRecorder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{db: db, d: d, allow: allow, meta: meta, recorder: recorder, logger: logger}
}

// AllowList returns the engine's table allow-list.
func (e *Engine) AllowList() *AllowList { return e.allow }

// Dialect returns the engine's SQL dialect.
func (e *Engine) Dialect() dialect.Dialect { return e.d }

// MetadataLoader returns the engine's catalog loader.
func (e *Engine) MetadataLoader() MetadataLoader { return e.meta }

// Execute runs exactly one mutation and audits the attempt. Errors are never
// recovered here: they are recorded as a FAILURE entry and re-raised. An
// audit-write failure after a successful mutation propagates; after a failed
// mutation it is logged so the primary error is never masked.
func (e *Engine) Execute(ctx context.Context, req model.ExecuteRequest, actx model.AuditContext) (*model.MutationResult, error) {
	res, err := e.execute(ctx, req)

	var affected int64
	message := ""
	if res != nil {
		affected = res.AffectedRows
		message = res.Message
	}
	if auditErr := e.audit(ctx, req.TableName, string(req.Operation), actx, affected, message, err); auditErr != nil {
		if err == nil {
			return nil, auditErr
		}
	}
	return res, err
}

func (e *Engine) execute(ctx context.Context, req model.ExecuteRequest) (*model.MutationResult, error) {
	table, cols, err := e.resolveTable(ctx, req.TableName)
	if err != nil {
		return nil, err
	}

	switch req.Operation {
	case model.OpInsert:
		return e.insert(ctx, table, cols, req.Columns)
	case model.OpUpdate:
		return e.update(ctx, table, cols, req.Columns, req.Filters, req.FilterGroups, req.GlobalSearch)
	case model.OpDelete:
		return e.delete(ctx, table, cols, req.Filters, req.FilterGroups, req.GlobalSearch)
	case model.OpSelect:
		return nil, fmt.Errorf("%w: SELECT is served by the read path", ErrUnsupportedOperation)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedOperation, req.Operation)
	}
}

// resolveTable normalizes the table name, checks the allow-list, and loads
// column metadata. The allow-list gate runs first so the catalog is never
// queried for disallowed tables.
func (e *Engine) resolveTable(ctx context.Context, raw string) (string, model.ColumnSet, error) {
	table, err := query.NormalizeIdentifier(raw, "table")
	if err != nil {
		return "", model.ColumnSet{}, err
	}
	if !e.allow.Allows(table) {
		return "", model.ColumnSet{}, fmt.Errorf("%w: %s", ErrTableNotAllowed, table)
	}
	cols, err := e.meta.Load(ctx, table)
	if err != nil {
		return "", model.ColumnSet{}, err
	}
	return table, cols, nil
}

func (e *Engine) insert(ctx context.Context, table string, cols model.ColumnSet, payload []model.ColumnValue) (*model.MutationResult, error) {
	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: INSERT into %s", ErrMissingColumns, table)
	}

	names := make([]string, 0, len(payload))
	placeholders := make([]string, 0, len(payload))
	binds := make([]interface{}, 0, len(payload))
	callerID := ""
	for i, cv := range payload {
		meta, err := e.resolvePayloadColumn(cols, cv.Name)
		if err != nil {
			return nil, err
		}
		names = append(names, e.d.Quote(meta.Name))
		placeholders = append(placeholders, e.d.Placeholder(i+1))
		binds = append(binds, cv.Value)
		if strings.EqualFold(meta.Name, "ID") {
			callerID = cv.Value
		}
	}

	sqlText := "INSERT INTO " + e.d.Quote(table) +
		" (" + strings.Join(names, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"

	affected, err := e.exec(ctx, sqlText, binds)
	if err != nil {
		return nil, err
	}

	res := &model.MutationResult{
		Message:      fmt.Sprintf("Inserted %d row(s) into %s", affected, table),
		AffectedRows: affected,
	}
	// A database-assigned identity makes any caller-supplied ID misleading,
	// so the generated id surfaces only for identity-less tables.
	if _, hasIdentity := cols.Identity(); !hasIdentity && callerID != "" {
		res.GeneratedID = callerID
	}
	return res, nil
}

func (e *Engine) update(ctx context.Context, table string, cols model.ColumnSet, payload []model.ColumnValue,
	filters []model.Filter, groups []model.FilterGroup, search *model.GlobalSearch) (*model.MutationResult, error) {

	if len(payload) == 0 {
		return nil, fmt.Errorf("%w: UPDATE of %s", ErrMissingColumns, table)
	}

	setParts := make([]string, 0, len(payload)+1)
	binds := make([]interface{}, 0, len(payload))
	touchedUpdatedAt := false
	for i, cv := range payload {
		meta, err := e.resolvePayloadColumn(cols, cv.Name)
		if err != nil {
			return nil, err
		}
		setParts = append(setParts, e.d.Quote(meta.Name)+" = "+e.d.Placeholder(i+1))
		binds = append(binds, cv.Value)
		if strings.EqualFold(meta.Name, updatedAtColumn) {
			touchedUpdatedAt = true
		}
	}
	if meta, ok := cols.Resolve(updatedAtColumn); ok && !touchedUpdatedAt {
		setParts = append(setParts, e.d.Quote(meta.Name)+" = "+e.d.NowExpr())
	}

	pred, err := e.compilePredicate(cols, filters, groups, search, len(binds)+1)
	if err != nil {
		return nil, err
	}
	if pred.Empty() {
		return nil, fmt.Errorf("%w: UPDATE of %s without a WHERE clause", ErrMissingFilters, table)
	}

	sqlText := "UPDATE " + e.d.Quote(table) + " SET " + strings.Join(setParts, ", ") + " WHERE " + pred.SQL
	binds = append(binds, pred.Binds...)

	affected, err := e.exec(ctx, sqlText, binds)
	if err != nil {
		return nil, err
	}
	return &model.MutationResult{
		Message:      fmt.Sprintf("Updated %d row(s) in %s", affected, table),
		AffectedRows: affected,
	}, nil
}

func (e *Engine) delete(ctx context.Context, table string, cols model.ColumnSet,
	filters []model.Filter, groups []model.FilterGroup, search *model.GlobalSearch) (*model.MutationResult, error) {

	pred, err := e.compilePredicate(cols, filters, groups, search, 1)
	if err != nil {
		return nil, err
	}
	if pred.Empty() {
		return nil, fmt.Errorf("%w: DELETE from %s without a WHERE clause", ErrMissingFilters, table)
	}

	sqlText := "DELETE FROM " + e.d.Quote(table) + " WHERE " + pred.SQL

	affected, err := e.exec(ctx, sqlText, pred.Binds)
	if err != nil {
		return nil, err
	}
	return &model.MutationResult{
		Message:      fmt.Sprintf("Deleted %d row(s) from %s", affected, table),
		AffectedRows: affected,
	}, nil
}

func (e *Engine) resolvePayloadColumn(cols model.ColumnSet, raw string) (model.ColumnMeta, error) {
	name, err := query.NormalizeIdentifier(raw, "payload column")
	if err != nil {
		return model.ColumnMeta{}, err
	}
	meta, ok := cols.Resolve(name)
	if !ok {
		return model.ColumnMeta{}, fmt.Errorf("%w: %q", ErrUnknownPayloadColumn, raw)
	}
	return meta, nil
}

func (e *Engine) compilePredicate(cols model.ColumnSet, filters []model.Filter, groups []model.FilterGroup,
	search *model.GlobalSearch, startIndex int) (*query.Predicate, error) {
	c := query.Compiler{Quote: e.d.Quote, Placeholder: e.d.Placeholder}
	return c.Compile(cols, filters, groups, search, startIndex)
}

// exec prepares, binds by position, executes, and releases the statement
// handle on every exit path.
func (e *Engine) exec(ctx context.Context, sqlText string, binds []interface{}) (int64, error) {
	stmt, err := e.db.PreparexContext(ctx, sqlText)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStatementExecutionFailed, err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, binds...)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrStatementExecutionFailed, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%w: rows affected: %w", ErrStatementExecutionFailed, err)
	}
	return affected, nil
}

// audit writes the outcome entry. The recorder commits independently of the
// CRUD statement; its failure is returned so callers can decide precedence.
func (e *Engine) audit(ctx context.Context, rawTable, operation string, actx model.AuditContext,
	affected int64, message string, primaryErr error) error {

	entry := model.AuditEntry{
		TableName:    strings.ToUpper(strings.TrimSpace(rawTable)),
		Operation:    auditOperation(operation),
		Actor:        actx.Actor,
		TraceID:      actx.TraceID,
		ClientIP:     actx.ClientIP,
		Metadata:     actx.Metadata,
		AffectedRows: affected,
		Status:       model.AuditSuccess,
		Message:      message,
		CreatedAt:    time.Now().UTC(),
	}
	if primaryErr != nil {
		entry.Status = model.AuditFailure
		entry.Message = primaryErr.Error()
		entry.ErrorCode = ErrorCode(primaryErr)
	}

	if err := e.recorder.Record(ctx, entry); err != nil {
		if primaryErr != nil {
			e.logger.Error("audit write failed after operation failure",
				"table", entry.TableName, "operation", operation, "error", err)
			return nil
		}
		return fmt.Errorf("audit write failed: %w", err)
	}
	return nil
}

// auditOperation maps the request's verb onto the audit enum so rejected
// requests with an unknown verb still get a durable entry. The raw verb
// survives in the entry's message via the unsupported-operation error.
func auditOperation(op string) string {
	switch v := strings.ToUpper(strings.TrimSpace(op)); v {
	case string(model.OpInsert), string(model.OpUpdate), string(model.OpDelete), string(model.OpSelect):
		return v
	default:
		return string(model.OpSelect)
	}
}

// ErrorCode maps an engine error to the stable code stored in the audit
// trail and returned to API clients.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, query.ErrInvalidIdentifier):
		return "INVALID_IDENTIFIER"
	case errors.Is(err, ErrTableNotAllowed):
		return "TABLE_NOT_ALLOWED"
	case errors.Is(err, catalog.ErrUnknownTable):
		return "UNKNOWN_TABLE"
	case errors.Is(err, query.ErrUnknownFilterColumn):
		return "UNKNOWN_FILTER_COLUMN"
	case errors.Is(err, ErrUnknownPayloadColumn):
		return "UNKNOWN_PAYLOAD_COLUMN"
	case errors.Is(err, query.ErrUnsupportedOperator):
		return "UNSUPPORTED_OPERATOR"
	case errors.Is(err, query.ErrMultipleFilterGroups):
		return "MULTIPLE_FILTER_GROUPS"
	case errors.Is(err, ErrMissingColumns):
		return "MISSING_COLUMNS"
	case errors.Is(err, ErrMissingFilters):
		return "MISSING_FILTERS"
	case errors.Is(err, ErrMismatchedPayload):
		return "MISMATCHED_PAYLOAD"
	case errors.Is(err, ErrEmptyBulkPayload):
		return "EMPTY_BULK_PAYLOAD"
	case errors.Is(err, ErrUnsupportedOperation):
		return "UNSUPPORTED_OPERATION"
	default:
		return "STATEMENT_EXECUTION_FAILED"
	}
}
