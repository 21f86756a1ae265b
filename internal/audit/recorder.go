// Package audit persists one durable record per mutation attempt using a
// connection pool separate from the one running the mutations, so a rolled
// back statement never takes its trail entry with it.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/zlovtnik/graphqlScala-sub003/internal/dialect"
	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

// ErrInvalidAuditEnum flags an operation or status outside the recorded
// vocabulary. Hitting it means a caller bug, not bad user input.
var ErrInvalidAuditEnum = errors.New("invalid audit enum value")

// DefaultTable is the audit table written when none is configured.
const DefaultTable = "AUDIT_DYNAMIC_CRUD"

// Column width caps; longer values are truncated, never rejected.
const (
	maxMessageLen   = 2000
	maxErrorCodeLen = 64
	maxMetadataLen  = 4000
)

var validOperations = map[string]struct{}{
	"INSERT": {}, "UPDATE": {}, "DELETE": {}, "SELECT": {},
}

var validStatuses = map[string]struct{}{
	model.AuditSuccess: {}, model.AuditFailure: {}, model.AuditPending: {},
}

// Recorder writes audit entries through its own pool.
type Recorder struct {
	db     *sqlx.DB
	d      dialect.Dialect
	table  string
	logger *slog.Logger
}

// NewRecorder builds a Recorder on a dedicated pool. An empty table name
// selects DefaultTable.
func NewRecorder(db *sqlx.DB, d dialect.Dialect, table string, logger *slog.Logger) *Recorder {
	if table == "" {
		table = DefaultTable
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{db: db, d: d, table: strings.ToUpper(table), logger: logger}
}

// Record inserts one entry. A missing audit table is tolerated: the entry is
// logged at WARN and dropped, because an absent trail must not turn every
// mutation on a fresh database into an error.
func (r *Recorder) Record(ctx context.Context, entry model.AuditEntry) error {
	op := strings.ToUpper(strings.TrimSpace(entry.Operation))
	if _, ok := validOperations[op]; !ok {
		return fmt.Errorf("%w: operation %q", ErrInvalidAuditEnum, entry.Operation)
	}
	if _, ok := validStatuses[entry.Status]; !ok {
		return fmt.Errorf("%w: status %q", ErrInvalidAuditEnum, entry.Status)
	}

	cols := []string{
		"TABLE_NAME", "OPERATION", "ACTOR", "TRACE_ID", "CLIENT_IP",
		"METADATA", "AFFECTED_ROWS", "STATUS", "MESSAGE", "ERROR_CODE", "CREATED_AT",
	}
	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = r.d.Quote(c)
		placeholders[i] = r.d.Placeholder(i + 1)
	}

	sqlText := "INSERT INTO " + r.d.Quote(r.table) +
		" (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(placeholders, ", ") + ")"

	_, err := r.db.ExecContext(ctx, sqlText,
		entry.TableName,
		op,
		entry.Actor,
		entry.TraceID,
		entry.ClientIP,
		truncate(entry.Metadata, maxMetadataLen),
		entry.AffectedRows,
		entry.Status,
		truncate(entry.Message, maxMessageLen),
		truncate(entry.ErrorCode, maxErrorCodeLen),
		entry.CreatedAt,
	)
	if err != nil {
		if isMissingTable(err) {
			r.logger.Warn("audit table missing, entry dropped",
				"audit_table", r.table, "table", entry.TableName,
				"operation", op, "status", entry.Status)
			return nil
		}
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// truncate caps s at max bytes without splitting a multi-byte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	for max > 0 && !utf8.RuneStart(s[max]) {
		max--
	}
	return s[:max]
}

// isMissingTable matches the undefined-table diagnostics of the supported
// drivers by message text, since they expose no common error type.
func isMissingTable(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"no such table",       // sqlite
		"does not exist",      // postgres, snowflake
		"doesn't exist",       // mysql
		"invalid object name", // mssql
		"ora-00942",           // oracle
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
