package engine_test

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/zlovtnik/graphqlScala-sub003/internal/audit"
	"github.com/zlovtnik/graphqlScala-sub003/internal/catalog"
	"github.com/zlovtnik/graphqlScala-sub003/internal/dialect"
	"github.com/zlovtnik/graphqlScala-sub003/internal/engine"
	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

const testSchema = `
CREATE TABLE "USERS" (
	"ID" TEXT PRIMARY KEY,
	"USERNAME" TEXT NOT NULL UNIQUE,
	"EMAIL" TEXT,
	"STATUS" TEXT,
	"PASSWORD_HASH" TEXT,
	"UPDATED_AT" TIMESTAMP
);
CREATE TABLE "ITEMS" (
	"ID" INTEGER PRIMARY KEY,
	"NAME" TEXT NOT NULL
);
CREATE TABLE "SECRETS" (
	"ID" TEXT PRIMARY KEY,
	"VALUE" TEXT
);
CREATE TABLE "AUDIT_DYNAMIC_CRUD" (
	"TABLE_NAME" TEXT,
	"OPERATION" TEXT,
	"ACTOR" TEXT,
	"TRACE_ID" TEXT,
	"CLIENT_IP" TEXT,
	"METADATA" TEXT,
	"AFFECTED_ROWS" INTEGER,
	"STATUS" TEXT,
	"MESSAGE" TEXT,
	"ERROR_CODE" TEXT,
	"CREATED_AT" TIMESTAMP
);
`

// countingLoader wraps the catalog loader to record how often metadata is
// fetched.
type countingLoader struct {
	inner *catalog.Loader
	calls int
}

func (c *countingLoader) Load(ctx context.Context, table string) (model.ColumnSet, error) {
	c.calls++
	return c.inner.Load(ctx, table)
}

type testEnv struct {
	db     *sqlx.DB
	eng    *engine.Engine
	loader *countingLoader
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	d, err := dialect.Get("sqlite")
	if err != nil {
		t.Fatal(err)
	}
	db, err := sqlx.Open(d.DriverName(), ":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := db.Exec(testSchema); err != nil {
		t.Fatal(err)
	}

	allow, err := engine.NewAllowList([]string{"USERS", "ITEMS", "AUDIT_DYNAMIC_CRUD"})
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	loader := &countingLoader{inner: catalog.NewLoader(db, d)}
	recorder := audit.NewRecorder(db, d, "", logger)
	eng := engine.New(db, d, allow, loader, recorder, logger)

	return &testEnv{db: db, eng: eng, loader: loader}
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSuffix(string(p), "\n"))
	return len(p), nil
}

type auditRow struct {
	TableName    string `db:"table_name"`
	Operation    string `db:"operation"`
	Actor        string `db:"actor"`
	AffectedRows int64  `db:"affected_rows"`
	Status       string `db:"status"`
	Message      string `db:"message"`
	ErrorCode    string `db:"error_code"`
}

func (e *testEnv) auditEntries(t *testing.T) []auditRow {
	t.Helper()
	var rows []auditRow
	err := e.db.Select(&rows, `SELECT "TABLE_NAME" AS table_name, "OPERATION" AS operation,
		"ACTOR" AS actor, "AFFECTED_ROWS" AS affected_rows, "STATUS" AS status,
		"MESSAGE" AS message, "ERROR_CODE" AS error_code
		FROM AUDIT_DYNAMIC_CRUD ORDER BY rowid`)
	if err != nil {
		t.Fatal(err)
	}
	return rows
}

func testAuditContext() model.AuditContext {
	return model.AuditContext{Actor: "tester", TraceID: "trace-1", ClientIP: "127.0.0.1"}
}

func insertUser(t *testing.T, env *testEnv, id, username string) {
	t.Helper()
	_, err := env.eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: model.OpInsert,
		Columns: []model.ColumnValue{
			{Name: "ID", Value: id},
			{Name: "USERNAME", Value: username},
		},
	}, testAuditContext())
	if err != nil {
		t.Fatal(err)
	}
}

func TestInsertReturnsGeneratedIDAndAudits(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "users",
		Operation: model.OpInsert,
		Columns: []model.ColumnValue{
			{Name: "id", Value: "u-1"},
			{Name: "username", Value: "alice"},
			{Name: "email", Value: "alice@example.com"},
		},
	}, testAuditContext())
	if err != nil {
		t.Fatal(err)
	}

	if res.AffectedRows != 1 {
		t.Errorf("AffectedRows = %d, want 1", res.AffectedRows)
	}
	if res.GeneratedID != "u-1" {
		t.Errorf("GeneratedID = %q, want caller-supplied id for identity-less table", res.GeneratedID)
	}

	var count int
	if err := env.db.Get(&count, `SELECT COUNT(*) FROM USERS WHERE "ID" = 'u-1'`); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}

	entries := env.auditEntries(t)
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.TableName != "USERS" || e.Operation != "INSERT" || e.Status != model.AuditSuccess {
		t.Errorf("audit entry = %+v", e)
	}
	if e.Actor != "tester" {
		t.Errorf("audit actor = %q, want tester", e.Actor)
	}
	if e.AffectedRows != 1 {
		t.Errorf("audit affected rows = %d, want 1", e.AffectedRows)
	}
}

func TestInsertIdentityTableSuppressesGeneratedID(t *testing.T) {
	env := newTestEnv(t)

	res, err := env.eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "ITEMS",
		Operation: model.OpInsert,
		Columns: []model.ColumnValue{
			{Name: "ID", Value: "42"},
			{Name: "NAME", Value: "widget"},
		},
	}, testAuditContext())
	if err != nil {
		t.Fatal(err)
	}
	if res.GeneratedID != "" {
		t.Errorf("GeneratedID = %q, want empty for identity table", res.GeneratedID)
	}
}

func TestUpdateTouchesUpdatedAt(t *testing.T) {
	env := newTestEnv(t)
	insertUser(t, env, "u-1", "alice")

	res, err := env.eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: model.OpUpdate,
		Columns:   []model.ColumnValue{{Name: "USERNAME", Value: "alice2"}},
		Filters:   []model.Filter{{Column: "ID", Operator: "EQ", Value: "u-1"}},
	}, testAuditContext())
	if err != nil {
		t.Fatal(err)
	}
	if res.AffectedRows != 1 {
		t.Errorf("AffectedRows = %d, want 1", res.AffectedRows)
	}

	var row struct {
		Username  string  `db:"username"`
		UpdatedAt *string `db:"updated_at"`
	}
	err = env.db.Get(&row, `SELECT "USERNAME" AS username, "UPDATED_AT" AS updated_at
		FROM USERS WHERE "ID" = 'u-1'`)
	if err != nil {
		t.Fatal(err)
	}
	if row.Username != "alice2" {
		t.Errorf("username = %q, want alice2", row.Username)
	}
	if row.UpdatedAt == nil || *row.UpdatedAt == "" {
		t.Error("UPDATED_AT not touched by UPDATE")
	}
}

func TestUpdateWithoutFiltersRejected(t *testing.T) {
	env := newTestEnv(t)
	insertUser(t, env, "u-1", "alice")

	_, err := env.eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: model.OpUpdate,
		Columns:   []model.ColumnValue{{Name: "STATUS", Value: "DISABLED"}},
	}, testAuditContext())
	if !errors.Is(err, engine.ErrMissingFilters) {
		t.Fatalf("err = %v, want ErrMissingFilters", err)
	}

	// The rejected attempt is still audited.
	entries := env.auditEntries(t)
	last := entries[len(entries)-1]
	if last.Status != model.AuditFailure {
		t.Errorf("audit status = %q, want FAILURE", last.Status)
	}
	if last.ErrorCode != "MISSING_FILTERS" {
		t.Errorf("audit error code = %q, want MISSING_FILTERS", last.ErrorCode)
	}

	// The row is untouched.
	var status *string
	if err := env.db.Get(&status, `SELECT "STATUS" FROM USERS WHERE "ID" = 'u-1'`); err != nil {
		t.Fatal(err)
	}
	if status != nil {
		t.Errorf("status = %v, want untouched NULL", *status)
	}
}

func TestDeleteWithoutFiltersRejected(t *testing.T) {
	env := newTestEnv(t)
	insertUser(t, env, "u-1", "alice")

	_, err := env.eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: model.OpDelete,
	}, testAuditContext())
	if !errors.Is(err, engine.ErrMissingFilters) {
		t.Fatalf("err = %v, want ErrMissingFilters", err)
	}
}

func TestDeleteRemovesMatchingRows(t *testing.T) {
	env := newTestEnv(t)
	insertUser(t, env, "u-1", "alice")
	insertUser(t, env, "u-2", "bob")

	res, err := env.eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: model.OpDelete,
		Filters:   []model.Filter{{Column: "ID", Operator: "EQ", Value: "u-1"}},
	}, testAuditContext())
	if err != nil {
		t.Fatal(err)
	}
	if res.AffectedRows != 1 {
		t.Errorf("AffectedRows = %d, want 1", res.AffectedRows)
	}

	var count int
	if err := env.db.Get(&count, "SELECT COUNT(*) FROM USERS"); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("remaining rows = %d, want 1", count)
	}
}

func TestInsertEmptyPayloadRejected(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: model.OpInsert,
	}, testAuditContext())
	if !errors.Is(err, engine.ErrMissingColumns) {
		t.Fatalf("err = %v, want ErrMissingColumns", err)
	}
}

func TestUnknownPayloadColumnRejected(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: model.OpInsert,
		Columns:   []model.ColumnValue{{Name: "NO_SUCH_COLUMN", Value: "x"}},
	}, testAuditContext())
	if !errors.Is(err, engine.ErrUnknownPayloadColumn) {
		t.Fatalf("err = %v, want ErrUnknownPayloadColumn", err)
	}
}

func TestDisallowedTableRejectedBeforeMetadata(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "SECRETS",
		Operation: model.OpInsert,
		Columns:   []model.ColumnValue{{Name: "ID", Value: "s-1"}},
	}, testAuditContext())
	if !errors.Is(err, engine.ErrTableNotAllowed) {
		t.Fatalf("err = %v, want ErrTableNotAllowed", err)
	}
	if env.loader.calls != 0 {
		t.Errorf("metadata loaded %d times for disallowed table, want 0", env.loader.calls)
	}
}

func TestSelectRoutedToReadPath(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: model.OpSelect,
	}, testAuditContext())
	if !errors.Is(err, engine.ErrUnsupportedOperation) {
		t.Fatalf("err = %v, want ErrUnsupportedOperation", err)
	}
}

func TestUnknownOperationStillAudited(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: "TRUNCATE",
	}, testAuditContext())
	if !errors.Is(err, engine.ErrUnsupportedOperation) {
		t.Fatalf("err = %v, want ErrUnsupportedOperation", err)
	}

	entries := env.auditEntries(t)
	if len(entries) != 1 {
		t.Fatalf("audit entries = %d, want 1 for rejected verb", len(entries))
	}
	e := entries[0]
	if e.Status != model.AuditFailure {
		t.Errorf("audit status = %q, want FAILURE", e.Status)
	}
	if e.ErrorCode != "UNSUPPORTED_OPERATION" {
		t.Errorf("audit error code = %q, want UNSUPPORTED_OPERATION", e.ErrorCode)
	}
	// The rejected verb is recorded under the read placeholder and survives
	// in the message.
	if e.Operation != string(model.OpSelect) {
		t.Errorf("audit operation = %q, want SELECT placeholder", e.Operation)
	}
	if !strings.Contains(e.Message, "TRUNCATE") {
		t.Errorf("audit message = %q, want the rejected verb in it", e.Message)
	}
}

func TestConstraintViolationAuditedAsFailure(t *testing.T) {
	env := newTestEnv(t)
	insertUser(t, env, "u-1", "alice")

	_, err := env.eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: model.OpInsert,
		Columns: []model.ColumnValue{
			{Name: "ID", Value: "u-2"},
			{Name: "USERNAME", Value: "alice"}, // UNIQUE collision
		},
	}, testAuditContext())
	if !errors.Is(err, engine.ErrStatementExecutionFailed) {
		t.Fatalf("err = %v, want ErrStatementExecutionFailed", err)
	}

	entries := env.auditEntries(t)
	last := entries[len(entries)-1]
	if last.Status != model.AuditFailure {
		t.Errorf("audit status = %q, want FAILURE", last.Status)
	}
	if last.ErrorCode != "STATEMENT_EXECUTION_FAILED" {
		t.Errorf("audit error code = %q", last.ErrorCode)
	}
	if last.Message == "" {
		t.Error("audit message empty for failed statement")
	}
}

// TestAuditSurvivesRolledBackPrimaryTransaction wires the engine and the
// recorder onto separate pools over a shared file-backed database, the way
// the serve command does, fails an operation inside an explicit transaction
// on the primary pool, rolls that transaction back, and checks the FAILURE
// entry from a third pool.
func TestAuditSurvivesRolledBackPrimaryTransaction(t *testing.T) {
	d, err := dialect.Get("sqlite")
	if err != nil {
		t.Fatal(err)
	}
	dsn := "file:" + filepath.Join(t.TempDir(), "engine_test.db") +
		"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	open := func() *sqlx.DB {
		db, err := sqlx.Open(d.DriverName(), dsn)
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { db.Close() })
		return db
	}

	primary := open()
	primary.SetMaxOpenConns(1)
	auditDB := open()
	viewer := open()

	if _, err := primary.Exec(testSchema); err != nil {
		t.Fatal(err)
	}
	if _, err := primary.Exec(`INSERT INTO "USERS" ("ID", "USERNAME") VALUES ('u-1', 'alice')`); err != nil {
		t.Fatal(err)
	}

	allow, err := engine.NewAllowList([]string{"USERS"})
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	recorder := audit.NewRecorder(auditDB, d, "", logger)
	eng := engine.New(primary, d, allow, catalog.NewLoader(primary, d), recorder, logger)

	// With one connection in the pool, every engine statement joins this
	// transaction until it is rolled back below.
	if _, err := primary.Exec("BEGIN"); err != nil {
		t.Fatal(err)
	}
	_, execErr := eng.Execute(context.Background(), model.ExecuteRequest{
		TableName: "USERS",
		Operation: model.OpUpdate,
		Columns:   []model.ColumnValue{{Name: "NO_SUCH_COLUMN", Value: "x"}},
		Filters:   []model.Filter{{Column: "ID", Operator: "EQ", Value: "u-1"}},
	}, testAuditContext())
	if !errors.Is(execErr, engine.ErrUnknownPayloadColumn) {
		t.Fatalf("err = %v, want ErrUnknownPayloadColumn", execErr)
	}
	if _, err := primary.Exec("ROLLBACK"); err != nil {
		t.Fatal(err)
	}

	var rows []auditRow
	err = viewer.Select(&rows, `SELECT "TABLE_NAME" AS table_name, "OPERATION" AS operation,
		"ACTOR" AS actor, "AFFECTED_ROWS" AS affected_rows, "STATUS" AS status,
		"MESSAGE" AS message, "ERROR_CODE" AS error_code
		FROM AUDIT_DYNAMIC_CRUD ORDER BY rowid`)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("audit entries after rollback = %d, want 1", len(rows))
	}
	if rows[0].Status != model.AuditFailure {
		t.Errorf("audit status = %q, want FAILURE", rows[0].Status)
	}
	if rows[0].ErrorCode != "UNKNOWN_PAYLOAD_COLUMN" {
		t.Errorf("audit error code = %q, want UNKNOWN_PAYLOAD_COLUMN", rows[0].ErrorCode)
	}

	var username string
	if err := viewer.Get(&username, `SELECT "USERNAME" FROM USERS WHERE "ID" = 'u-1'`); err != nil {
		t.Fatal(err)
	}
	if username != "alice" {
		t.Errorf("username = %q, want untouched alice", username)
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{engine.ErrTableNotAllowed, "TABLE_NOT_ALLOWED"},
		{engine.ErrMissingFilters, "MISSING_FILTERS"},
		{engine.ErrMissingColumns, "MISSING_COLUMNS"},
		{engine.ErrUnknownPayloadColumn, "UNKNOWN_PAYLOAD_COLUMN"},
		{engine.ErrMismatchedPayload, "MISMATCHED_PAYLOAD"},
		{engine.ErrEmptyBulkPayload, "EMPTY_BULK_PAYLOAD"},
		{engine.ErrUnsupportedOperation, "UNSUPPORTED_OPERATION"},
		{engine.ErrStatementExecutionFailed, "STATEMENT_EXECUTION_FAILED"},
		{errors.New("anything else"), "STATEMENT_EXECUTION_FAILED"},
	}
	for _, tt := range tests {
		if got := engine.ErrorCode(tt.err); got != tt.want {
			t.Errorf("ErrorCode(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
