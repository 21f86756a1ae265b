package audit

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/jmoiron/sqlx"

	"github.com/zlovtnik/graphqlScala-sub003/internal/dialect"
	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

func newTestRecorder(t *testing.T, createTable bool) (*Recorder, *sqlx.DB) {
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

	if createTable {
		_, err := db.Exec(`CREATE TABLE "AUDIT_DYNAMIC_CRUD" (
			"TABLE_NAME" TEXT, "OPERATION" TEXT, "ACTOR" TEXT, "TRACE_ID" TEXT,
			"CLIENT_IP" TEXT, "METADATA" TEXT, "AFFECTED_ROWS" INTEGER,
			"STATUS" TEXT, "MESSAGE" TEXT, "ERROR_CODE" TEXT, "CREATED_AT" TIMESTAMP
		)`)
		if err != nil {
			t.Fatal(err)
		}
	}

	logger := slog.New(slog.DiscardHandler)
	return NewRecorder(db, d, "", logger), db
}

func testEntry() model.AuditEntry {
	return model.AuditEntry{
		TableName:    "USERS",
		Operation:    "INSERT",
		Actor:        "tester",
		TraceID:      "trace-1",
		ClientIP:     "127.0.0.1",
		AffectedRows: 1,
		Status:       model.AuditSuccess,
		Message:      "Inserted 1 row(s) into USERS",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestRecordWritesEntry(t *testing.T) {
	r, db := newTestRecorder(t, true)

	if err := r.Record(context.Background(), testEntry()); err != nil {
		t.Fatal(err)
	}

	var row struct {
		TableName string `db:"table_name"`
		Operation string `db:"operation"`
		Status    string `db:"status"`
		Actor     string `db:"actor"`
	}
	err := db.Get(&row, `SELECT "TABLE_NAME" AS table_name, "OPERATION" AS operation,
		"STATUS" AS status, "ACTOR" AS actor FROM AUDIT_DYNAMIC_CRUD`)
	if err != nil {
		t.Fatal(err)
	}
	if row.TableName != "USERS" || row.Operation != "INSERT" ||
		row.Status != model.AuditSuccess || row.Actor != "tester" {
		t.Errorf("stored entry = %+v", row)
	}
}

func TestRecordRejectsInvalidEnums(t *testing.T) {
	r, _ := newTestRecorder(t, true)

	bad := testEntry()
	bad.Operation = "TRUNCATE"
	if err := r.Record(context.Background(), bad); !errors.Is(err, ErrInvalidAuditEnum) {
		t.Errorf("operation TRUNCATE: err = %v, want ErrInvalidAuditEnum", err)
	}

	bad = testEntry()
	bad.Status = "MAYBE"
	if err := r.Record(context.Background(), bad); !errors.Is(err, ErrInvalidAuditEnum) {
		t.Errorf("status MAYBE: err = %v, want ErrInvalidAuditEnum", err)
	}
}

func TestRecordToleratesMissingTable(t *testing.T) {
	r, _ := newTestRecorder(t, false)

	// No audit table exists; the entry is dropped with a warning, not an
	// error, so a fresh database does not fail every mutation.
	if err := r.Record(context.Background(), testEntry()); err != nil {
		t.Errorf("missing audit table: err = %v, want nil", err)
	}
}

func TestRecordTruncatesOversizeFields(t *testing.T) {
	r, db := newTestRecorder(t, true)

	entry := testEntry()
	entry.Message = strings.Repeat("m", maxMessageLen+500)
	entry.ErrorCode = strings.Repeat("c", maxErrorCodeLen+10)
	entry.Metadata = strings.Repeat("x", maxMetadataLen+1)
	entry.Status = model.AuditFailure

	if err := r.Record(context.Background(), entry); err != nil {
		t.Fatal(err)
	}

	var row struct {
		Message   string `db:"message"`
		ErrorCode string `db:"error_code"`
		Metadata  string `db:"metadata"`
	}
	if err := db.Get(&row, `SELECT "MESSAGE" AS message, "ERROR_CODE" AS error_code,
		"METADATA" AS metadata FROM AUDIT_DYNAMIC_CRUD`); err != nil {
		t.Fatal(err)
	}
	if len(row.Message) != maxMessageLen {
		t.Errorf("message length = %d, want %d", len(row.Message), maxMessageLen)
	}
	if len(row.ErrorCode) != maxErrorCodeLen {
		t.Errorf("error code length = %d, want %d", len(row.ErrorCode), maxErrorCodeLen)
	}
	if len(row.Metadata) != maxMetadataLen {
		t.Errorf("metadata length = %d, want %d", len(row.Metadata), maxMetadataLen)
	}
}

func TestTruncatePreservesRuneBoundaries(t *testing.T) {
	tests := []struct {
		name string
		in   string
		max  int
		want string
	}{
		{"under cap", "hello", 10, "hello"},
		{"ascii at cap", "hello", 5, "hello"},
		{"ascii over cap", "hello", 3, "hel"},
		{"rune straddles cap", "abé", 3, "ab"},       // é is 2 bytes
		{"multibyte kept whole", "éé", 2, "é"},
		{"cap inside 3-byte rune", "a€", 2, "a"},     // € is 3 bytes
		{"cap inside 4-byte rune", "\U0001F600", 3, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncate(tt.in, tt.max)
			if got != tt.want {
				t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Errorf("truncate(%q, %d) produced invalid UTF-8 %q", tt.in, tt.max, got)
			}
		})
	}
}

func TestIsMissingTable(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"no such table: AUDIT_DYNAMIC_CRUD", true},
		{`relation "audit_dynamic_crud" does not exist`, true},
		{"Table 'db.AUDIT_DYNAMIC_CRUD' doesn't exist", true},
		{"Invalid object name 'AUDIT_DYNAMIC_CRUD'", true},
		{"ORA-00942: table or view does not exist", true},
		{"UNIQUE constraint failed", false},
		{"connection refused", false},
	}
	for _, tt := range tests {
		if got := isMissingTable(errors.New(tt.msg)); got != tt.want {
			t.Errorf("isMissingTable(%q) = %v, want %v", tt.msg, got, tt.want)
		}
	}
}
