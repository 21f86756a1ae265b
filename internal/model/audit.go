package model

import "time"

// Audit statuses. PENDING is reserved for entries written before a
// long-running operation completes.
const (
	AuditSuccess = "SUCCESS"
	AuditFailure = "FAILURE"
	AuditPending = "PENDING"
)

// AuditContext carries the caller identity attached to every audit entry.
// The engine never validates or interprets it.
type AuditContext struct {
	Actor    string `json:"actor"`
	TraceID  string `json:"traceId"`
	ClientIP string `json:"clientIp"`
	Metadata string `json:"metadata,omitempty"`
}

// AuditEntry is one immutable record of a top-level engine invocation. A bulk
// batch produces exactly one entry summarizing the whole batch.
type AuditEntry struct {
	TableName    string    `db:"table_name"`
	Operation    string    `db:"operation"`
	Actor        string    `db:"actor"`
	TraceID      string    `db:"trace_id"`
	ClientIP     string    `db:"client_ip"`
	Metadata     string    `db:"metadata"`
	AffectedRows int64     `db:"affected_rows"`
	Status       string    `db:"status"`
	Message      string    `db:"message"`
	ErrorCode    string    `db:"error_code"`
	CreatedAt    time.Time `db:"created_at"`
}
