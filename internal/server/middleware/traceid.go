package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

// TraceIDKey is the context key for the trace ID.
const TraceIDKey contextKey = "trace_id"

// TraceID is an HTTP middleware that assigns a unique UUID v7 to each
// request. If the client already provides an X-Trace-ID header, that value
// is used instead. The ID is set on both the response header and the
// request context, and ends up in the audit trail of every mutation the
// request performs.
func TraceID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Trace-ID")
		if id == "" {
			id = uuid.Must(uuid.NewV7()).String()
		}
		w.Header().Set("X-Trace-ID", id)
		ctx := context.WithValue(r.Context(), TraceIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTraceID extracts the trace ID from the context. Returns an empty
// string if no trace ID is present.
func GetTraceID(ctx context.Context) string {
	if id, ok := ctx.Value(TraceIDKey).(string); ok {
		return id
	}
	return ""
}
