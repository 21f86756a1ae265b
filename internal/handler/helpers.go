package handler

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/zlovtnik/graphqlScala-sub003/internal/catalog"
	"github.com/zlovtnik/graphqlScala-sub003/internal/engine"
	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
	"github.com/zlovtnik/graphqlScala-sub003/internal/pkresolver"
	"github.com/zlovtnik/graphqlScala-sub003/internal/query"
	"github.com/zlovtnik/graphqlScala-sub003/internal/reader"
	"github.com/zlovtnik/graphqlScala-sub003/internal/server/middleware"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// queryInt extracts an integer query parameter, returning defaultVal if the
// parameter is missing or cannot be parsed.
func queryInt(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

// auditContext assembles the caller identity recorded with every mutation:
// the authenticated actor, the request's trace ID, and the client address.
func auditContext(r *http.Request) model.AuditContext {
	actx := model.AuditContext{
		TraceID:  middleware.GetTraceID(r.Context()),
		ClientIP: clientIP(r),
	}
	if p := middleware.GetPrincipal(r.Context()); p != nil {
		actx.Actor = p.Actor
	}
	return actx
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// classifyEngineError maps an engine error to the HTTP status it should be
// reported with. Statement failures are further classified by the database
// diagnostic so constraint violations do not surface as server errors.
func classifyEngineError(err error) int {
	switch {
	case errors.Is(err, engine.ErrTableNotAllowed):
		return http.StatusForbidden
	case errors.Is(err, catalog.ErrUnknownTable),
		errors.Is(err, pkresolver.ErrNoKeyColumns):
		return http.StatusNotFound
	case errors.Is(err, pkresolver.ErrSelectionOutsideTable):
		return http.StatusBadRequest
	case errors.Is(err, query.ErrInvalidIdentifier),
		errors.Is(err, query.ErrUnsupportedOperator),
		errors.Is(err, query.ErrUnknownFilterColumn),
		errors.Is(err, query.ErrMultipleFilterGroups),
		errors.Is(err, engine.ErrUnknownPayloadColumn),
		errors.Is(err, engine.ErrMissingColumns),
		errors.Is(err, engine.ErrMissingFilters),
		errors.Is(err, engine.ErrMismatchedPayload),
		errors.Is(err, engine.ErrEmptyBulkPayload),
		errors.Is(err, engine.ErrUnsupportedOperation),
		errors.Is(err, reader.ErrUnknownOrderColumn):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrStatementExecutionFailed):
		return classifyDBError(err)
	default:
		return http.StatusInternalServerError
	}
}

// classifyDBError maps common database diagnostics to HTTP status codes.
func classifyDBError(err error) int {
	lower := strings.ToLower(err.Error())

	switch {
	case strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry") ||
		strings.Contains(lower, "violation of unique"):
		return http.StatusConflict

	case strings.Contains(lower, "not null constraint") ||
		strings.Contains(lower, "cannot insert null") ||
		strings.Contains(lower, "null value in column") ||
		strings.Contains(lower, "column cannot be null"):
		return http.StatusBadRequest

	case strings.Contains(lower, "foreign key") ||
		strings.Contains(lower, "fk constraint"):
		return http.StatusBadRequest

	case strings.Contains(lower, "check constraint"):
		return http.StatusBadRequest

	default:
		return http.StatusInternalServerError
	}
}

// writeEngineError reports an engine failure with its stable error code in
// the envelope context.
func writeEngineError(w http.ResponseWriter, err error) {
	writeError(w, classifyEngineError(err), err.Error(), map[string]interface{}{
		"error_code": engine.ErrorCode(err),
	})
}
