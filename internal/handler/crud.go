// Package handler exposes the dynamic CRUD engine over HTTP.
package handler

import (
	"net/http"

	"github.com/zlovtnik/graphqlScala-sub003/internal/engine"
	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

// CrudHandler serves the mutation endpoints.
type CrudHandler struct {
	engine *engine.Engine
}

func NewCrudHandler(eng *engine.Engine) *CrudHandler {
	return &CrudHandler{engine: eng}
}

// Execute handles POST /api/v1/crud/execute: one INSERT, UPDATE, or DELETE
// described structurally. SELECT requests are rejected here and served by
// the row-listing endpoint instead.
func (h *CrudHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req model.ExecuteRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	res, err := h.engine.Execute(r.Context(), req, auditContext(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ExecuteBulk handles POST /api/v1/crud/bulk: a batch of row operations
// against one table, audited as a single entry.
func (h *CrudHandler) ExecuteBulk(w http.ResponseWriter, r *http.Request) {
	var req model.BulkRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	res, err := h.engine.ExecuteBulk(r.Context(), req, auditContext(r))
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
