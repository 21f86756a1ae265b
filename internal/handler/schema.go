package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/zlovtnik/graphqlScala-sub003/internal/engine"
	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
	"github.com/zlovtnik/graphqlScala-sub003/internal/query"
)

// KeyResolver resolves the primary-key columns of a table.
type KeyResolver interface {
	Resolve(ctx context.Context, table string) ([]string, error)
}

// SchemaHandler serves table metadata: column catalogs and resolved keys.
type SchemaHandler struct {
	allow *engine.AllowList
	meta  engine.MetadataLoader
	keys  KeyResolver
}

func NewSchemaHandler(allow *engine.AllowList, meta engine.MetadataLoader, keys KeyResolver) *SchemaHandler {
	return &SchemaHandler{allow: allow, meta: meta, keys: keys}
}

// GetSchema handles GET /api/v1/crud/tables/{table}/schema. Sensitive
// columns are omitted from the response.
func (h *SchemaHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	table, cols, err := h.load(r)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.TableSchema{Name: table, Columns: cols.Visible()})
}

// GetPrimaryKeys handles GET /api/v1/crud/tables/{table}/primary-keys.
func (h *SchemaHandler) GetPrimaryKeys(w http.ResponseWriter, r *http.Request) {
	table, err := h.gate(r)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	keys, err := h.keys.Resolve(r.Context(), table)
	if err != nil {
		writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"table":       table,
		"primaryKeys": keys,
	})
}

func (h *SchemaHandler) gate(r *http.Request) (string, error) {
	table, err := query.NormalizeIdentifier(chi.URLParam(r, "table"), "table")
	if err != nil {
		return "", err
	}
	if !h.allow.Allows(table) {
		return "", engine.ErrTableNotAllowed
	}
	return table, nil
}

func (h *SchemaHandler) load(r *http.Request) (string, model.ColumnSet, error) {
	table, err := h.gate(r)
	if err != nil {
		return "", model.ColumnSet{}, err
	}
	cols, err := h.meta.Load(r.Context(), table)
	if err != nil {
		return "", model.ColumnSet{}, err
	}
	return table, cols, nil
}
