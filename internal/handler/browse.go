package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zlovtnik/graphqlScala-sub003/internal/engine"
	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
	"github.com/zlovtnik/graphqlScala-sub003/internal/reader"
)

const maxPageSize = 1000

// BrowseHandler serves the read path: table listing and filtered row queries.
type BrowseHandler struct {
	reader *reader.Reader
	allow  *engine.AllowList
}

func NewBrowseHandler(rd *reader.Reader, allow *engine.AllowList) *BrowseHandler {
	return &BrowseHandler{reader: rd, allow: allow}
}

// ListTables handles GET /api/v1/crud/tables: the allow-listed tables the
// engine will operate on.
func (h *BrowseHandler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables := h.allow.Tables()
	resource := make([]map[string]interface{}, len(tables))
	for i, t := range tables {
		resource[i] = map[string]interface{}{"name": t}
	}
	writeJSON(w, http.StatusOK, model.ListResponse{Resource: resource})
}

// ListRows handles GET /api/v1/crud/tables/{table}/rows. Pagination,
// ordering, and a global search term come from query parameters; structural
// filters arrive via QueryRows.
func (h *BrowseHandler) ListRows(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(queryInt(r, "limit", 100), 1, maxPageSize)
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	req := model.ExecuteRequest{
		TableName:      chi.URLParam(r, "table"),
		Operation:      model.OpSelect,
		Limit:          &limit,
		Offset:         &offset,
		OrderBy:        r.URL.Query().Get("order_by"),
		OrderDirection: r.URL.Query().Get("order_dir"),
	}
	if term := r.URL.Query().Get("search"); term != "" {
		req.GlobalSearch = &model.GlobalSearch{Term: term}
	}

	h.query(w, r, req, limit, offset)
}

// QueryRows handles POST /api/v1/crud/query: the full structural SELECT with
// filters, filter groups, and global search in the body.
func (h *BrowseHandler) QueryRows(w http.ResponseWriter, r *http.Request) {
	var req model.ExecuteRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return
	}

	limit := 100
	if req.Limit != nil && *req.Limit > 0 {
		limit = clampInt(*req.Limit, 1, maxPageSize)
	}
	offset := 0
	if req.Offset != nil && *req.Offset > 0 {
		offset = *req.Offset
	}
	req.Limit = &limit
	req.Offset = &offset

	h.query(w, r, req, limit, offset)
}

func (h *BrowseHandler) query(w http.ResponseWriter, r *http.Request, req model.ExecuteRequest, limit, offset int) {
	start := time.Now()
	res, err := h.reader.Query(r.Context(), req)
	if err != nil {
		writeEngineError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, model.ListResponse{
		Resource: res.Rows,
		Meta: &model.ResponseMeta{
			Count:  len(res.Rows),
			Total:  res.TotalCount,
			Limit:  limit,
			Offset: offset,
			TookMs: float64(time.Since(start).Microseconds()) / 1000.0,
		},
	})
}

// clampInt constrains val to be within [min, max].
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
