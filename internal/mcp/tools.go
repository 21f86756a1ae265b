package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
	"github.com/zlovtnik/graphqlScala-sub003/internal/query"
)

// registerTools registers the ssf MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	srv.AddTool(
		mcp.NewTool("ssf_list_tables",
			mcp.WithDescription(
				"List the tables the dynamic CRUD engine is allowed to operate on. "+
					"Use this first to discover what data is reachable.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
		),
		s.handleListTables,
	)

	srv.AddTool(
		mcp.NewTool("ssf_describe_table",
			mcp.WithDescription(
				"Get the column catalog for an allow-listed table: names, declared "+
					"types, nullability, primary-key and identity flags. Sensitive "+
					"columns are omitted.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table to describe"),
			),
		),
		s.handleDescribeTable,
	)

	srv.AddTool(
		mcp.NewTool("ssf_query",
			mcp.WithDescription(
				"Query rows from an allow-listed table with optional structural "+
					"filters, a global search term, ordering, and pagination. "+
					"Filters are objects: {\"column\": ..., \"operator\": ..., \"value\": ...} "+
					"with operators EQ, NE, GT, LT, GE, LE, LIKE (or their symbols).",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table to query"),
			),
			mcp.WithArray("filters",
				mcp.Description("Filter objects combined with AND"),
			),
			mcp.WithString("search",
				mcp.Description("Global search term matched across text columns"),
			),
			mcp.WithString("order_by",
				mcp.Description("Column to order by"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum rows to return (default 25, max 1000)"),
			),
			mcp.WithNumber("offset",
				mcp.Description("Rows to skip for pagination"),
			),
		),
		s.handleQuery,
	)

	srv.AddTool(
		mcp.NewTool("ssf_execute",
			mcp.WithDescription(
				"Execute one INSERT, UPDATE, or DELETE against an allow-listed table. "+
					"Columns are {\"name\": ..., \"value\": ...} pairs; all values are "+
					"bound as parameters, never interpolated. UPDATE and DELETE require "+
					"at least one filter. Every call is written to the audit trail.",
			),
			mcp.WithToolAnnotation(mutatingAnnotation()),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the target table"),
			),
			mcp.WithString("operation",
				mcp.Required(),
				mcp.Description("INSERT, UPDATE, or DELETE"),
			),
			mcp.WithArray("columns",
				mcp.Description("Column/value pairs for INSERT and UPDATE"),
			),
			mcp.WithArray("filters",
				mcp.Description("Filter objects selecting the rows to UPDATE or DELETE"),
			),
		),
		s.handleExecute,
	)
}

func (s *MCPServer) handleListTables(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	return successJSON(map[string]interface{}{
		"tables": s.engine.AllowList().Tables(),
	})
}

func (s *MCPServer) handleDescribeTable(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	raw, err := request.RequireString("table")
	if err != nil {
		return toolError("missing required parameter %q", "table")
	}

	table, err := query.NormalizeIdentifier(raw, "table")
	if err != nil {
		return toolError("describe: %v", err)
	}
	if !s.engine.AllowList().Allows(table) {
		return toolError("table %s is not allow-listed. Allow-listed tables: %v",
			table, s.engine.AllowList().Tables())
	}

	cols, err := s.engine.MetadataLoader().Load(ctx, table)
	if err != nil {
		return toolError("describe %s: %v", table, err)
	}
	return successJSON(model.TableSchema{Name: table, Columns: cols.Visible()})
}

func (s *MCPServer) handleQuery(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return toolError("missing required parameter %q", "table")
	}

	filters, err := filtersArg(request)
	if err != nil {
		return toolError("invalid filters: %v", err)
	}

	limit := clamp(request.GetInt("limit", 25), 1, 1000)
	offset := request.GetInt("offset", 0)
	if offset < 0 {
		offset = 0
	}

	req := model.ExecuteRequest{
		TableName: table,
		Operation: model.OpSelect,
		Filters:   filters,
		Limit:     &limit,
		Offset:    &offset,
		OrderBy:   request.GetString("order_by", ""),
	}
	if term := request.GetString("search", ""); term != "" {
		req.GlobalSearch = &model.GlobalSearch{Term: term}
	}

	res, err := s.reader.Query(ctx, req)
	if err != nil {
		return toolError("query %s: %v", table, err)
	}
	return successJSON(res)
}

func (s *MCPServer) handleExecute(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {
	table, err := request.RequireString("table")
	if err != nil {
		return toolError("missing required parameter %q", "table")
	}
	operation, err := request.RequireString("operation")
	if err != nil {
		return toolError("missing required parameter %q", "operation")
	}

	columns, err := columnsArg(request)
	if err != nil {
		return toolError("invalid columns: %v", err)
	}
	filters, err := filtersArg(request)
	if err != nil {
		return toolError("invalid filters: %v", err)
	}

	req := model.ExecuteRequest{
		TableName: table,
		Operation: model.Operation(operation),
		Columns:   columns,
		Filters:   filters,
	}
	actx := model.AuditContext{Actor: s.actor, ClientIP: "mcp"}

	res, err := s.engine.Execute(ctx, req, actx)
	if err != nil {
		return toolError("%s %s: %v", operation, table, err)
	}
	return successJSON(res)
}

// filtersArg decodes the "filters" argument through JSON so the tool schema
// stays loose while the engine gets typed filters.
func filtersArg(request mcp.CallToolRequest) ([]model.Filter, error) {
	var filters []model.Filter
	if err := decodeArg(request, "filters", &filters); err != nil {
		return nil, err
	}
	return filters, nil
}

func columnsArg(request mcp.CallToolRequest) ([]model.ColumnValue, error) {
	var columns []model.ColumnValue
	if err := decodeArg(request, "columns", &columns); err != nil {
		return nil, err
	}
	return columns, nil
}

func decodeArg(request mcp.CallToolRequest, key string, v interface{}) error {
	args := request.GetArguments()
	if args == nil {
		return nil
	}
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, v)
}

// successJSON marshals data to JSON and returns it as a tool result.
func successJSON(data interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal response: %w", err)
	}
	return mcp.NewToolResultText(string(b)), nil
}

// toolError returns a tool-level error result. Errors returned this way are
// visible to the LLM so it can self-correct; they do NOT terminate the MCP
// session.
func toolError(format string, args ...interface{}) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...)), nil
}

// clamp constrains val to [min, max].
func clamp(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
