// Package openapi generates the OpenAPI 3.1 document describing the CRUD
// engine's endpoints, with per-table schemas derived from live metadata.
package openapi

import (
	"context"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/zlovtnik/graphqlScala-sub003/internal/engine"
	"github.com/zlovtnik/graphqlScala-sub003/internal/model"
)

// Generate builds the document for the allow-listed tables. Tables whose
// metadata cannot be loaded are skipped rather than failing the whole
// document.
func Generate(ctx context.Context, baseURL string, allow *engine.AllowList, meta engine.MetadataLoader) *openapi3.T {
	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title:       "ssf Dynamic CRUD API",
			Description: "Runtime-synthesized CRUD operations over allow-listed tables.",
			Version:     "1.0.0",
		},
		Servers: openapi3.Servers{
			{URL: baseURL},
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	components.SecuritySchemes = openapi3.SecuritySchemes{}
	doc.Components = &components

	doc.Components.SecuritySchemes["bearerAuth"] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	doc.Security = openapi3.SecurityRequirements{
		{"bearerAuth": {}},
	}

	doc.Paths = openapi3.NewPaths()

	doc.Components.Schemas["ErrorResponse"] = errorResponseSchema()
	doc.Components.Schemas["ExecuteRequest"] = executeRequestSchema()
	doc.Components.Schemas["BulkRequest"] = bulkRequestSchema()
	doc.Components.Schemas["MutationResult"] = mutationResultSchema()
	doc.Components.Schemas["BulkResult"] = bulkResultSchema()

	addExecutePaths(doc)
	addTablesPath(doc)

	for _, table := range allow.Tables() {
		cols, err := meta.Load(ctx, table)
		if err != nil {
			continue
		}
		addTablePaths(doc, table, cols.Visible())
	}

	return doc
}

func addExecutePaths(doc *openapi3.T) {
	doc.Paths.Set("/api/v1/crud/execute", &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "executeCrud",
			Summary:     "Execute one INSERT, UPDATE, or DELETE",
			Tags:        []string{"crud"},
			RequestBody: jsonRequestBody("#/components/schemas/ExecuteRequest"),
			Responses:   newResponses("200", "Mutation outcome", refSchema("#/components/schemas/MutationResult")),
		},
	})
	doc.Paths.Set("/api/v1/crud/bulk", &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "executeBulkCrud",
			Summary:     "Execute a batch of row operations against one table",
			Tags:        []string{"crud"},
			RequestBody: jsonRequestBody("#/components/schemas/BulkRequest"),
			Responses:   newResponses("200", "Bulk outcome", refSchema("#/components/schemas/BulkResult")),
		},
	})
	doc.Paths.Set("/api/v1/crud/query", &openapi3.PathItem{
		Post: &openapi3.Operation{
			OperationID: "queryRows",
			Summary:     "Run a structural SELECT with filters and pagination",
			Tags:        []string{"crud"},
			RequestBody: jsonRequestBody("#/components/schemas/ExecuteRequest"),
			Responses:   newResponses("200", "Matching rows", listEnvelopeSchema(nil)),
		},
	})
}

func addTablesPath(doc *openapi3.T) {
	doc.Paths.Set("/api/v1/crud/tables", &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "listTables",
			Summary:     "List the allow-listed tables",
			Tags:        []string{"schema"},
			Responses:   newResponses("200", "Allow-listed table names", listEnvelopeSchema(nil)),
		},
	})
}

func addTablePaths(doc *openapi3.T, table string, columns []model.ColumnMeta) {
	tag := strings.ToLower(table)
	rowSchema := columnsToSchema(columns)
	schemaName := sanitizeSchemaName(table)
	doc.Components.Schemas[schemaName] = rowSchema
	rowRef := refSchema("#/components/schemas/" + schemaName)

	doc.Paths.Set(fmt.Sprintf("/api/v1/crud/tables/%s/rows", table), &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "list" + capitalize(tag) + "Rows",
			Summary:     fmt.Sprintf("List rows from %s", table),
			Tags:        []string{tag},
			Parameters:  listQueryParameters(),
			Responses:   newResponses("200", "Rows", listEnvelopeSchema(rowRef)),
		},
	})
	doc.Paths.Set(fmt.Sprintf("/api/v1/crud/tables/%s/schema", table), &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "get" + capitalize(tag) + "Schema",
			Summary:     fmt.Sprintf("Describe the columns of %s", table),
			Tags:        []string{tag},
			Responses:   newResponses("200", "Column metadata", nil),
		},
	})
	doc.Paths.Set(fmt.Sprintf("/api/v1/crud/tables/%s/primary-keys", table), &openapi3.PathItem{
		Get: &openapi3.Operation{
			OperationID: "get" + capitalize(tag) + "PrimaryKeys",
			Summary:     fmt.Sprintf("Resolve the primary-key columns of %s", table),
			Tags:        []string{tag},
			Responses:   newResponses("200", "Primary-key columns", nil),
		},
	})
}

func columnsToSchema(columns []model.ColumnMeta) *openapi3.SchemaRef {
	props := openapi3.Schemas{}
	for _, col := range columns {
		props[col.Name] = &openapi3.SchemaRef{Value: columnTypeSchema(col)}
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
		},
	}
}

func columnTypeSchema(col model.ColumnMeta) *openapi3.Schema {
	t := strings.ToUpper(col.DeclaredType)
	s := &openapi3.Schema{Type: &openapi3.Types{"string"}}
	switch {
	case strings.Contains(t, "INT"):
		s.Type = &openapi3.Types{"integer"}
	case strings.Contains(t, "NUMBER") || strings.Contains(t, "NUMERIC") ||
		strings.Contains(t, "DECIMAL") || strings.Contains(t, "FLOAT") ||
		strings.Contains(t, "DOUBLE") || strings.Contains(t, "REAL"):
		s.Type = &openapi3.Types{"number"}
	case strings.Contains(t, "BOOL"):
		s.Type = &openapi3.Types{"boolean"}
	case strings.Contains(t, "DATE") || strings.Contains(t, "TIME"):
		s.Format = "date-time"
	}
	if col.Nullable {
		s.Nullable = true
	}
	return s
}

func executeRequestSchema() *openapi3.SchemaRef {
	return objectSchema(openapi3.Schemas{
		"tableName":    stringProp(),
		"operation":    enumProp("INSERT", "UPDATE", "DELETE", "SELECT"),
		"columns":      arrayProp(objectSchema(openapi3.Schemas{"name": stringProp(), "value": stringProp()})),
		"filters":      arrayProp(filterSchema()),
		"filterGroups": arrayProp(objectSchema(openapi3.Schemas{"operator": enumProp("AND", "OR"), "filters": arrayProp(filterSchema())})),
		"globalSearch": objectSchema(openapi3.Schemas{
			"term":          stringProp(),
			"columns":       arrayProp(stringProp()),
			"matchMode":     enumProp("CONTAINS", "STARTS_WITH", "ENDS_WITH", "EXACT"),
			"caseSensitive": boolProp(),
		}),
		"limit":          intProp(),
		"offset":         intProp(),
		"orderBy":        stringProp(),
		"orderDirection": enumProp("ASC", "DESC"),
	})
}

func bulkRequestSchema() *openapi3.SchemaRef {
	return objectSchema(openapi3.Schemas{
		"tableName": stringProp(),
		"operation": enumProp("INSERT", "UPDATE", "DELETE"),
		"rows": arrayProp(objectSchema(openapi3.Schemas{
			"columnNames":  arrayProp(stringProp()),
			"columnValues": arrayProp(stringProp()),
		})),
		"filters": arrayProp(filterSchema()),
	})
}

func mutationResultSchema() *openapi3.SchemaRef {
	return objectSchema(openapi3.Schemas{
		"message":      stringProp(),
		"generatedId":  stringProp(),
		"affectedRows": intProp(),
	})
}

func bulkResultSchema() *openapi3.SchemaRef {
	return objectSchema(openapi3.Schemas{
		"totalRows":     intProp(),
		"processedRows": intProp(),
		"affectedRows":  intProp(),
		"durationMs":    numberProp(),
		"message":       stringProp(),
	})
}

func filterSchema() *openapi3.SchemaRef {
	return objectSchema(openapi3.Schemas{
		"column":   stringProp(),
		"operator": stringProp(),
		"value":    stringProp(),
	})
}

func errorResponseSchema() *openapi3.SchemaRef {
	return objectSchema(openapi3.Schemas{
		"error": objectSchema(openapi3.Schemas{
			"code":    intProp(),
			"message": stringProp(),
			"context": objectSchema(openapi3.Schemas{}),
		}),
	})
}

func listEnvelopeSchema(item *openapi3.SchemaRef) *openapi3.SchemaRef {
	if item == nil {
		item = objectSchema(openapi3.Schemas{})
	}
	return objectSchema(openapi3.Schemas{
		"resource": arrayProp(item),
		"meta": objectSchema(openapi3.Schemas{
			"count":   intProp(),
			"total":   intProp(),
			"limit":   intProp(),
			"offset":  intProp(),
			"took_ms": numberProp(),
		}),
	})
}

func listQueryParameters() openapi3.Parameters {
	return openapi3.Parameters{
		queryParam("limit", "integer", "Maximum rows to return"),
		queryParam("offset", "integer", "Rows to skip"),
		queryParam("order_by", "string", "Column to order by"),
		queryParam("order_dir", "string", "ASC or DESC"),
		queryParam("search", "string", "Global search term"),
	}
}

func queryParam(name, typ, description string) *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: &openapi3.Parameter{
			Name:        name,
			In:          "query",
			Description: description,
			Schema:      &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{typ}}},
		},
	}
}

func jsonRequestBody(ref string) *openapi3.RequestBodyRef {
	return &openapi3.RequestBodyRef{
		Value: &openapi3.RequestBody{
			Required: true,
			Content: openapi3.Content{
				"application/json": &openapi3.MediaType{Schema: refSchema(ref)},
			},
		},
	}
}

func newResponses(statusCode, description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()
	resp := &openapi3.Response{Description: &description}
	if schema != nil {
		resp.Content = openapi3.Content{
			"application/json": &openapi3.MediaType{Schema: schema},
		}
	}
	responses.Set(statusCode, &openapi3.ResponseRef{Value: resp})

	errDesc := "Error"
	responses.Set("default", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &errDesc,
			Content: openapi3.Content{
				"application/json": &openapi3.MediaType{Schema: refSchema("#/components/schemas/ErrorResponse")},
			},
		},
	})
	return responses
}

func refSchema(ref string) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Ref: ref}
}

func objectSchema(props openapi3.Schemas) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
		},
	}
}

func arrayProp(item *openapi3.SchemaRef) *openapi3.SchemaRef {
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:  &openapi3.Types{"array"},
			Items: item,
		},
	}
}

func stringProp() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}}
}

func intProp() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}}}
}

func numberProp() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"number"}}}
}

func boolProp() *openapi3.SchemaRef {
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}}
}

func enumProp(values ...string) *openapi3.SchemaRef {
	enum := make([]interface{}, len(values))
	for i, v := range values {
		enum[i] = v
	}
	return &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Enum: enum}}
}

func sanitizeSchemaName(table string) string {
	parts := strings.Split(strings.ToLower(table), "_")
	for i, p := range parts {
		parts[i] = capitalize(p)
	}
	return strings.Join(parts, "")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
