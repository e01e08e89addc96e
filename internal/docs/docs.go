// Package docs holds the OpenAPI document served at /swagger.
// Regenerate with: swag init -g cmd/server/main.go -o internal/docs
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/validations": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["validations"],
                "summary": "Validate an invoice",
                "parameters": [{"description": "Normalized invoice", "name": "request", "in": "body", "required": true, "schema": {"type": "object"}}],
                "responses": {
                    "200": {"description": "Validation report", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "400": {"description": "Malformed invoice JSON", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}},
                    "503": {"description": "Reference data not loaded", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/validations/batch": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["validations"],
                "summary": "Validate a batch of invoices",
                "parameters": [{"description": "Invoices", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handler.BatchRequest"}}],
                "responses": {
                    "200": {"description": "Batch report", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "400": {"description": "Empty or oversized batch", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/validations/{run_id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["validations"],
                "summary": "Get a validation report",
                "parameters": [{"type": "string", "description": "Run ID (UUID)", "name": "run_id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}},
                    "404": {"description": "Report not found", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        },
        "/validations/{run_id}/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "tags": ["validations"],
                "summary": "Export one report's checks as CSV",
                "parameters": [{"type": "string", "description": "Run ID (UUID)", "name": "run_id", "in": "path", "required": true}],
                "responses": {"200": {"description": "CSV with one row per check", "schema": {"type": "file"}}}
            }
        },
        "/reports": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["reports"],
                "summary": "List reports for an invoice",
                "parameters": [
                    {"type": "string", "description": "Invoice number", "name": "invoice_number", "in": "query", "required": true},
                    {"type": "integer", "default": 50, "description": "Max results", "name": "limit", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}}}
            }
        },
        "/reports/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "tags": ["reports"],
                "summary": "Export an invoice's reports as CSV",
                "parameters": [
                    {"type": "string", "description": "Invoice number", "name": "invoice_number", "in": "query", "required": true},
                    {"type": "string", "default": "summary", "description": "summary or checks", "name": "detail", "in": "query"}
                ],
                "responses": {"200": {"description": "CSV export", "schema": {"type": "file"}}}
            }
        },
        "/reference": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["reference"],
                "summary": "Current reference snapshot",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}}}
            }
        },
        "/reference/reload": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["reference"],
                "summary": "Reload reference data",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.Response"}}}
            }
        },
        "/reference/rates/{code}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["reference"],
                "summary": "Look up a GST rate",
                "parameters": [
                    {"type": "string", "description": "HSN/SAC code", "name": "code", "in": "path", "required": true},
                    {"type": "string", "description": "As-of date (YYYY-MM-DD)", "name": "date", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.RateResponse"}},
                    "404": {"description": "Unknown code", "schema": {"$ref": "#/definitions/handler.ErrorResponseBody"}}
                }
            }
        }
    },
    "definitions": {
        "handler.APIError": {
            "type": "object",
            "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
        },
        "handler.BatchRequest": {
            "type": "object",
            "required": ["invoices"],
            "properties": {"invoices": {"type": "array", "items": {"type": "object"}}}
        },
        "handler.ErrorResponseBody": {
            "type": "object",
            "properties": {"error": {"$ref": "#/definitions/handler.APIError"}, "success": {"type": "boolean", "example": false}}
        },
        "handler.PagMeta": {
            "type": "object",
            "properties": {"limit": {"type": "integer"}, "total": {"type": "integer"}}
        },
        "handler.RateResponse": {
            "type": "object",
            "properties": {
                "as_of": {"type": "string", "example": "2024-11-15"},
                "cgst": {"type": "number", "example": 6},
                "code": {"type": "string", "example": "995411"},
                "description": {"type": "string"},
                "effective_from": {"type": "string", "example": "2019-04-01"},
                "effective_to": {"type": "string"},
                "historical": {"type": "boolean"},
                "igst": {"type": "number", "example": 12},
                "sgst": {"type": "number", "example": 6},
                "total": {"type": "number", "example": 12}
            }
        },
        "handler.Response": {
            "type": "object",
            "properties": {"data": {}, "meta": {"$ref": "#/definitions/handler.PagMeta"}, "success": {"type": "boolean", "example": true}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "GST Audit API",
	Description:      "Compliance checks for Indian GST/TDS invoices.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
