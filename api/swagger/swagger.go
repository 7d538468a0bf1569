package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Graduate Oversight API",
        "description": "Read-mostly oversight dashboard over graduate student, advisor and approval records",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "tags": [
        {"name": "Oversight", "description": "Risk, attrition radar, stage funnel, advisor capacity and alerts"},
        {"name": "System", "description": "Health, readiness and metrics"}
    ],
    "paths": {
        "/oversight/dashboard": {
            "get": {
                "tags": ["Oversight"],
                "summary": "Oversight dashboard summary",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/programId"},
                    {"$ref": "#/parameters/asOf"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Invalid query", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Program outside token scope", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/oversight/radar": {
            "get": {
                "tags": ["Oversight"],
                "summary": "Attrition radar",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/programId"},
                    {"$ref": "#/parameters/asOf"},
                    {"name": "quadrant", "in": "query", "type": "string", "enum": ["safe", "attention", "watch", "intervene"]},
                    {"$ref": "#/parameters/page"},
                    {"$ref": "#/parameters/pageSize"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/oversight/funnel": {
            "get": {
                "tags": ["Oversight"],
                "summary": "Stage bottleneck funnel",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/programId"},
                    {"$ref": "#/parameters/asOf"},
                    {"name": "bucket", "in": "query", "type": "string", "enum": ["course_stage", "seminar_pending", "qualifying_pending", "thesis_stage"]},
                    {"name": "urgentOnly", "in": "query", "type": "boolean"},
                    {"$ref": "#/parameters/page"},
                    {"$ref": "#/parameters/pageSize"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/oversight/advisors": {
            "get": {
                "tags": ["Oversight"],
                "summary": "Advisor capacity",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/programId"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/oversight/alerts": {
            "get": {
                "tags": ["Oversight"],
                "summary": "Threshold alerts",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"$ref": "#/parameters/programId"},
                    {"$ref": "#/parameters/asOf"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/oversight/students/{id}/risk": {
            "get": {
                "tags": ["Oversight"],
                "summary": "Risk breakdown for one student",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true},
                    {"$ref": "#/parameters/asOf"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown student", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/oversight/risk/refresh": {
            "post": {
                "tags": ["Oversight"],
                "summary": "Queue a risk score refresh (admin)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RiskRefreshRequest"}}
                ],
                "responses": {
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "409": {"description": "Refresh already running", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/oversight/risk/refresh/{id}": {
            "get": {
                "tags": ["Oversight"],
                "summary": "Risk refresh job status (admin)",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "id", "in": "path", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "404": {"description": "Unknown job", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/oversight/exports": {
            "post": {
                "tags": ["Oversight"],
                "summary": "Export the at-risk student list",
                "security": [{"BearerAuth": []}],
                "parameters": [
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/ExportRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/oversight/exports/download": {
            "get": {
                "tags": ["Oversight"],
                "summary": "Download an export through its signed link",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "token", "in": "query", "type": "string", "required": true}
                ],
                "responses": {
                    "200": {"description": "File"},
                    "403": {"description": "Invalid token", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "410": {"description": "Link expired", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Metrics snapshot (admin)",
                "security": [{"BearerAuth": []}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "parameters": {
        "programId": {"name": "programId", "in": "query", "type": "string"},
        "asOf": {"name": "asOf", "in": "query", "type": "string", "format": "date"},
        "page": {"name": "page", "in": "query", "type": "integer", "minimum": 1},
        "pageSize": {"name": "pageSize", "in": "query", "type": "integer", "minimum": 1, "maximum": 200}
    },
    "definitions": {
        "RiskRefreshRequest": {
            "type": "object",
            "properties": {
                "program_id": {"type": "string"}
            }
        },
        "ExportRequest": {
            "type": "object",
            "properties": {
                "format": {"type": "string", "enum": ["csv", "pdf"]},
                "programId": {"type": "string"},
                "asOf": {"type": "string", "format": "date"}
            },
            "required": ["format"]
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
