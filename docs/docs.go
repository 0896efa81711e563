// Package docs registers the OpenAPI description served under /swagger.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Service health",
                "responses": {"200": {"description": "OK"}, "503": {"description": "Degraded"}}
            }
        },
        "/heatmap/calculate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["heatmap"],
                "summary": "Score a risk register",
                "parameters": [
                    {"in": "body", "name": "data", "required": true, "schema": {"$ref": "#/definitions/heatmap.HeatmapData"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/heatmap.Summary"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errors.ErrorResponse"}}
                }
            }
        },
        "/heatmap/defaults": {
            "get": {
                "produces": ["application/json"],
                "tags": ["heatmap"],
                "summary": "Seeded register and its summary",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/heatmap/matrix": {
            "get": {
                "produces": ["application/json"],
                "tags": ["heatmap"],
                "summary": "Likelihood by impact table",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/devices/score": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Score a device type and risk tags",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.ScoreDeviceRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/uwa": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["identities"],
                "summary": "Generate a UWA label",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.UWARequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/assessments": {
            "get": {
                "produces": ["application/json"],
                "tags": ["assessments"],
                "summary": "List assessments",
                "parameters": [
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "integer", "name": "limit", "in": "query"},
                    {"type": "integer", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}}
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["assessments"],
                "summary": "Create a draft assessment",
                "responses": {"201": {"description": "Created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/assessments/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["assessments"],
                "summary": "Get an assessment",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            },
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["assessments"],
                "summary": "Replace a draft assessment",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "409": {"description": "Conflict"}}
            },
            "delete": {
                "tags": ["assessments"],
                "summary": "Delete an assessment",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"204": {"description": "No Content"}}
            }
        },
        "/assessments/{id}/submit": {
            "post": {
                "produces": ["application/json"],
                "tags": ["assessments"],
                "summary": "Validate, freeze and sign an assessment",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}
            }
        },
        "/assessments/{id}/report": {
            "get": {
                "produces": ["application/json", "text/markdown", "text/plain", "application/pdf"],
                "tags": ["assessments"],
                "summary": "Render the review report",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "format", "in": "query", "enum": ["terminal", "json", "md", "pdf"]}
                ],
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/assessments/{id}/devices/import": {
            "post": {
                "consumes": ["multipart/form-data", "text/csv"],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Import devices from CSV",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "file", "name": "file", "in": "formData"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/receipts/verify": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["assessments"],
                "summary": "Verify a submission receipt",
                "parameters": [
                    {"in": "body", "name": "request", "required": true, "schema": {"$ref": "#/definitions/types.VerifyReceiptRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        }
    },
    "definitions": {
        "errors.ErrorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string"},
                "message": {"type": "string"},
                "category": {"type": "string"},
                "http_status": {"type": "integer"},
                "request_id": {"type": "string"},
                "timestamp": {"type": "string"}
            }
        },
        "heatmap.RiskItem": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "threat": {"type": "string"},
                "asset_value": {"type": "number"},
                "exposure_factor": {"type": "number"},
                "likelihood": {"type": "integer", "minimum": 1, "maximum": 5},
                "impact": {"type": "integer", "minimum": 1, "maximum": 5},
                "current_controls": {"type": "string"},
                "control_effectiveness": {"type": "number"}
            }
        },
        "heatmap.HeatmapData": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/heatmap.RiskItem"}},
                "total_asset_value": {"type": "number"},
                "annual_incident_rate": {"type": "number"},
                "control_investment": {"type": "number"}
            }
        },
        "heatmap.Summary": {
            "type": "object",
            "properties": {
                "total_sle": {"type": "number"},
                "total_ale": {"type": "number"},
                "total_residual_risk": {"type": "number"},
                "control_investment": {"type": "number"},
                "nrrb": {"type": "number"},
                "cbf_score": {"type": "number"},
                "roi": {"type": "number"},
                "warnings": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.ScoreDeviceRequest": {
            "type": "object",
            "required": ["device_type"],
            "properties": {
                "device_type": {"type": "string"},
                "risk_tags": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.UWARequest": {
            "type": "object",
            "required": ["identity_type"],
            "properties": {
                "identity_type": {"type": "string"},
                "name": {"type": "string"},
                "email": {"type": "string"},
                "components": {"type": "array", "items": {"type": "string"}}
            }
        },
        "types.VerifyReceiptRequest": {
            "type": "object",
            "required": ["receipt"],
            "properties": {"receipt": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "SOS2A Intake API",
	Description:      "Assessment intake, device and identity inventory, and risk heatmap scoring.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
