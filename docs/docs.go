// Package docs registers the OpenAPI document of the analysis API with swag.
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
        "/analyses": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Analyses"],
                "summary": "List session analyses",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            },
            "post": {
                "description": "Decodes the uploaded image, classifies it and returns a synthetic report. Invalid scans are still a 200.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Analyses"],
                "summary": "Analyze a scan",
                "parameters": [
                    {"type": "file", "description": "image file", "name": "file", "in": "formData", "required": true},
                    {"type": "integer", "description": "last modified time in Unix milliseconds", "name": "lastModified", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [
                        {"$ref": "#/definitions/httptransport.APIResponse"},
                        {"type": "object", "properties": {"data": {"$ref": "#/definitions/analysis.AnalysisResult"}}}
                    ]}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/analyses/batch": {
            "post": {
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["Analyses"],
                "summary": "Analyze several scans",
                "parameters": [
                    {"type": "file", "description": "image files", "name": "files[]", "in": "formData", "required": true},
                    {"type": "array", "items": {"type": "integer"}, "collectionFormat": "multi", "description": "last modified time of each file in Unix milliseconds, in file order", "name": "lastModified[]", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/analyses/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Analyses"],
                "summary": "Session statistics",
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [
                        {"$ref": "#/definitions/httptransport.APIResponse"},
                        {"type": "object", "properties": {"data": {"$ref": "#/definitions/analysis.Stats"}}}
                    ]}}
                }
            }
        },
        "/analyses/live": {
            "get": {
                "description": "WebSocket upgrade. Every lifecycle event is pushed as a JSON text frame.",
                "tags": ["Analyses"],
                "summary": "Live analysis events",
                "responses": {
                    "101": {"description": "Switching Protocols"}
                }
            }
        },
        "/analyses/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Analyses"],
                "summary": "Get one analysis",
                "parameters": [
                    {"type": "string", "description": "analysis id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"allOf": [
                        {"$ref": "#/definitions/httptransport.APIResponse"},
                        {"type": "object", "properties": {"data": {"$ref": "#/definitions/analysis.AnalysisResult"}}}
                    ]}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            },
            "delete": {
                "produces": ["application/json"],
                "tags": ["Analyses"],
                "summary": "Remove one analysis",
                "parameters": [
                    {"type": "string", "description": "analysis id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/analyses/{id}/events": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Analyses"],
                "summary": "Lifecycle events of one analysis",
                "parameters": [
                    {"type": "string", "description": "analysis id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["System"],
                "summary": "Service health",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        }
    },
    "definitions": {
        "httptransport.APIResponse": {
            "type": "object",
            "properties": {
                "code": {"type": "integer"},
                "data": {},
                "message": {"type": "string"},
                "success": {"type": "boolean"}
            }
        },
        "analysis.FileMeta": {
            "type": "object",
            "properties": {
                "lastModified": {"type": "integer"},
                "name": {"type": "string"},
                "size": {"type": "integer"},
                "type": {"type": "string"}
            }
        },
        "scan.Characteristics": {
            "type": "object",
            "properties": {
                "brightRatio": {"type": "number"},
                "brightness": {"type": "number"},
                "contrast": {"type": "number"},
                "darkRatio": {"type": "number"},
                "hasAnatomicalStructures": {"type": "boolean"},
                "hasGrayscaleLook": {"type": "boolean"},
                "isDicomLike": {"type": "boolean"}
            }
        },
        "analysis.AnalysisResult": {
            "type": "object",
            "properties": {
                "bodyPart": {"type": "string", "enum": ["Chest", "Brain", "Heart", "Abdomen", "Spine", "Extremities"], "x-nullable": true},
                "confidence": {"type": "integer"},
                "file": {"$ref": "#/definitions/analysis.FileMeta"},
                "findings": {"type": "array", "items": {"type": "string"}},
                "id": {"type": "string"},
                "imageCharacteristics": {"$ref": "#/definitions/scan.Characteristics"},
                "isValidMedicalScan": {"type": "boolean"},
                "recommendations": {"type": "array", "items": {"type": "string"}},
                "scanType": {"type": "string", "enum": ["X-ray", "MRI", "CT Scan", "Ultrasound", "Medical Scan"], "x-nullable": true},
                "severity": {"type": "string", "enum": ["normal", "mild", "moderate", "error"]},
                "uploadedAt": {"type": "string", "format": "date-time"}
            }
        },
        "analysis.Stats": {
            "type": "object",
            "properties": {
                "byPriority": {"type": "object", "additionalProperties": {"type": "integer"}},
                "bySeverity": {"type": "object", "additionalProperties": {"type": "integer"}},
                "byStatus": {"type": "object", "additionalProperties": {"type": "integer"}},
                "total": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "medscan server API",
	Description:      "Heuristic scan analysis: upload an image, receive a structured result.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
