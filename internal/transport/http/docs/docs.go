// Package docs registers the OpenAPI document served at /openapi.json.
// Keep it in step with the @Router annotations on the handlers.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": {{ marshal .Schemes }},
    "paths": {
        "/generate-caption": {
            "post": {
                "tags": ["Caption"],
                "summary": "Generate and store an image caption",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "parameters": [
                    {"type": "file", "name": "image", "in": "formData", "required": true},
                    {"type": "string", "enum": ["general", "medical", "sports"], "default": "general", "name": "image_type", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/CaptionResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "413": {"description": "Payload Too Large", "schema": {"$ref": "#/definitions/ErrorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/ErrorResponse"}}
                }
            }
        },
        "/api/similar": {
            "get": {
                "tags": ["Caption"],
                "summary": "Find stored uploads by caption similarity",
                "parameters": [
                    {"type": "string", "name": "q", "in": "query", "required": true},
                    {"type": "integer", "name": "top_k", "in": "query"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}
            }
        },
        "/social-media": {"post": {"tags": ["Analysis"], "summary": "Social media caption and hashtags", "consumes": ["multipart/form-data"], "parameters": [{"type": "file", "name": "image", "in": "formData", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/seo": {"post": {"tags": ["Analysis"], "summary": "SEO content for an image", "consumes": ["multipart/form-data"], "parameters": [{"type": "file", "name": "image", "in": "formData", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/analyze/general": {"post": {"tags": ["Analysis"], "summary": "General image analysis", "consumes": ["multipart/form-data"], "parameters": [{"type": "file", "name": "image", "in": "formData", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/image-analyzer": {"post": {"tags": ["Analysis"], "summary": "Alt text with enhanced context", "consumes": ["multipart/form-data"], "parameters": [{"type": "file", "name": "image", "in": "formData", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/social-media/analyze": {"post": {"tags": ["Analysis"], "summary": "Social media analysis through the vision model", "consumes": ["multipart/form-data"], "parameters": [{"type": "file", "name": "image", "in": "formData", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/api/analyze-medical-image": {"post": {"tags": ["Analysis"], "summary": "Medical image report", "consumes": ["multipart/form-data"], "parameters": [{"type": "file", "name": "file", "in": "formData", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/advanced-analysis": {"post": {"tags": ["Analysis"], "summary": "Advanced image analysis", "consumes": ["multipart/form-data"], "parameters": [{"type": "file", "name": "image", "in": "formData", "required": true}], "responses": {"200": {"description": "OK"}}}},
        "/text-to-speech": {
            "post": {
                "tags": ["Speech"],
                "summary": "Text to speech",
                "consumes": ["application/json"],
                "produces": ["audio/mpeg"],
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"text": {"type": "string"}}}}],
                "responses": {"200": {"description": "speech.mp3"}, "400": {"description": "No text provided"}, "500": {"description": "Error generating speech"}}
            }
        },
        "/api/auth/token": {
            "post": {
                "tags": ["Admin"],
                "summary": "Exchange the admin token for a JWT",
                "parameters": [{"name": "request", "in": "body", "required": true, "schema": {"type": "object", "properties": {"token": {"type": "string"}}}}],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/api/history": {"get": {"tags": ["Admin"], "summary": "List caption history", "parameters": [{"type": "integer", "name": "limit", "in": "query"}, {"type": "integer", "name": "offset", "in": "query"}], "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}}},
        "/api/history/{filename}": {"get": {"tags": ["Admin"], "summary": "Caption history for one filename", "parameters": [{"type": "string", "name": "filename", "in": "path", "required": true}], "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}},
        "/api/events": {"get": {"tags": ["Admin"], "summary": "Recent analysis events and per kind totals", "parameters": [{"type": "string", "name": "kind", "in": "query"}, {"type": "integer", "name": "limit", "in": "query"}], "responses": {"200": {"description": "OK"}}}},
        "/health": {"get": {"tags": ["System"], "summary": "Service health", "responses": {"200": {"description": "OK"}, "503": {"description": "Degraded"}}}}
    },
    "definitions": {
        "CaptionResponse": {
            "type": "object",
            "properties": {
                "caption": {"type": "string"},
                "gemini_response": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "alttext-server API",
	Description:      "Image captioning, alt text and analysis service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
