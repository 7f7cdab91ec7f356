// Package docs holds the OpenAPI document of the local API, registered with
// swag so /swagger can serve it.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/models": {
            "get": {
                "produces": ["application/json"],
                "summary": "List models with their lifecycle state",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.LocalModelsResponse"}}}
            }
        },
        "/models/{id}": {
            "get": {
                "produces": ["application/json"],
                "summary": "Get one model",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ModelView"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/models/{id}/download": {
            "post": {
                "produces": ["application/json"],
                "summary": "Start downloading a model",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ActionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/models/{id}/load": {
            "post": {
                "produces": ["application/json"],
                "summary": "Load a downloaded model",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ActionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/models/{id}/unload": {
            "post": {
                "produces": ["application/json"],
                "summary": "Unload a model",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/types.ActionResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/select": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Select a model explicitly; an empty id clears the choice",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.SelectRequest"}}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.SelectResponse"}}}
            }
        },
        "/generate": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "summary": "Generate an image with the selected model",
                "parameters": [{"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/types.GenerationRequest"}}],
                "responses": {
                    "200": {"description": "OK"},
                    "400": {"description": "Invalid request or model not ready", "schema": {"$ref": "#/definitions/types.ErrorResponse"}},
                    "409": {"description": "A generation is already in flight", "schema": {"$ref": "#/definitions/types.ErrorResponse"}}
                }
            }
        },
        "/generate/cancel": {
            "post": {
                "produces": ["application/json"],
                "summary": "Abandon the pending generation",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.CancelResponse"}}}
            }
        },
        "/status": {
            "get": {
                "produces": ["application/json"],
                "summary": "Connection, selection and generation status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/types.StatusResponse"}}}
            }
        },
        "/events": {
            "get": {
                "produces": ["text/event-stream"],
                "summary": "Stream client events",
                "responses": {"200": {"description": "OK"}}
            }
        }
    },
    "definitions": {
        "types.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string", "example": "invalid JSON body"}, "code": {"type": "integer", "example": 400}}
        },
        "types.ActionResponse": {
            "type": "object",
            "properties": {"message": {"type": "string", "example": "Loading started"}, "model_id": {"type": "string", "example": "z-image-turbo-4bit"}}
        },
        "types.Progress": {
            "type": "object",
            "properties": {
                "total_size": {"type": "integer"},
                "downloaded_size": {"type": "integer"},
                "current_file": {"type": "string"},
                "files_completed": {"type": "integer"},
                "total_files": {"type": "integer"},
                "speed": {"type": "number"},
                "eta": {"type": "number"},
                "percent": {"type": "number"}
            }
        },
        "types.ModelView": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "z-image-turbo-4bit"},
                "name": {"type": "string"},
                "state": {"type": "string", "example": "downloading"},
                "progress": {"$ref": "#/definitions/types.Progress"},
                "error": {"type": "string"},
                "is_selected": {"type": "boolean"}
            }
        },
        "types.LocalModelsResponse": {
            "type": "object",
            "properties": {"models": {"type": "array", "items": {"$ref": "#/definitions/types.ModelView"}}, "selected": {"type": "string"}}
        },
        "types.SelectRequest": {
            "type": "object",
            "properties": {"model_id": {"type": "string", "example": "z-image-turbo-4bit"}}
        },
        "types.SelectResponse": {
            "type": "object",
            "properties": {"selected": {"type": "string", "example": "z-image-turbo-4bit"}}
        },
        "types.GenerationRequest": {
            "type": "object",
            "properties": {
                "prompt": {"type": "string", "example": "a lighthouse at dusk, oil painting"},
                "model_id": {"type": "string"},
                "width": {"type": "integer", "example": 1024},
                "height": {"type": "integer", "example": 1024},
                "num_inference_steps": {"type": "integer", "example": 8},
                "guidance_scale": {"type": "number", "example": 0},
                "seed": {"type": "integer"},
                "negative_prompt": {"type": "string"}
            }
        },
        "types.CancelResponse": {
            "type": "object",
            "properties": {"request_id": {"type": "string"}, "cancelled": {"type": "boolean"}}
        },
        "types.GenerationStatus": {
            "type": "object",
            "properties": {"pending": {"type": "boolean"}, "request_id": {"type": "string"}, "last_error": {"type": "string"}}
        },
        "types.StatusResponse": {
            "type": "object",
            "properties": {
                "connected": {"type": "boolean"},
                "session_state": {"type": "string", "example": "open"},
                "last_transport_error": {"type": "string"},
                "selected": {"type": "string"},
                "model_count": {"type": "integer"},
                "generation": {"$ref": "#/definitions/types.GenerationStatus"},
                "uptime_seconds": {"type": "integer"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{"http"},
	Title:            "modelsync API",
	Description:      "Local API over the live model registry of an image generation backend.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
