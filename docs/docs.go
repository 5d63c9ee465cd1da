// Package docs registers the swagger document served under /swagger.
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
        "/api/v1/sweeper/start": {
            "post": {
                "tags": ["admin"],
                "summary": "Start the retention sweeper",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/api/v1/sweeper/status": {
            "get": {
                "tags": ["admin"],
                "summary": "Retention sweeper status",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/v1/sweeper/stop": {
            "post": {
                "tags": ["admin"],
                "summary": "Stop the retention sweeper",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        },
        "/chats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["chats"],
                "summary": "Query messages by id or username",
                "parameters": [
                    {"type": "string", "description": "message id", "name": "id", "in": "query"},
                    {"type": "string", "description": "recipient username", "name": "username", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.MessageDetail"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["chats"],
                "summary": "Post a message",
                "parameters": [
                    {
                        "description": "recipient, text and optional timeout in seconds",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/api.createChatRequest"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/api.createChatResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/api.errorResponse"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/chats/id/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["chats"],
                "summary": "Get a message by id",
                "parameters": [
                    {"type": "string", "description": "message id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/models.MessageDetail"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/chats/user/{username}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["chats"],
                "summary": "List and consume a user's messages",
                "parameters": [
                    {"type": "string", "description": "recipient username", "name": "username", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/models.MessageSummary"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/api.errorResponse"}}
                }
            }
        },
        "/healthz": {
            "get": {
                "tags": ["ops"],
                "summary": "Liveness of the store and cache",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}
                }
            }
        }
    },
    "definitions": {
        "api.createChatRequest": {
            "type": "object",
            "properties": {
                "text": {"type": "string", "example": "hello"},
                "timeout": {"type": "number", "example": 60},
                "username": {"type": "string", "example": "alice"}
            }
        },
        "api.createChatResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "1b9d6bcd-bbfd-4b2d-9b5d-ab8dfbbd4bed"}
            }
        },
        "api.errorResponse": {
            "type": "object",
            "properties": {
                "error": {"type": "string", "example": "No chat found for chat id"}
            }
        },
        "models.MessageDetail": {
            "type": "object",
            "properties": {
                "expiration_date": {"type": "string"},
                "text": {"type": "string"},
                "username": {"type": "string"}
            }
        },
        "models.MessageSummary": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "text": {"type": "string"}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Chats API",
	Description:      "Ephemeral messages that expire after a timeout and are consumed when listed.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
