// Package docs registers the OpenAPI document served under /docs.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register a new user", "parameters": [{"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/credentials"}}], "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/token"}}, "400": {"description": "Bad Request"}, "409": {"description": "Conflict"}}}},
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Login", "parameters": [{"in": "body", "name": "input", "required": true, "schema": {"$ref": "#/definitions/credentials"}}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/token"}}, "401": {"description": "Unauthorized"}}}},
        "/auth/token/refresh": {"post": {"tags": ["auth"], "summary": "Refresh tokens", "parameters": [{"in": "body", "name": "input", "schema": {"type": "object", "properties": {"refresh_token": {"type": "string"}}}}, {"in": "query", "name": "token", "type": "string"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/token"}}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}}},
        "/auth/me": {"get": {"tags": ["auth"], "security": [{"BearerAuth": []}], "summary": "Get Current User", "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/user"}}}}},
        "/users": {"get": {"tags": ["users"], "security": [{"BearerAuth": []}], "summary": "List users", "parameters": [{"in": "query", "name": "offset", "type": "integer"}, {"in": "query", "name": "limit", "type": "integer"}], "responses": {"200": {"description": "OK"}}}},
        "/users/{userID}": {"get": {"tags": ["users"], "security": [{"BearerAuth": []}], "summary": "Get a user", "parameters": [{"in": "path", "name": "userID", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/user"}}, "404": {"description": "Not Found"}}}},
        "/chats": {"get": {"tags": ["chats"], "security": [{"BearerAuth": []}], "summary": "List the caller's chats", "parameters": [{"in": "query", "name": "page", "type": "integer"}, {"in": "query", "name": "size", "type": "integer"}], "responses": {"200": {"description": "OK"}}}},
        "/chats/private/{userID}": {"post": {"tags": ["chats"], "security": [{"BearerAuth": []}], "summary": "Create a private chat", "parameters": [{"in": "path", "name": "userID", "required": true, "type": "integer"}], "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/chat"}}, "409": {"description": "Conflict"}}}},
        "/chats/groups": {"post": {"tags": ["chats"], "security": [{"BearerAuth": []}], "summary": "Create a group chat", "parameters": [{"in": "body", "name": "input", "required": true, "schema": {"type": "object", "properties": {"name": {"type": "string"}, "member_ids": {"type": "array", "items": {"type": "integer"}}}}}], "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/chat"}}}}},
        "/chats/{chatID}": {"get": {"tags": ["chats"], "security": [{"BearerAuth": []}], "summary": "Get a chat", "parameters": [{"in": "path", "name": "chatID", "required": true, "type": "integer"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/chat"}}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}},
        "/chats/{chatID}/members": {"get": {"tags": ["chats"], "security": [{"BearerAuth": []}], "summary": "List chat members", "parameters": [{"in": "path", "name": "chatID", "required": true, "type": "integer"}, {"in": "query", "name": "page", "type": "integer"}, {"in": "query", "name": "size", "type": "integer"}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}, "post": {"tags": ["chats"], "security": [{"BearerAuth": []}], "summary": "Add members to a group chat", "parameters": [{"in": "path", "name": "chatID", "required": true, "type": "integer"}, {"in": "body", "name": "input", "required": true, "schema": {"type": "object", "properties": {"user_ids": {"type": "array", "items": {"type": "integer"}}}}}], "responses": {"204": {"description": "No Content"}, "403": {"description": "Forbidden"}, "404": {"description": "Not Found"}}}},
        "/chats/{chatID}/history": {"get": {"tags": ["chats"], "security": [{"BearerAuth": []}], "summary": "Chat history", "parameters": [{"in": "path", "name": "chatID", "required": true, "type": "integer"}, {"in": "query", "name": "page", "type": "integer"}, {"in": "query", "name": "size", "type": "integer"}, {"in": "query", "name": "sender_id", "type": "integer"}, {"in": "query", "name": "search_term", "type": "string"}], "responses": {"200": {"description": "OK"}, "403": {"description": "Forbidden"}}}},
        "/messages": {"post": {"tags": ["messages"], "security": [{"BearerAuth": []}], "summary": "Send a message", "parameters": [{"in": "header", "name": "X-Device-ID", "required": true, "type": "string"}, {"in": "body", "name": "input", "required": true, "schema": {"type": "object", "properties": {"id": {"type": "string", "format": "uuid"}, "chat_id": {"type": "integer"}, "text": {"type": "string"}}}}], "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/message"}}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}}},
        "/messages/{messageID}": {"get": {"tags": ["messages"], "security": [{"BearerAuth": []}], "summary": "Get a message", "parameters": [{"in": "path", "name": "messageID", "required": true, "type": "string", "format": "uuid"}], "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/message"}}, "404": {"description": "Not Found"}}}}
    },
    "definitions": {
        "credentials": {"type": "object", "properties": {"username": {"type": "string"}, "password": {"type": "string"}}},
        "user": {"type": "object", "properties": {"id": {"type": "integer"}, "username": {"type": "string"}, "is_active": {"type": "boolean"}, "created_at": {"type": "string", "format": "date-time"}}},
        "token": {"type": "object", "properties": {"access_token": {"type": "string"}, "access_token_expired_at": {"type": "string", "format": "date-time"}, "refresh_token": {"type": "string"}, "refresh_token_expired_at": {"type": "string", "format": "date-time"}, "token_type": {"type": "string"}, "user": {"$ref": "#/definitions/user"}}},
        "chat": {"type": "object", "properties": {"id": {"type": "integer"}, "name": {"type": "string"}, "type": {"type": "string", "enum": ["PRIVATE", "GROUP"]}, "creator_id": {"type": "integer"}}},
        "message": {"type": "object", "properties": {"id": {"type": "string", "format": "uuid"}, "chat_id": {"type": "integer"}, "sender_id": {"type": "integer"}, "text": {"type": "string"}, "send_at": {"type": "string", "format": "date-time"}, "read_at": {"type": "string", "format": "date-time"}, "chat": {"$ref": "#/definitions/chat"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8000",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "zChat Live API",
	Description:      "Real-time chat backend: chats, messages, read receipts and live delivery.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
