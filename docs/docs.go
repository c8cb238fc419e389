// Package docs は Swagger 2.0 ドキュメント。swaggo/swag の出力形式に合わせて手で保守する。
// ハンドラの godoc 注釈（@Router 等）を変えたらここも更新すること。
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
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "ログインしてJWTを発行",
                "parameters": [
                    {"description": "credentials", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.LoginRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "一般ユーザー登録",
                "parameters": [
                    {"description": "account", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/auth.RegisterRequest"}}
                ],
                "responses": {"201": {"description": "Created", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/books": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "本の一覧",
                "parameters": [
                    {"type": "integer", "description": "default 50", "name": "limit", "in": "query"},
                    {"type": "integer", "description": "default 0", "name": "offset", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/books.ListBooksResult"}}}
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "本の登録",
                "parameters": [
                    {"description": "book", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/books.CreateBookRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/books.BookResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorDTO"}}
                }
            }
        },
        "/books/{book_id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "本の取得",
                "parameters": [
                    {"type": "string", "description": "book id", "name": "book_id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/books.BookResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorDTO"}}
                }
            }
        },
        "/books/{book_id}/quantity": {
            "put": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["books"],
                "summary": "総冊数の変更（貸出中の冊数を下回る値は不可）",
                "parameters": [
                    {"type": "string", "description": "book id", "name": "book_id", "in": "path", "required": true},
                    {"description": "quantity", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/books.UpdateQuantityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/books.BookResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/errorDTO"}}
                }
            }
        },
        "/book-borrowing-requests": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["borrowing"],
                "summary": "申請一覧（staff は全件、一般ユーザーは自分の申請）",
                "parameters": [
                    {"type": "string", "description": "Waiting | Approved | Rejected (0/1/2)", "name": "status", "in": "query"},
                    {"type": "string", "description": "staff only", "name": "requestorId", "in": "query"},
                    {"type": "integer", "description": ">= 1", "name": "pageIndex", "in": "query"},
                    {"type": "integer", "description": ">= 1", "name": "pageSize", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/borrowing.PagedResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorDTO"}}
                }
            },
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["borrowing"],
                "summary": "貸出申請（1〜5冊）",
                "parameters": [
                    {"description": "book ids", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/borrowing.SubmitRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/borrowing.RequestResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorDTO"}}
                }
            }
        },
        "/book-borrowing-requests/mine": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["borrowing"],
                "summary": "自分の申請一覧",
                "parameters": [
                    {"type": "string", "description": "Waiting | Approved | Rejected (0/1/2)", "name": "status", "in": "query"},
                    {"type": "integer", "description": ">= 1", "name": "pageIndex", "in": "query"},
                    {"type": "integer", "description": ">= 1", "name": "pageSize", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/borrowing.PagedResult"}}}
            }
        },
        "/book-borrowing-requests/export": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["text/csv"],
                "tags": ["borrowing"],
                "summary": "申請のCSV出力（staff）",
                "parameters": [
                    {"type": "string", "description": "Waiting | Approved | Rejected", "name": "status", "in": "query"},
                    {"type": "string", "description": "utf8 (BOM付き) | sjis", "name": "encoding", "in": "query"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"type": "file"}}}
            }
        },
        "/book-borrowing-requests/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["borrowing"],
                "summary": "申請の取得（一般ユーザーは自分の申請のみ）",
                "parameters": [
                    {"type": "string", "description": "request id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/borrowing.RequestResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorDTO"}}
                }
            }
        },
        "/book-borrowing-requests/{id}/approve": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["borrowing"],
                "summary": "申請の承認（staff）",
                "parameters": [
                    {"type": "string", "description": "request id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/borrowing.RequestResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorDTO"}}
                }
            }
        },
        "/book-borrowing-requests/{id}/reject": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["borrowing"],
                "summary": "申請の却下（staff）。押さえていた在庫を戻す",
                "parameters": [
                    {"type": "string", "description": "request id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/borrowing.RequestResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/errorDTO"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/errorDTO"}}
                }
            }
        }
    },
    "definitions": {
        "auth.LoginRequest": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {"password": {"type": "string"}, "username": {"type": "string"}}
        },
        "auth.RegisterRequest": {
            "type": "object",
            "required": ["password", "username"],
            "properties": {"password": {"type": "string", "minLength": 8}, "username": {"type": "string"}}
        },
        "books.BookResponse": {
            "type": "object",
            "properties": {
                "author": {"type": "string"},
                "available": {"type": "integer"},
                "created_at": {"type": "string"},
                "id": {"type": "string"},
                "quantity": {"type": "integer"},
                "title": {"type": "string"}
            }
        },
        "books.CreateBookRequest": {
            "type": "object",
            "required": ["author", "quantity", "title"],
            "properties": {"author": {"type": "string"}, "quantity": {"type": "integer"}, "title": {"type": "string"}}
        },
        "books.ListBooksResult": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/books.BookResponse"}},
                "next_offset": {"type": "integer"},
                "total": {"type": "integer"}
            }
        },
        "books.UpdateQuantityRequest": {
            "type": "object",
            "required": ["quantity"],
            "properties": {"quantity": {"type": "integer"}}
        },
        "borrowing.LineResponse": {
            "type": "object",
            "properties": {"bookId": {"type": "string"}, "title": {"type": "string"}}
        },
        "borrowing.PagedResult": {
            "type": "object",
            "properties": {
                "items": {"type": "array", "items": {"$ref": "#/definitions/borrowing.RequestResponse"}},
                "pageIndex": {"type": "integer"},
                "pageSize": {"type": "integer"},
                "totalCount": {"type": "integer"},
                "totalPages": {"type": "integer"}
            }
        },
        "borrowing.RequestResponse": {
            "type": "object",
            "properties": {
                "approverId": {"type": "string"},
                "books": {"type": "array", "items": {"$ref": "#/definitions/borrowing.LineResponse"}},
                "id": {"type": "string"},
                "requestDate": {"type": "string"},
                "requestorId": {"type": "string"},
                "status": {"type": "string"}
            }
        },
        "borrowing.SubmitRequest": {
            "type": "object",
            "properties": {"bookIds": {"type": "array", "items": {"type": "string"}}}
        },
        "errorDTO": {
            "type": "object",
            "properties": {
                "error": {
                    "type": "object",
                    "properties": {"code": {"type": "string"}, "message": {"type": "string"}}
                }
            }
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
	Title:            "Library Borrowing API",
	Description:      "",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
