// Package swagger registers the OpenAPI document served at /swagger/doc.json.
package swagger

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
        "/api/upload": {
            "post": {
                "description": "Stores an image and returns its share link. Signed-in uploads are owned by the session user; anonymous uploads get a delete token.",
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["screenshots"],
                "summary": "Upload a screenshot",
                "parameters": [
                    {"type": "file", "description": "Image file", "name": "file", "in": "formData", "required": true},
                    {"type": "string", "description": "Must equal the signed-in user", "name": "user_id", "in": "formData"},
                    {"type": "integer", "description": "Width in pixels", "name": "width", "in": "formData"},
                    {"type": "integer", "description": "Height in pixels", "name": "height", "in": "formData"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/screenshot.uploadResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/api/s/{id}": {
            "get": {
                "description": "Returns a live public screenshot and counts the view. Expired and revoked links are reported as not found.",
                "produces": ["application/json"],
                "tags": ["screenshots"],
                "summary": "View a shared screenshot",
                "parameters": [
                    {"type": "string", "description": "Short id", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/screenshot.Record"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/gallery": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Returns every screenshot of the signed-in user, newest first, expired ones included.",
                "produces": ["application/json"],
                "tags": ["screenshots"],
                "summary": "List my screenshots",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/screenshot.Record"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/api/screenshots/{id}": {
            "get": {
                "security": [{"BearerAuth": []}],
                "description": "Owner view of one screenshot, without expiry filtering.",
                "produces": ["application/json"],
                "tags": ["screenshots"],
                "summary": "Get a screenshot",
                "parameters": [
                    {"type": "string", "description": "Short id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Delete token of an anonymous upload", "name": "X-Delete-Token", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/screenshot.Record"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            },
            "delete": {
                "security": [{"BearerAuth": []}],
                "description": "Removes the image, its thumbnail and its record. The id is never reused.",
                "tags": ["screenshots"],
                "summary": "Delete a screenshot",
                "parameters": [
                    {"type": "string", "description": "Short id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "Delete token of an anonymous upload", "name": "X-Delete-Token", "in": "header"}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/api/screenshots/{id}/expiry": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "description": "Sets the link to expire ttlHours (1 to 876000) from now, or never when ttlHours is null.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["screenshots"],
                "summary": "Change expiry",
                "parameters": [
                    {"type": "string", "description": "Short id", "name": "id", "in": "path", "required": true},
                    {"description": "New expiry", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/screenshot.expiryRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/screenshot.Record"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/api/screenshots/{id}/visibility": {
            "patch": {
                "security": [{"BearerAuth": []}],
                "description": "Revokes or restores the public share link.",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["screenshots"],
                "summary": "Change visibility",
                "parameters": [
                    {"type": "string", "description": "Short id", "name": "id", "in": "path", "required": true},
                    {"description": "New visibility", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/screenshot.visibilityRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/screenshot.Record"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "403": {"description": "Forbidden", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/api/expiry-presets": {
            "get": {
                "description": "Lists the expiry choices offered to uploaders. A null hours value means never.",
                "produces": ["application/json"],
                "tags": ["screenshots"],
                "summary": "Expiry presets",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/screenshot.Preset"}}}
                }
            }
        },
        "/auth/login": {
            "get": {
                "description": "Redirects to the OAuth provider with a fresh state cookie.",
                "tags": ["auth"],
                "summary": "Start sign-in",
                "responses": {"302": {"description": "Found"}}
            }
        },
        "/auth/callback": {
            "get": {
                "description": "Exchanges the authorization code, sets the session cookie and redirects to the gallery. Without a code it redirects home.",
                "tags": ["auth"],
                "summary": "Finish sign-in",
                "parameters": [
                    {"type": "string", "description": "Authorization code", "name": "code", "in": "query"},
                    {"type": "string", "description": "State echoed by the provider", "name": "state", "in": "query"}
                ],
                "responses": {
                    "302": {"description": "Found"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/response.ErrorBody"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/response.ErrorBody"}}
                }
            }
        },
        "/auth/logout": {
            "post": {
                "description": "Clears the session cookie.",
                "tags": ["auth"],
                "summary": "Sign out",
                "responses": {"204": {"description": "No Content"}}
            }
        }
    },
    "definitions": {
        "response.ErrorBody": {
            "type": "object",
            "properties": {
                "error": {"type": "string"}
            }
        },
        "screenshot.Preset": {
            "type": "object",
            "properties": {
                "hours": {"type": "integer"},
                "label": {"type": "string"}
            }
        },
        "screenshot.Record": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "ownerId": {"type": "string"},
                "assetUrl": {"type": "string"},
                "thumbnailUrl": {"type": "string"},
                "originalName": {"type": "string"},
                "title": {"type": "string"},
                "mimeType": {"type": "string"},
                "sizeBytes": {"type": "integer"},
                "width": {"type": "integer"},
                "height": {"type": "integer"},
                "createdAt": {"type": "string"},
                "expiresAt": {"type": "string"},
                "viewCount": {"type": "integer"},
                "isPublic": {"type": "boolean"}
            }
        },
        "screenshot.expiryRequest": {
            "type": "object",
            "properties": {
                "ttlHours": {"type": "integer", "example": 24}
            }
        },
        "screenshot.uploadResponse": {
            "type": "object",
            "properties": {
                "id": {"type": "string", "example": "V1StGXR8aZ"},
                "shortId": {"type": "string", "example": "V1StGXR8aZ"},
                "url": {"type": "string"},
                "shareUrl": {"type": "string", "example": "/s/V1StGXR8aZ"},
                "sharePath": {"type": "string", "example": "/s/V1StGXR8aZ"},
                "thumbnailUrl": {"type": "string"},
                "deleteToken": {"type": "string"}
            }
        },
        "screenshot.visibilityRequest": {
            "type": "object",
            "properties": {
                "isPublic": {"type": "boolean", "example": false}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Session token. Format: **Bearer {token}**. Browsers send the session cookie instead.",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "ScreenSnap API",
	Description:      "Screenshot upload and sharing service.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
