// Package docs registers the OpenAPI document of the lorecast API with swag.
//
// The template is kept in step with the handler annotations in internal/server
// by hand. Running go generate in internal/server replaces it with swag init output.
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
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Liveness probe",
                "responses": {"200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}}}
            }
        },
        "/readyz": {
            "get": {
                "produces": ["application/json"],
                "tags": ["health"],
                "summary": "Readiness probe",
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            }
        },
        "/api/lore": {
            "get": {
                "produces": ["application/json"],
                "tags": ["lore"],
                "summary": "List lore entries",
                "parameters": [
                    {"type": "boolean", "description": "only canon entries", "name": "canon", "in": "query"},
                    {"type": "integer", "description": "maximum entries, default 50", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/lore.Entry"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["lore"],
                "summary": "Submit a lore entry",
                "parameters": [
                    {"description": "entry", "name": "entry", "in": "body", "required": true, "schema": {"$ref": "#/definitions/lore.NewEntry"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/lore.Entry"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            }
        },
        "/api/lore/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["lore"],
                "summary": "Get a lore entry",
                "parameters": [{"type": "string", "description": "entry id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/lore.Entry"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            }
        },
        "/api/lore/{id}/vote": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["lore"],
                "summary": "Vote on a lore entry",
                "parameters": [
                    {"type": "string", "description": "entry id", "name": "id", "in": "path", "required": true},
                    {"description": "value is 1 or -1", "name": "vote", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.voteRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/lore.Entry"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            }
        },
        "/api/lore/{id}/canon": {
            "post": {
                "produces": ["application/json"],
                "tags": ["lore"],
                "summary": "Promote a lore entry to canon",
                "parameters": [
                    {"type": "string", "description": "entry id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "admin token", "name": "X-Admin-Token", "in": "header", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/lore.Entry"}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/server.errorResponse"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            }
        },
        "/api/lore/{id}/tips": {
            "get": {
                "produces": ["application/json"],
                "tags": ["tips"],
                "summary": "List tips for a lore entry",
                "parameters": [{"type": "string", "description": "entry id", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/lore.Tip"}}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["tips"],
                "summary": "Record an on-chain tip",
                "parameters": [
                    {"type": "string", "description": "entry id", "name": "id", "in": "path", "required": true},
                    {"description": "transaction hash", "name": "tip", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.tipRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/lore.Tip"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/server.errorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            }
        },
        "/api/generate/story": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["generate"],
                "summary": "Generate a story from canon lore",
                "parameters": [{"description": "prompt", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.storyRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.storyResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            }
        },
        "/api/generate/podcast": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["generate"],
                "summary": "Generate a podcast script",
                "parameters": [{"description": "text or url", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/server.podcastRequest"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/server.podcastResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.errorResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            }
        },
        "/api/tts": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["audio/mpeg"],
                "tags": ["tts"],
                "summary": "Synthesize speech",
                "parameters": [{"description": "text, voice and mood, mood defaults to the text's mood", "name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/tts.Request"}}],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "file"}, "headers": {"X-Lore-Mood": {"type": "string", "description": "mood used for synthesis"}}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.errorResponse"}},
                    "502": {"description": "Bad Gateway", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            }
        },
        "/api/broadcast": {
            "get": {
                "produces": ["application/json"],
                "tags": ["broadcast"],
                "summary": "Broadcast status",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/broadcast.StatusFrame"}}}
            }
        },
        "/api/broadcast/{action}": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["broadcast"],
                "summary": "Control the broadcast",
                "parameters": [
                    {"type": "string", "description": "start, pause, resume or stop", "name": "action", "in": "path", "required": true},
                    {"description": "script, for start only", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/server.broadcastRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/broadcast.StatusFrame"}},
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/server.broadcastStarted"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/server.errorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/server.errorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "lore.Entry": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "title": {"type": "string"},
                "body": {"type": "string"},
                "author": {"type": "string"},
                "authorWallet": {"type": "string"},
                "score": {"type": "integer"},
                "canon": {"type": "boolean"},
                "createdAt": {"type": "string"},
                "updatedAt": {"type": "string"}
            }
        },
        "lore.NewEntry": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "body": {"type": "string"},
                "author": {"type": "string"},
                "authorWallet": {"type": "string"}
            }
        },
        "lore.Tip": {
            "type": "object",
            "properties": {
                "txHash": {"type": "string"},
                "entryId": {"type": "string"},
                "recipient": {"type": "string"},
                "amount": {"type": "string"},
                "createdAt": {"type": "string"}
            }
        },
        "tts.Request": {
            "type": "object",
            "properties": {
                "text": {"type": "string"},
                "voiceId": {"type": "string"},
                "mood": {"type": "string"}
            }
        },
        "broadcast.StatusFrame": {
            "type": "object",
            "properties": {
                "type": {"type": "string"},
                "session": {"type": "string"},
                "state": {
                    "type": "object",
                    "properties": {
                        "index": {"type": "integer"},
                        "status": {"type": "string"},
                        "hasAudio": {"type": "boolean"},
                        "total": {"type": "integer"}
                    }
                },
                "segment": {
                    "type": "object",
                    "properties": {"speaker": {"type": "integer"}, "text": {"type": "string"}}
                },
                "estimatedSeconds": {"type": "number"},
                "listeners": {"type": "integer"}
            }
        },
        "server.errorResponse": {"type": "object", "properties": {"error": {"type": "string"}}},
        "server.voteRequest": {"type": "object", "properties": {"voter": {"type": "string"}, "value": {"type": "integer"}}},
        "server.tipRequest": {"type": "object", "properties": {"txHash": {"type": "string"}}},
        "server.storyRequest": {"type": "object", "properties": {"prompt": {"type": "string"}}},
        "server.storyResponse": {"type": "object", "properties": {"story": {"type": "string"}, "loreCount": {"type": "integer"}}},
        "server.podcastRequest": {"type": "object", "properties": {"title": {"type": "string"}, "text": {"type": "string"}, "url": {"type": "string"}}},
        "server.SegmentView": {
            "type": "object",
            "properties": {
                "index": {"type": "integer"},
                "speaker": {"type": "string"},
                "text": {"type": "string"},
                "voiceId": {"type": "string"},
                "mood": {"type": "string"},
                "estimatedSeconds": {"type": "number"}
            }
        },
        "server.podcastResponse": {
            "type": "object",
            "properties": {
                "title": {"type": "string"},
                "script": {"type": "string"},
                "segments": {"type": "array", "items": {"$ref": "#/definitions/server.SegmentView"}},
                "estimatedSeconds": {"type": "number"}
            }
        },
        "server.broadcastRequest": {"type": "object", "properties": {"script": {"type": "string"}}},
        "server.broadcastStarted": {"type": "object", "properties": {"session": {"type": "string"}, "segments": {"type": "integer"}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "lorecast API",
	Description:      "Collaborative worldbuilding with AI stories, two-host podcasts and a shared broadcast.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
