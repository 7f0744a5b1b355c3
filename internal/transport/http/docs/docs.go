// Package docs registers the OpenAPI description of the voice API with swag.
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
        "/voice/speak": {
            "post": {
                "description": "Synthesizes the text (or serves it from cache) and returns base64 audio with lip-sync cues",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Voice"],
                "summary": "Speak text",
                "parameters": [
                    {
                        "description": "speak request",
                        "name": "request",
                        "in": "body",
                        "required": true,
                        "schema": {"$ref": "#/definitions/voice.SpeakBody"}
                    }
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/voice.SpeakPayload"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/voice/listen": {
            "post": {
                "description": "Transcribes a recorded answer sent as multipart field audio or as a raw audio body",
                "consumes": ["multipart/form-data", "audio/webm", "audio/wav", "audio/mpeg"],
                "produces": ["application/json"],
                "tags": ["Voice"],
                "summary": "Transcribe audio",
                "parameters": [
                    {"type": "file", "description": "recorded audio", "name": "audio", "in": "formData"},
                    {"type": "string", "description": "language tag", "name": "language", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/voice.ListenPayload"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "413": {"description": "Request Entity Too Large", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}
                }
            }
        },
        "/voice/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Diagnostics"],
                "summary": "Dependency health",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}}
            }
        },
        "/voice/cache/stats": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Diagnostics"],
                "summary": "Artifact cache statistics",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}}
            }
        },
        "/voice/interactions": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Diagnostics"],
                "summary": "Recent interactions",
                "parameters": [{"type": "integer", "description": "max records", "name": "limit", "in": "query"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/httptransport.APIResponse"}}}
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
        "voice.SpeakBody": {
            "type": "object",
            "properties": {
                "text": {"type": "string"},
                "voice": {"type": "string"},
                "model": {"type": "string"},
                "language": {"type": "string"},
                "use_cache": {"type": "boolean"},
                "subject_id": {"type": "string"},
                "session_id": {"type": "string"},
                "category": {"type": "string"}
            }
        },
        "voice.LipSyncPayload": {
            "type": "object",
            "properties": {
                "duration": {"type": "number"},
                "cues": {"type": "array", "items": {"$ref": "#/definitions/lipsync.Cue"}}
            }
        },
        "lipsync.Cue": {
            "type": "object",
            "properties": {
                "start": {"type": "number"},
                "end": {"type": "number"},
                "value": {"type": "string"}
            }
        },
        "voice.SpeakPayload": {
            "type": "object",
            "properties": {
                "audio_base64": {"type": "string"},
                "format": {"type": "string"},
                "lip_sync": {"$ref": "#/definitions/voice.LipSyncPayload"},
                "duration_seconds": {"type": "number"},
                "cache_hit": {"type": "boolean"},
                "lip_sync_degraded": {"type": "boolean"},
                "voice": {"type": "string"},
                "model": {"type": "string"}
            }
        },
        "voice.ListenPayload": {
            "type": "object",
            "properties": {
                "text": {"type": "string"},
                "language": {"type": "string"},
                "duration_estimate_seconds": {"type": "number"},
                "segments": {"type": "array", "items": {"type": "object"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api",
	Schemes:          []string{},
	Title:            "Tutor Voice API",
	Description:      "Speech synthesis with lip-sync cues and transcription for the tutoring front end.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
