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
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "paths": {
        "/auth/login": {"post": {"tags": ["auth"], "summary": "Sign in with email and password", "responses": {"200": {"description": "token pair"}, "401": {"description": "invalid credentials"}}}},
        "/auth/register": {"post": {"tags": ["auth"], "summary": "Register a candidate under a tenant", "responses": {"201": {"description": "token pair"}, "409": {"description": "duplicate identity or quota exceeded"}}}},
        "/auth/refresh": {"post": {"tags": ["auth"], "summary": "Rotate a refresh token", "responses": {"200": {"description": "token pair"}}}},
        "/auth/logout": {"post": {"tags": ["auth"], "security": [{"BearerAuth": []}], "summary": "Revoke the current tokens", "responses": {"204": {"description": "revoked"}}}},
        "/me": {"get": {"tags": ["auth"], "security": [{"BearerAuth": []}], "summary": "Current identity", "responses": {"200": {"description": "identity"}}}},
        "/tenants": {
            "get": {"tags": ["tenants"], "security": [{"BearerAuth": []}], "summary": "List tenants", "responses": {"200": {"description": "tenants"}}},
            "post": {"tags": ["tenants"], "security": [{"BearerAuth": []}], "summary": "Create a tenant", "responses": {"201": {"description": "tenant"}}}
        },
        "/tenants/{id}": {
            "get": {"tags": ["tenants"], "security": [{"BearerAuth": []}], "summary": "Get a tenant", "responses": {"200": {"description": "tenant"}}},
            "put": {"tags": ["tenants"], "security": [{"BearerAuth": []}], "summary": "Update a tenant", "responses": {"200": {"description": "tenant"}}},
            "delete": {"tags": ["tenants"], "security": [{"BearerAuth": []}], "summary": "Delete a tenant", "responses": {"204": {"description": "deleted"}}}
        },
        "/tenants/{id}/usage": {"get": {"tags": ["tenants"], "security": [{"BearerAuth": []}], "summary": "Identity quota usage", "responses": {"200": {"description": "usage"}}}},
        "/identities": {
            "get": {"tags": ["identities"], "security": [{"BearerAuth": []}], "summary": "List identities", "responses": {"200": {"description": "identities"}}},
            "post": {"tags": ["identities"], "security": [{"BearerAuth": []}], "summary": "Provision an identity", "responses": {"201": {"description": "identity"}, "409": {"description": "quota exceeded"}}}
        },
        "/identities/{id}": {
            "get": {"tags": ["identities"], "security": [{"BearerAuth": []}], "summary": "Get an identity", "responses": {"200": {"description": "identity"}}},
            "delete": {"tags": ["identities"], "security": [{"BearerAuth": []}], "summary": "Delete an identity", "responses": {"204": {"description": "deleted"}}}
        },
        "/identities/{id}/deactivate": {"post": {"tags": ["identities"], "security": [{"BearerAuth": []}], "summary": "Deactivate and release the quota slot", "responses": {"204": {"description": "deactivated"}}}},
        "/identities/{id}/reactivate": {"post": {"tags": ["identities"], "security": [{"BearerAuth": []}], "summary": "Reactivate, consuming a quota slot", "responses": {"204": {"description": "reactivated"}}}},
        "/jobs": {
            "get": {"tags": ["jobs"], "security": [{"BearerAuth": []}], "summary": "List jobs", "responses": {"200": {"description": "jobs"}}},
            "post": {"tags": ["jobs"], "security": [{"BearerAuth": []}], "summary": "Create a draft job", "responses": {"201": {"description": "job"}}}
        },
        "/jobs/{id}": {"get": {"tags": ["jobs"], "security": [{"BearerAuth": []}], "summary": "Get a job", "responses": {"200": {"description": "job"}}}},
        "/jobs/{id}/publish": {"post": {"tags": ["jobs"], "security": [{"BearerAuth": []}], "summary": "Publish a job", "responses": {"200": {"description": "job"}}}},
        "/jobs/{id}/close": {"post": {"tags": ["jobs"], "security": [{"BearerAuth": []}], "summary": "Close a job", "responses": {"200": {"description": "job"}}}},
        "/jobs/{id}/applications": {
            "get": {"tags": ["applications"], "security": [{"BearerAuth": []}], "summary": "List applications of a job", "responses": {"200": {"description": "applications"}}},
            "post": {"tags": ["applications"], "security": [{"BearerAuth": []}], "summary": "Apply as a registered candidate", "responses": {"201": {"description": "application"}, "409": {"description": "duplicate application"}, "422": {"description": "job unavailable"}}}
        },
        "/applications/{id}": {"get": {"tags": ["applications"], "security": [{"BearerAuth": []}], "summary": "Get an application", "responses": {"200": {"description": "application"}}}},
        "/applications/{id}/status": {"put": {"tags": ["applications"], "security": [{"BearerAuth": []}], "summary": "Change application status", "responses": {"200": {"description": "log entry"}}}},
        "/applications/{id}/notes": {"post": {"tags": ["applications"], "security": [{"BearerAuth": []}], "summary": "Add a reviewer note", "responses": {"201": {"description": "note"}}}},
        "/applications/{id}/notes/{index}": {"put": {"tags": ["applications"], "security": [{"BearerAuth": []}], "summary": "Edit a note by 0-based index", "responses": {"200": {"description": "note"}}}},
        "/applications/{id}/resume": {"get": {"tags": ["applications"], "security": [{"BearerAuth": []}], "summary": "Presigned résumé download link", "responses": {"200": {"description": "url"}}}},
        "/public/jobs/{id}": {"get": {"tags": ["public"], "summary": "Published job", "responses": {"200": {"description": "job"}}}},
        "/public/jobs/{id}/guest-applications": {"post": {"tags": ["public"], "summary": "Apply without an account", "responses": {"201": {"description": "application with tracking token"}, "429": {"description": "rate limited"}}}},
        "/public/guest-applications/{token}": {"get": {"tags": ["public"], "summary": "Track a guest application", "responses": {"200": {"description": "tracking view"}}}},
        "/public/guest-applications/{token}/convert": {"post": {"tags": ["public"], "summary": "Convert a guest application into an account", "responses": {"201": {"description": "identity, application and tokens"}, "409": {"description": "already converted"}}}},
        "/public/resumes": {"post": {"tags": ["public"], "summary": "Upload a résumé", "consumes": ["multipart/form-data"], "responses": {"201": {"description": "object key"}}}},
        "/admin/integrity-scan": {"post": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Report invariant violations", "responses": {"200": {"description": "violations"}}}},
        "/admin/notifications/drain": {"post": {"tags": ["admin"], "security": [{"BearerAuth": []}], "summary": "Deliver queued notifications now", "responses": {"200": {"description": "delivered count"}}}}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/v1",
	Schemes:          []string{},
	Title:            "TalentDesk API",
	Description:      "Multi-tenant hiring pipeline: tenants, identities, jobs and applications.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
