package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterSwagger registers minimal Swagger/OpenAPI endpoints for the auth service.
// - GET /swagger/index.html  -> a small HTML page that loads the OpenAPI JSON
// - GET /swagger/doc.json    -> machine-readable OpenAPI JSON
func RegisterSwagger(rg *gin.Engine) {
	rg.GET("/swagger/index.html", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(swaggerHTML))
	})

	rg.GET("/swagger/doc.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(swaggerJSON))
	})
}

const swaggerHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8" />
    <title>otravers-auth: Swagger</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@4/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@4/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: '/swagger/doc.json',
        dom_id: '#swagger-ui',
      })
    </script>
  </body>
</html>`

const swaggerJSON = `{
  "openapi": "3.0.0",
  "info": { "title": "otravers-auth", "version": "v1.0.0" },
  "components": {
    "securitySchemes": { "cookieAuth": { "type": "apiKey", "in": "cookie", "name": "accessToken" } },
    "schemas": {
      "Error": { "type": "object", "properties": { "message": {"type":"string"}, "code": {"type":"string"} } },
      "LoginRequest": { "type": "object", "required": ["email","password"], "properties": { "email": {"type":"string"}, "password": {"type":"string"} } }
    }
  },
  "paths": {
    "/auth/register": {
      "post": { "summary": "Create an account", "responses": { "201": { "description": "User Has been created" }, "400": { "description": "validation error" }, "409": { "description": "email already exists" } } }
    },
    "/auth/login": {
      "post": {
        "summary": "Login user; sets accessToken and refreshToken cookies",
        "requestBody": { "content": { "application/json": { "schema": { "$ref": "#/components/schemas/LoginRequest" } } } },
        "responses": { "200": { "description": "Login successful" }, "401": { "description": "Wrong Password" }, "404": { "description": "User Not Found" } }
      }
    },
    "/auth/refresh": {
      "post": { "summary": "Exchange the refresh cookie for a new access token", "responses": { "200": { "description": "Token refreshed successfully" }, "401": { "description": "Refresh Token Failed" } } }
    },
    "/auth/profile": {
      "get": { "summary": "Current user's profile", "security": [{"cookieAuth": []}], "responses": { "200": { "description": "Profile retrieved successfully" }, "401": { "description": "AUTH_001 / AUTH_002 / AUTH_003 / AUTH_007" } } },
      "patch": { "summary": "Update name, genre or birth date", "security": [{"cookieAuth": []}], "responses": { "200": { "description": "User has been updated" }, "400": { "description": "validation error" } } }
    },
    "/auth/account": {
      "delete": { "summary": "Delete the user, end the session and clear cookies", "security": [{"cookieAuth": []}], "responses": { "200": { "description": "User has been deleted" }, "404": { "description": "User Not Found" } } }
    },
    "/auth/logout": {
      "post": { "summary": "Delete the session and clear cookies", "security": [{"cookieAuth": []}], "responses": { "200": { "description": "Logout successful" } } }
    },
    "/auth/password": {
      "put": { "summary": "Change password", "security": [{"cookieAuth": []}], "responses": { "200": { "description": "Password updated successfully" }, "400": { "description": "validation error" } } }
    },
    "/media/{owner}": {
      "get": { "summary": "List media of owner", "security": [{"cookieAuth": []}], "responses": { "200": { "description": "Media retrieved" } } },
      "post": { "summary": "Upload multipart field 'file'", "security": [{"cookieAuth": []}], "responses": { "201": { "description": "Media uploaded" } } }
    },
    "/media/{owner}/{id}": {
      "delete": { "summary": "Delete a media object", "security": [{"cookieAuth": []}], "responses": { "200": { "description": "Media deleted" } } }
    },
    "/health": { "get": { "summary": "Liveness check", "responses": { "200": { "description": "healthy" } } } },
    "/ready": { "get": { "summary": "Readiness check", "responses": { "200": { "description": "ready" }, "503": { "description": "not ready" } } } }
  }
}`
