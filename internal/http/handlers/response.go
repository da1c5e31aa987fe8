// Package handlers provides the HTTP handlers for the public surface.
//
// This file defines the response utilities shared by all endpoints. Unlike a
// JSON API, this surface speaks HTML on success and plain text on failure:
// the submission workflow's public contract is redirect-on-success and
// plain-text-error-on-failure, preserved for legacy client compatibility.
//
// Conventions:
//   - failText() centralizes error formatting and ensures 5xx responses are
//     logged with request context for observability.
//   - Server-side detail never leaks into 4xx bodies; operator-facing
//     messages are stable strings.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/atelierlumen/go-opinion-backend/internal/http/middleware"
)

// failText aborts the request with a plain-text error body and logs
// server-side errors with the request-scoped logger.
func failText(c *gin.Context, status int, msg string) {
	if status >= http.StatusInternalServerError {
		lg := middleware.LoggerFrom(c)
		lg.Error().
			Int("status", status).
			Str("message", msg).
			Msg("request error")
	}
	c.String(status, msg)
	c.Abort()
}

// FailText is the exported variant of failText().
//
// External packages (e.g., router setup) should call FailText to return
// consistent plain-text errors without depending on unexported helpers.
func FailText(c *gin.Context, status int, msg string) { failText(c, status, msg) }
