// Package responses defines the standard envelope for API responses.
package responses

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
)

var logger = slog.Default()

// APIResponse is the envelope every JSON endpoint returns
type APIResponse struct {
	Status  string      `json:"status"` // "success" or "error"
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Errors  []string    `json:"errors,omitempty"`
}

// SetLogger wires the application logger in at startup
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// Success sends a successful response with the provided data and message.
func Success(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusOK, APIResponse{Status: "success", Data: data, Message: message})
}

// Created sends a 201 with the provided data
func Created(c *gin.Context, data interface{}, message string) {
	c.JSON(http.StatusCreated, APIResponse{Status: "success", Data: data, Message: message})
}

// Error sends an error response with the provided code, message, and optional errors.
func Error(c *gin.Context, code int, message string, errs ...string) {
	c.JSON(code, APIResponse{Status: "error", Message: message, Errors: errs})
	logger.Error("request failed",
		slog.String("path", c.Request.URL.Path),
		slog.Int("status", code),
		slog.String("message", message))
}
