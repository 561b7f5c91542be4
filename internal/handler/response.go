// Package handler exposes the memory engine operations over HTTP. Handlers
// parse and validate transport concerns, delegate to the services, and map
// typed errors onto status codes.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/logger"
)

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{"data": data})
}

func respondAccepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, gin.H{"data": data})
}

func respondError(c *gin.Context, err error) {
	status := errors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Errorf(c.Request.Context(), "request failed: %v", err)
	} else {
		logger.Debugf(c.Request.Context(), "request rejected: %v", err)
	}
	c.JSON(status, ErrorResponse{Code: string(errors.CodeOf(err)), Message: err.Error()})
}

func respondInvalid(c *gin.Context, format string, args ...interface{}) {
	respondError(c, errors.NewInvalidArgument(format, args...))
}
