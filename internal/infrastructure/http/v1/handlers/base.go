// Package handlers implements the HTTP handlers for API v1.
package handlers

import (
	"github.com/gin-gonic/gin"

	"refbook/internal/core/apperror"
	"refbook/internal/domain/dictionary"
)

// BaseHandler provides common handler utilities.
type BaseHandler struct{}

// NewBaseHandler creates a new base handler.
func NewBaseHandler() *BaseHandler {
	return &BaseHandler{}
}

// BindJSON binds and validates a JSON request body.
func (h *BaseHandler) BindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		h.Error(c, apperror.NewValidation("invalid request body").WithDetail("error", err.Error()))
		return false
	}
	return true
}

// Error registers the error on the Gin context and aborts. The JSON body is
// produced by middleware.ErrorHandler, the single source of truth.
func (h *BaseHandler) Error(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// DictionaryType parses the :type path parameter.
func (h *BaseHandler) DictionaryType(c *gin.Context) (dictionary.Type, bool) {
	t, err := dictionary.ParseType(c.Param("type"))
	if err != nil {
		h.Error(c, apperror.NewValidation(err.Error()))
		return "", false
	}
	return t, true
}
