package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/rms/internal/domain"
)

func statusFor(err error) int {
	switch {
	case domain.IsValidation(err):
		return http.StatusBadRequest
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, status int, err error) {
	message := err.Error()
	if status >= http.StatusInternalServerError {
		// Детали сбоев хранилища остаются в логе.
		_ = c.Error(err)
		message = "internal error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	})
}

func abortNotFound(c *gin.Context, kind, id string) {
	c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{
		Error:   http.StatusText(http.StatusNotFound),
		Message: kind + " not found: " + id,
		Code:    http.StatusNotFound,
	})
}
