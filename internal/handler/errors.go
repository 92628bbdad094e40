package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/storefront/user-service/internal/apperr"
	"github.com/storefront/user-service/internal/auth"
	"github.com/storefront/user-service/internal/middleware"
)

// StatusFor maps an engine error onto an HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondWithError(c *gin.Context, err error) {
	status := StatusFor(err)
	switch status {
	case http.StatusBadRequest:
		middleware.RespondWithValidationError(c, []middleware.ValidationError{{
			Field:   apperr.FieldOf(err),
			Message: apperr.MessageOf(err),
			Type:    "invalid",
		}})
	case http.StatusUnauthorized:
		middleware.RespondWithError(c, status, "Invalid credentials")
	case http.StatusInternalServerError, http.StatusServiceUnavailable:
		_ = c.Error(err)
		middleware.RespondWithError(c, status, "Internal server error")
	default:
		middleware.RespondWithError(c, status, apperr.MessageOf(err))
	}
}

func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.RespondWithError(c, http.StatusBadRequest, "Invalid request body")
		return false
	}
	if validationErrors := middleware.ValidateRequest(req); validationErrors != nil {
		middleware.RespondWithValidationError(c, validationErrors)
		return false
	}
	return true
}
