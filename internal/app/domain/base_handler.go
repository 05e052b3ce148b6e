package domain

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/models"
)

// BaseHandler carries the pieces every HTTP handler needs and centralizes
// the mapping from domain errors to HTTP status codes.
type BaseHandler struct {
	Logger *zap.Logger
}

func NewBaseHandler(logger *zap.Logger) *BaseHandler {
	return &BaseHandler{Logger: logger}
}

// RespondError translates a domain error into an HTTP response. Unknown
// errors become 500s with a generic message so internals never leak.
func (h *BaseHandler) RespondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "internal server error"

	switch {
	case errors.Is(err, models.ErrInvalidArgument):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, models.ErrUnauthenticated):
		status = http.StatusUnauthorized
		message = "authentication required or invalid credentials"
	case errors.Is(err, models.ErrForbidden):
		status = http.StatusForbidden
		message = "action not allowed"
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
		message = "not found"
	case errors.Is(err, models.ErrConflict):
		status = http.StatusConflict
		message = err.Error()
	case errors.Is(err, models.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
		message = "store unavailable"
	case errors.Is(err, models.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		message = "operation timed out"
	}

	if status >= http.StatusInternalServerError {
		h.Logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": message})
}

// CurrentUserID reads the authenticated user ID set by the auth middleware.
func (h *BaseHandler) CurrentUserID(c *gin.Context) (uuid.UUID, bool) {
	raw, ok := c.Get("user_id")
	if !ok {
		return uuid.Nil, false
	}
	s, ok := raw.(string)
	if !ok {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// CurrentUserRole reads the authenticated user's role, defaulting to the
// regular user role when the middleware set nothing usable.
func (h *BaseHandler) CurrentUserRole(c *gin.Context) models.UserRole {
	raw, ok := c.Get("user_role")
	if !ok {
		return models.RoleUser
	}
	s, ok := raw.(string)
	if !ok {
		return models.RoleUser
	}
	return models.UserRole(s)
}

// ParseUUIDParam parses a path parameter as a UUID.
func (h *BaseHandler) ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, models.ErrInvalidArgument
	}
	return id, nil
}
