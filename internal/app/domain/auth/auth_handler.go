package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	"github.com/looquest/looquest/internal/app/domain"
	"github.com/looquest/looquest/internal/app/models"
	"github.com/looquest/looquest/internal/app/observability/metrics"
)

type Handler struct {
	*domain.BaseHandler
	service Service
}

func NewHandler(service Service, base *domain.BaseHandler) *Handler {
	return &Handler{BaseHandler: base, service: service}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         *models.User `json:"user,omitempty"`
}

func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metrics.Get().AuthRequestsTotal.Add(c.Request.Context(), 1,
		metric.WithAttributes(attribute.String("operation", "register")))

	user, err := h.service.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	metrics.Get().AuthRequestsTotal.Add(c.Request.Context(), 1,
		metric.WithAttributes(attribute.String("operation", "login")))

	access, refresh, user, err := h.service.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{AccessToken: access, RefreshToken: refresh, User: user})
}

func (h *Handler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	access, refresh, err := h.service.RefreshSession(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, tokenResponse{AccessToken: access, RefreshToken: refresh})
}

func (h *Handler) Logout(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.Logout(c.Request.Context(), req.RefreshToken); err != nil {
		h.Logger.Warn("Logout failed", zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) ChangePassword(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		h.RespondError(c, models.ErrUnauthenticated)
		return
	}

	var req changePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.UpdatePassword(c.Request.Context(), userID, req.OldPassword, req.NewPassword); err != nil {
		h.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Me returns the authenticated user's profile.
func (h *Handler) Me(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		h.RespondError(c, models.ErrUnauthenticated)
		return
	}

	user, err := h.service.GetUserByID(c.Request.Context(), userID)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
