package favorites

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/looquest/looquest/internal/app/domain"
	"github.com/looquest/looquest/internal/app/models"
)

type Handler struct {
	*domain.BaseHandler
	service Service
}

func NewHandler(service Service, base *domain.BaseHandler) *Handler {
	return &Handler{BaseHandler: base, service: service}
}

// Add handles POST /restrooms/:id/favorite.
func (h *Handler) Add(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		h.RespondError(c, models.ErrUnauthenticated)
		return
	}
	restroomID, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}

	fav, err := h.service.Add(c.Request.Context(), userID, restroomID)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, fav)
}

// Remove handles DELETE /restrooms/:id/favorite.
func (h *Handler) Remove(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		h.RespondError(c, models.ErrUnauthenticated)
		return
	}
	restroomID, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}

	if err := h.service.Remove(c.Request.Context(), userID, restroomID); err != nil {
		h.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// List handles GET /users/me/favorites.
func (h *Handler) List(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		h.RespondError(c, models.ErrUnauthenticated)
		return
	}

	var page struct {
		Limit  int `form:"limit"`
		Offset int `form:"offset"`
	}
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restrooms, err := h.service.List(c.Request.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": restrooms, "count": len(restrooms)})
}
