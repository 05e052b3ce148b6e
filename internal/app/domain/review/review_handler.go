package review

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

type reviewRequest struct {
	RatingOverall       int      `json:"rating_overall" binding:"required"`
	RatingCleanliness   int      `json:"rating_cleanliness" binding:"required"`
	RatingAccessibility int      `json:"rating_accessibility" binding:"required"`
	RatingPrivacy       int      `json:"rating_privacy" binding:"required"`
	RatingSafety        int      `json:"rating_safety" binding:"required"`
	RatingLighting      int      `json:"rating_lighting" binding:"required"`
	Comment             *string  `json:"comment"`
	PhotoURLs           []string `json:"photo_urls"`
}

type pageQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// Create handles POST /restrooms/:id/reviews.
func (h *Handler) Create(c *gin.Context) {
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

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.Create(c.Request.Context(), userID, &models.Review{
		RestroomID:          restroomID,
		RatingOverall:       req.RatingOverall,
		RatingCleanliness:   req.RatingCleanliness,
		RatingAccessibility: req.RatingAccessibility,
		RatingPrivacy:       req.RatingPrivacy,
		RatingSafety:        req.RatingSafety,
		RatingLighting:      req.RatingLighting,
		Comment:             req.Comment,
		PhotoURLs:           req.PhotoURLs,
	})
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListByRestroom handles GET /restrooms/:id/reviews.
func (h *Handler) ListByRestroom(c *gin.Context) {
	restroomID, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}
	var page pageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reviews, err := h.service.ListByRestroom(c.Request.Context(), restroomID, page.Limit, page.Offset)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "count": len(reviews)})
}

// ListByUser handles GET /users/:id/reviews.
func (h *Handler) ListByUser(c *gin.Context) {
	userID, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}
	var page pageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reviews, err := h.service.ListByUser(c.Request.Context(), userID, page.Limit, page.Offset)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "count": len(reviews)})
}

// Aggregates handles GET /restrooms/:id/aggregates.
func (h *Handler) Aggregates(c *gin.Context) {
	restroomID, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}

	agg, err := h.service.Aggregates(c.Request.Context(), restroomID)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}

// Delete handles DELETE /reviews/:id.
func (h *Handler) Delete(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		h.RespondError(c, models.ErrUnauthenticated)
		return
	}
	id, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}

	role := models.UserRole(c.GetString("user_role"))
	if err := h.service.Delete(c.Request.Context(), userID, role, id); err != nil {
		h.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// MarkHelpful handles POST /reviews/:id/helpful.
func (h *Handler) MarkHelpful(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		h.RespondError(c, models.ErrUnauthenticated)
		return
	}
	id, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}

	if err := h.service.MarkHelpful(c.Request.Context(), userID, id); err != nil {
		h.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
