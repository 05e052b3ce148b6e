package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

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

// Dashboard handles GET /admin/dashboard.
func (h *Handler) Dashboard(c *gin.Context) {
	d, err := h.service.Dashboard(c.Request.Context())
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Analytics handles GET /admin/analytics.
func (h *Handler) Analytics(c *gin.Context) {
	var q struct {
		PeriodDays int `form:"period_days"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a, err := h.service.Analytics(c.Request.Context(), q.PeriodDays)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// ListUsers handles GET /admin/users.
func (h *Handler) ListUsers(c *gin.Context) {
	var q struct {
		Search string           `form:"search"`
		Role   *models.UserRole `form:"role"`
		Active *bool            `form:"active"`
		Limit  int              `form:"limit"`
		Offset int              `form:"offset"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	users, err := h.service.ListUsers(c.Request.Context(), UserFilter{
		Search: q.Search, Role: q.Role, Active: q.Active, Limit: q.Limit, Offset: q.Offset,
	})
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

// UpdateUser handles PATCH /admin/users/:id.
func (h *Handler) UpdateUser(c *gin.Context) {
	id, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}

	var req struct {
		Role   *models.UserRole `json:"role"`
		Active *bool            `json:"active"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.service.UpdateUser(c.Request.Context(), id, UserUpdate{Role: req.Role, Active: req.Active}); err != nil {
		h.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DeleteUser handles DELETE /admin/users/:id.
func (h *Handler) DeleteUser(c *gin.Context) {
	id, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}
	if err := h.service.DeleteUser(c.Request.Context(), id); err != nil {
		h.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ListRestrooms handles GET /admin/restrooms.
func (h *Handler) ListRestrooms(c *gin.Context) {
	var q struct {
		Status   *models.RestroomStatus `form:"status"`
		Source   *models.RestroomSource `form:"source"`
		Verified *bool                  `form:"verified"`
		City     *string                `form:"city"`
		Limit    int                    `form:"limit"`
		Offset   int                    `form:"offset"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	restrooms, err := h.service.ListRestrooms(c.Request.Context(), RestroomFilter{
		Status: q.Status, Source: q.Source, Verified: q.Verified, City: q.City,
		Limit: q.Limit, Offset: q.Offset,
	})
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"restrooms": restrooms, "count": len(restrooms)})
}

// DeleteRestroom handles DELETE /admin/restrooms/:id.
func (h *Handler) DeleteRestroom(c *gin.Context) {
	id, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}
	if err := h.service.DeleteRestroom(c.Request.Context(), id); err != nil {
		h.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type bulkRequest struct {
	IDs []uuid.UUID `json:"ids" binding:"required"`
}

// BulkVerify handles POST /admin/bulk/verify-restrooms.
func (h *Handler) BulkVerify(c *gin.Context) {
	h.bulk(c, h.service.BulkVerifyRestrooms)
}

// BulkClose handles POST /admin/bulk/close-restrooms.
func (h *Handler) BulkClose(c *gin.Context) {
	h.bulk(c, h.service.BulkCloseRestrooms)
}

func (h *Handler) bulk(c *gin.Context, op func(ctx context.Context, ids []uuid.UUID) (int, error)) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := op(c.Request.Context(), req.IDs)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"updated": updated})
}

// Recompute handles POST /admin/restrooms/:id/recompute.
func (h *Handler) Recompute(c *gin.Context) {
	id, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}

	agg, err := h.service.RecomputeAggregates(c.Request.Context(), id)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, agg)
}
