package report

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

type createRequest struct {
	Type    models.ReportType `json:"type" binding:"required"`
	Comment *string           `json:"comment"`
}

type pageQuery struct {
	Limit  int `form:"limit"`
	Offset int `form:"offset"`
}

// Create handles POST /restrooms/:id/reports.
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

	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reporter := &models.User{ID: userID, Role: h.CurrentUserRole(c)}
	rp := &models.Report{RestroomID: restroomID, Type: req.Type, Comment: req.Comment}

	created, err := h.service.Create(c.Request.Context(), reporter, rp)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ListOpen handles GET /admin/reports for moderators.
func (h *Handler) ListOpen(c *gin.Context) {
	var page pageQuery
	if err := c.ShouldBindQuery(&page); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	reports, err := h.service.ListOpen(c.Request.Context(), page.Limit, page.Offset)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// ListByRestroom handles GET /restrooms/:id/reports for moderators.
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

	reports, err := h.service.ListByRestroom(c.Request.Context(), restroomID, page.Limit, page.Offset)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports, "count": len(reports)})
}

// Resolve handles POST /admin/reports/:id/resolve.
func (h *Handler) Resolve(c *gin.Context) {
	h.moderate(c, h.service.Resolve)
}

// Dismiss handles POST /admin/reports/:id/dismiss.
func (h *Handler) Dismiss(c *gin.Context) {
	h.moderate(c, h.service.Dismiss)
}

func (h *Handler) moderate(c *gin.Context, op func(ctx context.Context, reportID, moderatorID uuid.UUID) error) {
	moderatorID, ok := h.CurrentUserID(c)
	if !ok {
		h.RespondError(c, models.ErrUnauthenticated)
		return
	}
	reportID, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}

	if err := op(c.Request.Context(), reportID, moderatorID); err != nil {
		h.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
