package restroom

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

type searchQuery struct {
	Lat    *float64 `form:"lat" json:"lat" binding:"required"`
	Lon    *float64 `form:"lon" json:"lon" binding:"required"`
	Radius float64  `form:"radius" json:"radius"`
	Limit  int      `form:"limit" json:"limit"`
	Offset int      `form:"offset" json:"offset"`
	models.SearchFilters
}

type routeQuery struct {
	StartLat *float64 `form:"start_lat" binding:"required"`
	StartLon *float64 `form:"start_lon" binding:"required"`
	EndLat   *float64 `form:"end_lat" binding:"required"`
	EndLon   *float64 `form:"end_lon" binding:"required"`
	Buffer   float64  `form:"buffer"`
	Limit    int      `form:"limit"`
	models.SearchFilters
}

type restroomRequest struct {
	Name            string                    `json:"name" binding:"required"`
	Description     *string                   `json:"description"`
	Latitude        *float64                  `json:"latitude" binding:"required"`
	Longitude       *float64                  `json:"longitude" binding:"required"`
	Address         *string                   `json:"address"`
	City            *string                   `json:"city"`
	Country         *string                   `json:"country"`
	Accessibility   models.AccessibilityLevel `json:"accessibility"`
	HasBabyChanging bool                      `json:"has_baby_changing"`
	IsGenderNeutral bool                      `json:"is_gender_neutral"`
	RequiresFee     bool                      `json:"requires_fee"`
	RequiresKey     bool                      `json:"requires_key"`
	Is24Hours       bool                      `json:"is_24_hours"`
	OpeningHours    *string                   `json:"opening_hours"`
}

func (req *restroomRequest) toModel() *models.Restroom {
	return &models.Restroom{
		Name:            req.Name,
		Description:     req.Description,
		Latitude:        *req.Latitude,
		Longitude:       *req.Longitude,
		Address:         req.Address,
		City:            req.City,
		Country:         req.Country,
		Accessibility:   req.Accessibility,
		HasBabyChanging: req.HasBabyChanging,
		IsGenderNeutral: req.IsGenderNeutral,
		RequiresFee:     req.RequiresFee,
		RequiresKey:     req.RequiresKey,
		Is24Hours:       req.Is24Hours,
		OpeningHours:    req.OpeningHours,
	}
}

// Search handles GET and POST /restrooms/search. GET takes query
// parameters; POST takes the same fields as a JSON body.
func (h *Handler) Search(c *gin.Context) {
	var q searchQuery
	var err error
	if c.Request.Method == http.MethodPost {
		err = c.ShouldBindJSON(&q)
	} else {
		err = c.ShouldBindQuery(&q)
	}
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := models.SearchParams{
		Latitude:     *q.Lat,
		Longitude:    *q.Lon,
		RadiusMeters: q.Radius,
		Limit:        q.Limit,
		Offset:       q.Offset,
		Filters:      q.SearchFilters,
	}

	results, err := h.service.Search(c.Request.Context(), params)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

// SearchAlongRoute handles GET /restrooms/route.
func (h *Handler) SearchAlongRoute(c *gin.Context) {
	var q routeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params := models.RouteSearchParams{
		StartLat:     *q.StartLat,
		StartLon:     *q.StartLon,
		EndLat:       *q.EndLat,
		EndLon:       *q.EndLon,
		BufferMeters: q.Buffer,
		Limit:        q.Limit,
		Filters:      q.SearchFilters,
	}

	results, err := h.service.SearchAlongRoute(c.Request.Context(), params)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}

func (h *Handler) GetByID(c *gin.Context) {
	id, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}

	result, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) Create(c *gin.Context) {
	userID, ok := h.CurrentUserID(c)
	if !ok {
		h.RespondError(c, models.ErrUnauthenticated)
		return
	}

	var req restroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.service.Create(c.Request.Context(), userID, req.toModel())
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Handler) Update(c *gin.Context) {
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

	var req restroomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := req.toModel()
	in.ID = id
	role := models.UserRole(c.GetString("user_role"))

	updated, err := h.service.Update(c.Request.Context(), userID, role, in)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Moderate handles PATCH /admin/restrooms/:id, flipping the status or
// verification flag. Route is role-gated by the router.
func (h *Handler) Moderate(c *gin.Context) {
	id, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}

	var req struct {
		Status   *models.RestroomStatus `json:"status"`
		Verified *bool                  `json:"verified"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status == nil && req.Verified == nil {
		h.RespondError(c, models.ErrInvalidArgument)
		return
	}

	if req.Status != nil {
		if err := h.service.SetStatus(c.Request.Context(), id, *req.Status); err != nil {
			h.RespondError(c, err)
			return
		}
	}
	if req.Verified != nil {
		if err := h.service.SetVerified(c.Request.Context(), id, *req.Verified); err != nil {
			h.RespondError(c, err)
			return
		}
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) Delete(c *gin.Context) {
	id, err := h.ParseUUIDParam(c, "id")
	if err != nil {
		h.RespondError(c, err)
		return
	}

	role := models.UserRole(c.GetString("user_role"))
	if err := h.service.Delete(c.Request.Context(), role, id); err != nil {
		h.RespondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
