package ingest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/looquest/looquest/internal/app/domain"
)

type Handler struct {
	*domain.BaseHandler
	importer *Importer
}

func NewHandler(importer *Importer, base *domain.BaseHandler) *Handler {
	return &Handler{BaseHandler: base, importer: importer}
}

// ImportOSM handles POST /admin/ingest/osm.
func (h *Handler) ImportOSM(c *gin.Context) {
	var box BBox
	if err := c.ShouldBindJSON(&box); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.importer.Run(c.Request.Context(), box)
	if err != nil {
		h.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
