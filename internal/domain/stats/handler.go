package stats

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"vivwendy/internal/pkg/response"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// GetOverview handles GET /admin/stats.
func (h *Handler) GetOverview(c *gin.Context) {
	o, err := h.repo.Overview(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load statistics")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"stats": o})
}

func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/stats", h.GetOverview)
}
