package audit

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"vivwendy/internal/pkg/response"
)

type Handler struct {
	hub   *Hub
	store *Store
}

func NewHandler(hub *Hub, store *Store) *Handler {
	return &Handler{hub: hub, store: store}
}

// ListEvents handles GET /admin/events?user_id=&limit=.
func (h *Handler) ListEvents(c *gin.Context) {
	userID, err := queryInt(c, "user_id")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_QUERY", "user_id must be a number")
		return
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		response.Error(c, http.StatusBadRequest, "INVALID_QUERY", "limit must be a number")
		return
	}

	records, err := h.store.Recent(c.Request.Context(), userID, int(limit))
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load events")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"events": records, "total": len(records)})
}

// Stream handles GET /admin/events/ws.
func (h *Handler) Stream(c *gin.Context) {
	if err := h.hub.Serve(c.Writer, c.Request, c.GetInt64("user_id")); err != nil {
		// the upgrader has already written the HTTP error
		_ = c.Error(err)
	}
}

// RegisterAdminRoutes expects a group already guarded by the admin role.
func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/events", h.ListEvents)
	admin.GET("/events/ws", h.Stream)
}

func queryInt(c *gin.Context, key string) (int64, error) {
	v := c.Query(key)
	if v == "" {
		return 0, nil
	}
	return strconv.ParseInt(v, 10, 64)
}
