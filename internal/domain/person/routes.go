package person

import "github.com/gin-gonic/gin"

// RegisterRoutes expects a group that already requires a session.
func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	persons := protected.Group("/persons")
	{
		persons.GET("", h.ListPersons)
		persons.POST("", h.CreatePerson)
		persons.GET("/:id", h.GetPerson)
		persons.POST("/:id/events", h.CreateEvent)
	}
}
