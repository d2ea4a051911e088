package account

import "github.com/gin-gonic/gin"

func (h *Handler) RegisterPublicRoutes(v1 *gin.RouterGroup) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
		authGroup.POST("/logout", h.Logout)
		authGroup.POST("/reset-password", h.ResetPassword)
	}
}

func (h *Handler) RegisterProtectedRoutes(protected *gin.RouterGroup) {
	protected.GET("/users/me", h.GetMe)
}

// RegisterAdminRoutes expects a group already guarded by the admin role.
func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.GET("/users", h.ListUsers)
	admin.PATCH("/users/:id/ban", h.BanUser)
	admin.PATCH("/users/:id/unban", h.UnbanUser)
	admin.PUT("/users/:id/password", h.SetPassword)
	admin.POST("/users/:id/grant-reset", h.GrantReset)

	admin.GET("/blocked-emails", h.ListBlockedEmails)
	admin.POST("/blocked-emails", h.BlockEmail)
	admin.DELETE("/blocked-emails/:email", h.UnblockEmail)
}
