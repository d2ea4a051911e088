package middleware

import (
	"net/http"
	"strings"

	"vivwendy/internal/pkg/response"
	"vivwendy/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

// SessionAuth loads the session from the cookie, or from an
// "Authorization: Bearer" header for API clients, and puts user_id, login
// and role into the gin context.
func SessionAuth(sessions *session.Manager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := sessionToken(c, cookieName)
		if !ok {
			response.Abort(c, http.StatusUnauthorized, "UNAUTHORIZED", "Login required")
			return
		}

		claims, err := sessions.Parse(token)
		if err != nil {
			response.Abort(c, http.StatusUnauthorized, "INVALID_SESSION", "Session is invalid or expired")
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("login", claims.Login)
		c.Set("role", claims.Role)
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookieName string) (string, bool) {
	if v, err := c.Cookie(cookieName); err == nil && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v), true
	}

	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") && strings.TrimSpace(parts[1]) != "" {
		return strings.TrimSpace(parts[1]), true
	}
	return "", false
}
