package account

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"vivwendy/internal/pkg/response"
	"vivwendy/internal/pkg/session"

	"github.com/gin-gonic/gin"
)

type CookieConfig struct {
	Name     string
	Secure   bool
	SameSite string
}

// Handler manages all HTTP interactions for accounts
type Handler struct {
	service  *Service
	sessions *session.Manager
	cookie   CookieConfig
}

func NewHandler(service *Service, sessions *session.Manager, cookie CookieConfig) *Handler {
	if cookie.Name == "" {
		cookie.Name = "session"
	}
	return &Handler{
		service:  service,
		sessions: sessions,
		cookie:   cookie,
	}
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Please fill in all fields")
		return
	}

	user, err := h.service.Register(c.Request.Context(), RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": toPublic(user)})
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	sess, err := h.service.Authenticate(c.Request.Context(), req.Login, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := h.sessions.Issue(sess.UserID, sess.Login, string(sess.Role))
	if err != nil {
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to start session")
		return
	}

	c.SetSameSite(parseSameSite(h.cookie.SameSite))
	c.SetCookie(h.cookie.Name, token, int(h.sessions.TTL().Seconds()), "/", "", h.cookie.Secure, true)

	response.Success(c, http.StatusOK, gin.H{
		"session": sess,
		"token":   token,
	})
}

func (h *Handler) Logout(c *gin.Context) {
	c.SetSameSite(parseSameSite(h.cookie.SameSite))
	c.SetCookie(h.cookie.Name, "", -1, "/", "", h.cookie.Secure, true)
	c.Status(http.StatusNoContent)
}

func (h *Handler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	if err := h.service.ResetPassword(c.Request.Context(), req.UserID, req.Password, req.ConfirmPassword); err != nil {
		writeError(c, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"status": "password_reset"})
}

func (h *Handler) GetMe(c *gin.Context) {
	user, err := h.service.GetUser(c.Request.Context(), c.GetInt64("user_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": toPublic(user)})
}

func (h *Handler) ListUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]UserPublic, 0, len(users))
	for i := range users {
		out = append(out, toPublic(&users[i]))
	}
	response.Success(c, http.StatusOK, gin.H{"users": out, "total": len(out)})
}

func (h *Handler) BanUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var req BanRequest
	_ = c.ShouldBind(&req)

	user, err := h.service.Ban(c.Request.Context(), actorFrom(c), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": toPublic(user)})
}

func (h *Handler) UnbanUser(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	user, err := h.service.Unban(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": toPublic(user)})
}

func (h *Handler) SetPassword(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}
	var req SetPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Password is required")
		return
	}

	user, err := h.service.SetPassword(c.Request.Context(), actorFrom(c), id, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": toPublic(user)})
}

func (h *Handler) GrantReset(c *gin.Context) {
	id, ok := userIDParam(c)
	if !ok {
		return
	}

	user, err := h.service.GrantReset(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": toPublic(user)})
}

func (h *Handler) BlockEmail(c *gin.Context) {
	var req BlockEmailRequest
	if err := c.ShouldBind(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "A valid email is required")
		return
	}

	entry, banned, err := h.service.BlockEmail(c.Request.Context(), actorFrom(c), req.Email, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{
		"blocked_email":   entry,
		"banned_user_ids": banned,
	})
}

func (h *Handler) ListBlockedEmails(c *gin.Context) {
	entries, err := h.service.ListBlockedEmails(c.Request.Context(), actorFrom(c))
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"blocked_emails": entries})
}

func (h *Handler) UnblockEmail(c *gin.Context) {
	if err := h.service.UnblockEmail(c.Request.Context(), actorFrom(c), c.Param("email")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func actorFrom(c *gin.Context) Actor {
	return Actor{
		UserID: c.GetInt64("user_id"),
		Role:   Role(c.GetString("role")),
	}
}

func userIDParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID")
		return 0, false
	}
	return id, true
}

func writeError(c *gin.Context, err error) {
	var banned *BannedError
	switch {
	case errors.As(err, &banned):
		response.ErrorWithDetails(c, http.StatusForbidden, "ACCOUNT_BANNED", "Account is banned", gin.H{"reason": banned.Reason})
	case errors.Is(err, ErrValidation):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, ErrDuplicateIdentity):
		response.Error(c, http.StatusConflict, "DUPLICATE_IDENTITY", "Username or email already taken")
	case errors.Is(err, ErrEmailBlocked):
		response.Error(c, http.StatusForbidden, "EMAIL_BLOCKED", "This email is blocked")
	case errors.Is(err, ErrInvalidCredentials):
		response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Wrong login or password")
	case errors.Is(err, ErrResetNotPermitted):
		response.Error(c, http.StatusForbidden, "RESET_NOT_PERMITTED", "Password reset is not permitted")
	case errors.Is(err, ErrPasswordTooShort):
		response.Error(c, http.StatusBadRequest, "PASSWORD_TOO_SHORT", "Password is too short")
	case errors.Is(err, ErrPasswordMismatch):
		response.Error(c, http.StatusBadRequest, "PASSWORD_MISMATCH", "Passwords do not match")
	case errors.Is(err, ErrUnauthorized):
		response.Error(c, http.StatusForbidden, "FORBIDDEN", "Admin access required")
	case errors.Is(err, ErrUserNotFound):
		response.Error(c, http.StatusNotFound, "NOT_FOUND", "User not found")
	default:
		_ = c.Error(err)
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
	}
}

func parseSameSite(v string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
