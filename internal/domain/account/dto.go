package account

type RegisterRequest struct {
	Username string `json:"username" form:"username" binding:"required"`
	Email    string `json:"email" form:"email" binding:"required,email"`
	Password string `json:"password" form:"password" binding:"required"`
}

type LoginRequest struct {
	Login    string `json:"login" form:"login" binding:"required"`
	Password string `json:"password" form:"password" binding:"required"`
}

type ResetPasswordRequest struct {
	UserID          int64  `json:"user_id" form:"user_id" binding:"required"`
	Password        string `json:"password" form:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" form:"confirm_password" binding:"required"`
}

type BanRequest struct {
	Reason string `json:"reason" form:"reason"`
}

type SetPasswordRequest struct {
	Password string `json:"password" form:"password" binding:"required"`
}

type BlockEmailRequest struct {
	Email  string `json:"email" form:"email" binding:"required,email"`
	Reason string `json:"reason" form:"reason"`
}

type UserPublic struct {
	ID            int64  `json:"id"`
	Username      string `json:"username"`
	Email         string `json:"email"`
	Role          Role   `json:"role"`
	Banned        bool   `json:"banned"`
	BanReason     string `json:"ban_reason,omitempty"`
	LoginAttempts int    `json:"login_attempts"`
	ResetAllowed  bool   `json:"reset_allowed"`
}

func toPublic(u *User) UserPublic {
	return UserPublic{
		ID:            u.ID,
		Username:      u.Username,
		Email:         u.Email,
		Role:          u.Role,
		Banned:        u.Banned,
		BanReason:     u.BanReason,
		LoginAttempts: u.LoginAttempts,
		ResetAllowed:  u.ResetAllowed,
	}
}
