package account

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

const (
	ReasonTooManyAttempts = "too many failed login attempts"
	ReasonEmailBlocked    = "email blocked"
	ReasonAdminBan        = "banned by administrator"
)

type User struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         string    `json:"email"`
	PasswordHash  string    `json:"-"`
	Role          Role      `json:"role"`
	Banned        bool      `json:"banned"`
	BanReason     string    `json:"ban_reason,omitempty"`
	LoginAttempts int       `json:"login_attempts"`
	ResetAllowed  bool      `json:"reset_allowed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// State is the lifecycle state of an account: either Active or Banned.
type State interface {
	isState()
}

type Active struct {
	Attempts int
}

type Banned struct {
	Reason string
}

func (Active) isState() {}
func (Banned) isState() {}

func (u *User) State() State {
	if u.Banned {
		return Banned{Reason: u.BanReason}
	}
	return Active{Attempts: u.LoginAttempts}
}

// SetState writes s into the flat fields. A ban always carries a reason and
// zeroes the attempt counter; an active account never carries a reason.
func (u *User) SetState(s State) {
	switch st := s.(type) {
	case Banned:
		reason := st.Reason
		if reason == "" {
			reason = ReasonAdminBan
		}
		u.Banned = true
		u.BanReason = reason
		u.LoginAttempts = 0
	case Active:
		attempts := st.Attempts
		if attempts < 0 {
			attempts = 0
		}
		u.Banned = false
		u.BanReason = ""
		u.LoginAttempts = attempts
	}
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

type BlockedEmail struct {
	Email     string    `json:"email"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// Actor is whoever performs an administrative operation.
type Actor struct {
	UserID int64
	Role   Role
}

// Session is what a successful login binds to the browser.
type Session struct {
	UserID int64  `json:"user_id"`
	Login  string `json:"login"`
	Role   Role   `json:"role"`
}

type EventType string

const (
	EventRegistered     EventType = "user_registered"
	EventLoginFailed    EventType = "login_failed"
	EventBanned         EventType = "user_banned"
	EventUnbanned       EventType = "user_unbanned"
	EventPasswordSet    EventType = "password_set"
	EventEmailBlocked   EventType = "email_blocked"
	EventEmailUnblocked EventType = "email_unblocked"
	EventResetGranted   EventType = "reset_granted"
	EventPasswordReset  EventType = "password_reset"
)

// Event describes one lifecycle transition, for the admin live feed.
type Event struct {
	Type   EventType `json:"type"`
	UserID int64     `json:"user_id,omitempty"`
	Email  string    `json:"email,omitempty"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}
