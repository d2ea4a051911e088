package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// EventPublisher receives lifecycle events. Implementations must not block.
type EventPublisher interface {
	Publish(ctx context.Context, e Event)
}

type Options struct {
	MaxLoginAttempts  int
	MinPasswordLength int
}

// Service is the account lifecycle manager: registration, login attempts,
// bans, the email denylist and admin-mediated password resets.
type Service struct {
	users     Repository
	hasher    PasswordHasher
	publisher EventPublisher
	log       *zap.Logger
	opts      Options
	now       func() time.Time
}

func NewService(users Repository, hasher PasswordHasher, publisher EventPublisher, log *zap.Logger, opts Options) *Service {
	if opts.MaxLoginAttempts <= 0 {
		opts.MaxLoginAttempts = 4
	}
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = 6
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		users:     users,
		hasher:    hasher,
		publisher: publisher,
		log:       log,
		opts:      opts,
		now:       time.Now,
	}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*User, error) {
	username := strings.TrimSpace(in.Username)
	email := NormalizeEmail(in.Email)
	if username == "" || email == "" || in.Password == "" {
		return nil, ErrValidation
	}

	blocked, err := s.users.IsEmailBlocked(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("check denylist: %w", err)
	}
	if blocked {
		return nil, ErrEmailBlocked
	}

	exists, err := s.users.ExistsByIdentity(ctx, username, email)
	if err != nil {
		return nil, fmt.Errorf("check identity: %w", err)
	}
	if exists {
		return nil, ErrDuplicateIdentity
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         RoleUser,
	}
	u.SetState(Active{})

	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, ErrDuplicateIdentity) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	s.publish(ctx, Event{Type: EventRegistered, UserID: u.ID, Email: u.Email})
	return u, nil
}

// Authenticate checks existence, then the ban, then the password. Failed
// password checks count towards an automatic ban.
//
// The attempt counter is a read-modify-write without isolation; concurrent
// failures on one account may trigger the ban a request early or late.
func (s *Service) Authenticate(ctx context.Context, login, password string) (*Session, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	u, err := s.users.FindByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	switch st := u.State().(type) {
	case Banned:
		return nil, &BannedError{Reason: st.Reason}
	case Active:
		if !s.hasher.Verify(u.PasswordHash, password) {
			return nil, s.registerFailure(ctx, u, st)
		}
	}

	if u.LoginAttempts != 0 {
		u.SetState(Active{})
		if err := s.users.Save(ctx, u); err != nil {
			return nil, fmt.Errorf("reset login attempts: %w", err)
		}
	}

	return &Session{UserID: u.ID, Login: u.Username, Role: u.Role}, nil
}

func (s *Service) registerFailure(ctx context.Context, u *User, st Active) error {
	attempts := st.Attempts + 1
	if attempts >= s.opts.MaxLoginAttempts {
		u.SetState(Banned{Reason: ReasonTooManyAttempts})
	} else {
		u.SetState(Active{Attempts: attempts})
	}

	if err := s.users.Save(ctx, u); err != nil {
		return fmt.Errorf("record failed login: %w", err)
	}

	if u.Banned {
		s.log.Warn("account locked after failed logins", zap.Int64("user_id", u.ID), zap.Int("attempts", attempts))
		s.publish(ctx, Event{Type: EventBanned, UserID: u.ID, Reason: u.BanReason})
		return &BannedError{Reason: u.BanReason}
	}

	s.publish(ctx, Event{Type: EventLoginFailed, UserID: u.ID})
	return ErrInvalidCredentials
}

func (s *Service) Ban(ctx context.Context, actor Actor, userID int64, reason string) (*User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.SetState(Banned{Reason: strings.TrimSpace(reason)})
	if err := s.users.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("ban user: %w", err)
	}

	s.log.Info("user banned", zap.Int64("user_id", u.ID), zap.Int64("admin_id", actor.UserID), zap.String("reason", u.BanReason))
	s.publish(ctx, Event{Type: EventBanned, UserID: u.ID, Reason: u.BanReason})
	return u, nil
}

func (s *Service) Unban(ctx context.Context, actor Actor, userID int64) (*User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.SetState(Active{})
	if err := s.users.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("unban user: %w", err)
	}

	s.log.Info("user unbanned", zap.Int64("user_id", u.ID), zap.Int64("admin_id", actor.UserID))
	s.publish(ctx, Event{Type: EventUnbanned, UserID: u.ID})
	return u, nil
}

// SetPassword replaces the password and, as a side effect, restores access.
func (s *Service) SetPassword(ctx context.Context, actor Actor, userID int64, password string) (*User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if len(password) < s.opts.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u.SetState(Active{})

	if err := s.users.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("set password: %w", err)
	}

	s.log.Info("password set by admin", zap.Int64("user_id", u.ID), zap.Int64("admin_id", actor.UserID))
	s.publish(ctx, Event{Type: EventPasswordSet, UserID: u.ID})
	return u, nil
}

// BlockEmail adds email to the denylist and bans every account using it.
func (s *Service) BlockEmail(ctx context.Context, actor Actor, email, reason string) (*BlockedEmail, []int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, nil, err
	}
	email = NormalizeEmail(email)
	if email == "" {
		return nil, nil, ErrValidation
	}

	entry := &BlockedEmail{Email: email, Reason: strings.TrimSpace(reason)}
	banned, err := s.users.BlockEmail(ctx, entry, ReasonEmailBlocked)
	if err != nil {
		return nil, nil, fmt.Errorf("block email: %w", err)
	}

	s.log.Info("email blocked",
		zap.String("email", email),
		zap.Int64("admin_id", actor.UserID),
		zap.Int("banned_users", len(banned)),
	)
	s.publish(ctx, Event{Type: EventEmailBlocked, Email: email, Reason: entry.Reason})
	for _, id := range banned {
		s.publish(ctx, Event{Type: EventBanned, UserID: id, Email: email, Reason: ReasonEmailBlocked})
	}
	return entry, banned, nil
}

// UnblockEmail lifts the denylist entry. Accounts banned by the block stay
// banned until an admin unbans them.
func (s *Service) UnblockEmail(ctx context.Context, actor Actor, email string) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	email = NormalizeEmail(email)
	if err := s.users.UnblockEmail(ctx, email); err != nil {
		return fmt.Errorf("unblock email: %w", err)
	}
	s.log.Info("email unblocked", zap.String("email", email), zap.Int64("admin_id", actor.UserID))
	s.publish(ctx, Event{Type: EventEmailUnblocked, Email: email})
	return nil
}

// GrantReset arms the one-shot reset capability. Ban state is untouched.
func (s *Service) GrantReset(ctx context.Context, actor Actor, userID int64) (*User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	u.ResetAllowed = true
	if err := s.users.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("grant reset: %w", err)
	}

	s.log.Info("password reset granted", zap.Int64("user_id", u.ID), zap.Int64("admin_id", actor.UserID))
	s.publish(ctx, Event{Type: EventResetGranted, UserID: u.ID})
	return u, nil
}

// ResetPassword consumes the reset capability. Anyone holding the user id
// can consume an armed grant; there is no secondary secret.
func (s *Service) ResetPassword(ctx context.Context, userID int64, password, confirm string) error {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return ErrResetNotPermitted
		}
		return err
	}
	if !u.ResetAllowed {
		return ErrResetNotPermitted
	}
	if password != confirm {
		return ErrPasswordMismatch
	}
	if len(password) < s.opts.MinPasswordLength {
		return ErrPasswordTooShort
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u.ResetAllowed = false
	u.SetState(Active{})

	if err := s.users.Save(ctx, u); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.log.Info("password reset consumed", zap.Int64("user_id", u.ID))
	s.publish(ctx, Event{Type: EventPasswordReset, UserID: u.ID})
	return nil
}

func (s *Service) GetUser(ctx context.Context, userID int64) (*User, error) {
	return s.users.GetByID(ctx, userID)
}

func (s *Service) ListUsers(ctx context.Context, actor Actor) ([]User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.users.List(ctx)
}

func (s *Service) ListBlockedEmails(ctx context.Context, actor Actor) ([]BlockedEmail, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.users.ListBlockedEmails(ctx)
}

// EnsureAdmin creates the bootstrap administrator, or promotes and
// reactivates an existing account with that username.
func (s *Service) EnsureAdmin(ctx context.Context, username, email, password string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" || NormalizeEmail(email) == "" {
		return nil, ErrValidation
	}
	if len(password) < s.opts.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}

	u, err := s.users.FindByLogin(ctx, username)
	switch {
	case errors.Is(err, ErrUserNotFound):
		hash, err := s.hasher.Hash(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		u = &User{
			Username:     username,
			Email:        NormalizeEmail(email),
			PasswordHash: hash,
			Role:         RoleAdmin,
		}
		if err := s.users.Create(ctx, u); err != nil {
			return nil, err
		}
		s.log.Info("admin created", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
		return u, nil
	case err != nil:
		return nil, err
	}

	u.Role = RoleAdmin
	u.SetState(Active{})
	if err := s.users.Save(ctx, u); err != nil {
		return nil, fmt.Errorf("promote admin: %w", err)
	}
	s.log.Info("admin promoted", zap.Int64("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

func requireAdmin(actor Actor) error {
	if actor.Role != RoleAdmin {
		return ErrUnauthorized
	}
	return nil
}

func (s *Service) publish(ctx context.Context, e Event) {
	if s.publisher == nil {
		return
	}
	e.At = s.now()
	s.publisher.Publish(ctx, e)
}
