package account

import "errors"

var (
	ErrValidation         = errors.New("username, email and password are required")
	ErrDuplicateIdentity  = errors.New("username or email already taken")
	ErrEmailBlocked       = errors.New("email is blocked")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountBanned      = errors.New("account banned")
	ErrResetNotPermitted  = errors.New("password reset not permitted")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrPasswordMismatch   = errors.New("passwords do not match")
	ErrUnauthorized       = errors.New("admin role required")
	ErrUserNotFound       = errors.New("user not found")
)

// BannedError carries the ban reason and matches ErrAccountBanned.
type BannedError struct {
	Reason string
}

func (e *BannedError) Error() string {
	if e.Reason == "" {
		return ErrAccountBanned.Error()
	}
	return ErrAccountBanned.Error() + ": " + e.Reason
}

func (e *BannedError) Is(target error) bool {
	return target == ErrAccountBanned
}
