package account

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) Create(ctx context.Context, u *User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepo) GetByID(ctx context.Context, id int64) (*User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockRepo) FindByLogin(ctx context.Context, login string) (*User, error) {
	args := m.Called(ctx, login)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*User), args.Error(1)
}

func (m *mockRepo) ExistsByIdentity(ctx context.Context, username, email string) (bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) Save(ctx context.Context, u *User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *mockRepo) List(ctx context.Context) ([]User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]User), args.Error(1)
}

func (m *mockRepo) IsEmailBlocked(ctx context.Context, email string) (bool, error) {
	args := m.Called(ctx, email)
	return args.Bool(0), args.Error(1)
}

func (m *mockRepo) BlockEmail(ctx context.Context, entry *BlockedEmail, banReason string) ([]int64, error) {
	args := m.Called(ctx, entry, banReason)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *mockRepo) UnblockEmail(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *mockRepo) ListBlockedEmails(ctx context.Context) ([]BlockedEmail, error) {
	args := m.Called(ctx)
	return args.Get(0).([]BlockedEmail), args.Error(1)
}

type stubHasher struct{}

func (stubHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }
func (stubHasher) Verify(hash, plain string) bool   { return hash == "hashed:"+plain }

func TestRegister_StoreFaultPropagates(t *testing.T) {
	repo := new(mockRepo)
	boom := errors.New("connection refused")
	repo.On("IsEmailBlocked", mock.Anything, "a@x.com").Return(false, boom)

	svc := NewService(repo, stubHasher{}, nil, nil, Options{})
	_, err := svc.Register(context.Background(), RegisterInput{Username: "a", Email: "a@x.com", Password: "pw"})

	assert.ErrorIs(t, err, boom)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_StoresOnlyHash(t *testing.T) {
	repo := new(mockRepo)
	repo.On("IsEmailBlocked", mock.Anything, "a@x.com").Return(false, nil)
	repo.On("ExistsByIdentity", mock.Anything, "a", "a@x.com").Return(false, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *User) bool {
		return u.PasswordHash == "hashed:secret1" && u.Role == RoleUser && !u.Banned
	})).Return(nil)

	svc := NewService(repo, stubHasher{}, nil, nil, Options{})
	_, err := svc.Register(context.Background(), RegisterInput{Username: "a", Email: "A@x.com", Password: "secret1"})

	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestAuthenticate_FourthFailureBans(t *testing.T) {
	repo := new(mockRepo)
	u := &User{ID: 7, Username: "a", PasswordHash: "hashed:right", Role: RoleUser, LoginAttempts: 3}
	repo.On("FindByLogin", mock.Anything, "a").Return(u, nil)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(u *User) bool {
		return u.Banned && u.BanReason == ReasonTooManyAttempts
	})).Return(nil)

	svc := NewService(repo, stubHasher{}, nil, nil, Options{MaxLoginAttempts: 4})
	_, err := svc.Authenticate(context.Background(), "a", "wrong")

	assert.ErrorIs(t, err, ErrAccountBanned)
	repo.AssertExpectations(t)
}

func TestAuthenticate_SaveFailureIsReported(t *testing.T) {
	repo := new(mockRepo)
	boom := errors.New("disk full")
	u := &User{ID: 7, Username: "a", PasswordHash: "hashed:right", Role: RoleUser}
	repo.On("FindByLogin", mock.Anything, "a").Return(u, nil)
	repo.On("Save", mock.Anything, mock.Anything).Return(boom)

	svc := NewService(repo, stubHasher{}, nil, nil, Options{})
	_, err := svc.Authenticate(context.Background(), "a", "wrong")

	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_SuccessWithoutPriorFailuresSkipsWrite(t *testing.T) {
	repo := new(mockRepo)
	u := &User{ID: 7, Username: "a", PasswordHash: "hashed:right", Role: RoleAdmin}
	repo.On("FindByLogin", mock.Anything, "a").Return(u, nil)

	svc := NewService(repo, stubHasher{}, nil, nil, Options{})
	sess, err := svc.Authenticate(context.Background(), "a", "right")

	assert.NoError(t, err)
	assert.Equal(t, RoleAdmin, sess.Role)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}
