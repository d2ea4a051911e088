package account

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"vivwendy/internal/database"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func newTestRepo(t *testing.T) *GormRepository {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := database.Connect(fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db, Models()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return NewRepository(db)
}

func newTestService(t *testing.T) (*Service, *GormRepository, *recordingPublisher) {
	t.Helper()
	repo := newTestRepo(t)
	pub := &recordingPublisher{}
	svc := NewService(repo, &BcryptHasher{Cost: bcrypt.MinCost}, pub, nil, Options{
		MaxLoginAttempts:  4,
		MinPasswordLength: 6,
	})
	return svc, repo, pub
}

var admin = Actor{UserID: 999, Role: RoleAdmin}

func mustRegister(t *testing.T, svc *Service, username, email, password string) *User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{Username: username, Email: email, Password: password})
	require.NoError(t, err)
	return u
}
