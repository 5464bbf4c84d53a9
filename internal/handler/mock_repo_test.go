package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/prn-tf/codelinker-admin/internal/domain"
	"github.com/prn-tf/codelinker-admin/internal/repository"
)

// mockUserRepo backs the API tests with an in-memory user table.
type mockUserRepo struct {
	users map[string]*domain.User // keyed by username
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*domain.User)}
}

func (m *mockUserRepo) add(u *domain.User) *domain.User {
	m.users[u.Username] = u
	return u
}

func (m *mockUserRepo) byID(id uuid.UUID) *domain.User {
	for _, u := range m.users {
		if u.ID == id {
			return u
		}
	}
	return nil
}

func snapshot(u *domain.User) *domain.User {
	c := *u
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		c.LockedUntil = &t
	}
	if u.LastLogin != nil {
		t := *u.LastLogin
		c.LastLogin = &t
	}
	return &c
}

func (m *mockUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	u, ok := m.users[username]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return snapshot(u), nil
}

func (m *mockUserRepo) FindScoped(ctx context.Context, q repository.ScopedQuery) ([]*domain.User, error) {
	allowed := make(map[domain.Role]bool, len(q.Roles))
	for _, r := range q.Roles {
		allowed[r] = true
	}

	var out []*domain.User
	for _, u := range m.users {
		if !allowed[u.Role] {
			continue
		}
		if q.ID != nil && u.ID != *q.ID {
			continue
		}
		if q.Username != "" {
			if q.Type == repository.QueryFuzzy {
				if !strings.Contains(u.Username, q.Username) {
					continue
				}
			} else if u.Username != q.Username {
				continue
			}
		}
		out = append(out, snapshot(u))
	}
	return out, nil
}

func (m *mockUserRepo) Insert(ctx context.Context, user *domain.User) (int64, error) {
	if _, exists := m.users[user.Username]; exists {
		return 0, fmt.Errorf("%w: username %q", domain.ErrUserAlreadyExists, user.Username)
	}
	m.users[user.Username] = user
	return 1, nil
}

func (m *mockUserRepo) UpdateAuth(ctx context.Context, id uuid.UUID, upd repository.AuthUpdate) (int64, error) {
	u := m.byID(id)
	if u == nil {
		return 0, nil
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.LastLogin != nil {
		t := *upd.LastLogin
		u.LastLogin = &t
	}
	switch upd.Attempts {
	case repository.AttemptsPlus:
		u.LoginAttempts++
	case repository.AttemptsReset:
		u.LoginAttempts = 0
	}
	if upd.LockedUntil != nil {
		t := *upd.LockedUntil
		u.LockedUntil = &t
	} else if upd.Attempts == repository.AttemptsReset && upd.LastLogin != nil {
		u.LockedUntil = nil
	}
	return 1, nil
}

func (m *mockUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, username string, upd repository.ProfileUpdate) (int64, error) {
	u, ok := m.users[username]
	if !ok || u.ID != id {
		return 0, nil
	}
	if upd.Role != nil {
		u.Role = *upd.Role
		u.IsAdmin = upd.Role.IsAdmin()
	}
	if upd.IsActive != nil {
		u.IsActive = *upd.IsActive
	}
	if upd.CleanLocked {
		u.LoginAttempts = 0
		u.LockedUntil = nil
	}
	return 1, nil
}

func (m *mockUserRepo) ResetPasswordTo(ctx context.Context, id uuid.UUID, username, newHash string, cleanLocked bool) (int64, error) {
	u, ok := m.users[username]
	if !ok || u.ID != id {
		return 0, nil
	}
	u.PasswordHash = newHash
	if cleanLocked {
		u.LoginAttempts = 0
		u.LockedUntil = nil
	}
	return 1, nil
}

func (m *mockUserRepo) SelfUpdate(ctx context.Context, id uuid.UUID, newUsername, newHash *string) (int64, error) {
	u := m.byID(id)
	if u == nil {
		return 0, nil
	}
	if newUsername != nil && *newUsername != u.Username {
		if _, exists := m.users[*newUsername]; exists {
			return 0, fmt.Errorf("%w: username", domain.ErrUserAlreadyExists)
		}
		delete(m.users, u.Username)
		u.Username = *newUsername
		m.users[u.Username] = u
	}
	if newHash != nil {
		u.PasswordHash = *newHash
	}
	return 1, nil
}

func (m *mockUserRepo) CountUsername(ctx context.Context, username string) (int64, error) {
	if _, ok := m.users[username]; ok {
		return 1, nil
	}
	return 0, nil
}

var _ repository.UserRepository = (*mockUserRepo)(nil)
