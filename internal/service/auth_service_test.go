package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/codelinker-admin/internal/auth"
	"github.com/prn-tf/codelinker-admin/internal/clock"
	"github.com/prn-tf/codelinker-admin/internal/domain"
)

// testHashRounds keeps bcrypt cheap in tests.
const testHashRounds = 4

type authTestEnv struct {
	repo   *mockUserRepo
	clock  *clock.Fake
	hasher *auth.Hasher
	tokens *auth.TokenService
	svc    *AuthService
}

func newAuthTestEnv(t *testing.T) *authTestEnv {
	t.Helper()

	clk := clock.NewFake(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	hasher := auth.NewHasher(testHashRounds)
	tokens := auth.NewTokenService(auth.TokenConfig{
		Secret:    "test-secret",
		Algorithm: "HS256",
		AccessTTL: time.Hour,
		VerifyExp: true,
	}, clk)

	repo := newMockUserRepo()
	return &authTestEnv{
		repo:   repo,
		clock:  clk,
		hasher: hasher,
		tokens: tokens,
		svc:    NewAuthService(repo, tokens, hasher, clk, zerolog.Nop()),
	}
}

func (e *authTestEnv) seedUser(t *testing.T, username, password string, role domain.Role, active bool) *domain.User {
	t.Helper()
	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)
	return e.repo.add(domain.NewUser(username, hash, role, active))
}

func TestLoginHappyPath(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "alice", "p@ss", domain.RoleUser, true)

	out, err := env.svc.Login(context.Background(), "alice", "p@ss")
	require.NoError(t, err)
	require.NotEmpty(t, out.AccessToken)
	require.Equal(t, "bearer", out.TokenType)

	claims, err := env.tokens.Parse(out.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, user.ID.String(), claims.UserID)
	require.Equal(t, domain.RoleUser, claims.Role)
	require.False(t, claims.Admin)

	require.NotNil(t, user.LastLogin)
	require.Equal(t, 0, user.LoginAttempts)
	require.Nil(t, user.LockedUntil)
}

func TestLoginUnknownUsername(t *testing.T) {
	env := newAuthTestEnv(t)

	_, err := env.svc.Login(context.Background(), "nobody", "whatever")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)

	// unknown name and wrong password must be indistinguishable in
	// kind, but the unknown name carries no attempt count
	var failed *domain.FailedLoginError
	require.False(t, errors.As(err, &failed))
}

func TestLoginDisabledAccount(t *testing.T) {
	env := newAuthTestEnv(t)
	env.seedUser(t, "alice", "p@ss", domain.RoleUser, false)

	_, err := env.svc.Login(context.Background(), "alice", "p@ss")
	require.ErrorIs(t, err, domain.ErrUserInactive)
}

func TestLoginWrongPasswordCountsAttempts(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "alice", "p@ss", domain.RoleUser, true)

	for i := 1; i <= 4; i++ {
		_, err := env.svc.Login(context.Background(), "alice", "wrong")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)

		var failed *domain.FailedLoginError
		require.ErrorAs(t, err, &failed)
		require.Equal(t, i, failed.Attempt)
		require.Equal(t, i, user.LoginAttempts)
		require.Nil(t, user.LockedUntil)

		env.clock.Advance(time.Second)
	}
}

func TestLoginFifthFailureLocksAccount(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "alice", "p@ss", domain.RoleUser, true)

	for i := 0; i < 4; i++ {
		_, err := env.svc.Login(context.Background(), "alice", "wrong")
		require.ErrorIs(t, err, domain.ErrInvalidCredentials)
		env.clock.Advance(time.Second)
	}

	lockInstant := env.clock.Now()
	_, err := env.svc.Login(context.Background(), "alice", "wrong")
	var failed *domain.FailedLoginError
	require.ErrorAs(t, err, &failed)
	require.Equal(t, 5, failed.Attempt)

	require.Equal(t, 0, user.LoginAttempts)
	require.NotNil(t, user.LockedUntil)
	require.Equal(t, lockInstant.Add(domain.LockoutWindow), *user.LockedUntil)

	// even the correct password is rejected during the window
	env.clock.Advance(2 * time.Second)
	_, err = env.svc.Login(context.Background(), "alice", "p@ss")
	var locked *domain.LockedError
	require.ErrorAs(t, err, &locked)
	require.InDelta(t, (domain.LockoutWindow - 2*time.Second).Seconds(), locked.Remaining.Seconds(), 1)
}

func TestLoginSucceedsAfterLockExpires(t *testing.T) {
	env := newAuthTestEnv(t)
	user := env.seedUser(t, "alice", "p@ss", domain.RoleUser, true)

	for i := 0; i < 5; i++ {
		_, _ = env.svc.Login(context.Background(), "alice", "wrong")
	}
	require.NotNil(t, user.LockedUntil)

	env.clock.Advance(domain.LockoutWindow + time.Second)

	out, err := env.svc.Login(context.Background(), "alice", "p@ss")
	require.NoError(t, err)
	require.NotEmpty(t, out.AccessToken)
	require.Equal(t, 0, user.LoginAttempts)
	require.Nil(t, user.LockedUntil)
}

func TestLoginDoesNotDiscloseLockToWrongName(t *testing.T) {
	env := newAuthTestEnv(t)
	env.seedUser(t, "alice", "p@ss", domain.RoleUser, true)

	_, errUnknown := env.svc.Login(context.Background(), "bob", "p@ss")
	_, errWrong := env.svc.Login(context.Background(), "alice", "nope")

	require.ErrorIs(t, errUnknown, domain.ErrInvalidCredentials)
	require.ErrorIs(t, errWrong, domain.ErrInvalidCredentials)
}

func TestLoginClaimsReflectRoleAtLogin(t *testing.T) {
	env := newAuthTestEnv(t)
	env.seedUser(t, "root", "p@ss", domain.RoleSuperAdmin, true)

	out, err := env.svc.Login(context.Background(), "root", "p@ss")
	require.NoError(t, err)

	claims, err := env.tokens.Parse(out.AccessToken)
	require.NoError(t, err)
	require.Equal(t, domain.RoleSuperAdmin, claims.Role)
	require.True(t, claims.Admin)
}
