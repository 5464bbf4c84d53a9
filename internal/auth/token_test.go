package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/codelinker-admin/internal/clock"
	"github.com/prn-tf/codelinker-admin/internal/domain"
)

func newTestTokenService(clk clock.Clock, verifyExp bool) *TokenService {
	return NewTokenService(TokenConfig{
		Secret:    "test-secret",
		Algorithm: "HS256",
		AccessTTL: time.Hour,
		VerifyExp: verifyExp,
	}, clk)
}

func testTokenUser(t *testing.T) *domain.User {
	t.Helper()
	return domain.NewUser("alice", "digest", domain.RoleAdmin, true)
}

func TestTokenMintParseRoundTrip(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	svc := newTestTokenService(clk, true)
	user := testTokenUser(t)

	token, err := svc.Mint(user)
	require.NoError(t, err)

	claims, err := svc.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
	require.Equal(t, user.ID.String(), claims.UserID)
	require.Equal(t, domain.RoleAdmin, claims.Role)
	require.True(t, claims.Admin)
	require.Equal(t, clk.Now().Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
}

func TestTokenExpires(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	svc := newTestTokenService(clk, true)

	token, err := svc.Mint(testTokenUser(t))
	require.NoError(t, err)

	clk.Advance(time.Hour + time.Second)
	_, err = svc.Parse(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenExpiryCheckCanBeDisabled(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	svc := newTestTokenService(clk, false)

	token, err := svc.Mint(testTokenUser(t))
	require.NoError(t, err)

	clk.Advance(48 * time.Hour)
	claims, err := svc.Parse(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.Username)
}

func TestTokenTamperedSignature(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	svc := newTestTokenService(clk, true)

	token, err := svc.Mint(testTokenUser(t))
	require.NoError(t, err)

	_, err = svc.Parse(token + "x")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenWrongSecret(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	minter := NewTokenService(TokenConfig{Secret: "other-secret", Algorithm: "HS256", AccessTTL: time.Hour, VerifyExp: true}, clk)
	svc := newTestTokenService(clk, true)

	token, err := minter.Mint(testTokenUser(t))
	require.NoError(t, err)

	_, err = svc.Parse(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func TestTokenMissingRequiredClaim(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	svc := newTestTokenService(clk, true)

	// a token signed with the right key but without user_id
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   "alice",
		"role":  domain.RoleUser.String(),
		"admin": false,
		"exp":   clk.Now().Add(time.Hour).Unix(),
	})
	token, err := raw.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Parse(token)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestTokenUnknownRoleClaim(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	svc := newTestTokenService(clk, true)

	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":     "alice",
		"user_id": "a4e9c1d0-0000-0000-0000-000000000000",
		"role":    "overlord",
		"admin":   true,
		"exp":     clk.Now().Add(time.Hour).Unix(),
	})
	token, err := raw.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Parse(token)
	require.ErrorIs(t, err, ErrTokenMalformed)
}

func TestTokenRejectsForeignAlgorithm(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	svc := newTestTokenService(clk, true)

	raw := jwt.NewWithClaims(jwt.SigningMethodHS384, jwt.MapClaims{
		"sub":     "alice",
		"user_id": "a4e9c1d0-0000-0000-0000-000000000000",
		"role":    domain.RoleUser.String(),
		"admin":   false,
		"exp":     clk.Now().Add(time.Hour).Unix(),
	})
	token, err := raw.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = svc.Parse(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}
