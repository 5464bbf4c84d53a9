package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/prn-tf/codelinker-admin/internal/clock"
)

func newProtectedHandler(t *testing.T, svc *TokenService) http.Handler {
	t.Helper()
	return Middleware(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := ClaimsFromContext(r.Context())
		require.NotNil(t, claims)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(claims.Username))
	}))
}

func TestMiddlewarePassesValidToken(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	svc := newTestTokenService(clk, true)

	token, err := svc.Mint(testTokenUser(t))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/user/user_info", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	newProtectedHandler(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "alice", rec.Body.String())
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	svc := newTestTokenService(clk, true)

	req := httptest.NewRequest(http.MethodGet, "/admin/user/user_info", nil)
	rec := httptest.NewRecorder()
	newProtectedHandler(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, DetailUnverifiable, body["detail"])
}

func TestMiddlewareRejectsWrongScheme(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	svc := newTestTokenService(clk, true)

	token, err := svc.Mint(testTokenUser(t))
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin/user/user_info", nil)
	req.Header.Set("Authorization", "Basic "+token)
	rec := httptest.NewRecorder()
	newProtectedHandler(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 7, 4, 12, 0, 0, 0, time.UTC))
	svc := newTestTokenService(clk, true)

	token, err := svc.Mint(testTokenUser(t))
	require.NoError(t, err)
	clk.Advance(2 * time.Hour)

	req := httptest.NewRequest(http.MethodGet, "/admin/user/user_info", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	newProtectedHandler(t, svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, DetailTokenExpired, body["detail"])
}

func TestRequireClaimsOutsideMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := RequireClaims(req.Context())
	require.ErrorIs(t, err, ErrMissingBearer)
}
