package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// contextKey is the private type for values stored by the middleware.
type contextKey struct{}

// claimsContextKey carries the parsed Claims of the acting principal.
var claimsContextKey = contextKey{}

// Middleware returns a middleware that requires a valid bearer token on
// every request and stores the parsed claims in the request context.
// Routes that accept anonymous traffic (login, health, metrics) are
// mounted outside this middleware.
func Middleware(tokens *TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := bearerToken(r)
			if err != nil {
				writeAuthError(w, err)
				return
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				log.Debug().Err(err).Str("path", r.URL.Path).Msg("bearer authentication failed")
				writeAuthError(w, err)
				return
			}

			ctx := context.WithValue(r.Context(), claimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken extracts the credential from the Authorization header.
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", ErrMissingBearer
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", ErrMissingBearer
	}
	return token, nil
}

// writeAuthError writes the 401 response with the Bearer challenge.
func writeAuthError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": Detail(err)})
}

// ClaimsFromContext retrieves the acting principal's claims, or nil
// when the request was not authenticated.
func ClaimsFromContext(ctx context.Context) *Claims {
	if claims, ok := ctx.Value(claimsContextKey).(*Claims); ok {
		return claims
	}
	return nil
}

// RequireClaims is a helper for handlers behind the middleware; a
// missing claim set means the middleware was bypassed and is treated
// as an unverifiable credential.
func RequireClaims(ctx context.Context) (*Claims, error) {
	claims := ClaimsFromContext(ctx)
	if claims == nil {
		return nil, ErrMissingBearer
	}
	return claims, nil
}
