package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/prn-tf/codelinker-admin/internal/clock"
	"github.com/prn-tf/codelinker-admin/internal/domain"
)

// Claims is the fixed claim shape carried in every bearer token:
// sub (username), user_id, role, admin, exp.
type Claims struct {
	// Username is the sub claim.
	Username string

	// UserID is the account's UUID in string form.
	UserID string

	// Role is the account's role at the instant of login.
	Role domain.Role

	// Admin mirrors the account's is_admin flag.
	Admin bool

	// ExpiresAt is the token expiry instant.
	ExpiresAt time.Time
}

// TokenService mints and parses signed bearer tokens.
type TokenService struct {
	secret    []byte
	method    jwt.SigningMethod
	accessTTL time.Duration
	verifyExp bool
	clock     clock.Clock
}

// TokenConfig contains the settings for a TokenService.
type TokenConfig struct {
	Secret    string
	Algorithm string
	AccessTTL time.Duration
	VerifyExp bool
}

// NewTokenService creates a TokenService. Only the HMAC family is
// supported; an unknown algorithm falls back to HS256.
func NewTokenService(cfg TokenConfig, clk clock.Clock) *TokenService {
	method := jwt.GetSigningMethod(cfg.Algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		method = jwt.SigningMethodHS256
	}
	ttl := cfg.AccessTTL
	if ttl <= 0 {
		ttl = 1440 * time.Minute
	}
	return &TokenService{
		secret:    []byte(cfg.Secret),
		method:    method,
		accessTTL: ttl,
		verifyExp: cfg.VerifyExp,
		clock:     clk,
	}
}

// Mint encodes the user's identity into a signed token expiring
// access_ttl from now.
func (s *TokenService) Mint(user *domain.User) (string, error) {
	exp := s.clock.Now().Add(s.accessTTL)
	tok := jwt.NewWithClaims(s.method, jwt.MapClaims{
		"sub":     user.Username,
		"user_id": user.ID.String(),
		"role":    user.Role.String(),
		"admin":   user.IsAdmin,
		"exp":     exp.Unix(),
	})
	signed, err := tok.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Parse verifies the signature (and, unless disabled, the expiry) and
// returns the decoded claims. Failures map to ErrTokenExpired,
// ErrTokenInvalid or ErrTokenMalformed.
func (s *TokenService) Parse(token string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithTimeFunc(s.clock.Now),
	}
	if !s.verifyExp {
		opts = append(opts, jwt.WithoutClaimsValidation())
	}

	payload := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(token, payload, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)

	switch {
	case err == nil && parsed.Valid:
		// fall through to claim extraction
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	default:
		return nil, ErrTokenInvalid
	}

	return claimsFromPayload(payload)
}

// claimsFromPayload checks the required fields are all present and
// builds the typed claim set.
func claimsFromPayload(payload jwt.MapClaims) (*Claims, error) {
	sub, okSub := payload["sub"].(string)
	userID, okID := payload["user_id"].(string)
	roleStr, okRole := payload["role"].(string)
	admin, okAdmin := payload["admin"].(bool)
	if !okSub || !okID || !okRole || !okAdmin {
		return nil, ErrTokenMalformed
	}

	role, err := domain.ParseRole(roleStr)
	if err != nil {
		return nil, ErrTokenMalformed
	}

	claims := &Claims{
		Username: sub,
		UserID:   userID,
		Role:     role,
		Admin:    admin,
	}
	if exp, err := payload.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}
	return claims, nil
}
