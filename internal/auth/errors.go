// Package auth provides password hashing and bearer token authentication
// for CodeLinker Admin.
package auth

import "errors"

// Token errors. Every one of them surfaces to the client as 401 with a
// WWW-Authenticate: Bearer header; the split exists so the detail
// message can name the reason.
var (
	// ErrTokenExpired indicates the token's exp claim is in the past.
	ErrTokenExpired = errors.New("token has expired")

	// ErrTokenInvalid indicates a signature, structure or decode failure.
	ErrTokenInvalid = errors.New("invalid token")

	// ErrTokenMalformed indicates the payload decoded but is missing
	// one of the required claims (sub, user_id, role, admin).
	ErrTokenMalformed = errors.New("token is missing required fields")

	// ErrMissingBearer indicates no Bearer credential on the request.
	ErrMissingBearer = errors.New("missing bearer token")
)

// Localized detail strings for token failures, matching the login API's
// error vocabulary.
const (
	DetailTokenExpired   = "令牌已过期"
	DetailTokenInvalid   = "无效令牌"
	DetailTokenMalformed = "令牌缺少必要字段"
	DetailUnverifiable   = "无法验证凭据"
)

// Detail returns the localized detail string for a token error.
func Detail(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return DetailTokenExpired
	case errors.Is(err, ErrTokenInvalid):
		return DetailTokenInvalid
	case errors.Is(err, ErrTokenMalformed):
		return DetailTokenMalformed
	default:
		return DetailUnverifiable
	}
}
