// Package domain contains the core business entities for CodeLinker Admin.
// These are pure Go structs with no external dependencies beyond UUIDs,
// representing the single-tenant user administration model.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// LoginAttemptThreshold is the number of consecutive failed logins that
// triggers a lockout. The failure that reaches the threshold also opens
// the lockout window.
const LoginAttemptThreshold = 5

// LockoutWindow is how long an account stays locked after reaching the
// attempt threshold.
const LockoutWindow = 30 * time.Minute

// User represents one account row in the system_user table.
type User struct {
	// ID is the stable identifier, assigned at creation.
	ID uuid.UUID `json:"id"`

	// Username is the unique, case-sensitive login name (1-50 characters).
	Username string `json:"username"`

	// PasswordHash is the bcrypt hash of the user's password.
	// Never exposed in API responses.
	PasswordHash string `json:"-"`

	// Role is the permission level. IsAdmin is derived from it and the
	// two must stay consistent across every write.
	Role Role `json:"role"`

	// IsAdmin is true iff Role is 管理员 or 超级管理员.
	IsAdmin bool `json:"is_admin"`

	// IsActive indicates whether the account may log in.
	// Soft deletion flips this to false; the row is never removed.
	IsActive bool `json:"is_active"`

	// LoginAttempts counts consecutive failed logins since the last
	// success or reset.
	LoginAttempts int `json:"login_attempts"`

	// LockedUntil, when set, rejects every login before that instant
	// without checking the password.
	LockedUntil *time.Time `json:"locked_until"`

	// LastLogin is the instant of the most recent successful login.
	LastLogin *time.Time `json:"last_login"`

	// CreatedAt and UpdatedAt are maintained by the store.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewUser creates a User with a fresh ID and the admin flag derived
// from the role.
func NewUser(username, passwordHash string, role Role, isActive bool) *User {
	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Username:     username,
		PasswordHash: passwordHash,
		Role:         role,
		IsAdmin:      role.IsAdmin(),
		IsActive:     isActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// CanAuthenticate reports whether the account is allowed to attempt a login.
func (u *User) CanAuthenticate() bool {
	return u.IsActive
}

// LockedAt reports whether the account is inside a lockout window at
// the given instant, and if so how much of the window remains.
func (u *User) LockedAt(now time.Time) (time.Duration, bool) {
	if u.LockedUntil == nil || !now.Before(*u.LockedUntil) {
		return 0, false
	}
	return u.LockedUntil.Sub(now), true
}

// ValidUsername reports whether the name satisfies the 1-50 character
// constraint. Length is counted in runes: the tenant uses CJK names.
func ValidUsername(name string) bool {
	n := len([]rune(name))
	return n >= 1 && n <= 50
}
