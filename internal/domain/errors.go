// Package domain contains the core business entities for CodeLinker Admin.
package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (database, network, etc.).

var (
	// ErrUserNotFound indicates the requested user does not exist
	// (or the id/username pair does not identify the same row).
	ErrUserNotFound = errors.New("user not found")

	// ErrUserAlreadyExists indicates a user with the same username exists.
	ErrUserAlreadyExists = errors.New("user already exists")

	// ErrUserInactive indicates the user account has been disabled.
	ErrUserInactive = errors.New("user account is inactive")

	// ErrInvalidCredentials indicates a login failed. Whether the
	// username was unknown or the password wrong is never told apart.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountLocked indicates the account is inside a lockout window.
	ErrAccountLocked = errors.New("account is locked")

	// ErrUnknownRole indicates a role string outside 用户/管理员/超级管理员.
	ErrUnknownRole = errors.New("unknown role")

	// ErrAccessDenied indicates the actor's role weight is not
	// sufficient for the attempted operation.
	ErrAccessDenied = errors.New("access denied")

	// ErrInvalidUsername indicates a username outside 1-50 characters.
	ErrInvalidUsername = errors.New("invalid username: must be 1-50 characters")
)

// LockedError is an ErrAccountLocked carrying the remaining lockout
// duration, so handlers can render "请 M 分 S 秒后再试".
type LockedError struct {
	Remaining time.Duration
}

// Error implements the error interface.
func (e *LockedError) Error() string {
	return fmt.Sprintf("account is locked for another %s", e.Remaining)
}

// Is makes the error match ErrAccountLocked.
func (e *LockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// FailedLoginError is an ErrInvalidCredentials carrying the attempt
// count after the failed verification. Attempt is the post-increment
// value; reaching LoginAttemptThreshold opens the lockout window.
type FailedLoginError struct {
	Attempt int
}

// Error implements the error interface.
func (e *FailedLoginError) Error() string {
	return fmt.Sprintf("invalid credentials (attempt %d of %d)", e.Attempt, LoginAttemptThreshold)
}

// Is makes the error match ErrInvalidCredentials.
func (e *FailedLoginError) Is(target error) bool {
	return target == ErrInvalidCredentials
}
