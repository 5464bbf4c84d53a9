// Package repository defines data access interfaces for CodeLinker Admin.
// These interfaces abstract database operations, allowing for different
// implementations (PostgreSQL, SQLite, mocks for testing) while keeping
// the service layer clean.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/codelinker-admin/internal/domain"
)

// QueryType selects between equality and containment matching on
// username filters.
type QueryType string

const (
	QueryExact QueryType = "exact"
	QueryFuzzy QueryType = "fuzzy"
)

// AttemptsOp describes how a write touches the login_attempts counter.
type AttemptsOp string

const (
	// AttemptsKeep leaves the counter untouched.
	AttemptsKeep AttemptsOp = ""

	// AttemptsPlus increments the counter atomically relative to the
	// stored value, so interleaved failures never lose increments.
	AttemptsPlus AttemptsOp = "plus"

	// AttemptsReset sets the counter to zero.
	AttemptsReset AttemptsOp = "reset"
)

// ScopedQuery filters users by id equality, name equality or
// containment, and role membership. An empty role set matches nothing.
type ScopedQuery struct {
	// ID, when set, must equal the row's id.
	ID *uuid.UUID

	// Username, when non-empty, is matched per Type.
	Username string

	// Type is exact or fuzzy; fuzzy matches containment.
	Type QueryType

	// Roles restricts results to these roles. Listing hands in the
	// actor's at-or-below set so lower-weight actors never see rows
	// above them.
	Roles []domain.Role
}

// AuthUpdate carries the login flow's row mutations. Nil fields are
// left unchanged.
type AuthUpdate struct {
	IsActive    *bool
	LastLogin   *time.Time
	LockedUntil *time.Time
	Attempts    AttemptsOp
}

// ProfileUpdate carries the admin update mutation. When Role is set the
// store derives and writes is_admin in the same statement. CleanLocked
// zeroes login_attempts and clears locked_until.
type ProfileUpdate struct {
	Role        *domain.Role
	IsActive    *bool
	CleanLocked bool
}

// UserRepository defines typed access to the system_user table.
// All operations bind parameters; no value is ever interpolated into
// SQL text. Every write stamps updated_at.
type UserRepository interface {
	// FindByUsername retrieves a user by exact username.
	// Returns ErrNotFound when no row matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)

	// FindScoped returns the users matching the query, never an error
	// for an empty result.
	FindScoped(ctx context.Context, q ScopedQuery) ([]*domain.User, error)

	// Insert creates the row and reports the inserted count.
	// A duplicate username surfaces as domain.ErrUserAlreadyExists.
	Insert(ctx context.Context, user *domain.User) (int64, error)

	// UpdateAuth applies the login flow's counter/lock/last-login
	// mutations to the row with the given id.
	UpdateAuth(ctx context.Context, id uuid.UUID, upd AuthUpdate) (int64, error)

	// UpdateProfile applies role/activation/unlock changes. Both id and
	// username must identify the same row or zero rows are affected.
	UpdateProfile(ctx context.Context, id uuid.UUID, username string, upd ProfileUpdate) (int64, error)

	// ResetPasswordTo rewrites the password hash, optionally clearing
	// the lock state. Same id+username matching rule as UpdateProfile.
	ResetPasswordTo(ctx context.Context, id uuid.UUID, username, newHash string, cleanLocked bool) (int64, error)

	// SelfUpdate rewrites the caller's own username and/or password
	// hash. Nil fields are left unchanged.
	SelfUpdate(ctx context.Context, id uuid.UUID, newUsername, newHash *string) (int64, error)

	// CountUsername returns the number of rows holding the name.
	CountUsername(ctx context.Context, username string) (int64, error)
}

// DatabaseHealth is an interface for database health checks.
// This interface satisfies handler.DatabaseChecker for health endpoints.
type DatabaseHealth interface {
	Ping(ctx context.Context) error
	Close() error
}
