package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/prn-tf/codelinker-admin/internal/auth"
	"github.com/prn-tf/codelinker-admin/internal/domain"
	"github.com/prn-tf/codelinker-admin/internal/repository"
)

// ListQuery selects which rows a listing returns.
type ListQuery string

const (
	// ListSelf returns the actor's own row, regardless of role.
	ListSelf ListQuery = "self"
	// ListAll returns every row at or below the actor's weight.
	ListAll ListQuery = "all"
	// ListOther returns rows matching a username filter, at or below
	// the actor's weight.
	ListOther ListQuery = "other"
)

// UserService handles authorization-gated user administration.
// The acting principal is always the parsed bearer token's claims.
type UserService struct {
	users  repository.UserRepository
	hasher *auth.Hasher
	auth   *AuthService
	logger zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(users repository.UserRepository, hasher *auth.Hasher, authSvc *AuthService, logger zerolog.Logger) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		auth:   authSvc,
		logger: logger.With().Str("service", "user").Logger(),
	}
}

// CreateUserInput contains the data needed to create a new user.
type CreateUserInput struct {
	Username string
	Password string
	Role     domain.Role
	IsActive bool
}

// Create creates a new user account. The actor's weight must strictly
// exceed the new account's.
func (s *UserService) Create(ctx context.Context, actor *auth.Claims, input CreateUserInput) (*domain.User, error) {
	if !actor.Role.CanAssign(input.Role) {
		return nil, fmt.Errorf("%w: cannot create role %s", domain.ErrAccessDenied, input.Role)
	}
	if !domain.ValidUsername(input.Username) {
		return nil, domain.ErrInvalidUsername
	}

	count, err := s.users.CountUsername(ctx, input.Username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to check username uniqueness")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: username %q", domain.ErrUserAlreadyExists, input.Username)
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	user := domain.NewUser(input.Username, hash, input.Role, input.IsActive)

	affected, err := s.users.Insert(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			// lost the race against a concurrent create with the same name
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to insert user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if affected != 1 {
		return nil, fmt.Errorf("%w: insert affected %d rows", ErrUnexpectedWriteCount, affected)
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Str("role", user.Role.String()).
		Str("created_by", actor.Username).
		Msg("user created")

	return s.readBack(ctx, user.Username)
}

// ListUsersInput selects the rows to return.
type ListUsersInput struct {
	Query    ListQuery
	Type     repository.QueryType
	Username string
}

// List returns user rows per the query scope. "self" is open to every
// role; "all" and "other" require admin weight and never return rows
// above the actor's weight.
func (s *UserService) List(ctx context.Context, actor *auth.Claims, input ListUsersInput) ([]*domain.User, error) {
	if input.Query == ListSelf {
		id, err := uuid.Parse(actor.UserID)
		if err != nil {
			return nil, fmt.Errorf("%w: malformed user id in claims", ErrInternalError)
		}
		return s.findScoped(ctx, repository.ScopedQuery{
			ID:       &id,
			Username: actor.Username,
			Type:     repository.QueryExact,
			Roles:    domain.RoleSuperAdmin.AtOrBelow(),
		})
	}

	if !actor.Role.IsAdmin() {
		return nil, fmt.Errorf("%w: listing requires admin weight", domain.ErrAccessDenied)
	}

	q := repository.ScopedQuery{Roles: actor.Role.AtOrBelow()}
	if input.Query == ListOther {
		q.Username = input.Username
		q.Type = input.Type
	}
	return s.findScoped(ctx, q)
}

// SoftDelete disables the account identified by the id/username pair.
// The row is never removed.
func (s *UserService) SoftDelete(ctx context.Context, actor *auth.Claims, userID, username string) (*domain.User, error) {
	if !actor.Role.IsAdmin() {
		return nil, fmt.Errorf("%w: delete requires admin weight", domain.ErrAccessDenied)
	}

	target, err := s.findPairScoped(ctx, userID, username, actor.Role.AtOrBelow())
	if err != nil {
		return nil, err
	}
	if !actor.Role.CanActOn(target.Role) {
		return nil, fmt.Errorf("%w: cannot act on role %s", domain.ErrAccessDenied, target.Role)
	}

	inactive := false
	affected, err := s.users.UpdateAuth(ctx, target.ID, repository.AuthUpdate{IsActive: &inactive})
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to soft-delete user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if affected != 1 {
		return nil, fmt.Errorf("%w: soft delete affected %d rows", ErrUnexpectedWriteCount, affected)
	}

	s.logger.Info().
		Str("user_id", target.ID.String()).
		Str("username", target.Username).
		Str("deleted_by", actor.Username).
		Msg("user disabled")

	return s.readBack(ctx, username)
}

// UpdateUserInput contains the admin update parameters. Activate and
// CleanLocked are tri-state: nil and false both leave the field alone.
type UpdateUserInput struct {
	UserID      string
	Username    string
	NewRole     *domain.Role
	Activate    *bool
	CleanLocked *bool
}

// Update promotes, re-activates, or unlocks the target account.
// Disabling goes through SoftDelete, never through here.
func (s *UserService) Update(ctx context.Context, actor *auth.Claims, input UpdateUserInput) (*domain.User, error) {
	if !actor.Role.IsAdmin() {
		return nil, fmt.Errorf("%w: update requires admin weight", domain.ErrAccessDenied)
	}
	if input.NewRole != nil && actor.Role != domain.RoleSuperAdmin {
		return nil, fmt.Errorf("%w: only a super admin may change roles", domain.ErrAccessDenied)
	}
	if input.UserID == actor.UserID {
		return nil, ErrSelfTarget
	}

	activate := input.Activate != nil && *input.Activate
	cleanLocked := input.CleanLocked != nil && *input.CleanLocked
	if input.NewRole == nil && !activate && !cleanLocked {
		return nil, ErrMissingUpdateField
	}

	target, err := s.findPair(ctx, input.UserID, input.Username)
	if err != nil {
		return nil, err
	}

	upd := repository.ProfileUpdate{
		Role:        input.NewRole,
		CleanLocked: cleanLocked,
	}
	if activate {
		active := true
		upd.IsActive = &active
	}

	affected, err := s.users.UpdateProfile(ctx, target.ID, input.Username, upd)
	if err != nil {
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to update user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if affected != 1 {
		return nil, fmt.Errorf("%w: update affected %d rows", ErrUnexpectedWriteCount, affected)
	}

	s.logger.Info().
		Str("user_id", target.ID.String()).
		Str("username", target.Username).
		Str("updated_by", actor.Username).
		Msg("user updated")

	return s.readBack(ctx, input.Username)
}

// ForgetPassword resets the target's password to its username so the
// account owner can log in and change it. Super admin only.
func (s *UserService) ForgetPassword(ctx context.Context, actor *auth.Claims, userID, username string, cleanLocked *bool) (*domain.User, error) {
	if actor.Role != domain.RoleSuperAdmin {
		return nil, fmt.Errorf("%w: password reset requires super admin", domain.ErrAccessDenied)
	}

	target, err := s.findPair(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(username)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash reset password")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	clean := cleanLocked == nil || *cleanLocked
	affected, err := s.users.ResetPasswordTo(ctx, target.ID, username, hash, clean)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to reset password")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if affected != 1 {
		return nil, fmt.Errorf("%w: password reset affected %d rows", ErrUnexpectedWriteCount, affected)
	}

	s.logger.Info().
		Str("user_id", target.ID.String()).
		Str("username", target.Username).
		Str("reset_by", actor.Username).
		Msg("password reset to username")

	return s.readBack(ctx, username)
}

// SelfChangeInput contains the self-service change parameters.
type SelfChangeInput struct {
	Password    string
	NewUsername *string
	NewPassword *string
}

// SelfChange lets the actor rename itself and/or set a new password
// after re-verifying the old one. Verification runs the full login
// sequence, counter and lockout side effects included.
func (s *UserService) SelfChange(ctx context.Context, actor *auth.Claims, input SelfChangeInput) (*domain.User, error) {
	if input.NewUsername == nil && input.NewPassword == nil {
		return nil, ErrMissingSelfField
	}

	user, err := s.auth.Verify(ctx, actor.Username, input.Password)
	if err != nil {
		return nil, err
	}

	if input.NewUsername != nil {
		if !domain.ValidUsername(*input.NewUsername) {
			return nil, domain.ErrInvalidUsername
		}
		count, err := s.users.CountUsername(ctx, *input.NewUsername)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to check new username uniqueness")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if count > 0 {
			return nil, fmt.Errorf("%w: %q", ErrNewUsernameTaken, *input.NewUsername)
		}
	}

	var newHash *string
	if input.NewPassword != nil {
		hash, err := s.hasher.Hash(*input.NewPassword)
		if err != nil {
			s.logger.Error().Err(err).Msg("failed to hash new password")
			return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		newHash = &hash
	}

	affected, err := s.users.SelfUpdate(ctx, user.ID, input.NewUsername, newHash)
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, fmt.Errorf("%w: %q", ErrNewUsernameTaken, *input.NewUsername)
		}
		s.logger.Error().Err(err).Str("username", actor.Username).Msg("failed to apply self change")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if affected != 1 {
		return nil, fmt.Errorf("%w: self change affected %d rows", ErrUnexpectedWriteCount, affected)
	}

	name := user.Username
	if input.NewUsername != nil {
		name = *input.NewUsername
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("username", name).
		Bool("renamed", input.NewUsername != nil).
		Bool("password_changed", input.NewPassword != nil).
		Msg("self-service change applied")

	return s.readBack(ctx, name)
}

// findPair loads the row identified by the id/username pair, with no
// role restriction. A malformed id or a pair naming different rows is
// reported as not found.
func (s *UserService) findPair(ctx context.Context, userID, username string) (*domain.User, error) {
	return s.findPairScoped(ctx, userID, username, domain.RoleSuperAdmin.AtOrBelow())
}

// findPairScoped is findPair restricted to a role set. The username is
// resolved first and the id compared against the result, so an id
// belonging to a different row never matches.
func (s *UserService) findPairScoped(ctx context.Context, userID, username string, roles []domain.Role) (*domain.User, error) {
	users, err := s.findScoped(ctx, repository.ScopedQuery{
		Username: username,
		Type:     repository.QueryExact,
		Roles:    roles,
	})
	if err != nil {
		return nil, err
	}
	if len(users) == 0 {
		return nil, domain.ErrUserNotFound
	}
	target := users[0]
	if target.ID.String() != userID {
		return nil, domain.ErrUserNotFound
	}
	return target, nil
}

func (s *UserService) findScoped(ctx context.Context, q repository.ScopedQuery) ([]*domain.User, error) {
	users, err := s.users.FindScoped(ctx, q)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to query users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return users, nil
}

// readBack reloads a row after a mutation so responses reflect the
// stored state, stamps included.
func (s *UserService) readBack(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrUserNotFound
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to reload user after write")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}
