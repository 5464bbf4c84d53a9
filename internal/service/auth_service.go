package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/prn-tf/codelinker-admin/internal/auth"
	"github.com/prn-tf/codelinker-admin/internal/clock"
	"github.com/prn-tf/codelinker-admin/internal/domain"
	"github.com/prn-tf/codelinker-admin/internal/metrics"
	"github.com/prn-tf/codelinker-admin/internal/repository"
)

// loginState labels the stages of the login flow. The flow is
// fail-closed: every stage either rejects or advances.
type loginState int

const (
	stateLookup loginState = iota
	stateActive
	stateLocked
	stateVerify
	stateSettle
)

// AuthService runs the password verification flow and mints tokens.
type AuthService struct {
	users  repository.UserRepository
	tokens *auth.TokenService
	hasher *auth.Hasher
	clock  clock.Clock
	logger zerolog.Logger
}

// NewAuthService creates a new AuthService.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenService, hasher *auth.Hasher, clk clock.Clock, logger zerolog.Logger) *AuthService {
	return &AuthService{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		clock:  clk,
		logger: logger.With().Str("service", "auth").Logger(),
	}
}

// LoginOutput contains the result of a successful login.
type LoginOutput struct {
	AccessToken string
	TokenType   string
}

// Login authenticates the credentials and returns a bearer token.
// Failures surface as domain.ErrInvalidCredentials (unknown name and
// wrong password are indistinguishable), domain.ErrUserInactive, or a
// domain.LockedError.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginOutput, error) {
	user, err := s.Verify(ctx, username, password)
	if err != nil {
		return nil, err
	}

	token, err := s.tokens.Mint(user)
	if err != nil {
		s.logger.Error().Err(err).Str("username", username).Msg("failed to mint token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Str("user_id", user.ID.String()).
		Str("username", user.Username).
		Str("role", user.Role.String()).
		Msg("user logged in")

	return &LoginOutput{AccessToken: token, TokenType: "bearer"}, nil
}

// Verify runs the full login verification flow without minting a
// token: lookup, active check, lock check, password check with the
// counter and lockout side effects, and on success the attempt reset
// and last_login stamp. The self-service password change reuses it so
// its failure behavior matches login exactly.
func (s *AuthService) Verify(ctx context.Context, username, password string) (*domain.User, error) {
	var user *domain.User

	for state := stateLookup; ; {
		switch state {
		case stateLookup:
			found, err := s.users.FindByUsername(ctx, username)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					// never disclose whether the name exists
					s.logger.Debug().Str("username", username).Msg("login for unknown username")
					metrics.LoginsTotal.WithLabelValues(metrics.LoginBadCredentials).Inc()
					return nil, domain.ErrInvalidCredentials
				}
				s.logger.Error().Err(err).Str("username", username).Msg("failed to load user for login")
				return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
			}
			user = found
			state = stateActive

		case stateActive:
			if !user.CanAuthenticate() {
				s.logger.Debug().Str("username", username).Msg("login for disabled account")
				metrics.LoginsTotal.WithLabelValues(metrics.LoginDisabled).Inc()
				return nil, domain.ErrUserInactive
			}
			state = stateLocked

		case stateLocked:
			if remaining, locked := user.LockedAt(s.clock.Now()); locked {
				s.logger.Debug().
					Str("username", username).
					Dur("remaining", remaining).
					Msg("login for locked account")
				metrics.LoginsTotal.WithLabelValues(metrics.LoginLocked).Inc()
				return nil, &domain.LockedError{Remaining: remaining}
			}
			state = stateVerify

		case stateVerify:
			if !s.hasher.Verify(password, user.PasswordHash) {
				return nil, s.recordFailure(ctx, user)
			}
			state = stateSettle

		case stateSettle:
			now := s.clock.Now()
			if _, err := s.users.UpdateAuth(ctx, user.ID, repository.AuthUpdate{
				LastLogin: &now,
				Attempts:  repository.AttemptsReset,
			}); err != nil {
				s.logger.Error().Err(err).Str("username", username).Msg("failed to record successful login")
				return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
			}
			metrics.LoginsTotal.WithLabelValues(metrics.LoginSuccess).Inc()
			return user, nil
		}
	}
}

// recordFailure increments the attempt counter and, when the failure
// that just happened is the one that reaches the threshold, opens the
// lockout window and resets the counter.
func (s *AuthService) recordFailure(ctx context.Context, user *domain.User) error {
	if _, err := s.users.UpdateAuth(ctx, user.ID, repository.AuthUpdate{
		Attempts: repository.AttemptsPlus,
	}); err != nil {
		s.logger.Error().Err(err).Str("username", user.Username).Msg("failed to record login failure")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	attempt := user.LoginAttempts + 1
	if user.LoginAttempts >= domain.LoginAttemptThreshold-1 {
		until := s.clock.Now().Add(domain.LockoutWindow)
		if _, err := s.users.UpdateAuth(ctx, user.ID, repository.AuthUpdate{
			Attempts:    repository.AttemptsReset,
			LockedUntil: &until,
		}); err != nil {
			s.logger.Error().Err(err).Str("username", user.Username).Msg("failed to lock account")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		s.logger.Warn().
			Str("username", user.Username).
			Time("locked_until", until).
			Msg("account locked after repeated login failures")
		metrics.LockoutsTotal.Inc()
	}

	metrics.LoginsTotal.WithLabelValues(metrics.LoginBadCredentials).Inc()

	s.logger.Debug().
		Str("username", user.Username).
		Int("attempt", attempt).
		Msg("login failed: wrong password")

	return &domain.FailedLoginError{Attempt: attempt}
}
