package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/prn-tf/codelinker-admin/internal/domain"
	"github.com/prn-tf/codelinker-admin/internal/repository"
)

// userTable is the schema-qualified user table.
const userTable = "cl_system_settings.system_user"

// userColumns is the select list shared by every read.
const userColumns = "id, username, password_hash, role, is_admin, is_active, login_attempts, locked_until, last_login, created_at, updated_at"

// userRepository implements repository.UserRepository for PostgreSQL.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

// FindByUsername retrieves a user by exact username.
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE username = $1`, userColumns, userTable)

	user, err := scanUser(r.db.Pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}
	return user, nil
}

// FindScoped returns the users matching the query.
func (r *userRepository) FindScoped(ctx context.Context, q repository.ScopedQuery) ([]*domain.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	where := []string{"role = ANY($1)"}
	args := []any{roleStrings(q.Roles)}

	if q.ID != nil {
		args = append(args, *q.ID)
		where = append(where, fmt.Sprintf("id = $%d", len(args)))
	}
	if q.Username != "" {
		args = append(args, q.Username)
		if q.Type == repository.QueryFuzzy {
			where = append(where, fmt.Sprintf("username LIKE '%%' || $%d || '%%'", len(args)))
		} else {
			where = append(where, fmt.Sprintf("username = $%d", len(args)))
		}
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s ORDER BY created_at`,
		userColumns, userTable, strings.Join(where, " AND "))

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// Insert creates the row and reports the inserted count.
func (r *userRepository) Insert(ctx context.Context, user *domain.User) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`
		INSERT INTO %s (id, username, password_hash, role, is_admin, is_active, login_attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8)
	`, userTable)

	tag, err := r.db.Pool.Exec(ctx, query,
		user.ID,
		user.Username,
		user.PasswordHash,
		user.Role.String(),
		user.IsAdmin,
		user.IsActive,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: username %q", domain.ErrUserAlreadyExists, user.Username)
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateAuth applies the login flow's mutations to the row.
func (r *userRepository) UpdateAuth(ctx context.Context, id uuid.UUID, upd repository.AuthUpdate) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	set := []string{"updated_at = NOW()"}
	args := []any{id}

	if upd.IsActive != nil {
		args = append(args, *upd.IsActive)
		set = append(set, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if upd.LastLogin != nil {
		args = append(args, *upd.LastLogin)
		set = append(set, fmt.Sprintf("last_login = $%d", len(args)))
	}
	switch upd.Attempts {
	case repository.AttemptsPlus:
		// relative update: interleaved failures never lose increments
		set = append(set, "login_attempts = login_attempts + 1")
	case repository.AttemptsReset:
		set = append(set, "login_attempts = 0")
	}
	if upd.LockedUntil != nil {
		args = append(args, *upd.LockedUntil)
		set = append(set, fmt.Sprintf("locked_until = $%d", len(args)))
	} else if upd.Attempts == repository.AttemptsReset && upd.LastLogin != nil {
		// successful login clears any stale lock
		set = append(set, "locked_until = NULL")
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, userTable, strings.Join(set, ", "))

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update auth state: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateProfile applies role/activation/unlock changes to the row
// identified by both id and username.
func (r *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, username string, upd repository.ProfileUpdate) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	set := []string{"updated_at = NOW()"}
	args := []any{id, username}

	if upd.Role != nil {
		args = append(args, upd.Role.String())
		set = append(set, fmt.Sprintf("role = $%d", len(args)))
		args = append(args, upd.Role.IsAdmin())
		set = append(set, fmt.Sprintf("is_admin = $%d", len(args)))
	}
	if upd.IsActive != nil {
		args = append(args, *upd.IsActive)
		set = append(set, fmt.Sprintf("is_active = $%d", len(args)))
	}
	if upd.CleanLocked {
		set = append(set, "login_attempts = 0", "locked_until = NULL")
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1 AND username = $2`,
		userTable, strings.Join(set, ", "))

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update profile: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ResetPasswordTo rewrites the password hash for the id+username pair.
func (r *userRepository) ResetPasswordTo(ctx context.Context, id uuid.UUID, username, newHash string, cleanLocked bool) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	set := []string{"password_hash = $3", "updated_at = NOW()"}
	if cleanLocked {
		set = append(set, "login_attempts = 0", "locked_until = NULL")
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1 AND username = $2`,
		userTable, strings.Join(set, ", "))

	tag, err := r.db.Pool.Exec(ctx, query, id, username, newHash)
	if err != nil {
		return 0, fmt.Errorf("failed to reset password: %w", err)
	}
	return tag.RowsAffected(), nil
}

// SelfUpdate rewrites the caller's own username and/or password hash.
func (r *userRepository) SelfUpdate(ctx context.Context, id uuid.UUID, newUsername, newHash *string) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	set := []string{"updated_at = NOW()"}
	args := []any{id}

	if newUsername != nil {
		args = append(args, *newUsername)
		set = append(set, fmt.Sprintf("username = $%d", len(args)))
	}
	if newHash != nil {
		args = append(args, *newHash)
		set = append(set, fmt.Sprintf("password_hash = $%d", len(args)))
	}

	query := fmt.Sprintf(`UPDATE %s SET %s WHERE id = $1`, userTable, strings.Join(set, ", "))

	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: username", domain.ErrUserAlreadyExists)
		}
		return 0, fmt.Errorf("failed to self-update user: %w", err)
	}
	return tag.RowsAffected(), nil
}

// CountUsername returns the number of rows holding the name.
func (r *userRepository) CountUsername(ctx context.Context, username string) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT COUNT(1) FROM %s WHERE username = $1`, userTable)

	var count int64
	if err := r.db.Pool.QueryRow(ctx, query, username).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count username: %w", err)
	}
	return count, nil
}

// scanUser reads one user row from a pgx.Row or pgx.Rows.
func scanUser(row pgx.Row) (*domain.User, error) {
	user := &domain.User{}
	var role string

	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.PasswordHash,
		&role,
		&user.IsAdmin,
		&user.IsActive,
		&user.LoginAttempts,
		&user.LockedUntil,
		&user.LastLogin,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.Role = domain.Role(role)
	return user, nil
}

// roleStrings converts a role set to its wire strings for ANY() binding.
func roleStrings(roles []domain.Role) []string {
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		out = append(out, r.String())
	}
	return out
}

// isUniqueViolation reports whether the error is a PostgreSQL unique
// constraint violation (SQLSTATE 23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
