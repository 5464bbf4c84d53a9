package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/prn-tf/codelinker-admin/internal/domain"
	"github.com/prn-tf/codelinker-admin/internal/repository"
)

// userColumns is the select list shared by every read.
const userColumns = "id, username, password_hash, role, is_admin, is_active, login_attempts, locked_until, last_login, created_at, updated_at"

// userRepository implements repository.UserRepository for SQLite.
type userRepository struct {
	db *DB
}

// NewUserRepository creates a new SQLite user repository.
func NewUserRepository(db *DB) repository.UserRepository {
	return &userRepository{db: db}
}

// FindByUsername retrieves a user by exact username.
func (r *userRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf(`SELECT %s FROM system_user WHERE username = ?`, userColumns)

	user, err := scanUser(r.db.QueryRowContext(ctx, query, username))
	if err != nil {
		if isNoRows(err) {
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

	placeholders := make([]string, len(q.Roles))
	args := make([]any, 0, len(q.Roles)+2)
	for i, role := range q.Roles {
		placeholders[i] = "?"
		args = append(args, role.String())
	}
	where := []string{fmt.Sprintf("role IN (%s)", strings.Join(placeholders, ", "))}

	if q.ID != nil {
		where = append(where, "id = ?")
		args = append(args, q.ID.String())
	}
	if q.Username != "" {
		if q.Type == repository.QueryFuzzy {
			where = append(where, "username LIKE '%' || ? || '%'")
		} else {
			where = append(where, "username = ?")
		}
		args = append(args, q.Username)
	}

	query := fmt.Sprintf(`SELECT %s FROM system_user WHERE %s ORDER BY created_at`,
		userColumns, strings.Join(where, " AND "))

	rows, err := r.db.QueryContext(ctx, query, args...)
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

	query := `
		INSERT INTO system_user (id, username, password_hash, role, is_admin, is_active, login_attempts, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		user.ID.String(),
		user.Username,
		user.PasswordHash,
		user.Role.String(),
		boolToInt(user.IsAdmin),
		boolToInt(user.IsActive),
		user.CreatedAt.UTC().Format(time.RFC3339),
		user.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: username %q", domain.ErrUserAlreadyExists, user.Username)
		}
		return 0, fmt.Errorf("failed to insert user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// UpdateAuth applies the login flow's mutations to the row.
func (r *userRepository) UpdateAuth(ctx context.Context, id uuid.UUID, upd repository.AuthUpdate) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	set := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(time.RFC3339)}

	if upd.IsActive != nil {
		set = append(set, "is_active = ?")
		args = append(args, boolToInt(*upd.IsActive))
	}
	if upd.LastLogin != nil {
		set = append(set, "last_login = ?")
		args = append(args, upd.LastLogin.UTC().Format(time.RFC3339))
	}
	switch upd.Attempts {
	case repository.AttemptsPlus:
		// relative update: interleaved failures never lose increments
		set = append(set, "login_attempts = login_attempts + 1")
	case repository.AttemptsReset:
		set = append(set, "login_attempts = 0")
	}
	if upd.LockedUntil != nil {
		set = append(set, "locked_until = ?")
		args = append(args, upd.LockedUntil.UTC().Format(time.RFC3339))
	} else if upd.Attempts == repository.AttemptsReset && upd.LastLogin != nil {
		// successful login clears any stale lock
		set = append(set, "locked_until = NULL")
	}

	query := fmt.Sprintf(`UPDATE system_user SET %s WHERE id = ?`, strings.Join(set, ", "))
	args = append(args, id.String())

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update auth state: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// UpdateProfile applies role/activation/unlock changes to the row
// identified by both id and username.
func (r *userRepository) UpdateProfile(ctx context.Context, id uuid.UUID, username string, upd repository.ProfileUpdate) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	set := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(time.RFC3339)}

	if upd.Role != nil {
		set = append(set, "role = ?", "is_admin = ?")
		args = append(args, upd.Role.String(), boolToInt(upd.Role.IsAdmin()))
	}
	if upd.IsActive != nil {
		set = append(set, "is_active = ?")
		args = append(args, boolToInt(*upd.IsActive))
	}
	if upd.CleanLocked {
		set = append(set, "login_attempts = 0", "locked_until = NULL")
	}

	query := fmt.Sprintf(`UPDATE system_user SET %s WHERE id = ? AND username = ?`, strings.Join(set, ", "))
	args = append(args, id.String(), username)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update profile: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// ResetPasswordTo rewrites the password hash for the id+username pair.
func (r *userRepository) ResetPasswordTo(ctx context.Context, id uuid.UUID, username, newHash string, cleanLocked bool) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	set := []string{"password_hash = ?", "updated_at = ?"}
	args := []any{newHash, time.Now().UTC().Format(time.RFC3339)}
	if cleanLocked {
		set = append(set, "login_attempts = 0", "locked_until = NULL")
	}

	query := fmt.Sprintf(`UPDATE system_user SET %s WHERE id = ? AND username = ?`, strings.Join(set, ", "))
	args = append(args, id.String(), username)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to reset password: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// SelfUpdate rewrites the caller's own username and/or password hash.
func (r *userRepository) SelfUpdate(ctx context.Context, id uuid.UUID, newUsername, newHash *string) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	set := []string{"updated_at = ?"}
	args := []any{time.Now().UTC().Format(time.RFC3339)}

	if newUsername != nil {
		set = append(set, "username = ?")
		args = append(args, *newUsername)
	}
	if newHash != nil {
		set = append(set, "password_hash = ?")
		args = append(args, *newHash)
	}

	query := fmt.Sprintf(`UPDATE system_user SET %s WHERE id = ?`, strings.Join(set, ", "))
	args = append(args, id.String())

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("%w: username", domain.ErrUserAlreadyExists)
		}
		return 0, fmt.Errorf("failed to self-update user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

// CountUsername returns the number of rows holding the name.
func (r *userRepository) CountUsername(ctx context.Context, username string) (int64, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM system_user WHERE username = ?`, username).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count username: %w", err)
	}
	return count, nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanUser reads one user row, converting SQLite's integer booleans and
// RFC 3339 text timestamps back to domain types.
func scanUser(row rowScanner) (*domain.User, error) {
	user := &domain.User{}
	var (
		id                    string
		role                  string
		isAdmin, isActive     int
		lockedUntil, lastSeen sql.NullString
		createdAt, updatedAt  string
	)

	err := row.Scan(
		&id,
		&user.Username,
		&user.PasswordHash,
		&role,
		&isAdmin,
		&isActive,
		&user.LoginAttempts,
		&lockedUntil,
		&lastSeen,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return nil, err
	}

	user.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", id, err)
	}
	user.Role = domain.Role(role)
	user.IsAdmin = isAdmin != 0
	user.IsActive = isActive != 0
	user.LockedUntil = parseNullTime(lockedUntil)
	user.LastLogin = parseNullTime(lastSeen)
	user.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	user.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)

	return user, nil
}

// parseNullTime converts a nullable RFC 3339 column.
func parseNullTime(ns sql.NullString) *time.Time {
	if !ns.Valid || ns.String == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, ns.String)
	if err != nil {
		return nil
	}
	return &t
}

// boolToInt converts a boolean to an integer (SQLite has no native boolean).
func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Ensure userRepository implements repository.UserRepository.
var _ repository.UserRepository = (*userRepository)(nil)
