package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/warepick/warepick/internal/types"
)

// CreateUser inserts a new user. Usernames are folded to lowercase and
// must be unique; a collision surfaces as storage.ErrDuplicate.
func (s *Store) CreateUser(ctx context.Context, user *types.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Username = strings.ToLower(strings.TrimSpace(user.Username))

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, password_hash, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.Username, user.PasswordHash, string(user.Role),
		boolToInt(user.Active), user.CreatedAt, user.UpdatedAt)
	return wrapDBErrorf(err, "create user %s", user.Username)
}

// GetUser fetches a user by id
func (s *Store) GetUser(ctx context.Context, id string) (*types.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, active, created_at, updated_at
		FROM users WHERE id = ?`, id), "get user")
}

// GetUserByUsername fetches a user by case-folded username
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*types.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, username, password_hash, role, active, created_at, updated_at
		FROM users WHERE username = ?`, strings.ToLower(strings.TrimSpace(username))), "get user by username")
}

// ListUsers returns all users ordered by creation time
func (s *Store) ListUsers(ctx context.Context) ([]*types.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, username, password_hash, role, active, created_at, updated_at
		FROM users ORDER BY created_at ASC`)
	if err != nil {
		return nil, wrapDBError("list users", err)
	}
	defer rows.Close()

	var users []*types.User
	for rows.Next() {
		u, err := s.scanUser(rows, "list users")
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUser writes back role, active flag, and password hash
func (s *Store) UpdateUser(ctx context.Context, user *types.User) error {
	user.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ?, role = ?, active = ?, updated_at = ?
		WHERE id = ?`,
		user.PasswordHash, string(user.Role), boolToInt(user.Active),
		user.UpdatedAt, user.ID)
	if err != nil {
		return wrapDBErrorf(err, "update user %s", user.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return wrapDBError("update user", err)
	}
	if n == 0 {
		return wrapDBError("update user", sql.ErrNoRows)
	}
	return nil
}

// CountActiveAdmins reports how many active admin accounts exist.
// Startup bootstraps a default admin iff this is zero.
func (s *Store) CountActiveAdmins(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM users WHERE role = 'admin' AND active = 1`).Scan(&count)
	if err != nil {
		return 0, wrapDBError("count admins", err)
	}
	return count, nil
}

// rowScanner matches both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (s *Store) scanUser(row rowScanner, op string) (*types.User, error) {
	var u types.User
	var role string
	var active int
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &active,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, wrapDBError(op, err)
	}
	u.Role = types.Role(role)
	u.Active = active != 0
	return &u, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
