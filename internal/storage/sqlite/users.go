package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmynk/chitfund/internal/models"
	"github.com/mmynk/chitfund/internal/storage"
)

const userColumns = `id, number, first_name, last_name, user_type, password_hash, is_default, created_at, updated_at`

// CreateUser inserts a new user into the database.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Number,
		user.FirstName,
		user.LastName,
		user.UserType,
		user.PasswordHash,
		user.IsDefault,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %q: %w", user.Number, storage.ErrDuplicate)
	}
	if isPrimaryKeyViolation(err) {
		return fmt.Errorf("user id %d: %w", user.ID, storage.ErrIDConflict)
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUserByNumber retrieves a user by their number.
func (s *SQLiteStore) GetUserByNumber(ctx context.Context, number string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE number = ?`

	user, err := scanUser(s.db.QueryRowContext(ctx, query, number))
	if err == sql.ErrNoRows {
		return nil, nil // User not found
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by number: %w", err)
	}

	return user, nil
}

// ListUsers retrieves all users ordered by ID.
func (s *SQLiteStore) ListUsers(ctx context.Context) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
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

// CountUsers returns the number of users.
func (s *SQLiteStore) CountUsers(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}

// MaxUserID returns the highest user ID, or 0 when there are no users.
func (s *SQLiteStore) MaxUserID(ctx context.Context) (int64, error) {
	var id int64
	if err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(id), 0) FROM users`).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to read max user id: %w", err)
	}
	return id, nil
}

// UpdateUser writes a user's profile and password fields.
func (s *SQLiteStore) UpdateUser(ctx context.Context, user *models.User) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET first_name = ?, last_name = ?, user_type = ?, password_hash = ?,
		 is_default = ?, updated_at = ? WHERE number = ?`,
		user.FirstName, user.LastName, user.UserType, user.PasswordHash,
		user.IsDefault, user.UpdatedAt, user.Number,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return fmt.Errorf("user %q: %w", user.Number, err)
	}
	return nil
}

// DeleteUserByNumber removes a user.
func (s *SQLiteStore) DeleteUserByNumber(ctx context.Context, number string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE number = ?`, number)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := affectedOrNotFound(res); err != nil {
		return fmt.Errorf("user %q: %w", number, err)
	}
	return nil
}

// DeleteAllUsers removes every user.
func (s *SQLiteStore) DeleteAllUsers(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("failed to delete users: %w", err)
	}
	return nil
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Number,
		&user.FirstName,
		&user.LastName,
		&user.UserType,
		&user.PasswordHash,
		&user.IsDefault,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}
