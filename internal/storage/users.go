package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/meltforce/fittrack/internal/models"
)

const userColumns = `id, email, password_hash, COALESCE(display_name, ''), created_at, last_login_at`

// CreateUser registers a new account. ErrEmailTaken when the email is
// already in use.
func (db *DB) CreateUser(ctx context.Context, email, passwordHash, displayName string) (*models.User, error) {
	row := db.Pool.QueryRow(ctx,
		`INSERT INTO users (email, password_hash, display_name)
		 VALUES ($1, $2, NULLIF($3, ''))
		 RETURNING `+userColumns,
		email, passwordHash, displayName)

	u, err := scanUser(row)
	if err != nil {
		if pgErrCode(err) == pgUniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("inserting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail looks up an account for login.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return u, nil
}

// GetUser looks up an account by id.
func (db *DB) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

// UpdateUserProfile changes the mutable profile fields.
func (db *DB) UpdateUserProfile(ctx context.Context, id uuid.UUID, displayName string) (*models.User, error) {
	tag, err := db.Pool.Exec(ctx,
		`UPDATE users SET display_name = NULLIF($2, '') WHERE id = $1`,
		id, displayName)
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrNotFound
	}
	return db.GetUser(ctx, id)
}

// DeleteUser removes the account; workouts cascade with it.
func (db *DB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// TouchLastLogin stamps a successful login.
func (db *DB) TouchLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := db.Pool.Exec(ctx,
		`UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

func scanUser(row workoutScanner) (*models.User, error) {
	var u models.User
	var id uuid.UUID
	err := row.Scan(&id, &u.Email, &u.PasswordHash, &u.DisplayName,
		&u.CreatedAt, &u.LastLoginAt)
	if err != nil {
		return nil, err
	}
	u.ID = id.String()
	return &u, nil
}
