package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"saku/internal/models"
)

const userColumns = "id, name, email, password_hash, photo_uri, created_at"

// CreateUser creates a new user with the given profile and password hash.
func (db *DB) CreateUser(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	createdAt := db.stamp()
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (name, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		name, email, passwordHash, createdAt,
	)
	if err != nil {
		if constraintOf(err) == constraintUnique {
			return nil, models.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return &models.User{
		ID:           id,
		Name:         name,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    createdAt,
	}, nil
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByEmail retrieves a user by email address.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	row := db.conn.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

// UpdateProfile applies the non-nil fields of u and returns the stored user.
// The photo URI is stored as given; ClearPhoto sets it to NULL.
func (db *DB) UpdateProfile(ctx context.Context, id int64, u models.ProfileUpdate) (*models.User, error) {
	if u.Empty() {
		return db.GetUserByID(ctx, id)
	}

	var (
		sets []string
		args []any
	)
	if u.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *u.Name)
	}
	if u.Email != nil {
		sets = append(sets, "email = ?")
		args = append(args, *u.Email)
	}
	switch {
	case u.ClearPhoto:
		sets = append(sets, "photo_uri = NULL")
	case u.PhotoURI != nil:
		sets = append(sets, "photo_uri = ?")
		args = append(args, *u.PhotoURI)
	}
	args = append(args, id)

	gctx, cancel, err := db.gate(ctx)
	if err != nil {
		return nil, err
	}
	result, err := db.conn.ExecContext(gctx,
		"UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	cancel()
	if err != nil {
		if constraintOf(err) == constraintUnique {
			return nil, models.ErrDuplicateEmail
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, err
	} else if n == 0 {
		return nil, models.ErrNotFound
	}

	return db.GetUserByID(ctx, id)
}

// SwapPasswordHash replaces the password hash only if it still equals oldHash.
// It reports whether the row was updated.
func (db *DB) SwapPasswordHash(ctx context.Context, id int64, oldHash, newHash string) (bool, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return false, err
	}
	defer cancel()

	result, err := db.conn.ExecContext(ctx,
		"UPDATE users SET password_hash = ? WHERE id = ? AND password_hash = ?",
		newHash, id, oldHash,
	)
	if err != nil {
		return false, fmt.Errorf("update password: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	ctx, cancel, err := db.gate(ctx)
	if err != nil {
		return 0, err
	}
	defer cancel()

	var count int
	err = db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}

func scanUser(row *sql.Row) (*models.User, error) {
	var (
		u     models.User
		photo sql.NullString
	)
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &photo, &u.CreatedAt); err != nil {
		if isNoRows(err) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}
	u.PhotoURI = stringPtr(photo)
	return &u, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
