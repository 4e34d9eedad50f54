package model

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

const (
	AuthProviderLocal  = "local"
	AuthProviderGoogle = "google"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("username or email already registered")
)

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Password     string    `json:"-"` // bcrypt hash; empty for Google accounts
	AuthProvider string    `json:"auth_provider"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// CreateUser inserts a new user into the database.
func (u *User) CreateUser(ctx context.Context, db *sql.DB) error {
	if u.AuthProvider == "" {
		u.AuthProvider = AuthProviderLocal
	}
	now := time.Now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := db.ExecContext(ctx, `
	INSERT INTO users (id, username, email, password, auth_provider, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.Password, u.AuthProvider, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrUserExists
		}
		return err
	}
	return nil
}

// GetUserByUsername retrieves a user from the database by their username.
func GetUserByUsername(ctx context.Context, db *sql.DB, username string) (*User, error) {
	return getUser(ctx, db, "username", username)
}

// GetUserByEmail looks the user up case-insensitively.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*User, error) {
	return getUser(ctx, db, "email", strings.ToLower(email))
}

func getUser(ctx context.Context, db *sql.DB, column, value string) (*User, error) {
	query := `
	SELECT id, username, email, password, auth_provider, created_at, updated_at
	FROM users
	WHERE ` + column + ` = ?`

	var user User
	err := db.QueryRowContext(ctx, query, value).Scan(
		&user.ID, &user.Username, &user.Email, &user.Password,
		&user.AuthProvider, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}
