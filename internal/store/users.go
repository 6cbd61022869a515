package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User is an account that owns habits.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    int64
}

// CreateUser inserts a new user, assigning a fresh UUID.
func (db *DB) CreateUser(username, passwordHash string) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UnixMilli(),
	}
	_, err := db.Exec(`
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES (?, ?, ?, ?)
	`, u.ID, u.Username, u.PasswordHash, u.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// GetUser returns a user by ID, or nil if not found.
func (db *DB) GetUser(id string) (*User, error) {
	var u User
	err := db.QueryRow(`
		SELECT id, username, password_hash, created_at FROM users WHERE id = ?
	`, id).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetUserByUsername returns a user by username, or nil if not found.
func (db *DB) GetUserByUsername(username string) (*User, error) {
	var u User
	err := db.QueryRow(`
		SELECT id, username, password_hash, created_at FROM users WHERE username = ?
	`, username).Scan(&u.ID, &u.Username, &u.PasswordHash, &u.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &u, nil
}
