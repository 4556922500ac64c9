package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrUserNotFound is returned when no user matches the lookup
var ErrUserNotFound = errors.New("user not found")

// User represents a user in the system
type User struct {
	ID          int64      `json:"id"`
	GoogleID    string     `json:"google_id"`
	Email       string     `json:"email"`
	Name        string     `json:"name"`
	AvatarURL   string     `json:"avatar_url,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// GoogleProfile is the identity Google returns after login
type GoogleProfile struct {
	GoogleID  string
	Email     string
	Name      string
	AvatarURL string
}

const userColumns = `id, google_id, email, COALESCE(name, ''), COALESCE(avatar_url, ''), created_at, updated_at, last_login_at`

func scanUser(row interface{ Scan(...any) error }) (*User, error) {
	var u User
	var lastLogin sql.NullTime
	err := row.Scan(&u.ID, &u.GoogleID, &u.Email, &u.Name, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt, &lastLogin)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		u.LastLoginAt = &lastLogin.Time
	}
	return &u, nil
}

// UpsertGoogleUser creates the user for a Google account or refreshes its profile,
// stamping the login time either way
func (d *DB) UpsertGoogleUser(p GoogleProfile) (*User, error) {
	now := time.Now().UTC()
	_, err := d.Exec(`
		INSERT INTO users (google_id, email, name, avatar_url, created_at, updated_at, last_login_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(google_id) DO UPDATE SET
			email = excluded.email,
			name = excluded.name,
			avatar_url = excluded.avatar_url,
			updated_at = excluded.updated_at,
			last_login_at = excluded.last_login_at
	`, p.GoogleID, p.Email, p.Name, p.AvatarURL, now, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return scanUser(d.QueryRow(`SELECT `+userColumns+` FROM users WHERE google_id = ?`, p.GoogleID))
}

// GetUserByEmail looks a user up by email
func (d *DB) GetUserByEmail(email string) (*User, error) {
	u, err := scanUser(d.QueryRow(`SELECT `+userColumns+` FROM users WHERE email = ?`, email))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return u, err
}

// GetUserByID looks a user up by id
func (d *DB) GetUserByID(id int64) (*User, error) {
	u, err := scanUser(d.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
	if err != nil && !errors.Is(err, ErrUserNotFound) {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, err
}
