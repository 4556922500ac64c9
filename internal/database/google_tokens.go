package database

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// StoredToken is a Google OAuth token as persisted. Token values are already
// encrypted by the caller; this layer never sees plaintext.
type StoredToken struct {
	UserID                int64
	AccessTokenEncrypted  []byte
	RefreshTokenEncrypted []byte
	TokenType             string
	Expiry                *time.Time
	Scopes                []string
}

// GetGoogleToken returns the stored token for a user, or nil when none is stored
func (d *DB) GetGoogleToken(userID int64) (*StoredToken, error) {
	var tok StoredToken
	var tokenType, scopes sql.NullString
	var expiry sql.NullTime

	err := d.QueryRow(`
		SELECT user_id, access_token_encrypted, refresh_token_encrypted, token_type, expiry, scopes
		FROM google_tokens WHERE user_id = ?
	`, userID).Scan(&tok.UserID, &tok.AccessTokenEncrypted, &tok.RefreshTokenEncrypted, &tokenType, &expiry, &scopes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get google token: %w", err)
	}

	tok.TokenType = tokenType.String
	if expiry.Valid {
		tok.Expiry = &expiry.Time
	}
	if scopes.Valid && scopes.String != "" {
		if err := json.Unmarshal([]byte(scopes.String), &tok.Scopes); err != nil {
			return nil, fmt.Errorf("failed to parse token scopes: %w", err)
		}
	}
	return &tok, nil
}

// SaveGoogleToken upserts a token. An empty refresh token keeps the stored one,
// since Google only returns it on the first consent.
func (d *DB) SaveGoogleToken(tok StoredToken) error {
	scopesJSON, err := json.Marshal(tok.Scopes)
	if err != nil {
		return fmt.Errorf("failed to marshal scopes: %w", err)
	}

	var refresh any
	if len(tok.RefreshTokenEncrypted) > 0 {
		refresh = tok.RefreshTokenEncrypted
	}

	_, err = d.Exec(`
		INSERT INTO google_tokens (user_id, access_token_encrypted, refresh_token_encrypted, token_type, expiry, scopes, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			access_token_encrypted = excluded.access_token_encrypted,
			refresh_token_encrypted = COALESCE(excluded.refresh_token_encrypted, google_tokens.refresh_token_encrypted),
			token_type = excluded.token_type,
			expiry = excluded.expiry,
			scopes = excluded.scopes,
			updated_at = CURRENT_TIMESTAMP
	`, tok.UserID, tok.AccessTokenEncrypted, refresh, tok.TokenType, tok.Expiry, string(scopesJSON))
	if err != nil {
		return fmt.Errorf("failed to save google token: %w", err)
	}
	return nil
}

// DeleteGoogleToken removes the OAuth token for a user
func (d *DB) DeleteGoogleToken(userID int64) error {
	_, err := d.Exec(`DELETE FROM google_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete google token: %w", err)
	}
	return nil
}
