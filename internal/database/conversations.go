package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/omriShneor/calpal/internal/conversation"
)

// LoadConversation returns the stored record for userID with at most historyLimit
// of the latest turns, or nil when the user has never chatted.
func (d *DB) LoadConversation(ctx context.Context, userID string, historyLimit int) (*conversation.Record, error) {
	rec := conversation.NewRecord(userID)
	var pending sql.NullString
	var updatedAt sql.NullTime

	err := d.QueryRowContext(ctx, `
		SELECT pending, last_question, version, updated_at
		FROM conversations WHERE user_id = ?
	`, userID).Scan(&pending, &rec.LastQuestion, &rec.Version, &updatedAt)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	found := err == nil

	if pending.Valid && pending.String != "" {
		var p conversation.Pending
		if err := json.Unmarshal([]byte(pending.String), &p); err != nil {
			return nil, fmt.Errorf("failed to parse pending command: %w", err)
		}
		rec.Pending = &p
	}
	if updatedAt.Valid {
		rec.UpdatedAt = updatedAt.Time
	}

	history, err := d.chatHistory(ctx, userID, historyLimit)
	if err != nil {
		return nil, err
	}
	if !found && len(history) == 0 {
		return nil, nil
	}
	rec.History = history
	return rec, nil
}

func (d *DB) chatHistory(ctx context.Context, userID string, limit int) ([]conversation.Turn, error) {
	if limit <= 0 {
		limit = conversation.DefaultHistorySize
	}

	// Newest first so LIMIT keeps the latest turns, reversed below
	rows, err := d.QueryContext(ctx, `
		SELECT text, is_user, created_at
		FROM chat_history
		WHERE user_id = ?
		ORDER BY id DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat history: %w", err)
	}
	defer rows.Close()

	var turns []conversation.Turn
	for rows.Next() {
		var t conversation.Turn
		if err := rows.Scan(&t.Text, &t.IsUser, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan chat turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// SaveConversation appends the record's new turns and writes its pending state in
// one transaction, failing with conversation.ErrVersionConflict when another writer
// got there first.
func (d *DB) SaveConversation(ctx context.Context, rec *conversation.Record) error {
	var pending sql.NullString
	if rec.Pending != nil {
		data, err := json.Marshal(rec.Pending)
		if err != nil {
			return fmt.Errorf("failed to marshal pending command: %w", err)
		}
		pending = sql.NullString{String: string(data), Valid: true}
	}
	updatedAt := rec.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	tx, err := d.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var res sql.Result
	if rec.Version == 0 {
		res, err = tx.ExecContext(ctx, `
			INSERT INTO conversations (user_id, pending, last_question, version, updated_at)
			VALUES (?, ?, ?, 1, ?)
			ON CONFLICT(user_id) DO NOTHING
		`, rec.UserID, pending, rec.LastQuestion, updatedAt)
	} else {
		res, err = tx.ExecContext(ctx, `
			UPDATE conversations
			SET pending = ?, last_question = ?, version = version + 1, updated_at = ?
			WHERE user_id = ? AND version = ?
		`, pending, rec.LastQuestion, updatedAt, rec.UserID, rec.Version)
	}
	if err != nil {
		return fmt.Errorf("failed to write conversation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return conversation.ErrVersionConflict
	}

	for _, t := range rec.Unsaved() {
		ts := t.Timestamp
		if ts.IsZero() {
			ts = updatedAt
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chat_history (user_id, text, is_user, created_at) VALUES (?, ?, ?, ?)
		`, rec.UserID, t.Text, t.IsUser, ts); err != nil {
			return fmt.Errorf("failed to append chat turn: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit conversation: %w", err)
	}
	return nil
}
