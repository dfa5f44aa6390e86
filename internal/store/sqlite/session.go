package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/explainer-ai/backend/internal/model/chat"
	"github.com/explainer-ai/backend/internal/model/user"
)

// GetSession loads one session owned by userID.
func (d *DB) GetSession(ctx context.Context, userID user.ID, chatID string) (*chat.Session, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT chat_id, title, messages, created_at, updated_at
		FROM chat_history WHERE user_id = ? AND chat_id = ?`,
		int64(userID), chatID,
	)

	var (
		sess                 chat.Session
		msgJSON              string
		createdAt, updatedAt string
	)
	err := row.Scan(&sess.ID, &sess.Title, &msgJSON, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	if err := json.Unmarshal([]byte(msgJSON), &sess.Messages); err != nil {
		return nil, fmt.Errorf("unmarshal messages: %w", err)
	}
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sess.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &sess, nil
}

// ListSessions returns summaries of every session owned by userID, most
// recently updated first. Ties keep insertion order.
func (d *DB) ListSessions(ctx context.Context, userID user.ID) ([]chat.Summary, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT chat_id, title, message_count, created_at, updated_at
		FROM chat_history WHERE user_id = ?
		ORDER BY updated_at DESC, id ASC`,
		int64(userID),
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	list := make([]chat.Summary, 0)
	for rows.Next() {
		var (
			s                    chat.Summary
			createdAt, updatedAt string
		)
		if err := rows.Scan(&s.ID, &s.Title, &s.MessageCount, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		if s.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if s.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		list = append(list, s)
	}
	return list, rows.Err()
}

// UpsertSession writes the whole session document in one statement. An
// existing row keeps its created_at; everything else is replaced.
func (d *DB) UpsertSession(ctx context.Context, userID user.ID, sess *chat.Session) error {
	messages := sess.Messages
	if messages == nil {
		messages = []chat.Message{}
	}
	msgJSON, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("marshal messages: %w", err)
	}

	_, err = d.db.ExecContext(ctx, `
		INSERT INTO chat_history
			(user_id, chat_id, title, messages, message_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, chat_id) DO UPDATE SET
			title         = excluded.title,
			messages      = excluded.messages,
			message_count = excluded.message_count,
			updated_at    = excluded.updated_at`,
		int64(userID),
		sess.ID,
		sess.Title,
		string(msgJSON),
		len(messages),
		formatTime(sess.CreatedAt),
		formatTime(sess.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// UpdateSessionTitle renames a session and bumps its updated_at.
func (d *DB) UpdateSessionTitle(ctx context.Context, userID user.ID, chatID, title string, at time.Time) error {
	result, err := d.db.ExecContext(ctx,
		`UPDATE chat_history SET title = ?, updated_at = MAX(?, created_at) WHERE user_id = ? AND chat_id = ?`,
		title, formatTime(at), int64(userID), chatID,
	)
	if err != nil {
		return fmt.Errorf("update session title: %w", err)
	}
	return expectAffected(result)
}

// DeleteSession removes a session owned by userID.
func (d *DB) DeleteSession(ctx context.Context, userID user.ID, chatID string) error {
	result, err := d.db.ExecContext(ctx,
		`DELETE FROM chat_history WHERE user_id = ? AND chat_id = ?`,
		int64(userID), chatID,
	)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return expectAffected(result)
}

func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
