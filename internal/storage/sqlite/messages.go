package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ckocyigit/duoledger/internal/models"
	"github.com/ckocyigit/duoledger/internal/storage"
)

// CreateMessage persists a new message. The classification column stays NULL
// until AttachClassification runs.
func (s *SQLiteStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt == 0 {
		msg.CreatedAt = time.Now().Unix()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (id, sender_id, receiver_id, content, classification, created_at)
		 VALUES (?, ?, ?, ?, NULL, ?)`,
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// AttachClassification stores the classification for a message, once.
// A message that already has one is left untouched.
func (s *SQLiteStore) AttachClassification(ctx context.Context, messageID string, c *models.Classification) error {
	raw, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode classification: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE messages SET classification = ? WHERE id = ? AND classification IS NULL`,
		string(raw), messageID,
	)
	if err != nil {
		return fmt.Errorf("failed to attach classification: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Either the message does not exist or it is already classified.
		if _, err := s.GetMessage(ctx, messageID); err != nil {
			return err
		}
	}
	return nil
}

func scanMessage(scan func(dest ...any) error) (*models.Message, error) {
	msg := &models.Message{}
	var raw sql.NullString
	if err := scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &raw, &msg.CreatedAt); err != nil {
		return nil, err
	}
	if raw.Valid {
		c := &models.Classification{}
		if err := json.Unmarshal([]byte(raw.String), c); err != nil {
			return nil, fmt.Errorf("failed to decode classification: %w", err)
		}
		msg.Classification = c
	}
	return msg, nil
}

// GetMessage retrieves a message by ID.
func (s *SQLiteStore) GetMessage(ctx context.Context, id string) (*models.Message, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, sender_id, receiver_id, content, classification, created_at
		 FROM messages WHERE id = ?`, id,
	)
	msg, err := scanMessage(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return msg, nil
}

// ListMessages returns messages involving userID, newest first. When otherID
// is non-empty only the conversation between the two users is returned.
func (s *SQLiteStore) ListMessages(ctx context.Context, userID, otherID string, limit, offset int) ([]*models.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	query := `SELECT id, sender_id, receiver_id, content, classification, created_at
		 FROM messages WHERE `
	var args []any
	if otherID != "" {
		query += `((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))`
		args = append(args, userID, otherID, otherID, userID)
	} else {
		query += `(sender_id = ? OR receiver_id = ?)`
		args = append(args, userID, userID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var msgs []*models.Message
	for rows.Next() {
		msg, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msgs = append(msgs, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return msgs, nil
}
